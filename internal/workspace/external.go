package workspace

import (
	"archive/tar"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/sync/errgroup"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/fsutil"
)

// TimeoutError reports an external dependency fetch that exceeded its
// configured per-dependency timeout.
type TimeoutError struct {
	Name string
}

func (e *TimeoutError) Error() string { return fmt.Sprintf("external dependency %q: fetch timed out", e.Name) }

// materializeCache records, per external name, the key that identified the
// state materialized on disk, so a second configure with unchanged JSON
// performs no network I/O.
type materializeCache struct {
	path    string
	entries map[string]string
}

func loadMaterializeCache(path string) *materializeCache {
	c := &materializeCache{path: path, entries: map[string]string{}}
	if b, err := os.ReadFile(path); err == nil {
		_ = json.Unmarshal(b, &c.entries)
	}
	return c
}

func (c *materializeCache) save() error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(c.entries, "", "  ")
	if err != nil {
		return err
	}
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, c.path)
}

// gitKey is the cache key for a git dependency: repository + resolved ref.
func gitKey(e ExternalDependency) string {
	ref := e.Commit
	if ref == "" {
		ref = e.Tag
	}
	if ref == "" {
		ref = e.Branch
	}
	return e.Repository + "@" + ref
}

func archiveKey(e ExternalDependency) string {
	return e.URL + "#" + e.Hash
}

// Materializer materializes external dependencies into externalDir,
// bounded by maxJobs concurrent fetches.
type Materializer struct {
	ExternalDir string
	MaxJobs     int
	Runner      *fsutil.Runner
	cache       *materializeCache
}

// NewMaterializer returns a Materializer rooted at externalDir, loading its
// persisted materialize-cache from externalDir/.materialize-cache.json.
func NewMaterializer(externalDir string, maxJobs int) *Materializer {
	if maxJobs <= 0 {
		maxJobs = 4
	}
	return &Materializer{
		ExternalDir: externalDir,
		MaxJobs:     maxJobs,
		Runner:      fsutil.NewRunner(),
		cache:       loadMaterializeCache(filepath.Join(externalDir, ".materialize-cache.json")),
	}
}

// MaterializeAll materializes every dependency concurrently, bounded by
// MaxJobs, aggregating any failures.
func (m *Materializer) MaterializeAll(ctx context.Context, deps []ExternalDependency) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.MaxJobs)

	var mu sync.Mutex
	for _, dep := range deps {
		dep := dep
		g.Go(func() error {
			runCtx := ctx
			var cancel context.CancelFunc
			if dep.TimeoutSeconds > 0 {
				runCtx, cancel = context.WithTimeout(ctx, time.Duration(dep.TimeoutSeconds)*time.Second)
				defer cancel()
			}
			if err := m.materializeOne(runCtx, dep); err != nil {
				if runCtx.Err() == context.DeadlineExceeded {
					return &TimeoutError{Name: dep.Name}
				}
				return fmt.Errorf("external dependency %q: %w", dep.Name, err)
			}
			key := dep.Name
			switch dep.Kind {
			case ExternalGit:
				key = gitKey(dep)
			case ExternalArchive:
				key = archiveKey(dep)
			case ExternalScript:
				key = dep.Script
			}
			mu.Lock()
			m.cache.entries[dep.Name] = key
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return m.cache.save()
}

func (m *Materializer) materializeOne(ctx context.Context, dep ExternalDependency) error {
	log := clog.FromContext(ctx)
	dest := filepath.Join(m.ExternalDir, dep.Destination)

	switch dep.Kind {
	case ExternalGit:
		return m.materializeGit(ctx, dep, dest)
	case ExternalArchive:
		return m.materializeArchive(ctx, dep, dest)
	case ExternalLocal:
		if _, err := os.Stat(dep.Path); err != nil {
			return fmt.Errorf("local dependency path does not exist: %w", err)
		}
		return nil
	case ExternalScript:
		key := dep.Script
		if m.cache.entries[dep.Name] == key {
			log.Debugf("external %q: script fingerprint unchanged, skipping", dep.Name)
			return nil
		}
		_, err := m.Runner.Run(ctx, dest, nil, "/bin/sh", "-c", dep.Script)
		return err
	default:
		return fmt.Errorf("unknown external dependency kind %q", dep.Kind)
	}
}

func (m *Materializer) materializeGit(ctx context.Context, dep ExternalDependency, dest string) error {
	log := clog.FromContext(ctx)
	key := gitKey(dep)

	if _, err := os.Stat(filepath.Join(dest, ".git")); err == nil {
		if m.cache.entries[dep.Name] == key {
			log.Debugf("external %q: repository+ref unchanged, skipping clone", dep.Name)
			return nil
		}
		repo, err := git.PlainOpen(dest)
		if err != nil {
			return err
		}
		if err := repo.FetchContext(ctx, &git.FetchOptions{Force: true}); err != nil && err != git.NoErrAlreadyUpToDate {
			return fmt.Errorf("fetching %s: %w", dep.Repository, err)
		}
		wt, err := repo.Worktree()
		if err != nil {
			return err
		}
		return checkoutRef(wt, dep)
	}

	cloneOpts := &git.CloneOptions{
		URL:               dep.Repository,
		RecurseSubmodules: 0,
	}
	if dep.Submodules {
		cloneOpts.RecurseSubmodules = git.DefaultSubmoduleRecursionDepth
	}
	repo, err := git.PlainCloneContext(ctx, dest, false, cloneOpts)
	if err != nil {
		return fmt.Errorf("cloning %s: %w", dep.Repository, err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return checkoutRef(wt, dep)
}

func checkoutRef(wt *git.Worktree, dep ExternalDependency) error {
	opts := &git.CheckoutOptions{Force: true}
	switch {
	case dep.Commit != "":
		opts.Hash = plumbing.NewHash(dep.Commit)
	case dep.Tag != "":
		opts.Branch = plumbing.NewTagReferenceName(dep.Tag)
	case dep.Branch != "":
		opts.Branch = plumbing.NewBranchReferenceName(dep.Branch)
	default:
		return nil
	}
	return wt.Checkout(opts)
}

func (m *Materializer) materializeArchive(ctx context.Context, dep ExternalDependency, dest string) error {
	log := clog.FromContext(ctx)
	key := archiveKey(dep)
	if _, err := os.Stat(dest); err == nil && m.cache.entries[dep.Name] == key {
		log.Debugf("external %q: URL/hash unchanged, skipping download", dep.Name)
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, dep.URL, nil)
	if err != nil {
		return err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", dep.URL, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("downloading %s: status %s", dep.URL, resp.Status)
	}

	hasher := sha256.New()
	tee := io.TeeReader(resp.Body, hasher)

	gz, err := gzip.NewReader(tee)
	if err != nil {
		return fmt.Errorf("opening gzip stream for %s: %w", dep.URL, err)
	}
	defer gz.Close()

	extractRoot := dest
	if dep.Subdirectory != "" {
		extractRoot = filepath.Join(dest, "..", filepath.Base(dest)+"-raw")
	}
	if err := extractTar(gz, extractRoot); err != nil {
		return fmt.Errorf("extracting %s: %w", dep.URL, err)
	}

	if dep.Hash != "" {
		got := hex.EncodeToString(hasher.Sum(nil))
		if got != dep.Hash {
			return fmt.Errorf("hash mismatch for %s: got %s want %s", dep.URL, got, dep.Hash)
		}
	}

	if dep.Subdirectory != "" {
		return os.Rename(filepath.Join(extractRoot, dep.Subdirectory), dest)
	}
	return nil
}

func extractTar(r io.Reader, dest string) error {
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return err
	}
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		target := filepath.Join(dest, hdr.Name)
		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(target, 0o755); err != nil {
				return err
			}
		case tar.TypeReg:
			if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
				return err
			}
			f, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, os.FileMode(hdr.Mode))
			if err != nil {
				return err
			}
			if _, err := io.Copy(f, tr); err != nil {
				f.Close()
				return err
			}
			f.Close()
		}
	}
}
