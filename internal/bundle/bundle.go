// Package bundle assembles a workspace's distribution entries into archives
// (tar.gz for archive entries, a plain directory copy for bundle entries),
// reusing the same compress/tar stack the external-dependency materializer
// extracts with.
package bundle

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/klauspost/compress/gzip"

	"github.com/chalet-org/chalet-go/internal/workspace"
)

// Build assembles entry from sourceDir (the build output directory) into
// outDir, returning the path to the produced artifact.
func Build(entry workspace.DistributionEntry, sourceDir, outDir string) (string, error) {
	files, err := expandIncludes(entry.Include, sourceDir)
	if err != nil {
		return "", err
	}

	switch entry.Kind {
	case "bundle":
		return buildBundle(entry.Name, files, sourceDir, outDir)
	default: // "archive" and unspecified both produce a tar.gz
		return buildArchive(entry.Name, files, sourceDir, outDir)
	}
}

func expandIncludes(patterns []string, sourceDir string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, p := range patterns {
		matches, err := doublestar.Glob(os.DirFS(sourceDir), p)
		if err != nil {
			return nil, fmt.Errorf("expanding distribution include %q: %w", p, err)
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func buildArchive(name string, files []string, sourceDir, outDir string) (string, error) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", err
	}
	outPath := filepath.Join(outDir, name+".tar.gz")
	f, err := os.Create(outPath) // #nosec G304 - output path is operator-configured
	if err != nil {
		return "", err
	}
	defer f.Close()

	gz, _ := gzip.NewWriterLevel(f, gzip.DefaultCompression)
	defer gz.Close()
	tw := tar.NewWriter(gz)
	defer tw.Close()

	for _, rel := range files {
		if err := addTarEntry(tw, sourceDir, rel); err != nil {
			return "", err
		}
	}
	return outPath, nil
}

func addTarEntry(tw *tar.Writer, sourceDir, rel string) error {
	full := filepath.Join(sourceDir, rel)
	info, err := os.Stat(full)
	if err != nil {
		return err
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = rel
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	if info.IsDir() {
		return nil
	}
	f, err := os.Open(full) // #nosec G304 - path built from a glob over sourceDir
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(tw, f)
	return err
}

func buildBundle(name string, files []string, sourceDir, outDir string) (string, error) {
	dest := filepath.Join(outDir, name)
	if err := os.MkdirAll(dest, 0o755); err != nil {
		return "", err
	}
	for _, rel := range files {
		src := filepath.Join(sourceDir, rel)
		dst := filepath.Join(dest, rel)
		info, err := os.Stat(src)
		if err != nil {
			return "", err
		}
		if info.IsDir() {
			if err := os.MkdirAll(dst, 0o755); err != nil {
				return "", err
			}
			continue
		}
		if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
			return "", err
		}
		if err := copyFile(src, dst); err != nil {
			return "", err
		}
	}
	return dest, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - path built from a glob over sourceDir
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst) // #nosec G304 - destination under the operator-configured distribution dir
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}
