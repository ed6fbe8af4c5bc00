// Package envsnap implements the vendor environment-activation snapshot
// cache: running a vendor script (vcvars, oneAPI setvars, emsdk_env) is slow
// and its effect on the process environment is deterministic for a given
// fingerprint, so the delta is computed once and replayed thereafter.
package envsnap

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/fsutil"
)

// VendorActivation identifies the activation script family.
type VendorActivation int

const (
	NoActivation VendorActivation = iota
	MsvcVcvars
	IntelSetvars
	EmscriptenEmsdkEnv
)

// Spec describes one activation request.
type Spec struct {
	Vendor    VendorActivation
	ScriptPath string
	HostArch  string
	TargetArch string
	VSYear    string
	ExtraArgs []string
}

// VendorScriptFailedError reports a non-zero or missing vendor script.
type VendorScriptFailedError struct {
	Script string
	Stderr string
	Err    error
}

func (e *VendorScriptFailedError) Error() string {
	return fmt.Sprintf("vendor activation script %s failed: %v\n%s", e.Script, e.Err, e.Stderr)
}

func (e *VendorScriptFailedError) Unwrap() error { return e.Err }

// Fingerprint computes the cache key for a Spec.
func Fingerprint(s Spec) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%d|%s|%s|%s|%s|%s", s.Vendor, s.ScriptPath, s.HostArch, s.TargetArch, s.VSYear, strings.Join(s.ExtraArgs, " "))
	return strconv.FormatUint(h.Sum64(), 16)
}

// Store persists and retrieves environment deltas under intermediate/.
type Store struct {
	Dir    string
	Runner *fsutil.Runner
}

// NewStore returns a Store rooted at intermediateDir.
func NewStore(intermediateDir string) *Store {
	return &Store{Dir: intermediateDir, Runner: fsutil.NewRunner()}
}

func (s *Store) path(fp string) string {
	return filepath.Join(s.Dir, fmt.Sprintf("env_%s.env", fp))
}

// Delta is an ordered set of environment key=value pairs.
type Delta struct {
	Vars []KV
}

// KV is one environment variable assignment.
type KV struct {
	Key, Value string
}

// Apply activates the Spec, returning the resulting environment delta. If a
// cached delta exists for the Spec's fingerprint it is reused without
// spawning the vendor script.
func (s *Store) Apply(ctx context.Context, spec Spec) (Delta, error) {
	log := clog.FromContext(ctx)
	fp := Fingerprint(spec)

	if d, err := s.load(fp); err == nil {
		log.Debugf("environment snapshot: reusing cached delta for fingerprint %s", fp)
		return d, nil
	}

	if spec.Vendor == NoActivation {
		return Delta{}, nil
	}

	before := captureEnv()

	shell, args := shellInvocation(spec)
	res, err := s.Runner.Run(ctx, "", nil, shell, args...)
	if err != nil {
		return Delta{}, &VendorScriptFailedError{Script: spec.ScriptPath, Stderr: res.Stderr, Err: err}
	}

	after := parseEnvDump(res.Stdout)
	delta := diffEnv(before, after)
	delta = stripInheritedPathPrefix(delta, before)

	if err := s.save(fp, delta); err != nil {
		log.Warnf("environment snapshot: failed to persist delta for %s: %v", fp, err)
	}
	return delta, nil
}

func captureEnv() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if i := strings.IndexByte(kv, '='); i >= 0 {
			out[kv[:i]] = kv[i+1:]
		}
	}
	return out
}

func shellInvocation(spec Spec) (string, []string) {
	if runtime.GOOS == "windows" {
		cmd := fmt.Sprintf(`"%s" %s && set`, spec.ScriptPath, strings.Join(spec.ExtraArgs, " "))
		return "cmd.exe", []string{"/d", "/c", cmd}
	}
	cmd := fmt.Sprintf(". %q %s && env", spec.ScriptPath, strings.Join(spec.ExtraArgs, " "))
	return "/bin/sh", []string{"-c", cmd}
}

func parseEnvDump(out string) map[string]string {
	env := make(map[string]string)
	sc := bufio.NewScanner(strings.NewReader(out))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '='); i > 0 {
			env[line[:i]] = line[i+1:]
		}
	}
	return env
}

// diffEnv returns the keys present/changed in after relative to before, in
// sorted key order for determinism.
func diffEnv(before, after map[string]string) Delta {
	var keys []string
	for k := range after {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var d Delta
	for _, k := range keys {
		v := after[k]
		if bv, ok := before[k]; !ok || bv != v {
			d.Vars = append(d.Vars, KV{Key: k, Value: v})
		}
	}
	return d
}

// stripInheritedPathPrefix removes the user's original PATH from the end
// of the recorded PATH delta so that reapplying the delta composes as
// saved-user-PATH, then vendor-delta-PATH, instead of duplicating it.
func stripInheritedPathPrefix(d Delta, before map[string]string) Delta {
	userPath := before["PATH"]
	if userPath == "" {
		return d
	}
	for i, kv := range d.Vars {
		if kv.Key != "PATH" {
			continue
		}
		if strings.HasSuffix(kv.Value, userPath) {
			d.Vars[i].Value = strings.TrimSuffix(kv.Value, userPath)
			d.Vars[i].Value = strings.TrimSuffix(d.Vars[i].Value, string(os.PathListSeparator))
		}
	}
	return d
}

func (s *Store) load(fp string) (Delta, error) {
	b, err := os.ReadFile(s.path(fp))
	if err != nil {
		return Delta{}, err
	}
	var d Delta
	sc := bufio.NewScanner(strings.NewReader(string(b)))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '='); i > 0 {
			d.Vars = append(d.Vars, KV{Key: line[:i], Value: line[i+1:]})
		}
	}
	return d, nil
}

func (s *Store) save(fp string, d Delta) error {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return err
	}
	var sb strings.Builder
	for _, kv := range d.Vars {
		fmt.Fprintf(&sb, "%s=%s\n", kv.Key, kv.Value)
	}
	tmp := s.path(fp) + ".tmp"
	if err := os.WriteFile(tmp, []byte(sb.String()), 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path(fp))
}

// ApplyToEnviron returns a copy of base with the delta's keys overridden or
// added, suitable for passing as a subprocess's environment. A PATH in the
// delta is composed as base's PATH followed by the delta's PATH.
func ApplyToEnviron(base []string, d Delta) []string {
	out := make([]string, 0, len(base)+len(d.Vars))
	overridden := make(map[string]bool, len(d.Vars))
	for _, kv := range d.Vars {
		overridden[kv.Key] = true
	}
	userPath := ""
	for _, kv := range base {
		if i := strings.IndexByte(kv, '='); i >= 0 && overridden[kv[:i]] {
			if kv[:i] == "PATH" {
				userPath = kv[i+1:]
			}
			continue
		}
		out = append(out, kv)
	}
	for _, kv := range d.Vars {
		val := kv.Value
		if kv.Key == "PATH" && userPath != "" && val != "" {
			val = userPath + string(os.PathListSeparator) + val
		}
		out = append(out, kv.Key+"="+val)
	}
	return out
}
