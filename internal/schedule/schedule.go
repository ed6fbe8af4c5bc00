// Package schedule drives execution of a target graph through one of three
// strategies (native scheduler, Ninja, Make), adapted from the reference
// orchestrator's package build scheduler: a semaphore-bounded worker pool,
// a mutex-protected active set, and a cascade-on-failure walk, here driving
// target build nodes instead of package jobs.
package schedule

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/chalet-org/chalet-go/internal/clog"
	"github.com/chalet-org/chalet-go/internal/diagnostic"
	"github.com/chalet-org/chalet-go/internal/fsutil"
	"github.com/chalet-org/chalet-go/internal/graph"
)

// Status is a node's lifecycle state.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// NodeBuild is one buildable unit: a command to run plus its printed label.
type NodeBuild struct {
	Name string
	Argv []string
	Dir  string
	Env  []string
}

// Executor runs a single NodeBuild to completion.
type Executor func(ctx context.Context, nb NodeBuild) (fsutil.Result, error)

// Config configures the native Scheduler.
type Config struct {
	MaxJobs    int
	KeepGoing  bool
	ShowCommands bool
}

// Result summarizes a scheduler run.
type Result struct {
	Statuses map[string]Status
	Worst    Status // Success unless any node Failed
}

// Scheduler is the native (in-process) execution strategy.
type Scheduler struct {
	g        *graph.Graph
	builds   map[string]NodeBuild
	config   Config
	exec     Executor
	diags    *diagnostic.Collector

	sem     chan struct{}
	mu      sync.Mutex
	status  map[string]Status
	aborted atomic.Bool
	printer sync.Mutex
}

// New returns a Scheduler for g, where builds maps each graph node name to
// the command that produces it.
func New(g *graph.Graph, builds map[string]NodeBuild, cfg Config, exec Executor, diags *diagnostic.Collector) *Scheduler {
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 4
	}
	return &Scheduler{
		g:      g,
		builds: builds,
		config: cfg,
		exec:   exec,
		diags:  diags,
		sem:    make(chan struct{}, cfg.MaxJobs),
		status: map[string]Status{},
	}
}

// Abort raises the process-wide cancellation flag: no new nodes are
// dispatched. Nodes already in flight run to completion; only cancelling the
// context passed to Run cancels their subprocesses.
func (s *Scheduler) Abort() {
	s.aborted.Store(true)
}

// Run executes the graph to completion (or until aborted), honoring
// KeepGoing: when false, a failed node stops new dispatches but already
// in-flight independent branches still drain.
func (s *Scheduler) Run(ctx context.Context) (Result, error) {
	log := clog.FromContext(ctx)

	total := s.g.Size()
	completed := map[string]bool{}

	var wg sync.WaitGroup
	var failedOne atomic.Bool

	for len(completed) < total {
		if s.aborted.Load() {
			break
		}

		ready := s.g.Ready(completed)
		dispatched := false
		for _, name := range ready {
			if s.statusOf(name) != "" {
				continue // already dispatched this round
			}
			if failedOne.Load() && !s.config.KeepGoing {
				break
			}
			skip := false
			for _, dep := range s.g.Node(name).Dependencies {
				if st := s.statusOf(dep); st == StatusFailed || st == StatusSkipped {
					skip = true
					break
				}
			}
			if skip {
				s.setStatus(name, StatusSkipped)
				continue
			}

			select {
			case s.sem <- struct{}{}:
			case <-ctx.Done():
				wg.Wait()
				return s.result(), ctx.Err()
			}

			s.setStatus(name, StatusRunning)
			dispatched = true
			wg.Add(1)
			go func(n string) {
				defer wg.Done()
				defer func() { <-s.sem }()
				s.runNode(ctx, n, &failedOne)
			}(name)
		}

		if !dispatched {
			// Nothing new to dispatch this pass: wait for in-flight work
			// before re-checking readiness, so dependents unlock as soon
			// as their dependencies finish.
			wg.Wait()
			newlyDone := s.collectTerminal(completed)
			if len(newlyDone) == 0 {
				break
			}
			for _, n := range newlyDone {
				completed[n] = true
			}
		}
	}
	wg.Wait()

	for _, n := range s.collectTerminal(completed) {
		completed[n] = true
	}

	s.cascadeSkips(completed)

	if failedOne.Load() {
		log.Warnf("build finished with failures")
	}
	return s.result(), nil
}

func (s *Scheduler) runNode(ctx context.Context, name string, failedOne *atomic.Bool) {
	nb, ok := s.builds[name]
	if !ok {
		s.setStatus(name, StatusSuccess)
		return
	}

	res, err := s.exec(ctx, nb)

	s.printer.Lock()
	log := clog.FromContext(ctx)
	if err != nil {
		log.Errorf("%s failed: %v", name, err)
		fsutil.TeeStderr(logWriter{log}, res)
		if s.config.ShowCommands {
			log.Errorf("%s: %v", name, nb.Argv)
		}
	} else {
		log.Infof("%s succeeded", name)
	}
	s.printer.Unlock()

	if err != nil {
		s.setStatus(name, StatusFailed)
		if s.diags != nil {
			s.diags.Error(name, "linker-or-compiler", "build step failed", err)
		}
		failedOne.Store(true)
		return
	}
	s.setStatus(name, StatusSuccess)
}

func (s *Scheduler) setStatus(name string, st Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status[name] = st
}

func (s *Scheduler) statusOf(name string) Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status[name]
}

func (s *Scheduler) collectTerminal(completed map[string]bool) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for name, st := range s.status {
		if completed[name] {
			continue
		}
		if st == StatusSuccess || st == StatusFailed || st == StatusSkipped {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// cascadeSkips marks every node depending (directly or transitively) on a
// failed node as Skipped, the same recursive walk the reference scheduler
// uses to avoid building on top of a broken dependency.
func (s *Scheduler) cascadeSkips(completed map[string]bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	failed := map[string]bool{}
	for name, st := range s.status {
		if st == StatusFailed {
			failed[name] = true
		}
	}
	if len(failed) == 0 {
		return
	}

	changed := true
	for changed {
		changed = false
		for _, n := range s.g.Nodes() {
			if s.status[n.Name] != "" {
				continue
			}
			for _, dep := range n.Dependencies {
				if failed[dep] || s.status[dep] == StatusSkipped {
					s.status[n.Name] = StatusSkipped
					failed[n.Name] = true
					changed = true
					break
				}
			}
		}
	}
}

func (s *Scheduler) result() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	worst := StatusSuccess
	out := make(map[string]Status, len(s.status))
	for k, v := range s.status {
		out[k] = v
		if v == StatusFailed {
			worst = StatusFailed
		}
	}
	return Result{Statuses: out, Worst: worst}
}

type logWriter struct{ l *clog.Logger }

func (w logWriter) Write(p []byte) (int, error) {
	w.l.Errorf("%s", string(p))
	return len(p), nil
}
