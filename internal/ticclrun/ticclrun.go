// Package ticclrun holds the concurrency and configuration plumbing shared
// by every ticcltools stage binary: thread-count resolution and the worker
// pool each data-parallel stage partitions its outer loop across.
package ticclrun

import (
	"context"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// ResolveThreads turns the -t/--threads flag value into a worker count.
// The sentinel "max" derives from platform-reported concurrency (leaving
// two cores free); any other value must parse as a positive integer. An
// empty spec defaults to 1.
func ResolveThreads(spec string) (int, error) {
	switch spec {
	case "":
		return 1, nil
	case "max":
		n := runtime.NumCPU() - 2
		if n < 1 {
			n = 1
		}
		return n, nil
	default:
		n, err := strconv.Atoi(spec)
		if err != nil || n < 1 {
			return 0, errInvalidThreads(spec)
		}
		return n, nil
	}
}

type threadErr string

func (e threadErr) Error() string { return "invalid thread count: " + string(e) }

func errInvalidThreads(spec string) error { return threadErr(spec) }

// Pool runs a data-parallel outer loop across a fixed worker count. Each
// worker processes a contiguous, equal-cardinality slice of the outer set,
// and a fatal error from any worker is returned at the join point.
type Pool struct {
	Workers int
}

// New builds a Pool with the given worker count, clamped to at least 1.
func New(workers int) *Pool {
	if workers < 1 {
		workers = 1
	}
	return &Pool{Workers: workers}
}

// Slice partitions [0, n) into p.Workers contiguous, equal-cardinality
// ranges (the last range absorbs any remainder), and calls fn once per
// range concurrently. fn receives the worker index and the [lo, hi) bounds
// of its slice. Slice blocks until every worker finishes or one returns a
// non-nil error, in which case the first error is returned; in-flight
// pure-CPU work in other workers is not cancelled beyond the context
// passed to fn.
func (p *Pool) Slice(ctx context.Context, n int, fn func(ctx context.Context, worker, lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	workers := p.Workers
	if workers > n {
		workers = n
	}
	partSize := n / workers
	if partSize < 1 {
		partSize = 1
		workers = n
	}

	g, gctx := errgroup.WithContext(ctx)
	lo := 0
	for w := 0; w < workers; w++ {
		hi := lo + partSize
		if w == workers-1 {
			hi = n
		}
		wIdx, wLo, wHi := w, lo, hi
		g.Go(func() error {
			return fn(gctx, wIdx, wLo, wHi)
		})
		lo = hi
	}
	return g.Wait()
}

// Version is the release stamp every stage binary reports on -V/--version.
const Version = "0.1.0"

// CommonFlags is the -v/--verbose and -t/--threads pair every cmd/ticcl-*
// binary exposes.
type CommonFlags struct {
	Verbose bool
	Threads string
}

// AddCommonFlags registers -v/--verbose, -t/--threads and -V/--version on
// cmd, the flag-binding every stage binary shares instead of repeating the
// boilerplate eight times.
func AddCommonFlags(cmd *cobra.Command) *CommonFlags {
	cf := &CommonFlags{}
	cmd.Version = Version
	cmd.Flags().BoolP("version", "V", false, "print version and exit")
	cmd.Flags().BoolVarP(&cf.Verbose, "verbose", "v", false, "enable debug logging")
	cmd.Flags().StringVarP(&cf.Threads, "threads", "t", "", `worker count, or "max"`)
	return cf
}
