package runtime

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/UniQw/bulkscan/internal/ledger"
	"github.com/UniQw/bulkscan/internal/source"
)

// Logger is a minimal logging interface used internally by the runtime.
// It mirrors the public logger in the root package to avoid an import cycle.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any) {}
func (noopLogger) Infof(string, ...any)  {}
func (noopLogger) Warnf(string, ...any)  {}
func (noopLogger) Errorf(string, ...any) {}

type Config struct {
	// Concurrency is the number of worker goroutines, i.e. the maximum number
	// of tasks attempting at once. Values below 1 mean 1.
	Concurrency int
	Logger      Logger
}

// Executor resolves one item to its terminal entry. A non-nil error means the
// item was abandoned (context done) and must not be recorded.
type Executor func(ctx context.Context, it source.Item) (ledger.Entry, error)

// Result pairs an item with its resolved entry.
type Result struct {
	Item  source.Item
	Entry ledger.Entry
}

// Runtime is a fixed-size worker pool that drains a list of items.
type Runtime struct {
	cfg      Config
	exec     Executor
	log      Logger
	inflight atomic.Int64
	peak     atomic.Int64
}

// New creates a runtime executing items with exec.
func New(cfg Config, exec Executor) *Runtime {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runtime{cfg: cfg, exec: exec, log: lg}
}

// Run executes items on Concurrency workers and calls deliver once per
// resolved item, always from the calling goroutine, in completion order.
// Items for which done reports true, and repeated keys, are not dispatched.
// Run returns when every dispatched item is resolved, or after ctx is done
// and in-flight items have been abandoned; in the latter case it returns
// ctx.Err() along with the number of delivered results.
func (rt *Runtime) Run(ctx context.Context, items []source.Item, done func(ledger.Key) bool, deliver func(Result)) (int, error) {
	jobs := make(chan source.Item)
	results := make(chan Result, rt.cfg.Concurrency)

	var wg sync.WaitGroup
	for i := 0; i < rt.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rt.workerLoop(ctx, jobs, results)
		}()
	}

	// dispatcher
	go func() {
		defer close(jobs)
		seen := make(map[ledger.Key]struct{}, len(items))
		for _, it := range items {
			if _, dup := seen[it.Key]; dup {
				rt.log.Debugf("skip duplicate: row=%d field=%s", it.Key.Row, it.Key.Field)
				continue
			}
			seen[it.Key] = struct{}{}
			if done != nil && done(it.Key) {
				rt.log.Debugf("skip done: row=%d field=%s", it.Key.Row, it.Key.Field)
				continue
			}
			select {
			case jobs <- it:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	n := 0
	for r := range results {
		deliver(r)
		n++
	}
	return n, ctx.Err()
}

func (rt *Runtime) workerLoop(ctx context.Context, jobs <-chan source.Item, results chan<- Result) {
	for it := range jobs {
		cur := rt.inflight.Add(1)
		for {
			p := rt.peak.Load()
			if cur <= p || rt.peak.CompareAndSwap(p, cur) {
				break
			}
		}
		e, err := rt.exec(ctx, it)
		rt.inflight.Add(-1)
		if err != nil {
			rt.log.Debugf("abandoned: row=%d field=%s err=%v", it.Key.Row, it.Key.Field, err)
			continue
		}
		results <- Result{Item: it, Entry: e}
	}
}

// Peak reports the highest number of items observed executing at once.
func (rt *Runtime) Peak() int { return int(rt.peak.Load()) }

// InFlight reports the number of items currently executing.
func (rt *Runtime) InFlight() int { return int(rt.inflight.Load()) }

// CfgConcurrency exposes configured worker concurrency.
func (rt *Runtime) CfgConcurrency() int { return rt.cfg.Concurrency }
