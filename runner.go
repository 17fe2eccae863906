package bulkscan

import (
	"context"
	"errors"
	"time"

	"github.com/UniQw/bulkscan/internal/checkpoint"
	"github.com/UniQw/bulkscan/internal/ledger"
	"github.com/UniQw/bulkscan/internal/runtime"
	"github.com/UniQw/bulkscan/internal/source"
	"github.com/UniQw/bulkscan/internal/worker"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Store is the durable backing of the progress ledger.
type Store = ledger.Backend

// FileStore keeps progress in a JSON file at path.
func FileStore(path string) Store { return ledger.NewFileBackend(path) }

// RedisStore keeps progress in Redis hashes named after run. session is
// recorded with every save.
func RedisStore(rdb redis.UniversalClient, run, session string) Store {
	return ledger.NewRedisBackend(rdb, run, session)
}

// RunInfo describes a run whose progress is kept in Redis.
type RunInfo = ledger.RunInfo

// SavedRuns lists runs with progress kept in Redis, i.e. runs that can resume.
func SavedRuns(ctx context.Context, rdb redis.UniversalClient) ([]RunInfo, error) {
	return ledger.SavedRuns(ctx, rdb)
}

// Output regenerates the output artifact from a snapshot.
type Output = checkpoint.Materializer

// OutputFunc adapts a function to Output.
type OutputFunc = checkpoint.MaterializerFunc

// Sample is a progress report emitted while a run is executing.
type Sample = checkpoint.Sample

// RunnerConfig tunes a Runner. Zero values select the defaults.
type RunnerConfig struct {
	// Concurrency is the number of tasks attempted at once. Default 5.
	Concurrency int
	// SaveInterval is the number of completions between checkpoints. Default 100.
	SaveInterval int
	// ReportInterval is the number of completions between progress samples. Default 10.
	ReportInterval int
	// RetryDelay is the pause after a transient failure. Default 10s.
	RetryDelay time.Duration
	// Session identifies this run in logs and store metadata. Default: a random UUID.
	Session string
	Logger  Logger
	// Reporter receives progress samples. Default: an info log line.
	Reporter func(Sample)
	// Sleep overrides the retry pause. Tests use it to observe delays.
	Sleep func(ctx context.Context, d time.Duration) error
}

const (
	defaultConcurrency    = 5
	defaultSaveInterval   = 100
	defaultReportInterval = 10
	defaultRetryDelay     = 10 * time.Second
)

// Summary describes a finished or interrupted run.
type Summary struct {
	Session string
	// Total is the size of the universe; Pending what was left at start.
	Total   int
	Pending int
	// Completed counts outcomes recorded during this run.
	Completed   int
	Elapsed     time.Duration
	Counts      map[Status]int
	Peak        int
	Interrupted bool
}

// Runner resolves every pending task of a universe exactly once across
// restarts, recording outcomes in a Store and regenerating an Output.
type Runner struct {
	classify ClassifyFunc
	store    Store
	out      Output
	cfg      RunnerConfig
	log      Logger
}

// NewRunner builds a runner. store may be nil for an in-memory run; out may
// be nil when no artifact is needed.
func NewRunner(classify ClassifyFunc, store Store, out Output, cfg RunnerConfig) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.SaveInterval <= 0 {
		cfg.SaveInterval = defaultSaveInterval
	}
	if cfg.ReportInterval <= 0 {
		cfg.ReportInterval = defaultReportInterval
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	if cfg.Session == "" {
		cfg.Session = uuid.NewString()
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	return &Runner{classify: classify, store: store, out: out, cfg: cfg, log: lg}
}

// Run resumes the ledger from the store, resolves every pending task of u and
// performs the final teardown. If ctx is cancelled, dispatch stops, progress
// and output are saved, the store is kept for the next run and ctx.Err() is
// returned. A non-nil error is also returned when the final output cannot be
// written; the store is then kept as well.
func (r *Runner) Run(ctx context.Context, u Universe) (Summary, error) {
	if r.classify == nil {
		return Summary{}, ErrNilClassifier
	}
	if len(u.Fields) == 0 {
		return Summary{}, ErrNoURLFields
	}

	sum := Summary{Session: r.cfg.Session, Total: u.Size(), Counts: make(map[Status]int)}
	l := ledger.New(r.store)
	if n, err := l.Load(ctx); err != nil {
		r.log.Warnf("progress unreadable, starting fresh: session=%s err=%v", r.cfg.Session, err)
	} else if n > 0 {
		r.log.Infof("resuming: session=%s recorded=%d", r.cfg.Session, n)
	}

	pending := source.Pending(u, l.Done)
	sum.Pending = len(pending)
	r.log.Infof("run start: session=%s total=%d pending=%d workers=%d", r.cfg.Session, sum.Total, sum.Pending, r.cfg.Concurrency)

	loop := checkpoint.New(l, r.out, checkpoint.Config{
		SaveInterval:   r.cfg.SaveInterval,
		ReportInterval: r.cfg.ReportInterval,
		Total:          len(pending),
		Logger:         r.log,
		Reporter:       r.cfg.Reporter,
	})

	// teardown must run even when ctx is already cancelled
	tctx := context.WithoutCancel(ctx)

	if len(pending) == 0 {
		r.log.Infof("nothing pending: session=%s", r.cfg.Session)
		err := loop.Finish(tctx)
		sum.Elapsed = loop.Elapsed()
		return sum, err
	}

	policy := worker.Policy{
		Delay: r.cfg.RetryDelay,
		Sleep: r.cfg.Sleep,
		OnRetry: func(it source.Item, attempt int, err error) {
			r.log.Warnf("transient failure, retrying: row=%d field=%s attempt=%d delay=%s err=%v",
				it.Key.Row, it.Key.Field, attempt, r.cfg.RetryDelay, err)
		},
	}
	call := worker.Call(r.classify)
	rt := runtime.New(runtime.Config{Concurrency: r.cfg.Concurrency, Logger: r.log},
		func(ctx context.Context, it source.Item) (ledger.Entry, error) {
			return worker.Resolve(ctx, it, call, policy)
		})

	_, runErr := rt.Run(ctx, pending, l.Done, func(res runtime.Result) {
		if !l.Put(res.Item.Key, res.Entry) {
			return
		}
		sum.Counts[res.Entry.Status]++
		loop.Observe(ctx, res.Entry)
	})
	sum.Completed = loop.Completed()
	sum.Peak = rt.Peak()

	if runErr != nil {
		sum.Interrupted = true
		r.log.Warnf("run interrupted: session=%s completed=%d remaining=%d", r.cfg.Session, sum.Completed, loop.Remaining())
		if err := loop.Interrupt(tctx); err != nil {
			r.log.Errorf("interrupt checkpoint failed: err=%v", err)
		}
		sum.Elapsed = loop.Elapsed()
		return sum, runErr
	}

	err := loop.Finish(tctx)
	sum.Elapsed = loop.Elapsed()
	if err != nil {
		return sum, err
	}
	r.log.Infof("run complete: session=%s completed=%d elapsed=%s", r.cfg.Session, sum.Completed, sum.Elapsed)
	return sum, nil
}

// IsInterrupted reports whether err came from a cancelled run.
func IsInterrupted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
