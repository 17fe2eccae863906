// Package checkpoint persists run progress at fixed intervals, regenerates the
// output artifact alongside it, and samples throughput for progress reports.
package checkpoint

import (
	"context"
	"fmt"
	"time"

	"github.com/UniQw/bulkscan/internal/ledger"
)

// minElapsed is the smallest elapsed time for which throughput is reported.
const minElapsed = time.Millisecond

// Logger mirrors the public logger interface.
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

// Materializer renders a snapshot into the output artifact.
type Materializer interface {
	Materialize(s ledger.Snapshot) error
}

// MaterializerFunc adapts a function to Materializer.
type MaterializerFunc func(s ledger.Snapshot) error

func (f MaterializerFunc) Materialize(s ledger.Snapshot) error { return f(s) }

// Sample is one progress report.
type Sample struct {
	Index   int
	Total   int
	Elapsed time.Duration
	// Throughput is completions per second; meaningful only when Known.
	Throughput float64
	ETA        time.Duration
	Known      bool
	Last       ledger.Status
}

// Speed formats the throughput, or "unknown" when it cannot be estimated.
func (s Sample) Speed() string {
	if !s.Known {
		return "unknown"
	}
	return fmt.Sprintf("%.1f", s.Throughput)
}

// Remaining formats the ETA as h:mm:ss, or "unknown".
func (s Sample) Remaining() string {
	if !s.Known {
		return "unknown"
	}
	return FormatDuration(s.ETA)
}

// FormatDuration renders d truncated to whole seconds as h:mm:ss.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	sec := int64(d / time.Second)
	return fmt.Sprintf("%d:%02d:%02d", sec/3600, (sec/60)%60, sec%60)
}

// Config controls checkpoint and report cadence.
type Config struct {
	// SaveInterval: every N-th completion flushes the ledger and materializes output.
	SaveInterval int
	// ReportInterval: every M-th completion (and the last one) emits a Sample.
	ReportInterval int
	// Total is the number of tasks pending at session start.
	Total    int
	Logger   Logger
	Reporter func(Sample)
	// Now defaults to time.Now. Tests override it.
	Now func() time.Time
}

// Loop tracks session counters. Observe, Checkpoint, Interrupt and Finish
// must be called from a single goroutine.
type Loop struct {
	cfg       Config
	ledger    *ledger.Ledger
	out       Materializer
	log       Logger
	start     time.Time
	completed int
	saves     int
}

// New starts the session clock.
func New(l *ledger.Ledger, out Materializer, cfg Config) *Loop {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	lg := cfg.Logger
	if lg == nil {
		lg = noopLogger{}
	}
	if cfg.Reporter == nil {
		cfg.Reporter = func(s Sample) {
			lg.Infof("[%d/%d] speed=%s img/s eta=%s last=%s", s.Index, s.Total, s.Speed(), s.Remaining(), s.Last)
		}
	}
	return &Loop{cfg: cfg, ledger: l, out: out, log: lg, start: cfg.Now()}
}

// Observe accounts for one delivered outcome and triggers a report and/or a
// checkpoint when an interval is reached.
func (lp *Loop) Observe(ctx context.Context, e ledger.Entry) {
	lp.completed++
	i := lp.completed
	if (lp.cfg.ReportInterval > 0 && i%lp.cfg.ReportInterval == 0) || i == lp.cfg.Total {
		lp.cfg.Reporter(lp.Sample(e.Status))
	}
	if lp.cfg.SaveInterval > 0 && i%lp.cfg.SaveInterval == 0 {
		if err := lp.Checkpoint(ctx); err == nil {
			lp.log.Infof("checkpoint saved: done=%d", lp.completed)
		}
	}
}

// Sample computes the current progress figures.
func (lp *Loop) Sample(last ledger.Status) Sample {
	elapsed := lp.cfg.Now().Sub(lp.start)
	s := Sample{Index: lp.completed, Total: lp.cfg.Total, Elapsed: elapsed, Last: last}
	if elapsed < minElapsed || lp.completed == 0 {
		return s
	}
	s.Known = true
	s.Throughput = float64(lp.completed) / elapsed.Seconds()
	remaining := lp.cfg.Total - lp.completed
	if remaining < 0 {
		remaining = 0
	}
	s.ETA = time.Duration(float64(remaining) / s.Throughput * float64(time.Second))
	return s
}

// Checkpoint flushes the ledger and regenerates the output. Failures are
// logged; the first one is returned.
func (lp *Loop) Checkpoint(ctx context.Context) error {
	lp.saves++
	var first error
	if err := lp.ledger.Flush(ctx); err != nil {
		lp.log.Errorf("checkpoint: progress flush failed: err=%v", err)
		first = err
	}
	if lp.out != nil {
		if err := lp.out.Materialize(lp.ledger.Snapshot()); err != nil {
			lp.log.Errorf("checkpoint: output write failed: err=%v", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// Interrupt saves progress and output but keeps the durable backing so the
// next run resumes.
func (lp *Loop) Interrupt(ctx context.Context) error {
	return lp.Checkpoint(ctx)
}

// Finish performs the final checkpoint and then removes the durable backing.
// If the output cannot be written the backing is kept and the error returned.
func (lp *Loop) Finish(ctx context.Context) error {
	lp.saves++
	if err := lp.ledger.Flush(ctx); err != nil {
		lp.log.Warnf("final progress flush failed: err=%v", err)
	}
	if lp.out != nil {
		if err := lp.out.Materialize(lp.ledger.Snapshot()); err != nil {
			lp.log.Errorf("final output write failed; progress kept for resume: err=%v", err)
			return fmt.Errorf("write output: %w", err)
		}
	}
	if err := lp.ledger.Remove(ctx); err != nil {
		lp.log.Warnf("remove progress backing failed: err=%v", err)
	}
	return nil
}

// Completed returns the number of outcomes observed in this session.
func (lp *Loop) Completed() int { return lp.completed }

// Remaining returns the number of session tasks not yet observed.
func (lp *Loop) Remaining() int {
	if r := lp.cfg.Total - lp.completed; r > 0 {
		return r
	}
	return 0
}

// Saves returns how many checkpoints (including the final one) were attempted.
func (lp *Loop) Saves() int { return lp.saves }

// Elapsed returns the time since the session started.
func (lp *Loop) Elapsed() time.Duration { return lp.cfg.Now().Sub(lp.start) }
