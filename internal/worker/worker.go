package worker

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/UniQw/bulkscan/internal/hctx"
	"github.com/UniQw/bulkscan/internal/ledger"
	"github.com/UniQw/bulkscan/internal/source"
)

// ErrTransient marks a failure worth retrying (connection refused, timeouts).
// Classifiers wrap it; the retry loop tests for it with errors.Is.
var ErrTransient = errors.New("transient failure")

// Call performs one classification attempt for a cleaned URL.
// A nil error means the returned entry is final.
type Call func(ctx context.Context, url string) (ledger.Entry, error)

// Policy configures the per-task retry loop.
type Policy struct {
	// Delay is the fixed pause between attempts after a transient failure.
	Delay time.Duration
	// Sleep waits for d or until ctx is done. Defaults to a timer-based sleep.
	Sleep func(ctx context.Context, d time.Duration) error
	// OnRetry is invoked before each retry sleep.
	OnRetry func(it source.Item, attempt int, err error)
}

// Malformed checks the raw URL before any network attempt. It returns the
// cleaned URL, or a terminal entry and false when the input cannot be sent.
func Malformed(raw string) (string, ledger.Entry, bool) {
	clean := strings.TrimSpace(raw)
	if clean == "" {
		return "", ledger.Entry{Status: ledger.StatusNoImage, Detail: "Empty URL"}, false
	}
	lower := strings.ToLower(clean)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return "", ledger.Entry{Status: ledger.StatusNoImage, Detail: "Invalid URL"}, false
	}
	return clean, ledger.Entry{}, true
}

// Resolve drives one task to a terminal entry. Transient failures are retried
// forever after p.Delay; any other error becomes StatusServiceError with the
// error text. The only error returned is the context's, in which case nothing
// should be recorded for the task.
func Resolve(ctx context.Context, it source.Item, call Call, p Policy) (ledger.Entry, error) {
	clean, e, ok := Malformed(it.URL)
	if !ok {
		return e, nil
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = Sleep
	}

	st := hctx.New(it.Key.Row, it.Key.Field)
	actx := hctx.WithState(ctx, st)
	for {
		if err := ctx.Err(); err != nil {
			return ledger.Entry{}, err
		}
		st.Attempt++
		e, err := call(actx, clean)
		if err == nil {
			return e, nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return ledger.Entry{}, cerr
		}
		if !errors.Is(err, ErrTransient) {
			return ledger.Entry{Status: ledger.StatusServiceError, Detail: err.Error()}, nil
		}
		if p.OnRetry != nil {
			p.OnRetry(it, st.Attempt, err)
		}
		if serr := sleep(ctx, p.Delay); serr != nil {
			return ledger.Entry{}, serr
		}
	}
}

// Sleep pauses for d, returning early with ctx.Err() if ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
