package bulkscan

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/UniQw/bulkscan/internal/hctx"
	"github.com/stretchr/testify/require"
)

func TestChain_MiddlewareOrder(t *testing.T) {
	var c Chain

	order := []int{}
	mw1 := func(next ClassifyFunc) ClassifyFunc {
		return func(ctx context.Context, url string) (Outcome, error) {
			order = append(order, 1)
			return next(ctx, url)
		}
	}
	mw2 := func(next ClassifyFunc) ClassifyFunc {
		return func(ctx context.Context, url string) (Outcome, error) {
			order = append(order, 2)
			return next(ctx, url)
		}
	}
	c.Use(mw1)
	c.Use(mw2)
	c.Use(nil)
	require.Equal(t, 2, c.Len())

	called := 0
	fn := c.Then(func(ctx context.Context, url string) (Outcome, error) {
		called++
		order = append(order, 3)
		return Outcome{Status: StatusSuccess, Value: url}, nil
	})
	out, err := fn(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, "u", out.Value)
	require.Equal(t, 1, called)
	// registration order: mw1 outer, then mw2, then the classifier
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestChain_Empty(t *testing.T) {
	var c Chain
	fn := c.Then(func(ctx context.Context, url string) (Outcome, error) {
		return Outcome{Status: StatusFailed}, nil
	})
	out, err := fn(context.Background(), "u")
	require.NoError(t, err)
	require.Equal(t, StatusFailed, out.Status)
}

type recordLogger struct {
	debug, warn []string
}

func (r *recordLogger) Debugf(f string, a ...any) { r.debug = append(r.debug, fmt.Sprintf(f, a...)) }
func (r *recordLogger) Infof(string, ...any)      {}
func (r *recordLogger) Warnf(f string, a ...any)  { r.warn = append(r.warn, fmt.Sprintf(f, a...)) }
func (r *recordLogger) Errorf(string, ...any)     {}

func TestLoggingMiddleware(t *testing.T) {
	rl := &recordLogger{}
	st := hctx.New(2, "img")
	st.Attempt = 1
	ctx := hctx.WithState(context.Background(), st)

	ok := LoggingMiddleware(rl)(func(context.Context, string) (Outcome, error) {
		return Outcome{Status: StatusSuccess}, nil
	})
	_, err := ok(ctx, "u")
	require.NoError(t, err)
	require.Equal(t, []string{"classified row=2 field=img attempt=1 status=Success"}, rl.debug)

	boom := errors.New("boom")
	bad := LoggingMiddleware(rl)(func(context.Context, string) (Outcome, error) {
		return Outcome{}, boom
	})
	_, err = bad(ctx, "u")
	require.ErrorIs(t, err, boom)
	require.Len(t, rl.warn, 1)
	require.Contains(t, rl.warn[0], "err=boom")
}
