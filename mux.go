package bulkscan

import "context"

// ClassifyFunc performs one classification attempt for a URL. Returning an
// error that wraps ErrTransient asks the runner to retry after its delay; any
// other error is recorded as StatusServiceError.
type ClassifyFunc func(ctx context.Context, url string) (Outcome, error)

// Middleware wraps a ClassifyFunc to provide cross-cutting concerns.
type Middleware func(ClassifyFunc) ClassifyFunc

// Chain holds middleware applied around a ClassifyFunc.
type Chain struct {
	middlewares []Middleware
}

// Use adds middleware to the chain. Middlewares run in the order they are added.
func (c *Chain) Use(mw Middleware) {
	if mw != nil {
		c.middlewares = append(c.middlewares, mw)
	}
}

// Len reports how many middlewares are registered.
func (c *Chain) Len() int { return len(c.middlewares) }

// Then wraps fn so that the first registered middleware is outermost.
func (c *Chain) Then(fn ClassifyFunc) ClassifyFunc {
	for i := len(c.middlewares) - 1; i >= 0; i-- {
		fn = c.middlewares[i](fn)
	}
	return fn
}

// LoggingMiddleware logs every attempt at debug level and every error at warn.
func LoggingMiddleware(l Logger) Middleware {
	if l == nil {
		l = noopLogger{}
	}
	return func(next ClassifyFunc) ClassifyFunc {
		return func(ctx context.Context, url string) (Outcome, error) {
			a, _ := AttemptFrom(ctx)
			out, err := next(ctx, url)
			if err != nil {
				l.Warnf("classify failed row=%d field=%s attempt=%d err=%v", a.Key.Row, a.Key.Field, a.Number, err)
				return out, err
			}
			l.Debugf("classified row=%d field=%s attempt=%d status=%s", a.Key.Row, a.Key.Field, a.Number, out.Status)
			return out, nil
		}
	}
}
