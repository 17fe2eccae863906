package bulkscan

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServiceClient(t *testing.T, h http.HandlerFunc, opts ...ClientOption) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL+"/predict", opts...)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func reply(code int, body string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.Copy(io.Discard, r.Body)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_, _ = io.WriteString(w, body)
	}
}

func TestNewClient_EmptyEndpoint(t *testing.T) {
	_, err := NewClient("  ")
	require.ErrorIs(t, err, ErrEmptyEndpoint)
}

func TestClient_PostsURL(t *testing.T) {
	var got request
	c := newServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		b, _ := io.ReadAll(r.Body)
		assert.NoError(t, (&JSONEncoder{}).Decode(b, &got))
		_, _ = io.WriteString(w, `{"status":"success","data":{"serial_number":"S1","method":"ocr"}}`)
	})

	out, err := c.Classify(context.Background(), "https://img/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "https://img/a.jpg", got.URL)
	require.Equal(t, Outcome{Value: "S1", Status: StatusSuccess, Detail: "OCR"}, out)
}

func TestClient_Outcomes(t *testing.T) {
	cases := []struct {
		name string
		code int
		body string
		want Outcome
	}{
		{"success barcode", 200, `{"status":"success","data":{"serial_number":"020112345","method":"barcode"}}`,
			Outcome{Value: "020112345", Status: StatusSuccess, Detail: "Barcode"}},
		{"success other method", 200, `{"status":"success","data":{"serial_number":"X","method":"qr"}}`,
			Outcome{Value: "X", Status: StatusSuccess, Detail: "qr"}},
		{"download failure", 200, `{"status":"error","message":"Failed to download"}`,
			Outcome{Status: StatusNoImage, Detail: "Failed to download"}},
		{"image failure", 200, `{"status":"error","message":"Invalid IMAGE data"}`,
			Outcome{Status: StatusNoImage, Detail: "Invalid IMAGE data"}},
		{"no match", 200, `{"status":"error","message":"No serial found"}`,
			Outcome{Status: StatusFailed, Detail: "No serial found"}},
		{"missing message", 200, `{"status":"error"}`,
			Outcome{Status: StatusFailed, Detail: "Unknown"}},
		{"bad request", 400, `{}`, Outcome{Status: StatusNoImage, Detail: "API 400"}},
		{"not found", 404, ``, Outcome{Status: StatusNoImage, Detail: "API 404"}},
		{"unprocessable", 422, `{}`, Outcome{Status: StatusNoImage, Detail: "API 422"}},
		{"server error", 500, `oops`, Outcome{Status: StatusServiceError, Detail: "HTTP 500"}},
		{"unavailable", 503, ``, Outcome{Status: StatusServiceError, Detail: "HTTP 503"}},
		{"forbidden", 403, ``, Outcome{Status: StatusServiceError, Detail: "HTTP 403"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newServiceClient(t, reply(tc.code, tc.body))
			out, err := c.Classify(context.Background(), "https://img/1.jpg")
			require.NoError(t, err)
			require.Equal(t, tc.want, out)
		})
	}
}

func TestClient_UndecodableBody_NotTransient(t *testing.T) {
	c := newServiceClient(t, reply(200, `<html>`))
	_, err := c.Classify(context.Background(), "https://img/1.jpg")
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrTransient))
}

func TestClient_ConnectionRefused_Transient(t *testing.T) {
	srv := httptest.NewServer(reply(200, `{}`))
	endpoint := srv.URL
	srv.Close()

	c, err := NewClient(endpoint)
	require.NoError(t, err)
	_, err = c.Classify(context.Background(), "https://img/1.jpg")
	require.ErrorIs(t, err, ErrTransient)
}

func TestClient_Timeout_Transient(t *testing.T) {
	c := newServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}, Timeout(50*time.Millisecond))

	_, err := c.Classify(context.Background(), "https://img/1.jpg")
	require.ErrorIs(t, err, ErrTransient)
}

func TestClient_ParentCancel_ReturnsContextError(t *testing.T) {
	c := newServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(30 * time.Millisecond)
		cancel()
	}()
	_, err := c.Classify(ctx, "https://img/1.jpg")
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, errors.Is(err, ErrTransient))
}

func TestClient_Middleware(t *testing.T) {
	var hits atomic.Int32
	c := newServiceClient(t, reply(200, `{"status":"success","data":{"serial_number":"S","method":"ocr"}}`))
	c.Use(func(next ClassifyFunc) ClassifyFunc {
		return func(ctx context.Context, url string) (Outcome, error) {
			hits.Add(1)
			return next(ctx, url)
		}
	})
	_, err := c.Classify(context.Background(), "https://img/1.jpg")
	require.NoError(t, err)
	require.Equal(t, int32(1), hits.Load())
}

func TestClient_RateLimit(t *testing.T) {
	var hits atomic.Int32
	c := newServiceClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = io.WriteString(w, `{"status":"error","message":"x"}`)
	}, RateLimit(1000), PoolSize(2))

	for i := 0; i < 5; i++ {
		_, err := c.Classify(context.Background(), "https://img/1.jpg")
		require.NoError(t, err)
	}
	require.Equal(t, int32(5), hits.Load())
}

func TestIsTransient(t *testing.T) {
	require.True(t, isTransient(io.ErrUnexpectedEOF))
	require.True(t, isTransient(context.DeadlineExceeded))
	require.False(t, isTransient(errors.New("boom")))
}
