package ledger

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/UniQw/bulkscan/internal/keys"
	mrd "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newMiniClient(t *testing.T) (*redis.Client, func()) {
	t.Helper()
	s := mrd.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: s.Addr()})
	cleanup := func() {
		_ = rdb.Close()
		s.Close()
	}
	return rdb, cleanup
}

func sampleSnapshot() Snapshot {
	return Snapshot{
		0: {"photo": {Value: "020112345", Status: StatusSuccess, Detail: "Barcode"}},
		7: {
			"photo":  {Status: StatusNoImage, Detail: "API 404"},
			"backup": {Status: StatusServiceError, Detail: "HTTP 503"},
		},
	}
}

func TestFileBackend_MissingFileIsEmpty(t *testing.T) {
	fb := NewFileBackend(filepath.Join(t.TempDir(), "progress.json"))
	s, err := fb.Load(context.Background())
	require.NoError(t, err)
	require.Zero(t, s.Len())
}

func TestFileBackend_SaveLoadRemove(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.json")
	fb := NewFileBackend(path)

	require.NoError(t, fb.Save(ctx, sampleSnapshot()))
	got, err := fb.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, sampleSnapshot(), got)

	// no temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	require.NoError(t, fb.Remove(ctx))
	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
	// removing twice is fine
	require.NoError(t, fb.Remove(ctx))
}

func TestFileBackend_RowKeysAreDecimalStrings(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, NewFileBackend(path).Save(ctx, sampleSnapshot()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(raw), `"7":{`)
	require.Contains(t, string(raw), `"status":"API Error"`)
}

func TestFileBackend_CorruptFileErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"0": {"photo": {"value": `), 0o644))

	_, err := NewFileBackend(path).Load(context.Background())
	require.Error(t, err)

	// and the ledger degrades instead of failing the run
	l := New(NewFileBackend(path))
	n, err := l.Load(context.Background())
	require.Error(t, err)
	require.Zero(t, n)
}

func TestFileBackend_NonNumericRowKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "progress.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"abc": {}}`), 0o644))
	_, err := NewFileBackend(path).Load(context.Background())
	require.Error(t, err)
}

func TestRedisBackend_SaveLoadRemove(t *testing.T) {
	rdb, done := newMiniClient(t)
	defer done()
	ctx := context.Background()
	rb := NewRedisBackend(rdb, "meters", "sess-1")

	empty, err := rb.Load(ctx)
	require.NoError(t, err)
	require.Zero(t, empty.Len())

	require.NoError(t, rb.Save(ctx, sampleSnapshot()))
	n, _ := rdb.HLen(ctx, keys.Progress("meters")).Result()
	require.Equal(t, int64(2), n)
	sess, _ := rdb.HGet(ctx, keys.Meta("meters"), "session").Result()
	require.Equal(t, "sess-1", sess)

	got, err := rb.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, sampleSnapshot(), got)

	// a smaller snapshot replaces the previous one
	require.NoError(t, rb.Save(ctx, Snapshot{1: {"a": {Status: StatusFailed}}}))
	got, err = rb.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())

	require.NoError(t, rb.Remove(ctx))
	ex, _ := rdb.Exists(ctx, keys.Progress("meters"), keys.Meta("meters")).Result()
	require.Zero(t, ex)
}

func TestRedisBackend_SkipsCorruptRows(t *testing.T) {
	rdb, done := newMiniClient(t)
	defer done()
	ctx := context.Background()
	k := keys.For("broken")
	require.NoError(t, rdb.HSet(ctx, k.Progress,
		"0", `{"a":{"value":"x","status":"Success","detail":"OCR"}}`,
		"1", `{not json`,
		"nope", `{"a":{}}`,
	).Err())

	s, err := NewRedisBackend(rdb, "broken", "s").Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, s.Len())
	e, ok := s.Get(Key{Row: 0, Field: "a"})
	require.True(t, ok)
	require.Equal(t, "x", e.Value)
}

func TestSavedRuns(t *testing.T) {
	rdb, done := newMiniClient(t)
	defer done()
	ctx := context.Background()

	runs, err := SavedRuns(ctx, rdb)
	require.NoError(t, err)
	require.Empty(t, runs)

	require.NoError(t, NewRedisBackend(rdb, "zeta", "s-z").Save(ctx, sampleSnapshot()))
	require.NoError(t, NewRedisBackend(rdb, "alpha", "s-a").Save(ctx, Snapshot{}))
	require.NoError(t, rdb.Set(ctx, "bulkscan:unrelated:meta", "x", 0).Err())

	runs, err = SavedRuns(ctx, rdb)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "alpha", runs[0].Run)
	require.Equal(t, "s-a", runs[0].Session)
	require.Zero(t, runs[0].Rows)
	require.Equal(t, "zeta", runs[1].Run)
	require.Equal(t, 2, runs[1].Rows)
	require.False(t, runs[1].SavedAt.IsZero())
}
