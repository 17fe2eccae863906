package ledger

import (
	"context"
	"encoding/json"
	"sort"
	"strconv"
	"time"

	"github.com/UniQw/bulkscan/internal/keys"
	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
)

// RedisBackend stores one hash field per row, holding the JSON of that row's
// field→entry map, plus a small metadata hash describing the last save.
type RedisBackend struct {
	rdb     redis.UniversalClient
	k       keys.Run
	session string
}

// NewRedisBackend returns a backend for the named run. session is recorded in
// the metadata hash on every save.
func NewRedisBackend(rdb redis.UniversalClient, run, session string) *RedisBackend {
	return &RedisBackend{rdb: rdb, k: keys.For(run), session: session}
}

// Load reads every row. Rows whose key or value cannot be decoded are skipped.
func (r *RedisBackend) Load(ctx context.Context) (Snapshot, error) {
	raw, err := r.rdb.HGetAll(ctx, r.k.Progress).Result()
	if err != nil && err != redis.Nil {
		return nil, err
	}
	s := make(Snapshot, len(raw))
	for k, v := range raw {
		row, err := strconv.Atoi(k)
		if err != nil || row < 0 {
			continue
		}
		var fields map[string]Entry
		if err := sonic.UnmarshalString(v, &fields); err != nil || len(fields) == 0 {
			continue
		}
		s[row] = fields
	}
	return s, nil
}

// Save replaces the progress hash atomically.
func (r *RedisBackend) Save(ctx context.Context, s Snapshot) error {
	vals := make([]any, 0, len(s)*2)
	for row, fields := range s {
		b, err := json.Marshal(fields)
		if err != nil {
			return err
		}
		vals = append(vals, strconv.Itoa(row), b)
	}
	_, err := r.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Del(ctx, r.k.Progress)
		if len(vals) > 0 {
			p.HSet(ctx, r.k.Progress, vals...)
		}
		p.HSet(ctx, r.k.Meta,
			"session", r.session,
			"saved_at", time.Now().UnixMilli(),
			"rows", len(s),
		)
		return nil
	})
	return err
}

// Remove deletes the progress and metadata hashes.
func (r *RedisBackend) Remove(ctx context.Context) error {
	return r.rdb.Del(ctx, r.k.Progress, r.k.Meta).Err()
}

// RunInfo describes a run whose progress is still held in Redis, i.e. one
// that was interrupted or whose final output write failed.
type RunInfo struct {
	Run     string
	Session string
	SavedAt time.Time
	Rows    int
}

// SavedRuns lists every run with a metadata hash, sorted by run name.
func SavedRuns(ctx context.Context, rdb redis.UniversalClient) ([]RunInfo, error) {
	var out []RunInfo
	iter := rdb.Scan(ctx, 0, "bulkscan:*:meta", 100).Iterator()
	for iter.Next(ctx) {
		run := keys.ExtractRun(iter.Val())
		if run == "" {
			continue
		}
		m, err := rdb.HGetAll(ctx, keys.Meta(run)).Result()
		if err != nil {
			return nil, err
		}
		info := RunInfo{Run: run, Session: m["session"]}
		if ms, err := strconv.ParseInt(m["saved_at"], 10, 64); err == nil {
			info.SavedAt = time.UnixMilli(ms)
		}
		info.Rows, _ = strconv.Atoi(m["rows"])
		out = append(out, info)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Run < out[j].Run })
	return out, nil
}
