package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/UniQw/bulkscan"
	"github.com/UniQw/bulkscan/internal/config"
	"github.com/UniQw/bulkscan/internal/tabular"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/pflag"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "bulkscan: %v\n", err)
		return 2
	}
	log := bulkscan.NewLevelLogger(bulkscan.NewFmtLogger(), bulkscan.ParseLevel(cfg.LogLevel))

	// Wait for SIGINT/SIGTERM and stop gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.ListRuns {
		return listRuns(ctx, log, cfg)
	}

	table, err := tabular.ReadFile(cfg.Input)
	if err != nil {
		log.Errorf("read input failed: path=%s err=%v", cfg.Input, err)
		return 1
	}
	fields := tabular.DetectURLFields(table)
	if len(fields) == 0 {
		log.Errorf("no URL columns found: path=%s", cfg.Input)
		return 1
	}
	log.Infof("input loaded: path=%s rows=%d url_fields=%v", cfg.Input, len(table.Rows), fields)

	session := uuid.NewString()
	store, closeStore, err := openStore(cfg, session)
	if err != nil {
		log.Errorf("open progress store failed: backend=%s err=%v", cfg.Store.Backend, err)
		return 1
	}
	defer closeStore()

	cli, err := bulkscan.NewClient(cfg.Endpoint,
		bulkscan.Timeout(cfg.RequestTimeout),
		bulkscan.PoolSize(cfg.Workers),
		bulkscan.RateLimit(cfg.RateLimit),
		bulkscan.WithClientLogger(log),
	)
	if err != nil {
		log.Errorf("client: %v", err)
		return 1
	}
	defer cli.Close()
	cli.Use(bulkscan.LoggingMiddleware(log))

	u := bulkscan.Universe{
		Rows:   len(table.Rows),
		Fields: fields,
		URL:    table.Cell,
	}
	runner := bulkscan.NewRunner(cli.Classify, store, tabular.NewWriter(cfg.Output, table, fields), bulkscan.RunnerConfig{
		Concurrency:    cfg.Workers,
		SaveInterval:   cfg.SaveInterval,
		ReportInterval: cfg.ReportInterval,
		RetryDelay:     cfg.RetryDelay,
		Session:        session,
		Logger:         log,
	})

	sum, err := runner.Run(ctx, u)
	report(log, sum)
	switch {
	case err == nil:
		log.Infof("output written: path=%s", cfg.Output)
		return 0
	case bulkscan.IsInterrupted(err):
		log.Warnf("interrupted; progress kept, rerun to resume: output=%s", cfg.Output)
		return 130
	default:
		log.Errorf("run failed: err=%v", err)
		return 1
	}
}

func dialRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Store.RedisAddr,
		Password: cfg.Store.RedisPassword,
		DB:       cfg.Store.RedisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Store.RedisAddr, err)
	}
	return rdb, nil
}

func openStore(cfg *config.Config, session string) (bulkscan.Store, func(), error) {
	switch cfg.Store.Backend {
	case "redis":
		rdb, err := dialRedis(context.Background(), cfg)
		if err != nil {
			return nil, nil, err
		}
		return bulkscan.RedisStore(rdb, cfg.Store.Run, session), func() { _ = rdb.Close() }, nil
	default:
		return bulkscan.FileStore(cfg.Store.Path), func() {}, nil
	}
}

func listRuns(ctx context.Context, log bulkscan.Logger, cfg *config.Config) int {
	if cfg.Store.Backend != "redis" {
		log.Errorf("--list-runs needs the redis store: backend=%s", cfg.Store.Backend)
		return 2
	}
	rdb, err := dialRedis(ctx, cfg)
	if err != nil {
		log.Errorf("open progress store failed: err=%v", err)
		return 1
	}
	defer rdb.Close()

	runs, err := bulkscan.SavedRuns(ctx, rdb)
	if err != nil {
		log.Errorf("list runs failed: err=%v", err)
		return 1
	}
	if len(runs) == 0 {
		log.Infof("no saved runs")
		return 0
	}
	for _, r := range runs {
		fmt.Printf("%-24s rows=%-6d session=%s saved_at=%s\n", r.Run, r.Rows, r.Session, r.SavedAt.Format(time.RFC3339))
	}
	return 0
}

func report(log bulkscan.Logger, sum bulkscan.Summary) {
	log.Infof("summary: session=%s total=%d pending=%d completed=%d peak=%d elapsed=%s",
		sum.Session, sum.Total, sum.Pending, sum.Completed, sum.Peak, sum.Elapsed)
	for _, st := range bulkscan.AllStatuses {
		if n := sum.Counts[st]; n > 0 {
			log.Infof("  %-10s %d", st, n)
		}
	}
}
