package config

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable, e.g. BULKSCAN_WORKERS
// or BULKSCAN_STORE_BACKEND.
const EnvPrefix = "BULKSCAN"

// defaults mirror the values the tool has always shipped with.
var defaults = map[string]any{
	"endpoint":             "http://127.0.0.1:6000/predict",
	"input":                "input.csv",
	"output":               "output.csv",
	"workers":              5,
	"save_interval":        100,
	"report_interval":      10,
	"retry_delay":          10 * time.Second,
	"request_timeout":      100 * time.Second,
	"rate_limit":           0.0,
	"log_level":            "info",
	"store.backend":        "file",
	"store.path":           "progress.json",
	"store.redis_addr":     "",
	"store.redis_password": "",
	"store.redis_db":       0,
	"store.run":            "",
	"list_runs":            false,
}

// flagKeys maps command-line flag names to configuration keys.
var flagKeys = map[string]string{
	"endpoint":        "endpoint",
	"input":           "input",
	"output":          "output",
	"workers":         "workers",
	"save-interval":   "save_interval",
	"report-interval": "report_interval",
	"retry-delay":     "retry_delay",
	"request-timeout": "request_timeout",
	"rate-limit":      "rate_limit",
	"log-level":       "log_level",
	"store":           "store.backend",
	"store-path":      "store.path",
	"redis-addr":      "store.redis_addr",
	"redis-db":        "store.redis_db",
	"run":             "store.run",
	"list-runs":       "list_runs",
}

// NewFlagSet declares the command-line flags understood by Load.
func NewFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.String("config", "", "optional config file (yaml, json, toml)")
	fs.StringP("endpoint", "e", "", "classification endpoint URL")
	fs.StringP("input", "i", "", "input CSV file")
	fs.StringP("output", "o", "", "output CSV file")
	fs.IntP("workers", "w", 0, "concurrent requests")
	fs.Int("save-interval", 0, "checkpoint every N completed tasks")
	fs.Int("report-interval", 0, "report progress every N completed tasks")
	fs.Duration("retry-delay", 0, "pause between retries after a network failure")
	fs.Duration("request-timeout", 0, "per-request timeout")
	fs.Float64("rate-limit", 0, "max requests per second (0 = unlimited)")
	fs.String("log-level", "", "debug, info, warn or error")
	fs.String("store", "", "progress backend: file or redis")
	fs.String("store-path", "", "progress file for the file backend")
	fs.String("redis-addr", "", "redis address for the redis backend")
	fs.Int("redis-db", 0, "redis database number")
	fs.String("run", "", "run name for redis keys (defaults to the input file name)")
	fs.Bool("list-runs", false, "list runs with saved redis progress and exit")
	return fs
}

// Load resolves configuration from, in increasing precedence: defaults, an
// optional config file, BULKSCAN_* environment variables, and flags that were
// explicitly set on the command line. The result is validated.
func Load(args []string) (*Config, error) {
	fs := NewFlagSet("bulkscan")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path, _ := fs.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var bindErr error
	fs.Visit(func(f *pflag.Flag) {
		if key, ok := flagKeys[f.Name]; ok && bindErr == nil {
			bindErr = v.BindPFlag(key, f)
		}
	})
	if bindErr != nil {
		return nil, bindErr
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.Store.Run == "" {
		cfg.Store.Run = RunName(cfg.Input)
	}
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints.
func Validate(cfg *Config) error {
	if err := validator.New(validator.WithRequiredStructEnabled()).Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// RunName derives a run name from an input path: its base name without extension.
func RunName(input string) string {
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
