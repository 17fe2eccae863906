package config

import "time"

// Config holds all settings for one run.
type Config struct {
	Endpoint       string        `mapstructure:"endpoint" validate:"required,url"`
	Input          string        `mapstructure:"input" validate:"required"`
	Output         string        `mapstructure:"output" validate:"required"`
	Workers        int           `mapstructure:"workers" validate:"gte=1,lte=256"`
	SaveInterval   int           `mapstructure:"save_interval" validate:"gte=1"`
	ReportInterval int           `mapstructure:"report_interval" validate:"gte=1"`
	RetryDelay     time.Duration `mapstructure:"retry_delay" validate:"gte=0"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" validate:"gt=0"`
	// RateLimit caps requests per second across all workers; 0 disables it.
	RateLimit float64     `mapstructure:"rate_limit" validate:"gte=0"`
	LogLevel  string      `mapstructure:"log_level" validate:"oneof=debug info warn error"`
	Store     StoreConfig `mapstructure:"store"`
	// ListRuns prints runs with saved Redis progress instead of processing input.
	ListRuns bool `mapstructure:"list_runs"`
}

// StoreConfig selects where progress is kept between runs.
type StoreConfig struct {
	Backend string `mapstructure:"backend" validate:"oneof=file redis"`
	// Path is the progress file for the file backend.
	Path          string `mapstructure:"path" validate:"required_if=Backend file"`
	RedisAddr     string `mapstructure:"redis_addr" validate:"required_if=Backend redis"`
	RedisPassword string `mapstructure:"redis_password"`
	RedisDB       int    `mapstructure:"redis_db" validate:"gte=0"`
	// Run names the progress keys in Redis; defaults to the input file's base name.
	Run string `mapstructure:"run"`
}
