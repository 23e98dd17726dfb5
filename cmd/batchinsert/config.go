package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rushairer/batchinsert"
	"github.com/rushairer/batchinsert/resultlog"
)

// Config 命令行工具的顶层配置
type Config struct {
	Driver      string             `yaml:"driver"` // mysql | postgresql | sqlite | pgx | mock
	DSN         string             `yaml:"dsn"`
	Table       string             `yaml:"table"`
	CreateTable bool               `yaml:"create_table"`
	Rows        int                `yaml:"rows"`
	Insert      batchinsert.Config `yaml:"insert"`
	Metrics     MetricsConfig      `yaml:"metrics"`
	ResultLog   ResultLogConfig    `yaml:"result_log"`
}

// MetricsConfig Prometheus 端点
type MetricsConfig struct {
	Addr string        `yaml:"addr"` // 为空不启动
	Hold time.Duration `yaml:"hold"` // 执行完成后保持端点的时间，便于抓取
}

// ResultLogConfig Redis 执行日志；dev 模式下使用进程内 miniredis
type ResultLogConfig struct {
	Enabled          bool `yaml:"enabled"`
	resultlog.Config `yaml:",inline"`
}

var knownDrivers = map[string]bool{
	"mysql":      true,
	"postgresql": true,
	"sqlite":     true,
	"pgx":        true,
	"mock":       true,
}

func defaultConfig() *Config {
	cfg := &Config{
		Driver:      "sqlite",
		DSN:         "batchinsert.db",
		Table:       "batchinsert_events",
		CreateTable: true,
		Rows:        2500,
		Insert:      *batchinsert.DefaultConfig(),
	}
	cfg.ResultLog.Address = "localhost:6379"
	cfg.ResultLog.Name = "smoke"
	cfg.ResultLog.TTL = time.Hour
	return cfg
}

// LoadConfig 默认值 → YAML 文件（path 为空时跳过）→ 环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Driver = stringEnv("BATCHINSERT_DRIVER", cfg.Driver)
	cfg.DSN = stringEnv("BATCHINSERT_DSN", cfg.DSN)
	cfg.Table = stringEnv("BATCHINSERT_TABLE", cfg.Table)
	cfg.Rows = parseIntEnv("BATCHINSERT_ROWS", cfg.Rows)
	cfg.Insert.Strategy = stringEnv("BATCHINSERT_STRATEGY", cfg.Insert.Strategy)
	cfg.Insert.ChunkLimit = parseIntEnv("BATCHINSERT_CHUNK_LIMIT", cfg.Insert.ChunkLimit)
	cfg.Metrics.Addr = stringEnv("BATCHINSERT_METRICS_ADDR", cfg.Metrics.Addr)
	cfg.Metrics.Hold = parseDurationEnv("BATCHINSERT_METRICS_HOLD", cfg.Metrics.Hold)
	if addr := os.Getenv("BATCHINSERT_REDIS_ADDR"); addr != "" {
		cfg.ResultLog.Enabled = true
		cfg.ResultLog.Address = addr
	}
}

// Validate 校验配置
func (c *Config) Validate() error {
	if !knownDrivers[c.Driver] {
		return &batchinsert.ValidationError{Field: "driver", Message: "unknown driver: " + c.Driver, Value: c.Driver}
	}
	if c.DSN == "" && c.Driver != "mock" {
		return &batchinsert.ValidationError{Field: "dsn", Message: "dsn is required"}
	}
	if c.Table == "" {
		return &batchinsert.ValidationError{Field: "table", Message: "table is required"}
	}
	if c.Rows < 0 {
		return &batchinsert.ValidationError{Field: "rows", Message: "rows must not be negative", Value: c.Rows}
	}
	return c.Insert.Validate()
}

func stringEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func parseDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
