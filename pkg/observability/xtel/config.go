package xtel

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strings"
	"time"

	"github.com/omeyang/xtel/pkg/config/xconf"
	"github.com/omeyang/xtel/pkg/observability/xlog"
)

// Config 遥测配置，字段标签对应 YAML/JSON 键。
type Config struct {
	Service         ServiceConfig  `koanf:"service"`
	Sampling        SamplingConfig `koanf:"sampling"`
	Traces          TracesConfig   `koanf:"traces"`
	Metrics         MetricsConfig  `koanf:"metrics"`
	Logs            LogsConfig     `koanf:"logs"`
	Batch           BatchConfig    `koanf:"batch"`
	ShutdownTimeout time.Duration  `koanf:"shutdown_timeout"`
}

// ServiceConfig 服务标识，写入资源属性与每条日志。
type ServiceConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"`
}

// SamplingConfig 根 span 的采样比例，子 span 跟随父节点。
type SamplingConfig struct {
	Ratio float64 `koanf:"ratio"`
}

// TracesConfig span 输出。
type TracesConfig struct {
	// Console 逐条输出 JSON 行到控制台。
	Console bool `koanf:"console"`
	// Endpoint OTLP/HTTP 地址，例如 http://collector:4318/v1/traces；为空则不导出。
	Endpoint string            `koanf:"endpoint"`
	Headers  map[string]string `koanf:"headers"`
}

// MetricsConfig 指标输出。
type MetricsConfig struct {
	// Endpoint OTLP/HTTP 地址，例如 http://collector:4318/v1/metrics。
	Endpoint string            `koanf:"endpoint"`
	Headers  map[string]string `koanf:"headers"`
	// Interval 周期导出间隔。
	Interval time.Duration `koanf:"interval"`
	// CardinalityLimit 单个指标的标签组合告警阈值，0 表示关闭。
	CardinalityLimit int `koanf:"cardinality_limit"`
}

// LogsConfig 日志输出。
type LogsConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// Console 输出到标准输出；File 非空时格式化日志写入轮转文件，
	// Console 为 true 则另把每条记录以 JSON 行回显到标准输出。
	Console bool   `koanf:"console"`
	File    string `koanf:"file"`
	// Endpoint 事件接入端点地址，例如 http://collector:8080/v1/events；为空则不导出。
	Endpoint string            `koanf:"endpoint"`
	Headers  map[string]string `koanf:"headers"`
}

// BatchConfig 批量导出参数，span 与日志管线共用。
type BatchConfig struct {
	ScheduledDelay     time.Duration `koanf:"scheduled_delay"`
	MaxExportBatchSize int           `koanf:"max_export_batch_size"`
	MaxQueueSize       int           `koanf:"max_queue_size"`
	ExportTimeout      time.Duration `koanf:"export_timeout"`
}

// Defaults 返回默认配置的扁平键值，可直接交给 xconf.WithDefaults。
func Defaults() map[string]any {
	return map[string]any{
		"service.name":                "unknown_service",
		"service.environment":         "development",
		"sampling.ratio":              1.0,
		"traces.console":              false,
		"metrics.interval":            "60s",
		"metrics.cardinality_limit":   1000,
		"logs.level":                  "info",
		"logs.format":                 "json",
		"logs.console":                true,
		"batch.scheduled_delay":       "5s",
		"batch.max_export_batch_size": 512,
		"batch.max_queue_size":        2048,
		"batch.export_timeout":        "30s",
		"shutdown_timeout":            "5s",
	}
}

// DefaultConfig 返回 Defaults 对应的 Config。
func DefaultConfig() Config {
	store, err := xconf.LoadBytes(nil, xconf.FormatYAML, xconf.WithDefaults(Defaults()))
	if err != nil {
		panic(fmt.Sprintf("xtel: default config: %v", err))
	}
	cfg, err := FromStore(store)
	if err != nil {
		panic(fmt.Sprintf("xtel: default config: %v", err))
	}
	return cfg
}

// LoadConfig 从文件加载配置（缺失的键使用 Defaults）并校验。
// 返回的 Store 可用于 Watch 热重载。
func LoadConfig(path string) (Config, *xconf.Store, error) {
	store, err := xconf.Load(path, xconf.WithDefaults(Defaults()))
	if err != nil {
		return Config{}, nil, err
	}
	cfg, err := FromStore(store)
	if err != nil {
		return Config{}, nil, err
	}
	return cfg, store, nil
}

// FromStore 从 Store 的当前快照解码并校验配置。
func FromStore(store *xconf.Store) (Config, error) {
	var cfg Config
	if err := store.Unmarshal("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate 检查所有字段，返回的错误包装 ErrInvalidConfig 并列出全部问题。
func (c Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if strings.TrimSpace(c.Service.Name) == "" {
		add("service.name is required")
	}
	if r := c.Sampling.Ratio; math.IsNaN(r) || r < 0 || r > 1 {
		add("sampling.ratio %v not in [0, 1]", r)
	}
	if _, err := xlog.ParseLevel(c.Logs.Level); err != nil {
		add("logs.level: %w", err)
	}
	switch strings.ToLower(c.Logs.Format) {
	case "text", "json":
	default:
		add("logs.format %q must be text or json", c.Logs.Format)
	}
	for key, endpoint := range map[string]string{
		"traces.endpoint":  c.Traces.Endpoint,
		"metrics.endpoint": c.Metrics.Endpoint,
		"logs.endpoint":    c.Logs.Endpoint,
	} {
		if err := checkEndpoint(endpoint); err != nil {
			add("%s: %w", key, err)
		}
	}
	if c.Metrics.Endpoint != "" && c.Metrics.Interval <= 0 {
		add("metrics.interval must be positive")
	}
	if c.Metrics.CardinalityLimit < 0 {
		add("metrics.cardinality_limit must not be negative")
	}
	if c.Batch.MaxExportBatchSize < 0 || c.Batch.MaxQueueSize < 0 {
		add("batch sizes must not be negative")
	}
	if c.Batch.MaxQueueSize > 0 && c.Batch.MaxExportBatchSize > c.Batch.MaxQueueSize {
		add("batch.max_export_batch_size %d exceeds batch.max_queue_size %d",
			c.Batch.MaxExportBatchSize, c.Batch.MaxQueueSize)
	}
	if c.ShutdownTimeout <= 0 {
		add("shutdown_timeout must be positive")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

func checkEndpoint(endpoint string) error {
	if endpoint == "" {
		return nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return errors.New("missing host")
	}
	return nil
}
