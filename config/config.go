package config

import (
	"context"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

type contextKey string

func (c contextKey) String() string {
	return "sitecfg/config/" + string(c)
}

const (
	ctxKeyConfiguration = contextKey("configurationKey")

	DefaultWatchDebounce = 500 * time.Millisecond
	DefaultOutputFormat  = "json"
)

// ToContext adds tool configuration to the current supplied context.
func ToContext(ctx context.Context, config any) context.Context {
	return context.WithValue(ctx, ctxKeyConfiguration, config)
}

// FromContext extracts tool configuration from the supplied context if any exist.
func FromContext[T any](ctx context.Context) T {
	if cfg, ok := ctx.Value(ctxKeyConfiguration).(T); ok {
		return cfg
	}
	var zero T
	return zero
}

// FromEnv convenience method to process configs.
func FromEnv[T any]() (T, error) {
	return env.ParseAs[T]()
}

// FillEnv convenience method to fill a config object with environment data.
func FillEnv(v any) error {
	return env.Parse(v)
}

type ConfigurationDefault struct {
	LogLevel      string `envDefault:"info"                      env:"LOG_LEVEL"       yaml:"log_level"`
	LogTimeFormat string `envDefault:"2006-01-02T15:04:05Z07:00" env:"LOG_TIME_FORMAT" yaml:"log_time_format"`
	LogColored    bool   `envDefault:"true"                      env:"LOG_COLORED"     yaml:"log_colored"`

	LogShowStackTrace bool `envDefault:"false" env:"LOG_SHOW_STACK_TRACE" yaml:"log_show_stack_trace"`

	DescriptorFile   string `envDefault:""      env:"SITECFG_FILE"           yaml:"descriptor_file"`
	OutputFormat     string `envDefault:"json"  env:"SITECFG_FORMAT"         yaml:"output_format"`
	ReportLanguage   string `envDefault:""      env:"SITECFG_LANG"           yaml:"report_language"`
	WatchDebounceStr string `envDefault:"500ms" env:"SITECFG_WATCH_DEBOUNCE" yaml:"watch_debounce"`
	MetricsAddr      string `envDefault:""      env:"SITECFG_METRICS_ADDR"   yaml:"metrics_addr"`
}

type ConfigurationLogLevel interface {
	LoggingLevel() string
	LoggingTimeFormat() string
	LoggingShowStackTrace() bool
	LoggingColored() bool
	LoggingLevelIsDebug() bool
}

var _ ConfigurationLogLevel = new(ConfigurationDefault)

func (c *ConfigurationDefault) LoggingLevel() string {
	return c.LogLevel
}

func (c *ConfigurationDefault) LoggingTimeFormat() string {
	return c.LogTimeFormat
}

func (c *ConfigurationDefault) LoggingColored() bool {
	return c.LogColored
}

func (c *ConfigurationDefault) LoggingShowStackTrace() bool {
	return c.LogShowStackTrace
}

func (c *ConfigurationDefault) LoggingLevelIsDebug() bool {
	return c.LoggingLevel() == "debug" || c.LoggingLevel() == "trace"
}

type ConfigurationDescriptor interface {
	DescriptorPath() string
	DefaultOutputFormat() string
	Language() string
	WatchDebounce() time.Duration
	MetricsAddress() string
}

var _ ConfigurationDescriptor = new(ConfigurationDefault)

// DescriptorPath is the authored descriptor file to use instead of the built-in literal, if any.
func (c *ConfigurationDefault) DescriptorPath() string {
	return strings.TrimSpace(c.DescriptorFile)
}

func (c *ConfigurationDefault) DefaultOutputFormat() string {
	if strings.TrimSpace(c.OutputFormat) == "" {
		return DefaultOutputFormat
	}
	return c.OutputFormat
}

func (c *ConfigurationDefault) Language() string {
	return strings.TrimSpace(c.ReportLanguage)
}

func (c *ConfigurationDefault) WatchDebounce() time.Duration {
	if c.WatchDebounceStr != "" {
		duration, err := time.ParseDuration(c.WatchDebounceStr)
		if err == nil && duration > 0 {
			return duration
		}
	}

	return DefaultWatchDebounce
}

// MetricsAddress is where the watcher serves Prometheus metrics; empty disables it.
func (c *ConfigurationDefault) MetricsAddress() string {
	return strings.TrimSpace(c.MetricsAddr)
}
