package config

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) TestContextHelpersAndKeyString() {
	ctx := context.Background()
	cfg := ConfigurationDefault{LogLevel: "debug"}

	s.Equal("sitecfg/config/configurationKey", ctxKeyConfiguration.String())

	ctx = ToContext(ctx, cfg)
	fromCtx := FromContext[ConfigurationDefault](ctx)
	s.Equal("debug", fromCtx.LogLevel)

	missing := FromContext[*ConfigurationDefault](context.Background())
	s.Nil(missing)
}

func (s *ConfigSuite) TestFromEnvAndFillEnv() {
	type envCfg struct {
		Value string `env:"SITECFG_TEST_VALUE"`
	}

	s.T().Setenv("SITECFG_TEST_VALUE", "abc")

	fromEnv, err := FromEnv[envCfg]()
	s.Require().NoError(err)
	s.Equal("abc", fromEnv.Value)

	var target envCfg
	s.Require().NoError(FillEnv(&target))
	s.Equal("abc", target.Value)
}

func (s *ConfigSuite) TestDefaultsFromEnv() {
	cfg, err := FromEnv[ConfigurationDefault]()
	s.Require().NoError(err)

	s.Equal("info", cfg.LoggingLevel())
	s.Equal(time.RFC3339, cfg.LoggingTimeFormat())
	s.True(cfg.LoggingColored())
	s.False(cfg.LoggingShowStackTrace())
	s.False(cfg.LoggingLevelIsDebug())
	s.Empty(cfg.DescriptorPath())
	s.Equal(DefaultOutputFormat, cfg.DefaultOutputFormat())
	s.Empty(cfg.Language())
	s.Equal(DefaultWatchDebounce, cfg.WatchDebounce())
	s.Empty(cfg.MetricsAddress())
}

func (s *ConfigSuite) TestOverridesFromEnv() {
	s.T().Setenv("LOG_LEVEL", "trace")
	s.T().Setenv("LOG_COLORED", "false")
	s.T().Setenv("SITECFG_FILE", " ./site.yaml ")
	s.T().Setenv("SITECFG_FORMAT", "toml")
	s.T().Setenv("SITECFG_LANG", "mn")
	s.T().Setenv("SITECFG_WATCH_DEBOUNCE", "2s")
	s.T().Setenv("SITECFG_METRICS_ADDR", " :9090")

	cfg, err := FromEnv[ConfigurationDefault]()
	s.Require().NoError(err)

	s.True(cfg.LoggingLevelIsDebug())
	s.False(cfg.LoggingColored())
	s.Equal("./site.yaml", cfg.DescriptorPath())
	s.Equal("toml", cfg.DefaultOutputFormat())
	s.Equal("mn", cfg.Language())
	s.Equal(2*time.Second, cfg.WatchDebounce())
	s.Equal(":9090", cfg.MetricsAddress())
}

func (s *ConfigSuite) TestFallbacksTable() {
	testCases := []struct {
		name         string
		cfg          ConfigurationDefault
		wantFormat   string
		wantDebounce time.Duration
	}{
		{
			name:         "explicit values",
			cfg:          ConfigurationDefault{OutputFormat: "yaml", WatchDebounceStr: "1500ms"},
			wantFormat:   "yaml",
			wantDebounce: 1500 * time.Millisecond,
		},
		{
			name:         "empty values",
			cfg:          ConfigurationDefault{},
			wantFormat:   DefaultOutputFormat,
			wantDebounce: DefaultWatchDebounce,
		},
		{
			name:         "invalid debounce",
			cfg:          ConfigurationDefault{OutputFormat: " ", WatchDebounceStr: "soon"},
			wantFormat:   DefaultOutputFormat,
			wantDebounce: DefaultWatchDebounce,
		},
		{
			name:         "negative debounce",
			cfg:          ConfigurationDefault{WatchDebounceStr: "-1s"},
			wantFormat:   DefaultOutputFormat,
			wantDebounce: DefaultWatchDebounce,
		},
	}

	for _, tc := range testCases {
		s.Run(tc.name, func() {
			s.Equal(tc.wantFormat, tc.cfg.DefaultOutputFormat())
			s.Equal(tc.wantDebounce, tc.cfg.WatchDebounce())
		})
	}
}
