package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
	dir string
}

func (s *ConfigTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
	s.T().Setenv("PORT", "4003")
	s.T().Setenv("STUDENT_SERVICE_URL", "http://student-service:4001/")
	s.T().Setenv("DRIVE_SERVICE_URL", "http://drive-service:4002")
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) TestLoad_Defaults() {
	cfg, err := Load(s.dir)
	s.Require().NoError(err)

	s.Equal(4003, cfg.App.Port)
	s.Equal("dashboard-service", cfg.App.Name)
	s.Equal("http://student-service:4001", cfg.Services.StudentServiceURL)
	s.Equal("http://drive-service:4002", cfg.Services.DriveServiceURL)
	s.Equal(5*time.Second, cfg.Upstream.Timeout)
	s.Equal(StrategySequential, cfg.Dashboard.OverviewStrategy)
	s.Equal(StrategyParallel, cfg.Dashboard.StatsStrategy)
	s.False(cfg.RateLimit.Enabled)
	s.Equal(RateLimitBackendMemory, cfg.RateLimit.Backend)
}

func (s *ConfigTestSuite) TestLoad_EnvOverrides() {
	s.T().Setenv("UPSTREAM_TIMEOUT", "2s")
	s.T().Setenv("DASHBOARD_OVERVIEW_STRATEGY", "parallel")
	s.T().Setenv("JWT_SECRET", "secret")
	s.T().Setenv("RATE_LIMIT_ENABLED", "true")
	s.T().Setenv("RATE_LIMIT_REQUESTS", "10")

	cfg, err := Load(s.dir)
	s.Require().NoError(err)

	s.Equal(2*time.Second, cfg.Upstream.Timeout)
	s.Equal(StrategyParallel, cfg.Dashboard.OverviewStrategy)
	s.Equal("secret", cfg.JWT.Secret)
	s.True(cfg.RateLimit.Enabled)
	s.Equal(10, cfg.RateLimit.Requests)
}

func (s *ConfigTestSuite) TestLoad_YAMLFile() {
	yaml := []byte("app:\n  loglevel: debug\nratelimit:\n  window: 30s\n")
	s.Require().NoError(os.WriteFile(filepath.Join(s.dir, "config.yaml"), yaml, 0o600))

	cfg, err := Load(s.dir)
	s.Require().NoError(err)

	s.Equal("debug", cfg.App.LogLevel)
	s.Equal(30*time.Second, cfg.RateLimit.Window)
}

func (s *ConfigTestSuite) TestLoad_MissingRequiredEnv() {
	s.T().Setenv("PORT", "")
	s.T().Setenv("DRIVE_SERVICE_URL", "")

	cfg, err := Load(s.dir)
	s.Nil(cfg)

	var missing *MissingEnvError
	s.Require().True(errors.As(err, &missing))
	s.Equal([]string{"PORT", "DRIVE_SERVICE_URL"}, missing.Vars)
}

func (s *ConfigTestSuite) TestLoad_NonNumericPort() {
	s.T().Setenv("PORT", "http")

	_, err := Load(s.dir)
	s.Error(err)
}

func (s *ConfigTestSuite) TestLoad_InvalidStrategy() {
	s.T().Setenv("DASHBOARD_STATS_STRATEGY", "eventually")

	_, err := Load(s.dir)
	s.ErrorIs(err, ErrInvalidConfig)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			App:       AppConfig{Port: 4003},
			Services:  ServicesConfig{StudentServiceURL: "http://students", DriveServiceURL: "http://drives"},
			Upstream:  UpstreamConfig{Timeout: 5 * time.Second},
			Dashboard: DashboardConfig{OverviewStrategy: StrategySequential, StatsStrategy: StrategyParallel},
		}
	}

	cfg := valid()
	require.NoError(t, cfg.Validate())

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"relative student url", func(c *Config) { c.Services.StudentServiceURL = "students" }},
		{"empty drive url", func(c *Config) { c.Services.DriveServiceURL = "" }},
		{"zero timeout", func(c *Config) { c.Upstream.Timeout = 0 }},
		{"port out of range", func(c *Config) { c.App.Port = 70000 }},
		{"rate limit without window", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Requests: 1, Backend: RateLimitBackendMemory}
		}},
		{"unknown rate limit backend", func(c *Config) {
			c.RateLimit = RateLimitConfig{Enabled: true, Requests: 1, Window: time.Second, Backend: "memcached"}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
