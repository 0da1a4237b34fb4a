package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

const (
	StrategySequential = "sequential"
	StrategyParallel   = "parallel"

	RateLimitBackendMemory = "memory"
	RateLimitBackendRedis  = "redis"
)

type Config struct {
	App       AppConfig
	Services  ServicesConfig
	Upstream  UpstreamConfig
	Dashboard DashboardConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Name      string
	Env       string
	Port      int
	LogLevel  string
	LogFormat string
}

// ServicesConfig holds the upstream base URLs. Both are mandatory.
type ServicesConfig struct {
	StudentServiceURL string
	DriveServiceURL   string
}

type UpstreamConfig struct {
	Timeout time.Duration
}

type DashboardConfig struct {
	OverviewStrategy string
	StatsStrategy    string
}

type JWTConfig struct {
	Secret string
}

type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
	Backend  string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type TracingConfig struct {
	Enabled     bool
	Exporter    string
	Endpoint    string
	SampleRatio float64
}

// requiredEnv are the process variables without which the service must not start.
type requiredEnv struct {
	Port              int    `envconfig:"PORT" required:"true"`
	StudentServiceURL string `envconfig:"STUDENT_SERVICE_URL" required:"true"`
	DriveServiceURL   string `envconfig:"DRIVE_SERVICE_URL" required:"true"`
}

var requiredEnvNames = []string{"PORT", "STUDENT_SERVICE_URL", "DRIVE_SERVICE_URL"}

// MissingEnvError lists every required environment variable that is unset.
type MissingEnvError struct {
	Vars []string
}

func (e *MissingEnvError) Error() string {
	return fmt.Sprintf("missing required environment variables: %s", strings.Join(e.Vars, ", "))
}

var ErrInvalidConfig = errors.New("invalid config")

// Load reads config.yaml (optional) and the environment. The returned config is
// already validated.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	setDefaults(v)
	if err := bindEnvVariables(v); err != nil {
		return nil, fmt.Errorf("failed to bind env variables: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if missing := missingEnv(); len(missing) > 0 {
		return nil, &MissingEnvError{Vars: missing}
	}

	var env requiredEnv
	if err := envconfig.Process("", &env); err != nil {
		return nil, fmt.Errorf("failed to process env config: %w", err)
	}
	cfg.App.Port = env.Port
	cfg.Services.StudentServiceURL = strings.TrimRight(env.StudentServiceURL, "/")
	cfg.Services.DriveServiceURL = strings.TrimRight(env.DriveServiceURL, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func missingEnv() []string {
	var missing []string
	for _, name := range requiredEnvNames {
		if strings.TrimSpace(os.Getenv(name)) == "" {
			missing = append(missing, name)
		}
	}
	return missing
}

func (c *Config) Validate() error {
	var errs []error

	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.App.Port))
	}
	for name, raw := range map[string]string{
		"STUDENT_SERVICE_URL": c.Services.StudentServiceURL,
		"DRIVE_SERVICE_URL":   c.Services.DriveServiceURL,
	} {
		u, err := url.Parse(raw)
		if raw == "" || err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("%w: %s must be an absolute URL, got %q", ErrInvalidConfig, name, raw))
		}
	}
	if c.Upstream.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: upstream timeout must be positive", ErrInvalidConfig))
	}
	for name, s := range map[string]string{
		"overview": c.Dashboard.OverviewStrategy,
		"stats":    c.Dashboard.StatsStrategy,
	} {
		if s != StrategySequential && s != StrategyParallel {
			errs = append(errs, fmt.Errorf("%w: unknown %s strategy %q", ErrInvalidConfig, name, s))
		}
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0 {
			errs = append(errs, fmt.Errorf("%w: rate limit requires positive requests and window", ErrInvalidConfig))
		}
		if c.RateLimit.Backend != RateLimitBackendMemory && c.RateLimit.Backend != RateLimitBackendRedis {
			errs = append(errs, fmt.Errorf("%w: unknown rate limit backend %q", ErrInvalidConfig, c.RateLimit.Backend))
		}
	}

	return errors.Join(errs...)
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dashboard-service")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.loglevel", "info")
	v.SetDefault("app.logformat", "json")

	v.SetDefault("upstream.timeout", "5s")

	v.SetDefault("dashboard.overviewstrategy", StrategySequential)
	v.SetDefault("dashboard.statsstrategy", StrategyParallel)

	v.SetDefault("ratelimit.enabled", false)
	v.SetDefault("ratelimit.requests", 100)
	v.SetDefault("ratelimit.window", "60s")
	v.SetDefault("ratelimit.backend", RateLimitBackendMemory)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.exporter", "stdout")
	v.SetDefault("tracing.sampleratio", 0.1)
}

func bindEnvVariables(v *viper.Viper) error {
	bindings := map[string]string{
		"app.env":       "APP_ENV",
		"app.loglevel":  "LOG_LEVEL",
		"app.logformat": "LOG_FORMAT",

		"upstream.timeout": "UPSTREAM_TIMEOUT",

		"dashboard.overviewstrategy": "DASHBOARD_OVERVIEW_STRATEGY",
		"dashboard.statsstrategy":    "DASHBOARD_STATS_STRATEGY",

		"jwt.secret": "JWT_SECRET",

		"ratelimit.enabled":  "RATE_LIMIT_ENABLED",
		"ratelimit.requests": "RATE_LIMIT_REQUESTS",
		"ratelimit.window":   "RATE_LIMIT_WINDOW",
		"ratelimit.backend":  "RATE_LIMIT_BACKEND",

		"redis.addr":     "REDIS_ADDR",
		"redis.password": "REDIS_PASSWORD",
		"redis.db":       "REDIS_DB",

		"tracing.enabled":     "OTEL_ENABLED",
		"tracing.exporter":    "OTEL_EXPORTER",
		"tracing.endpoint":    "OTEL_EXPORTER_OTLP_ENDPOINT",
		"tracing.sampleratio": "OTEL_SAMPLER_RATIO",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, env); err != nil {
			return err
		}
	}
	return nil
}
