package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Security SecurityConfig `mapstructure:"security"`
}

type ServerConfig struct {
	Type        string `mapstructure:"type"`
	AdminPort   int    `mapstructure:"admin_port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type StorageConfig struct {
	// Driver is "postgres" or "memory".
	Driver string `mapstructure:"driver"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TLS      bool   `mapstructure:"tls"`
}

type SecurityConfig struct {
	Escalation  EscalationConfig  `mapstructure:"escalation"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Alerting    AlertingConfig    `mapstructure:"alerting"`
	Correlation CorrelationConfig `mapstructure:"correlation"`
	Response    ResponseConfig    `mapstructure:"response"`
	Signals     SignalsConfig     `mapstructure:"signals"`
	Sink        SinkConfig        `mapstructure:"sink"`
	RulesFile   string            `mapstructure:"rules_file"`
}

type EscalationConfig struct {
	SuspendThreshold int64         `mapstructure:"suspend_threshold"`
	BanThreshold     int64         `mapstructure:"ban_threshold"`
	OriginBanWindow  time.Duration `mapstructure:"origin_ban_window"`
	StoreTimeout     time.Duration `mapstructure:"store_timeout"`
}

type LimitClass struct {
	Limit  int           `mapstructure:"limit"`
	Window time.Duration `mapstructure:"window"`
}

type RateLimitConfig struct {
	Classes          map[string]LimitClass `mapstructure:"classes"`
	ThrottleDuration time.Duration         `mapstructure:"throttle_duration"`
	ThrottleDivisor  int                   `mapstructure:"throttle_divisor"`
	StoreTimeout     time.Duration         `mapstructure:"store_timeout"`
	// OperatorClass is the class applied to the operator endpoints.
	OperatorClass    string                `mapstructure:"operator_class"`
}

type AlertingConfig struct {
	Interval      time.Duration     `mapstructure:"interval"`
	Timeout       time.Duration     `mapstructure:"timeout"`
	Cooldown      time.Duration     `mapstructure:"cooldown"`
	PrometheusURL string            `mapstructure:"prometheus_url"`
	MetricQueries map[string]string `mapstructure:"metric_queries"`
}

type CorrelationConfig struct {
	Interval       time.Duration `mapstructure:"interval"`
	Timeout        time.Duration `mapstructure:"timeout"`
	DedupCacheSize int           `mapstructure:"dedup_cache_size"`
}

type ResponseConfig struct {
	DrainInterval   time.Duration `mapstructure:"drain_interval"`
	DrainBatchSize  int           `mapstructure:"drain_batch_size"`
	// Timeout bounds one drain cycle.
	Timeout         time.Duration `mapstructure:"timeout"`
	OperatorWebhook string        `mapstructure:"operator_webhook"`
}

type SignalsConfig struct {
	HighRiskScoreThreshold float64 `mapstructure:"high_risk_score_threshold"`
}

type SinkConfig struct {
	// Driver is "none", "redis" or "kafka".
	Driver   string                 `mapstructure:"driver"`
	Settings map[string]interface{} `mapstructure:"settings"`
}

// Load reads config.yaml from configPath (or ./config, .) with environment
// overrides, and fills defaults for anything left unset.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultValues(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return nil, fmt.Errorf("error reading config file config.yaml: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if len(cfg.Security.RateLimit.Classes) == 0 {
		cfg.Security.RateLimit.Classes = DefaultLimitClasses()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.type", "shield")
	v.SetDefault("server.admin_port", 8090)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("storage.driver", "postgres")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("security.escalation.suspend_threshold", 2)
	v.SetDefault("security.escalation.ban_threshold", 10)
	v.SetDefault("security.escalation.origin_ban_window", 24*time.Hour)
	v.SetDefault("security.escalation.store_timeout", 2*time.Second)

	v.SetDefault("security.rate_limit.throttle_duration", time.Hour)
	v.SetDefault("security.rate_limit.throttle_divisor", 5)
	v.SetDefault("security.rate_limit.store_timeout", 200*time.Millisecond)
	v.SetDefault("security.rate_limit.operator_class", "api")

	v.SetDefault("security.alerting.interval", 30*time.Second)
	v.SetDefault("security.alerting.timeout", 10*time.Second)
	v.SetDefault("security.alerting.cooldown", 0)

	v.SetDefault("security.correlation.interval", time.Minute)
	v.SetDefault("security.correlation.timeout", 20*time.Second)
	v.SetDefault("security.correlation.dedup_cache_size", 4096)

	v.SetDefault("security.response.drain_interval", 15*time.Second)
	v.SetDefault("security.response.drain_batch_size", 100)
	v.SetDefault("security.response.timeout", 30*time.Second)

	v.SetDefault("security.signals.high_risk_score_threshold", 0.8)
	v.SetDefault("security.sink.driver", "none")
}

// DefaultLimitClasses are the admission limits per endpoint class.
func DefaultLimitClasses() map[string]LimitClass {
	return map[string]LimitClass{
		"default": {Limit: 100, Window: time.Minute},
		"login":   {Limit: 5, Window: time.Minute},
		"api":     {Limit: 60, Window: time.Minute},
	}
}

func (c *Config) Validate() error {
	esc := c.Security.Escalation
	if esc.SuspendThreshold <= 0 || esc.BanThreshold <= esc.SuspendThreshold {
		return fmt.Errorf("invalid escalation thresholds: suspend=%d ban=%d", esc.SuspendThreshold, esc.BanThreshold)
	}
	if esc.OriginBanWindow <= 0 {
		return errors.New("escalation origin_ban_window must be positive")
	}
	for name, class := range c.Security.RateLimit.Classes {
		if class.Limit <= 0 || class.Window <= 0 {
			return fmt.Errorf("rate limit class %s requires a positive limit and window", name)
		}
	}
	if c.Security.Response.Timeout <= 0 {
		return errors.New("response timeout must be positive")
	}
	if c.Security.RateLimit.ThrottleDivisor < 1 {
		return errors.New("rate_limit throttle_divisor must be at least 1")
	}
	switch c.Storage.Driver {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Security.Sink.Driver {
	case "none", "redis", "kafka":
	default:
		return fmt.Errorf("unknown sink driver %q", c.Security.Sink.Driver)
	}
	return nil
}
