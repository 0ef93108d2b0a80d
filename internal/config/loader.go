package config

import (
	"context"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/underwritex/riskd/pkg/errors"
	"github.com/underwritex/riskd/pkg/logger"
)

// LoadConfig loads configuration from the optional config file and from
// RISKD_-prefixed environment variables, applying defaults for everything
// else. The returned Config is treated as immutable for the process lifetime;
// file changes are logged but require a restart to take effect.
func LoadConfig(log logger.Logger) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("/etc/riskd/")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.ErrInvalidConfig.WithError(err)
		}
	}

	v.SetEnvPrefix("RISKD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.ErrInvalidConfig.WithError(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.ErrInvalidConfig.WithError(err)
	}

	// Request-handling code never re-reads configuration, so a changed file
	// only produces an operator hint.
	v.OnConfigChange(func(e fsnotify.Event) {
		log.Warn(context.Background(), "Config file changed on disk; restart required to apply",
			logger.String("file", e.Name))
	})
	v.WatchConfig()

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.idle_timeout", 60)
	v.SetDefault("server.environment", "development")

	v.SetDefault("model.enabled", false)
	v.SetDefault("model.url", "http://risk-model-svc:5000/predict")
	v.SetDefault("model.timeout", 50*time.Millisecond)
	v.SetDefault("model.version", "REGISTRY_V2")

	// Rule-based scorer weights. These mirror the shipped model's documented
	// feature contributions and are the system's correctness floor when the
	// registry is unreachable.
	v.SetDefault("scorer.mib_hit_weight", 0.15)
	v.SetDefault("scorer.mib_code_weight", 0.025)
	v.SetDefault("scorer.mib_code_cap", 0.15)
	v.SetDefault("scorer.mib_bmi_over_35_weight", 0.10)
	v.SetDefault("scorer.mib_cardiac_weight", 0.10)
	v.SetDefault("scorer.mib_cancer_weight", 0.15)
	v.SetDefault("scorer.mib_substance_weight", 0.12)
	v.SetDefault("scorer.rx_fill_weight", 0.02)
	v.SetDefault("scorer.rx_fill_cap", 0.15)
	v.SetDefault("scorer.rx_drug_weight", 0.02)
	v.SetDefault("scorer.rx_drug_cap", 0.12)
	v.SetDefault("scorer.rx_opioid_weight", 0.15)
	v.SetDefault("scorer.rx_benzo_weight", 0.10)
	v.SetDefault("scorer.rx_insulin_weight", 0.12)
	v.SetDefault("scorer.combo_opioid_benzo_bonus", 0.25)
	v.SetDefault("scorer.combo_high_risk_bonus", 0.15)
	v.SetDefault("scorer.combo_polypharmacy_10_bonus", 0.10)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "riskd")
	v.SetDefault("database.database", "riskd")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", 60)
	v.SetDefault("database.max_conn_idle_time", 10)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("redis.min_idle_conns", 2)
	v.SetDefault("redis.dial_timeout", 5*time.Second)
	v.SetDefault("redis.read_timeout", 3*time.Second)
	v.SetDefault("redis.write_timeout", 3*time.Second)

	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic", "riskd.predictions")
	v.SetDefault("kafka.write_timeout", 5*time.Second)
	v.SetDefault("kafka.batch_size", 100)
	v.SetDefault("kafka.batch_timeout", time.Second)
	v.SetDefault("kafka.required_acks", 1)

	v.SetDefault("sink.queue_size", 1024)
	v.SetDefault("sink.workers", 4)
	v.SetDefault("sink.write_timeout", 5*time.Second)
	v.SetDefault("sink.result_ttl", time.Hour)
	v.SetDefault("sink.shutdown_grace", 10*time.Second)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("tracing.enabled", false)
	v.SetDefault("tracing.jaeger_endpoint", "http://localhost:14268/api/traces")
	v.SetDefault("tracing.service_name", "riskd")
	v.SetDefault("tracing.sample_ratio", 0.1)
}
