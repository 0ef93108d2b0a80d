// Package config defines the immutable service configuration. It is loaded
// once at startup and passed explicitly into each component's constructor;
// nothing reads ambient mutable state during request handling.
package config

import (
	"fmt"
	"time"
)

// Config holds the full riskd configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Model    ModelConfig    `mapstructure:"model"`
	Scorer   ScorerConfig   `mapstructure:"scorer"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Sink     SinkConfig     `mapstructure:"sink"`
	Log      LogConfig      `mapstructure:"log"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	ReadTimeout  int    `mapstructure:"read_timeout"`  // seconds
	WriteTimeout int    `mapstructure:"write_timeout"` // seconds
	IdleTimeout  int    `mapstructure:"idle_timeout"`  // seconds
	Environment  string `mapstructure:"environment"`
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ModelConfig configures the remote model-registry endpoint.
type ModelConfig struct {
	// Enabled toggles remote inference. When false every request is scored
	// by the rule-based fallback.
	Enabled bool `mapstructure:"enabled"`

	// URL is the registry prediction endpoint, e.g. http://risk-model-svc:5000/predict.
	URL string `mapstructure:"url"`

	// Timeout bounds a single registry call. It must stay strictly below the
	// handler's response budget so the fallback can still complete in time.
	Timeout time.Duration `mapstructure:"timeout"`

	// Version is assumed when the registry response omits a version field.
	Version string `mapstructure:"version"`
}

// ScorerConfig holds the rule-based scorer weights. Every contribution is
// individually capped and the final score is clamped to [0,1]. Defaults are
// set by the loader; overriding them is an operational decision, not a code
// change.
type ScorerConfig struct {
	MIBHitWeight       float64 `mapstructure:"mib_hit_weight"`
	MIBCodeWeight      float64 `mapstructure:"mib_code_weight"`
	MIBCodeCap         float64 `mapstructure:"mib_code_cap"`
	MIBBMIOver35Weight float64 `mapstructure:"mib_bmi_over_35_weight"`
	MIBCardiacWeight   float64 `mapstructure:"mib_cardiac_weight"`
	MIBCancerWeight    float64 `mapstructure:"mib_cancer_weight"`
	MIBSubstanceWeight float64 `mapstructure:"mib_substance_weight"`

	RXFillWeight    float64 `mapstructure:"rx_fill_weight"`
	RXFillCap       float64 `mapstructure:"rx_fill_cap"`
	RXDrugWeight    float64 `mapstructure:"rx_drug_weight"`
	RXDrugCap       float64 `mapstructure:"rx_drug_cap"`
	RXOpioidWeight  float64 `mapstructure:"rx_opioid_weight"`
	RXBenzoWeight   float64 `mapstructure:"rx_benzo_weight"`
	RXInsulinWeight float64 `mapstructure:"rx_insulin_weight"`

	ComboOpioidBenzoBonus    float64 `mapstructure:"combo_opioid_benzo_bonus"`
	ComboHighRiskBonus       float64 `mapstructure:"combo_high_risk_bonus"`
	ComboPolypharmacy10Bonus float64 `mapstructure:"combo_polypharmacy_10_bonus"`
}

// DatabaseConfig configures the PostgreSQL connection pool.
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxConns        int    `mapstructure:"max_conns"`
	MinConns        int    `mapstructure:"min_conns"`
	MaxConnLifetime int    `mapstructure:"max_conn_lifetime"`  // minutes
	MaxConnIdleTime int    `mapstructure:"max_conn_idle_time"` // minutes
}

// DSN returns the postgres connection string.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig configures the redis client used by the latest-prediction cache.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// KafkaConfig configures the prediction event stream.
type KafkaConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Brokers      []string      `mapstructure:"brokers"`
	Topic        string        `mapstructure:"topic"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	BatchSize    int           `mapstructure:"batch_size"`
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks int           `mapstructure:"required_acks"`
}

// SinkConfig configures the asynchronous persistence sink.
type SinkConfig struct {
	// QueueSize bounds the persistence queue. When full, the oldest queued
	// job is dropped (logged and counted) so enqueue never blocks a response.
	QueueSize int `mapstructure:"queue_size"`

	// Workers is the number of goroutines draining the queue.
	Workers int `mapstructure:"workers"`

	// WriteTimeout bounds a single store write performed by a worker.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`

	// ResultTTL is the redis TTL for the latest-prediction cache entry.
	ResultTTL time.Duration `mapstructure:"result_ttl"`

	// ShutdownGrace bounds queue draining on shutdown.
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// LogConfig configures structured logging.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TracingConfig configures OpenTelemetry tracing.
type TracingConfig struct {
	Enabled        bool    `mapstructure:"enabled"`
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	ServiceName    string  `mapstructure:"service_name"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}

// Validate checks essential configuration values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if c.Model.Enabled && c.Model.URL == "" {
		return fmt.Errorf("model.url required when model.enabled is true")
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive")
	}
	if c.Sink.QueueSize <= 0 {
		return fmt.Errorf("sink.queue_size must be positive")
	}
	if c.Sink.Workers <= 0 {
		return fmt.Errorf("sink.workers must be positive")
	}
	return nil
}
