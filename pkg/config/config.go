package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"PQAnalyzer/pkg/logger"
)

type Config struct {
	Environment string            `yaml:"environment" default:"development" validate:"required"`
	Server      ServerConfig      `yaml:"server"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Logging     logger.Config     `yaml:"logging"`
	Detection   DetectionConfig   `yaml:"detection"`
	Playback    PlaybackConfig    `yaml:"playback"`
	Acquisition AcquisitionConfig `yaml:"acquisition"`
	Calibration CalibrationConfig `yaml:"calibration"`
	Storage     StorageConfig     `yaml:"storage"`
	Kafka       KafkaConfig       `yaml:"kafka"`
	ClickHouse  ClickHouseConfig  `yaml:"clickhouse"`
	MQTT        MQTTConfig        `yaml:"mqtt"`
	Redis       RedisConfig       `yaml:"redis"`
	Classifier  ClassifierConfig  `yaml:"classifier"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" default:"0.0.0.0"`
	Port            int           `yaml:"port" default:"8080" validate:"min=1,max=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	DisableCORS     bool          `yaml:"disable_cors"`
	// RateLimitBurst and RateLimitPerSecond throttle analysis and export per client. A negative burst disables it.
	RateLimitBurst     int     `yaml:"rate_limit_burst" default:"20"`
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second" default:"5"`
}

// MetricsConfig switches are negative so a zero value keeps metrics on.
type MetricsConfig struct {
	Disabled bool   `yaml:"disabled"`
	Path     string `yaml:"path" default:"/metrics"`
}

type DetectionConfig struct {
	NominalVoltage  float64       `yaml:"nominal_voltage" default:"220" validate:"gt=0"`
	LowerMultiplier float64       `yaml:"lower_multiplier" default:"1.1" validate:"gt=0"`
	UpperMultiplier float64       `yaml:"upper_multiplier" default:"1.8" validate:"gtfield=LowerMultiplier"`
	Phenomena       []string      `yaml:"phenomena" default:"[\"swell\"]" validate:"min=1,dive,oneof=swell sag harmonic"`
	Exclusive       bool          `yaml:"exclusive"`
	CacheTTL        time.Duration `yaml:"cache_ttl" default:"10m"`
}

type PlaybackConfig struct {
	WindowWidth  float64       `yaml:"window_width" default:"10" validate:"gt=0"`
	TickInterval time.Duration `yaml:"tick_interval" default:"200ms"`
}

type AcquisitionConfig struct {
	Source         string          `yaml:"source" default:"simulated" validate:"oneof=simulated mqtt"`
	Interval       time.Duration   `yaml:"interval" default:"100ms" validate:"gt=0"`
	BufferSize     int             `yaml:"buffer_size" default:"1024" validate:"min=1"`
	PublishBatch   int             `yaml:"publish_batch" default:"50" validate:"min=1"`
	StreamInterval time.Duration   `yaml:"stream_interval" default:"500ms"`
	LiveWindow     float64         `yaml:"live_window" default:"10" validate:"gt=0"`
	Simulated      SimulatedConfig `yaml:"simulated"`
}

// SimulatedConfig scales the synthetic demo waveform into raw ADC volts.
type SimulatedConfig struct {
	Offset  float64 `yaml:"offset" default:"1.257"`
	Scale   float64 `yaml:"scale" default:"0.3"`
	Samples int     `yaml:"samples" default:"10000" validate:"min=100"`
}

type CalibrationConfig struct {
	SensorPoints []float64 `yaml:"sensor_points" default:"[0.275,0.418,0.425,0.426,0.427,0.428,0.696]" validate:"min=2"`
	RealPoints   []float64 `yaml:"real_points" default:"[129.1,193.3,196.2,196.5,196.6,197.0,220.0]" validate:"min=2"`
	Offset       float64   `yaml:"offset" default:"-120"`
}

type StorageConfig struct {
	Backend    string `yaml:"backend" default:"sqlite" validate:"oneof=sqlite clickhouse"`
	DataDir    string `yaml:"data_dir" default:"data" validate:"required"`
	SQLitePath string `yaml:"sqlite_path"`
}

type KafkaConfig struct {
	Enabled      bool                `yaml:"enabled"`
	Brokers      []string            `yaml:"brokers" default:"[\"localhost:9092\"]"`
	Topic        string              `yaml:"topic" default:"pq.samples"`
	RequiredAcks int                 `yaml:"required_acks" default:"-1"`
	Compression  string              `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
	Producer     KafkaProducerConfig `yaml:"producer"`
	Consumer     KafkaConsumerConfig `yaml:"consumer"`
}

type KafkaProducerConfig struct {
	MaxAttempts  int           `yaml:"max_attempts" default:"3"`
	Linger       time.Duration `yaml:"linger" default:"200ms"`
	BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
	BatchSize    int           `yaml:"batch_size" default:"100"`
	WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
	ReadTimeout  time.Duration `yaml:"read_timeout" default:"10s"`
	Async        bool          `yaml:"async"`
}

type KafkaConsumerConfig struct {
	Enabled    bool          `yaml:"enabled"`
	GroupID    string        `yaml:"group_id" default:"pq-warehouse"`
	Workers    int           `yaml:"workers" default:"2" validate:"min=1"`
	BufferSize int           `yaml:"buffer_size" default:"256"`
	RetryMax   int           `yaml:"retry_max" default:"3"`
	BackoffMin time.Duration `yaml:"backoff_min" default:"50ms"`
	BackoffMax time.Duration `yaml:"backoff_max" default:"2s"`
	DLQTopic   string        `yaml:"dlq_topic"`
	MinBytes   int           `yaml:"min_bytes" default:"1"`
	MaxBytes   int           `yaml:"max_bytes" default:"10000000"`
}

type ClickHouseConfig struct {
	Host             string        `yaml:"host" default:"localhost"`
	Port             int           `yaml:"port" default:"9000"`
	Database         string        `yaml:"database" default:"pq"`
	User             string        `yaml:"user" default:"default"`
	Password         string        `yaml:"password"`
	UseHTTP          bool          `yaml:"use_http"`
	AsyncInsert      bool          `yaml:"async_insert"`
	WaitForAsync     bool          `yaml:"wait_for_async_insert"`
	DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
	ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
	MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
}

type MQTTConfig struct {
	Broker         string        `yaml:"broker" default:"tcp://localhost:1883"`
	Topic          string        `yaml:"topic" default:"pq/adc"`
	ClientID       string        `yaml:"client_id" default:"pqanalyzer"`
	Username       string        `yaml:"username"`
	Password       string        `yaml:"password"`
	QoS            byte          `yaml:"qos" validate:"max=2"`
	ConnectTimeout time.Duration `yaml:"connect_timeout" default:"10s"`
}

type RedisConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host" default:"localhost"`
	Port     int    `yaml:"port" default:"6379"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix" default:"pq"`
}

type ClassifierConfig struct {
	ModelDir   string            `yaml:"model_dir" default:"models"`
	Files      map[string]string `yaml:"files"`
	ServiceURL string            `yaml:"service_url"`
	Timeout    time.Duration     `yaml:"timeout" default:"5s"`
}

var validate = validator.New()

// Default returns a configuration with every default applied.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	return &c, nil
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML, applies defaults to missing fields and validates.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
// An empty path starts from defaults.
func LoadWithEnv(path string) (*Config, error) {
	var (
		c   *Config
		err error
	)
	if path == "" {
		c, err = Default()
	} else {
		c, err = Load(path)
	}
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("PQ_ENV"); v != "" {
		c.Environment = v
	}
	if v := os.Getenv("PQ_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = v
	}
	if v := os.Getenv("PQ_KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("PQ_MQTT_BROKER"); v != "" {
		c.MQTT.Broker = v
	}
	if v := os.Getenv("PQ_MODEL_DIR"); v != "" {
		c.Classifier.ModelDir = v
	}
	if v := os.Getenv("PQ_CLASSIFIER_URL"); v != "" {
		c.Classifier.ServiceURL = v
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// Validate checks struct tags and cross-section rules.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if len(c.Calibration.SensorPoints) != len(c.Calibration.RealPoints) {
		return fmt.Errorf("calibration: %d sensor points vs %d real points",
			len(c.Calibration.SensorPoints), len(c.Calibration.RealPoints))
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Kafka.Consumer.Enabled && !c.Kafka.Enabled {
		return fmt.Errorf("kafka.consumer requires kafka.enabled")
	}
	if c.Acquisition.Source == "mqtt" && c.MQTT.Broker == "" {
		return fmt.Errorf("mqtt.broker is required for the mqtt source")
	}
	return nil
}

// UsesClickHouse reports whether any component needs a ClickHouse connection.
func (c *Config) UsesClickHouse() bool {
	return c.Storage.Backend == "clickhouse" || c.Kafka.Consumer.Enabled
}

// SQLiteFile is the run database path.
func (c *Config) SQLiteFile() string {
	if c.Storage.SQLitePath != "" {
		return c.Storage.SQLitePath
	}
	return filepath.Join(c.Storage.DataDir, "pq.db")
}

// LockFile guards exclusive access to the acquisition device.
func (c *Config) LockFile() string {
	return filepath.Join(c.Storage.DataDir, "acquisition.lock")
}
