package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"AutoOptimiser/pkg/logger"
	"AutoOptimiser/pkg/textenc"
	"AutoOptimiser/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowRequest     time.Duration `yaml:"slow_request" default:"2s"`
		CORS            bool          `yaml:"cors" default:"true"`
		RateBurst       float64       `yaml:"rate_burst" default:"10" validate:"gte=0"`
		RatePerSecond   float64       `yaml:"rate_per_second" default:"2" validate:"gte=0"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Logger   logger.Config `yaml:"logger"`
	Terminal struct {
		Executable    string        `yaml:"executable" validate:"required"`
		BaseConfig    string        `yaml:"base_config" validate:"required"`
		WorkDir       string        `yaml:"work_dir" validate:"required"`
		ParametersDir string        `yaml:"parameters_dir" validate:"required"`
		ReportFile    string        `yaml:"report_file" validate:"required"`
		Login         string        `yaml:"login"`
		Profile       string        `yaml:"profile"`
		Encoding      string        `yaml:"encoding" default:"utf-16le"`
		Timeout       time.Duration `yaml:"timeout"`
	} `yaml:"terminal"`
	Optimiser struct {
		Variant          string        `yaml:"variant" default:"walkforward"`
		ReplaceDates     bool          `yaml:"replace_dates"`
		ShutdownOnFinish bool          `yaml:"shutdown_on_finish" default:"true"`
		TickModel        string        `yaml:"tick_model" default:"real_ticks"`
		SessionTTL       time.Duration `yaml:"session_ttl" default:"168h"`
		ProgressInterval time.Duration `yaml:"progress_interval" default:"250ms"`
	} `yaml:"optimiser"`
	Queue struct {
		Enabled    bool          `yaml:"enabled"`
		KeyPrefix  string        `yaml:"key_prefix" default:"optimiser:queue"`
		RetryLimit int           `yaml:"retry_limit" default:"20" validate:"gte=0"`
		RetryDelay time.Duration `yaml:"retry_delay" default:"30s"`
		PollEvery  time.Duration `yaml:"poll_every" default:"1s"`
	} `yaml:"queue"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" validate:"gte=0"`
		PoolSize int    `yaml:"pool_size" default:"10" validate:"gte=1"`
		Prefix   string `yaml:"prefix" default:"optimiser"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool          `yaml:"enabled"`
		Brokers      []string      `yaml:"brokers"`
		Topic        string        `yaml:"topic" default:"optimiser.events"`
		RequiredAcks int           `yaml:"required_acks" default:"1" validate:"oneof=-1 0 1"`
		Compression  string        `yaml:"compression" default:"snappy" validate:"oneof=none gzip snappy lz4 zstd"`
		MaxAttempts  int           `yaml:"max_attempts" default:"3" validate:"gte=1"`
		BatchSize    int           `yaml:"batch_size" default:"100" validate:"gte=1"`
		Linger       time.Duration `yaml:"linger" default:"50ms"`
		WriteTimeout time.Duration `yaml:"write_timeout" default:"5s"`
		Async        bool          `yaml:"async"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Enabled          bool          `yaml:"enabled"`
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"default"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		Table            string        `yaml:"table" default:"optimisation_results"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
}

var validate = validator.New()

// Load reads a YAML configuration file, applies defaults and validates it.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse builds a Config from YAML bytes.
func Parse(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides it with environment
// variables before validating.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := c.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("APP_ENV", &c.Environment)
	str("LOG_LEVEL", &c.Logger.Level)
	str("OPTIMISER_TERMINAL", &c.Terminal.Executable)
	str("OPTIMISER_BASE_CONFIG", &c.Terminal.BaseConfig)
	str("OPTIMISER_WORK_DIR", &c.Terminal.WorkDir)
	str("OPTIMISER_LOGIN", &c.Terminal.Login)
	str("OPTIMISER_VARIANT", &c.Optimiser.Variant)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("KAFKA_TOPIC", &c.Kafka.Topic)
	str("CLICKHOUSE_HOST", &c.ClickHouse.Host)
	str("CLICKHOUSE_PASSWORD", &c.ClickHouse.Password)

	if v, ok := lookup("KAFKA_BROKERS"); ok && v != "" {
		c.Kafka.Brokers = splitList(v)
	}
	if v, ok := lookup("REDIS_DB"); ok {
		c.Redis.DB = util.ParseIntDefault(v, c.Redis.DB)
	}
	if v, ok := lookup("HTTP_PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HTTP_PORT %q: %w", v, err)
		}
		c.Server.Port = port
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate runs struct tag rules and the checks that span sections.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("%s: failed %q %s", fe.Namespace(), fe.Tag(), fe.Param())
		}
		return err
	}
	if c.Queue.Enabled && !c.Redis.Enabled {
		return errors.New("queue.enabled requires redis.enabled")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return errors.New("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.ClickHouse.Enabled && c.ClickHouse.Table == "" {
		return errors.New("clickhouse.table is required when clickhouse is enabled")
	}
	if _, err := textenc.Parse(c.Terminal.Encoding); err != nil {
		return fmt.Errorf("terminal.encoding: %w", err)
	}
	if c.Optimiser.SessionTTL <= 0 {
		return errors.New("optimiser.session_ttl must be positive")
	}
	return nil
}
