package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// AdvisorConfig describes one conversational-AI provider endpoint.
// The credential itself is never stored in YAML; APIKeyEnv names the
// environment variable that holds it.
type AdvisorConfig struct {
	Name      string        `yaml:"name"`
	Provider  string        `yaml:"provider"` // anthropic, gemini, openai
	Endpoint  string        `yaml:"endpoint"`
	Model     string        `yaml:"model"`
	APIKeyEnv string        `yaml:"api_key_env"`
	Timeout   time.Duration `yaml:"timeout"`
	MaxTokens int           `yaml:"max_tokens"`
}

type Config struct {
	Environment string `yaml:"environment"`
	Server      struct {
		Port            int           `yaml:"port"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"server"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
		Output string `yaml:"output"`
	} `yaml:"logging"`
	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Path    string `yaml:"path"`
	} `yaml:"metrics"`
	Backend struct {
		Type         string        `yaml:"type"` // kafka or clickhouse
		BatchSize    int           `yaml:"batch_size"`
		BatchTimeout time.Duration `yaml:"batch_timeout"`
	} `yaml:"backend"`
	Kafka struct {
		Brokers        []string `yaml:"brokers"`
		CandlesTopic   string   `yaml:"candles_topic"`
		ProposalsTopic string   `yaml:"proposals_topic"`
		OpsLogTopic    string   `yaml:"ops_log_topic"`
		RequiredAcks   int      `yaml:"required_acks"`
		Compression    string   `yaml:"compression"`
		Producer       struct {
			MaxAttempts  int           `yaml:"max_attempts"`
			Linger       time.Duration `yaml:"linger"`
			BatchBytes   int           `yaml:"batch_bytes"`
			BatchSize    int           `yaml:"batch_size"`
			WriteTimeout time.Duration `yaml:"write_timeout"`
			ReadTimeout  time.Duration `yaml:"read_timeout"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
		Consumer struct {
			GroupID    string        `yaml:"group_id"`
			Workers    int           `yaml:"workers"`
			BufferSize int           `yaml:"buffer_size"`
			RetryMax   int           `yaml:"retry_max"`
			BackoffMin time.Duration `yaml:"backoff_min"`
			BackoffMax time.Duration `yaml:"backoff_max"`
			DLQTopic   string        `yaml:"dlq_topic"`
			MinBytes   int           `yaml:"min_bytes"`
			MaxBytes   int           `yaml:"max_bytes"`
		} `yaml:"consumer"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port"`
		Database         string        `yaml:"database"`
		User             string        `yaml:"user"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		AsyncInsert      bool          `yaml:"async_insert"`
		WaitForAsync     bool          `yaml:"wait_for_async_insert"`
		DialTimeout      time.Duration `yaml:"dial_timeout"`
		ReadTimeout      time.Duration `yaml:"read_timeout"`
		WriteTimeout     time.Duration `yaml:"write_timeout"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time"`
	} `yaml:"clickhouse"`
	Redis struct {
		Enabled  bool   `yaml:"enabled"`
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix"`
	} `yaml:"redis"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay"`
		PingInterval   time.Duration `yaml:"ping_interval"`
	} `yaml:"binance"`
	Indicators struct {
		EMAShort        int     `yaml:"ema_short"`
		EMALong         int     `yaml:"ema_long"`
		RSIPeriod       int     `yaml:"rsi_period"`
		ATRPeriod       int     `yaml:"atr_period"`
		ADXPeriod       int     `yaml:"adx_period"`
		VolumeMAPeriod  int     `yaml:"volume_ma_period"`
		BollingerPeriod int     `yaml:"bollinger_period"`
		BollingerStd    float64 `yaml:"bollinger_std"`
	} `yaml:"indicators"`
	Regime struct {
		ADXTrending       float64 `yaml:"adx_trending"`
		ADXStrong         float64 `yaml:"adx_strong"`
		RSIOversold       float64 `yaml:"rsi_oversold"`
		RSIOverbought     float64 `yaml:"rsi_overbought"`
		ATRHighPercentile float64 `yaml:"atr_high_percentile"`
	} `yaml:"regime"`
	Advisory struct {
		HistoryBackend string        `yaml:"history_backend"` // memory or redis
		SnapshotTTL    time.Duration `yaml:"snapshot_ttl"`
		Advisors       []AdvisorConfig `yaml:"advisors"`
	} `yaml:"advisory"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("BACKEND"); v != "" {
		c.Backend.Type = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.Redis.Host = v
	}
	if v := os.Getenv("HISTORY_BACKEND"); v != "" {
		c.Advisory.HistoryBackend = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Backend.Type == "" {
		return fmt.Errorf("backend.type is required")
	}
	if c.Backend.Type != "kafka" && c.Backend.Type != "clickhouse" {
		return fmt.Errorf("backend.type must be 'kafka' or 'clickhouse', got '%s'", c.Backend.Type)
	}
	if len(c.Binance.Symbols) == 0 {
		return fmt.Errorf("binance.symbols cannot be empty")
	}
	if c.Advisory.HistoryBackend != "" && c.Advisory.HistoryBackend != "memory" && c.Advisory.HistoryBackend != "redis" {
		return fmt.Errorf("advisory.history_backend must be 'memory' or 'redis', got '%s'", c.Advisory.HistoryBackend)
	}
	seen := make(map[string]bool, len(c.Advisory.Advisors))
	for _, a := range c.Advisory.Advisors {
		if a.Name == "" {
			return fmt.Errorf("advisor name is required")
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate advisor name '%s'", a.Name)
		}
		seen[a.Name] = true
		switch a.Provider {
		case "anthropic", "gemini", "openai":
		default:
			return fmt.Errorf("advisor '%s': unknown provider '%s'", a.Name, a.Provider)
		}
	}
	return nil
}
