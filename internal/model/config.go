package model

import "time"

// Config is the complete service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Auth     AuthConfig     `yaml:"auth" mapstructure:"auth"`
	Scoring  ScoringConfig  `yaml:"scoring" mapstructure:"scoring"`
	Advisor  AdvisorConfig  `yaml:"advisor" mapstructure:"advisor"`
	Dispatch DispatchConfig `yaml:"dispatch" mapstructure:"dispatch"`
	Push     PushConfig     `yaml:"push" mapstructure:"push"`
	Queue    QueueConfig    `yaml:"queue" mapstructure:"queue"`
	Geocode  GeocodeConfig  `yaml:"geocode" mapstructure:"geocode"`
	Cache    CacheConfig    `yaml:"cache" mapstructure:"cache"`
	HTTP     HTTPConfig     `yaml:"http" mapstructure:"http"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ServerConfig configures the HTTP API
type ServerConfig struct {
	Addr            string        `yaml:"addr" mapstructure:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// DatabaseConfig selects the gorm dialect and DSN
type DatabaseConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"` // sqlite, postgres
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// AuthConfig configures viewer identity
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret,omitempty" mapstructure:"jwt_secret"`
}

// ScoringConfig configures submission-time validation
type ScoringConfig struct {
	MaxSubmitAccuracyMeters float64 `yaml:"max_submit_accuracy_meters" mapstructure:"max_submit_accuracy_meters"`
}

// AdvisorConfig configures the AI authenticity cross-check
type AdvisorConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"` // openai, ollama, "" (disabled)
	Model            string `yaml:"model" mapstructure:"model"`
	APIKey           string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL          string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout          int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens        int    `yaml:"max_tokens" mapstructure:"max_tokens"`
	MaxDeduction     int    `yaml:"max_deduction" mapstructure:"max_deduction"`
	DefaultDeduction int    `yaml:"default_deduction" mapstructure:"default_deduction"` // Used when the model rejects without a deduction
}

// DispatchConfig configures geofenced fan-out
type DispatchConfig struct {
	RadiusMeters      float64 `yaml:"radius_meters" mapstructure:"radius_meters"`
	ChunkSize         int     `yaml:"chunk_size" mapstructure:"chunk_size"`
	Workers           int     `yaml:"workers" mapstructure:"workers"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// PushConfig configures the push-delivery provider
type PushConfig struct {
	Provider string        `yaml:"provider" mapstructure:"provider"` // http, log
	Endpoint string        `yaml:"endpoint" mapstructure:"endpoint"`
	APIKey   string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	Timeout  time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// QueueConfig configures the background job queue
type QueueConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
	Buffer  int `yaml:"buffer" mapstructure:"buffer"`
}

// GeocodeConfig configures reverse geocoding for capture sessions
type GeocodeConfig struct {
	BaseURL           string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent         string        `yaml:"user_agent" mapstructure:"user_agent"`
	Debounce          time.Duration `yaml:"debounce" mapstructure:"debounce"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// CacheConfig configures the advisor verdict cache
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// HTTPConfig holds outbound HTTP settings shared by provider clients
type HTTPConfig struct {
	HTTPProxy  string `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy string `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy    string `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// LogConfig configures the structured logger
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // text, json
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "fillahole.db",
		},
		Scoring: ScoringConfig{
			MaxSubmitAccuracyMeters: 50,
		},
		Advisor: AdvisorConfig{
			Provider:         "", // Disabled by default
			Model:            "gpt-4o-mini",
			Timeout:          15,
			MaxTokens:        300,
			MaxDeduction:     100,
			DefaultDeduction: 40,
		},
		Dispatch: DispatchConfig{
			RadiusMeters:      2000,
			ChunkSize:         500,
			Workers:           4,
			RequestsPerSecond: 10,
			BurstSize:         5,
		},
		Push: PushConfig{
			Provider: "log",
			Timeout:  10 * time.Second,
		},
		Queue: QueueConfig{
			Workers: 4,
			Buffer:  64,
		},
		Geocode: GeocodeConfig{
			BaseURL:           "https://nominatim.openstreetmap.org",
			UserAgent:         "FillAHole/0.1",
			Debounce:          2 * time.Second,
			RequestsPerSecond: 1,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".fillahole-cache",
			MemoryTTL: 1 * time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
