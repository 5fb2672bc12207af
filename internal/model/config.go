package model

import "time"

// Config is the full runtime configuration. Values are layered as
// flags > SEPCHECK_* environment > config file > DefaultConfig.
type Config struct {
	Reference    ReferenceConfig    `yaml:"reference" mapstructure:"reference"`
	LLM          LLMConfig          `yaml:"llm" mapstructure:"llm"`
	Cache        CacheConfig        `yaml:"cache" mapstructure:"cache"`
	FEMA         FEMAConfig         `yaml:"fema" mapstructure:"fema"`
	OCR          OCRConfig          `yaml:"ocr" mapstructure:"ocr"`
	Concurrency  ConcurrencyConfig  `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting RateLimitingConfig `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Server       ServerConfig       `yaml:"server" mapstructure:"server"`
	Output       OutputConfig       `yaml:"output" mapstructure:"output"`
}

// ReferenceConfig locates the disaster declaration dataset.
type ReferenceConfig struct {
	DatasetPath string `yaml:"dataset_path" mapstructure:"dataset_path"`
}

// LLMConfig configures the extraction collaborator.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // openai, anthropic, ollama, "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// CacheConfig configures the extraction payload cache.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// FEMAConfig configures the disaster dataset refresh job.
type FEMAConfig struct {
	URL          string        `yaml:"url" mapstructure:"url"`
	Top          int           `yaml:"top" mapstructure:"top"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// OCRConfig configures the external OCR command used for image inputs.
type OCRConfig struct {
	Command string   `yaml:"command" mapstructure:"command"`
	Args    []string `yaml:"args" mapstructure:"args"`
}

// ConcurrencyConfig bounds batch processing.
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// RateLimitingConfig bounds outbound calls per host.
type RateLimitingConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr         string        `yaml:"addr" mapstructure:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
}

// OutputConfig controls rendering.
type OutputConfig struct {
	Verbose   bool   `yaml:"verbose" mapstructure:"verbose"`
	LogFormat string `yaml:"log_format" mapstructure:"log_format"` // text or json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Reference: ReferenceConfig{
			DatasetPath: "dst_list.json",
		},
		LLM: LLMConfig{
			Provider:  "",
			Model:     "gpt-4o-mini",
			Timeout:   60,
			MaxTokens: 1500,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".sepcheck-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   7 * 24 * time.Hour,
		},
		FEMA: FEMAConfig{
			URL:          "https://www.fema.gov/api/open/v2/DisasterDeclarationsSummaries",
			Top:          1000,
			UserAgent:    "sepcheck/0.1 (+https://github.com/ppiankov/sepcheck)",
			Timeout:      time.Minute,
			MaxBodyBytes: 50_000_000,
		},
		OCR: OCRConfig{
			Command: "tesseract",
			Args:    []string{"--psm", "6"},
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		RateLimiting: RateLimitingConfig{
			RequestsPerSecond: 2,
			BurstSize:         2,
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 2 * time.Minute,
			MaxBodyBytes: 1 << 20,
		},
		Output: OutputConfig{
			LogFormat: "text",
		},
	}
}
