package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Vision backends
const (
	BackendAzure    = "azure"
	BackendOllama   = "ollama"
	BackendLlamaCpp = "llamacpp"
	BackendOpenAI   = "openai"
)

// Storage backends
const (
	StorageAzure = "azure"
	StorageS3    = "s3"
)

var (
	// ErrMissingCredentials is returned when the selected backend lacks credentials
	ErrMissingCredentials = errors.New("missing credentials")
	// ErrUnknownBackend is returned for an unsupported backend name
	ErrUnknownBackend = errors.New("unknown backend")
)

// Config holds the application configuration
type Config struct {
	Vision   VisionConfig
	Storage  StorageConfig
	Pipeline PipelineConfig
	Log      LogConfig
}

// VisionConfig selects and configures the image classification backend
type VisionConfig struct {
	Backend       string        `mapstructure:"backend"`
	AzureKey      string        `mapstructure:"azure_key"`
	AzureEndpoint string        `mapstructure:"azure_endpoint"`
	OllamaURL     string        `mapstructure:"ollama_url"`
	LlamaCppURL   string        `mapstructure:"llamacpp_url"`
	OpenAIKey     string        `mapstructure:"openai_key"`
	OpenAIBaseURL string        `mapstructure:"openai_base_url"`
	Model         string        `mapstructure:"model"`
	Timeout       time.Duration `mapstructure:"timeout"`
	SendFormat    string        `mapstructure:"send_format"`
	SendSize      int           `mapstructure:"send_size"`
	SendQuality   int           `mapstructure:"send_quality"`
	Keyword       string        `mapstructure:"keyword"`
}

// StorageConfig selects and configures the object store
type StorageConfig struct {
	Backend          string        `mapstructure:"backend"`
	ConnectionString string        `mapstructure:"connection_string"`
	Container        string        `mapstructure:"container"`
	CopyPollInterval time.Duration `mapstructure:"copy_poll_interval"`
	CopyTimeout      time.Duration `mapstructure:"copy_timeout"`
	S3               S3Config      `mapstructure:"s3"`
}

// S3Config holds S3-compatible settings
type S3Config struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	UseSSL    bool   `mapstructure:"use_ssl"`
}

// PipelineConfig holds pipeline settings
type PipelineConfig struct {
	TargetFolder string `mapstructure:"target_folder"`
	TempDir      string `mapstructure:"temp_dir"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

var envBindings = map[string]string{
	"vision.backend":             "VISION_BACKEND",
	"vision.azure_key":           "AZURE_COMPUTER_VISION_KEY",
	"vision.azure_endpoint":      "AZURE_COMPUTER_VISION_ENDPOINT",
	"vision.ollama_url":          "OLLAMA_URL",
	"vision.llamacpp_url":        "LLAMACPP_URL",
	"vision.openai_key":          "OPENAI_API_KEY",
	"vision.openai_base_url":     "OPENAI_BASE_URL",
	"vision.model":               "VISION_MODEL",
	"vision.timeout":             "VISION_TIMEOUT",
	"vision.send_format":         "SEND_FORMAT",
	"vision.send_size":           "SEND_SIZE",
	"vision.send_quality":        "SEND_QUALITY",
	"vision.keyword":             "KEYWORD",
	"storage.backend":            "STORAGE_BACKEND",
	"storage.connection_string":  "BLOB_CONNECTION_STRING",
	"storage.container":          "BLOB_CONTAINER",
	"storage.copy_poll_interval": "COPY_POLL_INTERVAL",
	"storage.copy_timeout":       "COPY_TIMEOUT",
	"storage.s3.endpoint":        "S3_ENDPOINT",
	"storage.s3.access_key":      "S3_ACCESS_KEY",
	"storage.s3.secret_key":      "S3_SECRET_KEY",
	"storage.s3.bucket":          "S3_BUCKET",
	"storage.s3.region":          "S3_REGION",
	"storage.s3.use_ssl":         "S3_USE_SSL",
	"pipeline.target_folder":     "TARGET_FOLDER",
	"pipeline.temp_dir":          "TEMP_DIR",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
}

// Load reads configuration from a .env file (if present), an optional config
// file and the environment. Environment variables win.
func Load(configFile string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("vision.backend", BackendAzure)
	v.SetDefault("vision.ollama_url", "http://localhost:11434")
	v.SetDefault("vision.llamacpp_url", "http://localhost:8080")
	v.SetDefault("vision.timeout", "5m")
	v.SetDefault("vision.send_format", "jpg")
	v.SetDefault("vision.send_size", 1536)
	v.SetDefault("vision.send_quality", 85)
	v.SetDefault("vision.keyword", "tree")

	v.SetDefault("storage.backend", StorageAzure)
	v.SetDefault("storage.copy_poll_interval", "1s")
	v.SetDefault("storage.copy_timeout", "2m")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)

	v.SetDefault("pipeline.target_folder", "tree-pictures/")
	v.SetDefault("pipeline.temp_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", configFile, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.Vision.Backend = strings.ToLower(strings.TrimSpace(cfg.Vision.Backend))
	cfg.Storage.Backend = strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	return cfg, nil
}

// ValidateVision checks the selected vision backend has what it needs
func (c *Config) ValidateVision() error {
	v := c.Vision
	switch v.Backend {
	case BackendAzure:
		if v.AzureKey == "" || v.AzureEndpoint == "" {
			return fmt.Errorf("%w: AZURE_COMPUTER_VISION_KEY and AZURE_COMPUTER_VISION_ENDPOINT must be set", ErrMissingCredentials)
		}
	case BackendOllama:
		if v.OllamaURL == "" {
			return fmt.Errorf("%w: OLLAMA_URL must be set", ErrMissingCredentials)
		}
	case BackendLlamaCpp:
		if v.LlamaCppURL == "" {
			return fmt.Errorf("%w: LLAMACPP_URL must be set", ErrMissingCredentials)
		}
	case BackendOpenAI:
		if v.OpenAIKey == "" && v.OpenAIBaseURL == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY or OPENAI_BASE_URL must be set", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: vision backend %q", ErrUnknownBackend, v.Backend)
	}
	if v.SendQuality < 1 || v.SendQuality > 100 {
		return fmt.Errorf("SEND_QUALITY must be between 1 and 100, got %d", v.SendQuality)
	}
	return nil
}

// ValidateStorage checks the selected object store has what it needs
func (c *Config) ValidateStorage() error {
	s := c.Storage
	switch s.Backend {
	case StorageAzure:
		if s.ConnectionString == "" || s.Container == "" {
			return fmt.Errorf("%w: BLOB_CONNECTION_STRING and BLOB_CONTAINER must be set", ErrMissingCredentials)
		}
	case StorageS3:
		if s.S3.Endpoint == "" || s.S3.Bucket == "" {
			return fmt.Errorf("%w: S3_ENDPOINT and S3_BUCKET must be set", ErrMissingCredentials)
		}
		if s.S3.AccessKey == "" || s.S3.SecretKey == "" {
			return fmt.Errorf("%w: S3_ACCESS_KEY and S3_SECRET_KEY must be set", ErrMissingCredentials)
		}
	default:
		return fmt.Errorf("%w: storage backend %q", ErrUnknownBackend, s.Backend)
	}
	return nil
}
