package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeLocal Mode = "local"
	ModeGCP   Mode = "gcp"
)

type Config struct {
	Mode Mode `yaml:"mode"`

	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// LLMProvider is "mock", "vertex" or "openai".
	LLMProvider  string `yaml:"llm_provider"`
	GCPProjectID string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ModelName    string `yaml:"model_name"`

	OpenAIAPIKey  string `yaml:"-"`
	OpenAIModel   string `yaml:"openai_model"`
	OpenAIBaseURL string `yaml:"openai_base_url"`

	// StorageBackend is "memory", "sqlite", "firestore" or "redis".
	StorageBackend string        `yaml:"storage_backend"`
	SQLitePath     string        `yaml:"sqlite_path"`
	RedisAddr      string        `yaml:"redis_addr"`
	RedisTTL       time.Duration `yaml:"redis_ttl"`

	// TextGenURL points at a remote text-generation endpoint. Empty means
	// suggestions are generated in process.
	TextGenURL string `yaml:"textgen_url"`

	AlignmentDelay  time.Duration `yaml:"alignment_delay"`
	AdjustmentDelay time.Duration `yaml:"adjustment_delay"`
	FetchTimeout    time.Duration `yaml:"fetch_timeout"`
	RevealTick      time.Duration `yaml:"reveal_tick"`
}

func defaults() *Config {
	return &Config{
		Mode:            ModeLocal,
		Port:            "8080",
		LogLevel:        "info",
		LLMProvider:     "mock",
		GCPLocation:     "us-central1",
		ModelName:       "gemini-2.5-flash-lite",
		OpenAIModel:     "gpt-4o-mini",
		StorageBackend:  "memory",
		SQLitePath:      "journey.db",
		RedisAddr:       "localhost:6379",
		RedisTTL:        30 * 24 * time.Hour,
		AlignmentDelay:  800 * time.Millisecond,
		AdjustmentDelay: 800 * time.Millisecond,
		RevealTick:      30 * time.Millisecond,
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getBoolEnv(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if v == "1" || v == "true" || v == "TRUE" {
		return true
	}
	return false
}

func getDurationEnv(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(v); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// Load builds the config from defaults, then the YAML file named by
// JOURNEY_CONFIG_FILE (if any), then environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("JOURNEY_CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	switch getEnv("JOURNEY_MODE", string(cfg.Mode)) {
	case "gcp":
		cfg.Mode = ModeGCP
	default:
		cfg.Mode = ModeLocal
	}

	cfg.Port = getEnv("JOURNEY_PORT", getEnv("PORT", cfg.Port))
	cfg.LogLevel = getEnv("JOURNEY_LOG_LEVEL", cfg.LogLevel)

	cfg.LLMProvider = getEnv("JOURNEY_LLM_PROVIDER", cfg.LLMProvider)
	if getBoolEnv("JOURNEY_USE_MOCK_LLM", false) {
		cfg.LLMProvider = "mock"
	}
	cfg.GCPProjectID = getEnv("JOURNEY_GCP_PROJECT", cfg.GCPProjectID)
	cfg.GCPLocation = getEnv("JOURNEY_GCP_LOCATION", cfg.GCPLocation)
	cfg.ModelName = getEnv("JOURNEY_MODEL_NAME", cfg.ModelName)

	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)
	cfg.OpenAIModel = getEnv("JOURNEY_OPENAI_MODEL", cfg.OpenAIModel)
	cfg.OpenAIBaseURL = getEnv("JOURNEY_OPENAI_BASE_URL", cfg.OpenAIBaseURL)

	cfg.StorageBackend = getEnv("JOURNEY_STORAGE_BACKEND", cfg.StorageBackend)
	cfg.SQLitePath = getEnv("JOURNEY_SQLITE_PATH", cfg.SQLitePath)
	cfg.RedisAddr = getEnv("JOURNEY_REDIS_ADDR", cfg.RedisAddr)
	cfg.TextGenURL = getEnv("JOURNEY_TEXTGEN_URL", cfg.TextGenURL)

	var err error
	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JOURNEY_REDIS_TTL", &cfg.RedisTTL},
		{"JOURNEY_ALIGNMENT_DELAY", &cfg.AlignmentDelay},
		{"JOURNEY_ADJUSTMENT_DELAY", &cfg.AdjustmentDelay},
		{"JOURNEY_FETCH_TIMEOUT", &cfg.FetchTimeout},
		{"JOURNEY_REVEAL_TICK", &cfg.RevealTick},
	}
	for _, d := range durations {
		if *d.dst, err = getDurationEnv(d.key, *d.dst); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// Validate checks the combinations a backend needs before anything is dialled.
func (c *Config) Validate() error {
	switch c.LLMProvider {
	case "mock":
	case "vertex":
		if c.GCPProjectID == "" {
			return fmt.Errorf("JOURNEY_GCP_PROJECT must be set for the vertex provider")
		}
	case "openai":
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY must be set for the openai provider")
		}
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLMProvider)
	}

	switch c.StorageBackend {
	case "memory", "sqlite", "redis":
	case "firestore":
		if c.GCPProjectID == "" {
			return fmt.Errorf("JOURNEY_GCP_PROJECT must be set for firestore storage")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}

	if c.Mode == ModeGCP && c.GCPProjectID == "" {
		return fmt.Errorf("JOURNEY_GCP_PROJECT must be set in gcp mode")
	}
	if c.AlignmentDelay < 0 || c.AdjustmentDelay < 0 || c.FetchTimeout < 0 || c.RevealTick < 0 {
		return fmt.Errorf("durations must not be negative")
	}
	return nil
}
