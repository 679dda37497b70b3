package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	DocAI    DocAIConfig
	LLM      LLMConfig
	Store    StoreConfig
	Pipeline PipelineConfig
}

// DocAIConfig holds document AI / OCR backend configuration
type DocAIConfig struct {
	Endpoint       string
	RegionEndpoint string
	APIKey         string
	Timeout        time.Duration
	RegionTimeout  time.Duration
	RatePerSecond  float64
	RateBurst      int
}

// LLMConfig holds text-completion model configuration
type LLMConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// StoreConfig holds the read-only document store connection settings
type StoreConfig struct {
	URI      string
	Database string
}

// PipelineConfig holds chunking, quality, and concurrency tuning.
// The defaults are the empirically tuned values the system shipped with;
// they are env-overridable because their optimal values are unverified.
type PipelineConfig struct {
	SplitThreshold  int     // split PDFs with more pages than this
	MaxChunkPages   int     // page cap per chunk
	MaxParallel     int     // concurrent chunk OCR calls
	MinConfidence   float64 // quality gate: model confidence floor
	MinOverallRate  float64 // quality gate: overall extraction rate floor
	AliasTablePath  string  // optional TOML override for the issuer alias table
	RegionScanAfter time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		DocAI: DocAIConfig{
			Endpoint:       getEnv("DOCAI_ENDPOINT", ""),
			RegionEndpoint: getEnv("DOCAI_REGION_ENDPOINT", ""),
			APIKey:         getEnv("DOCAI_API_KEY", ""),
			Timeout:        getEnvAsDuration("DOCAI_TIMEOUT", 90*time.Second),
			RegionTimeout:  getEnvAsDuration("DOCAI_REGION_TIMEOUT", 20*time.Second),
			RatePerSecond:  getEnvAsFloat64("DOCAI_RATE_PER_SECOND", 2),
			RateBurst:      getEnvAsInt("DOCAI_RATE_BURST", 4),
		},
		LLM: LLMConfig{
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
		Store: StoreConfig{
			URI:      getEnv("DOCSTORE_URI", ""),
			Database: getEnv("DOCSTORE_DB", "shipdocs"),
		},
		Pipeline: PipelineConfig{
			SplitThreshold:  getEnvAsInt("CHUNK_SPLIT_THRESHOLD", 15),
			MaxChunkPages:   getEnvAsInt("CHUNK_MAX_PAGES", 12),
			MaxParallel:     getEnvAsInt("CHUNK_MAX_PARALLEL", 3),
			MinConfidence:   getEnvAsFloat64("QUALITY_MIN_CONFIDENCE", 0.4),
			MinOverallRate:  getEnvAsFloat64("QUALITY_MIN_OVERALL_RATE", 0.3),
			AliasTablePath:  getEnv("ISSUER_ALIAS_TABLE", ""),
			RegionScanAfter: getEnvAsDuration("REGION_SCAN_TIMEOUT", 20*time.Second),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.DocAI.Endpoint == "" {
		return NewAppError("CONFIG_ERROR", "DOCAI_ENDPOINT is required", ErrInvalidInput)
	}
	if c.LLM.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Pipeline.MaxChunkPages <= 0 || c.Pipeline.SplitThreshold <= 0 {
		return NewAppError("CONFIG_ERROR", "chunk thresholds must be positive", ErrInvalidInput)
	}
	return nil
}
