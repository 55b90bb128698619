package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Model      ModelConfig
	Pipeline   PipelineConfig
	Validation ValidationConfig
	Report     ReportConfig
}

// ModelConfig holds model-gateway configuration
type ModelConfig struct {
	Provider    string // "bedrock" (default) or "openai"
	ModelID     string
	Region      string
	APIKey      string
	BaseURL     string
	MaxRetries  int
	RetryBase   time.Duration
	Exponential bool
	Temperature float32
}

// PipelineConfig holds chunking and map/reduce configuration
type PipelineConfig struct {
	ChunkSize       int
	ChunkOverlap    int
	WorkerPool      int
	SafetyMargin    time.Duration
	MapMaxTokens    int32
	ReduceMaxTokens int32
	MergeMaxTokens  int32
	DebugChunks     bool
}

// ValidationConfig locates the CVM reference dataset in object storage
type ValidationConfig struct {
	CVMBucket string
	CVMKey    string
}

// ReportConfig controls divergence-report output
type ReportConfig struct {
	Prefix string
	XLSX   bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	cfg := &Config{
		Model: ModelConfig{
			Provider:    getEnv("MODEL_PROVIDER", "bedrock"),
			ModelID:     getEnv("MODEL_ID", "amazon.nova-lite-v1:0"),
			Region:      getEnv("MODEL_REGION", "us-east-1"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			MaxRetries:  getEnvAsInt("MODEL_MAX_RETRIES", 3),
			RetryBase:   getEnvAsDuration("MODEL_RETRY_BASE", 2*time.Second),
			Exponential: getEnvAsBool("MODEL_RETRY_EXPONENTIAL", false),
			Temperature: getEnvAsFloat32("MODEL_TEMPERATURE", 0.0),
		},
		Pipeline: PipelineConfig{
			ChunkSize:       getEnvAsInt("CHUNK_SIZE", 2000),
			ChunkOverlap:    getEnvAsInt("CHUNK_OVERLAP", 200),
			WorkerPool:      getEnvAsInt("WORKER_POOL_SIZE", 4),
			SafetyMargin:    getEnvAsDuration("MAP_SAFETY_MARGIN", 10*time.Second),
			MapMaxTokens:    getEnvAsInt32("MAP_MAX_TOKENS", 256),
			ReduceMaxTokens: getEnvAsInt32("REDUCE_MAX_TOKENS", 8192),
			MergeMaxTokens:  getEnvAsInt32("MERGE_MAX_TOKENS", 8192),
			DebugChunks:     getEnvAsBool("DEBUG_CHUNKS", false),
		},
		Validation: ValidationConfig{
			CVMBucket: getEnv("CVM_BUCKET", ""),
			CVMKey:    getEnv("CVM_KEY", ""),
		},
		Report: ReportConfig{
			Prefix: getEnv("REPORT_PREFIX", ""),
			XLSX:   getEnvAsBool("REPORT_XLSX", false),
		},
	}
	// A misconfigured pool size must not disable the map stage.
	if cfg.Pipeline.WorkerPool <= 0 {
		cfg.Pipeline.WorkerPool = 4
	}
	if cfg.Model.MaxRetries <= 0 {
		cfg.Model.MaxRetries = 3
	}
	return cfg
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
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

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
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
