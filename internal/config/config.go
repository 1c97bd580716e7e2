package config

import (
	"Go2AdversaryLab/internal/model"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AnalysisConfig tunes how raw packets become feature values.
type AnalysisConfig struct {
	TimingBucketMs   float64 `yaml:"timing_bucket_ms"`
	EntropyPrecision int     `yaml:"entropy_precision"`
	SequenceOffset   int     `yaml:"sequence_offset"`
	SequenceLength   int     `yaml:"sequence_length"`
}

// ScoringConfig tunes dataset splitting and the classifier backend.
type ScoringConfig struct {
	EvaluationFraction float64 `yaml:"evaluation_fraction"`
	ValidationFraction float64 `yaml:"validation_fraction"`
	MinValidationRows  int     `yaml:"min_validation_rows"`
	// Seed fixes the split shuffles; 0 picks a random seed per process.
	Seed uint64 `yaml:"seed"`
}

// RedisConfig holds the connection details for the redis store.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// StoreConfig selects and configures the frequency store backend.
type StoreConfig struct {
	Type      string      `yaml:"type"`
	NumShards uint32      `yaml:"num_shards"`
	Redis     RedisConfig `yaml:"redis"`
}

// ArtifactsConfig controls where trained models are kept.
type ArtifactsConfig struct {
	RootPath  string `yaml:"root_path"`
	Compress  bool   `yaml:"compress"`
	CacheSize int    `yaml:"cache_size"`
}

// ClickHouseConfig holds the connection details for ClickHouse.
type ClickHouseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Database string `yaml:"database"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// WriterDef defines a single result writer.
type WriterDef struct {
	Type       string           `yaml:"type"`
	Enabled    bool             `yaml:"enabled"`
	RootPath   string           `yaml:"root_path"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
}

// NATSConfig holds the notification channel settings.
type NATSConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// APIConfig holds the listen addresses of the HTTP and gRPC servers.
type APIConfig struct {
	ListenAddr string `yaml:"listen_addr"`
	GRPCAddr   string `yaml:"grpc_addr"`
}

// LoggingConfig holds the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the top-level configuration struct for the entire application.
type Config struct {
	Processing model.ProcessingConfig `yaml:"processing"`
	Analysis   AnalysisConfig         `yaml:"analysis"`
	Scoring    ScoringConfig          `yaml:"scoring"`
	Store      StoreConfig            `yaml:"store"`
	Artifacts  ArtifactsConfig        `yaml:"artifacts"`
	Writers    []WriterDef            `yaml:"writers"`
	NATS       NATSConfig             `yaml:"nats"`
	API        APIConfig              `yaml:"api"`
	Logging    LoggingConfig          `yaml:"logging"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Processing: model.ProcessingConfig{
			DestructiveDrain: true,
			TrainingMode:     true,
			ModelGroupName:   "default",
		},
		Analysis: AnalysisConfig{
			TimingBucketMs:   1,
			EntropyPrecision: 1,
			SequenceOffset:   0,
			SequenceLength:   2,
		},
		Scoring: ScoringConfig{
			EvaluationFraction: 0.2,
			ValidationFraction: 0.05,
			MinValidationRows:  20,
		},
		Store: StoreConfig{
			Type:      "memory",
			NumShards: 64,
			Redis:     RedisConfig{Addr: "localhost:6379"},
		},
		Artifacts: ArtifactsConfig{
			RootPath:  "artifacts",
			Compress:  true,
			CacheSize: 64,
		},
		NATS: NATSConfig{
			URL:     "nats://127.0.0.1:4222",
			Subject: "adversarylab.events",
		},
		API: APIConfig{
			ListenAddr: ":8080",
			GRPCAddr:   ":9090",
		},
		Logging: LoggingConfig{Level: "INFO"},
	}
}

// LoadConfig reads the configuration from a YAML file on top of Default.
func LoadConfig(filePath string) (*Config, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal config YAML: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	if c.Scoring.EvaluationFraction <= 0 || c.Scoring.EvaluationFraction >= 1 {
		return fmt.Errorf("scoring.evaluation_fraction must be in (0,1), got %v", c.Scoring.EvaluationFraction)
	}
	if c.Scoring.ValidationFraction < 0 || c.Scoring.ValidationFraction >= 1 {
		return fmt.Errorf("scoring.validation_fraction must be in [0,1), got %v", c.Scoring.ValidationFraction)
	}
	if c.Analysis.TimingBucketMs <= 0 {
		return fmt.Errorf("analysis.timing_bucket_ms must be positive, got %v", c.Analysis.TimingBucketMs)
	}
	if c.Analysis.EntropyPrecision < 0 {
		return fmt.Errorf("analysis.entropy_precision must not be negative")
	}
	if c.Analysis.SequenceOffset < 0 || c.Analysis.SequenceLength <= 0 {
		return fmt.Errorf("analysis.sequence_offset must be >= 0 and sequence_length > 0")
	}
	switch c.Store.Type {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown store type: '%s'", c.Store.Type)
	}
	if c.Processing.ModelGroupName == "" {
		return fmt.Errorf("processing.model_group_name must not be empty")
	}
	return nil
}
