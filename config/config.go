package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Pipeline   PipelineConfig   `yaml:"pipeline"`
	Reader     ReaderConfig     `yaml:"reader"`
	Cleaner    CleanerConfig    `yaml:"cleaner"`
	Aggregator AggregatorConfig `yaml:"aggregator"`
	Writer     WriterConfig     `yaml:"writer"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type PipelineConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ReaderConfig struct {
	DataDir    string `yaml:"data_dir"`
	MaxWorkers int    `yaml:"max_workers"`
}

type CleanerConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type AggregatorConfig struct {
	MaxWorkers int `yaml:"max_workers"`
}

type WriterConfig struct {
	OutputDir    string        `yaml:"output_dir"`
	CombinedFile string        `yaml:"combined_file"`
	CleanedFile  string        `yaml:"cleaned_file"`
	OhlcvFile    string        `yaml:"ohlcv_file"`
	Formats      FormatsConfig `yaml:"formats"`
}

type FormatsConfig struct {
	Parquet ParquetConfig `yaml:"parquet"`
}

type ParquetConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Compression string `yaml:"compression"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled          bool    `yaml:"enabled"`
	Bucket           string  `yaml:"bucket"`
	Region           string  `yaml:"region"`
	Prefix           string  `yaml:"prefix"`
	AccessKeyID      string  `yaml:"access_key_id"`
	SecretAccessKey  string  `yaml:"secret_access_key"`
	UploadsPerSecond float64 `yaml:"uploads_per_second"`
}

type LoggingConfig struct {
	Level      string           `yaml:"level"`
	Format     string           `yaml:"format"`
	Output     string           `yaml:"output"`
	MaxAge     int              `yaml:"max_age"`
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{
		Reader:     ReaderConfig{DataDir: "data", MaxWorkers: 8},
		Cleaner:    CleanerConfig{MaxWorkers: 8},
		Aggregator: AggregatorConfig{MaxWorkers: 8},
		Writer: WriterConfig{
			OutputDir:    ".",
			CombinedFile: "combined_data.csv",
			CleanedFile:  "cleaned_data.csv",
			OhlcvFile:    "ohlcv_data.csv",
		},
		Logging: LoggingConfig{Level: "info", Format: "text", Output: "stdout"},
	}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override S3 settings from environment variables if available
	if config.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			config.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			config.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			config.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			config.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}

	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func validateConfig(cfg *Config) error {
	if cfg.Pipeline.Name == "" {
		return fmt.Errorf("pipeline.name is required")
	}

	if cfg.Reader.DataDir == "" {
		return fmt.Errorf("reader.data_dir is required")
	}
	if cfg.Reader.MaxWorkers <= 0 {
		return fmt.Errorf("reader.max_workers must be greater than 0")
	}

	if cfg.Cleaner.MaxWorkers <= 0 {
		return fmt.Errorf("cleaner.max_workers must be greater than 0")
	}
	if cfg.Aggregator.MaxWorkers <= 0 {
		return fmt.Errorf("aggregator.max_workers must be greater than 0")
	}

	if cfg.Writer.OutputDir == "" {
		return fmt.Errorf("writer.output_dir is required")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
