package config

import (
	"os"
	"testing"
)

// writeTempConfig creates a minimal configuration file required for
// LoadConfig and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "cfg-*.yml")
	if err != nil {
		t.Fatalf("create temp file: %v", err)
	}
	if _, err := f.WriteString(content); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("close temp file: %v", err)
	}
	return f.Name()
}

func TestLoadConfig(t *testing.T) {
	path := writeTempConfig(t, `pipeline:
  name: "TestApp"
  version: "1.0"
reader:
  data_dir: "ticks"
  max_workers: 4
cleaner:
  max_workers: 2
aggregator:
  max_workers: 2
storage:
  s3:
    enabled: false
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Pipeline.Name != "TestApp" {
		t.Errorf("unexpected name: %s", cfg.Pipeline.Name)
	}
	if cfg.Reader.DataDir != "ticks" {
		t.Errorf("unexpected data dir: %s", cfg.Reader.DataDir)
	}
	if cfg.Cleaner.MaxWorkers != 2 {
		t.Errorf("unexpected cleaner workers: %d", cfg.Cleaner.MaxWorkers)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeTempConfig(t, `pipeline:
  name: "TestApp"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Reader.DataDir != "data" {
		t.Errorf("default data dir = %s", cfg.Reader.DataDir)
	}
	if cfg.Cleaner.MaxWorkers != 8 || cfg.Aggregator.MaxWorkers != 8 {
		t.Errorf("default worker counts = %d/%d", cfg.Cleaner.MaxWorkers, cfg.Aggregator.MaxWorkers)
	}
	if cfg.Writer.OhlcvFile != "ohlcv_data.csv" {
		t.Errorf("default ohlcv file = %s", cfg.Writer.OhlcvFile)
	}
}

func TestLoadConfigMissingName(t *testing.T) {
	path := writeTempConfig(t, `reader:
  max_workers: 1
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for missing pipeline name")
	}
}

func TestLoadConfigS3Validation(t *testing.T) {
	path := writeTempConfig(t, `pipeline:
  name: "TestApp"
storage:
  s3:
    enabled: true
    bucket: "Bad_Bucket"
    region: "us-east-1"
`)

	if _, err := LoadConfig(path); err == nil {
		t.Fatalf("expected validation error for invalid bucket name")
	}
}

func TestLoadConfigCloudWatchIndependentOfS3(t *testing.T) {
	path := writeTempConfig(t, `pipeline:
  name: "TestApp"
storage:
  s3:
    enabled: false
logging:
  cloudwatch:
    enabled: true
    region: "eu-central-1"
    namespace: "TestSpace"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if !cfg.Logging.CloudWatch.Enabled {
		t.Fatalf("cloudwatch switch not parsed")
	}
	if cfg.Storage.S3.Enabled {
		t.Fatalf("s3 must stay disabled")
	}
	if cfg.Logging.CloudWatch.Region != "eu-central-1" || cfg.Logging.CloudWatch.Namespace != "TestSpace" {
		t.Errorf("unexpected cloudwatch settings: %+v", cfg.Logging.CloudWatch)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("S3_BUCKET", "bucket-from-env")
	t.Setenv("AWS_REGION", "eu-west-1")
	t.Setenv("AWS_ACCESS_KEY_ID", "")
	t.Setenv("AWS_SECRET_ACCESS_KEY", "")

	path := writeTempConfig(t, `pipeline:
  name: "TestApp"
storage:
  s3:
    enabled: true
    bucket: "bucket-from-file"
    region: "us-east-1"
`)

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Storage.S3.Bucket != "bucket-from-env" {
		t.Errorf("bucket = %s, want env override", cfg.Storage.S3.Bucket)
	}
	if cfg.Storage.S3.Region != "eu-west-1" {
		t.Errorf("region = %s, want env override", cfg.Storage.S3.Region)
	}
}
