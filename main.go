package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/processor"
	"github.com/pavanvara25/sw-challenge-fall-2024/reader"
	"github.com/pavanvara25/sw-challenge-fall-2024/writer"
)

// windowLayout is the second-resolution form the aggregation window is
// entered in.
const windowLayout = "2006-01-02 15:04:05"

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	dataDir := flag.String("data", "", "Override tick data directory")
	outDir := flag.String("out", "", "Override output directory")
	startArg := flag.String("start", "", "Window start (YYYY-MM-DD HH:MM:SS)")
	endArg := flag.String("end", "", "Window end (YYYY-MM-DD HH:MM:SS)")
	intervalArg := flag.String("interval", "", "Bar interval (e.g. '4s', '15m', '2h', '1d', '1h30m')")
	flag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.Reader.DataDir = *dataDir
	}
	if *outDir != "" {
		cfg.Writer.OutputDir = *outDir
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	if cfg.Logging.CloudWatch.Enabled {
		logger.InitCloudWatch(cfg.Logging.CloudWatch.Region, cfg.Logging.CloudWatch.Namespace)
	}

	runID := uuid.New().String()
	log.WithFields(logger.Fields{
		"service": cfg.Pipeline.Name,
		"version": cfg.Pipeline.Version,
		"run_id":  runID,
	}).Info("starting tick pipeline run")

	loader := reader.NewLoader(cfg)
	raw, stats, err := loader.Load()
	if err != nil {
		log.WithError(err).Error("failed to load tick data")
		os.Exit(1)
	}

	if err := os.MkdirAll(cfg.Writer.OutputDir, 0o755); err != nil {
		log.WithError(err).Error("failed to create output directory")
		os.Exit(1)
	}

	fw := writer.NewFileWriter(cfg)
	combinedPath := filepath.Join(cfg.Writer.OutputDir, cfg.Writer.CombinedFile)
	if err := fw.WriteCombined(combinedPath, raw); err != nil {
		log.WithError(err).Error("failed to write combined data")
		os.Exit(1)
	}

	cleaner := processor.NewCleaner(cfg)
	result := cleaner.Clean(raw, stats)

	cleanedPath := filepath.Join(cfg.Writer.OutputDir, cfg.Writer.CleanedFile)
	if err := fw.WriteCleaned(cleanedPath, result.Records); err != nil {
		log.WithError(err).Error("failed to write cleaned data")
		os.Exit(1)
	}

	in := bufio.NewReader(os.Stdin)
	start, err := resolveTime(in, *startArg, "Enter the start time (YYYY-MM-DD HH:MM:SS): ")
	if err != nil {
		log.WithError(err).Error("invalid start time")
		os.Exit(1)
	}
	end, err := resolveTime(in, *endArg, "Enter the end time (YYYY-MM-DD HH:MM:SS): ")
	if err != nil {
		log.WithError(err).Error("invalid end time")
		os.Exit(1)
	}
	intervalText, err := resolveValue(in, *intervalArg, "Enter the time interval (e.g. '4s', '15m', '2h', '1d', '1h30m'): ")
	if err != nil {
		log.WithError(err).Error("failed to read interval")
		os.Exit(1)
	}

	agg := processor.NewAggregator(cfg)
	bars, err := agg.Aggregate(result.Records, start, end, intervalText)
	if err != nil {
		switch {
		case errors.Is(err, processor.ErrInvalidInterval):
			log.WithError(err).Error("interval rejected")
		case errors.Is(err, processor.ErrWindowTooShort):
			log.WithError(err).Error("window rejected")
		default:
			log.WithError(err).Error("aggregation failed")
		}
		os.Exit(1)
	}

	outputs := []string{combinedPath, cleanedPath}

	ohlcvPath := filepath.Join(cfg.Writer.OutputDir, cfg.Writer.OhlcvFile)
	if err := fw.WriteOhlcv(ohlcvPath, bars); err != nil {
		log.WithError(err).Error("failed to write OHLCV data")
		os.Exit(1)
	}
	outputs = append(outputs, ohlcvPath)

	if cfg.Writer.Formats.Parquet.Enabled {
		parquetPath := strings.TrimSuffix(ohlcvPath, filepath.Ext(ohlcvPath)) + ".parquet"
		if err := fw.WriteOhlcvParquet(parquetPath, bars); err != nil {
			log.WithError(err).Error("failed to write OHLCV parquet")
			os.Exit(1)
		}
		outputs = append(outputs, parquetPath)
	}

	if cfg.Storage.S3.Enabled {
		uploader, err := writer.NewUploader(cfg)
		if err != nil {
			log.WithError(err).Error("failed to create S3 uploader")
			os.Exit(1)
		}
		if err := uploader.UploadOutputs(context.Background(), runID, outputs...); err != nil {
			log.WithError(err).Warn("some outputs were not archived")
		}
	}

	log.WithFields(logger.Fields{
		"run_id": runID,
		"bars":   len(bars),
	}).Info("tick pipeline run completed")
}

// resolveValue returns the flag value when set, otherwise prompts on
// stdin, mirroring the interactive entry mode.
func resolveValue(in *bufio.Reader, value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	fmt.Print(prompt)
	line, err := in.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(line), nil
}

func resolveTime(in *bufio.Reader, value, prompt string) (time.Time, error) {
	text, err := resolveValue(in, value, prompt)
	if err != nil {
		return time.Time{}, err
	}
	ts, err := time.Parse(windowLayout, text)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected %q form: %w", windowLayout, err)
	}
	return ts, nil
}
