package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	appconfig "github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

// barTimestampLayout renders bucket starts at second resolution.
const barTimestampLayout = "2006-01-02 15:04:05"

// FileWriter persists pipeline outputs as delimited text files, plus the
// optional Parquet rendition of the OHLCV output.
type FileWriter struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewFileWriter(cfg *appconfig.Config) *FileWriter {
	return &FileWriter{config: cfg, log: logger.GetLogger()}
}

// WriteCombined dumps the raw records exactly as loaded, without a
// header, one row per record with absent fields left empty.
func (w *FileWriter) WriteCombined(path string, records []models.RawRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		price, size := "", ""
		if rec.Price != nil {
			price = *rec.Price
		}
		if rec.Size != nil {
			size = *rec.Size
		}
		rows = append(rows, []string{rec.Timestamp, price, size})
	}
	return w.writeCSV(path, nil, rows)
}

// WriteCleaned writes the cleaned records under the canonical
// Timestamp,Price,Size header.
func (w *FileWriter) WriteCleaned(path string, records []models.CleanRecord) error {
	rows := make([][]string, 0, len(records))
	for _, rec := range records {
		rows = append(rows, []string{
			rec.Timestamp.Format(models.TimestampLayout),
			strconv.FormatFloat(rec.Price, 'f', -1, 64),
			strconv.FormatInt(rec.Size, 10),
		})
	}
	return w.writeCSV(path, []string{"Timestamp", "Price", "Size"}, rows)
}

// WriteOhlcv writes one line per bar under the canonical
// Timestamp,Open,High,Low,Close,Volume header.
func (w *FileWriter) WriteOhlcv(path string, bars []models.OhlcvBar) error {
	rows := make([][]string, 0, len(bars))
	for _, bar := range bars {
		rows = append(rows, []string{
			bar.BucketStart.Format(barTimestampLayout),
			strconv.FormatFloat(bar.Open, 'f', -1, 64),
			strconv.FormatFloat(bar.High, 'f', -1, 64),
			strconv.FormatFloat(bar.Low, 'f', -1, 64),
			strconv.FormatFloat(bar.Close, 'f', -1, 64),
			strconv.FormatFloat(bar.Volume, 'f', -1, 64),
		})
	}
	return w.writeCSV(path, []string{"Timestamp", "Open", "High", "Low", "Close", "Volume"}, rows)
}

func (w *FileWriter) writeCSV(path string, header []string, rows [][]string) error {
	start := time.Now()

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if header != nil {
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to flush output file: %w", err)
	}

	w.log.WithComponent("writer").WithFields(logger.Fields{
		"file":        path,
		"rows":        len(rows),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("output file written")
	return nil
}
