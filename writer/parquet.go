package writer

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/source"
	pqwriter "github.com/xitongsys/parquet-go/writer"

	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

// ohlcvParquetRow is the Parquet schema of one OHLCV bar. Timestamps are
// bucket starts in Unix microseconds.
type ohlcvParquetRow struct {
	Timestamp int64   `parquet:"name=timestamp, type=INT64"`
	Open      float64 `parquet:"name=open, type=DOUBLE"`
	High      float64 `parquet:"name=high, type=DOUBLE"`
	Low       float64 `parquet:"name=low, type=DOUBLE"`
	Close     float64 `parquet:"name=close, type=DOUBLE"`
	Volume    float64 `parquet:"name=volume, type=DOUBLE"`
}

// memoryFile implements source.ParquetFile over an in-memory buffer; the
// finished file is flushed to disk in one write.
type memoryFile struct {
	buffer *bytes.Buffer
}

func newMemoryFile() *memoryFile {
	return &memoryFile{buffer: &bytes.Buffer{}}
}

func (mf *memoryFile) Create(name string) (source.ParquetFile, error) { return mf, nil }
func (mf *memoryFile) Open(name string) (source.ParquetFile, error)   { return mf, nil }

func (mf *memoryFile) Seek(offset int64, whence int) (int64, error) {
	// Write-only usage; seeking is never exercised.
	return int64(mf.buffer.Len()), nil
}

func (mf *memoryFile) Read(b []byte) (int, error)  { return mf.buffer.Read(b) }
func (mf *memoryFile) Write(b []byte) (int, error) { return mf.buffer.Write(b) }
func (mf *memoryFile) Close() error                { return nil }

// WriteOhlcvParquet writes the bar sequence as a Parquet file. Enabled
// through writer.formats.parquet in the configuration.
func (w *FileWriter) WriteOhlcvParquet(path string, bars []models.OhlcvBar) error {
	mf := newMemoryFile()

	pw, err := pqwriter.NewParquetWriter(mf, new(ohlcvParquetRow), 1)
	if err != nil {
		return fmt.Errorf("failed to create parquet writer: %w", err)
	}
	pw.CompressionType = compressionCodec(w.config.Writer.Formats.Parquet.Compression)

	for _, bar := range bars {
		row := ohlcvParquetRow{
			Timestamp: bar.BucketStart.UnixMicro(),
			Open:      bar.Open,
			High:      bar.High,
			Low:       bar.Low,
			Close:     bar.Close,
			Volume:    bar.Volume,
		}
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}

	if err := os.WriteFile(path, mf.buffer.Bytes(), 0o644); err != nil {
		return fmt.Errorf("failed to write parquet file: %w", err)
	}

	w.log.WithComponent("writer").WithFields(logger.Fields{
		"file": path,
		"rows": len(bars),
	}).Info("parquet file written")
	return nil
}

func compressionCodec(name string) parquet.CompressionCodec {
	switch strings.ToLower(name) {
	case "gzip":
		return parquet.CompressionCodec_GZIP
	case "none", "uncompressed":
		return parquet.CompressionCodec_UNCOMPRESSED
	default:
		return parquet.CompressionCodec_SNAPPY
	}
}
