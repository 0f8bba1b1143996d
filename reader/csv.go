package reader

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	appconfig "github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/internal/partition"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

// Loader reads tick CSV files from the configured data directory and
// computes the price statistics consumed by the cleaning stage. Files are
// split into contiguous chunks across a fixed pool of workers; each
// worker accumulates records and price moments locally and merges into
// the shared result under a mutex held only for the final append.
type Loader struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewLoader(cfg *appconfig.Config) *Loader {
	return &Loader{config: cfg, log: logger.GetLogger()}
}

// priceMoments accumulates the running sums needed for the mean and
// population standard deviation of strictly positive, parsable prices.
type priceMoments struct {
	count int64
	sum   float64
	sumSq float64
}

func (m *priceMoments) observe(p float64) {
	m.count++
	m.sum += p
	m.sumSq += p * p
}

func (m *priceMoments) merge(other priceMoments) {
	m.count += other.count
	m.sum += other.sum
	m.sumSq += other.sumSq
}

func (m priceMoments) stats() models.PriceStats {
	if m.count == 0 {
		return models.PriceStats{}
	}
	mean := m.sum / float64(m.count)
	variance := m.sumSq/float64(m.count) - mean*mean
	if variance < 0 {
		variance = 0
	}
	return models.PriceStats{Mean: mean, StdDev: math.Sqrt(variance)}
}

// Load reads every .csv file under the data directory and returns the
// combined raw records together with the price statistics. Per-file read
// errors are logged and the file skipped; loading is best effort, like
// every later stage. Record order is worker merge order.
func (l *Loader) Load() ([]models.RawRecord, models.PriceStats, error) {
	dir := l.config.Reader.DataDir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, models.PriceStats{}, fmt.Errorf("failed to read data directory: %w", err)
	}

	files := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".csv") {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}

	workers := l.config.Reader.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	log := l.log.WithComponent("reader").WithFields(logger.Fields{
		"data_dir": dir,
		"files":    len(files),
		"workers":  workers,
	})
	log.Info("loading tick files")

	start := time.Now()

	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		records []models.RawRecord
		moments priceMoments
	)

	for _, chunk := range partition.Split(files, workers) {
		wg.Add(1)
		go func(chunk []string) {
			defer wg.Done()

			var local []models.RawRecord
			var localMoments priceMoments
			for _, path := range chunk {
				recs, err := l.loadFile(path, &localMoments)
				if err != nil {
					l.log.WithComponent("reader").WithError(err).WithFields(logger.Fields{
						"file": path,
					}).Warn("skipping unreadable tick file")
					continue
				}
				local = append(local, recs...)
			}

			mu.Lock()
			records = append(records, local...)
			moments.merge(localMoments)
			mu.Unlock()
		}(chunk)
	}
	wg.Wait()

	stats := moments.stats()
	log.WithFields(logger.Fields{
		"records":     len(records),
		"mean_price":  stats.Mean,
		"stddev":      stats.StdDev,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("tick files loaded")
	l.log.LogMetric("reader", "records_loaded", len(records), "counter", nil)

	return records, stats, nil
}

// loadFile parses one CSV file into raw records, skipping the header row.
// Strictly positive parsable prices feed the moment accumulator; rows
// themselves are kept verbatim for the cleaning stage to judge.
func (l *Loader) loadFile(path string, moments *priceMoments) ([]models.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	var records []models.RawRecord
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse csv row: %w", err)
		}

		rec := rawRecord(row)
		records = append(records, rec)

		if rec.Price != nil {
			if p, err := strconv.ParseFloat(*rec.Price, 64); err == nil && p > 0 {
				moments.observe(p)
			}
		}
	}
	return records, nil
}

// rawRecord maps one CSV row to a RawRecord. Missing or empty price and
// size fields become nil so the validator sees them as absent.
func rawRecord(row []string) models.RawRecord {
	var rec models.RawRecord
	if len(row) > 0 {
		rec.Timestamp = row[0]
	}
	if len(row) > 1 && row[1] != "" {
		price := row[1]
		rec.Price = &price
	}
	if len(row) > 2 && row[2] != "" {
		size := row[2]
		rec.Size = &size
	}
	return rec
}
