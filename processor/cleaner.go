package processor

import (
	"math"
	"strconv"
	"sync"
	"time"

	appconfig "github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/internal/partition"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

// Trading hours, inclusive on both ends.
const (
	marketOpen  = 9*time.Hour + 30*time.Minute
	marketClose = 16 * time.Hour
)

// Cleaner validates, coerces and deduplicates raw tick records across a
// fixed pool of workers. Each worker filters one contiguous partition of
// the input; worker outputs are merged into one shared collection under a
// mutex held only for the final append.
type Cleaner struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewCleaner(cfg *appconfig.Config) *Cleaner {
	return &Cleaner{config: cfg, log: logger.GetLogger()}
}

// Clean runs the validation pipeline over raw and returns the surviving
// records together with a histogram of everything that was dropped. Row
// level failures never surface as errors. Result order follows worker
// completion order, not input order; callers must not depend on it.
//
// Duplicates are suppressed twice: inside each partition by the worker's
// own seen-set, and across partitions at merge time, so a raw triple
// split over two partitions still yields a single clean record.
func (c *Cleaner) Clean(raw []models.RawRecord, stats models.PriceStats) *models.CleanResult {
	workers := c.config.Cleaner.MaxWorkers
	if workers < 1 {
		workers = 1
	}

	log := c.log.WithComponent("cleaner").WithFields(logger.Fields{
		"records": len(raw),
		"workers": workers,
	})
	log.Info("starting cleaning stage")

	start := time.Now()
	result := &models.CleanResult{Records: make([]models.CleanRecord, 0, len(raw))}
	seen := make(map[string]struct{}, len(raw))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)

	for _, part := range partition.Split(raw, workers) {
		wg.Add(1)
		go func(part []models.RawRecord) {
			defer wg.Done()

			local := c.filterPartition(part, stats)

			mu.Lock()
			for i, key := range local.keys {
				if _, dup := seen[key]; dup {
					result.Duplicates++
					continue
				}
				seen[key] = struct{}{}
				result.Records = append(result.Records, local.records[i])
			}
			result.Rejects.Merge(local.rejects)
			result.Duplicates += local.duplicates
			mu.Unlock()
		}(part)
	}
	wg.Wait()

	log.WithFields(logger.Fields{
		"cleaned":     len(result.Records),
		"rejected":    result.Rejects.Total(),
		"duplicates":  result.Duplicates,
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("cleaning stage finished")

	if total := result.Rejects.Total(); total > 0 {
		log.WithFields(logger.Fields(result.Rejects.Fields())).Info("rejection histogram")
	}
	c.log.LogMetric("cleaner", "records_cleaned", len(result.Records), "counter", nil)
	c.log.LogMetric("cleaner", "records_rejected", result.Rejects.Total(), "counter", nil)

	return result
}

type partitionResult struct {
	records    []models.CleanRecord
	keys       []string
	rejects    models.RejectCounts
	duplicates int64
}

// filterPartition applies validation and within-partition duplicate
// suppression to one contiguous chunk of raw records.
func (c *Cleaner) filterPartition(part []models.RawRecord, stats models.PriceStats) partitionResult {
	lower, upper := stats.Bounds()
	seen := make(map[string]struct{}, len(part))

	var res partitionResult
	for _, rec := range part {
		clean, reason := validate(rec, lower, upper)
		if reason != models.RejectNone {
			res.rejects.Add(reason)
			continue
		}
		key := rec.Key()
		if _, dup := seen[key]; dup {
			res.duplicates++
			continue
		}
		seen[key] = struct{}{}
		res.records = append(res.records, clean)
		res.keys = append(res.keys, key)
	}
	return res
}

// validate classifies one raw record. The rules run in a fixed order and
// the first failure wins:
//
//  1. missing timestamp, price or size
//  2. unparsable price
//  3. negative price
//  4. price outside [mean-2σ, mean+2σ]
//  5. unparsable timestamp
//  6. time of day outside trading hours
//  7. unparsable size
//
// RejectNone means the record passed and clean holds the coerced fields.
// Pure and deterministic; no side effects.
func validate(rec models.RawRecord, lower, upper float64) (clean models.CleanRecord, reason models.RejectReason) {
	if rec.Timestamp == "" || rec.Price == nil || rec.Size == nil {
		return clean, models.RejectMissingField
	}

	price, err := strconv.ParseFloat(*rec.Price, 64)
	if err != nil {
		return clean, models.RejectBadPrice
	}
	if price < 0 {
		return clean, models.RejectNegativePrice
	}
	// NaN compares false against both bounds; treat it as out of range.
	if math.IsNaN(price) || price < lower || price > upper {
		return clean, models.RejectPriceOutOfRange
	}

	ts, err := time.Parse(models.TimestampLayout, rec.Timestamp)
	if err != nil {
		return clean, models.RejectBadTimestamp
	}
	tod := time.Duration(ts.Hour())*time.Hour +
		time.Duration(ts.Minute())*time.Minute +
		time.Duration(ts.Second())*time.Second +
		time.Duration(ts.Nanosecond())
	if tod < marketOpen || tod > marketClose {
		return clean, models.RejectOutOfHours
	}

	size, err := strconv.ParseInt(*rec.Size, 10, 64)
	if err != nil {
		return clean, models.RejectBadSize
	}

	return models.CleanRecord{Timestamp: ts, Price: price, Size: size}, models.RejectNone
}
