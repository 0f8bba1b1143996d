package processor

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	appconfig "github.com/pavanvara25/sw-challenge-fall-2024/config"
	"github.com/pavanvara25/sw-challenge-fall-2024/internal/interval"
	"github.com/pavanvara25/sw-challenge-fall-2024/internal/partition"
	"github.com/pavanvara25/sw-challenge-fall-2024/logger"
	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

var (
	// ErrInvalidInterval reports an interval string that cannot be parsed
	// or that yields a non-positive duration.
	ErrInvalidInterval = errors.New("invalid interval")

	// ErrWindowTooShort reports an aggregation window shorter than one
	// interval.
	ErrWindowTooShort = errors.New("window shorter than interval")
)

// Aggregator buckets cleaned records into fixed-width time intervals and
// computes one OHLCV bar per non-empty bucket.
//
// Records are partitioned by contiguous index range across a fixed pool
// of workers. Each worker folds its own chunk into per-bucket partial
// aggregates and deposits them in its own result slot; after the barrier
// join the driver reduces the partials with an associative merge
// (first-by-time open, max high, min low, last-by-time close, summed
// volume), so every bucket yields exactly one globally consistent bar no
// matter how its trades were split across partitions.
type Aggregator struct {
	config *appconfig.Config
	log    *logger.Log
}

func NewAggregator(cfg *appconfig.Config) *Aggregator {
	return &Aggregator{config: cfg, log: logger.GetLogger()}
}

// bucketAgg accumulates the partial OHLCV state of one bucket over a
// single worker's chunk. firstTS and lastTS carry the timestamps the open
// and close were taken from so partials merge associatively.
type bucketAgg struct {
	open, high, low, close float64
	volume                 float64
	firstTS, lastTS        time.Time
}

// Aggregate computes OHLCV bars for the half-open window [start, end) at
// the width given by intervalText. Bucket boundaries are start + k*width;
// a trailing span shorter than one interval is not bucketed. Bars are
// returned sorted by bucket start. Returns ErrInvalidInterval or
// ErrWindowTooShort on bad parameters; both are recoverable by the caller
// supplying corrected values.
func (a *Aggregator) Aggregate(clean []models.CleanRecord, start, end time.Time, intervalText string) ([]models.OhlcvBar, error) {
	width, err := interval.Parse(intervalText)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterval, err)
	}
	if width <= 0 {
		return nil, fmt.Errorf("%w: %q yields a non-positive duration", ErrInvalidInterval, intervalText)
	}
	if end.Sub(start) < width {
		return nil, fmt.Errorf("%w: window %v, interval %v", ErrWindowTooShort, end.Sub(start), width)
	}

	workers := a.config.Aggregator.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	buckets := int64(end.Sub(start) / width)

	log := a.log.WithComponent("aggregator").WithFields(logger.Fields{
		"records":  len(clean),
		"workers":  workers,
		"buckets":  buckets,
		"interval": width.String(),
	})
	log.Info("starting aggregation stage")

	began := time.Now()
	parts := partition.Split(clean, workers)
	partials := make([]map[int64]*bucketAgg, len(parts))

	var wg sync.WaitGroup
	for i, part := range parts {
		wg.Add(1)
		go func(i int, part []models.CleanRecord) {
			defer wg.Done()
			partials[i] = aggregateChunk(part, start, width, buckets)
		}(i, part)
	}
	wg.Wait()

	// Fan-in: partials merge in partition index order, which keeps the
	// result deterministic regardless of goroutine completion order.
	merged := make(map[int64]*bucketAgg)
	for _, local := range partials {
		for k, agg := range local {
			cur, ok := merged[k]
			if !ok {
				cp := *agg
				merged[k] = &cp
				continue
			}
			cur.merge(agg)
		}
	}

	bars := make([]models.OhlcvBar, 0, len(merged))
	for k, agg := range merged {
		bars = append(bars, models.OhlcvBar{
			BucketStart: start.Add(time.Duration(k) * width),
			Open:        agg.open,
			High:        agg.high,
			Low:         agg.low,
			Close:       agg.close,
			Volume:      agg.volume,
		})
	}
	sort.Slice(bars, func(i, j int) bool { return bars[i].BucketStart.Before(bars[j].BucketStart) })

	log.WithFields(logger.Fields{
		"bars":        len(bars),
		"duration_ms": time.Since(began).Milliseconds(),
	}).Info("aggregation stage finished")
	a.log.LogMetric("aggregator", "bars_generated", len(bars), "counter", nil)

	return bars, nil
}

// aggregateChunk folds one contiguous chunk of records into per-bucket
// partial aggregates keyed by bucket index.
func aggregateChunk(part []models.CleanRecord, start time.Time, width time.Duration, buckets int64) map[int64]*bucketAgg {
	local := make(map[int64]*bucketAgg)
	for _, rec := range part {
		offset := rec.Timestamp.Sub(start)
		if offset < 0 {
			continue
		}
		k := int64(offset / width)
		if k >= buckets {
			continue
		}

		agg, ok := local[k]
		if !ok {
			local[k] = &bucketAgg{
				open:    rec.Price,
				high:    rec.Price,
				low:     rec.Price,
				close:   rec.Price,
				volume:  float64(rec.Size),
				firstTS: rec.Timestamp,
				lastTS:  rec.Timestamp,
			}
			continue
		}
		agg.observe(rec)
	}
	return local
}

func (b *bucketAgg) observe(rec models.CleanRecord) {
	if rec.Timestamp.Before(b.firstTS) {
		b.open = rec.Price
		b.firstTS = rec.Timestamp
	}
	// Equal timestamps: the later record in chunk order wins the close.
	if !rec.Timestamp.Before(b.lastTS) {
		b.close = rec.Price
		b.lastTS = rec.Timestamp
	}
	if rec.Price > b.high {
		b.high = rec.Price
	}
	if rec.Price < b.low {
		b.low = rec.Price
	}
	b.volume += float64(rec.Size)
}

// merge folds another partition's partial aggregate for the same bucket
// into b. Partials merge in partition index order, so other always holds
// later-input records; on equal timestamps other wins the close, matching
// the within-chunk rule in observe and keeping the result independent of
// the worker count.
func (b *bucketAgg) merge(other *bucketAgg) {
	if other.firstTS.Before(b.firstTS) {
		b.open = other.open
		b.firstTS = other.firstTS
	}
	if !other.lastTS.Before(b.lastTS) {
		b.close = other.close
		b.lastTS = other.lastTS
	}
	if other.high > b.high {
		b.high = other.high
	}
	if other.low < b.low {
		b.low = other.low
	}
	b.volume += other.volume
}
