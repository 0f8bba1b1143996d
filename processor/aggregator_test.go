package processor

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/pavanvara25/sw-challenge-fall-2024/models"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", value, err)
	}
	return ts
}

func cleanRec(t *testing.T, ts string, price float64, size int64) models.CleanRecord {
	t.Helper()
	parsed, err := time.Parse(models.TimestampLayout, ts)
	if err != nil {
		t.Fatalf("bad test timestamp %q: %v", ts, err)
	}
	return models.CleanRecord{Timestamp: parsed, Price: price, Size: size}
}

func TestAggregateSingleBucket(t *testing.T) {
	clean := []models.CleanRecord{
		cleanRec(t, "2024-01-02 09:31:00.000000", 10, 5),
		cleanRec(t, "2024-01-02 09:31:30.000000", 12, 3),
	}

	agg := NewAggregator(testConfig(1))
	bars, err := agg.Aggregate(clean,
		mustTime(t, "2024-01-02 09:31:00"),
		mustTime(t, "2024-01-02 09:32:00"),
		"1m")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(bars) != 1 {
		t.Fatalf("expected exactly 1 bar, got %d", len(bars))
	}
	bar := bars[0]
	if bar.Open != 10 || bar.High != 12 || bar.Low != 10 || bar.Close != 12 || bar.Volume != 8 {
		t.Fatalf("unexpected bar: %+v", bar)
	}
	if !bar.BucketStart.Equal(mustTime(t, "2024-01-02 09:31:00")) {
		t.Fatalf("unexpected bucket start: %v", bar.BucketStart)
	}
}

func TestAggregateWindowTooShort(t *testing.T) {
	agg := NewAggregator(testConfig(1))
	_, err := agg.Aggregate(nil,
		mustTime(t, "2024-01-02 09:00:00"),
		mustTime(t, "2024-01-02 10:00:00"),
		"2h")
	if !errors.Is(err, ErrWindowTooShort) {
		t.Fatalf("expected ErrWindowTooShort, got %v", err)
	}
}

func TestAggregateInvalidInterval(t *testing.T) {
	agg := NewAggregator(testConfig(1))
	start := mustTime(t, "2024-01-02 09:00:00")
	end := mustTime(t, "2024-01-02 10:00:00")

	for _, text := range []string{"xyz", "1x", ""} {
		if _, err := agg.Aggregate(nil, start, end, text); !errors.Is(err, ErrInvalidInterval) {
			t.Errorf("interval %q: expected ErrInvalidInterval, got %v", text, err)
		}
	}
}

func TestAggregateSparseBuckets(t *testing.T) {
	clean := []models.CleanRecord{
		cleanRec(t, "2024-01-02 09:31:10.000000", 10, 1),
		cleanRec(t, "2024-01-02 09:33:20.000000", 11, 2),
	}

	agg := NewAggregator(testConfig(1))
	bars, err := agg.Aggregate(clean,
		mustTime(t, "2024-01-02 09:31:00"),
		mustTime(t, "2024-01-02 09:34:00"),
		"1m")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	// The 09:32 bucket is empty and must not appear.
	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if !bars[0].BucketStart.Equal(mustTime(t, "2024-01-02 09:31:00")) {
		t.Errorf("first bar bucket = %v", bars[0].BucketStart)
	}
	if !bars[1].BucketStart.Equal(mustTime(t, "2024-01-02 09:33:00")) {
		t.Errorf("second bar bucket = %v", bars[1].BucketStart)
	}
}

func TestAggregateWindowBounds(t *testing.T) {
	clean := []models.CleanRecord{
		// Before the window.
		cleanRec(t, "2024-01-02 09:30:59.000000", 50, 1),
		// Inside the only full bucket.
		cleanRec(t, "2024-01-02 09:31:30.000000", 10, 2),
		// Inside the trailing partial span [09:32:00, 09:32:30); no full
		// bucket covers it.
		cleanRec(t, "2024-01-02 09:32:10.000000", 20, 3),
	}

	agg := NewAggregator(testConfig(1))
	bars, err := agg.Aggregate(clean,
		mustTime(t, "2024-01-02 09:31:00"),
		mustTime(t, "2024-01-02 09:32:30"),
		"1m")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(bars) != 1 {
		t.Fatalf("expected 1 bar, got %d", len(bars))
	}
	if bars[0].Open != 10 || bars[0].Volume != 2 {
		t.Fatalf("unexpected bar: %+v", bars[0])
	}
}

func TestAggregateMultiWorkerMatchesSequential(t *testing.T) {
	base := mustTime(t, "2024-01-02 09:31:00")

	var clean []models.CleanRecord
	for i := 0; i < 120; i++ {
		ts := base.Add(time.Duration(i) * 5 * time.Second)
		clean = append(clean, models.CleanRecord{
			Timestamp: ts,
			Price:     100 + float64(i%7),
			Size:      int64(1 + i%3),
		})
	}

	start := base
	end := base.Add(10 * time.Minute)

	sequential, err := NewAggregator(testConfig(1)).Aggregate(clean, start, end, "1m")
	if err != nil {
		t.Fatalf("sequential Aggregate failed: %v", err)
	}

	for _, workers := range []int{2, 3, 8} {
		parallel, err := NewAggregator(testConfig(workers)).Aggregate(clean, start, end, "1m")
		if err != nil {
			t.Fatalf("workers=%d: Aggregate failed: %v", workers, err)
		}
		if len(parallel) != len(sequential) {
			t.Fatalf("workers=%d: %d bars, sequential has %d", workers, len(parallel), len(sequential))
		}
		for i := range sequential {
			if parallel[i] != sequential[i] {
				t.Fatalf("workers=%d: bar %d differs: %+v vs %+v", workers, i, parallel[i], sequential[i])
			}
		}
	}
}

func TestAggregateBucketSplitAcrossWorkers(t *testing.T) {
	// Four trades in the same bucket, split over two partitions. The
	// merge must produce a single bar with globally correct fields.
	clean := []models.CleanRecord{
		cleanRec(t, "2024-01-02 09:31:01.000000", 10, 1),
		cleanRec(t, "2024-01-02 09:31:10.000000", 15, 2),
		cleanRec(t, "2024-01-02 09:31:20.000000", 5, 3),
		cleanRec(t, "2024-01-02 09:31:30.000000", 12, 4),
	}

	bars, err := NewAggregator(testConfig(2)).Aggregate(clean,
		mustTime(t, "2024-01-02 09:31:00"),
		mustTime(t, "2024-01-02 09:32:00"),
		"1m")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}

	if len(bars) != 1 {
		t.Fatalf("expected 1 merged bar, got %d", len(bars))
	}
	bar := bars[0]
	if bar.Open != 10 {
		t.Errorf("open = %v, want 10", bar.Open)
	}
	if bar.High != 15 {
		t.Errorf("high = %v, want 15", bar.High)
	}
	if bar.Low != 5 {
		t.Errorf("low = %v, want 5", bar.Low)
	}
	if bar.Close != 12 {
		t.Errorf("close = %v, want 12", bar.Close)
	}
	if bar.Volume != 10 {
		t.Errorf("volume = %v, want 10", bar.Volume)
	}
}

func TestAggregateCloseTieAcrossWorkers(t *testing.T) {
	// Two trades share one timestamp and land in different partitions at
	// workers=2. The later-input record must win the close regardless of
	// the worker count.
	clean := []models.CleanRecord{
		cleanRec(t, "2024-01-02 09:31:30.000000", 10, 1),
		cleanRec(t, "2024-01-02 09:31:30.000000", 20, 2),
	}
	start := mustTime(t, "2024-01-02 09:31:00")
	end := mustTime(t, "2024-01-02 09:32:00")

	for _, workers := range []int{1, 2} {
		bars, err := NewAggregator(testConfig(workers)).Aggregate(clean, start, end, "1m")
		if err != nil {
			t.Fatalf("workers=%d: Aggregate failed: %v", workers, err)
		}
		if len(bars) != 1 {
			t.Fatalf("workers=%d: expected 1 bar, got %d", workers, len(bars))
		}
		if bars[0].Close != 20 {
			t.Errorf("workers=%d: close = %v, want 20", workers, bars[0].Close)
		}
		if bars[0].Open != 10 {
			t.Errorf("workers=%d: open = %v, want 10", workers, bars[0].Open)
		}
		if bars[0].Volume != 3 {
			t.Errorf("workers=%d: volume = %v, want 3", workers, bars[0].Volume)
		}
	}
}

func TestAggregateBarsSorted(t *testing.T) {
	base := mustTime(t, "2024-01-02 09:31:00")

	// Records deliberately out of time order.
	var clean []models.CleanRecord
	for i := 9; i >= 0; i-- {
		clean = append(clean, models.CleanRecord{
			Timestamp: base.Add(time.Duration(i) * time.Minute),
			Price:     100,
			Size:      1,
		})
	}

	bars, err := NewAggregator(testConfig(4)).Aggregate(clean, base, base.Add(10*time.Minute), "1m")
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(bars) != 10 {
		t.Fatalf("expected 10 bars, got %d", len(bars))
	}
	for i := 1; i < len(bars); i++ {
		if !bars[i-1].BucketStart.Before(bars[i].BucketStart) {
			t.Fatalf("bars not sorted at %d", i)
		}
	}
}

func ExampleAggregator_Aggregate() {
	cfg := testConfig(1)
	ts1, _ := time.Parse(models.TimestampLayout, "2024-01-02 09:31:00.000000")
	ts2, _ := time.Parse(models.TimestampLayout, "2024-01-02 09:31:30.000000")
	start, _ := time.Parse("2006-01-02 15:04:05", "2024-01-02 09:31:00")
	end, _ := time.Parse("2006-01-02 15:04:05", "2024-01-02 09:32:00")

	bars, _ := NewAggregator(cfg).Aggregate([]models.CleanRecord{
		{Timestamp: ts1, Price: 10, Size: 5},
		{Timestamp: ts2, Price: 12, Size: 3},
	}, start, end, "1m")

	fmt.Printf("open=%v high=%v low=%v close=%v volume=%v\n",
		bars[0].Open, bars[0].High, bars[0].Low, bars[0].Close, bars[0].Volume)
	// Output: open=10 high=12 low=10 close=12 volume=8
}
