package models

import "time"

// TimestampLayout is the canonical tick timestamp form with a mandatory
// six digit fractional second, e.g. "2024-01-02 09:31:00.000000".
const TimestampLayout = "2006-01-02 15:04:05.000000"

// RawRecord is one tick row exactly as loaded from disk. Price and Size
// are nil when the source field was absent. Raw records are never mutated
// after loading.
type RawRecord struct {
	Timestamp string
	Price     *string
	Size      *string
}

// Key returns the identity of the raw row used for duplicate detection:
// the exact pre-coercion (timestamp, price, size) triple.
func (r RawRecord) Key() string {
	price, size := "", ""
	if r.Price != nil {
		price = *r.Price
	}
	if r.Size != nil {
		size = *r.Size
	}
	return r.Timestamp + "\x00" + price + "\x00" + size
}

// CleanRecord is a tick that survived validation and coercion. Its price
// is non-negative and inside the acceptable band, and its time of day
// falls within trading hours.
type CleanRecord struct {
	Timestamp time.Time
	Price     float64
	Size      int64
}

// PriceStats holds the mean and population standard deviation computed
// over all strictly positive, parsable raw prices. It is immutable for
// the lifetime of one cleaning run.
type PriceStats struct {
	Mean   float64
	StdDev float64
}

// Bounds returns the acceptable price band [mean-2σ, mean+2σ].
func (s PriceStats) Bounds() (lower, upper float64) {
	return s.Mean - 2*s.StdDev, s.Mean + 2*s.StdDev
}

// OhlcvBar is the aggregate of all trades inside one time bucket. Buckets
// with no trades produce no bar.
type OhlcvBar struct {
	BucketStart time.Time
	Open        float64
	High        float64
	Low         float64
	Close       float64
	Volume      float64
}
