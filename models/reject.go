package models

// RejectReason classifies why a raw record was dropped during cleaning.
// The zero value means the record passed every rule.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectMissingField
	RejectBadPrice
	RejectNegativePrice
	RejectPriceOutOfRange
	RejectBadTimestamp
	RejectOutOfHours
	RejectBadSize

	rejectReasonCount
)

var rejectReasonNames = [rejectReasonCount]string{
	RejectNone:            "none",
	RejectMissingField:    "missing_field",
	RejectBadPrice:        "unparsable_price",
	RejectNegativePrice:   "negative_price",
	RejectPriceOutOfRange: "price_out_of_range",
	RejectBadTimestamp:    "unparsable_timestamp",
	RejectOutOfHours:      "out_of_hours",
	RejectBadSize:         "unparsable_size",
}

func (r RejectReason) String() string {
	if r < 0 || r >= rejectReasonCount {
		return "unknown"
	}
	return rejectReasonNames[r]
}

// RejectCounts is a per-reason histogram of rows dropped by the cleaning
// stage. Rejects never surface as errors; the histogram makes the drops
// observable to the caller.
type RejectCounts [rejectReasonCount]int64

// Add records one rejection.
func (c *RejectCounts) Add(reason RejectReason) {
	if reason > RejectNone && reason < rejectReasonCount {
		c[reason]++
	}
}

// Merge folds another histogram into c.
func (c *RejectCounts) Merge(other RejectCounts) {
	for i := range c {
		c[i] += other[i]
	}
}

// Total returns the number of rejected rows across all reasons.
func (c RejectCounts) Total() int64 {
	var total int64
	for i := RejectNone + 1; i < rejectReasonCount; i++ {
		total += c[i]
	}
	return total
}

// Fields renders the histogram as log fields, one entry per non-zero
// reason.
func (c RejectCounts) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	for i := RejectNone + 1; i < rejectReasonCount; i++ {
		if c[i] > 0 {
			fields[RejectReason(i).String()] = c[i]
		}
	}
	return fields
}

// CleanResult is the outcome of one cleaning run: the surviving records,
// plus counts of everything that was dropped. Record order follows worker
// merge order, not input order.
type CleanResult struct {
	Records    []CleanRecord
	Rejects    RejectCounts
	Duplicates int64
}
