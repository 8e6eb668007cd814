package model

import "time"

// DateLayout is the ISO calendar-date format used as the row key.
const DateLayout = "2006-01-02"

// DailyPrice is one stored row: the fare history for a single calendar date.
type DailyPrice struct {
	Date      string // YYYY-MM-DD
	MinPrice  int    // lowest fare ever observed for this date, never increases
	LastPrice int    // most recent fare observed for this date
	RawPrices string // JSON array of every distinct fare seen, audit only
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricePoint is a (date, fare) pair returned by recency and range queries.
// The fare is the date's minimum.
type PricePoint struct {
	Date  string
	Price int
}

// PriceChange is one append-only change-log entry, recorded when a known
// date is re-observed at a different fare than last time.
type PriceChange struct {
	Date             string
	OldPrice         int
	NewPrice         int
	ChangeAmount     int     // NewPrice - OldPrice, signed
	ChangePercentage float64 // ChangeAmount / OldPrice * 100
	CreatedAt        time.Time
}

// PriceBatch maps ISO dates to the fare observed in one scrape pass over
// the calendar page. Dates may lie in the past, today, or the future.
type PriceBatch map[string]int

// PriceStats summarizes the whole stored fare history.
type PriceStats struct {
	Lowest       int
	Highest      int
	Average      float64
	TotalRecords int
}

// TrendDirection classifies recent fare movement.
type TrendDirection string

const (
	TrendIncreasing   TrendDirection = "INCREASING"
	TrendDecreasing   TrendDirection = "DECREASING"
	TrendFlat         TrendDirection = "FLAT"
	TrendInsufficient TrendDirection = "INSUFFICIENT"
)
