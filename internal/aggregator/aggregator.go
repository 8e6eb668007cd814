package aggregator

import (
	"fmt"
	"time"

	"FareWatch/internal/model"
	"FareWatch/internal/store"
)

// Aggregator computes read-only derived views over the price store for
// digest and report generation.
type Aggregator struct {
	store store.Store
}

// New creates an Aggregator reading from the given store.
func New(st store.Store) *Aggregator {
	return &Aggregator{store: st}
}

// WeekBounds returns the Monday and Sunday of the week containing ref.
func WeekBounds(ref time.Time) (monday, sunday time.Time) {
	offset := (int(ref.Weekday()) + 6) % 7 // Monday = 0
	monday = time.Date(ref.Year(), ref.Month(), ref.Day(), 0, 0, 0, 0, ref.Location()).
		AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}

// LowestFareInWeek returns the lowest stored fare within the Monday–Sunday
// week containing ref. When no rows fall in that week it falls back to the
// lowest fare across the whole history; ok is false only when the store is
// entirely empty.
func (a *Aggregator) LowestFareInWeek(ref time.Time) (price int, ok bool, err error) {
	monday, sunday := WeekBounds(ref)
	points, err := a.store.GetRange(monday.Format(model.DateLayout), sunday.Format(model.DateLayout))
	if err != nil {
		return 0, false, fmt.Errorf("weekly lowest: %w", err)
	}
	if len(points) == 0 {
		stats, err := a.HistoricalExtremes()
		if err != nil {
			return 0, false, err
		}
		if stats.TotalRecords == 0 {
			return 0, false, nil
		}
		return stats.Lowest, true, nil
	}

	min := points[0].Price
	for _, p := range points[1:] {
		if p.Price < min {
			min = p.Price
		}
	}
	return min, true, nil
}

// HistoricalExtremes scans all stored rows and returns the all-time lowest
// and highest fares, the unweighted mean, and the record count. An empty
// history yields zero-count stats, not an error.
func (a *Aggregator) HistoricalExtremes() (model.PriceStats, error) {
	points, err := a.store.GetAll()
	if err != nil {
		return model.PriceStats{}, fmt.Errorf("historical extremes: %w", err)
	}
	if len(points) == 0 {
		return model.PriceStats{}, nil
	}

	stats := model.PriceStats{
		Lowest:       points[0].Price,
		Highest:      points[0].Price,
		TotalRecords: len(points),
	}
	sum := 0
	for _, p := range points {
		if p.Price < stats.Lowest {
			stats.Lowest = p.Price
		}
		if p.Price > stats.Highest {
			stats.Highest = p.Price
		}
		sum += p.Price
	}
	stats.Average = float64(sum) / float64(len(points))
	return stats, nil
}

// RecentTrend compares the oldest and newest fares among the nDays most
// recent rows. Fewer than 2 rows in that window is Insufficient.
func (a *Aggregator) RecentTrend(nDays int) (model.TrendDirection, error) {
	points, err := a.store.GetRecent(nDays)
	if err != nil {
		return model.TrendInsufficient, fmt.Errorf("recent trend: %w", err)
	}
	if len(points) < 2 {
		return model.TrendInsufficient, nil
	}

	// GetRecent is date-descending: last element is the oldest.
	first := points[len(points)-1].Price
	last := points[0].Price
	switch {
	case last > first:
		return model.TrendIncreasing, nil
	case last < first:
		return model.TrendDecreasing, nil
	default:
		return model.TrendFlat, nil
	}
}

// SignificantChanges returns the change-log entries whose absolute
// percentage meets thresholdPercent, largest magnitude first. This is the
// contract alert consumers rely on.
func (a *Aggregator) SignificantChanges(thresholdPercent float64) ([]model.PriceChange, error) {
	changes, err := a.store.GetChangesAboveThreshold(thresholdPercent)
	if err != nil {
		return nil, fmt.Errorf("significant changes: %w", err)
	}
	return changes, nil
}
