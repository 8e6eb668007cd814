package store

import (
	"errors"

	"FareWatch/internal/model"
)

// Error classes callers branch on with errors.Is.
var (
	// ErrValidation marks input the store refuses to persist: a malformed
	// date key or a non-positive fare. Safe to skip and continue.
	ErrValidation = errors.New("validation failed")

	// ErrStorage marks the persistence medium being unreachable, locked,
	// or corrupt. Not recoverable within a cycle.
	ErrStorage = errors.New("storage failure")
)

// UpsertOutcome reports which of the three upsert paths was taken.
type UpsertOutcome int

const (
	OutcomeInserted UpsertOutcome = iota
	OutcomeUpdated
	OutcomeUnchanged
)

// UpsertResult describes what a single Upsert did.
type UpsertResult struct {
	Outcome UpsertOutcome
	Change  *model.PriceChange // set only when Outcome == OutcomeUpdated
}

// Store is the persistence interface for daily fares and the change log.
// It is the only component that touches persisted state; the detector and
// aggregator go through it.
type Store interface {
	// Upsert records one observed fare for a date. Unseen dates are
	// inserted. A differing fare for a known date updates the row and
	// appends a change-log entry. An identical fare is a no-op.
	Upsert(date string, price int) (*UpsertResult, error)

	// GetRecent returns the n most recent dates, ordered descending by
	// date. Fewer than n rows returns all of them.
	GetRecent(n int) ([]model.PricePoint, error)

	// GetRange returns all rows within the inclusive date range.
	GetRange(startDate, endDate string) ([]model.PricePoint, error)

	// GetAll returns every stored row, ordered ascending by date.
	GetAll() ([]model.PricePoint, error)

	// GetAllChanges returns the change log, newest first.
	GetAllChanges() ([]model.PriceChange, error)

	// GetChangesAboveThreshold returns change-log entries whose absolute
	// percentage meets the threshold, largest magnitude first, most
	// recent first among ties.
	GetChangesAboveThreshold(percentage float64) ([]model.PriceChange, error)

	// PruneOlderThan deletes fare rows dated before today minus days, and
	// change rows created before the same cutoff. Returns both counts,
	// zero or not.
	PruneOlderThan(days int) (deletedPrices, deletedChanges int, err error)

	Close() error
}
