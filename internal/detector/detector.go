package detector

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"FareWatch/internal/model"
	"FareWatch/internal/store"
)

// Detector applies scraped fare batches to the price store and collects
// the change events they produce.
type Detector struct {
	store store.Store
}

// New creates a Detector writing through the given store.
func New(st store.Store) *Detector {
	return &Detector{store: st}
}

// ApplyBatch upserts every (date, fare) pair from one scrape pass and
// returns only the resulting change events; first sightings of a date are
// stored but not reported. An empty batch is a no-op, not an error.
//
// Scraped data is noisy: entries the store rejects (bad date, non-positive
// fare) are skipped with a warning and the rest of the batch proceeds.
// Storage errors abort the batch; changes applied so far stay committed.
func (d *Detector) ApplyBatch(batch model.PriceBatch) ([]model.PriceChange, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	// Dates are independent, so order doesn't affect the stored state;
	// sorting just keeps logs and the change list stable.
	dates := make([]string, 0, len(batch))
	for date := range batch {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	var changes []model.PriceChange
	for _, date := range dates {
		price := batch[date]
		if price <= 0 {
			log.Printf("[WARN] skipping non-positive fare %d for %s", price, date)
			continue
		}
		res, err := d.store.Upsert(date, price)
		if err != nil {
			if errors.Is(err, store.ErrValidation) {
				log.Printf("[WARN] skipping rejected entry %s=%d: %v", date, price, err)
				continue
			}
			return changes, fmt.Errorf("apply batch: %w", err)
		}
		if res.Outcome == store.OutcomeUpdated && res.Change != nil {
			changes = append(changes, *res.Change)
		}
	}
	return changes, nil
}
