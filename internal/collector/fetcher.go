package collector

import "FareWatch/internal/model"

// Fetcher defines the interface for producing one scrape batch: the
// forward-looking fare calendar as date → yen.
type Fetcher interface {
	FetchCalendar() (model.PriceBatch, error)
	Name() string
}
