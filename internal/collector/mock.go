package collector

import (
	"time"

	"FareWatch/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
type MockFetcher struct {
	Calendar model.PriceBatch
	Err      error
}

func NewMockFetcher() *MockFetcher { return &MockFetcher{} }

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchCalendar() (model.PriceBatch, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Calendar != nil {
		return m.Calendar, nil
	}
	return generateMockCalendar(7200, 14), nil
}

func generateMockCalendar(baseFare, days int) model.PriceBatch {
	batch := model.PriceBatch{}
	today := time.Now()
	for i := 0; i < days; i++ {
		date := today.AddDate(0, 0, i).Format(model.DateLayout)
		batch[date] = baseFare + (i%5)*300
	}
	return batch
}
