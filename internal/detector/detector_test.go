package detector

import (
	"path/filepath"
	"testing"

	"FareWatch/internal/model"
	"FareWatch/internal/store"
)

func newTestDetector(t *testing.T) (*Detector, store.Store) {
	t.Helper()
	st, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "fares.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(st), st
}

func TestApplyBatch_Empty(t *testing.T) {
	d, st := newTestDetector(t)

	changes, err := d.ApplyBatch(model.PriceBatch{})
	if err != nil {
		t.Fatalf("empty batch must not error: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %d", len(changes))
	}
	rows, err := st.GetRecent(1)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(rows) != 0 {
		t.Fatal("empty batch must not mutate the store")
	}
}

func TestApplyBatch_InsertsAreNotChanges(t *testing.T) {
	d, st := newTestDetector(t)

	changes, err := d.ApplyBatch(model.PriceBatch{
		"2025-06-18": 8000,
		"2025-06-19": 8200,
		"2025-06-20": 7900,
	})
	if err != nil {
		t.Fatalf("apply batch: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("first sightings must not be reported as changes, got %d", len(changes))
	}
	rows, err := st.GetRecent(10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 stored rows, got %d", len(rows))
	}
}

func TestApplyBatch_CollectsOnlyDifferingUpdates(t *testing.T) {
	d, _ := newTestDetector(t)

	first := model.PriceBatch{"2025-06-18": 8000, "2025-06-19": 8200}
	if _, err := d.ApplyBatch(first); err != nil {
		t.Fatalf("seed batch: %v", err)
	}

	// One date drops, one is re-scraped unchanged, one is brand new.
	changes, err := d.ApplyBatch(model.PriceBatch{
		"2025-06-18": 7200,
		"2025-06-19": 8200,
		"2025-06-20": 7500,
	})
	if err != nil {
		t.Fatalf("second batch: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected exactly 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.Date != "2025-06-18" || c.OldPrice != 8000 || c.NewPrice != 7200 || c.ChangeAmount != -800 {
		t.Errorf("unexpected change: %+v", c)
	}
}

func TestApplyBatch_SkipsNoisyEntries(t *testing.T) {
	d, st := newTestDetector(t)

	changes, err := d.ApplyBatch(model.PriceBatch{
		"garbage":    5000,
		"2025-06-18": -100,
		"2025-06-19": 0,
		"2025-06-20": 4500,
	})
	if err != nil {
		t.Fatalf("noisy batch must not abort: %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no changes, got %d", len(changes))
	}

	rows, err := st.GetRecent(10)
	if err != nil {
		t.Fatalf("get recent: %v", err)
	}
	if len(rows) != 1 || rows[0].Date != "2025-06-20" {
		t.Fatalf("expected only the valid entry stored, got %+v", rows)
	}
}
