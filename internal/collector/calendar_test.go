package collector

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

const calendarFixture = `
<html><body>
<table class="lowest-price-calendar">
<tr>
<td>16<br>9,000円</td>
<td>17<br><span class="fare">8,500円</span></td>
<td>18 7,200円</td>
<td>19<br>60,000円</td>
<td>31<br>8,000円</td>
<td>&nbsp;</td>
</tr>
</table>
</body></html>`

func fixedNow() time.Time {
	return time.Date(2025, 6, 18, 12, 0, 0, 0, time.UTC)
}

func newTestFetcher(url string) *CalendarFetcher {
	f := NewCalendarFetcher(url, "2025-06", 1000, 50000, "")
	f.now = fixedNow
	return f
}

func TestExtract_CalendarCells(t *testing.T) {
	f := newTestFetcher("")

	batch := f.extract(calendarFixture)

	want := map[string]int{
		"2025-06-16": 9000,
		"2025-06-17": 8500,
		"2025-06-18": 7200,
	}
	if len(batch) != len(want) {
		t.Fatalf("expected %d entries, got %d: %+v", len(want), len(batch), batch)
	}
	for date, price := range want {
		if batch[date] != price {
			t.Errorf("%s: expected %d, got %d", date, price, batch[date])
		}
	}
	// The 60,000円 cell is outside the plausible range and June has no
	// 31st; neither may leak into the batch.
	if _, found := batch["2025-06-19"]; found {
		t.Error("implausible fare was not filtered")
	}
	if _, found := batch["2025-06-31"]; found {
		t.Error("invalid calendar day was not filtered")
	}
}

func TestExtract_PageWideFallback(t *testing.T) {
	f := newTestFetcher("")

	page := `<html><body><div>Night buses from 7,800円, weekend from 6,900円</div></body></html>`
	batch := f.extract(page)

	if len(batch) != 1 {
		t.Fatalf("expected a single fallback entry, got %+v", batch)
	}
	if batch["2025-06-18"] != 6900 {
		t.Fatalf("expected today's cheapest page-wide fare 6900, got %+v", batch)
	}
}

func TestExtract_NothingFound(t *testing.T) {
	f := newTestFetcher("")

	if batch := f.extract(`<html><body>maintenance</body></html>`); len(batch) != 0 {
		t.Fatalf("expected empty batch, got %+v", batch)
	}
}

func TestFetchCalendar_HTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(calendarFixture))
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	batch, err := f.FetchCalendar()
	if err != nil {
		t.Fatalf("fetch calendar: %v", err)
	}
	if len(batch) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(batch))
	}
}

func TestFetchCalendar_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := newTestFetcher(srv.URL)
	if _, err := f.FetchCalendar(); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
