package collector

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"FareWatch/internal/model"
)

var (
	cellRe  = regexp.MustCompile(`(?s)<td[^>]*>(.*?)</td>`)
	tagRe   = regexp.MustCompile(`<[^>]+>`)
	dayRe   = regexp.MustCompile(`^(\d{1,2})\b`)
	priceRe = regexp.MustCompile(`(\d{1,2},?\d{3})(?:円|¥)`)
)

// CalendarFetcher scrapes a monthly fare-calendar page over plain HTTP.
// Each calendar cell carries a day number and that day's lowest fare; the
// page is noisy, so fares outside the plausible range are dropped here
// before they ever reach the store.
type CalendarFetcher struct {
	Client  *http.Client
	URL     string
	Month   string // YYYY-MM; empty means the current month
	MinFare int
	MaxFare int

	now func() time.Time
}

// NewCalendarFetcher creates a calendar fetcher with optional proxy support.
func NewCalendarFetcher(pageURL, month string, minFare, maxFare int, proxyURL string) *CalendarFetcher {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &CalendarFetcher{
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		URL:     pageURL,
		Month:   month,
		MinFare: minFare,
		MaxFare: maxFare,
		now:     time.Now,
	}
}

func (f *CalendarFetcher) Name() string { return "calendar" }

// FetchCalendar downloads the fare page and extracts the date → fare map.
func (f *CalendarFetcher) FetchCalendar() (model.PriceBatch, error) {
	req, err := http.NewRequest("GET", f.URL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch calendar: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read calendar page: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("calendar page: status %d", resp.StatusCode)
	}

	batch := f.extract(string(body))
	if len(batch) == 0 {
		return nil, fmt.Errorf("no fares found on calendar page")
	}
	return batch, nil
}

// extract walks the calendar's table cells looking for a leading day
// number and a yen fare in the same cell. If no cell matches, it falls
// back to the cheapest fare anywhere on the page, keyed to today.
func (f *CalendarFetcher) extract(page string) model.PriceBatch {
	month := f.Month
	if month == "" {
		month = f.now().Format("2006-01")
	}

	batch := model.PriceBatch{}
	for _, m := range cellRe.FindAllStringSubmatch(page, -1) {
		text := strings.TrimSpace(tagRe.ReplaceAllString(m[1], " "))
		dayMatch := dayRe.FindStringSubmatch(text)
		if dayMatch == nil {
			continue
		}
		day, _ := strconv.Atoi(dayMatch[1])

		priceMatch := priceRe.FindStringSubmatch(text)
		if priceMatch == nil {
			continue
		}
		price, err := parseFare(priceMatch[1])
		if err != nil || !f.plausible(price) {
			continue
		}

		date := fmt.Sprintf("%s-%02d", month, day)
		if _, err := time.Parse(model.DateLayout, date); err != nil {
			continue // day number outside the month, e.g. trailing cells
		}
		batch[date] = price
	}

	if len(batch) > 0 {
		return batch
	}

	// Fallback: cheapest plausible fare anywhere on the page counts as
	// today's fare. Better a single reading than none.
	log.Println("[WARN] calendar cells not found, falling back to page-wide scan")
	lowest := 0
	for _, m := range priceRe.FindAllStringSubmatch(page, -1) {
		price, err := parseFare(m[1])
		if err != nil || !f.plausible(price) {
			continue
		}
		if lowest == 0 || price < lowest {
			lowest = price
		}
	}
	if lowest > 0 {
		batch[f.now().Format(model.DateLayout)] = lowest
	}
	return batch
}

func (f *CalendarFetcher) plausible(price int) bool {
	return price >= f.MinFare && price <= f.MaxFare
}

func parseFare(s string) (int, error) {
	return strconv.Atoi(strings.ReplaceAll(s, ",", ""))
}
