package notifier

import (
	"fmt"
	"strings"
	"time"

	"FareWatch/internal/model"

	"github.com/dustin/go-humanize"
)

// DigestDays is how many recent dates the fare digest lists (two weeks).
const DigestDays = 14

func yen(v int) string {
	return "¥" + humanize.Comma(int64(v))
}

func signedYen(v int) string {
	if v > 0 {
		return "+¥" + humanize.Comma(int64(v))
	}
	if v < 0 {
		return "-¥" + humanize.Comma(int64(-v))
	}
	return "¥0"
}

func shortDate(iso string) string {
	d, err := time.Parse(model.DateLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01")
}

func longDate(iso string) string {
	d, err := time.Parse(model.DateLayout, iso)
	if err != nil {
		return iso
	}
	return d.Format("02/01/2006")
}

// FormatFareDigest renders the main per-cycle report: the week's lowest
// fare plus the most recent two weeks of dated fares, newest first.
func FormatFareDigest(route string, weeklyLowest int, hasLowest bool, recent []model.PricePoint, now time.Time) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚌 %s (%s)\n\n", route, now.Format("15:04 02/01/2006")))

	if !hasLowest {
		b.WriteString("🚍 No fares recorded yet")
		return b.String()
	}

	b.WriteString(fmt.Sprintf("💰 Lowest fare this week: %s\n", yen(weeklyLowest)))

	if len(recent) > 0 {
		b.WriteString("\n📅 Fares, last two weeks:\n")
		shown := recent
		if len(shown) > DigestDays {
			shown = shown[:DigestDays]
		}
		for _, p := range shown {
			b.WriteString(fmt.Sprintf("  %s: %s\n", shortDate(p.Date), yen(p.Price)))
		}
	}
	return b.String()
}

// FormatChangeAlert renders one significant change as its own message,
// direction keyed off the sign of the delta.
func FormatChangeAlert(c model.PriceChange) string {
	emoji, word := "📈", "up"
	if c.ChangeAmount < 0 {
		emoji, word = "📉", "down"
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s Bus fare %s!\n\n", emoji, word))
	b.WriteString(fmt.Sprintf("📅 Date: %s\n", longDate(c.Date)))
	b.WriteString(fmt.Sprintf("💴 Old fare: %s\n", yen(c.OldPrice)))
	b.WriteString(fmt.Sprintf("💰 New fare: %s\n", yen(c.NewPrice)))
	b.WriteString(fmt.Sprintf("📊 Change: %s (%+.1f%%)", signedYen(c.ChangeAmount), c.ChangePercentage))
	return b.String()
}

// FormatStatsReport renders the all-time statistics and recent trend.
func FormatStatsReport(stats model.PriceStats, trend model.TrendDirection) string {
	if stats.TotalRecords == 0 {
		return "📊 Fare statistics\n\nNo fares recorded yet."
	}

	var b strings.Builder
	b.WriteString("📊 Fare statistics\n\n")
	b.WriteString(fmt.Sprintf("Lowest ever: %s\n", yen(stats.Lowest)))
	b.WriteString(fmt.Sprintf("Highest ever: %s\n", yen(stats.Highest)))
	b.WriteString(fmt.Sprintf("Average: ¥%s\n", humanize.CommafWithDigits(stats.Average, 0)))
	b.WriteString(fmt.Sprintf("Records: %d\n", stats.TotalRecords))

	switch trend {
	case model.TrendIncreasing:
		b.WriteString("Recent trend: increasing 📈")
	case model.TrendDecreasing:
		b.WriteString("Recent trend: decreasing 📉")
	case model.TrendFlat:
		b.WriteString("Recent trend: flat ➡️")
	default:
		b.WriteString("Recent trend: not enough data")
	}
	return b.String()
}

// FormatChangeList renders the significant-change log for the /changes command.
func FormatChangeList(changes []model.PriceChange, thresholdPercent float64) string {
	if len(changes) == 0 {
		return fmt.Sprintf("No fare changes of %.0f%% or more recorded.", thresholdPercent)
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("📊 Significant fare changes (≥%.0f%%)\n\n", thresholdPercent))
	for _, c := range changes {
		emoji := "🔺"
		if c.ChangeAmount < 0 {
			emoji = "🔻"
		}
		b.WriteString(fmt.Sprintf("%s %s: %s → %s (%+.1f%%)\n",
			emoji, longDate(c.Date), yen(c.OldPrice), yen(c.NewPrice), c.ChangePercentage))
	}
	return b.String()
}

// FormatHealthStatus renders the bot's run health for the daily report
// and the /health command.
func FormatHealthStatus(lastSuccess time.Time, errorStreak, maxErrors int, now time.Time) string {
	lastRun := "Never"
	if !lastSuccess.IsZero() {
		lastRun = lastSuccess.Format("2006-01-02 15:04:05")
	}
	var b strings.Builder
	b.WriteString("🤖 Bus fare bot is running\n\n")
	b.WriteString(fmt.Sprintf("Time: %s\n", now.Format("2006-01-02 15:04:05")))
	b.WriteString(fmt.Sprintf("Last run: %s\n", lastRun))
	b.WriteString(fmt.Sprintf("Errors: %d/%d", errorStreak, maxErrors))
	return b.String()
}
