// Package stats derives dashboard figures from pack collection scans.
//
// Aggregate is pure: the same scans, count and options always give the
// same Summary. Range filtering is the caller's job (the scan query
// applies it); the range here only decides which days the series covers.
package stats

import (
	"math"
	"time"
)

// Scan is the minimum a collection record needs for aggregation
type Scan struct {
	CollectionDate time.Time
	NextDueDate    time.Time
}

// DateRange is an inclusive window of collection timestamps
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Options controls the clock-dependent parts of aggregation
type Options struct {
	// Range, when set, fixes the days covered by the daily series.
	Range *DateRange
	// Now anchors the current ISO week. Zero means time.Now().
	Now time.Time
	// Location is used for day boundaries and week start. Nil means time.Local.
	Location *time.Location
}

// DailyCount is one bucket of the collection series
type DailyCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// Summary is the dashboard statistics payload
type Summary struct {
	TotalCustomers   int          `json:"total_customers"`
	TotalCollections int          `json:"total_collections"`
	CollectionRate   float64      `json:"collection_rate"`
	DueThisWeek      int          `json:"due_this_week"`
	DailySeries      []DailyCount `json:"daily_series"`
}

// dayLayout is the calendar date key used in DailySeries
const dayLayout = "2006-01-02"

// Aggregate computes the dashboard summary for scans.
func Aggregate(scans []Scan, customerCount int, opts Options) Summary {
	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}

	summary := Summary{
		TotalCustomers:   customerCount,
		TotalCollections: len(scans),
		DailySeries:      []DailyCount{},
	}
	if len(scans) == 0 && opts.Range == nil {
		return summary
	}

	weekStart, weekEnd := isoWeek(now, loc)

	onTime := 0
	perDay := make(map[string]int, len(scans))
	var first, last time.Time

	for i, s := range scans {
		if !s.CollectionDate.After(s.NextDueDate) {
			onTime++
		}
		due := s.NextDueDate.In(loc)
		if !due.Before(weekStart) && due.Before(weekEnd) {
			summary.DueThisWeek++
		}

		day := startOfDay(s.CollectionDate, loc)
		perDay[day.Format(dayLayout)]++
		if i == 0 || day.Before(first) {
			first = day
		}
		if i == 0 || day.After(last) {
			last = day
		}
	}

	if summary.TotalCollections > 0 {
		summary.CollectionRate = roundOneDecimal(100 * float64(onTime) / float64(summary.TotalCollections))
	}

	if opts.Range != nil {
		first = startOfDay(opts.Range.Start, loc)
		last = startOfDay(opts.Range.End, loc)
	}
	summary.DailySeries = dailySeries(perDay, first, last)

	return summary
}

// LastNDays returns the range covering the n calendar days ending on now's day.
func LastNDays(now time.Time, n int, loc *time.Location) DateRange {
	if loc == nil {
		loc = time.Local
	}
	if n < 1 {
		n = 1
	}
	end := startOfDay(now, loc)
	return DateRange{
		Start: end.AddDate(0, 0, -(n - 1)),
		End:   end.AddDate(0, 0, 1).Add(-time.Nanosecond),
	}
}

// NextDueDate is the collection time plus weeks of supply, in whole weeks.
func NextDueDate(collection time.Time, weeksSupply int) time.Time {
	return collection.Add(time.Duration(weeksSupply) * 7 * 24 * time.Hour)
}

// dailySeries emits one bucket per calendar day from first to last
// inclusive. Days are stepped with AddDate so DST changes do not skip or
// repeat a date.
func dailySeries(perDay map[string]int, first, last time.Time) []DailyCount {
	series := []DailyCount{}
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := d.Format(dayLayout)
		series = append(series, DailyCount{Date: key, Count: perDay[key]})
	}
	return series
}

// isoWeek returns [Monday 00:00, next Monday 00:00) for the week containing t.
func isoWeek(t time.Time, loc *time.Location) (time.Time, time.Time) {
	day := startOfDay(t, loc)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	start := day.AddDate(0, 0, -offset)
	return start, start.AddDate(0, 0, 7)
}

func startOfDay(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

func roundOneDecimal(v float64) float64 {
	return math.Round(v*10) / 10
}
