package bot

import (
	"sort"
	"strings"
	"time"

	"schedbot/internal/schedule"
)

// FilterByDateRange keeps entries whose date falls inside [start, end]
// (inclusive, date precision). Entries with unparsable dates are dropped.
func FilterByDateRange(items []schedule.Entry, start, end time.Time) []schedule.Entry {
	out := make([]schedule.Entry, 0, len(items))
	for _, it := range items {
		d, err := time.Parse(schedule.DateLayout, it.Date)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		out = append(out, it)
	}
	return out
}

// FormatPeriod renders a date-grouped plain-text view:
//
//	<title>
//
//	2025-09-08
//	• 10:00–11:30 История (B1) — Иванов И.
//
// Entries are sorted by (date, start). Empty input yields "Нет занятий.".
func FormatPeriod(items []schedule.Entry, title string) string {
	if len(items) == 0 {
		return title + "\nНет занятий."
	}

	sorted := append([]schedule.Entry(nil), items...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Date != sorted[j].Date {
			return sorted[i].Date < sorted[j].Date
		}
		return sorted[i].Start < sorted[j].Start
	})

	lines := []string{title}
	prevDate := ""
	for _, it := range sorted {
		if it.Date != prevDate {
			lines = append(lines, "", it.Date)
			prevDate = it.Date
		}
		line := "• " + it.Start + "–" + it.End + " " + it.Title
		if it.Room != "" {
			line += " (" + it.Room + ")"
		}
		if s := strings.TrimSpace(it.Instructor); s != "" {
			line += " — " + s
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// periodRequest maps a reply-keyboard label or slash-command alias to a view
// request. Labels match case-insensitively.
func periodRequest(text string) (title string, offset int, week bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(text)) {
	case "сегодня", "/today":
		return "Расписание на сегодня", 0, false, true
	case "завтра", "/tomorrow":
		return "Расписание на завтра", 1, false, true
	case "эта неделя", "/week":
		return "Расписание на эту неделю", 0, true, true
	case "следующая неделя", "/nextweek":
		return "Расписание на следующую неделю", 1, true, true
	}
	return "", 0, false, false
}

// dayBounds returns the [start, end] date range for an offset in days from
// today in loc, truncated to date precision.
func dayBounds(now time.Time, offsetDays int) (time.Time, time.Time) {
	d := now.AddDate(0, 0, offsetDays)
	day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
	return day, day
}

// weekBounds returns Monday..Sunday of the week containing now plus
// offsetWeeks.
func weekBounds(now time.Time, offsetWeeks int) (time.Time, time.Time) {
	weekday := int(now.Weekday())
	if weekday == 0 {
		weekday = 7 // Sunday
	}
	monday := now.AddDate(0, 0, -(weekday-1)+7*offsetWeeks)
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 0, 6)
}
