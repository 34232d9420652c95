// Package fetch acquires raw schedule entries from the external timetable
// sheet. The rest of the system only sees the Fetcher interface; the chromedp
// implementation lives in browser.go.
package fetch

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"schedbot/internal/schedule"
)

// Fetcher produces the current entry collection for one group. Ordering is
// whatever the source yields; the diff engine does not rely on it beyond
// within-day chronology.
type Fetcher interface {
	Fetch(ctx context.Context, group string) ([]schedule.Entry, error)
}

// Config points the fetcher at the timetable sheet.
type Config struct {
	URL      string
	Headless bool
	Timeout  time.Duration
}

// rawRow is one extracted table row before normalization.
type rawRow struct {
	Date    string `json:"date"`
	Time    string `json:"time"`
	Pair    string `json:"pair"`
	Title   string `json:"title"`
	Room    string `json:"room"`
	Teacher string `json:"teacher"`
	Raw     string `json:"raw"`
}

var (
	timeRange = regexp.MustCompile(`(\d{1,2}:\d{2})\s*[–-]\s*(\d{1,2}:\d{2})`)
	dottyDate = regexp.MustCompile(`^(\d{1,2})\.(\d{1,2})\.(\d{4})$`)
)

// normalizeDate accepts ISO dates as-is and converts "08.09.2025" to
// "2025-09-08". Anything else is returned empty.
func normalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(schedule.DateLayout, s); err == nil {
		return s
	}
	if m := dottyDate.FindStringSubmatch(s); m != nil {
		d, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		t := time.Date(mustAtoi(m[3]), time.Month(mo), d, 0, 0, 0, 0, time.UTC)
		return t.Format(schedule.DateLayout)
	}
	return ""
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// padTime turns "9:00" into "09:00" so wall-clock strings compare and parse
// uniformly.
func padTime(s string) string {
	if i := strings.Index(s, ":"); i == 1 {
		return "0" + s
	}
	return s
}

// mapRow converts an extracted row to a schedule entry. ok is false for rows
// missing the mandatory fields (header rows, filler cells).
func mapRow(r rawRow, addedAt string) (schedule.Entry, bool) {
	date := normalizeDate(r.Date)
	title := strings.TrimSpace(r.Title)
	m := timeRange.FindStringSubmatch(r.Time)
	if date == "" || title == "" || m == nil {
		return schedule.Entry{}, false
	}

	e := schedule.Entry{
		Date:       date,
		Start:      padTime(m[1]),
		End:        padTime(m[2]),
		Title:      title,
		Room:       strings.TrimSpace(r.Room),
		Instructor: strings.TrimSpace(r.Teacher),
		AddedAt:    addedAt,
		Raw:        strings.TrimSpace(r.Raw),
	}
	if n, err := strconv.Atoi(strings.TrimSpace(r.Pair)); err == nil && n > 0 {
		e.Pair = n
		e.PairLabel = strconv.Itoa(n) + " пара"
	}
	return e, true
}

// mapRows converts all extracted rows, dropping the unusable ones.
func mapRows(rows []rawRow, now time.Time) []schedule.Entry {
	addedAt := now.Format(schedule.DateLayout)
	out := make([]schedule.Entry, 0, len(rows))
	for _, r := range rows {
		if e, ok := mapRow(r, addedAt); ok {
			out = append(out, e)
		}
	}
	return out
}
