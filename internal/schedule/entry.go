// Package schedule holds the timetable domain: entries, snapshots, and the
// change-detection core (fingerprinting, title canonicalization, diffing,
// cosmetic-change suppression, and future scoping).
package schedule

import "strings"

// Date/time layouts used across the timetable pipeline.
// All wall-clock values are naive; a timezone is applied only when an entry
// is compared against "now" (see FilterFuture).
const (
	DateLayout  = "2006-01-02"
	TimeLayout  = "15:04"
	startLayout = DateLayout + " " + TimeLayout
)

// Entry is one scheduled class occurrence.
//
// Date, Start, End and Title are always present. Everything else is optional
// and an empty string is equivalent to absence. Raw keeps the source cell text
// for diagnostics only; it never participates in comparisons.
//
// The JSON keys match the snapshot format produced by the extraction side
// (note: the instructor travels under the legacy key "teacher").
type Entry struct {
	Date       string `json:"date"`
	Start      string `json:"start"`
	End        string `json:"end"`
	Title      string `json:"title"`
	Room       string `json:"room,omitempty"`
	Instructor string `json:"teacher,omitempty"`
	GroupInfo  string `json:"group_info,omitempty"`
	AddedAt    string `json:"added_at,omitempty"`
	Pair       int    `json:"pair,omitempty"`
	PairLabel  string `json:"pair_label,omitempty"`
	Raw        string `json:"raw,omitempty"`
}

// Summary renders the one-line human form used in diff notifications:
// "date start–end title (room) — instructor".
func (e Entry) Summary() string {
	parts := make([]string, 0, 4)
	parts = append(parts, e.Date+" "+e.Start+"–"+e.End)
	if e.Title != "" {
		parts = append(parts, e.Title)
	}
	if e.Room != "" {
		parts = append(parts, "("+e.Room+")")
	}
	if s := strings.TrimSpace(e.Instructor); s != "" {
		parts = append(parts, "— "+s)
	}
	return strings.Join(parts, " ")
}
