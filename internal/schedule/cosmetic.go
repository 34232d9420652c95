package schedule

import "strings"

// IsCosmeticOnly reports whether a modified pair differs only in formatting
// or annotation churn: equal canonical titles, equal normalized room sets,
// and equal trimmed instructor text. The source data reorders room lists and
// appends trailing markers (e.g. "г264" → "г264*") without an actual schedule
// change; such pairs are suppressed from user-visible diffs so notifications
// stay trustworthy.
func IsCosmeticOnly(old, new *Entry) bool {
	if old == nil || new == nil {
		return false
	}
	if CanonicalTitle(old.Title) != CanonicalTitle(new.Title) {
		return false
	}
	if canonicalRoomList(old.Room) != canonicalRoomList(new.Room) {
		return false
	}
	return strings.TrimSpace(old.Instructor) == strings.TrimSpace(new.Instructor)
}

// DropCosmetic returns d with cosmetic-only modified pairs removed, plus the
// dropped pairs for diagnostic logging. Added/Removed are shared, not copied.
func DropCosmetic(d DiffResult) (DiffResult, []Pair) {
	var kept, dropped []Pair
	for _, p := range d.Modified {
		if IsCosmeticOnly(p.Old, p.New) {
			dropped = append(dropped, p)
		} else {
			kept = append(kept, p)
		}
	}
	d.Modified = kept
	return d, dropped
}
