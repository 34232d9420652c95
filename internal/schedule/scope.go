package schedule

import "time"

// StartTime interprets an entry's date+start in loc. ok is false when either
// field is missing or unparsable.
func StartTime(e Entry, loc *time.Location) (time.Time, bool) {
	if e.Date == "" || e.Start == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(startLayout, e.Date+" "+e.Start, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FilterFuture keeps only entries whose start instant in loc is strictly
// after now. Entries with an unparsable date or start are dropped: treating
// them as not-yet-occurring would be unsafe, exclusion is the conservative
// choice. The input slice is never mutated.
func FilterFuture(entries []Entry, now time.Time, loc *time.Location) []Entry {
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if t, ok := StartTime(e, loc); ok && t.After(now) {
			out = append(out, e)
		}
	}
	return out
}
