package schedule

import (
	"regexp"
	"sort"
	"strings"
)

var (
	bracketTag  = regexp.MustCompile(`\s*\[[^\]]*\]\s*`)
	multiSpace  = regexp.MustCompile(`\s+`)
	starSuffix  = regexp.MustCompile(`\*+$`)
	roomITBadge = regexp.MustCompile(`it\*?$`)
)

// titleSegment is one "label room, room" part of a grouped title, as produced
// when several same-timeslot lessons are merged into a single cell.
type titleSegment struct {
	Label string
	Rooms []string
}

// parseGroupedTitle splits a grouped title like
// "Английский г264, г267; Немецкий г236" into labeled room lists.
// Best-effort: segments without a label token are skipped.
func parseGroupedTitle(title string) []titleSegment {
	var segs []titleSegment
	for _, part := range strings.Split(title, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		fields := strings.Fields(part)
		if len(fields) == 0 {
			continue
		}
		label := fields[0]
		rest := strings.TrimSpace(part[strings.Index(part, label)+len(label):])
		var rooms []string
		for _, r := range strings.Split(rest, ",") {
			if r = strings.TrimSpace(r); r != "" {
				rooms = append(rooms, r)
			}
		}
		segs = append(segs, titleSegment{Label: label, Rooms: rooms})
	}
	return segs
}

// normalizeRoom reduces a room code to its comparable form: whitespace
// collapsed, lowercased, trailing asterisk runs and the trailing "it"
// annotation stripped. "г264*" and "г264" compare equal.
func normalizeRoom(room string) string {
	s := strings.ToLower(collapseSpaces(room))
	s = starSuffix.ReplaceAllString(s, "")
	s = roomITBadge.ReplaceAllString(s, "")
	return strings.TrimSuffix(s, "it")
}

func collapseSpaces(s string) string {
	return strings.TrimSpace(multiSpace.ReplaceAllString(s, " "))
}

// CanonicalTitle reduces a title to its comparable form.
//
// The bracketed lesson-kind tag ("История [Сем]") is dropped first. If the
// remainder is a grouped multi-segment title, each segment's room list is
// normalized and sorted, segments are sorted by label, and the whole thing is
// rejoined; otherwise whitespace is collapsed. The result is lowercased
// either way, which makes the transform idempotent.
func CanonicalTitle(title string) string {
	base := strings.TrimSpace(bracketTag.ReplaceAllString(title, " "))
	if strings.Contains(base, ";") {
		if segs := parseGroupedTitle(base); len(segs) > 0 {
			for i := range segs {
				rooms := make([]string, 0, len(segs[i].Rooms))
				for _, r := range segs[i].Rooms {
					rooms = append(rooms, normalizeRoom(r))
				}
				sort.Strings(rooms)
				segs[i].Rooms = rooms
			}
			sort.SliceStable(segs, func(i, j int) bool {
				return strings.ToLower(segs[i].Label) < strings.ToLower(segs[j].Label)
			})
			parts := make([]string, 0, len(segs))
			for _, seg := range segs {
				if len(seg.Rooms) > 0 {
					parts = append(parts, seg.Label+" "+strings.Join(seg.Rooms, ", "))
				} else {
					parts = append(parts, seg.Label)
				}
			}
			return strings.ToLower(collapseSpaces(strings.Join(parts, "; ")))
		}
	}
	return strings.ToLower(collapseSpaces(base))
}

// canonicalRoomList splits a comma-separated room field, normalizes each
// room, and returns the sorted result joined back with commas. Used by the
// cosmetic-change filter to compare room sets order-insensitively.
func canonicalRoomList(room string) string {
	parts := strings.Split(room, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, normalizeRoom(p))
		}
	}
	sort.Strings(out)
	return strings.Join(out, ",")
}
