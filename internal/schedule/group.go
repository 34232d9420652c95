package schedule

import (
	"regexp"
	"strings"
)

var (
	leadingDigits = regexp.MustCompile(`^\d+`)
	nonAlnum      = regexp.MustCompile(`[^0-9A-Za-z]+`)
)

// GroupID extracts a short stable identifier from a group display name.
// "104б__Философия" becomes "104". Names without leading digits fall back to
// an ASCII-alnum slug; if nothing usable remains, "grp".
func GroupID(name string) string {
	s := strings.TrimSpace(name)
	if m := leadingDigits.FindString(s); m != "" {
		return m
	}
	slug := strings.ToLower(nonAlnum.ReplaceAllString(s, ""))
	if slug == "" {
		return "grp"
	}
	return slug
}
