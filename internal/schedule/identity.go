package schedule

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// identityKey concatenates the comparison-relevant fields with a separator
// that cannot occur inside times or ISO dates. Provenance fields (AddedAt,
// Pair, Raw, ...) are deliberately excluded: two snapshots of the same
// occurrence must produce the same key.
func identityKey(e Entry) string {
	return strings.Join([]string{e.Date, e.Start, e.End, e.Title, e.Room, e.Instructor}, "|")
}

// Fingerprint returns the stable identity of an entry, used to test "is this
// the same occurrence" across two snapshots. It is a pure function of
// (date, start, end, title, room, instructor).
func Fingerprint(e Entry) string {
	sum := md5.Sum([]byte(identityKey(e)))
	return hex.EncodeToString(sum[:])
}

// softKey is the coarser grouping key used to re-pair an unmatched removal
// with an unmatched addition: same slot, same canonical subject. A room or
// instructor change keeps the soft key intact while the fingerprint differs.
func softKey(e Entry) string {
	return strings.Join([]string{e.Date, e.Start, e.End, CanonicalTitle(e.Title)}, "|")
}
