// Package ics exports per-group timetables as iCalendar files so subscribers
// can point any calendar client at the bot's output directory.
package ics

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"schedbot/internal/schedule"
)

const prodID = "-//schedbot//timetable//RU"

// WriteGroupCalendar renders items into <root>/<gid>/calendar.ics. It returns
// the number of events written and whether the file content actually changed
// (DTSTAMP lines are ignored for the comparison, they churn on every render).
// Entries with unparsable date/times are skipped.
func WriteGroupCalendar(root, gid string, items []schedule.Entry, loc *time.Location) (int, bool, error) {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(prodID)

	count := 0
	for _, e := range items {
		start, ok := schedule.StartTime(e, loc)
		if !ok {
			continue
		}
		end, err := time.ParseInLocation(schedule.DateLayout+" "+schedule.TimeLayout, e.Date+" "+e.End, loc)
		if err != nil {
			end = start.Add(90 * time.Minute)
		}

		// Deterministic UID so re-renders keep event identity stable.
		ev := cal.AddEvent(schedule.Fingerprint(e) + "@schedbot")
		ev.SetDtStampTime(time.Now().UTC())
		ev.SetStartAt(start.UTC())
		ev.SetEndAt(end.UTC())
		ev.SetSummary(e.Title)
		if e.Room != "" {
			ev.SetLocation(e.Room)
		}
		var desc []string
		if s := strings.TrimSpace(e.Instructor); s != "" {
			desc = append(desc, s)
		}
		if s := strings.TrimSpace(e.GroupInfo); s != "" {
			desc = append(desc, s)
		}
		if len(desc) > 0 {
			ev.SetDescription(strings.Join(desc, "\n"))
		}
		count++
	}

	dir := filepath.Join(root, gid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, false, err
	}
	path := filepath.Join(dir, "calendar.ics")

	rendered := cal.Serialize()
	changed := contentChanged(path, rendered)
	if changed {
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, []byte(rendered), 0o644); err != nil {
			return count, false, err
		}
		if err := os.Rename(tmp, path); err != nil {
			return count, false, err
		}
	}
	return count, changed, nil
}

// contentChanged compares the rendered calendar against the file on disk,
// ignoring DTSTAMP lines.
func contentChanged(path, rendered string) bool {
	old, err := os.ReadFile(path)
	if err != nil {
		return true
	}
	return stripVolatile(string(old)) != stripVolatile(rendered)
}

func stripVolatile(s string) string {
	lines := strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n")
	out := lines[:0]
	for _, l := range lines {
		if strings.HasPrefix(l, "DTSTAMP") {
			continue
		}
		out = append(out, l)
	}
	return strings.Join(out, "\n")
}

// GroupIndexEntry is one row of the groups.json landing index.
type GroupIndexEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WriteGroupsIndex writes <root>/groups.json listing all configured groups.
func WriteGroupsIndex(root string, names []string) error {
	idx := make([]GroupIndexEntry, 0, len(names))
	for _, n := range names {
		idx = append(idx, GroupIndexEntry{ID: schedule.GroupID(n), Name: n})
	}
	b, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(root, "groups.json"), b, 0o644)
}

// WriteGroupMeta writes <root>/<gid>/meta.json with the display name.
func WriteGroupMeta(root, gid, name string) error {
	dir := filepath.Join(root, gid)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	b, err := json.MarshalIndent(map[string]string{"id": gid, "name": name}, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "meta.json"), b, 0o644)
}
