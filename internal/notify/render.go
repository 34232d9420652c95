// Package notify renders schedule diffs into human-readable summaries and
// drives the scoped broadcast to subscribers of a group.
package notify

import (
	"fmt"
	"strings"

	"schedbot/internal/schedule"
)

// RenderDiff builds the plain-text change summary: a header with per-category
// counts, then up to limit lines per section with a "… и еще N" suffix when
// truncated. Modified entries render as "{old} -> {new}".
func RenderDiff(d schedule.DiffResult, limit int) string {
	if limit <= 0 {
		limit = 12
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("Обновление расписания: +%d, −%d, ✏️ %d",
		len(d.Added), len(d.Removed), len(d.Modified)))

	addBlock := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		lines = append(lines, "", title)
		if len(items) > limit {
			lines = append(lines, items[:limit]...)
			lines = append(lines, fmt.Sprintf("… и еще %d", len(items)-limit))
		} else {
			lines = append(lines, items...)
		}
	}

	var added []string
	for _, p := range d.Added {
		if p.New != nil {
			added = append(added, "➕ "+p.New.Summary())
		}
	}
	var removed []string
	for _, p := range d.Removed {
		if p.Old != nil {
			removed = append(removed, "➖ "+p.Old.Summary())
		}
	}
	var modified []string
	for _, p := range d.Modified {
		if p.Old == nil || p.New == nil {
			continue
		}
		modified = append(modified, "✏️ {"+p.Old.Summary()+"} -> {"+p.New.Summary()+"}")
	}

	addBlock("Добавлено:", added)
	addBlock("Удалено:", removed)
	addBlock("Изменено:", modified)

	return strings.Join(lines, "\n")
}
