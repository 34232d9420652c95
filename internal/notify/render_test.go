package notify

import (
	"fmt"
	"strings"
	"testing"

	"schedbot/internal/schedule"
)

func sampleEntry(start, title, room string) schedule.Entry {
	return schedule.Entry{
		Date: "2025-09-08", Start: start, End: "11:30",
		Title: title, Room: room, Instructor: "Иванов И.",
	}
}

func TestRenderDiffHeaderCounts(t *testing.T) {
	t.Parallel()
	e := sampleEntry("10:00", "История", "B1")
	d := schedule.DiffResult{
		Added:    []schedule.Pair{{New: &e}},
		Modified: []schedule.Pair{{Old: &e, New: &e}, {Old: &e, New: &e}},
	}
	out := RenderDiff(d, 12)
	if !strings.HasPrefix(out, "Обновление расписания: +1, −0, ✏️ 2") {
		t.Fatalf("unexpected header: %q", strings.SplitN(out, "\n", 2)[0])
	}
	if !strings.Contains(out, "Добавлено:") {
		t.Fatal("missing added section")
	}
	if strings.Contains(out, "Удалено:") {
		t.Fatal("empty removed section must be omitted")
	}
	if !strings.Contains(out, "Изменено:") {
		t.Fatal("missing modified section")
	}
}

func TestRenderDiffEntryLine(t *testing.T) {
	t.Parallel()
	e := sampleEntry("10:00", "История", "B1")
	d := schedule.DiffResult{Added: []schedule.Pair{{New: &e}}}
	out := RenderDiff(d, 12)
	want := "➕ 2025-09-08 10:00–11:30 История (B1) — Иванов И."
	if !strings.Contains(out, want) {
		t.Fatalf("summary line missing:\n%s", out)
	}
}

func TestRenderDiffModifiedArrow(t *testing.T) {
	t.Parallel()
	old := sampleEntry("10:00", "История", "B1")
	new := sampleEntry("10:00", "История", "B2")
	d := schedule.DiffResult{Modified: []schedule.Pair{{Old: &old, New: &new}}}
	out := RenderDiff(d, 12)
	if !strings.Contains(out, "} -> {") {
		t.Fatalf("modified pair must render old -> new:\n%s", out)
	}
	if !strings.Contains(out, "(B1)") || !strings.Contains(out, "(B2)") {
		t.Fatalf("both sides must appear:\n%s", out)
	}
}

func TestRenderDiffTruncation(t *testing.T) {
	t.Parallel()
	var d schedule.DiffResult
	for i := 0; i < 15; i++ {
		e := sampleEntry(fmt.Sprintf("%02d:00", 8+i%10), "Пара", "A1")
		e.Date = fmt.Sprintf("2025-09-%02d", i+1)
		d.Added = append(d.Added, schedule.Pair{New: &e})
	}
	out := RenderDiff(d, 12)
	if !strings.Contains(out, "… и еще 3") {
		t.Fatalf("expected truncation suffix for 15 entries at limit 12:\n%s", out)
	}
	if got := strings.Count(out, "➕ "); got != 12 {
		t.Fatalf("expected 12 rendered lines, got %d", got)
	}
}

func TestRenderDiffEmpty(t *testing.T) {
	t.Parallel()
	out := RenderDiff(schedule.DiffResult{}, 12)
	if out != "Обновление расписания: +0, −0, ✏️ 0" {
		t.Fatalf("empty diff renders header only, got %q", out)
	}
}
