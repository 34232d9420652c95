package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"schedbot/internal/config"
	"schedbot/internal/notify"
	"schedbot/internal/schedule"
	"schedbot/pkg/logx"
)

type stubFetcher struct {
	entries []schedule.Entry
	err     error
}

func (s stubFetcher) Fetch(ctx context.Context, group string) ([]schedule.Entry, error) {
	return s.entries, s.err
}

func testApp(t *testing.T, cfg *config.Config, f stubFetcher) *App {
	t.Helper()
	return &App{
		cfg:      cfg,
		log:      logx.Nop(),
		fetcher:  f,
		orch:     notify.New(notify.Config{}, nil, nil, logx.Nop()),
		locks:    newKeyedMutex(),
		loc:      time.UTC,
		stateDir: t.TempDir(),
	}
}

func TestRunGroupSavesSnapshotInDryRun(t *testing.T) {
	t.Parallel()

	entries := []schedule.Entry{
		{Date: "2025-09-08", Start: "10:00", End: "11:30", Title: "История", Room: "B1"},
	}
	cfg := &config.Config{
		Watch: config.WatchConfig{Groups: []string{"104б"}, DryRun: true},
	}
	a := testApp(t, cfg, stubFetcher{entries: entries})

	a.runGroup(context.Background(), "104б")

	gid := schedule.GroupID("104б")
	got, err := schedule.LoadSnapshot(a.snapshotPath(gid))
	if err != nil {
		t.Fatalf("snapshot not readable after dry-run cycle: %v", err)
	}
	if len(got) != 1 || got[0].Title != "История" {
		t.Fatalf("snapshot content mismatch: %+v", got)
	}
}

func TestRunGroupDryRunSkipsCalendarWrite(t *testing.T) {
	t.Parallel()

	entries := []schedule.Entry{
		{Date: "2025-09-08", Start: "10:00", End: "11:30", Title: "История", Room: "B1"},
	}
	cfg := &config.Config{
		Watch:    config.WatchConfig{Groups: []string{"104б"}, DryRun: true},
		Calendar: config.CalendarConfig{Enabled: true},
	}
	a := testApp(t, cfg, stubFetcher{entries: entries})

	a.runGroup(context.Background(), "104б")

	gid := schedule.GroupID("104б")
	if _, err := os.Stat(filepath.Join(a.stateDir, gid, "calendar.ics")); !os.IsNotExist(err) {
		t.Fatalf("calendar file should not exist in dry-run, stat err = %v", err)
	}
}

func TestRunGroupKeepsSnapshotOnEmptyFetch(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		Watch: config.WatchConfig{Groups: []string{"104б"}},
	}
	a := testApp(t, cfg, stubFetcher{entries: nil})

	gid := schedule.GroupID("104б")
	prev := []schedule.Entry{
		{Date: "2025-09-08", Start: "10:00", End: "11:30", Title: "История", Room: "B1"},
	}
	if err := schedule.SaveSnapshot(a.snapshotPath(gid), prev, time.Now()); err != nil {
		t.Fatalf("seed snapshot: %v", err)
	}

	a.runGroup(context.Background(), "104б")

	got, err := schedule.LoadSnapshot(a.snapshotPath(gid))
	if err != nil {
		t.Fatalf("load snapshot: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("empty fetch must not overwrite the snapshot, got %+v", got)
	}
}
