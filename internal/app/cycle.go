package app

import (
	"context"
	"time"

	"schedbot/internal/ics"
	"schedbot/internal/schedule"
	"schedbot/pkg/logx"
)

// runAll runs one watch cycle over every configured group. Groups are
// processed concurrently; a group whose previous cycle is still running is
// skipped, not queued.
func (a *App) runAll(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	for _, name := range a.cfg.Watch.Groups {
		name := name
		go a.runGroup(ctx, name)
	}
}

// runGroup fetches one group's current schedule, compares it with the stored
// snapshot, updates the calendar file, persists the new snapshot, and
// broadcasts a diff summary when something user-visible changed among
// upcoming entries.
//
// The source is queried by display name; all group-scoped state (snapshots,
// calendars, store assignments) is keyed by the stable group id.
//
// Every failure here is non-fatal: it is logged and the group is retried on
// the next cycle.
func (a *App) runGroup(ctx context.Context, name string) {
	gid := schedule.GroupID(name)
	if !a.locks.TryLock(gid) {
		a.log.Debug("cycle still running, skipping", logx.String("group", gid))
		return
	}
	defer a.locks.Unlock(gid)

	log := a.log.With(logx.String("group", gid))
	started := time.Now()

	curr, err := a.fetcher.Fetch(ctx, name)
	if err != nil {
		log.Warn("fetch failed", logx.Err(err))
		return
	}
	if len(curr) == 0 {
		// An empty sheet is far more likely a rendering hiccup than a
		// genuinely cleared timetable. Keep the old snapshot.
		log.Warn("fetch returned no entries, keeping previous snapshot")
		return
	}

	prev, err := schedule.LoadSnapshot(a.snapshotPath(gid))
	if err != nil {
		log.Warn("snapshot unreadable, treating as first run", logx.Err(err))
		prev = nil
	}

	if a.cfg.Calendar.Enabled && !a.cfg.Watch.DryRun {
		if n, changed, err := ics.WriteGroupCalendar(a.stateDir, gid, curr, a.loc); err != nil {
			log.Warn("calendar write failed", logx.Err(err))
		} else if changed {
			log.Debug("calendar updated", logx.Int("events", n))
		}
	}

	sent, notified := a.orch.NotifyIfChanged(ctx, gid, prev, curr)

	// The baseline always advances, dry-run included; dry-run only gates the
	// calendar write and delivery. Skipping the save would replay every change
	// since the last real cycle as one giant diff once dry-run is turned off.
	if err := schedule.SaveSnapshot(a.snapshotPath(gid), curr, time.Now()); err != nil {
		log.Error("snapshot save failed", logx.Err(err))
		return
	}

	log.Info("cycle done",
		logx.Int("entries", len(curr)),
		logx.Bool("notified", notified),
		logx.Int("sent", sent),
		logx.Duration("took", time.Since(started)))
}
