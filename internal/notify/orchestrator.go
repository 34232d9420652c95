package notify

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"schedbot/internal/schedule"
	"schedbot/internal/storage"
	"schedbot/pkg/logx"
)

// Sender delivers one message to one subscriber. Failures are error values;
// they are not retried at this layer.
type Sender interface {
	Send(ctx context.Context, chatID int64, text string) error
}

// Config controls the orchestrator.
type Config struct {
	Enabled    bool           // delivery globally enabled (token present etc.)
	DryRun     bool           // compute nothing, deliver nothing, report skipped
	FutureOnly bool           // scope diffs to not-yet-started entries
	Limit      int            // max rendered entries per diff section
	Location   *time.Location // timezone for "has this entry started yet"
	RatePerSec int            // delivery pacing; 0 means a safe default
}

// Orchestrator sequences scope filtering, diffing, cosmetic suppression,
// rendering, and scoped delivery. It is safe for concurrent use across
// different groups.
type Orchestrator struct {
	cfg     Config
	store   storage.Store
	sender  Sender
	log     logx.Logger
	limiter *rate.Limiter

	// now is swappable for tests.
	now func() time.Time
}

func New(cfg Config, store storage.Store, sender Sender, log logx.Logger) *Orchestrator {
	if cfg.Limit <= 0 {
		cfg.Limit = 12
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 3
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Orchestrator{
		cfg:     cfg,
		store:   store,
		sender:  sender,
		log:     log,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		now:     time.Now,
	}
}

// NotifyIfChanged diffs the two snapshots and, when there is a user-visible
// change among upcoming entries, broadcasts a summary to every subscriber
// assigned to gid. It returns the number of successful deliveries and whether
// a broadcast was attempted at all.
//
// Per-subscriber delivery failures are logged and do not abort delivery to
// the remaining subscribers. Nothing here is fatal: the worst case is "this
// cycle produced no notification".
func (o *Orchestrator) NotifyIfChanged(ctx context.Context, gid string, prev, curr []schedule.Entry) (sent int, notified bool) {
	log := o.log.With(logx.String("group", gid))

	if !o.cfg.Enabled {
		log.Debug("delivery disabled; skipping notification step")
		return 0, false
	}
	if o.cfg.DryRun {
		log.Debug("dry-run; skipping notification step")
		return 0, false
	}

	now := o.now()
	prevScope, currScope := prev, curr
	if o.cfg.FutureOnly {
		prevScope = schedule.FilterFuture(prev, now, o.cfg.Location)
		currScope = schedule.FilterFuture(curr, now, o.cfg.Location)
	}

	diff := schedule.Diff(prevScope, currScope)
	visible, cosmetic := schedule.DropCosmetic(diff)
	for _, p := range cosmetic {
		log.Debug("cosmetic-only change suppressed",
			logx.String("old", p.Old.Summary()), logx.String("new", p.New.Summary()))
	}

	log.Debug("schedule comparison",
		logx.Int("prev", len(prev)), logx.Int("curr", len(curr)),
		logx.Int("prev_scope", len(prevScope)), logx.Int("curr_scope", len(currScope)),
		logx.Int("added", len(visible.Added)), logx.Int("removed", len(visible.Removed)),
		logx.Int("modified", len(visible.Modified)), logx.Bool("future_only", o.cfg.FutureOnly))

	if visible.Empty() {
		// Distinguish "nothing changed" from "changes exist only among past
		// entries" for diagnostics.
		full, _ := schedule.DropCosmetic(schedule.Diff(prev, curr))
		if o.cfg.FutureOnly && !full.Empty() {
			log.Info("changes affect only past entries; no notification sent",
				logx.Int("past_changes", full.Total()))
			if log.Enabled(logx.LevelDebug) {
				log.Debug("past-entry change detail:\n" + RenderDiff(full, 1000))
			}
		} else {
			log.Info("no schedule changes; no notification sent")
		}
		return 0, false
	}

	msg := gid + ": обновление расписания\n\n" + RenderDiff(visible, o.cfg.Limit)
	if log.Enabled(logx.LevelDebug) {
		log.Debug("change detail:\n" + RenderDiff(visible, 1000))
	}

	if o.store == nil {
		log.Warn("no subscriber store configured; nobody notified")
		return 0, true
	}
	subs, err := o.store.Subscribers(ctx)
	if err != nil {
		// Store is normally wrapped in storage.Fallback, so this is rare.
		log.Warn("subscriber list unavailable; nobody notified", logx.Err(err))
		return 0, true
	}

	for _, chatID := range subs {
		assigned, ok, err := o.store.GetGroup(ctx, chatID)
		if err != nil {
			log.Warn("group lookup failed; skipping subscriber", logx.Int64("chat_id", chatID), logx.Err(err))
			continue
		}
		if !ok || assigned != gid {
			continue
		}
		if err := o.limiter.Wait(ctx); err != nil {
			log.Warn("delivery cancelled", logx.Err(err))
			break
		}
		if err := o.sender.Send(ctx, chatID, msg); err != nil {
			log.Warn("delivery failed", logx.Int64("chat_id", chatID), logx.Err(err))
			continue
		}
		sent++
	}

	log.Info("change notification delivered",
		logx.Int("recipients", sent),
		logx.Int("added", len(visible.Added)),
		logx.Int("removed", len(visible.Removed)),
		logx.Int("modified", len(visible.Modified)))
	return sent, true
}
