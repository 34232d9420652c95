package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"

	"schedbot/internal/bot"
	"schedbot/internal/config"
	"schedbot/internal/fetch"
	"schedbot/internal/ics"
	"schedbot/internal/notify"
	"schedbot/internal/schedule"
	"schedbot/internal/storage"
	"schedbot/pkg/logx"
)

// App wires the fetcher, diff orchestrator, subscriber store, calendar
// writer, and the Telegram command layer into one process.
type App struct {
	cfgPath string
	cfg     *config.Config

	logs *logx.Service
	log  logx.Logger

	store   storage.Store
	fetcher fetch.Fetcher
	orch    *notify.Orchestrator
	bot     *bot.Bot
	serve   *ics.Server

	cron     *cron.Cron
	locks    *keyedMutex
	loc      *time.Location
	stateDir string
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	log = log.With(logx.String("comp", "app"))

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	busyTimeout, err := cfg.StorageBusyTimeout()
	if err != nil {
		return nil, err
	}
	store, err := storage.Open(storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busyTimeout,
	}, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}
	if store != nil {
		store = storage.NewFallback(store, log.With(logx.String("comp", "storage")))
	}

	srcTimeout, err := cfg.SourceTimeout()
	if err != nil {
		return nil, err
	}
	fetcher, err := fetch.NewBrowser(fetch.Config{
		URL:      cfg.Source.URL,
		Headless: cfg.Source.HeadlessEnabled(),
		Timeout:  srcTimeout,
	}, log.With(logx.String("comp", "fetch")))
	if err != nil {
		return nil, err
	}

	a := &App{
		cfgPath:  cfgPath,
		cfg:      cfg,
		logs:     logs,
		log:      log,
		store:    store,
		fetcher:  fetcher,
		locks:    newKeyedMutex(),
		loc:      loc,
		stateDir: cfg.StateDir(),
	}

	if cfg.Telegram.DeliveryEnabled() {
		poll, err := cfg.PollTimeout()
		if err != nil {
			return nil, err
		}
		tb, err := bot.New(bot.Config{
			Token:       cfg.Telegram.Token,
			Groups:      cfg.Watch.Groups,
			Location:    loc,
			PollTimeout: poll,
			Load:        a.loadSnapshot,
		}, store, log.With(logx.String("comp", "bot")))
		if err != nil {
			return nil, err
		}
		a.bot = tb
	} else {
		log.Info("telegram delivery disabled")
	}

	var sender notify.Sender
	if a.bot != nil {
		sender = a.bot
	}
	a.orch = notify.New(notify.Config{
		Enabled:    a.bot != nil,
		DryRun:     cfg.Watch.DryRun,
		FutureOnly: cfg.Watch.FutureOnlyEnabled(),
		Limit:      cfg.DiffLimit(),
		Location:   loc,
	}, store, sender, log.With(logx.String("comp", "notify")))

	return a, nil
}

// Start launches the command layer, the cron-driven watch loop, and the
// config file watcher. It returns once everything is scheduled; the app then
// runs until ctx is cancelled.
func (a *App) Start(ctx context.Context) error {
	if err := os.MkdirAll(a.stateDir, 0o755); err != nil {
		return fmt.Errorf("app: state dir: %w", err)
	}

	interval, err := a.cfg.WatchInterval()
	if err != nil {
		return err
	}

	if a.cfg.Calendar.Enabled {
		if err := ics.WriteGroupsIndex(a.stateDir, a.cfg.Watch.Groups); err != nil {
			a.log.Warn("calendar index write failed", logx.Err(err))
		}
		for _, name := range a.cfg.Watch.Groups {
			if err := ics.WriteGroupMeta(a.stateDir, schedule.GroupID(name), name); err != nil {
				a.log.Warn("calendar meta write failed", logx.String("group", name), logx.Err(err))
			}
		}
	}
	if a.cfg.Calendar.ServeEnabled() {
		a.serve = ics.NewServer(ics.ServerConfig{
			Address: a.cfg.Calendar.Listen,
			Root:    a.stateDir,
		}, a.log.With(logx.String("comp", "calendar")))
		a.serve.Start()
	}

	a.cron = cron.New(cron.WithLocation(a.loc))
	if _, err := a.cron.AddFunc("@every "+interval.String(), func() { a.runAll(ctx) }); err != nil {
		return fmt.Errorf("app: schedule watch loop: %w", err)
	}
	a.cron.Start()

	// First cycle right away rather than waiting a full interval.
	go a.runAll(ctx)

	go func() {
		if err := config.Watch(ctx, a.cfgPath, a.log.With(logx.String("comp", "config")), a.onReload); err != nil {
			a.log.Warn("config watcher stopped", logx.Err(err))
		}
	}()

	if a.bot != nil {
		go a.bot.Start(ctx)
	}

	a.log.Info("started",
		logx.Duration("interval", interval),
		logx.Int("groups", len(a.cfg.Watch.Groups)),
		logx.Bool("dry_run", a.cfg.Watch.DryRun))
	return nil
}

// Stop halts the watch loop and releases the store and log sinks.
func (a *App) Stop() error {
	if a.cron != nil {
		<-a.cron.Stop().Done()
	}
	if a.serve != nil {
		a.serve.Stop(nil)
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	return a.logs.Close()
}

// onReload applies the subset of config that is safe to change at runtime.
// Structural settings (token, storage driver, source URL) need a restart.
func (a *App) onReload(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	a.log.Info("config reloaded", logx.String("level", cfg.Logging.Level))
}

func (a *App) snapshotPath(gid string) string {
	return filepath.Join(a.stateDir, gid+".json")
}

func (a *App) loadSnapshot(gid string) ([]schedule.Entry, error) {
	return schedule.LoadSnapshot(a.snapshotPath(gid))
}
