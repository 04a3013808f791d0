// Package app wires the einkframe daemon together: config, logging, the
// action catalog, the display driver, storage, and the scheduling engine.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/robfig/cron/v3"

	"einkframe/actions/gallery"
	"einkframe/actions/moonphase"
	"einkframe/actions/standings"
	"einkframe/actions/todolist"
	"einkframe/actions/xkcd"
	"einkframe/internal/action"
	"einkframe/internal/config"
	"einkframe/internal/display"
	"einkframe/internal/engine"
	"einkframe/internal/notify"
	"einkframe/internal/schedule"
	"einkframe/internal/storage"
	"einkframe/pkg/logx"
)

type App struct {
	cfg  *config.Config
	log  logx.Logger
	logs *logx.Service

	registry *action.Registry
	engine   *engine.Engine
	store    *storage.Store
	gw       display.Gateway
	bucket   *minio.Client

	sup  *Supervisor
	cron *cron.Cron
}

func New(cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	boot := logx.NewConsole(cfg.Logging.Level)

	// Telegram alerting is best-effort: a bad token degrades to local logs.
	var sender logx.Sender
	if cfg.Logging.Alert.Enabled {
		tg, err := notify.NewTelegram(notify.Config{Token: cfg.Telegram.Token, ChatID: cfg.Telegram.ChatID})
		if err != nil {
			boot.Warn("telegram alerts unavailable", logx.Err(err))
		} else {
			sender = tg
		}
	}

	logCfg := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Alert: logx.AlertConfig{
			Enabled:    cfg.Logging.Alert.Enabled && sender != nil,
			MinLevel:   cfg.Logging.Alert.MinLevel,
			RatePerSec: cfg.Logging.Alert.RatePerSec,
		},
	}
	logs, log := logx.New(logCfg, sender)
	log = log.With(logx.String("comp", "app"))

	a := &App{cfg: cfg, log: log, logs: logs}

	if err := a.build(logs.Logger()); err != nil {
		_ = logs.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) build(root logx.Logger) error {
	cfg := a.cfg

	loc := time.Local
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return fmt.Errorf("timezone: %w", err)
		}
		loc = l
	}

	checkInterval, err := config.ParseDurationOrDefault("check_interval", cfg.CheckInterval, 30*time.Second)
	if err != nil {
		return err
	}
	randomInterval, err := config.ParseDurationOrDefault("random_interval", cfg.RandomInterval, 10*time.Minute)
	if err != nil {
		return err
	}
	minRefresh, err := config.ParseDurationField("display.min_refresh", cfg.Display.MinRefresh)
	if err != nil {
		return err
	}
	cmdTimeout, err := config.ParseDurationField("display.command_timeout", cfg.Display.CommandTimeout)
	if err != nil {
		return err
	}

	gw, err := display.NewEPD(display.Config{
		UpdateCommand:  cfg.Display.UpdateCommand,
		ClearCommand:   cfg.Display.ClearCommand,
		StagingPath:    cfg.Display.StagingPath,
		CommandTimeout: cmdTimeout,
		TestMode:       cfg.Display.TestMode,
	}, root.With(logx.String("comp", "display")))
	if err != nil {
		return err
	}
	a.gw = gw

	if cfg.Storage.Enabled {
		busy, err := config.ParseDurationField("storage.busy_timeout", cfg.Storage.BusyTimeout)
		if err != nil {
			return err
		}
		retention, err := config.ParseDurationField("storage.retention", cfg.Storage.Retention)
		if err != nil {
			return err
		}
		st, err := storage.Open(storage.Config{
			Path:        cfg.Storage.Path,
			BusyTimeout: busy,
			Retention:   retention,
		}, root.With(logx.String("comp", "storage")))
		if err != nil {
			return fmt.Errorf("open storage: %w", err)
		}
		a.store = st
	}

	if cfg.Actions.Bucket.Endpoint != "" {
		client, err := minio.New(cfg.Actions.Bucket.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.Actions.Bucket.AccessKey, cfg.Actions.Bucket.SecretKey, ""),
			Secure: cfg.Actions.Bucket.UseSSL,
		})
		if err != nil {
			return fmt.Errorf("bucket client: %w", err)
		}
		a.bucket = client
	}

	a.registry = action.NewRegistry()
	if err := a.registerActions(root, loc); err != nil {
		return err
	}

	pool, err := a.buildFallbackPool()
	if err != nil {
		return err
	}

	var rec engine.Recorder
	if a.store != nil {
		rec = a.store
	}
	a.engine = engine.New(engine.Config{
		CheckInterval:  checkInterval,
		RandomInterval: randomInterval,
		MinRefresh:     minRefresh,
		Location:       loc,
	}, a.registry, pool, a.gw, rec, root.With(logx.String("comp", "engine")))

	return nil
}

// registerActions builds the closed action catalog. Bucket-backed actions
// are only registered when a bucket is configured, so a schedule referencing
// them without one fails validation at startup instead of every render.
func (a *App) registerActions(root logx.Logger, loc *time.Location) error {
	cfg := a.cfg
	figures := cfg.FiguresDir

	xk := xkcd.New(figures, root.With(logx.String("comp", "xkcd")))
	moon := moonphase.New(moonphase.Config{OutDir: figures, Location: loc},
		root.With(logx.String("comp", "moonphase")))
	nhl := standings.New(standings.Config{OutDir: figures, Highlight: cfg.Actions.Standings.Highlight},
		root.With(logx.String("comp", "standings")))

	acts := []action.Action{
		action.Shutdown(),
		xk.Today(),
		xk.Random(),
		moon.Action(),
		nhl.Action(),
	}

	if a.bucket != nil {
		gal := gallery.New(a.bucket, gallery.Config{
			Bucket:   cfg.Actions.Bucket.Bucket,
			Prefix:   cfg.Actions.Gallery.Prefix,
			CacheDir: cfg.Actions.Gallery.CacheDir,
			OutDir:   figures,
		}, root.With(logx.String("comp", "gallery")))
		todo := todolist.New(a.bucket, todolist.Config{
			Bucket: cfg.Actions.Bucket.Bucket,
			Object: cfg.Actions.Todo.Object,
			Title:  cfg.Actions.Todo.Title,
			OutDir: figures,
		}, root.With(logx.String("comp", "todolist")))
		acts = append(acts, gal.Action(), todo.Action())
	}

	return a.registry.Register(acts...)
}

// buildFallbackPool expands the weighted config entries into the draw pool.
// Weight N simply repeats the action N times; duplicates are how selection
// bias works.
func (a *App) buildFallbackPool() ([]action.Action, error) {
	var pool []action.Action
	for _, fb := range a.cfg.Fallback {
		act, ok := a.registry.Get(fb.Action)
		if !ok {
			return nil, fmt.Errorf("fallback: unknown action %q (available: %v)", fb.Action, a.registry.Names())
		}
		weight := fb.Weight
		if weight == 0 {
			weight = 1
		}
		for i := 0; i < weight; i++ {
			pool = append(pool, act)
		}
	}
	return pool, nil
}

// Start validates and loads the schedule set, then launches the engine, the
// schedule watcher, the maintenance jobs and the systemd heartbeat.
func (a *App) Start(ctx context.Context) error {
	schedules, err := schedule.Load(a.cfg.ScheduleFile, a.registry)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}
	a.engine.SetSchedules(schedules)
	for _, s := range schedules {
		a.log.Info("schedule", logx.String("window", s.String()))
	}

	a.logLastOutcome(ctx)

	a.sup = NewSupervisor(ctx,
		WithLogger(a.log.With(logx.String("comp", "supervisor"))),
		WithCancelOnError(true))

	a.sup.Go("engine", a.engine.Run)
	a.sup.Go("schedule-watch", a.watchScheduleFile)
	a.sup.Go("systemd-heartbeat", a.systemdHeartbeat)

	if err := a.startMaintenance(); err != nil {
		return err
	}

	a.log.Info("einkframe started", logx.Int("schedules", len(schedules)))
	return nil
}

// logLastOutcome surfaces what the panel was showing before this start, so a
// restart after a crash is diagnosable from the journal alone.
func (a *App) logLastOutcome(ctx context.Context) {
	if a.store == nil {
		return
	}
	recent, err := a.store.Recent(ctx, 1)
	if err != nil || len(recent) == 0 {
		return
	}
	last := recent[0]
	fields := []logx.Field{
		logx.String("action", last.Action),
		logx.Time("at", last.At),
	}
	switch {
	case last.Err != "":
		fields = append(fields, logx.String("err", last.Err))
	case last.Cleared:
		fields = append(fields, logx.Bool("cleared", true))
	default:
		fields = append(fields, logx.String("image", last.Image))
	}
	a.log.Info("last display outcome", fields...)
}

// Done is closed when the supervisor context ends (fatal error or Stop).
func (a *App) Done() <-chan struct{} {
	if a.sup == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return a.sup.Context().Done()
}

// Err returns the first fatal error observed by the supervisor, if any.
func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	return a.sup.Err()
}

func (a *App) Stop(ctx context.Context) error {
	a.stopMaintenance()

	var err error
	if a.sup != nil {
		err = a.sup.Stop(ctx)
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	_ = a.logs.Close()
	return err
}
