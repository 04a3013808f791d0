package app

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/robfig/cron/v3"

	"einkframe/internal/config"
	"einkframe/pkg/logx"
)

// startMaintenance schedules the nightly cleanup: history pruning and stale
// rendered figures. Runs outside the engine tick path on purpose.
func (a *App) startMaintenance() error {
	maxAge, err := config.ParseDurationOrDefault("maintenance.figure_max_age", a.cfg.Maintenance.FigureMaxAge, 7*24*time.Hour)
	if err != nil {
		return err
	}

	c := cron.New()
	_, err = c.AddFunc(a.cfg.Maintenance.CronSpec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		a.runMaintenance(ctx, maxAge)
	})
	if err != nil {
		return err
	}
	c.Start()
	a.cron = c
	a.log.Info("maintenance scheduled", logx.String("spec", a.cfg.Maintenance.CronSpec))
	return nil
}

func (a *App) stopMaintenance() {
	if a.cron != nil {
		<-a.cron.Stop().Done()
		a.cron = nil
	}
}

func (a *App) runMaintenance(ctx context.Context, figureMaxAge time.Duration) {
	if a.store != nil {
		n, err := a.store.Prune(ctx)
		if err != nil {
			a.log.Warn("history prune failed", logx.Err(err))
		} else if n > 0 {
			a.log.Info("pruned history", logx.Int64("rows", n))
		}
	}
	a.pruneFigures(figureMaxAge)
}

// pruneFigures removes rendered images that have not been refreshed in a
// while. The staged panel image is kept: the driver must always be able to
// re-show the current content.
func (a *App) pruneFigures(maxAge time.Duration) {
	staged := filepath.Base(a.cfg.Display.StagingPath)
	cutoff := time.Now().Add(-maxAge)

	entries, err := os.ReadDir(a.cfg.FiguresDir)
	if err != nil {
		if !os.IsNotExist(err) {
			a.log.Warn("figures cleanup failed", logx.Err(err))
		}
		return
	}
	removed := 0
	for _, e := range entries {
		if e.IsDir() || e.Name() == staged {
			continue
		}
		info, err := e.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(a.cfg.FiguresDir, e.Name())); err == nil {
			removed++
		}
	}
	if removed > 0 {
		a.log.Info("removed stale figures", logx.Int("count", removed))
	}
}

// systemdHeartbeat reports readiness and feeds the systemd watchdog when the
// unit has one configured. Outside systemd both calls are no-ops.
func (a *App) systemdHeartbeat(ctx context.Context) error {
	if ok, err := daemon.SdNotify(false, daemon.SdNotifyReady); err != nil {
		a.log.Warn("sd_notify failed", logx.Err(err))
	} else if ok {
		a.log.Debug("notified systemd: ready")
	}

	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}
