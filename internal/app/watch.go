package app

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"einkframe/internal/schedule"
	"einkframe/pkg/logx"
)

// debounce window for editor write storms and partial writes.
const reloadDebounce = 500 * time.Millisecond

// watchScheduleFile reloads the schedule set when the file changes.
//
// Reload is all-or-nothing: a file that fails to parse or validate leaves the
// running set untouched, so a half-edited file can never take the display
// schedule down. The watcher runs until ctx is canceled.
func (a *App) watchScheduleFile(ctx context.Context) error {
	path := a.cfg.ScheduleFile
	dir := filepath.Dir(path)
	base := filepath.Base(path)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	// Watch the directory, not the file: editors often replace the file via
	// rename, which drops a file-level watch.
	if err := w.Add(dir); err != nil {
		return err
	}
	a.log.Info("watching schedule file", logx.String("path", path))

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	scheduleReload := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(reloadDebounce, func() { a.reloadSchedules(ctx) })
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			a.log.Debug("schedule file changed", logx.String("op", ev.Op.String()))
			scheduleReload()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			a.log.Warn("schedule watcher error", logx.Err(err))
		}
	}
}

func (a *App) reloadSchedules(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	schedules, err := schedule.Load(a.cfg.ScheduleFile, a.registry)
	if err != nil {
		a.log.Error("schedule reload failed, keeping previous set", logx.Err(err))
		return
	}
	a.engine.SetSchedules(schedules)
	a.log.Info("schedule reloaded", logx.Int("count", len(schedules)))
}
