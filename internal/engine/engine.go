// Package engine runs the display scheduling loop.
//
// One goroutine evaluates the schedule set on a fixed tick: entering a window
// runs its action, leaving one (or idling past the random interval) runs a
// randomized fallback. Action failures are recoverable; display gateway
// failures terminate the loop.
package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"einkframe/internal/action"
	"einkframe/internal/display"
	"einkframe/internal/schedule"
	"einkframe/pkg/logx"
)

type Config struct {
	// CheckInterval is the tick period.
	CheckInterval time.Duration
	// RandomInterval is how often the fallback rotation refreshes the display
	// outside scheduled windows.
	RandomInterval time.Duration
	// MinRefresh throttles panel updates; e-ink panels degrade when refreshed
	// too often. Zero disables the throttle.
	MinRefresh time.Duration
	// Location is the timezone schedules are evaluated in.
	Location *time.Location
}

func (c Config) withDefaults() Config {
	if c.CheckInterval <= 0 {
		c.CheckInterval = 30 * time.Second
	}
	if c.RandomInterval <= 0 {
		c.RandomInterval = 10 * time.Minute
	}
	if c.Location == nil {
		c.Location = time.Local
	}
	return c
}

// UpdateRecord describes one display outcome for the history store.
type UpdateRecord struct {
	At      time.Time
	Action  string
	Image   string
	Cleared bool
	Err     string
}

// Recorder persists display outcomes. Implementations must not block for
// long; recording failures are the recorder's problem, not the engine's.
type Recorder interface {
	RecordUpdate(ctx context.Context, rec UpdateRecord)
}

// Engine owns all scheduling state. The tick state (current window, last
// update time) is touched only by the Run goroutine; the schedule list is
// mutex-guarded so a config reload can swap it atomically.
type Engine struct {
	cfg      Config
	registry *action.Registry
	pool     []action.Action
	gw       display.Gateway
	rec      Recorder
	log      logx.Logger

	limiter *rate.Limiter
	rng     *rand.Rand

	mu        sync.Mutex
	schedules []schedule.Schedule

	// tick state, owned by the loop goroutine
	lastUpdate time.Time
	current    *schedule.Schedule
}

// New builds an engine. pool is the weighted fallback rotation: an action
// may appear several times to raise its selection probability. rec may be
// nil.
func New(cfg Config, registry *action.Registry, pool []action.Action, gw display.Gateway, rec Recorder, log logx.Logger) *Engine {
	cfg = cfg.withDefaults()
	e := &Engine{
		cfg:      cfg,
		registry: registry,
		pool:     pool,
		gw:       gw,
		rec:      rec,
		log:      log,
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if cfg.MinRefresh > 0 {
		e.limiter = rate.NewLimiter(rate.Every(cfg.MinRefresh), 1)
	}
	return e
}

// SetSchedules atomically replaces the schedule set. Called at startup and on
// successful reloads; a failed reload never reaches this point, so the prior
// set stays in force.
func (e *Engine) SetSchedules(schedules []schedule.Schedule) {
	cp := append([]schedule.Schedule(nil), schedules...)
	e.mu.Lock()
	e.schedules = cp
	e.mu.Unlock()
	e.log.Info("schedule set replaced", logx.Int("count", len(cp)))
}

// Run executes the tick loop until ctx is canceled (returns nil) or a
// gateway call fails (returns the fatal error). The first evaluation happens
// immediately, before the first tick elapses.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info("display scheduler starting",
		logx.Duration("check_interval", e.cfg.CheckInterval),
		logx.Duration("random_interval", e.cfg.RandomInterval))

	if err := e.tick(ctx, e.now()); err != nil {
		return err
	}

	ticker := time.NewTicker(e.cfg.CheckInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			e.log.Info("display scheduler stopped")
			return nil
		case <-ticker.C:
			if err := e.tick(ctx, e.now()); err != nil {
				return err
			}
		}
	}
}

func (e *Engine) now() time.Time { return time.Now().In(e.cfg.Location) }

// tick applies the transition rules for one evaluation instant.
func (e *Engine) tick(ctx context.Context, now time.Time) error {
	active := e.activeSchedule(now)

	switch {
	case active != nil && (e.current == nil || *e.current != *active):
		// Entered a scheduled window.
		e.log.Info("entering scheduled window", logx.String("schedule", active.String()))
		if err := e.runScheduled(ctx, *active); err != nil {
			return err
		}
		e.current = active
		e.lastUpdate = now

	case active == nil && e.current != nil:
		// Window ended; return to the random rotation right away.
		e.log.Info("exiting scheduled window", logx.String("schedule", e.current.String()))
		e.current = nil
		if err := e.fallbackOnce(ctx); err != nil {
			return err
		}
		e.lastUpdate = now

	case active == nil && (e.lastUpdate.IsZero() || now.Sub(e.lastUpdate) >= e.cfg.RandomInterval):
		e.log.Debug("random rotation due")
		if err := e.fallbackOnce(ctx); err != nil {
			return err
		}
		e.lastUpdate = now
	}
	return nil
}

// activeSchedule returns the first schedule (in file order) active at now.
// The loader forbids overlaps, so normally at most one can match; scanning in
// order keeps the tie-break deterministic regardless.
func (e *Engine) activeSchedule(now time.Time) *schedule.Schedule {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, s := range e.schedules {
		if s.ActiveAt(now) {
			cp := s
			return &cp
		}
	}
	return nil
}

// runScheduled invokes the window's action. A failing action is logged and
// the display left alone; it is not grounds for showing random content.
func (e *Engine) runScheduled(ctx context.Context, s schedule.Schedule) error {
	a, ok := e.registry.Get(s.Action)
	if !ok {
		// Unreachable after load-time validation.
		return fmt.Errorf("engine: schedule references unregistered action %q", s.Action)
	}
	res, err := a.Render(ctx)
	if err != nil {
		e.log.Warn("scheduled action failed", logx.String("action", s.Action), logx.Err(err))
		e.record(ctx, UpdateRecord{At: e.now(), Action: s.Action, Err: err.Error()})
		return nil
	}
	return e.show(ctx, s.Action, res)
}

// show pushes a successful action result to the gateway. Gateway errors are
// fatal and propagate.
func (e *Engine) show(ctx context.Context, name string, res action.Result) error {
	if res.Kind == action.KindShutdown {
		if err := e.gw.Clear(ctx); err != nil {
			e.log.Error("display clear failed", logx.String("action", name), logx.Err(err))
			return fmt.Errorf("engine: clear display: %w", err)
		}
		e.record(ctx, UpdateRecord{At: e.now(), Action: name, Cleared: true})
		return nil
	}

	// Wait fails only when ctx ends; propagating it lets the caller see the
	// skipped update as a cancellation instead of a silent no-op.
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return err
		}
	}
	if err := e.gw.Update(ctx, res.Path); err != nil {
		e.log.Error("display update failed",
			logx.String("action", name), logx.String("image", res.Path), logx.Err(err))
		return fmt.Errorf("engine: update display: %w", err)
	}
	e.record(ctx, UpdateRecord{At: e.now(), Action: name, Image: res.Path})
	return nil
}

func (e *Engine) record(ctx context.Context, rec UpdateRecord) {
	if e.rec != nil {
		e.rec.RecordUpdate(ctx, rec)
	}
}
