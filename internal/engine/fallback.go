package engine

import (
	"context"

	"einkframe/internal/action"
	"einkframe/pkg/logx"
)

// fallbackOnce runs one round of the random rotation and shows the result.
// A round where every distinct action fails is logged but not fatal; the
// display simply keeps its previous content.
func (e *Engine) fallbackOnce(ctx context.Context) error {
	name, res, ok := e.drawFallback(ctx)
	if !ok {
		return nil
	}
	return e.show(ctx, name, res)
}

// drawFallback draws actions uniformly from the weighted pool until one
// succeeds. Each distinct action is attempted at most once per round (a draw
// landing on an already-attempted action is skipped), so the round terminates
// after at most |distinct actions| invocations no matter how the pool is
// duplicated.
func (e *Engine) drawFallback(ctx context.Context) (string, action.Result, bool) {
	distinct := map[string]bool{}
	for _, a := range e.pool {
		distinct[a.Name()] = true
	}
	if len(distinct) == 0 {
		e.log.Warn("fallback pool is empty")
		return "", action.Result{}, false
	}

	attempted := map[string]bool{}
	for len(attempted) < len(distinct) {
		a := e.pool[e.rng.Intn(len(e.pool))]
		if attempted[a.Name()] {
			continue
		}
		attempted[a.Name()] = true

		res, err := a.Render(ctx)
		if err != nil {
			e.log.Warn("fallback action failed, trying another",
				logx.String("action", a.Name()), logx.Err(err))
			e.record(ctx, UpdateRecord{At: e.now(), Action: a.Name(), Err: err.Error()})
			continue
		}
		return a.Name(), res, true
	}

	e.log.Error("all fallback actions failed", logx.Int("attempted", len(attempted)))
	return "", action.Result{}, false
}
