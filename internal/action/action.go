// Package action defines the catalog of display-producing actions.
//
// The scheduler never looks inside an action: it knows its registered name
// and the three-way outcome of invoking it (an image path, the shutdown
// sentinel, or an error).
package action

import (
	"context"
	"fmt"
	"sort"
)

// Kind discriminates an action's successful outcome.
type Kind int

const (
	// KindImage means Result.Path points at a renderable image file.
	KindImage Kind = iota
	// KindShutdown means the display should be cleared instead of updated,
	// typically to blank the panel during a quiet period.
	KindShutdown
)

// Result is the successful outcome of an action invocation.
type Result struct {
	Kind Kind
	Path string
}

// Image wraps a produced file path.
func Image(path string) Result { return Result{Kind: KindImage, Path: path} }

// Action produces content for the display. Render either returns a Result or
// an error; an error is recoverable at the call site (logged, possibly
// another action is tried) and never fatal by itself.
type Action interface {
	Name() string
	Render(ctx context.Context) (Result, error)
}

// Func adapts a plain function to an Action.
func Func(name string, fn func(ctx context.Context) (Result, error)) Action {
	return funcAction{name: name, fn: fn}
}

type funcAction struct {
	name string
	fn   func(ctx context.Context) (Result, error)
}

func (a funcAction) Name() string                               { return a.name }
func (a funcAction) Render(ctx context.Context) (Result, error) { return a.fn(ctx) }

// Shutdown returns the built-in action producing the shutdown sentinel.
func Shutdown() Action {
	return Func("shutdown_display", func(context.Context) (Result, error) {
		return Result{Kind: KindShutdown}, nil
	})
}

// Registry is the closed name -> action catalog, built once at startup.
// Schedule validation checks names against it; after that the scheduler only
// dispatches through already-resolved entries.
type Registry struct {
	byName map[string]Action
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]Action{}}
}

// Register adds actions to the catalog. Registering two actions under the
// same name is a programming error.
func (r *Registry) Register(actions ...Action) error {
	for _, a := range actions {
		name := a.Name()
		if name == "" {
			return fmt.Errorf("action with empty name")
		}
		if _, dup := r.byName[name]; dup {
			return fmt.Errorf("duplicate action %q", name)
		}
		r.byName[name] = a
	}
	return nil
}

func (r *Registry) Has(name string) bool {
	_, ok := r.byName[name]
	return ok
}

func (r *Registry) Get(name string) (Action, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Names returns the registered action names in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.byName))
	for name := range r.byName {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
