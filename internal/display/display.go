// Package display is the boundary to the physical e-ink panel.
//
// The scheduler core only sees the Gateway interface. Gateway errors are
// always fatal to the caller: a panel that cannot be driven anymore is not
// something the scheduler can recover from.
package display

import "context"

// Gateway exposes the two operations the scheduler needs.
type Gateway interface {
	// Update renders the image at path onto the panel.
	Update(ctx context.Context, imagePath string) error
	// Clear blanks the panel.
	Clear(ctx context.Context) error
}
