// Package pusher defines the outbound seam for packaged documents. The
// actual network call into the search index lives behind this interface and
// is out of this service's hands.
package pusher

import "context"

// Pusher receives the packaged payload of each accepted document.
type Pusher interface {
	Push(ctx context.Context, payload map[string]any) error
}

// Noop discards payloads. Used when the run only needs to persist
// priorities and flags.
type Noop struct{}

// Push implements Pusher.
func (Noop) Push(context.Context, map[string]any) error { return nil }
