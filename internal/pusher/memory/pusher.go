// Package memory contains an in-memory pusher for tests and dry runs.
package memory

import (
	"context"
	"sync"
)

// Pusher stores pushed payloads for inspection.
type Pusher struct {
	mu       sync.RWMutex
	payloads []map[string]any
}

// New returns a memory Pusher.
func New() *Pusher {
	return &Pusher{}
}

// Push records the payload.
func (p *Pusher) Push(_ context.Context, payload map[string]any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

// Payloads returns the recorded pushes.
func (p *Pusher) Payloads() []map[string]any {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]map[string]any, len(p.payloads))
	copy(out, p.payloads)
	return out
}
