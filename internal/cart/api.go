// Package cart owns per-widget quantity state and the add-to-cart state
// machine, plus the resolver that picks which product a widget points at.
package cart

import (
	"context"
	"time"
)

// Item is the payload for a single add-to-cart call.
type Item struct {
	ID       string
	Quantity int
}

// API is the commerce platform's client-side cart capability. A nil API
// means the platform is not available on this page.
type API interface {
	AddItem(ctx context.Context, item Item) error
}

// APIFunc adapts a function to API.
type APIFunc func(ctx context.Context, item Item) error

// AddItem calls f.
func (f APIFunc) AddItem(ctx context.Context, item Item) error { return f(ctx, item) }

// HostContext is the read-only accessor for ambient data exposed by the host
// page. Implementations may return an error or even panic; callers here treat
// both as "no value".
type HostContext interface {
	Get(key string) (any, error)
}

// HostContextMap is a HostContext backed by a plain map.
type HostContextMap map[string]any

// Get returns the value stored under key, or nil.
func (m HostContextMap) Get(key string) (any, error) {
	if m == nil {
		return nil, nil
	}
	return m[key], nil
}

// Scheduler runs f once after d. The returned func cancels the pending run.
type Scheduler func(d time.Duration, f func()) (cancel func())

// RealScheduler schedules with time.AfterFunc.
func RealScheduler(d time.Duration, f func()) func() {
	t := time.AfterFunc(d, f)
	return func() { t.Stop() }
}
