package server

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/metrics"
	"finitefield.org/storefront-widgets/internal/widget"
)

// controllerKey scopes a controller to one shopper, one widget and one
// language, since the captions are baked into the controller.
type controllerKey struct {
	session string
	widget  string
	lang    string
}

type entry struct {
	ctrl     *cart.Controller
	version  uint64
	lastUsed time.Time
	streams  int
}

type buildFunc func(w *widget.Widget, b *widget.CartButton, lang string) *cart.Controller

// registry owns the live controllers and evicts idle ones.
type registry struct {
	ttl     time.Duration
	build   buildFunc
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.Mutex
	entries map[controllerKey]*entry
}

func newRegistry(ttl time.Duration, build buildFunc, m *metrics.Metrics, logger *zap.Logger) *registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &registry{
		ttl:     ttl,
		build:   build,
		metrics: m,
		logger:  logger,
		now:     time.Now,
		entries: map[controllerKey]*entry{},
	}
}

// acquire returns the controller for k, building it on first use. A
// controller built from an older store version is replaced once nothing is
// watching it and no call is in flight.
func (r *registry) acquire(k controllerKey, w *widget.Widget, b *widget.CartButton, version uint64) *cart.Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.acquireLocked(k, w, b, version).ctrl
}

// acquireAttached is acquire for streams. The entry is pinned under the same
// lock, so a concurrent reload cannot swap the controller between lookup and
// attach. The returned func detaches.
func (r *registry) acquireAttached(k controllerKey, w *widget.Widget, b *widget.CartButton, version uint64) (*cart.Controller, func()) {
	r.mu.Lock()
	e := r.acquireLocked(k, w, b, version)
	e.streams++
	r.mu.Unlock()

	var once sync.Once
	return e.ctrl, func() {
		once.Do(func() {
			r.mu.Lock()
			e.streams--
			e.lastUsed = r.now()
			r.mu.Unlock()
		})
	}
}

func (r *registry) acquireLocked(k controllerKey, w *widget.Widget, b *widget.CartButton, version uint64) *entry {
	e, ok := r.entries[k]
	if ok && e.version != version && e.streams == 0 && e.ctrl.Phase() != cart.PhaseSubmitting {
		e.ctrl.Close()
		delete(r.entries, k)
		r.gaugeAdd(-1)
		ok = false
	}
	if !ok {
		ctrl := r.build(w, b, k.lang)
		ctrl.SetProductID(b.ResolveProductID(nil))
		e = &entry{ctrl: ctrl, version: version}
		r.entries[k] = e
		r.gaugeAdd(1)
	}
	e.lastUsed = r.now()
	return e
}

// sweep closes controllers idle for longer than the ttl and returns how many
// were evicted.
func (r *registry) sweep() int {
	cutoff := r.now().Add(-r.ttl)
	r.mu.Lock()
	defer r.mu.Unlock()
	evicted := 0
	for k, e := range r.entries {
		if e.streams > 0 || e.lastUsed.After(cutoff) {
			continue
		}
		if e.ctrl.Phase() == cart.PhaseSubmitting {
			continue
		}
		e.ctrl.Close()
		delete(r.entries, k)
		evicted++
	}
	r.gaugeAdd(-evicted)
	return evicted
}

// run sweeps periodically until ctx is done.
func (r *registry) run(ctx context.Context) {
	interval := r.ttl / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := r.sweep(); n > 0 {
				r.logger.Debug("evicted idle cart controllers", zap.Int("count", n))
			}
		}
	}
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// closeAll drops every controller.
func (r *registry) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, e := range r.entries {
		e.ctrl.Close()
		delete(r.entries, k)
	}
	if r.metrics != nil {
		r.metrics.ControllersActive.Set(0)
	}
}

func (r *registry) gaugeAdd(n int) {
	if r.metrics != nil && n != 0 {
		r.metrics.ControllersActive.Add(float64(n))
	}
}
