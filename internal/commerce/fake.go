package commerce

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
)

// Fake is an in-memory cart used for local previews when no platform
// endpoint is configured.
type Fake struct {
	Latency time.Duration
	Logger  *zap.Logger

	mu    sync.Mutex
	lines map[string]int
}

// NewFake returns a preview cart that accepts every item after latency.
func NewFake(latency time.Duration, logger *zap.Logger) *Fake {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fake{Latency: latency, Logger: logger, lines: map[string]int{}}
}

// AddItem implements cart.API.
func (f *Fake) AddItem(ctx context.Context, item cart.Item) error {
	if f.Latency > 0 {
		t := time.NewTimer(f.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	f.mu.Lock()
	if f.lines == nil {
		f.lines = map[string]int{}
	}
	f.lines[item.ID] += item.Quantity
	total := f.lines[item.ID]
	f.mu.Unlock()
	f.Logger.Info("preview cart: item added",
		zap.String("product_id", item.ID),
		zap.Int("quantity", item.Quantity),
		zap.Int("line_total", total),
	)
	return nil
}

// Quantity reports the accumulated quantity for a product id.
func (f *Fake) Quantity(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[id]
}
