package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/sanitize"
)

// Quantity bounds and the settled-phase revert delay.
const (
	MinQuantity        = 1
	MaxQuantity        = 100
	DefaultRevertDelay = 2000 * time.Millisecond
)

// ErrUnavailable is reported to the settle hook when no cart API was supplied.
var ErrUnavailable = errors.New("cart: platform cart api unavailable")

// Phase is the add-to-cart state.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSubmitting:
		return "submitting"
	case PhaseSucceeded:
		return "succeeded"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Settled reports whether p is one of the transient terminal phases.
func (p Phase) Settled() bool { return p == PhaseSucceeded || p == PhaseFailed }

// MarshalText renders the phase name for JSON snapshots.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// Labels are the button captions per phase. Idle is the merchant's button text.
type Labels struct {
	Idle    string
	Working string
	Success string
	Failure string
}

// DefaultLabels returns the storefront's stock Arabic captions.
func DefaultLabels() Labels {
	return Labels{
		Idle:    "إضافة للسلة",
		Working: "جاري الإضافة...",
		Success: "تمت الإضافة بنجاح ✓",
		Failure: "حدث خطأ",
	}
}

// For returns the caption shown while in phase p.
func (l Labels) For(p Phase) string {
	switch p {
	case PhaseSubmitting:
		return l.Working
	case PhaseSucceeded:
		return l.Success
	case PhaseFailed:
		return l.Failure
	default:
		return l.Idle
	}
}

func (l Labels) withDefaults() Labels {
	d := DefaultLabels()
	if l.Idle == "" {
		l.Idle = d.Idle
	}
	if l.Working == "" {
		l.Working = d.Working
	}
	if l.Success == "" {
		l.Success = d.Success
	}
	if l.Failure == "" {
		l.Failure = d.Failure
	}
	return l
}

// Snapshot is the observable controller state handed to the presentation layer.
type Snapshot struct {
	Quantity  int    `json:"quantity"`
	ProductID string `json:"productId"`
	Phase     Phase  `json:"phase"`
	Label     string `json:"label"`
	Disabled  bool   `json:"disabled"`
}

// SubmitResult describes one settled external call.
type SubmitResult struct {
	Item     Item
	Phase    Phase
	Err      error
	Duration time.Duration
}

// Option configures a Controller.
type Option func(*Controller)

// WithLabels overrides the captions. Empty fields keep their defaults.
func WithLabels(l Labels) Option {
	return func(c *Controller) { c.labels = l.withDefaults() }
}

// WithRevertDelay sets how long a settled phase is shown before returning to idle.
func WithRevertDelay(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.revertDelay = d
		}
	}
}

// WithScheduler replaces time.AfterFunc for the revert timer.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.schedule = s
		}
	}
}

// WithLogger attaches a logger for swallowed failures.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxQuantity lowers the upper quantity bound. Values are clamped into [1,100].
func WithMaxQuantity(n int) Option {
	return func(c *Controller) { c.maxQuantity = clamp(n, MinQuantity, MaxQuantity) }
}

// WithSettleHook registers a callback invoked after every external call settles.
func WithSettleHook(fn func(SubmitResult)) Option {
	return func(c *Controller) { c.onSettle = fn }
}

type subscriber struct {
	id int
	fn func(Snapshot)
}

// Controller coordinates quantity selection and a de-duplicated add-to-cart
// call for a single widget instance. All mutation goes through its methods.
type Controller struct {
	api         API
	labels      Labels
	revertDelay time.Duration
	schedule    Scheduler
	logger      *zap.Logger
	maxQuantity int
	onSettle    func(SubmitResult)

	mu          sync.Mutex
	quantity    int
	productID   string
	phase       Phase
	generation  uint64
	cancelTimer func()
	closed      bool

	subs        []subscriber
	nextSub     int
	pending     []Snapshot
	dispatching bool
}

// New builds a controller. api may be nil when the platform is absent; every
// submission then settles as failed.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:         api,
		labels:      DefaultLabels(),
		revertDelay: DefaultRevertDelay,
		schedule:    RealScheduler,
		logger:      zap.NewNop(),
		maxQuantity: MaxQuantity,
		quantity:    MinQuantity,
		phase:       PhaseIdle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Snapshot returns the current observable state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Quantity returns the selected quantity.
func (c *Controller) Quantity() int { return c.Snapshot().Quantity }

// Phase returns the add-to-cart phase.
func (c *Controller) Phase() Phase { return c.Snapshot().Phase }

// Label returns the caption derived from the current phase.
func (c *Controller) Label() string { return c.Snapshot().Label }

// Increment raises the quantity by one. At the upper bound it is a no-op.
func (c *Controller) Increment() { c.adjust(1) }

// Decrement lowers the quantity by one. At 1 it is a no-op.
func (c *Controller) Decrement() { c.adjust(-1) }

func (c *Controller) adjust(delta int) {
	c.mu.Lock()
	next := clamp(c.quantity+delta, MinQuantity, c.maxQuantity)
	if next == c.quantity {
		c.mu.Unlock()
		return
	}
	c.quantity = next
	c.enqueueLocked()
	c.mu.Unlock()
	c.flush()
}

// SetProductID stores the sanitized form of raw. It never calls the cart API.
func (c *Controller) SetProductID(raw any) {
	id := sanitize.ProductID(raw)
	c.mu.Lock()
	if id == c.productID {
		c.mu.Unlock()
		return
	}
	c.productID = id
	c.enqueueLocked()
	c.mu.Unlock()
	c.flush()
}

// Submit starts an add-to-cart call and returns true, or returns false without
// any transition when no product is set or a call is already in flight.
// It never blocks on the external call.
func (c *Controller) Submit(ctx context.Context) bool {
	c.mu.Lock()
	if c.phase == PhaseSubmitting || c.productID == "" {
		c.mu.Unlock()
		return false
	}
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	c.generation++
	gen := c.generation
	c.phase = PhaseSubmitting
	item := Item{ID: sanitize.ProductID(c.productID), Quantity: c.quantity}
	c.enqueueLocked()
	c.mu.Unlock()
	c.flush()

	callCtx := context.WithoutCancel(ctx)
	go func() {
		start := time.Now()
		err := c.call(callCtx, item)
		c.settle(gen, item, err, time.Since(start))
	}()
	return true
}

// Subscribe registers fn for state-changed notifications. Notifications are
// delivered in transition order and fn may call back into the controller.
func (c *Controller) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextSub++
	id := c.nextSub
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

// Close stops a pending revert and drops all subscribers. An in-flight call
// still settles but nobody is notified.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	c.subs = nil
	c.pending = nil
}

func (c *Controller) call(ctx context.Context, item Item) (err error) {
	if c.api == nil || item.ID == "" {
		return ErrUnavailable
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("cart: add item panicked: %v", r)
		}
	}()
	return c.api.AddItem(ctx, item)
}

func (c *Controller) settle(gen uint64, item Item, err error, took time.Duration) {
	phase := PhaseSucceeded
	if err != nil {
		phase = PhaseFailed
		c.logger.Warn("cart: add item failed",
			zap.String("product_id", item.ID),
			zap.Int("quantity", item.Quantity),
			zap.Duration("duration", took),
			zap.Error(err),
		)
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return
	}
	c.phase = phase
	c.enqueueLocked()
	if !c.closed {
		c.cancelTimer = c.schedule(c.revertDelay, func() { c.revert(gen) })
	}
	hook := c.onSettle
	c.mu.Unlock()
	c.flush()

	if hook != nil {
		hook(SubmitResult{Item: item, Phase: phase, Err: err, Duration: took})
	}
}

// revert returns to idle unless a newer submission has started since the
// timer for gen was armed.
func (c *Controller) revert(gen uint64) {
	c.mu.Lock()
	if gen != c.generation || !c.phase.Settled() {
		c.mu.Unlock()
		return
	}
	c.phase = PhaseIdle
	c.cancelTimer = nil
	c.enqueueLocked()
	c.mu.Unlock()
	c.flush()
}

func (c *Controller) snapshotLocked() Snapshot {
	return Snapshot{
		Quantity:  c.quantity,
		ProductID: c.productID,
		Phase:     c.phase,
		Label:     c.labels.For(c.phase),
		Disabled:  c.productID == "" || c.phase == PhaseSubmitting,
	}
}

func (c *Controller) enqueueLocked() {
	if len(c.subs) == 0 {
		return
	}
	c.pending = append(c.pending, c.snapshotLocked())
}

// flush delivers queued snapshots outside the lock. Only one goroutine drains
// at a time, so subscribers observe transitions in order.
func (c *Controller) flush() {
	c.mu.Lock()
	if c.dispatching {
		c.mu.Unlock()
		return
	}
	c.dispatching = true
	for len(c.pending) > 0 {
		snap := c.pending[0]
		c.pending = c.pending[1:]
		subs := append([]subscriber(nil), c.subs...)
		c.mu.Unlock()
		for _, s := range subs {
			c.notify(s.fn, snap)
		}
		c.mu.Lock()
	}
	c.dispatching = false
	c.mu.Unlock()
}

func (c *Controller) notify(fn func(Snapshot), snap Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("cart: subscriber panicked", zap.Any("panic", r))
		}
	}()
	fn(snap)
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
