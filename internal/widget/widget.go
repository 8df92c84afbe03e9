package widget

import (
	"errors"
	"fmt"
	"regexp"

	"finitefield.org/storefront-widgets/internal/cart"
)

var (
	// ErrNotFound is returned when no widget has the requested id.
	ErrNotFound = errors.New("widget: not found")
	// ErrUnknownKind is returned for kinds missing from the registry.
	ErrUnknownKind = errors.New("widget: unknown kind")

	validID = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)
)

// Widget is one decoded merchant widget.
type Widget struct {
	ID     string
	Kind   Kind
	Config any
	Issues []Issue
}

// Decode runs raw through the schema for kind and builds the typed config.
func Decode(id string, kind Kind, raw map[string]any) (*Widget, error) {
	if !validID.MatchString(id) {
		return nil, fmt.Errorf("widget: invalid id %q", id)
	}
	def, ok := registry[kind]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
	}
	values, issues := def.schema.Decode(raw)
	return &Widget{
		ID:     id,
		Kind:   kind,
		Config: def.build(values),
		Issues: issues,
	}, nil
}

// Cart returns the widget's add-to-cart settings, or nil for kinds without one.
func (w *Widget) Cart() *CartButton {
	switch c := w.Config.(type) {
	case Hero:
		return &c.Cart
	case Guarantee:
		return &c.Cart
	case AddToCart:
		return &c.Cart
	case FastCheckout:
		return &c.Cart
	case StickyATC:
		return &c.Cart
	case ProductSection:
		return &c.Cart
	default:
		return nil
	}
}

// ResolveProductID picks the product for this button given the host page.
func (b *CartButton) ResolveProductID(host cart.HostContext) string {
	if id := cart.ResolveProductID(b.ProductID, host); id != "" {
		return id
	}
	return cart.ResolveProductID(b.FallbackProductID, nil)
}
