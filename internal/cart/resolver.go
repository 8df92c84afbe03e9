package cart

import (
	"fmt"
	"strings"

	"finitefield.org/storefront-widgets/internal/sanitize"
)

// HostProductKey is the host-page context key holding the current product id.
const HostProductKey = "product.id"

// ResolveProductID picks the product a widget acts on. A non-blank
// configValue wins; otherwise the host page is asked for HostProductKey.
// Lookup errors and panics count as "no value". The result is always either
// "" or a sanitized product id.
func ResolveProductID(configValue any, host HostContext) string {
	if configValue != nil && strings.TrimSpace(fmt.Sprint(configValue)) != "" {
		return sanitize.ProductID(configValue)
	}
	if v := lookup(host, HostProductKey); v != nil {
		return sanitize.ProductID(v)
	}
	return ""
}

func lookup(host HostContext, key string) (v any) {
	if host == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			v = nil
		}
	}()
	val, err := host.Get(key)
	if err != nil {
		return nil
	}
	return val
}
