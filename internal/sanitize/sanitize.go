// Package sanitize converts untrusted merchant configuration into values that
// are safe to render or to send to the commerce platform.
//
// Every function here is pure and fails closed: invalid input yields the empty
// string, never an error or a panic.
package sanitize

import (
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// MaxProductIDLen bounds the digit count accepted as a product identifier.
const MaxProductIDLen = 20

// trustedBase resolves relative image and link references.
var trustedBase = &url.URL{Scheme: "https", Host: "example.com", Path: "/"}

var allowedSchemes = map[string]struct{}{
	"http":  {},
	"https": {},
	"data":  {},
}

var (
	nonDigit      = regexp.MustCompile(`\D`)
	dataMediaType = regexp.MustCompile(`(?i)^data:([^;,]+)[;,]`)

	scriptBlock   = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</script>`)
	quotedHandler = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*["'][^"']*["']`)
	bareHandler   = regexp.MustCompile(`(?i)\s+on\w+\s*=\s*[^\s>]+`)
)

// ProductID returns the ASCII digits of value when there are between 1 and
// MaxProductIDLen of them, and "" otherwise. Strings, integers, floats and
// json.Number are accepted; nil and anything else stringify first.
func ProductID(value any) string {
	s := strings.TrimSpace(stringify(value))
	if s == "" {
		return ""
	}
	digits := nonDigit.ReplaceAllString(s, "")
	if len(digits) == 0 || len(digits) > MaxProductIDLen {
		return ""
	}
	return digits
}

// URL resolves value against a fixed trusted base and returns the absolute
// form when its scheme is http, https or data. data: URLs must carry an
// image/* media type. Anything else, including parse failures, yields "".
func URL(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	ref, err := url.Parse(trimmed)
	if err != nil {
		return ""
	}
	resolved := trustedBase.ResolveReference(ref)
	scheme := strings.ToLower(resolved.Scheme)
	if _, ok := allowedSchemes[scheme]; !ok {
		return ""
	}
	switch scheme {
	case "data":
		m := dataMediaType.FindStringSubmatch(trimmed)
		if m == nil || !strings.HasPrefix(strings.ToLower(strings.TrimSpace(m[1])), "image/") {
			return ""
		}
	default:
		if resolved.Host == "" {
			return ""
		}
		if resolved.Path == "" && resolved.Opaque == "" {
			resolved.Path = "/"
		}
	}
	return resolved.String()
}

// Markup strips <script> blocks and inline on* event handler attributes.
//
// This is pattern-based stripping, not a parser-based sanitizer. Fully
// untrusted third-party HTML must also go through RichText.
func Markup(value string) string {
	out := value
	// Removing one match can splice a new one together, so run to a fixed point.
	for i := 0; i < 8; i++ {
		next := scriptBlock.ReplaceAllString(out, "")
		next = quotedHandler.ReplaceAllString(next, " ")
		next = bareHandler.ReplaceAllString(next, " ")
		if next == out {
			break
		}
		out = next
	}
	return out
}

// ImageURLFromConfig picks an image reference out of a loosely shaped config
// value: a plain string, a map carrying url/src/path, or a list whose first
// usable element is one of those. The chosen string goes through URL.
func ImageURLFromConfig(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return URL(v)
	case map[string]any:
		for _, key := range []string{"url", "src", "path"} {
			if s, ok := v[key].(string); ok && strings.TrimSpace(s) != "" {
				return URL(s)
			}
		}
		return ""
	case []any:
		for _, item := range v {
			if out := ImageURLFromConfig(item); out != "" {
				return out
			}
		}
		return ""
	default:
		return ""
	}
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case json.Number:
		return v.String()
	case int:
		return strconv.Itoa(v)
	case int32:
		return strconv.FormatInt(int64(v), 10)
	case int64:
		return strconv.FormatInt(v, 10)
	case uint:
		return strconv.FormatUint(uint64(v), 10)
	case uint32:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
