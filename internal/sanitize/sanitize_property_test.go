package sanitize

import (
	"net/url"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// TestSanitizerProperties checks the invariants every caller relies on.
func TestSanitizerProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 500
	properties := gopter.NewProperties(parameters)

	properties.Property("ProductID is idempotent", prop.ForAll(
		func(s string) bool {
			once := ProductID(s)
			return ProductID(once) == once
		},
		gen.AnyString(),
	))

	properties.Property("ProductID output is empty or 1-20 ascii digits", prop.ForAll(
		func(s string) bool {
			out := ProductID(s)
			if out == "" {
				return true
			}
			if len(out) > MaxProductIDLen {
				return false
			}
			return strings.Trim(out, "0123456789") == ""
		},
		gen.OneGenOf(gen.AnyString(), gen.NumString(), gen.AlphaString()),
	))

	properties.Property("ProductID accepts integers", prop.ForAll(
		func(n int64) bool {
			out := ProductID(n)
			return out != "" && ProductID(out) == out
		},
		gen.Int64Range(0, 1<<62),
	))

	properties.Property("URL output is empty or an allowed scheme", prop.ForAll(
		func(s string) bool {
			out := URL(s)
			if out == "" {
				return true
			}
			u, err := url.Parse(out)
			if err != nil {
				return false
			}
			_, ok := allowedSchemes[u.Scheme]
			return ok
		},
		gen.OneGenOf(
			gen.AnyString(),
			gen.AlphaString().Map(func(s string) string { return s + ":" + s }),
			gen.AlphaString().Map(func(s string) string { return "https://" + s + ".test/" + s }),
		),
	))

	properties.Property("Markup is stable once applied", prop.ForAll(
		func(s string) bool {
			once := Markup(s)
			return Markup(once) == once
		},
		gen.OneGenOf(
			gen.AnyString(),
			gen.AlphaString().Map(func(s string) string {
				return `<div onclick="` + s + `">` + s + `</div><script>` + s + `</script>`
			}),
		),
	))

	properties.TestingRun(t)
}
