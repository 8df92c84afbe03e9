package view

import (
	"html/template"
	"strconv"

	"finitefield.org/storefront-widgets/internal/widget"
)

// The trusted* helpers only ever receive values that already went through
// internal/sanitize while the widget config was decoded.
func funcMap() template.FuncMap {
	return template.FuncMap{
		"trustedHTML": func(s string) template.HTML { return template.HTML(s) },
		"trustedCSS":  func(s string) template.CSS { return template.CSS(s) },
		// data:image URLs would otherwise be replaced with #ZgotmplZ.
		"safeURL": func(s string) template.URL { return template.URL(s) },
		"repeat": func(n int) []struct{} {
			if n < 0 {
				n = 0
			}
			return make([]struct{}, n)
		},
		"price": func(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) },
		"columns": func(f widget.Features) [2][]string {
			right, left := f.Halves()
			return [2][]string{right, left}
		},
	}
}
