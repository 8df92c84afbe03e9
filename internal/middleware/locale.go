package middleware

import (
	"net/http"
	"strings"

	"finitefield.org/storefront-widgets/internal/i18n"
)

// Locale resolves the shopper's language: ?hl= override, then the session,
// then Accept-Language. Unsupported values resolve to the bundle fallback.
func Locale(bundle *i18n.Bundle) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Accept-Language")
			s := SessionFrom(r.Context())
			lang := ""
			if q := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("hl"))); q != "" && bundle.IsSupported(q) {
				lang = q
			} else if s != nil && bundle.IsSupported(s.Locale) {
				lang = s.Locale
			} else {
				lang = bundle.Resolve(r.Header.Get("Accept-Language"))
			}
			if s != nil && s.Locale != lang {
				s.Locale = lang
				s.MarkDirty()
			}
			w.Header().Set("Content-Language", lang)
			next.ServeHTTP(w, r.WithContext(WithLang(r.Context(), lang)))
		})
	}
}

// Lang returns the language resolved by Locale, or fallback when absent.
func Lang(r *http.Request, fallback string) string {
	if v, ok := r.Context().Value(ctxKeyLang).(string); ok && v != "" {
		return v
	}
	return fallback
}
