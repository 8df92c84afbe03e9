package i18n

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"

	"golang.org/x/text/language"

	"finitefield.org/storefront-widgets/internal/cart"
)

//go:embed locales/*.json
var embedded embed.FS

type Bundle struct {
	dict     map[string]map[string]string
	fallback string
	tags     []string
	matcher  language.Matcher
}

// Load reads <lang>.json for every supported language from fsys. The
// fallback language must be present; others may be missing.
func Load(fsys fs.FS, fallback string, supported []string) (*Bundle, error) {
	if len(supported) == 0 {
		supported = []string{"ar", "en"}
	}
	b := &Bundle{
		dict:     map[string]map[string]string{},
		fallback: fallback,
	}
	// The matcher returns the index of the first tag on no match, so the
	// fallback goes first.
	ordered := []string{fallback}
	for _, l := range supported {
		if l != fallback {
			ordered = append(ordered, l)
		}
	}
	var tags []language.Tag
	for _, l := range ordered {
		raw, err := fs.ReadFile(fsys, path.Join("locales", l+".json"))
		if err != nil {
			if l == fallback {
				return nil, fmt.Errorf("load locale %s: %w", l, err)
			}
			continue
		}
		var m map[string]string
		if err := json.Unmarshal(raw, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", l, err)
		}
		tag, err := language.Parse(l)
		if err != nil {
			return nil, fmt.Errorf("parse locale tag %s: %w", l, err)
		}
		b.dict[l] = m
		b.tags = append(b.tags, l)
		tags = append(tags, tag)
	}
	b.matcher = language.NewMatcher(tags)
	return b, nil
}

// Default loads the bundled locales with Arabic as fallback.
func Default() *Bundle {
	b, err := Load(embedded, "ar", []string{"ar", "en"})
	if err != nil {
		panic(err)
	}
	return b
}

// LoadEmbedded loads the bundled locales with the given fallback.
func LoadEmbedded(fallback string) (*Bundle, error) {
	return Load(embedded, fallback, []string{"ar", "en"})
}

func (b *Bundle) Supported() []string {
	out := append([]string(nil), b.tags...)
	sort.Strings(out)
	return out
}

// Fallback returns the configured fallback language.
func (b *Bundle) Fallback() string { return b.fallback }

// IsSupported reports whether lang has a loaded dictionary.
func (b *Bundle) IsSupported(lang string) bool {
	_, ok := b.dict[lang]
	return ok
}

// T returns translation for key in lang, falling back to default and finally key.
func (b *Bundle) T(lang, key string) string {
	if m, ok := b.dict[lang]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	if m, ok := b.dict[b.fallback]; ok {
		if v, ok := m[key]; ok {
			return v
		}
	}
	return key
}

// Resolve chooses the best supported language for an Accept-Language header.
func (b *Bundle) Resolve(acceptLang string) string {
	acceptLang = strings.TrimSpace(acceptLang)
	if acceptLang == "" {
		return b.fallback
	}
	prefs, _, err := language.ParseAcceptLanguage(acceptLang)
	if err != nil || len(prefs) == 0 {
		return b.fallback
	}
	_, idx, conf := b.matcher.Match(prefs...)
	if conf == language.No || idx < 0 || idx >= len(b.tags) {
		return b.fallback
	}
	return b.tags[idx]
}

// CartLabels returns the controller captions for lang. buttonText, when set,
// replaces the idle caption.
func (b *Bundle) CartLabels(lang, buttonText string) cart.Labels {
	idle := strings.TrimSpace(buttonText)
	if idle == "" {
		idle = b.T(lang, "cart.add")
	}
	return cart.Labels{
		Idle:    idle,
		Working: b.T(lang, "cart.working"),
		Success: b.T(lang, "cart.success"),
		Failure: b.T(lang, "cart.failure"),
	}
}
