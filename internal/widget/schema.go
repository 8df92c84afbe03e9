// Package widget decodes merchant widget configuration through an explicit
// schema into typed, already-sanitized values.
package widget

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"finitefield.org/storefront-widgets/internal/sanitize"
)

// FieldType selects how a raw config value is decoded.
type FieldType int

const (
	TypeString FieldType = iota
	TypeInt
	TypeNumber
	TypeImage
	TypeProductID
	TypeHTML
	TypeMarkdown
	TypeStylesheet
	TypeTextList
	TypeCards
	TypePerfumeCards
	TypeExpertCards
	TypeColor
	TypeURL
)

var fieldTypeNames = map[FieldType]string{
	TypeString:     "string",
	TypeInt:        "int",
	TypeNumber:     "number",
	TypeImage:      "image",
	TypeProductID:  "product_id",
	TypeHTML:       "html",
	TypeMarkdown:   "markdown",
	TypeStylesheet: "stylesheet",
	TypeTextList:   "text_list",
	TypeCards:        "cards",
	TypePerfumeCards: "perfume_cards",
	TypeExpertCards:  "expert_cards",
	TypeColor:        "color",
	TypeURL:          "url",
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return "type(" + strconv.Itoa(int(t)) + ")"
}

// Field is one schema entry. Min and Max bound numeric fields when Min < Max.
type Field struct {
	Name    string
	Type    FieldType
	Default any
	Min     float64
	Max     float64
}

// Schema lists the fields a widget kind understands.
type Schema []Field

// Issue records a field that fell back to its default, or an unknown key.
type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

func (i Issue) String() string { return i.Field + ": " + i.Reason }

// Card is a titled entry with optional text, image and icon. Icon is free
// text: an emoji or an icon font class, depending on the kind.
type Card struct {
	Title    string `json:"title"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl"`
	Icon     string `json:"icon,omitempty"`
}

// Ingredient is one note of a perfume.
type Ingredient struct {
	Name     string `json:"name"`
	ImageURL string `json:"imageUrl"`
}

// IngredientSection groups notes, such as the top or base of a perfume.
type IngredientSection struct {
	Title       string       `json:"title"`
	Ingredients []Ingredient `json:"ingredients"`
}

// PerfumeCard lists the ingredient sections of one perfume.
type PerfumeCard struct {
	Title    string              `json:"title"`
	Sections []IngredientSection `json:"sections"`
}

// ExpertCard is a quote block with an optional title and closing highlight.
type ExpertCard struct {
	Title      string   `json:"title"`
	Paragraphs []string `json:"paragraphs"`
	Highlight  string   `json:"highlight"`
}

// Values holds decoded fields keyed by name. Every schema field is present.
type Values map[string]any

// String returns a decoded string field.
func (v Values) String(name string) string {
	s, _ := v[name].(string)
	return s
}

// Int returns a decoded int field.
func (v Values) Int(name string) int {
	n, _ := v[name].(int)
	return n
}

// Float returns a decoded number field.
func (v Values) Float(name string) float64 {
	f, _ := v[name].(float64)
	return f
}

// TextList returns a decoded text list.
func (v Values) TextList(name string) []string {
	l, _ := v[name].([]string)
	return l
}

// Cards returns decoded cards.
func (v Values) Cards(name string) []Card {
	c, _ := v[name].([]Card)
	return c
}

// PerfumeCards returns decoded perfume cards.
func (v Values) PerfumeCards(name string) []PerfumeCard {
	c, _ := v[name].([]PerfumeCard)
	return c
}

// ExpertCards returns decoded expert cards.
func (v Values) ExpertCards(name string) []ExpertCard {
	c, _ := v[name].([]ExpertCard)
	return c
}

// Raw returns a value kept undecoded, such as a product id awaiting resolution.
func (v Values) Raw(name string) any { return v[name] }

// Decode applies the schema to raw. It never fails: bad fields take their
// default and are reported as issues, and unknown keys are reported too.
func (s Schema) Decode(raw map[string]any) (Values, []Issue) {
	out := make(Values, len(s))
	var issues []Issue
	known := make(map[string]struct{}, len(s))
	for _, f := range s {
		known[f.Name] = struct{}{}
		val, present := raw[f.Name]
		if !present || val == nil {
			out[f.Name] = f.defaultValue()
			continue
		}
		decoded, reason := f.decode(val)
		if reason != "" {
			issues = append(issues, Issue{Field: f.Name, Reason: reason})
			decoded = f.defaultValue()
		}
		out[f.Name] = decoded
	}
	for key := range raw {
		if _, ok := known[key]; !ok {
			issues = append(issues, Issue{Field: key, Reason: "unknown field ignored"})
		}
	}
	return out, issues
}

func (f Field) defaultValue() any {
	switch f.Type {
	case TypeInt:
		n, _ := toFloat(f.Default)
		return int(f.clamp(n))
	case TypeNumber:
		n, _ := toFloat(f.Default)
		return f.clamp(n)
	case TypeTextList:
		if l, ok := f.Default.([]string); ok {
			return append([]string(nil), l...)
		}
		return []string{}
	case TypeCards:
		if c, ok := f.Default.([]Card); ok {
			return append([]Card(nil), c...)
		}
		return []Card{}
	case TypePerfumeCards:
		if c, ok := f.Default.([]PerfumeCard); ok {
			return append([]PerfumeCard(nil), c...)
		}
		return []PerfumeCard{}
	case TypeExpertCards:
		if c, ok := f.Default.([]ExpertCard); ok {
			return append([]ExpertCard(nil), c...)
		}
		return []ExpertCard{}
	case TypeColor:
		s, _ := f.Default.(string)
		return sanitize.Color(s)
	case TypeProductID:
		return f.Default
	case TypeURL, TypeImage:
		s, _ := f.Default.(string)
		return sanitize.URL(s)
	default:
		s, _ := f.Default.(string)
		out, _ := f.decode(s)
		if str, ok := out.(string); ok {
			return str
		}
		return ""
	}
}

func (f Field) decode(val any) (any, string) {
	switch f.Type {
	case TypeString:
		s, ok := scalarString(val)
		if !ok {
			return nil, "expected string"
		}
		return s, ""
	case TypeInt, TypeNumber:
		n, ok := toFloat(val)
		if !ok {
			return nil, "expected number"
		}
		n = f.clamp(n)
		if f.Type == TypeInt {
			return int(math.Round(n)), ""
		}
		return n, ""
	case TypeImage:
		out := sanitize.ImageURLFromConfig(val)
		if out == "" {
			return nil, "image url rejected"
		}
		return out, ""
	case TypeProductID:
		s, ok := scalarString(val)
		if !ok {
			return nil, "expected product id"
		}
		if strings.TrimSpace(s) != "" && sanitize.ProductID(val) == "" {
			return nil, "product id must be 1-20 digits"
		}
		return val, ""
	case TypeHTML:
		s, ok := val.(string)
		if !ok {
			return nil, "expected html string"
		}
		return sanitize.RichText(sanitize.Markup(s)), ""
	case TypeMarkdown:
		s, ok := val.(string)
		if !ok {
			return nil, "expected markdown string"
		}
		return sanitize.Markdown(s), ""
	case TypeStylesheet:
		s, ok := val.(string)
		if !ok {
			return nil, "expected stylesheet string"
		}
		return sanitize.Stylesheet(s), ""
	case TypeTextList:
		l, ok := decodeTextList(val)
		if !ok {
			return nil, "expected list of strings"
		}
		return l, ""
	case TypeCards:
		c, ok := decodeCards(val)
		if !ok {
			return nil, "expected list of cards"
		}
		return c, ""
	case TypePerfumeCards:
		c, ok := decodePerfumeCards(val)
		if !ok {
			return nil, "expected list of perfume cards"
		}
		if len(c) == 0 {
			return f.defaultValue(), ""
		}
		return c, ""
	case TypeExpertCards:
		c, ok := decodeExpertCards(val)
		if !ok {
			return nil, "expected list of expert cards"
		}
		if len(c) == 0 {
			return f.defaultValue(), ""
		}
		return c, ""
	case TypeColor:
		s, ok := val.(string)
		if !ok {
			return nil, "expected color string"
		}
		if strings.TrimSpace(s) == "" {
			return f.defaultValue(), ""
		}
		c := sanitize.Color(s)
		if c == "" {
			return nil, "color rejected"
		}
		return c, ""
	case TypeURL:
		s, ok := val.(string)
		if !ok {
			return nil, "expected url string"
		}
		if strings.TrimSpace(s) == "" {
			return "", ""
		}
		u := sanitize.URL(s)
		if u == "" {
			return nil, "url rejected"
		}
		return u, ""
	default:
		return nil, "unsupported field type " + f.Type.String()
	}
}

func (f Field) clamp(n float64) float64 {
	if f.Min < f.Max {
		if n < f.Min {
			return f.Min
		}
		if n > f.Max {
			return f.Max
		}
	}
	return n
}

func scalarString(val any) (string, bool) {
	switch v := val.(type) {
	case string:
		return v, true
	case bool:
		return strconv.FormatBool(v), true
	case int:
		return strconv.Itoa(v), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case uint64:
		return strconv.FormatUint(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case json.Number:
		return v.String(), true
	default:
		return "", false
	}
}

func toFloat(val any) (float64, bool) {
	var n float64
	switch v := val.(type) {
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case uint64:
		n = float64(v)
	case float64:
		n = v
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}

// decodeTextList accepts a list of strings or {text} objects, a JSON string
// encoding such a list, or a single plain string.
func decodeTextList(val any) ([]string, bool) {
	switch v := val.(type) {
	case []string:
		return append([]string(nil), v...), true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			switch it := item.(type) {
			case map[string]any:
				s, _ := scalarString(it["text"])
				out = append(out, s)
			case nil:
				out = append(out, "")
			default:
				s, ok := scalarString(it)
				if !ok {
					return nil, false
				}
				out = append(out, s)
			}
		}
		return out, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return []string{}, true
		}
		var arr []any
		if strings.HasPrefix(trimmed, "[") && json.Unmarshal([]byte(trimmed), &arr) == nil {
			return decodeTextList(arr)
		}
		return []string{v}, true
	default:
		return nil, false
	}
}

// decodeCards accepts a list of objects or a JSON string encoding one. A
// plain string item becomes a card with only text.
func decodeCards(val any) ([]Card, bool) {
	v, ok := listOf(val)
	if !ok {
		return nil, false
	}
	out := make([]Card, 0, len(v))
	for _, item := range v {
		switch it := item.(type) {
		case string:
			out = append(out, Card{Text: it})
		case map[string]any:
			title, _ := scalarString(it["title"])
			text, _ := scalarString(firstPresent(it, "text", "description", "name", "subtitle"))
			icon, _ := scalarString(it["icon"])
			out = append(out, Card{
				Title:    title,
				Text:     text,
				ImageURL: sanitize.ImageURLFromConfig(firstPresent(it, "icon_url", "image_url", "image")),
				Icon:     strings.TrimSpace(icon),
			})
		default:
			return nil, false
		}
	}
	return out, true
}

// decodePerfumeCards accepts cards whose sections, or the whole list, may
// arrive as JSON strings. Ingredients without a name are dropped.
func decodePerfumeCards(val any) ([]PerfumeCard, bool) {
	v, ok := listOf(val)
	if !ok {
		return nil, false
	}
	out := make([]PerfumeCard, 0, len(v))
	for _, item := range v {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		title, _ := scalarString(m["title"])
		card := PerfumeCard{Title: title, Sections: []IngredientSection{}}
		sections, _ := listOf(m["sections"])
		for _, rawSection := range sections {
			sm, ok := rawSection.(map[string]any)
			if !ok {
				continue
			}
			sectionTitle, _ := scalarString(firstPresent(sm, "section_title", "title"))
			section := IngredientSection{Title: sectionTitle, Ingredients: []Ingredient{}}
			notes, _ := listOf(sm["ingredients"])
			for _, rawNote := range notes {
				nm, ok := rawNote.(map[string]any)
				if !ok {
					continue
				}
				name, _ := scalarString(nm["name"])
				if strings.TrimSpace(name) == "" {
					continue
				}
				section.Ingredients = append(section.Ingredients, Ingredient{
					Name:     name,
					ImageURL: sanitize.ImageURLFromConfig(firstPresent(nm, "image_url", "image", "icon_url")),
				})
			}
			card.Sections = append(card.Sections, section)
		}
		out = append(out, card)
	}
	return out, true
}

// decodeExpertCards accepts paragraphs as a list of strings or {text}
// objects, a JSON list, or newline separated text.
func decodeExpertCards(val any) ([]ExpertCard, bool) {
	v, ok := listOf(val)
	if !ok {
		return nil, false
	}
	out := make([]ExpertCard, 0, len(v))
	for _, item := range v {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, false
		}
		title, _ := scalarString(m["title"])
		highlight, _ := scalarString(m["highlight"])
		out = append(out, ExpertCard{
			Title:      title,
			Paragraphs: decodeParagraphs(m["paragraphs"]),
			Highlight:  highlight,
		})
	}
	return out, true
}

func decodeParagraphs(val any) []string {
	if s, ok := val.(string); ok && !strings.HasPrefix(strings.TrimSpace(s), "[") {
		out := []string{}
		for _, line := range strings.Split(s, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				out = append(out, line)
			}
		}
		return out
	}
	if l, ok := decodeTextList(val); ok {
		return l
	}
	return []string{}
}

// listOf unwraps a list given directly or as a JSON string. A blank string is
// an empty list.
func listOf(val any) ([]any, bool) {
	switch v := val.(type) {
	case []any:
		return v, true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return nil, true
		}
		var arr []any
		if err := json.Unmarshal([]byte(trimmed), &arr); err != nil {
			return nil, false
		}
		return arr, true
	case nil:
		return nil, true
	default:
		return nil, false
	}
}

func firstPresent(m map[string]any, keys ...string) any {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v
		}
	}
	return nil
}

// Describe renders the schema as "name type default" lines for CLI output.
func (s Schema) Describe() []string {
	out := make([]string, 0, len(s))
	for _, f := range s {
		out = append(out, fmt.Sprintf("%s\t%s\t%v", f.Name, f.Type, f.Default))
	}
	return out
}
