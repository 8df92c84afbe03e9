// Package view renders widget fragments with html/template.
package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/widget"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// CartView is everything the cart control fragment needs.
type CartView struct {
	WidgetID         string
	Snapshot         cart.Snapshot
	ShowQuantity     bool
	MaxQuantity      int
	QuantityLabel    string
	IncreaseLabel    string
	DecreaseLabel    string
	UnavailableLabel string
}

// WidgetView is the data handed to a kind's template.
type WidgetView struct {
	ID     string
	Kind   widget.Kind
	Lang   string
	Dir    string
	Config any
	// Cart is nil for kinds without an add-to-cart control.
	Cart *CartView
}

type pageView struct {
	Lang  string
	Dir   string
	Title string
	Body  template.HTML
}

// Renderer holds the parsed template set. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	t, err := template.New("_root").Funcs(funcMap()).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	for _, k := range widget.Kinds() {
		if t.Lookup(string(k)) == nil {
			return nil, fmt.Errorf("view: no template for kind %q", k)
		}
	}
	return &Renderer{tmpl: t}, nil
}

// Widget writes the fragment for v.Kind.
func (r *Renderer) Widget(w io.Writer, v WidgetView) error {
	if err := r.tmpl.ExecuteTemplate(w, string(v.Kind), v); err != nil {
		return fmt.Errorf("view: render %s: %w", v.Kind, err)
	}
	return nil
}

// Cart writes only the cart control. HTMX swaps use it after quantity and
// submit requests.
func (r *Renderer) Cart(w io.Writer, v CartView) error {
	if err := r.tmpl.ExecuteTemplate(w, "cart", v); err != nil {
		return fmt.Errorf("view: render cart: %w", err)
	}
	return nil
}

// Page wraps the widget fragment in a standalone document for previews.
func (r *Renderer) Page(w io.Writer, title string, v WidgetView) error {
	var body bytes.Buffer
	if err := r.Widget(&body, v); err != nil {
		return err
	}
	page := pageView{
		Lang:  v.Lang,
		Dir:   v.Dir,
		Title: title,
		// body was produced by html/template above.
		Body: template.HTML(body.String()),
	}
	if err := r.tmpl.ExecuteTemplate(w, "page", page); err != nil {
		return fmt.Errorf("view: render page: %w", err)
	}
	return nil
}

// Dir returns the text direction for lang.
func Dir(lang string) string {
	switch lang {
	case "ar", "fa", "he", "ur":
		return "rtl"
	}
	return "ltr"
}
