package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/storefront-widgets/internal/cart"
	mw "finitefield.org/storefront-widgets/internal/middleware"
	"finitefield.org/storefront-widgets/internal/observability"
	"finitefield.org/storefront-widgets/internal/view"
	"finitefield.org/storefront-widgets/internal/widget"
)

type widgetSummary struct {
	ID      string         `json:"id"`
	Kind    widget.Kind    `json:"kind"`
	HasCart bool           `json:"hasCart"`
	Issues  []widget.Issue `json:"issues,omitempty"`
}

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"widgets": len(s.store.List()),
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	widgets := s.store.List()
	out := make([]widgetSummary, 0, len(widgets))
	for _, wd := range widgets {
		out = append(out, widgetSummary{ID: wd.ID, Kind: wd.Kind, HasCart: wd.Cart() != nil, Issues: wd.Issues})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleWidget(w http.ResponseWriter, r *http.Request) {
	wd, ok := s.lookup(w, r)
	if !ok {
		return
	}
	lang := s.lang(r)
	v := view.WidgetView{ID: wd.ID, Kind: wd.Kind, Lang: lang, Dir: view.Dir(lang), Config: wd.Config}
	if b := wd.Cart(); b != nil {
		ctrl := s.controller(r, wd, b, lang)
		if id := strings.TrimSpace(r.URL.Query().Get("product")); id != "" {
			ctrl.SetProductID(b.ResolveProductID(cart.HostContextMap{cart.HostProductKey: id}))
		}
		cv := s.cartView(wd.ID, b, lang, ctrl.Snapshot())
		v.Cart = &cv
	}

	var buf bytes.Buffer
	var err error
	if mw.IsHTMX(r.Context()) {
		err = s.renderer.Widget(&buf, v)
	} else {
		err = s.renderer.Page(&buf, wd.ID, v)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if s.metrics != nil {
		s.metrics.RendersTotal.WithLabelValues(string(wd.Kind)).Inc()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) handleCart(w http.ResponseWriter, r *http.Request) {
	wd, b, ok := s.lookupCart(w, r)
	if !ok {
		return
	}
	lang := s.lang(r)
	ctrl := s.controller(r, wd, b, lang)
	s.respondCart(w, r, http.StatusOK, wd.ID, b, lang, ctrl.Snapshot())
}

func (s *Server) handleQuantity(w http.ResponseWriter, r *http.Request) {
	wd, b, ok := s.lookupCart(w, r)
	if !ok {
		return
	}
	lang := s.lang(r)
	ctrl := s.controller(r, wd, b, lang)
	switch chi.URLParam(r, "op") {
	case "increment":
		ctrl.Increment()
	case "decrement":
		ctrl.Decrement()
	default:
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "op must be increment or decrement"})
		return
	}
	s.respondCart(w, r, http.StatusOK, wd.ID, b, lang, ctrl.Snapshot())
}

// handleSubmit starts a submission and answers immediately with the
// Submitting snapshot; the outcome arrives over the stream or by polling.
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	wd, b, ok := s.lookupCart(w, r)
	if !ok {
		return
	}
	lang := s.lang(r)
	ctrl := s.controller(r, wd, b, lang)
	status := http.StatusAccepted
	if !ctrl.Submit(r.Context()) {
		status = http.StatusConflict
	}
	if mw.IsHTMX(r.Context()) {
		// htmx only swaps 2xx responses.
		status = http.StatusOK
	}
	s.respondCart(w, r, status, wd.ID, b, lang, ctrl.Snapshot())
}

func (s *Server) lookup(w http.ResponseWriter, r *http.Request) (*widget.Widget, bool) {
	wd, err := s.store.Get(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, widget.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody{Error: "widget not found"})
			return nil, false
		}
		s.fail(w, r, err)
		return nil, false
	}
	return wd, true
}

func (s *Server) lookupCart(w http.ResponseWriter, r *http.Request) (*widget.Widget, *widget.CartButton, bool) {
	wd, ok := s.lookup(w, r)
	if !ok {
		return nil, nil, false
	}
	b := wd.Cart()
	if b == nil {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "widget has no cart control"})
		return nil, nil, false
	}
	return wd, b, true
}

func (s *Server) lang(r *http.Request) string {
	return mw.Lang(r, s.bundle.Fallback())
}

func (s *Server) controller(r *http.Request, wd *widget.Widget, b *widget.CartButton, lang string) *cart.Controller {
	return s.controllers.acquire(s.key(r, wd.ID, lang), wd, b, s.store.Version())
}

func (s *Server) key(r *http.Request, widgetID, lang string) controllerKey {
	var sid string
	if sess := mw.SessionFrom(r.Context()); sess != nil {
		sid = sess.ID
	}
	return controllerKey{session: sid, widget: widgetID, lang: lang}
}

func (s *Server) cartView(widgetID string, b *widget.CartButton, lang string, snap cart.Snapshot) view.CartView {
	qtyLabel := b.QuantityLabel
	if qtyLabel == "" {
		qtyLabel = s.bundle.T(lang, "cart.quantity")
	}
	return view.CartView{
		WidgetID:         widgetID,
		Snapshot:         snap,
		ShowQuantity:     b.ShowQuantity,
		MaxQuantity:      b.MaxQuantity,
		QuantityLabel:    qtyLabel,
		IncreaseLabel:    s.bundle.T(lang, "cart.increase"),
		DecreaseLabel:    s.bundle.T(lang, "cart.decrease"),
		UnavailableLabel: s.bundle.T(lang, "cart.unavailable"),
	}
}

// respondCart answers htmx and HTML clients with the cart fragment and
// everyone else with the JSON snapshot.
func (s *Server) respondCart(w http.ResponseWriter, r *http.Request, status int, widgetID string, b *widget.CartButton, lang string, snap cart.Snapshot) {
	if !wantsHTML(r) {
		writeJSON(w, status, snap)
		return
	}
	var buf bytes.Buffer
	if err := s.renderer.Cart(&buf, s.cartView(widgetID, b, lang, snap)); err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	observability.FromContext(r.Context()).Error("request failed", zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
}

func wantsHTML(r *http.Request) bool {
	if mw.IsHTMX(r.Context()) {
		return true
	}
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
