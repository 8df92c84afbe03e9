package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/coder/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront-widgets/internal/cart"
	"finitefield.org/storefront-widgets/internal/i18n"
	"finitefield.org/storefront-widgets/internal/metrics"
	"finitefield.org/storefront-widgets/internal/view"
	"finitefield.org/storefront-widgets/internal/widget"
)

type scheduled struct {
	fn       func()
	canceled bool
}

// manualScheduler only runs revert timers when the test fires them.
type manualScheduler struct {
	mu    sync.Mutex
	tasks []*scheduled
}

func (m *manualScheduler) schedule(_ time.Duration, fn func()) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := &scheduled{fn: fn}
	m.tasks = append(m.tasks, t)
	return func() {
		m.mu.Lock()
		t.canceled = true
		m.mu.Unlock()
	}
}

func (m *manualScheduler) firePending() {
	m.mu.Lock()
	tasks := m.tasks
	m.tasks = nil
	m.mu.Unlock()
	for _, t := range tasks {
		m.mu.Lock()
		canceled := t.canceled
		m.mu.Unlock()
		if !canceled {
			t.fn()
		}
	}
}

type snapshotJSON struct {
	Quantity  int    `json:"quantity"`
	ProductID string `json:"productId"`
	Phase     string `json:"phase"`
	Label     string `json:"label"`
	Disabled  bool   `json:"disabled"`
}

type harness struct {
	t       *testing.T
	srv     *Server
	ts      *httptest.Server
	client  *http.Client
	metrics *metrics.Metrics
	sched   *manualScheduler
}

func mustWidget(t *testing.T, id string, kind widget.Kind, raw map[string]any) *widget.Widget {
	t.Helper()
	w, err := widget.Decode(id, kind, raw)
	require.NoError(t, err)
	return w
}

func newHarness(t *testing.T, api cart.API, extra ...*widget.Widget) *harness {
	t.Helper()
	renderer, err := view.New()
	require.NoError(t, err)
	store := widget.NewStore(append([]*widget.Widget{
		mustWidget(t, "atc", widget.KindAddToCart, map[string]any{"max_quantity": 3}),
		mustWidget(t, "hero", widget.KindHero, map[string]any{"product_id": "55"}),
		mustWidget(t, "promo", widget.KindMarquee, nil),
	}, extra...)...)
	m := metrics.New()
	sched := &manualScheduler{}
	srv, err := New(Options{
		Store:     store,
		Bundle:    i18n.Default(),
		Renderer:  renderer,
		Metrics:   m,
		API:       api,
		Scheduler: sched.schedule,
	})
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &harness{t: t, srv: srv, ts: ts, client: &http.Client{Jar: jar}, metrics: m, sched: sched}
}

func (h *harness) do(method, path string, header http.Header) (*http.Response, string) {
	h.t.Helper()
	req, err := http.NewRequest(method, h.ts.URL+path, nil)
	require.NoError(h.t, err)
	for k, v := range header {
		req.Header[k] = v
	}
	res, err := h.client.Do(req)
	require.NoError(h.t, err)
	defer res.Body.Close()
	body, err := io.ReadAll(res.Body)
	require.NoError(h.t, err)
	return res, string(body)
}

func (h *harness) snapshot(method, path string) (int, snapshotJSON) {
	h.t.Helper()
	res, body := h.do(method, path, nil)
	var snap snapshotJSON
	if res.StatusCode < 300 || res.StatusCode == http.StatusConflict {
		require.NoError(h.t, json.Unmarshal([]byte(body), &snap), body)
	}
	return res.StatusCode, snap
}

var htmx = http.Header{"Hx-Request": {"true"}}

func TestHealthz(t *testing.T) {
	h := newHarness(t, nil)
	res, body := h.do(http.MethodGet, "/healthz", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status":"ok","widgets":3}`, body)
}

func TestMetricsEndpoint(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/widgets", nil)
	res, body := h.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body, "storefront_http_requests_total")
}

func TestListWidgets(t *testing.T) {
	h := newHarness(t, nil)
	res, body := h.do(http.MethodGet, "/widgets", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	var out []widgetSummary
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	require.Len(t, out, 3)
	require.Equal(t, "atc", out[0].ID)
	require.True(t, out[0].HasCart)
	require.False(t, out[2].HasCart)
}

func TestWidgetPageAndFragment(t *testing.T) {
	h := newHarness(t, nil)

	res, body := h.do(http.MethodGet, "/widgets/atc", nil)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "no-store", res.Header.Get("Cache-Control"))
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "rtl", doc.Find("html").AttrOr("dir", ""))
	require.Equal(t, 1, doc.Find("#cart-atc .sf-cart-btn").Length())
	require.Equal(t, "إضافة للسلة", strings.TrimSpace(doc.Find(".sf-cart-btn").Text()))

	_, fragment := h.do(http.MethodGet, "/widgets/promo", htmx)
	require.NotContains(t, fragment, "<html")
	require.Contains(t, fragment, `id="widget-promo"`)

	require.EqualValues(t, 1, testutil.ToFloat64(h.metrics.RendersTotal.WithLabelValues(string(widget.KindAddToCart))))
}

func TestWidgetNotFound(t *testing.T) {
	h := newHarness(t, nil)
	res, _ := h.do(http.MethodGet, "/widgets/missing", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = h.do(http.MethodPost, "/widgets/promo/cart", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestHostProductOnlyUsedWithoutConfiguredID(t *testing.T) {
	h := newHarness(t, nil)

	_, snap := h.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, "1593492853", snap.ProductID)

	h.do(http.MethodGet, "/widgets/atc?product=p-777", nil)
	_, snap = h.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, "777", snap.ProductID)

	h.do(http.MethodGet, "/widgets/hero?product=999", nil)
	_, snap = h.snapshot(http.MethodGet, "/widgets/hero/cart")
	require.Equal(t, "55", snap.ProductID)
}

func TestQuantityOps(t *testing.T) {
	h := newHarness(t, nil)

	for range 5 {
		h.snapshot(http.MethodPost, "/widgets/atc/quantity/increment")
	}
	_, snap := h.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, 3, snap.Quantity, "clamped to max_quantity")

	_, snap = h.snapshot(http.MethodPost, "/widgets/atc/quantity/decrement")
	require.Equal(t, 2, snap.Quantity)

	res, _ := h.do(http.MethodPost, "/widgets/atc/quantity/double", nil)
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body := h.do(http.MethodPost, "/widgets/atc/quantity/increment", htmx)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, "3", doc.Find(".sf-qty-input").AttrOr("value", ""))
	_, plusDisabled := doc.Find(".sf-qty-btn.plus").Attr("disabled")
	require.True(t, plusDisabled)
}

func TestControllersAreScopedToSession(t *testing.T) {
	h := newHarness(t, nil)
	h.snapshot(http.MethodPost, "/widgets/atc/quantity/increment")

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	other := &harness{t: t, srv: h.srv, ts: h.ts, client: &http.Client{Jar: jar}}
	_, snap := other.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, 1, snap.Quantity)

	_, snap = h.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, 2, snap.Quantity)
}

func TestSubmitLifecycle(t *testing.T) {
	release := make(chan error)
	var mu sync.Mutex
	var calls []cart.Item
	api := cart.APIFunc(func(ctx context.Context, item cart.Item) error {
		mu.Lock()
		calls = append(calls, item)
		mu.Unlock()
		return <-release
	})
	h := newHarness(t, api)
	h.snapshot(http.MethodPost, "/widgets/atc/quantity/increment")

	status, snap := h.snapshot(http.MethodPost, "/widgets/atc/cart")
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, "submitting", snap.Phase)
	require.True(t, snap.Disabled)

	status, _ = h.snapshot(http.MethodPost, "/widgets/atc/cart")
	require.Equal(t, http.StatusConflict, status)

	release <- nil
	require.Eventually(t, func() bool {
		_, s := h.snapshot(http.MethodGet, "/widgets/atc/cart")
		return s.Phase == "succeeded"
	}, 2*time.Second, 10*time.Millisecond)

	h.sched.firePending()
	_, snap = h.snapshot(http.MethodGet, "/widgets/atc/cart")
	require.Equal(t, "idle", snap.Phase)
	require.Equal(t, "إضافة للسلة", snap.Label)

	mu.Lock()
	require.Equal(t, []cart.Item{{ID: "1593492853", Quantity: 2}}, calls)
	mu.Unlock()
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.SubmissionsTotal.WithLabelValues("success")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestProductSectionCart(t *testing.T) {
	submitted := make(chan cart.Item, 1)
	api := cart.APIFunc(func(_ context.Context, item cart.Item) error {
		submitted <- item
		return nil
	})
	block := mustWidget(t, "block", widget.KindProductSection, map[string]any{
		"product_id":      "77",
		"max_quantity":    2,
		"atc_button_text": "Buy now",
	})
	h := newHarness(t, api, block)

	res, body := h.do(http.MethodGet, "/widgets/block", htmx)
	require.Equal(t, http.StatusOK, res.StatusCode)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	require.NoError(t, err)
	require.Equal(t, 1, doc.Find("#widget-block .sf-perfume-card").Length())
	require.Equal(t, "Buy now", strings.TrimSpace(doc.Find("#cart-block .sf-cart-btn").Text()))

	for range 3 {
		h.snapshot(http.MethodPost, "/widgets/block/quantity/increment")
	}
	status, snap := h.snapshot(http.MethodPost, "/widgets/block/cart")
	require.Equal(t, http.StatusAccepted, status)
	require.Equal(t, "77", snap.ProductID)

	select {
	case item := <-submitted:
		require.Equal(t, cart.Item{ID: "77", Quantity: 2}, item)
	case <-time.After(2 * time.Second):
		t.Fatal("cart submission not sent")
	}
}

func TestSubmitFailureShowsFailureLabel(t *testing.T) {
	h := newHarness(t, cart.APIFunc(func(context.Context, cart.Item) error {
		return errors.New("boom")
	}))
	h.snapshot(http.MethodPost, "/widgets/atc/cart")
	require.Eventually(t, func() bool {
		_, s := h.snapshot(http.MethodGet, "/widgets/atc/cart")
		return s.Phase == "failed" && s.Label == i18n.Default().T("ar", "cart.failure")
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.SubmissionsTotal.WithLabelValues("error")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSubmitWithoutPlatform(t *testing.T) {
	h := newHarness(t, nil)
	h.snapshot(http.MethodPost, "/widgets/atc/cart")
	require.Eventually(t, func() bool {
		_, s := h.snapshot(http.MethodGet, "/widgets/atc/cart")
		return s.Phase == "failed"
	}, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		return testutil.ToFloat64(h.metrics.SubmissionsTotal.WithLabelValues("unavailable")) == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestEventsStream(t *testing.T) {
	h := newHarness(t, nil)
	h.do(http.MethodGet, "/widgets/atc/cart", nil)

	u, err := url.Parse(h.ts.URL)
	require.NoError(t, err)
	header := http.Header{}
	for _, c := range h.client.Jar.Cookies(u) {
		header.Add("Cookie", c.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	wsURL := "ws" + strings.TrimPrefix(h.ts.URL, "http") + "/widgets/atc/events"
	conn, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{HTTPHeader: header})
	require.NoError(t, err)
	defer conn.Close(websocket.StatusNormalClosure, "")

	read := func() streamMessage {
		_, data, err := conn.Read(ctx)
		require.NoError(t, err)
		var raw struct {
			WidgetID string       `json:"widgetId"`
			State    snapshotJSON `json:"state"`
		}
		require.NoError(t, json.Unmarshal(data, &raw))
		require.Equal(t, "atc", raw.WidgetID)
		return streamMessage{WidgetID: raw.WidgetID, State: cart.Snapshot{Quantity: raw.State.Quantity, ProductID: raw.State.ProductID}}
	}

	first := read()
	require.Equal(t, 1, first.State.Quantity)
	require.Equal(t, 1, h.srv.controllers.len())

	h.do(http.MethodPost, "/widgets/atc/quantity/increment", nil)
	next := read()
	require.Equal(t, 2, next.State.Quantity)
	require.EqualValues(t, 1, testutil.ToFloat64(h.metrics.StreamsActive))
}

func TestEventsRejectsWidgetWithoutCart(t *testing.T) {
	h := newHarness(t, nil)
	res, _ := h.do(http.MethodGet, "/widgets/promo/events", nil)
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}
