package widget

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finitefield.org/storefront-widgets/internal/cart"
)

func TestSchemaDecodeFallsBackToDefaults(t *testing.T) {
	t.Parallel()

	s := Schema{
		{Name: "title", Type: TypeString, Default: "Hello"},
		{Name: "max", Type: TypeInt, Default: 10, Min: 1, Max: 100},
		{Name: "price", Type: TypeNumber, Default: 299},
		{Name: "image", Type: TypeImage, Default: "https://cdn.test/default.png"},
		{Name: "items", Type: TypeTextList, Default: []string{"a"}},
	}

	values, issues := s.Decode(map[string]any{
		"title": map[string]any{"nested": true},
		"max":   "abc",
		"price": "149.5",
		"image": "javascript:alert(1)",
		"items": 12,
		"extra": "x",
	})

	assert.Equal(t, "Hello", values.String("title"))
	assert.Equal(t, 10, values.Int("max"))
	assert.Equal(t, 149.5, values.Float("price"))
	assert.Equal(t, "https://cdn.test/default.png", values.String("image"))
	assert.Equal(t, []string{"a"}, values.TextList("items"))

	fields := make([]string, 0, len(issues))
	for _, is := range issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"title", "max", "image", "items", "extra"}, fields)
}

func TestSchemaDecodeClampsAndCoerces(t *testing.T) {
	t.Parallel()

	s := Schema{
		{Name: "max", Type: TypeInt, Default: 10, Min: 1, Max: 100},
		{Name: "label", Type: TypeString},
	}
	values, issues := s.Decode(map[string]any{"max": 500, "label": 42})
	require.Empty(t, issues)
	assert.Equal(t, 100, values.Int("max"))
	assert.Equal(t, "42", values.String("label"))

	values, _ = s.Decode(map[string]any{"max": -3.7})
	assert.Equal(t, 1, values.Int("max"))

	values, _ = s.Decode(nil)
	assert.Equal(t, 10, values.Int("max"))
	assert.Equal(t, "", values.String("label"))
}

func TestTextListShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   any
		want []string
	}{
		{name: "strings", in: []any{"a", "b"}, want: []string{"a", "b"}},
		{name: "objects", in: []any{map[string]any{"text": "a"}, map[string]any{"text": 2}}, want: []string{"a", "2"}},
		{name: "json string", in: `["x","y"]`, want: []string{"x", "y"}},
		{name: "plain string", in: "solo", want: []string{"solo"}},
		{name: "broken json is a plain string", in: `[oops`, want: []string{"[oops"}},
		{name: "empty string", in: " ", want: []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := decodeTextList(tc.in)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCardsShapes(t *testing.T) {
	t.Parallel()

	got, ok := decodeCards([]any{
		map[string]any{"title": "Free returns", "text": "30 days", "icon_url": "https://cdn.test/i.png"},
		map[string]any{"title": "Bad icon", "icon_url": "javascript:x"},
	})
	require.True(t, ok)
	assert.Equal(t, []Card{
		{Title: "Free returns", Text: "30 days", ImageURL: "https://cdn.test/i.png"},
		{Title: "Bad icon"},
	}, got)

	got, ok = decodeCards(`[{"title":"t","image_url":"/a.png"}]`)
	require.True(t, ok)
	assert.Equal(t, "https://example.com/a.png", got[0].ImageURL)

	got, ok = decodeCards([]any{"Free sample", map[string]any{"icon": " 🚚 ", "subtitle": "2-5 days"}})
	require.True(t, ok)
	assert.Equal(t, []Card{{Text: "Free sample"}, {Text: "2-5 days", Icon: "🚚"}}, got)

	_, ok = decodeCards(`not json`)
	assert.False(t, ok)
	_, ok = decodeCards([]any{1})
	assert.False(t, ok)
}

func TestPerfumeCardsShapes(t *testing.T) {
	t.Parallel()

	want := []PerfumeCard{{
		Title: "Blue",
		Sections: []IngredientSection{{
			Title:       "Top",
			Ingredients: []Ingredient{{Name: "Pear", ImageURL: "https://cdn.test/pear.png"}},
		}},
	}}
	cases := []struct {
		name string
		in   any
	}{
		{name: "nested lists", in: []any{map[string]any{
			"title": "Blue",
			"sections": []any{map[string]any{
				"section_title": "Top",
				"ingredients": []any{
					map[string]any{"name": "Pear", "image_url": "https://cdn.test/pear.png"},
					map[string]any{"name": " ", "image_url": "https://cdn.test/blank.png"},
				},
			}},
		}}},
		{name: "sections as json", in: []any{map[string]any{
			"title":    "Blue",
			"sections": `[{"section_title":"Top","ingredients":[{"name":"Pear","image_url":"https://cdn.test/pear.png"}]}]`,
		}}},
		{name: "whole list as json", in: `[{"title":"Blue","sections":[{"section_title":"Top","ingredients":[{"name":"Pear","image_url":"https://cdn.test/pear.png"},{"image_url":"https://cdn.test/x.png"}]}]}]`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := decodePerfumeCards(tc.in)
			require.True(t, ok)
			assert.Equal(t, want, got)
		})
	}

	got, ok := decodePerfumeCards([]any{map[string]any{"title": "x", "sections": []any{map[string]any{
		"ingredients": []any{map[string]any{"name": "Oud", "image_url": "javascript:alert(1)"}},
	}}}})
	require.True(t, ok)
	assert.Equal(t, "", got[0].Sections[0].Ingredients[0].ImageURL)

	_, ok = decodePerfumeCards(`{"title":"x"}`)
	assert.False(t, ok)
	_, ok = decodePerfumeCards([]any{"x"})
	assert.False(t, ok)
}

func TestExpertParagraphShapes(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		in   any
		want []string
	}{
		{name: "strings", in: []any{"a", "b"}, want: []string{"a", "b"}},
		{name: "objects", in: []any{map[string]any{"text": "a"}}, want: []string{"a"}},
		{name: "newlines", in: "a\n\n  b  \n", want: []string{"a", "b"}},
		{name: "json list", in: `["a","b"]`, want: []string{"a", "b"}},
		{name: "missing", in: nil, want: []string{}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, ok := decodeExpertCards([]any{map[string]any{"title": "t", "paragraphs": tc.in, "highlight": "h"}})
			require.True(t, ok)
			require.Len(t, got, 1)
			assert.Equal(t, ExpertCard{Title: "t", Paragraphs: tc.want, Highlight: "h"}, got[0])
		})
	}
}

func TestCardListsFallBackWhenEmpty(t *testing.T) {
	t.Parallel()

	s := Schema{
		{Name: "perfume", Type: TypePerfumeCards, Default: defaultPerfumeCards},
		{Name: "expert", Type: TypeExpertCards, Default: defaultExpertCards},
	}
	values, issues := s.Decode(map[string]any{"perfume": []any{}, "expert": ""})
	require.Empty(t, issues)
	assert.Equal(t, defaultPerfumeCards, values.PerfumeCards("perfume"))
	assert.Equal(t, defaultExpertCards, values.ExpertCards("expert"))

	values, issues = s.Decode(map[string]any{"perfume": 7, "expert": "[broken"})
	require.Len(t, issues, 2)
	assert.Equal(t, defaultPerfumeCards, values.PerfumeCards("perfume"))
	assert.Equal(t, defaultExpertCards, values.ExpertCards("expert"))
}

func TestColorAndURLFields(t *testing.T) {
	t.Parallel()

	s := Schema{
		{Name: "bg", Type: TypeColor, Default: "#ffffff"},
		{Name: "fg", Type: TypeColor, Default: "#000000"},
		{Name: "accent", Type: TypeColor, Default: "#111111"},
		{Name: "link", Type: TypeURL},
		{Name: "video", Type: TypeURL},
		{Name: "empty", Type: TypeURL},
	}
	values, issues := s.Decode(map[string]any{
		"bg":     "red;background:url(x)",
		"fg":     " rgb(1, 2, 3) ",
		"accent": "",
		"link":   "javascript:alert(1)",
		"video":  "/media/a.mp4",
		"empty":  " ",
	})
	assert.Equal(t, "#ffffff", values.String("bg"))
	assert.Equal(t, "rgb(1, 2, 3)", values.String("fg"))
	assert.Equal(t, "#111111", values.String("accent"))
	assert.Equal(t, "", values.String("link"))
	assert.Equal(t, "https://example.com/media/a.mp4", values.String("video"))
	assert.Equal(t, "", values.String("empty"))

	fields := make([]string, 0, len(issues))
	for _, is := range issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"bg", "link"}, fields)
}

func TestDecodeCustomHTMLIsSanitized(t *testing.T) {
	t.Parallel()

	w, err := Decode("promo", KindCustomHTML, map[string]any{
		"html_code": `<div onclick="x()">Sale</div><script>steal()</script><a href="javascript:y()">z</a>`,
		"css_code":  `.sale{color:red}</style><script>x()</script>`,
		"js_code":   `alert(1)`,
	})
	require.NoError(t, err)
	cfg, ok := w.Config.(CustomHTML)
	require.True(t, ok)
	assert.Contains(t, cfg.HTML, "Sale")
	assert.NotContains(t, cfg.HTML, "script")
	assert.NotContains(t, cfg.HTML, "onclick")
	assert.NotContains(t, cfg.HTML, "javascript:")
	assert.NotContains(t, strings.ToLower(cfg.CSS), "</style")
	assert.Nil(t, w.Cart())
}

func TestDecodeCartKinds(t *testing.T) {
	t.Parallel()

	w, err := Decode("buy", KindFastCheckout, map[string]any{"product_id": "sku-77", "max_quantity": 250})
	require.NoError(t, err)
	btn := w.Cart()
	require.NotNil(t, btn)
	assert.Equal(t, 100, btn.MaxQuantity)
	assert.Equal(t, "اشتري الآن", btn.ButtonText)
	assert.True(t, btn.ShowQuantity)
	assert.Equal(t, "77", btn.ResolveProductID(nil))

	w, err = Decode("buy2", KindFastCheckout, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, w.Cart().MaxQuantity)
	assert.Equal(t, "123", w.Cart().ResolveProductID(cart.HostContextMap{cart.HostProductKey: "123"}))
	assert.Equal(t, "", w.Cart().ResolveProductID(nil))

	w, err = Decode("atc", KindAddToCart, nil)
	require.NoError(t, err)
	assert.Equal(t, "1593492853", w.Cart().ResolveProductID(nil))

	w, err = Decode("atc2", KindAddToCart, map[string]any{"product_id": "abc"})
	require.NoError(t, err)
	require.Len(t, w.Issues, 1)
	assert.Equal(t, "product_id", w.Issues[0].Field)
	assert.Equal(t, "1593492853", w.Cart().ResolveProductID(nil))
}

func TestDecodeProductSection(t *testing.T) {
	t.Parallel()

	w, err := Decode("block", KindProductSection, map[string]any{
		"product_id":      "1593492853",
		"current_price":   "149.5",
		"atc_button_text": "Buy",
		"max_quantity":    3,
		"perfume_cards": []any{map[string]any{"title": "Blue", "sections": []any{
			map[string]any{"section_title": "Top", "ingredients": []any{map[string]any{"name": "Pear"}}},
		}}},
		"expert_cards":        []any{map[string]any{"paragraphs": "one\ntwo", "highlight": "!"}},
		"expert_banner_image": map[string]any{"url": "https://cdn.test/banner.png"},
	})
	require.NoError(t, err)
	require.Empty(t, w.Issues)

	cfg, ok := w.Config.(ProductSection)
	require.True(t, ok)
	assert.Equal(t, 149.5, cfg.CurrentPrice)
	assert.Equal(t, 850.0, cfg.OldPrice)
	assert.Equal(t, "https://cdn.test/banner.png", cfg.ExpertBannerURL)
	assert.Equal(t, []ExpertCard{{Paragraphs: []string{"one", "two"}, Highlight: "!"}}, cfg.ExpertCards)
	require.Len(t, cfg.PerfumeCards, 1)
	assert.Equal(t, "Pear", cfg.PerfumeCards[0].Sections[0].Ingredients[0].Name)

	btn := w.Cart()
	require.NotNil(t, btn)
	assert.Equal(t, "Buy", btn.ButtonText)
	assert.Equal(t, "الكمية", btn.QuantityLabel)
	assert.True(t, btn.ShowQuantity)
	assert.Equal(t, 3, btn.MaxQuantity)
	assert.Equal(t, "1593492853", btn.ResolveProductID(nil))

	w, err = Decode("block2", KindProductSection, map[string]any{"button_text": "ignored"})
	require.NoError(t, err)
	require.Len(t, w.Issues, 1)
	assert.Equal(t, "button_text", w.Issues[0].Field)
	assert.Equal(t, "اشتري الآن", w.Cart().ButtonText)
	assert.Equal(t, defaultSectionPerfumeCards, w.Config.(ProductSection).PerfumeCards)
}

func TestDecodeDisplayKinds(t *testing.T) {
	t.Parallel()

	w, err := Decode("details", KindProductDetails, map[string]any{"features": `[{"icon":"⭐","text":"Long lasting"},"Gift wrap"]`})
	require.NoError(t, err)
	require.Empty(t, w.Issues)
	details := w.Config.(ProductDetails)
	assert.Equal(t, []Card{{Icon: "⭐", Text: "Long lasting"}, {Text: "Gift wrap"}}, details.Features)
	assert.Equal(t, 299.0, details.CurrentPrice)
	assert.Nil(t, w.Cart())

	w, err = Decode("featured", KindFeaturedProduct, map[string]any{
		"main_title":      "Oud",
		"top_bg_color":    "url(javascript:x)",
		"btn_link":        "/collections/oud",
		"title_font_size": 400,
	})
	require.NoError(t, err)
	featured := w.Config.(FeaturedProduct)
	assert.Equal(t, "#ffffff", featured.TopBackground)
	assert.Equal(t, "https://example.com/collections/oud", featured.ButtonLink)
	assert.Equal(t, 96, featured.TitleFontSize)
	assert.Equal(t, 40, featured.BottomHeightPercent)
	require.Len(t, w.Issues, 1)
	assert.Equal(t, "top_bg_color", w.Issues[0].Field)

	w, err = Decode("store", KindStoreFeatures, map[string]any{
		"title":    "  Why us  ",
		"features": []any{map[string]any{"icon": "sicon-shipping", "title": "Fast", "subtitle": "2-5 days"}},
	})
	require.NoError(t, err)
	assert.Equal(t, StoreFeatures{Title: "Why us", Features: []Card{{Icon: "sicon-shipping", Title: "Fast", Text: "2-5 days"}}}, w.Config)

	w, err = Decode("notes", KindIngredients, nil)
	require.NoError(t, err)
	assert.Len(t, w.Config.(Ingredients).Cards, 2)

	w, err = Decode("expert", KindExpert, map[string]any{"banner_image": "javascript:x"})
	require.NoError(t, err)
	assert.Equal(t, defaultExpertBanner, w.Config.(Expert).BannerURL)
	assert.Len(t, w.Issues, 1)
}

func TestDecodeVideos(t *testing.T) {
	t.Parallel()

	w, err := Decode("videos", KindVideos, nil)
	require.NoError(t, err)
	assert.Equal(t, defaultVideos, w.Config.(Videos).URLs)

	w, err = Decode("videos", KindVideos, map[string]any{
		"video_1_url": "",
		"video_2_url": "https://cdn.test/b.mp4",
		"video_3_url": "javascript:alert(1)",
		"video_4_url": "https://cdn.test/d.mp4",
		"video_5_url": "https://cdn.test/e.mp4",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://cdn.test/b.mp4", "https://cdn.test/d.mp4"}, w.Config.(Videos).URLs)

	fields := make([]string, 0, len(w.Issues))
	for _, is := range w.Issues {
		fields = append(fields, is.Field)
	}
	assert.ElementsMatch(t, []string{"video_3_url", "video_5_url"}, fields)
}

func TestDecodeRejectsUnknownKindAndBadID(t *testing.T) {
	t.Parallel()

	_, err := Decode("x", Kind("carousel"), nil)
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = Decode("../etc", KindHero, nil)
	require.Error(t, err)
}

func TestFeaturesHalves(t *testing.T) {
	t.Parallel()

	right, left := Features{Items: []string{"a", "b", "c"}}.Halves()
	assert.Equal(t, []string{"a", "b"}, right)
	assert.Equal(t, []string{"c"}, left)

	right, left = Features{}.Halves()
	assert.Empty(t, right)
	assert.Empty(t, left)
}

const storeYAML = `
widgets:
  - id: hero
    kind: landing-hero
    config:
      title: Oud Night
      image_url: https://cdn.test/hero.png
      product_id: 1593492853
  - id: marquee
    kind: landing-marquee
    config:
      text: Sale ends soon
`

func TestParseStore(t *testing.T) {
	t.Parallel()

	widgets, err := Parse([]byte(storeYAML))
	require.NoError(t, err)
	require.Len(t, widgets, 2)

	hero, ok := widgets[0].Config.(Hero)
	require.True(t, ok)
	assert.Equal(t, "Oud Night", hero.Title)
	assert.Equal(t, "https://cdn.test/hero.png", hero.ImageURL)
	assert.Equal(t, "1593492853", hero.Cart.ResolveProductID(nil))

	_, err = Parse([]byte("widgets:\n  - id: a\n    kind: landing-marquee\n  - id: a\n    kind: landing-marquee\n"))
	require.ErrorContains(t, err, "duplicate id")

	_, err = Parse([]byte("widgets:\n  - id: a\n    kind: nope\n"))
	require.ErrorIs(t, err, ErrUnknownKind)

	_, err = Parse([]byte("widgetz: []\n"))
	require.Error(t, err)
}

func TestStoreReloadKeepsPreviousOnError(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "widgets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(storeYAML), 0o600))

	s, err := Open(path, nil)
	require.NoError(t, err)
	require.Len(t, s.List(), 2)
	v := s.Version()

	require.NoError(t, os.WriteFile(path, []byte("widgets: [oops"), 0o600))
	require.Error(t, s.Reload())
	require.Len(t, s.List(), 2)
	require.Equal(t, v, s.Version())

	_, err = s.Get("missing")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestStoreWatchReloads(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "widgets.yaml")
	require.NoError(t, os.WriteFile(path, []byte(storeYAML), 0o600))
	s, err := Open(path, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	require.NoError(t, s.Watch(ctx))

	updated := storeYAML + `  - id: features
    kind: landing-features
`
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	require.Eventually(t, func() bool {
		_, err := s.Get("features")
		return err == nil
	}, 3*time.Second, 20*time.Millisecond)
}
