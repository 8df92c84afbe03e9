package widget

import (
	"fmt"
	"sort"
	"strings"
)

// Kind names a widget type.
type Kind string

const (
	KindHero         Kind = "landing-hero"
	KindFeatures     Kind = "landing-features"
	KindMarquee      Kind = "landing-marquee"
	KindGuarantee    Kind = "landing-guarantee"
	KindDescription  Kind = "product-description"
	KindCustomHTML   Kind = "custom-html"
	KindAddToCart    Kind = "add-to-cart-actions"
	KindFastCheckout Kind = "fast-checkout-block"
	KindStickyATC    Kind = "sticky-atc-bar"

	KindProductSection  Kind = "product-section-block"
	KindProductDetails  Kind = "landing-product-details"
	KindFeaturedProduct Kind = "featured-product-overlap"
	KindIngredients     Kind = "perfume-ingredients"
	KindExpert          Kind = "expert-section"
	KindStoreFeatures   Kind = "store-features"
	KindVideos          Kind = "video-testimonials"
)

// CartButton is the add-to-cart part shared by every kind that carries one.
type CartButton struct {
	// ProductID is the raw configured value. It is resolved against the host
	// page at render time.
	ProductID         any
	FallbackProductID string
	ButtonText        string
	QuantityLabel     string
	ShowQuantity      bool
	MaxQuantity       int
}

type Hero struct {
	Title       string
	Subtitle    string
	Description string
	ImageURL    string
	Cart        CartButton
}

type Features struct {
	Title    string
	Items    []string
	ImageURL string
}

// Halves splits the items into the right and left columns.
func (f Features) Halves() (right, left []string) {
	mid := (len(f.Items) + 1) / 2
	return f.Items[:mid], f.Items[mid:]
}

type Marquee struct {
	Text   string
	Dot    string
	Repeat int
}

type Guarantee struct {
	Title             string
	Subtitle          string
	SubtitleHighlight string
	Description       string
	HeaderIconURL     string
	Features          []Card
	Cart              CartButton
}

type Description struct {
	Title     string
	Highlight string
	// BodyHTML is rendered markdown that already passed the rich text policy.
	BodyHTML string
}

type CustomHTML struct {
	// HTML passed both the script stripper and the rich text policy.
	HTML string
	CSS  string
}

type AddToCart struct {
	Cart CartButton
}

type FastCheckout struct {
	Cart CartButton
}

type StickyATC struct {
	Title    string
	Price    string
	ImageURL string
	Cart     CartButton
}

// ProductSection combines the description, price, ingredients, expert notes
// and a buy button in one block.
type ProductSection struct {
	DescTitle        string
	DescText         string
	DescHighlight    string
	CurrentPrice     float64
	OldPrice         float64
	SaveAmount       float64
	PriceLabel       string
	IngredientsTitle string
	PerfumeCards     []PerfumeCard
	ExpertBannerURL  string
	ExpertCards      []ExpertCard
	Cart             CartButton
}

// ProductDetails is display only and pairs with a separate cart widget.
type ProductDetails struct {
	Title        string
	Subtitle     string
	CurrentPrice float64
	OldPrice     float64
	PriceLabel   string
	SaveLabel    string
	TaxLabel     string
	Features     []Card
	ImageURL     string
}

type FeaturedProduct struct {
	TopBackground       string
	BottomBackground    string
	BottomHeightPercent int
	Title               string
	TitleGradientStart  string
	TitleGradientEnd    string
	TitleFontSize       int
	Subtitle            string
	SubtitleColor       string
	Description         string
	DescriptionColor    string
	ButtonText          string
	ButtonLink          string
	ButtonBackground    string
	ButtonTextColor     string
	ImageURL            string
}

type Ingredients struct {
	Title string
	Cards []PerfumeCard
}

type Expert struct {
	BannerURL string
	Cards     []ExpertCard
}

type StoreFeatures struct {
	Title    string
	Features []Card
}

// Videos is a carousel of testimonial clips in configured order.
type Videos struct {
	Title string
	URLs  []string
}

type definition struct {
	schema Schema
	build  func(Values) any
}

const (
	defaultBuyNow   = "اشتري الآن"
	defaultQtyLabel = "الكمية"
)

const maxVideos = 4

var defaultVideos = []string{
	"https://custom.makaseb.tools/n1.mp4",
	"https://custom.makaseb.tools/n2.mp4",
	"https://custom.makaseb.tools/n3.mp4",
	"https://custom.makaseb.tools/n4.mp4",
}

func cartFields(buttonText string, maxQty int) Schema {
	return cartFieldsAs("button_text", "quantity_label", buttonText, maxQty)
}

// cartFieldsAs is cartFields for kinds whose caption keys carry a prefix.
func cartFieldsAs(textKey, labelKey, buttonText string, maxQty int) Schema {
	return Schema{
		{Name: "product_id", Type: TypeProductID},
		{Name: textKey, Type: TypeString, Default: buttonText},
		{Name: labelKey, Type: TypeString, Default: defaultQtyLabel},
		{Name: "max_quantity", Type: TypeInt, Default: maxQty, Min: 1, Max: 100},
	}
}

func buildCart(v Values, showQty bool) CartButton {
	return buildCartAs(v, "button_text", "quantity_label", showQty)
}

func buildCartAs(v Values, textKey, labelKey string, showQty bool) CartButton {
	return CartButton{
		ProductID:         v.Raw("product_id"),
		FallbackProductID: v.String("fallback_product_id"),
		ButtonText:        v.String(textKey),
		QuantityLabel:     v.String(labelKey),
		ShowQuantity:      showQty,
		MaxQuantity:       v.Int("max_quantity"),
	}
}

func videoFields() Schema {
	out := Schema{{Name: "title", Type: TypeString, Default: "تجاربكم"}}
	for i := 1; i <= maxVideos; i++ {
		out = append(out, Field{Name: fmt.Sprintf("video_%d_url", i), Type: TypeURL})
	}
	return out
}

func buildVideos(v Values) any {
	urls := make([]string, 0, maxVideos)
	for i := 1; i <= maxVideos; i++ {
		if u := v.String(fmt.Sprintf("video_%d_url", i)); u != "" {
			urls = append(urls, u)
		}
	}
	if len(urls) == 0 {
		urls = append(urls, defaultVideos...)
	}
	return Videos{Title: v.String("title"), URLs: urls}
}

var registry = map[Kind]definition{
	KindHero: {
		schema: append(Schema{
			{Name: "title", Type: TypeString, Default: "هـيـرش لهب رائحة لها هيبتــها"},
			{Name: "subtitle", Type: TypeString, Default: "بخّة وحدة تكفي والباقي يصير حكاية"},
			{Name: "description", Type: TypeString},
			{Name: "image_url", Type: TypeImage},
		}, cartFields("عطر جوكر لكل الفصول ولكل اللحظات", 100)...),
		build: func(v Values) any {
			return Hero{
				Title:       v.String("title"),
				Subtitle:    v.String("subtitle"),
				Description: v.String("description"),
				ImageURL:    v.String("image_url"),
				Cart:        buildCart(v, false),
			}
		},
	},
	KindFeatures: {
		schema: Schema{
			{Name: "title", Type: TypeString, Default: "ليش حصل هيرش لهب على أكثر من 1500 تقييم؟"},
			{Name: "feature_items", Type: TypeTextList, Default: []string{
				"يناسب الجنسين",
				"استخدام \"جوكر\" لكل وقت وموسم",
				"متوازن بين النعومة والجرأة",
				"رائحة قوية وثبات عالي",
				"تصميم زجاجة فاخر يليق كهدية",
			}},
			{Name: "image_url", Type: TypeImage},
		},
		build: func(v Values) any {
			return Features{
				Title:    v.String("title"),
				Items:    v.TextList("feature_items"),
				ImageURL: v.String("image_url"),
			}
		},
	},
	KindMarquee: {
		schema: Schema{
			{Name: "text", Type: TypeString, Default: "باقي أيام قليلة وينتهي العرض"},
			{Name: "dot_char", Type: TypeString, Default: "•"},
			{Name: "repeat", Type: TypeInt, Default: 6, Min: 1, Max: 24},
		},
		build: func(v Values) any {
			return Marquee{Text: v.String("text"), Dot: v.String("dot_char"), Repeat: v.Int("repeat")}
		},
	},
	KindGuarantee: {
		schema: append(Schema{
			{Name: "title", Type: TypeString, Default: "ضمان ذهـــبي يريحك"},
			{Name: "subtitle", Type: TypeString, Default: "مع العز، تجربتك مضمـــونة"},
			{Name: "subtitle_highlight", Type: TypeString, Default: "محد مـــدحك؟"},
			{Name: "description", Type: TypeString, Default: "رجّع العطر مجانًا بدون أي تكلفة داخل السعودية.."},
			{Name: "header_icon_url", Type: TypeImage},
			{Name: "guarantee_features", Type: TypeCards},
		}, cartFields("نثق في عطونا ونثق بذوقــك", 100)...),
		build: func(v Values) any {
			return Guarantee{
				Title:             v.String("title"),
				Subtitle:          v.String("subtitle"),
				SubtitleHighlight: v.String("subtitle_highlight"),
				Description:       v.String("description"),
				HeaderIconURL:     v.String("header_icon_url"),
				Features:          v.Cards("guarantee_features"),
				Cart:              buildCart(v, false),
			}
		},
	},
	KindDescription: {
		schema: Schema{
			{Name: "title", Type: TypeString, Default: "للملوك شتاء خاص - رحلة في عالم النوادر بكج شتاء الملوك"},
			{Name: "description_text", Type: TypeMarkdown},
			{Name: "highlight", Type: TypeString},
		},
		build: func(v Values) any {
			return Description{
				Title:     v.String("title"),
				Highlight: v.String("highlight"),
				BodyHTML:  v.String("description_text"),
			}
		},
	},
	KindCustomHTML: {
		schema: Schema{
			{Name: "html_code", Type: TypeHTML},
			{Name: "css_code", Type: TypeStylesheet},
			// Accepted so existing merchant configs decode cleanly; never rendered.
			{Name: "js_code", Type: TypeString},
		},
		build: func(v Values) any {
			return CustomHTML{HTML: v.String("html_code"), CSS: v.String("css_code")}
		},
	},
	KindAddToCart: {
		schema: append(cartFields("إضافة للسلة", 100),
			Field{Name: "fallback_product_id", Type: TypeString, Default: "1593492853"},
		),
		build: func(v Values) any { return AddToCart{Cart: buildCart(v, true)} },
	},
	KindFastCheckout: {
		schema: cartFields(defaultBuyNow, 10),
		build:  func(v Values) any { return FastCheckout{Cart: buildCart(v, true)} },
	},
	KindStickyATC: {
		schema: append(Schema{
			{Name: "title", Type: TypeString, Default: "المنتج"},
			{Name: "price", Type: TypeString, Default: "199 ر.س"},
			{Name: "image_url", Type: TypeImage},
		}, cartFields(defaultBuyNow, 100)...),
		build: func(v Values) any {
			return StickyATC{
				Title:    v.String("title"),
				Price:    v.String("price"),
				ImageURL: v.String("image_url"),
				Cart:     buildCart(v, false),
			}
		},
	},
	KindProductSection: {
		schema: append(Schema{
			{Name: "desc_title", Type: TypeString, Default: "للملوك شتاء خاص - رحلة في عالم النوادر بكج شتاء الملوك"},
			{Name: "desc_text", Type: TypeString, Default: "من قلب الأخشاب النادرة، حيث يولد الدفء من عمق الطبيعة. هيرش بخوري ، عطر يليسك بشت ، مبخرة متنقلة."},
			{Name: "desc_highlight", Type: TypeString, Default: "يجتمع هيرش بخوري وكلكات بلو في تجربة عطرية لا تشبه سواها."},
			{Name: "current_price", Type: TypeNumber, Default: 199},
			{Name: "old_price", Type: TypeNumber, Default: 850},
			{Name: "save_amount", Type: TypeNumber, Default: 651},
			{Name: "price_label", Type: TypeString, Default: "بدلاً من"},
			{Name: "ingredients_main_title", Type: TypeString, Default: "مكونات العطر"},
			{Name: "perfume_cards", Type: TypePerfumeCards, Default: defaultSectionPerfumeCards},
			{Name: "expert_banner_image", Type: TypeImage, Default: defaultExpertBanner},
			{Name: "expert_cards", Type: TypeExpertCards, Default: defaultSectionExpertCards},
		}, cartFieldsAs("atc_button_text", "atc_quantity_label", defaultBuyNow, 100)...),
		build: func(v Values) any {
			return ProductSection{
				DescTitle:        v.String("desc_title"),
				DescText:         v.String("desc_text"),
				DescHighlight:    v.String("desc_highlight"),
				CurrentPrice:     v.Float("current_price"),
				OldPrice:         v.Float("old_price"),
				SaveAmount:       v.Float("save_amount"),
				PriceLabel:       v.String("price_label"),
				IngredientsTitle: v.String("ingredients_main_title"),
				PerfumeCards:     v.PerfumeCards("perfume_cards"),
				ExpertBannerURL:  v.String("expert_banner_image"),
				ExpertCards:      v.ExpertCards("expert_cards"),
				Cart:             buildCartAs(v, "atc_button_text", "atc_quantity_label", true),
			}
		},
	},
	KindProductDetails: {
		schema: Schema{
			{Name: "title", Type: TypeString, Default: "لا تخلي أحد يوصفلك"},
			{Name: "subtitle", Type: TypeString, Default: "جربه بنفسك"},
			{Name: "current_price", Type: TypeNumber, Default: 299},
			{Name: "old_price", Type: TypeNumber, Default: 801},
			{Name: "price_label", Type: TypeString, Default: "فقط - بدلاً من"},
			{Name: "save_label", Type: TypeString, Default: "وفر 502 ريال الآن"},
			{Name: "tax_label", Type: TypeString, Default: "السعر شامل الضريبة"},
			{Name: "features", Type: TypeCards, Default: []Card{
				{Icon: "🎁", Text: "هدية مجانية: عينة 3 مل مع كل طلب"},
				{Icon: "🚚", Text: "شحن لدول الخليج، أوروبا، بريطانيا وأمريكا"},
			}},
			{Name: "image_url", Type: TypeImage},
		},
		build: func(v Values) any {
			return ProductDetails{
				Title:        v.String("title"),
				Subtitle:     v.String("subtitle"),
				CurrentPrice: v.Float("current_price"),
				OldPrice:     v.Float("old_price"),
				PriceLabel:   v.String("price_label"),
				SaveLabel:    v.String("save_label"),
				TaxLabel:     v.String("tax_label"),
				Features:     v.Cards("features"),
				ImageURL:     v.String("image_url"),
			}
		},
	},
	KindFeaturedProduct: {
		schema: Schema{
			{Name: "top_bg_color", Type: TypeColor, Default: "#ffffff"},
			{Name: "bottom_bg_color", Type: TypeColor, Default: "#fdf8f5"},
			{Name: "bottom_height_percent", Type: TypeInt, Default: 40, Min: 0, Max: 100},
			{Name: "main_title", Type: TypeString},
			{Name: "title_gradient_start", Type: TypeColor, Default: "#8b4513"},
			{Name: "title_gradient_end", Type: TypeColor, Default: "#cd853f"},
			{Name: "title_font_size", Type: TypeInt, Default: 36, Min: 12, Max: 96},
			{Name: "subtitle", Type: TypeString},
			{Name: "subtitle_color", Type: TypeColor, Default: "#5c3a21"},
			{Name: "description", Type: TypeString},
			{Name: "description_color", Type: TypeColor, Default: "#333333"},
			{Name: "btn_text", Type: TypeString},
			{Name: "btn_link", Type: TypeURL},
			{Name: "btn_bg_color", Type: TypeColor, Default: "#000000"},
			{Name: "btn_text_color", Type: TypeColor, Default: "#ffffff"},
			{Name: "product_image", Type: TypeImage, Default: "https://cdn.salla.network/images/themes/default/placeholder.jpg"},
		},
		build: func(v Values) any {
			return FeaturedProduct{
				TopBackground:       v.String("top_bg_color"),
				BottomBackground:    v.String("bottom_bg_color"),
				BottomHeightPercent: v.Int("bottom_height_percent"),
				Title:               v.String("main_title"),
				TitleGradientStart:  v.String("title_gradient_start"),
				TitleGradientEnd:    v.String("title_gradient_end"),
				TitleFontSize:       v.Int("title_font_size"),
				Subtitle:            v.String("subtitle"),
				SubtitleColor:       v.String("subtitle_color"),
				Description:         v.String("description"),
				DescriptionColor:    v.String("description_color"),
				ButtonText:          v.String("btn_text"),
				ButtonLink:          v.String("btn_link"),
				ButtonBackground:    v.String("btn_bg_color"),
				ButtonTextColor:     v.String("btn_text_color"),
				ImageURL:            v.String("product_image"),
			}
		},
	},
	KindIngredients: {
		schema: Schema{
			{Name: "title", Type: TypeString, Default: "مكونات العطر:"},
			{Name: "cards", Type: TypePerfumeCards, Default: defaultPerfumeCards},
		},
		build: func(v Values) any {
			return Ingredients{Title: v.String("title"), Cards: v.PerfumeCards("cards")}
		},
	},
	KindExpert: {
		schema: Schema{
			{Name: "banner_image", Type: TypeImage, Default: defaultExpertBanner},
			{Name: "cards", Type: TypeExpertCards, Default: defaultExpertCards},
		},
		build: func(v Values) any {
			return Expert{BannerURL: v.String("banner_image"), Cards: v.ExpertCards("cards")}
		},
	},
	KindStoreFeatures: {
		schema: Schema{
			{Name: "title", Type: TypeString},
			{Name: "features", Type: TypeCards, Default: []Card{
				{ImageURL: "https://i.ibb.co/WNS1Try3/icon1.png", Title: "تابي & تمارا", Text: "قسم مشترياتك على 4 دفعات مع تابي وتمارا"},
				{ImageURL: "https://i.ibb.co/tTJmkh01/icon2.png", Title: "توصيل سريع", Text: "توصيل من 2 : 5 ايام في جميع أنحاء المملكة"},
			}},
		},
		build: func(v Values) any {
			return StoreFeatures{Title: strings.TrimSpace(v.String("title")), Features: v.Cards("features")}
		},
	},
	KindVideos: {
		schema: videoFields(),
		build:  buildVideos,
	},
}

// Kinds lists every registered kind in name order.
func Kinds() []Kind {
	out := make([]Kind, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SchemaFor returns the schema of kind k.
func SchemaFor(k Kind) (Schema, bool) {
	def, ok := registry[k]
	return def.schema, ok
}
