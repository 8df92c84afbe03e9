package widget

// Content shown until a merchant configures their own cards. Nested slices
// are shared between decoded widgets and must never be mutated.

const defaultExpertBanner = "https://i.ibb.co/nsc58ssG/Untitled-3.png"

const (
	topNotes   = "مقدمة العطر"
	heartNotes = "قلب العطر"
	baseNotes  = "قاعدة العطر"
)

var defaultSectionPerfumeCards = []PerfumeCard{
	{
		Title: "كلكات بلو 200 مل :",
		Sections: []IngredientSection{
			{Title: topNotes, Ingredients: []Ingredient{
				{Name: "الكمثرى الماندرين", ImageURL: "https://i.ibb.co/mVbDDfyD/image.png"},
				{Name: "البرغموت", ImageURL: "https://i.ibb.co/4wxFCXq7/image.png"},
			}},
		},
	},
}

var defaultPerfumeCards = []PerfumeCard{
	{
		Title: "كلكات بلو 200 مل :",
		Sections: []IngredientSection{
			{Title: topNotes, Ingredients: []Ingredient{
				{Name: "الكمثرى الماندرين", ImageURL: "https://i.ibb.co/mVbDDfyD/image.png"},
				{Name: "البرتقال", ImageURL: "https://i.ibb.co/zhWVx1nr/image.png"},
				{Name: "البرغموت", ImageURL: "https://i.ibb.co/4wxFCXq7/image.png"},
				{Name: "الزنجبيل", ImageURL: "https://i.ibb.co/tM0393jh/image.png"},
			}},
			{Title: heartNotes, Ingredients: []Ingredient{
				{Name: "زهر البرتقال", ImageURL: "https://i.ibb.co/Z7fHrnV/image.png"},
				{Name: "خشب الصندل", ImageURL: "https://i.ibb.co/gbJzDsXC/image.png"},
			}},
			{Title: baseNotes, Ingredients: []Ingredient{
				{Name: "خشب الأرز", ImageURL: "https://i.ibb.co/hRPhqLyC/image.png"},
				{Name: "المسك", ImageURL: "https://i.ibb.co/b5h2nCxH/image.png"},
				{Name: "آمبروفيكس", ImageURL: "https://i.ibb.co/qMhwGqG3/image.png"},
			}},
		},
	},
	{
		Title: "هيرش بخوري 100 مل :",
		Sections: []IngredientSection{
			{Title: topNotes, Ingredients: []Ingredient{
				{Name: "أخشاب بخور", ImageURL: "https://i.ibb.co/SwxpGyTC/image.png"},
			}},
			{Title: heartNotes, Ingredients: []Ingredient{
				{Name: "توت", ImageURL: "https://i.ibb.co/mKnQ9LT/image.png"},
			}},
			{Title: baseNotes, Ingredients: []Ingredient{
				{Name: "مسك", ImageURL: "https://i.ibb.co/b5h2nCxH/image.png"},
				{Name: "فانيلا", ImageURL: "https://i.ibb.co/Rpn9jDMb/image.png"},
				{Name: "عنبر", ImageURL: "https://i.ibb.co/93S48Bbm/image.png"},
				{Name: "تونكا", ImageURL: "https://i.ibb.co/kgqK2JHZ/image.png"},
				{Name: "باتشولي", ImageURL: "https://i.ibb.co/6JchYf6m/image.png"},
				{Name: "دهن العود", ImageURL: "https://i.ibb.co/B2PtL3gw/image.png"},
			}},
		},
	},
}

const expertTitle = "كلمة خبير العطور عن بكج شتوية الملوك :"

var defaultSectionExpertCards = []ExpertCard{
	{
		Title: expertTitle,
		Paragraphs: []string{
			"عندما ابتكرت هيرش بخوري و كلكات، لم أبحث عن عطور عابرة بل سعيت وراء أسطورة تُخلّد في ذاكرة عشاق النوادر.",
		},
	},
	{
		Paragraphs: []string{
			"هيرش بدخان البخور الطبيعي الممزوج بالتوت والتونكا. قوة تُشبه الأساطير، وثبات يُعلن حضورك.",
		},
		Highlight: "انت الان لست أمام عطور، بل أمام تجربة تروى كإحدى أساطير العطور.",
	},
}

var defaultExpertCards = []ExpertCard{
	{
		Title: expertTitle,
		Paragraphs: []string{
			"عندما ابتكرت هيرش بخوري و كلكات، لم أبحث عن عطور عابرة بل سعيت وراء أسطورة تُخلّد في ذاكرة عشاق النوادر.",
			"الأول، ملك الأخشاب والبخور، يمزج الثبات بالفوحان في توازن أسطوري.",
			"والثاني، جوهرة تنبض بالأناقة والغموض، تمنح حضورًا لا يُنسى.",
			"لقد ارتقيت بهما إلى مستوى يليق بالخبراء، لتكون التجربة أرقى من أي توقع.",
			"هذا هو بكج شتاء الملوك",
		},
	},
	{
		Paragraphs: []string{
			"هيرش بدخان البخور الطبيعي الممزوج بالتوت والتونكا. قوة تُشبه الأساطير، وثبات يُعلن حضورك.",
			"كلكات بلو برائحة الكمثرى وزهر البرتقال وخشب الصندل، يوازن المشهد بذائقة راقية و صعبة، رفيق صباحك الشتوي.",
		},
		Highlight: "انت الان لست أمام عطور، بل أمام تجربة تروى كإحدى أساطير العطور، أمام سيمفونية من الروائح حكاية تميز تحفر في الذاكرة، وتروى جيلاً بعد جيل.",
	},
}
