package sanitize

import (
	"bytes"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	richTextOnce   sync.Once
	richTextPolicy *bluemonday.Policy

	markdown = goldmark.New(goldmark.WithExtensions(extension.Strikethrough, extension.Linkify))

	styleClose = regexp.MustCompile(`(?i)</\s*style`)

	hexColor   = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3,4}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
	funcColor  = regexp.MustCompile(`(?i)^(?:rgb|rgba|hsl|hsla)\(\s*[0-9.%,/\s]+\)$`)
	namedColor = regexp.MustCompile(`^[a-zA-Z]{3,20}$`)
)

func policy() *bluemonday.Policy {
	richTextOnce.Do(func() {
		p := bluemonday.UGCPolicy()
		p.AllowElements("figure", "figcaption", "section", "span", "div")
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("loading", "decoding").OnElements("img")
		p.RequireNoFollowOnLinks(true)
		richTextPolicy = p
	})
	return richTextPolicy
}

// RichText runs html through a parser-based allow-list policy. It is the
// stronger sanitizer that belongs in front of Markup for third-party HTML.
func RichText(html string) string {
	if html == "" {
		return ""
	}
	return policy().Sanitize(html)
}

// Markdown renders merchant markdown and passes the result through RichText.
// Render failures yield "".
func Markdown(src string) string {
	if src == "" {
		return ""
	}
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf); err != nil {
		return ""
	}
	return RichText(buf.String())
}

// Stylesheet neutralises attempts to close the surrounding <style> element.
// Every pass shrinks the input, so the loop ends once no closer is left.
func Stylesheet(css string) string {
	for styleClose.MatchString(css) {
		css = styleClose.ReplaceAllString(css, "")
	}
	return css
}

// Color returns value when it is a hex, rgb(a), hsl(a) or named CSS color,
// and "" otherwise. The result is safe inside a style attribute.
func Color(value string) string {
	c := strings.TrimSpace(value)
	if hexColor.MatchString(c) || funcColor.MatchString(c) || namedColor.MatchString(c) {
		return c
	}
	return ""
}
