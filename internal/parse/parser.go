// Package parse extracts display text from raw article markup. Parsing
// degrades gracefully: malformed markup yields empty strings, never an error,
// so a broken page cannot crash the pipeline.
package parse

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Title returns the text of the document's <title> element, with whitespace
// collapsed, or the empty string when the element is absent.
func Title(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	return collapseWhitespace(doc.Find("title").First().Text())
}

// Text returns the visible text of the document: script, style, meta and
// other non-content elements removed, text nodes joined by single spaces,
// and every whitespace run collapsed to one space. Original accents and
// casing are preserved; this is the text surfaced to users as match context.
func Text(htmlContent string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}
	doc.Find("script, style, meta, noscript, iframe").Remove()

	var b strings.Builder
	for _, n := range doc.Selection.Nodes {
		visibleText(n, &b)
	}
	return collapseWhitespace(b.String())
}

// visibleText walks the node tree appending text nodes, skipping elements
// that never carry display text.
func visibleText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode {
		switch n.Data {
		case "script", "style", "meta", "noscript", "iframe":
			return
		}
	}

	if n.Type == html.TextNode {
		text := strings.TrimSpace(n.Data)
		if text != "" {
			b.WriteString(text)
			b.WriteString(" ")
		}
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		visibleText(c, b)
	}
}

func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
