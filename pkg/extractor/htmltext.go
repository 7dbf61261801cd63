package extractor

import (
	"strings"

	"golang.org/x/net/html"
)

// htmlText renders the visible text of an HTML document, one line per
// block element. Scripts, styles and embedded objects are dropped.
func htmlText(raw string) string {
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	writeText(doc, &b)
	return strings.TrimSpace(collapseBlankLines(b.String()))
}

func writeText(n *html.Node, b *strings.Builder) {
	switch n.Type {
	case html.CommentNode:
		return
	case html.TextNode:
		if text := strings.TrimSpace(n.Data); text != "" {
			b.WriteString(text)
		}
		return
	case html.ElementNode:
		tag := strings.ToLower(n.Data)
		if isSkippedElement(tag) {
			return
		}
		if tag == "br" || isBlockElement(tag) {
			b.WriteString("\n")
			defer b.WriteString("\n")
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(c, b)
	}
}

func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return strings.Join(out, "\n")
}

// isSkippedElement returns true for elements that carry no readable text
func isSkippedElement(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "iframe", "embed", "object", "svg", "head":
		return true
	}
	return false
}

// isBlockElement returns true for elements that start a new line
func isBlockElement(tag string) bool {
	switch tag {
	case "div", "p", "section", "article", "header", "footer", "nav", "main", "aside",
		"h1", "h2", "h3", "h4", "h5", "h6", "ul", "ol", "li", "table", "tr", "td", "th",
		"form", "fieldset", "blockquote", "pre", "dd", "dt":
		return true
	}
	return false
}
