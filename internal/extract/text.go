package extract

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// NormalizeText applies NFKC normalization, drops control characters and
// collapses whitespace.
func NormalizeText(text string) string {
	normed := norm.NFKC.String(text)
	normed = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return ' '
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, normed)
	return strings.Join(strings.Fields(normed), " ")
}

// VisibleText returns the readable text of an HTML fragment. Plain text is
// returned normalized but otherwise untouched.
func VisibleText(content string) string {
	if !strings.Contains(content, "<") {
		return NormalizeText(content)
	}

	doc, err := html.Parse(strings.NewReader(content))
	if err != nil {
		return NormalizeText(content)
	}
	return NormalizeText(extractVisibleText(doc))
}

// hiddenElements never contribute readable text
var hiddenElements = map[string]bool{"script": true, "style": true, "noscript": true, "iframe": true, "template": true}

func extractVisibleText(root *html.Node) string {
	var parts []string
	var visit func(*html.Node)
	visit = func(n *html.Node) {
		switch {
		case n.Type == html.ElementNode && hiddenElements[n.Data]:
			return
		case n.Type == html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			visit(c)
		}
	}
	visit(root)
	return strings.Join(parts, " ")
}

// Truncate cuts text to limit runes, marking the cut with "..."
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	return string([]rune(text)[:limit]) + "..."
}
