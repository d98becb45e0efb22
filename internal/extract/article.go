package extract

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// bodySelectors are tried in order to find the main content of a news page
var bodySelectors = []string{
	"[itemprop=articleBody]",
	"article",
	"main",
	"[role=main]",
	"body",
}

// chrome is page furniture that never holds the claims of an article
const chrome = "script, style, noscript, iframe, nav, header, footer, aside, form, figure figcaption"

// Article is the readable part of a news page
type Article struct {
	Title string
	Text  string
}

// ParseArticle picks the headline and main body text out of an HTML page.
// Plain text comes back as the body with no title.
func ParseArticle(content string) (Article, error) {
	if !strings.Contains(content, "<") {
		return Article{Text: NormalizeText(content)}, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return Article{}, err
	}

	article := Article{Title: pageTitle(doc)}

	doc.Find(chrome).Remove()
	for _, sel := range bodySelectors {
		body := doc.Find(sel).First()
		if body.Length() == 0 {
			continue
		}
		if text := blockText(body); text != "" {
			article.Text = text
			break
		}
	}
	return article, nil
}

// pageTitle returns the headline: og:title, then <title>, then the first <h1>
func pageTitle(doc *goquery.Document) string {
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
		if t := NormalizeText(og); t != "" {
			return t
		}
	}
	if t := NormalizeText(doc.Find("title").First().Text()); t != "" {
		return t
	}
	return NormalizeText(doc.Find("h1").First().Text())
}

// blockText joins the text of paragraphs and headings so adjacent blocks do
// not run together. Bodies without such blocks fall back to all their text.
func blockText(sel *goquery.Selection) string {
	var parts []string
	sel.Find("h1, h2, h3, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		// Nested blocks are reached through their own match
		if s.Find("p, li, blockquote").Length() > 0 {
			return
		}
		if t := NormalizeText(s.Text()); t != "" {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		html, err := goquery.OuterHtml(sel)
		if err != nil {
			return NormalizeText(sel.Text())
		}
		return VisibleText(html)
	}
	return strings.Join(parts, " ")
}
