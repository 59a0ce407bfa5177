package web

import (
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"
	"github.com/PuerkitoBio/goquery"
)

// maxLinks caps PageSummary.Links.
const maxLinks = 50

type PageSummary struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Text        string   `json:"text"`
	Links       []string `json:"links"`
}

// Markdown renders the summary as one document: title heading, source
// line, description, page text, then the kept links.
func (ps *PageSummary) Markdown() string {
	var parts []string
	if ps.Title != "" {
		parts = append(parts, "# "+ps.Title)
	}
	if ps.URL != "" {
		parts = append(parts, "Source: <"+ps.URL+">")
	}
	if ps.Description != "" {
		parts = append(parts, "> "+ps.Description)
	}
	if text := strings.TrimSpace(ps.Text); text != "" {
		parts = append(parts, text)
	}
	if len(ps.Links) > 0 {
		links := make([]string, len(ps.Links))
		for i, l := range ps.Links {
			links[i] = fmt.Sprintf("%d. <%s>", i+1, l)
		}
		parts = append(parts, "## Links\n\n"+strings.Join(links, "\n"))
	}
	return strings.Join(parts, "\n\n") + "\n"
}

// Summarize extracts title, description, links and a markdown rendering from
// an HTML body. Non-HTML bodies are returned as plain text.
func Summarize(pageURL, body string) (*PageSummary, error) {
	ps := &PageSummary{URL: pageURL}
	if !strings.HasPrefix(http.DetectContentType([]byte(body)), "text/html") {
		ps.Text = body
		return ps, nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	doc.Find("script, style, noscript, iframe, object, embed, img, video, picture, svg, canvas, audio, source, track, map, area, form, label, input, button, select, textarea, progress").Remove()

	ps.Title = strings.TrimSpace(doc.Find("head > title").First().Text())
	ps.Description = strings.TrimSpace(doc.Find("meta[name=description]").AttrOr("content", ""))
	ps.Links = extractLinks(doc, pageURL)

	plainText := strings.Join(strings.Fields(doc.Find("body").Text()), " ")

	doc.Find("a").Remove()
	doc.Find("header, footer, aside").Remove()
	html, err := doc.Html()
	if err != nil {
		return nil, err
	}
	markdown, err := htmltomarkdown.ConvertString(html)
	if err != nil {
		ps.Text = plainText
	} else {
		ps.Text = markdown
	}
	return ps, nil
}

// extractLinks resolves anchors against pageURL, drops fragments and
// non-navigable schemes, and returns at most maxLinks sorted URLs.
func extractLinks(doc *goquery.Document, pageURL string) []string {
	base, _ := url.Parse(pageURL)
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href := strings.TrimSpace(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if !u.IsAbs() && base != nil {
			u = base.ResolveReference(u)
		}
		switch u.Scheme {
		case "http", "https":
		default:
			return
		}
		u.Fragment = ""
		seen[u.String()] = struct{}{}
	})

	links := make([]string, 0, len(seen))
	for l := range seen {
		links = append(links, l)
	}
	sort.Strings(links)
	if len(links) > maxLinks {
		links = links[:maxLinks]
	}
	return links
}
