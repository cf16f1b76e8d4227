// Package classify picks out the outbound links on a page that most likely
// lead to a contact, about, or pitch page.
package classify

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// MaxContactLinks caps the number of candidates returned per page.
const MaxContactLinks = 10

// ContactKeywords are matched as substrings of the lowercased anchor text.
var ContactKeywords = []string{
	"contact",
	"contact us",
	"about",
	"editor",
	"pitch",
	"media",
	"press",
	"submit",
	"guidelines",
}

// Link is an anchor found on a page: its visible text and the href resolved
// against the page URL.
type Link struct {
	Text string
	URL  string
}

// FindCandidateContactLinks returns the URLs of links whose anchor text
// contains one of ContactKeywords, in first-seen order, without exact-URL
// duplicates, truncated to MaxContactLinks.
func FindCandidateContactLinks(links []Link) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0, MaxContactLinks)

	for _, l := range links {
		if len(out) == MaxContactLinks {
			break
		}
		if !isContactText(l.Text) {
			continue
		}
		if _, ok := seen[l.URL]; ok {
			continue
		}
		seen[l.URL] = struct{}{}
		out = append(out, l.URL)
	}
	return out
}

func isContactText(text string) bool {
	text = strings.ToLower(strings.TrimSpace(text))
	for _, kw := range ContactKeywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// ExtractLinks parses an HTML body and returns every a[href] with its trimmed,
// lowercased text. Relative hrefs are resolved against baseURL; if baseURL
// cannot be parsed the href is kept as written.
func ExtractLinks(body []byte, baseURL string) []Link {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil
	}

	base, baseErr := url.Parse(baseURL)

	var links []Link
	doc.Find("a[href]").Each(func(i int, s *goquery.Selection) {
		href, exists := s.Attr("href")
		if !exists {
			return
		}

		u, err := url.Parse(strings.TrimSpace(href))
		if err != nil {
			return
		}

		resolved := href
		if baseErr == nil {
			resolved = base.ResolveReference(u).String()
		}

		links = append(links, Link{
			Text: strings.ToLower(strings.TrimSpace(s.Text())),
			URL:  resolved,
		})
	})

	return links
}
