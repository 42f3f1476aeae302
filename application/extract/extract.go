// Package extract reads structured data out of page HTML snapshots. It never
// touches a live page, so every function here is a pure function of its input.
package extract

import (
	"fmt"
	"regexp"
	"strings"

	"noet_automation/domain/entities"

	"github.com/PuerkitoBio/goquery"
)

var (
	articleKeyPattern = regexp.MustCompile(`/n/([^/?#]+)`)
	profilePattern    = regexp.MustCompile(`note\.com/([^/?#]+)`)
	relativeProfile   = regexp.MustCompile(`^/([^/?#]+)/?$`)
	spaces            = regexp.MustCompile(`\s+`)
)

func parse(html string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

func text(s *goquery.Selection) string {
	return strings.TrimSpace(spaces.ReplaceAllString(s.Text(), " "))
}

// first returns the first element matched by the selectors in priority order
func first(root *goquery.Selection, sels []string) *goquery.Selection {
	for _, sel := range sels {
		if found := root.Find(sel).First(); found.Length() > 0 {
			return found
		}
	}
	return root.Slice(0, 0)
}

// firstText is like first but skips elements without visible text
func firstText(root *goquery.Selection, sels []string) string {
	for _, sel := range sels {
		var out string
		root.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			out = text(s)
			return out == ""
		})
		if out != "" {
			return out
		}
	}
	return ""
}

func exists(root *goquery.Selection, sels []string) bool {
	return first(root, sels).Length() > 0
}

// ParseAuth derives the login state from the home page
func ParseAuth(html string, loc entities.AuthLocators) (entities.AuthStatus, error) {
	doc, err := parse(html)
	if err != nil {
		return entities.AuthStatus{}, err
	}
	root := doc.Selection

	status := entities.AuthStatus{
		LoggedIn: exists(root, loc.PostButton.Selectors) || exists(root, loc.Avatar.Selectors),
	}
	if link := first(root, loc.ProfileLink.Selectors); link.Length() > 0 {
		href, _ := link.Attr("href")
		if name := usernameFromHref(href); name != "" {
			status.Username = &name
		}
	}
	return status, nil
}

func usernameFromHref(href string) string {
	if m := profilePattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	if m := relativeProfile.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}

// ArticleKey extracts the article key from an article URL or path
func ArticleKey(href string) string {
	if m := articleKeyPattern.FindStringSubmatch(href); m != nil {
		return m[1]
	}
	return ""
}
