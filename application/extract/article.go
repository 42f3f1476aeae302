package extract

import (
	"strings"

	"noet_automation/domain/entities"

	"github.com/PuerkitoBio/goquery"
)

// ParseArticle reads a public article page. A page with neither title nor
// body yields an unsuccessful result rather than an error.
func ParseArticle(html string, loc entities.ArticleLocators) (entities.ArticleContent, error) {
	doc, err := parse(html)
	if err != nil {
		return entities.ArticleContent{}, err
	}
	root := doc.Selection

	title := firstText(root, loc.Title.Selectors)
	var body string
	if el := first(root, loc.Body.Selectors); el.Length() > 0 {
		body, _ = el.Html()
		body = strings.TrimSpace(body)
	}
	if title == "" && body == "" {
		return entities.ArticleContent{Success: false, Error: "Article not found or page did not load"}, nil
	}

	tags := make([]string, 0)
	seen := make(map[string]bool)
	root.Find(loc.Hashtag.Selector()).Each(func(_ int, a *goquery.Selection) {
		tag := strings.TrimPrefix(text(a), "#")
		if tag == "" || seen[tag] {
			return
		}
		seen[tag] = true
		tags = append(tags, tag)
	})

	var publishedAt string
	if el := first(root, loc.PublishedAt.Selectors); el.Length() > 0 {
		publishedAt, _ = el.Attr("datetime")
	}

	return entities.ArticleContent{
		Success:     true,
		Title:       title,
		HTML:        body,
		Tags:        tags,
		PublishedAt: publishedAt,
	}, nil
}
