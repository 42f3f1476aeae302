package extract

import (
	"strings"

	"noet_automation/domain/entities"

	"github.com/PuerkitoBio/goquery"
)

// ParseArticleList returns one summary per "more actions" control, in
// document order. Rows with neither a title nor a key are skipped.
func ParseArticleList(html string, loc entities.ListLocators) (entities.ArticleList, error) {
	doc, err := parse(html)
	if err != nil {
		return entities.ArticleList{}, err
	}

	articles := make([]entities.ArticleSummary, 0)
	doc.Find(loc.MoreButton.Selector()).Each(func(_ int, more *goquery.Selection) {
		row := rowOf(more, loc)
		if row.Length() == 0 {
			return
		}

		summary := entities.ArticleSummary{
			Title:  firstText(row, loc.Title.Selectors),
			Status: statusOf(text(row), loc),
			Date:   dateOf(row, loc.Date.Selectors),
		}
		row.Find(loc.Link.Selector()).EachWithBreak(func(_ int, a *goquery.Selection) bool {
			href, _ := a.Attr("href")
			if key := ArticleKey(href); key != "" {
				summary.Key = &key
				return false
			}
			return true
		})

		if summary.Title != "" || summary.Key != nil {
			articles = append(articles, summary)
		}
	})

	return entities.ArticleList{Articles: articles, Count: len(articles)}, nil
}

// rowOf walks up from the anchor to the nearest known row shape, falling
// back to a fixed number of parent hops
func rowOf(anchor *goquery.Selection, loc entities.ListLocators) *goquery.Selection {
	if len(loc.Row.Selectors) > 0 {
		if row := anchor.Closest(loc.Row.Selector()); row.Length() > 0 {
			return row
		}
	}
	row := anchor
	for i := 0; i < loc.ParentHops; i++ {
		parent := row.Parent()
		if parent.Length() == 0 {
			break
		}
		row = parent
	}
	return row
}

func statusOf(rowText string, loc entities.ListLocators) entities.ArticleStatus {
	for _, label := range loc.DraftLabels {
		if label != "" && strings.Contains(rowText, label) {
			return entities.ArticleDraft
		}
	}
	for _, label := range loc.PublishedLabels {
		if label != "" && strings.Contains(rowText, label) {
			return entities.ArticlePublished
		}
	}
	return entities.ArticleUnknown
}

func dateOf(row *goquery.Selection, sels []string) string {
	el := first(row, sels)
	if el.Length() == 0 {
		return ""
	}
	if t := text(el); t != "" {
		return t
	}
	dt, _ := el.Attr("datetime")
	return dt
}
