package flow

import (
	"context"
	"fmt"

	"noet_automation/application/extract"
	"noet_automation/application/session"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// CheckAuth reports whether the browser session is logged in
func (e *Engine) CheckAuth(ctx context.Context) (entities.AuthStatus, error) {
	url := e.loc.Site.URL(e.loc.Site.HomePath)
	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.AuthStatus, error) {
		inv := e.begin(entities.CommandCheckAuth, page)
		e.settle(ctx)

		html, err := page.Content(ctx)
		if err != nil {
			return entities.AuthStatus{}, fmt.Errorf("failed to read home page: %w", err)
		}
		status, err := extract.ParseAuth(html, e.loc.Auth)
		if err != nil {
			return entities.AuthStatus{}, err
		}
		inv.log.WithField("logged_in", status.LoggedIn).Info("Checked login state")
		return status, nil
	})
}

// ListArticles reads one page of the logged-in user's article list. The
// username is echoed back only; the list always belongs to the session user.
func (e *Engine) ListArticles(ctx context.Context, params entities.ListParams) (entities.ArticleList, error) {
	if params.Page < 0 {
		return entities.ArticleList{}, entities.InvalidParams("page must be positive")
	}
	url := e.loc.Site.URL(e.loc.Site.ListPath)
	if params.Page > 1 {
		url = fmt.Sprintf("%s?page=%d", url, params.Page)
	}

	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.ArticleList, error) {
		inv := e.begin(entities.CommandListArticles, page)
		e.settle(ctx)
		e.steps.Pause(ctx, e.pace.SPARender())

		html, err := page.Content(ctx)
		if err != nil {
			return entities.ArticleList{}, fmt.Errorf("failed to read article list: %w", err)
		}
		list, err := extract.ParseArticleList(html, e.loc.List)
		if err != nil {
			return entities.ArticleList{}, err
		}
		list.Page = max(params.Page, 1)
		list.Username = params.Username
		inv.log.WithField("count", list.Count).Info("Listed articles")
		return list, nil
	})
}

// GetArticle reads a public article. An article that cannot be found is
// reported in the result, not as an error.
func (e *Engine) GetArticle(ctx context.Context, params entities.GetArticleParams) (entities.ArticleContent, error) {
	if params.Username == "" || params.Key == "" {
		return entities.ArticleContent{}, entities.InvalidParams("username and key are required")
	}
	url := e.loc.Site.ArticleURL(params.Username, params.Key)

	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.ArticleContent, error) {
		inv := e.begin(entities.CommandGetArticle, page)
		e.settle(ctx)
		e.steps.Pause(ctx, e.pace.ReadingPause())

		html, err := page.Content(ctx)
		if err != nil {
			return entities.ArticleContent{}, fmt.Errorf("failed to read article: %w", err)
		}
		content, err := extract.ParseArticle(html, e.loc.Article)
		if err != nil {
			return entities.ArticleContent{}, err
		}
		inv.log.WithFields(logrus.Fields{"key": params.Key, "found": content.Success}).Info("Read article")
		return content, nil
	})
}
