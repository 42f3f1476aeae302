package flow

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"noet_automation/application/probe"
	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/application/timing"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"
	"noet_automation/infrastructure/browser/browsertest"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSteps struct {
	mu      sync.Mutex
	calls   []string
	fills   map[string]string
	uploads []steps.Upload
	fail    map[string]entities.StepResult
	after   map[string]func(interfaces.Page)
}

func newFakeSteps() *fakeSteps {
	return &fakeSteps{
		fills: make(map[string]string),
		fail:  make(map[string]entities.StepResult),
		after: make(map[string]func(interfaces.Page)),
	}
}

func (f *fakeSteps) record(page interfaces.Page, call string) entities.StepResult {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	res, failed := f.fail[call]
	hook := f.after[call]
	f.mu.Unlock()
	if failed {
		return res
	}
	if hook != nil {
		hook(page)
	}
	return entities.StepOK()
}

func (f *fakeSteps) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeSteps) FillField(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult {
	f.mu.Lock()
	f.fills[field] = value
	f.mu.Unlock()
	return f.record(page, "fill:"+field)
}

func (f *fakeSteps) FillAndKeepFocus(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult {
	return f.record(page, "focus-fill:"+value)
}

func (f *fakeSteps) ClickByText(ctx context.Context, page interfaces.Page, name string, target entities.Target, scope ...string) entities.StepResult {
	return f.record(page, "click:"+name)
}

func (f *fakeSteps) PressKey(ctx context.Context, page interfaces.Page, key string) entities.StepResult {
	return f.record(page, "press:"+key)
}

func (f *fakeSteps) ConfirmDialog(ctx context.Context, page interfaces.Page, dialog entities.DialogLocators) entities.StepResult {
	return f.record(page, "confirm")
}

func (f *fakeSteps) OpenRowMenu(ctx context.Context, page interfaces.Page, list entities.ListLocators, key string) entities.StepResult {
	return f.record(page, "menu:"+key)
}

func (f *fakeSteps) AddMagazine(ctx context.Context, page interfaces.Page, publish entities.PublishLocators, magazine string) entities.StepResult {
	return f.record(page, "magazine:"+magazine)
}

func (f *fakeSteps) WaitFor(ctx context.Context, page interfaces.Page, cond probe.Condition, timeout time.Duration) entities.StepResult {
	return f.record(page, "wait:"+cond.Description)
}

func (f *fakeSteps) UploadFile(ctx context.Context, page interfaces.Page, up steps.Upload) entities.StepResult {
	f.mu.Lock()
	f.uploads = append(f.uploads, up)
	f.mu.Unlock()
	res := f.record(page, "upload:"+up.Name)
	if !res.Success {
		return res
	}
	return res.With("url", "https://assets.st-note.com/img/"+up.File.Name)
}

func (f *fakeSteps) Pause(ctx context.Context, d time.Duration) {}

func testLocators() entities.Locators {
	return entities.Locators{
		Site: entities.SiteInfo{
			BaseURL:       "https://note.com",
			HomePath:      "/",
			ListPath:      "/notes",
			NewPath:       "/notes/new",
			ArticlePath:   "/{username}/n/{key}",
			PublishMarker: "/publish",
			AssetHost:     "assets.st-note.com",
		},
		Auth: entities.AuthLocators{
			PostButton: entities.Target{Selectors: []string{`a[href="/notes/new"]`}},
		},
		List: entities.ListLocators{
			MoreButton: entities.Target{Selectors: []string{`[aria-label="その他"]`}},
			Row:        entities.Target{Selectors: []string{`li`}},
			Title:      entities.Target{Selectors: []string{`h3`}},
			Link:       entities.Target{Selectors: []string{`a[href*="/n/"]`}},
			Menu:       entities.Target{Selectors: []string{`[role="menu"]`}},
			ParentHops: 3,
		},
		Dialog: entities.DialogLocators{
			Container: entities.Target{Selectors: []string{`[role="dialog"]`}},
			Confirm:   entities.Target{Selectors: []string{`button`}, Labels: []string{"削除する"}},
		},
		Article: entities.ArticleLocators{
			Title: entities.Target{Selectors: []string{`h1`}},
			Body:  entities.Target{Selectors: []string{`.body`}},
		},
		Editor: entities.EditorLocators{
			Title: entities.Target{Selectors: []string{`textarea`}},
			Body:  entities.Target{Selectors: []string{`.ProseMirror`}},
		},
		Publish: entities.PublishLocators{
			TagInput: entities.Target{Selectors: []string{`input`}},
		},
	}
}

type harness struct {
	engine  *Engine
	browser *browsertest.Browser
	steps   *fakeSteps
}

func newHarness(html string) *harness {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	browser := &browsertest.Browser{
		NewPage: func(url string) *browsertest.Page { return browsertest.NewPage(url, html) },
	}
	fake := newFakeSteps()
	engine := NewEngine(session.NewController(browser, logger), fake, testLocators(), timing.Model{}, DefaultTimeouts(), logger)
	return &harness{engine: engine, browser: browser, steps: fake}
}

func requireCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var cmdErr *entities.CommandError
	require.True(t, errors.As(err, &cmdErr), "expected CommandError, got %T", err)
	assert.Equal(t, code, cmdErr.Code)
}

func indexOf(calls []string, call string) int {
	return indexFrom(calls, call, 0)
}

// indexFrom finds call at or after start so repeated calls match in sequence
func indexFrom(calls []string, call string, start int) int {
	for i := start; i < len(calls); i++ {
		if calls[i] == call {
			return i
		}
	}
	return -1
}

func TestCheckAuth(t *testing.T) {
	h := newHarness(`<html><body><a href="/notes/new">投稿</a></body></html>`)

	status, err := h.engine.CheckAuth(context.Background())
	require.NoError(t, err)
	assert.True(t, status.LoggedIn)
	assert.Equal(t, []string{"https://note.com/"}, h.browser.Opened())
	assert.Equal(t, 1, h.browser.Pages()[0].Closed())
}

func TestListArticlesPaging(t *testing.T) {
	h := newHarness(`<html><body><ul>
		<li><a href="/me/n/n1"><h3>One</h3></a><button aria-label="その他"></button></li>
	</ul></body></html>`)

	list, err := h.engine.ListArticles(context.Background(), entities.ListParams{Username: "me", Page: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://note.com/notes?page=2"}, h.browser.Opened())
	assert.Equal(t, 2, list.Page)
	assert.Equal(t, "me", list.Username)
	assert.Equal(t, 1, list.Count)
}

func TestListArticlesFirstPage(t *testing.T) {
	h := newHarness(`<html><body></body></html>`)

	list, err := h.engine.ListArticles(context.Background(), entities.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://note.com/notes"}, h.browser.Opened())
	assert.Equal(t, 1, list.Page)
	assert.Empty(t, list.Articles)
}

func TestGetArticleRequiresParamsBeforeNavigation(t *testing.T) {
	h := newHarness("")

	_, err := h.engine.GetArticle(context.Background(), entities.GetArticleParams{Username: "me"})
	requireCode(t, err, entities.CodeInvalidParams)
	assert.Empty(t, h.browser.Opened())
}

func TestGetArticleNotFoundIsAResult(t *testing.T) {
	h := newHarness(`<html><body><p>ページが見つかりません</p></body></html>`)

	content, err := h.engine.GetArticle(context.Background(), entities.GetArticleParams{Username: "me", Key: "nmissing"})
	require.NoError(t, err)
	assert.False(t, content.Success)
	assert.NotEmpty(t, content.Error)
	assert.Equal(t, []string{"https://note.com/me/n/nmissing"}, h.browser.Opened())
}

func TestCreateArticleDraftSaveFailureStopsBeforePublish(t *testing.T) {
	h := newHarness("")
	h.steps.fail["click:save draft"] = entities.StepFailed("save draft not found")

	_, err := h.engine.CreateArticle(context.Background(), entities.ArticleParams{
		Title: "Title",
		Body:  "<p>hello</p>",
		Draft: true,
	})
	requireCode(t, err, entities.CodeStepFailed)
	assert.Equal(t, "save draft: save draft not found", err.Error())

	calls := h.steps.Calls()
	assert.Equal(t, -1, indexOf(calls, "click:proceed to publish"))
	assert.Equal(t, -1, indexOf(calls, "click:publish"))
	require.Len(t, h.browser.Pages(), 1)
	assert.Equal(t, 1, h.browser.Pages()[0].Closed())
}

func TestCreateArticleDraft(t *testing.T) {
	h := newHarness("")
	h.steps.after["click:save draft"] = func(page interfaces.Page) {
		page.(*browsertest.Page).SetURL("https://editor.note.com/notes/n42/edit/")
	}

	res, err := h.engine.CreateArticle(context.Background(), entities.ArticleParams{
		Title: "Title",
		Body:  "<p>hello</p>",
		Tags:  []string{"ignored-for-drafts"},
		Draft: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.ArticleDraft, res.Status)
	assert.Equal(t, "n42", res.Key)
	assert.NotNil(t, res.UploadedImages)
	assert.Equal(t, -1, indexOf(h.steps.Calls(), "click:proceed to publish"))
	assert.Equal(t, "<p>hello</p>", h.steps.fills["body"])
}

func TestCreateArticlePublishesWithImages(t *testing.T) {
	h := newHarness("")
	h.steps.after["click:publish"] = func(page interfaces.Page) {
		page.(*browsertest.Page).SetURL("https://note.com/me/n/nabc")
	}

	body := "# Hello\n\n![cover](img/cover.png)\n\n![wide](img/cover.png.webp)\n"
	res, err := h.engine.CreateArticle(context.Background(), entities.ArticleParams{
		Title:     "Hello",
		Body:      body,
		Tags:      []string{"go", "note"},
		Magazines: []string{"Weekly"},
		Images: []entities.ImageParam{
			{Data: "cG5n", MimeType: "image/png", Filename: "a.png", LocalPath: "img/cover.png", Caption: "cover"},
			{Data: "d2VicA==", Filename: "b.webp", LocalPath: "img/cover.png.webp"},
		},
		HeaderImage: &entities.ImageParam{Data: "aGVhZA==", MimeType: "image/jpeg", Filename: "head.jpg"},
	})
	require.NoError(t, err)

	assert.Equal(t, entities.ArticlePublished, res.Status)
	assert.Equal(t, "https://note.com/me/n/nabc", res.URL)
	assert.Equal(t, "nabc", res.Key)
	assert.Equal(t, "https://assets.st-note.com/img/head.jpg", res.HeaderImageURL)
	assert.Equal(t, []entities.UploadedImage{
		{LocalPath: "img/cover.png", UploadedURL: "https://assets.st-note.com/img/a.png", Caption: "cover"},
		{LocalPath: "img/cover.png.webp", UploadedURL: "https://assets.st-note.com/img/b.webp"},
	}, res.UploadedImages)

	filled := h.steps.fills["body"]
	assert.NotContains(t, filled, "img/cover.png")
	assert.Contains(t, filled, `<h1>Hello</h1>`)
	assert.Contains(t, filled, `src="https://assets.st-note.com/img/a.png"`)
	assert.Contains(t, filled, `src="https://assets.st-note.com/img/b.webp"`)

	require.Len(t, h.steps.uploads, 3)
	assert.Equal(t, "header image", h.steps.uploads[0].Name)
	assert.Equal(t, []byte("head"), h.steps.uploads[0].File.Data)
	assert.Equal(t, "content image 1", h.steps.uploads[1].Name)
	assert.Equal(t, "content image 2", h.steps.uploads[2].Name)
	assert.Equal(t, "image/webp", h.steps.uploads[2].File.MimeType)

	calls := h.steps.Calls()
	order := []string{
		"fill:title", "upload:header image", "upload:content image 1", "upload:content image 2",
		"fill:body", "click:proceed to publish", "focus-fill:go", "press:Enter",
		"focus-fill:note", "press:Enter", "magazine:Weekly", "click:publish",
	}
	last := -1
	for _, call := range order {
		i := indexFrom(calls, call, last+1)
		require.Greater(t, i, last, "%s out of order in %v", call, calls)
		last = i
	}
	assert.Equal(t, 1, h.browser.Pages()[0].Closed())
}

func TestCreateArticleUploadFailureAbortsBeforeBody(t *testing.T) {
	h := newHarness("")
	h.steps.fail["upload:content image 1"] = entities.StepFailed("content image 1 upload stage: timed out")

	_, err := h.engine.CreateArticle(context.Background(), entities.ArticleParams{
		Title:  "Hello",
		Body:   "text",
		Images: []entities.ImageParam{{Data: "cG5n", Filename: "a.png", LocalPath: "a.png"}},
	})
	requireCode(t, err, entities.CodeStepFailed)
	assert.Contains(t, err.Error(), "upload stage")
	assert.Equal(t, -1, indexOf(h.steps.Calls(), "fill:body"))
}

func TestCreateArticleInvalidImageBeforeNavigation(t *testing.T) {
	h := newHarness("")

	_, err := h.engine.CreateArticle(context.Background(), entities.ArticleParams{
		Title:  "Hello",
		Body:   "text",
		Images: []entities.ImageParam{{Data: "%%%", Filename: "a.png"}},
	})
	requireCode(t, err, entities.CodeInvalidParams)
	assert.Contains(t, err.Error(), "images[0]")
	assert.Empty(t, h.browser.Opened())
}

func TestUpdateArticleMissingRow(t *testing.T) {
	h := newHarness("")
	h.steps.fail["menu:nmissing"] = entities.StepResult{Error: "article row nmissing not found", NotFound: true}

	_, err := h.engine.UpdateArticle(context.Background(), entities.ArticleParams{Key: "nmissing", Title: "t", Body: "b"})
	requireCode(t, err, entities.CodeNotFound)
	assert.Equal(t, 1, h.browser.Pages()[0].Closed())
	assert.Equal(t, []string{"https://note.com/notes"}, h.browser.Opened())
}

func TestUpdateArticlePublishReportsUpdated(t *testing.T) {
	h := newHarness("")

	res, err := h.engine.UpdateArticle(context.Background(), entities.ArticleParams{Key: "nkey", Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, entities.ArticleUpdated, res.Status)
	assert.Equal(t, "nkey", res.Key)

	calls := h.steps.Calls()
	assert.Less(t, indexOf(calls, "menu:nkey"), indexOf(calls, "click:edit"))
	assert.Less(t, indexOf(calls, "click:edit"), indexOf(calls, "fill:title"))
}

func TestDeleteArticle(t *testing.T) {
	h := newHarness("")

	res, err := h.engine.DeleteArticle(context.Background(), entities.DeleteParams{Key: "nkey"})
	require.NoError(t, err)
	assert.Equal(t, entities.DeleteResult{Success: true, Key: "nkey"}, res)
	assert.Equal(t, []string{
		"menu:nkey", "wait:row menu", "click:delete", "wait:confirmation dialog", "confirm",
	}, h.steps.Calls())
}

func TestDeleteArticleWaitsForSlowRowMenu(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	var menuLooks atomic.Int32
	page := browsertest.NewPage("https://note.com/notes", "")
	page.OnEvaluate = func(script string, arg any) (any, error) {
		switch a := arg.(type) {
		case []string:
			return menuLooks.Add(1) >= 3, nil
		case map[string]any:
			if _, isClick := a["name"]; isClick && menuLooks.Load() < 3 {
				return map[string]any{"success": false, "error": "delete container not found"}, nil
			}
			return map[string]any{"success": true}, nil
		}
		return nil, nil
	}
	browser := &browsertest.Browser{NewPage: func(string) *browsertest.Page { return page }}
	pace := timing.Model{}
	engine := NewEngine(
		session.NewController(browser, logger),
		steps.New(probe.New(pace), pace, logger),
		testLocators(), pace, DefaultTimeouts(), logger,
	)

	res, err := engine.DeleteArticle(context.Background(), entities.DeleteParams{Key: "nkey"})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, int32(3), menuLooks.Load())
}

func TestDeleteArticleRowMenuNeverOpens(t *testing.T) {
	h := newHarness("")
	h.steps.fail["wait:row menu"] = entities.StepFailed("timed out after 10s waiting for row menu")

	_, err := h.engine.DeleteArticle(context.Background(), entities.DeleteParams{Key: "nkey"})
	requireCode(t, err, entities.CodeStepFailed)
	assert.True(t, strings.HasPrefix(err.Error(), "row menu: "))
	assert.Equal(t, -1, indexOf(h.steps.Calls(), "click:delete"))
}

func TestDeleteArticleConfirmFailure(t *testing.T) {
	h := newHarness("")
	h.steps.fail["confirm"] = entities.StepFailed("confirm button not found")

	_, err := h.engine.DeleteArticle(context.Background(), entities.DeleteParams{Key: "nkey"})
	requireCode(t, err, entities.CodeStepFailed)
	assert.True(t, strings.HasPrefix(err.Error(), "confirm delete: "))
	assert.Equal(t, 1, h.browser.Pages()[0].Closed())
}

func TestDeleteArticleDebugKeepsTabOpen(t *testing.T) {
	h := newHarness("")

	_, err := h.engine.DeleteArticle(session.WithDebug(context.Background(), true), entities.DeleteParams{Key: "nkey"})
	require.NoError(t, err)
	assert.Equal(t, 0, h.browser.Pages()[0].Closed())
	assert.Equal(t, []bool{true}, h.browser.Visible())
}

func TestDetectMimeTypeSniffsBytesBeforeExtension(t *testing.T) {
	png := []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")
	assert.Equal(t, "image/png", detectMimeType("photo", png))
	assert.Equal(t, "image/png", detectMimeType("photo.jpg", png))
	assert.Equal(t, "image/webp", detectMimeType("b.webp", []byte("webp")))
	assert.Equal(t, "application/octet-stream", detectMimeType("blob", []byte("webp")))
}

func TestRewriteImagePathsLongestFirst(t *testing.T) {
	body := `<img src="a/b.png"><img src="a/b.png.large"><img src="c.png">`
	out := rewriteImagePaths(body, []entities.UploadedImage{
		{LocalPath: "a/b.png", UploadedURL: "https://x/1"},
		{LocalPath: "a/b.png.large", UploadedURL: "https://x/2"},
		{LocalPath: "", UploadedURL: "https://x/3"},
	})
	assert.Equal(t, `<img src="https://x/1"><img src="https://x/2"><img src="c.png">`, out)
}

func TestRewriteImagePathsDoesNotRescanReplacements(t *testing.T) {
	out := rewriteImagePaths("x.png", []entities.UploadedImage{
		{LocalPath: "x.png", UploadedURL: "y.png"},
		{LocalPath: "y.png", UploadedURL: "z.png"},
	})
	assert.Equal(t, "y.png", out)
}

func TestPrepareBodyFormat(t *testing.T) {
	d, err := prepare(entities.ArticleParams{Title: "t", Body: "  <p>x</p>"})
	require.NoError(t, err)
	assert.Equal(t, entities.FormatHTML, d.format)

	d, err = prepare(entities.ArticleParams{Title: "t", Body: "**x**"})
	require.NoError(t, err)
	assert.Equal(t, entities.FormatMarkdown, d.format)

	_, err = prepare(entities.ArticleParams{Title: "t", Body: "x", Format: "rtf"})
	requireCode(t, err, entities.CodeInvalidParams)

	_, err = prepare(entities.ArticleParams{Body: "x"})
	requireCode(t, err, entities.CodeInvalidParams)
}
