package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"

	"noet_automation/application/flow"
	"noet_automation/application/probe"
	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/application/timing"
	"noet_automation/domain/entities"
	"noet_automation/infrastructure/browser/browsertest"
	"noet_automation/infrastructure/security"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFlows struct {
	mu     sync.Mutex
	calls  []entities.CommandName
	debug  []bool
	err    error
	panics bool
}

func (f *fakeFlows) record(ctx context.Context, name entities.CommandName) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	f.debug = append(f.debug, session.DebugFrom(ctx))
	if f.panics {
		panic("boom")
	}
	return f.err
}

func (f *fakeFlows) CheckAuth(ctx context.Context) (entities.AuthStatus, error) {
	return entities.AuthStatus{LoggedIn: true}, f.record(ctx, entities.CommandCheckAuth)
}

func (f *fakeFlows) ListArticles(ctx context.Context, p entities.ListParams) (entities.ArticleList, error) {
	return entities.ArticleList{Articles: []entities.ArticleSummary{}, Page: p.Page}, f.record(ctx, entities.CommandListArticles)
}

func (f *fakeFlows) GetArticle(ctx context.Context, p entities.GetArticleParams) (entities.ArticleContent, error) {
	return entities.ArticleContent{Success: false, Error: "Article not found"}, f.record(ctx, entities.CommandGetArticle)
}

func (f *fakeFlows) CreateArticle(ctx context.Context, p entities.ArticleParams) (entities.PublishResult, error) {
	return entities.PublishResult{Status: entities.ArticleDraft}, f.record(ctx, entities.CommandCreateArticle)
}

func (f *fakeFlows) UpdateArticle(ctx context.Context, p entities.ArticleParams) (entities.PublishResult, error) {
	return entities.PublishResult{Status: entities.ArticleUpdated, Key: p.Key}, f.record(ctx, entities.CommandUpdateArticle)
}

func (f *fakeFlows) DeleteArticle(ctx context.Context, p entities.DeleteParams) (entities.DeleteResult, error) {
	return entities.DeleteResult{Success: true, Key: p.Key}, f.record(ctx, entities.CommandDeleteArticle)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newDispatcher(flows Flows) *Dispatcher {
	logger := testLogger()
	return NewDispatcher(flows, security.NewSecurityLayer(logger), Info{Version: "1.2.3", Host: "test"}, logger)
}

func req(id string, command entities.CommandName, params string) entities.Request {
	return entities.Request{ID: id, Command: command, Params: json.RawMessage(params)}
}

// assertWellFormed checks the id echo and that exactly one of data and error is set
func assertWellFormed(t *testing.T, r entities.Request, resp entities.Response) {
	t.Helper()
	assert.Equal(t, r.ID, resp.ID)
	switch resp.Status {
	case entities.StatusSuccess:
		assert.NotNil(t, resp.Data)
		assert.Nil(t, resp.Error)
	case entities.StatusError:
		assert.Nil(t, resp.Data)
		require.NotNil(t, resp.Error)
		assert.NotEmpty(t, resp.Error.Code)
	default:
		t.Fatalf("unexpected status %q", resp.Status)
	}
}

func TestDispatchEchoesIDAndIsWellFormed(t *testing.T) {
	d := newDispatcher(&fakeFlows{})

	requests := []entities.Request{
		req("a", entities.CommandPing, ""),
		req("b", entities.CommandCheckAuth, ""),
		req("c", entities.CommandListArticles, `{"page":2}`),
		req("d", entities.CommandGetArticle, `{"username":"me","key":"n1"}`),
		req("e", entities.CommandGetArticle, `{}`),
		req("f", entities.CommandCreateArticle, `{"title":"t","body":"b","draft":true}`),
		req("g", entities.CommandUpdateArticle, `{"key":"n1","title":"t","body":"b"}`),
		req("h", entities.CommandDeleteArticle, `{"key":"n1"}`),
		req("i", entities.CommandSetDebugMode, `{"enabled":true}`),
		req("j", entities.CommandGetDebugMode, ""),
		req("k", "reboot", ""),
		req("", entities.CommandPing, ""),
	}
	for _, r := range requests {
		resp := d.Dispatch(context.Background(), r)
		assertWellFormed(t, r, resp)

		raw, err := json.Marshal(resp)
		require.NoError(t, err)
		var decoded map[string]any
		require.NoError(t, json.Unmarshal(raw, &decoded))
		_, hasData := decoded["data"]
		_, hasError := decoded["error"]
		assert.True(t, hasData != hasError, "request %q: %s", r.ID, raw)
	}
}

func TestDispatchPing(t *testing.T) {
	d := newDispatcher(&fakeFlows{})

	resp := d.Dispatch(context.Background(), req("1", entities.CommandPing, ""))
	assert.Equal(t, map[string]any{"version": "1.2.3", "host": "test"}, resp.Data)
}

func TestDispatchUnknownCommand(t *testing.T) {
	flows := &fakeFlows{}
	d := newDispatcher(flows)

	resp := d.Dispatch(context.Background(), req("1", "publish_everything", ""))
	require.NotNil(t, resp.Error)
	assert.Equal(t, entities.CodeUnknown, resp.Error.Code)
	assert.Equal(t, "Unknown command: publish_everything", resp.Error.Message)
	assert.Empty(t, flows.calls)
}

func TestDispatchInvalidParamsSkipsFlow(t *testing.T) {
	flows := &fakeFlows{}
	d := newDispatcher(flows)

	resp := d.Dispatch(context.Background(), req("1", entities.CommandGetArticle, `{"username":"me"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, entities.CodeInvalidParams, resp.Error.Code)
	assert.Empty(t, flows.calls)
}

func TestDispatchGetArticleInvalidParamsNeverNavigates(t *testing.T) {
	logger := testLogger()
	browser := &browsertest.Browser{}
	pace := timing.Model{}
	engine := flow.NewEngine(
		session.NewController(browser, logger),
		steps.New(probe.New(pace), pace, logger),
		entities.Locators{},
		pace,
		flow.DefaultTimeouts(),
		logger,
	)
	d := NewDispatcher(engine, security.NewSecurityLayer(logger), Info{}, logger)

	for _, params := range []string{``, `{}`, `{"username":"me"}`, `{"key":"n1"}`, `{"username":"","key":"n1"}`} {
		resp := d.Dispatch(context.Background(), req("x", entities.CommandGetArticle, params))
		require.NotNil(t, resp.Error, "params %q", params)
		assert.Equal(t, entities.CodeInvalidParams, resp.Error.Code)
	}
	assert.Empty(t, browser.Opened())
}

func TestDispatchGetArticleNotFoundIsSuccess(t *testing.T) {
	d := newDispatcher(&fakeFlows{})

	resp := d.Dispatch(context.Background(), req("1", entities.CommandGetArticle, `{"username":"me","key":"n1"}`))
	assert.Equal(t, entities.StatusSuccess, resp.Status)
	content, ok := resp.Data.(entities.ArticleContent)
	require.True(t, ok)
	assert.False(t, content.Success)
}

func TestDispatchKeepsCommandErrorCode(t *testing.T) {
	flows := &fakeFlows{err: entities.NotFound("article n1 not found")}
	d := newDispatcher(flows)

	resp := d.Dispatch(context.Background(), req("1", entities.CommandDeleteArticle, `{"key":"n1"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, entities.CodeNotFound, resp.Error.Code)
	assert.Equal(t, "article n1 not found", resp.Error.Message)
}

func TestDispatchPlainErrorIsUnknown(t *testing.T) {
	flows := &fakeFlows{err: errors.New("browser crashed")}
	d := newDispatcher(flows)

	resp := d.Dispatch(context.Background(), req("1", entities.CommandCheckAuth, ""))
	require.NotNil(t, resp.Error)
	assert.Equal(t, entities.CodeUnknown, resp.Error.Code)
	assert.Equal(t, "browser crashed", resp.Error.Message)
}

func TestDispatchRecoversPanics(t *testing.T) {
	d := newDispatcher(&fakeFlows{panics: true})

	r := req("p", entities.CommandCheckAuth, "")
	resp := d.Dispatch(context.Background(), r)
	assertWellFormed(t, r, resp)
	assert.Equal(t, entities.CodeUnknown, resp.Error.Code)
	assert.Contains(t, resp.Error.Message, "boom")
}

func TestDebugModeToggleIsIdempotent(t *testing.T) {
	flows := &fakeFlows{}
	d := newDispatcher(flows)
	ctx := context.Background()

	get := func() any {
		return d.Dispatch(ctx, req("g", entities.CommandGetDebugMode, "")).Data
	}
	assert.Equal(t, map[string]any{"debug_mode": false}, get())

	for i := 0; i < 2; i++ {
		resp := d.Dispatch(ctx, req("s", entities.CommandSetDebugMode, `{"enabled":true}`))
		assert.Equal(t, map[string]any{"success": true, "debug_mode": true}, resp.Data)
		assert.Equal(t, map[string]any{"debug_mode": true}, get())
	}

	d.Dispatch(ctx, req("c", entities.CommandCheckAuth, ""))

	for i := 0; i < 2; i++ {
		d.Dispatch(ctx, req("s", entities.CommandSetDebugMode, `{"enabled":false}`))
		assert.Equal(t, map[string]any{"debug_mode": false}, get())
	}
	assert.False(t, d.DebugMode())

	d.Dispatch(ctx, req("c", entities.CommandCheckAuth, ""))
	assert.Equal(t, []bool{true, false}, flows.debug)
}

func TestDispatchConcurrentRequests(t *testing.T) {
	flows := &fakeFlows{}
	d := newDispatcher(flows)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := d.Dispatch(context.Background(), req("n", entities.CommandListArticles, ""))
			assert.Equal(t, entities.StatusSuccess, resp.Status)
		}()
	}
	wg.Wait()
	assert.Len(t, flows.calls, 20)
}
