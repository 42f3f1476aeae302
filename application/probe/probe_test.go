package probe

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"noet_automation/application/timing"
	"noet_automation/infrastructure/browser/browsertest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWaitForSucceedsOnceConditionHolds(t *testing.T) {
	var calls atomic.Int32
	page := browsertest.NewPage("https://editor.note.com/new", "")
	page.OnEvaluate = func(script string, arg any) (any, error) {
		return calls.Add(1) >= 3, nil
	}

	err := New(timing.Model{}).WaitFor(context.Background(), page, Selector("title field", "textarea"), time.Second)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestWaitForTimesOutWithDescription(t *testing.T) {
	page := browsertest.NewPage("https://editor.note.com/new", "")
	page.OnEvaluate = func(script string, arg any) (any, error) { return false, nil }

	start := time.Now()
	err := New(timing.Model{}).WaitFor(context.Background(), page, Selector("publish page tag input", "input"), 50*time.Millisecond)
	require.Error(t, err)
	assert.True(t, IsTimeout(err))
	assert.Contains(t, err.Error(), "publish page tag input")
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestWaitForKeepsLastEvaluationError(t *testing.T) {
	page := browsertest.NewPage("about:blank", "")
	navErr := errors.New("execution context was destroyed")
	page.OnEvaluate = func(script string, arg any) (any, error) { return nil, navErr }

	err := New(timing.Model{}).WaitFor(context.Background(), page, Script("editor ready", "() => false", nil), 20*time.Millisecond)
	require.Error(t, err)
	assert.ErrorIs(t, err, navErr)
}

func TestWaitForStopsOnCancel(t *testing.T) {
	page := browsertest.NewPage("about:blank", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := New(timing.Human()).WaitFor(ctx, page, URLContains("/publish"), time.Minute)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestURLConditions(t *testing.T) {
	page := browsertest.NewPage("https://editor.note.com/notes/n1/publish/", "")
	ctx := context.Background()

	ok, _ := URLContains("/publish").Check(ctx, page)
	assert.True(t, ok)
	ok, _ = URLNotContains("/publish").Check(ctx, page)
	assert.False(t, ok)

	page.SetURL("https://note.com/kako/n/n1")
	ok, _ = URLNotContains("/publish").Check(ctx, page)
	assert.True(t, ok)
}

func TestTruthy(t *testing.T) {
	assert.False(t, truthy(nil))
	assert.False(t, truthy(""))
	assert.False(t, truthy(float64(0)))
	assert.True(t, truthy("https://assets.st-note.com/x.png"))
	assert.True(t, truthy(map[string]any{}))
}
