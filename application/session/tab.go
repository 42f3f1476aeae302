// Package session owns the lifecycle of the single browser tab a command runs in.
package session

import (
	"context"
	"fmt"

	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

type debugKey struct{}

// WithDebug returns a context carrying the debug-mode flag
func WithDebug(ctx context.Context, enabled bool) context.Context {
	return context.WithValue(ctx, debugKey{}, enabled)
}

// DebugFrom reports whether ctx carries debug mode
func DebugFrom(ctx context.Context) bool {
	enabled, _ := ctx.Value(debugKey{}).(bool)
	return enabled
}

// Controller opens one tab per operation and guarantees it is closed
type Controller struct {
	browser interfaces.Browser
	logger  *logrus.Logger
}

// NewController - creates new tab controller
func NewController(browser interfaces.Browser, logger *logrus.Logger) *Controller {
	return &Controller{browser: browser, logger: logger}
}

// WithPage opens url in a new tab, runs op in it and closes the tab on every
// exit path, panics included, unless debug mode is set in ctx. Close failures
// are swallowed. The operation's error is returned unchanged.
func WithPage[T any](ctx context.Context, c *Controller, url string, op func(context.Context, interfaces.Page) (T, error)) (T, error) {
	var zero T
	debug := DebugFrom(ctx)

	page, err := c.browser.OpenPage(ctx, url, debug)
	if err != nil {
		return zero, fmt.Errorf("failed to open %s: %w", url, err)
	}
	defer c.release(page, debug)

	return op(ctx, page)
}

func (c *Controller) release(page interfaces.Page, debug bool) {
	if debug {
		c.logger.WithField("url", page.URL()).Debug("Debug mode: leaving tab open")
		return
	}
	if err := page.Close(); err != nil {
		c.logger.WithError(err).Debug("Failed to close tab")
	}
}
