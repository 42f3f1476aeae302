package interfaces

import (
	"context"
)

// Browser opens pages in a live, authenticated browser session
type Browser interface {
	// OpenPage opens a new tab at url and waits for it to finish loading.
	// Visible tabs are brought to the front.
	OpenPage(ctx context.Context, url string, visible bool) (Page, error)

	// Close shuts the browser down and persists its session state
	Close() error
}

// Page is one open browser tab
type Page interface {
	// URL returns the current location of the tab
	URL() string

	// Content returns the serialized DOM of the tab
	Content(ctx context.Context) (string, error)

	// Evaluate runs a JavaScript function expression of the form
	// "(arg) => {...}" with arg passed as its single argument
	Evaluate(ctx context.Context, script string, arg any) (any, error)

	// Press sends a real keystroke to the focused element
	Press(ctx context.Context, key string) error

	// Close closes the tab
	Close() error
}
