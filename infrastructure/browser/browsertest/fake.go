// Package browsertest provides in-memory Browser and Page implementations
// for exercising flows without a real browser.
package browsertest

import (
	"context"
	"sync"

	"noet_automation/domain/interfaces"
)

// Evaluation records one Evaluate call
type Evaluation struct {
	Script string
	Arg    any
}

// Page is a scriptable fake tab
type Page struct {
	mu          sync.Mutex
	url         string
	html        string
	closed      int
	evaluations []Evaluation
	presses     []string

	// OnEvaluate answers Evaluate calls. Nil returns (nil, nil).
	OnEvaluate func(script string, arg any) (any, error)
	// OnPress answers Press calls. Nil accepts every key.
	OnPress  func(key string) error
	CloseErr error
}

// NewPage returns a fake tab at url serving html
func NewPage(url, html string) *Page {
	return &Page{url: url, html: html}
}

func (p *Page) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.url
}

// SetURL simulates a navigation
func (p *Page) SetURL(url string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.url = url
}

// SetHTML replaces the served document
func (p *Page) SetHTML(html string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.html = html
}

func (p *Page) Content(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.html, nil
}

func (p *Page) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	p.mu.Lock()
	p.evaluations = append(p.evaluations, Evaluation{Script: script, Arg: arg})
	fn := p.OnEvaluate
	p.mu.Unlock()
	if fn == nil {
		return nil, nil
	}
	return fn(script, arg)
}

func (p *Page) Press(ctx context.Context, key string) error {
	p.mu.Lock()
	p.presses = append(p.presses, key)
	fn := p.OnPress
	p.mu.Unlock()
	if fn == nil {
		return nil
	}
	return fn(key)
}

func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed++
	return p.CloseErr
}

// Closed returns how many times Close was called
func (p *Page) Closed() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Evaluations returns a copy of every Evaluate call so far
func (p *Page) Evaluations() []Evaluation {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Evaluation(nil), p.evaluations...)
}

// Presses returns every key pressed so far
func (p *Page) Presses() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.presses...)
}

// Browser is a fake browser that hands out fake pages
type Browser struct {
	mu      sync.Mutex
	opened  []string
	visible []bool
	pages   []*Page
	closed  bool

	// NewPage builds the page for a URL. Nil builds an empty page.
	NewPage func(url string) *Page
	OpenErr error
}

func (b *Browser) OpenPage(ctx context.Context, url string, visible bool) (interfaces.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.OpenErr != nil {
		return nil, b.OpenErr
	}
	var page *Page
	if b.NewPage != nil {
		page = b.NewPage(url)
	}
	if page == nil {
		page = NewPage(url, "")
	}
	b.opened = append(b.opened, url)
	b.visible = append(b.visible, visible)
	b.pages = append(b.pages, page)
	return page, nil
}

func (b *Browser) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}

// Opened returns every URL opened so far
func (b *Browser) Opened() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.opened...)
}

// Visible returns the visibility requested for each opened page
func (b *Browser) Visible() []bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]bool(nil), b.visible...)
}

// Pages returns every page handed out so far
func (b *Browser) Pages() []*Page {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*Page(nil), b.pages...)
}

var (
	_ interfaces.Browser = (*Browser)(nil)
	_ interfaces.Page    = (*Page)(nil)
)
