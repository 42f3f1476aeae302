package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"noet_automation/domain/interfaces"

	"github.com/playwright-community/playwright-go"
	"github.com/sirupsen/logrus"
)

type browserController struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	context playwright.BrowserContext
	store   interfaces.Storage
	opts    Options
	logger  *logrus.Logger
	mu      sync.Mutex
}

// NewBrowserController - starts Chromium through playwright, restoring the
// session state saved by a previous run
func NewBrowserController(opts Options, store interfaces.Storage, logger *logrus.Logger) (interfaces.Browser, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	contextOptions := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  1280,
			Height: 800,
		},
		JavaScriptEnabled: playwright.Bool(true),
		AcceptDownloads:   playwright.Bool(false),
		Locale:            playwright.String("ja-JP"),
		UserAgent:         playwright.String("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"),
	}

	if data, err := store.LoadState(); err != nil {
		logger.WithError(err).Warn("Ignoring unreadable browser state")
	} else if len(data) > 0 {
		var storageState playwright.StorageState
		if err := json.Unmarshal(data, &storageState); err == nil {
			contextOptions.StorageState = storageState.ToOptionalStorageState()
			logger.WithField("cookies", len(storageState.Cookies)).Info("Restored browser session")
		} else {
			logger.WithError(err).Warn("Ignoring malformed browser state")
		}
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
		SlowMo:   playwright.Float(opts.SlowMo),
		Args: []string{
			"--disable-blink-features=AutomationControlled",
			"--disable-dev-shm-usage",
			"--disable-infobars",
		},
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	bctx, err := browser.NewContext(contextOptions)
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to create context: %w", err)
	}

	return &browserController{
		pw:      pw,
		browser: browser,
		context: bctx,
		store:   store,
		opts:    opts,
		logger:  logger,
	}, nil
}

// OpenPage - opens url in a new tab and waits for the load event
func (b *browserController) OpenPage(ctx context.Context, url string, visible bool) (interfaces.Page, error) {
	b.mu.Lock()
	bctx := b.context
	b.mu.Unlock()
	if bctx == nil {
		return nil, fmt.Errorf("browser is closed")
	}

	page, err := bctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to create new page: %w", err)
	}

	// Leave-page confirmations would otherwise block navigation.
	page.OnDialog(func(dialog playwright.Dialog) {
		_ = dialog.Accept()
	})

	timeout := float64(b.opts.NavigationTimeout.Milliseconds())
	if timeout <= 0 {
		timeout = 30000
	}
	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   playwright.Float(timeout),
	}); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}

	if visible {
		if err := page.BringToFront(); err != nil {
			b.logger.WithError(err).Debug("Failed to bring tab to front")
		}
	}

	return &playwrightPage{page: page, owner: b}, nil
}

// SaveState - persists cookies and local storage through the storage port
func (b *browserController) SaveState() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.context == nil {
		return nil
	}

	state, err := b.context.StorageState()
	if err != nil {
		if isClosedErr(err) {
			return nil
		}
		return fmt.Errorf("failed to read browser state: %w", err)
	}
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode browser state: %w", err)
	}
	return b.store.SaveState(data)
}

// Close - saves state and shuts the browser down
func (b *browserController) Close() error {
	var closeErr error

	if err := b.SaveState(); err != nil {
		closeErr = err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.context != nil {
		if err := b.context.Close(); err != nil && !isClosedErr(err) {
			closeErr = joinErr(closeErr, fmt.Errorf("failed to close context: %w", err))
		}
		b.context = nil
	}
	if b.browser != nil {
		if err := b.browser.Close(); err != nil && !isClosedErr(err) {
			closeErr = joinErr(closeErr, fmt.Errorf("failed to close browser: %w", err))
		}
		b.browser = nil
	}
	if b.pw != nil {
		if err := b.pw.Stop(); err != nil {
			closeErr = joinErr(closeErr, fmt.Errorf("failed to stop playwright: %w", err))
		}
		b.pw = nil
	}

	return closeErr
}

func joinErr(prev, err error) error {
	if prev == nil {
		return err
	}
	return fmt.Errorf("%v; %w", prev, err)
}

type playwrightPage struct {
	page  playwright.Page
	owner *browserController
}

func (p *playwrightPage) URL() string {
	return p.page.URL()
}

func (p *playwrightPage) Content(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return p.page.Content()
}

func (p *playwrightPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return p.page.Evaluate(script, arg)
}

func (p *playwrightPage) Press(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return p.page.Keyboard().Press(key)
}

// Close - closes the tab, then persists the session so a restarted host
// keeps the login
func (p *playwrightPage) Close() error {
	if err := p.page.Close(); err != nil {
		return err
	}
	if err := p.owner.SaveState(); err != nil {
		p.owner.logger.WithError(err).Warn("Failed to save browser state")
	}
	return nil
}
