package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/tebeka/selenium"
	"github.com/tebeka/selenium/chrome"
)

// SeleniumController drives Chrome through chromedriver. WebDriver has a
// single current window, so every page operation holds mu and switches to
// its own window first.
type SeleniumController struct {
	wd          selenium.WebDriver
	service     *selenium.Service
	logger      *logrus.Logger
	userDataDir string
	mu          sync.Mutex
}

// findChromeDriver - finds ChromeDriver executable path
func findChromeDriver(configured string) (string, error) {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured, nil
		}
		if path, err := exec.LookPath(configured); err == nil {
			return path, nil
		}
	}

	commonPaths := []string{
		"/usr/local/bin/chromedriver",
		"/usr/bin/chromedriver",
		"/opt/homebrew/bin/chromedriver",
		filepath.Join(os.Getenv("HOME"), "bin", "chromedriver"),
	}
	for _, path := range commonPaths {
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}

	if path, err := exec.LookPath("chromedriver"); err == nil {
		return path, nil
	}

	return "", fmt.Errorf("chromedriver not found. Please install it or set NOET_BROWSER_CHROMEDRIVER_PATH")
}

// findChromeBinary - finds Chrome/Chromium browser executable path
func findChromeBinary(configured string) string {
	if configured != "" {
		if _, err := os.Stat(configured); err == nil {
			return configured
		}
	}

	chromePaths := []string{
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
		"/Applications/Chromium.app/Contents/MacOS/Chromium",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		`C:\Program Files\Google\Chrome\Application\chrome.exe`,
		`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
	}
	for _, path := range chromePaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	for _, name := range []string{"google-chrome", "chromium", "chromium-browser"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// userDataDir - gets or creates the Chrome profile directory that keeps the
// login between runs
func userDataDir(configured string) (string, error) {
	dir := configured
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to find home directory: %w", err)
		}
		dir = filepath.Join(home, ".local", "share", "noet", "chrome_profile")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("failed to create user data directory: %w", err)
	}
	return dir, nil
}

// NewSeleniumController - creates new Selenium browser controller instance
func NewSeleniumController(opts Options, logger *logrus.Logger) (*SeleniumController, error) {
	driverPath, err := findChromeDriver(opts.ChromedriverPath)
	if err != nil {
		return nil, fmt.Errorf("failed to find chromedriver: %w", err)
	}
	logger.Infof("Using ChromeDriver at: %s", driverPath)

	chromeBinary := findChromeBinary(opts.ChromeBinary)
	if chromeBinary != "" {
		logger.Infof("Using Chrome binary at: %s", chromeBinary)
	}

	profile, err := userDataDir(opts.UserDataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to setup user data directory: %w", err)
	}
	logger.Infof("Using user data directory: %s (sessions will be preserved)", profile)

	port := opts.SeleniumPort
	if port == 0 {
		port = 9515
	}
	service, err := selenium.NewChromeDriverService(driverPath, port)
	if err != nil {
		return nil, fmt.Errorf("failed to start chromedriver: %w", err)
	}

	args := []string{
		"--disable-blink-features=AutomationControlled",
		"--disable-dev-shm-usage",
		"--lang=ja-JP",
		fmt.Sprintf("--user-data-dir=%s", profile),
	}
	if opts.Headless {
		args = append(args, "--headless=new")
	}
	chromeCaps := chrome.Capabilities{Args: args}
	if chromeBinary != "" {
		chromeCaps.Path = chromeBinary
	}

	caps := selenium.Capabilities{"browserName": "chrome"}
	caps.AddChrome(chromeCaps)

	wd, err := selenium.NewRemote(caps, fmt.Sprintf("http://localhost:%d/wd/hub", port))
	if err != nil {
		service.Stop()
		if strings.Contains(err.Error(), "cannot find Chrome binary") {
			return nil, fmt.Errorf("failed to create webdriver: Chrome browser not found. Please install Google Chrome or set NOET_BROWSER_CHROME_BINARY. Error: %w", err)
		}
		return nil, fmt.Errorf("failed to create webdriver: %w", err)
	}

	if opts.NavigationTimeout > 0 {
		if err := wd.SetPageLoadTimeout(opts.NavigationTimeout); err != nil {
			logger.WithError(err).Debug("Failed to set page load timeout")
		}
	}

	return &SeleniumController{
		wd:          wd,
		service:     service,
		logger:      logger,
		userDataDir: profile,
	}, nil
}

// OpenPage - opens url in a new window. WebDriver's Get blocks until the
// document is loaded.
func (s *SeleniumController) OpenPage(ctx context.Context, url string, visible bool) (interfaces.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	before, err := s.wd.WindowHandles()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}
	if _, err := s.wd.ExecuteScript(`window.open('about:blank', '_blank');`, nil); err != nil {
		return nil, fmt.Errorf("failed to open window: %w", err)
	}
	after, err := s.wd.WindowHandles()
	if err != nil {
		return nil, fmt.Errorf("failed to list windows: %w", err)
	}

	handle := newHandle(before, after)
	if handle == "" {
		return nil, fmt.Errorf("failed to open window: no new window appeared")
	}
	if err := s.wd.SwitchWindow(handle); err != nil {
		return nil, fmt.Errorf("failed to switch window: %w", err)
	}

	s.logger.Debugf("Navigating to: %s", url)
	if err := s.wd.Get(url); err != nil {
		_ = s.wd.CloseWindow(handle)
		return nil, fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	if !visible {
		s.logger.Debug("Selenium cannot open background tabs; page opened in front")
	}

	return &seleniumPage{owner: s, handle: handle}, nil
}

func newHandle(before, after []string) string {
	known := make(map[string]bool, len(before))
	for _, h := range before {
		known[h] = true
	}
	for _, h := range after {
		if !known[h] {
			return h
		}
	}
	return ""
}

// Close - closes browser and stops ChromeDriver service
func (s *SeleniumController) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var closeErr error
	if s.wd != nil {
		if err := s.wd.Quit(); err != nil && !isClosedErr(err) {
			closeErr = fmt.Errorf("failed to quit webdriver: %w", err)
		}
		s.wd = nil
	}
	if s.service != nil {
		if err := s.service.Stop(); err != nil {
			closeErr = joinErr(closeErr, fmt.Errorf("failed to stop chromedriver: %w", err))
		}
		s.service = nil
	}
	return closeErr
}

type seleniumPage struct {
	owner  *SeleniumController
	handle string
}

// do runs fn with the page's window selected
func (p *seleniumPage) do(ctx context.Context, fn func(wd selenium.WebDriver) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.owner.mu.Lock()
	defer p.owner.mu.Unlock()
	if p.owner.wd == nil {
		return fmt.Errorf("browser is closed")
	}
	if err := p.owner.wd.SwitchWindow(p.handle); err != nil {
		return fmt.Errorf("failed to switch window: %w", err)
	}
	return fn(p.owner.wd)
}

func (p *seleniumPage) URL() string {
	var url string
	err := p.do(context.Background(), func(wd selenium.WebDriver) error {
		var err error
		url, err = wd.CurrentURL()
		return err
	})
	if err != nil {
		p.owner.logger.WithError(err).Debug("Failed to read current URL")
	}
	return url
}

func (p *seleniumPage) Content(ctx context.Context) (string, error) {
	var html string
	err := p.do(ctx, func(wd selenium.WebDriver) error {
		var err error
		html, err = wd.PageSource()
		return err
	})
	return html, err
}

// Evaluate calls the function expression script with arg. Returned promises
// are awaited by the WebDriver protocol.
func (p *seleniumPage) Evaluate(ctx context.Context, script string, arg any) (any, error) {
	var result any
	err := p.do(ctx, func(wd selenium.WebDriver) error {
		var err error
		result, err = wd.ExecuteScript("return ("+script+")(arguments[0]);", []interface{}{arg})
		return err
	})
	return result, err
}

var seleniumKeys = map[string]string{
	"Enter":     selenium.EnterKey,
	"Tab":       selenium.TabKey,
	"Escape":    selenium.EscapeKey,
	"Backspace": selenium.BackspaceKey,
}

func (p *seleniumPage) Press(ctx context.Context, key string) error {
	if k, ok := seleniumKeys[key]; ok {
		key = k
	}
	return p.do(ctx, func(wd selenium.WebDriver) error {
		el, err := wd.ActiveElement()
		if err != nil {
			return fmt.Errorf("no focused element: %w", err)
		}
		if err := el.SendKeys(key); err != nil {
			return err
		}
		time.Sleep(50 * time.Millisecond)
		return nil
	})
}

func (p *seleniumPage) Close() error {
	return p.do(context.Background(), func(wd selenium.WebDriver) error {
		if err := wd.CloseWindow(p.handle); err != nil && !isClosedErr(err) {
			return err
		}
		// Keep a live window selected for the next command.
		if handles, err := wd.WindowHandles(); err == nil && len(handles) > 0 {
			_ = wd.SwitchWindow(handles[0])
		}
		return nil
	})
}

var _ interfaces.Browser = (*SeleniumController)(nil)
