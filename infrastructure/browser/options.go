package browser

import (
	"fmt"
	"strings"
	"time"

	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Options configures a browser driver
type Options struct {
	Headless          bool
	SlowMo            float64
	NavigationTimeout time.Duration

	// selenium only
	ChromedriverPath string
	ChromeBinary     string
	UserDataDir      string
	SeleniumPort     int
}

// New starts the browser driver named by driver
func New(driver string, opts Options, store interfaces.Storage, logger *logrus.Logger) (interfaces.Browser, error) {
	switch driver {
	case "", "playwright":
		return NewBrowserController(opts, store, logger)
	case "selenium":
		return NewSeleniumController(opts, logger)
	default:
		return nil, fmt.Errorf("unsupported browser driver %q", driver)
	}
}

// isClosedErr reports errors raised by targets that are already gone
func isClosedErr(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "closed") || strings.Contains(msg, "no such window")
}
