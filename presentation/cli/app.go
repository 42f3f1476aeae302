package cli

import (
	"fmt"

	"noet_automation/application/dispatch"
	"noet_automation/application/flow"
	"noet_automation/application/probe"
	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/application/timing"
	"noet_automation/domain/interfaces"
	"noet_automation/infrastructure/browser"
	"noet_automation/infrastructure/config"
	"noet_automation/infrastructure/security"
	"noet_automation/infrastructure/storage"

	"github.com/sirupsen/logrus"
)

// Version is reported by ping. It is set at build time with -ldflags.
var Version = "0.3.0"

// hostName identifies this host in ping responses
const hostName = "noet"

// app is the wired object graph shared by every subcommand
type app struct {
	cfg        config.Config
	logger     *logrus.Logger
	browser    interfaces.Browser
	policy     *security.SecurityLayer
	dispatcher *dispatch.Dispatcher
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logger := cfg.NewLogger()

	loc, err := config.LoadLocators(cfg.Site.LocatorsFile)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewBrowserState(cfg.Browser.StateDir)
	if err != nil {
		return nil, err
	}

	br, err := browser.New(cfg.Browser.Driver, browser.Options{
		Headless:          cfg.Browser.Headless,
		SlowMo:            cfg.Browser.SlowMo,
		NavigationTimeout: cfg.Timing.NavigationTimeout,
		ChromedriverPath:  cfg.Browser.ChromedriverPath,
		ChromeBinary:      cfg.Browser.ChromeBinary,
		UserDataDir:       cfg.Browser.UserDataDir,
		SeleniumPort:      cfg.Browser.SeleniumPort,
	}, store, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize browser: %w", err)
	}

	pace := timing.Model{Scale: cfg.Timing.Scale}
	engine := flow.NewEngine(
		session.NewController(br, logger),
		steps.New(probe.New(pace), pace, logger),
		loc,
		pace,
		flow.Timeouts{
			Navigation: cfg.Timing.NavigationTimeout,
			Element:    cfg.Timing.ElementTimeout,
			Upload:     cfg.Timing.UploadTimeout,
		},
		logger,
	)
	policy := security.NewSecurityLayer(logger)

	logger.WithFields(logrus.Fields{
		"driver":   cfg.Browser.Driver,
		"locators": loc.Version,
	}).Info("Host initialized")

	return &app{
		cfg:        cfg,
		logger:     logger,
		browser:    br,
		policy:     policy,
		dispatcher: dispatch.NewDispatcher(engine, policy, dispatch.Info{Version: Version, Host: hostName}, logger),
	}, nil
}

func (a *app) Close() error {
	return a.browser.Close()
}
