// Package flow turns commands into linear sequences of navigations, waits and
// page interactions. A flow aborts at the first failing step.
package flow

import (
	"context"
	"time"

	"noet_automation/application/probe"
	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/application/timing"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// Steps is the part of the step library flows are built from
type Steps interface {
	FillField(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult
	FillAndKeepFocus(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult
	ClickByText(ctx context.Context, page interfaces.Page, name string, target entities.Target, scope ...string) entities.StepResult
	PressKey(ctx context.Context, page interfaces.Page, key string) entities.StepResult
	ConfirmDialog(ctx context.Context, page interfaces.Page, dialog entities.DialogLocators) entities.StepResult
	OpenRowMenu(ctx context.Context, page interfaces.Page, list entities.ListLocators, key string) entities.StepResult
	AddMagazine(ctx context.Context, page interfaces.Page, publish entities.PublishLocators, magazine string) entities.StepResult
	WaitFor(ctx context.Context, page interfaces.Page, cond probe.Condition, timeout time.Duration) entities.StepResult
	UploadFile(ctx context.Context, page interfaces.Page, up steps.Upload) entities.StepResult
	Pause(ctx context.Context, d time.Duration)
}

// Timeouts bounds the DOM probes a flow runs
type Timeouts struct {
	Navigation time.Duration
	Element    time.Duration
	Upload     time.Duration
}

// DefaultTimeouts returns the timeouts used when none are configured
func DefaultTimeouts() Timeouts {
	return Timeouts{
		Navigation: 30 * time.Second,
		Element:    10 * time.Second,
		Upload:     60 * time.Second,
	}
}

// Engine runs the command flows
type Engine struct {
	tabs     *session.Controller
	steps    Steps
	loc      entities.Locators
	pace     timing.Model
	timeouts Timeouts
	markdown goldmark.Markdown
	logger   *logrus.Logger
}

// NewEngine - creates new flow engine
func NewEngine(tabs *session.Controller, stepLib Steps, loc entities.Locators, pace timing.Model, timeouts Timeouts, logger *logrus.Logger) *Engine {
	return &Engine{
		tabs:     tabs,
		steps:    stepLib,
		loc:      loc,
		pace:     pace,
		timeouts: timeouts,
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
		logger: logger,
	}
}

// invocation is the state of one flow run. It is never shared.
type invocation struct {
	id        string
	page      interfaces.Page
	log       *logrus.Entry
	uploaded  []entities.UploadedImage
	headerURL string
}

func (e *Engine) begin(command entities.CommandName, page interfaces.Page) *invocation {
	id := uuid.NewString()
	return &invocation{
		id:   id,
		page: page,
		log: e.logger.WithFields(logrus.Fields{
			"invocation": id,
			"command":    command,
		}),
		uploaded: make([]entities.UploadedImage, 0),
	}
}

// step runs one step and converts a failure into the flow's error
func (e *Engine) step(inv *invocation, stage string, res entities.StepResult) error {
	if err := res.Err(stage); err != nil {
		inv.log.WithFields(logrus.Fields{"stage": stage, "error": res.Error}).Warn("Flow aborted")
		return err
	}
	inv.log.WithField("stage", stage).Debug("Stage done")
	return nil
}

// openRowMenu opens the "more actions" menu of an article row and waits
// until the menu is rendered
func (e *Engine) openRowMenu(ctx context.Context, inv *invocation, key string) error {
	list := e.loc.List
	if err := e.step(inv, "open row menu", e.steps.OpenRowMenu(ctx, inv.page, list, key)); err != nil {
		return err
	}
	opened := probe.Selector("row menu", list.Menu.Selectors...)
	return e.step(inv, "row menu", e.steps.WaitFor(ctx, inv.page, opened, e.timeouts.Element))
}

func (e *Engine) settle(ctx context.Context) {
	e.steps.Pause(ctx, e.pace.PageSettle())
}
