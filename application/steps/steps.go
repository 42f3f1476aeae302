// Package steps is the catalog of atomic browser actions. Every step returns
// an entities.StepResult; no step lets a failure escape as a panic or error.
package steps

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"noet_automation/application/probe"
	"noet_automation/application/timing"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Library runs steps against a page
type Library struct {
	probe  *probe.Prober
	pace   timing.Model
	logger *logrus.Logger
}

// New - creates new step library
func New(prober *probe.Prober, pace timing.Model, logger *logrus.Logger) *Library {
	return &Library{probe: prober, pace: pace, logger: logger}
}

// File is a pre-decoded file to upload
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Upload describes one file upload through the page's own UI
type Upload struct {
	Name    string
	Opener  entities.Target
	Input   entities.Target
	Drop    entities.Target
	File    File
	Site    entities.SiteInfo
	Timeout time.Duration
}

// FillField sets the value of an input, textarea or content-editable
// element and fires the events the page's framework listens for
func (l *Library) FillField(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult {
	return l.fill(ctx, page, field, target, value, false)
}

// FillAndKeepFocus fills a field and leaves it focused for a following keystroke
func (l *Library) FillAndKeepFocus(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string) entities.StepResult {
	return l.fill(ctx, page, field, target, value, true)
}

func (l *Library) fill(ctx context.Context, page interfaces.Page, field string, target entities.Target, value string, keepFocus bool) entities.StepResult {
	res := l.run(ctx, page, "fill "+field, fillScript, map[string]any{
		"field":      field,
		"selectors":  target.Selectors,
		"value":      value,
		"keep_focus": keepFocus,
	})
	if res.Success {
		l.pause(ctx, l.pace.Typing(len([]rune(value))))
	}
	return res
}

// ClickByText clicks the first candidate whose visible text matches one of
// the target's labels: exact match first, substring match as fallback
func (l *Library) ClickByText(ctx context.Context, page interfaces.Page, name string, target entities.Target, scope ...string) entities.StepResult {
	res := l.run(ctx, page, "click "+name, clickScript, map[string]any{
		"name":      name,
		"selectors": target.Selectors,
		"labels":    target.Labels,
		"scope":     scope,
	})
	if res.Success {
		l.pause(ctx, l.pace.ActionPause())
	}
	return res
}

// PressKey sends a real keystroke to the focused element
func (l *Library) PressKey(ctx context.Context, page interfaces.Page, key string) (res entities.StepResult) {
	defer recoverStep(&res, "press "+key)
	if err := page.Press(ctx, key); err != nil {
		return entities.StepFailed("press %s: %v", key, err)
	}
	l.pause(ctx, l.pace.ActionPause())
	return entities.StepOK()
}

// ConfirmDialog clicks the confirmation button inside a modal dialog, or
// anywhere on the page when no dialog container is rendered
func (l *Library) ConfirmDialog(ctx context.Context, page interfaces.Page, dialog entities.DialogLocators) entities.StepResult {
	res := l.run(ctx, page, "confirm dialog", confirmScript, map[string]any{
		"containers": dialog.Container.Selectors,
		"buttons":    dialog.Confirm.Selectors,
		"labels":     dialog.Confirm.Labels,
	})
	if res.Success {
		l.logger.WithField("via", res.Get("via")).Debug("Confirmed dialog")
		l.pause(ctx, l.pace.ActionPause())
	}
	return res
}

// DialogReady holds once a modal dialog or a confirmation button is rendered
func DialogReady(dialog entities.DialogLocators) probe.Condition {
	return probe.Script("confirmation dialog", dialogReadyScript, map[string]any{
		"containers": dialog.Container.Selectors,
		"buttons":    dialog.Confirm.Selectors,
		"labels":     dialog.Confirm.Labels,
	})
}

// OpenRowMenu finds the list row of an article and opens its "more actions" menu
func (l *Library) OpenRowMenu(ctx context.Context, page interfaces.Page, list entities.ListLocators, key string) entities.StepResult {
	res := l.run(ctx, page, "open row menu", rowMenuScript, map[string]any{
		"key":  key,
		"link": list.Link.Selectors,
		"row":  list.Row.Selectors,
		"more": list.MoreButton.Selectors,
		"hops": list.ParentHops,
	})
	if res.Success {
		l.pause(ctx, l.pace.ActionPause())
	}
	return res
}

// AddMagazine adds the article to the magazine whose name matches exactly
func (l *Library) AddMagazine(ctx context.Context, page interfaces.Page, publish entities.PublishLocators, magazine string) entities.StepResult {
	res := l.run(ctx, page, "add magazine", magazineScript, map[string]any{
		"magazine": magazine,
		"item":     publish.MagazineItem.Selectors,
		"name":     publish.MagazineName.Selectors,
		"add":      publish.MagazineAdd.Selectors,
		"labels":   publish.MagazineAdd.Labels,
	})
	if res.Success {
		l.pause(ctx, l.pace.ActionPause())
	}
	return res
}

// WaitFor polls the page until cond holds and reports a timeout as a failure
func (l *Library) WaitFor(ctx context.Context, page interfaces.Page, cond probe.Condition, timeout time.Duration) (res entities.StepResult) {
	defer recoverStep(&res, "wait for "+cond.Description)
	if err := l.probe.WaitFor(ctx, page, cond, timeout); err != nil {
		return entities.StepFailed("%v", err)
	}
	return entities.StepOK()
}

// Pause waits for d, returning early if ctx ends
func (l *Library) Pause(ctx context.Context, d time.Duration) {
	l.pause(ctx, d)
}

// UploadFile hands a file to the page through a synthesized file-input change
// (or drop) event, then waits until a new image served from the asset host
// replaces the local placeholder. The uploaded URL is returned as data "url".
func (l *Library) UploadFile(ctx context.Context, page interfaces.Page, up Upload) (res entities.StepResult) {
	defer recoverStep(&res, "upload "+up.Name)

	known, err := l.assetImages(ctx, page, up.Site.AssetHost)
	if err != nil {
		return entities.StepFailed("%s upload: inspect page: %v", up.Name, err)
	}

	if len(up.Opener.Selectors) > 0 {
		if opened := l.ClickByText(ctx, page, up.Name+" button", up.Opener); !opened.Success {
			l.logger.WithField("error", opened.Error).Debug("Upload opener not clicked, trying input directly")
		}
	}

	inject := l.run(ctx, page, "upload "+up.Name, uploadScript, map[string]any{
		"name":     up.Name,
		"input":    up.Input.Selectors,
		"drop":     up.Drop.Selectors,
		"data":     base64.StdEncoding.EncodeToString(up.File.Data),
		"filename": up.File.Name,
		"mime":     up.File.MimeType,
	})
	if !inject.Success {
		return inject
	}

	var uploaded string
	done := probe.Condition{
		Description: fmt.Sprintf("%s upload to finish (image served from %s)", up.Name, up.Site.AssetHost),
		Check: func(ctx context.Context, page interfaces.Page) (bool, error) {
			v, err := page.Evaluate(ctx, uploadDoneScript, map[string]any{
				"host":        up.Site.AssetHost,
				"placeholder": up.Site.PlaceholderScheme,
				"known":       known,
			})
			if err != nil {
				return false, err
			}
			uploaded, _ = v.(string)
			return uploaded != "", nil
		},
	}
	if err := l.probe.WaitFor(ctx, page, done, up.Timeout); err != nil {
		if probe.IsTimeout(err) {
			return entities.StepFailed("%s upload stage: %v", up.Name, err)
		}
		return entities.StepFailed("%s upload interrupted: %v", up.Name, err)
	}

	l.logger.WithFields(logrus.Fields{"file": up.File.Name, "url": uploaded}).Info("Image uploaded")
	l.pause(ctx, l.pace.ActionPause())
	return entities.StepOK().With("url", uploaded)
}

func (l *Library) assetImages(ctx context.Context, page interfaces.Page, host string) ([]string, error) {
	v, err := page.Evaluate(ctx, assetSnapshotScript, map[string]any{"host": host})
	if err != nil {
		return nil, err
	}
	list, _ := v.([]any)
	known := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok {
			known = append(known, s)
		}
	}
	return known, nil
}

func (l *Library) run(ctx context.Context, page interfaces.Page, name, script string, arg map[string]any) (res entities.StepResult) {
	defer recoverStep(&res, name)

	v, err := page.Evaluate(ctx, script, arg)
	if err != nil {
		return entities.StepFailed("%s: %v", name, err)
	}
	res = toResult(v)
	if !res.Success {
		l.logger.WithFields(logrus.Fields{"step": name, "error": res.Error}).Warn("Step failed")
	}
	return res
}

func (l *Library) pause(ctx context.Context, d time.Duration) {
	_ = timing.Wait(ctx, d)
}

func recoverStep(res *entities.StepResult, name string) {
	if r := recover(); r != nil {
		*res = entities.StepFailed("%s: %v", name, r)
	}
}

func toResult(v any) entities.StepResult {
	m, ok := v.(map[string]any)
	if !ok {
		return entities.StepFailed("unexpected script result %T", v)
	}
	var res entities.StepResult
	res.Success, _ = m["success"].(bool)
	res.Error, _ = m["error"].(string)
	res.NotFound, _ = m["not_found"].(bool)
	for k, raw := range m {
		switch k {
		case "success", "error", "not_found":
			continue
		}
		if s, ok := raw.(string); ok {
			res = res.With(k, s)
		}
	}
	if !res.Success && res.Error == "" {
		res.Error = "step failed"
	}
	return res
}
