package flow

import (
	"context"
	"fmt"
	"regexp"

	"noet_automation/application/extract"
	"noet_automation/application/probe"
	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

var editorKeyPattern = regexp.MustCompile(`/notes/([^/?#]+)/edit`)

// CreateArticle writes a new article in the composer and saves it as a draft
// or publishes it
func (e *Engine) CreateArticle(ctx context.Context, params entities.ArticleParams) (entities.PublishResult, error) {
	d, err := prepare(params)
	if err != nil {
		return entities.PublishResult{}, err
	}
	url := e.loc.Site.URL(e.loc.Site.NewPath)

	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.PublishResult, error) {
		inv := e.begin(entities.CommandCreateArticle, page)
		if err := e.step(inv, "open editor", e.steps.WaitFor(ctx, page, e.editorReady(), e.timeouts.Navigation)); err != nil {
			return entities.PublishResult{}, err
		}
		e.steps.Pause(ctx, e.pace.EditorInit())

		return e.compose(ctx, inv, d, entities.ArticlePublished)
	})
}

// UpdateArticle opens an existing article in the editor from its row menu,
// replaces its content and saves or republishes it
func (e *Engine) UpdateArticle(ctx context.Context, params entities.ArticleParams) (entities.PublishResult, error) {
	if params.Key == "" {
		return entities.PublishResult{}, entities.InvalidParams("key is required")
	}
	d, err := prepare(params)
	if err != nil {
		return entities.PublishResult{}, err
	}
	url := e.loc.Site.URL(e.loc.Site.ListPath)

	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.PublishResult, error) {
		inv := e.begin(entities.CommandUpdateArticle, page)
		inv.log = inv.log.WithField("key", params.Key)
		e.settle(ctx)
		e.steps.Pause(ctx, e.pace.SPARender())

		list := e.loc.List
		if err := e.openRowMenu(ctx, inv, params.Key); err != nil {
			return entities.PublishResult{}, err
		}
		if err := e.step(inv, "edit menu item", e.steps.ClickByText(ctx, page, "edit", list.EditItem, list.Menu.Selectors...)); err != nil {
			return entities.PublishResult{}, err
		}
		if err := e.step(inv, "open editor", e.steps.WaitFor(ctx, page, e.editorReady(), e.timeouts.Navigation)); err != nil {
			return entities.PublishResult{}, err
		}
		e.steps.Pause(ctx, e.pace.EditorInit())

		res, err := e.compose(ctx, inv, d, entities.ArticleUpdated)
		if err != nil {
			return res, err
		}
		res.Key = params.Key
		return res, nil
	})
}

func (e *Engine) editorReady() probe.Condition {
	return probe.Selector("editor title field", e.loc.Editor.Title.Selectors...)
}

// compose fills an open editor and finishes with a draft save or a publish.
// published is the status reported when the article goes live.
func (e *Engine) compose(ctx context.Context, inv *invocation, d *draft, published entities.ArticleStatus) (entities.PublishResult, error) {
	page := inv.page
	editor := e.loc.Editor

	if err := e.step(inv, "fill title", e.steps.FillField(ctx, page, "title", editor.Title, d.params.Title)); err != nil {
		return entities.PublishResult{}, err
	}

	if d.header != nil {
		res := e.steps.UploadFile(ctx, page, steps.Upload{
			Name:    "header image",
			Opener:  editor.HeaderButton,
			Input:   editor.HeaderInput,
			File:    d.header.file,
			Site:    e.loc.Site,
			Timeout: e.timeouts.Upload,
		})
		if err := e.step(inv, "header image", res); err != nil {
			return entities.PublishResult{}, err
		}
		inv.headerURL = res.Get("url")
	}

	for i, img := range d.images {
		name := fmt.Sprintf("content image %d", i+1)
		res := e.steps.UploadFile(ctx, page, steps.Upload{
			Name:    name,
			Opener:  editor.ImageButton,
			Input:   editor.ImageInput,
			Drop:    editor.Body,
			File:    img.file,
			Site:    e.loc.Site,
			Timeout: e.timeouts.Upload,
		})
		if err := e.step(inv, name, res); err != nil {
			return entities.PublishResult{}, err
		}
		inv.uploaded = append(inv.uploaded, entities.UploadedImage{
			LocalPath:   img.param.LocalPath,
			UploadedURL: res.Get("url"),
			Caption:     img.param.Caption,
		})
	}

	body, err := e.renderBody(rewriteImagePaths(d.params.Body, inv.uploaded), d.format)
	if err != nil {
		return entities.PublishResult{}, entities.InvalidParams("body: %v", err)
	}
	if err := e.step(inv, "fill body", e.steps.FillField(ctx, page, "body", editor.Body, body)); err != nil {
		return entities.PublishResult{}, err
	}

	if d.params.Draft {
		return e.saveDraft(ctx, inv)
	}
	return e.publish(ctx, inv, d, published)
}

func (e *Engine) saveDraft(ctx context.Context, inv *invocation) (entities.PublishResult, error) {
	if err := e.step(inv, "save draft", e.steps.ClickByText(ctx, inv.page, "save draft", e.loc.Editor.SaveDraft)); err != nil {
		return entities.PublishResult{}, err
	}
	e.settle(ctx)

	res := e.result(inv, entities.ArticleDraft)
	inv.log.WithField("url", res.URL).Info("Draft saved")
	return res, nil
}

func (e *Engine) publish(ctx context.Context, inv *invocation, d *draft, status entities.ArticleStatus) (entities.PublishResult, error) {
	page := inv.page
	pub := e.loc.Publish

	if err := e.step(inv, "proceed to publish", e.steps.ClickByText(ctx, page, "proceed to publish", e.loc.Editor.ProceedPublish)); err != nil {
		return entities.PublishResult{}, err
	}
	if err := e.step(inv, "open publish page", e.steps.WaitFor(ctx, page, probe.URLContains(e.loc.Site.PublishMarker), e.timeouts.Navigation)); err != nil {
		return entities.PublishResult{}, err
	}
	ready := probe.Selector("publish settings", pub.TagInput.Selectors...)
	if err := e.step(inv, "open publish settings", e.steps.WaitFor(ctx, page, ready, e.timeouts.Navigation)); err != nil {
		return entities.PublishResult{}, err
	}
	e.steps.Pause(ctx, e.pace.SPARender())

	for _, tag := range d.params.Tags {
		stage := "tag " + tag
		if err := e.step(inv, stage, e.steps.FillAndKeepFocus(ctx, page, "tag input", pub.TagInput, tag)); err != nil {
			return entities.PublishResult{}, err
		}
		if err := e.step(inv, stage, e.steps.PressKey(ctx, page, "Enter")); err != nil {
			return entities.PublishResult{}, err
		}
	}

	for _, magazine := range d.params.Magazines {
		if err := e.step(inv, "magazine "+magazine, e.steps.AddMagazine(ctx, page, pub, magazine)); err != nil {
			return entities.PublishResult{}, err
		}
	}

	if err := e.step(inv, "publish", e.steps.ClickByText(ctx, page, "publish", pub.Submit)); err != nil {
		return entities.PublishResult{}, err
	}
	left := probe.URLNotContains(e.loc.Site.PublishMarker)
	if err := e.step(inv, "confirm publish", e.steps.WaitFor(ctx, page, left, e.timeouts.Navigation)); err != nil {
		return entities.PublishResult{}, err
	}
	e.settle(ctx)

	res := e.result(inv, status)
	inv.log.WithFields(logrus.Fields{"url": res.URL, "status": status}).Info("Article published")
	return res, nil
}

func (e *Engine) result(inv *invocation, status entities.ArticleStatus) entities.PublishResult {
	url := inv.page.URL()
	key := extract.ArticleKey(url)
	if key == "" {
		if m := editorKeyPattern.FindStringSubmatch(url); m != nil {
			key = m[1]
		}
	}
	return entities.PublishResult{
		Status:         status,
		URL:            url,
		Key:            key,
		UploadedImages: inv.uploaded,
		HeaderImageURL: inv.headerURL,
	}
}
