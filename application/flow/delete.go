package flow

import (
	"context"

	"noet_automation/application/session"
	"noet_automation/application/steps"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"
)

// DeleteArticle deletes an article through its row menu in the article list
func (e *Engine) DeleteArticle(ctx context.Context, params entities.DeleteParams) (entities.DeleteResult, error) {
	if params.Key == "" {
		return entities.DeleteResult{}, entities.InvalidParams("key is required")
	}
	url := e.loc.Site.URL(e.loc.Site.ListPath)

	return session.WithPage(ctx, e.tabs, url, func(ctx context.Context, page interfaces.Page) (entities.DeleteResult, error) {
		inv := e.begin(entities.CommandDeleteArticle, page)
		inv.log = inv.log.WithField("key", params.Key)
		e.settle(ctx)
		e.steps.Pause(ctx, e.pace.SPARender())

		list := e.loc.List
		if err := e.openRowMenu(ctx, inv, params.Key); err != nil {
			return entities.DeleteResult{}, err
		}
		if err := e.step(inv, "delete menu item", e.steps.ClickByText(ctx, page, "delete", list.DeleteItem, list.Menu.Selectors...)); err != nil {
			return entities.DeleteResult{}, err
		}
		e.steps.Pause(ctx, e.pace.ActionPause())
		if err := e.step(inv, "delete dialog", e.steps.WaitFor(ctx, page, steps.DialogReady(e.loc.Dialog), e.timeouts.Element)); err != nil {
			return entities.DeleteResult{}, err
		}
		if err := e.step(inv, "confirm delete", e.steps.ConfirmDialog(ctx, page, e.loc.Dialog)); err != nil {
			return entities.DeleteResult{}, err
		}
		e.settle(ctx)

		inv.log.Info("Article deleted")
		return entities.DeleteResult{Success: true, Key: params.Key}, nil
	})
}
