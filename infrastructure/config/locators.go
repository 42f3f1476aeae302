package config

import (
	_ "embed"
	"fmt"
	"os"

	"noet_automation/domain/entities"

	"gopkg.in/yaml.v3"
)

//go:embed locators.yaml
var defaultLocators []byte

// LoadLocators returns the built-in locator catalog, overlaid with the YAML
// file at path when path is not empty. Keys missing from the override keep
// their built-in values.
func LoadLocators(path string) (entities.Locators, error) {
	var loc entities.Locators
	if err := yaml.Unmarshal(defaultLocators, &loc); err != nil {
		return entities.Locators{}, fmt.Errorf("failed to parse built-in locators: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return entities.Locators{}, fmt.Errorf("failed to read locators file: %w", err)
		}
		if err := yaml.Unmarshal(data, &loc); err != nil {
			return entities.Locators{}, fmt.Errorf("failed to parse locators file %s: %w", path, err)
		}
	}

	if err := validateLocators(loc); err != nil {
		return entities.Locators{}, err
	}
	return loc, nil
}

func validateLocators(loc entities.Locators) error {
	if loc.Site.BaseURL == "" {
		return fmt.Errorf("locators: site.base_url is required")
	}
	required := map[string]entities.Target{
		"list.more_button":       loc.List.MoreButton,
		"list.link":              loc.List.Link,
		"editor.title":           loc.Editor.Title,
		"editor.body":            loc.Editor.Body,
		"publish.tag_input":      loc.Publish.TagInput,
		"dialog.confirm":         loc.Dialog.Confirm,
		"article.title":          loc.Article.Title,
		"auth.post_button":       loc.Auth.PostButton,
		"editor.save_draft":      loc.Editor.SaveDraft,
		"editor.proceed_publish": loc.Editor.ProceedPublish,
		"publish.submit":         loc.Publish.Submit,
		"list.delete_item":       loc.List.DeleteItem,
		"list.edit_item":         loc.List.EditItem,
	}
	for name, target := range required {
		if len(target.Selectors) == 0 {
			return fmt.Errorf("locators: %s needs at least one selector", name)
		}
	}
	if loc.List.ParentHops < 0 {
		return fmt.Errorf("locators: list.parent_hops must not be negative")
	}
	return nil
}
