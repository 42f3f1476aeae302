package entities

import (
	"net/url"
	"strings"
)

// Target describes one logical UI element: CSS selectors in priority order
// and the visible labels that identify it.
type Target struct {
	Selectors []string `yaml:"selectors" json:"selectors"`
	Labels    []string `yaml:"labels" json:"labels"`
}

// Selector joins the selectors into a single CSS selector list
func (t Target) Selector() string {
	return strings.Join(t.Selectors, ", ")
}

// SiteInfo holds the addresses of the automated site
type SiteInfo struct {
	BaseURL           string `yaml:"base_url" json:"base_url"`
	HomePath          string `yaml:"home_path" json:"home_path"`
	ListPath          string `yaml:"list_path" json:"list_path"`
	NewPath           string `yaml:"new_path" json:"new_path"`
	ArticlePath       string `yaml:"article_path" json:"article_path"`
	PublishMarker     string `yaml:"publish_marker" json:"publish_marker"`
	AssetHost         string `yaml:"asset_host" json:"asset_host"`
	PlaceholderScheme string `yaml:"placeholder_scheme" json:"placeholder_scheme"`
}

// URL resolves a site-relative path
func (s SiteInfo) URL(path string) string {
	return strings.TrimRight(s.BaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// ArticleURL returns the public address of an article
func (s SiteInfo) ArticleURL(username, key string) string {
	p := strings.NewReplacer(
		"{username}", url.PathEscape(username),
		"{key}", url.PathEscape(key),
	).Replace(s.ArticlePath)
	return s.URL(p)
}

// AuthLocators find login indicators on the home page
type AuthLocators struct {
	PostButton  Target `yaml:"post_button" json:"post_button"`
	Avatar      Target `yaml:"avatar" json:"avatar"`
	ProfileLink Target `yaml:"profile_link" json:"profile_link"`
}

// ListLocators find article rows on the list page
type ListLocators struct {
	MoreButton      Target   `yaml:"more_button" json:"more_button"`
	Row             Target   `yaml:"row" json:"row"`
	Title           Target   `yaml:"title" json:"title"`
	Link            Target   `yaml:"link" json:"link"`
	Date            Target   `yaml:"date" json:"date"`
	Menu            Target   `yaml:"menu" json:"menu"`
	EditItem        Target   `yaml:"edit_item" json:"edit_item"`
	DeleteItem      Target   `yaml:"delete_item" json:"delete_item"`
	DraftLabels     []string `yaml:"draft_labels" json:"draft_labels"`
	PublishedLabels []string `yaml:"published_labels" json:"published_labels"`
	ParentHops      int      `yaml:"parent_hops" json:"parent_hops"`
}

// ArticleLocators extract content from a public article page
type ArticleLocators struct {
	Title       Target `yaml:"title" json:"title"`
	Body        Target `yaml:"body" json:"body"`
	Hashtag     Target `yaml:"hashtag" json:"hashtag"`
	PublishedAt Target `yaml:"published_at" json:"published_at"`
}

// EditorLocators drive the composer
type EditorLocators struct {
	Title          Target `yaml:"title" json:"title"`
	Body           Target `yaml:"body" json:"body"`
	ImageButton    Target `yaml:"image_button" json:"image_button"`
	ImageInput     Target `yaml:"image_input" json:"image_input"`
	HeaderButton   Target `yaml:"header_button" json:"header_button"`
	HeaderInput    Target `yaml:"header_input" json:"header_input"`
	SaveDraft      Target `yaml:"save_draft" json:"save_draft"`
	ProceedPublish Target `yaml:"proceed_publish" json:"proceed_publish"`
}

// PublishLocators drive the publish-settings page
type PublishLocators struct {
	TagInput     Target `yaml:"tag_input" json:"tag_input"`
	MagazineItem Target `yaml:"magazine_item" json:"magazine_item"`
	MagazineName Target `yaml:"magazine_name" json:"magazine_name"`
	MagazineAdd  Target `yaml:"magazine_add" json:"magazine_add"`
	Submit       Target `yaml:"submit" json:"submit"`
}

// DialogLocators find confirmation dialogs
type DialogLocators struct {
	Container Target `yaml:"container" json:"container"`
	Confirm   Target `yaml:"confirm" json:"confirm"`
}

// Locators is the page-structure knowledge for the automated site. It is
// configuration data and is loaded from YAML.
type Locators struct {
	Version string          `yaml:"version" json:"version"`
	Site    SiteInfo        `yaml:"site" json:"site"`
	Auth    AuthLocators    `yaml:"auth" json:"auth"`
	List    ListLocators    `yaml:"list" json:"list"`
	Article ArticleLocators `yaml:"article" json:"article"`
	Editor  EditorLocators  `yaml:"editor" json:"editor"`
	Publish PublishLocators `yaml:"publish" json:"publish"`
	Dialog  DialogLocators  `yaml:"dialog" json:"dialog"`
}
