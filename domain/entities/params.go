package entities

import "strings"

// ListParams are the parameters of list_articles
type ListParams struct {
	Username string `json:"username,omitempty"`
	Page     int    `json:"page,omitempty"`
}

// GetArticleParams are the parameters of get_article
type GetArticleParams struct {
	Username string `json:"username"`
	Key      string `json:"key"`
}

// ArticleParams are the parameters of create_article and update_article.
// Key is only used by update_article.
type ArticleParams struct {
	Key         string       `json:"key,omitempty"`
	Title       string       `json:"title"`
	Body        string       `json:"body"`
	Tags        []string     `json:"tags,omitempty"`
	Magazines   []string     `json:"magazines,omitempty"`
	Draft       bool         `json:"draft,omitempty"`
	Images      []ImageParam `json:"images,omitempty"`
	HeaderImage *ImageParam  `json:"header_image,omitempty"`
	Format      BodyFormat   `json:"format,omitempty"`
}

// BodyFormat returns the explicit format or guesses it from the body:
// a body starting with a tag is HTML, anything else Markdown.
func (p ArticleParams) BodyFormat() BodyFormat {
	if p.Format != "" {
		return p.Format
	}
	if strings.HasPrefix(strings.TrimSpace(p.Body), "<") {
		return FormatHTML
	}
	return FormatMarkdown
}

// DeleteParams are the parameters of delete_article
type DeleteParams struct {
	Key string `json:"key"`
}

// DebugParams are the parameters of set_debug_mode
type DebugParams struct {
	Enabled *bool `json:"enabled"`
}
