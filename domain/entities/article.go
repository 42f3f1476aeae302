package entities

// ArticleStatus represents the publication state of an article
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleUpdated   ArticleStatus = "updated"
	ArticleUnknown   ArticleStatus = "unknown"
)

// BodyFormat tells how an article body is authored
type BodyFormat string

const (
	FormatHTML     BodyFormat = "html"
	FormatMarkdown BodyFormat = "markdown"
)

// ImageParam is an image shipped with a create/update command
type ImageParam struct {
	Data      string `json:"data"` // base64
	MimeType  string `json:"mime_type"`
	Filename  string `json:"filename"`
	LocalPath string `json:"local_path,omitempty"`
	Caption   string `json:"caption,omitempty"`
}

// UploadedImage pairs a local placeholder with the URL the service assigned
type UploadedImage struct {
	LocalPath   string `json:"local_path"`
	UploadedURL string `json:"uploaded_url"`
	Caption     string `json:"caption,omitempty"`
}

// AuthStatus is the result of check_auth
type AuthStatus struct {
	LoggedIn bool    `json:"logged_in"`
	Username *string `json:"username"`
}

// ArticleSummary is one row of the article list
type ArticleSummary struct {
	Key    *string       `json:"key"`
	Title  string        `json:"title"`
	Status ArticleStatus `json:"status"`
	Date   string        `json:"date"`
}

// ArticleList is the result of list_articles
type ArticleList struct {
	Articles []ArticleSummary `json:"articles"`
	Count    int              `json:"count"`
	Page     int              `json:"page,omitempty"`
	Username string           `json:"username,omitempty"`
}

// ArticleContent is the result of get_article. Success is false when the
// article could not be found, which is an expected outcome.
type ArticleContent struct {
	Success     bool     `json:"success"`
	Error       string   `json:"error,omitempty"`
	Title       string   `json:"title,omitempty"`
	HTML        string   `json:"html,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	PublishedAt string   `json:"published_at,omitempty"`
}

// PublishResult is the result of create_article and update_article
type PublishResult struct {
	Status         ArticleStatus   `json:"status"`
	URL            string          `json:"url,omitempty"`
	Key            string          `json:"key,omitempty"`
	UploadedImages []UploadedImage `json:"uploaded_images"`
	HeaderImageURL string          `json:"header_image_url,omitempty"`
}

// DeleteResult is the result of delete_article
type DeleteResult struct {
	Success bool   `json:"success"`
	Key     string `json:"key"`
}
