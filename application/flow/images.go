package flow

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"path/filepath"
	"sort"
	"strings"

	"noet_automation/application/steps"
	"noet_automation/domain/entities"

	"github.com/gabriel-vasile/mimetype"
)

// image is an image param with its bytes decoded
type image struct {
	param entities.ImageParam
	file  steps.File
}

// draft is a create/update request validated and decoded before any
// browser interaction happens
type draft struct {
	params entities.ArticleParams
	format entities.BodyFormat
	images []image
	header *image
}

func prepare(params entities.ArticleParams) (*draft, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, entities.InvalidParams("title is required")
	}
	if strings.TrimSpace(params.Body) == "" {
		return nil, entities.InvalidParams("body is required")
	}

	format := params.BodyFormat()
	if format != entities.FormatHTML && format != entities.FormatMarkdown {
		return nil, entities.InvalidParams("unsupported format %q", format)
	}

	d := &draft{params: params, format: format, images: make([]image, 0, len(params.Images))}
	for i, p := range params.Images {
		img, err := decodeImage(p)
		if err != nil {
			return nil, entities.InvalidParams("images[%d]: %v", i, err)
		}
		d.images = append(d.images, img)
	}
	if params.HeaderImage != nil {
		img, err := decodeImage(*params.HeaderImage)
		if err != nil {
			return nil, entities.InvalidParams("header_image: %v", err)
		}
		d.header = &img
	}
	return d, nil
}

func decodeImage(p entities.ImageParam) (image, error) {
	if p.Data == "" {
		return image{}, fmt.Errorf("data is required")
	}
	data, err := base64.StdEncoding.DecodeString(p.Data)
	if err != nil {
		return image{}, fmt.Errorf("invalid base64 data: %w", err)
	}

	name := p.Filename
	if name == "" {
		name = filepath.Base(p.LocalPath)
	}
	if name == "" || name == "." {
		name = "image"
	}
	mimeType := p.MimeType
	if mimeType == "" {
		mimeType = detectMimeType(name, data)
	}

	return image{param: p, file: steps.File{Name: name, MimeType: mimeType, Data: data}}, nil
}

// detectMimeType sniffs the decoded bytes and falls back to the file
// extension when the content is not a recognizable image
func detectMimeType(name string, data []byte) string {
	if detected := mimetype.Detect(data); strings.HasPrefix(detected.String(), "image/") {
		return detected.String()
	}
	if byExt := mime.TypeByExtension(filepath.Ext(name)); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// rewriteImagePaths replaces every local image path in body with the URL it
// was uploaded to. All paths are replaced in a single pass; when two paths
// share a prefix the longer one wins.
func rewriteImagePaths(body string, uploaded []entities.UploadedImage) string {
	pairs := make([]entities.UploadedImage, 0, len(uploaded))
	for _, u := range uploaded {
		if u.LocalPath != "" && u.UploadedURL != "" {
			pairs = append(pairs, u)
		}
	}
	if len(pairs) == 0 {
		return body
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		return len(pairs[i].LocalPath) > len(pairs[j].LocalPath)
	})

	oldnew := make([]string, 0, 2*len(pairs))
	for _, u := range pairs {
		oldnew = append(oldnew, u.LocalPath, u.UploadedURL)
	}
	return strings.NewReplacer(oldnew...).Replace(body)
}

// renderBody returns the HTML the editor receives
func (e *Engine) renderBody(body string, format entities.BodyFormat) (string, error) {
	if format == entities.FormatHTML {
		return body, nil
	}
	var buf bytes.Buffer
	if err := e.markdown.Convert([]byte(body), &buf); err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}
