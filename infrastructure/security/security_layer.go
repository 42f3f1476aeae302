package security

import (
	"strings"

	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// SecurityLayer validates command parameters and classifies the side
// effects of each command before it reaches the browser
type SecurityLayer struct {
	logger *logrus.Logger
}

func NewSecurityLayer(logger *logrus.Logger) *SecurityLayer {
	return &SecurityLayer{
		logger: logger,
	}
}

func (s *SecurityLayer) Validate(req entities.Request) error {
	switch req.Command {
	case entities.CommandListArticles:
		var p entities.ListParams
		if err := req.DecodeParams(&p); err != nil {
			return err
		}
		if p.Page < 0 {
			return entities.InvalidParams("page must be a positive number")
		}

	case entities.CommandGetArticle:
		var p entities.GetArticleParams
		if err := req.DecodeParams(&p); err != nil {
			return err
		}
		if err := required(map[string]string{"username": p.Username, "key": p.Key}, "username", "key"); err != nil {
			return err
		}

	case entities.CommandCreateArticle, entities.CommandUpdateArticle:
		var p entities.ArticleParams
		if err := req.DecodeParams(&p); err != nil {
			return err
		}
		fields := []string{"title", "body"}
		if req.Command == entities.CommandUpdateArticle {
			fields = append([]string{"key"}, fields...)
		}
		if err := required(map[string]string{"key": p.Key, "title": p.Title, "body": p.Body}, fields...); err != nil {
			return err
		}
		for i, img := range p.Images {
			if img.Data == "" {
				return entities.InvalidParams("images[%d].data is required", i)
			}
		}
		if p.HeaderImage != nil && p.HeaderImage.Data == "" {
			return entities.InvalidParams("header_image.data is required")
		}

	case entities.CommandDeleteArticle:
		var p entities.DeleteParams
		if err := req.DecodeParams(&p); err != nil {
			return err
		}
		if err := required(map[string]string{"key": p.Key}, "key"); err != nil {
			return err
		}

	case entities.CommandSetDebugMode:
		var p entities.DebugParams
		if err := req.DecodeParams(&p); err != nil {
			return err
		}
		if p.Enabled == nil {
			return entities.InvalidParams("enabled is required")
		}
	}
	return nil
}

// required reports the missing fields in declaration order
func required(values map[string]string, fields ...string) error {
	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(values[f]) == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	if len(missing) == 1 {
		return entities.InvalidParams("%s is required", missing[0])
	}
	return entities.InvalidParams("%s are required", strings.Join(missing, " and "))
}

func (s *SecurityLayer) IsDestructive(req entities.Request) bool {
	switch req.Command {
	case entities.CommandDeleteArticle, entities.CommandUpdateArticle:
		return true
	case entities.CommandCreateArticle:
		return !s.isDraft(req)
	}
	return false
}

func (s *SecurityLayer) RiskLevel(req entities.Request) interfaces.RiskLevel {
	if s.IsDestructive(req) {
		return interfaces.RiskHigh
	}

	switch req.Command {
	case entities.CommandPing, entities.CommandSetDebugMode, entities.CommandGetDebugMode:
		// No browser interaction
		return interfaces.RiskNone
	}
	return interfaces.RiskLow
}

func (s *SecurityLayer) isDraft(req entities.Request) bool {
	var p entities.ArticleParams
	if err := req.DecodeParams(&p); err != nil {
		s.logger.WithError(err).Debug("Cannot classify article params")
		return false
	}
	return p.Draft
}

// Ensure SecurityLayer implements CommandPolicy interface
var _ interfaces.CommandPolicy = (*SecurityLayer)(nil)
