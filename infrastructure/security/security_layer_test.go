package security

import (
	"encoding/json"
	"io"
	"testing"

	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLayer() *SecurityLayer {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewSecurityLayer(logger)
}

func request(command entities.CommandName, params string) entities.Request {
	return entities.Request{ID: "1", Command: command, Params: json.RawMessage(params)}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     entities.Request
		wantErr string
	}{
		{"ping without params", request(entities.CommandPing, ""), ""},
		{"list defaults", request(entities.CommandListArticles, `{}`), ""},
		{"list negative page", request(entities.CommandListArticles, `{"page":-1}`), "page must be a positive number"},
		{"get missing key", request(entities.CommandGetArticle, `{"username":"me"}`), "key is required"},
		{"get missing both", request(entities.CommandGetArticle, `{}`), "username and key are required"},
		{"get ok", request(entities.CommandGetArticle, `{"username":"me","key":"n1"}`), ""},
		{"create missing body", request(entities.CommandCreateArticle, `{"title":"t"}`), "body is required"},
		{"create ok", request(entities.CommandCreateArticle, `{"title":"t","body":"b"}`), ""},
		{"create image without data", request(entities.CommandCreateArticle, `{"title":"t","body":"b","images":[{"filename":"a.png"}]}`), "images[0].data is required"},
		{"update missing key", request(entities.CommandUpdateArticle, `{"title":"t","body":"b"}`), "key is required"},
		{"delete missing key", request(entities.CommandDeleteArticle, `{"key":" "}`), "key is required"},
		{"debug missing enabled", request(entities.CommandSetDebugMode, `{}`), "enabled is required"},
		{"debug ok", request(entities.CommandSetDebugMode, `{"enabled":false}`), ""},
		{"malformed params", request(entities.CommandDeleteArticle, `{"key":1}`), "invalid params for delete_article"},
	}

	layer := newLayer()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := layer.Validate(tt.req)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			assert.Equal(t, entities.CodeInvalidParams, entities.ErrorCode(err))
		})
	}
}

func TestRiskLevel(t *testing.T) {
	layer := newLayer()

	assert.Equal(t, interfaces.RiskNone, layer.RiskLevel(request(entities.CommandPing, "")))
	assert.Equal(t, interfaces.RiskLow, layer.RiskLevel(request(entities.CommandListArticles, "")))
	assert.Equal(t, interfaces.RiskLow, layer.RiskLevel(request(entities.CommandCreateArticle, `{"draft":true}`)))
	assert.Equal(t, interfaces.RiskHigh, layer.RiskLevel(request(entities.CommandCreateArticle, `{"draft":false}`)))
	assert.Equal(t, interfaces.RiskHigh, layer.RiskLevel(request(entities.CommandDeleteArticle, `{"key":"n1"}`)))
	assert.True(t, layer.IsDestructive(request(entities.CommandUpdateArticle, `{"draft":true}`)))
	assert.False(t, layer.IsDestructive(request(entities.CommandGetArticle, "")))
}
