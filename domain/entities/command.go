package entities

import (
	"encoding/json"
	"errors"
	"fmt"
)

// CommandName identifies a remote-callable command
type CommandName string

const (
	CommandPing          CommandName = "ping"
	CommandCheckAuth     CommandName = "check_auth"
	CommandListArticles  CommandName = "list_articles"
	CommandGetArticle    CommandName = "get_article"
	CommandCreateArticle CommandName = "create_article"
	CommandUpdateArticle CommandName = "update_article"
	CommandDeleteArticle CommandName = "delete_article"
	CommandSetDebugMode  CommandName = "set_debug_mode"
	CommandGetDebugMode  CommandName = "get_debug_mode"
)

// ResponseStatus is the terminal status of a command
type ResponseStatus string

const (
	StatusSuccess ResponseStatus = "success"
	StatusError   ResponseStatus = "error"
)

// Error codes carried in ErrorBody.Code
const (
	CodeInvalidParams = "INVALID_PARAMS"
	CodeNotFound      = "NOT_FOUND"
	CodeStepFailed    = "STEP_FAILED"
	CodeUnknown       = "UNKNOWN"
)

// Request is a command issued by the controller
type Request struct {
	ID      string          `json:"id"`
	Command CommandName     `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response answers exactly one Request. Exactly one of Data and Error is set.
type Response struct {
	ID     string         `json:"id"`
	Status ResponseStatus `json:"status"`
	Data   any            `json:"data,omitempty"`
	Error  *ErrorBody     `json:"error,omitempty"`
}

// ErrorBody is the protocol-level error object
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewSuccess builds a success response. A nil payload becomes an empty object
// so the data field is always present.
func NewSuccess(id string, data any) Response {
	if data == nil {
		data = map[string]any{}
	}
	return Response{ID: id, Status: StatusSuccess, Data: data}
}

// NewFailure builds an error response
func NewFailure(id, code, message string) Response {
	if code == "" {
		code = CodeUnknown
	}
	return Response{ID: id, Status: StatusError, Error: &ErrorBody{Code: code, Message: message}}
}

// CommandError is an error with a protocol code attached
type CommandError struct {
	Code    string
	Message string
	Err     error
}

func (e *CommandError) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// InvalidParams reports a missing or malformed parameter
func InvalidParams(format string, args ...any) error {
	return &CommandError{Code: CodeInvalidParams, Message: fmt.Sprintf(format, args...)}
}

// NotFound reports content that does not exist or is not reachable
func NotFound(format string, args ...any) error {
	return &CommandError{Code: CodeNotFound, Message: fmt.Sprintf(format, args...)}
}

// ErrorCode extracts the protocol code of err, defaulting to UNKNOWN
func ErrorCode(err error) string {
	var cmdErr *CommandError
	if errors.As(err, &cmdErr) && cmdErr.Code != "" {
		return cmdErr.Code
	}
	return CodeUnknown
}

// DecodeParams unmarshals the request params into v. Absent params leave v
// untouched; malformed params are an INVALID_PARAMS error.
func (r Request) DecodeParams(v any) error {
	if len(r.Params) == 0 || string(r.Params) == "null" {
		return nil
	}
	if err := json.Unmarshal(r.Params, v); err != nil {
		return &CommandError{Code: CodeInvalidParams, Message: fmt.Sprintf("invalid params for %s: %v", r.Command, err), Err: err}
	}
	return nil
}
