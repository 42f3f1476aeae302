package interfaces

import (
	"context"

	"noet_automation/domain/entities"
)

// Dispatcher turns a request into exactly one response
type Dispatcher interface {
	Dispatch(ctx context.Context, req entities.Request) entities.Response
}
