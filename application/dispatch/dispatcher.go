// Package dispatch maps protocol requests onto flows and guarantees exactly
// one well-formed response per request.
package dispatch

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"noet_automation/application/session"
	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// Flows is the set of browser flows the dispatcher can run
type Flows interface {
	CheckAuth(ctx context.Context) (entities.AuthStatus, error)
	ListArticles(ctx context.Context, params entities.ListParams) (entities.ArticleList, error)
	GetArticle(ctx context.Context, params entities.GetArticleParams) (entities.ArticleContent, error)
	CreateArticle(ctx context.Context, params entities.ArticleParams) (entities.PublishResult, error)
	UpdateArticle(ctx context.Context, params entities.ArticleParams) (entities.PublishResult, error)
	DeleteArticle(ctx context.Context, params entities.DeleteParams) (entities.DeleteResult, error)
}

// Info identifies the host in ping responses
type Info struct {
	Version string
	Host    string
}

type handler func(ctx context.Context, req entities.Request) (any, error)

// Dispatcher routes requests. It owns the process-wide debug flag.
type Dispatcher struct {
	flows    Flows
	policy   interfaces.CommandPolicy
	info     Info
	logger   *logrus.Logger
	debug    atomic.Bool
	handlers map[entities.CommandName]handler
}

// NewDispatcher - creates new command dispatcher
func NewDispatcher(flows Flows, policy interfaces.CommandPolicy, info Info, logger *logrus.Logger) *Dispatcher {
	d := &Dispatcher{
		flows:  flows,
		policy: policy,
		info:   info,
		logger: logger,
	}
	d.handlers = map[entities.CommandName]handler{
		entities.CommandPing:          d.ping,
		entities.CommandCheckAuth:     d.checkAuth,
		entities.CommandListArticles:  withParams(flows.ListArticles),
		entities.CommandGetArticle:    withParams(flows.GetArticle),
		entities.CommandCreateArticle: withParams(flows.CreateArticle),
		entities.CommandUpdateArticle: withParams(flows.UpdateArticle),
		entities.CommandDeleteArticle: withParams(flows.DeleteArticle),
		entities.CommandSetDebugMode:  d.setDebugMode,
		entities.CommandGetDebugMode:  d.getDebugMode,
	}
	return d
}

// withParams adapts a flow taking typed params to a handler
func withParams[P, R any](fn func(context.Context, P) (R, error)) handler {
	return func(ctx context.Context, req entities.Request) (any, error) {
		var params P
		if err := req.DecodeParams(&params); err != nil {
			return nil, err
		}
		return fn(ctx, params)
	}
}

// Dispatch runs one request to completion. It never panics and always
// echoes the request id.
func (d *Dispatcher) Dispatch(ctx context.Context, req entities.Request) (resp entities.Response) {
	start := time.Now()
	log := d.logger.WithFields(logrus.Fields{
		"request_id": req.ID,
		"command":    req.Command,
	})

	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Command panicked")
			resp = entities.NewFailure(req.ID, entities.CodeUnknown, fmt.Sprintf("internal error: %v", r))
		}
		fields := logrus.Fields{"status": resp.Status, "elapsed": time.Since(start).Round(time.Millisecond)}
		if resp.Error != nil {
			log.WithFields(fields).WithField("code", resp.Error.Code).Warn(resp.Error.Message)
			return
		}
		log.WithFields(fields).Info("Command completed")
	}()

	h, ok := d.handlers[req.Command]
	if !ok {
		return entities.NewFailure(req.ID, entities.CodeUnknown, fmt.Sprintf("Unknown command: %s", req.Command))
	}

	if err := d.policy.Validate(req); err != nil {
		return entities.NewFailure(req.ID, entities.ErrorCode(err), err.Error())
	}

	risk := d.policy.RiskLevel(req)
	log = log.WithField("risk", risk)
	if d.policy.IsDestructive(req) {
		log.Info("Running command that changes published content")
	} else {
		log.Debug("Running command")
	}

	ctx = session.WithDebug(ctx, d.DebugMode())
	data, err := h(ctx, req)
	if err != nil {
		return entities.NewFailure(req.ID, entities.ErrorCode(err), err.Error())
	}
	return entities.NewSuccess(req.ID, data)
}

// DebugMode reports whether tabs are kept open after commands
func (d *Dispatcher) DebugMode() bool {
	return d.debug.Load()
}

func (d *Dispatcher) ping(_ context.Context, _ entities.Request) (any, error) {
	return map[string]any{"version": d.info.Version, "host": d.info.Host}, nil
}

func (d *Dispatcher) checkAuth(ctx context.Context, _ entities.Request) (any, error) {
	return d.flows.CheckAuth(ctx)
}

func (d *Dispatcher) setDebugMode(_ context.Context, req entities.Request) (any, error) {
	var p entities.DebugParams
	if err := req.DecodeParams(&p); err != nil {
		return nil, err
	}
	if p.Enabled == nil {
		return nil, entities.InvalidParams("enabled is required")
	}
	d.debug.Store(*p.Enabled)
	d.logger.WithField("debug_mode", *p.Enabled).Info("Debug mode changed")
	return map[string]any{"success": true, "debug_mode": *p.Enabled}, nil
}

func (d *Dispatcher) getDebugMode(_ context.Context, _ entities.Request) (any, error) {
	return map[string]any{"debug_mode": d.DebugMode()}, nil
}

var _ interfaces.Dispatcher = (*Dispatcher)(nil)
