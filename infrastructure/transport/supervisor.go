package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"noet_automation/domain/entities"
	"noet_automation/domain/interfaces"

	"github.com/sirupsen/logrus"
)

// State is the connection state of a supervised channel
type State int32

const (
	Disconnected State = iota
	Connecting
	Connected
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Backoff returns the delay before reconnect attempt n (1-based)
type Backoff func(attempt int) time.Duration

// FixedBackoff waits the same delay before every attempt
func FixedBackoff(delay time.Duration) Backoff {
	return func(int) time.Duration { return delay }
}

var idPattern = regexp.MustCompile(`"id"\s*:\s*("(?:[^"\\]|\\.)*"|-?[0-9][0-9.eE+-]*)`)

// Supervisor keeps one channel connected and feeds its requests to the
// dispatcher. Each request runs on its own goroutine.
type Supervisor struct {
	connector  Connector
	dispatcher interfaces.Dispatcher
	backoff    Backoff
	logger     *logrus.Entry
	state      atomic.Int32
	handlers   sync.WaitGroup
}

// NewSupervisor - creates new channel supervisor
func NewSupervisor(connector Connector, dispatcher interfaces.Dispatcher, backoff Backoff, logger *logrus.Logger) *Supervisor {
	return &Supervisor{
		connector:  connector,
		dispatcher: dispatcher,
		backoff:    backoff,
		logger:     logger.WithField("channel", connector.Name()),
	}
}

// State returns the current connection state
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

func (s *Supervisor) setState(st State) {
	if State(s.state.Swap(int32(st))) != st {
		s.logger.WithField("state", st).Debug("Channel state changed")
	}
}

// Run connects and reconnects until ctx is cancelled. It returns after every
// in-flight request has been answered or abandoned.
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.handlers.Wait()
	defer s.setState(Disconnected)

	attempt := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(Connecting)
		link, err := s.connector.Connect(ctx)
		if err != nil {
			attempt++
			s.setState(Disconnected)
			delay := s.backoff(attempt)
			s.logger.WithFields(logrus.Fields{"attempt": attempt, "retry_in": delay}).WithError(err).Debug("Connect failed")
			if !sleep(ctx, delay) {
				return nil
			}
			continue
		}

		attempt = 0
		s.setState(Connected)
		s.logger.Info("Channel connected")

		err = s.serve(ctx, link)
		s.setState(Disconnected)
		if ctx.Err() != nil {
			return nil
		}
		s.logger.WithError(err).Warn("Channel disconnected")

		if !sleep(ctx, s.backoff(1)) {
			return nil
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

// serve reads requests from link until it fails or ctx ends
func (s *Supervisor) serve(ctx context.Context, link Link) error {
	linkCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		<-linkCtx.Done()
		if err := link.Close(); err != nil {
			s.logger.WithError(err).Debug("Failed to close link")
		}
	}()
	defer func() {
		cancel()
		<-closed
	}()

	var writeMu sync.Mutex
	for {
		msg, err := link.Receive(linkCtx)
		if err != nil {
			return err
		}
		s.handlers.Add(1)
		go func() {
			defer s.handlers.Done()
			s.handle(ctx, link, &writeMu, msg)
		}()
	}
}

func (s *Supervisor) handle(ctx context.Context, link Link, writeMu *sync.Mutex, msg []byte) {
	var req entities.Request
	if err := json.Unmarshal(msg, &req); err != nil {
		id, ok := recoverID(msg)
		if !ok {
			s.logger.WithError(err).Warn("Dropping malformed message")
			return
		}
		s.reply(ctx, link, writeMu, entities.NewFailure(id, entities.CodeInvalidParams, "malformed request: "+err.Error()))
		return
	}

	s.reply(ctx, link, writeMu, s.dispatcher.Dispatch(ctx, req))
}

func (s *Supervisor) reply(ctx context.Context, link Link, writeMu *sync.Mutex, resp entities.Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.WithError(err).WithField("request_id", resp.ID).Error("Failed to encode response")
		data, _ = json.Marshal(entities.NewFailure(resp.ID, entities.CodeUnknown, "failed to encode response"))
	}

	writeMu.Lock()
	defer writeMu.Unlock()

	if err := link.Send(ctx, data); err != nil {
		s.logger.WithError(err).WithField("request_id", resp.ID).Warn("Failed to send response")
	}
}

// recoverID extracts the request id from a message that is not a valid
// request. Non-string ids are echoed as their JSON text.
func recoverID(msg []byte) (string, bool) {
	var partial struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(msg, &partial); err == nil {
		return rawID(partial.ID)
	}
	m := idPattern.FindSubmatch(msg)
	if m == nil {
		return "", false
	}
	return rawID(m[1])
}

func rawID(raw json.RawMessage) (string, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return "", false
	}
	var id string
	if err := json.Unmarshal(raw, &id); err != nil {
		if raw[0] == '"' {
			return string(raw[1 : len(raw)-1]), true
		}
		return string(raw), true
	}
	return id, id != ""
}
