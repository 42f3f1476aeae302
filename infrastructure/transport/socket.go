package transport

import (
	"context"
	"fmt"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

// SocketConnector dials the controller's loopback WebSocket endpoint
type SocketConnector struct {
	url    string
	dialer *websocket.Dialer
}

// NewSocketConnector - creates new WebSocket connector
func NewSocketConnector(url string) *SocketConnector {
	return &SocketConnector{
		url: url,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 5 * time.Second,
		},
	}
}

func (s *SocketConnector) Name() string {
	return "socket"
}

func (s *SocketConnector) Connect(ctx context.Context) (Link, error) {
	conn, resp, err := s.dialer.DialContext(ctx, s.url, nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", s.url, err)
	}
	return &socketLink{conn: conn}, nil
}

type socketLink struct {
	conn *websocket.Conn
}

func (l *socketLink) Receive(ctx context.Context) ([]byte, error) {
	for {
		kind, msg, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if kind == websocket.TextMessage || kind == websocket.BinaryMessage {
			return msg, nil
		}
	}
}

func (l *socketLink) Send(ctx context.Context, msg []byte) error {
	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := l.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return l.conn.WriteMessage(websocket.TextMessage, msg)
}

func (l *socketLink) Close() error {
	_ = l.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return l.conn.Close()
}
