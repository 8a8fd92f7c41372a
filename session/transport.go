/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package session

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one open game socket. ReadMessage is only called from the
// reader goroutine and WriteMessage only from the loop goroutine; Close
// may be called from anywhere.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	Close() error
}

// Dialer opens game sockets.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// GameURL builds the socket address for base, e.g.
// http://localhost:8153/api → ws://localhost:8153/api/ws/game?token=...
//
// The token rides in the query string because the browser handshake this
// contract was built for cannot set headers.
func GameURL(base, token string) (string, error) {
	if strings.TrimSpace(base) == "" {
		return "", ErrNoBaseURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("session: parse base url: %w", err)
	}

	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("session: unsupported scheme %q", u.Scheme)
	}

	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws/game"
	u.RawQuery = url.Values{"token": []string{token}}.Encode()

	return u.String(), nil
}

// WebsocketDialer dials with gorilla/websocket.
type WebsocketDialer struct {
	Dialer       *websocket.Dialer
	WriteTimeout time.Duration
}

func (d WebsocketDialer) Dial(ctx context.Context, addr string) (Conn, error) {
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}

	ws, resp, err := dialer.DialContext(ctx, addr, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("session: dial: %w (status %d)", err, resp.StatusCode)
		}
		return nil, fmt.Errorf("session: dial: %w", err)
	}

	return &wsConn{ws: ws, writeTimeout: d.WriteTimeout}, nil
}

type wsConn struct {
	ws           *websocket.Conn
	writeTimeout time.Duration
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()

	return data, err
}

func (c *wsConn) WriteMessage(data []byte) error {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}

	return c.ws.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	_ = c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"),
		time.Now().Add(time.Second),
	)

	return c.ws.Close()
}

// isNormalClose reports whether err is an orderly socket shutdown.
func isNormalClose(err error) bool {
	return websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway)
}
