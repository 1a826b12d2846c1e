// ABOUTME: Websocket transport for the realtime channel using gorilla/websocket.
// ABOUTME: JSON envelopes over text frames with write/read deadlines and control pings.
package realtime

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/gorilla/websocket"
)

// TokenSource supplies the bearer token presented during the handshake.
type TokenSource interface {
	Token() (string, error)
}

// WebsocketSettings tunes the websocket transport.
type WebsocketSettings struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
}

// DefaultWebsocketSettings returns the settings used by the CLI.
func DefaultWebsocketSettings() *WebsocketSettings {
	return &WebsocketSettings{
		HandshakeTimeout: 5 * time.Second,
		WriteTimeout:     5 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     20 * time.Second,
	}
}

// WebsocketTransport dials a websocket endpoint.
type WebsocketTransport struct {
	url      string
	tokens   TokenSource
	settings *WebsocketSettings
}

// NewWebsocketTransport creates a transport for url.
func NewWebsocketTransport(url string, tokens TokenSource, settings *WebsocketSettings) *WebsocketTransport {
	if settings == nil {
		settings = DefaultWebsocketSettings()
	}
	return &WebsocketTransport{url: url, tokens: tokens, settings: settings}
}

// Dial implements Transport.
func (t *WebsocketTransport) Dial(ctx context.Context, origin string) (Conn, error) {
	token, err := t.tokens.Token()
	if err != nil {
		return nil, err
	}

	dialer := &websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: t.settings.HandshakeTimeout,
	}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)

	ws, _, err := dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return nil, fmt.Errorf("websocket dial %s: %w", t.url, err)
	}

	connCtx, cancel := context.WithCancel(context.Background())
	c := &wsConn{
		ws:       ws,
		origin:   origin,
		settings: t.settings,
		receive:  make(chan Event, ReceiveBufferSize),
		ctx:      connCtx,
		cancel:   cancel,
	}
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(t.settings.ReadTimeout))
	})
	go c.readLoop()
	go c.pingLoop()
	glog.Infof("[ws]connected %s", t.url)
	return c, nil
}

type wsConn struct {
	ws       *websocket.Conn
	origin   string
	settings *WebsocketSettings
	receive  chan Event

	writeMu sync.Mutex

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *wsConn) Send(ctx context.Context, ev Event) error {
	select {
	case <-c.ctx.Done():
		return ErrClosed
	default:
	}
	data, err := encodeEnvelope(c.origin, ev)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(c.settings.WriteTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	c.writeMu.Lock()
	_ = c.ws.SetWriteDeadline(deadline)
	err = c.ws.WriteMessage(websocket.TextMessage, data)
	c.writeMu.Unlock()
	if err != nil {
		// a websocket write deadline cannot be recovered
		c.Close()
		return fmt.Errorf("websocket write %s: %w", ev.Name, err)
	}
	glog.V(2).Infof("[ws]-> %s", ev.Name)
	return nil
}

func (c *wsConn) Receive() <-chan Event {
	return c.receive
}

func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		c.writeMu.Lock()
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.settings.WriteTimeout))
		_ = c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		_ = c.ws.Close()
	})
	return nil
}

func (c *wsConn) readLoop() {
	defer func() {
		c.Close()
		close(c.receive)
	}()

	for {
		_ = c.ws.SetReadDeadline(time.Now().Add(c.settings.ReadTimeout))
		messageType, message, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.ctx.Done():
			default:
				glog.Infof("[ws]<- error = %s", err)
			}
			return
		}
		if messageType != websocket.TextMessage && messageType != websocket.BinaryMessage {
			continue
		}

		env, err := decodeEnvelope(message)
		if err != nil {
			glog.Warningf("[ws]drop: %v", err)
			continue
		}
		if env.Origin != "" && env.Origin == c.origin {
			glog.V(2).Infof("[ws]drop own %s", env.Name)
			continue
		}

		select {
		case <-c.ctx.Done():
			return
		case c.receive <- Event{Name: env.Name, Payload: env.Payload}:
			glog.V(2).Infof("[ws]<- %s", env.Name)
		}
	}
}

func (c *wsConn) pingLoop() {
	ticker := time.NewTicker(c.settings.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.writeMu.Lock()
			err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(c.settings.WriteTimeout))
			c.writeMu.Unlock()
			if err != nil {
				glog.Infof("[ws]ping error = %s", err)
				c.Close()
				return
			}
		}
	}
}
