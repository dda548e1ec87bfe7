package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Engine.IO / Socket.IO packet prefixes used by the game server.
const (
	packetOpen         = "0"
	packetClose        = "1"
	packetPing         = "2"
	packetPong         = "3"
	packetConnect      = "40"
	packetDisconnect   = "41"
	packetEvent        = "42"
	packetConnectError = "44"
)

// ErrServerDisconnect is returned by Run when the server closes the namespace.
var ErrServerDisconnect = errors.New("server disconnected")

// Handler receives an event's payload. A single argument is passed as-is;
// several arguments are passed as a JSON array.
type Handler func(payload json.RawMessage) error

// Emitter sends Socket.IO events.
type Emitter interface {
	Emit(event string, args ...any) error
}

// Client is a Socket.IO client for a single bot connection.
type Client struct {
	name     string
	url      string
	header   http.Header
	dialer   *websocket.Dialer
	wsConn   *websocket.Conn
	handlers map[string]Handler
	onOpen   func() error
	mu       sync.Mutex
	closedWS bool
	log      zerolog.Logger
}

// NewClient creates a client for the given server URL. The cookie is sent on
// the websocket handshake and is how the server identifies the bot.
func NewClient(name, serverURL, cookie string) *Client {
	h := http.Header{}
	if cookie != "" {
		h.Set("Cookie", cookie)
	}
	return &Client{
		name:     name,
		url:      serverURL,
		header:   h,
		dialer:   &websocket.Dialer{HandshakeTimeout: 30 * time.Second, EnableCompression: true},
		handlers: map[string]Handler{},
		log:      log.Logger,
	}
}

// Name returns the bot name.
func (c *Client) Name() string { return c.name }

// SetLogger replaces the client's logger.
func (c *Client) SetLogger(l zerolog.Logger) { c.log = l }

// On registers the handler for an event. Handlers run on the read loop, one
// at a time, in arrival order. Register before Connect.
func (c *Client) On(event string, h Handler) { c.handlers[event] = h }

// OnOpen registers a callback run once the namespace connect is acknowledged.
func (c *Client) OnOpen(fn func() error) { c.onOpen = fn }

// socketURL turns an http(s) Socket.IO endpoint into its websocket transport URL.
func socketURL(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse server url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	q := u.Query()
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Connect dials the server. A connection left over from an earlier Run is
// closed first.
func (c *Client) Connect(ctx context.Context) error {
	wsURL, err := socketURL(c.url)
	if err != nil {
		return err
	}
	conn, _, err := c.dialer.DialContext(ctx, wsURL, c.header)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.mu.Lock()
	c.closeLocked()
	c.wsConn = conn
	c.closedWS = false
	c.mu.Unlock()
	return nil
}

// Emit sends an event with its arguments.
func (c *Client) Emit(event string, args ...any) error {
	frame, err := json.Marshal(append([]any{event}, args...))
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return c.write(packetEvent + string(frame))
}

func (c *Client) write(msg string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn == nil || c.closedWS {
		return fmt.Errorf("ws not connected")
	}
	return c.wsConn.WriteMessage(websocket.TextMessage, []byte(msg))
}

// Run reads and dispatches packets until the connection drops, the server
// disconnects or ctx is done.
func (c *Client) Run(ctx context.Context) error {
	if c.wsConn == nil {
		return fmt.Errorf("ws not connected")
	}
	defer c.CloseWS()
	stop := context.AfterFunc(ctx, c.CloseWS)
	defer stop()

	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("ws read: %w", err)
		}
		if err := c.handlePacket(string(msg)); err != nil {
			return err
		}
	}
}

func (c *Client) handlePacket(msg string) error {
	switch {
	case strings.HasPrefix(msg, packetEvent):
		c.dispatch([]byte(msg[len(packetEvent):]))
	case strings.HasPrefix(msg, packetConnectError):
		return fmt.Errorf("connect rejected: %s", msg[len(packetConnectError):])
	case strings.HasPrefix(msg, packetDisconnect):
		return ErrServerDisconnect
	case strings.HasPrefix(msg, packetConnect):
		c.log.Info().Str("bot", c.name).Msg("Connected")
		if c.onOpen != nil {
			if err := c.onOpen(); err != nil {
				c.log.Error().Err(err).Str("bot", c.name).Msg("Open handler failed")
			}
		}
	case msg == packetPing:
		return c.write(packetPong)
	case strings.HasPrefix(msg, packetOpen):
		return c.write(packetConnect)
	case msg == packetClose:
		return ErrServerDisconnect
	default:
		c.log.Debug().Str("bot", c.name).Str("packet", truncate([]byte(msg))).Msg("Ignoring packet")
	}
	return nil
}

// dispatch decodes ["event", args...] and runs its handler.
func (c *Client) dispatch(frame []byte) {
	var parts []json.RawMessage
	if err := json.Unmarshal(frame, &parts); err != nil || len(parts) == 0 {
		c.log.Debug().Str("bot", c.name).Str("frame", truncate(frame)).Msg("Malformed event")
		return
	}
	var event string
	if err := json.Unmarshal(parts[0], &event); err != nil {
		c.log.Debug().Str("bot", c.name).Str("frame", truncate(frame)).Msg("Malformed event name")
		return
	}
	h, ok := c.handlers[event]
	if !ok {
		return
	}

	var payload json.RawMessage
	switch args := parts[1:]; len(args) {
	case 0:
		payload = json.RawMessage("null")
	case 1:
		payload = args[0]
	default:
		var buf bytes.Buffer
		buf.WriteByte('[')
		for i, a := range args {
			if i > 0 {
				buf.WriteByte(',')
			}
			buf.Write(a)
		}
		buf.WriteByte(']')
		payload = buf.Bytes()
	}

	if err := h(payload); err != nil {
		c.log.Error().Err(err).Str("bot", c.name).Str("event", event).Msg("Event handler failed")
	}
}

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}
