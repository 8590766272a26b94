package syncclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"sync"

	"github.com/gorilla/websocket"

	"pkt.systems/pslog"

	"pkt.systems/voxsync/schema"
)

// StatusFunc receives aggregate status pushes from the relay.
type StatusFunc func(status schema.AggregateStatus)

// Client is one endpoint's connection to the relay. It keeps the session
// state current from incoming broadcasts and emits local events.
type Client struct {
	conn    *websocket.Conn
	session *Session
	log     pslog.Logger

	onStatus StatusFunc

	writeMu sync.Mutex

	statusMu sync.Mutex
	status   schema.AggregateStatus
}

// ClientOption adjusts client construction.
type ClientOption func(*Client)

// WithSession attaches an externally owned session.
func WithSession(session *Session) ClientOption {
	return func(c *Client) { c.session = session }
}

// WithStatusFunc registers a callback for connectionStatus pushes.
func WithStatusFunc(fn StatusFunc) ClientOption {
	return func(c *Client) { c.onStatus = fn }
}

// Dial connects to the relay's sync endpoint. rawURL may be the http base
// URL the relay banner prints; the scheme is rewritten for the websocket.
func Dial(ctx context.Context, rawURL string, opts ...ClientOption) (*Client, error) {
	endpoint, err := syncEndpoint(rawURL)
	if err != nil {
		return nil, err
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", endpoint, err)
	}
	client := &Client{
		conn: conn,
		log:  pslog.Ctx(ctx),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.session == nil {
		client.session = NewSession()
	}
	client.log.Info("sync client connected", "endpoint", endpoint)
	return client, nil
}

// Session exposes the client's session state.
func (c *Client) Session() *Session {
	return c.session
}

// Register declares this endpoint's role and mode to the relay.
func (c *Client) Register(role schema.Role, mode schema.Mode) error {
	payload := schema.RegisterPayload{Role: role}
	if role == schema.RoleMobile && mode != "" {
		payload.Mode = mode
	}
	return c.emit(schema.EventRegister, payload)
}

// EditBuffer applies a local edit and emits the resulting bufferUpdate.
func (c *Client) EditBuffer(content string) error {
	env, err := c.session.LocalEdit(content)
	if err != nil {
		return err
	}
	return c.send(env)
}

// EmitChunk forwards a speech-to-text fragment to the other endpoints.
func (c *Client) EmitChunk(chunk schema.TranscriptChunk) error {
	return c.emit(schema.EventTranscriptChunk, chunk)
}

// EmitClear clears the transcript everywhere, this endpoint included.
func (c *Client) EmitClear() error {
	c.session.ApplyClear()
	return c.emit(schema.EventTranscriptClear, struct{}{})
}

// Status returns the latest aggregate status pushed by the relay.
func (c *Client) Status() schema.AggregateStatus {
	c.statusMu.Lock()
	defer c.statusMu.Unlock()
	return c.status
}

// Run consumes broadcasts until the connection drops or ctx is canceled.
func (c *Client) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = c.conn.Close()
	}()
	for {
		var env schema.Envelope
		if err := c.conn.ReadJSON(&env); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return err
		}
		c.dispatch(env)
	}
}

// Close tears down the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) dispatch(env schema.Envelope) {
	if env.Event == schema.EventConnectionStatus {
		var status schema.AggregateStatus
		if err := json.Unmarshal(env.Data, &status); err != nil {
			c.log.Debug("sync client bad status", "err", err)
			return
		}
		c.statusMu.Lock()
		c.status = status
		c.statusMu.Unlock()
		if c.onStatus != nil {
			c.onStatus(status)
		}
		return
	}
	c.session.HandleEnvelope(env)
}

func (c *Client) emit(event schema.EventType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return c.send(schema.Envelope{Event: event, Data: data})
}

func (c *Client) send(env schema.Envelope) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(env)
}

func syncEndpoint(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	switch parsed.Scheme {
	case "http":
		parsed.Scheme = "ws"
	case "https":
		parsed.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported scheme %q", parsed.Scheme)
	}
	if parsed.Path == "" || parsed.Path == "/" {
		parsed.Path = "/sync"
	}
	return parsed.String(), nil
}
