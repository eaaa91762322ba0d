package homeassistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/berfenger/receiptpanel/internal/config"
	"github.com/berfenger/receiptpanel/internal/core/domain"
	"github.com/berfenger/receiptpanel/internal/core/port"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrNotConnected = errors.New("websocket not connected")

// WebsocketClient keeps one authenticated connection to Home Assistant. It serves the registry
// lists and delivers completion events. Every successful (re)connection invokes OnConnected.
type WebsocketClient struct {
	url             string
	token           string
	completionEvent string
	timeout         time.Duration
	reconnect       time.Duration
	dialer          *websocket.Dialer
	logger          *zap.Logger

	OnConnected  func()
	OnCompletion func(domain.CompletionEvent)

	mu      sync.Mutex
	conn    *websocket.Conn
	nextId  int
	pending map[int]chan wsMessage
	writeMu sync.Mutex
}

var _ port.RegistrySource = (*WebsocketClient)(nil)

func NewWebsocketClient(cfg *config.Config, logger *zap.Logger) (*WebsocketClient, error) {
	wsURL, err := WebsocketURL(cfg.HomeAssistant.URL)
	if err != nil {
		return nil, err
	}
	return &WebsocketClient{
		url:             wsURL,
		token:           cfg.HomeAssistant.Token,
		completionEvent: cfg.Generation.CompletionEvent,
		timeout:         cfg.HomeAssistantTimeout(),
		reconnect:       cfg.ReconnectInterval(),
		dialer:          &websocket.Dialer{HandshakeTimeout: cfg.HomeAssistantTimeout()},
		logger:          logger,
		pending:         map[int]chan wsMessage{},
	}, nil
}

// WebsocketURL maps the http base url of the host to its websocket endpoint.
func WebsocketURL(baseURL string) (string, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid homeassistant url: %w", err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid homeassistant url scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/api/websocket"
	return u.String(), nil
}

// Run connects and keeps reconnecting until ctx is done.
func (c *WebsocketClient) Run(ctx context.Context) {
	for {
		err := c.session(ctx)
		if ctx.Err() != nil {
			return
		}
		c.logger.Warn("homeassistant: websocket session ended", zap.Error(err), zap.Duration("retry_in", c.reconnect))
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.reconnect):
		}
	}
}

func (c *WebsocketClient) session(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.timeout)
	conn, _, err := c.dialer.DialContext(dialCtx, c.url, nil)
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}
	defer conn.Close()

	if err := c.authenticate(conn); err != nil {
		return err
	}
	c.logger.Info("homeassistant: websocket connected", zap.String("url", c.url))

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer c.detach(conn)

	// unblock the read loop on shutdown
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	go c.afterConnect(ctx)

	return c.readLoop(conn)
}

func (c *WebsocketClient) authenticate(conn *websocket.Conn) error {
	conn.SetReadDeadline(time.Now().Add(c.timeout))
	defer conn.SetReadDeadline(time.Time{})

	var msg wsMessage
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth_required: %w", err)
	}
	if msg.Type != WS_TYPE_AUTH_REQUIRED {
		return fmt.Errorf("unexpected message %q before auth", msg.Type)
	}
	if err := conn.WriteJSON(wsMessage{Type: WS_TYPE_AUTH, AccessToken: c.token}); err != nil {
		return fmt.Errorf("write auth: %w", err)
	}
	if err := conn.ReadJSON(&msg); err != nil {
		return fmt.Errorf("read auth result: %w", err)
	}
	switch msg.Type {
	case WS_TYPE_AUTH_OK:
		return nil
	case WS_TYPE_AUTH_INVALID:
		return fmt.Errorf("authentication rejected: %s", msg.Message)
	default:
		return fmt.Errorf("unexpected auth result %q", msg.Type)
	}
}

func (c *WebsocketClient) afterConnect(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if _, err := c.call(callCtx, wsMessage{Type: WS_TYPE_SUBSCRIBE, EventType: c.completionEvent}); err != nil {
		c.logger.Error("homeassistant: completion subscription failed", zap.String("event_type", c.completionEvent), zap.Error(err))
	} else {
		c.logger.Debug("homeassistant: subscribed", zap.String("event_type", c.completionEvent))
	}
	if c.OnConnected != nil {
		c.OnConnected()
	}
}

func (c *WebsocketClient) readLoop(conn *websocket.Conn) error {
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch msg.Type {
		case WS_TYPE_RESULT:
			c.mu.Lock()
			ch, ok := c.pending[msg.Id]
			delete(c.pending, msg.Id)
			c.mu.Unlock()
			if ok {
				ch <- msg
			}
		case WS_TYPE_EVENT:
			c.handleEvent(msg.Event)
		default:
			c.logger.Debug("homeassistant: ignored websocket message", zap.String("type", msg.Type))
		}
	}
}

func (c *WebsocketClient) handleEvent(ev *wsEvent) {
	if ev == nil || ev.EventType != c.completionEvent {
		return
	}
	completion, err := ParseCompletionEvent(ev.Data)
	if err != nil {
		c.logger.Error("homeassistant: invalid completion event", zap.Error(err))
		return
	}
	c.logger.Info("homeassistant: completion event", zap.Bool("success", completion.Success), zap.String("filename", completion.Filename))
	if c.OnCompletion != nil {
		c.OnCompletion(completion)
	}
}

// ParseCompletionEvent decodes the event payload. A missing success flag counts as failure.
func ParseCompletionEvent(data json.RawMessage) (domain.CompletionEvent, error) {
	var payload struct {
		domain.CompletionEvent
		Files []string `json:"files"`
	}
	if len(data) == 0 {
		return domain.CompletionEvent{}, errors.New("empty event data")
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return domain.CompletionEvent{}, err
	}
	ev := payload.CompletionEvent
	if ev.FileCount == 0 && len(payload.Files) > 0 {
		ev.FileCount = len(payload.Files)
		if ev.Filename == "" && len(payload.Files) == 1 {
			ev.Filename = payload.Files[0]
		}
	}
	if !ev.Success && ev.Error == "" {
		ev.Error = "unknown error"
	}
	return ev, nil
}

func (c *WebsocketClient) detach(conn *websocket.Conn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == conn {
		c.conn = nil
	}
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *WebsocketClient) call(ctx context.Context, msg wsMessage) (json.RawMessage, error) {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return nil, ErrNotConnected
	}
	c.nextId++
	msg.Id = c.nextId
	ch := make(chan wsMessage, 1)
	c.pending[msg.Id] = ch
	c.mu.Unlock()

	c.writeMu.Lock()
	err := conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		c.forget(msg.Id)
		return nil, fmt.Errorf("write %s: %w", msg.Type, err)
	}

	select {
	case <-ctx.Done():
		c.forget(msg.Id)
		return nil, ctx.Err()
	case res, ok := <-ch:
		if !ok {
			return nil, ErrNotConnected
		}
		if res.Success == nil || !*res.Success {
			if res.Error != nil {
				return nil, fmt.Errorf("%s failed: %s: %s", msg.Type, res.Error.Code, res.Error.Message)
			}
			return nil, fmt.Errorf("%s failed", msg.Type)
		}
		return res.Result, nil
	}
}

func (c *WebsocketClient) forget(id int) {
	c.mu.Lock()
	delete(c.pending, id)
	c.mu.Unlock()
}

func list[T any](ctx context.Context, c *WebsocketClient, commandType string) ([]T, error) {
	raw, err := c.call(ctx, wsMessage{Type: commandType})
	if err != nil {
		return nil, err
	}
	var entries []T
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode %s: %w", commandType, err)
	}
	return entries, nil
}

// GetRegistry reads the four registries over the live connection.
func (c *WebsocketClient) GetRegistry(ctx context.Context) (*domain.Registry, error) {
	floors, err := list[domain.FloorEntry](ctx, c, WS_TYPE_FLOOR_REGISTRY)
	if err != nil {
		return nil, err
	}
	areas, err := list[domain.AreaEntry](ctx, c, WS_TYPE_AREA_REGISTRY)
	if err != nil {
		return nil, err
	}
	devices, err := list[domain.DeviceEntry](ctx, c, WS_TYPE_DEVICE_REGISTRY)
	if err != nil {
		return nil, err
	}
	entities, err := list[domain.EntityEntry](ctx, c, WS_TYPE_ENTITY_REGISTRY)
	if err != nil {
		return nil, err
	}
	c.logger.Debug("homeassistant: registry fetched",
		zap.Int("floors", len(floors)),
		zap.Int("areas", len(areas)),
		zap.Int("devices", len(devices)),
		zap.Int("entities", len(entities)),
	)
	return domain.NewRegistry(floors, areas, devices, entities), nil
}

// Client is the full host client: REST calls plus the websocket registry source.
type Client struct {
	*RestClient
	*WebsocketClient
}

var _ port.HostClient = (*Client)(nil)

func NewClient(cfg *config.Config, logger *zap.Logger) (*Client, error) {
	ws, err := NewWebsocketClient(cfg, logger)
	if err != nil {
		return nil, err
	}
	return &Client{
		RestClient:      NewRestClient(cfg, logger),
		WebsocketClient: ws,
	}, nil
}
