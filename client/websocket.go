// WebSocket support for real-time reservation event subscriptions.
package client

import (
	"context"
	"fmt"
	"net/url"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// Event is a reservation lifecycle notification delivered over the room feed.
type Event struct {
	ID          string      `json:"id"`
	Type        string      `json:"type"`
	RoomID      string      `json:"room_id"`
	Reservation Reservation `json:"reservation"`
	CreatedAt   time.Time   `json:"created_at"`
}

// EventHandler is called for each event received via WebSocket
type EventHandler func(event Event)

// WSClient manages a WebSocket connection for a room's event feed
type WSClient struct {
	baseURL   string
	apiKey    string
	room      string
	conn      *websocket.Conn
	handlers  []EventHandler
	mu        sync.RWMutex
	done      chan struct{}
	reconnect bool
}

// WSOption configures the WebSocket client
type WSOption func(*WSClient)

// WithWSAPIKey sets the API key for WebSocket authentication
func WithWSAPIKey(key string) WSOption {
	return func(c *WSClient) {
		c.apiKey = key
	}
}

// WithWSRoom subscribes to a single room's events. The default subscribes
// to every room.
func WithWSRoom(room string) WSOption {
	return func(c *WSClient) {
		c.room = room
	}
}

// WithAutoReconnect enables automatic reconnection on disconnect
func WithAutoReconnect(enabled bool) WSOption {
	return func(c *WSClient) {
		c.reconnect = enabled
	}
}

// NewWSClient creates a new WebSocket client for real-time events
func NewWSClient(baseURL string, opts ...WSOption) *WSClient {
	c := &WSClient{
		baseURL:   baseURL,
		handlers:  make([]EventHandler, 0),
		done:      make(chan struct{}),
		reconnect: true,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// OnEvent registers an event handler
func (c *WSClient) OnEvent(handler EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, handler)
}

// Connect establishes the WebSocket connection
func (c *WSClient) Connect(ctx context.Context) error {
	wsURL, err := c.buildWSURL()
	if err != nil {
		return fmt.Errorf("build websocket url: %w", err)
	}

	opts := &websocket.DialOptions{}
	if c.apiKey != "" {
		opts.HTTPHeader = make(map[string][]string)
		opts.HTTPHeader["Authorization"] = []string{"Bearer " + c.apiKey}
	}

	conn, _, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		return fmt.Errorf("websocket dial: %w", err)
	}
	c.conn = conn

	go c.readLoop(ctx)

	return nil
}

// Close closes the WebSocket connection
func (c *WSClient) Close() error {
	close(c.done)
	if c.conn != nil {
		return c.conn.Close(websocket.StatusNormalClosure, "client closing")
	}
	return nil
}

func (c *WSClient) buildWSURL() (string, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}

	room := c.room
	if room == "" {
		room = "all"
	}
	u.Path = "/ws/rooms/" + url.PathEscape(room)

	return u.String(), nil
}

func (c *WSClient) readLoop(ctx context.Context) {
	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		default:
		}

		var event Event
		err := wsjson.Read(ctx, c.conn, &event)
		if err != nil {
			if c.reconnect {
				select {
				case <-c.done:
					return
				default:
					c.handleReconnect(ctx)
					continue
				}
			}
			return
		}

		c.dispatchEvent(event)
	}
}

func (c *WSClient) dispatchEvent(event Event) {
	c.mu.RLock()
	handlers := make([]EventHandler, len(c.handlers))
	copy(handlers, c.handlers)
	c.mu.RUnlock()

	for _, h := range handlers {
		h(event)
	}
}

func (c *WSClient) handleReconnect(ctx context.Context) {
	backoff := 1 * time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-c.done:
			return
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}

		err := c.Connect(ctx)
		if err == nil {
			return
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// EventFilter narrows a handler to matching events
type EventFilter struct {
	Types         []string // Event types to react to (e.g. "reservation.created")
	RoomID        string   // Filter by room
	ReservationID string   // Filter by specific reservation
}

// FilteredEventHandler wraps an EventHandler with filtering logic
func FilteredEventHandler(filter EventFilter, handler EventHandler) EventHandler {
	return func(event Event) {
		if len(filter.Types) > 0 {
			matched := false
			for _, t := range filter.Types {
				if event.Type == t {
					matched = true
					break
				}
			}
			if !matched {
				return
			}
		}

		if filter.RoomID != "" && event.RoomID != filter.RoomID {
			return
		}

		if filter.ReservationID != "" && event.Reservation.ID != filter.ReservationID {
			return
		}

		handler(event)
	}
}

// EventTypes defines the reservation event type constants
var EventTypes = struct {
	Created   string
	Queued    string
	Updated   string
	Moved     string
	Cancelled string
	Started   string
	Completed string
	Expired   string
}{
	Created:   "reservation.created",
	Queued:    "reservation.queued",
	Updated:   "reservation.updated",
	Moved:     "reservation.moved",
	Cancelled: "reservation.cancelled",
	Started:   "reservation.started",
	Completed: "reservation.completed",
	Expired:   "reservation.expired",
}
