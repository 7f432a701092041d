package ws

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const writeTimeout = 5 * time.Second

// Hub fans lifecycle events out to websocket subscribers. Connections are
// keyed by room id; subscribing to "all" receives every room's events.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]map[*websocket.Conn]struct{}
}

func NewHub() *Hub {
	return &Hub{conns: make(map[string]map[*websocket.Conn]struct{})}
}

// Handler accepts websocket subscriptions on /ws/rooms/{room}.
func (h *Hub) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/ws/rooms/")
		room := strings.Trim(path, "/")
		if room == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if room == "all" {
			room = ""
		}
		conn, err := websocket.Accept(w, r, nil)
		if err != nil {
			return
		}

		h.add(room, conn)
		defer h.remove(room, conn)

		ctx := r.Context()
		for {
			var v any
			if err := wsjson.Read(ctx, conn, &v); err != nil {
				return
			}
		}
	}
}

type connEntry struct {
	conn *websocket.Conn
	room string
}

// Broadcast delivers event to every subscriber of room and to all-rooms
// subscribers. A failed write closes and drops that connection.
func (h *Hub) Broadcast(room string, event any) {
	entries := h.snapshot(room)
	if len(entries) == 0 {
		return
	}
	for _, e := range entries {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := wsjson.Write(ctx, e.conn, event)
		cancel()
		if err != nil {
			go func(e connEntry) {
				e.conn.Close(websocket.StatusGoingAway, "write error")
				h.remove(e.room, e.conn)
			}(e)
		}
	}
}

func (h *Hub) snapshot(room string) []connEntry {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var out []connEntry
	for conn := range h.conns[room] {
		out = append(out, connEntry{conn: conn, room: room})
	}
	if room != "" {
		for conn := range h.conns[""] {
			out = append(out, connEntry{conn: conn, room: ""})
		}
	}
	return out
}

func (h *Hub) add(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	perRoom, ok := h.conns[room]
	if !ok {
		perRoom = make(map[*websocket.Conn]struct{})
		h.conns[room] = perRoom
	}
	perRoom[conn] = struct{}{}
}

func (h *Hub) remove(room string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	perRoom, ok := h.conns[room]
	if !ok {
		return
	}
	delete(perRoom, conn)
	if len(perRoom) == 0 {
		delete(h.conns, room)
	}
}
