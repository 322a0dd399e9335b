package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	eventWriteWait  = 10 * time.Second
	eventPongWait   = 60 * time.Second
	eventPingPeriod = (eventPongWait * 9) / 10
)

// eventHub fans update events out to connected websocket clients. Clients
// only listen; anything they send is discarded.
type eventHub struct {
	log        *slog.Logger
	clients    map[*eventClient]bool
	broadcast  chan sitecontent.Event
	register   chan *eventClient
	unregister chan *eventClient
	done       chan struct{}
	connected  atomic.Int64
}

type eventClient struct {
	hub  *eventHub
	conn *websocket.Conn
	send chan []byte
}

func newEventHub(log *slog.Logger) *eventHub {
	return &eventHub{
		log:        log,
		clients:    make(map[*eventClient]bool),
		broadcast:  make(chan sitecontent.Event, eventClientBuffer),
		register:   make(chan *eventClient),
		unregister: make(chan *eventClient),
		done:       make(chan struct{}),
	}
}

func (h *eventHub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for client := range h.clients {
				h.drop(client)
			}
			return
		case client := <-h.register:
			h.clients[client] = true
			h.connected.Add(1)
		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.drop(client)
			}
		case event := <-h.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Error("failed to encode event", "type", event.Type, "err", err)
				continue
			}
			for client := range h.clients {
				select {
				case client.send <- payload:
				default:
					h.log.Warn("event client is lagging, dropping it")
					h.drop(client)
				}
			}
		}
	}
}

func (h *eventHub) drop(client *eventClient) {
	delete(h.clients, client)
	close(client.send)
	h.connected.Add(-1)
}

// Connected reports how many listeners are registered.
func (h *eventHub) Connected() int64 {
	return h.connected.Load()
}

// Publish never blocks a request. Events are dropped when the hub is not
// keeping up.
func (h *eventHub) Publish(event sitecontent.Event) {
	if h == nil {
		return
	}
	select {
	case h.broadcast <- event:
	default:
		h.log.Warn("event buffer full, dropping event", "type", event.Type)
	}
}

func (a *App) eventsHandler(c *gin.Context) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     a.checkEventsOrigin,
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		a.log.Warn("events upgrade failed", "err", err)
		return
	}

	client := &eventClient{hub: a.events, conn: conn, send: make(chan []byte, eventClientBuffer)}
	select {
	case a.events.register <- client:
	case <-a.events.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

func (a *App) checkEventsOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if parsed, err := url.Parse(origin); err == nil && parsed.Host == r.Host {
		return true
	}
	return a.isAllowedCORSOrigin(origin)
}

func (c *eventClient) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(eventPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(eventPongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.log.Warn("event client closed unexpectedly", "err", err)
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(eventPingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(eventWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
