package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/oncoguide-server/internal/domain"
)

const (
	feedWriteWait  = 10 * time.Second
	feedPingPeriod = 30 * time.Second
	feedBuffer     = 64
)

// FeedEvent is the wire format pushed to feed subscribers. The full result
// is included so dashboards can render without a follow-up fetch.
type FeedEvent struct {
	Type      string                     `json:"type"`
	Timestamp time.Time                  `json:"timestamp"`
	Result    *domain.ConsultationResult `json:"result"`
}

// Feed broadcasts completed consultations to websocket subscribers.
type Feed struct {
	logger   *logrus.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[*feedClient]struct{}

	events chan *FeedEvent
}

type feedClient struct {
	conn *websocket.Conn
	send chan *FeedEvent
}

// NewFeed creates a feed hub. Run must be started before events flow.
func NewFeed(logger *logrus.Logger) *Feed {
	return &Feed{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*feedClient]struct{}),
		events:  make(chan *FeedEvent, feedBuffer),
	}
}

// Publish queues a completed consultation for broadcast. It never blocks
// the request path; if the hub is saturated the event is dropped.
func (f *Feed) Publish(result *domain.ConsultationResult) {
	event := &FeedEvent{
		Type:      "consultation.completed",
		Timestamp: time.Now().UTC(),
		Result:    result,
	}
	select {
	case f.events <- event:
	default:
		f.logger.Warn("Feed buffer full, dropping event")
	}
}

// Run pumps events to subscribers until the context is cancelled.
func (f *Feed) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			f.closeAll()
			return
		case event := <-f.events:
			f.broadcast(event)
		}
	}
}

// Serve upgrades the request to a websocket and subscribes it to the feed.
func (f *Feed) Serve(c *gin.Context) {
	conn, err := f.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		f.logger.WithError(err).Warn("Feed upgrade failed")
		return
	}

	client := &feedClient{
		conn: conn,
		send: make(chan *FeedEvent, feedBuffer),
	}

	f.mu.Lock()
	f.clients[client] = struct{}{}
	subscribers := len(f.clients)
	f.mu.Unlock()

	f.logger.WithField("subscribers", subscribers).Debug("Feed subscriber connected")

	go f.writePump(client)
	go f.readPump(client)
}

// Subscribers returns the current subscriber count.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *Feed) broadcast(event *FeedEvent) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	for client := range f.clients {
		select {
		case client.send <- event:
		default:
			// Slow subscriber; it will be dropped by its own write pump
			// when the connection is closed.
		}
	}
}

func (f *Feed) remove(client *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[client]; ok {
		delete(f.clients, client)
		close(client.send)
	}
	f.mu.Unlock()
	client.conn.Close()
}

func (f *Feed) closeAll() {
	f.mu.Lock()
	for client := range f.clients {
		delete(f.clients, client)
		close(client.send)
		client.conn.Close()
	}
	f.mu.Unlock()
}

// readPump consumes and discards inbound messages so the connection's
// control frames keep being processed, and tears the client down on error.
func (f *Feed) readPump(client *feedClient) {
	defer f.remove(client)
	client.conn.SetReadLimit(512)
	for {
		if _, _, err := client.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(client *feedClient) {
	ticker := time.NewTicker(feedPingPeriod)
	defer func() {
		ticker.Stop()
		f.remove(client)
	}()

	for {
		select {
		case event, ok := <-client.send:
			if !ok {
				client.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(feedWriteWait))
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
