package handlers

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/yourusername/mediashelf/internal/domain"
	"go.uber.org/zap"
)

const (
	clientBuffer = 256
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // the dashboard may be served from another port
	},
}

// Snapshotter hands out the current ledger, sent to each observer when it connects.
// Nothing may be published while fn runs.
type Snapshotter interface {
	Observe(fn func(records []*domain.DownloadRecord))
}

type progressClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ProgressHub pushes ledger mutations to every connected websocket observer.
// Publish never blocks: a client whose buffer is full misses the message.
type ProgressHub struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	clients map[*progressClient]struct{}
	closed  bool
}

// NewProgressHub creates a new progress hub
func NewProgressHub(log *zap.Logger) *ProgressHub {
	return &ProgressHub{
		logger:  log,
		clients: make(map[*progressClient]struct{}),
	}
}

// Publish broadcasts one ledger event
func (h *ProgressHub) Publish(event domain.ProgressEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error("Failed to marshal progress event", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Debug("Dropping progress event for slow observer",
				zap.String("download_id", event.DownloadID),
				zap.String("remote_addr", c.conn.RemoteAddr().String()))
		}
	}
}

// ClientCount returns the number of connected observers
func (h *ProgressHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every observer
func (h *ProgressHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *ProgressHub) queueSnapshot(c *progressClient, records []*domain.DownloadRecord) {
	for _, rec := range records {
		data, err := json.Marshal(domain.ProgressEvent{
			Type:           domain.EventProgress,
			DownloadID:     rec.ID,
			DownloadRecord: rec,
		})
		if err != nil {
			continue
		}
		select {
		case c.send <- data:
		default:
			h.logger.Debug("Snapshot larger than the client buffer", zap.Int("records", len(records)))
			return
		}
	}
}

func (h *ProgressHub) register(c *progressClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *ProgressHub) unregister(c *progressClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Handler upgrades GET /api/v1/ws and streams progress events until the observer goes away
func (h *ProgressHub) Handler(snapshot Snapshotter) gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logger.Error("Failed to upgrade WebSocket", zap.Error(err))
			return
		}
		defer conn.Close()

		client := &progressClient{conn: conn, send: make(chan []byte, clientBuffer)}

		// the snapshot is queued and the client registered in one step, so live events
		// follow the snapshot and none fall in between
		registered := false
		if snapshot != nil {
			snapshot.Observe(func(records []*domain.DownloadRecord) {
				h.queueSnapshot(client, records)
				registered = h.register(client)
			})
		} else {
			registered = h.register(client)
		}
		if !registered {
			return
		}
		defer h.unregister(client)

		h.logger.Info("WebSocket observer connected", zap.String("remote_addr", c.Request.RemoteAddr))

		// Read messages from client (for ping/pong and close)
		done := make(chan struct{})
		go func() {
			defer close(done)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}()

		ticker := time.NewTicker(pingInterval)
		defer ticker.Stop()

		for {
			select {
			case data, ok := <-client.send:
				if !ok {
					_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
					return
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
					h.logger.Debug("Failed to send progress event", zap.Error(err))
					return
				}

			case <-ticker.C:
				_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					return
				}

			case <-done:
				h.logger.Info("WebSocket observer disconnected", zap.String("remote_addr", c.Request.RemoteAddr))
				return
			}
		}
	}
}
