package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"permguard-lab/pkg/logger"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsIdleTimeout  = 60 * time.Second
	wsPingInterval = wsIdleTimeout / 2
	wsMaxFrame     = 64 << 10
	wsQueueSize    = 256
)

// WebSocketHub pushes report events to connected dashboards. Each peer may
// narrow its feed with a Subscription, either via the min_risk query
// parameter or by sending a Subscription document at any time.
type WebSocketHub struct {
	logger   *logger.Logger
	upgrader websocket.Upgrader
	events   chan *ReportEvent

	mu    sync.RWMutex
	peers map[*wsPeer]struct{}
}

type wsPeer struct {
	conn   *websocket.Conn
	out    chan []byte
	filter atomic.Pointer[Subscription]
}

func NewWebSocketHub(log *logger.Logger) *WebSocketHub {
	return &WebSocketHub{
		logger: log.WithComponent("websocket-hub"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// scanner clients are native apps and send no Origin
			CheckOrigin: func(*http.Request) bool { return true },
		},
		events: make(chan *ReportEvent, wsQueueSize),
		peers:  make(map[*wsPeer]struct{}),
	}
}

// Run delivers queued events until ctx is cancelled, then disconnects every peer.
func (h *WebSocketHub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.disconnectAll()
			return
		case event := <-h.events:
			h.deliver(event)
		}
	}
}

// BroadcastEvent queues event without blocking; it is dropped when the queue is full.
func (h *WebSocketHub) BroadcastEvent(event *ReportEvent) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn().Str("report_id", event.ReportID).Msg("websocket queue full, event dropped")
	}
}

// ClientCount returns the number of connected peers
func (h *WebSocketHub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// ServeWebSocket upgrades the request and starts the peer's read and write loops.
func (h *WebSocketHub) ServeWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	peer := &wsPeer{conn: conn, out: make(chan []byte, wsQueueSize)}
	if level := r.URL.Query().Get("min_risk"); level != "" {
		peer.filter.Store(&Subscription{MinRiskLevel: normalizeLevel(level)})
	}

	h.mu.Lock()
	h.peers[peer] = struct{}{}
	n := len(h.peers)
	h.mu.Unlock()
	h.logger.Debug().Int("clients", n).Msg("websocket client connected")

	go h.writeLoop(peer)
	go h.readLoop(peer)
}

func (h *WebSocketHub) deliver(event *ReportEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("report_id", event.ReportID).Msg("failed to encode event")
		return
	}

	// out channels are only closed under the write lock
	h.mu.RLock()
	defer h.mu.RUnlock()
	for peer := range h.peers {
		if sub := peer.filter.Load(); sub != nil && !sub.Matches(event) {
			continue
		}
		select {
		case peer.out <- data:
		default:
		}
	}
}

func (h *WebSocketHub) drop(peer *wsPeer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.peers[peer]; !ok {
		return
	}
	delete(h.peers, peer)
	close(peer.out)
	h.logger.Debug().Int("clients", len(h.peers)).Msg("websocket client disconnected")
}

func (h *WebSocketHub) disconnectAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for peer := range h.peers {
		delete(h.peers, peer)
		close(peer.out)
	}
}

// readLoop applies subscription updates until the peer goes away.
func (h *WebSocketHub) readLoop(peer *wsPeer) {
	defer func() {
		h.drop(peer)
		peer.conn.Close()
	}()

	peer.conn.SetReadLimit(wsMaxFrame)
	extend := func(string) error { return peer.conn.SetReadDeadline(time.Now().Add(wsIdleTimeout)) }
	extend("")
	peer.conn.SetPongHandler(extend)

	for {
		_, msg, err := peer.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
		sub, err := decodeSubscription(msg)
		if err != nil {
			h.logger.Debug().Err(err).Msg("ignoring subscription update")
			continue
		}
		peer.filter.Store(sub)
	}
}

// writeLoop drains the peer's queue and keeps the connection alive with pings.
func (h *WebSocketHub) writeLoop(peer *wsPeer) {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		peer.conn.Close()
	}()

	for {
		var (
			kind = websocket.PingMessage
			data []byte
		)
		select {
		case msg, ok := <-peer.out:
			if !ok {
				peer.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(wsWriteTimeout))
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ping.C:
		}

		peer.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := peer.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func decodeSubscription(msg []byte) (*Subscription, error) {
	var sub Subscription
	if err := json.Unmarshal(msg, &sub); err != nil {
		return nil, fmt.Errorf("malformed subscription: %w", err)
	}
	sub.MinRiskLevel = normalizeLevel(string(sub.MinRiskLevel))
	return &sub, nil
}
