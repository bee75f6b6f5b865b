package api

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/PradhanJi-16/nexus-grid-visor/internal/arbitration"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/auth"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/config"
	"github.com/PradhanJi-16/nexus-grid-visor/internal/infrastructure/logging"
)

// WebSocket message types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"

	// wsSendBufferSize is the per-client outbound message buffer size.
	wsSendBufferSize = 256
)

// WSMessage represents a message sent to/from a WebSocket client.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload is the payload for subscribe/unsubscribe messages.
// JunctionIDs narrows a subscription to those junctions; empty means all.
type WSSubscribePayload struct {
	Channels    []string `json:"channels"`
	JunctionIDs []string `json:"junction_ids,omitempty"`
}

// wsChannels lists the channels a client may subscribe to.
var wsChannels = []string{ChannelControlEvent, ChannelJunctionState}

// junctionFilter is the set of junctions a subscription covers. A nil
// filter covers every junction.
type junctionFilter map[string]struct{}

func newJunctionFilter(ids []string) junctionFilter {
	if len(ids) == 0 {
		return nil
	}
	f := make(junctionFilter, len(ids))
	for _, id := range ids {
		f[id] = struct{}{}
	}
	return f
}

func (f junctionFilter) matches(junctionID string) bool {
	if f == nil {
		return true
	}
	_, ok := f[junctionID]
	return ok
}

// Hub fans engine output out to WebSocket clients.
type Hub struct {
	cfg       config.WebSocketConfig
	logger    *logging.Logger
	snapshots func() []arbitration.Snapshot

	mu      sync.RWMutex
	clients map[*WSClient]struct{}

	dropped atomic.Uint64
}

// WSClient is one connected dashboard or console.
type WSClient struct {
	hub     *Hub
	conn    *websocket.Conn
	send    chan []byte
	subject string
	role    auth.Role

	mu            sync.RWMutex
	subscriptions map[string]junctionFilter
}

// upgrader configures the WebSocket upgrader.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

// NewHub creates a new WebSocket hub.
func NewHub(cfg config.WebSocketConfig, logger *logging.Logger) *Hub {
	return &Hub{
		cfg:     cfg,
		logger:  logger,
		clients: make(map[*WSClient]struct{}),
	}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()
	h.closeAll()
}

// Register adds a client to the hub.
func (h *Hub) Register(client *WSClient) {
	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()
	h.logger.Debug("websocket client connected",
		"subject", client.subject,
		"role", client.role,
		"clients", h.ClientCount(),
	)
}

// Unregister removes a client from the hub. Only the caller that removes
// the client closes its send channel.
func (h *Hub) Unregister(client *WSClient) {
	h.mu.Lock()
	_, existed := h.clients[client]
	delete(h.clients, client)
	h.mu.Unlock()

	if existed {
		close(client.send)
	}
	h.logger.Debug("websocket client disconnected", "subject", client.subject, "clients", h.ClientCount())
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns how many messages were skipped because a client's
// buffer was full.
func (h *Hub) Dropped() uint64 { return h.dropped.Load() }

// clientList copies the client set so sends happen without the hub lock.
func (h *Hub) clientList() []*WSClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients := make([]*WSClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	return clients
}

// Broadcast sends payload to every client subscribed to channel,
// ignoring junction filters.
func (h *Hub) Broadcast(channel string, payload any) {
	data, ok := h.encode(channel, payload)
	if !ok {
		return
	}
	for _, c := range h.clientList() {
		if _, subscribed := c.filter(channel); subscribed {
			h.deliver(c, data)
		}
	}
}

// PublishEvent sends an engine event to control.event subscribers whose
// filter covers the event's junction.
func (h *Hub) PublishEvent(ev arbitration.Event) {
	var data []byte
	for _, c := range h.clientList() {
		f, subscribed := c.filter(ChannelControlEvent)
		if !subscribed || !f.matches(ev.JunctionID) {
			continue
		}
		if data == nil {
			var ok bool
			if data, ok = h.encode(ChannelControlEvent, ev); !ok {
				return
			}
		}
		h.deliver(c, data)
	}
}

// PublishSnapshots sends each junction.state subscriber the snapshots its
// filter covers. Unfiltered clients share one encoding.
func (h *Hub) PublishSnapshots(snapshots []arbitration.Snapshot) {
	var all []byte
	for _, c := range h.clientList() {
		f, subscribed := c.filter(ChannelJunctionState)
		if !subscribed {
			continue
		}
		if f != nil {
			if data, ok := h.encode(ChannelJunctionState, filterSnapshots(snapshots, f)); ok {
				h.deliver(c, data)
			}
			continue
		}
		if all == nil {
			var ok bool
			if all, ok = h.encode(ChannelJunctionState, snapshots); !ok {
				return
			}
		}
		h.deliver(c, all)
	}
}

func filterSnapshots(snapshots []arbitration.Snapshot, f junctionFilter) []arbitration.Snapshot {
	out := make([]arbitration.Snapshot, 0, len(f))
	for _, s := range snapshots {
		if f.matches(s.JunctionID) {
			out = append(out, s)
		}
	}
	return out
}

func (h *Hub) encode(channel string, payload any) ([]byte, bool) {
	data, err := json.Marshal(WSMessage{
		Type:      WSTypeEvent,
		EventType: channel,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		h.logger.Error("failed to marshal websocket message", "channel", channel, "error", err)
		return nil, false
	}
	return data, true
}

func (h *Hub) deliver(c *WSClient, data []byte) {
	if !c.trySend(data) {
		if h.dropped.Add(1)%100 == 1 {
			h.logger.Warn("websocket client too slow, dropping messages", "subject", c.subject, "dropped_total", h.dropped.Load())
		}
	}
}

// closeAll disconnects all clients and closes their send channels so
// writePump goroutines exit.
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.send)
		if client.conn != nil {
			client.conn.Close()
		}
		delete(h.clients, client)
	}
}

// handleWebSocket upgrades the HTTP connection to a WebSocket connection.
// With auth enabled a ticket query parameter (from POST /auth/ws-ticket)
// is required.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	entry := ticketEntry{subject: anonymousSubject, role: auth.RoleViewer}
	if s.secCfg.Auth.Enabled {
		ticket := r.URL.Query().Get("ticket")
		if ticket == "" {
			writeUnauthorized(w, "ticket query parameter is required")
			return
		}
		var ok bool
		if entry, ok = s.tickets.redeem(ticket); !ok {
			writeUnauthorized(w, "invalid or expired ticket")
			return
		}
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	client := &WSClient{
		hub:           s.hub,
		conn:          conn,
		send:          make(chan []byte, wsSendBufferSize),
		subject:       entry.subject,
		role:          entry.role,
		subscriptions: make(map[string]junctionFilter),
	}
	s.hub.Register(client)

	go client.writePump(s.wsCfg)
	go client.readPump(s.wsCfg)
}

// readPump reads client messages until the connection fails.
func (c *WSClient) readPump(cfg config.WebSocketConfig) {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(int64(cfg.MaxMessageSize))
	deadline := time.Duration(cfg.PingInterval+cfg.PongTimeout) * time.Second
	//nolint:errcheck // Best-effort deadline on connection setup
	c.conn.SetReadDeadline(time.Now().Add(deadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(deadline))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Warn("websocket read error", "subject", c.subject, "error", err)
			}
			return
		}
		// Any client message counts as liveness.
		//nolint:errcheck // Best-effort deadline reset
		c.conn.SetReadDeadline(time.Now().Add(deadline))
		c.handleMessage(message)
	}
}

// writePump drains the send channel and pings on the configured interval.
func (c *WSClient) writePump(cfg config.WebSocketConfig) {
	ticker := time.NewTicker(time.Duration(cfg.PingInterval) * time.Second)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	writeWait := time.Duration(cfg.PongTimeout) * time.Second
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				//nolint:errcheck // Best-effort close message
				c.conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			//nolint:errcheck // Best-effort deadline; write error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // Best-effort deadline; ping error caught below
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes an incoming WebSocket message.
func (c *WSClient) handleMessage(data []byte) {
	var msg struct {
		Type    string             `json:"type"`
		ID      string             `json:"id"`
		Payload WSSubscribePayload `json:"payload"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		c.sendError("", "invalid JSON message")
		return
	}

	switch msg.Type {
	case WSTypeSubscribe:
		c.subscribe(msg.ID, msg.Payload)
	case WSTypeUnsubscribe:
		c.unsubscribe(msg.ID, msg.Payload)
	case WSTypePing:
		c.sendResponse(msg.ID, WSTypePong, nil)
	default:
		c.sendError(msg.ID, "unknown message type: "+msg.Type)
	}
}

// subscribe replaces the filter of each named channel. A junction.state
// subscriber is sent the current snapshots straight away.
func (c *WSClient) subscribe(id string, sub WSSubscribePayload) {
	if len(sub.Channels) == 0 {
		c.sendError(id, "channels are required")
		return
	}
	for _, ch := range sub.Channels {
		if !slices.Contains(wsChannels, ch) {
			c.sendError(id, "unknown channel: "+ch)
			return
		}
	}

	f := newJunctionFilter(sub.JunctionIDs)
	c.mu.Lock()
	for _, ch := range sub.Channels {
		c.subscriptions[ch] = f
	}
	c.mu.Unlock()

	c.hub.logger.Info("websocket client subscribed",
		"subject", c.subject,
		"channels", sub.Channels,
		"junction_ids", sub.JunctionIDs,
	)
	c.sendResponse(id, WSTypeResponse, map[string]any{
		"subscribed":   sub.Channels,
		"junction_ids": sub.JunctionIDs,
	})

	if slices.Contains(sub.Channels, ChannelJunctionState) && c.hub.snapshots != nil {
		snapshots := c.hub.snapshots()
		if f != nil {
			snapshots = filterSnapshots(snapshots, f)
		}
		if data, ok := c.hub.encode(ChannelJunctionState, snapshots); ok {
			c.hub.deliver(c, data)
		}
	}
}

// unsubscribe drops the named channels.
func (c *WSClient) unsubscribe(id string, sub WSSubscribePayload) {
	c.mu.Lock()
	for _, ch := range sub.Channels {
		delete(c.subscriptions, ch)
	}
	c.mu.Unlock()

	c.sendResponse(id, WSTypeResponse, map[string]any{
		"unsubscribed": sub.Channels,
	})
}

// filter returns the client's filter for channel and whether it is
// subscribed at all.
func (c *WSClient) filter(channel string) (junctionFilter, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.subscriptions[channel]
	return f, ok
}

// trySend queues data without blocking. It reports false when the
// buffer is full or the client has already disconnected.
func (c *WSClient) trySend(data []byte) (sent bool) {
	defer func() {
		if recover() != nil {
			sent = false
		}
	}()

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// sendResponse sends a reply to the client.
func (c *WSClient) sendResponse(id, msgType string, payload any) {
	data, err := json.Marshal(WSMessage{
		Type:      msgType,
		ID:        id,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Payload:   payload,
	})
	if err != nil {
		return
	}
	c.trySend(data)
}

// sendError sends an error message to the client.
func (c *WSClient) sendError(id, message string) {
	c.sendResponse(id, WSTypeError, map[string]string{"message": message})
}
