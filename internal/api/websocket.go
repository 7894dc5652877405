package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/pixelwanderer/server/internal/streaming"
	"github.com/pixelwanderer/server/internal/tile"
)

const (
	wsWriteTimeout  = 10 * time.Second
	wsPongWait      = 60 * time.Second
	wsPingInterval  = 30 * time.Second
	wsSendQueueSize = 16
)

// StreamMessage is the envelope for both directions of the prefetch socket.
type StreamMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// streamError is sent for malformed or rejected client messages.
type streamError struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// poseUpdate is the client payload for "update" messages.
type poseUpdate struct {
	SubscriptionID string          `json:"subscription_id"`
	Center         tile.Coordinate `json:"center"`
}

// StreamHandler upgrades clients onto the tile-prefetch socket. Clients
// subscribe with a world, center tile and radius; the server answers with
// prefetch plans and window deltas as the player scrolls. The socket is
// read-only with respect to world state.
type StreamHandler struct {
	manager      *streaming.Manager
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          *zap.Logger
}

// NewStreamHandler creates the prefetch socket handler.
func NewStreamHandler(manager *streaming.Manager, log *zap.Logger) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				// Same dev origins the CORS middleware accepts.
				switch r.Header.Get("Origin") {
				case "", "http://localhost:3000", "http://localhost:5173",
					"http://127.0.0.1:3000", "http://127.0.0.1:5173":
					return true
				}
				return false
			},
		},
		pingInterval: wsPingInterval,
		log:          log,
	}
}

// streamConn owns one client connection. The connection allows only a single
// concurrent writer, so every outgoing frame, replies and pings alike, goes
// through writePump; the read loop only enqueues.
type streamConn struct {
	conn *websocket.Conn
	send chan []byte
	log  *zap.Logger
}

// ServeHTTP handles GET /ws.
func (h *StreamHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sc := &streamConn{
		conn: conn,
		send: make(chan []byte, wsSendQueueSize),
		log:  h.log,
	}
	go sc.writePump(h.pingInterval)
	h.readLoop(sc)
}

// readLoop consumes client messages until the connection drops. Closing the
// send channel on exit stops writePump, which closes the connection.
func (h *StreamHandler) readLoop(sc *streamConn) {
	defer close(sc.send)

	var subscriptionID string
	defer func() {
		if subscriptionID != "" {
			h.manager.Unsubscribe(subscriptionID)
		}
	}()

	sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	sc.conn.SetPongHandler(func(string) error {
		return sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		var msg StreamMessage
		if err := sc.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("websocket closed unexpectedly", zap.Error(err))
			}
			return
		}
		sc.conn.SetReadDeadline(time.Now().Add(wsPongWait))

		switch msg.Type {
		case "subscribe":
			var req streaming.SubscriptionRequest
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				sc.writeError("InvalidRequest", "Malformed subscribe payload")
				continue
			}
			plan, err := h.manager.Subscribe(req)
			if err != nil {
				sc.writeError("InvalidRequest", err.Error())
				continue
			}
			// One subscription per connection; replacing drops the old one.
			if subscriptionID != "" {
				h.manager.Unsubscribe(subscriptionID)
			}
			subscriptionID = plan.SubscriptionID
			sc.writeJSON("plan", plan)

		case "update":
			var req poseUpdate
			if err := json.Unmarshal(msg.Data, &req); err != nil {
				sc.writeError("InvalidRequest", "Malformed update payload")
				continue
			}
			delta, err := h.manager.UpdatePose(req.SubscriptionID, req.Center)
			if err != nil {
				sc.writeError("InvalidRequest", err.Error())
				continue
			}
			sc.writeJSON("delta", delta)

		case "unsubscribe":
			if subscriptionID != "" {
				h.manager.Unsubscribe(subscriptionID)
				subscriptionID = ""
			}

		default:
			sc.writeError("InvalidRequest", "Unknown message type: "+msg.Type)
		}
	}
}

// writePump is the connection's only writer. It drains the send queue and
// emits keepalive pings until the queue closes or a write fails.
func (sc *streamConn) writePump(pingInterval time.Duration) {
	ping := time.NewTicker(pingInterval)
	defer func() {
		ping.Stop()
		sc.conn.Close()
	}()

	for {
		select {
		case data, ok := <-sc.send:
			sc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if !ok {
				sc.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sc.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				sc.log.Debug("failed to write stream message", zap.Error(err))
				return
			}

		case <-ping.C:
			sc.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := sc.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// enqueue hands a frame to writePump. A client too slow to drain its queue
// loses messages rather than blocking the read loop.
func (sc *streamConn) enqueue(data []byte) {
	select {
	case sc.send <- data:
	default:
		sc.log.Debug("dropping stream message, send queue full")
	}
}

func (sc *streamConn) writeJSON(msgType string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		sc.log.Warn("failed to marshal stream payload", zap.Error(err))
		return
	}
	out, err := json.Marshal(StreamMessage{Type: msgType, Data: data})
	if err != nil {
		sc.log.Warn("failed to marshal stream envelope", zap.Error(err))
		return
	}
	sc.enqueue(out)
}

func (sc *streamConn) writeError(code, message string) {
	out, err := json.Marshal(streamError{Type: "error", Error: code, Message: message})
	if err != nil {
		return
	}
	sc.enqueue(out)
}
