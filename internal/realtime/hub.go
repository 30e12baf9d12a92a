package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// PingInterval and PongWait are used for heartbeat.
	PingInterval = 30
	PongWait     = 60
)

// StatusEvent is pushed to watchers whenever a recording changes state.
type StatusEvent struct {
	RecordingID uuid.UUID `json:"recording_id"`
	Status      string    `json:"status"`
}

// Hub maintains recording_id -> set of connections and broadcasts status
// changes. Uses Redis pub/sub for horizontal scaling: local broadcast +
// publish to Redis.
type Hub struct {
	// recordingID -> map[clientID]*Client
	rooms    map[uuid.UUID]map[string]*Client
	subs     map[uuid.UUID]func() // cancel Redis subscription per recording
	mu       sync.RWMutex
	logger   *zap.Logger
	redis    RedisPublisher
	redisSub RedisSubscriber
}

// RedisPublisher publishes status events to Redis for cross-instance broadcast.
type RedisPublisher interface {
	PublishRecordingEvent(recordingID uuid.UUID, event string, payload []byte) error
}

// RedisSubscriber subscribes to a recording's channel and invokes handler for
// incoming events.
type RedisSubscriber interface {
	SubscribeRecording(recordingID uuid.UUID, handler func(event string, payload []byte)) (cancel func(), err error)
}

// NewHub creates a new WebSocket hub. redisPub and redisSub may be nil for a
// single-instance deployment.
func NewHub(logger *zap.Logger, redisPub RedisPublisher, redisSub RedisSubscriber) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		rooms:    make(map[uuid.UUID]map[string]*Client),
		subs:     make(map[uuid.UUID]func()),
		logger:   logger,
		redis:    redisPub,
		redisSub: redisSub,
	}
}

// Register adds a client to a recording room. Starts the Redis subscription
// for this recording when the first client arrives.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	if h.rooms[c.RecordingID] == nil {
		h.rooms[c.RecordingID] = make(map[string]*Client)
		if h.redisSub != nil {
			cancel, err := h.redisSub.SubscribeRecording(c.RecordingID, func(event string, payload []byte) {
				h.broadcastLocal(c.RecordingID, event, json.RawMessage(payload))
			})
			if err == nil {
				h.subs[c.RecordingID] = cancel
			}
		}
	}
	h.rooms[c.RecordingID][c.ID] = c
	h.mu.Unlock()
	h.logger.Debug("client watching recording",
		zap.String("client_id", c.ID), zap.String("recording_id", c.RecordingID.String()))
}

// Unregister removes a client. Cancels the Redis subscription when the last
// watcher leaves.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if m, ok := h.rooms[c.RecordingID]; ok {
		delete(m, c.ID)
		if len(m) == 0 {
			delete(h.rooms, c.RecordingID)
			if cancel, ok := h.subs[c.RecordingID]; ok {
				cancel()
				delete(h.subs, c.RecordingID)
			}
		}
	}
	h.mu.Unlock()
	h.logger.Debug("client stopped watching recording",
		zap.String("client_id", c.ID), zap.String("recording_id", c.RecordingID.String()))
}

// broadcastLocal sends a message to all local watchers of a recording.
func (h *Hub) broadcastLocal(recordingID uuid.UUID, event string, payload interface{}) {
	var data []byte
	switch v := payload.(type) {
	case []byte:
		data = v
	case json.RawMessage:
		data = v
	default:
		data, _ = json.Marshal(payload)
	}
	msg := WSMessage{Event: event, Data: data}

	h.mu.RLock()
	clients := h.rooms[recordingID]
	h.mu.RUnlock()

	if clients == nil {
		return
	}
	for _, c := range clients {
		select {
		case c.send <- msg:
		default:
			// buffer full, skip
		}
	}
}

// BroadcastStatus pushes a status change to local watchers and publishes it to
// Redis for other instances.
func (h *Hub) BroadcastStatus(recordingID uuid.UUID, status string) {
	payload := StatusEvent{RecordingID: recordingID, Status: status}
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	h.broadcastLocal(recordingID, "status_update", json.RawMessage(data))
	if h.redis != nil {
		_ = h.redis.PublishRecordingEvent(recordingID, "status_update", data)
	}
}

// WatcherCount returns the number of connected watchers for a recording.
func (h *Hub) WatcherCount(recordingID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[recordingID])
}
