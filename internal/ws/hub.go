package ws

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"realtime-service/internal/metrics"
)

// Hub tracks live connections in two independent room namespaces: task
// rooms (clients watching a task's comment stream) and user rooms
// (clients receiving their own notifications).
type Hub struct {
	taskRooms map[uuid.UUID]map[*Client]bool
	userRooms map[uuid.UUID]map[*Client]bool
	mu        sync.RWMutex

	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewHub(logger *zap.Logger, m *metrics.Metrics) *Hub {
	return &Hub{
		taskRooms: make(map[uuid.UUID]map[*Client]bool),
		userRooms: make(map[uuid.UUID]map[*Client]bool),
		logger:    logger,
		metrics:   m,
	}
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	rooms := h.rooms(client.roomKind)
	if rooms[client.roomID] == nil {
		rooms[client.roomID] = make(map[*Client]bool)
	}
	rooms[client.roomID][client] = true
	h.mu.Unlock()

	if h.metrics != nil {
		h.metrics.WSConnectionsTotal.Inc()
		h.metrics.WSActiveConnections.Inc()
	}

	h.logger.Info("Client registered",
		zap.String("room_kind", string(client.roomKind)),
		zap.String("room_id", client.roomID.String()))
}

func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	rooms := h.rooms(client.roomKind)
	if members, ok := rooms[client.roomID]; ok {
		if _, exists := members[client]; exists {
			delete(members, client)
			close(client.send)
			if len(members) == 0 {
				delete(rooms, client.roomID)
			}
			if h.metrics != nil {
				h.metrics.WSActiveConnections.Dec()
			}
		}
	}
	h.mu.Unlock()

	h.logger.Info("Client unregistered",
		zap.String("room_kind", string(client.roomKind)),
		zap.String("room_id", client.roomID.String()))
}

// rooms must be called with h.mu held.
func (h *Hub) rooms(kind roomKind) map[uuid.UUID]map[*Client]bool {
	if kind == roomKindUser {
		return h.userRooms
	}
	return h.taskRooms
}

// BroadcastToTask pushes a payload to every client joined to the task's
// room. Pushing to an empty room is a silent no-op.
func (h *Hub) BroadcastToTask(taskID uuid.UUID, payload []byte) {
	h.push(roomKindTask, taskID, payload)
}

// PushToUser pushes a payload to every connection of a user. Offline
// users are a silent no-op; durable rows remain the system of record.
func (h *Hub) PushToUser(userID uuid.UUID, payload []byte) {
	h.push(roomKindUser, userID, payload)
}

func (h *Hub) push(kind roomKind, roomID uuid.UUID, payload []byte) {
	// Sends happen under the read lock and closes under the write lock
	// (unregister), so a send can never hit a closed channel. The sends are
	// non-blocking, so holding the lock across them is cheap.
	h.mu.RLock()
	var slow []*Client
	delivered := 0
	for client := range h.rooms(kind)[roomID] {
		select {
		case client.send <- payload:
			delivered++
		default:
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	// Slow clients: drop the connection rather than block the relay.
	for _, client := range slow {
		h.logger.Warn("Dropping slow client",
			zap.String("room_kind", string(kind)),
			zap.String("room_id", roomID.String()))
		h.unregister(client)
	}

	if h.metrics != nil && delivered > 0 {
		h.metrics.WSEventsPushed.WithLabelValues(string(kind)).Add(float64(delivered))
	}
}

// TaskRoomSize reports the number of clients joined to a task room.
func (h *Hub) TaskRoomSize(taskID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.taskRooms[taskID])
}
