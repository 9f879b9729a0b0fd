package notifications

import (
	"context"
	"errors"
	"log"
	"strconv"
	"sync"

	"commune/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// Max connections per user
	maxConnsPerUser = 12
	// Max total connections
	maxTotalConns = 10000
)

// ChatHub keeps the room -> clients registry for chat fan-out. One hub
// per process; cross-process delivery goes through the Notifier.
type ChatHub struct {
	mu sync.RWMutex

	// chatID -> clients subscribed to that room
	rooms map[uint]map[*Client]struct{}

	// client -> chatIDs it is subscribed to, for cleanup on disconnect
	clientRooms map[*Client]map[uint]struct{}

	// userID -> that user's clients (multi-device)
	userConns map[uint]map[*Client]struct{}

	totalConns int
	presence   *Presence
}

// Name returns a human-readable identifier for this hub.
func (h *ChatHub) Name() string { return "chat hub" }

// NewChatHub creates a hub. presence may be nil when Redis is absent.
func NewChatHub(presence *Presence) *ChatHub {
	return &ChatHub{
		rooms:       make(map[uint]map[*Client]struct{}),
		clientRooms: make(map[*Client]map[uint]struct{}),
		userConns:   make(map[uint]map[*Client]struct{}),
		presence:    presence,
	}
}

// Register creates a client for the connection. Fails when per-user or
// process-wide connection limits are exceeded.
func (h *ChatHub) Register(userID uint, username string, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.totalConns >= maxTotalConns {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	clients, ok := h.userConns[userID]
	if !ok {
		clients = make(map[*Client]struct{})
		h.userConns[userID] = clients
	}
	if len(clients) >= maxConnsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID, username)
	clients[client] = struct{}{}
	h.totalConns++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	if h.presence != nil {
		h.presence.Register(context.Background(), userID)
	}

	return client, nil
}

// UnregisterClient removes the connection and all its room subscriptions.
func (h *ChatHub) UnregisterClient(client *Client) {
	h.mu.Lock()

	clients, ok := h.userConns[client.UserID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[client]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, client)
	h.totalConns--
	if len(clients) == 0 {
		delete(h.userConns, client.UserID)
	}

	for chatID := range h.clientRooms[client] {
		h.dropFromRoomLocked(chatID, client)
	}
	delete(h.clientRooms, client)

	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Dec()
	if h.presence != nil {
		h.presence.Unregister(context.Background(), client.UserID)
	}
}

func (h *ChatHub) dropFromRoomLocked(chatID uint, client *Client) {
	room, ok := h.rooms[chatID]
	if !ok {
		return
	}
	if _, exists := room[client]; !exists {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, chatID)
	}
	observability.WebSocketRoomConnections.
		WithLabelValues(strconv.FormatUint(uint64(chatID), 10)).Dec()
}

// JoinRoom subscribes the connection to a chat room. Membership checks
// belong to the caller; the hub only tracks connections.
func (h *ChatHub) JoinRoom(chatID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[chatID] == nil {
		h.rooms[chatID] = make(map[*Client]struct{})
	}
	if _, exists := h.rooms[chatID][client]; exists {
		return
	}
	h.rooms[chatID][client] = struct{}{}

	if h.clientRooms[client] == nil {
		h.clientRooms[client] = make(map[uint]struct{})
	}
	h.clientRooms[client][chatID] = struct{}{}

	observability.WebSocketRoomConnections.
		WithLabelValues(strconv.FormatUint(uint64(chatID), 10)).Inc()
}

// LeaveRoom unsubscribes the connection from a chat room.
func (h *ChatHub) LeaveRoom(chatID uint, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.dropFromRoomLocked(chatID, client)
	if rooms, ok := h.clientRooms[client]; ok {
		delete(rooms, chatID)
	}
}

// BroadcastToRoom delivers the envelope to every connection in the room
// except the one whose id matches excludeConnID.
func (h *ChatHub) BroadcastToRoom(chatID uint, envelope []byte, excludeConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room, ok := h.rooms[chatID]
	if !ok {
		return
	}
	for client := range room {
		if excludeConnID != "" && client.ID == excludeConnID {
			continue
		}
		client.TrySend(envelope)
	}
}

// BroadcastToUser delivers the payload to every connection of one user.
func (h *ChatHub) BroadcastToUser(userID uint, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for client := range h.userConns[userID] {
		client.TrySend(payload)
	}
}

// BroadcastAll delivers the payload to every connection.
func (h *ChatHub) BroadcastAll(payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, clients := range h.userConns {
		for client := range clients {
			client.TrySend(payload)
		}
	}
}

// RoomSize returns the number of connections subscribed to a room.
func (h *ChatHub) RoomSize(chatID uint) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[chatID])
}

// IsUserOnline reports whether the user has at least one connection on
// this process, or according to shared presence when available.
func (h *ChatHub) IsUserOnline(userID uint) bool {
	if h.presence != nil {
		return h.presence.IsOnline(context.Background(), userID)
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	clients, ok := h.userConns[userID]
	return ok && len(clients) > 0
}

// OnlineUserIDs lists users with at least one live connection.
func (h *ChatHub) OnlineUserIDs() []uint {
	if h.presence != nil {
		return h.presence.OnlineUserIDs(context.Background())
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]uint, 0, len(h.userConns))
	for userID := range h.userConns {
		ids = append(ids, userID)
	}
	return ids
}

// StartWiring subscribes the hub to the Redis channels it fans out from.
func (h *ChatHub) StartWiring(ctx context.Context, n *Notifier) error {
	if err := n.StartRoomSubscriber(ctx, func(chatID uint, origin string, envelope []byte) {
		h.BroadcastToRoom(chatID, envelope, origin)
	}); err != nil {
		return err
	}
	return n.StartUserSubscriber(ctx, func(userID uint, payload string) {
		if userID == 0 {
			h.BroadcastAll([]byte(payload))
			return
		}
		h.BroadcastToUser(userID, []byte(payload))
	})
}

// Shutdown gracefully closes all websocket connections.
func (h *ChatHub) Shutdown(_ context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.presence != nil {
		h.presence.Stop()
	}

	for userID, clients := range h.userConns {
		for client := range clients {
			if client.Conn == nil {
				continue
			}
			if err := client.Conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")); err != nil {
				log.Printf("failed to write close message for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}

	h.rooms = make(map[uint]map[*Client]struct{})
	h.clientRooms = make(map[*Client]map[uint]struct{})
	h.userConns = make(map[uint]map[*Client]struct{})
	h.totalConns = 0

	return nil
}
