package server

import (
	"context"
	"encoding/json"
	"log"

	"commune/internal/models"
	"commune/internal/notifications"
	"commune/internal/observability"
	"commune/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// wsEnvelope is the wire format for every frame in both directions.
type wsEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

type wsChatRef struct {
	ChatID uint `json:"chat_id"`
}

type wsSendMessage struct {
	ChatID  uint   `json:"chat_id"`
	Content string `json:"content"`
}

// WebSocketChatHandler upgrades the connection and runs the chat
// protocol. Authentication happened in AuthRequired (ticket or bearer).
// @Summary Chat WebSocket
// @Description Full-duplex chat endpoint. Frames are {"event": name, "data": {...}}. Supported client events: join, leave, message, ping.
// @Tags websocket
// @Param ticket query string true "Single-use ticket from /api/ws/ticket"
// @Router /api/ws/chat [get]
func (s *Server) WebSocketChatHandler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		userID, _ := conn.Locals("userID").(uint)
		if userID == 0 {
			_ = conn.Close()
			return
		}

		username := ""
		if user, err := s.userService.GetUser(context.Background(), userID); err == nil {
			username = user.Username
		}

		client, err := s.chatHub.Register(userID, username, conn)
		if err != nil {
			_ = conn.WriteMessage(websocket.TextMessage,
				[]byte(`{"event":"error","data":{"error":"connection limit reached"}}`))
			_ = conn.Close()
			return
		}

		client.IncomingHandler = s.handleChatFrame

		go client.WritePump()
		client.ReadPump()
	})
}

// handleChatFrame dispatches a single inbound frame.
func (s *Server) handleChatFrame(client *notifications.Client, raw []byte) {
	var envelope wsEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		s.sendWSError(client, "Malformed frame")
		return
	}

	observability.WebSocketEventsTotal.WithLabelValues(envelope.Event).Inc()

	switch envelope.Event {
	case "join":
		s.handleWSJoin(client, envelope.Data)
	case "leave":
		s.handleWSLeave(client, envelope.Data)
	case "message":
		s.handleWSMessage(client, envelope.Data)
	case "ping":
		client.TrySend([]byte(`{"event":"pong","data":{}}`))
	default:
		s.sendWSError(client, "Unknown event: "+envelope.Event)
	}
}

func (s *Server) handleWSJoin(client *notifications.Client, data json.RawMessage) {
	var ref wsChatRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ChatID == 0 {
		s.sendWSError(client, "join requires chat_id")
		return
	}

	ctx := context.Background()
	member, err := s.chatService.IsMember(ctx, ref.ChatID, client.UserID)
	if err != nil {
		s.sendWSError(client, "Membership check failed")
		return
	}
	if !member {
		s.sendWSError(client, "You are not a member of this chat")
		return
	}

	s.chatHub.JoinRoom(ref.ChatID, client)
	s.sendWSEvent(client, "joined", fiber.Map{"chat_id": ref.ChatID})
}

func (s *Server) handleWSLeave(client *notifications.Client, data json.RawMessage) {
	var ref wsChatRef
	if err := json.Unmarshal(data, &ref); err != nil || ref.ChatID == 0 {
		s.sendWSError(client, "leave requires chat_id")
		return
	}

	s.chatHub.LeaveRoom(ref.ChatID, client)
	s.sendWSEvent(client, "left", fiber.Map{"chat_id": ref.ChatID})
}

// handleWSMessage persists the message, then fans it out. The write is
// durable before any broadcast; the sender's own connection is skipped.
func (s *Server) handleWSMessage(client *notifications.Client, data json.RawMessage) {
	var req wsSendMessage
	if err := json.Unmarshal(data, &req); err != nil || req.ChatID == 0 {
		s.sendWSError(client, "message requires chat_id and content")
		return
	}

	ctx := context.Background()
	message, err := s.messageService.SendMessage(ctx, service.SendMessageInput{
		UserID:  client.UserID,
		ChatID:  req.ChatID,
		Content: req.Content,
	})
	if err != nil {
		if appErr, ok := err.(*models.AppError); ok {
			s.sendWSError(client, appErr.Message)
		} else {
			s.sendWSError(client, "Failed to send message")
		}
		return
	}

	envelope, err := json.Marshal(wsEnvelope{
		Event: "message",
		Data:  mustMarshal(message),
	})
	if err != nil {
		log.Printf("marshal outbound message %d: %v", message.ID, err)
		return
	}

	// Prefer Redis pub/sub so every process delivers; fall back to the
	// local hub when Redis is absent.
	if err := s.notifier.PublishRoom(ctx, req.ChatID, client.ID, envelope); err != nil {
		s.chatHub.BroadcastToRoom(req.ChatID, envelope, client.ID)
	}

	// Acknowledge to the sender with the persisted record.
	s.sendWSEvent(client, "message_sent", message)
}

func (s *Server) sendWSEvent(client *notifications.Client, event string, data any) {
	payload, err := json.Marshal(wsEnvelope{Event: event, Data: mustMarshal(data)})
	if err != nil {
		log.Printf("marshal ws event %q: %v", event, err)
		return
	}
	client.TrySend(payload)
}

func (s *Server) sendWSError(client *notifications.Client, message string) {
	s.sendWSEvent(client, "error", fiber.Map{"error": message})
}

func mustMarshal(v any) json.RawMessage {
	raw, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return raw
}
