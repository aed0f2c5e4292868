package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/medilinkng/clinichat/realtime"
	"github.com/medilinkng/clinichat/services/jwt"
)

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS policy is enforced at the HTTP layer; the socket accepts the
		// same origins.
		return true
	},
}

const defaultReadTimeout = 60 * time.Second

// handleChatSocket upgrades the connection and processes frames until the
// client disconnects. An unauthenticated connection may read broadcasts but
// carries no presence.
func (s *Server) handleChatSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		var userID uint
		if token := c.Query("token"); token != "" {
			claims, err := jwt.ValidateAndGetClaims(token, s.Config.JWTSecret)
			if err != nil {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
				return
			}
			if id, ok := claims["id"].(float64); ok {
				userID = uint(id)
			}
		}

		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just return.
			return
		}

		conn := realtime.NewConnection(userID, ws)
		conn.Start()
		s.Hub.Register(conn)

		// Connection-open: presence goes online and everyone else hears
		// about it. The write is best-effort.
		if userID != 0 {
			s.PresenceService.SetOnline(userID)
			if payload := realtime.Marshal(realtime.PresenceChangedEvent{Type: "presence_changed", UserID: userID, IsOnline: true}); payload != nil {
				s.Hub.BroadcastExcept(conn.ID, payload)
			}
		}

		// Connection-close handling must run exactly once whether the exit
		// was graceful or abrupt; the read loop below is the single exit.
		defer func() {
			s.Hub.Unregister(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
			if userID != 0 {
				s.PresenceService.SetOffline(userID)
				if payload := realtime.Marshal(realtime.PresenceChangedEvent{Type: "presence_changed", UserID: userID, IsOnline: false}); payload != nil {
					s.Hub.BroadcastGlobal(payload)
				}
			}
		}()

		ws.SetReadLimit(1 << 20)
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		if payload := realtime.Marshal(realtime.AckFrame{Type: "connected"}); payload != nil {
			_ = conn.Send(payload)
		}

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				return
			}
			_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))

			var frame realtime.InboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				s.replySocketError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "join":
				s.handleSocketJoin(conn, frame)
			case "send_message":
				s.handleSocketSend(conn, userID, frame)
			case "heartbeat":
				if userID != 0 {
					s.PresenceService.Heartbeat(userID)
				}
			default:
				s.replySocketError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

// handleSocketJoin subscribes the connection to a room. Joining twice is a
// no-op; a missing room identifier is rejected but not fatal.
func (s *Server) handleSocketJoin(conn *realtime.Connection, frame realtime.InboundFrame) {
	if frame.Room == "" {
		log.Printf("join rejected: empty room from connection %s", conn.ID)
		s.replySocketError(conn, "bad_request", "room is required")
		return
	}

	s.Hub.Join(frame.Room, conn)

	if payload := realtime.Marshal(realtime.AckFrame{Type: "joined", Room: frame.Room}); payload != nil {
		_ = conn.Send(payload)
	}
}

// roomLock returns the mutex serializing sends for one room.
func (s *Server) roomLock(room string) *sync.Mutex {
	v, _ := s.sendMu.LoadOrStore(room, &sync.Mutex{})
	return v.(*sync.Mutex)
}

// handleSocketSend persists the message, then fans it out: the message event
// goes to the room's subscribers (sender included), and a lightweight
// conversation_updated event goes to every connection so sidebars refresh
// without being joined to the room. Append and fan-out run under a per-room
// lock, so broadcast order within a room matches log order even with
// concurrent senders. On failure only the sender hears about it; nothing is
// broadcast.
func (s *Server) handleSocketSend(conn *realtime.Connection, userID uint, frame realtime.InboundFrame) {
	if frame.Room == "" && frame.ConversationID == 0 {
		s.replySocketError(conn, "bad_request", "room or conversation_id is required")
		return
	}

	var senderID *uint
	if userID != 0 {
		senderID = &userID
	}

	room := frame.Room
	if room == "" {
		conv, err := s.ChatRepository.FindConversationByID(frame.ConversationID)
		if err != nil {
			s.replySocketError(conn, "send_failed", "conversation not found")
			return
		}
		room = conv.Room
	}

	mu := s.roomLock(room)
	mu.Lock()
	msg, err := s.ChatService.SendMessage(frame.Room, frame.ConversationID, senderID, frame.Text, frame.Attachments)
	if err != nil {
		mu.Unlock()
		s.replySocketError(conn, "send_failed", err.Error())
		return
	}

	if payload := realtime.Marshal(realtime.NewMessageEvent(room, msg)); payload != nil {
		s.Hub.Broadcast(room, payload)
	}
	if payload := realtime.Marshal(realtime.ConversationUpdatedEvent{Type: "conversation_updated", ConversationID: msg.ConversationID, Room: room}); payload != nil {
		s.Hub.BroadcastGlobal(payload)
	}
	mu.Unlock()

	s.notifyOfflinePeer(msg.ConversationID, userID, msg.Text)
}

// notifyOfflinePeer pushes a best-effort notification to the other 1:1
// participant when they are offline at send time.
func (s *Server) notifyOfflinePeer(conversationID, senderID uint, text string) {
	if s.NotificationService == nil || senderID == 0 {
		return
	}

	peer, err := s.ChatRepository.FindOtherParticipant(conversationID, senderID)
	if err != nil {
		return
	}
	status, err := s.PresenceService.StatusOf(peer.ID)
	if err != nil || status.IsOnline {
		return
	}

	preview := text
	if preview == "" {
		preview = "sent you a file"
	}
	s.NotificationService.NotifyOfflineRecipient(peer.DeviceToken, "New message", preview)
}

func (s *Server) replySocketError(conn *realtime.Connection, code, message string) {
	if payload := realtime.Marshal(realtime.ErrorEvent{Type: "error", Code: code, Error: message}); payload != nil {
		_ = conn.Send(payload)
	}
}
