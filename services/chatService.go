package services

import (
	"fmt"
	"log"
	"net/http"
	"sort"
	"strings"

	"github.com/medilinkng/clinichat/config"
	"github.com/medilinkng/clinichat/db"
	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// ChatService fronts conversation identity and the message log for both the
// HTTP handlers and the websocket hub.
type ChatService interface {
	OpenConversation(selfID, targetID uint) (*models.Conversation, error)
	RoomForRole(role string) (*models.Conversation, error)
	ListConversations(selfID uint) ([]models.ConversationSummary, error)
	ListMessages(conversationID uint, limit int) ([]models.Message, error)
	SendMessage(room string, conversationID uint, senderID *uint, text string, refs []models.AttachmentRef) (*models.Message, error)
	OtherParticipant(conversationID, selfID uint) (*models.OtherParticipant, error)
}

type chatService struct {
	Config          *config.Config
	chatRepo        db.ChatRepository
	authRepo        db.AuthRepository
	presenceService PresenceService
}

// NewChatService instantiates a chatService
func NewChatService(chatRepo db.ChatRepository, authRepo db.AuthRepository, presenceService PresenceService, conf *config.Config) ChatService {
	return &chatService{
		Config:          conf,
		chatRepo:        chatRepo,
		authRepo:        authRepo,
		presenceService: presenceService,
	}
}

// OpenConversation resolves or creates the unique 1:1 conversation between
// self and target. Concurrent calls for the same pair converge on one row.
func (s *chatService) OpenConversation(selfID, targetID uint) (*models.Conversation, error) {
	if _, err := s.authRepo.FindUserByID(targetID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFoundError("target user not found")
		}
		log.Printf("OpenConversation: target lookup failed: %v", err)
		return nil, apiError.ErrStorageUnavailable
	}

	conv, err := s.chatRepo.GetOrCreateConversation(selfID, targetID)
	if err != nil {
		log.Printf("OpenConversation: %v", err)
		return nil, apiError.ErrStorageUnavailable
	}
	return conv, nil
}

// RoomForRole resolves the fixed administrative room mapped to a role.
func (s *chatService) RoomForRole(role string) (*models.Conversation, error) {
	room, ok := models.StaticRoomForRole(role)
	if !ok {
		return nil, apiError.NotFoundError("no room for role")
	}
	conv, err := s.chatRepo.EnsureConversationForRoom(room)
	if err != nil {
		log.Printf("RoomForRole: %v", err)
		return nil, apiError.ErrStorageUnavailable
	}
	return conv, nil
}

// ListConversations builds sidebar summaries: one top-1 message read per
// conversation, newest activity first, conversations without messages last
// by their creation time.
func (s *chatService) ListConversations(selfID uint) ([]models.ConversationSummary, error) {
	convs, err := s.chatRepo.ListConversationsForUser(selfID)
	if err != nil {
		log.Printf("ListConversations: %v", err)
		return nil, apiError.ErrStorage
	}

	summaries := make([]models.ConversationSummary, 0, len(convs))
	created := make(map[uint]int64, len(convs))
	for _, conv := range convs {
		summary := models.ConversationSummary{ID: conv.ID, Room: conv.Room}
		created[conv.ID] = conv.CreatedAt.UnixNano()

		var selfName string
		var others []models.User
		for _, p := range conv.Participants {
			if p.UserID == selfID {
				selfName = p.User.Fullname
				continue
			}
			others = append(others, p.User)
		}

		names := make([]string, 0, len(others))
		for _, u := range others {
			names = append(names, u.Fullname)
		}
		summary.Participants = strings.Join(names, ", ")
		if summary.Participants == "" {
			summary.Participants = selfName
		}

		if len(others) == 1 {
			otherID := others[0].ID
			summary.OtherUserID = &otherID
			if status, err := s.presenceService.StatusOf(otherID); err == nil {
				online := status.IsOnline
				summary.OtherOnline = &online
			}
		}

		latest, err := s.chatRepo.LatestMessage(conv.ID)
		if err != nil {
			log.Printf("ListConversations: latest message for %d: %v", conv.ID, err)
			return nil, apiError.ErrStorage
		}
		if latest != nil {
			t := latest.CreatedAt
			summary.LastMessageAt = &t
			summary.Preview = s.previewFor(latest)
		}

		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		a, b := summaries[i], summaries[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil:
			if !a.LastMessageAt.Equal(*b.LastMessageAt) {
				return a.LastMessageAt.After(*b.LastMessageAt)
			}
		case a.LastMessageAt != nil:
			return true
		case b.LastMessageAt != nil:
			return false
		}
		return created[a.ID] > created[b.ID]
	})

	return summaries, nil
}

func (s *chatService) previewFor(msg *models.Message) string {
	if msg.Text != "" {
		return msg.Text
	}
	count, err := s.chatRepo.CountAttachments(msg.ID)
	if err != nil {
		log.Printf("previewFor: counting attachments for %d: %v", msg.ID, err)
	}
	if count > 0 {
		return fmt.Sprintf("\U0001F4CE %d file(s)", count)
	}
	return "Message"
}

func (s *chatService) ListMessages(conversationID uint, limit int) ([]models.Message, error) {
	if _, err := s.chatRepo.FindConversationByID(conversationID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFoundError("conversation not found")
		}
		return nil, apiError.ErrStorage
	}

	msgs, err := s.chatRepo.ListMessages(conversationID, limit)
	if err != nil {
		log.Printf("ListMessages: %v", err)
		return nil, apiError.ErrStorage
	}
	return msgs, nil
}

// SendMessage validates and appends one message. A message must carry
// non-empty text or at least one attachment; nothing is persisted otherwise.
// When conversationID is zero the conversation is resolved by room,
// creating the row for named rooms on first use.
func (s *chatService) SendMessage(room string, conversationID uint, senderID *uint, text string, refs []models.AttachmentRef) (*models.Message, error) {
	text = strings.TrimSpace(text)
	if text == "" && len(refs) == 0 {
		return nil, apiError.ValidationError("message must contain text or attachments")
	}

	var conv *models.Conversation
	var err error
	if conversationID != 0 {
		conv, err = s.chatRepo.FindConversationByID(conversationID)
	} else {
		conv, err = s.chatRepo.EnsureConversationForRoom(room)
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFoundError("conversation not found")
		}
		log.Printf("SendMessage: resolving conversation: %v", err)
		return nil, apiError.ErrStorageUnavailable
	}

	attachments := make([]models.Attachment, 0, len(refs))
	for _, ref := range refs {
		attachments = append(attachments, models.Attachment{
			OriginalFilename: ref.OriginalFilename,
			StoredFilename:   ref.StoredFilename,
			MimeType:         ref.MimeType,
			Size:             ref.Size,
		})
	}

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Text:           text,
		Attachments:    attachments,
	}
	saved, err := s.chatRepo.SaveMessage(msg)
	if err != nil {
		log.Printf("SendMessage: %v", err)
		return nil, apiError.ErrStorage
	}

	if senderID != nil {
		if sender, err := s.authRepo.FindUserByID(*senderID); err == nil {
			saved.SenderName = sender.Fullname
		}
	}

	return saved, nil
}

// OtherParticipant returns the peer of a 1:1 conversation with a current
// presence label.
func (s *chatService) OtherParticipant(conversationID, selfID uint) (*models.OtherParticipant, error) {
	user, err := s.chatRepo.FindOtherParticipant(conversationID, selfID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apiError.NotFoundError("participant not found")
		}
		return nil, apiError.New("unable to load participant", http.StatusInternalServerError)
	}

	status, err := s.presenceService.StatusOf(user.ID)
	if err != nil {
		return nil, err
	}

	return &models.OtherParticipant{
		UserID:       user.ID,
		Fullname:     user.Fullname,
		IsOnline:     status.IsOnline,
		LastSeenText: status.LastSeenText,
	}, nil
}
