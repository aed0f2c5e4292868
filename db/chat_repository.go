package db

import (
	"log"

	apiError "github.com/medilinkng/clinichat/errors"
	"github.com/medilinkng/clinichat/models"
	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// DefaultMessageLimit bounds a history page when the caller does not ask for
// a specific size.
const DefaultMessageLimit = 100

// ChatRepository owns conversation identity, membership and the append-only
// message log.
type ChatRepository interface {
	GetOrCreateConversation(userA, userB uint) (*models.Conversation, error)
	EnsureConversationForRoom(room string) (*models.Conversation, error)
	FindConversationByRoom(room string) (*models.Conversation, error)
	FindConversationByID(id uint) (*models.Conversation, error)
	ListConversationsForUser(userID uint) ([]models.Conversation, error)
	LatestMessage(conversationID uint) (*models.Message, error)
	CountAttachments(messageID uint) (int64, error)
	SaveMessage(msg *models.Message) (*models.Message, error)
	ListMessages(conversationID uint, limit int) ([]models.Message, error)
	FindOtherParticipant(conversationID, selfID uint) (*models.User, error)
}

type chatRepo struct {
	DB *gorm.DB
}

func NewChatRepo(db *GormDB) ChatRepository {
	return &chatRepo{db.DB}
}

// GetOrCreateConversation resolves the canonical conversation for an
// unordered user pair. Race safety comes from the unique index on
// conversations.room: the lookup-then-insert window is closed by converting
// a duplicate-key failure into a fetch of the row the concurrent winner
// created. Both orderings of the pair derive the same room key.
func (r *chatRepo) GetOrCreateConversation(userA, userB uint) (*models.Conversation, error) {
	room := models.RoomKeyForPair(userA, userB)

	var conv models.Conversation
	err := r.DB.Where("room = ?", room).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "looking up conversation")
	}

	conv = models.Conversation{Room: room}
	txErr := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&conv).Error; err != nil {
			return err
		}
		participants := []models.ConversationParticipant{
			{ConversationID: conv.ID, UserID: userA},
		}
		if userB != userA {
			participants = append(participants, models.ConversationParticipant{ConversationID: conv.ID, UserID: userB})
		}
		return tx.Create(&participants).Error
	})
	if txErr != nil {
		if errors.Is(txErr, gorm.ErrDuplicatedKey) || apiError.IsUniqueViolation(txErr) {
			// Lost the race; the other caller's row is the canonical one.
			var winner models.Conversation
			if err := r.DB.Where("room = ?", room).First(&winner).Error; err != nil {
				return nil, errors.Wrap(err, "fetching conversation after conflict")
			}
			return &winner, nil
		}
		return nil, errors.Wrap(txErr, "creating conversation")
	}

	return &conv, nil
}

// EnsureConversationForRoom resolves a named room, creating the conversation
// row on first contact. Used for administrative rooms whose identifier comes
// from the static role table, not from a user pair.
func (r *chatRepo) EnsureConversationForRoom(room string) (*models.Conversation, error) {
	var conv models.Conversation
	err := r.DB.Where("room = ?", room).First(&conv).Error
	if err == nil {
		return &conv, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "looking up room")
	}

	conv = models.Conversation{Room: room}
	if err := r.DB.Create(&conv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || apiError.IsUniqueViolation(err) {
			var winner models.Conversation
			if err := r.DB.Where("room = ?", room).First(&winner).Error; err != nil {
				return nil, errors.Wrap(err, "fetching room after conflict")
			}
			return &winner, nil
		}
		return nil, errors.Wrap(err, "creating room")
	}
	log.Printf("created conversation %d for room %s", conv.ID, conv.Room)
	return &conv, nil
}

func (r *chatRepo) FindConversationByRoom(room string) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.DB.Where("room = ?", room).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepo) FindConversationByID(id uint) (*models.Conversation, error) {
	var conv models.Conversation
	if err := r.DB.Where("id = ?", id).First(&conv).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

func (r *chatRepo) ListConversationsForUser(userID uint) ([]models.Conversation, error) {
	var convIDs []uint
	err := r.DB.Model(&models.ConversationParticipant{}).
		Where("user_id = ?", userID).
		Pluck("conversation_id", &convIDs).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing conversation ids")
	}
	if len(convIDs) == 0 {
		return nil, nil
	}

	var convs []models.Conversation
	err = r.DB.Preload("Participants.User").
		Where("id IN ?", convIDs).
		Find(&convs).Error
	if err != nil {
		return nil, errors.Wrap(err, "loading conversations")
	}
	return convs, nil
}

// LatestMessage is the top-1 read backing the sidebar preview. Returns
// (nil, nil) for a conversation with no messages yet.
func (r *chatRepo) LatestMessage(conversationID uint) (*models.Message, error) {
	var msg models.Message
	err := r.DB.Where("conversation_id = ?", conversationID).
		Order("created_at DESC, id DESC").
		First(&msg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "loading latest message")
	}
	return &msg, nil
}

func (r *chatRepo) CountAttachments(messageID uint) (int64, error) {
	var count int64
	err := r.DB.Model(&models.Attachment{}).Where("message_id = ?", messageID).Count(&count).Error
	if err != nil {
		return 0, errors.Wrap(err, "counting attachments")
	}
	return count, nil
}

// SaveMessage appends the message and its attachments in one transaction.
// CreatedAt is assigned here by gorm at insert, never taken from the caller,
// so append order within a conversation matches timestamp order. A reader
// can never observe the message without its attachments.
func (r *chatRepo) SaveMessage(msg *models.Message) (*models.Message, error) {
	attachments := msg.Attachments
	msg.Attachments = nil

	err := r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(msg).Error; err != nil {
			return err
		}
		for i := range attachments {
			attachments[i].MessageID = msg.ID
		}
		if len(attachments) > 0 {
			if err := tx.Create(&attachments).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, errors.Wrap(err, "saving message")
	}

	msg.Attachments = attachments
	return msg, nil
}

// ListMessages returns the conversation history ascending by creation time,
// attachments included. Attachments for the whole page are fetched with a
// single IN query and stitched in memory rather than one query per message.
func (r *chatRepo) ListMessages(conversationID uint, limit int) ([]models.Message, error) {
	if limit <= 0 {
		limit = DefaultMessageLimit
	}

	var msgs []models.Message
	err := r.DB.Preload("Sender").
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&msgs).Error
	if err != nil {
		return nil, errors.Wrap(err, "listing messages")
	}
	if len(msgs) == 0 {
		return msgs, nil
	}

	msgIDs := make([]uint, 0, len(msgs))
	for i := range msgs {
		msgIDs = append(msgIDs, msgs[i].ID)
		if msgs[i].Sender != nil {
			msgs[i].SenderName = msgs[i].Sender.Fullname
		}
	}

	var attachments []models.Attachment
	err = r.DB.Where("message_id IN ?", msgIDs).Order("id ASC").Find(&attachments).Error
	if err != nil {
		return nil, errors.Wrap(err, "loading attachments")
	}

	byMessage := make(map[uint][]models.Attachment, len(msgs))
	for _, a := range attachments {
		byMessage[a.MessageID] = append(byMessage[a.MessageID], a)
	}
	for i := range msgs {
		msgs[i].Attachments = byMessage[msgs[i].ID]
	}

	return msgs, nil
}

func (r *chatRepo) FindOtherParticipant(conversationID, selfID uint) (*models.User, error) {
	var participant models.ConversationParticipant
	err := r.DB.Preload("User").
		Where("conversation_id = ? AND user_id <> ?", conversationID, selfID).
		First(&participant).Error
	if err != nil {
		return nil, err
	}
	return &participant.User, nil
}
