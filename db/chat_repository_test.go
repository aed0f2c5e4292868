package db

import (
	"fmt"
	"testing"

	"github.com/medilinkng/clinichat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *GormDB {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// A fresh pooled connection would see an empty in-memory database, so the
	// pool is pinned to one.
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrate(gdb))
	require.NoError(t, SeedRoles(gdb))

	return &GormDB{DB: gdb}
}

func seedUser(t *testing.T, gdb *GormDB, fullname, email, roleName string) *models.User {
	t.Helper()

	var role models.Role
	require.NoError(t, gdb.DB.Where("name = ?", roleName).First(&role).Error)

	user := &models.User{
		Fullname:       fullname,
		Username:       fullname,
		Email:          email,
		HashedPassword: "x",
		Active:         true,
		RoleID:         role.ID,
	}
	require.NoError(t, gdb.DB.Create(user).Error)
	return user
}

func TestGetOrCreateConversation_PairIdempotent(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	first, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("chat_%d_%d", alice.ID, bola.ID), first.Room)

	// Same pair in either order resolves to the same row.
	second, err := repo.GetOrCreateConversation(bola.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, gdb.DB.Model(&models.Conversation{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	var participants int64
	require.NoError(t, gdb.DB.Model(&models.ConversationParticipant{}).
		Where("conversation_id = ?", first.ID).Count(&participants).Error)
	assert.Equal(t, int64(2), participants)
}

func TestGetOrCreateConversation_DuplicateInsertResolvesWinner(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	// Simulate losing the race: the winner's row already holds the room key
	// before our insert path runs.
	room := models.RoomKeyForPair(alice.ID, bola.ID)
	winner := models.Conversation{Room: room}
	require.NoError(t, gdb.DB.Create(&winner).Error)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)
	assert.Equal(t, winner.ID, conv.ID)
}

func TestEnsureConversationForRoom(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)

	first, err := repo.EnsureConversationForRoom("admin_regulation")
	require.NoError(t, err)

	second, err := repo.EnsureConversationForRoom("admin_regulation")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestSaveMessage_AtomicWithAttachments(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)

	msg := &models.Message{
		ConversationID: conv.ID,
		SenderID:       &alice.ID,
		Text:           "scan attached",
		Attachments: []models.Attachment{
			{OriginalFilename: "scan.pdf", StoredFilename: "scan_20250310_120000.pdf", MimeType: "application/pdf", Size: 2048},
			{OriginalFilename: "notes.txt", StoredFilename: "notes_20250310_120000.txt", MimeType: "text/plain", Size: 64},
		},
	}

	saved, err := repo.SaveMessage(msg)
	require.NoError(t, err)
	require.NotZero(t, saved.ID)
	assert.False(t, saved.CreatedAt.IsZero())
	require.Len(t, saved.Attachments, 2)
	for _, a := range saved.Attachments {
		assert.Equal(t, saved.ID, a.MessageID)
		assert.NotZero(t, a.ID)
	}

	count, err := repo.CountAttachments(saved.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestListMessages_AscendingWithAttachments(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)

	_, err = repo.SaveMessage(&models.Message{ConversationID: conv.ID, SenderID: &alice.ID, Text: "hello"})
	require.NoError(t, err)
	_, err = repo.SaveMessage(&models.Message{ConversationID: conv.ID, SenderID: &bola.ID, Text: "hi, one sec"})
	require.NoError(t, err)
	withFile, err := repo.SaveMessage(&models.Message{
		ConversationID: conv.ID,
		SenderID:       &bola.ID,
		Text:           "",
		Attachments:    []models.Attachment{{OriginalFilename: "form.docx", StoredFilename: "form_20250310_120000.docx", Size: 512}},
	})
	require.NoError(t, err)

	msgs, err := repo.ListMessages(conv.ID, 0)
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, "hello", msgs[0].Text)
	assert.Equal(t, "hi, one sec", msgs[1].Text)
	assert.Equal(t, withFile.ID, msgs[2].ID)
	require.Len(t, msgs[2].Attachments, 1)
	assert.Equal(t, "form.docx", msgs[2].Attachments[0].OriginalFilename)

	// Sender rows are preloaded and the display name is filled in.
	assert.Equal(t, "Alice", msgs[0].SenderName)
	assert.Equal(t, "Bola", msgs[1].SenderName)
}

func TestListMessages_LimitApplied(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err = repo.SaveMessage(&models.Message{ConversationID: conv.ID, SenderID: &alice.ID, Text: fmt.Sprintf("m%d", i)})
		require.NoError(t, err)
	}

	msgs, err := repo.ListMessages(conv.ID, 2)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)
}

func TestLatestMessage_EmptyConversation(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)

	msg, err := repo.LatestMessage(conv.ID)
	require.NoError(t, err)
	assert.Nil(t, msg)

	_, err = repo.SaveMessage(&models.Message{ConversationID: conv.ID, SenderID: &alice.ID, Text: "first"})
	require.NoError(t, err)
	_, err = repo.SaveMessage(&models.Message{ConversationID: conv.ID, SenderID: &bola.ID, Text: "second"})
	require.NoError(t, err)

	msg, err = repo.LatestMessage(conv.ID)
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.Equal(t, "second", msg.Text)
}

func TestFindOtherParticipant(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewChatRepo(gdb)
	alice := seedUser(t, gdb, "Alice", "alice@clinic.test", models.RoleDoctor)
	bola := seedUser(t, gdb, "Bola", "bola@clinic.test", models.RoleReception)

	conv, err := repo.GetOrCreateConversation(alice.ID, bola.ID)
	require.NoError(t, err)

	other, err := repo.FindOtherParticipant(conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, bola.ID, other.ID)
	assert.Equal(t, "Bola", other.Fullname)
}

func TestGetActiveUsers_OrderingAndRoleFilter(t *testing.T) {
	gdb := newTestDB(t)
	repo := NewAuthRepo(gdb)
	requester := seedUser(t, gdb, "Zara", "zara@clinic.test", models.RoleReception)
	doctor := seedUser(t, gdb, "Dele", "dele@clinic.test", models.RoleDoctor)
	otherReception := seedUser(t, gdb, "Amaka", "amaka@clinic.test", models.RoleReception)
	admin := seedUser(t, gdb, "Bayo", "bayo@clinic.test", models.RoleAdmin)

	require.NoError(t, gdb.DB.Model(&models.User{}).Where("id = ?", admin.ID).Update("is_online", true).Error)

	// Reception requesters do not see other reception users.
	users, err := repo.GetActiveUsers(requester.ID, models.RoleReception)
	require.NoError(t, err)
	require.Len(t, users, 2)
	for _, u := range users {
		assert.NotEqual(t, otherReception.ID, u.ID)
		assert.NotEqual(t, requester.ID, u.ID)
	}

	// Online users sort first, then by name.
	assert.Equal(t, admin.ID, users[0].ID)
	assert.True(t, users[0].IsOnline)
	assert.Equal(t, doctor.ID, users[1].ID)

	// Without the role filter only the requester is excluded.
	users, err = repo.GetActiveUsers(requester.ID, "")
	require.NoError(t, err)
	assert.Len(t, users, 3)
}
