package realtime

import (
	"encoding/json"
	"testing"

	"github.com/medilinkng/clinichat/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageEvent_AttachmentsNeverNull(t *testing.T) {
	msg := &models.Message{Text: "hello"}
	msg.ID = 5
	msg.ConversationID = 2

	event := NewMessageEvent("chat_1_2", msg)
	payload := Marshal(event)
	require.NotNil(t, payload)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(payload, &decoded))

	assert.Equal(t, "message", decoded["type"])
	assert.Equal(t, "chat_1_2", decoded["room"])

	inner, ok := decoded["message"].(map[string]interface{})
	require.True(t, ok)
	attachments, present := inner["attachments"]
	require.True(t, present)
	assert.NotNil(t, attachments, "clients expect an array, never null")
}

func TestInboundFrameRoundTrip(t *testing.T) {
	raw := `{"type":"send_message","room":"chat_1_2","text":"hi","attachments":[{"original_filename":"a.png","stored_filename":"a_20250310_120000.png","size":10}]}`

	var frame InboundFrame
	require.NoError(t, json.Unmarshal([]byte(raw), &frame))
	assert.Equal(t, "send_message", frame.Type)
	assert.Equal(t, "chat_1_2", frame.Room)
	require.Len(t, frame.Attachments, 1)
	assert.Equal(t, "a.png", frame.Attachments[0].OriginalFilename)
}
