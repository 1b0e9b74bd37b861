package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeEvent_Message(t *testing.T) {
	msg := Message{
		ID:        "m-1",
		RoomID:    "alice_bob",
		SenderID:  "alice",
		Text:      "hello",
		CreatedAt: 1700000000000,
	}

	raw, err := EncodeEvent(EventSendMessage, msg)
	require.NoError(t, err)

	evt, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventSendMessage, evt.Kind)
	require.NotNil(t, evt.Message)
	assert.Equal(t, msg, *evt.Message)
	assert.Nil(t, evt.Typing)
}

func TestDecodeEvent_Typing(t *testing.T) {
	raw := []byte(`{"event":"displayTyping","data":{"room_id":"alice_bob","user_id":"bob","is_typing":true}}`)

	evt, err := DecodeEvent(raw)
	require.NoError(t, err)
	assert.Equal(t, EventDisplayTyping, evt.Kind)
	require.NotNil(t, evt.Typing)
	assert.True(t, evt.Typing.IsTyping)
	assert.Equal(t, "bob", evt.Typing.UserID)
}

func TestDecodeEvent_Notification(t *testing.T) {
	raw := []byte(`{"event":"receiveNotification","data":{"room_id":"alice_bob","sender_id":"bob","title":"Bob","text":"hi"}}`)

	evt, err := DecodeEvent(raw)
	require.NoError(t, err)
	require.NotNil(t, evt.Notification)
	assert.Equal(t, "alice_bob", evt.Notification.RoomID)
	assert.Equal(t, "bob", evt.Notification.SenderID)
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event":"selfDestruct","data":{}}`))
	assert.Error(t, err)
}

func TestDecodeEvent_Garbage(t *testing.T) {
	_, err := DecodeEvent([]byte(`not json`))
	assert.Error(t, err)
}
