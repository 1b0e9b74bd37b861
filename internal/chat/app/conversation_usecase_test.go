package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"community_chat_client/internal/chat/domain"
	"community_chat_client/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *logger.LogInfo {
	t.Helper()
	return logger.Initialize("test", t.TempDir())
}

func historyFixture(roomID string) []domain.Message {
	return []domain.Message{
		{ID: "m-1", RoomID: roomID, SenderID: "bob", Text: "hey", CreatedAt: 1000},
		{ID: "m-2", RoomID: roomID, SenderID: "alice", Text: "hi bob", CreatedAt: 2000, IsRead: true},
		{ID: "m-3", RoomID: roomID, SenderID: "bob", Text: "all set?", CreatedAt: 3000},
	}
}

func newTestConversation(t *testing.T) (*ConversationUseCase, *MockHistoryRepository, *MockWriteAPI, *MockEmitter) {
	t.Helper()
	roomID := domain.ResolveRoomID("alice", "bob")
	history := new(MockHistoryRepository)
	writeAPI := new(MockWriteAPI)
	emitter := new(MockEmitter)
	uc := NewConversationUseCase(roomID, "alice", "Alice", history, writeAPI, emitter, time.Millisecond, testLogger(t))
	return uc, history, writeAPI, emitter
}

func TestConversationUseCase_LoadHistoryBatchesReadReceipts(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)

	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", domain.EventReadMessage, mock.Anything).Return(nil)

	require.NoError(t, uc.LoadHistory(ctx))
	assert.Len(t, uc.Messages(), 3)

	// exactly one batched signal covering both unread inbound messages
	reads := emitter.emitted(domain.EventReadMessage)
	require.Len(t, reads, 1)
	payload := reads[0].(domain.ReadPayload)
	assert.ElementsMatch(t, []string{"m-1", "m-3"}, payload.MessageIDs)
	assert.Equal(t, "alice", payload.UserID)

	assert.Equal(t, 0, uc.Unread().UnreadCount)
}

func TestConversationUseCase_LoadHistorySortsByCreatedAt(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)

	shuffled := []domain.Message{
		{ID: "m-3", RoomID: uc.RoomID(), SenderID: "alice", Text: "c", CreatedAt: 3000},
		{ID: "m-1", RoomID: uc.RoomID(), SenderID: "alice", Text: "a", CreatedAt: 1000},
		{ID: "m-2", RoomID: uc.RoomID(), SenderID: "alice", Text: "b", CreatedAt: 2000},
	}
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(shuffled, nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, uc.LoadHistory(ctx))

	msgs := uc.Messages()
	assert.Equal(t, []string{"m-1", "m-2", "m-3"}, []string{msgs[0].ID, msgs[1].ID, msgs[2].ID})
}

func TestConversationUseCase_FailedFetchPreservesList(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)

	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil).Once()
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))
	require.Len(t, uc.Messages(), 3)

	// a transient blip must not blank the conversation
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(nil, errors.New("network down"))
	assert.Error(t, uc.LoadHistory(ctx))
	assert.Len(t, uc.Messages(), 3)
}

func TestConversationUseCase_SendAppendsImmediately(t *testing.T) {
	uc, _, _, emitter := newTestConversation(t)
	emitter.On("Emit", domain.EventSendMessage, mock.Anything).Return(nil)

	msg, err := uc.Send("hi", "")
	require.NoError(t, err)
	require.NotNil(t, msg)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "alice", msg.SenderID)

	msgs := uc.Messages()
	require.Len(t, msgs, 1)
	assert.False(t, msgs[0].IsRead)
}

func TestConversationUseCase_SendSurvivesEmitFailure(t *testing.T) {
	uc, _, _, emitter := newTestConversation(t)
	emitter.On("Emit", domain.EventSendMessage, mock.Anything).Return(errors.New("disconnected"))

	msg, err := uc.Send("hi", "")
	assert.Error(t, err)
	require.NotNil(t, msg)
	// no rollback: the optimistic entry stays until the next resync
	assert.Len(t, uc.Messages(), 1)
}

func TestConversationUseCase_SendDebounce(t *testing.T) {
	roomID := domain.ResolveRoomID("alice", "bob")
	emitter := new(MockEmitter)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	uc := NewConversationUseCase(roomID, "alice", "Alice", new(MockHistoryRepository), new(MockWriteAPI), emitter, time.Hour, testLogger(t))

	_, err := uc.Send("one", "")
	require.NoError(t, err)
	_, err = uc.Send("two", "")
	assert.ErrorIs(t, err, ErrSendThrottled)
	assert.Len(t, uc.Messages(), 1)
}

func TestConversationUseCase_SendCarriesReplyPreview(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	msg, err := uc.Send("yes!", "m-3")
	require.NoError(t, err)
	assert.Equal(t, "m-3", msg.ReplyTo)
	assert.Equal(t, "all set?", msg.ReplyToText)
}

func TestConversationUseCase_InboundEchoIsIdempotent(t *testing.T) {
	uc, _, _, emitter := newTestConversation(t)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)

	msg, err := uc.Send("hi", "")
	require.NoError(t, err)

	// the transport can legitimately redeliver the echo after reconnect
	uc.ApplyInbound(*msg)
	uc.ApplyInbound(*msg)
	assert.Len(t, uc.Messages(), 1)
}

func TestConversationUseCase_InboundIgnoresOtherRooms(t *testing.T) {
	uc, _, _, _ := newTestConversation(t)

	uc.ApplyInbound(domain.Message{ID: "x", RoomID: "carol_dave", SenderID: "carol", Text: "?", CreatedAt: 1})
	assert.Empty(t, uc.Messages())
}

func TestConversationUseCase_EditRequiresOwnership(t *testing.T) {
	ctx := context.Background()
	uc, history, writeAPI, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	// m-1 is bob's: the check fails before any request is issued
	assert.ErrorIs(t, uc.Edit(ctx, "m-1", "rewritten"), ErrNotOwner)
	writeAPI.AssertNotCalled(t, "EditMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	assert.ErrorIs(t, uc.Edit(ctx, "nope", "rewritten"), ErrMessageNotFound)
}

func TestConversationUseCase_EditConfirmsThenBroadcasts(t *testing.T) {
	ctx := context.Background()
	uc, history, writeAPI, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	writeAPI.On("EditMessage", ctx, uc.RoomID(), "m-2", "hi bob!").Return(nil)

	require.NoError(t, uc.Edit(ctx, "m-2", "hi bob!"))

	writeAPI.AssertExpectations(t)
	edits := emitter.emitted(domain.EventEditMessage)
	require.Len(t, edits, 1)
	assert.Equal(t, domain.EditPayload{RoomID: uc.RoomID(), MessageID: "m-2", NewText: "hi bob!"}, edits[0])

	for _, m := range uc.Messages() {
		if m.ID == "m-2" {
			assert.Equal(t, "hi bob!", m.Text)
		}
	}
}

func TestConversationUseCase_EditKeepsOptimisticStateOnWriteFailure(t *testing.T) {
	ctx := context.Background()
	uc, history, writeAPI, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	writeAPI.On("EditMessage", ctx, uc.RoomID(), "m-2", "oops").Return(errors.New("500"))

	assert.Error(t, uc.Edit(ctx, "m-2", "oops"))
	// accepted inconsistency window, re-synced by the next fetch
	for _, m := range uc.Messages() {
		if m.ID == "m-2" {
			assert.Equal(t, "oops", m.Text)
		}
	}
	// the broadcast never went out
	assert.Empty(t, emitter.emitted(domain.EventEditMessage))
}

func TestConversationUseCase_DeleteRemovesHard(t *testing.T) {
	ctx := context.Background()
	uc, history, writeAPI, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	writeAPI.On("DeleteMessages", ctx, uc.RoomID(), []string{"m-2"}).Return(nil)

	require.NoError(t, uc.Delete(ctx, []string{"m-2"}))
	msgs := uc.Messages()
	assert.Len(t, msgs, 2)
	for _, m := range msgs {
		assert.NotEqual(t, "m-2", m.ID)
	}
}

func TestConversationUseCase_ReadReceiptFlipsOnlyTargets(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)
	require.NoError(t, uc.LoadHistory(ctx))

	sent, err := uc.Send("hi", "")
	require.NoError(t, err)
	require.False(t, sent.IsRead)

	uc.HandleEvent(domain.Event{
		Kind: domain.EventMessagesRead,
		Read: &domain.ReadPayload{RoomID: uc.RoomID(), UserID: "bob", MessageIDs: []string{sent.ID}},
	})

	msgs := uc.Messages()
	require.Len(t, msgs, 4)
	assert.True(t, msgs[3].IsRead)
	assert.Equal(t, sent.ID, msgs[3].ID)
}

// end to end walk: load three, send the fourth, peer read receipt
// flips just that one
func TestConversationUseCase_OpenSendReceiptScenario(t *testing.T) {
	ctx := context.Background()
	uc, history, _, emitter := newTestConversation(t)
	history.On("GetMessages", ctx, uc.RoomID(), "alice").Return(historyFixture(uc.RoomID()), nil)
	emitter.On("Emit", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, uc.LoadHistory(ctx))
	msgs := uc.Messages()
	require.Len(t, msgs, 3)
	assert.True(t, msgs[0].CreatedAt <= msgs[1].CreatedAt && msgs[1].CreatedAt <= msgs[2].CreatedAt)

	sent, err := uc.Send("hi", "")
	require.NoError(t, err)

	msgs = uc.Messages()
	require.Len(t, msgs, 4)
	assert.Equal(t, "alice", msgs[3].SenderID)
	assert.False(t, msgs[3].IsRead)

	uc.HandleEvent(domain.Event{
		Kind: domain.EventMessagesRead,
		Read: &domain.ReadPayload{RoomID: uc.RoomID(), UserID: "bob", MessageIDs: []string{sent.ID}},
	})

	msgs = uc.Messages()
	assert.True(t, msgs[3].IsRead)
	assert.Equal(t, "hey", msgs[0].Text)
	assert.Equal(t, "hi bob", msgs[1].Text)
	assert.Equal(t, "all set?", msgs[2].Text)
}
