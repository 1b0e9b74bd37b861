package app

import (
	"context"

	"community_chat_client/internal/chat/domain"

	"github.com/stretchr/testify/mock"
)

// MockHistoryRepository Mock HistoryRepository
type MockHistoryRepository struct {
	mock.Mock
}

// GetMessages mock read room history
func (m *MockHistoryRepository) GetMessages(ctx context.Context, roomID, viewerID string) ([]domain.Message, error) {
	args := m.Called(ctx, roomID, viewerID)
	if args.Get(0) != nil {
		return args.Get(0).([]domain.Message), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockProfileRepository Mock ProfileRepository
type MockProfileRepository struct {
	mock.Mock
}

// GetProfile mock read user profile
func (m *MockProfileRepository) GetProfile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) != nil {
		return args.Get(0).(*domain.UserProfile), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockWriteAPI Mock MessageWriteAPI
type MockWriteAPI struct {
	mock.Mock
}

// EditMessage mock confirm edit
func (m *MockWriteAPI) EditMessage(ctx context.Context, roomID, messageID, newText string) error {
	args := m.Called(ctx, roomID, messageID, newText)
	return args.Error(0)
}

// DeleteMessages mock confirm delete
func (m *MockWriteAPI) DeleteMessages(ctx context.Context, roomID string, messageIDs []string) error {
	args := m.Called(ctx, roomID, messageIDs)
	return args.Error(0)
}

// MockEmitter Mock ChannelEmitter
type MockEmitter struct {
	mock.Mock
}

// Emit mock outbound frame
func (m *MockEmitter) Emit(kind domain.EventKind, payload interface{}) error {
	args := m.Called(kind, payload)
	return args.Error(0)
}

// emitted returns every payload the mock saw for one kind
func (m *MockEmitter) emitted(kind domain.EventKind) []interface{} {
	var out []interface{}
	for _, call := range m.Calls {
		if call.Method == "Emit" && call.Arguments.Get(0) == kind {
			out = append(out, call.Arguments.Get(1))
		}
	}
	return out
}
