package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestResolveRoomID_Symmetric(t *testing.T) {
	a := uuid.New().String()
	b := uuid.New().String()

	assert.Equal(t, ResolveRoomID(a, b), ResolveRoomID(b, a))
}

func TestResolveRoomID_Ordering(t *testing.T) {
	assert.Equal(t, "alice_bob", ResolveRoomID("bob", "alice"))
	assert.Equal(t, "alice_bob", ResolveRoomID("alice", "bob"))
}

func TestResolveRoomID_SameParticipant(t *testing.T) {
	assert.Equal(t, "alice_alice", ResolveRoomID("alice", "alice"))
}
