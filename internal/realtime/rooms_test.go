package realtime

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRooms_JoinIsIdempotent(t *testing.T) {
	rooms := NewRooms(NewRegistry())

	assert.True(t, rooms.Join("m1", "alice"))
	assert.False(t, rooms.Join("m1", "alice"))
	assert.True(t, rooms.Join("m1", "bob"))

	assert.Equal(t, []string{"alice", "bob"}, rooms.Members("m1"))
	assert.True(t, rooms.IsMember("m1", "bob"))
	assert.False(t, rooms.IsMember("m2", "bob"))
}

func TestRooms_BroadcastSkipsBrokenMember(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRooms(reg)

	alice := &fakeChannel{}
	bob := &fakeChannel{broken: true}
	carol := &fakeChannel{}
	reg.Register("alice", alice)
	reg.Register("bob", bob)
	reg.Register("carol", carol)

	for _, user := range []string{"alice", "bob", "carol"} {
		rooms.Join("m1", user)
	}

	delivered := rooms.Broadcast("m1", MatchStartedMessage{Type: TypeMatchStarted, MatchID: "m1"})

	assert.Equal(t, 2, delivered)
	require.Len(t, alice.received(), 1)
	require.Len(t, carol.received(), 1)
	assert.False(t, reg.Connected("bob"))

	var msg MatchStartedMessage
	require.NoError(t, json.Unmarshal(carol.received()[0], &msg))
	assert.Equal(t, TypeMatchStarted, msg.Type)
	assert.Equal(t, "m1", msg.MatchID)
}

func TestRooms_BroadcastCountsOnlyConnectedMembers(t *testing.T) {
	reg := NewRegistry()
	rooms := NewRooms(reg)
	reg.Register("alice", &fakeChannel{})

	rooms.Join("m1", "alice")
	rooms.Join("m1", "offline")

	assert.Equal(t, 1, rooms.Broadcast("m1", ErrorMessage{Type: TypeError}))
	assert.Equal(t, 0, rooms.Broadcast("unknown", ErrorMessage{Type: TypeError}))
}

func TestRooms_Close(t *testing.T) {
	rooms := NewRooms(NewRegistry())
	rooms.Join("m1", "alice")
	rooms.Join("m1", "bob")
	rooms.Join("m2", "alice")

	rooms.Close("m1")
	assert.Empty(t, rooms.Members("m1"))
	assert.False(t, rooms.IsMember("m1", "bob"))
	assert.Equal(t, 1, rooms.Count())

	rooms.Close("m1")
	assert.Equal(t, []string{"alice"}, rooms.Members("m2"))
}
