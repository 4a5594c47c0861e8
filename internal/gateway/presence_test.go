package gateway

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestPresenceCountsIdentitiesNotConnections(t *testing.T) {
	p := NewPresence()
	leagueID := uuid.New()
	alice := uuid.New()
	bob := uuid.New()

	joined, members := p.Join(leagueID, alice)
	assert.True(t, joined)
	assert.Len(t, members, 1)

	// Second tab for the same identity is not a new join.
	joined, members = p.Join(leagueID, alice)
	assert.False(t, joined)
	assert.Len(t, members, 1)

	joined, _ = p.Join(leagueID, bob)
	assert.True(t, joined)
	assert.Len(t, p.Members(leagueID), 2)

	// Closing one of two tabs keeps the identity present.
	left, members := p.Leave(leagueID, alice)
	assert.False(t, left)
	assert.Len(t, members, 2)

	left, members = p.Leave(leagueID, alice)
	assert.True(t, left)
	assert.Len(t, members, 1)
}

func TestPresenceTearsDownEmptyLeagues(t *testing.T) {
	p := NewPresence()
	leagueID := uuid.New()
	alice := uuid.New()

	p.Join(leagueID, alice)
	p.Leave(leagueID, alice)

	assert.Empty(t, p.Members(leagueID))
	p.mu.Lock()
	_, exists := p.trackers[leagueID]
	p.mu.Unlock()
	assert.False(t, exists, "tracker removed with the last connection")
}

func TestPresenceLeaveUnknownLeague(t *testing.T) {
	p := NewPresence()
	left, members := p.Leave(uuid.New(), uuid.New())
	assert.False(t, left)
	assert.Nil(t, members)
}
