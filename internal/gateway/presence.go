package gateway

import (
	"sort"
	"sync"

	"github.com/google/uuid"
)

// presenceTracker counts live connections per identity within one league.
// An identity with several tabs open is present once; presence is advisory
// and never persisted.
type presenceTracker struct {
	counts map[uuid.UUID]int
}

func newPresenceTracker() *presenceTracker {
	return &presenceTracker{counts: make(map[uuid.UUID]int)}
}

// join returns true when this is the identity's first live connection.
func (p *presenceTracker) join(identityID uuid.UUID) bool {
	p.counts[identityID]++
	return p.counts[identityID] == 1
}

// leave returns true when the identity's last connection dropped.
func (p *presenceTracker) leave(identityID uuid.UUID) bool {
	n, ok := p.counts[identityID]
	if !ok {
		return false
	}
	if n <= 1 {
		delete(p.counts, identityID)
		return true
	}
	p.counts[identityID] = n - 1
	return false
}

func (p *presenceTracker) identities() []string {
	out := make([]string, 0, len(p.counts))
	for id := range p.counts {
		out = append(out, id.String())
	}
	sort.Strings(out)
	return out
}

func (p *presenceTracker) empty() bool {
	return len(p.counts) == 0
}

// Presence holds one tracker per league, created on a league's first
// connection and torn down with its last.
type Presence struct {
	mu       sync.Mutex
	trackers map[uuid.UUID]*presenceTracker
}

func NewPresence() *Presence {
	return &Presence{trackers: make(map[uuid.UUID]*presenceTracker)}
}

// Join registers a connection and reports whether the identity just became
// present, along with the league's full member list.
func (p *Presence) Join(leagueID, identityID uuid.UUID) (joined bool, members []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, ok := p.trackers[leagueID]
	if !ok {
		tracker = newPresenceTracker()
		p.trackers[leagueID] = tracker
	}
	return tracker.join(identityID), tracker.identities()
}

// Leave unregisters a connection and reports whether the identity dropped
// out of the league entirely.
func (p *Presence) Leave(leagueID, identityID uuid.UUID) (left bool, members []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, ok := p.trackers[leagueID]
	if !ok {
		return false, nil
	}
	left = tracker.leave(identityID)
	members = tracker.identities()
	if tracker.empty() {
		delete(p.trackers, leagueID)
	}
	return left, members
}

// Members returns the league's present identities.
func (p *Presence) Members(leagueID uuid.UUID) []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	tracker, ok := p.trackers[leagueID]
	if !ok {
		return nil
	}
	return tracker.identities()
}
