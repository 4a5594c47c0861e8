package session

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
)

const (
	testBidWindow = 30 * time.Second
	testAntiSnipe = 10 * time.Second
	testPickClock = 120 * time.Second
)

type capturedEvent struct {
	Type    events.Type
	Payload any
}

type captureSink struct {
	mu     sync.Mutex
	events []capturedEvent
}

func (c *captureSink) Emit(_ context.Context, _ uuid.UUID, t events.Type, payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, capturedEvent{Type: t, Payload: payload})
	return nil
}

func (c *captureSink) last(t events.Type) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := len(c.events) - 1; i >= 0; i-- {
		if c.events[i].Type == t {
			return c.events[i].Payload, true
		}
	}
	return nil, false
}

func (c *captureSink) count(t events.Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, e := range c.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

type fakeLeagueRepo struct {
	cfg          models.LeagueConfig
	participants []models.Participant
	standings    []models.TeamStanding
	admins       []uuid.UUID
}

func (f *fakeLeagueRepo) GetLeagueConfig(context.Context, uuid.UUID) (models.LeagueConfig, error) {
	return f.cfg, nil
}

func (f *fakeLeagueRepo) ListParticipants(context.Context, uuid.UUID) ([]models.Participant, error) {
	return f.participants, nil
}

func (f *fakeLeagueRepo) ListStandings(context.Context, uuid.UUID) ([]models.TeamStanding, error) {
	return f.standings, nil
}

func (f *fakeLeagueRepo) ListAdminIdentities(context.Context, uuid.UUID) ([]uuid.UUID, error) {
	return f.admins, nil
}

type fakePickRepo struct {
	mu    sync.Mutex
	slots map[uuid.UUID]models.PickSlot
}

func newFakePickRepo() *fakePickRepo {
	return &fakePickRepo{slots: make(map[uuid.UUID]models.PickSlot)}
}

func (f *fakePickRepo) ListPickSlots(_ context.Context, leagueID uuid.UUID, _ int) ([]models.PickSlot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.PickSlot
	for _, s := range f.slots {
		if s.LeagueID == leagueID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (f *fakePickRepo) UpdatePickSlot(_ context.Context, slot models.PickSlot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.slots[slot.ID] = slot
	return nil
}

type fakeCatalog struct {
	players map[uuid.UUID]models.CatalogPlayer
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{players: make(map[uuid.UUID]models.CatalogPlayer)}
}

func (f *fakeCatalog) addPlayer(name, position string, rookie bool, rank int) uuid.UUID {
	id := uuid.New()
	p := models.CatalogPlayer{ID: id, FullName: name, Position: position, IsRookie: rookie}
	if rank > 0 {
		p.DraftRank = &rank
	}
	f.players[id] = p
	return id
}

func (f *fakeCatalog) GetPlayer(_ context.Context, id uuid.UUID) (models.CatalogPlayer, error) {
	p, ok := f.players[id]
	if !ok {
		return models.CatalogPlayer{}, assert.AnError
	}
	return p, nil
}

func (f *fakeCatalog) ListAvailableRookies(context.Context, uuid.UUID, int) ([]models.CatalogPlayer, error) {
	var out []models.CatalogPlayer
	for _, p := range f.players {
		if p.IsRookie {
			out = append(out, p)
		}
	}
	// Best rank first; rankless rookies go last.
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			ri, rj := rankOf(out[i]), rankOf(out[j])
			if rj < ri {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func rankOf(p models.CatalogPlayer) int {
	if p.DraftRank == nil {
		return 1 << 30
	}
	return *p.DraftRank
}

type memContractRepo struct {
	mu        sync.Mutex
	contracts map[uuid.UUID]models.Contract
	insertErr error
}

func newMemContractRepo() *memContractRepo {
	return &memContractRepo{contracts: make(map[uuid.UUID]models.Contract)}
}

func (m *memContractRepo) InsertContract(_ context.Context, c models.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	m.contracts[c.ID] = c
	return nil
}

func (m *memContractRepo) DeleteContract(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.contracts, id)
	return nil
}

func (m *memContractRepo) ListContractsByLeague(_ context.Context, leagueID uuid.UUID) ([]models.Contract, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Contract
	for _, c := range m.contracts {
		if c.LeagueID == leagueID {
			out = append(out, c)
		}
	}
	return out, nil
}

type fixture struct {
	t         *testing.T
	clock     *clockwork.FakeClock
	sink      *captureSink
	league    *fakeLeagueRepo
	picks     *fakePickRepo
	catalog   *fakeCatalog
	contracts *memContractRepo
	session   *Session

	leagueID   uuid.UUID
	teams      []uuid.UUID
	identities []uuid.UUID
	admin      uuid.UUID
}

type fixtureOpt func(*models.LeagueConfig)

func newFixture(t *testing.T, mode models.SessionMode, nTeams int, opts ...fixtureOpt) *fixture {
	t.Helper()

	leagueID := uuid.New()
	cfg := models.LeagueConfig{
		LeagueID:     leagueID,
		Season:       2026,
		SalaryCap:    200,
		RosterLimit:  15,
		BidWindow:    testBidWindow,
		AntiSnipe:    testAntiSnipe,
		PickClock:    testPickClock,
		TurnOrder:    models.TurnOrderFixed,
		LotterySlots: 4,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	f := &fixture{
		t:         t,
		clock:     clockwork.NewFakeClock(),
		sink:      &captureSink{},
		picks:     newFakePickRepo(),
		catalog:   newFakeCatalog(),
		contracts: newMemContractRepo(),
		leagueID:  leagueID,
	}

	var participants []models.Participant
	for i := 0; i < nTeams; i++ {
		teamID := uuid.New()
		identID := uuid.New()
		f.teams = append(f.teams, teamID)
		f.identities = append(f.identities, identID)
		participants = append(participants, models.Participant{
			TeamID:     teamID,
			IdentityID: identID,
			TeamName:   "Team " + string(rune('A'+i)),
		})
	}
	f.admin = f.identities[0]

	var standings []models.TeamStanding
	for i, teamID := range f.teams {
		// Team 0 has the worst record.
		standings = append(standings, models.TeamStanding{
			TeamID: teamID, TeamName: participants[i].TeamName,
			Wins: i, Losses: nTeams - i,
		})
	}

	f.league = &fakeLeagueRepo{
		cfg:          cfg,
		participants: participants,
		standings:    standings,
		admins:       []uuid.UUID{f.admin},
	}

	if mode == models.SessionModeRookie {
		for _, teamID := range f.teams {
			slot := models.PickSlot{
				ID:                  uuid.New(),
				LeagueID:            leagueID,
				Season:              cfg.Season,
				Round:               1,
				OriginalOwnerTeamID: teamID,
				CurrentOwnerTeamID:  teamID,
			}
			f.picks.slots[slot.ID] = slot
		}
	}

	s, err := New(context.Background(), leagueID, mode, Deps{
		Clock:     f.clock,
		Sink:      f.sink,
		Rand:      rand.New(rand.NewSource(1)),
		Leagues:   f.league,
		Picks:     f.picks,
		Catalog:   f.catalog,
		Contracts: f.contracts,
		Logger:    zerolog.Nop(),
	})
	require.NoError(t, err)
	f.session = s
	return f
}

func (f *fixture) start() {
	f.t.Helper()
	require.NoError(f.t, f.session.Start(context.Background(), f.admin))
}

// waitStatus polls for the session to reach a status, for assertions that
// follow a timer firing.
func (f *fixture) waitStatus(want models.SessionStatus) {
	f.t.Helper()
	require.Eventually(f.t, func() bool {
		f.session.mu.Lock()
		defer f.session.mu.Unlock()
		return f.session.status == want
	}, time.Second, 5*time.Millisecond)
}

func (f *fixture) waitEvent(t events.Type, n int) {
	f.t.Helper()
	require.Eventually(f.t, func() bool {
		return f.sink.count(t) >= n
	}, time.Second, 5*time.Millisecond)
}

func TestStartRequiresAdmin(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)

	err := f.session.Start(context.Background(), f.identities[1])
	require.Error(t, err)
	assert.Equal(t, CodeNotAdmin, AsError(err).Code)

	require.NoError(t, f.session.Start(context.Background(), f.admin))
	_, ok := f.sink.last(events.TypeSessionStarted)
	assert.True(t, ok)
}

func TestStartTwiceConflicts(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	err := f.session.Start(context.Background(), f.admin)
	require.Error(t, err)
	se := AsError(err)
	assert.Equal(t, CodeAlreadyStarted, se.Code)
	assert.Equal(t, ClassConflict, se.Class)
}

func TestPauseFreezesBidClock(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	playerID := f.catalog.addPlayer("Nikola Vukic", "C", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 20, 2))

	// Burn most of the window, then pause with 10s left.
	f.clock.Advance(testBidWindow - 10*time.Second)
	require.NoError(t, f.session.Pause(context.Background(), f.admin))

	// Time passing while paused must not settle the lot.
	f.clock.Advance(time.Hour)
	_, sold := f.sink.last(events.TypePlayerSold)
	assert.False(t, sold)

	require.NoError(t, f.session.Resume(context.Background(), f.admin))
	f.clock.Advance(9 * time.Second)
	_, sold = f.sink.last(events.TypePlayerSold)
	assert.False(t, sold, "frozen time restored on resume")

	f.clock.Advance(time.Second)
	f.waitEvent(events.TypePlayerSold, 1)
}

func TestBidRejectedWhilePaused(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	playerID := f.catalog.addPlayer("Jaylen Hart", "SG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))
	require.NoError(t, f.session.Pause(context.Background(), f.admin))

	err := f.session.PlaceBid(context.Background(), f.identities[1], 15, 1)
	require.Error(t, err)
	assert.Equal(t, CodePaused, AsError(err).Code)
}

func TestForceStopCancels(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	require.NoError(t, f.session.ForceStop(context.Background(), f.admin))
	f.session.mu.Lock()
	assert.Equal(t, models.SessionStatusCancelled, f.session.status)
	f.session.mu.Unlock()

	_, ok := f.sink.last(events.TypeSessionCompleted)
	assert.True(t, ok)

	err := f.session.Nominate(context.Background(), f.identities[0], uuid.New(), 10, 1)
	require.Error(t, err)
	assert.Equal(t, CodeCompleted, AsError(err).Code)
}

func TestSnapshotMatchesMode(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	snap, ok := f.session.Snapshot().(events.AuctionState)
	require.True(t, ok)
	assert.Equal(t, string(models.SessionStatusInProgress), snap.Status)
	assert.Len(t, snap.Teams, 4)
	require.NotNil(t, snap.CurrentTurnTeam)
	assert.Equal(t, f.teams[0], *snap.CurrentTurnTeam)
	for _, tb := range snap.Teams {
		assert.Equal(t, 200.0, tb.RemainingBudget)
	}
}
