package session

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
)

func runLottery(t *testing.T, f *fixture) {
	t.Helper()
	require.NoError(t, f.session.RunLottery(context.Background(), f.admin))
	for {
		err := f.session.RevealNextPick(context.Background(), f.admin)
		if err != nil {
			assert.Equal(t, CodeLotteryDone, AsError(err).Code)
			return
		}
	}
}

func TestStartRookieRequiresLottery(t *testing.T) {
	f := newFixture(t, models.SessionModeRookie, 4, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 2
	})

	err := f.session.Start(context.Background(), f.admin)
	require.Error(t, err)
	assert.Equal(t, CodeLotteryNotRun, AsError(err).Code)

	runLottery(t, f)
	require.NoError(t, f.session.Start(context.Background(), f.admin))
}

func TestLotteryRevealWalksBackToTopPick(t *testing.T) {
	f := newFixture(t, models.SessionModeRookie, 6, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 3
	})
	require.NoError(t, f.session.RunLottery(context.Background(), f.admin))

	started, ok := f.sink.last(events.TypeLotteryStarted)
	require.True(t, ok)
	odds := started.(events.LotteryStartedPayload).Odds
	require.Len(t, odds, 6)
	sum := 0.0
	for _, o := range odds {
		sum += o.Probability
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	// First reveal is the last live slot and discloses the rest of the board.
	require.NoError(t, f.session.RevealNextPick(context.Background(), f.admin))
	payload, _ := f.sink.last(events.TypePickRevealed)
	first := payload.(events.PickRevealedPayload)
	require.NotNil(t, first.Slot.SlotNumber)
	assert.Equal(t, 3, *first.Slot.SlotNumber)
	assert.Len(t, first.AlsoShown, 3)
	assert.Equal(t, 2, first.Remaining)

	require.NoError(t, f.session.RevealNextPick(context.Background(), f.admin))
	require.NoError(t, f.session.RevealNextPick(context.Background(), f.admin))
	payload, _ = f.sink.last(events.TypePickRevealed)
	last := payload.(events.PickRevealedPayload)
	require.NotNil(t, last.Slot.SlotNumber)
	assert.Equal(t, 1, *last.Slot.SlotNumber, "top pick comes out last")
	assert.Equal(t, 0, last.Remaining)

	err := f.session.RevealNextPick(context.Background(), f.admin)
	require.Error(t, err)
	assert.Equal(t, CodeLotteryDone, AsError(err).Code)
}

func TestRedrawBlockedOnceRevealStarts(t *testing.T) {
	f := newFixture(t, models.SessionModeRookie, 4, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 2
	})
	require.NoError(t, f.session.RunLottery(context.Background(), f.admin))
	require.NoError(t, f.session.RunLottery(context.Background(), f.admin), "redraw allowed before any reveal")

	require.NoError(t, f.session.RevealNextPick(context.Background(), f.admin))
	err := f.session.RunLottery(context.Background(), f.admin)
	require.Error(t, err)
	assert.Equal(t, CodeAlreadyStarted, AsError(err).Code)
}

func rookieFixture(t *testing.T, nTeams int, opts ...fixtureOpt) *fixture {
	t.Helper()
	f := newFixture(t, models.SessionModeRookie, nTeams, opts...)
	runLottery(t, f)
	f.start()
	return f
}

// onClockIdentity resolves the identity controlling the slot on the clock.
func (f *fixture) onClockIdentity() uuid.UUID {
	f.session.mu.Lock()
	defer f.session.mu.Unlock()
	team := f.session.board[f.session.boardIdx].CurrentOwnerTeamID
	for i, id := range f.teams {
		if id == team {
			return f.identities[i]
		}
	}
	f.t.Fatalf("no identity for team %s", team)
	return uuid.Nil
}

func TestSelectRookieHonorsClockOwner(t *testing.T) {
	f := rookieFixture(t, 4)
	rookie := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)

	onClock := f.onClockIdentity()
	var notOnClock uuid.UUID
	for _, id := range f.identities {
		if id != onClock {
			notOnClock = id
			break
		}
	}

	err := f.session.SelectRookie(context.Background(), notOnClock, rookie)
	require.Error(t, err)
	assert.Equal(t, CodeNotYourTurn, AsError(err).Code)

	require.NoError(t, f.session.SelectRookie(context.Background(), onClock, rookie))
	payload, _ := f.sink.last(events.TypePlayerPicked)
	picked := payload.(events.PlayerPickedPayload)
	assert.Equal(t, rookie, picked.PlayerID)
	assert.False(t, picked.AutoPicked)
	assert.Len(t, picked.Salaries, 3)
	require.Len(t, f.contracts.contracts, 1)
	for _, c := range f.contracts.contracts {
		assert.True(t, c.IsRookie)
		assert.Equal(t, 3, c.Years)
	}
}

func TestTradedPickClockFollowsCurrentOwner(t *testing.T) {
	f := newFixture(t, models.SessionModeRookie, 4, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 2
	})
	runLottery(t, f)

	// Trade the top pick: slot position stays with the original owner's
	// lottery result, control moves to the acquiring team.
	f.session.mu.Lock()
	top := &f.session.board[0]
	original := top.OriginalOwnerTeamID
	var acquirer uuid.UUID
	for _, team := range f.teams {
		if team != original {
			acquirer = team
			break
		}
	}
	top.CurrentOwnerTeamID = acquirer
	f.session.mu.Unlock()

	f.start()

	rookie := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)
	var originalIdentity uuid.UUID
	for i, team := range f.teams {
		if team == original {
			originalIdentity = f.identities[i]
		}
	}
	err := f.session.SelectRookie(context.Background(), originalIdentity, rookie)
	require.Error(t, err)
	assert.Equal(t, CodeNotYourTurn, AsError(err).Code, "seller no longer controls the pick")

	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie))
	payload, _ := f.sink.last(events.TypePlayerPicked)
	assert.Equal(t, acquirer, payload.(events.PlayerPickedPayload).TeamID)
}

func TestSelectRejectsNonRookieAndTaken(t *testing.T) {
	f := rookieFixture(t, 4)
	veteran := f.catalog.addPlayer("Old Hand", "C", false, 0)
	rookie := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)

	err := f.session.SelectRookie(context.Background(), f.onClockIdentity(), veteran)
	require.Error(t, err)
	assert.Equal(t, CodeNotRookie, AsError(err).Code)

	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie))
	err = f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie)
	require.Error(t, err)
	assert.Equal(t, CodePlayerTaken, AsError(err).Code)
}

func TestPickClockDefaultPolicyWaits(t *testing.T) {
	f := rookieFixture(t, 4)
	f.catalog.addPlayer("Teo Brandt", "SF", true, 1)

	before := f.onClockIdentity()
	f.clock.Advance(testPickClock)
	f.waitEvent(events.TypePickClockExpired, 1)

	payload, _ := f.sink.last(events.TypePickClockExpired)
	assert.Equal(t, string(models.PickExpiryNone), payload.(events.PickClockExpiredPayload).Action)
	assert.Equal(t, 0, f.sink.count(events.TypePlayerPicked), "nothing picked for the GM")
	assert.Equal(t, before, f.onClockIdentity(), "slot stays on the clock")

	// The GM can still pick after the clock ran out.
	rookie := f.catalog.addPlayer("Miro Salles", "PG", true, 2)
	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie))
}

func TestPickClockAutoSkip(t *testing.T) {
	f := rookieFixture(t, 4, func(cfg *models.LeagueConfig) {
		cfg.ExpiryPolicy = models.PickExpirySkip
	})

	f.session.mu.Lock()
	firstSlot := f.session.board[0].ID
	f.session.mu.Unlock()

	f.clock.Advance(testPickClock)
	f.waitEvent(events.TypePickClockExpired, 1)
	f.waitEvent(events.TypePickClockStarted, 2)

	f.session.mu.Lock()
	assert.Equal(t, 1, f.session.boardIdx, "clock moved to the next slot")
	slot := f.session.board[0]
	f.session.mu.Unlock()
	assert.Equal(t, firstSlot, slot.ID)
	assert.Nil(t, slot.PlayerID, "skipped slot stays unfilled")
}

func TestPickClockAutoBestDraftsTopRank(t *testing.T) {
	f := rookieFixture(t, 4, func(cfg *models.LeagueConfig) {
		cfg.ExpiryPolicy = models.PickExpiryBestAvailable
	})
	f.catalog.addPlayer("Miro Salles", "PG", true, 2)
	best := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)

	f.clock.Advance(testPickClock)
	f.waitEvent(events.TypePlayerPicked, 1)

	payload, _ := f.sink.last(events.TypePlayerPicked)
	picked := payload.(events.PlayerPickedPayload)
	assert.Equal(t, best, picked.PlayerID)
	assert.True(t, picked.AutoPicked)
}

func TestRookieWageScalePricing(t *testing.T) {
	f := newFixture(t, models.SessionModeRookie, 4, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 2
		cfg.WageScale = []models.WageScaleEntry{
			{SlotNumber: 1, Year1Salary: 10, Year2Salary: 11, Year3OptionPct: 20},
			{SlotNumber: 2, Year1Salary: 8, Year2Salary: 9, Year3OptionPct: 20},
			{SlotNumber: 3, Year1Salary: 6, Year2Salary: 7, Year3OptionPct: 20},
			{SlotNumber: 4, Year1Salary: 4, Year2Salary: 5, Year3OptionPct: 20},
		}
	})
	runLottery(t, f)
	f.start()

	rookie := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)
	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie))

	payload, _ := f.sink.last(events.TypePlayerPicked)
	picked := payload.(events.PlayerPickedPayload)
	assert.Equal(t, []float64{10, 11, 13.2}, picked.Salaries, "slot one terms with the year-three option bump")
}

func TestRookieDraftCompletesAtEndOfBoard(t *testing.T) {
	f := rookieFixture(t, 2, func(cfg *models.LeagueConfig) {
		cfg.LotterySlots = 1
	})
	r1 := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)
	r2 := f.catalog.addPlayer("Miro Salles", "PG", true, 2)

	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), r1))
	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), r2))

	f.waitStatus(models.SessionStatusCompleted)
	_, ok := f.sink.last(events.TypeSessionCompleted)
	assert.True(t, ok)
}

func TestUndoRookiePickReopensSlot(t *testing.T) {
	f := rookieFixture(t, 4)
	rookie := f.catalog.addPlayer("Teo Brandt", "SF", true, 1)

	onClock := f.onClockIdentity()
	require.NoError(t, f.session.SelectRookie(context.Background(), onClock, rookie))
	f.session.mu.Lock()
	assert.Equal(t, 1, f.session.boardIdx)
	f.session.mu.Unlock()

	require.NoError(t, f.session.UndoLastPick(context.Background(), f.admin))

	assert.Empty(t, f.contracts.contracts)
	f.session.mu.Lock()
	assert.Equal(t, 0, f.session.boardIdx, "clock rolled back to the undone slot")
	assert.Nil(t, f.session.board[0].PlayerID)
	f.session.mu.Unlock()

	// The same player can be picked again.
	require.NoError(t, f.session.SelectRookie(context.Background(), f.onClockIdentity(), rookie))
}
