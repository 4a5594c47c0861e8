package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
)

func TestNominateOnlyOnYourTurn(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)

	err := f.session.Nominate(context.Background(), f.identities[2], playerID, 10, 1)
	require.Error(t, err)
	assert.Equal(t, CodeNotYourTurn, AsError(err).Code)

	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))
}

func TestNominationIsOpeningBid(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)

	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 12, 3))

	f.session.mu.Lock()
	lot := f.session.lot
	require.NotNil(t, lot)
	assert.Equal(t, f.teams[0], lot.HighBidderTeamID)
	assert.Equal(t, 12.0, lot.CurrentBidTotal)
	assert.Equal(t, 3, lot.CurrentBidYears)
	assert.Equal(t, 4.0, lot.CurrentBidYear1, "12 over 3 years front-loads to 4")
	assert.Len(t, lot.Bids, 1)
	f.session.mu.Unlock()
}

func TestBidMustStrictlyExceedTotal(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 20, 2))

	// Equal total with different years is not a raise.
	err := f.session.PlaceBid(context.Background(), f.identities[1], 20, 3)
	require.Error(t, err)
	assert.Equal(t, CodeBidTooLow, AsError(err).Code)

	err = f.session.PlaceBid(context.Background(), f.identities[1], 19, 1)
	require.Error(t, err)
	assert.Equal(t, CodeBidTooLow, AsError(err).Code)

	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 21, 3))
}

func TestBidRejectsBadYearsAndUnknownLot(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()

	err := f.session.PlaceBid(context.Background(), f.identities[1], 10, 1)
	require.Error(t, err)
	assert.Equal(t, CodeNoLotOpen, AsError(err).Code)

	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))

	err = f.session.PlaceBid(context.Background(), f.identities[1], 15, 4)
	require.Error(t, err)
	assert.Equal(t, CodeInvalidYears, AsError(err).Code)
}

func TestBidRejectsOverBudget(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))

	err := f.session.PlaceBid(context.Background(), f.identities[1], 201, 1)
	require.Error(t, err)
	se := AsError(err)
	assert.Equal(t, CodeInsufficientBudget, se.Code)
	assert.Equal(t, ClassValidation, se.Class)

	// A one-year 201 bid fails, but spread over 3 years it fits the cap.
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 201, 3))
}

func TestAntiSnipeExtendsOnlyLateBids(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))

	deadline := func() time.Time {
		f.session.mu.Lock()
		defer f.session.mu.Unlock()
		return f.session.lot.BidEndTime
	}
	start := deadline()

	// An early bid leaves the clock alone.
	f.clock.Advance(5 * time.Second)
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 11, 1))
	assert.Equal(t, start, deadline())
	payload, _ := f.sink.last(events.TypeBidUpdate)
	assert.False(t, payload.(events.BidUpdatePayload).Extended)

	// A bid inside the threshold moves the close to exactly now+threshold.
	f.clock.Advance(testBidWindow - 5*time.Second - 3*time.Second)
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[2], 12, 1))
	assert.Equal(t, f.clock.Now().Add(testAntiSnipe), deadline())
	payload, _ = f.sink.last(events.TypeBidUpdate)
	assert.True(t, payload.(events.BidUpdatePayload).Extended)

	// The stale original timer must not settle at the old deadline.
	f.clock.Advance(3 * time.Second)
	_, sold := f.sink.last(events.TypePlayerSold)
	assert.False(t, sold)

	f.clock.Advance(testAntiSnipe - 3*time.Second)
	f.waitEvent(events.TypePlayerSold, 1)
}

func TestSettlementAwardsHighBidder(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 25, 2))

	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	payload, _ := f.sink.last(events.TypePlayerSold)
	sold := payload.(events.PlayerSoldPayload)
	assert.Equal(t, f.teams[1], sold.WinnerTeamID)
	assert.Equal(t, 25.0, sold.TotalAmount)
	assert.Equal(t, []float64{12, 13}, sold.Salaries, "remainder lands on the final year")
	require.NotNil(t, sold.NextTurnTeam)
	assert.Equal(t, f.teams[1], *sold.NextTurnTeam, "nomination rights rotate")

	require.Len(t, f.contracts.contracts, 1)
	snap := f.session.Snapshot().(events.AuctionState)
	for _, tb := range snap.Teams {
		if tb.TeamID == f.teams[1] {
			assert.Equal(t, 188.0, tb.RemainingBudget)
			assert.Equal(t, 1, tb.RosterCount)
		}
	}
}

func TestUncontestedLotGoesToNominator(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 7, 1))

	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	payload, _ := f.sink.last(events.TypePlayerSold)
	sold := payload.(events.PlayerSoldPayload)
	assert.Equal(t, f.teams[0], sold.WinnerTeamID)
	assert.Equal(t, 7.0, sold.TotalAmount)
}

func TestLateBidAfterCloseRejected(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))

	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	err := f.session.PlaceBid(context.Background(), f.identities[1], 15, 1)
	require.Error(t, err)
	se := AsError(err)
	assert.Equal(t, CodeNoLotOpen, se.Code)
	assert.Equal(t, ClassConflict, se.Class)
}

func TestSoldPlayerCannotBeRenominated(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))
	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	err := f.session.Nominate(context.Background(), f.identities[1], playerID, 5, 1)
	require.Error(t, err)
	assert.Equal(t, CodePlayerTaken, AsError(err).Code)
}

func TestFrozenBudgetShownForHighBidder(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 30, 2))

	snap := f.session.Snapshot().(events.AuctionState)
	for _, tb := range snap.Teams {
		if tb.TeamID == f.teams[0] {
			assert.Equal(t, 185.0, tb.RemainingBudget, "leading bid's year one shown frozen")
		} else {
			assert.Equal(t, 200.0, tb.RemainingBudget)
		}
	}

	// Lead changes hands, the freeze follows it.
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 40, 2))
	snap = f.session.Snapshot().(events.AuctionState)
	for _, tb := range snap.Teams {
		switch tb.TeamID {
		case f.teams[0]:
			assert.Equal(t, 200.0, tb.RemainingBudget)
		case f.teams[1]:
			assert.Equal(t, 180.0, tb.RemainingBudget)
		}
	}
}

func TestVoidLotKeepsNominationSeat(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))

	require.NoError(t, f.session.VoidLot(context.Background(), f.admin))

	f.session.mu.Lock()
	assert.Nil(t, f.session.lot)
	assert.Equal(t, 0, f.session.turnIndex)
	f.session.mu.Unlock()

	// The voided timer must not fire a phantom settlement.
	f.clock.Advance(testBidWindow)
	assert.Equal(t, 0, f.sink.count(events.TypePlayerSold))

	// Same seat renominates, even the same player.
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 8, 1))
}

func TestUndoReversesSettlement(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 4)
	f.start()
	playerID := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], playerID, 10, 1))
	require.NoError(t, f.session.PlaceBid(context.Background(), f.identities[1], 30, 2))
	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	require.NoError(t, f.session.UndoLastPick(context.Background(), f.admin))

	assert.Empty(t, f.contracts.contracts, "contract removed from the books")
	f.session.mu.Lock()
	require.NotNil(t, f.session.lot, "lot reopens with its pre-settlement bid")
	assert.Equal(t, 30.0, f.session.lot.CurrentBidTotal)
	assert.Equal(t, f.teams[1], f.session.lot.HighBidderTeamID)
	assert.Equal(t, 0, f.session.turnIndex, "turn rolled back to the settled lot's seat")
	f.session.mu.Unlock()

	// Nothing left to undo.
	err := f.session.UndoLastPick(context.Background(), f.admin)
	require.Error(t, err)
	assert.Equal(t, CodeNothingToUndo, AsError(err).Code)
}

func TestAuctionCompletesWhenRostersFull(t *testing.T) {
	f := newFixture(t, models.SessionModeAuction, 2, func(cfg *models.LeagueConfig) {
		cfg.RosterLimit = 1
	})
	f.start()

	p1 := f.catalog.addPlayer("Marcus Reed", "PG", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[0], p1, 10, 1))
	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 1)

	p2 := f.catalog.addPlayer("Dario Mielke", "C", false, 0)
	require.NoError(t, f.session.Nominate(context.Background(), f.identities[1], p2, 10, 1))
	f.clock.Advance(testBidWindow)
	f.waitEvent(events.TypePlayerSold, 2)

	f.waitStatus(models.SessionStatusCompleted)
	_, ok := f.sink.last(events.TypeSessionCompleted)
	assert.True(t, ok)
}
