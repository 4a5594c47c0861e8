package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
)

// settleRetryInterval is how long a lot stays open after a settlement hit a
// transient persistence failure before the timer fires again.
const settleRetryInterval = 5 * time.Second

// Nominate opens a lot for the given player. The nomination doubles as the
// opening bid: the nominator leads at the opening price and wins the player
// at that price if nobody outbids them.
func (s *Session) Nominate(ctx context.Context, identityID, playerID uuid.UUID, openingPrice float64, years int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.participantByIdentityLocked(identityID)
	if err != nil {
		return err
	}
	if err := s.requireAuctionRunningLocked(); err != nil {
		return err
	}
	if s.lot != nil {
		return conflictErr(CodeLotOpen, "a lot is already open for %s", s.lot.PlayerName)
	}
	if p.TeamID != s.participants[s.turnIndex].TeamID {
		return validationErr(CodeNotYourTurn, "it is not your turn to nominate")
	}
	if years < 1 || years > 3 {
		return validationErr(CodeInvalidYears, "contract years must be 1-3, got %d", years)
	}
	if openingPrice <= 0 {
		return validationErr(CodeInvalidAmount, "opening price must be positive")
	}
	if s.takenPlayers[playerID] {
		return validationErr(CodePlayerTaken, "player already rostered in this draft")
	}

	player, err := s.catalog.GetPlayer(ctx, playerID)
	if err != nil {
		return validationErr(CodePlayerUnknown, "player %s not found", playerID)
	}

	year1 := models.FrontLoadedYear1(openingPrice, years)
	if _, err := s.ledger.TryReserve(p.TeamID, year1, player.Position); err != nil {
		return ledgerErr(err)
	}

	now := s.clock.Now()
	s.lot = &models.Lot{
		PlayerID:         playerID,
		PlayerName:       player.FullName,
		Position:         player.Position,
		OpeningPrice:     openingPrice,
		CurrentBidTotal:  openingPrice,
		CurrentBidYears:  years,
		CurrentBidYear1:  year1,
		HighBidderTeamID: p.TeamID,
		BidEndTime:       now.Add(s.cfg.BidWindow),
		Bids: []models.Bid{{
			ID:           uuid.New(),
			PlayerID:     playerID,
			BidderTeamID: p.TeamID,
			TotalAmount:  openingPrice,
			Years:        years,
			PlacedAt:     now,
		}},
	}
	s.nominatorTeam = p.TeamID
	s.armLotTimerLocked(s.cfg.BidWindow)

	s.emitLocked(ctx, events.TypeLotOpened, events.LotOpenedPayload{
		LeagueID:        s.leagueID,
		NominatorTeamID: p.TeamID,
		Lot:             lotState(s.lot),
	})
	s.logger.Info().
		Str("player_id", playerID.String()).
		Str("nominator", p.TeamID.String()).
		Float64("opening_price", openingPrice).
		Msg("lot opened")
	return nil
}

// PlaceBid records a higher offer on the open lot. Totals must strictly
// exceed the current bid regardless of years; matching the total with a
// different contract length is not a raise.
func (s *Session) PlaceBid(ctx context.Context, identityID uuid.UUID, totalAmount float64, years int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.participantByIdentityLocked(identityID)
	if err != nil {
		return err
	}
	if err := s.requireAuctionRunningLocked(); err != nil {
		return err
	}
	if s.lot == nil {
		return conflictErr(CodeNoLotOpen, "no lot is open")
	}
	now := s.clock.Now()
	if !now.Before(s.lot.BidEndTime) {
		return conflictErr(CodeLotClosed, "bidding on %s has closed", s.lot.PlayerName)
	}
	if years < 1 || years > 3 {
		return validationErr(CodeInvalidYears, "contract years must be 1-3, got %d", years)
	}
	if totalAmount <= s.lot.CurrentBidTotal {
		return validationErr(CodeBidTooLow, "bid must exceed %.1f", s.lot.CurrentBidTotal)
	}

	year1 := models.FrontLoadedYear1(totalAmount, years)
	if _, err := s.ledger.TryReserve(p.TeamID, year1, s.lot.Position); err != nil {
		return ledgerErr(err)
	}

	s.lot.CurrentBidTotal = totalAmount
	s.lot.CurrentBidYears = years
	s.lot.CurrentBidYear1 = year1
	s.lot.HighBidderTeamID = p.TeamID
	s.lot.Bids = append(s.lot.Bids, models.Bid{
		ID:           uuid.New(),
		PlayerID:     s.lot.PlayerID,
		BidderTeamID: p.TeamID,
		TotalAmount:  totalAmount,
		Years:        years,
		PlacedAt:     now,
	})

	// Anti-snipe: a late bid pushes the close out to one threshold from now.
	// Early bids never move the clock and nothing ever shortens it.
	extended := false
	if remaining := s.lot.BidEndTime.Sub(now); remaining < s.cfg.AntiSnipe {
		s.lot.BidEndTime = now.Add(s.cfg.AntiSnipe)
		s.armLotTimerLocked(s.cfg.AntiSnipe)
		extended = true
	}

	s.emitLocked(ctx, events.TypeBidUpdate, events.BidUpdatePayload{
		LeagueID: s.leagueID,
		Lot:      lotState(s.lot),
		Extended: extended,
		Budgets:  s.teamBudgetsLocked(),
	})
	s.logger.Info().
		Str("bidder", p.TeamID.String()).
		Float64("total", totalAmount).
		Int("years", years).
		Bool("extended", extended).
		Msg("bid accepted")
	return nil
}

// VoidLot abandons the open lot without a sale. Nomination rights stay with
// the same seat so the lot can be rerun.
func (s *Session) VoidLot(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.lot == nil {
		return conflictErr(CodeNoLotOpen, "no lot is open")
	}

	voided := s.lot.PlayerID
	s.stopTimerLocked()
	s.lot = nil
	s.nominatorTeam = uuid.Nil

	s.emitLocked(ctx, events.TypeLotVoided, map[string]any{
		"league_id": s.leagueID,
		"player_id": voided,
	})
	s.emitAuctionStateLocked(ctx)
	s.logger.Info().Str("player_id", voided.String()).Msg("lot voided")
	return nil
}

func (s *Session) requireAuctionRunningLocked() error {
	if s.mode != models.SessionModeAuction {
		return validationErr(CodeNotInProgress, "not an auction session")
	}
	switch s.status {
	case models.SessionStatusInProgress:
		return nil
	case models.SessionStatusPaused:
		return conflictErr(CodePaused, "draft is paused")
	case models.SessionStatusCompleted, models.SessionStatusCancelled:
		return validationErr(CodeCompleted, "draft has finished")
	default:
		return conflictErr(CodeNotInProgress, "draft has not started")
	}
}

// armLotTimerLocked schedules settlement. Timer callbacks run detached
// from any request, so they carry a background context.
func (s *Session) armLotTimerLocked(d time.Duration) {
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, func() {
		s.onLotExpiry(gen)
	})
}

// onLotExpiry runs when the bid window closes. The generation guard drops
// stale callbacks from timers that were extended or stopped after this one
// was armed.
func (s *Session) onLotExpiry(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.status != models.SessionStatusInProgress || s.lot == nil {
		return
	}
	s.settleLotLocked(context.Background())
}

// settleLotLocked awards the lot to the high bidder, commits the contract
// and advances nomination rights. A persistence failure keeps the lot open
// and retries shortly.
func (s *Session) settleLotLocked(ctx context.Context) {
	lot := s.lot
	res, err := s.ledger.TryReserve(lot.HighBidderTeamID, lot.CurrentBidYear1, lot.Position)
	if err != nil {
		// The leading bid was affordable when accepted. Reaching here means
		// the books changed underneath us, void rather than guess.
		s.logger.Error().Err(err).Str("player_id", lot.PlayerID.String()).Msg("settlement reservation failed, voiding lot")
		s.stopTimerLocked()
		s.lot = nil
		s.emitAuctionStateLocked(ctx)
		return
	}

	contract := models.NewAuctionContract(
		s.leagueID, lot.HighBidderTeamID, lot.PlayerID, lot.Position,
		lot.CurrentBidTotal, lot.CurrentBidYears, s.clock.Now(),
	)
	if err := s.ledger.Commit(ctx, res, contract); err != nil {
		s.logger.Error().Err(err).Str("player_id", lot.PlayerID.String()).Msg("settlement persist failed, retrying")
		lot.BidEndTime = s.clock.Now().Add(settleRetryInterval)
		s.armLotTimerLocked(settleRetryInterval)
		return
	}

	preSettlement := *lot
	s.undoStack = append(s.undoStack, settlementRecord{
		contract:      contract,
		lot:           &preSettlement,
		nominatorTeam: s.nominatorTeam,
		turnIndex:     s.turnIndex,
		direction:     s.direction,
	})
	s.takenPlayers[lot.PlayerID] = true
	s.stopTimerLocked()
	s.lot = nil
	s.nominatorTeam = uuid.Nil
	s.advanceTurnLocked()

	payload := events.PlayerSoldPayload{
		LeagueID:     s.leagueID,
		PlayerID:     contract.PlayerID,
		PlayerName:   preSettlement.PlayerName,
		WinnerTeamID: contract.TeamID,
		TotalAmount:  preSettlement.CurrentBidTotal,
		Years:        contract.Years,
		Salaries:     contractSalaries(contract),
		NextTurnTeam: s.currentTurnTeamLocked(),
		Budgets:      s.teamBudgetsLocked(),
	}
	s.emitLocked(ctx, events.TypePlayerSold, payload)
	s.logger.Info().
		Str("player_id", contract.PlayerID.String()).
		Str("winner", contract.TeamID.String()).
		Float64("total", preSettlement.CurrentBidTotal).
		Msg("player sold")

	if s.allRostersFullLocked() {
		s.terminateLocked(ctx, models.SessionStatusCompleted)
	}
}

func (s *Session) allRostersFullLocked() bool {
	for _, st := range s.ledger.Teams() {
		if st.RosterCount < s.cfg.RosterLimit {
			return false
		}
	}
	return true
}

func contractSalaries(c models.Contract) []float64 {
	switch c.Years {
	case 1:
		return []float64{c.SalaryYear1}
	case 2:
		return []float64{c.SalaryYear1, c.SalaryYear2}
	default:
		return []float64{c.SalaryYear1, c.SalaryYear2, c.SalaryYear3}
	}
}
