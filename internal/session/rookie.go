package session

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
)

// orderBoard sorts slots into pick order: round ascending, then slot number
// ascending. Unnumbered slots sort after numbered ones within their round
// and keep repository order among themselves.
func orderBoard(slots []models.PickSlot) []models.PickSlot {
	out := make([]models.PickSlot, len(slots))
	copy(out, slots)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Round != out[j].Round {
			return out[i].Round < out[j].Round
		}
		si, sj := out[i].SlotNumber, out[j].SlotNumber
		switch {
		case si == nil && sj == nil:
			return false
		case si == nil:
			return false
		case sj == nil:
			return true
		default:
			return *si < *sj
		}
	})
	return out
}

// SelectRookie makes the pick for the slot on the clock. The caller must
// control the slot's current owner, which follows trades rather than the
// lottery position.
func (s *Session) SelectRookie(ctx context.Context, identityID, playerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.participantByIdentityLocked(identityID)
	if err != nil {
		return err
	}
	if err := s.requireRookieRunningLocked(); err != nil {
		return err
	}
	slot := &s.board[s.boardIdx]
	if p.TeamID != slot.CurrentOwnerTeamID {
		return validationErr(CodeNotYourTurn, "team %s is not on the clock", p.TeamID)
	}
	return s.makePickLocked(ctx, slot, playerID, false)
}

func (s *Session) requireRookieRunningLocked() error {
	if s.mode != models.SessionModeRookie {
		return validationErr(CodeNotInProgress, "not a rookie draft session")
	}
	switch s.status {
	case models.SessionStatusInProgress:
	case models.SessionStatusPaused:
		return conflictErr(CodePaused, "draft is paused")
	case models.SessionStatusCompleted, models.SessionStatusCancelled:
		return validationErr(CodeCompleted, "draft has finished")
	default:
		return conflictErr(CodeNotInProgress, "draft has not started")
	}
	if s.boardIdx >= len(s.board) {
		return validationErr(CodeCompleted, "no pick slots remain")
	}
	return nil
}

// makePickLocked validates and settles one rookie selection on the given
// slot, then advances the clock to the next open slot.
func (s *Session) makePickLocked(ctx context.Context, slot *models.PickSlot, playerID uuid.UUID, auto bool) error {
	if s.takenPlayers[playerID] {
		return validationErr(CodePlayerTaken, "player already drafted")
	}
	player, err := s.catalog.GetPlayer(ctx, playerID)
	if err != nil {
		return validationErr(CodePlayerUnknown, "player %s not found", playerID)
	}
	if !player.IsRookie {
		return validationErr(CodeNotRookie, "%s is not rookie-eligible", player.FullName)
	}

	y1, y2, y3 := s.rookieSalariesLocked(slot)
	res, err := s.ledger.TryReserve(slot.CurrentOwnerTeamID, y1, player.Position)
	if err != nil {
		return ledgerErr(err)
	}

	now := s.clock.Now()
	contract := models.Contract{
		ID:          uuid.New(),
		LeagueID:    s.leagueID,
		TeamID:      slot.CurrentOwnerTeamID,
		PlayerID:    playerID,
		Position:    player.Position,
		Years:       3,
		SalaryYear1: y1,
		SalaryYear2: y2,
		SalaryYear3: y3,
		IsRookie:    true,
		SignedAt:    now,
	}
	if err := s.ledger.Commit(ctx, res, contract); err != nil {
		return transientErr(err, "failed to persist rookie contract")
	}

	prevBoardIdx := s.boardIdx
	slot.PlayerID = &playerID
	slot.PickedAt = &now
	slot.IsRevealed = true
	if err := s.picks.UpdatePickSlot(ctx, *slot); err != nil {
		// Contract is committed; the slot write will be reconciled by the
		// next update. Log loudly and keep going.
		s.logger.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("failed to persist pick slot")
	}

	s.takenPlayers[playerID] = true
	s.undoStack = append(s.undoStack, settlementRecord{
		contract:  contract,
		slotID:    slot.ID,
		boardIdx:  prevBoardIdx,
		turnIndex: s.turnIndex,
		direction: s.direction,
	})

	s.boardIdx = s.firstOpenSlotLocked(s.boardIdx + 1)

	payload := events.PlayerPickedPayload{
		LeagueID:   s.leagueID,
		SlotID:     slot.ID,
		Round:      slot.Round,
		SlotNumber: slot.SlotNumber,
		TeamID:     contract.TeamID,
		PlayerID:   playerID,
		PlayerName: player.FullName,
		Salaries:   []float64{y1, y2, y3},
		AutoPicked: auto,
	}
	if s.boardIdx < len(s.board) {
		payload.NextTurnTeam = s.currentTurnTeamLocked()
	}
	s.emitLocked(ctx, events.TypePlayerPicked, payload)
	s.logger.Info().
		Str("player_id", playerID.String()).
		Str("team_id", contract.TeamID.String()).
		Int("round", slot.Round).
		Bool("auto", auto).
		Msg("rookie picked")

	if s.boardIdx >= len(s.board) {
		s.terminateLocked(ctx, models.SessionStatusCompleted)
		return nil
	}
	s.armPickClockLocked(ctx)
	return nil
}

// rookieSalariesLocked prices a slot off the league wage scale using the
// overall pick number across all rounds.
func (s *Session) rookieSalariesLocked(slot *models.PickSlot) (y1, y2, y3 float64) {
	perRound := 0
	for _, sl := range s.board {
		if sl.Round == 1 {
			perRound++
		}
	}
	if perRound == 0 {
		perRound = len(s.participants)
	}
	overall := s.boardIdx + 1
	if slot.SlotNumber != nil {
		overall = (slot.Round-1)*perRound + *slot.SlotNumber
	}
	return s.cfg.WageScaleFor(overall, len(s.board))
}

// firstOpenSlotLocked finds the next unconsumed slot at or after idx.
func (s *Session) firstOpenSlotLocked(idx int) int {
	for i := idx; i < len(s.board); i++ {
		if !s.board[i].Consumed() {
			return i
		}
	}
	return len(s.board)
}

// armPickClockLocked starts the clock for the slot on the board cursor and
// announces who is up.
func (s *Session) armPickClockLocked(ctx context.Context) {
	if s.boardIdx >= len(s.board) {
		return
	}
	slot := s.board[s.boardIdx]
	s.pickDeadline = s.clock.Now().Add(s.cfg.PickClock)
	s.armPickTimerLocked(s.cfg.PickClock)
	s.emitLocked(ctx, events.TypePickClockStarted, events.PickClockStartedPayload{
		LeagueID:     s.leagueID,
		OnClockTeam:  slot.CurrentOwnerTeamID,
		SlotID:       slot.ID,
		PickDeadline: s.pickDeadline,
	})
}

func (s *Session) armPickTimerLocked(d time.Duration) {
	s.timerGen++
	gen := s.timerGen
	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = s.clock.AfterFunc(d, func() {
		s.onPickExpiry(gen)
	})
}

// onPickExpiry applies the league's expiry policy when a GM runs out the
// clock. The default policy leaves the pick on the clock for a human to
// resolve; leagues can opt into skipping or auto-drafting instead.
func (s *Session) onPickExpiry(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.timerGen || s.status != models.SessionStatusInProgress || s.boardIdx >= len(s.board) {
		return
	}

	ctx := context.Background()
	slot := &s.board[s.boardIdx]
	action := string(s.cfg.ExpiryPolicy)
	if action == "" {
		action = string(models.PickExpiryNone)
	}
	s.emitLocked(ctx, events.TypePickClockExpired, events.PickClockExpiredPayload{
		LeagueID:    s.leagueID,
		OnClockTeam: slot.CurrentOwnerTeamID,
		SlotID:      slot.ID,
		Action:      action,
	})
	s.logger.Info().
		Str("team_id", slot.CurrentOwnerTeamID.String()).
		Str("action", action).
		Msg("pick clock expired")

	switch s.cfg.ExpiryPolicy {
	case models.PickExpirySkip:
		s.boardIdx = s.firstOpenSlotLocked(s.boardIdx + 1)
		if s.boardIdx >= len(s.board) {
			s.terminateLocked(ctx, models.SessionStatusCompleted)
			return
		}
		s.armPickClockLocked(ctx)
		s.emitRookieStateLocked(ctx)

	case models.PickExpiryBestAvailable:
		playerID, ok := s.bestAvailableLocked(ctx)
		if !ok {
			s.boardIdx = s.firstOpenSlotLocked(s.boardIdx + 1)
			if s.boardIdx >= len(s.board) {
				s.terminateLocked(ctx, models.SessionStatusCompleted)
				return
			}
			s.armPickClockLocked(ctx)
			return
		}
		if err := s.makePickLocked(ctx, slot, playerID, true); err != nil {
			s.logger.Error().Err(err).Msg("auto pick failed, leaving slot on the clock")
			s.armPickTimerLocked(s.cfg.PickClock)
			s.pickDeadline = s.clock.Now().Add(s.cfg.PickClock)
		}

	default:
		// Clock stays expired until the GM picks or an admin intervenes.
	}
}

// bestAvailableLocked returns the highest-ranked undrafted rookie.
func (s *Session) bestAvailableLocked(ctx context.Context) (uuid.UUID, bool) {
	rookies, err := s.catalog.ListAvailableRookies(ctx, s.leagueID, s.cfg.Season)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list available rookies")
		return uuid.Nil, false
	}
	for _, r := range rookies {
		if !s.takenPlayers[r.ID] {
			return r.ID, true
		}
	}
	return uuid.Nil, false
}
