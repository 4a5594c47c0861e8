package session

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/lottery"
	"github.com/mcdev12/draftroom/internal/models"
)

// LotteryOdds returns each eligible team's chance at the first overall
// pick, worst record first.
func (s *Session) LotteryOdds() []events.TeamOdds {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.lotteryOddsLocked(s.lotteryStandingsLocked())
}

// RunLottery draws the full first-round order and numbers every later round
// linearly off it. Round-one slots stay hidden for the reveal ceremony;
// later rounds are disclosed immediately. Rerunning is allowed until the
// first slot has been revealed.
func (s *Session) RunLottery(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.mode != models.SessionModeRookie {
		return validationErr(CodeNotInProgress, "lottery runs on rookie draft sessions")
	}
	if s.status != models.SessionStatusLobby {
		return conflictErr(CodeAlreadyStarted, "lottery must run before the draft starts")
	}
	if len(s.board) == 0 {
		return validationErr(CodeLotteryNotRun, "no pick board for this season")
	}
	if s.anySlotRevealedLocked() {
		return conflictErr(CodeAlreadyStarted, "reveal already underway, cannot redraw")
	}

	standings := s.lotteryStandingsLocked()
	liveSlots := s.cfg.LotterySlots
	outcome := lottery.RunDraw(s.rng, standings, liveSlots)

	// slotRank maps team to its first-round slot number; later rounds use
	// the same order.
	slotRank := make(map[uuid.UUID]int, len(outcome))
	for _, a := range outcome {
		slotRank[a.TeamID] = a.SlotNumber
	}

	for i := range s.board {
		slot := &s.board[i]
		rank, ok := slotRank[slot.OriginalOwnerTeamID]
		if !ok {
			return transientErr(nil, "no lottery outcome for team %s", slot.OriginalOwnerTeamID)
		}
		slot.SlotNumber = &rank
		slot.IsRevealed = slot.Round > 1
		if err := s.picks.UpdatePickSlot(ctx, *slot); err != nil {
			return transientErr(err, "failed to persist slot assignment")
		}
	}
	s.board = orderBoard(s.board)
	s.draw = lottery.NewDraw(outcome, liveSlots)

	odds := s.lotteryOddsLocked(standings)
	s.emitLocked(ctx, events.TypeLotteryStarted, events.LotteryStartedPayload{
		LeagueID:  s.leagueID,
		Season:    seasonLabel(s.cfg.Season),
		LiveSlots: liveSlots,
		Odds:      odds,
	})
	s.logger.Info().Int("live_slots", liveSlots).Msg("lottery drawn")
	return nil
}

// RevealNextPick discloses the next slot of the lottery outcome, walking
// from the last live slot toward the first overall pick. The first reveal
// also discloses the non-lottery remainder of round one.
func (s *Session) RevealNextPick(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.draw == nil {
		return validationErr(CodeLotteryNotRun, "lottery has not been drawn")
	}

	revealed, remainder, err := s.draw.RevealNext()
	if err != nil {
		if errors.Is(err, lottery.ErrExhausted) {
			return validationErr(CodeLotteryDone, "every slot is already revealed")
		}
		return transientErr(err, "reveal failed")
	}

	slot := s.revealRoundOneSlotLocked(ctx, revealed.SlotNumber)
	payload := events.PickRevealedPayload{
		LeagueID:  s.leagueID,
		Remaining: s.draw.Remaining(),
	}
	if slot != nil {
		payload.Slot = s.slotStateLocked(slot)
	}
	for _, a := range remainder {
		if extra := s.revealRoundOneSlotLocked(ctx, a.SlotNumber); extra != nil {
			payload.AlsoShown = append(payload.AlsoShown, s.slotStateLocked(extra))
		}
	}

	s.emitLocked(ctx, events.TypePickRevealed, payload)
	s.logger.Info().Int("slot_number", revealed.SlotNumber).Int("remaining", s.draw.Remaining()).Msg("lottery slot revealed")
	return nil
}

func (s *Session) revealRoundOneSlotLocked(ctx context.Context, slotNumber int) *models.PickSlot {
	for i := range s.board {
		slot := &s.board[i]
		if slot.Round != 1 || slot.SlotNumber == nil || *slot.SlotNumber != slotNumber {
			continue
		}
		slot.IsRevealed = true
		if err := s.picks.UpdatePickSlot(ctx, *slot); err != nil {
			s.logger.Error().Err(err).Str("slot_id", slot.ID.String()).Msg("failed to persist slot reveal")
		}
		return slot
	}
	return nil
}

func (s *Session) anySlotRevealedLocked() bool {
	for _, slot := range s.board {
		if slot.Round == 1 && slot.IsRevealed {
			return true
		}
	}
	return false
}

// lotteryStandingsLocked restricts standings to teams that originally own a
// first-round slot. A slot owner missing from the standings enters at 0-0.
func (s *Session) lotteryStandingsLocked() []models.TeamStanding {
	byTeam := make(map[uuid.UUID]models.TeamStanding, len(s.standings))
	for _, st := range s.standings {
		byTeam[st.TeamID] = st
	}

	var out []models.TeamStanding
	seen := make(map[uuid.UUID]bool)
	for _, slot := range s.board {
		if slot.Round != 1 || seen[slot.OriginalOwnerTeamID] {
			continue
		}
		seen[slot.OriginalOwnerTeamID] = true
		if st, ok := byTeam[slot.OriginalOwnerTeamID]; ok {
			out = append(out, st)
			continue
		}
		name := ""
		if idx, ok := s.byTeam[slot.OriginalOwnerTeamID]; ok {
			name = s.participants[idx].TeamName
		}
		out = append(out, models.TeamStanding{TeamID: slot.OriginalOwnerTeamID, TeamName: name})
	}
	return out
}

func (s *Session) lotteryOddsLocked(standings []models.TeamStanding) []events.TeamOdds {
	odds := lottery.ComputeOdds(standings)
	out := make([]events.TeamOdds, len(odds))
	for i, o := range odds {
		out[i] = events.TeamOdds{TeamID: o.TeamID, TeamName: o.TeamName, Weight: o.Weight, Probability: o.Probability}
	}
	return out
}

func seasonLabel(season int) string {
	if season == 0 {
		return ""
	}
	return strconv.Itoa(season)
}
