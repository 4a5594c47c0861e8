// Package session implements the live draft core. One Session exists per
// active league draft and serializes every command, timer callback and
// snapshot behind a single mutex, so each league is an independent ordering
// point and rules are enforced in exactly one place.
package session

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/ledger"
	"github.com/mcdev12/draftroom/internal/lottery"
	"github.com/mcdev12/draftroom/internal/models"
)

// LeagueRepository provides the league-side data a session needs at load
// time. The session never writes through it.
type LeagueRepository interface {
	GetLeagueConfig(ctx context.Context, leagueID uuid.UUID) (models.LeagueConfig, error)
	ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error)
	ListStandings(ctx context.Context, leagueID uuid.UUID) ([]models.TeamStanding, error)
	ListAdminIdentities(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error)
}

// PickSlotRepository persists the rookie draft board.
type PickSlotRepository interface {
	ListPickSlots(ctx context.Context, leagueID uuid.UUID, season int) ([]models.PickSlot, error)
	UpdatePickSlot(ctx context.Context, slot models.PickSlot) error
}

// CatalogRepository answers player lookups during a session.
type CatalogRepository interface {
	GetPlayer(ctx context.Context, playerID uuid.UUID) (models.CatalogPlayer, error)
	// ListAvailableRookies returns undrafted rookies ordered best rank first.
	ListAvailableRookies(ctx context.Context, leagueID uuid.UUID, season int) ([]models.CatalogPlayer, error)
}

// Deps carries everything a session needs beyond its identity.
type Deps struct {
	Clock     clockwork.Clock
	Sink      events.Sink
	Rand      *rand.Rand
	Leagues   LeagueRepository
	Picks     PickSlotRepository
	Catalog   CatalogRepository
	Contracts ledger.ContractRepository
	Logger    zerolog.Logger
}

// settlementRecord is one entry of the admin undo stack. It holds enough to
// reverse the settlement exactly: the contract, the lot or slot as it stood
// before settling, and the turn index that was current.
type settlementRecord struct {
	contract      models.Contract
	lot           *models.Lot
	nominatorTeam uuid.UUID
	slotID        uuid.UUID
	boardIdx      int
	turnIndex     int
	direction     int
}

// Session is the serialized state machine for one league's live draft.
type Session struct {
	mu sync.Mutex

	id       uuid.UUID
	leagueID uuid.UUID
	mode     models.SessionMode
	cfg      models.LeagueConfig

	clock   clockwork.Clock
	sink    events.Sink
	rng     *rand.Rand
	picks   PickSlotRepository
	catalog CatalogRepository
	logger  zerolog.Logger

	status       models.SessionStatus
	participants []models.Participant
	byIdentity   map[uuid.UUID]int
	byTeam       map[uuid.UUID]int
	admins       map[uuid.UUID]bool
	turnIndex    int
	direction    int
	startedAt    *time.Time
	completedAt  *time.Time

	ledger *ledger.Ledger

	// auction
	lot             *models.Lot
	nominatorTeam   uuid.UUID
	takenPlayers    map[uuid.UUID]bool

	// rookie
	board        []models.PickSlot
	boardIdx     int
	pickDeadline time.Time

	// lottery
	draw      *lottery.Draw
	standings []models.TeamStanding

	timer           clockwork.Timer
	timerGen        uint64
	pausedRemaining time.Duration

	undoStack  []settlementRecord
	onTerminal func(leagueID uuid.UUID)
}

// New loads a session for a league. The session starts in the lobby; Start
// moves it live.
func New(ctx context.Context, leagueID uuid.UUID, mode models.SessionMode, deps Deps) (*Session, error) {
	cfg, err := deps.Leagues.GetLeagueConfig(ctx, leagueID)
	if err != nil {
		return nil, transientErr(err, "failed to load league config")
	}
	participants, err := deps.Leagues.ListParticipants(ctx, leagueID)
	if err != nil {
		return nil, transientErr(err, "failed to load participants")
	}
	if len(participants) == 0 {
		return nil, validationErr(CodeInternal, "league %s has no participants", leagueID)
	}
	adminIDs, err := deps.Leagues.ListAdminIdentities(ctx, leagueID)
	if err != nil {
		return nil, transientErr(err, "failed to load league admins")
	}

	teamIDs := make([]uuid.UUID, len(participants))
	byIdentity := make(map[uuid.UUID]int, len(participants))
	byTeam := make(map[uuid.UUID]int, len(participants))
	for i, p := range participants {
		teamIDs[i] = p.TeamID
		byIdentity[p.IdentityID] = i
		byTeam[p.TeamID] = i
	}

	led, err := ledger.Load(ctx, cfg, teamIDs, deps.Contracts)
	if err != nil {
		return nil, transientErr(err, "failed to load ledger")
	}

	admins := make(map[uuid.UUID]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	rng := deps.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(deps.Clock.Now().UnixNano()))
	}

	s := &Session{
		id:           uuid.New(),
		leagueID:     leagueID,
		mode:         mode,
		cfg:          cfg,
		clock:        deps.Clock,
		sink:         deps.Sink,
		rng:          rng,
		picks:        deps.Picks,
		catalog:      deps.Catalog,
		logger:       deps.Logger.With().Str("league_id", leagueID.String()).Str("mode", string(mode)).Logger(),
		status:       models.SessionStatusLobby,
		participants: participants,
		byIdentity:   byIdentity,
		byTeam:       byTeam,
		admins:       admins,
		direction:    1,
		ledger:       led,
		takenPlayers: make(map[uuid.UUID]bool),
	}

	if mode == models.SessionModeRookie {
		slots, err := deps.Picks.ListPickSlots(ctx, leagueID, cfg.Season)
		if err != nil {
			return nil, transientErr(err, "failed to load pick slots")
		}
		s.board = orderBoard(slots)
		for _, slot := range s.board {
			if slot.PlayerID != nil {
				s.takenPlayers[*slot.PlayerID] = true
			}
		}
	}

	standings, err := deps.Leagues.ListStandings(ctx, leagueID)
	if err != nil {
		return nil, transientErr(err, "failed to load standings")
	}
	s.standings = standings

	return s, nil
}

// LeagueID returns the league this session serves.
func (s *Session) LeagueID() uuid.UUID { return s.leagueID }

// Mode returns the session's draft mode.
func (s *Session) Mode() models.SessionMode { return s.mode }

// SetTerminalHook registers a callback invoked once when the session reaches
// a terminal status. Used by the registry to tear the session down.
func (s *Session) SetTerminalHook(fn func(leagueID uuid.UUID)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onTerminal = fn
}

// Start moves the session from the lobby to live play. Rookie sessions need
// an assigned board, either from the lottery or a prior season.
func (s *Session) Start(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	switch s.status {
	case models.SessionStatusLobby:
	case models.SessionStatusInProgress, models.SessionStatusPaused:
		return conflictErr(CodeAlreadyStarted, "draft already started")
	default:
		return validationErr(CodeCompleted, "draft already finished")
	}
	if s.mode == models.SessionModeRookie {
		if len(s.board) == 0 {
			return validationErr(CodeLotteryNotRun, "no pick board for this season")
		}
		for _, slot := range s.board {
			if slot.SlotNumber == nil {
				return validationErr(CodeLotteryNotRun, "pick board has unassigned slots, run the lottery first")
			}
		}
	}

	now := s.clock.Now()
	s.status = models.SessionStatusInProgress
	s.startedAt = &now
	s.turnIndex = 0
	s.direction = 1

	order := make([]uuid.UUID, len(s.participants))
	for i, p := range s.participants {
		order[i] = p.TeamID
	}
	s.emitLocked(ctx, events.TypeSessionStarted, events.SessionStartedPayload{
		LeagueID:  s.leagueID,
		Mode:      string(s.mode),
		TurnOrder: order,
	})

	if s.mode == models.SessionModeRookie {
		s.boardIdx = s.firstOpenSlotLocked(0)
		s.armPickClockLocked(ctx)
		s.emitRookieStateLocked(ctx)
	} else {
		s.emitAuctionStateLocked(ctx)
	}
	s.logger.Info().Msg("session started")
	return nil
}

// Pause freezes the session. Any running clock keeps its remaining time and
// resumes from there.
func (s *Session) Pause(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.status != models.SessionStatusInProgress {
		return conflictErr(CodeNotInProgress, "draft is not running")
	}

	s.status = models.SessionStatusPaused
	s.pausedRemaining = 0
	if s.timer != nil {
		var deadline time.Time
		if s.mode == models.SessionModeAuction && s.lot != nil {
			deadline = s.lot.BidEndTime
		} else if s.mode == models.SessionModeRookie {
			deadline = s.pickDeadline
		}
		if !deadline.IsZero() {
			if remaining := deadline.Sub(s.clock.Now()); remaining > 0 {
				s.pausedRemaining = remaining
			}
		}
		s.stopTimerLocked()
	}

	s.emitLocked(ctx, events.TypeSessionPaused, events.SessionPausedPayload{LeagueID: s.leagueID})
	s.emitStateLocked(ctx)
	s.logger.Info().Dur("remaining", s.pausedRemaining).Msg("session paused")
	return nil
}

// Resume continues a paused session, re-arming any frozen clock with the
// time it had left.
func (s *Session) Resume(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.status != models.SessionStatusPaused {
		return conflictErr(CodeNotInProgress, "draft is not paused")
	}

	s.status = models.SessionStatusInProgress
	if s.pausedRemaining > 0 {
		deadline := s.clock.Now().Add(s.pausedRemaining)
		if s.mode == models.SessionModeAuction && s.lot != nil {
			s.lot.BidEndTime = deadline
			s.armLotTimerLocked(s.pausedRemaining)
		} else if s.mode == models.SessionModeRookie {
			s.pickDeadline = deadline
			s.armPickTimerLocked(s.pausedRemaining)
		}
		s.pausedRemaining = 0
	}

	s.emitLocked(ctx, events.TypeSessionResumed, events.SessionResumedPayload{LeagueID: s.leagueID})
	s.emitStateLocked(ctx)
	s.logger.Info().Msg("session resumed")
	return nil
}

// ForceStop cancels the session immediately. Committed contracts stay on
// record.
func (s *Session) ForceStop(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.status == models.SessionStatusCompleted || s.status == models.SessionStatusCancelled {
		return conflictErr(CodeCompleted, "draft already finished")
	}

	s.stopTimerLocked()
	s.lot = nil
	s.terminateLocked(ctx, models.SessionStatusCancelled)
	s.logger.Info().Msg("session force stopped")
	return nil
}

// UndoLastPick reverses the most recent settlement: the contract comes off
// the books, the lot or slot returns to its pre-settlement state and the
// turn rolls back.
func (s *Session) UndoLastPick(ctx context.Context, identityID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireAdminLocked(identityID); err != nil {
		return err
	}
	if s.status != models.SessionStatusInProgress && s.status != models.SessionStatusPaused {
		return conflictErr(CodeNotInProgress, "draft is not running")
	}
	if len(s.undoStack) == 0 {
		return validationErr(CodeNothingToUndo, "no settlement to undo")
	}

	rec := s.undoStack[len(s.undoStack)-1]
	if err := s.ledger.Undo(ctx, rec.contract); err != nil {
		return transientErr(err, "failed to reverse contract")
	}
	s.undoStack = s.undoStack[:len(s.undoStack)-1]
	delete(s.takenPlayers, rec.contract.PlayerID)
	s.turnIndex = rec.turnIndex
	s.direction = rec.direction

	switch s.mode {
	case models.SessionModeAuction:
		// Reopen the lot as it stood, with a fresh bid window.
		lot := *rec.lot
		lot.BidEndTime = s.clock.Now().Add(s.cfg.BidWindow)
		s.lot = &lot
		s.nominatorTeam = rec.nominatorTeam
		if s.status == models.SessionStatusInProgress {
			s.armLotTimerLocked(s.cfg.BidWindow)
		} else {
			s.pausedRemaining = s.cfg.BidWindow
		}
	case models.SessionModeRookie:
		for i := range s.board {
			if s.board[i].ID == rec.slotID {
				s.board[i].PlayerID = nil
				s.board[i].PickedAt = nil
				if err := s.picks.UpdatePickSlot(ctx, s.board[i]); err != nil {
					s.logger.Error().Err(err).Str("slot_id", rec.slotID.String()).Msg("failed to persist slot reset")
				}
				break
			}
		}
		s.boardIdx = rec.boardIdx
		if s.status == models.SessionStatusInProgress {
			s.armPickClockLocked(ctx)
		} else {
			s.pausedRemaining = s.cfg.PickClock
		}
	}

	s.emitLocked(ctx, events.TypePickUndone, events.PickUndonePayload{
		LeagueID: s.leagueID,
		SlotID:   optionalUUID(rec.slotID),
		PlayerID: rec.contract.PlayerID,
		TeamID:   rec.contract.TeamID,
	})
	s.emitStateLocked(ctx)
	s.logger.Info().Str("player_id", rec.contract.PlayerID.String()).Msg("settlement undone")
	return nil
}

// Snapshot returns the full resyncable state for new or reconnecting
// clients, assembled under the session lock.
func (s *Session) Snapshot() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == models.SessionModeRookie {
		return s.rookieStateLocked()
	}
	return s.auctionStateLocked()
}

func (s *Session) requireAdminLocked(identityID uuid.UUID) error {
	if !s.admins[identityID] {
		return validationErr(CodeNotAdmin, "identity %s is not a league admin", identityID)
	}
	return nil
}

func (s *Session) participantByIdentityLocked(identityID uuid.UUID) (*models.Participant, error) {
	idx, ok := s.byIdentity[identityID]
	if !ok {
		return nil, validationErr(CodeNotParticipant, "identity %s has no team in this league", identityID)
	}
	return &s.participants[idx], nil
}

func (s *Session) currentTurnTeamLocked() *uuid.UUID {
	if s.status != models.SessionStatusInProgress && s.status != models.SessionStatusPaused {
		return nil
	}
	switch s.mode {
	case models.SessionModeAuction:
		id := s.participants[s.turnIndex].TeamID
		return &id
	case models.SessionModeRookie:
		if s.boardIdx >= len(s.board) {
			return nil
		}
		id := s.board[s.boardIdx].CurrentOwnerTeamID
		return &id
	}
	return nil
}

// advanceTurnLocked rotates nomination rights. Fixed order wraps around,
// snake order reverses at each end with the edge seats going twice.
func (s *Session) advanceTurnLocked() {
	n := len(s.participants)
	if n == 0 {
		return
	}
	if s.cfg.TurnOrder == models.TurnOrderSnake {
		next := s.turnIndex + s.direction
		if next < 0 || next >= n {
			s.direction = -s.direction
			return
		}
		s.turnIndex = next
		return
	}
	s.turnIndex = (s.turnIndex + 1) % n
}

func (s *Session) terminateLocked(ctx context.Context, status models.SessionStatus) {
	now := s.clock.Now()
	s.status = status
	s.completedAt = &now
	s.stopTimerLocked()
	s.emitLocked(ctx, events.TypeSessionCompleted, events.SessionCompletedPayload{
		LeagueID: s.leagueID,
		Mode:     string(s.mode),
	})
	s.emitStateLocked(ctx)
	if s.onTerminal != nil {
		hook := s.onTerminal
		league := s.leagueID
		go hook(league)
	}
}

func (s *Session) stopTimerLocked() {
	s.timerGen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// emitLocked hands an event to the sink. Emission failures are logged and
// do not fail the operation; the resync snapshot covers any missed frame.
func (s *Session) emitLocked(ctx context.Context, t events.Type, payload any) {
	if err := s.sink.Emit(ctx, s.leagueID, t, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", string(t)).Msg("failed to emit event")
	}
}

func (s *Session) emitStateLocked(ctx context.Context) {
	if s.mode == models.SessionModeRookie {
		s.emitRookieStateLocked(ctx)
	} else {
		s.emitAuctionStateLocked(ctx)
	}
}

func (s *Session) emitAuctionStateLocked(ctx context.Context) {
	s.emitLocked(ctx, events.TypeUpdateState, s.auctionStateLocked())
}

func (s *Session) emitRookieStateLocked(ctx context.Context) {
	s.emitLocked(ctx, events.TypeUpdateRookieDraftState, s.rookieStateLocked())
}

// teamBudgetsLocked composes the client-facing budget view. The current
// high bidder shows their leading bid's first-year salary already frozen
// out even though the ledger only deducts at settlement.
func (s *Session) teamBudgetsLocked() []events.TeamBudget {
	states := s.ledger.Teams()
	out := make([]events.TeamBudget, 0, len(s.participants))
	for _, p := range s.participants {
		st := states[p.TeamID]
		budget := st.RemainingBudget
		if s.lot != nil && s.lot.HighBidderTeamID == p.TeamID {
			budget -= s.lot.CurrentBidYear1
		}
		out = append(out, events.TeamBudget{
			TeamID:          p.TeamID,
			TeamName:        p.TeamName,
			RemainingBudget: budget,
			RosterCount:     st.RosterCount,
			PositionCounts:  st.PositionCounts,
		})
	}
	return out
}

func (s *Session) auctionStateLocked() events.AuctionState {
	state := events.AuctionState{
		LeagueID:         s.leagueID,
		Status:           string(s.status),
		CurrentTurnTeam:  s.currentTurnTeamLocked(),
		CurrentTurnIndex: s.turnIndex,
		Teams:            s.teamBudgetsLocked(),
		ServerTime:       s.clock.Now(),
	}
	if s.lot != nil {
		ls := lotState(s.lot)
		state.Lot = &ls
	}
	return state
}

func (s *Session) rookieStateLocked() events.RookieState {
	state := events.RookieState{
		LeagueID:         s.leagueID,
		Status:           string(s.status),
		CurrentTurnTeam:  s.currentTurnTeamLocked(),
		CurrentTurnIndex: s.boardIdx,
		Teams:            s.teamBudgetsLocked(),
		ServerTime:       s.clock.Now(),
	}
	if s.status == models.SessionStatusInProgress && s.boardIdx < len(s.board) && !s.pickDeadline.IsZero() {
		d := s.pickDeadline
		state.PickDeadline = &d
	}
	for i := range s.board {
		state.Board = append(state.Board, s.slotStateLocked(&s.board[i]))
	}
	return state
}

// slotStateLocked renders a slot for clients, hiding the slot number of
// unrevealed lottery picks.
func (s *Session) slotStateLocked(slot *models.PickSlot) events.PickSlotState {
	out := events.PickSlotState{
		SlotID:      slot.ID,
		Round:       slot.Round,
		OwnerTeamID: slot.CurrentOwnerTeamID,
		IsRevealed:  slot.IsRevealed,
	}
	if slot.IsRevealed {
		out.SlotNumber = slot.SlotNumber
		out.PlayerID = slot.PlayerID
	}
	return out
}

func lotState(lot *models.Lot) events.LotState {
	ls := events.LotState{
		PlayerID:        lot.PlayerID,
		PlayerName:      lot.PlayerName,
		Position:        lot.Position,
		OpeningPrice:    lot.OpeningPrice,
		CurrentBidTotal: lot.CurrentBidTotal,
		CurrentBidYears: lot.CurrentBidYears,
		BidEndTime:      lot.BidEndTime,
	}
	if lot.HighBidderTeamID != uuid.Nil {
		id := lot.HighBidderTeamID
		ls.HighBidderTeamID = &id
	}
	for _, b := range lot.Bids {
		ls.Bids = append(ls.Bids, events.BidEntry{
			BidderTeamID: b.BidderTeamID,
			TotalAmount:  b.TotalAmount,
			Years:        b.Years,
			PlacedAt:     b.PlacedAt,
		})
	}
	return ls
}

func optionalUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}
