package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftroom/internal/models"
)

var (
	// ErrInsufficientBudget means the team cannot cover the first-year
	// salary of the attempted commitment.
	ErrInsufficientBudget = errors.New("insufficient budget")
	// ErrRosterFull means the team already holds the maximum number of
	// contracts allowed by league configuration.
	ErrRosterFull = errors.New("roster limit reached")
	// ErrPositionLimit means the team is already at the cap for the
	// player's position.
	ErrPositionLimit = errors.New("position limit reached")
	// ErrUnknownTeam means the team is not part of this ledger's league.
	ErrUnknownTeam = errors.New("unknown team")
)

// ContractRepository persists settled contracts. The ledger is the only
// writer; reads happen once at load time.
type ContractRepository interface {
	InsertContract(ctx context.Context, c models.Contract) error
	DeleteContract(ctx context.Context, id uuid.UUID) error
	ListContractsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Contract, error)
}

// TeamState is the in-memory financial position of one team.
type TeamState struct {
	TeamID          uuid.UUID
	RemainingBudget float64
	RosterCount     int
	PositionCounts  map[string]int
}

// Reservation is a validated admission token for a pending commitment.
// It records exactly what TryReserve checked so Commit can apply the
// matching delta.
type Reservation struct {
	TeamID   uuid.UUID
	Year1    float64
	Position string
}

// Ledger is the budget and roster authority for one league. It holds no
// lock of its own: all calls arrive through the owning session's
// serialization point.
type Ledger struct {
	leagueID uuid.UUID
	cfg      models.LeagueConfig
	teams    map[uuid.UUID]*TeamState
	repo     ContractRepository
}

// Load builds a ledger from league configuration and the contracts already
// on record, so a restarted process resumes with correct balances.
func Load(ctx context.Context, cfg models.LeagueConfig, teamIDs []uuid.UUID, repo ContractRepository) (*Ledger, error) {
	l := &Ledger{
		leagueID: cfg.LeagueID,
		cfg:      cfg,
		teams:    make(map[uuid.UUID]*TeamState, len(teamIDs)),
		repo:     repo,
	}
	for _, id := range teamIDs {
		l.teams[id] = &TeamState{
			TeamID:          id,
			RemainingBudget: cfg.SalaryCap,
			PositionCounts:  make(map[string]int),
		}
	}

	contracts, err := repo.ListContractsByLeague(ctx, cfg.LeagueID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contracts for league %s: %w", cfg.LeagueID, err)
	}
	for _, c := range contracts {
		t, ok := l.teams[c.TeamID]
		if !ok {
			log.Warn().
				Str("league_id", cfg.LeagueID.String()).
				Str("team_id", c.TeamID.String()).
				Str("contract_id", c.ID.String()).
				Msg("contract references team outside league, skipping")
			continue
		}
		t.RemainingBudget -= c.SalaryYear1
		t.RosterCount++
		t.PositionCounts[c.Position]++
	}
	return l, nil
}

// TryReserve validates that the team can afford a first-year salary and
// has room for one more player at the given position. It mutates nothing;
// the returned reservation is the input to Commit.
func (l *Ledger) TryReserve(teamID uuid.UUID, year1 float64, position string) (Reservation, error) {
	t, ok := l.teams[teamID]
	if !ok {
		return Reservation{}, ErrUnknownTeam
	}
	if year1 > t.RemainingBudget {
		return Reservation{}, fmt.Errorf("%w: need %.1f, have %.1f", ErrInsufficientBudget, year1, t.RemainingBudget)
	}
	if t.RosterCount >= l.cfg.RosterLimit {
		return Reservation{}, fmt.Errorf("%w: %d of %d", ErrRosterFull, t.RosterCount, l.cfg.RosterLimit)
	}
	if limit, ok := l.cfg.PositionLimits[position]; ok && t.PositionCounts[position] >= limit {
		return Reservation{}, fmt.Errorf("%w: %s at %d", ErrPositionLimit, position, limit)
	}
	return Reservation{TeamID: teamID, Year1: year1, Position: position}, nil
}

// Commit applies a reserved contract: the first-year salary is deducted,
// roster counts advance and the contract is persisted. On a persistence
// failure the in-memory delta is rolled back and the error is returned
// for the caller to retry.
func (l *Ledger) Commit(ctx context.Context, res Reservation, c models.Contract) error {
	t, ok := l.teams[res.TeamID]
	if !ok {
		return ErrUnknownTeam
	}

	t.RemainingBudget -= res.Year1
	t.RosterCount++
	t.PositionCounts[res.Position]++

	if err := l.repo.InsertContract(ctx, c); err != nil {
		t.RemainingBudget += res.Year1
		t.RosterCount--
		t.PositionCounts[res.Position]--
		return fmt.Errorf("failed to persist contract for team %s: %w", res.TeamID, err)
	}
	return nil
}

// Undo reverses a previously committed contract as an exact inverse of
// Commit. Memory is restored only after the delete succeeds.
func (l *Ledger) Undo(ctx context.Context, c models.Contract) error {
	t, ok := l.teams[c.TeamID]
	if !ok {
		return ErrUnknownTeam
	}
	if err := l.repo.DeleteContract(ctx, c.ID); err != nil {
		return fmt.Errorf("failed to delete contract %s: %w", c.ID, err)
	}
	t.RemainingBudget += c.SalaryYear1
	t.RosterCount--
	t.PositionCounts[c.Position]--
	return nil
}

// Team returns a copy of one team's current state.
func (l *Ledger) Team(teamID uuid.UUID) (TeamState, bool) {
	t, ok := l.teams[teamID]
	if !ok {
		return TeamState{}, false
	}
	return copyTeam(t), true
}

// Teams returns copies of every team state, keyed by team ID.
func (l *Ledger) Teams() map[uuid.UUID]TeamState {
	out := make(map[uuid.UUID]TeamState, len(l.teams))
	for id, t := range l.teams {
		out[id] = copyTeam(t)
	}
	return out
}

func copyTeam(t *TeamState) TeamState {
	counts := make(map[string]int, len(t.PositionCounts))
	for pos, n := range t.PositionCounts {
		counts[pos] = n
	}
	return TeamState{
		TeamID:          t.TeamID,
		RemainingBudget: t.RemainingBudget,
		RosterCount:     t.RosterCount,
		PositionCounts:  counts,
	}
}
