package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mcdev12/draftroom/internal/models"
)

type fakeContractRepo struct {
	contracts  map[uuid.UUID]models.Contract
	insertErr  error
	deleteErr  error
}

func newFakeContractRepo() *fakeContractRepo {
	return &fakeContractRepo{contracts: make(map[uuid.UUID]models.Contract)}
}

func (f *fakeContractRepo) InsertContract(_ context.Context, c models.Contract) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.contracts[c.ID] = c
	return nil
}

func (f *fakeContractRepo) DeleteContract(_ context.Context, id uuid.UUID) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.contracts, id)
	return nil
}

func (f *fakeContractRepo) ListContractsByLeague(_ context.Context, leagueID uuid.UUID) ([]models.Contract, error) {
	var out []models.Contract
	for _, c := range f.contracts {
		if c.LeagueID == leagueID {
			out = append(out, c)
		}
	}
	return out, nil
}

func testConfig(leagueID uuid.UUID) models.LeagueConfig {
	return models.LeagueConfig{
		LeagueID:       leagueID,
		SalaryCap:      200,
		RosterLimit:    3,
		PositionLimits: map[string]int{"C": 1},
	}
}

func loadTestLedger(t *testing.T, repo ContractRepository, teams ...uuid.UUID) *Ledger {
	t.Helper()
	l, err := Load(context.Background(), testConfig(uuid.New()), teams, repo)
	require.NoError(t, err)
	return l
}

func TestTryReserve(t *testing.T) {
	teamA := uuid.New()
	teamB := uuid.New()

	tests := []struct {
		name     string
		teamID   uuid.UUID
		year1    float64
		position string
		setup    func(l *Ledger, repo *fakeContractRepo)
		wantErr  error
	}{
		{
			name:     "affordable bid passes",
			teamID:   teamA,
			year1:    150,
			position: "PG",
		},
		{
			name:     "exact budget passes",
			teamID:   teamA,
			year1:    200,
			position: "PG",
		},
		{
			name:     "over budget rejected",
			teamID:   teamA,
			year1:    201,
			position: "PG",
			wantErr:  ErrInsufficientBudget,
		},
		{
			name:     "unknown team rejected",
			teamID:   uuid.New(),
			year1:    10,
			position: "PG",
			wantErr:  ErrUnknownTeam,
		},
		{
			name:     "position limit enforced",
			teamID:   teamA,
			year1:    10,
			position: "C",
			setup: func(l *Ledger, _ *fakeContractRepo) {
				commitPlayer(t, l, teamA, 10, "C")
			},
			wantErr: ErrPositionLimit,
		},
		{
			name:     "roster limit enforced",
			teamID:   teamB,
			year1:    10,
			position: "PG",
			setup: func(l *Ledger, _ *fakeContractRepo) {
				commitPlayer(t, l, teamB, 10, "PG")
				commitPlayer(t, l, teamB, 10, "SG")
				commitPlayer(t, l, teamB, 10, "SF")
			},
			wantErr: ErrRosterFull,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeContractRepo()
			l := loadTestLedger(t, repo, teamA, teamB)
			if tt.setup != nil {
				tt.setup(l, repo)
			}

			_, err := l.TryReserve(tt.teamID, tt.year1, tt.position)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func commitPlayer(t *testing.T, l *Ledger, teamID uuid.UUID, year1 float64, position string) models.Contract {
	t.Helper()
	res, err := l.TryReserve(teamID, year1, position)
	require.NoError(t, err)
	c := models.Contract{
		ID:          uuid.New(),
		LeagueID:    l.leagueID,
		TeamID:      teamID,
		PlayerID:    uuid.New(),
		Position:    position,
		Years:       1,
		SalaryYear1: year1,
		SignedAt:    time.Now(),
	}
	require.NoError(t, l.Commit(context.Background(), res, c))
	return c
}

func TestCommitDeductsAndUndoRestores(t *testing.T) {
	teamA := uuid.New()
	repo := newFakeContractRepo()
	l := loadTestLedger(t, repo, teamA)

	c := commitPlayer(t, l, teamA, 60, "PG")

	state, ok := l.Team(teamA)
	require.True(t, ok)
	assert.Equal(t, 140.0, state.RemainingBudget)
	assert.Equal(t, 1, state.RosterCount)
	assert.Equal(t, 1, state.PositionCounts["PG"])
	assert.Len(t, repo.contracts, 1)

	require.NoError(t, l.Undo(context.Background(), c))

	state, _ = l.Team(teamA)
	assert.Equal(t, 200.0, state.RemainingBudget)
	assert.Equal(t, 0, state.RosterCount)
	assert.Equal(t, 0, state.PositionCounts["PG"])
	assert.Empty(t, repo.contracts)
}

func TestCommitRollsBackOnRepoFailure(t *testing.T) {
	teamA := uuid.New()
	repo := newFakeContractRepo()
	l := loadTestLedger(t, repo, teamA)

	res, err := l.TryReserve(teamA, 60, "PG")
	require.NoError(t, err)

	repo.insertErr = errors.New("connection reset")
	c := models.Contract{ID: uuid.New(), LeagueID: l.leagueID, TeamID: teamA, Position: "PG", SalaryYear1: 60}
	err = l.Commit(context.Background(), res, c)
	require.Error(t, err)

	state, _ := l.Team(teamA)
	assert.Equal(t, 200.0, state.RemainingBudget, "budget restored after failed persist")
	assert.Equal(t, 0, state.RosterCount)
}

func TestUndoKeepsStateOnRepoFailure(t *testing.T) {
	teamA := uuid.New()
	repo := newFakeContractRepo()
	l := loadTestLedger(t, repo, teamA)

	c := commitPlayer(t, l, teamA, 60, "PG")

	repo.deleteErr = errors.New("connection reset")
	require.Error(t, l.Undo(context.Background(), c))

	state, _ := l.Team(teamA)
	assert.Equal(t, 140.0, state.RemainingBudget, "no refund while the contract is still on record")
	assert.Equal(t, 1, state.RosterCount)
}

func TestLoadRebuildsBalances(t *testing.T) {
	leagueID := uuid.New()
	teamA := uuid.New()
	repo := newFakeContractRepo()
	repo.contracts[uuid.New()] = models.Contract{
		ID: uuid.New(), LeagueID: leagueID, TeamID: teamA, Position: "PG", SalaryYear1: 45,
	}

	l, err := Load(context.Background(), models.LeagueConfig{LeagueID: leagueID, SalaryCap: 200, RosterLimit: 15}, []uuid.UUID{teamA}, repo)
	require.NoError(t, err)

	state, ok := l.Team(teamA)
	require.True(t, ok)
	assert.Equal(t, 155.0, state.RemainingBudget)
	assert.Equal(t, 1, state.RosterCount)
}
