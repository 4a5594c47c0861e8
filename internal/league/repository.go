// Package league reads the league-side configuration the draft core runs
// on: settings, seats, standings and the rookie pick board.
package league

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sqlc-dev/pqtype"

	"github.com/mcdev12/draftroom/internal/models"
	"github.com/mcdev12/draftroom/internal/sqlutil"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetLeagueConfig loads one league's draft settings. Position limits and
// the wage scale live in JSONB columns that older leagues may not have.
func (r *Repository) GetLeagueConfig(ctx context.Context, leagueID uuid.UUID) (models.LeagueConfig, error) {
	const query = `
		SELECT league_id, season, salary_cap, roster_limit,
		       bid_window_seconds, anti_snipe_seconds, pick_clock_seconds,
		       expiry_policy, turn_order, lottery_slots,
		       position_limits, wage_scale
		FROM league_draft_settings
		WHERE league_id = $1`

	var (
		cfg         models.LeagueConfig
		bidWindow   int
		antiSnipe   int
		pickClock   int
		posLimits   pqtype.NullRawMessage
		wageScale   pqtype.NullRawMessage
	)
	err := r.db.QueryRowContext(ctx, query, leagueID).Scan(
		&cfg.LeagueID, &cfg.Season, &cfg.SalaryCap, &cfg.RosterLimit,
		&bidWindow, &antiSnipe, &pickClock,
		&cfg.ExpiryPolicy, &cfg.TurnOrder, &cfg.LotterySlots,
		&posLimits, &wageScale,
	)
	if err != nil {
		return models.LeagueConfig{}, fmt.Errorf("get league config %s: %w", leagueID, err)
	}

	cfg.BidWindow = time.Duration(bidWindow) * time.Second
	cfg.AntiSnipe = time.Duration(antiSnipe) * time.Second
	cfg.PickClock = time.Duration(pickClock) * time.Second

	if posLimits.Valid {
		if err := json.Unmarshal(posLimits.RawMessage, &cfg.PositionLimits); err != nil {
			return models.LeagueConfig{}, fmt.Errorf("decode position limits: %w", err)
		}
	}
	if wageScale.Valid {
		if err := json.Unmarshal(wageScale.RawMessage, &cfg.WageScale); err != nil {
			return models.LeagueConfig{}, fmt.Errorf("decode wage scale: %w", err)
		}
	}
	return cfg, nil
}

// ListParticipants returns the league's seats in nomination order.
func (r *Repository) ListParticipants(ctx context.Context, leagueID uuid.UUID) ([]models.Participant, error) {
	const query = `
		SELECT team_id, identity_id, team_name
		FROM league_teams
		WHERE league_id = $1
		ORDER BY draft_position, team_name`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	var out []models.Participant
	for rows.Next() {
		var p models.Participant
		if err := rows.Scan(&p.TeamID, &p.IdentityID, &p.TeamName); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repository) ListStandings(ctx context.Context, leagueID uuid.UUID) ([]models.TeamStanding, error) {
	const query = `
		SELECT team_id, team_name, wins, losses
		FROM league_standings
		WHERE league_id = $1`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	defer rows.Close()

	var out []models.TeamStanding
	for rows.Next() {
		var s models.TeamStanding
		if err := rows.Scan(&s.TeamID, &s.TeamName, &s.Wins, &s.Losses); err != nil {
			return nil, fmt.Errorf("scan standing: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *Repository) ListAdminIdentities(ctx context.Context, leagueID uuid.UUID) ([]uuid.UUID, error) {
	const query = `
		SELECT identity_id
		FROM league_admins
		WHERE league_id = $1`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list admins: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan admin: %w", err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

// ListPickSlots returns the rookie board for a season, traded ownership
// included.
func (r *Repository) ListPickSlots(ctx context.Context, leagueID uuid.UUID, season int) ([]models.PickSlot, error) {
	const query = `
		SELECT id, league_id, season, round, slot_number,
		       original_owner_team_id, current_owner_team_id,
		       player_id, is_revealed, picked_at
		FROM draft_picks
		WHERE league_id = $1 AND season = $2
		ORDER BY round, slot_number NULLS LAST`

	rows, err := r.db.QueryContext(ctx, query, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("list pick slots: %w", err)
	}
	defer rows.Close()

	var out []models.PickSlot
	for rows.Next() {
		var (
			slot       models.PickSlot
			slotNumber sql.NullInt32
			playerID   uuid.NullUUID
			pickedAt   sql.NullTime
		)
		if err := rows.Scan(
			&slot.ID, &slot.LeagueID, &slot.Season, &slot.Round, &slotNumber,
			&slot.OriginalOwnerTeamID, &slot.CurrentOwnerTeamID,
			&playerID, &slot.IsRevealed, &pickedAt,
		); err != nil {
			return nil, fmt.Errorf("scan pick slot: %w", err)
		}
		slot.SlotNumber = sqlutil.FromSqlInt32(slotNumber)
		slot.PlayerID = sqlutil.FromNullUUID(playerID)
		slot.PickedAt = sqlutil.FromSqlTime(pickedAt)
		out = append(out, slot)
	}
	return out, rows.Err()
}

func (r *Repository) UpdatePickSlot(ctx context.Context, slot models.PickSlot) error {
	const query = `
		UPDATE draft_picks
		SET slot_number = $2,
		    current_owner_team_id = $3,
		    player_id = $4,
		    is_revealed = $5,
		    picked_at = $6
		WHERE id = $1`

	res, err := r.db.ExecContext(ctx, query,
		slot.ID,
		sqlutil.ToSqlInt32(slot.SlotNumber),
		slot.CurrentOwnerTeamID,
		sqlutil.ToNullUUID(slot.PlayerID),
		slot.IsRevealed,
		sqlutil.ToSqlTime(slot.PickedAt),
	)
	if err != nil {
		return fmt.Errorf("update pick slot: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update pick slot rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("pick slot %s not found", slot.ID)
	}
	return nil
}
