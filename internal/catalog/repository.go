// Package catalog exposes the slice of the player pool the draft needs:
// lookups during nomination and ranked rookie availability for auto picks.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/models"
	"github.com/mcdev12/draftroom/internal/sqlutil"
)

// ErrPlayerNotFound is returned when a player ID has no catalog entry.
var ErrPlayerNotFound = errors.New("player not found")

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetPlayer(ctx context.Context, playerID uuid.UUID) (models.CatalogPlayer, error) {
	const query = `
		SELECT id, full_name, position, valuation, is_rookie, draft_rank
		FROM players
		WHERE id = $1`

	var (
		p    models.CatalogPlayer
		rank sql.NullInt32
	)
	err := r.db.QueryRowContext(ctx, query, playerID).Scan(
		&p.ID, &p.FullName, &p.Position, &p.Valuation, &p.IsRookie, &rank,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.CatalogPlayer{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return models.CatalogPlayer{}, fmt.Errorf("get player: %w", err)
	}
	p.DraftRank = sqlutil.FromSqlInt32(rank)
	return p, nil
}

// ListAvailableRookies returns rookies not yet drafted in the league's
// season, best consensus rank first. Rankless rookies sort last.
func (r *Repository) ListAvailableRookies(ctx context.Context, leagueID uuid.UUID, season int) ([]models.CatalogPlayer, error) {
	const query = `
		SELECT p.id, p.full_name, p.position, p.valuation, p.is_rookie, p.draft_rank
		FROM players p
		WHERE p.is_rookie = true
		  AND NOT EXISTS (
			SELECT 1 FROM draft_picks dp
			WHERE dp.league_id = $1 AND dp.season = $2 AND dp.player_id = p.id
		  )
		ORDER BY p.draft_rank NULLS LAST, p.full_name`

	rows, err := r.db.QueryContext(ctx, query, leagueID, season)
	if err != nil {
		return nil, fmt.Errorf("list available rookies: %w", err)
	}
	defer rows.Close()

	var out []models.CatalogPlayer
	for rows.Next() {
		var (
			p    models.CatalogPlayer
			rank sql.NullInt32
		)
		if err := rows.Scan(&p.ID, &p.FullName, &p.Position, &p.Valuation, &p.IsRookie, &rank); err != nil {
			return nil, fmt.Errorf("scan rookie: %w", err)
		}
		p.DraftRank = sqlutil.FromSqlInt32(rank)
		out = append(out, p)
	}
	return out, rows.Err()
}
