package ledger

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/models"
)

// PostgresContractRepository stores contracts in the contracts table.
type PostgresContractRepository struct {
	db *sql.DB
}

func NewPostgresContractRepository(db *sql.DB) *PostgresContractRepository {
	return &PostgresContractRepository{db: db}
}

func (r *PostgresContractRepository) InsertContract(ctx context.Context, c models.Contract) error {
	const query = `
		INSERT INTO contracts (
			id, league_id, team_id, player_id, position, years,
			salary_year1, salary_year2, salary_year3, is_rookie, signed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.db.ExecContext(ctx, query,
		c.ID, c.LeagueID, c.TeamID, c.PlayerID, c.Position, c.Years,
		c.SalaryYear1, c.SalaryYear2, c.SalaryYear3, c.IsRookie, c.SignedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contract: %w", err)
	}
	return nil
}

func (r *PostgresContractRepository) DeleteContract(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM contracts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contract: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete contract rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("contract %s not found", id)
	}
	return nil
}

func (r *PostgresContractRepository) ListContractsByLeague(ctx context.Context, leagueID uuid.UUID) ([]models.Contract, error) {
	const query = `
		SELECT id, league_id, team_id, player_id, position, years,
		       salary_year1, salary_year2, salary_year3, is_rookie, signed_at
		FROM contracts
		WHERE league_id = $1
		ORDER BY signed_at`

	rows, err := r.db.QueryContext(ctx, query, leagueID)
	if err != nil {
		return nil, fmt.Errorf("list contracts: %w", err)
	}
	defer rows.Close()

	var contracts []models.Contract
	for rows.Next() {
		var c models.Contract
		if err := rows.Scan(
			&c.ID, &c.LeagueID, &c.TeamID, &c.PlayerID, &c.Position, &c.Years,
			&c.SalaryYear1, &c.SalaryYear2, &c.SalaryYear3, &c.IsRookie, &c.SignedAt,
		); err != nil {
			return nil, fmt.Errorf("scan contract: %w", err)
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}
