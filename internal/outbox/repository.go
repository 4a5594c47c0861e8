package outbox

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/sqlutil"
)

// NotifyChannel is the Postgres channel the repository signals after every
// insert and the listener subscribes to.
const NotifyChannel = "draft_outbox_events"

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Insert writes an outbox row and notifies the listener in the same
// transaction, so a signal is only ever sent for a committed row.
func (r *Repository) Insert(ctx context.Context, event Event) error {
	return sqlutil.Run(ctx, r.db, func(tx *sql.Tx) error {
		const query = `
			INSERT INTO draft_outbox (id, league_id, event_type, payload)
			VALUES ($1, $2, $3, $4)`
		if _, err := tx.ExecContext(ctx, query, event.ID, event.LeagueID, event.EventType, event.Payload); err != nil {
			return fmt.Errorf("insert outbox event: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `SELECT pg_notify($1, $2)`, NotifyChannel, event.ID.String()); err != nil {
			return fmt.Errorf("notify outbox channel: %w", err)
		}
		return nil
	})
}

func (r *Repository) FetchByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	const query = `
		SELECT id, league_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE id = $1 AND sent_at IS NULL`

	var e Event
	err := r.db.QueryRowContext(ctx, query, id).Scan(&e.ID, &e.LeagueID, &e.EventType, &e.Payload, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("outbox event %s not found or already sent", id)
		}
		return nil, fmt.Errorf("fetch outbox event: %w", err)
	}
	return &e, nil
}

func (r *Repository) FetchUnsent(ctx context.Context, limit int) ([]Event, error) {
	const query = `
		SELECT id, league_id, event_type, payload, created_at
		FROM draft_outbox
		WHERE sent_at IS NULL
		ORDER BY created_at
		LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch unsent outbox events: %w", err)
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.LeagueID, &e.EventType, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) MarkSent(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE draft_outbox SET sent_at = now() WHERE id = $1`, id); err != nil {
		return fmt.Errorf("mark outbox event sent: %w", err)
	}
	return nil
}
