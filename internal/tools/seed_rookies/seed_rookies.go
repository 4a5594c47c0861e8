package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftroom/internal/dbconfig"
)

// RookiePlayer mirrors the rookies.json layout produced by the scouting
// export. DraftRank is nil for players outside the ranked board.
type RookiePlayer struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"`
	Valuation float64   `json:"valuation"`
	DraftRank *int      `json:"draft_rank"`
}

func main() {
	ctx := context.Background()

	path := "internal/assets/rookies.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read rookies.json: %v\n", err)
		os.Exit(1)
	}
	var rookies []RookiePlayer
	if err := json.Unmarshal(data, &rookies); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal rookies: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	total, inserted, skipped, errs := len(rookies), 0, 0, 0
	for _, r := range rookies {
		tag, err := pool.Exec(ctx, `
            INSERT INTO players (
              id, full_name, position, valuation, is_rookie, draft_rank
            ) VALUES ($1,$2,$3,$4,TRUE,$5)
            ON CONFLICT (id) DO UPDATE
              SET draft_rank = EXCLUDED.draft_rank,
                  valuation  = EXCLUDED.valuation
        `, r.ID, r.FullName, r.Position, r.Valuation, r.DraftRank)
		if err != nil {
			errs++
			continue
		}
		if tag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}
	fmt.Printf(
		"Rookies seed: total=%d inserted=%d skipped=%d errors=%d\n",
		total, inserted, skipped, errs,
	)
}
