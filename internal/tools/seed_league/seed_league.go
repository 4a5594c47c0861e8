package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/draftroom/internal/dbconfig"
)

// LeagueSeed is the league.json layout: one league's draft settings, its
// seats and the rookie pick board for the coming season. Slot numbers on
// rounds past the first are known up front; round one stays unnumbered
// until the lottery runs.
type LeagueSeed struct {
	LeagueID uuid.UUID `json:"league_id"`
	Season   int       `json:"season"`

	Settings struct {
		SalaryCap        float64         `json:"salary_cap"`
		RosterLimit      int             `json:"roster_limit"`
		BidWindowSeconds int             `json:"bid_window_seconds"`
		AntiSnipeSeconds int             `json:"anti_snipe_seconds"`
		PickClockSeconds int             `json:"pick_clock_seconds"`
		ExpiryPolicy     string          `json:"expiry_policy"`
		TurnOrder        string          `json:"turn_order"`
		LotterySlots     int             `json:"lottery_slots"`
		PositionLimits   json.RawMessage `json:"position_limits"`
		WageScale        json.RawMessage `json:"wage_scale"`
	} `json:"settings"`

	Teams []struct {
		TeamID        uuid.UUID `json:"team_id"`
		IdentityID    uuid.UUID `json:"identity_id"`
		TeamName      string    `json:"team_name"`
		DraftPosition int       `json:"draft_position"`
		IsAdmin       bool      `json:"is_admin"`
	} `json:"teams"`

	Picks []struct {
		ID                  uuid.UUID `json:"id"`
		Round               int       `json:"round"`
		SlotNumber          *int      `json:"slot_number"`
		OriginalOwnerTeamID uuid.UUID `json:"original_owner_team_id"`
		CurrentOwnerTeamID  uuid.UUID `json:"current_owner_team_id"`
	} `json:"picks"`
}

func main() {
	ctx := context.Background()

	path := "internal/assets/league.json"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read league.json: %v\n", err)
		os.Exit(1)
	}
	var seed LeagueSeed
	if err := json.Unmarshal(data, &seed); err != nil {
		fmt.Fprintf(os.Stderr, "unmarshal league: %v\n", err)
		os.Exit(1)
	}

	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect error: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Everything lands in one transaction so a half-seeded league never
	// becomes visible to the draft service.
	err = pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		s := seed.Settings
		if _, err := tx.Exec(ctx, `
            INSERT INTO league_draft_settings (
              league_id, season, salary_cap, roster_limit,
              bid_window_seconds, anti_snipe_seconds, pick_clock_seconds,
              expiry_policy, turn_order, lottery_slots,
              position_limits, wage_scale
            ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
            ON CONFLICT (league_id) DO UPDATE SET
              season = EXCLUDED.season,
              salary_cap = EXCLUDED.salary_cap,
              roster_limit = EXCLUDED.roster_limit,
              bid_window_seconds = EXCLUDED.bid_window_seconds,
              anti_snipe_seconds = EXCLUDED.anti_snipe_seconds,
              pick_clock_seconds = EXCLUDED.pick_clock_seconds,
              expiry_policy = EXCLUDED.expiry_policy,
              turn_order = EXCLUDED.turn_order,
              lottery_slots = EXCLUDED.lottery_slots,
              position_limits = EXCLUDED.position_limits,
              wage_scale = EXCLUDED.wage_scale
        `, seed.LeagueID, seed.Season, s.SalaryCap, s.RosterLimit,
			s.BidWindowSeconds, s.AntiSnipeSeconds, s.PickClockSeconds,
			s.ExpiryPolicy, s.TurnOrder, s.LotterySlots,
			s.PositionLimits, s.WageScale,
		); err != nil {
			return fmt.Errorf("upsert settings: %w", err)
		}

		for _, t := range seed.Teams {
			if _, err := tx.Exec(ctx, `
                INSERT INTO league_teams (
                  league_id, team_id, identity_id, team_name, draft_position
                ) VALUES ($1,$2,$3,$4,$5)
                ON CONFLICT (league_id, team_id) DO UPDATE SET
                  identity_id = EXCLUDED.identity_id,
                  team_name = EXCLUDED.team_name,
                  draft_position = EXCLUDED.draft_position
            `, seed.LeagueID, t.TeamID, t.IdentityID, t.TeamName, t.DraftPosition); err != nil {
				return fmt.Errorf("upsert team %s: %w", t.TeamName, err)
			}
			if t.IsAdmin {
				if _, err := tx.Exec(ctx, `
                    INSERT INTO league_admins (league_id, identity_id)
                    VALUES ($1,$2)
                    ON CONFLICT DO NOTHING
                `, seed.LeagueID, t.IdentityID); err != nil {
					return fmt.Errorf("upsert admin %s: %w", t.IdentityID, err)
				}
			}
		}

		for _, p := range seed.Picks {
			if _, err := tx.Exec(ctx, `
                INSERT INTO draft_picks (
                  id, league_id, season, round, slot_number,
                  original_owner_team_id, current_owner_team_id,
                  player_id, is_revealed, picked_at
                ) VALUES ($1,$2,$3,$4,$5,$6,$7,NULL,FALSE,NULL)
                ON CONFLICT (id) DO NOTHING
            `, p.ID, seed.LeagueID, seed.Season, p.Round, p.SlotNumber,
				p.OriginalOwnerTeamID, p.CurrentOwnerTeamID,
			); err != nil {
				return fmt.Errorf("insert pick %s: %w", p.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf(
		"League seed: league=%s season=%d teams=%d picks=%d\n",
		seed.LeagueID, seed.Season, len(seed.Teams), len(seed.Picks),
	)
}
