package models

import (
	"time"

	"github.com/google/uuid"
)

// LeagueConfig is the per-league draft configuration consumed from the
// surrounding product. The session never mutates it.
type LeagueConfig struct {
	LeagueID       uuid.UUID        `json:"league_id"`
	Season         int              `json:"season"`
	SalaryCap      float64          `json:"salary_cap"`
	RosterLimit    int              `json:"roster_limit"`
	PositionLimits map[string]int   `json:"position_limits,omitempty"`
	BidWindow      time.Duration    `json:"bid_window"`
	AntiSnipe      time.Duration    `json:"anti_snipe"`
	PickClock      time.Duration    `json:"pick_clock"`
	ExpiryPolicy   PickExpiryPolicy `json:"expiry_policy"`
	TurnOrder      TurnOrder        `json:"turn_order"`
	LotterySlots   int              `json:"lottery_slots"`
	WageScale      []WageScaleEntry `json:"wage_scale,omitempty"`
}

// WageScaleFor looks up the scale entry for a slot, falling back to the
// linear scale when the league has no explicit entry.
func (c LeagueConfig) WageScaleFor(slotNumber, totalSlots int) (y1, y2, y3 float64) {
	for _, e := range c.WageScale {
		if e.SlotNumber == slotNumber {
			return e.RookieSalaries()
		}
	}
	y1 = FallbackRookieSalary(slotNumber, totalSlots)
	return y1, y1, y1
}

// TeamStanding is one row of the league's standings, consumed for lottery
// odds. Worse records get better odds.
type TeamStanding struct {
	TeamID   uuid.UUID `json:"team_id"`
	TeamName string    `json:"team_name"`
	Wins     int       `json:"wins"`
	Losses   int       `json:"losses"`
}

// WinPct returns the standing's win percentage, 0 when no games were played.
func (s TeamStanding) WinPct() float64 {
	games := s.Wins + s.Losses
	if games == 0 {
		return 0
	}
	return float64(s.Wins) / float64(games)
}
