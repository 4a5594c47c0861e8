package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Contract is a committed salary obligation produced by a settlement.
// Salaries are front-loaded: the total is split evenly across years with the
// rounding remainder pushed onto the final year.
type Contract struct {
	ID          uuid.UUID `json:"id"`
	LeagueID    uuid.UUID `json:"league_id"`
	TeamID      uuid.UUID `json:"team_id"`
	PlayerID    uuid.UUID `json:"player_id"`
	Position    string    `json:"position"`
	Years       int       `json:"years"`
	SalaryYear1 float64   `json:"salary_year1"`
	SalaryYear2 float64   `json:"salary_year2"`
	SalaryYear3 float64   `json:"salary_year3"`
	IsRookie    bool      `json:"is_rookie"`
	SignedAt    time.Time `json:"signed_at"`
}

// NewAuctionContract splits a winning bid total across the contract years.
func NewAuctionContract(leagueID, teamID, playerID uuid.UUID, position string, total float64, years int, signedAt time.Time) Contract {
	base := FrontLoadedYear1(total, years)
	remainder := total - base*float64(years)

	c := Contract{
		ID:          uuid.New(),
		LeagueID:    leagueID,
		TeamID:      teamID,
		PlayerID:    playerID,
		Position:    position,
		Years:       years,
		SalaryYear1: base,
		SignedAt:    signedAt,
	}
	if years >= 2 {
		c.SalaryYear2 = base
	}
	switch years {
	case 2:
		c.SalaryYear2 = base + remainder
	case 3:
		c.SalaryYear3 = base + remainder
	}
	return c
}

// WageScaleEntry maps a rookie pick slot number to standardized salary terms.
type WageScaleEntry struct {
	SlotNumber       int     `json:"slot_number"`
	Year1Salary      float64 `json:"year1_salary"`
	Year2Salary      float64 `json:"year2_salary"`
	Year3OptionPct   float64 `json:"year3_option_pct"` // e.g. 20 for +20% over year 2
}

// RookieSalaries returns the three-year terms for this scale entry. The
// year-3 team option is priced as a percentage bump over year 2.
func (w WageScaleEntry) RookieSalaries() (y1, y2, y3 float64) {
	y1 = w.Year1Salary
	y2 = w.Year2Salary
	y3 = round2(y2 * (1 + w.Year3OptionPct/100.0))
	return y1, y2, y3
}

// FallbackRookieSalary is the linear wage scale used when a league has no
// explicit entry for a slot: slot 1 earns the max, the last slot the min.
func FallbackRookieSalary(slotNumber, maxSlots int) float64 {
	const (
		maxSalary = 12.0
		minSalary = 1.0
	)
	if maxSlots <= 1 {
		return maxSalary
	}
	if slotNumber < 1 {
		slotNumber = 1
	}
	if slotNumber > maxSlots {
		slotNumber = maxSlots
	}
	decrement := (maxSalary - minSalary) / float64(maxSlots-1)
	return round2(maxSalary - decrement*float64(slotNumber-1))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
