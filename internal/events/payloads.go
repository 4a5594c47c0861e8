package events

import (
	"time"

	"github.com/google/uuid"
)

// TeamBudget is the per-team financial summary carried inside state
// payloads and settlement deltas. Budget shown to clients already has the
// current high bid's first-year salary frozen out for the leading team.
type TeamBudget struct {
	TeamID          uuid.UUID      `json:"team_id"`
	TeamName        string         `json:"team_name"`
	RemainingBudget float64        `json:"remaining_budget"`
	RosterCount     int            `json:"roster_count"`
	PositionCounts  map[string]int `json:"position_counts,omitempty"`
}

// BidEntry mirrors one accepted bid for the lot history shown in clients.
type BidEntry struct {
	BidderTeamID uuid.UUID `json:"bidder_team_id"`
	TotalAmount  float64   `json:"total_amount"`
	Years        int       `json:"years"`
	PlacedAt     time.Time `json:"placed_at"`
}

// LotState describes the currently open lot, if any.
type LotState struct {
	PlayerID         uuid.UUID  `json:"player_id"`
	PlayerName       string     `json:"player_name"`
	Position         string     `json:"position"`
	OpeningPrice     float64    `json:"opening_price"`
	CurrentBidTotal  float64    `json:"current_bid_total"`
	CurrentBidYears  int        `json:"current_bid_years"`
	HighBidderTeamID *uuid.UUID `json:"high_bidder_team_id,omitempty"`
	BidEndTime       time.Time  `json:"bid_end_time"`
	Bids             []BidEntry `json:"bids"`
}

// AuctionState is the full resyncable snapshot of an auction session.
type AuctionState struct {
	LeagueID         uuid.UUID    `json:"league_id"`
	Status           string       `json:"status"`
	CurrentTurnTeam  *uuid.UUID   `json:"current_turn_team,omitempty"`
	CurrentTurnIndex int          `json:"current_turn_index"`
	Lot              *LotState    `json:"lot,omitempty"`
	Teams            []TeamBudget `json:"teams"`
	ServerTime       time.Time    `json:"server_time"`
}

// PickSlotState describes one rookie pick slot on the board.
type PickSlotState struct {
	SlotID       uuid.UUID  `json:"slot_id"`
	Round        int        `json:"round"`
	SlotNumber   *int       `json:"slot_number,omitempty"`
	OwnerTeamID  uuid.UUID  `json:"owner_team_id"`
	PlayerID     *uuid.UUID `json:"player_id,omitempty"`
	PlayerName   string     `json:"player_name,omitempty"`
	IsRevealed   bool       `json:"is_revealed"`
}

// RookieState is the full resyncable snapshot of a rookie draft session.
type RookieState struct {
	LeagueID         uuid.UUID       `json:"league_id"`
	Status           string          `json:"status"`
	CurrentTurnTeam  *uuid.UUID      `json:"current_turn_team,omitempty"`
	CurrentTurnIndex int             `json:"current_turn_index"`
	PickDeadline     *time.Time      `json:"pick_deadline,omitempty"`
	Board            []PickSlotState `json:"board"`
	Teams            []TeamBudget    `json:"teams"`
	ServerTime       time.Time       `json:"server_time"`
}

type SessionStartedPayload struct {
	LeagueID  uuid.UUID `json:"league_id"`
	Mode      string    `json:"mode"`
	TurnOrder []uuid.UUID `json:"turn_order"`
}

type SessionPausedPayload struct {
	LeagueID uuid.UUID `json:"league_id"`
}

type SessionResumedPayload struct {
	LeagueID uuid.UUID `json:"league_id"`
}

type SessionCompletedPayload struct {
	LeagueID uuid.UUID `json:"league_id"`
	Mode     string    `json:"mode"`
}

type LotOpenedPayload struct {
	LeagueID        uuid.UUID `json:"league_id"`
	NominatorTeamID uuid.UUID `json:"nominator_team_id"`
	Lot             LotState  `json:"lot"`
}

// BidUpdatePayload is the delta broadcast after every accepted bid. It
// carries the new leader, the possibly extended deadline and the budgets
// of the teams the bid touched.
type BidUpdatePayload struct {
	LeagueID  uuid.UUID    `json:"league_id"`
	Lot       LotState     `json:"lot"`
	Extended  bool         `json:"extended"`
	Budgets   []TeamBudget `json:"budgets"`
}

type PlayerSoldPayload struct {
	LeagueID      uuid.UUID  `json:"league_id"`
	PlayerID      uuid.UUID  `json:"player_id"`
	PlayerName    string     `json:"player_name"`
	WinnerTeamID  uuid.UUID  `json:"winner_team_id"`
	TotalAmount   float64    `json:"total_amount"`
	Years         int        `json:"years"`
	Salaries      []float64  `json:"salaries"`
	NextTurnTeam  *uuid.UUID `json:"next_turn_team,omitempty"`
	Budgets       []TeamBudget `json:"budgets"`
}

type PickClockStartedPayload struct {
	LeagueID     uuid.UUID `json:"league_id"`
	OnClockTeam  uuid.UUID `json:"on_clock_team"`
	SlotID       uuid.UUID `json:"slot_id"`
	PickDeadline time.Time `json:"pick_deadline"`
}

type PickClockExpiredPayload struct {
	LeagueID    uuid.UUID `json:"league_id"`
	OnClockTeam uuid.UUID `json:"on_clock_team"`
	SlotID      uuid.UUID `json:"slot_id"`
	Action      string    `json:"action"`
}

type PlayerPickedPayload struct {
	LeagueID     uuid.UUID  `json:"league_id"`
	SlotID       uuid.UUID  `json:"slot_id"`
	Round        int        `json:"round"`
	SlotNumber   *int       `json:"slot_number,omitempty"`
	TeamID       uuid.UUID  `json:"team_id"`
	PlayerID     uuid.UUID  `json:"player_id"`
	PlayerName   string     `json:"player_name"`
	Salaries     []float64  `json:"salaries"`
	AutoPicked   bool       `json:"auto_picked"`
	NextTurnTeam *uuid.UUID `json:"next_turn_team,omitempty"`
}

type PickUndonePayload struct {
	LeagueID uuid.UUID `json:"league_id"`
	SlotID   *uuid.UUID `json:"slot_id,omitempty"`
	PlayerID uuid.UUID `json:"player_id"`
	TeamID   uuid.UUID `json:"team_id"`
}

// TeamOdds is one team's lottery probability for the top pick.
type TeamOdds struct {
	TeamID      uuid.UUID `json:"team_id"`
	TeamName    string    `json:"team_name"`
	Weight      int       `json:"weight"`
	Probability float64   `json:"probability"`
}

type LotteryStartedPayload struct {
	LeagueID  uuid.UUID  `json:"league_id"`
	Season    string     `json:"season"`
	LiveSlots int        `json:"live_slots"`
	Odds      []TeamOdds `json:"odds"`
}

// PickRevealedPayload announces one lottery slot assignment. When the
// reveal cursor first fires, the non-lottery remainder of the board is
// disclosed alongside the revealed slot.
type PickRevealedPayload struct {
	LeagueID   uuid.UUID       `json:"league_id"`
	Slot       PickSlotState   `json:"slot"`
	AlsoShown  []PickSlotState `json:"also_shown,omitempty"`
	Remaining  int             `json:"remaining"`
}

// PresencePayload is broadcast process-locally when membership changes.
// It never goes through the outbox, presence is advisory.
type PresencePayload struct {
	LeagueID   uuid.UUID   `json:"league_id"`
	Identities []string    `json:"identities"`
	Joined     string      `json:"joined,omitempty"`
	Left       string      `json:"left,omitempty"`
}
