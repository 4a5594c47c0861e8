package models

import (
	"time"

	"github.com/google/uuid"
)

// SessionMode defines the kind of live draft a session runs.
type SessionMode string

const (
	SessionModeAuction SessionMode = "AUCTION"
	SessionModeRookie  SessionMode = "ROOKIE"
)

// SessionStatus defines the lifecycle status of a draft session.
type SessionStatus string

const (
	SessionStatusLobby      SessionStatus = "LOBBY"
	SessionStatusInProgress SessionStatus = "IN_PROGRESS"
	SessionStatusPaused     SessionStatus = "PAUSED"
	SessionStatusCompleted  SessionStatus = "COMPLETED"
	SessionStatusCancelled  SessionStatus = "CANCELLED"
)

// TurnOrder controls how nomination rights rotate in an auction session.
type TurnOrder string

const (
	TurnOrderFixed TurnOrder = "FIXED"
	TurnOrderSnake TurnOrder = "SNAKE"
)

// PickExpiryPolicy is what happens when a rookie pick clock runs out.
type PickExpiryPolicy string

const (
	// PickExpiryNone keeps the clock running until the GM or an admin acts.
	PickExpiryNone PickExpiryPolicy = "NONE"
	// PickExpirySkip advances to the next slot leaving the expired one unfilled.
	PickExpirySkip PickExpiryPolicy = "AUTO_SKIP"
	// PickExpiryBestAvailable drafts the highest-ranked remaining rookie.
	PickExpiryBestAvailable PickExpiryPolicy = "AUTO_BEST"
)

// Participant is one team/GM seat inside a draft session. Budget and roster
// fields are mutated only through the ledger.
type Participant struct {
	TeamID          uuid.UUID      `json:"team_id"`
	IdentityID      uuid.UUID      `json:"identity_id"`
	TeamName        string         `json:"team_name"`
	RemainingBudget float64        `json:"remaining_budget"`
	RosterCount     int            `json:"roster_count"`
	PositionCounts  map[string]int `json:"position_counts,omitempty"`
}

// DraftSession is the live event for one league. Exactly one active session
// per league per mode at a time.
type DraftSession struct {
	ID               uuid.UUID     `json:"id"`
	LeagueID         uuid.UUID     `json:"league_id"`
	Mode             SessionMode   `json:"mode"`
	Status           SessionStatus `json:"status"`
	Participants     []Participant `json:"participants"`
	CurrentTurnIndex int           `json:"current_turn_index"`
	StartedAt        *time.Time    `json:"started_at,omitempty"`
	CompletedAt      *time.Time    `json:"completed_at,omitempty"`
}
