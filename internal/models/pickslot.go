package models

import (
	"time"

	"github.com/google/uuid"
)

// PickSlot is one draft selection opportunity. Ownership can change via
// trades, which is why OriginalOwner and CurrentOwner are tracked separately:
// lottery position follows the original owner, the clock follows the current
// owner.
type PickSlot struct {
	ID                  uuid.UUID  `json:"id"`
	LeagueID            uuid.UUID  `json:"league_id"`
	Season              int        `json:"season"`
	Round               int        `json:"round"`
	SlotNumber          *int       `json:"slot_number,omitempty"` // nil until lottery-assigned
	OriginalOwnerTeamID uuid.UUID  `json:"original_owner_team_id"`
	CurrentOwnerTeamID  uuid.UUID  `json:"current_owner_team_id"`
	PlayerID            *uuid.UUID `json:"player_id,omitempty"` // nil until selected
	IsRevealed          bool       `json:"is_revealed"`
	PickedAt            *time.Time `json:"picked_at,omitempty"`
}

// Consumed reports whether a player has been assigned to this slot.
func (p *PickSlot) Consumed() bool {
	return p.PlayerID != nil
}
