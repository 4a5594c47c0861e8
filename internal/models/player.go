package models

import (
	"github.com/google/uuid"
)

// CatalogPlayer is the slice of the player catalog the draft core needs:
// identity, position and valuation. Everything else about a player lives in
// the surrounding product.
type CatalogPlayer struct {
	ID        uuid.UUID `json:"id"`
	FullName  string    `json:"full_name"`
	Position  string    `json:"position"`
	Valuation float64   `json:"valuation"`
	IsRookie  bool      `json:"is_rookie"`
	DraftRank *int      `json:"draft_rank,omitempty"` // external consensus rank, lower is better
}
