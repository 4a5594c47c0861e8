package models

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Lot is the single player currently open for bidding in an auction session.
// A lot exists only between nomination and settlement.
type Lot struct {
	PlayerID         uuid.UUID `json:"player_id"`
	PlayerName       string    `json:"player_name"`
	Position         string    `json:"position"`
	OpeningPrice     float64   `json:"opening_price"`
	CurrentBidTotal  float64   `json:"current_bid_total"`
	CurrentBidYears  int       `json:"current_bid_years"`
	CurrentBidYear1  float64   `json:"current_bid_year1"`
	HighBidderTeamID uuid.UUID `json:"high_bidder_team_id"`
	BidEndTime       time.Time `json:"bid_end_time"`
	Bids             []Bid     `json:"bids"`
}

// Bid is an immutable record of one offer on a lot. Append-only history.
type Bid struct {
	ID           uuid.UUID `json:"id"`
	PlayerID     uuid.UUID `json:"player_id"`
	BidderTeamID uuid.UUID `json:"bidder_team_id"`
	TotalAmount  float64   `json:"total_amount"`
	Years        int       `json:"years"`
	PlacedAt     time.Time `json:"placed_at"`
}

// FrontLoadedYear1 returns the year-1 salary of a front-loaded contract:
// the total apportioned evenly across years, rounded down. Year 1 is what
// must fit under the cap check during bidding.
func FrontLoadedYear1(total float64, years int) float64 {
	if years < 1 {
		years = 1
	}
	return math.Floor(total / float64(years))
}
