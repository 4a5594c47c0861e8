// Package lottery computes draft lottery odds and outcomes. The engine is
// pure: it takes standings and a random source and returns a slot ordering,
// leaving persistence and broadcasting to the session layer.
package lottery

import (
	"errors"
	"math/rand"
	"sort"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/models"
)

// ErrExhausted is returned by RevealNext once every slot has been revealed.
var ErrExhausted = errors.New("lottery fully revealed")

// weightTable maps worst-first standings position to lottery weight. Teams
// beyond the table share the trailing weight.
var weightTable = []int{140, 140, 140, 125, 105, 90, 75, 60, 45, 30, 20, 15, 10, 5}

const (
	trailingWeight = 5
	// equalWeight applies when no team has played a game yet, typically a
	// league's inaugural draft.
	equalWeight = 100
)

// Odds is one team's chance of winning a weighted draw.
type Odds struct {
	TeamID      uuid.UUID
	TeamName    string
	Weight      int
	Probability float64
}

// Assignment binds a team to a final slot number, 1 being the top pick.
type Assignment struct {
	TeamID     uuid.UUID
	SlotNumber int
}

// sortWorstFirst orders standings from worst record to best. Ties break on
// fewer wins, then team ID so the ordering is stable across processes.
func sortWorstFirst(standings []models.TeamStanding) []models.TeamStanding {
	out := make([]models.TeamStanding, len(standings))
	copy(out, standings)
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := out[i].WinPct(), out[j].WinPct()
		if pi != pj {
			return pi < pj
		}
		if out[i].Wins != out[j].Wins {
			return out[i].Wins < out[j].Wins
		}
		return out[i].TeamID.String() < out[j].TeamID.String()
	})
	return out
}

func weightFor(worstFirstPos int, anyGamesPlayed bool) int {
	if !anyGamesPlayed {
		return equalWeight
	}
	if worstFirstPos < len(weightTable) {
		return weightTable[worstFirstPos]
	}
	return trailingWeight
}

func anyGames(standings []models.TeamStanding) bool {
	for _, s := range standings {
		if s.Wins+s.Losses > 0 {
			return true
		}
	}
	return false
}

// ComputeOdds returns each team's weight and probability of landing the
// first overall pick, worst record first.
func ComputeOdds(standings []models.TeamStanding) []Odds {
	ordered := sortWorstFirst(standings)
	played := anyGames(ordered)

	total := 0
	weights := make([]int, len(ordered))
	for i := range ordered {
		weights[i] = weightFor(i, played)
		total += weights[i]
	}

	odds := make([]Odds, len(ordered))
	for i, s := range ordered {
		var p float64
		if total > 0 {
			p = float64(weights[i]) / float64(total)
		}
		odds[i] = Odds{TeamID: s.TeamID, TeamName: s.TeamName, Weight: weights[i], Probability: p}
	}
	return odds
}

// RunDraw produces the complete first-round ordering. The first liveSlots
// slots are drawn by weight without replacement; every remaining slot falls
// to the undrawn teams in inverse standings order, worst record first.
func RunDraw(rng *rand.Rand, standings []models.TeamStanding, liveSlots int) []Assignment {
	ordered := sortWorstFirst(standings)
	played := anyGames(ordered)
	if liveSlots > len(ordered) {
		liveSlots = len(ordered)
	}

	type entry struct {
		team   uuid.UUID
		weight int
	}
	pool := make([]entry, len(ordered))
	for i, s := range ordered {
		pool[i] = entry{team: s.TeamID, weight: weightFor(i, played)}
	}

	assignments := make([]Assignment, 0, len(ordered))
	for slot := 1; slot <= liveSlots; slot++ {
		total := 0
		for _, e := range pool {
			total += e.weight
		}
		roll := rng.Intn(total)
		idx := 0
		for i, e := range pool {
			roll -= e.weight
			if roll < 0 {
				idx = i
				break
			}
		}
		assignments = append(assignments, Assignment{TeamID: pool[idx].team, SlotNumber: slot})
		pool = append(pool[:idx], pool[idx+1:]...)
	}

	slot := liveSlots + 1
	for _, e := range pool {
		assignments = append(assignments, Assignment{TeamID: e.team, SlotNumber: slot})
		slot++
	}
	return assignments
}

// Draw is the reveal state machine over a precomputed outcome. The cursor
// walks from the last live slot down to slot 1 so the top pick comes out
// last. Revealing the first live slot also discloses the non-lottery
// remainder of the board.
type Draw struct {
	outcome   map[int]Assignment
	liveSlots int
	cursor    int
}

// NewDraw wraps a RunDraw outcome for incremental reveal.
func NewDraw(outcome []Assignment, liveSlots int) *Draw {
	m := make(map[int]Assignment, len(outcome))
	for _, a := range outcome {
		m[a.SlotNumber] = a
	}
	if liveSlots > len(outcome) {
		liveSlots = len(outcome)
	}
	return &Draw{outcome: m, liveSlots: liveSlots, cursor: liveSlots}
}

// RevealNext returns the next slot to disclose, plus the non-lottery
// remainder on the first call. Calling past the top pick returns
// ErrExhausted and changes nothing.
func (d *Draw) RevealNext() (Assignment, []Assignment, error) {
	if d.cursor < 1 {
		return Assignment{}, nil, ErrExhausted
	}

	revealed := d.outcome[d.cursor]
	var remainder []Assignment
	if d.cursor == d.liveSlots {
		for slot := d.liveSlots + 1; slot <= len(d.outcome); slot++ {
			remainder = append(remainder, d.outcome[slot])
		}
	}
	d.cursor--
	return revealed, remainder, nil
}

// Remaining reports how many live slots are still hidden.
func (d *Draw) Remaining() int {
	if d.cursor < 0 {
		return 0
	}
	return d.cursor
}
