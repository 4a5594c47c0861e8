package outbox

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/events"
)

// Sink is the production events.Sink: session events become outbox rows and
// reach clients through the listener and the message bus.
type Sink struct {
	repo *Repository
}

func NewSink(repo *Repository) *Sink {
	return &Sink{repo: repo}
}

func (s *Sink) Emit(ctx context.Context, leagueID uuid.UUID, eventType events.Type, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return s.repo.Insert(ctx, Event{
		ID:        uuid.New(),
		LeagueID:  leagueID,
		EventType: string(eventType),
		Payload:   data,
	})
}
