package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Type identifies an outbound draft event.
type Type string

const (
	TypeSessionStarted   Type = "SessionStarted"
	TypeSessionPaused    Type = "SessionPaused"
	TypeSessionResumed   Type = "SessionResumed"
	TypeSessionCompleted Type = "SessionCompleted"

	TypeLotOpened  Type = "LotOpened"
	TypeBidUpdate  Type = "BidUpdate"
	TypePlayerSold Type = "PlayerSold"
	TypeLotVoided  Type = "LotVoided"

	TypePickClockStarted Type = "PickClockStarted"
	TypePickClockExpired Type = "PickClockExpired"
	TypePlayerPicked     Type = "PlayerPicked"
	TypePickUndone       Type = "PickUndone"

	TypeLotteryStarted Type = "LotteryStarted"
	TypePickRevealed   Type = "PickRevealed"

	TypeUpdateState            Type = "UpdateState"
	TypeUpdateRookieDraftState Type = "UpdateRookieDraftState"
	TypePresenceChanged        Type = "PresenceChanged"
)

// Envelope is the wire form of one event as it travels outbox -> NATS ->
// gateway -> WebSocket clients.
type Envelope struct {
	ID        uuid.UUID       `json:"id"`
	LeagueID  uuid.UUID       `json:"league_id"`
	Type      Type            `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Sink accepts events produced inside a session's serialization point.
// The production sink is the transactional outbox; tests use a capture sink.
type Sink interface {
	Emit(ctx context.Context, leagueID uuid.UUID, eventType Type, payload any) error
}
