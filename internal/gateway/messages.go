package gateway

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mcdev12/draftroom/internal/models"
)

// CommandType enumerates every inbound client operation. Anything outside
// this set is rejected before it reaches a session.
type CommandType string

const (
	CmdStartDraft   CommandType = "StartDraft"
	CmdPauseDraft   CommandType = "PauseDraft"
	CmdResumeDraft  CommandType = "ResumeDraft"
	CmdForceStop    CommandType = "ForceStop"
	CmdNominate     CommandType = "Nominate"
	CmdPlaceBid     CommandType = "PlaceBid"
	CmdSelectRookie CommandType = "SelectRookie"
	CmdUndoLastPick CommandType = "UndoLastPick"
	CmdVoidLot      CommandType = "VoidLot"
	CmdRunLottery   CommandType = "RunLottery"
	CmdRevealNext   CommandType = "RevealNextPick"
	CmdResync       CommandType = "Resync"
)

// Command is one inbound frame. Clients send intent only: identity comes
// from the connection, current state lives server-side and client-echoed
// state is never trusted.
type Command struct {
	Type     CommandType        `json:"type"`
	Mode     models.SessionMode `json:"mode,omitempty"`      // StartDraft, RunLottery
	PlayerID *uuid.UUID         `json:"player_id,omitempty"` // Nominate, SelectRookie
	Amount   *float64           `json:"amount,omitempty"`    // Nominate (opening price), PlaceBid (total)
	Years    *int               `json:"years,omitempty"`     // Nominate, PlaceBid
}

func parseCommand(data []byte) (Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return Command{}, fmt.Errorf("malformed command: %w", err)
	}
	switch cmd.Type {
	case CmdStartDraft, CmdPauseDraft, CmdResumeDraft, CmdForceStop,
		CmdNominate, CmdPlaceBid, CmdSelectRookie,
		CmdUndoLastPick, CmdVoidLot, CmdRunLottery, CmdRevealNext, CmdResync:
		return cmd, nil
	default:
		return Command{}, fmt.Errorf("unknown command type %q", cmd.Type)
	}
}

// Frame is one outbound WebSocket message.
type Frame struct {
	ID        string          `json:"id"`
	LeagueID  string          `json:"league_id"`
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ErrorData is the payload of an Error frame, sent only to the caller whose
// command was rejected.
type ErrorData struct {
	Code    string `json:"code"`
	Class   string `json:"class"`
	Message string `json:"message"`
	Command string `json:"command,omitempty"`
}

func newFrame(leagueID uuid.UUID, frameType string, payload any) (*Frame, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s frame: %w", frameType, err)
	}
	return &Frame{
		ID:        uuid.New().String(),
		LeagueID:  leagueID.String(),
		Type:      frameType,
		Timestamp: time.Now(),
		Data:      data,
	}, nil
}
