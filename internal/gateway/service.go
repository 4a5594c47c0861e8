package gateway

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/draftroom/internal/events"
	"github.com/mcdev12/draftroom/internal/models"
	"github.com/mcdev12/draftroom/internal/session"
)

// dispatcher routes validated commands into the session registry. Every
// command enters the target league's serialization point; nothing here
// touches draft state directly.
type dispatcher struct {
	registry *session.Registry
}

func NewDispatcher(registry *session.Registry) CommandHandler {
	return &dispatcher{registry: registry}
}

func (d *dispatcher) Handle(ctx context.Context, leagueID, identityID uuid.UUID, cmd Command) error {
	switch cmd.Type {
	case CmdStartDraft, CmdRunLottery:
		mode := cmd.Mode
		if mode == "" {
			mode = models.SessionModeAuction
		}
		if cmd.Type == CmdRunLottery {
			mode = models.SessionModeRookie
		}
		s, err := d.registry.GetOrCreate(ctx, leagueID, mode)
		if err != nil {
			return err
		}
		if cmd.Type == CmdRunLottery {
			return s.RunLottery(ctx, identityID)
		}
		return s.Start(ctx, identityID)
	}

	s, ok := d.registry.Get(leagueID)
	if !ok {
		return &session.Error{
			Code:    session.CodeNotInProgress,
			Class:   session.ClassConflict,
			Message: "no live session for this league",
		}
	}

	switch cmd.Type {
	case CmdPauseDraft:
		return s.Pause(ctx, identityID)
	case CmdResumeDraft:
		return s.Resume(ctx, identityID)
	case CmdForceStop:
		return s.ForceStop(ctx, identityID)
	case CmdNominate:
		if cmd.PlayerID == nil || cmd.Amount == nil || cmd.Years == nil {
			return &session.Error{
				Code:    session.CodeInvalidAmount,
				Class:   session.ClassValidation,
				Message: "nominate requires player_id, amount and years",
			}
		}
		return s.Nominate(ctx, identityID, *cmd.PlayerID, *cmd.Amount, *cmd.Years)
	case CmdPlaceBid:
		if cmd.Amount == nil || cmd.Years == nil {
			return &session.Error{
				Code:    session.CodeInvalidAmount,
				Class:   session.ClassValidation,
				Message: "bid requires amount and years",
			}
		}
		return s.PlaceBid(ctx, identityID, *cmd.Amount, *cmd.Years)
	case CmdSelectRookie:
		if cmd.PlayerID == nil {
			return &session.Error{
				Code:    session.CodePlayerUnknown,
				Class:   session.ClassValidation,
				Message: "select requires player_id",
			}
		}
		return s.SelectRookie(ctx, identityID, *cmd.PlayerID)
	case CmdUndoLastPick:
		return s.UndoLastPick(ctx, identityID)
	case CmdVoidLot:
		return s.VoidLot(ctx, identityID)
	case CmdRevealNext:
		return s.RevealNextPick(ctx, identityID)
	default:
		return fmt.Errorf("unhandled command type %q", cmd.Type)
	}
}

// Snapshot builds the league's full resync frame, or nil when no session is
// live.
func (d *dispatcher) Snapshot(_ context.Context, leagueID uuid.UUID) (*Frame, error) {
	s, ok := d.registry.Get(leagueID)
	if !ok {
		return nil, nil
	}
	frameType := string(events.TypeUpdateState)
	if s.Mode() == models.SessionModeRookie {
		frameType = string(events.TypeUpdateRookieDraftState)
	}
	return newFrame(leagueID, frameType, s.Snapshot())
}

func rejectionDetails(err error) (code, class, message string) {
	se := session.AsError(err)
	return se.Code, string(se.Class), se.Message
}

// Service bundles the gateway: WebSocket connections, inbound dispatch and
// the JetStream fan-in.
type Service struct {
	connectionManager *ConnectionManager
	wsHandler         *WebSocketHandler
	eventConsumer     *EventConsumer
}

// Config holds configuration for the gateway service.
type Config struct {
	ConnectionConfig ConnectionConfig
	JetStreamConfig  JetStreamConsumerConfig
}

func DefaultConfig() Config {
	return Config{
		ConnectionConfig: DefaultConnectionConfig(),
		JetStreamConfig:  DefaultJetStreamConsumerConfig(),
	}
}

func NewService(config Config, registry *session.Registry) (*Service, error) {
	handler := NewDispatcher(registry)
	connectionManager := NewConnectionManager(config.ConnectionConfig, NewPresence(), handler)
	wsHandler := NewWebSocketHandler(connectionManager)

	eventConsumer, err := NewEventConsumer(connectionManager, config.JetStreamConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create event consumer: %w", err)
	}

	return &Service{
		connectionManager: connectionManager,
		wsHandler:         wsHandler,
		eventConsumer:     eventConsumer,
	}, nil
}

// Start begins the gateway service.
func (s *Service) Start(ctx context.Context) error {
	log.Info().Msg("starting draft gateway service")

	go s.connectionManager.Start(ctx)
	go func() {
		if err := s.eventConsumer.Start(ctx); err != nil {
			log.Error().Err(err).Msg("event consumer failed")
		}
	}()

	<-ctx.Done()
	return s.eventConsumer.Stop()
}

// Handler exposes the HTTP surface for route registration.
func (s *Service) Handler() *WebSocketHandler {
	return s.wsHandler
}
