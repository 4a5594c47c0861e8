package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

type JetStreamPublisherConfig struct {
	URL           string
	StreamName    string
	SubjectPrefix string // e.g. "draft.events"
	MaxReconnects int
	ReconnectWait time.Duration
}

func DefaultJetStreamPublisherConfig() JetStreamPublisherConfig {
	return JetStreamPublisherConfig{
		URL:           nats.DefaultURL,
		StreamName:    "DRAFT_EVENTS",
		SubjectPrefix: "draft.events",
		MaxReconnects: -1, // Infinite
		ReconnectWait: 2 * time.Second,
	}
}

// JetStreamPublisher publishes outbox events to a JetStream stream. Each
// event lands on a subject keyed by league and event type so consumers can
// filter either way.
type JetStreamPublisher struct {
	nc  *nats.Conn
	js  jetstream.JetStream
	cfg JetStreamPublisherConfig
}

func NewJetStreamPublisher(cfg JetStreamPublisherConfig) (*JetStreamPublisher, error) {
	opts := []nats.Option{
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	p := &JetStreamPublisher{nc: nc, js: js, cfg: cfg}
	if err := p.ensureStream(context.Background()); err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

// ensureStream creates the stream if this is the first process to boot
// against an empty JetStream.
func (p *JetStreamPublisher) ensureStream(ctx context.Context) error {
	_, err := p.js.Stream(ctx, p.cfg.StreamName)
	if err == nil {
		return nil
	}
	_, err = p.js.CreateStream(ctx, jetstream.StreamConfig{
		Name:      p.cfg.StreamName,
		Subjects:  []string{p.cfg.SubjectPrefix + ".>"},
		Retention: jetstream.LimitsPolicy,
		MaxAge:    24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("create stream %s: %w", p.cfg.StreamName, err)
	}
	log.Info().Str("stream", p.cfg.StreamName).Msg("created JetStream stream")
	return nil
}

func (p *JetStreamPublisher) Publish(ctx context.Context, event Event) error {
	subject := fmt.Sprintf("%s.%s.%s", p.cfg.SubjectPrefix, event.LeagueID, event.EventType)

	envelope := map[string]any{
		"eventId":   event.ID.String(),
		"eventType": event.EventType,
		"leagueId":  event.LeagueID.String(),
		"timestamp": event.CreatedAt,
		"payload":   json.RawMessage(event.Payload),
	}
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	// Msg ID dedupes redeliveries when the listener retries after a crash
	// between publish and mark-sent.
	if _, err := p.js.Publish(ctx, subject, data, jetstream.WithMsgID(event.ID.String())); err != nil {
		return fmt.Errorf("publish to %s: %w", subject, err)
	}
	return nil
}

func (p *JetStreamPublisher) Close() {
	if p.nc != nil {
		p.nc.Close()
	}
}
