package session

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mcdev12/draftroom/internal/models"
)

// Registry holds the live sessions, one per league. Sessions are created on
// first use and torn down when they reach a terminal status, so an idle
// process carries no per-league state.
type Registry struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session
	deps     Deps
	logger   zerolog.Logger
}

func NewRegistry(deps Deps) *Registry {
	return &Registry{
		sessions: make(map[uuid.UUID]*Session),
		deps:     deps,
		logger:   deps.Logger.With().Str("component", "session_registry").Logger(),
	}
}

// Get returns the league's live session, if any.
func (r *Registry) Get(leagueID uuid.UUID) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[leagueID]
	return s, ok
}

// GetOrCreate returns the league's session, loading one in the requested
// mode if none is live. A league runs at most one session at a time; asking
// for a different mode while one is live is a conflict.
func (r *Registry) GetOrCreate(ctx context.Context, leagueID uuid.UUID, mode models.SessionMode) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions[leagueID]; ok {
		if s.Mode() != mode {
			return nil, conflictErr(CodeAlreadyStarted, "league has a live %s session", s.Mode())
		}
		return s, nil
	}

	s, err := New(ctx, leagueID, mode, r.deps)
	if err != nil {
		return nil, err
	}
	s.SetTerminalHook(r.remove)
	r.sessions[leagueID] = s
	r.logger.Info().Str("league_id", leagueID.String()).Str("mode", string(mode)).Msg("session created")
	return s, nil
}

func (r *Registry) remove(leagueID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, leagueID)
	r.logger.Info().Str("league_id", leagueID.String()).Msg("session torn down")
}
