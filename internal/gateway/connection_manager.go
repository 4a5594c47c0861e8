package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// CommandHandler executes inbound commands and builds resync snapshots. The
// service layer implements it on top of the session registry.
type CommandHandler interface {
	Handle(ctx context.Context, leagueID, identityID uuid.UUID, cmd Command) error
	Snapshot(ctx context.Context, leagueID uuid.UUID) (*Frame, error)
}

// ConnectionManager manages WebSocket connections per league.
type ConnectionManager struct {
	leagueConnections map[uuid.UUID]map[*Connection]bool
	mu                sync.RWMutex

	upgrader websocket.Upgrader
	config   ConnectionConfig
	presence *Presence
	handler  CommandHandler

	broadcastCh chan BroadcastMessage
}

// Connection represents one WebSocket client.
type Connection struct {
	ID         string
	IdentityID uuid.UUID
	LeagueID   uuid.UUID
	Conn       *websocket.Conn
	Send       chan []byte
	Manager    *ConnectionManager

	ConnectedAt time.Time
	LastPing    time.Time
}

// ConnectionConfig holds configuration for WebSocket connections
type ConnectionConfig struct {
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	PingInterval    time.Duration
	MaxMessageSize  int64
	ReadBufferSize  int
	WriteBufferSize int
	CheckOrigin     func(r *http.Request) bool
}

// BroadcastMessage represents a frame to fan out to connections.
type BroadcastMessage struct {
	LeagueID   uuid.UUID
	Frame      *Frame
	IdentityID uuid.UUID // Optional: if set, only send to this identity
}

// DefaultConnectionConfig returns default WebSocket configuration
func DefaultConnectionConfig() ConnectionConfig {
	return ConnectionConfig{
		WriteTimeout:    10 * time.Second,
		ReadTimeout:     60 * time.Second,
		PingInterval:    30 * time.Second,
		MaxMessageSize:  4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			// Allow all origins in development - restrict in production
			return true
		},
	}
}

func NewConnectionManager(config ConnectionConfig, presence *Presence, handler CommandHandler) *ConnectionManager {
	return &ConnectionManager{
		leagueConnections: make(map[uuid.UUID]map[*Connection]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  config.ReadBufferSize,
			WriteBufferSize: config.WriteBufferSize,
			CheckOrigin:     config.CheckOrigin,
		},
		config:      config,
		presence:    presence,
		handler:     handler,
		broadcastCh: make(chan BroadcastMessage, 1000),
	}
}

// Start begins processing broadcast messages
func (cm *ConnectionManager) Start(ctx context.Context) {
	log.Info().Msg("connection manager started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("connection manager shutting down")
			return
		case message := <-cm.broadcastCh:
			cm.handleBroadcast(message)
		}
	}
}

// UpgradeConnection upgrades an HTTP connection to WebSocket, announces the
// join and replays the full session snapshot to the new client.
func (cm *ConnectionManager) UpgradeConnection(w http.ResponseWriter, r *http.Request, identityID, leagueID uuid.UUID) error {
	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Error().Err(err).Msg("failed to upgrade WebSocket connection")
		return fmt.Errorf("failed to upgrade connection: %w", err)
	}

	connection := &Connection{
		ID:          uuid.New().String(),
		IdentityID:  identityID,
		LeagueID:    leagueID,
		Conn:        conn,
		Send:        make(chan []byte, 256),
		Manager:     cm,
		ConnectedAt: time.Now(),
		LastPing:    time.Now(),
	}

	cm.registerConnection(connection)

	go connection.writePump()
	go connection.readPump()

	cm.announcePresence(leagueID, identityID.String(), "")
	cm.sendSnapshot(r.Context(), connection)

	log.Info().
		Str("connection_id", connection.ID).
		Str("identity_id", identityID.String()).
		Str("league_id", leagueID.String()).
		Msg("WebSocket connection established")
	return nil
}

func (cm *ConnectionManager) registerConnection(conn *Connection) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if cm.leagueConnections[conn.LeagueID] == nil {
		cm.leagueConnections[conn.LeagueID] = make(map[*Connection]bool)
	}
	cm.leagueConnections[conn.LeagueID][conn] = true

	cm.presence.Join(conn.LeagueID, conn.IdentityID)

	log.Debug().
		Str("connection_id", conn.ID).
		Str("league_id", conn.LeagueID.String()).
		Int("total_connections", len(cm.leagueConnections[conn.LeagueID])).
		Msg("connection registered")
}

func (cm *ConnectionManager) unregisterConnection(conn *Connection) {
	cm.mu.Lock()
	connections, exists := cm.leagueConnections[conn.LeagueID]
	if !exists {
		cm.mu.Unlock()
		return
	}
	if _, exists := connections[conn]; !exists {
		cm.mu.Unlock()
		return
	}
	delete(connections, conn)
	close(conn.Send)
	if len(connections) == 0 {
		delete(cm.leagueConnections, conn.LeagueID)
	}
	left, _ := cm.presence.Leave(conn.LeagueID, conn.IdentityID)
	cm.mu.Unlock()

	if left {
		cm.announcePresence(conn.LeagueID, "", conn.IdentityID.String())
	}

	log.Info().
		Str("connection_id", conn.ID).
		Str("identity_id", conn.IdentityID.String()).
		Str("league_id", conn.LeagueID.String()).
		Msg("connection unregistered")
}

// announcePresence broadcasts the current member list. Presence frames are
// process-local: they never pass through the outbox or the bus.
func (cm *ConnectionManager) announcePresence(leagueID uuid.UUID, joined, left string) {
	frame, err := newFrame(leagueID, "PresenceChanged", map[string]any{
		"league_id":  leagueID.String(),
		"identities": cm.presence.Members(leagueID),
		"joined":     joined,
		"left":       left,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build presence frame")
		return
	}
	cm.BroadcastToLeague(leagueID, frame)
}

// sendSnapshot replays the full session state to a new connection so it can
// render without waiting for the next delta.
func (cm *ConnectionManager) sendSnapshot(ctx context.Context, conn *Connection) {
	frame, err := cm.handler.Snapshot(ctx, conn.LeagueID)
	if err != nil {
		log.Error().Err(err).Str("league_id", conn.LeagueID.String()).Msg("failed to build snapshot")
		return
	}
	if frame == nil {
		// No live session for the league; nothing to replay.
		return
	}
	cm.sendToConnection(conn, frame)
}

func (cm *ConnectionManager) sendToConnection(conn *Connection, frame *Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal frame")
		return
	}
	select {
	case conn.Send <- data:
	default:
		log.Warn().Str("connection_id", conn.ID).Msg("send buffer full, closing connection")
		cm.unregisterConnection(conn)
		conn.Conn.Close()
	}
}

// BroadcastToLeague sends a frame to every connection in a league.
func (cm *ConnectionManager) BroadcastToLeague(leagueID uuid.UUID, frame *Frame) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, Frame: frame}:
	default:
		log.Warn().Str("league_id", leagueID.String()).Msg("broadcast channel full, dropping message")
	}
}

// BroadcastToIdentity sends a frame to one identity's connections only.
func (cm *ConnectionManager) BroadcastToIdentity(leagueID, identityID uuid.UUID, frame *Frame) {
	select {
	case cm.broadcastCh <- BroadcastMessage{LeagueID: leagueID, Frame: frame, IdentityID: identityID}:
	default:
		log.Warn().
			Str("league_id", leagueID.String()).
			Str("identity_id", identityID.String()).
			Msg("broadcast channel full, dropping identity message")
	}
}

func (cm *ConnectionManager) handleBroadcast(message BroadcastMessage) {
	cm.mu.RLock()
	connections, exists := cm.leagueConnections[message.LeagueID]
	if !exists {
		cm.mu.RUnlock()
		return
	}

	// Snapshot the targets to avoid holding the lock during sends.
	var targets []*Connection
	for conn := range connections {
		if message.IdentityID != uuid.Nil && conn.IdentityID != message.IdentityID {
			continue
		}
		targets = append(targets, conn)
	}
	cm.mu.RUnlock()

	data, err := json.Marshal(message.Frame)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal frame for broadcast")
		return
	}

	for _, conn := range targets {
		select {
		case conn.Send <- data:
		default:
			// Connection is slow/dead, close it
			log.Warn().
				Str("connection_id", conn.ID).
				Str("identity_id", conn.IdentityID.String()).
				Msg("connection send buffer full, closing connection")
			cm.unregisterConnection(conn)
			conn.Conn.Close()
		}
	}

	log.Debug().
		Str("frame_type", message.Frame.Type).
		Str("league_id", message.LeagueID.String()).
		Int("connections", len(targets)).
		Msg("frame broadcasted")
}

// GetConnectionStats returns statistics about active connections
func (cm *ConnectionManager) GetConnectionStats() map[string]interface{} {
	cm.mu.RLock()
	defer cm.mu.RUnlock()

	totalConnections := 0
	leagueCounts := make(map[string]int)
	for leagueID, connections := range cm.leagueConnections {
		count := len(connections)
		totalConnections += count
		leagueCounts[leagueID.String()] = count
	}

	return map[string]interface{}{
		"total_connections":  totalConnections,
		"active_leagues":     len(cm.leagueConnections),
		"league_connections": leagueCounts,
	}
}

// writePump handles sending messages to the WebSocket connection
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.Manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
		c.Manager.unregisterConnection(c)
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if !ok {
				// Channel was closed
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to write message to WebSocket")
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(c.Manager.config.WriteTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("failed to send ping")
				return
			}
			c.LastPing = time.Now()
		}
	}
}

// readPump handles reading messages from the WebSocket connection
func (c *Connection) readPump() {
	defer func() {
		c.Manager.unregisterConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(c.Manager.config.MaxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
		c.LastPing = time.Now()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Error().
					Err(err).
					Str("connection_id", c.ID).
					Msg("unexpected WebSocket close error")
			}
			break
		}

		c.handleClientMessage(message)
		c.Conn.SetReadDeadline(time.Now().Add(c.Manager.config.ReadTimeout))
	}
}

// handleClientMessage parses and dispatches one inbound command, answering
// this connection alone with an Error frame on rejection.
func (c *Connection) handleClientMessage(message []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().
				Interface("panic", r).
				Str("connection_id", c.ID).
				Msg("panic handling client command")
			c.sendError("", "ERR_INTERNAL", "TRANSIENT", "internal error")
		}
	}()

	cmd, err := parseCommand(message)
	if err != nil {
		log.Debug().Err(err).Str("connection_id", c.ID).Msg("rejected inbound frame")
		c.sendError("", "ERR_BAD_COMMAND", "VALIDATION", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if cmd.Type == CmdResync {
		c.Manager.sendSnapshot(ctx, c)
		return
	}

	if err := c.Manager.handler.Handle(ctx, c.LeagueID, c.IdentityID, cmd); err != nil {
		code, class, msg := rejectionDetails(err)
		c.sendError(string(cmd.Type), code, class, msg)
	}
}

func (c *Connection) sendError(command, code, class, message string) {
	frame, err := newFrame(c.LeagueID, "Error", ErrorData{
		Code:    code,
		Class:   class,
		Message: message,
		Command: command,
	})
	if err != nil {
		log.Error().Err(err).Msg("failed to build error frame")
		return
	}
	c.Manager.sendToConnection(c, frame)
}
