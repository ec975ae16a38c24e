// Package ws exposes the orchestrator over a WebSocket: one conversation
// per socket, user messages in, turn results out as JSON events.
package ws

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/borosabel/orchestrator/pkg/domain"
)

// Core is the slice of the orchestrator the bridge needs.
type Core interface {
	StartConversation(ctx context.Context, userID string) (string, error)
	EndConversation(ctx context.Context, sessionID string)
	ProcessMessageDetailed(ctx context.Context, sessionID, text string) *domain.TurnResult
}

// Bridge upgrades HTTP requests and pumps messages through the core.
type Bridge struct {
	core   Core
	logger *slog.Logger
}

// NewBridge creates the WebSocket bridge.
func NewBridge(core Core, logger *slog.Logger) *Bridge {
	return &Bridge{core: core, logger: logger}
}

type inboundEvent struct {
	Text string `json:"text"`
}

type outboundEvent struct {
	Type      string             `json:"type"`
	SessionID string             `json:"session_id,omitempty"`
	Result    *domain.TurnResult `json:"result,omitempty"`
}

// ServeHTTP accepts the socket, opens a conversation and relays turns
// until the client disconnects. The conversation ends with the socket.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		b.logger.Error("failed to accept websocket", "err", err)
		return
	}
	defer func() {
		if closeErr := conn.Close(websocket.StatusNormalClosure, "conversation ended"); closeErr != nil {
			b.logger.Debug("failed to close websocket", "err", closeErr)
		}
	}()

	ctx := r.Context()
	userID := r.URL.Query().Get("user_id")

	sessionID, err := b.core.StartConversation(ctx, userID)
	if err != nil {
		b.logger.Error("failed to start conversation", "err", err)
		return
	}
	defer b.core.EndConversation(context.WithoutCancel(ctx), sessionID)

	if err := wsjson.Write(ctx, conn, outboundEvent{Type: "session", SessionID: sessionID}); err != nil {
		return
	}

	for {
		var in inboundEvent
		if err := wsjson.Read(ctx, conn, &in); err != nil {
			b.logger.Debug("websocket read ended", "session_id", sessionID, "err", err)
			return
		}

		result := b.core.ProcessMessageDetailed(ctx, sessionID, in.Text)
		if err := wsjson.Write(ctx, conn, outboundEvent{Type: "reply", Result: result}); err != nil {
			b.logger.Debug("websocket write failed", "session_id", sessionID, "err", err)
			return
		}
	}
}
