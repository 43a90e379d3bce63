package bots

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// chatRequest is the incoming WebSocket message format.
type chatRequest struct {
	Type    string `json:"type"` // "ask"
	Content string `json:"content"`
	UserID  string `json:"user_id,omitempty"`
}

// chatResponse is the outgoing WebSocket message format.
type chatResponse struct {
	Type      string `json:"type"` // "answer" or "error"
	Content   string `json:"content"`
	RequestID string `json:"request_id,omitempty"`
}

// ChatHandler serves the browser chat over a WebSocket. Each connection is
// its own channel.
type ChatHandler struct {
	gateway  *Gateway
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewChatHandler creates a web chat handler. When allowAllOrigins is false the
// upgrader enforces same-origin requests.
func NewChatHandler(gateway *Gateway, allowAllOrigins bool, logger zerolog.Logger) *ChatHandler {
	h := &ChatHandler{gateway: gateway, logger: logger}
	if allowAllOrigins {
		h.upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	}
	return h
}

// HandleWebSocket upgrades the connection and answers questions until the
// client disconnects.
func (h *ChatHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("websocket upgrade")
		return
	}
	defer conn.Close()

	channelID := uuid.NewString()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn().Err(err).Msg("websocket read")
			}
			return
		}

		var req chatRequest
		if err := json.Unmarshal(data, &req); err != nil {
			h.send(conn, chatResponse{Type: "error", Content: "invalid message format"})
			continue
		}
		if req.Type != "ask" {
			h.send(conn, chatResponse{Type: "error", Content: "unknown message type: " + req.Type})
			continue
		}

		resp, err := h.gateway.Process(r.Context(), IncomingMessage{
			Platform:  PlatformWeb,
			ChannelID: channelID,
			UserID:    req.UserID,
			Text:      req.Content,
		})
		if err != nil {
			h.send(conn, chatResponse{Type: "error", Content: "processing failed"})
			continue
		}
		if resp == nil {
			h.send(conn, chatResponse{Type: "error", Content: "content is required"})
			continue
		}

		h.send(conn, chatResponse{Type: "answer", Content: resp.Text, RequestID: resp.RequestID})
	}
}

func (h *ChatHandler) send(conn *websocket.Conn, resp chatResponse) {
	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Warn().Err(err).Msg("websocket write")
	}
}
