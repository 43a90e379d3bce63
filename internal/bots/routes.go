package bots

import "github.com/go-chi/chi/v5"

// RegisterRoutes mounts the bot webhook and web chat endpoints on the given
// router. Nil handlers are skipped.
func RegisterRoutes(r chi.Router, slackHandler *SlackHandler, chatHandler *ChatHandler) {
	if slackHandler != nil {
		r.Post("/api/bots/slack/events", slackHandler.HandleEvent)
	}
	if chatHandler != nil {
		r.Get("/api/chat/ws", chatHandler.HandleWebSocket)
	}
}
