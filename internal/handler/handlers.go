package handler

import (
	"linkhub/internal/realtime"
	"linkhub/internal/service"
	"linkhub/pkg/logger"
)

type Handlers struct {
	Health    *HealthHandler
	Message   *MessageHandler
	WebSocket *WebSocketHandler
}

func NewHandlers(services *service.Services, hub *realtime.Hub, log logger.Logger) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(),
		Message:   NewMessageHandler(services.Message, services.Conversation, hub.Presence(), log),
		WebSocket: NewWebSocketHandler(hub, log),
	}
}
