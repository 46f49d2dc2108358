package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"linkhub/internal/realtime"
	"linkhub/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type WebSocketHandler struct {
	hub *realtime.Hub
	log logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub: hub,
		log: log,
	}
}

// Connect upgrades the request and hands the connection to the hub. The
// client is expected to send a join event right after connecting; until then
// the connection belongs to no room.
func (h *WebSocketHandler) Connect(c *gin.Context) {
	userID := currentUserID(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, userID)
	client.Start()
}
