package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"linkhub/internal/middleware"
	"linkhub/internal/realtime"
	"linkhub/internal/service"
	apperrors "linkhub/pkg/errors"
	"linkhub/pkg/logger"
)

const maxAttachmentSize = 10 << 20 // 10MB

type MessageHandler struct {
	messageService      service.MessageService
	conversationService service.ConversationService
	presence            *realtime.PresenceRegistry
	log                 logger.Logger
}

func NewMessageHandler(messageService service.MessageService, conversationService service.ConversationService, presence *realtime.PresenceRegistry, log logger.Logger) *MessageHandler {
	return &MessageHandler{
		messageService:      messageService,
		conversationService: conversationService,
		presence:            presence,
		log:                 log,
	}
}

type SendMessageRequest struct {
	RecipientID uuid.UUID `json:"recipient_id" binding:"required"`
	Body        string    `json:"body" binding:"required"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	senderID := currentUserID(c)

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Send(c.Request.Context(), senderID, req.RecipientID, req.Body)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) SendFile(c *gin.Context) {
	senderID := currentUserID(c)

	recipientID, err := uuid.Parse(c.PostForm("recipient_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid recipient ID"})
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}
	if fileHeader.Size > maxAttachmentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 10MB limit"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable file"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxAttachmentSize+1))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read file"})
		return
	}
	if len(data) > maxAttachmentSize {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file exceeds the 10MB limit"})
		return
	}

	upload := service.FileUpload{
		Data:        data,
		Filename:    fileHeader.Filename,
		ContentType: fileHeader.Header.Get("Content-Type"),
	}

	message, err := h.messageService.SendFile(c.Request.Context(), senderID, recipientID, c.PostForm("body"), upload)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, message)
}

func (h *MessageHandler) Conversations(c *gin.Context) {
	userID := currentUserID(c)

	conversations, err := h.conversationService.ListForUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, conversations)
}

// History returns the exchange with a peer and, as a side effect, marks the
// peer's messages to the caller as read.
func (h *MessageHandler) History(c *gin.Context) {
	userID := currentUserID(c)

	peerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	messages, err := h.messageService.History(c.Request.Context(), userID, peerID)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, messages)
}

type EditMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

func (h *MessageHandler) Edit(c *gin.Context) {
	userID := currentUserID(c)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	var req EditMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message, err := h.messageService.Edit(c.Request.Context(), messageID, userID, req.Body)
	if err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) Delete(c *gin.Context) {
	userID := currentUserID(c)

	messageID, err := strconv.ParseInt(c.Param("messageId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	if err := h.messageService.Delete(c.Request.Context(), messageID, userID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted"})
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	userID := currentUserID(c)

	peerID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user ID"})
		return
	}

	if err := h.messageService.MarkRead(c.Request.Context(), peerID, userID); err != nil {
		c.JSON(apperrors.HTTPStatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Messages marked as read"})
}

func (h *MessageHandler) Online(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"online": h.presence.OnlineUsers()})
}

func currentUserID(c *gin.Context) uuid.UUID {
	id, _ := c.Get(middleware.ContextUserID)
	userID, _ := id.(uuid.UUID)
	return userID
}
