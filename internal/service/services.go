package service

import (
	"linkhub/internal/config"
	"linkhub/internal/notify"
	"linkhub/internal/repository"
	"linkhub/internal/storage"
	"linkhub/pkg/logger"
)

type Services struct {
	Auth         AuthService
	Message      MessageService
	Conversation ConversationService
	RateLimit    RateLimitService
}

func NewServices(repos *repository.Repositories, blobs storage.BlobStore, notifier notify.Notifier, rt Broadcaster, cfg *config.Config, log logger.Logger) *Services {
	return &Services{
		Auth:         NewAuthService(repos.User, cfg.JWT, log),
		Message:      NewMessageService(repos.Message, repos.User, repos.Audit, blobs, notifier, rt, cfg.Server.ClientURL, log),
		Conversation: NewConversationService(repos.Message, repos.User, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
