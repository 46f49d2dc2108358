package service

import (
	"context"

	"github.com/google/uuid"

	"linkhub/internal/domain"
	"linkhub/internal/repository"
	"linkhub/pkg/logger"
)

type ConversationService interface {
	ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error)
}

type conversationService struct {
	messageRepo repository.MessageRepository
	userRepo    repository.UserRepository
	log         logger.Logger
}

func NewConversationService(messageRepo repository.MessageRepository, userRepo repository.UserRepository, log logger.Logger) ConversationService {
	return &conversationService{
		messageRepo: messageRepo,
		userRepo:    userRepo,
		log:         log,
	}
}

// ListForUser derives one conversation per distinct peer from the flat
// message store. Messages arrive newest-first, so the first message seen for
// a peer is its lastMessage and insertion order already gives
// most-recent-activity-first; timestamp ties keep storage order.
func (s *conversationService) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Conversation, error) {
	messages, err := s.messageRepo.GetAllForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	byPeer := map[uuid.UUID]*domain.Conversation{}
	ordered := []*domain.Conversation{}

	for _, message := range messages {
		peerID := message.SenderID
		if peerID == userID {
			peerID = message.RecipientID
		}

		conv, ok := byPeer[peerID]
		if !ok {
			conv = &domain.Conversation{LastMessage: message}
			byPeer[peerID] = conv
			ordered = append(ordered, conv)
		}

		if message.RecipientID == userID && !message.IsRead {
			conv.UnreadCount++
		}
	}

	if len(ordered) == 0 {
		return ordered, nil
	}

	peerIDs := make([]uuid.UUID, 0, len(byPeer))
	for id := range byPeer {
		peerIDs = append(peerIDs, id)
	}
	summaries, err := s.userRepo.GetSummaries(ctx, peerIDs)
	if err != nil {
		return nil, err
	}

	lastMessages := make([]*domain.Message, 0, len(ordered))
	for peerID, conv := range byPeer {
		conv.Peer = summaries[peerID]
		lastMessages = append(lastMessages, conv.LastMessage)
	}
	if err := attachSummaries(ctx, s.userRepo, lastMessages); err != nil {
		s.log.Warn("Failed to resolve conversation participants", "error", err)
	}

	return ordered, nil
}
