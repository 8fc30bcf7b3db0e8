package services

import (
	"errors"
	"strings"
	"time"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChatService interface {
	Send(senderID, proposalID uuid.UUID, content string) (*models.Message, error)
	History(callerID, proposalID uuid.UUID) ([]models.Message, error)
	MarkRead(callerID, proposalID uuid.UUID) error
	UnreadCount(callerID, proposalID uuid.UUID) (int64, error)

	// UnreadForOrder sums unread messages across every conversation on the
	// order. Feeds the dashboard badge.
	UnreadForOrder(callerID, orderID uuid.UUID) (int64, error)
}

type chatService struct {
	messageRepo  repository.MessageRepository
	proposalRepo repository.ProposalRepository
	orderRepo    repository.OrderRepository
	chatExpiry   time.Duration
	now          func() time.Time
}

func NewChatService(messageRepo repository.MessageRepository, proposalRepo repository.ProposalRepository, orderRepo repository.OrderRepository, chatExpiry time.Duration) ChatService {
	return &chatService{
		messageRepo:  messageRepo,
		proposalRepo: proposalRepo,
		orderRepo:    orderRepo,
		chatExpiry:   chatExpiry,
		now:          time.Now,
	}
}

// ChatExpired reports whether the chat around an order is read-only. The
// clock starts at completion (updated_at is set by FinishOrder).
func ChatExpired(order *models.Order, expiry time.Duration, now time.Time) bool {
	if order.Status != string(models.OrderCompleted) {
		return false
	}
	return now.Sub(order.UpdatedAt) > expiry
}

func (s *chatService) loadConversation(callerID, proposalID uuid.UUID) (*models.Proposal, *models.Order, error) {
	proposal, err := s.proposalRepo.GetByID(proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("conversation not found")
		}
		return nil, nil, err
	}
	order, err := s.orderRepo.GetByID(proposal.OrderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, apperrors.NotFound("order not found")
		}
		return nil, nil, err
	}
	if callerID != proposal.WorkerID && callerID != order.ContractorID {
		return nil, nil, apperrors.Forbidden("not a party to this conversation")
	}
	return proposal, order, nil
}

func (s *chatService) Send(senderID, proposalID uuid.UUID, content string) (*models.Message, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("message is empty")
	}

	_, order, err := s.loadConversation(senderID, proposalID)
	if err != nil {
		return nil, err
	}

	// Expiry wins over everything, including messages the filter would pass.
	if ChatExpired(order, s.chatExpiry, s.now()) {
		return nil, apperrors.Forbidden("chat expired")
	}

	if err := FilterOutbound(content); err != nil {
		return nil, err
	}

	message := &models.Message{
		ProposalID: proposalID,
		SenderID:   senderID,
		Content:    content,
	}
	if err := s.messageRepo.Create(message); err != nil {
		return nil, err
	}
	return message, nil
}

func (s *chatService) History(callerID, proposalID uuid.UUID) ([]models.Message, error) {
	if _, _, err := s.loadConversation(callerID, proposalID); err != nil {
		return nil, err
	}
	return s.messageRepo.GetByProposal(proposalID)
}

func (s *chatService) MarkRead(callerID, proposalID uuid.UUID) error {
	if _, _, err := s.loadConversation(callerID, proposalID); err != nil {
		return err
	}
	return s.messageRepo.MarkRead(proposalID, callerID)
}

func (s *chatService) UnreadCount(callerID, proposalID uuid.UUID) (int64, error) {
	if _, _, err := s.loadConversation(callerID, proposalID); err != nil {
		return 0, err
	}
	return s.messageRepo.CountUnread(proposalID, callerID)
}

func (s *chatService) UnreadForOrder(callerID, orderID uuid.UUID) (int64, error) {
	proposals, err := s.proposalRepo.GetByOrder(orderID)
	if err != nil {
		return 0, err
	}
	ids := make([]uuid.UUID, 0, len(proposals))
	for _, p := range proposals {
		ids = append(ids, p.ID)
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return s.messageRepo.CountUnreadForOrders(ids, callerID)
}
