package services

import (
	"errors"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CanReveal is the single point of truth for phone-number disclosure: the
// contact fee must be paid and the viewer must be one of the two engaged
// parties. Other bidders on the same order never qualify, whatever the
// payment state. Both user-facing surfaces must call this, never re-derive it.
func CanReveal(order *models.Order, viewerID uuid.UUID) bool {
	if order == nil || !order.ContactFeePaid {
		return false
	}
	if viewerID == order.ContractorID {
		return true
	}
	return order.AcceptedWorkerID != nil && viewerID == *order.AcceptedWorkerID
}

type ContactCard struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	CPF   string `json:"cpf,omitempty"`
}

type ContactService interface {
	// Reveal returns the counterpart's contact card for the viewer, or a
	// Forbidden error when the gate denies disclosure.
	Reveal(orderID, viewerID uuid.UUID) (*ContactCard, error)
}

type contactService struct {
	orderRepo repository.OrderRepository
	userRepo  repository.UserRepository
}

func NewContactService(orderRepo repository.OrderRepository, userRepo repository.UserRepository) ContactService {
	return &contactService{orderRepo: orderRepo, userRepo: userRepo}
}

func (s *contactService) Reveal(orderID, viewerID uuid.UUID) (*ContactCard, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}

	if !CanReveal(order, viewerID) {
		return nil, apperrors.Forbidden("contact not unlocked for this viewer")
	}
	if order.AcceptedWorkerID == nil {
		// Fee paid but engagement cancelled; nobody to reveal until the
		// contractor accepts again.
		return nil, apperrors.NotFound("no engaged worker on this order")
	}

	// The gate passed, so the viewer is one of the two parties; the card is
	// always the other one.
	counterpartID := order.ContractorID
	if viewerID == order.ContractorID {
		counterpartID = *order.AcceptedWorkerID
	}

	counterpart, err := s.userRepo.GetByID(counterpartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("counterpart profile not found")
		}
		return nil, err
	}

	return &ContactCard{Name: counterpart.Name, Phone: counterpart.Phone, CPF: counterpart.CPF}, nil
}
