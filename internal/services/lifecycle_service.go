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

type OrderInput struct {
	Origin        string     `json:"origin"`
	Lat           *float64   `json:"lat"`
	Lng           *float64   `json:"lng"`
	CargoType     string     `json:"cargo_type"`
	Description   string     `json:"description"`
	ScheduledDate *time.Time `json:"scheduled_date"`
	ScheduledTime string     `json:"scheduled_time"`
	AgreedPrice   *float64   `json:"agreed_price"`
}

type ProposalInput struct {
	Amount       float64    `json:"amount"`
	Message      string     `json:"message"`
	ProposedDate *time.Time `json:"proposed_date"`
	ProposedTime string     `json:"proposed_time"`
}

// LifecycleService owns the order/proposal state machine. It is the single
// authority over Order.status; handlers and other services never write the
// field directly. Guard violations come back as typed errors: Conflict means
// "someone else got there first, refresh", the rest mean the request itself
// was wrong.
type LifecycleService interface {
	CreateOrder(contractorID uuid.UUID, input OrderInput) (*models.Order, error)
	EditOrder(contractorID, orderID uuid.UUID, input OrderInput) (*models.Order, error)
	DeleteOrder(contractorID, orderID uuid.UUID) error
	OrdersByContractor(contractorID uuid.UUID) ([]models.Order, error)
	GetOrder(orderID uuid.UUID) (*models.Order, error)

	SubmitProposal(workerID, orderID uuid.UUID, input ProposalInput) (*models.Proposal, error)
	AcceptProposal(contractorID, orderID, proposalID uuid.UUID) (*models.Order, error)
	RejectProposal(contractorID, proposalID uuid.UUID) error
	WithdrawProposal(workerID, proposalID uuid.UUID) error
	ProposalsByOrder(contractorID, orderID uuid.UUID) ([]models.Proposal, error)
	ProposalsByWorker(workerID uuid.UUID) ([]models.Proposal, error)

	CancelEngagement(contractorID, orderID uuid.UUID, reason string) (*models.Order, error)
	FinishOrder(callerID, orderID uuid.UUID) (*models.Order, error)

	// IsStale flags open orders the UI warns about: scheduled date reached,
	// or no schedule and no activity for the configured age. Advisory only;
	// nothing deletes these automatically.
	IsStale(order *models.Order) bool

	// StaleOpenOrders lists the contractor's open orders currently flagged
	// stale. Warning surface only, no sweep.
	StaleOpenOrders(contractorID uuid.UUID) ([]models.Order, error)
}

type lifecycleService struct {
	orderRepo    repository.OrderRepository
	proposalRepo repository.ProposalRepository
	staleAge     time.Duration
	now          func() time.Time
}

func NewLifecycleService(orderRepo repository.OrderRepository, proposalRepo repository.ProposalRepository, staleAge time.Duration) LifecycleService {
	return &lifecycleService{
		orderRepo:    orderRepo,
		proposalRepo: proposalRepo,
		staleAge:     staleAge,
		now:          time.Now,
	}
}

func (s *lifecycleService) getOrder(orderID uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	return order, nil
}

func (s *lifecycleService) getProposal(proposalID uuid.UUID) (*models.Proposal, error) {
	proposal, err := s.proposalRepo.GetByID(proposalID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("proposal not found")
		}
		return nil, err
	}
	return proposal, nil
}

func validateOrderInput(input OrderInput) error {
	if strings.TrimSpace(input.Origin) == "" {
		return apperrors.Validation("origin is required")
	}
	if !models.ValidCargoType(input.CargoType) {
		return apperrors.Validation("unknown cargo type %q", input.CargoType)
	}
	if input.AgreedPrice != nil && *input.AgreedPrice <= 0 {
		return apperrors.Validation("price must be positive")
	}
	return nil
}

func (s *lifecycleService) CreateOrder(contractorID uuid.UUID, input OrderInput) (*models.Order, error) {
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}
	order := &models.Order{
		ContractorID:  contractorID,
		Status:        string(models.OrderOpen),
		Origin:        input.Origin,
		Lat:           input.Lat,
		Lng:           input.Lng,
		CargoType:     strings.ToLower(input.CargoType),
		Description:   input.Description,
		ScheduledDate: input.ScheduledDate,
		ScheduledTime: input.ScheduledTime,
		AgreedPrice:   input.AgreedPrice,
	}
	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *lifecycleService) EditOrder(contractorID, orderID uuid.UUID, input OrderInput) (*models.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ContractorID != contractorID {
		return nil, apperrors.Forbidden("only the owner may edit an order")
	}
	if order.Status != string(models.OrderOpen) {
		return nil, apperrors.Validation("only open orders can be edited")
	}
	if err := validateOrderInput(input); err != nil {
		return nil, err
	}

	order.Origin = input.Origin
	order.Lat = input.Lat
	order.Lng = input.Lng
	order.CargoType = strings.ToLower(input.CargoType)
	order.Description = input.Description
	order.ScheduledDate = input.ScheduledDate
	order.ScheduledTime = input.ScheduledTime
	order.AgreedPrice = input.AgreedPrice
	if err := s.orderRepo.Update(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *lifecycleService) DeleteOrder(contractorID, orderID uuid.UUID) error {
	order, err := s.getOrder(orderID)
	if err != nil {
		return err
	}
	if order.ContractorID != contractorID {
		return apperrors.Forbidden("only the owner may delete an order")
	}
	if order.Status != string(models.OrderOpen) {
		return apperrors.Validation("only open orders can be deleted; cancel the engagement first")
	}
	return s.orderRepo.DeleteCascade(orderID)
}

func (s *lifecycleService) OrdersByContractor(contractorID uuid.UUID) ([]models.Order, error) {
	return s.orderRepo.GetByContractor(contractorID)
}

func (s *lifecycleService) GetOrder(orderID uuid.UUID) (*models.Order, error) {
	return s.getOrder(orderID)
}

// SubmitProposal upserts: a worker's second submit on the same order edits
// the pending proposal instead of creating a duplicate.
func (s *lifecycleService) SubmitProposal(workerID, orderID uuid.UUID, input ProposalInput) (*models.Proposal, error) {
	if input.Amount <= 0 {
		return nil, apperrors.Validation("amount must be positive")
	}
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ContractorID == workerID {
		return nil, apperrors.Forbidden("cannot bid on your own order")
	}
	if order.Status != string(models.OrderOpen) {
		return nil, apperrors.Conflict("order is no longer open")
	}

	existing, err := s.proposalRepo.GetByOrderAndWorker(orderID, workerID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if existing != nil {
		if existing.IsAccepted {
			return nil, apperrors.Conflict("proposal already accepted; it can no longer be edited")
		}
		existing.Amount = input.Amount
		existing.Message = input.Message
		existing.ProposedDate = input.ProposedDate
		existing.ProposedTime = input.ProposedTime
		if err := s.proposalRepo.Update(existing); err != nil {
			return nil, err
		}
		return existing, nil
	}

	proposal := &models.Proposal{
		OrderID:      orderID,
		WorkerID:     workerID,
		Amount:       input.Amount,
		Message:      input.Message,
		ProposedDate: input.ProposedDate,
		ProposedTime: input.ProposedTime,
	}
	if err := s.proposalRepo.Create(proposal); err != nil {
		return nil, err
	}
	return proposal, nil
}

func (s *lifecycleService) AcceptProposal(contractorID, orderID, proposalID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ContractorID != contractorID {
		return nil, apperrors.Forbidden("only the owner may accept proposals")
	}

	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return nil, err
	}
	if proposal.OrderID != orderID {
		return nil, apperrors.Validation("proposal does not belong to this order")
	}

	// The repository performs the atomic open -> accepted flip; a Conflict
	// from here means another accept (or a double click) won the race.
	return s.orderRepo.AcceptProposal(orderID, proposalID, proposal.WorkerID, proposal.Amount)
}

func (s *lifecycleService) RejectProposal(contractorID, proposalID uuid.UUID) error {
	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return err
	}
	order, err := s.getOrder(proposal.OrderID)
	if err != nil {
		return err
	}
	if order.ContractorID != contractorID {
		return apperrors.Forbidden("only the owner may reject proposals")
	}
	if proposal.IsAccepted {
		return apperrors.Validation("accepted proposals are removed by cancelling the engagement")
	}
	return s.proposalRepo.Delete(proposalID)
}

func (s *lifecycleService) WithdrawProposal(workerID, proposalID uuid.UUID) error {
	proposal, err := s.getProposal(proposalID)
	if err != nil {
		return err
	}
	if proposal.WorkerID != workerID {
		return apperrors.Forbidden("only the author may withdraw a proposal")
	}
	if proposal.IsAccepted {
		return apperrors.Validation("accepted proposals cannot be withdrawn")
	}
	return s.proposalRepo.Delete(proposalID)
}

func (s *lifecycleService) ProposalsByOrder(contractorID, orderID uuid.UUID) ([]models.Proposal, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ContractorID != contractorID {
		return nil, apperrors.Forbidden("only the owner may list proposals")
	}
	return s.proposalRepo.GetByOrder(orderID)
}

func (s *lifecycleService) ProposalsByWorker(workerID uuid.UUID) ([]models.Proposal, error) {
	return s.proposalRepo.GetByWorker(workerID)
}

// CancelEngagement returns the order to open and deletes the accepted
// proposal. contact_fee_paid survives on purpose: re-engaging the same order
// later never charges the fee again.
func (s *lifecycleService) CancelEngagement(contractorID, orderID uuid.UUID, reason string) (*models.Order, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("cancellation reason is required")
	}
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.ContractorID != contractorID {
		return nil, apperrors.Forbidden("only the owner may cancel the engagement")
	}
	if !order.IsEngaged() {
		return nil, apperrors.Validation("order has no engagement to cancel")
	}
	return s.orderRepo.ResetEngagement(orderID)
}

func (s *lifecycleService) FinishOrder(callerID, orderID uuid.UUID) (*models.Order, error) {
	order, err := s.getOrder(orderID)
	if err != nil {
		return nil, err
	}
	isParty := callerID == order.ContractorID ||
		(order.AcceptedWorkerID != nil && callerID == *order.AcceptedWorkerID)
	if !isParty {
		return nil, apperrors.Forbidden("only the engaged parties may finish the order")
	}
	if !order.IsEngaged() {
		return nil, apperrors.Validation("order cannot be finished in its current state")
	}
	return s.orderRepo.Finish(orderID)
}

func (s *lifecycleService) StaleOpenOrders(contractorID uuid.UUID) ([]models.Order, error) {
	orders, err := s.orderRepo.GetByContractor(contractorID)
	if err != nil {
		return nil, err
	}
	stale := make([]models.Order, 0)
	for i := range orders {
		if s.IsStale(&orders[i]) {
			stale = append(stale, orders[i])
		}
	}
	return stale, nil
}

func (s *lifecycleService) IsStale(order *models.Order) bool {
	if order.Status != string(models.OrderOpen) {
		return false
	}
	now := s.now()
	if order.ScheduledDate != nil {
		y1, m1, d1 := order.ScheduledDate.Date()
		y2, m2, d2 := now.Date()
		scheduled := time.Date(y1, m1, d1, 0, 0, 0, 0, time.UTC)
		today := time.Date(y2, m2, d2, 0, 0, 0, 0, time.UTC)
		return !scheduled.After(today)
	}
	return now.Sub(order.CreatedAt) > s.staleAge
}
