package services

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"
	"chapacerto/pkg/mercadopago"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
	"gorm.io/gorm"
)

// PaymentProcessor is the slice of the Mercado Pago client this service
// needs. Tests substitute a fake.
type PaymentProcessor interface {
	CreatePayment(ctx context.Context, amount float64, description, payerEmail, idempotencyKey string, expiresAt time.Time) (*mercadopago.Payment, error)
	GetPayment(ctx context.Context, paymentID string) (*mercadopago.Payment, error)
}

// PollResult is what a status poll reports back to the client.
type PollResult struct {
	Status      string     `json:"status"`
	FeeApplied  bool       `json:"fee_applied"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
	OrderStatus string     `json:"order_status,omitempty"`
}

type PaymentService interface {
	// CreateIntent creates (or returns the still-pending existing) Pix
	// charge for the contact-unlock fee on an order.
	CreateIntent(ctx context.Context, callerID, orderID uuid.UUID) (*models.PaymentIntent, error)

	// PollStatus asks the processor for the charge's current state and
	// applies the settlement to the order the first time it is observed
	// approved. Safe to call repeatedly; only the first approved
	// observation has side effects.
	PollStatus(ctx context.Context, callerID uuid.UUID, intentID string) (*PollResult, error)

	// Receipt returns the structured payment record for a settled order.
	// Rendering (PDF or otherwise) is the client's problem.
	Receipt(callerID, orderID uuid.UUID) (*Receipt, error)
}

type Receipt struct {
	OrderID     uuid.UUID  `json:"order_id"`
	Origin      string     `json:"origin"`
	CargoType   string     `json:"cargo_type"`
	Contractor  string     `json:"contractor"`
	Worker      string     `json:"worker,omitempty"`
	AgreedPrice *float64   `json:"agreed_price,omitempty"`
	ContactFee  float64    `json:"contact_fee"`
	SettledAt   *time.Time `json:"settled_at,omitempty"`
}

type paymentService struct {
	processor  PaymentProcessor
	intentRepo repository.PaymentIntentRepository
	orderRepo  repository.OrderRepository
	userRepo   repository.UserRepository
	fee        float64
	expiry     time.Duration
	now        func() time.Time
}

func NewPaymentService(processor PaymentProcessor, intentRepo repository.PaymentIntentRepository, orderRepo repository.OrderRepository, userRepo repository.UserRepository, fee float64, expiry time.Duration) PaymentService {
	return &paymentService{
		processor:  processor,
		intentRepo: intentRepo,
		orderRepo:  orderRepo,
		userRepo:   userRepo,
		fee:        fee,
		expiry:     expiry,
		now:        time.Now,
	}
}

// idempotencyKey is stable for the same caller and order within a half-hour
// window, so a retried or double-submitted request maps to the same charge.
func (s *paymentService) idempotencyKey(orderID, callerID uuid.UUID) string {
	bucket := s.now().Unix() / int64(30*time.Minute/time.Second)
	sum := sha256.Sum256([]byte(orderID.String() + "|" + callerID.String() + "|" + strconv.FormatInt(bucket, 10)))
	return hex.EncodeToString(sum[:16])
}

func (s *paymentService) CreateIntent(ctx context.Context, callerID, orderID uuid.UUID) (*models.PaymentIntent, error) {
	if s.fee <= 0 {
		return nil, apperrors.Payment("contact fee is not configured")
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	if order.ContactFeePaid {
		return nil, apperrors.Conflict("contact fee already paid for this order")
	}
	if !order.IsEngaged() {
		return nil, apperrors.Validation("accept a proposal before paying the contact fee")
	}
	isParty := callerID == order.ContractorID ||
		(order.AcceptedWorkerID != nil && callerID == *order.AcceptedWorkerID)
	if !isParty {
		return nil, apperrors.Forbidden("only the engaged parties may pay the contact fee")
	}

	key := s.idempotencyKey(orderID, callerID)
	if existing, err := s.intentRepo.GetByIdempotencyKey(key); err == nil {
		if existing.Status == string(models.IntentPending) && !existing.Expired(s.now()) {
			return existing, nil
		}
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	payer, err := s.userRepo.GetByID(callerID)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.expiry)
	payment, err := s.processor.CreatePayment(ctx, s.fee,
		fmt.Sprintf("Taxa de contato - pedido %s", shortID(orderID)),
		payer.Email, key, expiresAt)
	if err != nil {
		return nil, apperrors.Payment("payment processor refused the charge: %v", err)
	}

	qr := payment.PointOfInteraction.TransactionData.QRCode
	qrBase64 := payment.PointOfInteraction.TransactionData.QRCodeBase64
	if qrBase64 == "" && qr != "" {
		// Some sandbox responses omit the rendered image; build one from
		// the copy-paste payload so clients always get something to show.
		if png, qerr := qrcode.Encode(qr, qrcode.Medium, 256); qerr == nil {
			qrBase64 = base64.StdEncoding.EncodeToString(png)
		}
	}

	intent := &models.PaymentIntent{
		IntentID:       strconv.FormatInt(payment.ID, 10),
		OrderID:        orderID,
		RequestedBy:    callerID,
		Amount:         s.fee,
		Status:         string(models.IntentPending),
		QRCode:         qr,
		QRCodeBase64:   qrBase64,
		IdempotencyKey: key,
		ExpiresAt:      expiresAt,
	}
	if err := s.intentRepo.Create(intent); err != nil {
		// Unique key collision means a concurrent request already stored
		// the same charge; hand back that row.
		if existing, gerr := s.intentRepo.GetByIdempotencyKey(key); gerr == nil {
			return existing, nil
		}
		return nil, err
	}
	return intent, nil
}

func (s *paymentService) PollStatus(ctx context.Context, callerID uuid.UUID, intentID string) (*PollResult, error) {
	intent, err := s.intentRepo.GetByIntentID(intentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("payment intent not found")
		}
		return nil, err
	}
	if intent.RequestedBy != callerID {
		return nil, apperrors.Forbidden("payment intent belongs to another user")
	}

	switch intent.Status {
	case string(models.IntentSettled):
		// Re-apply on every observation of a settled intent. If the fee
		// transition failed after the intent row was marked, a later poll
		// recovers it; the guarded update makes the repeat a no-op.
		order, applied, err := s.orderRepo.ApplySettlement(intent.OrderID)
		if err != nil {
			return nil, err
		}
		result := &PollResult{
			Status:     string(models.IntentSettled),
			FeeApplied: applied,
			SettledAt:  intent.SettledAt,
		}
		if order != nil {
			result.OrderStatus = order.Status
		}
		return result, nil
	case string(models.IntentExpired):
		return nil, apperrors.Payment("payment expired; request a new charge")
	}

	if intent.Expired(s.now()) {
		if err := s.intentRepo.MarkExpired(intentID); err != nil {
			return nil, err
		}
		return nil, apperrors.Payment("payment expired; request a new charge")
	}

	payment, err := s.processor.GetPayment(ctx, intentID)
	if err != nil {
		// Transient processor failure: report it, mutate nothing. The
		// client polls again on its own schedule.
		return nil, apperrors.Payment("could not check payment status: %v", err)
	}

	if !settledStatus(payment.Status) {
		return &PollResult{Status: string(models.IntentPending)}, nil
	}

	settledAt := s.now()
	if _, err := s.intentRepo.MarkSettled(intentID, settledAt); err != nil {
		return nil, err
	}
	order, applied, err := s.orderRepo.ApplySettlement(intent.OrderID)
	if err != nil {
		return nil, err
	}
	result := &PollResult{
		Status:     string(models.IntentSettled),
		FeeApplied: applied,
		SettledAt:  &settledAt,
	}
	if order != nil {
		result.OrderStatus = order.Status
	}
	return result, nil
}

func (s *paymentService) Receipt(callerID, orderID uuid.UUID) (*Receipt, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	isParty := callerID == order.ContractorID ||
		(order.AcceptedWorkerID != nil && callerID == *order.AcceptedWorkerID)
	if !isParty {
		return nil, apperrors.Forbidden("only the engaged parties may view the receipt")
	}
	if !order.ContactFeePaid {
		return nil, apperrors.NotFound("no settled payment on this order")
	}

	receipt := &Receipt{
		OrderID:     order.ID,
		Origin:      order.Origin,
		CargoType:   order.CargoType,
		AgreedPrice: order.AgreedPrice,
		ContactFee:  s.fee,
	}
	if contractor, err := s.userRepo.GetByID(order.ContractorID); err == nil {
		receipt.Contractor = contractor.Name
	}
	if order.AcceptedWorkerID != nil {
		if worker, err := s.userRepo.GetByID(*order.AcceptedWorkerID); err == nil {
			receipt.Worker = worker.Name
		}
	}
	if intent, err := s.intentRepo.GetSettledByOrder(orderID); err == nil {
		receipt.ContactFee = intent.Amount
		receipt.SettledAt = intent.SettledAt
	}
	return receipt, nil
}

func settledStatus(status string) bool {
	switch strings.ToLower(status) {
	case "approved", "settled":
		return true
	}
	return false
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}
