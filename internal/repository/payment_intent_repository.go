package repository

import (
	"time"

	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PaymentIntentRepository interface {
	Create(intent *models.PaymentIntent) error
	GetByIntentID(intentID string) (*models.PaymentIntent, error)
	GetByIdempotencyKey(key string) (*models.PaymentIntent, error)
	GetSettledByOrder(orderID uuid.UUID) (*models.PaymentIntent, error)

	// MarkSettled flips a pending intent to settled exactly once; the bool
	// reports whether this call performed the transition.
	MarkSettled(intentID string, settledAt time.Time) (bool, error)
	MarkExpired(intentID string) error
}

type paymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) PaymentIntentRepository {
	return &paymentIntentRepository{db: db}
}

func (r *paymentIntentRepository) Create(intent *models.PaymentIntent) error {
	return r.db.Create(intent).Error
}

func (r *paymentIntentRepository) GetByIntentID(intentID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.First(&intent, "intent_id = ?", intentID).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *paymentIntentRepository) GetByIdempotencyKey(key string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.First(&intent, "idempotency_key = ?", key).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *paymentIntentRepository) GetSettledByOrder(orderID uuid.UUID) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := r.db.Where("order_id = ? AND status = ?", orderID, string(models.IntentSettled)).
		Order("settled_at DESC").First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

func (r *paymentIntentRepository) MarkSettled(intentID string, settledAt time.Time) (bool, error) {
	res := r.db.Model(&models.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, string(models.IntentPending)).
		Updates(map[string]interface{}{
			"status":     string(models.IntentSettled),
			"settled_at": settledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *paymentIntentRepository) MarkExpired(intentID string) error {
	return r.db.Model(&models.PaymentIntent{}).
		Where("intent_id = ? AND status = ?", intentID, string(models.IntentPending)).
		Update("status", string(models.IntentExpired)).Error
}
