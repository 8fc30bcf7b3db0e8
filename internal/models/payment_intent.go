package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentIntent correlates one contact-unlock charge to exactly one order.
// IntentID is assigned by the payment processor and treated as opaque.
type PaymentIntent struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	IntentID       string     `json:"intent_id" gorm:"unique;not null"`
	OrderID        uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index"`
	ProposalID     *uuid.UUID `json:"proposal_id" gorm:"type:uuid"`
	RequestedBy    uuid.UUID  `json:"requested_by" gorm:"type:uuid;not null"`
	Amount         float64    `json:"amount" gorm:"not null"`
	Status         string     `json:"status" gorm:"default:'pending';index"` // pending, settled, expired
	QRCode         string     `json:"qr_code"`
	QRCodeBase64   string     `json:"qr_code_base64"`
	IdempotencyKey string     `json:"-" gorm:"unique;not null"`
	ExpiresAt      time.Time  `json:"expires_at" gorm:"not null"`
	SettledAt      *time.Time `json:"settled_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

type PaymentIntentStatus string

const (
	IntentPending PaymentIntentStatus = "pending"
	IntentSettled PaymentIntentStatus = "settled"
	IntentExpired PaymentIntentStatus = "expired"
)

func (p *PaymentIntent) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}
