package models

import (
	"time"

	"github.com/google/uuid"
)

// Report is an accusation of one user against another, tied to an order. The
// core only creates them; moderation dismisses them through the admin surface.
type Report struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	AccuserID uuid.UUID `json:"accuser_id" gorm:"type:uuid;not null"`
	AccusedID uuid.UUID `json:"accused_id" gorm:"type:uuid;not null;index"`
	OrderID   uuid.UUID `json:"order_id" gorm:"type:uuid;not null"`
	Reason    string    `json:"reason" gorm:"not null"`
	CreatedAt time.Time `json:"created_at"`
}
