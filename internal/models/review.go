package models

import (
	"time"

	"github.com/google/uuid"
)

type Review struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID    uuid.UUID `json:"order_id" gorm:"type:uuid;not null;uniqueIndex:ux_order_reviewer,priority:1"`
	ReviewerID uuid.UUID `json:"reviewer_id" gorm:"type:uuid;not null;uniqueIndex:ux_order_reviewer,priority:2"`
	TargetID   uuid.UUID `json:"target_id" gorm:"type:uuid;not null;index"`
	Stars      int       `json:"stars" gorm:"not null"` // 1..5
	CreatedAt  time.Time `json:"created_at"`
}
