package models

import (
	"time"

	"github.com/google/uuid"
)

type Proposal struct {
	ID           uuid.UUID  `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID      uuid.UUID  `json:"order_id" gorm:"type:uuid;not null;index;uniqueIndex:ux_order_worker,priority:1"`
	WorkerID     uuid.UUID  `json:"worker_id" gorm:"type:uuid;not null;index;uniqueIndex:ux_order_worker,priority:2"`
	Amount       float64    `json:"amount" gorm:"not null"`
	Message      string     `json:"message"`
	IsAccepted   bool       `json:"is_accepted" gorm:"default:false"`
	ProposedDate *time.Time `json:"proposed_date"`
	ProposedTime string     `json:"proposed_time"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}
