package models

import (
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Order struct {
	ID               uuid.UUID      `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	ContractorID     uuid.UUID      `json:"contractor_id" gorm:"type:uuid;not null;index"`
	Status           string         `json:"status" gorm:"default:'open';index"` // open, accepted, paid, completed
	Origin           string         `json:"origin" gorm:"not null"`
	Lat              *float64       `json:"lat"`
	Lng              *float64       `json:"lng"`
	CargoType        string         `json:"cargo_type" gorm:"not null;default:'carga'"`
	Description      string         `json:"description"`
	ScheduledDate    *time.Time     `json:"scheduled_date"`
	ScheduledTime    string         `json:"scheduled_time"`
	AgreedPrice      *float64       `json:"agreed_price"`
	ContactFeePaid   bool           `json:"contact_fee_paid" gorm:"default:false"` // one-way: false -> true
	AcceptedWorkerID *uuid.UUID     `json:"accepted_worker_id" gorm:"type:uuid"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
	DeletedAt        gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type OrderStatus string

const (
	OrderOpen      OrderStatus = "open"
	OrderAccepted  OrderStatus = "accepted"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
)

const (
	CargoLoading   = "carga"    // loading/unloading
	CargoMoving    = "mudanca"  // house moving
	CargoHelper    = "ajudante" // general helper
	CargoHandyman  = "marido"   // handyman
	CargoFreelance = "freelance"
)

// Legacy cargo values still found in old rows.
const (
	CargoSacks     = "sacaria"
	CargoBoxes     = "caixas"
	CargoFurniture = "moveis"
)

func ValidCargoType(t string) bool {
	switch strings.ToLower(t) {
	case CargoLoading, CargoMoving, CargoHelper, CargoHandyman, CargoFreelance,
		CargoSacks, CargoBoxes, CargoFurniture:
		return true
	}
	return false
}

func (o *Order) Position() *Coord {
	if o.Lat == nil || o.Lng == nil {
		return nil
	}
	return &Coord{Lat: *o.Lat, Lng: *o.Lng}
}

func (o *Order) IsEngaged() bool {
	return o.Status == string(OrderAccepted) || o.Status == string(OrderPaid)
}

// legacyPrefix matches the old "[TYPE] description" encoding where the cargo
// type rode inside the free-text description column.
var legacyPrefix = regexp.MustCompile(`^\[(.*?)\]\s*`)

// AfterFind migrates legacy rows on read: the bracketed prefix becomes the
// cargo_type field and is stripped from the description.
func (o *Order) AfterFind(tx *gorm.DB) error {
	if m := legacyPrefix.FindStringSubmatch(o.Description); m != nil {
		if o.CargoType == "" || o.CargoType == CargoLoading {
			o.CargoType = strings.ToLower(m[1])
		}
		o.Description = legacyPrefix.ReplaceAllString(o.Description, "")
	}
	return nil
}
