package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID           uuid.UUID      `json:"id" gorm:"type:uuid;default:gen_random_uuid();primaryKey"`
	Name         string         `json:"name" gorm:"not null"`
	Email        string         `json:"email" gorm:"unique;not null"`
	Phone        string         `json:"phone" gorm:"not null"`
	CPF          string         `json:"cpf"`
	PasswordHash string         `json:"-" gorm:"not null"`
	Role         string         `json:"role" gorm:"default:'contractor'"` // contractor, worker
	IsAdmin      bool           `json:"is_admin" gorm:"default:false"`
	IsBlocked    bool           `json:"is_blocked" gorm:"default:false"`
	Bio          string         `json:"bio"`
	Skills       StringList     `json:"skills" gorm:"type:text"`
	Availability Availability   `json:"availability" gorm:"embedded"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `json:"deleted_at" gorm:"index"`
}

type UserRole string

const (
	RoleContractor UserRole = "contractor"
	RoleWorker     UserRole = "worker"
)

// Availability is the worker's "I am online" state. The flag and the position
// always change together through UserService.SetAvailability, so a reader
// never observes an available worker with a stale or missing position update.
type Availability struct {
	IsAvailable bool       `json:"is_available" gorm:"default:false"`
	LastLat     *float64   `json:"last_lat"`
	LastLng     *float64   `json:"last_lng"`
	UpdatedAt   *time.Time `json:"availability_updated_at"`
}

// Position returns the worker's last known coordinates, or nil when the
// worker has never shared them.
func (a Availability) Position() *Coord {
	if a.LastLat == nil || a.LastLng == nil {
		return nil
	}
	return &Coord{Lat: *a.LastLat, Lng: *a.LastLng}
}

func (u *User) HasSkill(cargoType string) bool {
	if len(u.Skills) == 0 {
		return true // unspecified skills means general help
	}
	for _, s := range u.Skills {
		if s == cargoType {
			return true
		}
	}
	return false
}
