package repository

import (
	"time"

	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uuid.UUID) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetAll() ([]models.User, error)
	GetAvailableWorkers(excludeID uuid.UUID) ([]models.User, error)
	Update(user *models.User) error
	SetAvailability(id uuid.UUID, available bool, lat, lng *float64) error
	SetBlocked(id uuid.UUID, blocked bool) error
	SetAdmin(id uuid.UUID, admin bool) error
	Delete(id uuid.UUID) error
	Count() (int64, error)
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uuid.UUID) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, "email = ?", email).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetAll() ([]models.User, error) {
	var users []models.User
	err := r.db.Order("created_at DESC").Find(&users).Error
	return users, err
}

func (r *userRepository) GetAvailableWorkers(excludeID uuid.UUID) ([]models.User, error) {
	var users []models.User
	err := r.db.
		Where("is_available = ? AND is_blocked = ? AND id <> ?", true, false, excludeID).
		Find(&users).Error
	return users, err
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// SetAvailability flips the flag and the position in one write, so the two
// never diverge between sessions.
func (r *userRepository) SetAvailability(id uuid.UUID, available bool, lat, lng *float64) error {
	now := time.Now()
	return r.db.Model(&models.User{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_available":            available,
		"last_lat":                lat,
		"last_lng":                lng,
		"availability_updated_at": &now,
	}).Error
}

func (r *userRepository) SetBlocked(id uuid.UUID, blocked bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("is_blocked", blocked).Error
}

func (r *userRepository) SetAdmin(id uuid.UUID, admin bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", id).Update("is_admin", admin).Error
}

func (r *userRepository) Delete(id uuid.UUID) error {
	return r.db.Delete(&models.User{}, "id = ?", id).Error
}

func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}
