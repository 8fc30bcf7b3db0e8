package repository

import (
	"chapacerto/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewRepository interface {
	Create(review *models.Review) error
	ExistsForOrderAndReviewer(orderID, reviewerID uuid.UUID) (bool, error)
	AverageStars(targetID uuid.UUID) (float64, error)
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(review *models.Review) error {
	return r.db.Create(review).Error
}

func (r *reviewRepository) ExistsForOrderAndReviewer(orderID, reviewerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.Model(&models.Review{}).
		Where("order_id = ? AND reviewer_id = ?", orderID, reviewerID).
		Count(&count).Error
	return count > 0, err
}

// AverageStars defaults to 5 for users with no reviews yet.
func (r *reviewRepository) AverageStars(targetID uuid.UUID) (float64, error) {
	var avg *float64
	err := r.db.Model(&models.Review{}).
		Where("target_id = ?", targetID).
		Select("AVG(stars)").Scan(&avg).Error
	if err != nil {
		return 0, err
	}
	if avg == nil {
		return 5, nil
	}
	return *avg, nil
}
