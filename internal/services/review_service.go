package services

import (
	"errors"
	"strings"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ReviewService interface {
	// SubmitReview rates the counterpart of a completed order, once per
	// order per reviewer.
	SubmitReview(reviewerID, orderID uuid.UUID, stars int) (*models.Review, error)
	Rating(userID uuid.UUID) (float64, error)

	CreateReport(accuserID, accusedID, orderID uuid.UUID, reason string) (*models.Report, error)
}

type reviewService struct {
	reviewRepo repository.ReviewRepository
	reportRepo repository.ReportRepository
	orderRepo  repository.OrderRepository
}

func NewReviewService(reviewRepo repository.ReviewRepository, reportRepo repository.ReportRepository, orderRepo repository.OrderRepository) ReviewService {
	return &reviewService{reviewRepo: reviewRepo, reportRepo: reportRepo, orderRepo: orderRepo}
}

func (s *reviewService) SubmitReview(reviewerID, orderID uuid.UUID, stars int) (*models.Review, error) {
	if stars < 1 || stars > 5 {
		return nil, apperrors.Validation("stars must be between 1 and 5")
	}
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("order not found")
		}
		return nil, err
	}
	if order.Status != string(models.OrderCompleted) {
		return nil, apperrors.Validation("only completed orders can be reviewed")
	}
	if order.AcceptedWorkerID == nil {
		return nil, apperrors.Validation("order has no worker to review")
	}

	var targetID uuid.UUID
	switch reviewerID {
	case order.ContractorID:
		targetID = *order.AcceptedWorkerID
	case *order.AcceptedWorkerID:
		targetID = order.ContractorID
	default:
		return nil, apperrors.Forbidden("only the order's parties may review")
	}

	exists, err := s.reviewRepo.ExistsForOrderAndReviewer(orderID, reviewerID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, apperrors.Conflict("order already reviewed")
	}

	review := &models.Review{
		OrderID:    orderID,
		ReviewerID: reviewerID,
		TargetID:   targetID,
		Stars:      stars,
	}
	if err := s.reviewRepo.Create(review); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *reviewService) Rating(userID uuid.UUID) (float64, error) {
	return s.reviewRepo.AverageStars(userID)
}

func (s *reviewService) CreateReport(accuserID, accusedID, orderID uuid.UUID, reason string) (*models.Report, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validation("report reason is required")
	}
	if accuserID == accusedID {
		return nil, apperrors.Validation("cannot report yourself")
	}
	report := &models.Report{
		AccuserID: accuserID,
		AccusedID: accusedID,
		OrderID:   orderID,
		Reason:    reason,
	}
	if err := s.reportRepo.Create(report); err != nil {
		return nil, err
	}
	return report, nil
}
