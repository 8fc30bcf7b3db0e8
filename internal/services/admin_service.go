package services

import (
	"errors"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Counters is the admin dashboard summary.
type Counters struct {
	Users   int64 `json:"users"`
	Orders  int64 `json:"orders"`
	Reports int64 `json:"reports"`
}

type AdminService interface {
	ListUsers(callerID uuid.UUID) ([]models.User, error)
	SetBlocked(callerID, userID uuid.UUID, blocked bool) error
	SetAdmin(callerID, userID uuid.UUID, admin bool) error
	DeleteUser(callerID, userID uuid.UUID) error

	ListReports(callerID uuid.UUID) ([]models.Report, error)
	DismissReport(callerID, reportID uuid.UUID) error

	Counts(callerID uuid.UUID) (*Counters, error)
}

type adminService struct {
	userRepo   repository.UserRepository
	orderRepo  repository.OrderRepository
	reportRepo repository.ReportRepository
}

func NewAdminService(userRepo repository.UserRepository, orderRepo repository.OrderRepository, reportRepo repository.ReportRepository) AdminService {
	return &adminService{userRepo: userRepo, orderRepo: orderRepo, reportRepo: reportRepo}
}

func (s *adminService) requireAdmin(callerID uuid.UUID) error {
	caller, err := s.userRepo.GetByID(callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.Forbidden("admin access required")
		}
		return err
	}
	if !caller.IsAdmin {
		return apperrors.Forbidden("admin access required")
	}
	return nil
}

func (s *adminService) ListUsers(callerID uuid.UUID) ([]models.User, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.userRepo.GetAll()
}

func (s *adminService) SetBlocked(callerID, userID uuid.UUID, blocked bool) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if callerID == userID {
		return apperrors.Validation("cannot block yourself")
	}
	return s.userRepo.SetBlocked(userID, blocked)
}

func (s *adminService) SetAdmin(callerID, userID uuid.UUID, admin bool) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if callerID == userID && !admin {
		return apperrors.Validation("cannot revoke your own admin access")
	}
	return s.userRepo.SetAdmin(userID, admin)
}

func (s *adminService) DeleteUser(callerID, userID uuid.UUID) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	if callerID == userID {
		return apperrors.Validation("cannot delete yourself")
	}
	return s.userRepo.Delete(userID)
}

func (s *adminService) ListReports(callerID uuid.UUID) ([]models.Report, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	return s.reportRepo.GetAll()
}

func (s *adminService) DismissReport(callerID, reportID uuid.UUID) error {
	if err := s.requireAdmin(callerID); err != nil {
		return err
	}
	return s.reportRepo.Delete(reportID)
}

func (s *adminService) Counts(callerID uuid.UUID) (*Counters, error) {
	if err := s.requireAdmin(callerID); err != nil {
		return nil, err
	}
	users, err := s.userRepo.Count()
	if err != nil {
		return nil, err
	}
	orders, err := s.orderRepo.Count()
	if err != nil {
		return nil, err
	}
	reports, err := s.reportRepo.Count()
	if err != nil {
		return nil, err
	}
	return &Counters{Users: users, Orders: orders, Reports: reports}, nil
}
