package services

import (
	"errors"
	"strings"

	"chapacerto/internal/apperrors"
	"chapacerto/internal/models"
	"chapacerto/internal/repository"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type RegisterInput struct {
	Name     string            `json:"name"`
	Email    string            `json:"email"`
	Phone    string            `json:"phone"`
	CPF      string            `json:"cpf"`
	Password string            `json:"password"`
	Role     string            `json:"role"`
	Bio      string            `json:"bio"`
	Skills   models.StringList `json:"skills"`
}

type ProfileInput struct {
	Name   string            `json:"name"`
	Phone  string            `json:"phone"`
	CPF    string            `json:"cpf"`
	Bio    string            `json:"bio"`
	Skills models.StringList `json:"skills"`
}

type UserService interface {
	Register(input RegisterInput) (*models.User, error)
	Login(email, password string) (*models.User, error)
	GetByID(id uuid.UUID) (*models.User, error)
	UpdateProfile(id uuid.UUID, input ProfileInput) (*models.User, error)

	// SetAvailability flips the worker's online flag and position together
	// in one write.
	SetAvailability(id uuid.UUID, available bool, position *models.Coord) error
}

type userService struct {
	userRepo repository.UserRepository
}

func NewUserService(userRepo repository.UserRepository) UserService {
	return &userService{userRepo: userRepo}
}

func (s *userService) Register(input RegisterInput) (*models.User, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" || input.Email == "" || input.Phone == "" {
		return nil, apperrors.Validation("name, email and phone are required")
	}
	if len(input.Password) < 6 {
		return nil, apperrors.Validation("password must be at least 6 characters")
	}
	role := input.Role
	if role == "" {
		role = string(models.RoleContractor)
	}
	if role != string(models.RoleContractor) && role != string(models.RoleWorker) {
		return nil, apperrors.Validation("unknown role %q", role)
	}

	if _, err := s.userRepo.GetByEmail(input.Email); err == nil {
		return nil, apperrors.Conflict("email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         input.Name,
		Email:        input.Email,
		Phone:        input.Phone,
		CPF:          input.CPF,
		PasswordHash: string(hash),
		Role:         role,
		Bio:          input.Bio,
		Skills:       input.Skills,
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) Login(email, password string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.Forbidden("invalid credentials")
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.Forbidden("invalid credentials")
	}
	if user.IsBlocked {
		return nil, apperrors.Forbidden("account is blocked")
	}
	return user, nil
}

func (s *userService) GetByID(id uuid.UUID) (*models.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("user not found")
		}
		return nil, err
	}
	return user, nil
}

func (s *userService) UpdateProfile(id uuid.UUID, input ProfileInput) (*models.User, error) {
	user, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if input.Name != "" {
		user.Name = input.Name
	}
	if input.Phone != "" {
		user.Phone = input.Phone
	}
	if input.CPF != "" {
		user.CPF = input.CPF
	}
	user.Bio = input.Bio
	if input.Skills != nil {
		user.Skills = input.Skills
	}
	if err := s.userRepo.Update(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *userService) SetAvailability(id uuid.UUID, available bool, position *models.Coord) error {
	user, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if user.Role != string(models.RoleWorker) {
		return apperrors.Validation("only workers can set availability")
	}
	var lat, lng *float64
	if position != nil {
		lat, lng = &position.Lat, &position.Lng
	}
	return s.userRepo.SetAvailability(id, available, lat, lng)
}
