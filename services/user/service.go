package user

import (
	"context"
	"fmt"
	"strings"
	"time"

	userRepo "pitstop/database/repository/user"
	vehicleRepo "pitstop/database/repository/vehicle"
	"pitstop/models"
	"pitstop/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// RegisterInput is a new account request.
type RegisterInput struct {
	Name        string           `json:"name"`
	Email       string           `json:"email"`
	Password    string           `json:"password"`
	PhoneNumber string           `json:"phone_number,omitempty"`
	Address     string           `json:"address,omitempty"`
	Role        models.ActorRole `json:"role,omitempty"`
}

// VehicleInput registers or updates a customer vehicle.
type VehicleInput struct {
	Brand     string `json:"brand"`
	Model     string `json:"model"`
	ModelYear int    `json:"model_year"`
	Mileage   int    `json:"mileage"`
	Plate     string `json:"plate,omitempty"`
}

// AuthResponse carries the issued token and the account it belongs to.
type AuthResponse struct {
	Token string      `json:"token"`
	User  models.User `json:"user"`
}

// UserService manages accounts and customer vehicles.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResponse, error)
	Authenticate(ctx context.Context, email, password string) (*AuthResponse, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateFCMToken(ctx context.Context, actor models.Actor, token string) error
	RegisterVehicle(ctx context.Context, actor models.Actor, in VehicleInput) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, actor models.Actor) ([]models.Vehicle, error)
	UpdateMileage(ctx context.Context, actor models.Actor, vehicleID string, mileage int) (*models.Vehicle, error)
}

// DefaultUserService is the production implementation.
type DefaultUserService struct {
	Users    userRepo.UserRepository
	Vehicles vehicleRepo.VehicleRepository
}

func NewDefaultUserService(users userRepo.UserRepository, vehicles vehicleRepo.VehicleRepository) *DefaultUserService {
	return &DefaultUserService{Users: users, Vehicles: vehicles}
}

func (s *DefaultUserService) Register(ctx context.Context, in RegisterInput) (*AuthResponse, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return nil, models.NewValidationError("a valid email is required")
	}
	if len(in.Password) < 8 {
		return nil, models.NewValidationError("password must be at least 8 characters")
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.NewValidationError("name is required")
	}
	role := in.Role
	if role == "" {
		role = models.RoleCustomer
	}
	switch role {
	case models.RoleCustomer, models.RoleJockey, models.RoleWorkshop:
	default:
		return nil, models.NewValidationError("unknown role %q", role)
	}

	existing, err := s.Users.GetByEmail(ctx, in.Email)
	if err != nil {
		return nil, models.NewExternalError("failed to check email", err)
	}
	if existing != nil {
		return nil, models.NewValidationError("an account with this email already exists")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	u := &models.User{
		ID:           uuid.New().String(),
		Name:         in.Name,
		Email:        in.Email,
		PasswordHash: string(hash),
		PhoneNumber:  in.PhoneNumber,
		Address:      in.Address,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.Users.Create(ctx, u); err != nil {
		return nil, models.NewExternalError("failed to create account", err)
	}

	token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), utils.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResponse{Token: token, User: *u}, nil
}

func (s *DefaultUserService) Authenticate(ctx context.Context, email, password string) (*AuthResponse, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := s.Users.GetByEmail(ctx, email)
	if err != nil {
		utils.GetLogger().Error("authenticate: failed to fetch user", zap.Error(err))
		return nil, models.NewExternalError("authentication failed, please try again", err)
	}
	if u == nil || u.Deactivated {
		return nil, models.NewValidationError("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, models.NewValidationError("invalid email or password")
	}

	token, err := utils.GenerateToken(u.ID, u.Email, string(u.Role), utils.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}
	return &AuthResponse{Token: token, User: *u}, nil
}

func (s *DefaultUserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Users.GetByID(ctx, id)
	if err != nil {
		return nil, models.NewExternalError("failed to load user", err)
	}
	if u == nil {
		return nil, models.NewValidationError("user %s not found", id)
	}
	return u, nil
}

func (s *DefaultUserService) UpdateFCMToken(ctx context.Context, actor models.Actor, token string) error {
	u, err := s.GetByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	u.FCMToken = token
	u.UpdatedAt = time.Now()
	if err := s.Users.Update(ctx, u); err != nil {
		return models.NewExternalError("failed to update FCM token", err)
	}
	return nil
}

func (s *DefaultUserService) RegisterVehicle(ctx context.Context, actor models.Actor, in VehicleInput) (*models.Vehicle, error) {
	if actor.Role != models.RoleCustomer {
		return nil, models.NewIllegalTransitionError("only a customer may register a vehicle")
	}
	if strings.TrimSpace(in.Brand) == "" || strings.TrimSpace(in.Model) == "" {
		return nil, models.NewValidationError("brand and model are required")
	}
	if in.ModelYear <= 0 {
		return nil, models.NewValidationError("model year must be positive")
	}
	if in.Mileage < 0 {
		return nil, models.NewValidationError("mileage must be non-negative")
	}

	now := time.Now()
	v := &models.Vehicle{
		ID:        uuid.New().String(),
		UserID:    actor.ID,
		Brand:     in.Brand,
		Model:     in.Model,
		ModelYear: in.ModelYear,
		Mileage:   in.Mileage,
		Plate:     in.Plate,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.Vehicles.Create(ctx, v); err != nil {
		return nil, models.NewExternalError("failed to register vehicle", err)
	}
	return v, nil
}

func (s *DefaultUserService) ListVehicles(ctx context.Context, actor models.Actor) ([]models.Vehicle, error) {
	list, err := s.Vehicles.ListByUser(ctx, actor.ID)
	if err != nil {
		return nil, models.NewExternalError("failed to list vehicles", err)
	}
	return list, nil
}

func (s *DefaultUserService) UpdateMileage(ctx context.Context, actor models.Actor, vehicleID string, mileage int) (*models.Vehicle, error) {
	if mileage < 0 {
		return nil, models.NewValidationError("mileage must be non-negative")
	}
	v, err := s.Vehicles.GetByID(ctx, vehicleID)
	if err != nil {
		return nil, models.NewExternalError("failed to load vehicle", err)
	}
	if v == nil || v.UserID != actor.ID {
		return nil, models.NewValidationError("vehicle %s not found", vehicleID)
	}
	if mileage < v.Mileage {
		return nil, models.NewValidationError("mileage cannot decrease")
	}
	v.Mileage = mileage
	v.UpdatedAt = time.Now()
	if err := s.Vehicles.Update(ctx, v); err != nil {
		return nil, models.NewExternalError("failed to update vehicle", err)
	}
	return v, nil
}
