package service

import (
	"context"
	"time"

	"github.com/quidbooks/server/internal/auth"
	"github.com/quidbooks/server/internal/models"
	"github.com/quidbooks/server/internal/repository"
)

// Service defines all the business logic operations
type Service interface {
	// Identity and sessions
	Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error)
	Logout(ctx context.Context, token string) error
	ValidateSession(ctx context.Context, token string) (*models.Session, error)
	CurrentUser(ctx context.Context, token string) (*models.UserProfile, error)

	// Business directory
	CreateBusiness(ctx context.Context, token string, req models.CreateBusinessRequest) (*models.CreateBusinessResponse, error)
	GetBusiness(ctx context.Context, token, businessID string) (*models.BusinessResponse, error)
	UserBusinesses(ctx context.Context, token string) ([]models.BusinessResponse, error)
	AddUserToBusiness(ctx context.Context, token, businessID string, req models.AddUserToBusinessRequest) (*models.AddUserResponse, error)

	// Transaction ingestion and queries
	UploadBankTransactions(ctx context.Context, token, businessID, statement string) (*models.UploadStatementResponse, error)
	Transactions(ctx context.Context, token, businessID, startDate, endDate, category string) (*models.TransactionsResponse, error)
	TaxExport(ctx context.Context, token, businessID string) (*models.TaxExport, error)
}

// DefaultService implements the Service interface
type DefaultService struct {
	repo            repository.Repository
	hasher          auth.PasswordHasher
	jwtSecret       []byte
	sessionDuration time.Duration
	now             func() time.Time
}

// NewDefaultService creates a new DefaultService
func NewDefaultService(repo repository.Repository, hasher auth.PasswordHasher, jwtSecret string) *DefaultService {
	return &DefaultService{
		repo:            repo,
		hasher:          hasher,
		jwtSecret:       []byte(jwtSecret),
		sessionDuration: 24 * time.Hour, // sessions live for 24 hours
		now:             time.Now,
	}
}

// SetClock overrides the service clock. Used by tests to exercise session
// expiry boundaries.
func (s *DefaultService) SetClock(now func() time.Time) {
	s.now = now
}

// toBusinessResponse flattens a business row and its member list into the
// API shape with nested settings.
func toBusinessResponse(b models.Business, members []string) models.BusinessResponse {
	return models.BusinessResponse{
		BusinessID:   b.ID,
		Name:         b.Name,
		OwnerID:      b.OwnerID,
		BusinessType: b.BusinessType,
		TaxNumber:    b.TaxNumber,
		Address:      b.Address,
		CreatedAt:    b.CreatedAt.Format(time.RFC3339),
		Users:        members,
		Settings: models.BusinessSettings{
			TaxYear:             b.TaxYear,
			VATRegistered:       b.VATRegistered,
			AccountingPeriodEnd: b.AccountingPeriodEnd,
		},
	}
}
