package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/quidbooks/server/internal/models"
)

// Business setting defaults. The accounting period end follows the UK
// standard 31 March year end.
const (
	defaultBusinessType        = "Sole Trader"
	defaultAccountingPeriodEnd = "31-03"
)

// CreateBusiness creates a business owned by the session's user with default
// settings for the current tax year.
func (s *DefaultService) CreateBusiness(ctx context.Context, token string, req models.CreateBusinessRequest) (*models.CreateBusinessResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	businessType := req.BusinessType
	if businessType == "" {
		businessType = defaultBusinessType
	}

	business := &models.Business{
		ID:                  uuid.New().String(),
		Name:                req.Name,
		OwnerID:             session.UserID,
		BusinessType:        businessType,
		TaxNumber:           req.TaxNumber,
		Address:             req.Address,
		TaxYear:             currentTaxYear(s.now()),
		VATRegistered:       false,
		AccountingPeriodEnd: defaultAccountingPeriodEnd,
		CreatedAt:           s.now().UTC(),
	}

	if err := s.repo.CreateBusiness(ctx, business); err != nil {
		return nil, fmt.Errorf("error creating business: %w", err)
	}

	return &models.CreateBusinessResponse{
		Success:    true,
		BusinessID: business.ID,
		Business:   toBusinessResponse(*business, []string{session.UserID}),
	}, nil
}

// GetBusiness returns a business the session's user is a member of.
func (s *DefaultService) GetBusiness(ctx context.Context, token, businessID string) (*models.BusinessResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	business, members, err := s.authorizeBusiness(ctx, session.UserID, businessID)
	if err != nil {
		return nil, err
	}

	response := toBusinessResponse(*business, members)
	return &response, nil
}

// UserBusinesses returns every business whose member set contains the
// session's user.
func (s *DefaultService) UserBusinesses(ctx context.Context, token string) ([]models.BusinessResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	businesses, err := s.repo.GetUserBusinesses(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error getting user businesses: %w", err)
	}

	responses := make([]models.BusinessResponse, 0, len(businesses))
	for _, b := range businesses {
		members, err := s.repo.GetBusinessMembers(ctx, b.ID)
		if err != nil {
			return nil, fmt.Errorf("error getting business members: %w", err)
		}
		responses = append(responses, toBusinessResponse(b, members))
	}

	return responses, nil
}

// AddUserToBusiness shares a business with another registered user. Only the
// owner may add members; adding an existing member is a no-op.
func (s *DefaultService) AddUserToBusiness(ctx context.Context, token, businessID string, req models.AddUserToBusinessRequest) (*models.AddUserResponse, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		return nil, err
	}

	business, err := s.repo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("error getting business: %w", err)
	}

	if business == nil {
		return nil, ErrBusinessNotFound
	}

	if business.OwnerID != session.UserID {
		return nil, ErrAccessDenied
	}

	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	businessUser := &models.BusinessUser{
		BusinessID: businessID,
		UserID:     user.ID,
		CreatedAt:  s.now().UTC(),
	}

	if err := s.repo.AddUserToBusiness(ctx, businessUser); err != nil {
		return nil, fmt.Errorf("error adding user to business: %w", err)
	}

	return &models.AddUserResponse{
		Success: true,
		Message: "User added to business",
	}, nil
}

// authorizeBusiness loads a business and checks the acting user against its
// member set. Used by the operations that also return the member list.
func (s *DefaultService) authorizeBusiness(ctx context.Context, userID, businessID string) (*models.Business, []string, error) {
	business, err := s.repo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting business: %w", err)
	}

	if business == nil {
		return nil, nil, ErrBusinessNotFound
	}

	members, err := s.repo.GetBusinessMembers(ctx, business.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("error getting business members: %w", err)
	}

	for _, m := range members {
		if m == userID {
			return business, members, nil
		}
	}

	return nil, nil, ErrAccessDenied
}

// requireMembership loads a business and checks the acting user against the
// membership table without materializing the member list. Used by the
// transaction operations, which never return members.
func (s *DefaultService) requireMembership(ctx context.Context, userID, businessID string) (*models.Business, error) {
	business, err := s.repo.GetBusiness(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("error getting business: %w", err)
	}

	if business == nil {
		return nil, ErrBusinessNotFound
	}

	member, err := s.repo.IsBusinessMember(ctx, businessID, userID)
	if err != nil {
		return nil, fmt.Errorf("error checking business membership: %w", err)
	}

	if !member {
		return nil, ErrAccessDenied
	}

	return business, nil
}

// currentTaxYear formats the UK tax year containing now, e.g. "2024/25".
// The year rolls over on 6 April.
func currentTaxYear(now time.Time) string {
	start := now.Year()
	rollover := time.Date(start, time.April, 6, 0, 0, 0, 0, now.Location())
	if now.Before(rollover) {
		start--
	}
	return fmt.Sprintf("%d/%02d", start, (start+1)%100)
}
