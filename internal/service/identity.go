package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/quidbooks/server/internal/models"
)

// Register creates a new user. The response carries public fields only,
// never the credential hash.
func (s *DefaultService) Register(ctx context.Context, req models.RegisterRequest) (*models.RegisterResponse, error) {
	existing, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error checking user existence: %w", err)
	}

	if existing != nil {
		return nil, ErrUsernameExists
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	user := &models.User{
		ID:        uuid.New().String(),
		Username:  req.Username,
		Password:  hashed,
		Email:     req.Email,
		FullName:  req.FullName,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return &models.RegisterResponse{
		Success:  true,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		FullName: user.FullName,
	}, nil
}

// Login authenticates a user and issues a session token. The same error is
// returned for an unknown username and a wrong password.
func (s *DefaultService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.repo.GetUserByUsername(ctx, req.Username)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil || !s.hasher.Compare(user.Password, req.Password) {
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	token, err := s.generateToken(user, now)
	if err != nil {
		return nil, fmt.Errorf("error generating token: %w", err)
	}

	session := &models.Session{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionDuration),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("error creating session: %w", err)
	}

	profile, err := s.buildProfile(ctx, user)
	if err != nil {
		return nil, err
	}

	return &models.LoginResponse{
		Success:      true,
		SessionToken: token,
		User:         *profile,
	}, nil
}

// Logout deletes the session for the given token. It is idempotent: a
// missing, empty or bogus token still succeeds.
func (s *DefaultService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.repo.DeleteSession(ctx, token); err != nil {
		return fmt.Errorf("error deleting session: %w", err)
	}
	return nil
}

// ValidateSession checks a token against the session store. The store is
// authoritative and is consulted first: a token without a row fails as
// invalid regardless of what its JWT claims say, so a logged-out token never
// reports expiry. Expired sessions are deleted lazily here rather than by a
// background sweep, and the token fails as invalid from then on.
func (s *DefaultService) ValidateSession(ctx context.Context, token string) (*models.Session, error) {
	if token == "" {
		return nil, ErrNoActiveSession
	}

	session, err := s.repo.GetSession(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("error getting session: %w", err)
	}

	if session == nil {
		return nil, ErrInvalidSession
	}

	parser := jwt.NewParser(jwt.WithTimeFunc(s.now))
	_, err = parser.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			// Lazy cleanup; the row is useless now.
			_ = s.repo.DeleteSession(ctx, token)
			return nil, ErrSessionExpired
		}
		return nil, ErrInvalidSession
	}

	if s.now().After(session.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, token)
		return nil, ErrSessionExpired
	}

	return session, nil
}

// CurrentUser resolves the token to a full profile. Validation failures and
// a session pointing at a missing user record both return (nil, nil);
// callers must tolerate the nil profile.
func (s *DefaultService) CurrentUser(ctx context.Context, token string) (*models.UserProfile, error) {
	session, err := s.ValidateSession(ctx, token)
	if err != nil {
		if isSessionError(err) {
			return nil, nil
		}
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, fmt.Errorf("error getting user: %w", err)
	}

	if user == nil {
		return nil, nil
	}

	return s.buildProfile(ctx, user)
}

// buildProfile resolves the businesses whose member list contains the user.
func (s *DefaultService) buildProfile(ctx context.Context, user *models.User) (*models.UserProfile, error) {
	businesses, err := s.repo.GetUserBusinesses(ctx, user.ID)
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

	return &models.UserProfile{
		UserID:     user.ID,
		Username:   user.Username,
		Email:      user.Email,
		FullName:   user.FullName,
		Businesses: responses,
	}, nil
}

// generateToken signs an HS256 JWT whose literal string also keys the
// sessions table.
func (s *DefaultService) generateToken(user *models.User, now time.Time) (string, error) {
	claims := jwt.MapClaims{
		"sub": user.ID,
		"jti": uuid.New().String(),
		"exp": now.Add(s.sessionDuration).Unix(),
		"iat": now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}
