// Package auth implements account sign-up and login with JWT issuance.
// It is a thin collaborator: everything past "who is the principal" lives
// in the feature services.
package auth

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/trackhouse/service/internal/apperr"
	"github.com/trackhouse/service/internal/config"
	"github.com/trackhouse/service/internal/user"
)

const tokenTTL = 7 * 24 * time.Hour

// Service contains the business logic for email/password authentication.
type Service struct {
	userSvc *user.Service
	cfg     *config.Config
}

// NewService creates a new auth Service.
func NewService(userSvc *user.Service, cfg *config.Config) *Service {
	return &Service{userSvc: userSvc, cfg: cfg}
}

// SignupCommand carries a validated sign-up request.
type SignupCommand struct {
	Email       string
	Name        string
	Password    string
	AccountType string
}

// Signup creates a new account and issues a JWT token.
func (s *Service) Signup(ctx context.Context, cmd SignupCommand) (string, *user.User, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return "", nil, apperr.Unknownf(err, "could not create your account")
	}

	u, err := s.userSvc.Create(ctx, cmd.Email, cmd.Name, string(hash), cmd.AccountType)
	if err != nil {
		return "", nil, err
	}

	token, err := s.issueToken(u.ID, u.Email)
	if err != nil {
		return "", nil, apperr.Unknownf(err, "could not sign you in")
	}
	return token, u, nil
}

// Login verifies the password for the account and issues a JWT token.
// Wrong email and wrong password both come back as the same auth failure.
func (s *Service) Login(ctx context.Context, email, password string) (string, *user.User, error) {
	u, err := s.userSvc.GetByEmail(ctx, email)
	if err != nil {
		return "", nil, apperr.Authf("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, apperr.Authf("invalid email or password")
	}

	token, err := s.issueToken(u.ID, u.Email)
	if err != nil {
		return "", nil, apperr.Unknownf(err, "could not sign you in")
	}
	return token, u, nil
}

// issueToken creates a signed JWT with the user's claims.
func (s *Service) issueToken(userID, email string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub":   userID,
		"email": email,
		"iat":   now.Unix(),
		"exp":   now.Add(tokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.JWTSecret))
}
