package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/paycrow/paycrow-backend-go/internal/domain/account"
	"github.com/paycrow/paycrow-backend-go/internal/pkg/jwt"
	"golang.org/x/crypto/bcrypt"
)

type AuthServiceImpl struct {
	accountRepo account.AccountRepository
	jwtService  jwt.Service
}

func NewAuthService(accountRepo account.AccountRepository, jwtService jwt.Service) account.AuthService {
	return &AuthServiceImpl{
		accountRepo: accountRepo,
		jwtService:  jwtService,
	}
}

// Register implements account.AuthService.
func (s *AuthServiceImpl) Register(ctx context.Context, req account.RegisterRequest) (account.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return account.TokenResponse{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return account.TokenResponse{}, fmt.Errorf("failed to hash password: %w", err)
	}

	acc, err := s.accountRepo.Create(ctx, account.Account{
		Email:        req.Email,
		PasswordHash: string(hash),
	})
	if err != nil {
		return account.TokenResponse{}, err
	}

	return s.issueToken(acc)
}

// Login implements account.AuthService.
func (s *AuthServiceImpl) Login(ctx context.Context, req account.LoginRequest) (account.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return account.TokenResponse{}, err
	}

	acc, err := s.accountRepo.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, account.ErrAccountNotFound) {
			return account.TokenResponse{}, account.ErrInvalidCredentials
		}
		return account.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(req.Password)); err != nil {
		return account.TokenResponse{}, account.ErrInvalidCredentials
	}

	return s.issueToken(acc)
}

func (s *AuthServiceImpl) issueToken(acc account.Account) (account.TokenResponse, error) {
	token, expiresAt, err := s.jwtService.GenerateAccessToken(acc.ID, acc.Email)
	if err != nil {
		return account.TokenResponse{}, fmt.Errorf("failed to generate access token: %w", err)
	}
	return account.TokenResponse{
		AccountID:   acc.ID,
		Email:       acc.Email,
		AccessToken: token,
		ExpiresAt:   expiresAt,
	}, nil
}
