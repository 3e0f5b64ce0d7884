package service

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
	"github.com/OnishkovValera/CyberSec1/internal/repository"
)

// ErrAuthenticationFailed is returned for both an unknown login and a wrong password.
var ErrAuthenticationFailed = errors.New("invalid credentials")

// CredentialVerifier checks a login and password pair and yields the authenticated principal.
type CredentialVerifier interface {
	Verify(ctx context.Context, login, password string) (*domain.Principal, error)
}

type passwordVerifier struct {
	users repository.UserRepository
	// dummyHash is compared against when the login is unknown so both failure paths
	// cost one bcrypt comparison.
	dummyHash []byte
}

// NewPasswordVerifier checks passwords against bcrypt hashes held in users.
func NewPasswordVerifier(users repository.UserRepository) (CredentialVerifier, error) {
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash dummy password: %w", err)
	}
	return &passwordVerifier{users: users, dummyHash: dummy}, nil
}

func (v *passwordVerifier) Verify(ctx context.Context, login, password string) (*domain.Principal, error) {
	if login == "" || password == "" {
		return nil, ErrAuthenticationFailed
	}

	user, err := v.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			_ = bcrypt.CompareHashAndPassword(v.dummyHash, []byte(password))
			return nil, ErrAuthenticationFailed
		}
		return nil, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrAuthenticationFailed
	}

	return &domain.Principal{Subject: user.Login, Authenticated: true}, nil
}
