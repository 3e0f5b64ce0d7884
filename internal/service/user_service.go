package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
	"github.com/OnishkovValera/CyberSec1/internal/repository"
	"github.com/OnishkovValera/CyberSec1/internal/sanitize"
)

// ErrNotFound means an authenticated subject has no stored user, which points at an
// inconsistency between issued tokens and the user store.
var ErrNotFound = errors.New("user not found")

// TokenIssuer signs a token for an authenticated subject.
type TokenIssuer interface {
	Issue(subject string) (string, error)
}

// UserService describes the login and user read operations.
type UserService interface {
	Login(ctx context.Context, login, password string) (string, error)
	Me(ctx context.Context, principal *domain.Principal) (*domain.PublicUser, error)
	ListAll(ctx context.Context) ([]domain.PublicUser, error)
}

// Directory reads users from the store and projects them into sanitized views.
type Directory struct {
	users     repository.UserRepository
	sanitizer *sanitize.Sanitizer
}

func NewDirectory(users repository.UserRepository, sanitizer *sanitize.Sanitizer) *Directory {
	if sanitizer == nil {
		sanitizer = sanitize.New()
	}
	return &Directory{users: users, sanitizer: sanitizer}
}

// Lookup returns the view of the user with the given login.
func (d *Directory) Lookup(ctx context.Context, login string) (*domain.PublicUser, error) {
	user, err := d.users.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: %q", ErrNotFound, login)
		}
		return nil, err
	}

	view := d.toPublic(*user)
	return &view, nil
}

// ListAll returns every stored user, sanitized, in store order.
func (d *Directory) ListAll(ctx context.Context) ([]domain.PublicUser, error) {
	users, err := d.users.List(ctx)
	if err != nil {
		return nil, err
	}

	views := make([]domain.PublicUser, len(users))
	for i := range users {
		views[i] = d.toPublic(users[i])
	}
	return views, nil
}

func (d *Directory) toPublic(user domain.User) domain.PublicUser {
	return domain.PublicUser{
		ID:      user.ID,
		Name:    d.sanitizer.Optional(user.Name),
		Surname: d.sanitizer.Optional(user.Surname),
		Login:   d.sanitizer.Text(user.Login),
	}
}

type userService struct {
	verifier  CredentialVerifier
	tokens    TokenIssuer
	directory *Directory
	sanitizer *sanitize.Sanitizer
	logger    logrus.FieldLogger
}

func NewUserService(
	verifier CredentialVerifier,
	tokens TokenIssuer,
	users repository.UserRepository,
	sanitizer *sanitize.Sanitizer,
	logger logrus.FieldLogger,
) UserService {
	if sanitizer == nil {
		sanitizer = sanitize.New()
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &userService{
		verifier:  verifier,
		tokens:    tokens,
		directory: NewDirectory(users, sanitizer),
		sanitizer: sanitizer,
		logger:    logger,
	}
}

func (s *userService) Login(ctx context.Context, login, password string) (string, error) {
	principal, err := s.verifier.Verify(ctx, login, password)
	if err != nil {
		if errors.Is(err, ErrAuthenticationFailed) {
			s.logger.WithField("login", s.sanitizer.Text(login)).Info("login rejected")
		}
		return "", err
	}

	token, err := s.tokens.Issue(principal.Subject)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

func (s *userService) Me(ctx context.Context, principal *domain.Principal) (*domain.PublicUser, error) {
	if principal == nil || !principal.Authenticated {
		return nil, nil
	}
	return s.directory.Lookup(ctx, principal.Subject)
}

func (s *userService) ListAll(ctx context.Context) ([]domain.PublicUser, error) {
	return s.directory.ListAll(ctx)
}
