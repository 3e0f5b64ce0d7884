package repository

import (
	"context"
	"errors"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no stored record.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) (int64, error)
	GetByLogin(ctx context.Context, login string) (*domain.User, error)
	List(ctx context.Context) ([]domain.User, error)
}
