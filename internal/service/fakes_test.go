package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/OnishkovValera/CyberSec1/internal/domain"
	"github.com/OnishkovValera/CyberSec1/internal/repository"
	"github.com/OnishkovValera/CyberSec1/internal/storage"
)

type memoryUsers struct {
	mu      sync.Mutex
	users   []domain.User
	listErr error
	getErr  error
}

func (m *memoryUsers) Init(context.Context) error { return nil }

func (m *memoryUsers) Create(_ context.Context, user *domain.User) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Login == user.Login {
			return 0, repository.ErrAlreadyExists
		}
	}
	user.ID = int64(len(m.users) + 1)
	m.users = append(m.users, *user)
	return user.ID, nil
}

func (m *memoryUsers) GetByLogin(_ context.Context, login string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	for _, u := range m.users {
		if u.Login == login {
			found := u
			return &found, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryUsers) List(context.Context) ([]domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.listErr != nil {
		return nil, m.listErr
	}
	return append([]domain.User(nil), m.users...), nil
}

func strPtr(s string) *string { return &s }

func addUser(m *memoryUsers, login, password string, name, surname *string) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	_, _ = m.Create(context.Background(), &domain.User{
		Login:        login,
		PasswordHash: string(hash),
		Name:         name,
		Surname:      surname,
	})
}

type stubIssuer struct {
	subjects []string
	err      error
}

func (s *stubIssuer) Issue(subject string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.subjects = append(s.subjects, subject)
	return "token-for-" + subject, nil
}

type stubVerifier struct {
	principal *domain.Principal
	err       error
}

func (s *stubVerifier) Verify(context.Context, string, string) (*domain.Principal, error) {
	return s.principal, s.err
}

type memoryStore struct {
	objects map[string][]byte
	putErr  error
	listed  []storage.ObjectInfo
}

func (m *memoryStore) PutObject(_ context.Context, body io.Reader, opts storage.PutOptions) (string, error) {
	if m.putErr != nil {
		return "", m.putErr
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	if m.objects == nil {
		m.objects = make(map[string][]byte)
	}
	m.objects[opts.Key] = data
	return "mem://" + opts.Bucket + "/" + opts.Key, nil
}

func (m *memoryStore) ListObjects(context.Context, string, string) ([]storage.ObjectInfo, error) {
	if m.listed == nil {
		return nil, errors.New("nothing listed")
	}
	return m.listed, nil
}
