package test

import (
	"context"
	"sync"
	"time"

	"github.com/tobanev/session-auth-service/internal/interfaces"
	"github.com/tobanev/session-auth-service/internal/model"
	"github.com/tobanev/session-auth-service/internal/repository"
)

// MockDB implements an in-memory store shared by the mock repositories.
// One mutex guards everything so the multi-step session operations keep the
// same atomicity the Postgres transactions provide.
type MockDB struct {
	mu       sync.Mutex
	users    map[int64]*model.User
	byName   map[string]int64
	byEmail  map[string]int64
	sessions map[string]*model.Session
	nextID   int64
}

func NewMockDB() *MockDB {
	return &MockDB{
		users:    make(map[int64]*model.User),
		byName:   make(map[string]int64),
		byEmail:  make(map[string]int64),
		sessions: make(map[string]*model.Session),
	}
}

// SetLockUntil rewrites a user's lock timestamp, letting tests move the
// lockout window into the past without sleeping through it.
func (db *MockDB) SetLockUntil(username string, t *time.Time) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if id, ok := db.byName[username]; ok {
		db.users[id].LockUntil = t
	}
}

// PasswordHash returns the stored hash for a username, for tests that
// assert a failed reset left the credential untouched.
func (db *MockDB) PasswordHash(username string) string {
	db.mu.Lock()
	defer db.mu.Unlock()
	if id, ok := db.byName[username]; ok {
		return db.users[id].PasswordHash
	}
	return ""
}

// MockUserRepository implements the UserRepository interface in memory
type MockUserRepository struct {
	db *MockDB
}

// Verify that MockUserRepository implements UserRepository interface
var _ interfaces.UserRepository = (*MockUserRepository)(nil)

func NewMockUserRepository(db *MockDB) *MockUserRepository {
	return &MockUserRepository{db: db}
}

func (r *MockUserRepository) CreateUser(ctx context.Context, username, email, passwordHash string, role model.Role) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	if _, exists := r.db.byName[username]; exists {
		return nil, repository.ErrDuplicateUser
	}
	if _, exists := r.db.byEmail[email]; exists {
		return nil, repository.ErrDuplicateUser
	}

	r.db.nextID++
	user := &model.User{
		ID:           r.db.nextID,
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		Role:         role,
		Created:      time.Now(),
	}
	r.db.users[user.ID] = user
	r.db.byName[username] = user.ID
	r.db.byEmail[email] = user.ID

	out := *user
	return &out, nil
}

func (r *MockUserRepository) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	id, ok := r.db.byName[username]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *r.db.users[id]
	return &out, nil
}

func (r *MockUserRepository) GetUserByID(ctx context.Context, id int64) (*model.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (r *MockUserRepository) RecordFailedLogin(ctx context.Context, userID int64, threshold int, lockUntil time.Time) (int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return 0, repository.ErrUserNotFound
	}
	user.LoginAttempts++
	if user.LoginAttempts >= threshold {
		t := lockUntil
		user.LockUntil = &t
	}
	return user.LoginAttempts, nil
}

func (r *MockUserRepository) ResetLoginState(ctx context.Context, userID int64) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.LoginAttempts = 0
	user.LockUntil = nil
	return nil
}

func (r *MockUserRepository) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	user, ok := r.db.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	user.PasswordHash = passwordHash
	return nil
}

// MockSessionRepository implements the SessionRepository interface in
// memory. CreateErr and ReplaceErr let tests inject store failures.
type MockSessionRepository struct {
	db         *MockDB
	CreateErr  error
	ReplaceErr error
}

// Verify that MockSessionRepository implements SessionRepository interface
var _ interfaces.SessionRepository = (*MockSessionRepository)(nil)

func NewMockSessionRepository(db *MockDB) *MockSessionRepository {
	return &MockSessionRepository{db: db}
}

func (r *MockSessionRepository) Create(ctx context.Context, s *model.Session) error {
	if r.CreateErr != nil {
		return r.CreateErr
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	for id, existing := range r.db.sessions {
		if existing.UserID == s.UserID {
			delete(r.db.sessions, id)
		}
	}
	out := *s
	r.db.sessions[s.ID] = &out
	return nil
}

func (r *MockSessionRepository) GetByID(ctx context.Context, id string) (*model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return nil, repository.ErrSessionNotFound
	}
	out := *s
	return &out, nil
}

func (r *MockSessionRepository) ListByUserID(ctx context.Context, userID int64) ([]*model.Session, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var sessions []*model.Session
	now := time.Now()
	for _, s := range r.db.sessions {
		if s.UserID == userID && !s.Expired(now) {
			out := *s
			sessions = append(sessions, &out)
		}
	}
	return sessions, nil
}

func (r *MockSessionRepository) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return repository.ErrSessionNotFound
	}
	delete(r.db.sessions, id)
	return nil
}

func (r *MockSessionRepository) Replace(ctx context.Context, oldID string, s *model.Session) error {
	if r.ReplaceErr != nil {
		return r.ReplaceErr
	}

	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	old, ok := r.db.sessions[oldID]
	if !ok || old.Expired(time.Now()) {
		return repository.ErrSessionNotFound
	}
	delete(r.db.sessions, oldID)
	out := *s
	r.db.sessions[s.ID] = &out
	return nil
}

func (r *MockSessionRepository) UpdatePrincipal(ctx context.Context, id, username string, role model.Role) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	s, ok := r.db.sessions[id]
	if !ok || s.Expired(time.Now()) {
		return repository.ErrSessionNotFound
	}
	s.Username = username
	s.Role = role
	return nil
}

func (r *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()

	var n int64
	now := time.Now()
	for id, s := range r.db.sessions {
		if s.Expired(now) {
			delete(r.db.sessions, id)
			n++
		}
	}
	return n, nil
}
