package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/andriwardana/storefront/backend/internal/repository"
	"github.com/andriwardana/storefront/backend/internal/secevent"
)

// In-memory fakes for the repository interfaces. They reproduce the
// contracts the real PostgreSQL implementations provide, including the
// single-unused-token rule for reset tokens.

type mockUserRepository struct {
	mu    sync.Mutex
	users map[uuid.UUID]*repository.User
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[uuid.UUID]*repository.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *repository.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailAlreadyExists
		}
	}
	user.ID = uuid.New()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) GetActiveByEmail(ctx context.Context, email string) (*repository.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) && u.IsActive && !u.IsDeleted {
			copied := *u
			return &copied, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) EmailExists(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockUserRepository) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u, ok := m.users[id]; ok {
		now := time.Now().UTC()
		u.LastLoginAt = &now
	}
	return nil
}

type failedAttempt struct {
	email string
	at    time.Time
}

type mockSessionRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*repository.Session
	failed   []failedAttempt
}

func newMockSessionRepository() *mockSessionRepository {
	return &mockSessionRepository{sessions: make(map[uuid.UUID]*repository.Session)}
}

func (m *mockSessionRepository) Create(ctx context.Context, session *repository.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	session.ID = uuid.New()
	session.IsActive = true
	session.LoginAt = time.Now().UTC()
	session.LastActivityAt = session.LoginAt
	stored := *session
	m.sessions[session.ID] = &stored
	return nil
}

func (m *mockSessionRepository) GetActiveByToken(ctx context.Context, token string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token && s.IsActive {
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id uuid.UUID) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockSessionRepository) DeactivateByID(ctx context.Context, id uuid.UUID, reason string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	now := time.Now().UTC()
	s.IsActive = false
	s.LoggedOutAt = &now
	s.LogoutReason = &reason
	return true, nil
}

func (m *mockSessionRepository) DeactivateByToken(ctx context.Context, token string, reason string) (*repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.sessions {
		if s.Token == token && s.IsActive {
			now := time.Now().UTC()
			s.IsActive = false
			s.LoggedOutAt = &now
			s.LogoutReason = &reason
			copied := *s
			return &copied, nil
		}
	}
	return nil, repository.ErrSessionNotFound
}

func (m *mockSessionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]repository.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.Session
	for _, s := range m.sessions {
		if s.UserID == userID {
			out = append(out, *s)
		}
	}
	// Newest login first, matching the SQL ORDER BY
	for i := 0; i < len(out); i++ {
		for j := i + 1; j < len(out); j++ {
			if out[j].LoginAt.After(out[i].LoginAt) {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (m *mockSessionRepository) TouchActivity(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[id]; ok {
		s.LastActivityAt = time.Now().UTC()
	}
	return nil
}

func (m *mockSessionRepository) CountFailedAttempts(ctx context.Context, email string, since time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, a := range m.failed {
		if a.email == email && a.at.After(since) {
			count++
		}
	}
	return count, nil
}

func (m *mockSessionRepository) RecordFailedAttempt(ctx context.Context, email string, ip string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failed = append(m.failed, failedAttempt{email: email, at: time.Now().UTC()})
	return nil
}

func (m *mockSessionRepository) CleanupOldFailedAttempts(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

type mockResetTokenRepository struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*repository.PasswordResetToken
	users  *mockUserRepository
}

func newMockResetTokenRepository(users *mockUserRepository) *mockResetTokenRepository {
	return &mockResetTokenRepository{
		tokens: make(map[uuid.UUID]*repository.PasswordResetToken),
		users:  users,
	}
}

func (m *mockResetTokenRepository) Issue(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*repository.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	// Issuing invalidates every unused token for the user
	for _, t := range m.tokens {
		if t.UserID == userID && !t.Used {
			t.Used = true
		}
	}
	prt := &repository.PasswordResetToken{
		ID:        uuid.New(),
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now().UTC(),
	}
	m.tokens[prt.ID] = prt
	copied := *prt
	return &copied, nil
}

func (m *mockResetTokenRepository) GetByToken(ctx context.Context, token string) (*repository.PasswordResetToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Token == token {
			copied := *t
			return &copied, nil
		}
	}
	return nil, repository.ErrResetTokenNotFound
}

func (m *mockResetTokenRepository) Consume(ctx context.Context, tokenID uuid.UUID, userID uuid.UUID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tokens[tokenID]
	if !ok || t.Used {
		return repository.ErrResetTokenConsumed
	}
	t.Used = true

	m.users.mu.Lock()
	if u, ok := m.users.users[userID]; ok {
		u.PasswordHash = passwordHash
	}
	m.users.mu.Unlock()
	return nil
}

// unusedCount reports how many unused tokens exist for the user
func (m *mockResetTokenRepository) unusedCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, t := range m.tokens {
		if t.UserID == userID && !t.Used {
			count++
		}
	}
	return count
}

type mockRecorder struct {
	mu     sync.Mutex
	events []secevent.Event
}

func (m *mockRecorder) Record(ctx context.Context, event secevent.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
}

// ListByUser serves the activity view off the recorded events, newest first
func (m *mockRecorder) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]repository.SecurityEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []repository.SecurityEvent
	for i := len(m.events) - 1; i >= 0 && len(out) < limit; i-- {
		e := m.events[i]
		if e.UserID == nil || *e.UserID != userID {
			continue
		}
		row := repository.SecurityEvent{
			UserID:      e.UserID,
			SessionID:   e.SessionID,
			EventType:   e.Type,
			Severity:    e.Severity,
			Description: e.Description,
			CreatedAt:   time.Now().UTC(),
		}
		if e.Request.IPAddress != "" {
			ip := e.Request.IPAddress
			row.IPAddress = &ip
		}
		out = append(out, row)
	}
	return out, nil
}

func (m *mockRecorder) countByType(eventType string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, e := range m.events {
		if e.Type == eventType {
			count++
		}
	}
	return count
}

// testService wires a Service over fresh in-memory fakes
func testService() (*Service, *mockUserRepository, *mockSessionRepository, *mockResetTokenRepository, *mockRecorder) {
	users := newMockUserRepository()
	sessions := newMockSessionRepository()
	resets := newMockResetTokenRepository(users)
	events := &mockRecorder{}
	svc := NewService(users, sessions, resets, events, events, nil)
	return svc, users, sessions, resets, events
}

// testRequestContext is a canned client context for event recording
func testRequestContext() secevent.RequestContext {
	return secevent.RequestContext{
		IPAddress: "203.0.113.7",
		UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) Chrome/120.0",
	}
}
