package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stockdesk/backend/internal/domain"
	"stockdesk/backend/internal/store"
	"stockdesk/backend/internal/xid"
)

type Store struct {
	mu              sync.RWMutex
	draftsByID      map[string]domain.DraftOrder
	auditLogs       []domain.AuditLog
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial in-memory user accounts for dev/demo mode.
// Credentials are read from SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD
// environment variables. If unset, hardcoded dev defaults are used with a
// warning printed to stdout. These credentials are never used in production
// (the backend uses PostgreSQL when DATABASE_URL is set).
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	salesPwd := envOr("SEED_SALES_PASSWORD", "sales123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_SALES_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_SALES_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"sales", salesPwd, "sales"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func NewSeeded() *Store {
	return &Store{
		draftsByID:      make(map[string]domain.DraftOrder),
		auditLogs:       make([]domain.AuditLog, 0, 128),
		usersByUsername: seedUsers(),
	}
}

func (s *Store) CreateDraft(_ context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if draft.CreatedBy == "" {
		return nil, store.ErrInvalidInput
	}
	if draft.ID == "" {
		draft.ID = xid.New("draft")
	}
	if draft.CreatedAt.IsZero() {
		draft.CreatedAt = time.Now().UTC()
	}
	draft.UpdatedAt = draft.CreatedAt

	s.draftsByID[draft.ID] = cloneDraft(draft)
	created := cloneDraft(draft)
	return &created, nil
}

func (s *Store) GetDraft(_ context.Context, draftID string) (*domain.DraftOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	draft, exists := s.draftsByID[draftID]
	if !exists {
		return nil, store.ErrNotFound
	}
	result := cloneDraft(draft)
	return &result, nil
}

func (s *Store) UpdateDraft(_ context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.draftsByID[draft.ID]
	if !exists {
		return nil, store.ErrNotFound
	}
	draft.CreatedBy = existing.CreatedBy
	draft.CreatedAt = existing.CreatedAt
	draft.UpdatedAt = time.Now().UTC()

	s.draftsByID[draft.ID] = cloneDraft(draft)
	updated := cloneDraft(draft)
	return &updated, nil
}

func (s *Store) DeleteDraft(_ context.Context, draftID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.draftsByID[draftID]; !exists {
		return store.ErrNotFound
	}
	delete(s.draftsByID, draftID)
	return nil
}

func (s *Store) ListDrafts(_ context.Context, createdBy string) ([]domain.DraftOrder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.DraftOrder, 0, len(s.draftsByID))
	for _, draft := range s.draftsByID {
		if createdBy != "" && draft.CreatedBy != createdBy {
			continue
		}
		result = append(result, cloneDraft(draft))
	}
	slices.SortFunc(result, func(a, b domain.DraftOrder) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	return result, nil
}

func (s *Store) CreateAuditLog(_ context.Context, entry domain.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.auditLogs = append(s.auditLogs, entry)
	return nil
}

func (s *Store) ListAuditLogs(_ context.Context, limit int) ([]domain.AuditLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.AuditLog, len(s.auditLogs))
	copy(result, s.auditLogs)
	slices.SortFunc(result, func(a, b domain.AuditLog) int {
		if a.CreatedAt.Equal(b.CreatedAt) {
			return cmpString(b.ID, a.ID)
		}
		if a.CreatedAt.After(b.CreatedAt) {
			return -1
		}
		return 1
	})
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" || strings.TrimSpace(user.Password) == "" {
		return store.ErrInvalidInput
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrInvalidInput
	}
	user.Username = username
	if user.Role == "" {
		user.Role = "sales"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	user.Active = true
	s.usersByUsername[user.Username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, user := range s.usersByUsername {
		users = append(users, user)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return cmpString(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username = strings.ToLower(strings.TrimSpace(username))
	if username == "" || strings.TrimSpace(password) == "" {
		return store.ErrInvalidInput
	}
	user, exists := s.usersByUsername[username]
	if !exists {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}

func cmpString(a string, b string) int {
	if a == b {
		return 0
	}
	if a < b {
		return -1
	}
	return 1
}

func cloneDraft(src domain.DraftOrder) domain.DraftOrder {
	dup := src
	lines := make([]domain.OrderLine, len(src.Lines))
	copy(lines, src.Lines)
	dup.Lines = lines
	return dup
}
