package store

import (
	"context"
	"errors"

	"stockdesk/backend/internal/domain"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository persists the backend's own state: draft orders under
// composition, audit entries, and auth accounts. Warehouse and order data
// proper lives upstream and is never stored here.
type Repository interface {
	CreateDraft(ctx context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error)
	GetDraft(ctx context.Context, draftID string) (*domain.DraftOrder, error)
	UpdateDraft(ctx context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error)
	DeleteDraft(ctx context.Context, draftID string) error
	ListDrafts(ctx context.Context, createdBy string) ([]domain.DraftOrder, error)
	CreateAuditLog(ctx context.Context, entry domain.AuditLog) error
	ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
