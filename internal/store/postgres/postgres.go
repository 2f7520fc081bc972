package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"stockdesk/backend/internal/domain"
	"stockdesk/backend/internal/store"
	"stockdesk/backend/internal/xid"
)

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, err
	}

	db.SetMaxIdleConns(8)
	db.SetMaxOpenConns(30)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 6*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateDraft(ctx context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error) {
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

	lines, err := json.Marshal(draft.Lines)
	if err != nil {
		return nil, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO draft_orders (id, client_id, lines, tax_rate_percent, created_by, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
	`, draft.ID, draft.ClientID, lines, draft.TaxRatePercent, draft.CreatedBy, draft.CreatedAt, draft.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, store.ErrInvalidInput
		}
		return nil, err
	}

	created := draft
	return &created, nil
}

func (s *Store) GetDraft(ctx context.Context, draftID string) (*domain.DraftOrder, error) {
	var draft domain.DraftOrder
	var lines []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT id, client_id, lines, tax_rate_percent, created_by, created_at, updated_at
		FROM draft_orders
		WHERE id = $1
	`, draftID).Scan(&draft.ID, &draft.ClientID, &lines, &draft.TaxRatePercent, &draft.CreatedBy, &draft.CreatedAt, &draft.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrNotFound
		}
		return nil, err
	}
	if err := json.Unmarshal(lines, &draft.Lines); err != nil {
		return nil, err
	}
	return &draft, nil
}

func (s *Store) UpdateDraft(ctx context.Context, draft domain.DraftOrder) (*domain.DraftOrder, error) {
	lines, err := json.Marshal(draft.Lines)
	if err != nil {
		return nil, err
	}
	draft.UpdatedAt = time.Now().UTC()

	res, err := s.db.ExecContext(ctx, `
		UPDATE draft_orders
		SET client_id = $2, lines = $3, tax_rate_percent = $4, updated_at = $5
		WHERE id = $1
	`, draft.ID, draft.ClientID, lines, draft.TaxRatePercent, draft.UpdatedAt)
	if err != nil {
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, store.ErrNotFound
	}

	updated := draft
	return &updated, nil
}

func (s *Store) DeleteDraft(ctx context.Context, draftID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM draft_orders WHERE id = $1`, draftID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) ListDrafts(ctx context.Context, createdBy string) ([]domain.DraftOrder, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, client_id, lines, tax_rate_percent, created_by, created_at, updated_at
		FROM draft_orders
		WHERE ($1 = '' OR created_by = $1)
		ORDER BY created_at DESC, id DESC
	`, createdBy)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drafts := make([]domain.DraftOrder, 0, 32)
	for rows.Next() {
		var draft domain.DraftOrder
		var lines []byte
		if err := rows.Scan(&draft.ID, &draft.ClientID, &lines, &draft.TaxRatePercent, &draft.CreatedBy, &draft.CreatedAt, &draft.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(lines, &draft.Lines); err != nil {
			return nil, err
		}
		drafts = append(drafts, draft)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return drafts, nil
}

func (s *Store) CreateAuditLog(ctx context.Context, entry domain.AuditLog) error {
	if entry.ID == "" {
		entry.ID = xid.New("audit")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, entry.ID, entry.ActorUsername, entry.ActorRole, entry.Action, entry.EntityType, entry.EntityID, entry.Detail, entry.CreatedAt)
	return err
}

func (s *Store) ListAuditLogs(ctx context.Context, limit int) ([]domain.AuditLog, error) {
	if limit < 1 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, actor_username, actor_role, action, entity_type, entity_id, detail, created_at
		FROM audit_logs
		ORDER BY created_at DESC, id DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]domain.AuditLog, 0, limit)
	for rows.Next() {
		var entry domain.AuditLog
		if err := rows.Scan(&entry.ID, &entry.ActorUsername, &entry.ActorRole, &entry.Action, &entry.EntityType, &entry.EntityID, &entry.Detail, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return entries, nil
}

func (s *Store) CreateUser(ctx context.Context, user domain.UserAccount) error {
	if user.Username == "" || user.Password == "" {
		return store.ErrInvalidInput
	}
	if user.Role == "" {
		user.Role = "sales"
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (username, password, role, active, created_at)
		VALUES (lower($1),$2,$3,true,$4)
	`, user.Username, user.Password, user.Role, user.CreatedAt)
	if err != nil && isUniqueViolation(err) {
		return store.ErrInvalidInput
	}
	return err
}

func (s *Store) ListUsers(ctx context.Context) ([]domain.UserAccount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT username, password, role, active, created_at
		FROM users
		ORDER BY username
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := make([]domain.UserAccount, 0, 16)
	for rows.Next() {
		var user domain.UserAccount
		if err := rows.Scan(&user.Username, &user.Password, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

func (s *Store) UpdateUserPassword(ctx context.Context, username string, password string) error {
	if username == "" || password == "" {
		return store.ErrInvalidInput
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET password = $2 WHERE username = lower($1)
	`, username, password)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
