package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/triagemhq/triagemd/internal/core"
)

// ErrDuplicatePhone is returned when a recipient's phone number is already
// registered.
var ErrDuplicatePhone = errors.New("store: phone number already registered")

// CreateRecipient inserts a new notification recipient.
func (s *Store) CreateRecipient(ctx context.Context, r *core.Recipient) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if r == nil {
		return errors.New("recipient is required")
	}
	if strings.TrimSpace(r.PhoneNumber) == "" {
		return errors.New("recipient phone_number is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = now
	}
	r.UpdatedAt = now

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO recipients (id, name, phone_number, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, r.ID, r.Name, r.PhoneNumber, r.Role, boolToInt(r.Active), r.CreatedAt.Unix(), r.UpdatedAt.Unix())
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("insert recipient: %w", err)
	}

	return nil
}

// GetRecipient returns a recipient by ID, or ErrNotFound.
func (s *Store) GetRecipient(ctx context.Context, id string) (*core.Recipient, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, phone_number, role, active, created_at, updated_at
		FROM recipients
		WHERE id = ?
	`, strings.TrimSpace(id))

	r, err := scanRecipient(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return r, nil
}

// ListRecipients returns recipients, optionally only active ones.
func (s *Store) ListRecipients(ctx context.Context, activeOnly bool) ([]core.Recipient, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	query := `
		SELECT id, name, phone_number, role, active, created_at, updated_at
		FROM recipients
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY created_at ASC"

	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var recipients []core.Recipient
	for rows.Next() {
		r, err := scanRecipient(rows)
		if err != nil {
			return nil, err
		}
		recipients = append(recipients, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list recipients: %w", err)
	}

	return recipients, nil
}

// UpdateRecipient modifies an existing recipient in place.
func (s *Store) UpdateRecipient(ctx context.Context, r *core.Recipient) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if r == nil || strings.TrimSpace(r.ID) == "" {
		return errors.New("recipient id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	r.UpdatedAt = time.Now().UTC()

	result, err := s.DB.ExecContext(ctx, `
		UPDATE recipients
		SET name = ?, phone_number = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?
	`, r.Name, r.PhoneNumber, r.Role, boolToInt(r.Active), r.UpdatedAt.Unix(), r.ID)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePhone
		}
		return fmt.Errorf("update recipient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// DeleteRecipient removes a recipient by ID.
func (s *Store) DeleteRecipient(ctx context.Context, id string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `DELETE FROM recipients WHERE id = ?`, strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete recipient: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func scanRecipient(row rowScanner) (*core.Recipient, error) {
	var (
		r         core.Recipient
		role      sql.NullString
		active    int
		createdAt int64
		updatedAt int64
	)
	if err := row.Scan(&r.ID, &r.Name, &r.PhoneNumber, &role, &active, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan recipient: %w", err)
	}

	r.Role = role.String
	r.Active = active != 0
	r.CreatedAt = time.Unix(createdAt, 0).UTC()
	r.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &r, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
