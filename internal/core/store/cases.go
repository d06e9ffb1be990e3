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

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("store: not found")

// CreateCase inserts a new triage case. The ID and timestamps are assigned
// here when unset.
func (s *Store) CreateCase(ctx context.Context, c *core.Case) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if c == nil {
		return errors.New("case is required")
	}
	if strings.TrimSpace(c.CardID) == "" {
		return errors.New("case card_id is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
	if c.Status == "" {
		c.Status = "received"
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO cases (id, card_id, cnpj, razao_social, source, classification, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, c.ID, c.CardID, c.CNPJ, c.RazaoSocial, string(c.Source), string(c.Classification), c.Status, c.CreatedAt.Unix(), c.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert case: %w", err)
	}

	return nil
}

// GetCaseByCardID returns the case bound to a Pipefy card, or ErrNotFound.
func (s *Store) GetCaseByCardID(ctx context.Context, cardID string) (*core.Case, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, card_id, cnpj, razao_social, source, classification, status, created_at, updated_at
		FROM cases
		WHERE card_id = ?
	`, strings.TrimSpace(cardID))

	return scanCase(row)
}

// GetCase returns a case by ID, or ErrNotFound.
func (s *Store) GetCase(ctx context.Context, id string) (*core.Case, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, card_id, cnpj, razao_social, source, classification, status, created_at, updated_at
		FROM cases
		WHERE id = ?
	`, strings.TrimSpace(id))

	return scanCase(row)
}

// UpdateCaseOutcome records the resolution result and triage classification.
func (s *Store) UpdateCaseOutcome(ctx context.Context, id string, razaoSocial string, source core.Source, classification core.Classification, status string) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	result, err := s.DB.ExecContext(ctx, `
		UPDATE cases
		SET razao_social = ?, source = ?, classification = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, razaoSocial, string(source), string(classification), status, time.Now().UTC().Unix(), strings.TrimSpace(id))
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update case: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// ListCases returns cases ordered by creation time, newest first.
func (s *Store) ListCases(ctx context.Context, limit int) ([]core.Case, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, card_id, cnpj, razao_social, source, classification, status, created_at, updated_at
		FROM cases
		ORDER BY created_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var cases []core.Case
	for rows.Next() {
		c, err := scanCaseRow(rows)
		if err != nil {
			return nil, err
		}
		cases = append(cases, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}

	return cases, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCase(row *sql.Row) (*core.Case, error) {
	c, err := scanCaseRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

func scanCaseRow(row rowScanner) (*core.Case, error) {
	var (
		c              core.Case
		razaoSocial    sql.NullString
		source         sql.NullString
		classification sql.NullString
		createdAt      int64
		updatedAt      int64
	)
	if err := row.Scan(&c.ID, &c.CardID, &c.CNPJ, &razaoSocial, &source, &classification, &c.Status, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("scan case: %w", err)
	}

	c.RazaoSocial = razaoSocial.String
	c.Source = core.Source(source.String)
	c.Classification = core.Classification(classification.String)
	c.CreatedAt = time.Unix(createdAt, 0).UTC()
	c.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	return &c, nil
}
