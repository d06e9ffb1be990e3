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

// AddDocument registers a stored file against a case.
func (s *Store) AddDocument(ctx context.Context, d *core.Document) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if d == nil {
		return errors.New("document is required")
	}
	if strings.TrimSpace(d.CaseID) == "" {
		return errors.New("document case_id is required")
	}
	if strings.TrimSpace(d.StoragePath) == "" {
		return errors.New("document storage_path is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}

	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (id, case_id, name, tag, content_type, size_bytes, storage_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, d.ID, d.CaseID, d.Name, d.Tag, d.ContentType, d.SizeBytes, d.StoragePath, d.CreatedAt.Unix())
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}

	return nil
}

// ListDocuments returns the documents attached to a case, oldest first.
func (s *Store) ListDocuments(ctx context.Context, caseID string) ([]core.Document, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, case_id, name, tag, content_type, size_bytes, storage_path, created_at
		FROM documents
		WHERE case_id = ?
		ORDER BY created_at ASC
	`, strings.TrimSpace(caseID))
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close() // nolint:errcheck // best-effort cleanup on SQL rows

	var docs []core.Document
	for rows.Next() {
		var (
			d           core.Document
			tag         sql.NullString
			contentType sql.NullString
			createdAt   int64
		)
		if err := rows.Scan(&d.ID, &d.CaseID, &d.Name, &tag, &contentType, &d.SizeBytes, &d.StoragePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		d.Tag = tag.String
		d.ContentType = contentType.String
		d.CreatedAt = time.Unix(createdAt, 0).UTC()
		docs = append(docs, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}

	return docs, nil
}
