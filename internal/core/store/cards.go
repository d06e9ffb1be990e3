package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/triagemhq/triagemd/internal/core"
)

// SaveCard persists the latest resolved company record for a CNPJ. Synthetic
// fallback records are skipped so a later real result can take their place.
func (s *Store) SaveCard(ctx context.Context, record *core.CompanyRecord) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}
	if record == nil || strings.TrimSpace(record.CNPJ) == "" {
		return errors.New("company record with cnpj is required")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	if record.IsSynthetic() {
		return nil
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode company record: %w", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO cnpj_cards (cnpj, record_json, source, consulted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(cnpj) DO UPDATE SET
			record_json = excluded.record_json,
			source = excluded.source,
			consulted_at = excluded.consulted_at
	`, record.CNPJ, string(payload), string(record.Source), record.ConsultedAt.UTC().Unix())
	if err != nil {
		return fmt.Errorf("store company record: %w", err)
	}

	return nil
}

// GetCard returns the last persisted record for a CNPJ, or nil when absent.
func (s *Store) GetCard(ctx context.Context, cnpj string) (*core.CompanyRecord, error) {
	if s == nil || s.DB == nil {
		return nil, errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	var (
		recordJSON  string
		consultedAt int64
	)
	row := s.DB.QueryRowContext(ctx, `
		SELECT record_json, consulted_at
		FROM cnpj_cards
		WHERE cnpj = ?
	`, strings.TrimSpace(cnpj))

	if err := row.Scan(&recordJSON, &consultedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("fetch company record: %w", err)
	}

	var record core.CompanyRecord
	if err := json.Unmarshal([]byte(recordJSON), &record); err != nil {
		return nil, fmt.Errorf("decode company record: %w", err)
	}

	if record.ConsultedAt.IsZero() {
		record.ConsultedAt = time.Unix(consultedAt, 0).UTC()
	}

	return &record, nil
}
