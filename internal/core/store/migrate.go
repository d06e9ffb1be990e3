package store

import (
	"context"
	"errors"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		card_id TEXT NOT NULL,
		cnpj TEXT NOT NULL,
		razao_social TEXT,
		source TEXT,
		classification TEXT,
		status TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(card_id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_cases_cnpj ON cases(cnpj);`,
	`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status);`,
	`CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		name TEXT NOT NULL,
		tag TEXT,
		content_type TEXT,
		size_bytes INTEGER NOT NULL DEFAULT 0,
		storage_path TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY(case_id) REFERENCES cases(id)
	);`,
	`CREATE INDEX IF NOT EXISTS idx_documents_case ON documents(case_id);`,
	`CREATE TABLE IF NOT EXISTS recipients (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		phone_number TEXT NOT NULL,
		role TEXT,
		active INTEGER NOT NULL DEFAULT 1,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		UNIQUE(phone_number)
	);`,
	`CREATE TABLE IF NOT EXISTS cnpj_cards (
		cnpj TEXT PRIMARY KEY,
		record_json TEXT NOT NULL,
		source TEXT NOT NULL,
		consulted_at INTEGER NOT NULL
	);`,
}

// Migrate ensures the required database tables exist.
func (s *Store) Migrate(ctx context.Context) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	if ctx == nil {
		ctx = context.Background()
	}

	for _, stmt := range schemaStatements {
		if _, err := s.DB.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store migration failed: %w", err)
		}
	}

	return nil
}
