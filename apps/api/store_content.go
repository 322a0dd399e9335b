package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Tritern-Software-private-limited/exeract-official-website/libs/sitecontent"
)

// GetContent returns the landing document. Timestamps live in their own
// columns so the jsonb document never carries them.
func (s *postgresStore) GetContent(ctx context.Context) (sitecontent.ContentDocument, error) {
	var doc sitecontent.ContentDocument
	db, err := s.conn(ctx)
	if err != nil {
		return doc, err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	var raw []byte
	err = db.QueryRowContext(ctx, `SELECT document FROM site_content WHERE id = $1`, sitecontent.LandingID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return doc, errNotFound
	}
	if err != nil {
		return doc, fmt.Errorf("get content: %w", err)
	}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return doc, fmt.Errorf("decode content: %w", err)
	}
	return doc, nil
}

// SaveContent upserts the landing row. The jsonb || operator replaces only
// the top-level keys present in patch.
func (s *postgresStore) SaveContent(ctx context.Context, patch sitecontent.ContentDocument) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}
	ctx, cancel := s.opContext(ctx)
	defer cancel()

	raw, err := json.Marshal(patch.Fields())
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}
	now := time.Now().UTC()
	_, err = db.ExecContext(ctx, `
		INSERT INTO site_content (id, document, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $3)
		ON CONFLICT (id) DO UPDATE SET
			document = site_content.document || EXCLUDED.document,
			updated_at = EXCLUDED.updated_at
	`, sitecontent.LandingID, string(raw), now)
	if err != nil {
		return fmt.Errorf("save content: %w", err)
	}
	return nil
}
