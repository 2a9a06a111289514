package tagstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/natefinch/atomic"
)

// exportedStore is the serializable representation of the whole store,
// used for JSON-based import and export.
type exportedStore struct {
	Templates []StoredTemplate `json:"templates"`
}

// Export serializes every stored template into JSON and writes it to the
// provided io.Writer. This is useful for backups or for transferring
// templates between environments.
func (s *Store) Export(ctx context.Context, w io.Writer) error {
	templates, err := s.List(ctx)
	if err != nil {
		return fmt.Errorf("could not list templates for export: %w", err)
	}

	s.logger.InfoContext(ctx, "Templates exported", slog.Int("templates_exported", len(templates)))

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(exportedStore{Templates: templates})
}

// ExportFile writes the JSON export atomically to the given path, so a crash
// mid-write never leaves a truncated backup behind.
func (s *Store) ExportFile(ctx context.Context, path string) error {
	var buf bytes.Buffer
	if err := s.Export(ctx, &buf); err != nil {
		return err
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	return nil
}

// Import reads a JSON export from an io.Reader and merges it into the store.
// Existing names are overwritten; the exported timestamps are preserved.
// The entire operation is transactional.
func (s *Store) Import(ctx context.Context, r io.Reader) error {
	var imported exportedStore
	if err := json.NewDecoder(r).Decode(&imported); err != nil {
		return fmt.Errorf("failed to decode template export: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction for import: %w", err)
	}
	defer func(tx *sql.Tx) {
		_ = tx.Rollback()
	}(tx)

	stmtUpsert := tx.StmtContext(ctx, s.stmtUpsert)
	for _, tpl := range imported.Templates {
		if tpl.Name == "" {
			return fmt.Errorf("template export contains an entry without a name")
		}
		updated := tpl.UpdatedAt
		if updated.IsZero() {
			updated = time.Now().UTC()
		}
		if _, err = stmtUpsert.ExecContext(ctx, tpl.Name, tpl.Source, updated.Format(time.RFC3339Nano)); err != nil {
			return fmt.Errorf("failed to import template %q: %w", tpl.Name, err)
		}
	}

	s.logger.InfoContext(ctx, "Templates imported", slog.Int("templates_merged", len(imported.Templates)))

	return tx.Commit()
}
