package tagstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// ErrNotFound is returned when a template name is not in the store.
var ErrNotFound = errors.New("tagstore: template not found")

// Dialect selects the SQL placeholder style of the underlying database.
type Dialect string

const (
	// DialectSQLite uses ? placeholders (mattn/go-sqlite3, modernc.org/sqlite).
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres uses $n placeholders (lib/pq).
	DialectPostgres Dialect = "postgres"
)

// rebind rewrites ? placeholders into the dialect's native style. The stored
// queries contain no literal question marks, so a plain scan is enough.
func (d Dialect) rebind(query string) string {
	if d != DialectPostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query))
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// StoredTemplate is one named template source with its last-modified time.
type StoredTemplate struct {
	Name      string    `json:"name"`
	Source    string    `json:"source"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SetupSchema creates the template table if it does not exist. It is
// idempotent and safe to call on an already-initialized database. The schema
// is identical for SQLite and PostgreSQL.
func SetupSchema(db *sql.DB) error {
	const schema = `
CREATE TABLE IF NOT EXISTS tag_templates (
    template_name TEXT PRIMARY KEY,
    template_source TEXT NOT NULL,
    updated_at TEXT NOT NULL
);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("could not create template schema: %w", err)
	}
	return nil
}

// Store provides named template sources from a SQL database. It holds the
// database connection and prepared statements; all methods are safe for
// concurrent use.
type Store struct {
	db         *sql.DB
	dialect    Dialect
	logger     *slog.Logger
	stmtGet    *sql.Stmt
	stmtList   *sql.Stmt
	stmtUpsert *sql.Stmt
	stmtDelete *sql.Stmt
}

// NewStore creates a Store on an initialized database (see SetupSchema). It
// pre-compiles all statements, returning an error if any preparation fails.
// An empty dialect means SQLite.
func NewStore(db *sql.DB, dialect Dialect) (*Store, error) {
	if dialect == "" {
		dialect = DialectSQLite
	}

	stmtGet, err := db.Prepare(dialect.rebind(`SELECT template_source, updated_at FROM tag_templates WHERE template_name = ?;`))
	if err != nil {
		return nil, err
	}

	stmtList, err := db.Prepare(`SELECT template_name, template_source, updated_at FROM tag_templates ORDER BY template_name;`)
	if err != nil {
		return nil, err
	}

	stmtUpsert, err := db.Prepare(dialect.rebind(`INSERT INTO tag_templates (template_name, template_source, updated_at) VALUES (?, ?, ?) ON CONFLICT(template_name) DO UPDATE SET template_source = excluded.template_source, updated_at = excluded.updated_at;`))
	if err != nil {
		return nil, err
	}

	stmtDelete, err := db.Prepare(dialect.rebind(`DELETE FROM tag_templates WHERE template_name = ?;`))
	if err != nil {
		return nil, err
	}

	return &Store{
		db:         db,
		dialect:    dialect,
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
		stmtGet:    stmtGet,
		stmtList:   stmtList,
		stmtUpsert: stmtUpsert,
		stmtDelete: stmtDelete,
	}, nil
}

// Close releases all prepared statements held by the Store. It should be
// called when the Store is no longer needed to free up database resources.
func (s *Store) Close() {
	_ = s.stmtGet.Close()
	_ = s.stmtList.Close()
	_ = s.stmtUpsert.Close()
	_ = s.stmtDelete.Close()
}

// SetLogger sets the logger for the Store. By default, all logs are discarded.
func (s *Store) SetLogger(logger *slog.Logger) {
	if logger != nil {
		s.logger = logger
	}
}

// Put inserts or replaces a template source under the given name.
func (s *Store) Put(ctx context.Context, name, source string) error {
	if name == "" {
		return errors.New("tagstore: template name must not be empty")
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	if _, err := s.stmtUpsert.ExecContext(ctx, name, source, now); err != nil {
		return fmt.Errorf("failed to store template %q: %w", name, err)
	}
	s.logger.InfoContext(ctx, "Template stored",
		slog.String("template_name", name),
		slog.Int("source_bytes", len(source)),
	)
	return nil
}

// Get retrieves a template by name. Missing names return ErrNotFound.
func (s *Store) Get(ctx context.Context, name string) (StoredTemplate, error) {
	var source, updated string
	err := s.stmtGet.QueryRowContext(ctx, name).Scan(&source, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return StoredTemplate{}, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return StoredTemplate{}, fmt.Errorf("failed to load template %q: %w", name, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updated)
	if err != nil {
		return StoredTemplate{}, fmt.Errorf("corrupt updated_at for template %q: %w", name, err)
	}
	return StoredTemplate{Name: name, Source: source, UpdatedAt: updatedAt}, nil
}

// Delete removes a template by name. Missing names return ErrNotFound.
func (s *Store) Delete(ctx context.Context, name string) error {
	res, err := s.stmtDelete.ExecContext(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to delete template %q: %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	s.logger.InfoContext(ctx, "Template deleted", slog.String("template_name", name))
	return nil
}

// List returns all stored templates ordered by name.
func (s *Store) List(ctx context.Context) ([]StoredTemplate, error) {
	rows, err := s.stmtList.QueryContext(ctx)
	if err != nil {
		return nil, err
	}
	defer func(rows *sql.Rows) {
		_ = rows.Close()
	}(rows)

	var templates []StoredTemplate
	for rows.Next() {
		var tpl StoredTemplate
		var updated string
		if err = rows.Scan(&tpl.Name, &tpl.Source, &updated); err != nil {
			return nil, err
		}
		if tpl.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, fmt.Errorf("corrupt updated_at for template %q: %w", tpl.Name, err)
		}
		templates = append(templates, tpl)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return templates, nil
}
