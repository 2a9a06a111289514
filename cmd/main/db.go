package main

import (
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/mkarres/tagkit/pkg/tagstore"
)

// openDatabase opens the configured database and reports which placeholder
// dialect the template store should use. SQLite goes through openSQLite so
// the driver can be swapped with the cgo_sqlite build tag.
func openDatabase(cfg *ServerConfig) (*sql.DB, tagstore.Dialect, error) {
	switch cfg.DatabaseDriver {
	case "postgres":
		db, err := sql.Open("postgres", cfg.DatabaseDSN)
		if err != nil {
			return nil, "", err
		}
		return db, tagstore.DialectPostgres, nil
	case "sqlite", "":
		db, err := openSQLite(cfg.DatabaseDSN)
		if err != nil {
			return nil, "", err
		}
		return db, tagstore.DialectSQLite, nil
	default:
		return nil, "", fmt.Errorf("unknown database driver %q", cfg.DatabaseDriver)
	}
}
