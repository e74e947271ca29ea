// Package migrate applies the embedded goose migrations.
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/and161185/taskboard/migrations"
)

// withDB opens a database/sql handle over pgx, configures goose and runs fn.
func withDB(dsn string, fn func(db *sql.DB) error) error {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	goose.SetBaseFS(migrations.FS)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db)
}

// Up runs all pending migrations.
func Up(ctx context.Context, dsn string) error {
	return withDB(dsn, func(db *sql.DB) error {
		return goose.UpContext(ctx, db, ".")
	})
}

// Version reports the applied schema version.
func Version(ctx context.Context, dsn string) (int64, error) {
	var v int64
	err := withDB(dsn, func(db *sql.DB) (err error) {
		v, err = goose.GetDBVersionContext(ctx, db)
		return err
	})
	return v, err
}
