package store

import (
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed schema_postgres.sql
var postgresSchema string

// NewPostgres connects through the pgx database/sql driver.
func NewPostgres(dsn string) (*SQL, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres: verify connection: %w", err)
	}
	return &SQL{db: db, numbered: true}, nil
}

// Migrate applies the embedded schema. It is idempotent.
func (s *SQL) Migrate() error {
	if !s.numbered {
		return s.migrate(sqliteSchema)
	}
	return s.migrate(postgresSchema)
}
