package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	harvesterrors "github.com/ppiankov/harvester/internal/errors"
	"github.com/ppiankov/harvester/internal/model"
)

// Dialect selects placeholder syntax
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

// rebind rewrites ? placeholders for the dialect.
func (d Dialect) rebind(query string) string {
	if d != Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

const savedAtKey = "saved_at"

// SQLStore keeps one row per record plus a marker row recording the last
// save. A save replaces all rows in one transaction.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
}

// OpenSQLite opens (creating if needed) a sqlite database file.
func OpenSQLite(ctx context.Context, path string) (*SQLStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// One writer at a time keeps sqlite away from SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	s, err := NewSQLStore(ctx, db, SQLite)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// OpenPostgres connects to postgres using a lib/pq DSN.
func OpenPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	s, err := NewSQLStore(ctx, db, Postgres)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewSQLStore wraps db and creates the tables if missing.
func NewSQLStore(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(ctx); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	statements := []string{`
	CREATE TABLE IF NOT EXISTS infosystems (
		position INTEGER NOT NULL,
		id TEXT PRIMARY KEY,
		owner TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		approval TEXT,
		document TEXT NOT NULL
	)`, `
	CREATE TABLE IF NOT EXISTS harvest_meta (
		name TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

// Save replaces the stored collection
func (s *SQLStore) Save(ctx context.Context, records []model.Record) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM infosystems`); err != nil {
		return fmt.Errorf("clear infosystems: %w", err)
	}

	insert := s.dialect.rebind(`INSERT INTO infosystems (position, id, owner, updated_at, approval, document) VALUES (?, ?, ?, ?, ?, ?)`)
	for i, r := range records {
		var approval sql.NullString
		if r.HasApproval() {
			approval = sql.NullString{String: string(r.Approval), Valid: true}
		}
		if _, err = tx.ExecContext(ctx, insert,
			i, r.ID, r.OwnerCode, r.UpdatedAt.Format(model.TimestampLayout), approval, string(r.Payload),
		); err != nil {
			return fmt.Errorf("insert %s: %w", r.ID, err)
		}
	}

	upsert := s.dialect.rebind(`INSERT INTO harvest_meta (name, value) VALUES (?, ?)
		ON CONFLICT (name) DO UPDATE SET value = excluded.value`)
	if _, err = tx.ExecContext(ctx, upsert, savedAtKey, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("update %s: %w", savedAtKey, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Load returns the stored collection in saved order
func (s *SQLStore) Load(ctx context.Context) ([]model.Record, error) {
	var savedAt string
	err := s.db.QueryRowContext(ctx,
		s.dialect.rebind(`SELECT value FROM harvest_meta WHERE name = ?`), savedAtKey,
	).Scan(&savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no saved collection: %w", harvesterrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", savedAtKey, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, updated_at, approval, document FROM infosystems ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query infosystems: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.Record
	for rows.Next() {
		var (
			r        model.Record
			updated  string
			approval sql.NullString
			document string
		)
		if err := rows.Scan(&r.ID, &r.OwnerCode, &updated, &approval, &document); err != nil {
			return nil, fmt.Errorf("scan infosystem: %w", err)
		}
		r.UpdatedAt, err = time.Parse(model.TimestampLayout, updated)
		if err != nil {
			return nil, fmt.Errorf("infosystem %s: %w", r.ID, err)
		}
		if approval.Valid {
			r.Approval = []byte(approval.String)
		}
		r.Payload = []byte(document)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the database
func (s *SQLStore) Close() error {
	return s.db.Close()
}
