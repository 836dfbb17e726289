package library

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
)

// SQLiteStore persists snapshots in a SQLite database. A save replaces all
// three tables in one transaction, so book status and ledger rows always
// commit together.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the SQLite database at dbPath and applies
// schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// Ensure directory exists so first-run succeeds.
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_foreign_keys=1", dbPath)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := applyMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the DB.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// ---------------------------------------------------------------------------
// Schema migration
// ---------------------------------------------------------------------------

const schemaVersion = 1

func applyMigrations(db *sql.DB) error {
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		return fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS meta (key TEXT PRIMARY KEY, value TEXT);`); err != nil {
		return err
	}

	var current int
	_ = db.QueryRow(`SELECT value FROM meta WHERE key='schema_version';`).Scan(&current)
	if current >= schemaVersion {
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS books (
            position INTEGER NOT NULL,
            isbn TEXT PRIMARY KEY,
            title TEXT NOT NULL,
            author TEXT NOT NULL,
            publisher TEXT NOT NULL,
            year INTEGER NOT NULL,
            status TEXT NOT NULL DEFAULT 'Available',
            reserved_by TEXT NOT NULL DEFAULT '',
            reservation_expiry INTEGER NOT NULL DEFAULT 0
        );`,
		`CREATE TABLE IF NOT EXISTS users (
            position INTEGER NOT NULL,
            id TEXT PRIMARY KEY,
            name TEXT NOT NULL,
            password TEXT NOT NULL,
            role TEXT NOT NULL,
            fine TEXT NOT NULL DEFAULT '0'
        );`,
		`CREATE TABLE IF NOT EXISTS ledger (
            position INTEGER PRIMARY KEY,
            user_id TEXT NOT NULL,
            isbn TEXT NOT NULL,
            issued_at INTEGER NOT NULL
        );`,
		`INSERT INTO meta(key,value) VALUES('schema_version',?)
            ON CONFLICT(key) DO UPDATE SET value=excluded.value;`,
	}

	for _, stmt := range stmts {
		if _, err := tx.Exec(stmt, schemaVersion); err != nil {
			return fmt.Errorf("apply migration: %w", err)
		}
	}

	return tx.Commit()
}

// ---------------------------------------------------------------------------
// Snapshot load/save
// ---------------------------------------------------------------------------

// Load reads all three tables in their saved order.
func (s *SQLiteStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	rows, err := s.db.QueryContext(ctx, `SELECT title,author,publisher,year,isbn,status,reserved_by,reservation_expiry FROM books ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			b       Book
			status  string
			expires int64
		)
		if err := rows.Scan(&b.Title, &b.Author, &b.Publisher, &b.Year, &b.ISBN, &status, &b.ReservedBy, &expires); err != nil {
			return snap, err
		}
		if b.Status, err = ParseBookStatus(status); err != nil {
			return snap, err
		}
		b.ReservationExpiry = epochTime(expires)
		snap.Books = append(snap.Books, b)
	}
	if err := rows.Err(); err != nil {
		return snap, err
	}

	userRows, err := s.db.QueryContext(ctx, `SELECT id,name,password,role,fine FROM users ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("query users: %w", err)
	}
	defer userRows.Close()
	for userRows.Next() {
		var (
			r          UserRecord
			role, fine string
		)
		if err := userRows.Scan(&r.ID, &r.Name, &r.Password, &role, &fine); err != nil {
			return snap, err
		}
		if r.Role, err = ParseRole(role); err != nil {
			continue
		}
		if r.Fine, err = decimal.NewFromString(fine); err != nil {
			return snap, fmt.Errorf("user %s fine %q: %w", r.ID, fine, err)
		}
		snap.Users = append(snap.Users, r)
	}
	if err := userRows.Err(); err != nil {
		return snap, err
	}

	ledgerRows, err := s.db.QueryContext(ctx, `SELECT user_id,isbn,issued_at FROM ledger ORDER BY position`)
	if err != nil {
		return snap, fmt.Errorf("query ledger: %w", err)
	}
	defer ledgerRows.Close()
	for ledgerRows.Next() {
		var (
			e  LedgerEntry
			at int64
		)
		if err := ledgerRows.Scan(&e.UserID, &e.ISBN, &at); err != nil {
			return snap, err
		}
		e.IssuedAt = epochTime(at)
		snap.Ledger = append(snap.Ledger, e)
	}
	return snap, ledgerRows.Err()
}

// Save replaces the stored snapshot in a single transaction.
func (s *SQLiteStore) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"books", "users", "ledger"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	bookStmt, err := tx.PrepareContext(ctx, `INSERT INTO books(position,isbn,title,author,publisher,year,status,reserved_by,reservation_expiry) VALUES(?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer bookStmt.Close()
	for i, b := range snap.Books {
		if _, err := bookStmt.ExecContext(ctx, i, b.ISBN, b.Title, b.Author, b.Publisher, b.Year, string(b.Status), b.ReservedBy, epochSeconds(b.ReservationExpiry)); err != nil {
			return fmt.Errorf("insert book %s: %w", b.ISBN, err)
		}
	}

	userStmt, err := tx.PrepareContext(ctx, `INSERT INTO users(position,id,name,password,role,fine) VALUES(?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer userStmt.Close()
	for i, u := range snap.Users {
		if _, err := userStmt.ExecContext(ctx, i, u.ID, u.Name, u.Password, u.Role.String(), u.Fine.String()); err != nil {
			return fmt.Errorf("insert user %s: %w", u.ID, err)
		}
	}

	ledgerStmt, err := tx.PrepareContext(ctx, `INSERT INTO ledger(position,user_id,isbn,issued_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer ledgerStmt.Close()
	for i, e := range snap.Ledger {
		if _, err := ledgerStmt.ExecContext(ctx, i, e.UserID, e.ISBN, epochSeconds(e.IssuedAt)); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}
	}

	return tx.Commit()
}

func epochSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func epochTime(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0)
}
