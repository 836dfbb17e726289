package library

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	BooksFile  = "books.csv"
	UsersFile  = "users.csv"
	LedgerFile = "issued.csv"
)

// CSVStore keeps each collection in its own comma-delimited file under Dir.
// Missing files load as empty collections and are created on the first save.
type CSVStore struct {
	Dir string
}

// NewCSVStore returns a store rooted at dir, creating the directory if needed.
func NewCSVStore(dir string) (*CSVStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &CSVStore{Dir: dir}, nil
}

func (s *CSVStore) Close() error { return nil }

// Load reads the three files.
func (s *CSVStore) Load(ctx context.Context) (Snapshot, error) {
	var snap Snapshot
	bookRows, err := s.readRows(BooksFile)
	if err != nil {
		return snap, err
	}
	for i, row := range bookRows {
		b, err := parseBookRow(row)
		if err != nil {
			return snap, fmt.Errorf("%s line %d: %w", BooksFile, i+1, err)
		}
		snap.Books = append(snap.Books, b)
	}

	userRows, err := s.readRows(UsersFile)
	if err != nil {
		return snap, err
	}
	for i, row := range userRows {
		// Short rows and unknown roles are skipped.
		if len(row) < 5 {
			continue
		}
		if _, err := ParseRole(field(row, 3)); err != nil {
			continue
		}
		r, err := parseUserRow(row)
		if err != nil {
			return snap, fmt.Errorf("%s line %d: %w", UsersFile, i+1, err)
		}
		snap.Users = append(snap.Users, r)
	}

	ledgerRows, err := s.readRows(LedgerFile)
	if err != nil {
		return snap, err
	}
	for i, row := range ledgerRows {
		e, err := parseLedgerRow(row)
		if err != nil {
			return snap, fmt.Errorf("%s line %d: %w", LedgerFile, i+1, err)
		}
		snap.Ledger = append(snap.Ledger, e)
	}
	return snap, ctx.Err()
}

// Save rewrites the three files. Each file is written to a temporary name
// and renamed into place.
func (s *CSVStore) Save(ctx context.Context, snap Snapshot) error {
	books := make([][]string, 0, len(snap.Books))
	for _, b := range snap.Books {
		books = append(books, []string{
			b.Title, b.Author, b.Publisher, strconv.Itoa(b.Year), b.ISBN,
			string(b.Status), b.ReservedBy, formatEpoch(b.ReservationExpiry),
		})
	}
	users := make([][]string, 0, len(snap.Users))
	for _, u := range snap.Users {
		users = append(users, []string{u.ID, u.Name, u.Password, u.Role.String(), u.Fine.String()})
	}
	ledger := make([][]string, 0, len(snap.Ledger))
	for _, e := range snap.Ledger {
		ledger = append(ledger, []string{e.UserID, e.ISBN, formatEpoch(e.IssuedAt)})
	}

	for _, f := range []struct {
		name string
		rows [][]string
	}{{BooksFile, books}, {UsersFile, users}, {LedgerFile, ledger}} {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := s.writeRows(f.name, f.rows); err != nil {
			return err
		}
	}
	return nil
}

func (s *CSVStore) readRows(name string) ([][]string, error) {
	f, err := os.Open(filepath.Join(s.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(row) == 1 && strings.TrimSpace(row[0]) == "" {
			continue
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (s *CSVStore) writeRows(name string, rows [][]string) error {
	tmp, err := os.CreateTemp(s.Dir, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	defer os.Remove(tmp.Name())

	w := csv.NewWriter(tmp)
	if err := w.WriteAll(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("replace %s: %w", name, err)
	}
	return nil
}

// field returns row[i], or "" when the row is short.
func field(row []string, i int) string {
	if i < len(row) {
		return strings.TrimSpace(row[i])
	}
	return ""
}

func parseBookRow(row []string) (Book, error) {
	if len(row) < 5 {
		return Book{}, fmt.Errorf("want at least 5 fields, got %d", len(row))
	}
	year, err := strconv.Atoi(field(row, 3))
	if err != nil {
		return Book{}, fmt.Errorf("year %q: %w", field(row, 3), err)
	}
	status, err := ParseBookStatus(field(row, 5))
	if err != nil {
		return Book{}, err
	}
	expiry, err := parseEpoch(field(row, 7))
	if err != nil {
		return Book{}, fmt.Errorf("reservation expiry: %w", err)
	}
	return Book{
		Title:             field(row, 0),
		Author:            field(row, 1),
		Publisher:         field(row, 2),
		Year:              year,
		ISBN:              field(row, 4),
		Status:            status,
		ReservedBy:        field(row, 6),
		ReservationExpiry: expiry,
	}, nil
}

func parseUserRow(row []string) (UserRecord, error) {
	role, err := ParseRole(field(row, 3))
	if err != nil {
		return UserRecord{}, err
	}
	fine := decimal.Zero
	if raw := field(row, 4); raw != "" {
		if fine, err = decimal.NewFromString(raw); err != nil {
			return UserRecord{}, fmt.Errorf("fine %q: %w", raw, err)
		}
	}
	return UserRecord{ID: field(row, 0), Name: field(row, 1), Password: field(row, 2), Role: role, Fine: fine}, nil
}

func parseLedgerRow(row []string) (LedgerEntry, error) {
	if len(row) < 3 {
		return LedgerEntry{}, fmt.Errorf("want 3 fields, got %d", len(row))
	}
	at, err := parseEpoch(field(row, 2))
	if err != nil {
		return LedgerEntry{}, fmt.Errorf("issue time: %w", err)
	}
	return LedgerEntry{UserID: field(row, 0), ISBN: field(row, 1), IssuedAt: at}, nil
}

// parseEpoch maps "" and "0" to the zero time.
func parseEpoch(s string) (time.Time, error) {
	if s == "" || s == "0" {
		return time.Time{}, nil
	}
	secs, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(secs, 0), nil
}

func formatEpoch(t time.Time) string {
	return strconv.FormatInt(epochSeconds(t), 10)
}
