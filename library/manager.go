package library

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/aarchit22/Library-Management-System-CS253/internal/logging"
)

// LibraryManager is a thin façade over the Engine and a Store, keeping CLI
// code simple. Operations are serialised, and with autosave on every
// successful mutation is persisted before the call returns.
type LibraryManager struct {
	mu       sync.Mutex
	store    Store
	catalog  *Catalog
	engine   *Engine
	log      *slog.Logger
	autoSave bool

	reconcile bool
	seed      bool
	clock     func() time.Time
}

// ManagerOption configures a LibraryManager.
type ManagerOption func(*LibraryManager)

// WithLogger sets the logger; the default discards everything.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *LibraryManager) { m.log = l }
}

// WithAutoSave toggles saving after every successful mutation. When off,
// callers persist with Save, and Close saves pending changes.
func WithAutoSave(on bool) ManagerOption {
	return func(m *LibraryManager) { m.autoSave = on }
}

// WithReconcileLoans rebuilds borrowed sets from the ledger after loading.
func WithReconcileLoans(on bool) ManagerOption {
	return func(m *LibraryManager) { m.reconcile = on }
}

// WithSeed adds the default books and users when they are absent.
func WithSeed(on bool) ManagerOption {
	return func(m *LibraryManager) { m.seed = on }
}

// WithManagerClock replaces time.Now for the engine.
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *LibraryManager) { m.clock = now }
}

// NewLibraryManager loads the catalog from store.
func NewLibraryManager(ctx context.Context, store Store, opts ...ManagerOption) (*LibraryManager, error) {
	m := &LibraryManager{
		store:    store,
		log:      logging.NewNop(),
		autoSave: true,
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	m.catalog, err = CatalogFromSnapshot(snap)
	if err != nil {
		return nil, fmt.Errorf("load library: %w", err)
	}
	m.log.Info("library loaded", "books", len(snap.Books), "users", len(snap.Users), "loans", len(snap.Ledger))

	if m.reconcile {
		m.catalog.ReconcileLoans()
	}
	if m.seed {
		books, users, err := m.catalog.Seed()
		if err != nil {
			return nil, fmt.Errorf("seed library: %w", err)
		}
		if books+users > 0 {
			m.log.Info("seeded defaults", "books", books, "users", users)
		}
	}
	m.engine = NewEngine(m.catalog, WithClock(m.clock))

	if m.catalog.Dirty() {
		if err := m.saveLocked(ctx); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Close saves pending changes and closes the store.
func (m *LibraryManager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var saveErr error
	if m.catalog.Dirty() {
		saveErr = m.saveLocked(context.Background())
	}
	if err := m.store.Close(); err != nil {
		return err
	}
	return saveErr
}

// Save persists the current state if it changed.
func (m *LibraryManager) Save(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.catalog.Dirty() {
		return nil
	}
	return m.saveLocked(ctx)
}

func (m *LibraryManager) saveLocked(ctx context.Context) error {
	if err := m.store.Save(ctx, m.catalog.Snapshot()); err != nil {
		m.log.Error("save failed", "error", err)
		return fmt.Errorf("save library: %w", err)
	}
	m.catalog.MarkClean()
	return nil
}

// UnsavedError reports an operation that was applied in memory but could not
// be persisted. The change stays pending; the next Save or Close retries it.
type UnsavedError struct {
	Op  string
	Err error
}

func (e *UnsavedError) Error() string {
	return fmt.Sprintf("%s applied but not saved: %v", e.Op, e.Err)
}

func (e *UnsavedError) Unwrap() error { return e.Err }

// finish logs the outcome of op and persists it when autosave is on. A failed
// autosave comes back as *UnsavedError; the caller's result is still valid.
func (m *LibraryManager) finish(ctx context.Context, op string, err error, attrs ...any) error {
	if err != nil {
		m.log.Debug("operation rejected", append(attrs, "op", op, "kind", KindOf(err).String(), "error", err)...)
		return err
	}
	m.log.Info("operation applied", append(attrs, "op", op)...)
	if m.autoSave && m.catalog.Dirty() {
		if err := m.saveLocked(ctx); err != nil {
			return &UnsavedError{Op: op, Err: err}
		}
	}
	return nil
}

// ------------------ Book helpers ------------------

// AddBook adds an Available book to the catalog.
func (m *LibraryManager) AddBook(ctx context.Context, title, author, publisher string, year int, isbn string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := NewBook(strings.TrimSpace(title), strings.TrimSpace(author), strings.TrimSpace(publisher), year, isbn)
	if err := m.catalog.AddBook(b); err != nil {
		return Book{}, m.finish(ctx, "add_book", err, "isbn", isbn)
	}
	return *b, m.finish(ctx, "add_book", nil, "isbn", isbn)
}

func (m *LibraryManager) GetBook(isbn string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.catalog.Book(strings.TrimSpace(isbn))
	if !ok {
		return Book{}, newError(KindNotFound, "book with ISBN %s not found", isbn)
	}
	return b, nil
}

func (m *LibraryManager) GetAllBooks() []Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Books()
}

func (m *LibraryManager) SearchBooks(q string) []Book {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.SearchBooks(q)
}

// ------------------ User helpers ------------------

// AddUser registers a user, hashing the password.
func (m *LibraryManager) AddUser(ctx context.Context, id, name, password string, role Role) (UserSummary, error) {
	if strings.TrimSpace(password) == "" {
		return UserSummary{}, newError(KindInvalidArgument, "password cannot be empty")
	}
	u, err := NewUser(strings.TrimSpace(id), strings.TrimSpace(name), password, role)
	if err != nil {
		return UserSummary{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.catalog.AddUser(u); err != nil {
		return UserSummary{}, m.finish(ctx, "add_user", err, "user", id, "role", role.String())
	}
	return summarize(u), m.finish(ctx, "add_user", nil, "user", id, "role", role.String())
}

func (m *LibraryManager) RemoveUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.finish(ctx, "remove_user", m.catalog.RemoveUser(strings.TrimSpace(id)), "user", id)
}

func (m *LibraryManager) GetUser(id string) (UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.catalog.User(strings.TrimSpace(id))
	if !ok {
		return UserSummary{}, newError(KindNotFound, "user %s not found", id)
	}
	return u, nil
}

func (m *LibraryManager) GetAllUsers() []UserSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Users()
}

// Authenticate checks the password of id. A legacy plaintext credential is
// replaced by its hash on success.
func (m *LibraryManager) Authenticate(ctx context.Context, id, password string) (UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.engine.Authenticate(id, password)
	return u, m.finish(ctx, "login", err, "user", id)
}

// ------------------ Circulation ------------------

func (m *LibraryManager) IssueBook(ctx context.Context, userID, isbn string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.engine.Issue(userID, isbn)
	return b, m.finish(ctx, "issue", err, "user", userID, "isbn", isbn)
}

func (m *LibraryManager) ReturnBook(ctx context.Context, userID, isbn string, daysBorrowed int) (ReturnReceipt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, err := m.engine.Return(userID, isbn, daysBorrowed)
	if err == nil && !r.LedgerMatched {
		m.log.Warn("return without matching ledger entry", "user", userID, "isbn", isbn)
	}
	return r, m.finish(ctx, "return", err, "user", userID, "isbn", isbn, "days", daysBorrowed)
}

func (m *LibraryManager) ReserveBook(ctx context.Context, userID, isbn string) (Book, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, err := m.engine.Reserve(userID, isbn)
	return b, m.finish(ctx, "reserve", err, "user", userID, "isbn", isbn)
}

// ------------------ Fines ------------------

func (m *LibraryManager) RequestFineSettlement(ctx context.Context, userID string) (SettlementOutcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out, err := m.engine.RequestSettlement(userID)
	return out, m.finish(ctx, "request_settlement", err, "user", userID)
}

func (m *LibraryManager) ApproveFineSettlement(ctx context.Context, userID string) (UserSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, err := m.engine.ApproveSettlement(userID)
	return u, m.finish(ctx, "approve_settlement", err, "user", userID)
}

// ------------------ Reporting ------------------

// IssuedRecords returns the active ledger entries in issue order.
func (m *LibraryManager) IssuedRecords() []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.catalog.Ledger().All())
}

// IssuedRecordsFor returns userID's active ledger entries.
func (m *LibraryManager) IssuedRecordsFor(userID string) []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Collect(m.catalog.Ledger().ForUser(userID))
}

// Now is the manager's clock, used by the shell to render reservation status.
func (m *LibraryManager) Now() time.Time { return m.clock() }

// ------------------ Utilities ------------------

// PrettyBook formats a book for lists as seen by viewerID.
func PrettyBook(b Book, viewerID string, now time.Time) string {
	return fmt.Sprintf("Title     : %s\nAuthor    : %s\nPublisher : %s\nYear      : %d\nISBN      : %s\nStatus    : %s\n---------------------",
		b.Title, b.Author, b.Publisher, b.Year, b.ISBN, b.DisplayStatus(viewerID, now))
}
