package library

import (
	"slices"
	"strings"

	"github.com/shopspring/decimal"
)

// Catalog owns the books, users and ledger of one library. Entities are
// indexed by ISBN and user ID; callers hold keys, never pointers.
type Catalog struct {
	books     map[string]*Book
	bookOrder []string
	users     map[string]*User
	userOrder []string
	ledger    *Ledger
	dirty     bool
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		books:  make(map[string]*Book),
		users:  make(map[string]*User),
		ledger: NewLedger(nil),
	}
}

// Snapshot is the persisted form of a catalog: the three ordered collections.
type Snapshot struct {
	Books  []Book
	Users  []UserRecord
	Ledger []LedgerEntry
}

// UserRecord is one row of the users collection. Password holds the stored
// credential (a bcrypt hash, or plaintext from legacy files).
type UserRecord struct {
	ID       string
	Name     string
	Password string
	Role     Role
	Fine     decimal.Decimal
}

// CatalogFromSnapshot rebuilds a catalog. Accounts start with an empty
// borrowed set and no pending settlement. Books whose status and holder
// disagree are normalised so a holder exists exactly when one is required.
func CatalogFromSnapshot(s Snapshot) (*Catalog, error) {
	c := NewCatalog()
	for _, b := range s.Books {
		book := b
		switch {
		case book.Status == StatusReserved && book.ReservedBy == "":
			book.Status = StatusAvailable
			book.clearReservation()
		case book.Status == StatusAvailable && book.ReservedBy != "":
			book.clearReservation()
		}
		if err := c.AddBook(&book); err != nil {
			return nil, err
		}
	}
	for _, r := range s.Users {
		u := &User{ID: r.ID, Name: r.Name, PasswordHash: r.Password, Role: r.Role, Account: NewAccount(r.Fine)}
		if err := c.AddUser(u); err != nil {
			return nil, err
		}
	}
	c.ledger = NewLedger(s.Ledger)
	c.dirty = false
	return c, nil
}

// Snapshot copies the current collections for persistence.
func (c *Catalog) Snapshot() Snapshot {
	s := Snapshot{
		Books: c.Books(),
		Users: make([]UserRecord, 0, len(c.userOrder)),
	}
	for _, id := range c.userOrder {
		u := c.users[id]
		s.Users = append(s.Users, UserRecord{ID: u.ID, Name: u.Name, Password: u.PasswordHash, Role: u.Role, Fine: u.Account.Fine()})
	}
	s.Ledger = slices.Collect(c.ledger.All())
	return s
}

// ReconcileLoans rebuilds every account's borrowed set from the ledger.
// Entries naming unknown users are left alone.
func (c *Catalog) ReconcileLoans() {
	for e := range c.ledger.All() {
		if u, ok := c.users[e.UserID]; ok {
			u.Account.addBorrowed(e.ISBN)
		}
	}
}

// AddBook adds b to the catalog.
func (c *Catalog) AddBook(b *Book) error {
	b.ISBN = strings.TrimSpace(b.ISBN)
	if b.ISBN == "" {
		return newError(KindInvalidArgument, "ISBN cannot be empty")
	}
	if _, ok := c.books[b.ISBN]; ok {
		return newError(KindDuplicateKey, "a book with ISBN %s already exists", b.ISBN)
	}
	if b.Status == "" {
		b.Status = StatusAvailable
	}
	c.books[b.ISBN] = b
	c.bookOrder = append(c.bookOrder, b.ISBN)
	c.dirty = true
	return nil
}

// Book returns a copy of the book with the given ISBN.
func (c *Catalog) Book(isbn string) (Book, bool) {
	b, ok := c.books[isbn]
	if !ok {
		return Book{}, false
	}
	return *b, true
}

// Books returns copies of all books in insertion order.
func (c *Catalog) Books() []Book {
	out := make([]Book, 0, len(c.bookOrder))
	for _, isbn := range c.bookOrder {
		out = append(out, *c.books[isbn])
	}
	return out
}

// AddUser adds u to the catalog.
func (c *Catalog) AddUser(u *User) error {
	u.ID = strings.TrimSpace(u.ID)
	if u.ID == "" {
		return newError(KindInvalidArgument, "user ID cannot be empty")
	}
	if _, ok := c.users[u.ID]; ok {
		return newError(KindDuplicateKey, "a user with ID %s already exists", u.ID)
	}
	if u.Account == nil {
		u.Account = NewAccount(decimal.Zero)
	}
	c.users[u.ID] = u
	c.userOrder = append(c.userOrder, u.ID)
	c.dirty = true
	return nil
}

// RemoveUser deletes a user who holds no books.
func (c *Catalog) RemoveUser(id string) error {
	u, ok := c.users[id]
	if !ok {
		return newError(KindNotFound, "user %s not found", id)
	}
	if u.Account.BorrowedCount() > 0 || c.hasLedgerEntries(id) {
		return newError(KindActiveLoans, "cannot remove user %s because they have borrowed books", id)
	}
	delete(c.users, id)
	c.userOrder = slices.DeleteFunc(c.userOrder, func(x string) bool { return x == id })
	c.dirty = true
	return nil
}

func (c *Catalog) hasLedgerEntries(userID string) bool {
	for range c.ledger.ForUser(userID) {
		return true
	}
	return false
}

// UserSummary is a read-only view of a user and their account.
type UserSummary struct {
	ID                string
	Name              string
	Role              Role
	Fine              decimal.Decimal
	SettlementPending bool
	Borrowed          []string
}

func summarize(u *User) UserSummary {
	return UserSummary{
		ID:                u.ID,
		Name:              u.Name,
		Role:              u.Role,
		Fine:              u.Account.Fine(),
		SettlementPending: u.Account.SettlementPending(),
		Borrowed:          u.Account.Borrowed(),
	}
}

// User returns a summary of the user with the given ID.
func (c *Catalog) User(id string) (UserSummary, bool) {
	u, ok := c.users[id]
	if !ok {
		return UserSummary{}, false
	}
	return summarize(u), true
}

// Users returns summaries of all users in insertion order.
func (c *Catalog) Users() []UserSummary {
	out := make([]UserSummary, 0, len(c.userOrder))
	for _, id := range c.userOrder {
		out = append(out, summarize(c.users[id]))
	}
	return out
}

// Ledger exposes the active-issue log for reporting.
func (c *Catalog) Ledger() *Ledger { return c.ledger }

// Dirty reports whether the catalog changed since the last MarkClean.
func (c *Catalog) Dirty() bool { return c.dirty }

// MarkClean records that the current state has been persisted.
func (c *Catalog) MarkClean() { c.dirty = false }

// SearchBooks returns books whose ISBN, title or author contains q, ignoring
// case. An empty query matches nothing.
func (c *Catalog) SearchBooks(q string) []Book {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return []Book{}
	}
	var out []Book
	for _, isbn := range c.bookOrder {
		b := c.books[isbn]
		if strings.Contains(strings.ToLower(b.ISBN), q) ||
			strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) {
			out = append(out, *b)
		}
	}
	return out
}
