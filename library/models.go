package library

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// BookStatus is the lending state of a book. The string values are the ones
// written to books.csv.
type BookStatus string

const (
	StatusAvailable BookStatus = "Available"
	StatusBorrowed  BookStatus = "Borrowed"
	StatusReserved  BookStatus = "Reserved"
)

// ParseBookStatus accepts the persisted status names; an empty value loads as
// Available.
func ParseBookStatus(s string) (BookStatus, error) {
	switch BookStatus(strings.TrimSpace(s)) {
	case StatusAvailable, "":
		return StatusAvailable, nil
	case StatusBorrowed:
		return StatusBorrowed, nil
	case StatusReserved:
		return StatusReserved, nil
	}
	return "", newError(KindInvalidArgument, "unknown book status %q", s)
}

// ReservationWindow is how long a returned book stays exclusive to the user
// holding its reservation claim.
const ReservationWindow = 5 * 24 * time.Hour

// Book is one catalog entry and its lending status, keyed by ISBN.
//
// ReservedBy is non-empty exactly when the book is Reserved, or when it is
// Borrowed and someone has claimed it for its next return. A zero
// ReservationExpiry means the countdown has not started.
type Book struct {
	Title             string     `json:"title"`
	Author            string     `json:"author"`
	Publisher         string     `json:"publisher"`
	Year              int        `json:"year"`
	ISBN              string     `json:"isbn"`
	Status            BookStatus `json:"status"`
	ReservedBy        string     `json:"reserved_by,omitempty"`
	ReservationExpiry time.Time  `json:"reservation_expiry,omitempty"`
}

// NewBook returns an Available book with no reservation.
func NewBook(title, author, publisher string, year int, isbn string) *Book {
	return &Book{
		Title:     title,
		Author:    author,
		Publisher: publisher,
		Year:      year,
		ISBN:      isbn,
		Status:    StatusAvailable,
	}
}

// HeldFor reports whether the exclusive reservation window is open for userID.
func (b Book) HeldFor(userID string, now time.Time) bool {
	return b.Status == StatusReserved && b.ReservedBy == userID && !b.windowClosed(now)
}

// windowClosed reports whether now is past the reservation expiry. A zero
// expiry has no deadline.
func (b Book) windowClosed(now time.Time) bool {
	return !b.ReservationExpiry.IsZero() && now.After(b.ReservationExpiry)
}

// lapse drops a Reserved book whose window has closed back to Available.
func (b *Book) lapse(now time.Time) bool {
	if b.Status != StatusReserved || !b.windowClosed(now) {
		return false
	}
	b.Status = StatusAvailable
	b.clearReservation()
	return true
}

func (b *Book) clearReservation() {
	b.ReservedBy = ""
	b.ReservationExpiry = time.Time{}
}

// DisplayStatus is the status as seen by viewerID.
func (b Book) DisplayStatus(viewerID string, now time.Time) string {
	if b.Status == StatusReserved {
		if viewerID != "" && b.HeldFor(viewerID, now) {
			return "Available (Reserved exclusively for you)"
		}
		return string(StatusReserved)
	}
	return string(b.Status)
}

// Role selects the lending policy of a user.
type Role int

const (
	RoleStudent Role = iota + 1
	RoleFaculty
	RoleLibrarian
)

func (r Role) String() string {
	switch r {
	case RoleStudent:
		return "Student"
	case RoleFaculty:
		return "Faculty"
	case RoleLibrarian:
		return "Librarian"
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

// ParseRole accepts the persisted role names, ignoring case.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "student":
		return RoleStudent, nil
	case "faculty":
		return RoleFaculty, nil
	case "librarian":
		return RoleLibrarian, nil
	}
	return 0, newError(KindInvalidArgument, "unknown role %q", s)
}

// Account tracks a user's active loans, outstanding fine and fine-settlement
// request. The borrowed set and the pending flag are not persisted.
type Account struct {
	borrowed []string
	fine     decimal.Decimal
	pending  bool
}

// NewAccount returns an account carrying a previously persisted fine.
func NewAccount(fine decimal.Decimal) *Account {
	if fine.IsNegative() {
		fine = decimal.Zero
	}
	return &Account{fine: fine}
}

func (a *Account) Fine() decimal.Decimal  { return a.fine }
func (a *Account) SettlementPending() bool { return a.pending }
func (a *Account) BorrowedCount() int      { return len(a.borrowed) }

// Borrowed returns a copy of the borrowed ISBNs in borrowing order.
func (a *Account) Borrowed() []string { return slices.Clone(a.borrowed) }

func (a *Account) HasBorrowed(isbn string) bool { return slices.Contains(a.borrowed, isbn) }

// blocked reports whether a fine or a pending settlement bars new loans.
func (a *Account) blocked() bool { return a.fine.IsPositive() || a.pending }

func (a *Account) addBorrowed(isbn string) {
	if !a.HasBorrowed(isbn) {
		a.borrowed = append(a.borrowed, isbn)
	}
}

func (a *Account) removeBorrowed(isbn string) bool {
	i := slices.Index(a.borrowed, isbn)
	if i < 0 {
		return false
	}
	a.borrowed = slices.Delete(a.borrowed, i, i+1)
	return true
}

func (a *Account) addFine(amount decimal.Decimal) {
	if amount.IsPositive() {
		a.fine = a.fine.Add(amount)
	}
}

// RequestSettlement moves a fined account to PendingApproval. It returns false
// and changes nothing when there is no fine or a request is already pending.
func (a *Account) RequestSettlement() bool {
	if !a.fine.IsPositive() || a.pending {
		return false
	}
	a.pending = true
	return true
}

// ApproveSettlement clears whatever is owed, including fines accrued after the
// request, and drops the pending flag. It is idempotent.
func (a *Account) ApproveSettlement() {
	a.fine = decimal.Zero
	a.pending = false
}

// PasswordCost is the bcrypt cost used when hashing new passwords.
var PasswordCost = bcrypt.DefaultCost

// User is a library user: identity, role and the account it owns.
type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PasswordHash string   `json:"-"` // Don't serialize password hash
	Role         Role     `json:"role"`
	Account      *Account `json:"-"`
}

// NewUser hashes password and returns a user with an empty account.
func NewUser(id, name, password string, role Role) (*User, error) {
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}
	return &User{ID: id, Name: name, PasswordHash: hash, Role: role, Account: NewAccount(decimal.Zero)}, nil
}

func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// isBcryptHash distinguishes hashes from plaintext passwords found in files
// written before hashing was introduced.
func isBcryptHash(s string) bool {
	return len(s) == 60 && (strings.HasPrefix(s, "$2a$") || strings.HasPrefix(s, "$2b$") || strings.HasPrefix(s, "$2y$"))
}

// VerifyPassword reports whether password matches the stored credential.
func (u *User) VerifyPassword(password string) bool {
	if isBcryptHash(u.PasswordHash) {
		return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
	}
	return u.PasswordHash == password
}

// LedgerEntry records that UserID has held ISBN since IssuedAt.
type LedgerEntry struct {
	UserID   string    `json:"user_id"`
	ISBN     string    `json:"isbn"`
	IssuedAt time.Time `json:"issued_at"`
}
