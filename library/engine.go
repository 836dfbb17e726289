package library

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Engine applies the lending rules to a Catalog. Every operation checks all
// of its preconditions before mutating anything.
type Engine struct {
	catalog *Catalog
	now     func() time.Time
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine returns an engine operating on catalog.
func NewEngine(catalog *Catalog, opts ...EngineOption) *Engine {
	e := &Engine{catalog: catalog, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog returns the catalog the engine mutates.
func (e *Engine) Catalog() *Catalog { return e.catalog }

func (e *Engine) book(isbn string) (*Book, error) {
	b, ok := e.catalog.books[strings.TrimSpace(isbn)]
	if !ok {
		return nil, newError(KindNotFound, "book with ISBN %s not found", isbn)
	}
	return b, nil
}

func (e *Engine) user(id string) (*User, error) {
	u, ok := e.catalog.users[strings.TrimSpace(id)]
	if !ok {
		return nil, newError(KindNotFound, "user %s not found", id)
	}
	return u, nil
}

// Issue lends the book to the user and returns the updated book.
func (e *Engine) Issue(userID, isbn string) (Book, error) {
	now := e.now()
	book, err := e.book(isbn)
	if err != nil {
		return Book{}, err
	}
	user, err := e.user(userID)
	if err != nil {
		return Book{}, err
	}
	lapsed := book.lapse(now)
	if lapsed {
		e.catalog.dirty = true
	}

	switch book.Status {
	case StatusBorrowed:
		return Book{}, newError(KindAlreadyIssued, "book %s is already issued", book.ISBN)
	case StatusReserved:
		if book.ReservedBy != user.ID || book.windowClosed(now) {
			return Book{}, newError(KindReservedByOther, "book %s is reserved by another user", book.ISBN)
		}
	}

	policy := PolicyFor(user.Role)
	if !policy.CanBorrow {
		return Book{}, newError(KindRoleForbidden, "%ss cannot borrow books", user.Role)
	}
	if user.Account.blocked() {
		return Book{}, newError(KindOutstandingFine, "outstanding fine exists; clear fines before borrowing")
	}
	if user.Account.BorrowedCount() >= policy.MaxBooks {
		return Book{}, newError(KindBorrowLimitReached, "you have reached your borrowing limit of %d books", policy.MaxBooks)
	}

	if book.Status == StatusReserved {
		book.clearReservation()
	}
	book.Status = StatusBorrowed
	user.Account.addBorrowed(book.ISBN)
	e.catalog.ledger.Record(user.ID, book.ISBN, now)
	e.catalog.dirty = true
	return *book, nil
}

// ReturnReceipt describes the outcome of a successful return.
type ReturnReceipt struct {
	Book Book
	// Fine is the amount added to the account by this return.
	Fine decimal.Decimal
	// LedgerMatched is false when no active issue was recorded for the pair.
	LedgerMatched bool
	// ReservedFor is the user the book is now held for, if any.
	ReservedFor string
}

// Return takes the book back from the user, charging a late fine where the
// policy has one. It does not require the ledger to know about the loan.
func (e *Engine) Return(userID, isbn string, daysBorrowed int) (ReturnReceipt, error) {
	if daysBorrowed < 0 {
		return ReturnReceipt{}, newError(KindInvalidArgument, "days borrowed cannot be negative")
	}
	book, err := e.book(isbn)
	if err != nil {
		return ReturnReceipt{}, err
	}
	user, err := e.user(userID)
	if err != nil {
		return ReturnReceipt{}, err
	}
	policy := PolicyFor(user.Role)
	if !policy.CanBorrow {
		return ReturnReceipt{}, newError(KindRoleForbidden, "%ss cannot return books", user.Role)
	}

	now := e.now()
	receipt := ReturnReceipt{LedgerMatched: e.catalog.ledger.Release(user.ID, book.ISBN)}
	user.Account.removeBorrowed(book.ISBN)
	receipt.Fine = policy.LateFine(daysBorrowed)
	user.Account.addFine(receipt.Fine)

	if book.ReservedBy != "" {
		book.Status = StatusReserved
		book.ReservationExpiry = now.Add(ReservationWindow)
		receipt.ReservedFor = book.ReservedBy
	} else {
		book.Status = StatusAvailable
	}
	e.catalog.dirty = true
	receipt.Book = *book
	return receipt, nil
}

// Reserve records the user's claim on a borrowed book. The exclusive window
// only starts when the book comes back.
func (e *Engine) Reserve(userID, isbn string) (Book, error) {
	now := e.now()
	book, err := e.book(isbn)
	if err != nil {
		return Book{}, err
	}
	user, err := e.user(userID)
	if err != nil {
		return Book{}, err
	}
	if book.lapse(now) {
		e.catalog.dirty = true
	}
	if !PolicyFor(user.Role).CanBorrow {
		return Book{}, newError(KindRoleForbidden, "%ss cannot reserve books", user.Role)
	}

	switch {
	case book.Status == StatusAvailable:
		return Book{}, newError(KindAlreadyAvailable, "book %s is available; you may borrow it", book.ISBN)
	case book.ReservedBy == user.ID:
		return Book{}, newError(KindAlreadyReserved, "you have already reserved book %s", book.ISBN)
	case book.ReservedBy != "":
		return Book{}, newError(KindAlreadyReserved, "book %s is already reserved by another user", book.ISBN)
	case user.Account.HasBorrowed(book.ISBN) || e.catalog.ledger.Holds(user.ID, book.ISBN):
		return Book{}, newError(KindAlreadyIssued, "you can't reserve book %s because you have already borrowed it", book.ISBN)
	}

	book.ReservedBy = user.ID
	e.catalog.dirty = true
	return *book, nil
}

// SettlementOutcome is the result of a fine-settlement request.
type SettlementOutcome int

const (
	SettlementRequested SettlementOutcome = iota + 1
	SettlementAlreadyPending
	SettlementNothingOwed
)

// RequestSettlement asks a librarian to clear the user's fine.
func (e *Engine) RequestSettlement(userID string) (SettlementOutcome, error) {
	user, err := e.user(userID)
	if err != nil {
		return 0, err
	}
	switch {
	case user.Account.SettlementPending():
		return SettlementAlreadyPending, nil
	case user.Account.RequestSettlement():
		// The pending flag is not persisted, but the request still counts as
		// a change for callers deciding whether to save.
		e.catalog.dirty = true
		return SettlementRequested, nil
	}
	return SettlementNothingOwed, nil
}

// ApproveSettlement clears a pending request, zeroing the fine owed now.
func (e *Engine) ApproveSettlement(userID string) (UserSummary, error) {
	user, err := e.user(userID)
	if err != nil {
		return UserSummary{}, err
	}
	if !user.Account.SettlementPending() {
		return UserSummary{}, newError(KindNoPendingSettlement, "no pending fine clearance for user %s", user.ID)
	}
	user.Account.ApproveSettlement()
	e.catalog.dirty = true
	return summarize(user), nil
}

// Authenticate checks a user's password.
func (e *Engine) Authenticate(userID, password string) (UserSummary, error) {
	user, err := e.user(userID)
	if err != nil {
		return UserSummary{}, err
	}
	if !user.VerifyPassword(password) {
		return UserSummary{}, newError(KindInvalidCredentials, "invalid password")
	}
	if !isBcryptHash(user.PasswordHash) {
		if hash, err := hashPassword(password); err == nil {
			user.PasswordHash = hash
			e.catalog.dirty = true
		}
	}
	return summarize(user), nil
}
