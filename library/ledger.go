package library

import (
	"iter"
	"slices"
	"time"
)

// Ledger is the log of active issues. It is a reporting aid: the account's
// borrowed set, not the ledger, decides borrowing limits.
type Ledger struct {
	entries []LedgerEntry
}

// NewLedger returns a ledger holding entries in the given order.
func NewLedger(entries []LedgerEntry) *Ledger {
	return &Ledger{entries: slices.Clone(entries)}
}

// Record appends an entry.
func (l *Ledger) Record(userID, isbn string, at time.Time) {
	l.entries = append(l.entries, LedgerEntry{UserID: userID, ISBN: isbn, IssuedAt: at})
}

// Release removes the first entry for (userID, isbn) and reports whether one
// was found.
func (l *Ledger) Release(userID, isbn string) bool {
	i := slices.IndexFunc(l.entries, func(e LedgerEntry) bool {
		return e.UserID == userID && e.ISBN == isbn
	})
	if i < 0 {
		return false
	}
	l.entries = slices.Delete(l.entries, i, i+1)
	return true
}

// Holds reports whether userID has an active entry for isbn.
func (l *Ledger) Holds(userID, isbn string) bool {
	return slices.ContainsFunc(l.entries, func(e LedgerEntry) bool {
		return e.UserID == userID && e.ISBN == isbn
	})
}

func (l *Ledger) Len() int { return len(l.entries) }

// All yields every entry as of the call. The sequence can be ranged over
// more than once and is unaffected by later mutations.
func (l *Ledger) All() iter.Seq[LedgerEntry] {
	return slices.Values(slices.Clone(l.entries))
}

// ForUser yields userID's entries as of the call.
func (l *Ledger) ForUser(userID string) iter.Seq[LedgerEntry] {
	snapshot := slices.Clone(l.entries)
	return func(yield func(LedgerEntry) bool) {
		for _, e := range snapshot {
			if e.UserID != userID {
				continue
			}
			if !yield(e) {
				return
			}
		}
	}
}
