package library

import "github.com/shopspring/decimal"

// Policy is the lending rule set for a role.
type Policy struct {
	CanBorrow           bool
	MaxBooks            int
	BorrowingPeriodDays int
	FineRatePerDay      decimal.Decimal
}

var (
	studentPolicy = Policy{CanBorrow: true, MaxBooks: 3, BorrowingPeriodDays: 15, FineRatePerDay: decimal.NewFromInt(10)}
	// Faculty are never fined, so OutstandingFine cannot trigger for them
	// through lateness.
	facultyPolicy = Policy{CanBorrow: true, MaxBooks: 5, BorrowingPeriodDays: 30, FineRatePerDay: decimal.Zero}
	disabled      = Policy{}
)

// PolicyFor returns the policy of role. Librarians and unknown roles get a
// policy with borrowing disabled.
func PolicyFor(role Role) Policy {
	switch role {
	case RoleStudent:
		return studentPolicy
	case RoleFaculty:
		return facultyPolicy
	}
	return disabled
}

// LateFine is the fine owed for keeping a book daysBorrowed days.
func (p Policy) LateFine(daysBorrowed int) decimal.Decimal {
	if !p.CanBorrow || daysBorrowed <= p.BorrowingPeriodDays || p.FineRatePerDay.IsZero() {
		return decimal.Zero
	}
	overdue := decimal.NewFromInt(int64(daysBorrowed - p.BorrowingPeriodDays))
	return overdue.Mul(p.FineRatePerDay)
}
