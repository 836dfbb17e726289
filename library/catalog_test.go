package library

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogAddBook(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.AddBook(NewBook("T", "A", "P", 2000, " X ")))
	assert.True(t, c.Dirty())

	b, ok := c.Book("X")
	require.True(t, ok, "ISBN is trimmed")
	assert.Equal(t, StatusAvailable, b.Status)

	assert.ErrorIs(t, c.AddBook(NewBook("T2", "A", "P", 2000, "X")), ErrDuplicateKey)
	assert.ErrorIs(t, c.AddBook(NewBook("T3", "A", "P", 2000, "  ")), ErrInvalidArgument)
	assert.Len(t, c.Books(), 1)
}

func TestCatalogAddUser(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.AddUser(&User{ID: "1", Name: "Alice", Role: RoleStudent}))
	assert.ErrorIs(t, c.AddUser(&User{ID: "1", Name: "Imposter", Role: RoleFaculty}), ErrDuplicateKey)
	assert.ErrorIs(t, c.AddUser(&User{ID: "", Role: RoleFaculty}), ErrInvalidArgument)

	u, ok := c.User("1")
	require.True(t, ok)
	assert.Equal(t, "Alice", u.Name)
	assert.True(t, u.Fine.IsZero(), "a missing account starts empty")
}

func TestCatalogRemoveUser(t *testing.T) {
	f := newFixture(t)
	_, err := f.engine.Issue("s1", "ISBN-001")
	require.NoError(t, err)

	assert.ErrorIs(t, f.catalog.RemoveUser("nobody"), ErrNotFound)
	assert.ErrorIs(t, f.catalog.RemoveUser("s1"), ErrActiveLoans)

	// A ledger entry alone still counts as an active loan.
	f.account(t, "s1").removeBorrowed("ISBN-001")
	assert.ErrorIs(t, f.catalog.RemoveUser("s1"), ErrActiveLoans)

	require.NoError(t, f.catalog.RemoveUser("s2"))
	_, ok := f.catalog.User("s2")
	assert.False(t, ok)
	for _, u := range f.catalog.Users() {
		assert.NotEqual(t, "s2", u.ID)
	}
}

func TestCatalogSearchBooks(t *testing.T) {
	f := newFixture(t)
	isbns := func(books []Book) []string {
		var out []string
		for _, b := range books {
			out = append(out, b.ISBN)
		}
		return out
	}
	assert.Equal(t, []string{"ISBN-003", "ISBN-004"}, isbns(f.catalog.SearchBooks("stroustrup")))
	assert.Equal(t, []string{"ISBN-001", "ISBN-002", "ISBN-003", "ISBN-005", "ISBN-006"}, isbns(f.catalog.SearchBooks("C++")))
	assert.Equal(t, []string{"ISBN-005"}, isbns(f.catalog.SearchBooks("isbn-005")))
	assert.Empty(t, f.catalog.SearchBooks("cobol"))
	assert.NotNil(t, f.catalog.SearchBooks("  "))
	assert.Empty(t, f.catalog.SearchBooks("  "))
}

func TestCatalogFromSnapshotNormalises(t *testing.T) {
	expiry := time.Unix(1_700_000_000, 0)
	c, err := CatalogFromSnapshot(Snapshot{
		Books: []Book{
			{ISBN: "A", Status: StatusReserved},
			{ISBN: "B", Status: StatusAvailable, ReservedBy: "1", ReservationExpiry: expiry},
			{ISBN: "C", Status: StatusBorrowed, ReservedBy: "1"},
			{ISBN: "D", Status: StatusReserved, ReservedBy: "1", ReservationExpiry: expiry},
		},
		Users:  []UserRecord{{ID: "1", Name: "Alice", Password: "alicepwd", Role: RoleStudent, Fine: decimal.NewFromInt(20)}},
		Ledger: []LedgerEntry{{UserID: "1", ISBN: "C", IssuedAt: expiry}},
	})
	require.NoError(t, err)
	assert.False(t, c.Dirty())

	a, _ := c.Book("A")
	assert.Equal(t, StatusAvailable, a.Status)
	b, _ := c.Book("B")
	assert.Empty(t, b.ReservedBy)
	assert.True(t, b.ReservationExpiry.IsZero())
	cb, _ := c.Book("C")
	assert.Equal(t, "1", cb.ReservedBy)
	d, _ := c.Book("D")
	assert.True(t, d.ReservationExpiry.Equal(expiry))

	u, _ := c.User("1")
	assert.Equal(t, "20", u.Fine.String())
	assert.Empty(t, u.Borrowed, "borrowed sets are not persisted")
	assert.Equal(t, 1, c.Ledger().Len())

	c.ReconcileLoans()
	u, _ = c.User("1")
	assert.Equal(t, []string{"C"}, u.Borrowed)
}

func TestCatalogFromSnapshotDuplicates(t *testing.T) {
	_, err := CatalogFromSnapshot(Snapshot{Books: []Book{{ISBN: "A"}, {ISBN: "A"}}})
	assert.ErrorIs(t, err, ErrDuplicateKey)
}

func TestSeed(t *testing.T) {
	c := NewCatalog()
	books, users, err := c.Seed()
	require.NoError(t, err)
	assert.Equal(t, len(DefaultBooks), books)
	assert.Equal(t, len(DefaultUsers), users)

	karen, ok := c.users["9"]
	require.True(t, ok)
	assert.Equal(t, RoleLibrarian, karen.Role)
	assert.True(t, karen.VerifyPassword("karenpwd"))

	books, users, err = c.Seed()
	require.NoError(t, err)
	assert.Zero(t, books)
	assert.Zero(t, users)
}

func TestSeedKeepsCustomData(t *testing.T) {
	c := NewCatalog()
	require.NoError(t, c.AddBook(NewBook("Local", "Me", "Me", 2024, "ISBN-002")))
	require.NoError(t, c.AddUser(&User{ID: "1", Name: "Custom", PasswordHash: "x", Role: RoleFaculty}))

	books, users, err := c.Seed()
	require.NoError(t, err)
	assert.Equal(t, len(DefaultBooks)-1, books, "existing ISBNs are left alone")
	assert.Zero(t, users, "users are only seeded when user 1 is missing")

	b, _ := c.Book("ISBN-002")
	assert.Equal(t, "Local", b.Title)
}
