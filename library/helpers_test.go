package library

import (
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	PasswordCost = bcrypt.MinCost
	os.Exit(m.Run())
}

// fixture is a small catalog with a controllable clock.
type fixture struct {
	catalog *Catalog
	engine  *Engine
	now     time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{catalog: NewCatalog(), now: time.Unix(1_700_000_000, 0)}
	for _, b := range DefaultBooks[:6] {
		if err := f.catalog.AddBook(NewBook(b.Title, b.Author, b.Publisher, b.Year, b.ISBN)); err != nil {
			t.Fatalf("add book: %v", err)
		}
	}
	for _, u := range []struct {
		id   string
		role Role
	}{
		{"s1", RoleStudent},
		{"s2", RoleStudent},
		{"f1", RoleFaculty},
		{"lib", RoleLibrarian},
	} {
		user := &User{ID: u.id, Name: u.id, PasswordHash: u.id + "pwd", Role: u.role, Account: NewAccount(decimal.Zero)}
		if err := f.catalog.AddUser(user); err != nil {
			t.Fatalf("add user: %v", err)
		}
	}
	f.engine = NewEngine(f.catalog, WithClock(func() time.Time { return f.now }))
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) book(t *testing.T, isbn string) Book {
	t.Helper()
	b, ok := f.catalog.Book(isbn)
	if !ok {
		t.Fatalf("book %s missing", isbn)
	}
	return b
}

func (f *fixture) account(t *testing.T, id string) *Account {
	t.Helper()
	u, ok := f.catalog.users[id]
	if !ok {
		t.Fatalf("user %s missing", id)
	}
	return u.Account
}
