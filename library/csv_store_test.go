package library

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestCSVRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewCSVStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)

	want := sampleSnapshot()
	require.NoError(t, store.Save(ctx, want))
	got, err := store.Load(ctx)
	require.NoError(t, err)
	assertSnapshot(t, want, got)

	entries, err := os.ReadDir(store.Dir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{BooksFile, UsersFile, LedgerFile}, names, "no temporary files left behind")
}

func TestCSVMissingFilesLoadEmpty(t *testing.T) {
	store, err := NewCSVStore(t.TempDir())
	require.NoError(t, err)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snap.Books)
	assert.Empty(t, snap.Users)
	assert.Empty(t, snap.Ledger)
}

func TestCSVLegacyRows(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BooksFile, "C++ Primer,Stanley Lippman,Addison-Wesley,2012,ISBN-001,Available,,0\n"+
		"Effective C++,Scott Meyers,O'Reilly,2005,ISBN-002,Reserved,3,1700432000\n"+
		"\n"+
		"Clean Code,Robert C. Martin,Prentice Hall,2008,ISBN-007\n")
	writeFile(t, dir, UsersFile, "1,Alice,alicepwd,Student,50.5\n"+
		"2,Bob,bobpwd,Dean,0\n"+
		"3,Charlie\n"+
		"9,Librarian Karen,karenpwd,librarian,0\n")
	writeFile(t, dir, LedgerFile, "1,ISBN-001,1700000000\n")

	store, err := NewCSVStore(dir)
	require.NoError(t, err)
	snap, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, snap.Books, 3)
	assert.Equal(t, StatusAvailable, snap.Books[0].Status)
	assert.True(t, snap.Books[0].ReservationExpiry.IsZero())
	assert.Equal(t, "3", snap.Books[1].ReservedBy)
	assert.Equal(t, int64(1700432000), snap.Books[1].ReservationExpiry.Unix())
	assert.Equal(t, StatusAvailable, snap.Books[2].Status, "short rows default to Available")

	require.Len(t, snap.Users, 2, "unknown roles and short rows are skipped")
	assert.Equal(t, "50.5", snap.Users[0].Fine.String())
	assert.Equal(t, RoleLibrarian, snap.Users[1].Role)

	require.Len(t, snap.Ledger, 1)
	assert.True(t, snap.Ledger[0].IssuedAt.Equal(time.Unix(1_700_000_000, 0)))
}

func TestCSVRejectsMalformedBooks(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, BooksFile, "Title,Author,Publisher,Year,ISBN\n")
	store, err := NewCSVStore(dir)
	require.NoError(t, err)
	_, err = store.Load(context.Background())
	assert.ErrorContains(t, err, "books.csv line 1")
}

func TestCSVZeroExpiryWritesZero(t *testing.T) {
	dir := t.TempDir()
	store, err := NewCSVStore(dir)
	require.NoError(t, err)
	snap := Snapshot{Books: []Book{*NewBook("T", "A", "P", 2000, "X")}}
	require.NoError(t, store.Save(context.Background(), snap))

	raw, err := os.ReadFile(filepath.Join(dir, BooksFile))
	require.NoError(t, err)
	assert.Equal(t, "T,A,P,2000,X,Available,,0\n", string(raw))
}

func TestOpenStore(t *testing.T) {
	dir := t.TempDir()

	s, err := OpenStore("", dir, "")
	require.NoError(t, err)
	assert.IsType(t, &CSVStore{}, s)
	require.NoError(t, s.Close())

	s, err = OpenStore("sqlite", dir, filepath.Join(dir, "lib.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = OpenStore("mongo", dir, "")
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
