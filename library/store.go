package library

import "context"

// Store persists catalog snapshots.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, s Snapshot) error
	Close() error
}

// OpenStore opens the named backend: "csv" keeps books.csv, users.csv and
// issued.csv under dataDir; "sqlite" uses the database at dbPath.
func OpenStore(backend, dataDir, dbPath string) (Store, error) {
	switch backend {
	case "csv", "":
		return NewCSVStore(dataDir)
	case "sqlite":
		return NewSQLiteStore(dbPath)
	}
	return nil, newError(KindInvalidArgument, "unknown store backend %q", backend)
}
