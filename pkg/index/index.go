package index

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver

	"tmscraper/pkg/errors"
	"tmscraper/pkg/storage"
)

// FileName is the index database file inside the state directory.
const FileName = "image_index.db"

// Index is the durable item id to filename map used to skip images that are
// already stored. Every write is committed with synchronous=FULL before it
// returns, so a download is never reported complete ahead of its index row.
type Index struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the index in dir.
func Open(dir string) (*Index, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	dbPath := filepath.Join(dir, FileName)
	dsn := dbPath + "?mode=rwc&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	// SQLite only supports one writer; a single connection also serializes
	// the check-and-insert transactions issued by concurrent workers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	idx := &Index{db: db, dbPath: dbPath}
	if err := idx.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return idx, nil
}

func (idx *Index) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS images (
		id TEXT PRIMARY KEY,
		filename TEXT UNIQUE
	);
	`
	_, err := idx.db.ExecContext(context.Background(), schema)
	return err
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Path returns the database file location.
func (idx *Index) Path() string {
	return idx.dbPath
}

// Contains reports whether id has already been stored.
func (idx *Index) Contains(ctx context.Context, id string) (bool, error) {
	var one int
	err := idx.db.QueryRowContext(ctx, "SELECT 1 FROM images WHERE id = ?", id).Scan(&one)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to query index: %w", err)
	}
	return true, nil
}

// Lookup returns the filename stored for id.
func (idx *Index) Lookup(ctx context.Context, id string) (string, bool, error) {
	var filename string
	err := idx.db.QueryRowContext(ctx, "SELECT filename FROM images WHERE id = ?", id).Scan(&filename)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to query index: %w", err)
	}
	return filename, true, nil
}

// Put registers id as stored under filename. Registering an id twice is a
// no-op. A filename already owned by another id is rejected with ErrConflict.
func (idx *Index) Put(ctx context.Context, id, filename string) error {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var owner string
	err = tx.QueryRowContext(ctx, "SELECT id FROM images WHERE filename = ?", filename).Scan(&owner)
	switch {
	case stderrors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to query filename owner: %w", err)
	case owner != id:
		return errors.New(errors.ErrorTypeConflict,
			fmt.Sprintf("%s already belongs to %s", filename, owner), 0, nil)
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT INTO images (id, filename) VALUES (?, ?) ON CONFLICT(id) DO NOTHING",
		id, filename); err != nil {
		return fmt.Errorf("failed to insert index entry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit index entry: %w", err)
	}
	return nil
}

// Reconcile registers every stored image filename whose id is not yet indexed
// and returns how many entries were added.
func (idx *Index) Reconcile(ctx context.Context, filenames []string) (int, error) {
	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, "INSERT OR IGNORE INTO images (id, filename) VALUES (?, ?)")
	if err != nil {
		return 0, fmt.Errorf("failed to prepare reconcile statement: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, name := range filenames {
		id, ok := storage.IDFromFilename(filepath.Base(name))
		if !ok {
			continue
		}
		res, err := stmt.ExecContext(ctx, id, filepath.Base(name))
		if err != nil {
			return 0, fmt.Errorf("failed to index %s: %w", name, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to read affected rows: %w", err)
		}
		inserted += int(n)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit reconcile: %w", err)
	}
	return inserted, nil
}

// Count returns the number of indexed images.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var n int
	if err := idx.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM images").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count index entries: %w", err)
	}
	return n, nil
}
