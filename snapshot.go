package cookieferry

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite" // SQLite driver (pure Go).
)

// snapshotTier names the extraction strategy that produced a snapshot.
type snapshotTier string

const (
	tierFileCopy     snapshotTier = "copy"
	tierRawRead      snapshotTier = "raw-read"
	tierOnlineBackup snapshotTier = "online-backup"
)

// snapshotDatabase obtains a private, queryable copy of a credential database
// that may be held open by a running browser. Three tiers, each relying on
// its own atomicity primitive rather than partial reads:
//
//  1. filesystem copy of the file plus WAL sidecars;
//  2. raw byte-for-byte read reconstructed as a temp file;
//  3. SQLite's own online backup (VACUUM INTO on a read-only connection).
//
// All tiers exhausted yields ErrStorageLocked. The tool never takes an
// exclusive lock on the live database.
func snapshotDatabase(ctx context.Context, dbPath string) (snapshotPath string, cleanup func(), tier snapshotTier, err error) {
	dir, err := os.MkdirTemp("", "cookieferry-snap-")
	if err != nil {
		return "", nil, "", err
	}
	cleanup = func() { _ = os.RemoveAll(dir) }

	target := filepath.Join(dir, filepath.Base(dbPath))

	var tierErrs []error
	for _, attempt := range []struct {
		tier snapshotTier
		fn   func(context.Context, string, string) error
	}{
		{tierFileCopy, snapshotByCopy},
		{tierRawRead, snapshotByRawRead},
		{tierOnlineBackup, snapshotByOnlineBackup},
	} {
		if err := attempt.fn(ctx, dbPath, target); err != nil {
			tierErrs = append(tierErrs, fmt.Errorf("%s: %w", attempt.tier, err))
			continue
		}
		if err := verifySnapshot(ctx, target); err != nil {
			tierErrs = append(tierErrs, fmt.Errorf("%s: %w", attempt.tier, err))
			continue
		}
		return target, cleanup, attempt.tier, nil
	}

	cleanup()
	return "", nil, "", fmt.Errorf("%w (%s): %v", ErrStorageLocked, dbPath, tierErrs)
}

func snapshotByCopy(_ context.Context, dbPath, target string) error {
	if err := copyFile(dbPath, target); err != nil {
		return err
	}
	// If WAL mode is enabled, recent writes may live in sidecars.
	_ = copyFileIfExists(dbPath+"-wal", target+"-wal")
	_ = copyFileIfExists(dbPath+"-shm", target+"-shm")
	return nil
}

func snapshotByRawRead(_ context.Context, dbPath, target string) error {
	raw, err := os.ReadFile(dbPath)
	if err != nil {
		return err
	}
	_ = os.Remove(target + "-wal")
	_ = os.Remove(target + "-shm")
	return os.WriteFile(target, raw, 0o600)
}

// snapshotByOnlineBackup asks the engine itself for a transactionally
// consistent copy, without disturbing the live writer.
func snapshotByOnlineBackup(ctx context.Context, dbPath, target string) error {
	_ = os.Remove(target)
	_ = os.Remove(target + "-wal")
	_ = os.Remove(target + "-shm")

	src, err := sql.Open("sqlite", "file:"+filepath.ToSlash(dbPath)+"?mode=ro&_pragma=busy_timeout(5000)")
	if err != nil {
		return err
	}
	defer func() { _ = src.Close() }()

	if err := src.PingContext(ctx); err != nil {
		return err
	}
	_, err = src.ExecContext(ctx, `VACUUM INTO ?`, filepath.ToSlash(target))
	return err
}

// verifySnapshot rejects snapshots a tier produced from a half-written read.
func verifySnapshot(ctx context.Context, path string) error {
	db, err := openSnapshotDB(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	var n int64
	return db.QueryRowContext(ctx, `SELECT count(*) FROM sqlite_master`).Scan(&n)
}

func openSnapshotDB(ctx context.Context, snapshotPath string) (*sql.DB, error) {
	dsn := "file:" + filepath.ToSlash(snapshotPath) + "?mode=ro"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func openWritableDB(ctx context.Context, dbPath string) (*sql.DB, error) {
	dsn := "file:" + filepath.ToSlash(dbPath) + "?_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func dbMetaVersion(ctx context.Context, db *sql.DB) int64 {
	if db == nil {
		return 0
	}
	var value string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'version'`).Scan(&value)
	if err != nil {
		return 0
	}
	v, err := parseInt64(value)
	if err != nil {
		return 0
	}
	return v
}
