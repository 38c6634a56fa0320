package cookieferry

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteCookieRows_InsertAndBackup(t *testing.T) {
	ctx := testContext(t)
	dbPath := filepath.Join(t.TempDir(), "Cookies")

	db := openTestSQLite(t, dbPath)
	createCookieSchema(t, db, 24)
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	key := testLinuxKey(t, "dest-pw")
	records := []CookieRecord{
		{Host: ".example.com", Name: "sid", Value: "abc", Path: "/", Expires: 13400000000000000, Secure: true},
		{Host: ".example.org", Name: "pref", Value: "dark", Path: "/", Expires: 0},
	}

	written, backupPath, err := writeCookieRows(ctx, dbPath, records, key)
	if err != nil {
		t.Fatal(err)
	}
	if written != 2 {
		t.Fatalf("want 2 written, got %d", written)
	}
	if !strings.Contains(filepath.Base(backupPath), ".backup_") {
		t.Fatalf("backup name %q missing timestamp marker", backupPath)
	}
	if _, err := os.Stat(backupPath); err != nil {
		t.Fatalf("backup file missing: %v", err)
	}

	// Written values must decrypt back, including the domain hash prefix.
	snap, err := openSnapshotDB(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = snap.Close() }()

	rows, err := readCookieRows(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("want 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		plain, err := DecryptBlob(row.encryptedValue, key)
		if err != nil {
			t.Fatalf("%s/%s: %v", row.hostKey, row.name, err)
		}
		plain = stripDomainHash(plain, 24)
		want := "abc"
		if row.hostKey == ".example.org" {
			want = "dark"
		}
		if string(plain) != want {
			t.Fatalf("%s/%s: want %q got %q", row.hostKey, row.name, want, plain)
		}
	}
}

func TestWriteCookieRows_UpdateExisting(t *testing.T) {
	ctx := testContext(t)
	dbPath := filepath.Join(t.TempDir(), "Cookies")

	db := openTestSQLite(t, dbPath)
	createCookieSchema(t, db, 24)
	insertCookieRow(t, db, ".example.com", "sid", []byte("v10old"))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}

	key := testLinuxKey(t, "dest-pw")
	written, _, err := writeCookieRows(ctx, dbPath, []CookieRecord{
		{Host: ".example.com", Name: "sid", Value: "new", Path: "/p", Expires: 42},
	}, key)
	if err != nil {
		t.Fatal(err)
	}
	if written != 1 {
		t.Fatalf("want 1 written, got %d", written)
	}

	snap, err := openSnapshotDB(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = snap.Close() }()

	rows, err := readCookieRows(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 {
		t.Fatalf("update must not add a row; got %d rows", len(rows))
	}
	if rows[0].path != "/p" || rows[0].expiresUTC != 42 {
		t.Fatalf("row not updated: %+v", rows[0])
	}
	plain, err := DecryptBlob(rows[0].encryptedValue, key)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(stripDomainHash(plain, 24)); got != "new" {
		t.Fatalf("want %q got %q", "new", got)
	}
}

func TestWriteCookieRows_RestoresOnFailure(t *testing.T) {
	ctx := testContext(t)
	dbPath := filepath.Join(t.TempDir(), "Cookies")

	db := openTestSQLite(t, dbPath)
	createCookieSchema(t, db, 24)
	insertCookieRow(t, db, ".keep.com", "keep", []byte("v10keep"))
	if err := db.Close(); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}

	// A key with no usable material fails on the first record.
	badKey := MasterKey{Scheme: SchemeCBC, EncodePrefix: "v11"}
	_, _, err = writeCookieRows(ctx, dbPath, []CookieRecord{
		{Host: ".example.com", Name: "sid", Value: "abc"},
	}, badKey)
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("want ErrWriteFailed, got %v", err)
	}

	after, err := os.ReadFile(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatal("database not restored after failed write")
	}

	snap, err := openSnapshotDB(ctx, dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = snap.Close() }()

	rows, err := readCookieRows(ctx, snap)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 1 || rows[0].name != "keep" {
		t.Fatalf("pre-write state lost: %+v", rows)
	}
}

func TestWriteCookieRows_MissingFile(t *testing.T) {
	ctx := testContext(t)
	_, _, err := writeCookieRows(ctx, filepath.Join(t.TempDir(), "absent"), nil, testLinuxKey(t, "pw"))
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("want ErrWriteFailed, got %v", err)
	}
}
