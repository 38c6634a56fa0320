package cookieferry

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openTestSQLite(t *testing.T, path string) *sql.DB {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	db, err := sql.Open("sqlite", "file:"+filepath.ToSlash(path)+"?mode=rwc")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func createCookieSchema(t *testing.T, db *sql.DB, metaVersion int) {
	t.Helper()
	stmts := []string{
		`CREATE TABLE meta (key TEXT PRIMARY KEY, value TEXT)`,
		`CREATE TABLE cookies (
			creation_utc INTEGER NOT NULL,
			host_key TEXT NOT NULL,
			name TEXT NOT NULL,
			value TEXT NOT NULL,
			encrypted_value BLOB,
			path TEXT NOT NULL,
			expires_utc INTEGER NOT NULL,
			is_secure INTEGER NOT NULL,
			is_httponly INTEGER NOT NULL,
			samesite INTEGER NOT NULL DEFAULT -1,
			last_access_utc INTEGER NOT NULL
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := db.Exec(`INSERT INTO meta (key, value) VALUES ('version', ?)`, metaVersion); err != nil {
		t.Fatal(err)
	}
}

func createLoginSchema(t *testing.T, db *sql.DB) {
	t.Helper()
	_, err := db.Exec(`CREATE TABLE logins (
		origin_url TEXT NOT NULL,
		username_value TEXT,
		password_value BLOB,
		date_created INTEGER NOT NULL DEFAULT 0,
		date_last_used INTEGER NOT NULL DEFAULT 0
	)`)
	if err != nil {
		t.Fatal(err)
	}
}

func insertCookieRow(t *testing.T, db *sql.DB, host, name string, encrypted []byte) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO cookies (creation_utc, host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly, samesite, last_access_utc)
		VALUES (1, ?, ?, '', ?, '/', 13400000000000000, 1, 0, 0, 1)`,
		host, name, encrypted,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func insertLoginRow(t *testing.T, db *sql.DB, url, username string, encrypted []byte) {
	t.Helper()
	_, err := db.Exec(`
		INSERT INTO logins (origin_url, username_value, password_value, date_created, date_last_used)
		VALUES (?, ?, ?, 1, 1)`,
		url, username, encrypted,
	)
	if err != nil {
		t.Fatal(err)
	}
}

func writeFileForTest(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}
}

func pkcs7Pad(t *testing.T, b []byte) []byte {
	t.Helper()
	paddingLen := aes.BlockSize - (len(b) % aes.BlockSize)
	if paddingLen == 0 {
		paddingLen = aes.BlockSize
	}
	out := make([]byte, 0, len(b)+paddingLen)
	out = append(out, b...)
	for i := 0; i < paddingLen; i++ {
		out = append(out, byte(paddingLen))
	}
	return out
}

func encryptCBCForTest(t *testing.T, prefix string, key []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	padded := pkcs7Pad(t, plaintext)
	ciphertext := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, []byte(cbcFixedIV))
	cbc.CryptBlocks(ciphertext, padded)
	return append([]byte(prefix), ciphertext...)
}

func encryptGCMForTest(t *testing.T, prefix string, key []byte, nonce []byte, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	if err != nil {
		t.Fatal(err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		t.Fatal(err)
	}
	ciphertextAndTag := aesgcm.Seal(nil, nonce, plaintext, nil)
	out := make([]byte, 0, len(prefix)+len(nonce)+len(ciphertextAndTag))
	out = append(out, []byte(prefix)...)
	out = append(out, nonce...)
	out = append(out, ciphertextAndTag...)
	return out
}

// testLinuxKey builds the dual-key Linux layout: store password for v11,
// the constant fallback for v10.
func testLinuxKey(t *testing.T, storePassword string) MasterKey {
	t.Helper()
	return MasterKey{
		Scheme:       SchemeCBC,
		Origin:       KeyOriginSecretStore,
		Primary:      deriveSafeStorageKey(storePassword, cbcIterationsLinux),
		V10:          deriveSafeStorageKey(fallbackSafeStoragePassword, cbcIterationsLinux),
		EncodePrefix: "v11",
	}
}

func testMacKey(t *testing.T, password string) MasterKey {
	t.Helper()
	return MasterKey{
		Scheme:       SchemeCBC,
		Origin:       KeyOriginSecretStore,
		Primary:      deriveSafeStorageKey(password, cbcIterationsMacOS),
		EncodePrefix: "v10",
	}
}

func testWindowsKey(t *testing.T, primary, appBound []byte) MasterKey {
	t.Helper()
	return MasterKey{
		Scheme:       SchemeGCM,
		Origin:       KeyOriginSecretStore,
		Primary:      primary,
		AppBound:     appBound,
		EncodePrefix: "v10",
	}
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
