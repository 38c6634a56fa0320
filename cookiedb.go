package cookieferry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type cookieRow struct {
	hostKey        string
	name           string
	path           string
	value          string
	encryptedValue []byte
	expiresUTC     int64
	isSecure       bool
	isHTTPOnly     bool
	sameSite       int64
}

func readCookieRows(ctx context.Context, db *sql.DB) ([]cookieRow, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT host_key, name, path, value, encrypted_value, expires_utc, is_secure, is_httponly, samesite
		FROM cookies
		ORDER BY host_key, name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []cookieRow
	for rows.Next() {
		var r cookieRow
		var encrypted []byte
		var expires, secure, httpOnly, sameSite sql.NullInt64

		if err := rows.Scan(&r.hostKey, &r.name, &r.path, &r.value, &encrypted, &expires, &secure, &httpOnly, &sameSite); err != nil {
			return nil, err
		}

		r.encryptedValue = encrypted
		if expires.Valid {
			r.expiresUTC = expires.Int64
		}
		r.isSecure = secure.Valid && secure.Int64 == 1
		r.isHTTPOnly = httpOnly.Valid && httpOnly.Int64 == 1
		if sameSite.Valid {
			r.sameSite = sameSite.Int64
		}

		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// writeCookieRows re-encrypts each record under the destination key and
// writes it into the destination Cookies database. The existing file is
// copied to a timestamped backup first; writes are all-or-nothing: any row
// failure rolls the transaction back, restores the backup, and reports
// ErrWriteFailed.
func writeCookieRows(ctx context.Context, dbPath string, records []CookieRecord, key MasterKey) (written int, backupPath string, err error) {
	backupPath, err = backupTimestamped(dbPath)
	if err != nil {
		return 0, "", fmt.Errorf("%w: backup: %v", ErrWriteFailed, err)
	}

	written, err = writeCookieRowsTx(ctx, dbPath, records, key)
	if err != nil {
		if restoreErr := restoreFromBackup(backupPath, dbPath); restoreErr != nil {
			return 0, backupPath, fmt.Errorf("%w: %v (restore also failed: %v)", ErrWriteFailed, err, restoreErr)
		}
		return 0, backupPath, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return written, backupPath, nil
}

func writeCookieRowsTx(ctx context.Context, dbPath string, records []CookieRecord, key MasterKey) (int, error) {
	db, err := openWritableDB(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	metaVersion := dbMetaVersion(ctx, db)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, rec := range records {
		plain := prependDomainHash(rec.Host, []byte(rec.Value), metaVersion)
		blob, err := EncryptBlob(plain, key)
		if err != nil {
			return 0, fmt.Errorf("cookie %s/%s: %w", rec.Host, rec.Name, err)
		}

		if err := upsertCookie(ctx, tx, rec, blob); err != nil {
			return 0, fmt.Errorf("cookie %s/%s: %w", rec.Host, rec.Name, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func upsertCookie(ctx context.Context, tx *sql.Tx, rec CookieRecord, blob []byte) error {
	var n int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM cookies WHERE host_key = ? AND name = ?`,
		rec.Host, rec.Name,
	).Scan(&n)
	if err != nil {
		return err
	}

	if n > 0 {
		_, err = tx.ExecContext(ctx, `
			UPDATE cookies
			SET encrypted_value = ?, value = '', path = ?, expires_utc = ?, is_secure = ?, is_httponly = ?, samesite = ?
			WHERE host_key = ? AND name = ?`,
			blob, rec.Path, rec.Expires, boolToInt(rec.Secure), boolToInt(rec.HTTPOnly), rec.SameSite,
			rec.Host, rec.Name,
		)
		return err
	}

	now := chromiumNowMicros()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cookies (creation_utc, host_key, name, value, encrypted_value, path, expires_utc, is_secure, is_httponly, samesite, last_access_utc)
		VALUES (?, ?, ?, '', ?, ?, ?, ?, ?, ?, ?)`,
		now, rec.Host, rec.Name, blob, rec.Path, rec.Expires,
		boolToInt(rec.Secure), boolToInt(rec.HTTPOnly), rec.SameSite, now,
	)
	return err
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
