package cookieferry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

type loginRow struct {
	originURL     string
	username      string
	passwordValue []byte
}

func readLoginRows(ctx context.Context, db *sql.DB) ([]loginRow, error) {
	if db == nil {
		return nil, errors.New("nil db")
	}

	rows, err := db.QueryContext(ctx, `
		SELECT origin_url, username_value, password_value
		FROM logins
		ORDER BY origin_url, username_value`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []loginRow
	for rows.Next() {
		var r loginRow
		if err := rows.Scan(&r.originURL, &r.username, &r.passwordValue); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// writeLoginRows mirrors writeCookieRows for the Login Data database:
// timestamped backup, one transaction, restore on any failure.
func writeLoginRows(ctx context.Context, dbPath string, records []PasswordRecord, key MasterKey) (written int, backupPath string, err error) {
	backupPath, err = backupTimestamped(dbPath)
	if err != nil {
		return 0, "", fmt.Errorf("%w: backup: %v", ErrWriteFailed, err)
	}

	written, err = writeLoginRowsTx(ctx, dbPath, records, key)
	if err != nil {
		if restoreErr := restoreFromBackup(backupPath, dbPath); restoreErr != nil {
			return 0, backupPath, fmt.Errorf("%w: %v (restore also failed: %v)", ErrWriteFailed, err, restoreErr)
		}
		return 0, backupPath, fmt.Errorf("%w: %v", ErrWriteFailed, err)
	}
	return written, backupPath, nil
}

func writeLoginRowsTx(ctx context.Context, dbPath string, records []PasswordRecord, key MasterKey) (int, error) {
	db, err := openWritableDB(ctx, dbPath)
	if err != nil {
		return 0, err
	}
	defer func() { _ = db.Close() }()

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	written := 0
	for _, rec := range records {
		blob, err := EncryptBlob([]byte(rec.Password), key)
		if err != nil {
			return 0, fmt.Errorf("login %s (%s): %w", rec.OriginURL, rec.Username, err)
		}

		if err := upsertLogin(ctx, tx, rec, blob); err != nil {
			return 0, fmt.Errorf("login %s (%s): %w", rec.OriginURL, rec.Username, err)
		}
		written++
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return written, nil
}

func upsertLogin(ctx context.Context, tx *sql.Tx, rec PasswordRecord, blob []byte) error {
	var n int64
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM logins WHERE origin_url = ? AND username_value = ?`,
		rec.OriginURL, rec.Username,
	).Scan(&n)
	if err != nil {
		return err
	}

	if n > 0 {
		_, err = tx.ExecContext(ctx,
			`UPDATE logins SET password_value = ? WHERE origin_url = ? AND username_value = ?`,
			blob, rec.OriginURL, rec.Username,
		)
		return err
	}

	now := chromiumNowMicros()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO logins (origin_url, username_value, password_value, date_created, date_last_used)
		VALUES (?, ?, ?, ?, ?)`,
		rec.OriginURL, rec.Username, blob, now, now,
	)
	return err
}
