package cookieferry

import (
	"context"
	"errors"
	"fmt"
	"os/user"
	"runtime"
	"time"
	"unicode/utf8"
)

// ErrNoPassword is returned when the backup password is empty.
var ErrNoPassword = errors.New("cookieferry: backup password required")

const exportTimeLayout = "2006-01-02 15:04:05"

// Export extracts every located profile's credentials, decrypts them with the
// source machine's keys, and seals them into a portable container. Record
// failures are counted per product; products never abort each other.
func Export(ctx context.Context, password string, opts Options) (ExportResult, error) {
	if password == "" {
		return ExportResult{}, ErrNoPassword
	}
	opts = withDefaults(opts)

	pkg := BackupPackage{
		ExportTime: time.Now().Format(exportTimeLayout),
		Username:   currentUsername(),
		Platform:   runtime.GOOS,
		Browsers:   make(map[string]ProductData),
	}

	var res ExportResult
	for _, b := range opts.Browsers {
		vendor := vendorForBrowser(b)

		profiles, warns := locateProfiles(b, opts.Profiles[b])
		res.Warnings = append(res.Warnings, warns...)
		if len(profiles) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cookieferry: %s credential stores not found; skipping", vendor.label))
			continue
		}

		key, keyWarns, err := resolveMasterKey(vendor, profiles, opts)
		res.Warnings = append(res.Warnings, keyWarns...)
		if err != nil {
			res.Reports = append(res.Reports, ProductReport{Browser: b, Err: err})
			continue
		}

		data, report, warns := exportProduct(ctx, vendor, profiles, key)
		res.Warnings = append(res.Warnings, warns...)
		res.Reports = append(res.Reports, report)
		if report.Err == nil {
			pkg.Browsers[vendor.label] = data
		}
	}

	container, err := SealContainer(pkg, password)
	if err != nil {
		return res, err
	}
	res.Container = container
	return res, nil
}

func exportProduct(ctx context.Context, vendor vendorInfo, profiles []Profile, key MasterKey) (ProductData, ProductReport, []string) {
	data := ProductData{}
	report := ProductReport{Browser: vendor.browser}
	var warnings []string

	for _, p := range profiles {
		if report.Profile == "" {
			report.Profile = p.Name
		}

		if p.CookiesDB != "" {
			cookies, failed, w, err := exportCookies(ctx, vendor, p, key)
			warnings = append(warnings, w...)
			if err != nil {
				report.Err = err
				return data, report, warnings
			}
			data.Cookies = append(data.Cookies, cookies...)
			report.Failed += failed
		}

		if p.LoginDB != "" {
			passwords, failed, w, err := exportPasswords(ctx, vendor, p, key)
			warnings = append(warnings, w...)
			if err != nil {
				report.Err = err
				return data, report, warnings
			}
			data.Passwords = append(data.Passwords, passwords...)
			report.Failed += failed
		}
	}

	data.CookieCount = len(data.Cookies)
	data.PasswordCount = len(data.Passwords)
	report.Cookies = data.CookieCount
	report.Passwords = data.PasswordCount
	return data, report, warnings
}

func exportCookies(ctx context.Context, vendor vendorInfo, p Profile, key MasterKey) ([]CookieRecord, int, []string, error) {
	snapPath, cleanup, _, err := snapshotDatabase(ctx, p.CookiesDB)
	if err != nil {
		return nil, 0, nil, err
	}
	defer cleanup()

	db, err := openSnapshotDB(ctx, snapPath)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrStorageLocked, err)
	}
	defer func() { _ = db.Close() }()

	metaVersion := dbMetaVersion(ctx, db)
	rows, err := readCookieRows(ctx, db)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrStorageLocked, err)
	}

	var out []CookieRecord
	var failed int
	var warnings []string
	for _, row := range rows {
		if row.name == "" || row.hostKey == "" {
			continue
		}

		value := row.value
		if value == "" && len(row.encryptedValue) > 0 {
			plain, err := DecryptBlob(row.encryptedValue, key)
			if err != nil {
				failed++
				warnings = append(warnings, fmt.Sprintf("cookieferry: %s cookie %s/%s: %v", vendor.label, row.hostKey, row.name, err))
				continue
			}
			plain = stripDomainHash(plain, metaVersion)
			if !utf8.Valid(plain) {
				failed++
				warnings = append(warnings, fmt.Sprintf("cookieferry: %s cookie %s/%s: decrypted value is not text", vendor.label, row.hostKey, row.name))
				continue
			}
			value = string(plain)
		}

		path := row.path
		if path == "" {
			path = "/"
		}
		out = append(out, CookieRecord{
			Host:     row.hostKey,
			Name:     row.name,
			Value:    value,
			Path:     path,
			Expires:  row.expiresUTC,
			Secure:   row.isSecure,
			HTTPOnly: row.isHTTPOnly,
			SameSite: row.sameSite,
		})
	}
	return out, failed, warnings, nil
}

func exportPasswords(ctx context.Context, vendor vendorInfo, p Profile, key MasterKey) ([]PasswordRecord, int, []string, error) {
	snapPath, cleanup, _, err := snapshotDatabase(ctx, p.LoginDB)
	if err != nil {
		return nil, 0, nil, err
	}
	defer cleanup()

	db, err := openSnapshotDB(ctx, snapPath)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrStorageLocked, err)
	}
	defer func() { _ = db.Close() }()

	rows, err := readLoginRows(ctx, db)
	if err != nil {
		return nil, 0, nil, fmt.Errorf("%w: %v", ErrStorageLocked, err)
	}

	var out []PasswordRecord
	var failed int
	var warnings []string
	for _, row := range rows {
		if len(row.passwordValue) == 0 {
			continue
		}
		plain, err := DecryptBlob(row.passwordValue, key)
		if err != nil {
			failed++
			warnings = append(warnings, fmt.Sprintf("cookieferry: %s login %s (%s): %v", vendor.label, row.originURL, row.username, err))
			continue
		}
		out = append(out, PasswordRecord{
			OriginURL: row.originURL,
			Username:  row.username,
			Password:  string(plain),
		})
	}
	return out, failed, warnings, nil
}

func withDefaults(opts Options) Options {
	if opts.Timeout <= 0 {
		opts.Timeout = 3 * time.Second
	}
	if len(opts.Browsers) == 0 {
		opts.Browsers = DefaultBrowsers()
	}
	return opts
}

func currentUsername() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}
