package cookieferry

import (
	"context"
	"fmt"
	"sort"
)

// Import opens a sealed container and writes its credentials into the
// destination machine's profiles, re-encrypted under the destination keys.
// A container that fails to open aborts the whole run; per-product write
// failures are reported and leave the touched database restored.
func Import(ctx context.Context, container []byte, password string, opts Options) (ImportResult, error) {
	if password == "" {
		return ImportResult{}, ErrNoPassword
	}
	opts = withDefaults(opts)

	pkg, err := OpenContainer(container, password)
	if err != nil {
		return ImportResult{}, err
	}

	labels := make([]string, 0, len(pkg.Browsers))
	for label := range pkg.Browsers {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	var res ImportResult
	for _, label := range labels {
		data := pkg.Browsers[label]
		b, ok := browserByLabel(label)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cookieferry: unknown product %q in container; skipping", label))
			continue
		}
		if !browserSelected(b, opts.Browsers) {
			continue
		}
		vendor := vendorForBrowser(b)

		profiles, warns := locateProfiles(b, opts.Profiles[b])
		res.Warnings = append(res.Warnings, warns...)
		if len(profiles) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cookieferry: %s not installed; skipping", vendor.label))
			continue
		}
		target, ok := defaultProfile(profiles)
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("cookieferry: %s has no usable profile; skipping", vendor.label))
			continue
		}

		key, keyWarns, err := resolveMasterKey(vendor, profiles, opts)
		res.Warnings = append(res.Warnings, keyWarns...)
		if err != nil {
			res.Reports = append(res.Reports, ProductReport{Browser: b, Profile: target.Name, Err: err})
			continue
		}

		report, warns := importProduct(ctx, vendor, target, data, key)
		res.Warnings = append(res.Warnings, warns...)
		res.Reports = append(res.Reports, report)
	}
	return res, nil
}

func importProduct(ctx context.Context, vendor vendorInfo, target Profile, data ProductData, key MasterKey) (ProductReport, []string) {
	report := ProductReport{Browser: vendor.browser, Profile: target.Name}
	var warnings []string

	if len(data.Cookies) > 0 {
		if target.CookiesDB == "" {
			warnings = append(warnings, fmt.Sprintf("cookieferry: %s profile %s has no cookie store; cookies skipped", vendor.label, target.Name))
		} else {
			written, backup, err := writeCookieRows(ctx, target.CookiesDB, data.Cookies, key)
			if err != nil {
				report.Err = err
				warnings = append(warnings, fmt.Sprintf("cookieferry: %s cookies: %v", vendor.label, err))
				return report, warnings
			}
			report.Cookies = written
			warnings = append(warnings, fmt.Sprintf("cookieferry: %s cookie store backed up to %s", vendor.label, backup))
		}
	}

	if len(data.Passwords) > 0 {
		if target.LoginDB == "" {
			warnings = append(warnings, fmt.Sprintf("cookieferry: %s profile %s has no login store; passwords skipped", vendor.label, target.Name))
		} else {
			written, backup, err := writeLoginRows(ctx, target.LoginDB, data.Passwords, key)
			if err != nil {
				report.Err = err
				warnings = append(warnings, fmt.Sprintf("cookieferry: %s passwords: %v", vendor.label, err))
				return report, warnings
			}
			report.Passwords = written
			warnings = append(warnings, fmt.Sprintf("cookieferry: %s login store backed up to %s", vendor.label, backup))
		}
	}
	return report, warnings
}

func browserSelected(b Browser, selected []Browser) bool {
	for _, s := range selected {
		if s == b {
			return true
		}
	}
	return false
}
