//go:build linux && !android

package cookieferry

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/zalando/go-keyring"
)

func resolveMasterKey(vendor vendorInfo, _ []Profile, opts Options) (MasterKey, []string, error) {
	// Escape hatch for deterministic tooling/CI.
	if override := strings.TrimSpace(os.Getenv(envKeySafeStoragePassword(vendor.browser))); override != "" {
		return cbcMasterKey(override, nil, cbcIterationsLinux, true, false)
	}

	password, err := linuxSafeStoragePassword(vendor, opts.Timeout)
	return cbcMasterKey(password, err, cbcIterationsLinux, true, opts.RequireSecretStore)
}

func linuxSafeStoragePassword(vendor vendorInfo, timeout time.Duration) (string, error) {
	pw, keyringErr := keyring.Get(vendor.safeStorageService, vendor.safeStorageAccount)
	if keyringErr == nil && strings.TrimSpace(pw) != "" {
		return strings.TrimSpace(pw), nil
	}

	pw, toolErr := linuxSecretToolLookup(timeout, vendor.safeStorageService, vendor.safeStorageAccount)
	if toolErr == nil && strings.TrimSpace(pw) != "" {
		return pw, nil
	}

	if keyringErr != nil {
		return "", keyringErr
	}
	if toolErr != nil {
		return "", toolErr
	}
	return "", errors.New("keyring entry empty")
}

func linuxSecretToolLookup(timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, _, err := execCapture(ctx, "secret-tool", []string{"lookup", "service", service, "account", account})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
