//go:build darwin && !ios

package cookieferry

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"
)

func resolveMasterKey(vendor vendorInfo, _ []Profile, opts Options) (MasterKey, []string, error) {
	if override := strings.TrimSpace(os.Getenv(envKeySafeStoragePassword(vendor.browser))); override != "" {
		return cbcMasterKey(override, nil, cbcIterationsMacOS, false, false)
	}

	password, err := macosReadKeychainPassword(opts.Timeout, vendor.safeStorageService, vendor.safeStorageAccount)
	return cbcMasterKey(password, err, cbcIterationsMacOS, false, opts.RequireSecretStore)
}

func macosReadKeychainPassword(timeout time.Duration, service string, account string) (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	stdout, stderr, err := execCapture(ctx, "security", []string{
		"find-generic-password",
		"-w",
		"-a", account,
		"-s", service,
	})
	if err != nil {
		if stderr != "" {
			return "", fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr))
		}
		return "", err
	}
	return strings.TrimSpace(stdout), nil
}
