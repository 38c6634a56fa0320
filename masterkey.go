package cookieferry

import (
	"fmt"
	"strings"
)

// fallbackSafeStoragePassword is the browser's publicly documented constant
// password used when no secret store is configured. Profiles protected only
// by it offer no real confidentiality at rest; resolution reports this
// through KeyOriginFallback and a warning.
const fallbackSafeStoragePassword = "peanuts"

// resolveMasterKey obtains the protection key for a vendor's profiles.
// Implemented per platform in masterkey_*.go; resolution is a pure read,
// with no side effects on the store.
//
// resolveMasterKey(vendor, profiles, opts) (MasterKey, warnings, error)

// cbcMasterKey assembles key material for the CBC platforms from a secret
// store lookup result. A failed or empty lookup falls back to the well-known
// constant password unless requireStore is set, mirroring the browser's own
// behavior so headless systems keep working.
//
// dualKey is the Linux layout: v10 records are always keyed by the constant
// password regardless of keyring state, v11 records by the store password.
func cbcMasterKey(password string, lookupErr error, iterations int, dualKey bool, requireStore bool) (MasterKey, []string, error) {
	password = strings.TrimSpace(password)

	var warnings []string
	origin := KeyOriginSecretStore
	if lookupErr != nil || password == "" {
		if requireStore {
			if lookupErr != nil {
				return MasterKey{}, nil, fmt.Errorf("%w: secret store lookup failed: %v", ErrKeyUnavailable, lookupErr)
			}
			return MasterKey{}, nil, fmt.Errorf("%w: secret store returned an empty password", ErrKeyUnavailable)
		}
		if lookupErr != nil {
			warnings = append(warnings, fmt.Sprintf("cookieferry: secret store unavailable (%v); using the well-known fallback key, values are not confidential at rest", lookupErr))
		} else {
			warnings = append(warnings, "cookieferry: secret store entry absent; using the well-known fallback key, values are not confidential at rest")
		}
		password = fallbackSafeStoragePassword
		origin = KeyOriginFallback
	}

	key := MasterKey{
		Scheme:  SchemeCBC,
		Origin:  origin,
		Primary: deriveSafeStorageKey(password, iterations),
	}
	if dualKey {
		key.V10 = deriveSafeStorageKey(fallbackSafeStoragePassword, iterations)
		// New records are store-keyed v11 when the store answered, v10 otherwise.
		key.EncodePrefix = "v11"
		if origin == KeyOriginFallback {
			key.EncodePrefix = "v10"
		}
	} else {
		key.EncodePrefix = "v10"
	}
	return key, warnings, nil
}
