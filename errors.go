package cookieferry

import "errors"

// Error taxonomy. Record-level failures (ErrAuthenticationFailed,
// ErrLegacyUnsupported) are counted per product and never abort siblings;
// container-level failures (ErrDecryptionFailed, ErrUnsupportedFormat) abort
// the whole run before any record processing.
var (
	// ErrKeyUnavailable means the secret store was inaccessible and no
	// fallback key is defined for the platform (or RequireSecretStore is set).
	ErrKeyUnavailable = errors.New("cookieferry: master key unavailable")

	// ErrAuthenticationFailed is a per-record tag or padding mismatch during
	// blob decode.
	ErrAuthenticationFailed = errors.New("cookieferry: blob authentication failed")

	// ErrDecryptionFailed means the container could not be opened: wrong
	// password or corrupted file. The two cases are deliberately not
	// distinguished.
	ErrDecryptionFailed = errors.New("cookieferry: container decryption failed")

	// ErrUnsupportedFormat is an unrecognized container or blob version.
	ErrUnsupportedFormat = errors.New("cookieferry: unsupported format")

	// ErrLegacyUnsupported is a blob using the pre-v10 OS-account-bound
	// scheme, which cannot be carried across machines.
	ErrLegacyUnsupported = errors.New("cookieferry: legacy encrypted value is not portable")

	// ErrStorageLocked means all extraction tiers failed to snapshot the
	// credential database.
	ErrStorageLocked = errors.New("cookieferry: credential database locked")

	// ErrWriteFailed means the destination write was aborted and the
	// pre-write backup restored.
	ErrWriteFailed = errors.New("cookieferry: destination write failed")
)
