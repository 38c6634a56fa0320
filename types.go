package cookieferry

import "time"

// Browser identifies a Chromium-family browser product.
type Browser string

const (
	// BrowserChrome is Google Chrome.
	BrowserChrome Browser = "chrome"
	// BrowserChromium is Chromium.
	BrowserChromium Browser = "chromium"
	// BrowserEdge is Microsoft Edge.
	BrowserEdge Browser = "edge"
	// BrowserBrave is Brave Browser.
	BrowserBrave Browser = "brave"
	// BrowserVivaldi is Vivaldi.
	BrowserVivaldi Browser = "vivaldi"
	// BrowserOpera is Opera.
	BrowserOpera Browser = "opera"
)

// DefaultBrowsers returns the default product processing order.
func DefaultBrowsers() []Browser {
	return []Browser{
		BrowserChrome,
		BrowserEdge,
		BrowserBrave,
		BrowserChromium,
		BrowserVivaldi,
		BrowserOpera,
	}
}

// KeyOrigin records where a profile's master key came from.
type KeyOrigin string

const (
	// KeyOriginSecretStore means the key was read from the platform secret store.
	KeyOriginSecretStore KeyOrigin = "secret-store"
	// KeyOriginFallback means the browser's well-known constant fallback key is
	// in use. Values protected only by it are not confidential at rest.
	KeyOriginFallback KeyOrigin = "fallback"
)

// BlobScheme is the per-record cipher layout a platform's blobs use.
type BlobScheme int

const (
	// SchemeCBC is AES-128-CBC with the fixed Chromium IV (Linux, macOS).
	// The on-disk format carries no per-record nonce.
	SchemeCBC BlobScheme = iota
	// SchemeGCM is AES-256-GCM with a 12-byte random nonce after the version
	// prefix (Windows).
	SchemeGCM
)

// MasterKey is the resolved protection key material for one browser profile.
// It is never persisted; it lives only in memory for the duration of a run.
type MasterKey struct {
	Scheme BlobScheme
	Origin KeyOrigin

	// Primary keys v11 records on CBC platforms and v10 records on GCM
	// platforms. On macOS it keys everything.
	Primary []byte

	// V10 is the constant "peanuts"-derived key Linux Chromium uses for v10
	// records regardless of keyring state. Nil on other platforms.
	V10 []byte

	// AppBound unlocks v20 records when the app-bound key could be unwrapped.
	AppBound []byte

	// EncodePrefix is the version tag newly written records carry.
	EncodePrefix string
}

// CookieRecord is a decrypted cookie row. Field names follow the container
// payload format.
type CookieRecord struct {
	Host     string `json:"host"`
	Name     string `json:"name"`
	Value    string `json:"value"`
	Path     string `json:"path"`
	Expires  int64  `json:"expires"` // Chromium epoch microseconds
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httponly"`
	SameSite int64  `json:"samesite"`
}

// PasswordRecord is a decrypted saved-password row.
type PasswordRecord struct {
	OriginURL string `json:"url"`
	Username  string `json:"username"`
	Password  string `json:"password"`
}

// ProductData holds one browser product's records inside a BackupPackage.
type ProductData struct {
	Cookies       []CookieRecord   `json:"cookies"`
	Passwords     []PasswordRecord `json:"passwords"`
	CookieCount   int              `json:"cookies_count"`
	PasswordCount int              `json:"passwords_count"`
}

// BackupPackage is the plaintext export payload. It exists only in memory and
// as the transient plaintext input of SealContainer, never on disk.
type BackupPackage struct {
	ExportTime string                 `json:"export_time"`
	Username   string                 `json:"username"`
	Platform   string                 `json:"platform"`
	Browsers   map[string]ProductData `json:"browsers"`
}

// Profile describes one browser profile's credential stores on disk.
type Profile struct {
	Browser     Browser
	Name        string
	Dir         string
	UserDataDir string
	IsDefault   bool

	// CookiesDB and LoginDB are empty when the store file is absent.
	CookiesDB string
	LoginDB   string
}

// Options configures an export or import run.
type Options struct {
	// Browsers is the product list to process. If empty, DefaultBrowsers() is used.
	Browsers []Browser

	// Profiles overrides per-browser profile selection: a profile name
	// (e.g. "Default"), a profile directory, or an explicit DB path's directory.
	Profiles map[Browser]string

	// RequireSecretStore turns secret-store unavailability into a hard
	// ErrKeyUnavailable instead of the documented fallback key.
	RequireSecretStore bool

	// Timeout bounds OS helper calls (keychain/keyring lookups).
	Timeout time.Duration
}

// ProductReport is the per-product outcome of an export or import run.
type ProductReport struct {
	Browser   Browser
	Profile   string
	Cookies   int
	Passwords int
	// Failed counts records that could not be decoded or encoded.
	Failed int
	// Err is set when the whole product was aborted.
	Err error
}

// ExportResult is returned by Export. Container holds the sealed backup;
// the plaintext package is not retained.
type ExportResult struct {
	Container []byte
	Reports   []ProductReport
	Warnings  []string
}

// ImportResult is returned by Import.
type ImportResult struct {
	Reports  []ProductReport
	Warnings []string
}
