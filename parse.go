package cookieferry

import (
	"strconv"
	"strings"
	"time"
)

func parseInt64(s string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(s), 10, 64)
}

func envKeySafeStoragePassword(b Browser) string {
	switch b {
	case BrowserChrome:
		return "COOKIEFERRY_CHROME_SAFE_STORAGE_PASSWORD"
	case BrowserEdge:
		return "COOKIEFERRY_EDGE_SAFE_STORAGE_PASSWORD"
	case BrowserBrave:
		return "COOKIEFERRY_BRAVE_SAFE_STORAGE_PASSWORD"
	case BrowserChromium:
		return "COOKIEFERRY_CHROMIUM_SAFE_STORAGE_PASSWORD"
	case BrowserVivaldi:
		return "COOKIEFERRY_VIVALDI_SAFE_STORAGE_PASSWORD"
	case BrowserOpera:
		return "COOKIEFERRY_OPERA_SAFE_STORAGE_PASSWORD"
	default:
		return "COOKIEFERRY_SAFE_STORAGE_PASSWORD"
	}
}

// Chromium stores times as microseconds since 1601-01-01 UTC.
const chromiumEpochOffsetMicros = int64(11644473600000000)

func chromiumNowMicros() int64 {
	return time.Now().UnixMicro() + chromiumEpochOffsetMicros
}
