package cookieferry

import "fmt"

type vendorInfo struct {
	browser Browser

	// user-visible; also the product key inside a BackupPackage
	label string

	// "Safe Storage" secret identifier.
	safeStorageService string
	safeStorageAccount string
}

func vendorForBrowser(b Browser) vendorInfo {
	switch b {
	case BrowserChrome:
		return vendorInfo{browser: b, label: "Chrome", safeStorageService: "Chrome Safe Storage", safeStorageAccount: "Chrome"}
	case BrowserChromium:
		return vendorInfo{browser: b, label: "Chromium", safeStorageService: "Chromium Safe Storage", safeStorageAccount: "Chromium"}
	case BrowserEdge:
		return vendorInfo{browser: b, label: "Microsoft Edge", safeStorageService: "Microsoft Edge Safe Storage", safeStorageAccount: "Microsoft Edge"}
	case BrowserBrave:
		return vendorInfo{browser: b, label: "Brave", safeStorageService: "Brave Safe Storage", safeStorageAccount: "Brave"}
	case BrowserVivaldi:
		return vendorInfo{browser: b, label: "Vivaldi", safeStorageService: "Vivaldi Safe Storage", safeStorageAccount: "Vivaldi"}
	case BrowserOpera:
		return vendorInfo{browser: b, label: "Opera", safeStorageService: "Opera Safe Storage", safeStorageAccount: "Opera"}
	default:
		return vendorInfo{browser: b, label: string(b), safeStorageService: fmt.Sprintf("%s Safe Storage", b), safeStorageAccount: string(b)}
	}
}

func knownBrowser(b Browser) bool {
	for _, k := range DefaultBrowsers() {
		if k == b {
			return true
		}
	}
	return false
}

// browserByLabel maps a BackupPackage product key back to a Browser.
func browserByLabel(label string) (Browser, bool) {
	for _, b := range DefaultBrowsers() {
		if vendorForBrowser(b).label == label {
			return b, true
		}
	}
	return "", false
}
