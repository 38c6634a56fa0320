package cookieferry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// locateProfiles enumerates a browser's profiles and their credential store
// paths. Absent stores are skipped with a warning, never an error: partial
// coverage across installed browsers is expected.
func locateProfiles(b Browser, override string) ([]Profile, []string) {
	if override != "" {
		profiles, warnings := profilesFromOverride(b, override)
		return profiles, warnings
	}

	var out []Profile
	var warnings []string
	for _, root := range userDataDirs(b) {
		profiles, w := profilesFromUserDataDir(b, root)
		warnings = append(warnings, w...)
		out = append(out, profiles...)
	}
	return out, warnings
}

func profilesFromUserDataDir(b Browser, userDataDir string) ([]Profile, []string) {
	localStatePath := filepath.Join(userDataDir, "Local State")
	localStateBytes, err := os.ReadFile(localStatePath)
	if err != nil {
		return nil, nil
	}

	var localState struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(localStateBytes, &localState); err != nil {
		// Fallback: still probe Default.
		if p, ok := profileForDir(b, userDataDir, "Default", "Default", true); ok {
			return []Profile{p}, []string{fmt.Sprintf("cookieferry: failed to parse Local State (%s): %v", userDataDir, err)}
		}
		return nil, []string{fmt.Sprintf("cookieferry: failed to parse Local State (%s): %v", userDataDir, err)}
	}

	var out []Profile
	for profDir, prof := range localState.Profile.InfoCache {
		name := prof.Name
		if name == "" {
			name = profDir
		}
		if p, ok := profileForDir(b, userDataDir, profDir, name, profDir == "Default"); ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		if p, ok := profileForDir(b, userDataDir, "Default", "Default", true); ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func profileForDir(b Browser, userDataDir, profDir, profName string, isDefault bool) (Profile, bool) {
	dir := filepath.Join(userDataDir, profDir)
	p := Profile{
		Browser:     b,
		Name:        profName,
		Dir:         dir,
		UserDataDir: userDataDir,
		IsDefault:   isDefault,
		CookiesDB:   cookiesDBPath(dir),
		LoginDB:     loginDBPath(dir),
	}
	if p.CookiesDB == "" && p.LoginDB == "" {
		return Profile{}, false
	}
	return p, true
}

func cookiesDBPath(profileDir string) string {
	candidates := []string{
		filepath.Join(profileDir, "Network", "Cookies"),
		filepath.Join(profileDir, "Cookies"),
	}
	for _, p := range candidates {
		if fileExists(p) {
			return p
		}
	}
	return ""
}

func loginDBPath(profileDir string) string {
	p := filepath.Join(profileDir, "Login Data")
	if fileExists(p) {
		return p
	}
	return ""
}

func profilesFromOverride(b Browser, override string) ([]Profile, []string) {
	override = strings.TrimSpace(override)
	if override == "" {
		return nil, nil
	}

	// 1) Explicit profile directory.
	if fi, err := os.Stat(override); err == nil && fi.IsDir() {
		if p, ok := profileForDir(b, filepath.Dir(override), filepath.Base(override), filepath.Base(override), false); ok {
			return []Profile{p}, nil
		}
		return nil, []string{fmt.Sprintf("cookieferry: no credential stores in %q", override)}
	}

	// 2) Treat as a profile name across known roots.
	var out []Profile
	for _, root := range userDataDirs(b) {
		if p, ok := profileForDir(b, root, override, override, false); ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return nil, []string{fmt.Sprintf("cookieferry: %s profile %q not found", b, override)}
	}
	return out, nil
}

// defaultProfile picks the import destination: the Default profile when
// present, otherwise the first located one.
func defaultProfile(profiles []Profile) (Profile, bool) {
	for _, p := range profiles {
		if p.IsDefault {
			return p, true
		}
	}
	if len(profiles) > 0 {
		return profiles[0], true
	}
	return Profile{}, false
}

func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
