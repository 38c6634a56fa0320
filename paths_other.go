//go:build !linux && !darwin && !windows

package cookieferry

func userDataDirs(Browser) []string { return nil }
