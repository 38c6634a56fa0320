package cookieferry

import (
	"errors"
	"io"
	"os"
	"time"
)

const backupTimestampLayout = "20060102_150405"

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Sync()
}

func copyFileIfExists(src, dst string) error {
	if _, err := os.Stat(src); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	return copyFile(src, dst)
}

// backupTimestamped copies path aside before a destructive write and returns
// the backup location, e.g. "Cookies.backup_20260830_140502".
func backupTimestamped(path string) (string, error) {
	backupPath := path + ".backup_" + time.Now().Format(backupTimestampLayout)
	if err := copyFile(path, backupPath); err != nil {
		return "", err
	}
	return backupPath, nil
}

// restoreFromBackup puts the pre-write state back after a failed write.
func restoreFromBackup(backupPath, path string) error {
	return copyFile(backupPath, path)
}
