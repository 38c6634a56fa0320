//go:build windows

package cookieferry

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"golang.org/x/sys/windows"
)

// Windows has no constant fallback password: the master key lives DPAPI-wrapped
// in Local State and nowhere else, so store failure is ErrKeyUnavailable.
func resolveMasterKey(vendor vendorInfo, profiles []Profile, _ Options) (MasterKey, []string, error) {
	userDataDir := ""
	for _, p := range profiles {
		if p.UserDataDir != "" {
			userDataDir = p.UserDataDir
			break
		}
	}
	if userDataDir == "" {
		return MasterKey{}, nil, fmt.Errorf("%w: %s Local State path unavailable", ErrKeyUnavailable, vendor.label)
	}

	key, appBound, warnings, err := windowsMasterKeys(userDataDir)
	if err != nil {
		return MasterKey{}, warnings, fmt.Errorf("%w: %s master key read failed: %v", ErrKeyUnavailable, vendor.label, err)
	}

	return MasterKey{
		Scheme:       SchemeGCM,
		Origin:       KeyOriginSecretStore,
		Primary:      key,
		AppBound:     appBound,
		EncodePrefix: "v10",
	}, warnings, nil
}

func windowsMasterKeys(userDataDir string) (key []byte, appBound []byte, warnings []string, err error) {
	statePath := filepath.Join(userDataDir, "Local State")
	stateBytes, err := os.ReadFile(statePath)
	if err != nil {
		return nil, nil, nil, err
	}

	var localState struct {
		OSCrypt struct {
			EncryptedKey         string `json:"encrypted_key"`
			AppBoundEncryptedKey string `json:"app_bound_encrypted_key"`
		} `json:"os_crypt"`
	}
	if err := json.Unmarshal(stateBytes, &localState); err != nil {
		return nil, nil, nil, err
	}

	key, err = unwrapLocalStateKey(localState.OSCrypt.EncryptedKey, "DPAPI")
	if err != nil {
		return nil, nil, nil, err
	}
	if len(key) != 32 {
		return nil, nil, nil, fmt.Errorf("master key not 32 bytes (got %d)", len(key))
	}

	// Best effort: v20 records need the app-bound key, and the plain DPAPI
	// unwrap only succeeds in contexts the browser considers its own.
	if localState.OSCrypt.AppBoundEncryptedKey != "" {
		appBound, err = unwrapLocalStateKey(localState.OSCrypt.AppBoundEncryptedKey, "APPB")
		if err != nil || len(appBound) != 32 {
			warnings = append(warnings, fmt.Sprintf("cookieferry: app-bound key unwrap failed; v20 records will be skipped: %v", err))
			appBound = nil
		}
	}
	return key, appBound, warnings, nil
}

func unwrapLocalStateKey(encB64 string, prefix string) ([]byte, error) {
	if encB64 == "" {
		return nil, errors.New("local state missing os_crypt key")
	}
	enc, err := base64.StdEncoding.DecodeString(encB64)
	if err != nil {
		return nil, err
	}
	if !bytes.HasPrefix(enc, []byte(prefix)) {
		return nil, fmt.Errorf("encrypted key missing %s prefix", prefix)
	}
	return dpapiUnprotect(enc[len(prefix):])
}

func dpapiUnprotect(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, errors.New("empty dpapi input")
	}

	var outBlob dataBlob
	if err := cryptUnprotectData(newBlob(data), &outBlob); err != nil {
		return nil, err
	}
	defer func() {
		_, _ = windows.LocalFree(windows.Handle(unsafe.Pointer(outBlob.pbData))) //nolint:gosec // Windows API requires this.
	}()
	return outBlob.bytes(), nil
}

type dataBlob struct {
	cbData uint32
	pbData *byte
}

func newBlob(d []byte) *dataBlob {
	if len(d) == 0 {
		return &dataBlob{}
	}
	return &dataBlob{pbData: &d[0], cbData: uint32(len(d))}
}

func (b *dataBlob) bytes() []byte {
	if b == nil || b.cbData == 0 || b.pbData == nil {
		return nil
	}
	out := make([]byte, b.cbData)
	copy(out, (*[1 << 30]byte)(unsafe.Pointer(b.pbData))[:b.cbData:b.cbData])
	return out
}

func cryptUnprotectData(in *dataBlob, out *dataBlob) error {
	// windows.CryptUnprotectData wrapper in x/sys is awkward for raw blobs; call proc directly.
	dll := windows.NewLazySystemDLL("Crypt32.dll")
	proc := dll.NewProc("CryptUnprotectData")
	const cryptprotectUIForbidden = 0x1
	r, _, e := proc.Call(
		uintptr(unsafe.Pointer(in)),
		0,
		0,
		0,
		0,
		cryptprotectUIForbidden,
		uintptr(unsafe.Pointer(out)),
	)
	if r == 0 {
		return e
	}
	return nil
}
