package cookieferry

import (
	"bytes"
	"errors"
	"testing"
)

func TestCBCMasterKey_StoreBacked(t *testing.T) {
	key, warnings, err := cbcMasterKey("store-pw", nil, cbcIterationsLinux, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings: %v", warnings)
	}
	if key.Origin != KeyOriginSecretStore {
		t.Fatalf("want origin %q got %q", KeyOriginSecretStore, key.Origin)
	}
	if key.EncodePrefix != "v11" {
		t.Fatalf("dual-key store-backed encode prefix: want v11 got %q", key.EncodePrefix)
	}
	if !bytes.Equal(key.Primary, deriveSafeStorageKey("store-pw", cbcIterationsLinux)) {
		t.Fatal("primary key not derived from the store password")
	}
	if !bytes.Equal(key.V10, deriveSafeStorageKey(fallbackSafeStoragePassword, cbcIterationsLinux)) {
		t.Fatal("v10 key not derived from the constant password")
	}
}

func TestCBCMasterKey_FallbackOnLookupError(t *testing.T) {
	key, warnings, err := cbcMasterKey("", errors.New("no keyring"), cbcIterationsLinux, true, false)
	if err != nil {
		t.Fatal(err)
	}
	if key.Origin != KeyOriginFallback {
		t.Fatalf("want origin %q got %q", KeyOriginFallback, key.Origin)
	}
	if key.EncodePrefix != "v10" {
		t.Fatalf("fallback encode prefix: want v10 got %q", key.EncodePrefix)
	}
	if len(warnings) == 0 {
		t.Fatal("fallback must produce a warning")
	}
	if !bytes.Equal(key.Primary, deriveSafeStorageKey(fallbackSafeStoragePassword, cbcIterationsLinux)) {
		t.Fatal("fallback primary must come from the constant password")
	}
}

func TestCBCMasterKey_FallbackOnEmptyPassword(t *testing.T) {
	key, warnings, err := cbcMasterKey("   ", nil, cbcIterationsMacOS, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if key.Origin != KeyOriginFallback {
		t.Fatalf("want origin %q got %q", KeyOriginFallback, key.Origin)
	}
	if len(warnings) == 0 {
		t.Fatal("fallback must produce a warning")
	}
}

func TestCBCMasterKey_RequireSecretStore(t *testing.T) {
	_, _, err := cbcMasterKey("", errors.New("no keyring"), cbcIterationsLinux, true, true)
	if !errors.Is(err, ErrKeyUnavailable) {
		t.Fatalf("want ErrKeyUnavailable, got %v", err)
	}

	_, _, err = cbcMasterKey("", nil, cbcIterationsLinux, true, true)
	if !errors.Is(err, ErrKeyUnavailable) {
		t.Fatalf("empty password: want ErrKeyUnavailable, got %v", err)
	}
}

func TestCBCMasterKey_SingleKeyPlatform(t *testing.T) {
	key, _, err := cbcMasterKey("pw", nil, cbcIterationsMacOS, false, false)
	if err != nil {
		t.Fatal(err)
	}
	if key.V10 != nil {
		t.Fatal("non-dual platforms must not carry a separate v10 key")
	}
	if key.EncodePrefix != "v10" {
		t.Fatalf("want v10 got %q", key.EncodePrefix)
	}
}

func TestDeriveSafeStorageKey_Deterministic(t *testing.T) {
	a := deriveSafeStorageKey("peanuts", cbcIterationsLinux)
	b := deriveSafeStorageKey("peanuts", cbcIterationsLinux)
	if !bytes.Equal(a, b) {
		t.Fatal("derivation must be deterministic")
	}
	if len(a) != cbcKeyLen {
		t.Fatalf("want %d-byte key, got %d", cbcKeyLen, len(a))
	}
	if bytes.Equal(a, deriveSafeStorageKey("peanuts", cbcIterationsMacOS)) {
		t.Fatal("iteration count must change the derived key")
	}
}
