package cookieferry

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha1" //nolint:gosec // Chromium derives Safe Storage keys with PBKDF2-SHA1 ("saltysalt").
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	safeStorageSalt       = "saltysalt"
	cbcFixedIV            = "                " // 16 spaces
	cbcIterationsLinux    = 1
	cbcIterationsMacOS    = 1003
	cbcKeyLen             = 16
	gcmNonceLen           = 12
	gcmTagLen             = 16
	blobPrefixLen         = 3
	domainHashLen         = 32
	domainHashMetaVersion = 24
)

// deriveSafeStorageKey turns a Safe Storage password into the AES-128 key
// Chromium uses for CBC-protected values.
func deriveSafeStorageKey(password string, iterations int) []byte {
	return pbkdf2.Key([]byte(password), []byte(safeStorageSalt), iterations, cbcKeyLen, sha1.New)
}

// DecryptBlob decodes one encrypted credential value. The three-byte ASCII
// version prefix selects the scheme; a record with no prefix uses the
// pre-v10 OS-account-bound layout and fails with ErrLegacyUnsupported.
func DecryptBlob(blob []byte, key MasterKey) ([]byte, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrUnsupportedFormat)
	}
	prefix, ok := blobVersionPrefix(blob)
	if !ok {
		return nil, ErrLegacyUnsupported
	}

	k, err := key.keyForPrefix(prefix)
	if err != nil {
		return nil, err
	}

	switch schemeForPrefix(key.Scheme, prefix) {
	case SchemeCBC:
		return decryptBlobCBC(blob[blobPrefixLen:], k)
	default:
		return decryptBlobGCM(blob[blobPrefixLen:], k)
	}
}

// EncryptBlob is the inverse of DecryptBlob under the destination key's own
// scheme and version tag. GCM gets a fresh random nonce per record; the CBC
// layout carries no nonce field and keeps Chromium's fixed IV.
func EncryptBlob(plain []byte, key MasterKey) ([]byte, error) {
	prefix := key.EncodePrefix
	k, err := key.keyForPrefix(prefix)
	if err != nil {
		return nil, err
	}

	switch schemeForPrefix(key.Scheme, prefix) {
	case SchemeCBC:
		ct, err := encryptBlobCBC(plain, k)
		if err != nil {
			return nil, err
		}
		return append([]byte(prefix), ct...), nil
	default:
		ct, err := encryptBlobGCM(plain, k)
		if err != nil {
			return nil, err
		}
		return append([]byte(prefix), ct...), nil
	}
}

// keyForPrefix maps a version tag to the key that protects records with it.
func (m MasterKey) keyForPrefix(prefix string) ([]byte, error) {
	switch prefix {
	case "v10":
		if m.Scheme == SchemeCBC && m.V10 != nil {
			return m.V10, nil
		}
		return m.primaryKey()
	case "v11":
		if m.Scheme != SchemeCBC {
			return nil, fmt.Errorf("%w: blob prefix %q", ErrUnsupportedFormat, prefix)
		}
		return m.primaryKey()
	case "v20":
		if m.Scheme != SchemeGCM {
			return nil, fmt.Errorf("%w: blob prefix %q", ErrUnsupportedFormat, prefix)
		}
		if len(m.AppBound) == 0 {
			return nil, fmt.Errorf("%w: v20 record requires the app-bound key", ErrKeyUnavailable)
		}
		return m.AppBound, nil
	default:
		return nil, fmt.Errorf("%w: blob prefix %q", ErrUnsupportedFormat, prefix)
	}
}

func (m MasterKey) primaryKey() ([]byte, error) {
	if len(m.Primary) == 0 {
		return nil, ErrKeyUnavailable
	}
	return m.Primary, nil
}

// schemeForPrefix exists because v20 records are always GCM even though the
// rest of the key's records may not be.
func schemeForPrefix(s BlobScheme, prefix string) BlobScheme {
	if prefix == "v20" {
		return SchemeGCM
	}
	return s
}

func decryptBlobCBC(ciphertext, key []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, fmt.Errorf("%w: cipher input not full blocks", ErrUnsupportedFormat)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	out := make([]byte, len(ciphertext))
	cbc := cipher.NewCBCDecrypter(block, []byte(cbcFixedIV))
	cbc.CryptBlocks(out, ciphertext)

	out, err = removePKCS7Padding(out)
	if err != nil {
		// CBC has no tag; bad padding is the closest thing to an
		// authentication failure the layout allows.
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return out, nil
}

func encryptBlobCBC(plain, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	padded := addPKCS7Padding(plain)
	out := make([]byte, len(padded))
	cbc := cipher.NewCBCEncrypter(block, []byte(cbcFixedIV))
	cbc.CryptBlocks(out, padded)
	return out, nil
}

func decryptBlobGCM(payload, key []byte) ([]byte, error) {
	if len(payload) < gcmNonceLen+gcmTagLen {
		return nil, fmt.Errorf("%w: encrypted value too short (%d)", ErrUnsupportedFormat, len(payload))
	}
	nonce := payload[:gcmNonceLen]
	ciphertextAndTag := payload[gcmNonceLen:]

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plain, err := aesgcm.Open(nil, nonce, ciphertextAndTag, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	return plain, nil
}

func encryptBlobGCM(plain, key []byte) ([]byte, error) {
	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcmNonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	out := make([]byte, 0, gcmNonceLen+len(plain)+gcmTagLen)
	out = append(out, nonce...)
	return aesgcm.Seal(out, nonce, plain, nil), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

func blobVersionPrefix(b []byte) (string, bool) {
	if len(b) < blobPrefixLen {
		return "", false
	}
	if b[0] != 'v' || !isDigit(b[1]) || !isDigit(b[2]) {
		return "", false
	}
	return string(b[:blobPrefixLen]), true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func addPKCS7Padding(b []byte) []byte {
	paddingLen := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, 0, len(b)+paddingLen)
	out = append(out, b...)
	for i := 0; i < paddingLen; i++ {
		out = append(out, byte(paddingLen))
	}
	return out
}

func removePKCS7Padding(b []byte) ([]byte, error) {
	if len(b) == 0 {
		return b, nil
	}
	paddingLen := int(b[len(b)-1])
	if paddingLen <= 0 || paddingLen > aes.BlockSize || paddingLen > len(b) {
		return nil, fmt.Errorf("invalid padding length: %d", paddingLen)
	}
	for _, p := range b[len(b)-paddingLen:] {
		if int(p) != paddingLen {
			return nil, errors.New("invalid padding bytes")
		}
	}
	return b[:len(b)-paddingLen], nil
}

// Cookie plaintexts in databases with meta version >= 24 are prefixed with
// SHA-256(host_key). Password plaintexts never carry it.

func stripDomainHash(plain []byte, metaVersion int64) []byte {
	if metaVersion >= domainHashMetaVersion && len(plain) >= domainHashLen {
		return plain[domainHashLen:]
	}
	return plain
}

func prependDomainHash(host string, plain []byte, metaVersion int64) []byte {
	if metaVersion < domainHashMetaVersion {
		return plain
	}
	sum := sha256.Sum256([]byte(host))
	out := make([]byte, 0, domainHashLen+len(plain))
	out = append(out, sum[:]...)
	return append(out, plain...)
}
