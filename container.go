package cookieferry

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

// Container format v1: a JSON envelope holding the PBKDF2 salt, the GCM
// nonce, and the ciphertext with its tag split out. Self-describing and
// independent of any master key; the shared backup password is all that is
// needed to open it.
const (
	containerFormatVersion = 1
	containerKDFIterations = 100000
	containerKeyLen        = 32
	containerSaltLen       = 32
)

type containerEnvelope struct {
	FormatVersion int    `json:"format_version"`
	Salt          string `json:"salt"`
	Nonce         string `json:"nonce"`
	Tag           string `json:"tag"`
	Ciphertext    string `json:"ciphertext"`
}

func deriveContainerKey(password string, salt []byte) []byte {
	return pbkdf2.Key([]byte(password), salt, containerKDFIterations, containerKeyLen, sha256.New)
}

// SealContainer serializes the package and encrypts it under a key derived
// from the backup password. The plaintext serialization exists only as the
// transient encryption input.
func SealContainer(pkg BackupPackage, password string) ([]byte, error) {
	plaintext, err := json.Marshal(pkg)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, containerSaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}

	aead, err := newGCM(deriveContainerKey(password, salt))
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}

	sealed := aead.Seal(nil, nonce, plaintext, nil)
	ciphertext := sealed[:len(sealed)-gcmTagLen]
	tag := sealed[len(sealed)-gcmTagLen:]

	env := containerEnvelope{
		FormatVersion: containerFormatVersion,
		Salt:          base64.StdEncoding.EncodeToString(salt),
		Nonce:         base64.StdEncoding.EncodeToString(nonce),
		Tag:           base64.StdEncoding.EncodeToString(tag),
		Ciphertext:    base64.StdEncoding.EncodeToString(ciphertext),
	}
	return json.MarshalIndent(env, "", "  ")
}

// OpenContainer authenticates and decrypts a sealed container. A tag mismatch
// means either a wrong password or a corrupted file; both surface as the one
// ErrDecryptionFailed so the error does not act as an oracle.
func OpenContainer(data []byte, password string) (BackupPackage, error) {
	var env containerEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return BackupPackage{}, fmt.Errorf("%w: not a container file: %v", ErrUnsupportedFormat, err)
	}
	if env.FormatVersion != containerFormatVersion {
		return BackupPackage{}, fmt.Errorf("%w: container format version %d", ErrUnsupportedFormat, env.FormatVersion)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return BackupPackage{}, fmt.Errorf("%w: salt: %v", ErrUnsupportedFormat, err)
	}
	nonce, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil {
		return BackupPackage{}, fmt.Errorf("%w: nonce: %v", ErrUnsupportedFormat, err)
	}
	tag, err := base64.StdEncoding.DecodeString(env.Tag)
	if err != nil {
		return BackupPackage{}, fmt.Errorf("%w: tag: %v", ErrUnsupportedFormat, err)
	}
	ciphertext, err := base64.StdEncoding.DecodeString(env.Ciphertext)
	if err != nil {
		return BackupPackage{}, fmt.Errorf("%w: ciphertext: %v", ErrUnsupportedFormat, err)
	}

	aead, err := newGCM(deriveContainerKey(password, salt))
	if err != nil {
		return BackupPackage{}, err
	}
	if len(nonce) != aead.NonceSize() {
		return BackupPackage{}, ErrDecryptionFailed
	}

	plaintext, err := aead.Open(nil, nonce, append(ciphertext, tag...), nil)
	if err != nil {
		return BackupPackage{}, ErrDecryptionFailed
	}

	var pkg BackupPackage
	if err := json.Unmarshal(plaintext, &pkg); err != nil {
		return BackupPackage{}, ErrDecryptionFailed
	}
	return pkg, nil
}
