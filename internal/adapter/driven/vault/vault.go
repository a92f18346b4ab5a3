// Package vault implements the SecretVault port with XChaCha20-Poly1305.
package vault

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"github.com/ericfisherdev/winsvcpanel/internal/domain/port/driven"
)

// KeySize is the required length in bytes of the configured master key.
const KeySize = 32

// sealedVersion is the first byte of every sealed secret. It is also bound
// as additional authenticated data, so altering it fails authentication.
const sealedVersion byte = 0x01

// sealedOverhead is version + nonce + Poly1305 tag.
const sealedOverhead = 1 + chacha20poly1305.NonceSizeX + chacha20poly1305.Overhead

// hkdfInfoHostSecret separates the host-secret key from any other key
// derived from the same master key. Changing it invalidates every stored secret.
var hkdfInfoHostSecret = []byte("winsvcpanel.host-secret.v1")

// ErrCrypto is matched by every error returned from Decrypt for ciphertext
// that is malformed or was not sealed under this vault's key.
var ErrCrypto = errors.New("crypto error")

// CryptoError describes a failed seal or open.
type CryptoError struct {
	Op  string
	Err error
}

func (e *CryptoError) Error() string {
	return fmt.Sprintf("vault %s: %v", e.Op, e.Err)
}

func (e *CryptoError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrCrypto) match any CryptoError.
func (e *CryptoError) Is(target error) bool { return target == ErrCrypto }

// Compile-time interface satisfaction check.
var _ driven.SecretVault = (*Vault)(nil)

// Vault seals host access passwords at rest. It holds one key for its whole
// lifetime; construct it once at startup and pass it to whoever needs it.
type Vault struct {
	key []byte
}

// New derives the sealing key from masterKey, which must be KeySize bytes.
func New(masterKey []byte) (*Vault, error) {
	if len(masterKey) != KeySize {
		return nil, fmt.Errorf("vault key must be %d bytes, got %d", KeySize, len(masterKey))
	}

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, hkdfInfoHostSecret), key); err != nil {
		return nil, fmt.Errorf("derive vault key: %w", err)
	}

	return &Vault{key: key}, nil
}

// Encrypt seals plaintext and returns a base64 string of the form
// version || nonce || ciphertext || tag.
func (v *Vault) Encrypt(plaintext string) (string, error) {
	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", &CryptoError{Op: "encrypt", Err: err}
	}

	var nonce [chacha20poly1305.NonceSizeX]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return "", &CryptoError{Op: "encrypt", Err: fmt.Errorf("rand nonce: %w", err)}
	}

	out := make([]byte, 1+len(nonce), sealedOverhead+len(plaintext))
	out[0] = sealedVersion
	copy(out[1:], nonce[:])

	out = aead.Seal(out, nonce[:], []byte(plaintext), []byte{sealedVersion})
	return base64.StdEncoding.EncodeToString(out), nil
}

// Decrypt opens a value produced by Encrypt under the same key.
func (v *Vault) Decrypt(ciphertext string) (string, error) {
	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("base64 decode: %w", err)}
	}

	if len(data) < sealedOverhead {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("sealed value is %d bytes, minimum is %d", len(data), sealedOverhead)}
	}
	if data[0] != sealedVersion {
		return "", &CryptoError{Op: "decrypt", Err: fmt.Errorf("unsupported sealed version %d", data[0])}
	}

	aead, err := chacha20poly1305.NewX(v.key)
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: err}
	}

	nonce := data[1 : 1+chacha20poly1305.NonceSizeX]
	plaintext, err := aead.Open(nil, nonce, data[1+chacha20poly1305.NonceSizeX:], data[:1])
	if err != nil {
		return "", &CryptoError{Op: "decrypt", Err: errors.New("authentication failed: wrong key or tampered value")}
	}

	return string(plaintext), nil
}
