package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	saltSize   = 32
	keySize    = 32 // AES-256
	handleSize = 32

	// OWASP-recommended floor for PBKDF2-HMAC-SHA256 as of 2023
	defaultIterations = 210_000
)

// Keyer derives the vault's symmetric key from a caller-supplied
// secret and a stored salt. Two interchangeable strategies exist: a
// password and a platform-authenticator user handle.
type Keyer interface {
	DeriveKey(secret string, salt []byte) ([]byte, error)
}

// PasswordKeyer derives the key from the user's password with
// PBKDF2-HMAC-SHA256.
type PasswordKeyer struct {
	Iterations int // 0 means defaultIterations
}

// DeriveKey implements Keyer.
func (k PasswordKeyer) DeriveKey(password string, salt []byte) ([]byte, error) {
	iterations := k.Iterations
	if iterations <= 0 {
		iterations = defaultIterations
	}
	return pbkdf2.Key([]byte(password), salt, iterations, keySize, sha256.New), nil
}

// HandleKeyer derives the key from a stable random user handle kept in
// the backing store, gated by a platform-authenticator presence check.
// The password argument is ignored; presence of the authenticator is
// the credential.
type HandleKeyer struct {
	Store Store
	Name  string // storage-key namespace, matching the vault's

	// Presence requires user verification before any derivation, e.g.
	// a passkey assertion. nil skips the check.
	Presence func() error
}

// DeriveKey implements Keyer.
func (k HandleKeyer) DeriveKey(_ string, salt []byte) ([]byte, error) {
	if k.Presence != nil {
		if err := k.Presence(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCancelled, err)
		}
	}
	handle, err := k.userHandle()
	if err != nil {
		return nil, err
	}
	return pbkdf2.Key(handle, salt, 1, keySize, sha256.New), nil
}

// userHandle loads the stored handle, generating and persisting a new
// one for this profile on first use.
func (k HandleKeyer) userHandle() ([]byte, error) {
	name := k.Name
	if name == "" {
		name = "vault"
	}
	storageKey := name + ":handle"

	handle, ok, err := k.Store.Get(storageKey)
	if err != nil {
		return nil, fmt.Errorf("vault: reading user handle: %w", err)
	}
	if ok {
		return handle, nil
	}

	handle = make([]byte, handleSize)
	if _, err := io.ReadFull(rand.Reader, handle); err != nil {
		return nil, fmt.Errorf("vault: generating user handle: %w", err)
	}
	if err := k.Store.Set(storageKey, handle); err != nil {
		return nil, fmt.Errorf("vault: persisting user handle: %w", err)
	}
	return handle, nil
}

func newSalt() ([]byte, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// encryptGCM encrypts with AES-256-GCM.
// Format: [nonce (12 bytes)][ciphertext + tag]
func encryptGCM(plaintext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, nil), nil
}

// decryptGCM reverses encryptGCM.
func decryptGCM(ciphertext, key []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	nonceSize := gcm.NonceSize()
	if len(ciphertext) < nonceSize {
		return nil, fmt.Errorf("ciphertext too short")
	}
	plaintext, err := gcm.Open(nil, ciphertext[:nonceSize], ciphertext[nonceSize:], nil)
	if err != nil {
		return nil, fmt.Errorf("decryption failed: %w", err)
	}
	return plaintext, nil
}
