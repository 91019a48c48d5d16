// Package vault is an encrypted-at-rest secret store keyed by provider
// identity. The whole secret map is one ciphertext blob in an injected
// key-value store; decrypted contents and derived key material are
// cached in memory only while the vault is unlocked.
package vault

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrMissingCredential: the vault is locked and no password was
	// supplied. Recoverable; prompt and retry.
	ErrMissingCredential = errors.New("vault: missing credential")

	// ErrDecryptionFailed: wrong password. Recoverable and expected;
	// the vault stays locked with no partial state.
	ErrDecryptionFailed = errors.New("vault: decryption failed")

	// ErrCancelled: the user dismissed the unlock prompt. Distinct
	// from a wrong password and never logged as a failure.
	ErrCancelled = errors.New("vault: cancelled")
)

// Status is the vault lifecycle state.
type Status int

const (
	StatusUnset    Status = iota // nothing stored
	StatusLocked                 // ciphertext exists, no key material cached
	StatusUnlocked               // key cached, secrets readable without re-prompting
)

func (s Status) String() string {
	switch s {
	case StatusLocked:
		return "locked"
	case StatusUnlocked:
		return "unlocked"
	default:
		return "unset"
	}
}

// Store is the persistent key-value backing port. Injected so the
// vault is testable without a browser- or disk-backed environment.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Delete(key string) error
}

// Vault maps secret names to values inside one encrypted blob.
// All methods are safe for concurrent use; every mutation is atomic
// from the caller's perspective.
type Vault struct {
	mu    sync.Mutex
	store Store
	keyer Keyer
	name  string

	// cached only while unlocked
	secrets map[string]string
	key     []byte
}

// New creates a vault over store, deriving keys with keyer. name
// namespaces the storage keys so multiple vaults can share a store.
func New(store Store, keyer Keyer, name string) *Vault {
	if name == "" {
		name = "vault"
	}
	return &Vault{store: store, keyer: keyer, name: name}
}

func (v *Vault) secretStorageKey() string { return v.name + ":secret" }
func (v *Vault) saltStorageKey() string   { return v.name + ":salt" }

// Status reports unset, locked or unlocked without side effects.
func (v *Vault) Status() Status {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets != nil {
		return StatusUnlocked
	}
	if _, ok, err := v.store.Get(v.secretStorageKey()); err == nil && ok {
		return StatusLocked
	}
	return StatusUnset
}

// Exists reports whether key maps to a non-empty secret. It is false
// whenever the vault is locked, even for keys that exist encrypted:
// existence under lock is unknowable without the password.
func (v *Vault) Exists(key string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets == nil {
		return false
	}
	return v.secrets[key] != ""
}

// Get returns the secret for key from the unlocked cache. When locked
// it fails with ErrMissingCredential; use GetWithPassword to unlock.
// A key that was never set returns "" with no error.
func (v *Vault) Get(key string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets == nil {
		return "", ErrMissingCredential
	}
	return v.secrets[key], nil
}

// GetWithPassword unlocks the vault if necessary, then returns the
// secret for key. A wrong password fails with ErrDecryptionFailed and
// leaves the vault locked.
func (v *Vault) GetWithPassword(key, password string) (string, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets == nil {
		if err := v.unlock(password); err != nil {
			return "", err
		}
	}
	return v.secrets[key], nil
}

// Set writes a secret through the unlocked cache and re-encrypts the
// full map to the store before returning. When locked or unset it
// fails with ErrMissingCredential; use SetWithPassword.
func (v *Vault) Set(key, value string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets == nil {
		return ErrMissingCredential
	}
	return v.setAndPersist(key, value)
}

// SetWithPassword unlocks (or, on first-ever write, initializes a
// fresh vault under a new salt) and then writes the secret.
func (v *Vault) SetWithPassword(key, value, password string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.secrets == nil {
		_, ok, err := v.store.Get(v.secretStorageKey())
		if err != nil {
			return fmt.Errorf("vault: reading store: %w", err)
		}
		if ok {
			if err := v.unlock(password); err != nil {
				return err
			}
		} else if err := v.initialize(password); err != nil {
			return err
		}
	}
	return v.setAndPersist(key, value)
}

// Clear drops the in-memory cache and deletes the persisted
// ciphertext unconditionally, returning the vault to unset.
// Irreversible; confirmation is the caller's concern.
func (v *Vault) Clear() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets = nil
	v.key = nil
	if err := v.store.Delete(v.secretStorageKey()); err != nil {
		return fmt.Errorf("vault: deleting ciphertext: %w", err)
	}
	if err := v.store.Delete(v.saltStorageKey()); err != nil {
		return fmt.Errorf("vault: deleting salt: %w", err)
	}
	return nil
}

// Lock drops the decrypted cache and key material, returning an
// unlocked vault to locked. Equivalent to a process restart.
func (v *Vault) Lock() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.secrets = nil
	v.key = nil
}

// ChangePassword re-keys the vault: decrypts with the old password and
// re-encrypts the full contents with the new one under a fresh salt.
// On any failure the prior in-memory cache is left untouched.
func (v *Vault) ChangePassword(oldPassword, newPassword string) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	secrets, _, err := v.decryptStored(oldPassword)
	if err != nil {
		return err
	}

	salt, err := newSalt()
	if err != nil {
		return fmt.Errorf("vault: generating salt: %w", err)
	}
	key, err := v.keyer.DeriveKey(newPassword, salt)
	if err != nil {
		return fmt.Errorf("vault: deriving key: %w", err)
	}
	ciphertext, err := sealSecrets(secrets, key)
	if err != nil {
		return fmt.Errorf("vault: encrypting: %w", err)
	}

	oldSalt, hadSalt, _ := v.store.Get(v.saltStorageKey())
	if err := v.store.Set(v.saltStorageKey(), salt); err != nil {
		return fmt.Errorf("vault: persisting salt: %w", err)
	}
	if err := v.store.Set(v.secretStorageKey(), ciphertext); err != nil {
		if hadSalt {
			// keep salt and ciphertext consistent
			_ = v.store.Set(v.saltStorageKey(), oldSalt)
		}
		return fmt.Errorf("vault: persisting ciphertext: %w", err)
	}

	v.secrets = secrets
	v.key = key
	return nil
}

// unlock decrypts the stored blob and caches the result. Callers hold
// the mutex.
func (v *Vault) unlock(password string) error {
	secrets, key, err := v.decryptStored(password)
	if err != nil {
		return err
	}
	v.secrets = secrets
	v.key = key
	return nil
}

// decryptStored loads and decrypts the blob without mutating cache
// state, so failed attempts leave the vault exactly as it was.
func (v *Vault) decryptStored(password string) (map[string]string, []byte, error) {
	ciphertext, ok, err := v.store.Get(v.secretStorageKey())
	if err != nil {
		return nil, nil, fmt.Errorf("vault: reading store: %w", err)
	}
	if !ok {
		return nil, nil, ErrMissingCredential
	}
	salt, ok, err := v.store.Get(v.saltStorageKey())
	if err != nil || !ok {
		return nil, nil, fmt.Errorf("%w: salt unavailable", ErrDecryptionFailed)
	}

	key, err := v.keyer.DeriveKey(password, salt)
	if err != nil {
		return nil, nil, fmt.Errorf("vault: deriving key: %w", err)
	}
	plaintext, err := decryptGCM(ciphertext, key)
	if err != nil {
		return nil, nil, ErrDecryptionFailed
	}

	var secrets map[string]string
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, nil, ErrDecryptionFailed
	}
	if secrets == nil {
		secrets = map[string]string{}
	}
	return secrets, key, nil
}

// initialize creates a fresh empty vault under a new salt. Callers
// hold the mutex.
func (v *Vault) initialize(password string) error {
	salt, err := newSalt()
	if err != nil {
		return fmt.Errorf("vault: generating salt: %w", err)
	}
	key, err := v.keyer.DeriveKey(password, salt)
	if err != nil {
		return fmt.Errorf("vault: deriving key: %w", err)
	}
	if err := v.store.Set(v.saltStorageKey(), salt); err != nil {
		return fmt.Errorf("vault: persisting salt: %w", err)
	}
	v.secrets = map[string]string{}
	v.key = key
	return nil
}

// setAndPersist updates the cache and synchronously persists the
// re-encrypted full map. Callers hold the mutex and an unlocked vault.
func (v *Vault) setAndPersist(key, value string) error {
	prev, had := v.secrets[key]
	v.secrets[key] = value

	ciphertext, err := sealSecrets(v.secrets, v.key)
	if err == nil {
		err = v.store.Set(v.secretStorageKey(), ciphertext)
	}
	if err != nil {
		if had {
			v.secrets[key] = prev
		} else {
			delete(v.secrets, key)
		}
		return fmt.Errorf("vault: persisting: %w", err)
	}
	return nil
}

func sealSecrets(secrets map[string]string, key []byte) ([]byte, error) {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return nil, err
	}
	return encryptGCM(plaintext, key)
}
