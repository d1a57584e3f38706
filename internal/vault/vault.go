package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// nonceSize is the AES-GCM nonce length in bytes.
const nonceSize = 12

var (
	// ErrNotFound means no token material is stored for the account.
	ErrNotFound = errors.New("vault: token not found")

	// ErrDecryptFailed means the stored blob could not be authenticated or
	// decrypted: wrong machine, corruption, or tampering. Callers must treat
	// the account as logged out; this is never transient and never retried.
	ErrDecryptFailed = errors.New("vault: decryption failed")
)

// TokenStore persists one TokenSet per account.
type TokenStore interface {
	Store(accountID string, ts domain.TokenSet) error
	Load(accountID string) (domain.TokenSet, error)
	Remove(accountID string) error
}

// FileVault stores one encrypted blob per account under a private directory.
// Blobs are sealed with AES-256-GCM under a key derived from the machine
// fingerprint; the key is rederived each run and never persisted, so blobs
// written on one machine are unreadable on any other.
type FileVault struct {
	dir  string
	aead cipher.AEAD
}

// NewFileVault derives the machine key and opens a vault rooted at dir,
// creating the directory if needed.
func NewFileVault(dir string) (*FileVault, error) {
	fp, err := MachineFingerprint()
	if err != nil {
		return nil, fmt.Errorf("failed to read machine fingerprint: %w", err)
	}
	return newFileVaultWithKey(dir, DeriveKey(fp))
}

func newFileVaultWithKey(dir string, key []byte) (*FileVault, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AEAD: %w", err)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create vault directory: %w", err)
	}
	return &FileVault{dir: dir, aead: aead}, nil
}

// Store encrypts ts with a freshly generated nonce and overwrites the
// account's slot. The write goes to a temp file first and is renamed into
// place, so a crash mid-write never corrupts the previous valid blob.
func (v *FileVault) Store(accountID string, ts domain.TokenSet) error {
	plaintext, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("failed to marshal token set: %w", err)
	}

	// Nonce reuse under the same key breaks GCM; always draw a fresh one.
	nonce := make([]byte, nonceSize)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("failed to generate nonce: %w", err)
	}
	blob := v.aead.Seal(nonce, nonce, plaintext, nil)

	path := v.slotPath(accountID)
	tmp, err := os.CreateTemp(v.dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set blob permissions: %w", err)
	}
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write blob: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace blob: %w", err)
	}
	return nil
}

// Load decrypts the account's slot. It fails with ErrNotFound when no slot
// exists and ErrDecryptFailed when the blob cannot be authenticated.
func (v *FileVault) Load(accountID string) (domain.TokenSet, error) {
	blob, err := os.ReadFile(v.slotPath(accountID))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.TokenSet{}, fmt.Errorf("failed to load token for %s: %w", accountID, ErrNotFound)
		}
		return domain.TokenSet{}, fmt.Errorf("failed to read blob for %s: %w", accountID, err)
	}
	if len(blob) < nonceSize {
		return domain.TokenSet{}, fmt.Errorf("blob for %s is truncated: %w", accountID, ErrDecryptFailed)
	}

	nonce, ciphertext := blob[:nonceSize], blob[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return domain.TokenSet{}, fmt.Errorf("failed to open blob for %s: %w", accountID, ErrDecryptFailed)
	}

	var ts domain.TokenSet
	if err := json.Unmarshal(plaintext, &ts); err != nil {
		return domain.TokenSet{}, fmt.Errorf("blob for %s holds invalid data: %w", accountID, ErrDecryptFailed)
	}
	return ts, nil
}

// Remove deletes the account's slot. Removing a nonexistent slot is not an
// error.
func (v *FileVault) Remove(accountID string) error {
	if err := os.Remove(v.slotPath(accountID)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove blob for %s: %w", accountID, err)
	}
	return nil
}

var slotNameReplacer = strings.NewReplacer("@", "_", ".", "_", "/", "_", "\\", "_")

func (v *FileVault) slotPath(accountID string) string {
	return filepath.Join(v.dir, slotNameReplacer.Replace(accountID)+".tok")
}

var _ TokenStore = (*FileVault)(nil)
