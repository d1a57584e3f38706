package vault

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

const keyringService = "mailpeek"

// KeyringStore persists token sets in the OS keyring (macOS Keychain, Windows
// Credential Manager, or Linux Secret Service). It is an alternative to the
// machine-bound FileVault for hosts with a working keyring daemon; select it
// with vault.backend = "keyring" in the config.
type KeyringStore struct{}

// NewKeyringStore returns a new KeyringStore.
func NewKeyringStore() *KeyringStore {
	return &KeyringStore{}
}

// Store saves the token set in the OS keyring under the account ID.
func (k *KeyringStore) Store(accountID string, ts domain.TokenSet) error {
	data, err := json.Marshal(ts)
	if err != nil {
		return fmt.Errorf("failed to marshal token set: %w", err)
	}
	if err := keyring.Set(keyringService, accountID, string(data)); err != nil {
		return fmt.Errorf("failed to save token to keyring: %w", err)
	}
	return nil
}

// Load retrieves the token set for the given account ID from the OS keyring.
func (k *KeyringStore) Load(accountID string) (domain.TokenSet, error) {
	data, err := keyring.Get(keyringService, accountID)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return domain.TokenSet{}, fmt.Errorf("failed to load token for %s: %w", accountID, ErrNotFound)
		}
		return domain.TokenSet{}, fmt.Errorf("failed to load token from keyring: %w", err)
	}
	var ts domain.TokenSet
	if err := json.Unmarshal([]byte(data), &ts); err != nil {
		return domain.TokenSet{}, fmt.Errorf("keyring entry for %s holds invalid data: %w", accountID, ErrDecryptFailed)
	}
	return ts, nil
}

// Remove deletes the token set for the given account ID. Removing a
// nonexistent entry is not an error.
func (k *KeyringStore) Remove(accountID string) error {
	if err := keyring.Delete(keyringService, accountID); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete token from keyring: %w", err)
	}
	return nil
}

var _ TokenStore = (*KeyringStore)(nil)
