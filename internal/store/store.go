package store

import (
	"context"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// Store defines the persistence interface for the account registry and the
// last-known sync status. Token material never passes through here; it lives
// in the vault.
type Store interface {
	// Accounts
	CreateAccount(ctx context.Context, account *domain.Account) error
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context) ([]domain.Account, error)
	DeleteAccount(ctx context.Context, id string) error

	// Sync status, persisted after each completed cycle so a restart shows
	// last-known-good counts instead of zeros.
	UpsertSyncStatus(ctx context.Context, status domain.AccountStatus) error
	ListSyncStatuses(ctx context.Context) ([]domain.AccountStatus, error)

	// Lifecycle
	Close() error
}
