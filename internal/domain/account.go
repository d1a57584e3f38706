package domain

import "time"

// Account identifies one linked mail account. ID is the provider-issued
// address and is stable for the life of the account.
type Account struct {
	ID          string
	Email       string
	Provider    string
	DisplayName string
	IsActive    bool
	CreatedAt   time.Time
}
