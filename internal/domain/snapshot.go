package domain

import "time"

// AccountStatus is one account's entry in a Snapshot.
type AccountStatus struct {
	AccountID   string
	Email       string
	UnreadCount int
	LastSuccess time.Time
	Err         string // empty when the latest cycle succeeded
	AuthExpired bool   // the account needs to be re-authorized
}

// OK reports whether the latest cycle for this account succeeded.
func (s AccountStatus) OK() bool {
	return s.Err == "" && !s.AuthExpired
}

// Snapshot is an aggregate of all accounts' latest sync results. Producers
// build a new Snapshot and publish it by replacement; a published Snapshot is
// never mutated, so observers never see a half-updated aggregate.
type Snapshot struct {
	Accounts    []AccountStatus
	GeneratedAt time.Time
}

// TotalUnread sums the unread counts across all accounts, including accounts
// whose latest cycle failed (they carry their last-known-good count).
func (s Snapshot) TotalUnread() int {
	total := 0
	for _, a := range s.Accounts {
		total += a.UnreadCount
	}
	return total
}

// Account returns the entry for the given account ID.
func (s Snapshot) Account(id string) (AccountStatus, bool) {
	for _, a := range s.Accounts {
		if a.AccountID == id {
			return a, true
		}
	}
	return AccountStatus{}, false
}
