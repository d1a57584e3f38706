package cli

import (
	"time"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// ---------------------------------------------------------------------------
// Account JSON types (account list)
// ---------------------------------------------------------------------------

type jsonAccount struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Provider  string `json:"provider"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

func toJSONAccounts(accounts []domain.Account) []jsonAccount {
	out := make([]jsonAccount, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, jsonAccount{
			ID:        a.ID,
			Email:     a.Email,
			Provider:  a.Provider,
			Active:    a.IsActive,
			CreatedAt: a.CreatedAt.Format(time.DateOnly),
		})
	}
	return out
}

// ---------------------------------------------------------------------------
// Snapshot JSON types (status, watch)
// ---------------------------------------------------------------------------

type jsonSnapshot struct {
	GeneratedAt string              `json:"generated_at"`
	TotalUnread int                 `json:"total_unread"`
	Accounts    []jsonAccountStatus `json:"accounts"`
}

type jsonAccountStatus struct {
	AccountID   string `json:"account_id"`
	Email       string `json:"email"`
	UnreadCount int    `json:"unread_count"`
	LastSuccess string `json:"last_success,omitempty"`
	Error       string `json:"error,omitempty"`
	AuthExpired bool   `json:"auth_expired,omitempty"`
}

func toJSONSnapshot(snap domain.Snapshot) jsonSnapshot {
	accounts := make([]jsonAccountStatus, 0, len(snap.Accounts))
	for _, st := range snap.Accounts {
		j := jsonAccountStatus{
			AccountID:   st.AccountID,
			Email:       st.Email,
			UnreadCount: st.UnreadCount,
			Error:       st.Err,
			AuthExpired: st.AuthExpired,
		}
		if !st.LastSuccess.IsZero() {
			j.LastSuccess = st.LastSuccess.Format(time.RFC3339)
		}
		accounts = append(accounts, j)
	}
	return jsonSnapshot{
		GeneratedAt: snap.GeneratedAt.Format(time.RFC3339),
		TotalUnread: snap.TotalUnread(),
		Accounts:    accounts,
	}
}

// ---------------------------------------------------------------------------
// Action JSON type (account add, account remove)
// ---------------------------------------------------------------------------

type jsonAction struct {
	OK     bool   `json:"ok"`
	Action string `json:"action"`
	Email  string `json:"email,omitempty"`
}
