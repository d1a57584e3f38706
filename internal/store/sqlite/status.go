package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

// UpsertSyncStatus records the outcome of an account's latest sync cycle.
func (s *DB) UpsertSyncStatus(ctx context.Context, st domain.AccountStatus) error {
	var lastSuccess sql.NullTime
	if !st.LastSuccess.IsZero() {
		lastSuccess = sql.NullTime{Time: st.LastSuccess, Valid: true}
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sync_status (account_id, unread_count, last_success, last_error, auth_expired, updated_at)
		 VALUES (?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(account_id) DO UPDATE SET
			unread_count = excluded.unread_count,
			last_success = excluded.last_success,
			last_error   = excluded.last_error,
			auth_expired = excluded.auth_expired,
			updated_at   = CURRENT_TIMESTAMP`,
		st.AccountID, st.UnreadCount, lastSuccess, st.Err, st.AuthExpired,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert sync status for %s: %w", st.AccountID, err)
	}
	return nil
}

// ListSyncStatuses returns the last recorded status for every account.
func (s *DB) ListSyncStatuses(ctx context.Context) ([]domain.AccountStatus, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT st.account_id, a.email, st.unread_count, st.last_success, st.last_error, st.auth_expired
		 FROM sync_status st
		 JOIN accounts a ON a.id = st.account_id
		 ORDER BY a.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync statuses: %w", err)
	}
	defer rows.Close()

	var statuses []domain.AccountStatus
	for rows.Next() {
		var st domain.AccountStatus
		var lastSuccess sql.NullTime
		if err := rows.Scan(&st.AccountID, &st.Email, &st.UnreadCount, &lastSuccess, &st.Err, &st.AuthExpired); err != nil {
			return nil, fmt.Errorf("failed to scan sync status: %w", err)
		}
		if lastSuccess.Valid {
			st.LastSuccess = lastSuccess.Time
		}
		statuses = append(statuses, st)
	}
	return statuses, rows.Err()
}
