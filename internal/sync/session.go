package sync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lu-zhengda/mailpeek/internal/domain"
	"github.com/lu-zhengda/mailpeek/internal/provider"
	"github.com/lu-zhengda/mailpeek/internal/vault"
)

// refreshMargin treats an access token expiring within this window as already
// expired, so a token never dies mid-request.
const refreshMargin = 5 * time.Minute

// Session binds one account's identity, cached unread state, and its token
// lifecycle through the vault. All mutation happens inside Sync; the mutex is
// the per-account exclusive gate, so at most one refresh cycle runs per
// account no matter how many triggers race.
type Session struct {
	accountID string
	email     string

	tokens vault.TokenStore
	mail   provider.MailProvider

	mu          sync.Mutex
	cached      domain.TokenSet
	haveCached  bool
	unread      int
	lastSuccess time.Time
	lastErr     error
	authExpired bool
}

// NewSession creates a session for one account. Token material is loaded
// lazily from the vault on the first cycle.
func NewSession(accountID, email string, tokens vault.TokenStore, mail provider.MailProvider) *Session {
	return &Session{
		accountID: accountID,
		email:     email,
		tokens:    tokens,
		mail:      mail,
	}
}

// ID returns the stable account identifier.
func (s *Session) ID() string { return s.accountID }

// Email returns the account's address.
func (s *Session) Email() string { return s.email }

// Seed primes the cached unread state from a persisted status, so a restart
// shows last-known-good counts instead of zeros until the first cycle lands.
func (s *Session) Seed(st domain.AccountStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.unread = st.UnreadCount
	s.lastSuccess = st.LastSuccess
	s.authExpired = st.AuthExpired
	if st.Err != "" {
		s.lastErr = errors.New(st.Err)
	}
}

// Status returns the session's entry for a snapshot.
func (s *Session) Status() domain.AccountStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := domain.AccountStatus{
		AccountID:   s.accountID,
		Email:       s.email,
		UnreadCount: s.unread,
		LastSuccess: s.lastSuccess,
		AuthExpired: s.authExpired,
	}
	if s.lastErr != nil {
		st.Err = s.lastErr.Error()
	}
	return st
}

// Sync runs one refresh cycle: ensure a valid access token (refreshing when
// expired or rejected, at most once), fetch the unread count, and update the
// cached state. Transient failures leave the previous unread count untouched;
// stale-but-last-known-good beats clearing to zero.
func (s *Session) Sync(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.authExpired {
		// Parked until the user re-authorizes; no automatic attempts.
		return s.lastErr
	}

	if !s.haveCached {
		ts, err := s.tokens.Load(s.accountID)
		if err != nil {
			return s.recordFailure(fmt.Errorf("failed to load token: %w", err))
		}
		s.cached = ts
		s.haveCached = true
	}

	refreshed := false
	if s.cached.ExpiresWithin(refreshMargin) {
		if err := s.refreshLocked(ctx); err != nil {
			return s.recordFailure(err)
		}
		refreshed = true
	}

	count, err := s.mail.FetchUnread(ctx, s.cached.AccessToken)
	if provider.IsKind(err, provider.KindUnauthorized) && !refreshed {
		// The provider rejected a token we thought was valid; refresh and
		// retry exactly once within this cycle.
		if rerr := s.refreshLocked(ctx); rerr != nil {
			return s.recordFailure(rerr)
		}
		count, err = s.mail.FetchUnread(ctx, s.cached.AccessToken)
	}
	if err != nil {
		if provider.IsKind(err, provider.KindUnauthorized) {
			// Still rejected after a refresh: the authorization is gone.
			s.authExpired = true
		}
		return s.recordFailure(err)
	}

	s.unread = count
	s.lastSuccess = time.Now()
	s.lastErr = nil
	return nil
}

// refreshLocked exchanges the refresh token and persists the result before
// returning, so a rotated refresh token is never held only in memory. The
// vault write is not cancellable; shutdown waits for it.
func (s *Session) refreshLocked(ctx context.Context) error {
	ts, err := s.mail.Refresh(ctx, s.cached.RefreshToken)
	if err != nil {
		return err
	}
	if ts.RefreshToken == "" {
		// No rotation; the previous refresh token remains valid.
		ts.RefreshToken = s.cached.RefreshToken
	}
	if err := s.tokens.Store(s.accountID, ts); err != nil {
		return fmt.Errorf("failed to persist refreshed token: %w", err)
	}
	s.cached = ts
	return nil
}

// recordFailure stores the cycle's error and latches authExpired for
// failures that require the user to re-authorize.
func (s *Session) recordFailure(err error) error {
	if provider.IsKind(err, provider.KindAuthExpired) ||
		errors.Is(err, vault.ErrDecryptFailed) ||
		errors.Is(err, vault.ErrNotFound) {
		s.authExpired = true
	}
	s.lastErr = err
	return err
}
