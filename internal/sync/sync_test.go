package sync

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lu-zhengda/mailpeek/internal/domain"
	"github.com/lu-zhengda/mailpeek/internal/provider"
	"github.com/lu-zhengda/mailpeek/internal/vault"
)

// memStore is an in-memory TokenStore for tests.
type memStore struct {
	mu sync.Mutex
	m  map[string]domain.TokenSet
}

func newMemStore() *memStore {
	return &memStore{m: make(map[string]domain.TokenSet)}
}

func (s *memStore) Store(accountID string, ts domain.TokenSet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[accountID] = ts
	return nil
}

func (s *memStore) Load(accountID string) (domain.TokenSet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.m[accountID]
	if !ok {
		return domain.TokenSet{}, fmt.Errorf("no token for %s: %w", accountID, vault.ErrNotFound)
	}
	return ts, nil
}

func (s *memStore) Remove(accountID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, accountID)
	return nil
}

func (s *memStore) get(accountID string) (domain.TokenSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.m[accountID]
	return ts, ok
}

var _ vault.TokenStore = (*memStore)(nil)

// fakeProvider is a scriptable MailProvider that records call counts and the
// peak number of concurrent fetches.
type fakeProvider struct {
	mu           sync.Mutex
	fetchCalls   int
	refreshCalls int
	inFlight     int
	maxInFlight  int

	fetchFn   func(accessToken string) (int, error)
	refreshFn func(refreshToken string) (domain.TokenSet, error)
}

func (f *fakeProvider) FetchUnread(ctx context.Context, accessToken string) (int, error) {
	f.mu.Lock()
	f.fetchCalls++
	f.inFlight++
	if f.inFlight > f.maxInFlight {
		f.maxInFlight = f.inFlight
	}
	fn := f.fetchFn
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	if fn == nil {
		return 0, nil
	}
	return fn(accessToken)
}

func (f *fakeProvider) Refresh(ctx context.Context, refreshToken string) (domain.TokenSet, error) {
	f.mu.Lock()
	f.refreshCalls++
	fn := f.refreshFn
	f.mu.Unlock()
	if fn == nil {
		return domain.TokenSet{}, &provider.Error{Kind: provider.KindNetwork, Err: fmt.Errorf("refresh not scripted")}
	}
	return fn(refreshToken)
}

func (f *fakeProvider) Profile(ctx context.Context, accessToken string) (string, error) {
	return "fake@example.com", nil
}

func (f *fakeProvider) counts() (fetch, refresh int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls, f.refreshCalls
}

var _ provider.MailProvider = (*fakeProvider)(nil)

func validToken() domain.TokenSet {
	return domain.TokenSet{
		AccessToken:  "valid-access",
		RefreshToken: "valid-refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
}

func expiredToken() domain.TokenSet {
	return domain.TokenSet{
		AccessToken:  "stale-access",
		RefreshToken: "valid-refresh",
		Expiry:       time.Now().Add(-time.Minute),
	}
}

func kindErr(k provider.ErrorKind) error {
	return &provider.Error{Kind: k, Err: fmt.Errorf("scripted %s failure", k)}
}
