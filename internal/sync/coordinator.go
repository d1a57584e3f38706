package sync

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/lu-zhengda/mailpeek/internal/domain"
	"github.com/lu-zhengda/mailpeek/internal/provider"
	"github.com/lu-zhengda/mailpeek/internal/store"
	"github.com/lu-zhengda/mailpeek/internal/vault"
)

// maxConcurrentSyncs bounds the per-cycle fan-out across accounts.
const maxConcurrentSyncs = 8

// Observer receives each published snapshot.
type Observer func(domain.Snapshot)

// Coordinator owns the set of account sessions and drives the hybrid
// schedule: a fixed background cadence plus immediate wake-triggered passes.
// Snapshots are immutable and published by replacement, never patched.
type Coordinator struct {
	tokens   vault.TokenStore
	mail     provider.MailProvider
	registry store.Store
	interval time.Duration

	mu        sync.RWMutex
	sessions  map[string]*Session
	observers []Observer

	latest atomic.Pointer[domain.Snapshot]

	// cycles coalesces concurrent sync triggers onto one in-flight pass.
	cycles singleflight.Group
	// cycleGen counts completed passes; wakes compare against it to decide
	// whether a pass already covered them.
	cycleGen atomic.Uint64
	wake     chan uint64
}

// New creates a coordinator. registry may be nil, in which case accounts are
// managed in memory only and sync status is not persisted.
func New(tokens vault.TokenStore, mail provider.MailProvider, registry store.Store, interval time.Duration) *Coordinator {
	return &Coordinator{
		tokens:   tokens,
		mail:     mail,
		registry: registry,
		interval: interval,
		sessions: make(map[string]*Session),
		wake:     make(chan uint64, 1),
	}
}

// AddObserver registers a snapshot callback. Observers added after Run
// starts see the next published snapshot.
func (c *Coordinator) AddObserver(o Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Restore loads registered accounts and their last persisted statuses into
// sessions. Call once before Run.
func (c *Coordinator) Restore(ctx context.Context) error {
	if c.registry == nil {
		return nil
	}
	accounts, err := c.registry.ListAccounts(ctx)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}
	statuses, err := c.registry.ListSyncStatuses(ctx)
	if err != nil {
		return fmt.Errorf("failed to list sync statuses: %w", err)
	}
	byID := make(map[string]domain.AccountStatus, len(statuses))
	for _, st := range statuses {
		byID[st.AccountID] = st
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, acct := range accounts {
		if !acct.IsActive {
			continue
		}
		s := NewSession(acct.ID, acct.Email, c.tokens, c.mail)
		if st, ok := byID[acct.ID]; ok {
			s.Seed(st)
		}
		c.sessions[acct.ID] = s
	}
	log.Printf("[sync] restored %d account sessions", len(c.sessions))
	return nil
}

// AddAccount registers a freshly authorized account: the initial token set
// goes to the vault, the account to the registry, and a new session joins
// the next pass. A session is created fresh even if the account existed
// before, clearing any auth-expired latch.
func (c *Coordinator) AddAccount(ctx context.Context, acct domain.Account, ts domain.TokenSet) error {
	if err := c.tokens.Store(acct.ID, ts); err != nil {
		return fmt.Errorf("failed to store initial token: %w", err)
	}
	if c.registry != nil {
		if _, err := c.registry.GetAccount(ctx, acct.ID); err != nil {
			if err := c.registry.CreateAccount(ctx, &acct); err != nil {
				return fmt.Errorf("failed to register account: %w", err)
			}
		}
	}

	c.mu.Lock()
	c.sessions[acct.ID] = NewSession(acct.ID, acct.Email, c.tokens, c.mail)
	c.mu.Unlock()
	log.Printf("[sync] account added: %s", acct.ID)
	return nil
}

// RemoveAccount destroys the session and deletes the account's vault slot
// and registry row. Loss of the slot is equivalent to logged-out.
func (c *Coordinator) RemoveAccount(ctx context.Context, accountID string) error {
	c.mu.Lock()
	delete(c.sessions, accountID)
	c.mu.Unlock()

	if err := c.tokens.Remove(accountID); err != nil {
		return fmt.Errorf("failed to remove token: %w", err)
	}
	if c.registry != nil {
		if err := c.registry.DeleteAccount(ctx, accountID); err != nil {
			return fmt.Errorf("failed to deregister account: %w", err)
		}
	}
	log.Printf("[sync] account removed: %s", accountID)
	return nil
}

// Snapshot returns the latest published snapshot.
func (c *Coordinator) Snapshot() domain.Snapshot {
	if s := c.latest.Load(); s != nil {
		return *s
	}
	return domain.Snapshot{}
}

// NotifyBecameVisible requests an immediate full sync from the observer
// boundary. It never blocks; a wake arriving while a pass is already in
// flight coalesces into one extra snapshot after that pass completes.
func (c *Coordinator) NotifyBecameVisible() {
	select {
	case c.wake <- c.cycleGen.Load():
	default:
		// A wake is already pending; one pass covers both.
	}
}

// SyncNow refreshes every idle account concurrently and publishes a new
// snapshot once all accounts complete. Concurrent callers join the in-flight
// pass instead of starting a duplicate one; joiners still publish their own
// snapshot so every trigger is answered.
func (c *Coordinator) SyncNow(ctx context.Context) domain.Snapshot {
	v, _, shared := c.cycles.Do("cycle", func() (any, error) {
		return c.runCycle(ctx), nil
	})
	snap := v.(domain.Snapshot)
	if shared {
		c.publish(snap)
	}
	return snap
}

// Run drives the schedule until ctx is cancelled: one pass immediately, then
// the background cadence, with wake triggers served as they arrive. An
// in-flight pass is never aborted; cancellation takes effect between passes
// so vault writes always complete.
func (c *Coordinator) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	log.Printf("[sync] coordinator running (interval %s)", c.interval)
	c.SyncNow(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Printf("[sync] coordinator stopped")
			return ctx.Err()
		case <-ticker.C:
			c.SyncNow(ctx)
		case gen := <-c.wake:
			if c.cycleGen.Load() > gen {
				// A pass completed after this wake arrived; its results
				// already cover the wake. Publish one extra snapshot
				// instead of refetching every account.
				c.publish(c.Snapshot())
				continue
			}
			c.SyncNow(ctx)
		}
	}
}

// runCycle fans refreshes out across sessions, waits for all of them, then
// persists and publishes the aggregate.
func (c *Coordinator) runCycle(ctx context.Context) domain.Snapshot {
	c.mu.RLock()
	sessions := make([]*Session, 0, len(c.sessions))
	for _, s := range c.sessions {
		sessions = append(sessions, s)
	}
	c.mu.RUnlock()

	g := new(errgroup.Group)
	g.SetLimit(maxConcurrentSyncs)
	for _, s := range sessions {
		g.Go(func() error {
			// Per-account failures are recorded in the session and land in
			// the snapshot; they never abort sibling accounts.
			if err := s.Sync(ctx); err != nil {
				log.Printf("[sync] %s: %v", s.ID(), err)
			}
			return nil
		})
	}
	g.Wait()

	snap := c.buildSnapshot(sessions)
	c.persist(snap)
	c.publish(snap)
	c.cycleGen.Add(1)
	return snap
}

func (c *Coordinator) buildSnapshot(sessions []*Session) domain.Snapshot {
	statuses := make([]domain.AccountStatus, 0, len(sessions))
	for _, s := range sessions {
		statuses = append(statuses, s.Status())
	}
	sort.Slice(statuses, func(i, j int) bool {
		return statuses[i].AccountID < statuses[j].AccountID
	})
	return domain.Snapshot{Accounts: statuses, GeneratedAt: time.Now()}
}

// persist records each account's status so a restart starts from
// last-known-good counts. Best effort: a write failure is logged, not fatal.
func (c *Coordinator) persist(snap domain.Snapshot) {
	if c.registry == nil {
		return
	}
	ctx := context.Background()
	for _, st := range snap.Accounts {
		if err := c.registry.UpsertSyncStatus(ctx, st); err != nil {
			log.Printf("[sync] failed to persist status for %s: %v", st.AccountID, err)
		}
	}
}

// publish replaces the latest snapshot and fans it out to observers.
func (c *Coordinator) publish(snap domain.Snapshot) {
	c.latest.Store(&snap)

	c.mu.RLock()
	observers := make([]Observer, len(c.observers))
	copy(observers, c.observers)
	c.mu.RUnlock()

	for _, o := range observers {
		o(snap)
	}
}
