package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("New(:memory:) error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAccountCRUD(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acct := &domain.Account{
		ID:          "alice@gmail.com",
		Email:       "alice@gmail.com",
		Provider:    "gmail",
		DisplayName: "Alice",
		IsActive:    true,
	}
	if err := db.CreateAccount(ctx, acct); err != nil {
		t.Fatalf("CreateAccount() error: %v", err)
	}

	got, err := db.GetAccount(ctx, acct.ID)
	if err != nil {
		t.Fatalf("GetAccount() error: %v", err)
	}
	if got.Email != acct.Email || got.DisplayName != acct.DisplayName || !got.IsActive {
		t.Errorf("GetAccount() = %+v, want %+v", got, acct)
	}

	list, err := db.ListAccounts(ctx)
	if err != nil {
		t.Fatalf("ListAccounts() error: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("ListAccounts() returned %d accounts, want 1", len(list))
	}

	if err := db.DeleteAccount(ctx, acct.ID); err != nil {
		t.Fatalf("DeleteAccount() error: %v", err)
	}
	if _, err := db.GetAccount(ctx, acct.ID); err == nil {
		t.Error("GetAccount() after delete should fail")
	}
}

func TestSyncStatusUpsert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acct := &domain.Account{ID: "alice@gmail.com", Email: "alice@gmail.com", Provider: "gmail", IsActive: true}
	if err := db.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}

	st := domain.AccountStatus{
		AccountID:   acct.ID,
		UnreadCount: 5,
		LastSuccess: time.Now().UTC().Truncate(time.Second),
	}
	if err := db.UpsertSyncStatus(ctx, st); err != nil {
		t.Fatalf("UpsertSyncStatus() error: %v", err)
	}

	// Second upsert replaces, not appends.
	st.UnreadCount = 7
	st.Err = "network error"
	if err := db.UpsertSyncStatus(ctx, st); err != nil {
		t.Fatalf("second UpsertSyncStatus() error: %v", err)
	}

	statuses, err := db.ListSyncStatuses(ctx)
	if err != nil {
		t.Fatalf("ListSyncStatuses() error: %v", err)
	}
	if len(statuses) != 1 {
		t.Fatalf("ListSyncStatuses() returned %d rows, want 1", len(statuses))
	}
	got := statuses[0]
	if got.UnreadCount != 7 || got.Err != "network error" || got.Email != acct.Email {
		t.Errorf("status = %+v, want unread 7 with error", got)
	}
	if got.LastSuccess.IsZero() {
		t.Error("LastSuccess lost on upsert")
	}
}

func TestSyncStatusCascadeDelete(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	acct := &domain.Account{ID: "alice@gmail.com", Email: "alice@gmail.com", Provider: "gmail", IsActive: true}
	if err := db.CreateAccount(ctx, acct); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertSyncStatus(ctx, domain.AccountStatus{AccountID: acct.ID, UnreadCount: 3}); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteAccount(ctx, acct.ID); err != nil {
		t.Fatal(err)
	}
	statuses, err := db.ListSyncStatuses(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 0 {
		t.Errorf("sync status survived account deletion: %+v", statuses)
	}
}
