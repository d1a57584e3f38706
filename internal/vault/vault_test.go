package vault

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lu-zhengda/mailpeek/internal/domain"
)

func testTokenSet() domain.TokenSet {
	return domain.TokenSet{
		AccessToken:  "ya29.test-access",
		RefreshToken: "1//test-refresh",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}
}

func newTestVault(t *testing.T, fingerprint string) *FileVault {
	t.Helper()
	v, err := newFileVaultWithKey(t.TempDir(), DeriveKey(fingerprint))
	if err != nil {
		t.Fatalf("newFileVaultWithKey() error: %v", err)
	}
	return v
}

func TestFileVault_RoundTrip(t *testing.T) {
	v := newTestVault(t, "machine-a")
	want := testTokenSet()

	if err := v.Store("alice@gmail.com", want); err != nil {
		t.Fatalf("Store() error: %v", err)
	}
	got, err := v.Load("alice@gmail.com")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.AccessToken != want.AccessToken || got.RefreshToken != want.RefreshToken {
		t.Errorf("Load() = %+v, want %+v", got, want)
	}
	if !got.Expiry.Equal(want.Expiry) {
		t.Errorf("Load() expiry = %v, want %v", got.Expiry, want.Expiry)
	}
}

func TestFileVault_LoadMissing(t *testing.T) {
	v := newTestVault(t, "machine-a")
	_, err := v.Load("nobody@gmail.com")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestFileVault_DifferentMachineFailsClosed(t *testing.T) {
	dir := t.TempDir()
	a, err := newFileVaultWithKey(dir, DeriveKey("machine-a"))
	if err != nil {
		t.Fatal(err)
	}
	if err := a.Store("alice@gmail.com", testTokenSet()); err != nil {
		t.Fatalf("Store() error: %v", err)
	}

	// Same directory, different machine fingerprint.
	b, err := newFileVaultWithKey(dir, DeriveKey("machine-b"))
	if err != nil {
		t.Fatal(err)
	}
	_, err = b.Load("alice@gmail.com")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Load() on foreign machine error = %v, want ErrDecryptFailed", err)
	}
}

func TestFileVault_RotationOverwrites(t *testing.T) {
	v := newTestVault(t, "machine-a")
	old := testTokenSet()
	if err := v.Store("alice@gmail.com", old); err != nil {
		t.Fatal(err)
	}

	rotated := old
	rotated.RefreshToken = "1//rotated-refresh"
	if err := v.Store("alice@gmail.com", rotated); err != nil {
		t.Fatal(err)
	}

	got, err := v.Load("alice@gmail.com")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if got.RefreshToken != rotated.RefreshToken {
		t.Errorf("RefreshToken = %q, want rotated value", got.RefreshToken)
	}

	// Exactly one slot on disk; the old refresh token is gone, not appended.
	entries, err := os.ReadDir(v.dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("vault dir holds %d files, want 1", len(entries))
	}
	raw, err := os.ReadFile(filepath.Join(v.dir, entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(raw, []byte(old.RefreshToken)) {
		t.Error("old refresh token present in plaintext on disk")
	}
}

func TestFileVault_FreshNoncePerStore(t *testing.T) {
	v := newTestVault(t, "machine-a")
	ts := testTokenSet()

	if err := v.Store("alice@gmail.com", ts); err != nil {
		t.Fatal(err)
	}
	first, err := os.ReadFile(v.slotPath("alice@gmail.com"))
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Store("alice@gmail.com", ts); err != nil {
		t.Fatal(err)
	}
	second, err := os.ReadFile(v.slotPath("alice@gmail.com"))
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Equal(first, second) {
		t.Error("two encryptions of the same token set produced identical blobs")
	}
}

func TestFileVault_CorruptedBlob(t *testing.T) {
	v := newTestVault(t, "machine-a")
	if err := v.Store("alice@gmail.com", testTokenSet()); err != nil {
		t.Fatal(err)
	}

	path := v.slotPath("alice@gmail.com")
	blob, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	blob[len(blob)-1] ^= 0xff
	if err := os.WriteFile(path, blob, 0o600); err != nil {
		t.Fatal(err)
	}

	_, err = v.Load("alice@gmail.com")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Load() of tampered blob error = %v, want ErrDecryptFailed", err)
	}
}

func TestFileVault_TruncatedBlob(t *testing.T) {
	v := newTestVault(t, "machine-a")
	if err := os.WriteFile(v.slotPath("alice@gmail.com"), []byte("short"), 0o600); err != nil {
		t.Fatal(err)
	}
	_, err := v.Load("alice@gmail.com")
	if !errors.Is(err, ErrDecryptFailed) {
		t.Errorf("Load() of truncated blob error = %v, want ErrDecryptFailed", err)
	}
}

func TestFileVault_RemoveIdempotent(t *testing.T) {
	v := newTestVault(t, "machine-a")
	if err := v.Store("alice@gmail.com", testTokenSet()); err != nil {
		t.Fatal(err)
	}
	if err := v.Remove("alice@gmail.com"); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}
	if err := v.Remove("alice@gmail.com"); err != nil {
		t.Errorf("second Remove() error: %v, want nil", err)
	}
	if _, err := v.Load("alice@gmail.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() after Remove() error = %v, want ErrNotFound", err)
	}
}
