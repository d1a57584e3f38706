package vault

import (
	"errors"
	"os"
	"strings"

	"golang.org/x/crypto/argon2"
)

// keySalt is the fixed application salt mixed into key derivation. It is a
// versioned contract: changing it (or the fingerprint sources below) changes
// every derived key and orphans existing vaults, so bump the version suffix
// deliberately and only with a migration path.
const keySalt = "mailpeek.vault.v1"

// machineIDFiles lists stable machine identifiers, in preference order.
var machineIDFiles = []string{
	"/etc/machine-id",
	"/var/lib/dbus/machine-id",
}

// MachineFingerprint returns stable machine-identifying material used to
// derive the vault key. MAILPEEK_MACHINE_ID overrides the OS sources for
// containers and tests.
func MachineFingerprint() (string, error) {
	if id := os.Getenv("MAILPEEK_MACHINE_ID"); id != "" {
		return id, nil
	}
	for _, path := range machineIDFiles {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if id := strings.TrimSpace(string(data)); id != "" {
			return id, nil
		}
	}
	return "", errors.New("vault: no machine identifier available; set MAILPEEK_MACHINE_ID")
}

// DeriveKey derives the 256-bit vault key from machine-identifying material
// and the fixed application salt using argon2id. The same fingerprint always
// yields the same key; the key itself is never written anywhere.
func DeriveKey(fingerprint string) []byte {
	return argon2.IDKey([]byte(fingerprint), []byte(keySalt), 1, 64*1024, 4, 32)
}
