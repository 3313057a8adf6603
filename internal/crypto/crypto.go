// Package crypto derives the SQLite encryption key from a master secret.
// The derived key is used directly as the SQLCipher raw key, so the master
// secret never reaches the database driver.
package crypto

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the size of a derived key in bytes (256 bits).
	KeySize = 32

	// MinMasterKeySize is the shortest master secret accepted.
	MinMasterKeySize = 32

	// DatabaseKeyVersion is bumped to rotate every derived database key.
	DatabaseKeyVersion = 1
)

// DeriveKey derives a KeySize-byte key from masterKey using HKDF-SHA256.
// info = "quicknotes:" + purpose + ":v" + version
func DeriveKey(masterKey []byte, purpose string, version int) []byte {
	info := fmt.Sprintf("quicknotes:%s:v%d", purpose, version)
	r := hkdf.New(sha256.New, masterKey, nil, []byte(info))

	key := make([]byte, KeySize)
	if _, err := io.ReadFull(r, key); err != nil {
		// HKDF-SHA256 can produce up to 255*32 bytes; 32 never fails.
		panic(fmt.Sprintf("HKDF failed: %v", err))
	}
	return key
}

// DatabaseKeyHex returns the hex SQLCipher key for the notes database.
func DatabaseKeyHex(masterKey string) (string, error) {
	if len(masterKey) < MinMasterKeySize {
		return "", fmt.Errorf("master key must be at least %d bytes, got %d", MinMasterKeySize, len(masterKey))
	}
	return hex.EncodeToString(DeriveKey([]byte(masterKey), "notes-db", DatabaseKeyVersion)), nil
}
