// Package notecrypt provides role-keyed AES-256-GCM encryption for
// clinical note content. Each author role has its own derived key, and
// the decryption policy decides which roles may read which notes.
package notecrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"github.com/carevault/carevault/internal/platform/auth"
)

const (
	keyIterations = 100_000
	keyLength     = 32
)

// derivation salt is fixed so the same passphrase always yields the
// same key across restarts.
var keySalt = []byte("carevault-note-key-v1")

// DeriveKey stretches a passphrase into a 32-byte AES-256 key.
func DeriveKey(passphrase string) []byte {
	return pbkdf2.Key([]byte(passphrase), keySalt, keyIterations, keyLength, sha256.New)
}

// Encryptor holds one AEAD per author role.
type Encryptor struct {
	aeads map[auth.Role]cipher.AEAD
}

// New builds an Encryptor from per-role passphrases.
func New(passphrases map[auth.Role]string) (*Encryptor, error) {
	aeads := make(map[auth.Role]cipher.AEAD, len(passphrases))
	for role, phrase := range passphrases {
		if phrase == "" {
			return nil, fmt.Errorf("notecrypt: empty passphrase for role %s", role)
		}
		block, err := aes.NewCipher(DeriveKey(phrase))
		if err != nil {
			return nil, fmt.Errorf("notecrypt: create cipher for %s: %w", role, err)
		}
		aead, err := cipher.NewGCM(block)
		if err != nil {
			return nil, fmt.Errorf("notecrypt: create GCM for %s: %w", role, err)
		}
		aeads[role] = aead
	}
	return &Encryptor{aeads: aeads}, nil
}

// Encrypt encrypts plaintext under the author role's key and returns
// base64 ciphertext with the nonce prepended.
func (e *Encryptor) Encrypt(authorRole auth.Role, plaintext string) (string, error) {
	aead, ok := e.aeads[authorRole]
	if !ok {
		return "", fmt.Errorf("notecrypt: no key for role %s", authorRole)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("notecrypt: generate nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, so the result is nonce + ciphertext.
	sealed := aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt decrypts ciphertext produced for the given author role.
func (e *Encryptor) Decrypt(authorRole auth.Role, ciphertext string) (string, error) {
	aead, ok := e.aeads[authorRole]
	if !ok {
		return "", fmt.Errorf("notecrypt: no key for role %s", authorRole)
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("notecrypt: base64 decode: %w", err)
	}

	nonceSize := aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("notecrypt: ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", fmt.Errorf("notecrypt: decrypt: %w", err)
	}
	return string(plaintext), nil
}

// CanDecrypt reports whether a reader role may decrypt a note authored
// under authorRole. Admins read everything; doctors and patients read
// notes authored by their own role.
func CanDecrypt(readerRole, authorRole auth.Role) bool {
	if readerRole == auth.RoleAdmin {
		return true
	}
	return readerRole == authorRole
}
