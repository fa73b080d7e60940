package notecrypt

import (
	"testing"

	"github.com/carevault/carevault/internal/platform/auth"
)

func testEncryptor(t *testing.T) *Encryptor {
	t.Helper()
	enc, err := New(map[auth.Role]string{
		auth.RoleAdmin:   "admin-pass",
		auth.RoleDoctor:  "doctor-pass",
		auth.RolePatient: "patient-pass",
	})
	if err != nil {
		t.Fatalf("new encryptor: %v", err)
	}
	return enc
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	enc := testEncryptor(t)

	ct, err := enc.Encrypt(auth.RoleDoctor, "patient reports dizziness")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if ct == "patient reports dizziness" {
		t.Fatal("ciphertext equals plaintext")
	}

	pt, err := enc.Decrypt(auth.RoleDoctor, ct)
	if err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	if pt != "patient reports dizziness" {
		t.Errorf("round trip mismatch: %q", pt)
	}
}

func TestDecrypt_WrongRoleKey(t *testing.T) {
	enc := testEncryptor(t)

	ct, err := enc.Encrypt(auth.RoleDoctor, "confidential")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	if _, err := enc.Decrypt(auth.RolePatient, ct); err == nil {
		t.Fatal("expected decrypt failure with wrong role key")
	}
}

func TestDecrypt_Tampered(t *testing.T) {
	enc := testEncryptor(t)

	ct, err := enc.Encrypt(auth.RoleAdmin, "note")
	if err != nil {
		t.Fatalf("encrypt: %v", err)
	}
	tampered := "A" + ct[1:]
	if _, err := enc.Decrypt(auth.RoleAdmin, tampered); err == nil {
		t.Fatal("expected decrypt failure on tampered ciphertext")
	}
}

func TestDeriveKey_Deterministic(t *testing.T) {
	a := DeriveKey("secret")
	b := DeriveKey("secret")
	if string(a) != string(b) {
		t.Error("same passphrase must derive the same key")
	}
	if len(a) != 32 {
		t.Errorf("expected 32-byte key, got %d", len(a))
	}
	if string(DeriveKey("other")) == string(a) {
		t.Error("different passphrases must derive different keys")
	}
}

func TestCanDecrypt_Matrix(t *testing.T) {
	tests := []struct {
		reader auth.Role
		author auth.Role
		want   bool
	}{
		{auth.RoleAdmin, auth.RoleAdmin, true},
		{auth.RoleAdmin, auth.RoleDoctor, true},
		{auth.RoleAdmin, auth.RolePatient, true},
		{auth.RoleDoctor, auth.RoleDoctor, true},
		{auth.RoleDoctor, auth.RolePatient, false},
		{auth.RoleDoctor, auth.RoleAdmin, false},
		{auth.RolePatient, auth.RolePatient, true},
		{auth.RolePatient, auth.RoleDoctor, false},
	}

	for _, tt := range tests {
		if got := CanDecrypt(tt.reader, tt.author); got != tt.want {
			t.Errorf("CanDecrypt(%s, %s) = %v, want %v", tt.reader, tt.author, got, tt.want)
		}
	}
}
