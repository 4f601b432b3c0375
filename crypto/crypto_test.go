package crypto

import (
	"bytes"
	"crypto/rand"
	"encoding/base64"
	"strings"
	"testing"
)

func testKey(t *testing.T) string {
	t.Helper()
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		t.Fatalf("rand: %v", err)
	}
	return base64.StdEncoding.EncodeToString(key)
}

func TestNewAESEncryptor(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		wantErr string
	}{
		{name: "valid key", key: testKey(t)},
		{name: "empty key", key: "", wantErr: "empty"},
		{name: "not base64", key: "!!!not-base64!!!", wantErr: "base64"},
		{name: "wrong length", key: base64.StdEncoding.EncodeToString([]byte("short")), wantErr: "32 bytes"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAESEncryptor(tt.key)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("NewAESEncryptor: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("NewAESEncryptor error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := NewAESEncryptor(testKey(t))
	if err != nil {
		t.Fatalf("NewAESEncryptor: %v", err)
	}

	plaintext := []byte("hi there, see you in the lab at 3pm")
	ciphertext, err := enc.Encrypt(plaintext)
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Contains(ciphertext, plaintext) {
		t.Error("ciphertext contains plaintext")
	}

	got, err := enc.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("round trip = %q, want %q", got, plaintext)
	}
}

func TestEncryptUniqueNonce(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	a, err := enc.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	b, err := enc.Encrypt([]byte("same input"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two encryptions of the same plaintext produced identical ciphertext")
	}
}

func TestDecryptTamperDetected(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	ciphertext, err := enc.Encrypt([]byte("integrity matters"))
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	ciphertext[len(ciphertext)-1] ^= 0xff
	if _, err := enc.Decrypt(ciphertext); err == nil {
		t.Error("expected error decrypting tampered ciphertext")
	}
}

func TestDecryptTooShort(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))
	if _, err := enc.Decrypt([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for truncated ciphertext")
	}
	if _, err := enc.Decrypt(nil); err == nil {
		t.Error("expected error for empty ciphertext")
	}
}

func TestStringHelpers(t *testing.T) {
	enc, _ := NewAESEncryptor(testKey(t))

	out, err := EncryptString(enc, "")
	if err != nil || out != "" {
		t.Errorf("EncryptString empty = (%q, %v), want empty, nil", out, err)
	}

	stored, err := EncryptString(enc, "archived message body")
	if err != nil {
		t.Fatalf("EncryptString: %v", err)
	}
	got, err := DecryptString(enc, stored)
	if err != nil {
		t.Fatalf("DecryptString: %v", err)
	}
	if got != "archived message body" {
		t.Errorf("DecryptString = %q", got)
	}

	if _, err := DecryptString(enc, "%%%not-base64%%%"); err == nil {
		t.Error("expected error for invalid base64")
	}
}
