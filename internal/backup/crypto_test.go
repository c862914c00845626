package backup

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")
	dec := filepath.Join(dir, "restored.db")

	content := []byte("SQLite format 3\x00 lease and charge rows")
	if err := os.WriteFile(src, content, 0600); err != nil {
		t.Fatalf("write source: %v", err)
	}

	salt, err := GenerateSalt()
	if err != nil {
		t.Fatalf("generate salt: %v", err)
	}
	if err := encryptFile(src, enc, "correct horse", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	encrypted, err := os.ReadFile(enc)
	if err != nil {
		t.Fatalf("read encrypted: %v", err)
	}
	if bytes.Contains(encrypted, []byte("lease")) {
		t.Error("ciphertext leaks plaintext")
	}
	if !bytes.Equal(encrypted[:saltSize], salt) {
		t.Error("salt header mismatch")
	}

	if err := decryptFile(enc, dec, "correct horse"); err != nil {
		t.Fatalf("decrypt: %v", err)
	}
	restored, err := os.ReadFile(dec)
	if err != nil {
		t.Fatalf("read restored: %v", err)
	}
	if !bytes.Equal(restored, content) {
		t.Error("round trip altered content")
	}
}

func TestDecryptWrongPassphrase(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")

	os.WriteFile(src, []byte("secret"), 0600)
	salt, _ := GenerateSalt()
	if err := encryptFile(src, enc, "right", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	if err := decryptFile(enc, filepath.Join(dir, "out.db"), "wrong"); err == nil {
		t.Error("wrong passphrase should fail authentication")
	}
}

func TestDecryptTruncatedFile(t *testing.T) {
	dir := t.TempDir()
	enc := filepath.Join(dir, "short.enc")
	os.WriteFile(enc, []byte("too short"), 0600)

	if err := decryptFile(enc, filepath.Join(dir, "out.db"), "x"); err == nil {
		t.Error("truncated file should fail")
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "plain.db")
	enc := filepath.Join(dir, "plain.db.enc")

	os.WriteFile(src, []byte("secret"), 0600)
	salt, _ := GenerateSalt()
	if err := encryptFile(src, enc, "pass", salt); err != nil {
		t.Fatalf("encrypt: %v", err)
	}

	data, _ := os.ReadFile(enc)
	data[len(data)-1] ^= 0xff
	os.WriteFile(enc, data, 0600)

	if err := decryptFile(enc, filepath.Join(dir, "out.db"), "pass"); err == nil {
		t.Error("tampered ciphertext should fail authentication")
	}
}
