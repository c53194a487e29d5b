package security_test

import (
	"testing"

	"github.com/geocoder89/userhub/internal/security"
)

func TestHashPassword(t *testing.T) {
	const plain = "correct horse battery staple"

	hash, err := security.HashPassword(plain)

	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if hash == plain {
		t.Fatal("hash must differ from the plaintext")
	}

	if err := security.CheckPassword(hash, plain); err != nil {
		t.Fatalf("check with correct password: %v", err)
	}

	if err := security.CheckPassword(hash, "wrong password"); err == nil {
		t.Fatal("check with wrong password should fail")
	}
}
