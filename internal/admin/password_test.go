package admin

import "testing"

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword("correct horse battery staple", hash) {
		t.Fatal("expected correct password to verify")
	}
	if VerifyPassword("wrong password", hash) {
		t.Fatal("expected wrong password to fail verification")
	}
}

func TestVerifyPasswordRejectsEmpty(t *testing.T) {
	hash, err := HashPassword("something")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if VerifyPassword("", hash) {
		t.Fatal("empty password must never verify")
	}
}

func TestVerifyPasswordRejectsMalformedHash(t *testing.T) {
	cases := []string{
		"",
		"not-a-hash",
		"$argon2id$v=19$m=65536,t=1,p=4$onlyfourparts",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}
	for _, encoded := range cases {
		if VerifyPassword("something", encoded) {
			t.Errorf("expected malformed hash %q to fail verification", encoded)
		}
	}
}

func TestHashPasswordProducesUniqueSalts(t *testing.T) {
	h1, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	h2, err := HashPassword("same-password")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if h1 == h2 {
		t.Fatal("expected distinct salts to produce distinct encoded hashes")
	}
	if !VerifyPassword("same-password", h1) || !VerifyPassword("same-password", h2) {
		t.Fatal("both independently salted hashes must verify the same password")
	}
}
