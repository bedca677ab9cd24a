package identity

import "testing"

func TestGenerateApiKeyHasPrefixAndIsUnique(t *testing.T) {
	k1, err := GenerateApiKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	k2, err := GenerateApiKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if k1 == k2 {
		t.Fatal("two generated keys must not collide")
	}
	if len(k1) < len(keyPrefix)+20 {
		t.Fatalf("key looks too short: %q", k1)
	}
	if k1[:len(keyPrefix)] != keyPrefix {
		t.Fatalf("key missing prefix: %q", k1)
	}
}

func TestLookupHashIsDeterministic(t *testing.T) {
	const plaintext = "ak_sometestkeyvalue"
	if LookupHash(plaintext) != LookupHash(plaintext) {
		t.Fatal("lookup hash must be deterministic for the same input")
	}
	if LookupHash(plaintext) == LookupHash("ak_differentkeyvalue") {
		t.Fatal("lookup hash must differ for different inputs")
	}
	if len(LookupHash(plaintext)) != 64 {
		t.Fatalf("expected a 64-char hex sha256 digest, got %d chars", len(LookupHash(plaintext)))
	}
}

func TestHashApiKeyRoundTrip(t *testing.T) {
	plaintext, err := GenerateApiKey()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	hash, err := HashApiKey(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !VerifyApiKey(plaintext, hash) {
		t.Fatal("expected verification to succeed for the matching plaintext")
	}
	if VerifyApiKey("ak_wrongkey", hash) {
		t.Fatal("expected verification to fail for a different plaintext")
	}
}

func TestHashApiKeyIsSaltedPerCall(t *testing.T) {
	plaintext := "ak_samekeyusedtwice"
	h1, err := HashApiKey(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	h2, err := HashApiKey(plaintext)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if h1 == h2 {
		t.Fatal("two hashes of the same plaintext must differ due to random salting")
	}
	if !VerifyApiKey(plaintext, h1) || !VerifyApiKey(plaintext, h2) {
		t.Fatal("both independently salted hashes must still verify the same plaintext")
	}
}

func TestVerifyApiKeyRejectsMalformedEncoding(t *testing.T) {
	cases := []string{
		"",
		"not-a-phc-string",
		"$argon2id$v=19$m=65536,t=1,p=4$onlyfourparts",
		"$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA",
	}
	for _, c := range cases {
		if VerifyApiKey("ak_whatever", c) {
			t.Fatalf("expected malformed encoding to fail verification: %q", c)
		}
	}
}
