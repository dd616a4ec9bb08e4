package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestHashPassword(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "correct horse" {
		t.Fatal("hash equals the raw password")
	}
	if !CheckPassword("correct horse", hash) {
		t.Error("CheckPassword rejected the right password")
	}
	if CheckPassword("wrong horse", hash) {
		t.Error("CheckPassword accepted a wrong password")
	}

	again, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if again == hash {
		t.Error("two hashes of the same password are identical, expected a salt")
	}
}

func TestNewTokens_RequiresSecret(t *testing.T) {
	if _, err := NewTokens(""); !errors.Is(err, ErrEmptySecret) {
		t.Fatalf("expected ErrEmptySecret, got %v", err)
	}
}

func TestIssueVerify(t *testing.T) {
	tokens, err := NewTokens("test-secret")
	if err != nil {
		t.Fatal(err)
	}
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	token, err := tokens.IssueAt("65f0c0ffee0000000000abcd", issued)
	if err != nil {
		t.Fatalf("IssueAt: %v", err)
	}

	tests := []struct {
		name    string
		token   string
		at      time.Time
		wantErr bool
	}{
		{"fresh", token, issued.Add(time.Minute), false},
		{"just before expiry", token, issued.Add(TokenTTL - time.Second), false},
		{"expired", token, issued.Add(TokenTTL + time.Second), true},
		{"tampered", token + "a", issued.Add(time.Minute), true},
		{"garbage", "not.a.token", issued, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, err := tokens.VerifyAt(tt.token, tt.at)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidToken) {
					t.Fatalf("expected ErrInvalidToken, got id=%q err=%v", id, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("VerifyAt: %v", err)
			}
			if id != "65f0c0ffee0000000000abcd" {
				t.Errorf("expected account id back, got %q", id)
			}
		})
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	a, _ := NewTokens("secret-a")
	b, _ := NewTokens("secret-b")

	token, err := a.Issue("65f0c0ffee0000000000abcd")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for foreign secret, got %v", err)
	}
	if strings.Count(token, ".") != 2 {
		t.Errorf("expected a three-part JWT, got %q", token)
	}
}
