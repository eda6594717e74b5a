package auth

import (
	"testing"
)

func TestIssueAndValidate(t *testing.T) {
	tokens := NewTokens("test-secret")

	tokenString, err := tokens.Issue("user-1", "test@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := tokens.Validate(tokenString)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.Subject != "user-1" {
		t.Errorf("subject = %q, want user-1", claims.Subject)
	}
	if claims.Email != "test@example.com" {
		t.Errorf("email = %q, want test@example.com", claims.Email)
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	tokens := NewTokens("test-secret")
	if _, err := tokens.Validate("not-a-token"); err == nil {
		t.Error("garbage token accepted")
	}
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	issued, err := NewTokens("secret-a").Issue("user-1", "test@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := NewTokens("secret-b").Validate(issued); err == nil {
		t.Error("token signed with another secret accepted")
	}
}

func TestValidateRejectsTampering(t *testing.T) {
	tokens := NewTokens("test-secret")
	issued, err := tokens.Issue("user-1", "test@example.com")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := issued[:len(issued)-2] + "xx"
	if _, err := tokens.Validate(tampered); err == nil {
		t.Error("tampered token accepted")
	}
}

func TestPasswordRoundTrip(t *testing.T) {
	hash, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if hash == "hunter22" {
		t.Fatal("password stored in plaintext")
	}
	if !CheckPassword(hash, "hunter22") {
		t.Error("correct password rejected")
	}
	if CheckPassword(hash, "hunter23") {
		t.Error("wrong password accepted")
	}
}
