package store

import (
	"testing"

	"github.com/dukerupert/sipbridge/internal/database"
	"github.com/dukerupert/sipbridge/internal/model"
)

func setupTokenTestDB(t *testing.T) *TokenStore {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewTokenStore(db)
}

func TestTokenCreate(t *testing.T) {
	ts := setupTokenTestDB(t)

	tok, err := ts.Create("harvester", model.ScopeWrite)
	if err != nil {
		t.Fatalf("create token: %v", err)
	}
	if tok.Name != "harvester" {
		t.Errorf("name = %q, want %q", tok.Name, "harvester")
	}
	if tok.Scope != model.ScopeWrite {
		t.Errorf("scope = %q, want %q", tok.Scope, model.ScopeWrite)
	}
	if len(tok.Token) != 64 {
		t.Errorf("secret length = %d, want 64 hex chars", len(tok.Token))
	}
	if tok.Revoked {
		t.Error("expected not revoked")
	}
	if tok.LastUsedAt != nil {
		t.Error("expected last_used_at unset")
	}
}

func TestTokenGetBySecret(t *testing.T) {
	ts := setupTokenTestDB(t)

	tok, _ := ts.Create("harvester", model.ScopeRead)

	got, err := ts.GetBySecret(tok.Token)
	if err != nil {
		t.Fatalf("get by secret: %v", err)
	}
	if got == nil {
		t.Fatal("expected token, got nil")
	}
	if got.ID != tok.ID {
		t.Errorf("id = %d, want %d", got.ID, tok.ID)
	}

	// Lookup stamps last_used_at.
	stamped, err := ts.GetByID(tok.ID)
	if err != nil {
		t.Fatalf("get by id: %v", err)
	}
	if stamped.LastUsedAt == nil {
		t.Error("expected last_used_at to be stamped after use")
	}
}

func TestTokenGetBySecretUnknown(t *testing.T) {
	ts := setupTokenTestDB(t)

	got, err := ts.GetBySecret("nope")
	if err != nil {
		t.Fatalf("get by secret: %v", err)
	}
	if got != nil {
		t.Error("expected nil for unknown secret")
	}
}

func TestTokenRevoke(t *testing.T) {
	ts := setupTokenTestDB(t)

	tok, _ := ts.Create("old", model.ScopeAdmin)
	if err := ts.Revoke(tok.ID); err != nil {
		t.Fatalf("revoke: %v", err)
	}

	got, err := ts.GetBySecret(tok.Token)
	if err != nil {
		t.Fatalf("get by secret: %v", err)
	}
	if got != nil {
		t.Error("expected revoked token to be unusable")
	}
}

func TestTokenSecretsUnique(t *testing.T) {
	ts := setupTokenTestDB(t)

	a, _ := ts.Create("a", model.ScopeRead)
	b, _ := ts.Create("b", model.ScopeRead)
	if a.Token == b.Token {
		t.Error("expected distinct secrets")
	}
}
