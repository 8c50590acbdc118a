package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestSessionStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "session.json")

	s := NewSessionStore(path)
	if err := s.SetTokens(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}

	reopened := NewSessionStore(path)
	access, err := reopened.AccessToken(ctx)
	if err != nil {
		t.Fatalf("AccessToken: %v", err)
	}
	refresh, err := reopened.RefreshToken(ctx)
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if access != "access-1" || refresh != "refresh-1" {
		t.Fatalf("unexpected tokens access=%q refresh=%q", access, refresh)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("expected 0600 permissions, got %o", perm)
	}
}

func TestSessionStore_SetAccessTokenKeepsRefresh(t *testing.T) {
	ctx := context.Background()
	s := NewSessionStore(filepath.Join(t.TempDir(), "session.json"))

	if err := s.SetTokens(ctx, "old", "refresh"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}
	if err := s.SetAccessToken(ctx, "new"); err != nil {
		t.Fatalf("SetAccessToken: %v", err)
	}

	access, _ := s.AccessToken(ctx)
	refresh, _ := s.RefreshToken(ctx)
	if access != "new" || refresh != "refresh" {
		t.Fatalf("unexpected tokens access=%q refresh=%q", access, refresh)
	}
}

func TestSessionStore_ClearIsIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "session.json")
	s := NewSessionStore(path)

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear on missing file: %v", err)
	}
	if err := s.SetTokens(ctx, "a", "r"); err != nil {
		t.Fatalf("SetTokens: %v", err)
	}
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("expected session file to be removed, stat err=%v", err)
	}
	if tok, err := s.RefreshToken(ctx); err != nil || tok != "" {
		t.Fatalf("expected empty refresh token, got %q, %v", tok, err)
	}
}

func TestSessionStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := NewSessionStore(path).AccessToken(context.Background()); err == nil {
		t.Fatal("expected decode error for corrupt session file")
	}
}
