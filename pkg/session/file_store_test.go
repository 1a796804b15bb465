package session

import (
	"os"
	"path/filepath"
	"testing"

	"frostgreet/pkg/domain"
)

func TestFileStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}

	if sess := store.Session(); sess.Authenticated() {
		t.Fatalf("fresh store should be empty, got %+v", sess)
	}

	user := domain.UserProfile{ID: 7, Username: "frosty", Email: "frosty@example.com"}
	if err := store.SetSession("tok-123", user); err != nil {
		t.Fatalf("set session: %v", err)
	}

	// A second store on the same path must see the persisted session.
	reopened, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("reopen store: %v", err)
	}
	sess := reopened.Session()
	if sess.Token != "tok-123" {
		t.Fatalf("unexpected token: %q", sess.Token)
	}
	if sess.User == nil || sess.User.Email != "frosty@example.com" {
		t.Fatalf("unexpected user: %+v", sess.User)
	}
}

func TestFileStoreClearIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if err := store.SetSession("tok", domain.UserProfile{ID: 1, Username: "u", Email: "u@example.com"}); err != nil {
		t.Fatalf("set session: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("first clear: %v", err)
	}
	if err := store.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if sess := store.Session(); sess.Authenticated() {
		t.Fatalf("session survived clear: %+v", sess)
	}
}

func TestFileStoreCorruptFileReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o600); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if sess := store.Session(); sess.Authenticated() {
		t.Fatalf("corrupt file should read as empty, got %+v", sess)
	}
}

func TestFileStoreHalfSessionReadsAsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte(`{"token":"tok","user":null}`), 0o600); err != nil {
		t.Fatalf("write half session: %v", err)
	}
	store, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("new file store: %v", err)
	}
	if sess := store.Session(); sess.Token != "" || sess.User != nil {
		t.Fatalf("token without user must read as empty, got %+v", sess)
	}
}
