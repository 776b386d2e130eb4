package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T, adminPassword string) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "users.json")
	store, err := Open(path, adminPassword)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	return store, path
}

func TestOpenSeedsAdmin(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")

	isAdmin, err := store.Authenticate("admin", "admin-secret")
	if err != nil {
		t.Fatalf("seeded admin cannot authenticate: %v", err)
	}
	if !isAdmin {
		t.Error("seeded admin account is not an administrator")
	}
}

func TestRegisterAndAuthenticate(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")

	if err := store.Register("alice", "wonder"); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	isAdmin, err := store.Authenticate("alice", "wonder")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if isAdmin {
		t.Error("registered user should not be an administrator")
	}
}

func TestAuthenticateRejectsBadCredentials(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")
	if err := store.Register("alice", "wonder"); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{name: "wrong password", username: "alice", password: "nope"},
		{name: "unknown user", username: "bob", password: "wonder"},
		{name: "empty password", username: "alice", password: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := store.Authenticate(tt.username, tt.password); !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("expected ErrInvalidCredentials, got %v", err)
			}
		})
	}
}

func TestRegisterDuplicate(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")

	if err := store.Register("alice", "wonder"); err != nil {
		t.Fatal(err)
	}
	if err := store.Register("alice", "other"); !errors.Is(err, ErrUserExists) {
		t.Errorf("expected ErrUserExists, got %v", err)
	}
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")

	if err := store.Register("", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty username: expected ErrInvalidCredentials, got %v", err)
	}
	if err := store.Register("carol", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("empty password: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestResetPassword(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")
	if err := store.Register("alice", "old-password"); err != nil {
		t.Fatal(err)
	}

	if err := store.ResetPassword("admin", "alice", "new-password"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	if _, err := store.Authenticate("alice", "old-password"); !errors.Is(err, ErrInvalidCredentials) {
		t.Error("old password still accepted after reset")
	}
	if _, err := store.Authenticate("alice", "new-password"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}
}

func TestResetPasswordRequiresAdmin(t *testing.T) {
	store, _ := openTestStore(t, "admin-secret")
	if err := store.Register("alice", "pw"); err != nil {
		t.Fatal(err)
	}
	if err := store.Register("bob", "pw"); err != nil {
		t.Fatal(err)
	}

	if err := store.ResetPassword("bob", "alice", "hacked"); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("expected ErrNotAdmin, got %v", err)
	}
	if err := store.ResetPassword("admin", "nobody", "pw"); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("expected ErrUserNotFound, got %v", err)
	}
}

func TestStorePersistsAcrossOpens(t *testing.T) {
	store, path := openTestStore(t, "admin-secret")
	if err := store.Register("alice", "wonder"); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, "ignored-on-existing-store")
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	if _, err := reopened.Authenticate("alice", "wonder"); err != nil {
		t.Errorf("registered user lost after reopen: %v", err)
	}
}

func TestStoreNeverHoldsPlaintext(t *testing.T) {
	store, path := openTestStore(t, "admin-secret")
	if err := store.Register("alice", "wonder"); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	for _, secret := range []string{"wonder", "admin-secret"} {
		if bytes.Contains(data, []byte(secret)) {
			t.Errorf("plaintext password %q found in the store file", secret)
		}
	}
}
