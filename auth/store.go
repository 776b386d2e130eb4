// Package auth keeps the user credential store: a JSON file mapping
// usernames to bcrypt password hashes and an admin flag.
package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

var (
	ErrUserExists         = errors.New("username already exists")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotAdmin           = errors.New("administrator privileges required")
)

type User struct {
	PasswordHash string `json:"password_hash"`
	IsAdmin      bool   `json:"is_admin"`
}

// Store persists users as a JSON file. Writes go through a temp file and
// rename so a crash cannot truncate the store.
type Store struct {
	mu    sync.Mutex
	path  string
	users map[string]User
}

// Open loads the user store, seeding an admin account with the given
// password on first run. An empty adminPassword leaves the store without
// an admin until one is registered via the file.
func Open(path, adminPassword string) (*Store, error) {
	s := &Store{
		path:  path,
		users: make(map[string]User),
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &s.users); err != nil {
			return nil, fmt.Errorf("failed to parse user store %s: %w", path, err)
		}
		return s, nil
	case os.IsNotExist(err):
		if adminPassword != "" {
			hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
			if err != nil {
				return nil, fmt.Errorf("failed to hash admin password: %w", err)
			}
			s.users["admin"] = User{PasswordHash: string(hash), IsAdmin: true}
		}
		if err := s.persist(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("failed to read user store %s: %w", path, err)
	}
}

// Register adds a new non-admin user.
func (s *Store) Register(username, password string) error {
	if username == "" || password == "" {
		return ErrInvalidCredentials
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[username]; ok {
		return ErrUserExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	s.users[username] = User{PasswordHash: string(hash)}
	return s.persist()
}

// Authenticate checks a username/password pair and reports whether the
// user is an administrator.
func (s *Store) Authenticate(username, password string) (isAdmin bool, err error) {
	s.mu.Lock()
	user, ok := s.users[username]
	s.mu.Unlock()

	if !ok {
		// Burn a comparison anyway so unknown usernames take as long as
		// wrong passwords.
		bcrypt.CompareHashAndPassword([]byte("$2a$10$0000000000000000000000000000000000000000000000000000"), []byte(password))
		return false, ErrInvalidCredentials
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return false, ErrInvalidCredentials
	}
	return user.IsAdmin, nil
}

// ResetPassword sets a new password for target. Only an administrator may
// reset another user's password.
func (s *Store) ResetPassword(admin, target, newPassword string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	actor, ok := s.users[admin]
	if !ok || !actor.IsAdmin {
		return ErrNotAdmin
	}

	user, ok := s.users[target]
	if !ok {
		return ErrUserNotFound
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = string(hash)
	s.users[target] = user
	return s.persist()
}

// persist assumes s.mu is held (or exclusive access during Open).
func (s *Store) persist() error {
	data, err := json.MarshalIndent(s.users, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode user store: %w", err)
	}

	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create user store directory: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write user store: %w", err)
	}
	return os.Rename(tmp, s.path)
}
