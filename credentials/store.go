/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package credentials caches the bearer token and signed-in user on disk.
package credentials

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/golang-jwt/jwt/v5"

	"github.com/Seednode/khawawish/protocol"
)

var (
	ErrNotFound = errors.New("credentials: none saved")
	ErrExpired  = errors.New("credentials: token expired")
	ErrNoExpiry = errors.New("credentials: token has no exp claim")
)

// Credentials is what a successful login leaves behind.
type Credentials struct {
	Token string
	User  protocol.User
	Saved time.Time
}

type file struct {
	Token string    `toml:"token"`
	Saved time.Time `toml:"saved"`
	User  profile   `toml:"user"`
}

type profile struct {
	UserID      string `toml:"user_id"`
	Username    string `toml:"username"`
	DisplayName string `toml:"display_name"`
	Email       string `toml:"email,omitempty"`
	AvatarURL   string `toml:"avatar_url,omitempty"`
}

// Store reads and writes one credentials file.
type Store struct {
	path string
	now  func() time.Time

	mu sync.Mutex
}

func NewStore(path string) *Store {
	return &Store{path: path, now: time.Now}
}

// DefaultPath is credentials.toml under the user's config directory.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("credentials: %w", err)
	}

	return filepath.Join(dir, "khawawish", "credentials.toml"), nil
}

func (s *Store) Path() string { return s.path }

// Load returns the saved credentials. A token that has already expired is
// removed and reported as ErrExpired.
func (s *Store) Load() (Credentials, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var f file
	_, err := toml.DecodeFile(s.path, &f)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Credentials{}, ErrNotFound
	case err != nil:
		return Credentials{}, fmt.Errorf("credentials: read %s: %w", s.path, err)
	case f.Token == "":
		return Credentials{}, ErrNotFound
	}

	exp, err := Expiry(f.Token)
	if err != nil && !errors.Is(err, ErrNoExpiry) {
		return Credentials{}, err
	}
	if err == nil && !exp.After(s.now()) {
		if err := s.remove(); err != nil {
			return Credentials{}, err
		}
		return Credentials{}, ErrExpired
	}

	return Credentials{
		Token: f.Token,
		Saved: f.Saved,
		User: protocol.User{
			UserID:      f.User.UserID,
			Username:    f.User.Username,
			DisplayName: f.User.DisplayName,
			Email:       f.User.Email,
			AvatarURL:   f.User.AvatarURL,
		},
	}, nil
}

func (s *Store) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.Saved.IsZero() {
		c.Saved = s.now()
	}

	f := file{
		Token: c.Token,
		Saved: c.Saved.UTC().Truncate(time.Second),
		User: profile{
			UserID:      c.User.UserID,
			Username:    c.User.Username,
			DisplayName: c.User.DisplayName,
			Email:       c.User.Email,
			AvatarURL:   c.User.AvatarURL,
		},
	}

	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(f); err != nil {
		return fmt.Errorf("credentials: encode: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("credentials: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("credentials: write: %w", err)
	}

	if err := os.Rename(tmp, s.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("credentials: write: %w", err)
	}

	return nil
}

// Clear forgets the saved credentials. Clearing nothing is not an error.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.remove()
}

func (s *Store) remove() error {
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("credentials: %w", err)
	}

	return nil
}

// Expiry reads the exp claim of token without verifying its signature.
// Only the issuer can verify; this is used to skip tokens that are
// certain to be refused.
func Expiry(token string) (time.Time, error) {
	var claims jwt.RegisteredClaims

	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, fmt.Errorf("credentials: parse token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, ErrNoExpiry
	}

	return claims.ExpiresAt.Time, nil
}
