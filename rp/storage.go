package rp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/oauth2"
)

// TokenBundle is what the client keeps between runs.
type TokenBundle struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"` // absolute, computed when the token was received
}

// Expired reports whether the access token has expired at now.
func (b *TokenBundle) Expired(now time.Time) bool {
	return !b.ExpiresAt.IsZero() && !now.Before(b.ExpiresAt)
}

func bundleFromToken(tok *oauth2.Token) *TokenBundle {
	b := &TokenBundle{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    tok.Expiry,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		b.Scope = scope
	}
	return b
}

// TokenStorage persists the current token bundle. Load returns nil, nil when
// nothing is stored.
type TokenStorage interface {
	Load() (*TokenBundle, error)
	Save(bundle *TokenBundle) error
	Clear() error
}

// MemoryStorage keeps the bundle for the life of the process.
type MemoryStorage struct {
	mu     sync.Mutex
	bundle *TokenBundle
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

func (m *MemoryStorage) Load() (*TokenBundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.bundle == nil {
		return nil, nil
	}
	copied := *m.bundle
	return &copied, nil
}

func (m *MemoryStorage) Save(bundle *TokenBundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *bundle
	m.bundle = &copied
	return nil
}

func (m *MemoryStorage) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundle = nil
	return nil
}

// FileStorage keeps the bundle as JSON in a file readable only by the owner.
type FileStorage struct {
	mu   sync.Mutex
	path string
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{path: path}
}

func (f *FileStorage) Load() (*TokenBundle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "[FileStorage.Load]")
	}
	var b TokenBundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, errors.Wrapf(err, "[FileStorage.Load] decoding %s", f.path)
	}
	return &b, nil
}

// Save writes through a temporary file so a crash never leaves half a bundle.
func (f *FileStorage) Save(bundle *TokenBundle) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return errors.Wrap(err, "[FileStorage.Save] encoding")
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return errors.Wrap(err, "[FileStorage.Save] creating directory")
	}
	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return errors.Wrap(err, "[FileStorage.Save] writing")
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return errors.Wrap(err, "[FileStorage.Save] renaming")
	}
	return nil
}

func (f *FileStorage) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return errors.Wrap(err, "[FileStorage.Clear]")
	}
	return nil
}
