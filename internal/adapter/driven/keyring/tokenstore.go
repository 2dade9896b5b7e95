// Package keyring implements the TokenStore port on top of the operating
// system's credential store.
package keyring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/99designs/keyring"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenStore)(nil)

const (
	serviceName = "campnudge"
	itemKey     = "basecamp-oauth"
)

// tokenItem is the JSON document stored as the keyring item's data.
type tokenItem struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TokenStore persists the credential as a single keyring item.
type TokenStore struct {
	ring keyring.Keyring
}

// Open returns a TokenStore backed by the first available system keyring.
// fileDir and passphrase configure the encrypted file fallback used on
// headless hosts without a keychain or secret service.
func Open(fileDir, passphrase string) (*TokenStore, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  fileDir,
		FilePasswordFunc:         keyring.FixedStringPrompt(passphrase),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return NewTokenStore(ring), nil
}

// NewTokenStore wraps an already opened keyring.
func NewTokenStore(ring keyring.Keyring) *TokenStore {
	return &TokenStore{ring: ring}
}

// Get returns the stored credential, or (nil, nil) if none has been saved.
func (s *TokenStore) Get(_ context.Context) (*model.Credential, error) {
	item, err := s.ring.Get(itemKey)
	if errors.Is(err, keyring.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting credential %q: %w", itemKey, err)
	}

	var stored tokenItem
	if err := json.Unmarshal(item.Data, &stored); err != nil {
		return nil, fmt.Errorf("decoding credential %q: %w", itemKey, err)
	}

	return &model.Credential{
		AccessToken:  stored.AccessToken,
		RefreshToken: stored.RefreshToken,
		UpdatedAt:    stored.UpdatedAt.UTC(),
	}, nil
}

// Save replaces the keyring item with the given credential.
func (s *TokenStore) Save(_ context.Context, cred model.Credential) error {
	data, err := json.Marshal(tokenItem{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		UpdatedAt:    cred.UpdatedAt.UTC(),
	})
	if err != nil {
		return fmt.Errorf("encoding credential %q: %w", itemKey, err)
	}

	err = s.ring.Set(keyring.Item{
		Key:         itemKey,
		Data:        data,
		Label:       "campnudge Basecamp token",
		Description: "OAuth2 access and refresh token for the Basecamp API",
	})
	if err != nil {
		return fmt.Errorf("setting credential %q: %w", itemKey, err)
	}

	return nil
}
