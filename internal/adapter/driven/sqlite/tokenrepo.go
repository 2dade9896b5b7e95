package sqlite

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"database/sql"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenStore = (*TokenRepo)(nil)

// tokenRowID is the fixed primary key of the single credential row.
const tokenRowID = 1

// encryptedPrefix marks token values sealed with AES-256-GCM.
const encryptedPrefix = "enc:"

// TokenRepo is the SQLite implementation of the TokenStore port.
// When constructed with a key, token values are encrypted with AES-256-GCM
// before write and decrypted after read.
type TokenRepo struct {
	db  *DB
	key []byte // 32-byte AES-256 key; nil stores tokens as plaintext.
}

// NewTokenRepo creates a new TokenRepo. key must be 32 bytes for AES-256-GCM,
// or nil to store tokens unencrypted.
func NewTokenRepo(db *DB, key []byte) *TokenRepo {
	return &TokenRepo{db: db, key: key}
}

// Get returns the stored credential, or (nil, nil) if none has been saved.
func (r *TokenRepo) Get(ctx context.Context) (*model.Credential, error) {
	const query = `SELECT access_token, refresh_token, updated_at FROM tokens WHERE id = ?`

	var access, refresh, updatedAt string
	err := r.db.Reader.QueryRowContext(ctx, query, tokenRowID).Scan(&access, &refresh, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tokens: %w", err)
	}

	var cred model.Credential
	if cred.AccessToken, err = r.open(access); err != nil {
		return nil, fmt.Errorf("decrypt access token: %w", err)
	}
	if cred.RefreshToken, err = r.open(refresh); err != nil {
		return nil, fmt.Errorf("decrypt refresh token: %w", err)
	}
	if cred.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse tokens updated_at: %w", err)
	}

	return &cred, nil
}

// Save stores or replaces the credential row in a single statement.
func (r *TokenRepo) Save(ctx context.Context, cred model.Credential) error {
	access, err := r.seal(cred.AccessToken)
	if err != nil {
		return fmt.Errorf("encrypt access token: %w", err)
	}
	refresh, err := r.seal(cred.RefreshToken)
	if err != nil {
		return fmt.Errorf("encrypt refresh token: %w", err)
	}

	const query = `
		INSERT INTO tokens (id, access_token, refresh_token, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			access_token = excluded.access_token,
			refresh_token = excluded.refresh_token,
			updated_at = excluded.updated_at`

	_, err = r.db.Writer.ExecContext(ctx, query, tokenRowID, access, refresh, formatTime(cred.UpdatedAt))
	if err != nil {
		return fmt.Errorf("save tokens: %w", err)
	}
	return nil
}

// seal encrypts plaintext using AES-256-GCM and returns a prefixed base64 string
// containing the nonce (12 bytes) prepended to the ciphertext.
func (r *TokenRepo) seal(plaintext string) (string, error) {
	if r.key == nil {
		return plaintext, nil
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("rand nonce: %w", err)
	}

	// Seal appends the ciphertext to nonce, producing: nonce || ciphertext || tag.
	ciphertext := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return encryptedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open reverses seal. Values written without a key are returned unchanged.
func (r *TokenRepo) open(stored string) (string, error) {
	if len(stored) < len(encryptedPrefix) || stored[:len(encryptedPrefix)] != encryptedPrefix {
		return stored, nil
	}
	if r.key == nil {
		return "", driven.ErrEncryptionKeyNotSet
	}

	data, err := base64.StdEncoding.DecodeString(stored[len(encryptedPrefix):])
	if err != nil {
		return "", fmt.Errorf("base64 decode: %w", err)
	}

	gcm, err := newGCM(r.key)
	if err != nil {
		return "", err
	}

	nonceSize := gcm.NonceSize()
	if len(data) < nonceSize {
		return "", errors.New("ciphertext too short")
	}

	nonce, ciphertext := data[:nonceSize], data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("gcm.Open: %w", err)
	}

	return string(plaintext), nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("aes.NewCipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("cipher.NewGCM: %w", err)
	}
	return gcm, nil
}
