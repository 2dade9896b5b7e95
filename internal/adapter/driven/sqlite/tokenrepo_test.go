package sqlite

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

func TestTokenRepo_GetMissing(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepo(db, nil)

	cred, err := repo.Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestTokenRepo_SaveAndGet(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepo(db, nil)
	ctx := context.Background()
	updated := time.Date(2026, 3, 4, 10, 14, 59, 0, time.UTC)

	err := repo.Save(ctx, model.Credential{AccessToken: "access-a", RefreshToken: "refresh-r", UpdatedAt: updated})
	require.NoError(t, err)

	cred, err := repo.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "access-a", cred.AccessToken)
	assert.Equal(t, "refresh-r", cred.RefreshToken)
	assert.True(t, updated.Equal(cred.UpdatedAt))
}

func TestTokenRepo_SaveOverwritesSingleRow(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepo(db, nil)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credential{AccessToken: "old", RefreshToken: "r1", UpdatedAt: time.Now()}))
	require.NoError(t, repo.Save(ctx, model.Credential{AccessToken: "new", RefreshToken: "r2", UpdatedAt: time.Now()}))

	cred, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "new", cred.AccessToken)
	assert.Equal(t, "r2", cred.RefreshToken)

	var count int
	require.NoError(t, db.Reader.QueryRow(`SELECT COUNT(*) FROM tokens`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestTokenRepo_EncryptsAtRest(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTokenRepo(db, testKey())
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, model.Credential{AccessToken: "secret-access", RefreshToken: "secret-refresh", UpdatedAt: time.Now()}))

	var stored string
	require.NoError(t, db.Reader.QueryRow(`SELECT access_token FROM tokens WHERE id = 1`).Scan(&stored))
	assert.True(t, strings.HasPrefix(stored, encryptedPrefix))
	assert.NotContains(t, stored, "secret-access")

	cred, err := repo.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "secret-access", cred.AccessToken)
	assert.Equal(t, "secret-refresh", cred.RefreshToken)
}

func TestTokenRepo_EncryptedWithoutKey(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewTokenRepo(db, testKey()).Save(ctx, model.Credential{AccessToken: "a", RefreshToken: "r", UpdatedAt: time.Now()}))

	_, err := NewTokenRepo(db, nil).Get(ctx)
	assert.ErrorIs(t, err, driven.ErrEncryptionKeyNotSet)
}

func TestTokenRepo_WrongKeyFails(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, NewTokenRepo(db, testKey()).Save(ctx, model.Credential{AccessToken: "a", RefreshToken: "r", UpdatedAt: time.Now()}))

	_, err := NewTokenRepo(db, bytes.Repeat([]byte{0x07}, 32)).Get(ctx)
	assert.Error(t, err)
}
