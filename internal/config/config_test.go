package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateConfigEnv saves and unsets all CAMPNUDGE_ env vars so tests don't
// inherit values from the host environment. t.Cleanup restores original
// values after the test.
func isolateConfigEnv(t *testing.T) {
	t.Helper()
	for key := range defaults {
		name := envName(key)
		if orig, ok := os.LookupEnv(name); ok {
			t.Cleanup(func() { os.Setenv(name, orig) })
		} else {
			t.Cleanup(func() { os.Unsetenv(name) })
		}
		os.Unsetenv(name)
	}
}

func setAPICredentials(t *testing.T) {
	t.Helper()
	t.Setenv("CAMPNUDGE_CLIENT_ID", "client-123")
	t.Setenv("CAMPNUDGE_CLIENT_SECRET", "shh")
	t.Setenv("CAMPNUDGE_ACCOUNT_ID", "999")
}

func TestLoad_Defaults(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "campnudge.db", cfg.DBPath)
	assert.Equal(t, "127.0.0.1:8000", cfg.ListenAddr)
	assert.Equal(t, "http://localhost:8000/callback", cfg.RedirectURI)
	assert.Equal(t, "https://3.basecampapi.com", cfg.APIBaseURL)
	assert.Equal(t, "https://launchpad.37signals.com", cfg.LaunchpadURL)
	assert.Equal(t, TokenBackendSQLite, cfg.TokenBackend)
	assert.Equal(t, 7*24*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 7*24*time.Hour, cfg.Cooldown)
	assert.Equal(t, 7*24*time.Hour, cfg.TokenMaxAge)
	assert.Equal(t, 365*24*time.Hour, cfg.MaxProjectIdle)
	assert.Equal(t, 5*365*24*time.Hour, cfg.MaxProjectAge)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 4, cfg.ScanConcurrency)
	assert.False(t, cfg.HasSecretKey())

	require.NotNil(t, cfg.ProjectRegexp)
	assert.True(t, cfg.ProjectRegexp.MatchString("K6123_EXTERNAL Acme"))
	assert.False(t, cfg.ProjectRegexp.MatchString("K612_EXTERNAL Acme"))
}

func TestLoad_FromEnvironment(t *testing.T) {
	isolateConfigEnv(t)
	setAPICredentials(t)
	t.Setenv("CAMPNUDGE_STALE_AFTER", "72h")
	t.Setenv("CAMPNUDGE_COOLDOWN", "24h")
	t.Setenv("CAMPNUDGE_SCAN_CONCURRENCY", "8")
	t.Setenv("CAMPNUDGE_DB_PATH", "/tmp/test.db")
	t.Setenv("CAMPNUDGE_TOKEN_BACKEND", "keyring")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "client-123", cfg.ClientID)
	assert.Equal(t, "999", cfg.AccountID)
	assert.Equal(t, 72*time.Hour, cfg.StaleAfter)
	assert.Equal(t, 24*time.Hour, cfg.Cooldown)
	assert.Equal(t, 8, cfg.ScanConcurrency)
	assert.Equal(t, "/tmp/test.db", cfg.DBPath)
	assert.Equal(t, TokenBackendKeyring, cfg.TokenBackend)
	assert.NoError(t, cfg.RequireAPICredentials())
}

func TestLoad_ConfigFile(t *testing.T) {
	isolateConfigEnv(t)
	path := filepath.Join(t.TempDir(), "campnudge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client_id: from-file
account_id: "12345"
cooldown: 336h
project_pattern: "^ACME-"
`), 0o600))
	t.Setenv("CAMPNUDGE_CLIENT_ID", "from-env")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.ClientID, "environment overrides the file")
	assert.Equal(t, "12345", cfg.AccountID)
	assert.Equal(t, 14*24*time.Hour, cfg.Cooldown)
	assert.True(t, cfg.ProjectRegexp.MatchString("ACME-1"))
}

func TestLoad_MissingConfigFile(t *testing.T) {
	isolateConfigEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestRequireAPICredentials(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CAMPNUDGE_CLIENT_ID", "client-123")
	t.Setenv("CAMPNUDGE_CLIENT_SECRET", "shh")

	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.RequireAPICredentials()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPNUDGE_ACCOUNT_ID")
}

func TestLoad_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		wantErr string
	}{
		{"bad duration", "CAMPNUDGE_STALE_AFTER", "not-a-duration", ""},
		{"zero cooldown", "CAMPNUDGE_COOLDOWN", "0s", "CAMPNUDGE_COOLDOWN"},
		{"negative timeout", "CAMPNUDGE_REQUEST_TIMEOUT", "-5s", "CAMPNUDGE_REQUEST_TIMEOUT"},
		{"zero concurrency", "CAMPNUDGE_SCAN_CONCURRENCY", "0", "CAMPNUDGE_SCAN_CONCURRENCY"},
		{"bad regex", "CAMPNUDGE_PROJECT_PATTERN", "([", "CAMPNUDGE_PROJECT_PATTERN"},
		{"unknown backend", "CAMPNUDGE_TOKEN_BACKEND", "vault", "CAMPNUDGE_TOKEN_BACKEND"},
		{"empty marker", "CAMPNUDGE_THREAD_MARKER", " ", "CAMPNUDGE_THREAD_MARKER"},
		{"subject without marker", "CAMPNUDGE_THREAD_SUBJECT", "Reminders", "CAMPNUDGE_THREAD_SUBJECT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateConfigEnv(t)
			t.Setenv(tt.key, tt.value)

			cfg, err := Load("")

			assert.Nil(t, cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoad_SecretKey_Valid(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CAMPNUDGE_SECRET_KEY", "0102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f20")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.True(t, cfg.HasSecretKey())
	assert.Len(t, cfg.SecretKey, 32)
}

func TestLoad_SecretKey_TooShort(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CAMPNUDGE_SECRET_KEY", "deadbeef")

	cfg, err := Load("")

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPNUDGE_SECRET_KEY")
}

func TestLoad_SecretKey_NotHex(t *testing.T) {
	isolateConfigEnv(t)
	t.Setenv("CAMPNUDGE_SECRET_KEY", "zzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzzz")

	cfg, err := Load("")

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CAMPNUDGE_SECRET_KEY")
}
