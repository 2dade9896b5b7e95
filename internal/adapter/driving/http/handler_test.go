package httphandler_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httphandler "github.com/ericfisherdev/campnudge/internal/adapter/driving/http"
	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

const testAuthURL = "https://launchpad.example.com/authorization/new?client_id=abc&type=web_server"

// --- Mock implementations ---

type mockAuthorizer struct {
	code string
	err  error
}

func (m *mockAuthorizer) Authorize(_ context.Context, code string) error {
	m.code = code
	return m.err
}

type mockTokenStore struct {
	cred *model.Credential
	err  error
}

func (m *mockTokenStore) Get(_ context.Context) (*model.Credential, error) { return m.cred, m.err }
func (m *mockTokenStore) Save(_ context.Context, _ model.Credential) error { return nil }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupMux(authorizer *mockAuthorizer, tokens *mockTokenStore) http.Handler {
	logger := discardLogger()
	h := httphandler.NewHandler(testAuthURL, authorizer, tokens, logger)
	return httphandler.NewServeMux(h, logger)
}

func serve(mux http.Handler, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v))
}

func TestAuthorize_RedirectsToProvider(t *testing.T) {
	rec := serve(setupMux(&mockAuthorizer{}, &mockTokenStore{}), "/")

	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, testAuthURL, rec.Header().Get("Location"))
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
}

func TestUnknownPath_NotFound(t *testing.T) {
	rec := serve(setupMux(&mockAuthorizer{}, &mockTokenStore{}), "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCallback_Success(t *testing.T) {
	authorizer := &mockAuthorizer{}
	rec := serve(setupMux(authorizer, &mockTokenStore{}), "/callback?code=one-time")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "Authorization complete")
	assert.Equal(t, "one-time", authorizer.code)
}

func TestCallback_MissingCode(t *testing.T) {
	authorizer := &mockAuthorizer{}
	rec := serve(setupMux(authorizer, &mockTokenStore{}), "/callback")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, authorizer.code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "missing authorization code", resp["error"])
}

func TestCallback_ProviderDenied(t *testing.T) {
	authorizer := &mockAuthorizer{}
	rec := serve(setupMux(authorizer, &mockTokenStore{}), "/callback?error=access_denied")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, authorizer.code)
}

func TestCallback_ExchangeFailure(t *testing.T) {
	authorizer := &mockAuthorizer{err: &model.AuthExchangeError{Err: errors.New("invalid_grant")}}
	rec := serve(setupMux(authorizer, &mockTokenStore{}), "/callback?code=expired")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp map[string]string
	decodeJSON(t, rec, &resp)
	assert.Equal(t, "authorization failed, please try again", resp["error"])
}

func TestCallback_StoreFailure(t *testing.T) {
	authorizer := &mockAuthorizer{err: errors.New("disk full")}
	rec := serve(setupMux(authorizer, &mockTokenStore{}), "/callback?code=ok")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		tokens         *mockTokenStore
		wantCode       int
		wantStatus     string
		wantAuthorized bool
	}{
		{"not authorized", &mockTokenStore{}, http.StatusOK, "ok", false},
		{"authorized", &mockTokenStore{cred: &model.Credential{AccessToken: "a", RefreshToken: "r", UpdatedAt: time.Now()}}, http.StatusOK, "ok", true},
		{"store error", &mockTokenStore{err: errors.New("locked")}, http.StatusServiceUnavailable, "degraded", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(setupMux(&mockAuthorizer{}, tt.tokens), "/api/v1/health")
			assert.Equal(t, tt.wantCode, rec.Code)

			var resp httphandler.HealthResponse
			decodeJSON(t, rec, &resp)
			assert.Equal(t, tt.wantStatus, resp.Status)
			assert.Equal(t, tt.wantAuthorized, resp.Authorized)
			assert.NotEmpty(t, resp.Time)
		})
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	logger := discardLogger()
	h := httphandler.NewHandler(testAuthURL, panicAuthorizer{}, &mockTokenStore{}, logger)
	rec := serve(httphandler.NewServeMux(h, logger), "/callback?code=boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

type panicAuthorizer struct{}

func (panicAuthorizer) Authorize(context.Context, string) error { panic("boom") }
