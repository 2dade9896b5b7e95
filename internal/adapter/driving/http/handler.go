// Package httphandler is the HTTP driving adapter for the one-time OAuth2
// authorization flow.
package httphandler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Authorizer completes the authorization flow with a one-time code.
type Authorizer interface {
	Authorize(ctx context.Context, code string) error
}

// Handler serves the authorization redirect, the callback and a health probe.
type Handler struct {
	authURL    string
	authorizer Authorizer
	tokens     driven.TokenStore
	logger     *slog.Logger
}

// NewHandler creates a Handler with all required dependencies. authURL is
// the provider consent page users are redirected to.
func NewHandler(authURL string, authorizer Authorizer, tokens driven.TokenStore, logger *slog.Logger) *Handler {
	return &Handler{
		authURL:    authURL,
		authorizer: authorizer,
		tokens:     tokens,
		logger:     logger,
	}
}

// NewServeMux creates an http.Handler with all routes registered and wrapped
// with logging and recovery middleware.
func NewServeMux(h *Handler, logger *slog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", h.Authorize)
	mux.HandleFunc("GET /callback", h.Callback)
	mux.HandleFunc("GET /api/v1/health", h.Health)

	// Recovery innermost so panics are caught before logging.
	wrapped := recoveryMiddleware(logger, mux)
	wrapped = loggingMiddleware(logger, wrapped)

	return wrapped
}

// Authorize redirects the browser to the provider consent page.
func (h *Handler) Authorize(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.authURL, http.StatusFound)
}

// Callback receives the one-time code from the provider and exchanges it
// for the initial credential.
func (h *Handler) Callback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	if providerErr := query.Get("error"); providerErr != "" {
		h.logger.Warn("authorization denied by provider", "error", providerErr)
		writeError(w, http.StatusBadRequest, "authorization denied: "+providerErr)
		return
	}

	code := query.Get("code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "missing authorization code")
		return
	}

	if err := h.authorizer.Authorize(r.Context(), code); err != nil {
		var exchangeErr *model.AuthExchangeError
		if errors.As(err, &exchangeErr) {
			h.logger.Error("authorization code exchange failed", "error", err)
			writeError(w, http.StatusInternalServerError, "authorization failed, please try again")
			return
		}
		h.logger.Error("failed to store credential", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeHTML(w, http.StatusOK, authorizedPage)
}

// Health reports liveness and whether a credential has been stored.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	cred, err := h.tokens.Get(r.Context())
	if err != nil {
		h.logger.Error("failed to read credential", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "degraded",
			Time:   time.Now().UTC().Format(time.RFC3339),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{
		Status:     "ok",
		Time:       time.Now().UTC().Format(time.RFC3339),
		Authorized: cred != nil && !cred.IsZero(),
	})
}

const authorizedPage = `<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>campnudge</title></head>
<body>
<h1>Authorization complete</h1>
<p>Tokens were stored. You can close this window and run <code>campnudge scan</code>.</p>
</body>
</html>
`
