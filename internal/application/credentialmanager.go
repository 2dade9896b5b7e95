// Package application contains use-case orchestration services.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// proactiveRetryInterval is how long a failed proactive refresh is not retried.
const proactiveRetryInterval = 15 * time.Minute

// CredentialManager owns the single OAuth2 credential. It hands the current
// access token to the API gateway, refreshes it when it ages out or is
// rejected, and persists every change through the TokenStore.
type CredentialManager struct {
	store    driven.TokenStore
	endpoint driven.TokenEndpoint
	maxAge   time.Duration
	now      func() time.Time

	mu     sync.RWMutex
	cred   model.Credential
	loaded bool
	// proactiveFailedAt suppresses proactive refresh for proactiveRetryInterval
	// after a failed attempt. Rejected tokens still refresh immediately.
	proactiveFailedAt time.Time

	// refreshes collapses concurrent refreshes into one token endpoint call.
	refreshes singleflight.Group
}

// NewCredentialManager creates a CredentialManager. A credential older than
// maxAge is refreshed before use; zero disables proactive refresh.
func NewCredentialManager(store driven.TokenStore, endpoint driven.TokenEndpoint, maxAge time.Duration) *CredentialManager {
	return &CredentialManager{
		store:    store,
		endpoint: endpoint,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// Load reads the stored credential into memory. It returns
// model.ErrNotAuthorized when the authorization flow has never completed.
func (m *CredentialManager) Load(ctx context.Context) error {
	cred, err := m.store.Get(ctx)
	if err != nil {
		return fmt.Errorf("loading credential: %w", err)
	}
	if cred == nil || cred.IsZero() {
		return model.ErrNotAuthorized
	}

	m.mu.Lock()
	m.cred = *cred
	m.loaded = true
	m.mu.Unlock()

	slog.Debug("credential loaded", "updated_at", cred.UpdatedAt)
	return nil
}

// Current returns the in-memory credential, refreshing it first when it is
// older than the configured threshold. A failed proactive refresh is logged
// and the existing credential is returned; the API decides whether it still works.
func (m *CredentialManager) Current(ctx context.Context) (model.Credential, error) {
	cred, err := m.snapshot(ctx)
	if err != nil {
		return model.Credential{}, err
	}

	now := m.now()
	if m.maxAge <= 0 || cred.Age(now) <= m.maxAge || m.proactiveBackingOff(now) {
		return cred, nil
	}

	slog.Info("credential older than threshold, refreshing", "age", cred.Age(now).Round(time.Minute), "threshold", m.maxAge)
	refreshed, err := m.Refresh(ctx)
	if err != nil {
		m.mu.Lock()
		m.proactiveFailedAt = now
		m.mu.Unlock()
		slog.Warn("proactive refresh failed, keeping existing credential",
			"error", err, "retry_in", proactiveRetryInterval)
		return cred, nil
	}
	return refreshed, nil
}

func (m *CredentialManager) proactiveBackingOff(now time.Time) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return !m.proactiveFailedAt.IsZero() && now.Sub(m.proactiveFailedAt) < proactiveRetryInterval
}

// AccessToken returns the access token of the current credential.
func (m *CredentialManager) AccessToken(ctx context.Context) (string, error) {
	cred, err := m.Current(ctx)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// Refresh exchanges the refresh token for a new access token. The TokenStore
// is written before the in-memory credential is replaced; on any failure an
// *model.AuthRefreshError is returned and the previous credential stays in place.
// Concurrent callers share a single token endpoint call.
func (m *CredentialManager) Refresh(ctx context.Context) (model.Credential, error) {
	return m.refreshOnce(ctx, "")
}

// RefreshRejected returns a token to use in place of one the API answered
// 401 to. When another caller has already replaced the rejected token the
// current one is returned without contacting the token endpoint.
func (m *CredentialManager) RefreshRejected(ctx context.Context, rejected string) (string, error) {
	cred, err := m.refreshOnce(ctx, rejected)
	if err != nil {
		return "", err
	}
	return cred.AccessToken, nil
}

// refreshOnce runs at most one refresh at a time. When rejected is set and
// the in-memory token already differs from it, no refresh is made.
func (m *CredentialManager) refreshOnce(ctx context.Context, rejected string) (model.Credential, error) {
	v, err, shared := m.refreshes.Do("refresh", func() (any, error) {
		if rejected != "" {
			m.mu.RLock()
			current := m.cred
			m.mu.RUnlock()
			if current.AccessToken != "" && current.AccessToken != rejected {
				return current, nil
			}
		}
		// A caller that gives up must not fail the refresh its siblings wait on.
		return m.refresh(context.WithoutCancel(ctx))
	})
	if shared {
		slog.Debug("joined in-flight credential refresh")
	}
	if err != nil {
		return model.Credential{}, err
	}
	return v.(model.Credential), nil
}

// Authorize exchanges a one-time authorization code for the initial token
// pair and stores both tokens, replacing any previous credential.
func (m *CredentialManager) Authorize(ctx context.Context, code string) error {
	grant, err := m.endpoint.Exchange(ctx, code)
	if err != nil {
		return &model.AuthExchangeError{Err: err}
	}
	if grant.AccessToken == "" || grant.RefreshToken == "" {
		return &model.AuthExchangeError{Err: errors.New("token endpoint returned an incomplete token pair")}
	}

	cred := model.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: grant.RefreshToken,
		UpdatedAt:    m.now().UTC(),
	}
	if err := m.store.Save(ctx, cred); err != nil {
		return fmt.Errorf("saving authorized credential: %w", err)
	}

	m.mu.Lock()
	m.cred = cred
	m.loaded = true
	m.mu.Unlock()

	slog.Info("authorization complete, credential stored")
	return nil
}

func (m *CredentialManager) refresh(ctx context.Context) (model.Credential, error) {
	current, err := m.snapshot(ctx)
	if err != nil {
		return model.Credential{}, &model.AuthRefreshError{Err: err}
	}
	if current.RefreshToken == "" {
		return model.Credential{}, &model.AuthRefreshError{Err: errors.New("no refresh token stored")}
	}

	grant, err := m.endpoint.Refresh(ctx, current.RefreshToken)
	if err != nil {
		return model.Credential{}, &model.AuthRefreshError{Err: err}
	}
	if grant.AccessToken == "" {
		return model.Credential{}, &model.AuthRefreshError{Err: errors.New("token endpoint returned empty access token")}
	}

	next := model.Credential{
		AccessToken:  grant.AccessToken,
		RefreshToken: current.RefreshToken,
		UpdatedAt:    m.now().UTC(),
	}
	// Rotation is provider-dependent: persist a new refresh token only when one is returned.
	rotated := grant.RefreshToken != "" && grant.RefreshToken != current.RefreshToken
	if grant.RefreshToken != "" {
		next.RefreshToken = grant.RefreshToken
	}

	if err := m.store.Save(ctx, next); err != nil {
		return model.Credential{}, &model.AuthRefreshError{Err: fmt.Errorf("saving refreshed credential: %w", err)}
	}

	m.mu.Lock()
	m.cred = next
	m.loaded = true
	m.proactiveFailedAt = time.Time{}
	m.mu.Unlock()

	slog.Info("access token refreshed", "refresh_token_rotated", rotated)
	return next, nil
}

// snapshot returns a copy of the in-memory credential, loading it from the
// store on first use.
func (m *CredentialManager) snapshot(ctx context.Context) (model.Credential, error) {
	m.mu.RLock()
	cred, loaded := m.cred, m.loaded
	m.mu.RUnlock()

	if loaded {
		return cred, nil
	}

	if err := m.Load(ctx); err != nil {
		return model.Credential{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cred, nil
}
