package driven

import (
	"context"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// TokenEndpoint defines the driven port for the OAuth2 provider.
type TokenEndpoint interface {
	// AuthorizationURL returns the URL the user is redirected to in order to
	// grant access. The provider redirects back with a one-time code.
	AuthorizationURL() string

	// Exchange trades a one-time authorization code for the initial token pair.
	Exchange(ctx context.Context, code string) (model.TokenGrant, error)

	// Refresh trades a refresh token for a new access token. The returned
	// grant's RefreshToken is empty when the provider did not rotate it.
	Refresh(ctx context.Context, refreshToken string) (model.TokenGrant, error)
}
