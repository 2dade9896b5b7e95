// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"
	"errors"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
)

// TokenStore defines the driven port for persisting the single OAuth2 credential.
type TokenStore interface {
	// Get returns the stored credential, or (nil, nil) if none has been saved.
	Get(ctx context.Context) (*model.Credential, error)

	// Save stores or replaces the credential. The write is a single-record
	// upsert; concurrent readers never observe a partially written record.
	Save(ctx context.Context, cred model.Credential) error
}

// ErrEncryptionKeyNotSet is returned by TokenStore reads when stored tokens are
// encrypted but CAMPNUDGE_SECRET_KEY has not been configured.
var ErrEncryptionKeyNotSet = errors.New("stored tokens are encrypted: set CAMPNUDGE_SECRET_KEY")
