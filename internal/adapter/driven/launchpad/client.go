// Package launchpad implements the TokenEndpoint port against the 37signals
// Launchpad OAuth2 provider.
package launchpad

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ericfisherdev/campnudge/internal/domain/model"
	"github.com/ericfisherdev/campnudge/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TokenEndpoint = (*Client)(nil)

// DefaultBaseURL is the production Launchpad root.
const DefaultBaseURL = "https://launchpad.37signals.com"

// maxErrorBody bounds how much of an error response is kept for diagnostics.
const maxErrorBody = 1024

// Credentials identifies the registered OAuth2 application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// Client talks to the Launchpad authorization and token endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      Credentials
}

// NewClient creates a Launchpad client with a bounded request timeout.
func NewClient(baseURL string, creds Credentials, timeout time.Duration) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: timeout}, baseURL, creds)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string, creds Credentials) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
	}
}

// tokenRequest is the JSON body accepted by /authorization/token.
type tokenRequest struct {
	Type         string `json:"type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Code         string `json:"code,omitempty"`
	RedirectURI  string `json:"redirect_uri,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
}

// tokenResponse is the JSON body returned by /authorization/token.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error"`
}

// AuthorizationURL returns the consent URL for the web_server flow.
func (c *Client) AuthorizationURL() string {
	params := url.Values{}
	params.Set("type", "web_server")
	params.Set("client_id", c.creds.ClientID)
	params.Set("redirect_uri", c.creds.RedirectURI)
	return c.baseURL + "/authorization/new?" + params.Encode()
}

// Exchange trades a one-time authorization code for the initial token pair.
func (c *Client) Exchange(ctx context.Context, code string) (model.TokenGrant, error) {
	if code == "" {
		return model.TokenGrant{}, errors.New("authorization code is empty")
	}

	grant, err := c.requestToken(ctx, tokenRequest{
		Type:         "web_server",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		Code:         code,
		RedirectURI:  c.creds.RedirectURI,
	})
	if err != nil {
		return model.TokenGrant{}, err
	}
	if grant.RefreshToken == "" {
		return model.TokenGrant{}, errors.New("token endpoint returned no refresh token")
	}
	return grant, nil
}

// Refresh trades a refresh token for a new access token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (model.TokenGrant, error) {
	if refreshToken == "" {
		return model.TokenGrant{}, errors.New("refresh token is empty")
	}

	return c.requestToken(ctx, tokenRequest{
		Type:         "refresh",
		ClientID:     c.creds.ClientID,
		ClientSecret: c.creds.ClientSecret,
		RefreshToken: refreshToken,
	})
}

func (c *Client) requestToken(ctx context.Context, body tokenRequest) (model.TokenGrant, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return model.TokenGrant{}, fmt.Errorf("marshaling token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/authorization/token", bytes.NewReader(data))
	if err != nil {
		return model.TokenGrant{}, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return model.TokenGrant{}, fmt.Errorf("token request (%s): %w", body.Type, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.TokenGrant{}, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if len(respBody) > maxErrorBody {
			respBody = respBody[:maxErrorBody]
		}
		return model.TokenGrant{}, fmt.Errorf("token endpoint returned HTTP %d (%s): %s", resp.StatusCode, body.Type, strings.TrimSpace(string(respBody)))
	}

	var result tokenResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return model.TokenGrant{}, fmt.Errorf("decoding token response: %w", err)
	}
	if result.Error != "" {
		return model.TokenGrant{}, fmt.Errorf("token endpoint error (%s): %s", body.Type, result.Error)
	}
	if result.AccessToken == "" {
		return model.TokenGrant{}, errors.New("token endpoint returned empty access token")
	}

	return model.TokenGrant{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresIn:    result.ExpiresIn,
	}, nil
}
