// package services contains the HTTP clients for the audiobook server API:
// authentication (password and OIDC logins, token refresh), playback
// sessions, and bookmark CRUD, plus the credential refresh coordinator
// that keeps bearer tokens fresh under concurrent demand.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
)

// CredentialSource yields a currently-valid credential for outgoing requests.
// Implemented by [CredentialCoordinator]; nil means unauthenticated requests.
type CredentialSource interface {
	FreshCredentials(ctx context.Context) (models.Credentials, error)
}

// NetworkService makes authenticated JSON requests against one server.
type NetworkService struct {
	baseURL     string
	headers     map[string]string
	credentials CredentialSource
	httpClient  *http.Client
}

// NewNetworkService creates a NetworkService for the given base URL.
// headers are sent on every request (custom per-connection headers);
// credentials may be nil for unauthenticated endpoints like login.
func NewNetworkService(baseURL string, headers map[string]string, credentials CredentialSource, client *http.Client) *NetworkService {
	if client == nil {
		client = http.DefaultClient
	}
	return &NetworkService{
		baseURL:     baseURL,
		headers:     headers,
		credentials: credentials,
		httpClient:  client,
	}
}

// Send performs a JSON request to the specified path. A non-nil body is
// marshalled into the request; a non-nil result is decoded from the
// response body. Transport failures map to [shared.ErrAPIRequest], body
// failures to [shared.ErrDecoding].
func (s *NetworkService) Send(ctx context.Context, method, path string, body any, result any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}

	if s.credentials != nil {
		creds, err := s.credentials.FreshCredentials(ctx)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", creds.Bearer())
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d", shared.ErrAPIRequest, method, path, resp.StatusCode)
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("%w: %v", shared.ErrDecoding, err)
		}
	}

	return nil
}
