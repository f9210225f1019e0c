package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/shelfsync/internal/models"
	"github.com/desertthunder/shelfsync/internal/shared"
	"golang.org/x/oauth2"
)

// ConnectionStore persists server connections.
type ConnectionStore interface {
	Create(conn *models.Connection) error
	Get(id string) (*models.Connection, error)
	Update(conn *models.Connection) error
	Delete(id string) error
	List() ([]*models.Connection, error)
}

// ActivePointer selects which stored connection is the active one.
type ActivePointer interface {
	ActiveConnectionID() (string, error)
	SetActiveConnectionID(id string) error
	ClearActiveConnectionID() error
}

// AuthenticationService manages server connections: password and OIDC
// logins, token refresh, server switching, and logout.
type AuthenticationService struct {
	connections ConnectionStore
	active      ActivePointer
	oidc        shared.OIDCConfig
	httpClient  *http.Client
	logger      *log.Logger
}

// NewAuthenticationService creates an AuthenticationService.
func NewAuthenticationService(connections ConnectionStore, active ActivePointer, oidc shared.OIDCConfig, client *http.Client, logger *log.Logger) *AuthenticationService {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &AuthenticationService{
		connections: connections,
		active:      active,
		oidc:        oidc,
		httpClient:  client,
		logger:      logger,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	User struct {
		Token        string `json:"token"`
		AccessToken  string `json:"accessToken"`
		RefreshToken string `json:"refreshToken"`
	} `json:"user"`
}

// Login authenticates against a server with username and password and
// stores the resulting connection as active.
func (s *AuthenticationService) Login(ctx context.Context, serverURL, username, password string, customHeaders map[string]string) (*models.Connection, error) {
	network := NewNetworkService(serverURL, customHeaders, nil, s.httpClient)

	var resp loginResponse
	if err := network.Send(ctx, http.MethodPost, "/login", loginRequest{Username: username, Password: password}, &resp); err != nil {
		return nil, err
	}

	var creds models.Credentials
	if resp.User.AccessToken != "" {
		creds = models.NewBearerCredentials(resp.User.AccessToken, resp.User.RefreshToken, 0)
	} else if resp.User.Token != "" {
		creds = models.NewLegacyCredentials(resp.User.Token)
	} else {
		return nil, fmt.Errorf("%w: login response contained no token", shared.ErrDecoding)
	}

	return s.saveConnection(serverURL, creds, customHeaders)
}

// oauthConfig builds the OIDC code-exchange config for a server.
func (s *AuthenticationService) oauthConfig(serverURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:    s.oidc.ClientID,
		RedirectURL: s.oidc.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  serverURL + "/auth/openid",
			TokenURL: serverURL + "/auth/openid/callback",
		},
	}
}

// AuthURL returns the OIDC authorization URL for user login, with a PKCE
// challenge derived from verifier. Generate verifier with [oauth2.GenerateVerifier].
func (s *AuthenticationService) AuthURL(serverURL, state, verifier string) string {
	return s.oauthConfig(serverURL).AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// LoginWithOIDC exchanges an OIDC authorization code for tokens and stores
// the resulting connection as active.
func (s *AuthenticationService) LoginWithOIDC(ctx context.Context, serverURL, code, verifier string, customHeaders map[string]string) (*models.Connection, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.oauthConfig(serverURL).Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange failed: %v", shared.ErrAPIRequest, err)
	}

	creds := models.NewBearerCredentials(token.AccessToken, token.RefreshToken, token.Expiry.Unix())
	return s.saveConnection(serverURL, creds, customHeaders)
}

// saveConnection persists a new connection and marks it active.
func (s *AuthenticationService) saveConnection(serverURL string, creds models.Credentials, customHeaders map[string]string) (*models.Connection, error) {
	conn := &models.Connection{
		ID:            shared.GenerateID(),
		ServerURL:     serverURL,
		Credentials:   creds,
		CustomHeaders: customHeaders,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	if err := s.connections.Create(conn); err != nil {
		return nil, fmt.Errorf("failed to store connection: %w", err)
	}

	if err := s.active.SetActiveConnectionID(conn.ID); err != nil {
		return nil, fmt.Errorf("failed to set active connection: %w", err)
	}

	s.logger.Info("connection created", "server", serverURL, "id", conn.ID)
	return conn, nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresAt    int64  `json:"expiresAt"`
}

// RefreshToken exchanges the connection's refresh token for a new token
// pair. The caller (normally the [CredentialCoordinator]) persists the result.
func (s *AuthenticationService) RefreshToken(ctx context.Context, conn *models.Connection) (models.Credentials, error) {
	if conn.Credentials.RefreshToken == "" {
		return models.Credentials{}, shared.ErrNoRefreshToken
	}

	network := NewNetworkService(conn.ServerURL, conn.CustomHeaders, nil, s.httpClient)

	var resp refreshResponse
	if err := network.Send(ctx, http.MethodPost, "/auth/refresh", refreshRequest{RefreshToken: conn.Credentials.RefreshToken}, &resp); err != nil {
		return models.Credentials{}, err
	}

	if resp.AccessToken == "" {
		return models.Credentials{}, fmt.Errorf("%w: refresh response contained no access token", shared.ErrDecoding)
	}

	return models.NewBearerCredentials(resp.AccessToken, resp.RefreshToken, resp.ExpiresAt), nil
}

// ActiveConnection returns the currently-selected connection.
func (s *AuthenticationService) ActiveConnection() (*models.Connection, error) {
	id, err := s.active.ActiveConnectionID()
	if err != nil || id == "" {
		return nil, shared.ErrNotAuthenticated
	}
	return s.connections.Get(id)
}

// SwitchToServer makes the given stored connection the active one.
func (s *AuthenticationService) SwitchToServer(id string) error {
	if _, err := s.connections.Get(id); err != nil {
		return err
	}
	return s.active.SetActiveConnectionID(id)
}

// UpdateAlias sets a display alias on a stored connection.
func (s *AuthenticationService) UpdateAlias(id, alias string) error {
	conn, err := s.connections.Get(id)
	if err != nil {
		return err
	}
	conn.Alias = alias
	return s.connections.Update(conn)
}

// Logout removes a stored connection, clearing the active pointer when it
// pointed at the removed server.
func (s *AuthenticationService) Logout(id string) error {
	if err := s.connections.Delete(id); err != nil {
		return err
	}

	activeID, err := s.active.ActiveConnectionID()
	if err == nil && activeID == id {
		if err := s.active.ClearActiveConnectionID(); err != nil {
			return err
		}
	}

	s.logger.Info("logged out", "id", id)
	return nil
}
