// Package credentials owns per-user Drive authorization material. No other
// package constructs or mutates tokens directly: callers ask the Manager
// for a live client and the store handles rehydration and refresh.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"drivebot/internal/config"
	"drivebot/pkg/utils"
)

// ErrAuthRequired means no usable credential exists for the user; the
// user-facing handler turns this into an instruction to run the auth flow.
var ErrAuthRequired = errors.New("drive authorization required, run the auth command first")

// Scopes requested from the authorization endpoint
var Scopes = []string{
	"https://www.googleapis.com/auth/drive",
	"https://www.googleapis.com/auth/drive.metadata",
}

// redirectOOB is the out-of-band redirect: the user pastes the code back
// into the operator chat instead of being redirected.
const redirectOOB = "urn:ietf:wg:oauth:2.0:oob"

// Store persists opaque per-user credential blobs. A missing credential
// is a normal outcome, reported as ("", nil), never an error.
type Store interface {
	Get(userID string) (string, error)
	Save(userID, blob string) error
	Clear(userID string) error
	Close() error
}

// Manager wires a Store to the OAuth endpoint and hands out live clients
type Manager struct {
	store Store
	oauth *oauth2.Config
}

// NewManager builds a Manager from the Drive OAuth options
func NewManager(store Store, cfg config.DriveConfig) (*Manager, error) {
	oc, err := oauthConfig(cfg)
	if err != nil {
		return nil, err
	}
	return &Manager{store: store, oauth: oc}, nil
}

func oauthConfig(cfg config.DriveConfig) (*oauth2.Config, error) {
	if cfg.ClientJSON != "" {
		oc, err := google.ConfigFromJSON([]byte(cfg.ClientJSON), Scopes...)
		if err != nil {
			return nil, fmt.Errorf("invalid drive client JSON config: %w", err)
		}
		oc.RedirectURL = redirectOOB
		return oc, nil
	}
	return &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
		RedirectURL:  redirectOOB,
	}, nil
}

// Authorized reports whether a credential is stored for userID
func (m *Manager) Authorized(userID string) (bool, error) {
	blob, err := m.store.Get(userID)
	if err != nil {
		return false, err
	}
	return blob != "", nil
}

// AuthURL returns the URL the user must visit to authorize the bot
func (m *Manager) AuthURL() string {
	return m.oauth.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it
func (m *Manager) Exchange(ctx context.Context, userID, code string) error {
	token, err := m.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	return m.save(userID, token)
}

// Clear removes the stored credential for userID. Idempotent.
func (m *Manager) Clear(userID string) error {
	return m.store.Clear(userID)
}

// Client returns an authorized HTTP client for userID. An expired but
// refreshable token is refreshed once and the refreshed token persisted;
// a missing or unrefreshable one yields ErrAuthRequired.
func (m *Manager) Client(ctx context.Context, userID string) (*http.Client, error) {
	token, err := m.token(userID)
	if err != nil {
		return nil, err
	}
	if token == nil {
		return nil, ErrAuthRequired
	}

	if !token.Valid() {
		if token.RefreshToken == "" {
			return nil, ErrAuthRequired
		}
		refreshed, err := m.oauth.TokenSource(ctx, token).Token()
		if err != nil {
			return nil, fmt.Errorf("failed to refresh credential: %w", err)
		}
		if err := m.save(userID, refreshed); err != nil {
			return nil, err
		}
		token = refreshed
	}

	return oauth2.NewClient(ctx, m.oauth.TokenSource(ctx, token)), nil
}

func (m *Manager) token(userID string) (*oauth2.Token, error) {
	blob, err := m.store.Get(userID)
	if err != nil {
		return nil, err
	}
	if blob == "" {
		return nil, nil
	}
	token, err := utils.Decode[oauth2.Token](blob)
	if err != nil {
		return nil, fmt.Errorf("stored credential is corrupt: %w", err)
	}
	return &token, nil
}

func (m *Manager) save(userID string, token *oauth2.Token) error {
	blob, err := utils.Encode(token)
	if err != nil {
		return fmt.Errorf("failed to encode credential: %w", err)
	}
	return m.store.Save(userID, blob)
}
