// Package firebase signs users in against Firebase Authentication through
// its REST endpoints and hands out ID tokens for the Firestore client.
package firebase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"

	"shiftlog/internal/identity"
)

const (
	defaultIdentityURL = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL    = "https://securetoken.googleapis.com/v1"
)

// ErrSignedOut is returned by Token when no user is signed in.
var ErrSignedOut = errors.New("no signed-in user")

// Auth is an identity.Provider backed by Firebase anonymous accounts.
type Auth struct {
	identity.Feed

	apiKey string
	store  identity.CredentialStore
	client *http.Client

	// Endpoint roots, overridable for tests.
	IdentityURL string
	TokenURL    string

	mu      sync.Mutex
	token   *oauth2.Token
	refresh string
}

// NewAuth creates a Firebase Auth provider for the project's web API key.
// A nil client uses a client with a 30 second timeout.
func NewAuth(apiKey string, store identity.CredentialStore, client *http.Client) *Auth {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Auth{
		apiKey:      apiKey,
		store:       store,
		client:      client,
		IdentityURL: defaultIdentityURL,
		TokenURL:    defaultTokenURL,
	}
}

// AuthState resumes the stored user, if any, then streams the uid.
// The stored refresh token is only exchanged when a token is first needed.
func (a *Auth) AuthState(ctx context.Context) (<-chan string, error) {
	creds, err := a.store.Load()
	switch {
	case err == nil:
		a.mu.Lock()
		a.refresh = creds.RefreshToken
		a.mu.Unlock()
		a.Set(creds.UID)
	case !errors.Is(err, identity.ErrNoCredentials):
		return nil, fmt.Errorf("failed to recover session: %w", err)
	}
	return a.Subscribe(ctx), nil
}

type signUpResponse struct {
	IDToken      string `json:"idToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    string `json:"expiresIn"`
	LocalID      string `json:"localId"`
}

// SignInAnonymously creates a new anonymous Firebase user.
func (a *Auth) SignInAnonymously(ctx context.Context) error {
	body := strings.NewReader(`{"returnSecureToken":true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.endpoint(a.IdentityURL, "accounts:signUp"), body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	var resp signUpResponse
	if err := a.do(req, &resp); err != nil {
		return fmt.Errorf("sign-up request failed: %w", err)
	}
	if resp.LocalID == "" || resp.IDToken == "" {
		return errors.New("sign-up response is missing the user id or token")
	}

	if err := a.store.Save(identity.Credentials{UID: resp.LocalID, RefreshToken: resp.RefreshToken}); err != nil {
		return err
	}
	a.mu.Lock()
	a.token = newToken(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	a.refresh = resp.RefreshToken
	a.mu.Unlock()

	a.Set(resp.LocalID)
	return nil
}

// SignOut forgets the user locally. Anonymous accounts cannot be recovered afterwards.
func (a *Auth) SignOut(ctx context.Context) error {
	if err := a.store.Clear(); err != nil {
		return err
	}
	a.mu.Lock()
	a.token = nil
	a.refresh = ""
	a.mu.Unlock()
	a.Set("")
	return nil
}

// TokenSource returns a source of Firebase ID tokens for the signed-in user.
func (a *Auth) TokenSource() oauth2.TokenSource {
	return a
}

type refreshResponse struct {
	IDToken      string `json:"id_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    string `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// Token returns a valid ID token, refreshing it when it has expired.
func (a *Auth) Token() (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.token.Valid() {
		return a.token, nil
	}
	if a.refresh == "" {
		return nil, ErrSignedOut
	}

	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", a.refresh)
	req, err := http.NewRequest(http.MethodPost, a.endpoint(a.TokenURL, "token"), strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var resp refreshResponse
	if err := a.do(req, &resp); err != nil {
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}
	a.token = newToken(resp.IDToken, resp.RefreshToken, resp.ExpiresIn)
	if resp.RefreshToken != "" && resp.RefreshToken != a.refresh {
		a.refresh = resp.RefreshToken
		if err := a.store.Save(identity.Credentials{UID: resp.UserID, RefreshToken: resp.RefreshToken}); err != nil {
			return nil, err
		}
	}
	return a.token, nil
}

func (a *Auth) endpoint(root, method string) string {
	return fmt.Sprintf("%s/%s?key=%s", strings.TrimRight(root, "/"), method, url.QueryEscape(a.apiKey))
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (a *Auth) do(req *http.Request, out any) error {
	res, err := a.client.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	data, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		var e errorResponse
		if json.Unmarshal(data, &e) == nil && e.Error.Message != "" {
			return fmt.Errorf("status %d: %s", res.StatusCode, e.Error.Message)
		}
		return fmt.Errorf("status %d", res.StatusCode)
	}
	return json.Unmarshal(data, out)
}

func newToken(idToken, refreshToken, expiresIn string) *oauth2.Token {
	secs, err := strconv.Atoi(expiresIn)
	if err != nil || secs <= 0 {
		secs = 3600
	}
	return &oauth2.Token{
		AccessToken:  idToken,
		TokenType:    "Bearer",
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(time.Duration(secs) * time.Second),
	}
}
