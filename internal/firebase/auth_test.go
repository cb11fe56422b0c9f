package firebase_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftlog/internal/firebase"
	"shiftlog/internal/identity"
)

func newServer(t *testing.T) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	refreshes := new(atomic.Int32)
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/accounts:signUp", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		assert.Equal(t, http.MethodPost, r.Method)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"idToken":      "id-1",
			"refreshToken": "refresh-1",
			"expiresIn":    "3600",
			"localId":      "anon-uid",
		})
	})
	mux.HandleFunc("/v1/token", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		if r.PostForm.Get("refresh_token") != "refresh-1" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"code":400,"message":"INVALID_REFRESH_TOKEN"}}`))
			return
		}
		refreshes.Add(1)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id_token":      "id-2",
			"refresh_token": "refresh-1",
			"expires_in":    "3600",
			"user_id":       "anon-uid",
		})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, refreshes
}

func newAuth(t *testing.T, srv *httptest.Server, store identity.CredentialStore) *firebase.Auth {
	a := firebase.NewAuth("test-key", store, srv.Client())
	a.IdentityURL = srv.URL + "/v1"
	a.TokenURL = srv.URL + "/v1"
	return a
}

func TestSignInAnonymously(t *testing.T) {
	srv, _ := newServer(t)
	store := &identity.FileStore{Path: filepath.Join(t.TempDir(), "creds.json")}
	a := newAuth(t, srv, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := a.AuthState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "", <-ch)

	require.NoError(t, a.SignInAnonymously(ctx))
	assert.Equal(t, "anon-uid", <-ch)

	tok, err := a.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, "id-1", tok.AccessToken)

	creds, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, identity.Credentials{UID: "anon-uid", RefreshToken: "refresh-1"}, creds)
}

func TestResumeRefreshesLazily(t *testing.T) {
	srv, refreshes := newServer(t)
	store := &identity.FileStore{Path: filepath.Join(t.TempDir(), "creds.json")}
	require.NoError(t, store.Save(identity.Credentials{UID: "anon-uid", RefreshToken: "refresh-1"}))
	a := newAuth(t, srv, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := a.AuthState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "anon-uid", <-ch)
	assert.Equal(t, int32(0), refreshes.Load())

	tok, err := a.Token()
	require.NoError(t, err)
	assert.Equal(t, "id-2", tok.AccessToken)
	_, err = a.Token()
	require.NoError(t, err)
	assert.Equal(t, int32(1), refreshes.Load())
}

func TestTokenAfterSignOut(t *testing.T) {
	srv, _ := newServer(t)
	store := &identity.FileStore{Path: filepath.Join(t.TempDir(), "creds.json")}
	a := newAuth(t, srv, store)

	ctx := context.Background()
	require.NoError(t, a.SignInAnonymously(ctx))
	require.NoError(t, a.SignOut(ctx))

	_, err := a.Token()
	assert.ErrorIs(t, err, firebase.ErrSignedOut)
	assert.Equal(t, "", a.Current())
}

func TestRefreshRejected(t *testing.T) {
	srv, _ := newServer(t)
	store := &identity.FileStore{Path: filepath.Join(t.TempDir(), "creds.json")}
	require.NoError(t, store.Save(identity.Credentials{UID: "anon-uid", RefreshToken: "revoked"}))
	a := newAuth(t, srv, store)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	_, err := a.AuthState(ctx)
	require.NoError(t, err)

	_, err = a.Token()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INVALID_REFRESH_TOKEN")
}
