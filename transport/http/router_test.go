package http

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/layer-3/warden/adapters/backend"
	"github.com/layer-3/warden/adapters/events"
	"github.com/layer-3/warden/adapters/signer"
	"github.com/layer-3/warden/adapters/store"
	"github.com/layer-3/warden/adapters/tokenizer"
	"github.com/layer-3/warden/core"
	"github.com/layer-3/warden/service"
	"github.com/nbd-wtf/go-nostr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	auth   *service.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	auth := service.NewAuthService(tokenizer.NewJWTTokenizer(key), store.NewMemoryStore(), events.Nop{})
	tables := service.NewTables(signer.SealTo)
	return &testServer{router: SetupRouter(auth, tables, nil), auth: auth}
}

func newSigner(t *testing.T) *signer.LocalSigner {
	t.Helper()
	s, err := signer.NewLocalSigner(nostr.GeneratePrivateKey())
	require.NoError(t, err)
	return s
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, sg *signer.LocalSigner) core.AuthResult {
	t.Helper()
	evt, err := sg.SignEvent(context.Background(), service.BuildChallenge(time.Now()))
	require.NoError(t, err)

	w := s.do(t, http.MethodPost, "/admin/auth", "", map[string]any{"event": evt})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result core.AuthResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	return result
}

func detailOf(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body struct {
		Detail string `json:"detail"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Detail
}

func TestRouter_StatusFlipsOnFirstLogin(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/instance/status", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"initialized":false}`, w.Body.String())

	result := srv.login(t, newSigner(t))
	assert.True(t, result.IsNew)

	w = srv.do(t, http.MethodGet, "/instance/status", "", nil)
	assert.JSONEq(t, `{"initialized":true}`, w.Body.String())
}

func TestRouter_AuthRejections(t *testing.T) {
	srv := newTestServer(t)
	srv.login(t, newSigner(t))

	stranger := newSigner(t)
	evt, err := stranger.SignEvent(context.Background(), service.BuildChallenge(time.Now()))
	require.NoError(t, err)

	w := srv.do(t, http.MethodPost, "/admin/auth", "", map[string]any{"event": evt})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "auth.errors.not_admin", detailOf(t, w))

	w = srv.do(t, http.MethodPost, "/admin/auth", "", map[string]any{"nope": true})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "auth.errors.invalid_event", detailOf(t, w))

	old, err := stranger.SignEvent(context.Background(), service.BuildChallenge(time.Now().Add(-time.Hour)))
	require.NoError(t, err)
	w = srv.do(t, http.MethodPost, "/admin/auth", "", map[string]any{"event": old})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "auth.errors.expired_challenge", detailOf(t, w))
}

func TestRouter_SessionRequiresBearer(t *testing.T) {
	srv := newTestServer(t)

	w := srv.do(t, http.MethodGet, "/admin/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = srv.do(t, http.MethodGet, "/admin/session", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	result := srv.login(t, newSigner(t))
	w = srv.do(t, http.MethodGet, "/admin/session", result.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Admin core.Admin `json:"admin"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, result.Admin.Pubkey, body.Admin.Pubkey)

	w = srv.do(t, http.MethodPost, "/admin/logout", result.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = srv.do(t, http.MethodGet, "/admin/session", result.SessionToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_Rows(t *testing.T) {
	srv := newTestServer(t)
	result := srv.login(t, newSigner(t))

	w := srv.do(t, http.MethodGet, "/admin/tables/customers", result.SessionToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = srv.do(t, http.MethodPost, "/admin/tables/customers/rows", result.SessionToken, map[string]any{
		"values":    map[string]string{"name": "alice", "email": "alice@example.com"},
		"protected": []string{"email"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotContains(t, w.Body.String(), "alice@example.com")

	w = srv.do(t, http.MethodGet, "/admin/tables/customers?page=1&page_size=10", result.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page core.RowPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
	assert.Contains(t, page.Columns, "encrypted_email")

	w = srv.do(t, http.MethodGet, "/admin/tables/customers?page=0", result.SessionToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	for _, field := range []string{"id", "encrypted_note", "ephemeral_pubkey_note"} {
		w = srv.do(t, http.MethodPost, "/admin/tables/customers/rows", result.SessionToken, map[string]any{
			"values": map[string]string{field: "plain"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code, field)
	}

	w = srv.do(t, http.MethodGet, "/admin/tables/customers", result.SessionToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	assert.Equal(t, 1, page.Total)
}

// TestEndToEnd drives the client-side components against the contract
// backend over real HTTP.
func TestEndToEnd(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.router)
	defer ts.Close()

	ctx := context.Background()
	client := backend.NewClient(ts.URL, 5*time.Second, nil)
	admin := newSigner(t)
	creds := store.NewMemoryCredentialStore()

	gate := service.NewInitiationGate(client)
	assert.Equal(t, core.GateUninitiated, gate.Mount(ctx))

	auth := service.NewAuthClient(signer.NewSlot(admin), client)
	sessions := service.NewSessions(auth, creds, nil, client, nil)
	result, err := sessions.Login(ctx)
	require.NoError(t, err)
	assert.True(t, result.IsNew)

	assert.Equal(t, core.GateInitiated, gate.Mount(ctx))

	guard := service.NewSessionGuard(creds, client)
	assert.Equal(t, core.GuardAuthenticated, guard.Mount(ctx))

	// A second key is turned away
	_, err = service.NewAuthClient(signer.NewSlot(newSigner(t)), client).Authenticate(ctx)
	var authErr *core.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, http.StatusForbidden, authErr.StatusCode)

	require.NoError(t, client.InsertRow(ctx, result.SessionToken, "customers",
		map[string]string{"name": "alice", "email": "alice@example.com"}, []string{"email"}))

	page, err := client.FetchRows(ctx, result.SessionToken, "customers", 1, 25)
	require.NoError(t, err)

	view := service.NewDecryptView(ctx, service.NewDecryptEngine(admin, nil))
	defer view.Close()
	<-view.Load(page.Rows, page.Columns)
	assert.Equal(t, "alice@example.com", view.Display(0, "encrypted_email"))
	assert.Equal(t, "alice", view.Display(0, "name"))
	assert.Equal(t, "1", view.Display(0, "id"))

	// Revoking the session makes the next guard check a definitive logout
	require.NoError(t, client.Logout(ctx, result.SessionToken))
	guard.Unmount()
	guard = service.NewSessionGuard(creds, client)
	assert.Equal(t, core.GuardUnauthenticated, guard.Mount(ctx))

	cred, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestEndToEnd_UnreachableBackend(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	ctx := context.Background()
	client := backend.NewClient(ts.URL, time.Second, nil)
	creds := store.NewMemoryCredentialStore()
	require.NoError(t, creds.Save(ctx, core.Credential{SessionToken: "tok", Pubkey: "ab"}))

	guard := service.NewSessionGuard(creds, client)
	assert.Equal(t, core.GuardUnavailable, guard.Mount(ctx))

	cred, err := creds.Load(ctx)
	require.NoError(t, err)
	assert.NotNil(t, cred)

	gate := service.NewInitiationGate(client)
	assert.Equal(t, core.GateInitiated, gate.Mount(ctx))
}
