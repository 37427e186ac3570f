package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"go.uber.org/zap"

	"chat-shell/internal/domain"
	"chat-shell/internal/kv"
	"chat-shell/internal/local"
	"chat-shell/internal/repository"
)

type fakeIdentityServer struct {
	*httptest.Server
	exchangeStatus int
	exchangeBody   string
	profileStatus  int
	lastCode       string
	lastAuth       string
}

func newFakeIdentityServer(t *testing.T) *fakeIdentityServer {
	t.Helper()
	f := &fakeIdentityServer{
		exchangeStatus: http.StatusOK,
		exchangeBody:   `{"access_token":"gho_token"}`,
		profileStatus:  http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/github/callback", func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Code string `json:"code"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.lastCode = body.Code
		w.WriteHeader(f.exchangeStatus)
		_, _ = w.Write([]byte(f.exchangeBody))
	})
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		f.lastAuth = r.Header.Get("Authorization")
		w.WriteHeader(f.profileStatus)
		_, _ = w.Write([]byte(`{"login":"octocat","id":42,"name":"Mona","avatar_url":"https://x/y.png","plan":"pro"}`))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func newTestAuthShell(srv *fakeIdentityServer, store kv.Store, providers ...AuthProvider) (*AuthShell, *LocationTracker) {
	nav := &LocationTracker{}
	opts := AuthShellOptions{
		ClientID:     "client123",
		RedirectURI:  "http://localhost:3000/callback",
		AuthorizeURL: "https://github.com/login/oauth/authorize",
		Scope:        "user",
		ChatPage:     "ai-chat.html",
		HomePage:     "/",
		Language:     local.Fr,
	}
	var client *http.Client
	if srv != nil {
		opts.ExchangeURL = srv.URL + "/api/auth/github/callback"
		opts.ProfileURL = srv.URL + "/user"
		client = srv.Client()
	}
	shell := NewAuthShell(AuthShellDeps{
		Store:      store,
		HTTPClient: client,
		Navigator:  nav,
		Providers:  providers,
		Logger:     zap.NewNop(),
	}, opts)
	return shell, nav
}

func TestAuthShell_LoginBuildsAuthorizeURL(t *testing.T) {
	shell, nav := newTestAuthShell(nil, kv.NewMemoryStore())
	before := shell.State(context.Background())

	got := shell.Login()
	u, err := url.Parse(got)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	if u.Scheme+"://"+u.Host+u.Path != "https://github.com/login/oauth/authorize" {
		t.Fatalf("unexpected base url: %s", got)
	}
	q := u.Query()
	if q.Get("client_id") != "client123" || q.Get("redirect_uri") != "http://localhost:3000/callback" || q.Get("scope") != "user" {
		t.Fatalf("unexpected query: %v", q)
	}
	if nav.Take() != got {
		t.Fatalf("expected navigation to authorize url")
	}
	if shell.State(context.Background()) != before {
		t.Fatalf("expected no state change")
	}
}

func TestAuthShell_HandleCallbackSuccess(t *testing.T) {
	srv := newFakeIdentityServer(t)
	store := kv.NewMemoryStore()
	shell, _ := newTestAuthShell(srv, store)
	ctx := context.Background()

	if !shell.HandleCallback(ctx, "abc") {
		t.Fatalf("expected callback success")
	}
	if srv.lastCode != "abc" {
		t.Fatalf("expected code forwarded, got %q", srv.lastCode)
	}
	token, err := store.Get(ctx, TokenKey)
	if err != nil || token != "gho_token" {
		t.Fatalf("expected token persisted, got %q %v", token, err)
	}
	if srv.lastAuth != "Bearer gho_token" {
		t.Fatalf("expected bearer header, got %q", srv.lastAuth)
	}
	state := shell.State(ctx)
	if !state.Authenticated || state.User == nil || state.User.Login != "octocat" || state.User.ID != 42 {
		t.Fatalf("unexpected state: %+v", state)
	}
	if state.User.Raw["plan"] != "pro" {
		t.Fatalf("expected raw profile fields kept, got %+v", state.User.Raw)
	}
}

func TestAuthShell_HandleCallbackFailures(t *testing.T) {
	cases := []struct {
		name   string
		status int
		body   string
	}{
		{name: "missing token", status: http.StatusOK, body: `{"error":"bad_verification_code"}`},
		{name: "non json", status: http.StatusBadGateway, body: `<html>oops</html>`},
		{name: "empty token", status: http.StatusOK, body: `{"access_token":""}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := newFakeIdentityServer(t)
			srv.exchangeStatus = tc.status
			srv.exchangeBody = tc.body
			store := kv.NewMemoryStore()
			shell, _ := newTestAuthShell(srv, store)

			if shell.HandleCallback(context.Background(), "abc") {
				t.Fatalf("expected false")
			}
			if shell.IsAuthenticated(context.Background()) {
				t.Fatalf("expected no token stored")
			}
		})
	}
}

func TestAuthShell_HandleCallbackTransportError(t *testing.T) {
	srv := newFakeIdentityServer(t)
	shell, _ := newTestAuthShell(srv, kv.NewMemoryStore())
	srv.Close()
	if shell.HandleCallback(context.Background(), "abc") {
		t.Fatalf("expected false on transport error")
	}
	if shell.HandleCallback(context.Background(), "  ") {
		t.Fatalf("expected false without code")
	}
}

func TestAuthShell_FetchUserDataFailureReturnsNil(t *testing.T) {
	srv := newFakeIdentityServer(t)
	srv.profileStatus = http.StatusUnauthorized
	shell, _ := newTestAuthShell(srv, kv.NewMemoryStore())

	if p := shell.FetchUserData(context.Background(), "bad"); p != nil {
		t.Fatalf("expected nil profile, got %+v", p)
	}
	if shell.State(context.Background()).User != nil {
		t.Fatalf("expected no user")
	}
}

func TestAuthShell_InitFetchesProfileWhenTokenStored(t *testing.T) {
	srv := newFakeIdentityServer(t)
	store := kv.NewMemoryStore()
	_ = store.Set(context.Background(), TokenKey, "stored")
	shell, _ := newTestAuthShell(srv, store)

	if err := shell.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if srv.lastAuth != "Bearer stored" {
		t.Fatalf("expected profile fetched with stored token, got %q", srv.lastAuth)
	}
	if shell.State(context.Background()).User == nil {
		t.Fatalf("expected user loaded")
	}
}

func TestAuthShell_InitWithoutTokenSkipsFetch(t *testing.T) {
	srv := newFakeIdentityServer(t)
	shell, _ := newTestAuthShell(srv, kv.NewMemoryStore())
	if err := shell.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	if srv.lastAuth != "" {
		t.Fatalf("expected no profile request")
	}
}

func TestAuthShell_Logout(t *testing.T) {
	srv := newFakeIdentityServer(t)
	store := kv.NewMemoryStore()
	shell, nav := newTestAuthShell(srv, store)
	ctx := context.Background()
	if !shell.HandleCallback(ctx, "abc") {
		t.Fatalf("callback failed")
	}

	if err := shell.Logout(ctx); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if shell.IsAuthenticated(ctx) {
		t.Fatalf("expected token removed")
	}
	if shell.State(ctx).User != nil {
		t.Fatalf("expected user cleared")
	}
	if nav.Take() != "/" {
		t.Fatalf("expected navigation home")
	}
}

func TestAuthShell_SwitchTab(t *testing.T) {
	shell, _ := newTestAuthShell(nil, kv.NewMemoryStore())
	ctx := context.Background()

	if err := shell.SwitchTab("register"); err != nil {
		t.Fatalf("switch register: %v", err)
	}
	state := shell.State(ctx)
	if state.Tab != domain.TabRegister || state.LoginVisible || !state.RegisterVisible {
		t.Fatalf("unexpected state: %+v", state)
	}
	if err := shell.SwitchTab("login"); err != nil {
		t.Fatalf("switch login: %v", err)
	}
	state = shell.State(ctx)
	if state.Tab != domain.TabLogin || !state.LoginVisible || state.RegisterVisible {
		t.Fatalf("unexpected state: %+v", state)
	}
	if err := shell.SwitchTab("settings"); !errors.Is(err, domain.ErrUnknownTab) {
		t.Fatalf("expected ErrUnknownTab, got %v", err)
	}
	if shell.State(ctx).Tab != domain.TabLogin {
		t.Fatalf("expected tab unchanged")
	}
}

type recordingProvider struct {
	kind   ProviderKind
	result domain.AuthResult
	calls  int
}

func (r *recordingProvider) Kind() ProviderKind { return r.kind }

func (r *recordingProvider) Authenticate(context.Context, AuthRequest) domain.AuthResult {
	r.calls++
	return r.result
}

func TestAuthShell_RegisterPasswordMismatch(t *testing.T) {
	provider := &recordingProvider{kind: ProviderEmailPassword}
	shell, _ := newTestAuthShell(nil, kv.NewMemoryStore(), provider)
	_ = shell.SwitchTab("register")

	if shell.HandleRegister(context.Background(), "ada", "ada@example.com", "a", "b") {
		t.Fatalf("expected failure")
	}
	if provider.calls != 0 {
		t.Fatalf("expected provider not called")
	}
	if got := shell.State(context.Background()).Error; got != "Les mots de passe ne correspondent pas" {
		t.Fatalf("unexpected error %q", got)
	}
}

func TestAuthShell_StubProvidersShowGenericError(t *testing.T) {
	shell, nav := newTestAuthShell(nil, kv.NewMemoryStore())
	ctx := context.Background()
	generic := local.AuthFailed.Text(local.Fr)

	if shell.HandleLogin(ctx, "ada@example.com", "pw") {
		t.Fatalf("expected stub login failure")
	}
	if got := shell.State(ctx).Error; got != generic {
		t.Fatalf("expected generic error %q, got %q", generic, got)
	}
	ok, err := shell.HandleSocial(ctx, ProviderGitHub)
	if err != nil || ok {
		t.Fatalf("expected github stub failure, got %v %v", ok, err)
	}
	if got := shell.State(ctx).Error; got != generic {
		t.Fatalf("expected generic error %q, got %q", generic, got)
	}
	if _, err := shell.HandleSocial(ctx, ProviderKind("facebook")); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}
	if nav.Take() != "" {
		t.Fatalf("expected no navigation on failure")
	}
}

func TestAuthShell_LocalProviderRegisterThenLogin(t *testing.T) {
	users := NewUserService(zap.NewNop(), repository.NewMemoryUserRepository(), nil)
	provider := NewLocalPasswordProvider(users, NewJWTService("secret", time.Hour), zap.NewNop())
	store := kv.NewMemoryStore()
	shell, nav := newTestAuthShell(nil, store, provider)
	ctx := context.Background()

	_ = shell.SwitchTab("register")
	if !shell.HandleRegister(ctx, "ada", "ada@example.com", "pw", "pw") {
		t.Fatalf("expected register success, state %+v", shell.State(ctx))
	}
	state := shell.State(ctx)
	if state.Tab != domain.TabLogin || state.Success != local.RegisterSuccess.Text(local.Fr) {
		t.Fatalf("expected success notice on login tab, got %+v", state)
	}
	if state.Authenticated {
		t.Fatalf("register must not sign in")
	}

	if !shell.HandleLogin(ctx, "ada@example.com", "pw") {
		t.Fatalf("expected login success, state %+v", shell.State(ctx))
	}
	if nav.Take() != "ai-chat.html" {
		t.Fatalf("expected navigation to chat page")
	}
	state = shell.State(ctx)
	if !state.Authenticated || state.User == nil || state.User.Email != "ada@example.com" || state.Success != "" {
		t.Fatalf("unexpected state after login: %+v", state)
	}
}

func TestAuthShell_FailureReasonsAreLocalized(t *testing.T) {
	cases := []struct {
		reason string
		want   string
	}{
		{reason: ReasonInvalidCredentials, want: "Email ou mot de passe incorrect"},
		{reason: ReasonInvalidEmail, want: "Adresse email invalide"},
		{reason: ReasonPasswordRequired, want: "Le mot de passe est obligatoire"},
		{reason: ReasonUserExists, want: "Un compte existe déjà avec cet email"},
		{reason: ReasonTooManyAttempts, want: "Trop de tentatives. Réessayez dans 15 min."},
		{reason: ReasonNotImplemented, want: "Échec de l'authentification"},
		{reason: "quota exceeded", want: "Échec de l'authentification"},
		{reason: "", want: "Échec de l'authentification"},
	}
	for _, tc := range cases {
		t.Run(tc.reason, func(t *testing.T) {
			provider := &recordingProvider{kind: ProviderEmailPassword, result: domain.AuthResult{Reason: tc.reason}}
			shell, _ := newTestAuthShell(nil, kv.NewMemoryStore(), provider)
			ctx := context.Background()

			if shell.HandleLogin(ctx, "ada@example.com", "pw") {
				t.Fatalf("expected failure")
			}
			if got := shell.State(ctx).Error; got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestAuthShell_LocalProviderWrongPasswordInEnglish(t *testing.T) {
	users := NewUserService(zap.NewNop(), repository.NewMemoryUserRepository(), nil)
	provider := NewLocalPasswordProvider(users, NewJWTService("secret", time.Hour), zap.NewNop())
	shell, _ := newTestAuthShell(nil, kv.NewMemoryStore(), provider)
	shell.opts.Language = local.Eng
	ctx := context.Background()

	if !shell.HandleRegister(ctx, "ada", "ada@example.com", "pw", "pw") {
		t.Fatalf("expected register success, state %+v", shell.State(ctx))
	}
	if shell.HandleLogin(ctx, "ada@example.com", "nope") {
		t.Fatalf("expected wrong password to fail")
	}
	if got := shell.State(ctx).Error; got != "Wrong email or password" {
		t.Fatalf("unexpected error %q", got)
	}
}

type brokenTokenStore struct {
	*kv.MemoryStore
	err error
}

func (s brokenTokenStore) Get(context.Context, string) (string, error) {
	return "", s.err
}

func TestAuthShell_InitReportsStoreErrors(t *testing.T) {
	diskGone := errors.New("disk gone")
	shell, _ := newTestAuthShell(nil, brokenTokenStore{MemoryStore: kv.NewMemoryStore(), err: diskGone})

	if err := shell.Init(context.Background()); !errors.Is(err, diskGone) {
		t.Fatalf("expected store error, got %v", err)
	}
}
