package service

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
	"sync"
	"time"

	"go.uber.org/zap"

	"chat-shell/internal/domain"
	"chat-shell/internal/kv"
	"chat-shell/internal/local"
)

// TokenKey es la clave del bearer token en el Store.
const TokenKey = "github_token"

var ErrAuthNotConfigured = errors.New("auth shell not configured")

// Navigator cambia la ubicación visible del usuario (redirecciones).
type Navigator interface {
	Navigate(location string)
}

// LocationTracker guarda la última ubicación pedida; el adaptador HTTP la convierte en redirect.
type LocationTracker struct {
	mu       sync.Mutex
	location string
}

func (l *LocationTracker) Navigate(location string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.location = location
}

// Take devuelve la última ubicación y la olvida.
func (l *LocationTracker) Take() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	loc := l.location
	l.location = ""
	return loc
}

type AuthShellDeps struct {
	Store      kv.Store
	HTTPClient *http.Client
	Navigator  Navigator
	Providers  []AuthProvider
	Logger     *zap.Logger
}

type AuthShellOptions struct {
	ClientID     string
	RedirectURI  string
	AuthorizeURL string
	Scope        string
	ExchangeURL  string
	ProfileURL   string
	ChatPage     string
	HomePage     string
	Language     local.Language
	// LoginWindow solo se usa para el texto de "demasiados intentos".
	LoginWindow time.Duration
}

// AuthShell mantiene el estado de los formularios de login/registro y la sesión OAuth.
type AuthShell struct {
	deps      AuthShellDeps
	opts      AuthShellOptions
	providers map[ProviderKind]AuthProvider

	mu      sync.Mutex
	tab     domain.Tab
	user    *domain.Profile
	errMsg  string
	success string
}

func NewAuthShell(deps AuthShellDeps, opts AuthShellOptions) *AuthShell {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	if deps.Navigator == nil {
		deps.Navigator = &LocationTracker{}
	}
	if opts.Language == "" {
		opts.Language = local.Fr
	}
	if opts.HomePage == "" {
		opts.HomePage = "/"
	}
	if opts.Scope == "" {
		opts.Scope = "user"
	}
	providers := map[ProviderKind]AuthProvider{
		ProviderEmailPassword: NewStubProvider(ProviderEmailPassword),
		ProviderGitHub:        NewStubProvider(ProviderGitHub),
		ProviderGoogle:        NewStubProvider(ProviderGoogle),
	}
	for _, p := range deps.Providers {
		if p != nil {
			providers[p.Kind()] = p
		}
	}
	return &AuthShell{
		deps:      deps,
		opts:      opts,
		providers: providers,
		tab:       domain.TabLogin,
	}
}

// Init recupera el perfil si hay un token guardado. Los fallos de red no son fatales.
func (a *AuthShell) Init(ctx context.Context) error {
	if a == nil || a.deps.Store == nil {
		return ErrAuthNotConfigured
	}
	token, err := a.deps.Store.Get(ctx, TokenKey)
	if errors.Is(err, kv.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	if token == "" {
		return nil
	}
	a.FetchUserData(ctx, token)
	return nil
}

// Login construye la URL de autorización del proveedor y navega hacia ella.
func (a *AuthShell) Login() string {
	q := url.Values{}
	q.Set("client_id", a.opts.ClientID)
	q.Set("redirect_uri", a.opts.RedirectURI)
	q.Set("scope", a.opts.Scope)
	authURL := a.opts.AuthorizeURL + "?" + q.Encode()
	a.deps.Navigator.Navigate(authURL)
	return authURL
}

type exchangeRequest struct {
	Code string `json:"code"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
}

// HandleCallback canjea el code por un token. Cualquier fallo devuelve false.
func (a *AuthShell) HandleCallback(ctx context.Context, code string) bool {
	code = strings.TrimSpace(code)
	if code == "" {
		a.deps.Logger.Warn("oauth callback without code")
		return false
	}
	body, err := json.Marshal(exchangeRequest{Code: code})
	if err != nil {
		return false
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.opts.ExchangeURL, bytes.NewReader(body))
	if err != nil {
		a.deps.Logger.Error("build exchange request", zap.Error(err))
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.deps.HTTPClient.Do(req)
	if err != nil {
		a.deps.Logger.Error("authentication error", zap.Error(err))
		return false
	}
	defer resp.Body.Close()

	var data exchangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		a.deps.Logger.Error("authentication error", zap.Int("status", resp.StatusCode), zap.Error(err))
		return false
	}
	if data.AccessToken == "" {
		a.deps.Logger.Warn("exchange response without access token", zap.Int("status", resp.StatusCode))
		return false
	}
	if err := a.deps.Store.Set(ctx, TokenKey, data.AccessToken); err != nil {
		a.deps.Logger.Error("persist token", zap.Error(err))
		return false
	}
	a.FetchUserData(ctx, data.AccessToken)
	return true
}

// FetchUserData pide el perfil con el bearer token. Devuelve nil si algo falla.
func (a *AuthShell) FetchUserData(ctx context.Context, token string) *domain.Profile {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.opts.ProfileURL, nil)
	if err != nil {
		a.deps.Logger.Error("build profile request", zap.Error(err))
		return nil
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := a.deps.HTTPClient.Do(req)
	if err != nil {
		a.deps.Logger.Error("error fetching user data", zap.Error(err))
		return nil
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		a.deps.Logger.Error("error fetching user data", zap.Error(err))
		return nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		a.deps.Logger.Warn("profile request rejected", zap.Int("status", resp.StatusCode))
		return nil
	}

	var profile domain.Profile
	if err := json.Unmarshal(raw, &profile); err != nil {
		a.deps.Logger.Error("decode profile", zap.Error(err))
		return nil
	}
	if err := json.Unmarshal(raw, &profile.Raw); err != nil {
		a.deps.Logger.Error("decode profile", zap.Error(err))
		return nil
	}

	a.mu.Lock()
	a.user = &profile
	a.mu.Unlock()
	return &profile
}

// Logout borra el token, olvida al usuario y vuelve al inicio. No pide confirmación.
func (a *AuthShell) Logout(ctx context.Context) error {
	err := a.deps.Store.Remove(ctx, TokenKey)
	a.mu.Lock()
	a.user = nil
	a.errMsg = ""
	a.success = ""
	a.mu.Unlock()
	a.deps.Navigator.Navigate(a.opts.HomePage)
	if err != nil {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}

func (a *AuthShell) IsAuthenticated(ctx context.Context) bool {
	token, err := a.deps.Store.Get(ctx, TokenKey)
	if err != nil && !errors.Is(err, kv.ErrNotFound) {
		a.deps.Logger.Warn("read token", zap.Error(err))
	}
	return err == nil && token != ""
}

// SwitchTab muestra solo el formulario de la pestaña pedida.
func (a *AuthShell) SwitchTab(name string) error {
	tab, err := domain.ParseTab(name)
	if err != nil {
		return err
	}
	a.mu.Lock()
	a.tab = tab
	a.mu.Unlock()
	return nil
}

func (a *AuthShell) HandleLogin(ctx context.Context, email, password string) bool {
	a.clearNotices()
	res := a.providers[ProviderEmailPassword].Authenticate(ctx, AuthRequest{
		Mode:     AuthModeLogin,
		Email:    email,
		Password: password,
	})
	return a.completeSignIn(ctx, ProviderEmailPassword, res)
}

func (a *AuthShell) HandleRegister(ctx context.Context, username, email, password, confirm string) bool {
	a.clearNotices()
	if password != confirm {
		a.showError(local.PasswordMismatch.Text(a.opts.Language))
		return false
	}
	res := a.providers[ProviderEmailPassword].Authenticate(ctx, AuthRequest{
		Mode:     AuthModeRegister,
		Username: username,
		Email:    email,
		Password: password,
	})
	if !res.OK() {
		a.failWith(ProviderEmailPassword, res)
		return false
	}

	a.mu.Lock()
	a.success = local.RegisterSuccess.Text(a.opts.Language)
	a.tab = domain.TabLogin
	a.mu.Unlock()
	return true
}

// HandleSocial autentica con GitHub o Google.
func (a *AuthShell) HandleSocial(ctx context.Context, kind ProviderKind) (bool, error) {
	if kind != ProviderGitHub && kind != ProviderGoogle {
		return false, ErrUnknownProvider
	}
	a.clearNotices()
	res := a.providers[kind].Authenticate(ctx, AuthRequest{Mode: AuthModeLogin})
	return a.completeSignIn(ctx, kind, res), nil
}

// State devuelve la foto actual del shell.
func (a *AuthShell) State(ctx context.Context) domain.AuthState {
	authenticated := a.IsAuthenticated(ctx)
	a.mu.Lock()
	defer a.mu.Unlock()
	state := domain.AuthState{
		Tab:             a.tab,
		LoginVisible:    a.tab == domain.TabLogin,
		RegisterVisible: a.tab == domain.TabRegister,
		Error:           a.errMsg,
		Success:         a.success,
		Authenticated:   authenticated,
	}
	if a.user != nil {
		user := *a.user
		state.User = &user
	}
	return state
}

func (a *AuthShell) completeSignIn(ctx context.Context, kind ProviderKind, res domain.AuthResult) bool {
	if !res.OK() {
		a.failWith(kind, res)
		return false
	}
	if res.Token != "" {
		if err := a.deps.Store.Set(ctx, TokenKey, res.Token); err != nil {
			a.deps.Logger.Error("persist token", zap.String("provider", string(kind)), zap.Error(err))
			a.showError(local.AuthFailed.Text(a.opts.Language))
			return false
		}
	}
	a.mu.Lock()
	a.user = res.Profile
	a.mu.Unlock()

	a.deps.Logger.Info("signed in", zap.String("provider", string(kind)))
	a.deps.Navigator.Navigate(a.opts.ChatPage)
	return true
}

func (a *AuthShell) failWith(kind ProviderKind, res domain.AuthResult) {
	a.deps.Logger.Info("authentication rejected", zap.String("provider", string(kind)), zap.String("reason", res.Reason))
	a.showError(a.reasonText(res.Reason))
}

// reasonText traduce el código de fallo; los stubs y los códigos desconocidos muestran el error genérico.
func (a *AuthShell) reasonText(reason string) string {
	lang := a.opts.Language
	switch reason {
	case ReasonInvalidCredentials:
		return local.InvalidCredentials.Text(lang)
	case ReasonInvalidEmail:
		return local.InvalidEmail.Text(lang)
	case ReasonPasswordRequired:
		return local.PasswordRequired.Text(lang)
	case ReasonUserExists:
		return local.UserExists.Text(lang)
	case ReasonTooManyAttempts:
		window := a.opts.LoginWindow
		if window <= 0 {
			window = defaultLoginWindow
		}
		return local.TooManyAttempts.Format(lang, int(window.Minutes()))
	default:
		return local.AuthFailed.Text(lang)
	}
}

func (a *AuthShell) showError(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errMsg = msg
}

func (a *AuthShell) clearNotices() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.errMsg = ""
	a.success = ""
}
