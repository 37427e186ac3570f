package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"chat-shell/internal/domain"
	"chat-shell/internal/repository"
)

// ProviderKind identifica la variante de proveedor de identidad.
type ProviderKind string

const (
	ProviderEmailPassword ProviderKind = "email"
	ProviderGitHub        ProviderKind = "github"
	ProviderGoogle        ProviderKind = "google"
)

// AuthMode distingue login de registro en un AuthRequest.
type AuthMode string

const (
	AuthModeLogin    AuthMode = "login"
	AuthModeRegister AuthMode = "register"
)

// Códigos de AuthResult.Reason. Son para logs; el shell los traduce antes de mostrarlos.
const (
	ReasonNotImplemented     = "not implemented"
	ReasonInvalidCredentials = "invalid credentials"
	ReasonInvalidEmail       = "invalid email"
	ReasonPasswordRequired   = "password required"
	ReasonTooManyAttempts    = "too many attempts"
	ReasonUserExists         = "user already exists"
)

var ErrUnknownProvider = errors.New("unknown auth provider")

// ParseProviderKind valida el nombre del proveedor social o local.
func ParseProviderKind(name string) (ProviderKind, error) {
	switch ProviderKind(name) {
	case ProviderEmailPassword, ProviderGitHub, ProviderGoogle:
		return ProviderKind(name), nil
	default:
		return "", ErrUnknownProvider
	}
}

type AuthRequest struct {
	Mode     AuthMode
	Username string
	Email    string
	Password string
}

// AuthProvider autentica o registra a un usuario. Los fallos van en AuthResult.Reason.
type AuthProvider interface {
	Kind() ProviderKind
	Authenticate(ctx context.Context, req AuthRequest) domain.AuthResult
}

// StubProvider es un punto de integración sin implementar: siempre falla.
type StubProvider struct {
	kind ProviderKind
}

func NewStubProvider(kind ProviderKind) StubProvider {
	return StubProvider{kind: kind}
}

func (p StubProvider) Kind() ProviderKind {
	return p.kind
}

func (p StubProvider) Authenticate(context.Context, AuthRequest) domain.AuthResult {
	return domain.AuthResult{Reason: ReasonNotImplemented}
}

// LocalPasswordProvider autentica cuentas locales con bcrypt y emite un JWT de acceso.
type LocalPasswordProvider struct {
	users  *UserService
	tokens *JWTService
	logger *zap.Logger
}

func NewLocalPasswordProvider(users *UserService, tokens *JWTService, logger *zap.Logger) *LocalPasswordProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LocalPasswordProvider{users: users, tokens: tokens, logger: logger}
}

func (p *LocalPasswordProvider) Kind() ProviderKind {
	return ProviderEmailPassword
}

func (p *LocalPasswordProvider) Authenticate(ctx context.Context, req AuthRequest) domain.AuthResult {
	if req.Mode == AuthModeRegister {
		user, err := p.users.Register(ctx, RegisterInput{
			Username: req.Username,
			Email:    req.Email,
			Password: req.Password,
		})
		if err != nil {
			return domain.AuthResult{Reason: p.reason(err)}
		}
		return domain.AuthResult{Profile: profileFromUser(user)}
	}

	user, err := p.users.Authenticate(ctx, req.Email, req.Password)
	if err != nil {
		return domain.AuthResult{Reason: p.reason(err)}
	}
	token, err := p.tokens.GenerateAccessToken(user)
	if err != nil {
		return domain.AuthResult{Reason: p.reason(err)}
	}
	return domain.AuthResult{Profile: profileFromUser(user), Token: token}
}

func (p *LocalPasswordProvider) reason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		return ReasonInvalidCredentials
	case errors.Is(err, ErrInvalidEmail):
		return ReasonInvalidEmail
	case errors.Is(err, ErrEmptyPassword):
		return ReasonPasswordRequired
	case errors.Is(err, ErrRateLimited):
		return ReasonTooManyAttempts
	case errors.Is(err, repository.ErrUserExists):
		return ReasonUserExists
	default:
		p.logger.Error("local auth failed", zap.Error(err))
		return ""
	}
}

func profileFromUser(user domain.User) *domain.Profile {
	login := user.DisplayName
	if login == "" {
		login = user.Email
	}
	return &domain.Profile{
		Login: login,
		Name:  user.DisplayName,
		Email: user.Email,
		Raw: map[string]any{
			"id":         user.ID,
			"email":      user.Email,
			"name":       user.DisplayName,
			"created_at": user.CreatedAt,
		},
	}
}
