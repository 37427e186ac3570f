package domain

import (
	"errors"
	"strings"
)

// Tab es la pestaña visible del formulario de autenticación.
type Tab string

const (
	TabLogin    Tab = "login"
	TabRegister Tab = "register"
)

var ErrUnknownTab = errors.New("unknown tab")

// ParseTab valida el nombre de pestaña.
func ParseTab(name string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(name))) {
	case TabLogin:
		return TabLogin, nil
	case TabRegister:
		return TabRegister, nil
	default:
		return "", ErrUnknownTab
	}
}

// Profile es el perfil devuelto por el endpoint de identidad.
type Profile struct {
	Login     string         `json:"login,omitempty"`
	ID        int64          `json:"id,omitempty"`
	Name      string         `json:"name,omitempty"`
	Email     string         `json:"email,omitempty"`
	AvatarURL string         `json:"avatar_url,omitempty"`
	Raw       map[string]any `json:"-"`
}

// AuthResult es el resultado de un AuthProvider: perfil en caso de éxito o motivo del fallo.
type AuthResult struct {
	Profile *Profile `json:"profile,omitempty"`
	Token   string   `json:"-"`
	Reason  string   `json:"reason,omitempty"`
}

func (r AuthResult) OK() bool {
	return r.Profile != nil
}

// AuthState es el estado observable del shell de autenticación.
type AuthState struct {
	Tab             Tab      `json:"tab"`
	LoginVisible    bool     `json:"login_visible"`
	RegisterVisible bool     `json:"register_visible"`
	Error           string   `json:"error,omitempty"`
	Success         string   `json:"success,omitempty"`
	Authenticated   bool     `json:"authenticated"`
	User            *Profile `json:"user,omitempty"`
}
