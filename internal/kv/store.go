// Package kv define el puerto clave-valor donde se persisten las conversaciones y el token.
package kv

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("kv key not found")

// Store es el puerto de persistencia: un slot de texto por clave.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	// Remove no falla si la clave no existe.
	Remove(ctx context.Context, key string) error
}
