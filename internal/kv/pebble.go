package kv

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"
)

// PebbleStore implementa Store sobre una base Pebble embebida, el equivalente
// en disco del almacenamiento local del navegador.
type PebbleStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// OpenPebble abre (o crea) la base en path.
func OpenPebble(path string, opts *pebble.Options, logger *zap.Logger) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		logger.Error("pebble_open_failed", zap.String("path", path), zap.Error(err))
		return nil, err
	}
	logger.Info("pebble_opened", zap.String("path", path))
	return &PebbleStore{db: db, logger: logger}, nil
}

func (s *PebbleStore) Get(_ context.Context, key string) (string, error) {
	v, closer, err := s.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("pebble get %s: %w", key, err)
	}
	// v solo es válido hasta cerrar closer.
	out := string(v)
	if err := closer.Close(); err != nil {
		return "", err
	}
	return out, nil
}

func (s *PebbleStore) Set(_ context.Context, key, value string) error {
	if err := s.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		s.logger.Error("pebble_set_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *PebbleStore) Remove(_ context.Context, key string) error {
	if err := s.db.Delete([]byte(key), pebble.Sync); err != nil {
		s.logger.Error("pebble_delete_failed", zap.String("key", key), zap.Error(err))
		return err
	}
	return nil
}

func (s *PebbleStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	s.logger.Info("pebble_closed")
	return err
}
