package store

import (
	"github.com/30blay/biz-stats/internal/platform/logger"
)

// Option mutates Store during Open
type Option func(*Store) error

// WithLogger sets the logger used by subclients
func WithLogger(log logger.Logger) Option {
	return func(s *Store) error {
		s.Log = log
		return nil
	}
}

// WithPG installs an already built TxRunner, used by tests and tools that own the pool
func WithPG(tx TxRunner) Option {
	return func(s *Store) error {
		s.PG = tx
		return nil
	}
}
