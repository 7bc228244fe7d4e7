package object

import (
	"log/slog"
	"path/filepath"
	"sync"
)

// Store is a read-only view of a Git object directory: loose objects under a
// 2-character fan-out (objects/ab/cdef...) plus pack files in objects/pack.
type Store struct {
	root        string
	algo        HashAlgo
	parallelism int
	logger      *slog.Logger

	packsOnce sync.Once
	packs     []*packHandle
	packsErr  error
}

// Option configures a Store.
type Option func(*Store)

// WithParallelism bounds how many pack indexes are read ahead concurrently.
// Values below 2 read indexes one at a time as enumeration reaches them.
func WithParallelism(n int) Option {
	return func(s *Store) { s.parallelism = n }
}

// WithLogger sets the logger used for debug tracing.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a Store for the objects directory at root, whose object
// names are digests of algo. Nothing is read until the store is used.
func NewStore(root string, algo HashAlgo, opts ...Option) *Store {
	s := &Store{
		root:   root,
		algo:   algo,
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Root returns the objects directory.
func (s *Store) Root() string { return s.root }

// Algo returns the hash algorithm used for object names.
func (s *Store) Algo() HashAlgo { return s.algo }

func (s *Store) packDir() string {
	return filepath.Join(s.root, "pack")
}

func (s *Store) loosePath(h Hash) string {
	hx := h.String()
	return filepath.Join(s.root, hx[:2], hx[2:])
}
