// Package backend holds the remote sync adapters: each backend fetches and
// stores the whole catalog document against one configured remote store.
package backend

import (
	"context"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/internal/domain"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	// ErrNoToken means a write operation ran without a usable access token.
	ErrNoToken = errors.New("backend: no access token available")
	// ErrUnauthorized means the remote rejected the token even after one
	// forced re-authentication.
	ErrUnauthorized = errors.New("backend: unauthorized after token refresh")
)

// Backend fetches and persists the single catalog JSON document.
// Fetch returns (nil, nil) for expected absence; transport failures return
// an error the caller logs and treats as "no change".
type Backend interface {
	Name() string
	Fetch(ctx context.Context) (*domain.Catalog, error)
	Persist(ctx context.Context, catalog *domain.Catalog) error
}

// FolderManager is implemented by backends that keep a remote folder per
// category.
type FolderManager interface {
	CreateFolder(ctx context.Context, name string) (string, error)
	DeleteRef(ctx context.Context, id string) error
}

// FileRemover is implemented by backends that can delete an uploaded image
// given its public URL.
type FileRemover interface {
	RemoveFileByURL(ctx context.Context, url string) error
}

// Unwrapper exposes the wrapped backend so capability checks can see
// through decorators like Guard.
type Unwrapper interface {
	Unwrap() Backend
}

// AsFolderManager resolves the FolderManager capability, unwrapping
// decorators as needed.
func AsFolderManager(b Backend) (FolderManager, bool) {
	for b != nil {
		if fm, ok := b.(FolderManager); ok {
			return fm, true
		}
		u, ok := b.(Unwrapper)
		if !ok {
			break
		}
		b = u.Unwrap()
	}
	return nil, false
}

// AsFileRemover resolves the FileRemover capability, unwrapping decorators
// as needed.
func AsFileRemover(b Backend) (FileRemover, bool) {
	for b != nil {
		if fr, ok := b.(FileRemover); ok {
			return fr, true
		}
		u, ok := b.(Unwrapper)
		if !ok {
			break
		}
		b = u.Unwrap()
	}
	return nil, false
}

// Guard wraps a backend and refuses to persist until at least one fetch has
// succeeded, so an empty local cache can never overwrite genuine remote data
// during a first-load race. A refused persist is logged, not surfaced.
type Guard struct {
	inner Backend

	mu     sync.Mutex
	loaded bool
}

func NewGuard(inner Backend) *Guard {
	return &Guard{inner: inner}
}

func (g *Guard) Name() string { return g.inner.Name() }

func (g *Guard) Unwrap() Backend { return g.inner }

// Loaded reports whether a fetch has ever succeeded.
func (g *Guard) Loaded() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.loaded
}

func (g *Guard) Fetch(ctx context.Context) (*domain.Catalog, error) {
	catalog, err := g.inner.Fetch(ctx)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	g.loaded = true
	g.mu.Unlock()
	return catalog, nil
}

func (g *Guard) Persist(ctx context.Context, catalog *domain.Catalog) error {
	g.mu.Lock()
	loaded := g.loaded
	g.mu.Unlock()
	if !loaded {
		zap.L().Warn("persist refused: no successful fetch yet",
			zap.String("backend", g.inner.Name()))
		return nil
	}
	return g.inner.Persist(ctx, catalog)
}
