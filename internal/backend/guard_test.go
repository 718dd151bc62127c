package backend

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/internal/domain"
)

type countingBackend struct {
	fetchErr error
	persists int
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Fetch(ctx context.Context) (*domain.Catalog, error) {
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return domain.NewCatalog(), nil
}

func (b *countingBackend) Persist(ctx context.Context, c *domain.Catalog) error {
	b.persists++
	return nil
}

func TestGuardRefusesPersistUntilFetchSucceeds(t *testing.T) {
	inner := &countingBackend{fetchErr: errors.New("offline")}
	g := NewGuard(inner)

	if err := g.Persist(context.Background(), domain.NewCatalog()); err != nil {
		t.Fatalf("refused persist should not error: %v", err)
	}
	if inner.persists != 0 {
		t.Fatal("persist reached backend before a successful fetch")
	}

	if _, err := g.Fetch(context.Background()); err == nil {
		t.Fatal("expected fetch error")
	}
	if g.Loaded() {
		t.Fatal("failed fetch must not mark the guard loaded")
	}

	inner.fetchErr = nil
	if _, err := g.Fetch(context.Background()); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !g.Loaded() {
		t.Fatal("successful fetch should mark the guard loaded")
	}
	if err := g.Persist(context.Background(), domain.NewCatalog()); err != nil {
		t.Fatalf("persist: %v", err)
	}
	if inner.persists != 1 {
		t.Fatalf("expected one persist, got %d", inner.persists)
	}
}

func TestCapabilityLookupUnwrapsGuard(t *testing.T) {
	tokens := NewTokenManager(driveTestConfig(""), nil)
	d := NewDrive(driveTestConfig(""), tokens)
	g := NewGuard(d)

	if _, ok := AsFolderManager(g); !ok {
		t.Fatal("folder capability not found through guard")
	}
	if _, ok := AsFileRemover(g); !ok {
		t.Fatal("file remover capability not found through guard")
	}
	if _, ok := AsFolderManager(NewGuard(NewMemory())); ok {
		t.Fatal("memory backend should expose no folder capability")
	}
}
