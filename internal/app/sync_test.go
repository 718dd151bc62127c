package app

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/config"
	"github.com/vitrina/catalogd/internal/backend"
	"github.com/vitrina/catalogd/internal/domain"
	"github.com/vitrina/catalogd/internal/localstate"
	"github.com/vitrina/catalogd/internal/store"
)

type countingBackend struct {
	fetches  int
	fetchErr error
}

func (b *countingBackend) Name() string { return "counting" }

func (b *countingBackend) Fetch(ctx context.Context) (*domain.Catalog, error) {
	b.fetches++
	if b.fetchErr != nil {
		return nil, b.fetchErr
	}
	return domain.NewCatalog(), nil
}

func (b *countingBackend) Persist(ctx context.Context, catalog *domain.Catalog) error {
	return nil
}

func newSyncTestApp(t *testing.T, inner backend.Backend) *Application {
	t.Helper()

	local, err := localstate.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open local state: %v", err)
	}
	t.Cleanup(func() { _ = local.Close() })

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake node: %v", err)
	}

	a := &Application{appConfig: config.DefaultConfig()}
	a.local = local
	a.guarded = backend.NewGuard(inner)
	a.bus = EventBus.New()
	a.catalog = store.New(a.guarded, nil, node, a.bus)
	return a
}

func TestBackgroundSyncSkippedWhileAdminActive(t *testing.T) {
	b := &countingBackend{}
	a := newSyncTestApp(t, b)

	if err := a.local.SetAdminActive(true); err != nil {
		t.Fatalf("set admin active: %v", err)
	}
	a.SchedBackgroundSyncTask()
	if b.fetches != 0 {
		t.Fatalf("sync must not touch the backend while admin is active, fetches=%d", b.fetches)
	}

	if err := a.local.SetAdminActive(false); err != nil {
		t.Fatalf("clear admin active: %v", err)
	}
	a.SchedBackgroundSyncTask()
	if b.fetches != 1 {
		t.Fatalf("sync should resume after logout, fetches=%d", b.fetches)
	}
}

func TestLoadInitialSurfacesFetchFailure(t *testing.T) {
	b := &countingBackend{fetchErr: errors.New("remote unavailable")}
	a := newSyncTestApp(t, b)

	if err := a.LoadInitial(context.Background()); err == nil {
		t.Fatal("initial load against a dead backend must fail")
	}

	b.fetchErr = nil
	if err := a.LoadInitial(context.Background()); err != nil {
		t.Fatalf("initial load should succeed once the backend answers: %v", err)
	}
}
