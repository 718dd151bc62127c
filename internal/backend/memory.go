package backend

import (
	"context"
	"sync"

	"github.com/vitrina/catalogd/internal/domain"
	"go.uber.org/zap"
)

// Memory is the no-backend demo adapter: it serves a built-in catalog and
// keeps persisted snapshots only for the lifetime of the process.
type Memory struct {
	mu      sync.Mutex
	catalog *domain.Catalog
}

func NewMemory() *Memory {
	return &Memory{catalog: demoCatalog()}
}

// NewMemoryWith builds a memory backend seeded with the given catalog,
// mostly useful in tests.
func NewMemoryWith(catalog *domain.Catalog) *Memory {
	c := catalog.Clone()
	c.Normalize()
	return &Memory{catalog: c}
}

func (m *Memory) Name() string { return "memory" }

func (m *Memory) Fetch(ctx context.Context) (*domain.Catalog, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.catalog.Clone(), nil
}

func (m *Memory) Persist(ctx context.Context, catalog *domain.Catalog) error {
	m.mu.Lock()
	m.catalog = catalog.Clone()
	m.mu.Unlock()
	zap.L().Debug("memory backend: snapshot updated, nothing persisted remotely")
	return nil
}

func demoCatalog() *domain.Catalog {
	return &domain.Catalog{
		Categories: []domain.Category{
			{Name: "Anillos"},
			{Name: "Collares"},
			{Name: "Pulseras"},
		},
		Products: []domain.Product{
			{
				ID:          1700000000001,
				Title:       "Anillo de plata",
				Category:    "Anillos",
				Description: "Anillo de plata 925 ajustable",
				Price:       "45.000",
			},
			{
				ID:          1700000000002,
				Title:       "Collar luna",
				Category:    "Collares",
				Description: "Collar con dije de luna",
				Price:       "60.000",
			},
		},
	}
}
