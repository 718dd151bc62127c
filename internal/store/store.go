// Package store owns the authoritative in-memory catalog: the single source
// of truth the UI reads, mutated by admin operations and persisted wholesale
// to the configured backend after every change.
package store

import (
	"context"
	"sync"

	"github.com/asaskevich/EventBus"
	"github.com/bwmarrin/snowflake"
	"github.com/mitchellh/mapstructure"
	"github.com/vitrina/catalogd/internal/backend"
	"github.com/vitrina/catalogd/internal/domain"
	"github.com/vitrina/catalogd/internal/uploader"
	"go.uber.org/zap"
)

// TopicCatalogChanged is published on the event bus whenever a load detects
// that the remote document differs from the cache.
const TopicCatalogChanged = "catalog.changed"

type Store struct {
	backend  backend.Backend
	uploader uploader.Uploader
	node     *snowflake.Node
	bus      EventBus.Bus

	mu         sync.Mutex
	categories []domain.Category
	products   []domain.Product
}

func New(b backend.Backend, up uploader.Uploader, node *snowflake.Node, bus EventBus.Bus) *Store {
	if up == nil {
		up = uploader.Noop{}
	}
	return &Store{
		backend:    b,
		uploader:   up,
		node:       node,
		bus:        bus,
		categories: []domain.Category{},
		products:   []domain.Product{},
	}
}

// Load replaces the cache with the catalog fetched from the backend and
// reports whether the content changed. Transport errors are logged and
// treated as "no change".
func (s *Store) Load(ctx context.Context) bool {
	fetched, err := s.backend.Fetch(ctx)
	if err != nil {
		zap.L().Error("catalog fetch failed", zap.String("backend", s.backend.Name()), zap.Error(err))
		return false
	}
	if fetched == nil {
		// Absent document is a valid empty state.
		fetched = domain.NewCatalog()
	}
	fetched.Normalize()

	s.mu.Lock()
	old := s.snapshotLocked()
	s.categories = fetched.Categories
	s.products = fetched.Products
	changed := !domain.Equal(old, fetched)
	s.mu.Unlock()

	if changed {
		zap.L().Info("catalog updated from backend", zap.String("backend", s.backend.Name()))
		if s.bus != nil {
			s.bus.Publish(TopicCatalogChanged)
		}
	}
	return changed
}

// Catalog returns a copy of the current cache.
func (s *Store) Catalog() *domain.Catalog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked().Clone()
}

// Categories returns the ordered category names.
func (s *Store) Categories() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.categories))
	for i, c := range s.categories {
		names[i] = c.Name
	}
	return names
}

// CategoryObjects returns the ordered category records.
func (s *Store) CategoryObjects() []domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Category, len(s.categories))
	copy(out, s.categories)
	return out
}

// Products returns all products in document order.
func (s *Store) Products() []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, len(s.products))
	copy(out, s.products)
	return out
}

// ProductsByCategory filters products by exact category name.
func (s *Store) ProductsByCategory(name string) []domain.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Product, 0)
	for _, p := range s.products {
		if p.Category == name {
			out = append(out, p)
		}
	}
	return out
}

// AddProduct assigns a new time-derived id, uploads any inline image and
// appends the product. The whole document is persisted afterwards.
func (s *Store) AddProduct(ctx context.Context, draft domain.Product) domain.Product {
	draft.ID = s.node.Generate().Int64()
	draft.Image = s.resolveImage(ctx, draft.Image)

	s.mu.Lock()
	s.products = append(s.products, draft)
	s.mu.Unlock()

	s.persist(ctx)
	return draft
}

// UpdateProduct merges the present patch fields into the product with the
// given id; absent fields are preserved. An unknown id is a logged no-op.
func (s *Store) UpdateProduct(ctx context.Context, id int64, patch map[string]interface{}) (domain.Product, bool) {
	delete(patch, "id")

	s.mu.Lock()
	idx := s.findProductLocked(id)
	s.mu.Unlock()
	if idx < 0 {
		zap.L().Warn("update ignored: product not found", zap.Int64("id", id))
		return domain.Product{}, false
	}

	// Upload only for a product that exists, so a bad id cannot strand an
	// image on the remote host.
	if img, ok := patch["image"].(string); ok && domain.IsInlineImage(img) {
		patch["image"] = s.resolveImage(ctx, img)
	}

	s.mu.Lock()
	idx = s.findProductLocked(id)
	if idx < 0 {
		s.mu.Unlock()
		zap.L().Warn("update ignored: product not found", zap.Int64("id", id))
		return domain.Product{}, false
	}

	merged := s.products[idx]
	if err := mergePatch(patch, &merged); err != nil {
		s.mu.Unlock()
		zap.L().Error("product patch rejected", zap.Int64("id", id), zap.Error(err))
		return domain.Product{}, false
	}
	merged.ID = id
	s.products[idx] = merged
	s.mu.Unlock()

	s.persist(ctx)
	return merged, true
}

// DeleteProduct removes a product by id. The associated remote image is
// removed best-effort when the backend supports it; failures never block the
// removal.
func (s *Store) DeleteProduct(ctx context.Context, id int64) bool {
	s.mu.Lock()
	var removed *domain.Product
	kept := s.products[:0]
	for _, p := range s.products {
		if p.ID == id {
			prod := p
			removed = &prod
			continue
		}
		kept = append(kept, p)
	}
	s.products = kept
	s.mu.Unlock()

	if removed == nil {
		return false
	}

	if fr, ok := backend.AsFileRemover(s.backend); ok && removed.Image != "" && !domain.IsInlineImage(removed.Image) {
		if err := fr.RemoveFileByURL(ctx, removed.Image); err != nil {
			zap.L().Warn("product image not removed from backend",
				zap.Int64("id", id), zap.Error(err))
		}
	}

	s.persist(ctx)
	return true
}

// AddCategory appends a category. An existing name (case-sensitive exact
// match) is a no-op. With a folder-managing backend a remote folder is
// created first; its id rides along in the category record.
func (s *Store) AddCategory(ctx context.Context, name, image string) bool {
	s.mu.Lock()
	for _, c := range s.categories {
		if c.Name == name {
			s.mu.Unlock()
			return false
		}
	}
	s.mu.Unlock()

	var folderID string
	if fm, ok := backend.AsFolderManager(s.backend); ok {
		id, err := fm.CreateFolder(ctx, name)
		if err != nil {
			zap.L().Error("category folder not created", zap.String("name", name), zap.Error(err))
		} else {
			folderID = id
		}
	}

	if image != "" {
		image = s.resolveImage(ctx, image)
	}

	s.mu.Lock()
	s.categories = append(s.categories, domain.Category{Name: name, ID: folderID, Image: image})
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

// UpdateCategory renames a category in place, keeping its folder id, and
// cascades the rename to every product referencing the old name. A missing
// oldName is a no-op.
func (s *Store) UpdateCategory(ctx context.Context, oldName, newName, image string) bool {
	if image != "" && domain.IsInlineImage(image) {
		image = s.resolveImage(ctx, image)
	}

	s.mu.Lock()
	idx := -1
	for i := range s.categories {
		if s.categories[i].Name == oldName {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return false
	}

	s.categories[idx].Name = newName
	if image != "" {
		s.categories[idx].Image = image
	}
	for i := range s.products {
		if s.products[i].Category == oldName {
			s.products[i].Category = newName
		}
	}
	s.mu.Unlock()

	s.persist(ctx)
	return true
}

// DeleteCategory removes the category entry and best-effort deletes its
// remote folder. Products referencing the category are left untouched.
func (s *Store) DeleteCategory(ctx context.Context, name string) bool {
	s.mu.Lock()
	var removed *domain.Category
	kept := s.categories[:0]
	for _, c := range s.categories {
		if c.Name == name {
			cat := c
			removed = &cat
			continue
		}
		kept = append(kept, c)
	}
	s.categories = kept
	s.mu.Unlock()

	if removed == nil {
		return false
	}

	if fm, ok := backend.AsFolderManager(s.backend); ok && removed.ID != "" {
		if err := fm.DeleteRef(ctx, removed.ID); err != nil {
			zap.L().Warn("category folder not removed from backend",
				zap.String("name", name), zap.Error(err))
		}
	}

	s.persist(ctx)
	return true
}

// resolveImage uploads inline image data and returns the durable URL. On
// upload failure the inline data is kept as the fallback value and the error
// is logged, never raised to the mutator's caller.
func (s *Store) resolveImage(ctx context.Context, image string) string {
	if !domain.IsInlineImage(image) {
		return image
	}
	url, err := s.uploader.Upload(ctx, image)
	if err != nil {
		zap.L().Error("image upload failed, keeping inline data", zap.Error(err))
		return image
	}
	return url
}

// persist pushes the whole document to the backend. Failures are logged, not
// retried; the in-memory mutation stays applied so cache and remote may
// diverge until the next successful save.
func (s *Store) persist(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.snapshotLocked().Clone()
	s.mu.Unlock()

	if err := s.backend.Persist(ctx, snapshot); err != nil {
		zap.L().Error("catalog persist failed", zap.String("backend", s.backend.Name()), zap.Error(err))
	}
}

func (s *Store) findProductLocked(id int64) int {
	for i := range s.products {
		if s.products[i].ID == id {
			return i
		}
	}
	return -1
}

func (s *Store) snapshotLocked() *domain.Catalog {
	return &domain.Catalog{Categories: s.categories, Products: s.products}
}

func mergePatch(patch map[string]interface{}, dst *domain.Product) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           dst,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return dec.Decode(patch)
}
