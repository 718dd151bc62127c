package domain

import (
	"bytes"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Category is a catalog section. Name is the unique key; ID holds the
// external folder reference when the Drive backend manages one.
type Category struct {
	Name  string `json:"name"`
	ID    string `json:"id"`
	Image string `json:"image,omitempty"`
}

// UnmarshalJSON accepts both the current object shape and the legacy
// string-only entries found in older persisted documents.
func (c *Category) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var name string
		if err := json.Unmarshal(trimmed, &name); err != nil {
			return err
		}
		*c = Category{Name: name}
		return nil
	}
	type category Category
	var v category
	if err := json.Unmarshal(trimmed, &v); err != nil {
		return err
	}
	*c = Category(v)
	return nil
}

// Product is a single catalog item. Category references a Category by name;
// the reference is not enforced. Image holds either a durable URL or an
// inline data URI that has not been uploaded yet.
type Product struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Category    string `json:"category"`
	Description string `json:"description,omitempty"`
	Price       string `json:"price,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Catalog is the whole categories+products document, persisted and fetched
// atomically as one JSON unit.
type Catalog struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
}

func NewCatalog() *Catalog {
	return &Catalog{Categories: []Category{}, Products: []Product{}}
}

// Normalize guarantees non-nil slices so the serialized form is stable.
func (c *Catalog) Normalize() {
	if c.Categories == nil {
		c.Categories = []Category{}
	}
	if c.Products == nil {
		c.Products = []Product{}
	}
}

// Clone returns a deep copy of the catalog.
func (c *Catalog) Clone() *Catalog {
	out := &Catalog{
		Categories: make([]Category, len(c.Categories)),
		Products:   make([]Product, len(c.Products)),
	}
	copy(out.Categories, c.Categories)
	copy(out.Products, c.Products)
	return out
}

// Marshal encodes the catalog as the persisted document.
func (c *Catalog) Marshal() ([]byte, error) {
	return json.Marshal(c)
}

// UnmarshalCatalog decodes a persisted document, normalizing legacy entries.
func UnmarshalCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	c.Normalize()
	return &c, nil
}

// Equal compares two catalogs by serialized equality, the same change
// detection the sync loop uses to decide whether views must re-render.
func Equal(a, b *Catalog) bool {
	if a == nil || b == nil {
		return a == b
	}
	ab, err := a.Marshal()
	if err != nil {
		return false
	}
	bb, err := b.Marshal()
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

// IsInlineImage reports whether the value is inline-encoded image data
// rather than a durable URL.
func IsInlineImage(v string) bool {
	return strings.HasPrefix(v, "data:image")
}
