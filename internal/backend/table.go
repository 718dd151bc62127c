package backend

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vitrina/catalogd/internal/domain"
	"gorm.io/gorm"
)

// CatalogRow is the single row holding the whole catalog document.
type CatalogRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Data      string    `gorm:"type:jsonb" json:"data"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Table persists the catalog into a single-row structured-storage table
// (a Supabase/Postgres deployment). Fetch selects the first row; Persist
// patches that row by id, inserting it when the table is still empty.
type Table struct {
	db    *gorm.DB
	table string
}

func NewTable(db *gorm.DB, table string) (*Table, error) {
	if table == "" {
		table = "catalog"
	}
	t := &Table{db: db, table: table}
	if err := db.Table(table).AutoMigrate(&CatalogRow{}); err != nil {
		return nil, errors.Wrap(err, "migrate catalog table")
	}
	return t, nil
}

func (t *Table) Name() string { return "table" }

func (t *Table) Fetch(ctx context.Context) (*domain.Catalog, error) {
	var row CatalogRow
	err := t.db.WithContext(ctx).Table(t.table).Order("id").First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Empty table is a valid empty state, not an error.
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "select catalog row")
	}
	catalog, err := domain.UnmarshalCatalog([]byte(row.Data))
	if err != nil {
		return nil, errors.Wrap(err, "decode catalog row")
	}
	return catalog, nil
}

func (t *Table) Persist(ctx context.Context, catalog *domain.Catalog) error {
	data, err := catalog.Marshal()
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}

	var row CatalogRow
	err = t.db.WithContext(ctx).Table(t.table).Order("id").First(&row).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return errors.Wrap(t.db.WithContext(ctx).Table(t.table).Create(&CatalogRow{
			Data:      string(data),
			UpdatedAt: time.Now(),
		}).Error, "insert catalog row")
	case err != nil:
		return errors.Wrap(err, "locate catalog row")
	}

	return errors.Wrap(t.db.WithContext(ctx).Table(t.table).
		Where("id = ?", row.ID).
		Updates(map[string]interface{}{
			"data":       string(data),
			"updated_at": time.Now(),
		}).Error, "update catalog row")
}
