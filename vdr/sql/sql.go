// Package sql stores identity documents in Postgres.
package sql

import (
	"context"
	"errors"
	"fmt"
	"time"

	logging "github.com/ipfs/go-log/v2"
	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
	"github.com/storacha/go-didauth/resolver"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var log = logging.Logger("vdr/sql")

var (
	errDBUnavailable = errors.New("database unavailable")
	ErrNotFound      = errors.New("identity not found")
	ErrWrongMethod   = errors.New("identity method not served by this backend")
)

// Backend serves the documents of one method from a documents table.
type Backend struct {
	db     *gorm.DB
	method string
	now    func() time.Time
}

var _ resolver.Backend = (*Backend)(nil)

type Option func(*Backend)

func WithClock(now func() time.Time) Option {
	return func(b *Backend) {
		b.now = now
	}
}

func New(db *gorm.DB, method string, opts ...Option) (*Backend, error) {
	if db == nil {
		return nil, errDBUnavailable
	}
	if method == "" {
		return nil, errors.New("method is required")
	}
	b := &Backend{db: db, method: method, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b, nil
}

// Open connects to Postgres and creates the documents table if needed.
func Open(ctx context.Context, dsn string, method string, opts ...Option) (*Backend, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	b, err := New(db, method, opts...)
	if err != nil {
		return nil, err
	}
	if err := b.Migrate(ctx); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Backend) Migrate(ctx context.Context) error {
	if err := b.db.WithContext(ctx).AutoMigrate(&DocumentModel{}); err != nil {
		return fmt.Errorf("migrating documents table: %w", err)
	}
	return nil
}

func (b *Backend) Method() string {
	return b.method
}

func (b *Backend) find(ctx context.Context, id did.DID) (*DocumentModel, error) {
	var m DocumentModel
	err := b.db.WithContext(ctx).
		Where("id = ? AND method = ?", id.WithoutFragment().String(), b.method).
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Resolve returns the stored document. Deactivated identities do not exist.
func (b *Backend) Resolve(ctx context.Context, id did.DID) (*document.Document, error) {
	m, err := b.find(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", id, err)
	}
	if m == nil || m.Deactivated {
		return nil, nil
	}
	return fromModel(*m)
}

func (b *Backend) Exists(ctx context.Context, id did.DID) (bool, error) {
	var count int64
	err := b.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ? AND method = ? AND deactivated = ?", id.WithoutFragment().String(), b.method, false).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking %s: %w", id, err)
	}
	return count > 0, nil
}

// Put inserts or replaces a document. The creation time of an existing
// document is kept.
func (b *Backend) Put(ctx context.Context, doc *document.Document) error {
	if doc.ID.Method() != b.method {
		return fmt.Errorf("%w: %s", ErrWrongMethod, doc.ID)
	}
	if err := doc.Validate(); err != nil {
		return err
	}
	m, err := toModel(doc, b.now().UTC())
	if err != nil {
		return err
	}
	err = b.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "version_id", "deactivated", "updated_at"}),
	}).Create(&m).Error
	if err != nil {
		return fmt.Errorf("storing %s: %w", doc.ID, err)
	}
	log.Debugw("stored document", "did", m.ID, "version", m.VersionID)
	return nil
}

// Deactivate marks an identity as deactivated. It then no longer resolves.
func (b *Backend) Deactivate(ctx context.Context, id did.DID) error {
	res := b.db.WithContext(ctx).Model(&DocumentModel{}).
		Where("id = ? AND method = ?", id.WithoutFragment().String(), b.method).
		Updates(map[string]any{"deactivated": true, "updated_at": b.now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("deactivating %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
