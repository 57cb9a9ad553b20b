package sql

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/storacha/go-didauth/document"
)

type DocumentModel struct {
	ID          string    `gorm:"primaryKey"`
	Method      string    `gorm:"index;not null"`
	Document    string    `gorm:"type:jsonb;not null"`
	VersionID   string    `gorm:"column:version_id;not null"`
	Deactivated bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (DocumentModel) TableName() string {
	return "did_documents"
}

func toModel(doc *document.Document, now time.Time) (DocumentModel, error) {
	b, err := json.Marshal(doc)
	if err != nil {
		return DocumentModel{}, fmt.Errorf("encoding document: %w", err)
	}
	v, err := document.VersionID(doc)
	if err != nil {
		return DocumentModel{}, err
	}
	return DocumentModel{
		ID:        doc.ID.String(),
		Method:    doc.ID.Method(),
		Document:  string(b),
		VersionID: v,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func fromModel(m DocumentModel) (*document.Document, error) {
	var doc document.Document
	if err := json.Unmarshal([]byte(m.Document), &doc); err != nil {
		return nil, fmt.Errorf("decoding stored document %s: %w", m.ID, err)
	}
	doc.Metadata = &document.Metadata{
		Created:     m.CreatedAt,
		Updated:     m.UpdatedAt,
		VersionID:   m.VersionID,
		Deactivated: m.Deactivated,
	}
	return &doc, nil
}
