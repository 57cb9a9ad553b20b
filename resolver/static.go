package resolver

import (
	"context"
	"sync"

	"github.com/storacha/go-didauth/did"
	"github.com/storacha/go-didauth/document"
)

// Static resolves from a fixed set of documents.
type Static struct {
	mu   sync.RWMutex
	docs map[string]*document.Document
}

var _ Resolver = (*Static)(nil)

func NewStatic(docs ...*document.Document) *Static {
	s := &Static{docs: map[string]*document.Document{}}
	for _, d := range docs {
		s.Put(d)
	}
	return s
}

// Put adds or replaces a document.
func (s *Static) Put(doc *document.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID.WithoutFragment().String()] = doc
}

func (s *Static) Remove(id did.DID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.docs, id.WithoutFragment().String())
}

func (s *Static) Resolve(_ context.Context, id did.DID, _ ...ResolveOption) (*document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[id.WithoutFragment().String()], nil
}
