package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"slices"
	"time"

	"github.com/aussiebroadwan/neoschool/internal/schoold/domain"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/pkg/idx"
)

var (
	ErrUnknownResource = errors.New("unknown_resource")
	ErrInvalidDocument = errors.New("invalid_document")
)

// Collections are the resources the dashboard manages.
var Collections = []string{"students", "teachers", "subjects", "grades", "exams", "exam-marks"}

// ResourceService stores opaque JSON objects per collection.
type ResourceService struct {
	Store store.Store
	Now   func() time.Time
}

func (s *ResourceService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// List returns the documents of resource whose top-level members equal
// every value in filter. Filter values are compared as strings.
func (s *ResourceService) List(ctx context.Context, resource string, filter url.Values) ([]json.RawMessage, error) {
	if !slices.Contains(Collections, resource) {
		return nil, ErrUnknownResource
	}

	docs, err := s.Store.Documents().ListDocuments(ctx, resource)
	if err != nil {
		return nil, err
	}

	out := make([]json.RawMessage, 0, len(docs))
	for _, d := range docs {
		if matches(d.Body, filter) {
			out = append(out, d.Body)
		}
	}
	return out, nil
}

// Get returns one document.
func (s *ResourceService) Get(ctx context.Context, resource, id string) (json.RawMessage, error) {
	if !slices.Contains(Collections, resource) {
		return nil, ErrUnknownResource
	}
	if err := checkID(id); err != nil {
		return nil, err
	}
	d, err := s.Store.Documents().GetDocument(ctx, resource, id)
	if err != nil {
		return nil, err
	}
	return d.Body, nil
}

// Create stores body under a new id and returns it with "id" set.
func (s *ResourceService) Create(ctx context.Context, resource string, body json.RawMessage) (json.RawMessage, error) {
	if !slices.Contains(Collections, resource) {
		return nil, ErrUnknownResource
	}

	id := idx.New().String()
	doc, err := withID(body, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.Store.Documents().CreateDocument(ctx, domain.Document{
		ID:        id,
		Resource:  resource,
		Body:      doc,
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// CreateMany stores every element of a JSON array, as used by the bulk
// exam-marks upload.
func (s *ResourceService) CreateMany(ctx context.Context, resource string, bodies []json.RawMessage) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(bodies))
	for _, b := range bodies {
		doc, err := s.Create(ctx, resource, b)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

// Update replaces document id. The stored id always wins over any "id"
// in body.
func (s *ResourceService) Update(ctx context.Context, resource, id string, body json.RawMessage) (json.RawMessage, error) {
	if !slices.Contains(Collections, resource) {
		return nil, ErrUnknownResource
	}

	if err := checkID(id); err != nil {
		return nil, err
	}
	doc, err := withID(body, id)
	if err != nil {
		return nil, err
	}
	if err := s.Store.Documents().UpdateDocument(ctx, domain.Document{
		ID:        id,
		Resource:  resource,
		Body:      doc,
		UpdatedAt: s.now(),
	}); err != nil {
		return nil, err
	}
	return doc, nil
}

// Delete removes document id.
func (s *ResourceService) Delete(ctx context.Context, resource, id string) error {
	if !slices.Contains(Collections, resource) {
		return ErrUnknownResource
	}
	if err := checkID(id); err != nil {
		return err
	}
	return s.Store.Documents().DeleteDocument(ctx, resource, id)
}

// checkID maps ids this service could never have issued to ErrNotFound.
func checkID(id string) error {
	if _, err := idx.Parse(id); err != nil {
		return store.ErrNotFound
	}
	return nil
}

// withID decodes body as a JSON object and sets its "id" member.
func withID(body json.RawMessage, id string) (json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return nil, ErrInvalidDocument
	}

	raw, _ := json.Marshal(id)
	obj["id"] = raw

	out, err := json.Marshal(obj)
	if err != nil {
		return nil, ErrInvalidDocument
	}
	return out, nil
}

func matches(body json.RawMessage, filter url.Values) bool {
	if len(filter) == 0 {
		return true
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return false
	}
	for key := range filter {
		raw, ok := obj[key]
		if !ok {
			return false
		}
		want := filter.Get(key)

		var str string
		if json.Unmarshal(raw, &str) == nil {
			if str != want {
				return false
			}
			continue
		}
		// Numbers and booleans compare by their JSON text.
		if !bytes.Equal(bytes.TrimSpace(raw), []byte(want)) {
			return false
		}
	}
	return true
}
