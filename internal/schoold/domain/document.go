package domain

import (
	"encoding/json"
	"time"
)

// Document is one record of a resource collection. The body is opaque JSON
// with an "id" member the backend assigns.
type Document struct {
	ID        string
	Resource  string
	Body      json.RawMessage
	CreatedAt time.Time
	UpdatedAt time.Time
}
