package schoolsdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Resource names a backend collection.
type Resource string

const (
	Students  Resource = "students"
	Teachers  Resource = "teachers"
	Subjects  Resource = "subjects"
	Grades    Resource = "grades"
	Exams     Resource = "exams"
	ExamMarks Resource = "exam-marks"
)

const resultsPrefix = "/results/"

// Resources lists every CRUD collection the backend exposes.
var Resources = []Resource{Students, Teachers, Subjects, Grades, Exams, ExamMarks}

// ParseResource accepts a collection name as typed on a command line.
func ParseResource(s string) (Resource, error) {
	s = strings.Trim(strings.ToLower(s), "/")
	for _, r := range Resources {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown resource %q", s)
}

// Collection is a typed handle on one resource. Payloads are passed
// through as raw JSON.
type Collection struct {
	c    *SDKClient
	name Resource
}

// Collection returns a handle for name.
func (c *SDKClient) Collection(name Resource) *Collection {
	return &Collection{c: c, name: name}
}

func (col *Collection) path(id string) string {
	if id == "" {
		return "/" + string(col.name)
	}
	return "/" + string(col.name) + "/" + url.PathEscape(id)
}

// List returns GET /{resource} with optional query filters.
func (col *Collection) List(ctx context.Context, query url.Values) (json.RawMessage, error) {
	resp, err := col.c.send(ctx, http.MethodGet, col.path(""), nil, &Request{Query: query})
	if err != nil {
		return nil, err
	}
	return decodeRaw(resp, http.StatusOK)
}

// Get returns GET /{resource}/{id}.
func (col *Collection) Get(ctx context.Context, id string) (json.RawMessage, error) {
	resp, err := col.c.send(ctx, http.MethodGet, col.path(id), nil, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw(resp, http.StatusOK)
}

// Create posts body and returns the created document.
func (col *Collection) Create(ctx context.Context, body any) (json.RawMessage, error) {
	resp, err := col.c.send(ctx, http.MethodPost, col.path(""), body, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw(resp, http.StatusOK, http.StatusCreated)
}

// Update replaces document id with body.
func (col *Collection) Update(ctx context.Context, id string, body any) (json.RawMessage, error) {
	resp, err := col.c.send(ctx, http.MethodPut, col.path(id), body, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw(resp, http.StatusOK)
}

// Delete removes document id.
func (col *Collection) Delete(ctx context.Context, id string) error {
	resp, err := col.c.send(ctx, http.MethodDelete, col.path(id), nil, nil)
	if err != nil {
		return err
	}
	return checkStatus(resp, http.StatusOK, http.StatusNoContent)
}

func decodeRaw(resp *http.Response, expected ...int) (json.RawMessage, error) {
	var out json.RawMessage
	if err := decodeJSON(resp, &out, expected...); err != nil {
		return nil, err
	}
	return out, nil
}

// BulkExamMarks posts a batch of marks to /exam-marks/bulk.
func (c *SDKClient) BulkExamMarks(ctx context.Context, marks any) (json.RawMessage, error) {
	resp, err := c.send(ctx, http.MethodPost, "/exam-marks/bulk", marks, nil)
	if err != nil {
		return nil, err
	}
	return decodeRaw(resp, http.StatusOK, http.StatusCreated)
}

// ============================================================================
// Result documents
// ============================================================================

// TabulationPath is the class tabulation sheet for one exam.
func TabulationPath(year, exam, class string) string {
	return resultPath("tabulation-pdf", year, exam, class)
}

// MeritListPath is the class merit list for one exam.
func MeritListPath(year, exam, class string) string {
	return resultPath("merit-pdf", year, exam, class)
}

// MarkSheetPath is one student's mark sheet for one exam.
func MarkSheetPath(studentID, exam string) string {
	return resultPath("mark-sheet", studentID, exam)
}

func resultPath(kind string, parts ...string) string {
	var b strings.Builder
	b.WriteString(resultsPrefix + kind)
	for _, p := range parts {
		b.WriteString("/" + url.PathEscape(p))
	}
	return b.String()
}

// Download streams a binary result document at path into w and returns
// the number of bytes written.
func (c *SDKClient) Download(ctx context.Context, path string, w io.Writer) (int64, error) {
	header := http.Header{}
	header.Set("Accept", "application/pdf, application/octet-stream")

	resp, err := c.send(ctx, http.MethodGet, path, nil, &Request{Header: header})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return 0, parseErrorResponse(resp, body)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, fmt.Errorf("failed to read document: %w", err)
	}
	return n, nil
}
