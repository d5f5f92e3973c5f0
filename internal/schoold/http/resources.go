package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/aussiebroadwan/neoschool/internal/schoold/service"
	"github.com/aussiebroadwan/neoschool/internal/schoold/store"
	"github.com/aussiebroadwan/neoschool/pkg/httpx"
	"github.com/aussiebroadwan/neoschool/pkg/slogx"
)

const maxDocumentBytes = 1 << 20

// ResourceHandler serves CRUD for one collection.
type ResourceHandler struct {
	Resource        string
	ResourceService *service.ResourceService
}

func (h *ResourceHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	docs, err := h.ResourceService.List(r.Context(), h.Resource, r.URL.Query())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, docs)
}

func (h *ResourceHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	doc, err := h.ResourceService.Get(r.Context(), h.Resource, r.PathValue("id"))
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, doc)
}

func (h *ResourceHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := h.ResourceService.Create(r.Context(), h.Resource, body)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, doc)
}

// HandleBulkCreate accepts a JSON array and creates one document per element.
func (h *ResourceHandler) HandleBulkCreate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}

	var items []json.RawMessage
	if err := json.Unmarshal(body, &items); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be a JSON array")
		return
	}

	docs, err := h.ResourceService.CreateMany(r.Context(), h.Resource, items)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, docs)
}

func (h *ResourceHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	doc, err := h.ResourceService.Update(r.Context(), h.Resource, r.PathValue("id"), body)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, doc)
}

func (h *ResourceHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.ResourceService.Delete(r.Context(), h.Resource, r.PathValue("id")); err != nil {
		h.writeErr(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ResourceHandler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrUnknownResource):
		httpx.WriteError(w, http.StatusNotFound, "not_found", h.Resource+" not found")
	case errors.Is(err, service.ErrInvalidDocument):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "Request body must be a JSON object")
	case errors.Is(err, store.ErrAlreadyExists):
		httpx.WriteError(w, http.StatusConflict, "conflict", h.Resource+" already exists")
	default:
		slogx.FromContext(r.Context()).Error("resource operation failed", "resource", h.Resource, "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "server_error", "An unexpected error occurred")
	}
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		httpx.WriteError(w, http.StatusRequestEntityTooLarge, "invalid_request", "Request body too large")
		return nil, false
	}
	return body, true
}
