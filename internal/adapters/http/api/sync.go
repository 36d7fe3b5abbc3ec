package api

import (
	"net/http"
)

// SyncHandler triggers sync passes.
type SyncHandler struct {
	deps Dependencies
}

// NewSyncHandler creates a new sync handler.
func NewSyncHandler(deps Dependencies) *SyncHandler {
	return &SyncHandler{deps: deps}
}

// HandleRunBatch handles POST /sync requests.
func (h *SyncHandler) HandleRunBatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.RunBatch(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleSyncUser handles POST /users/{id}/sync requests.
func (h *SyncHandler) HandleSyncUser(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.SyncUser(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
