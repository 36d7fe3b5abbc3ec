package api

import (
	"net/http"
	"strings"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// PetsHandler serves pet lifecycle requests.
type PetsHandler struct {
	deps Dependencies
}

// NewPetsHandler creates a new pets handler.
func NewPetsHandler(deps Dependencies) *PetsHandler {
	return &PetsHandler{deps: deps}
}

type adoptRequest struct {
	UserID     string           `json:"user_id"`
	Name       string           `json:"name"`
	Difficulty model.Difficulty `json:"difficulty"`
}

type petResponse struct {
	model.Pet
	StageName string `json:"stage_name"`
	Level     int    `json:"level"`
}

func newPetResponse(p model.Pet) petResponse {
	return petResponse{Pet: p, StageName: p.Stage.String(), Level: p.Level()}
}

type hallOfFameResponse struct {
	Entries []model.HallOfFameEntry `json:"entries"`
}

// HandleAdopt handles POST /pets requests.
func (h *PetsHandler) HandleAdopt(w http.ResponseWriter, r *http.Request) {
	const op = "api.adopt"
	var req adoptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, wrapOp(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeServiceError(w, r, wrapOp(op, ErrBadRequest, errMissing("user_id")))
		return
	}
	pet, err := h.deps.Adopt(r.Context(), req.UserID, req.Name, req.Difficulty)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPetResponse(pet))
}

// HandleGetPet handles GET /users/{id}/pet requests.
func (h *PetsHandler) HandleGetPet(w http.ResponseWriter, r *http.Request) {
	pet, err := h.deps.GetPet(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newPetResponse(pet))
}

// HandleRetire handles POST /pets/{id}/retire requests.
func (h *PetsHandler) HandleRetire(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Retire(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleHallOfFame handles GET /users/{id}/hall-of-fame requests.
func (h *PetsHandler) HandleHallOfFame(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.HallOfFame(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []model.HallOfFameEntry{}
	}
	writeJSON(w, http.StatusOK, hallOfFameResponse{Entries: entries})
}
