package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/petgotchi/petgotchi/internal/domain/model"
)

// UsersHandler serves user registration and notifications.
type UsersHandler struct {
	deps Dependencies
}

// NewUsersHandler creates a new users handler.
func NewUsersHandler(deps Dependencies) *UsersHandler {
	return &UsersHandler{deps: deps}
}

type registerRequest struct {
	GitHubID int64  `json:"github_id"`
	Username string `json:"username"`
	Token    string `json:"token"`
}

type notificationsResponse struct {
	Notifications []model.Notification `json:"notifications"`
}

func errMissing(field string) error {
	return errors.New("missing " + field)
}

// HandleRegister handles POST /users requests.
func (h *UsersHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	const op = "api.register"
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeServiceError(w, r, wrapOp(op, ErrBadRequest, err))
		return
	}
	u, err := h.deps.RegisterUser(r.Context(), req.GitHubID, req.Username, req.Token)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

// HandleNotifications handles GET /users/{id}/notifications requests.
// Query flags: unseen (default true) and mark_seen (default false).
func (h *UsersHandler) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	const op = "api.notifications"
	unseen, err := boolParam(r, "unseen", true)
	if err != nil {
		writeServiceError(w, r, wrapOp(op, ErrBadRequest, err))
		return
	}
	markSeen, err := boolParam(r, "mark_seen", false)
	if err != nil {
		writeServiceError(w, r, wrapOp(op, ErrBadRequest, err))
		return
	}

	out, err := h.deps.Notifications(r.Context(), r.PathValue("id"), unseen, markSeen)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if out == nil {
		out = []model.Notification{}
	}
	writeJSON(w, http.StatusOK, notificationsResponse{Notifications: out})
}

func boolParam(r *http.Request, name string, def bool) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.New("invalid " + name + "; must be a boolean")
	}
	return v, nil
}
