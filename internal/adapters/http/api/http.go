// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	service "github.com/petgotchi/petgotchi/internal/app"
	"github.com/petgotchi/petgotchi/internal/domain/model"
	"github.com/petgotchi/petgotchi/internal/domain/prestige"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	// RunBatch syncs every due user. Overlapping calls fail with
	// service.ErrBatchInProgress.
	RunBatch(ctx context.Context) (service.BatchResult, error)
	SyncUser(ctx context.Context, userID string) (service.SyncResult, error)

	RegisterUser(ctx context.Context, githubID int64, username, token string) (model.User, error)
	Adopt(ctx context.Context, userID, name string, difficulty model.Difficulty) (model.Pet, error)
	Retire(ctx context.Context, petID string) (prestige.Retired, error)

	GetPet(ctx context.Context, userID string) (model.Pet, error)
	HallOfFame(ctx context.Context, userID string) ([]model.HallOfFameEntry, error)
	Notifications(ctx context.Context, userID string, unseenOnly, markSeen bool) ([]model.Notification, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	syncHandler   *SyncHandler
	petsHandler   *PetsHandler
	usersHandler  *UsersHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler: NewHealthHandler(),
		statsHandler:  NewStatsHandler(statsProvider),
		syncHandler:   NewSyncHandler(deps),
		petsHandler:   NewPetsHandler(deps),
		usersHandler:  NewUsersHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /sync", MetricsMiddleware(s.syncHandler.HandleRunBatch, "sync"))
	mux.HandleFunc("POST /users/{id}/sync", MetricsMiddleware(s.syncHandler.HandleSyncUser, "sync_user"))

	mux.HandleFunc("POST /users", MetricsMiddleware(s.usersHandler.HandleRegister, "users"))
	mux.HandleFunc("GET /users/{id}/pet", MetricsMiddleware(s.petsHandler.HandleGetPet, "pet"))
	mux.HandleFunc("GET /users/{id}/hall-of-fame", MetricsMiddleware(s.petsHandler.HandleHallOfFame, "hall_of_fame"))
	mux.HandleFunc("GET /users/{id}/notifications", MetricsMiddleware(s.usersHandler.HandleNotifications, "notifications"))

	mux.HandleFunc("POST /pets", MetricsMiddleware(s.petsHandler.HandleAdopt, "adopt"))
	mux.HandleFunc("POST /pets/{id}/retire", MetricsMiddleware(s.petsHandler.HandleRetire, "retire"))
}
