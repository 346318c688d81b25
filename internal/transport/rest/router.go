package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"studyroom/internal/cache"
	"studyroom/internal/coordinator"
	"studyroom/internal/service"
	"studyroom/internal/transport/rest/handler"
	"studyroom/internal/transport/rest/middleware"
	"studyroom/internal/transport/ws"
)

// StatsProvider reports live coordinator counts for /health
type StatsProvider interface {
	Stats(ctx context.Context) (coordinator.RuntimeStats, error)
}

// Container holds all dependencies for the router
type Container struct {
	AuthService *service.AuthService
	RoomService *service.RoomService
	ChatService *service.ChatService
	Leaderboard cache.LeaderboardCache
	Coordinator *coordinator.Coordinator
	WSHub       *ws.Hub
	CORSOrigins []string
}

// NewRouter creates the API router with all endpoints
func NewRouter(c *Container) http.Handler {
	r := mux.NewRouter()

	// Initialize handlers
	authHandler := handler.NewAuthHandler(c.AuthService)
	roomHandler := handler.NewRoomHandler(c.RoomService, c.ChatService)
	leaderboardHandler := handler.NewLeaderboardHandler(c.Leaderboard)
	wsHandler := ws.NewHandler(c.WSHub, c.AuthService, c.Coordinator, c.CORSOrigins)

	// Initialize middleware
	authMW := middleware.NewAuthMiddleware(c.AuthService)

	// API v1 routes
	v1 := r.PathPrefix("/v1").Subrouter()

	// Public routes
	v1.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	v1.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// WebSocket route (token in query param or header)
	v1.HandleFunc("/ws", wsHandler.ServeWS).Methods("GET")

	// Health check
	var stats StatsProvider
	if c.Coordinator != nil {
		stats = c.Coordinator
	}
	r.HandleFunc("/health", healthHandler(stats)).Methods("GET")

	// User routes (require user auth)
	userRoutes := v1.NewRoute().Subrouter()
	userRoutes.Use(authMW.RequireUser)

	userRoutes.HandleFunc("/auth/profile", authHandler.Profile).Methods("GET")
	userRoutes.HandleFunc("/rooms", roomHandler.Create).Methods("POST")
	userRoutes.HandleFunc("/rooms", roomHandler.List).Methods("GET")
	userRoutes.HandleFunc("/rooms/{id}", roomHandler.Get).Methods("GET")
	userRoutes.HandleFunc("/rooms/{id}/messages", roomHandler.Messages).Methods("GET")
	userRoutes.HandleFunc("/rooms/{id}/messages", roomHandler.PostMessage).Methods("POST")
	userRoutes.HandleFunc("/leaderboard", leaderboardHandler.Top).Methods("GET")

	return newCORS(c.CORSOrigins).Handler(r)
}

func newCORS(origins []string) *cors.Cors {
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         600,
	})
}

func healthHandler(stats StatsProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		body := map[string]interface{}{"status": "ok"}
		status := http.StatusOK
		if stats != nil {
			s, err := stats.Stats(ctx)
			if err != nil {
				body["status"] = "degraded"
				body["error"] = err.Error()
				status = http.StatusServiceUnavailable
			} else {
				body["rooms"] = s.Rooms
				body["connections"] = s.Connections
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(body)
	}
}
