package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"studyroom/internal/cache"
	"studyroom/internal/model"
	"studyroom/internal/service"
	"studyroom/internal/transport/rest/middleware"
)

// RoomHandler handles room and chat history endpoints
type RoomHandler struct {
	roomSvc *service.RoomService
	chatSvc *service.ChatService
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(roomSvc *service.RoomService, chatSvc *service.ChatService) *RoomHandler {
	return &RoomHandler{
		roomSvc: roomSvc,
		chatSvc: chatSvc,
	}
}

// roomView is a room as returned to clients. The code is only shown to the creator.
type roomView struct {
	*model.Room
	Code string `json:"code,omitempty"`
}

func viewFor(room *model.Room, userID string) roomView {
	v := roomView{Room: room}
	if room.CreatorID == userID {
		v.Code = room.Code
	}
	return v
}

// Create handles POST /v1/rooms
func (h *RoomHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req model.CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	room, err := h.roomSvc.CreateRoom(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, viewFor(room, userID))
}

// List handles GET /v1/rooms
func (h *RoomHandler) List(w http.ResponseWriter, r *http.Request) {
	dash, err := h.roomSvc.Dashboard(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dash)
}

// Get handles GET /v1/rooms/{id}
func (h *RoomHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	room, err := h.roomSvc.GetRoom(r.Context(), mux.Vars(r)["id"], userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, viewFor(room, userID))
}

// Messages handles GET /v1/rooms/{id}/messages
func (h *RoomHandler) Messages(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	if _, err := h.roomSvc.GetRoom(r.Context(), roomID, middleware.GetUserID(r.Context())); err != nil {
		writeServiceError(w, err)
		return
	}

	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = n
		}
	}

	messages, err := h.chatSvc.HistoryN(r.Context(), roomID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if messages == nil {
		messages = []*model.ChatMessage{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"messages": messages})
}

type postMessageRequest struct {
	Message string `json:"message"`
}

// PostMessage handles POST /v1/rooms/{id}/messages
// The message is stored but not pushed to live sockets.
func (h *RoomHandler) PostMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	roomID := mux.Vars(r)["id"]
	userID := middleware.GetUserID(ctx)

	if _, err := h.roomSvc.GetRoom(ctx, roomID, userID); err != nil {
		writeServiceError(w, err)
		return
	}

	var req postMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := h.chatSvc.Post(ctx, roomID, userID, middleware.GetUsername(ctx), req.Message)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// LeaderboardHandler serves the global study leaderboard
type LeaderboardHandler struct {
	leaderboard cache.LeaderboardCache
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(leaderboard cache.LeaderboardCache) *LeaderboardHandler {
	return &LeaderboardHandler{leaderboard: leaderboard}
}

// Top handles GET /v1/leaderboard
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	topStr := r.URL.Query().Get("top")
	top := 20
	if topStr != "" {
		if n, err := strconv.Atoi(topStr); err == nil && n > 0 && n <= 100 {
			top = n
		}
	}

	entries, err := h.leaderboard.GetTop(r.Context(), top)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	rank, err := h.leaderboard.GetRank(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"leaderboard": entries,
		"myRank":      rank,
	})
}
