package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/socialgraph/internal/logging"
	"github.com/HammerMeetNail/socialgraph/internal/models"
	"github.com/HammerMeetNail/socialgraph/internal/services"
)

type FriendshipHandler struct {
	friendshipService services.FriendshipServiceInterface
	logger            *logging.Logger
}

func NewFriendshipHandler(friendshipService services.FriendshipServiceInterface, logger *logging.Logger) *FriendshipHandler {
	if logger == nil {
		logger = logging.Default
	}
	return &FriendshipHandler{
		friendshipService: friendshipService,
		logger:            logger,
	}
}

type CreateFriendshipRequest struct {
	RecipientID string `json:"recipient_id"`
}

type DeleteFriendshipRequest struct {
	UserID   string `json:"user_id"`
	FriendID string `json:"friend_id"`
}

type FriendshipOutcomeResponse struct {
	Outcome    models.FriendshipOutcome `json:"outcome"`
	Message    string                   `json:"message"`
	Friendship *models.Friendship       `json:"friendship,omitempty"`
}

type FriendshipResponse struct {
	Friendship *models.Friendship `json:"friendship"`
}

type FriendshipListResponse struct {
	Friendships []models.Friendship `json:"friendships"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func (h *FriendshipHandler) Create(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateFriendshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	recipientID, err := uuid.Parse(req.RecipientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid recipient ID")
		return
	}

	result, err := h.friendshipService.CreateFriendship(r.Context(), actorID, recipientID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	status := http.StatusOK
	if result.Outcome.Changed() {
		status = http.StatusCreated
	}
	writeJSON(w, status, FriendshipOutcomeResponse{
		Outcome:    result.Outcome,
		Message:    result.Outcome.Message(),
		Friendship: result.Friendship,
	})
}

func (h *FriendshipHandler) Accept(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendshipService.AcceptFriendship)
}

func (h *FriendshipHandler) Reject(w http.ResponseWriter, r *http.Request) {
	h.respond(w, r, h.friendshipService.RejectFriendship)
}

type respondFunc func(ctx context.Context, actingUserID, friendshipID uuid.UUID) (models.FriendshipOutcome, error)

func (h *FriendshipHandler) respond(w http.ResponseWriter, r *http.Request, fn respondFunc) {
	actorID, ok := GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	friendshipID, err := parseFriendshipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friendship ID")
		return
	}

	outcome, err := fn(r.Context(), actorID, friendshipID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	response := FriendshipOutcomeResponse{Outcome: outcome, Message: outcome.Message()}
	friendship, err := h.friendshipService.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		h.logger.Warn("Reloading friendship after response failed", map[string]interface{}{
			"friendship_id": friendshipID.String(),
			"error":         err.Error(),
		})
	} else {
		response.Friendship = friendship
	}
	writeJSON(w, http.StatusOK, response)
}

func (h *FriendshipHandler) Get(w http.ResponseWriter, r *http.Request) {
	friendshipID, err := parseFriendshipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friendship ID")
		return
	}

	friendship, err := h.friendshipService.GetFriendship(r.Context(), friendshipID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, FriendshipResponse{Friendship: friendship})
}

func (h *FriendshipHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	friendships, err := h.friendshipService.GetUserFriendships(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if friendships == nil {
		friendships = []models.Friendship{}
	}

	writeJSON(w, http.StatusOK, FriendshipListResponse{Friendships: friendships})
}

func (h *FriendshipHandler) Common(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	otherID, err := uuid.Parse(r.URL.Query().Get("user_id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}

	common, err := h.friendshipService.GetCommonFriendships(r.Context(), actorID, otherID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, common)
}

func (h *FriendshipHandler) Requests(w http.ResponseWriter, r *http.Request) {
	actorID, ok := GetActorFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	requests, err := h.friendshipService.ListFriendshipRequests(r.Context(), actorID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, requests)
}

func (h *FriendshipHandler) DeleteByID(w http.ResponseWriter, r *http.Request) {
	friendshipID, err := parseFriendshipID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friendship ID")
		return
	}

	if err := h.friendshipService.DeleteFriendshipByID(r.Context(), friendshipID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friendship deleted"})
}

func (h *FriendshipHandler) DeleteByPair(w http.ResponseWriter, r *http.Request) {
	var req DeleteFriendshipRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID")
		return
	}
	friendID, err := uuid.Parse(req.FriendID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid friend ID")
		return
	}

	if err := h.friendshipService.DeleteFriendship(r.Context(), userID, friendID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Friendship deleted"})
}

func parseFriendshipID(r *http.Request) (uuid.UUID, error) {
	return uuid.Parse(r.PathValue("id"))
}
