package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/services"
)

// FollowHandler handles HTTP requests on the follow graph. Mutations always
// act on the edge sets of the authenticated user.
type FollowHandler struct {
	service services.FollowServiceProvider
}

// NewFollowHandler creates a new FollowHandler.
func NewFollowHandler(service services.FollowServiceProvider) *FollowHandler {
	return &FollowHandler{service: service}
}

// Follow adds the user in the path to the caller's following set.
func (h *FollowHandler) Follow(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.service.Follow(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to follow user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Unfollow removes the user in the path from the caller's following set.
func (h *FollowHandler) Unfollow(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.service.Unfollow(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to unfollow user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// FollowTopic adds the topic in the path to the caller's followingTopics set.
func (h *FollowHandler) FollowTopic(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.service.FollowTopic(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to follow topic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnfollowTopic removes the topic in the path from the caller's
// followingTopics set.
func (h *FollowHandler) UnfollowTopic(w http.ResponseWriter, r *http.Request) {
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.service.UnfollowTopic(r.Context(), claims, chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err, "Failed to unfollow topic")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FollowHandler) ListFollowing(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListFollowing(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to list following")
		return
	}
	writeList(w, users)
}

func (h *FollowHandler) ListFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListFollowers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to list followers")
		return
	}
	writeList(w, users)
}

func (h *FollowHandler) ListFollowingTopics(w http.ResponseWriter, r *http.Request) {
	topics, err := h.service.ListFollowingTopics(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to list followed topics")
		return
	}
	writeList(w, topics)
}

func (h *FollowHandler) ListTopicFollowers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListTopicFollowers(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to list topic followers")
		return
	}
	writeList(w, users)
}
