package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/services"
)

// TopicHandler handles HTTP requests for topics.
type TopicHandler struct {
	service services.TopicServiceProvider
}

// NewTopicHandler creates a new TopicHandler.
func NewTopicHandler(service services.TopicServiceProvider) *TopicHandler {
	return &TopicHandler{service: service}
}

// TopicPayload defines the structure for topic creation.
type TopicPayload struct {
	Name         string `json:"name" validate:"required,max=64"`
	AvatarURL    string `json:"avatar_url" validate:"omitempty,url"`
	Introduction string `json:"introduction" validate:"max=500"`
}

// List handles paginated topic search.
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	topics, err := h.service.ListTopics(r.Context(), q.Get("q"), services.ParsePage(q.Get("page"), q.Get("per_page")))
	if err != nil {
		writeError(w, r, err, "Failed to list topics")
		return
	}
	writeList(w, topics)
}

// Create handles topic creation.
func (h *TopicHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload TopicPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, r, err, "Invalid topic payload")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	topic, err := h.service.CreateTopic(r.Context(), claims, models.Topic{
		Name:         payload.Name,
		AvatarURL:    payload.AvatarURL,
		Introduction: payload.Introduction,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create topic")
		return
	}
	writeJSON(w, http.StatusCreated, topic)
}

// Get handles retrieving a topic by its ID.
func (h *TopicHandler) Get(w http.ResponseWriter, r *http.Request) {
	topic, err := h.service.GetTopic(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err, "Failed to get topic")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}

// Update handles a partial topic update.
func (h *TopicHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch models.TopicPatch
	if err := decodeAndValidate(r, &patch); err != nil {
		writeError(w, r, err, "Invalid topic payload")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	topic, err := h.service.UpdateTopic(r.Context(), claims, chi.URLParam(r, "id"), patch)
	if err != nil {
		writeError(w, r, err, "Failed to update topic")
		return
	}
	writeJSON(w, http.StatusOK, topic)
}
