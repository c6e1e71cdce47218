package handlers

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/isdelr/agora-be/internal/apperr"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/models"
	"github.com/isdelr/agora-be/internal/services"
)

// UserHandler handles HTTP requests for user management.
type UserHandler struct {
	service      services.UserServiceProvider
	credentials  services.CredentialServiceProvider
	tokenTTL     time.Duration
	secureCookie bool
}

// NewUserHandler creates a new UserHandler. secureCookie sets the Secure
// flag on the login cookie.
func NewUserHandler(service services.UserServiceProvider, credentials services.CredentialServiceProvider, tokenTTL time.Duration, secureCookie bool) *UserHandler {
	return &UserHandler{service: service, credentials: credentials, tokenTTL: tokenTTL, secureCookie: secureCookie}
}

// AuthPayload defines the structure for login requests.
type AuthPayload struct {
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles user authentication and JWT generation.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload AuthPayload
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, r, err, "Invalid login request")
		return
	}

	token, err := h.credentials.Authenticate(r.Context(), payload.Name, payload.Password)
	if err != nil {
		writeError(w, r, err, "Authentication failed")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     "token",
		Value:    token,
		Expires:  time.Now().Add(h.tokenTTL),
		HttpOnly: true,
		Secure:   h.secureCookie,
		SameSite: http.SameSiteStrictMode,
		Path:     "/",
	})

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// List handles paginated user search.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.service.ListUsers(r.Context(), q.Get("q"), services.ParsePage(q.Get("page"), q.Get("per_page")))
	if err != nil {
		writeError(w, r, err, "Failed to list users")
		return
	}
	writeList(w, users)
}

// Create handles new user registration.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload models.UserPatch
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, r, err, "Invalid user payload")
		return
	}
	if payload.Name == nil || *payload.Name == "" || payload.Password == nil || *payload.Password == "" {
		writeError(w, r, apperr.ErrValidation, "Name and password are required")
		return
	}

	user, err := h.service.CreateUser(r.Context(), *payload.Name, *payload.Password, payload)
	if err != nil {
		writeError(w, r, err, "Failed to register user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// Get handles retrieving a user by their ID. The fields query parameter
// lists hidden fields to reveal and relations to expand, separated by ";".
func (h *UserHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := h.service.GetUser(r.Context(), id, fieldsParam(r))
	if err != nil {
		writeError(w, r, err, "Failed to get user")
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// Update handles a partial profile update by the profile's owner.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var payload models.UserPatch
	if err := decodeAndValidate(r, &payload); err != nil {
		writeError(w, r, err, "Invalid user payload")
		return
	}

	claims, _ := auth.ClaimsFromContext(r.Context())
	user, err := h.service.UpdateUser(r.Context(), claims, id, payload)
	if err != nil {
		writeError(w, r, err, "Failed to update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// Delete handles the permanent deletion of a user account by its owner.
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims, _ := auth.ClaimsFromContext(r.Context())
	if err := h.service.DeleteUser(r.Context(), claims, id); err != nil {
		writeError(w, r, err, "Failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// fieldsParam reads the fields query parameter. url.ParseQuery rejects pairs
// containing a raw ";", which is the field delimiter, so the raw query is
// scanned directly.
func fieldsParam(r *http.Request) string {
	for _, pair := range strings.Split(r.URL.RawQuery, "&") {
		raw, ok := strings.CutPrefix(pair, "fields=")
		if !ok {
			continue
		}
		value, err := url.QueryUnescape(raw)
		if err != nil {
			return raw
		}
		return value
	}
	return ""
}
