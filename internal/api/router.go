package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/agora-be/internal/api/handlers"
	"github.com/isdelr/agora-be/internal/auth"
	"github.com/isdelr/agora-be/internal/services"
	"github.com/isdelr/agora-be/internal/websocket"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// Dependencies are the collaborators the router wires into handlers.
type Dependencies struct {
	Users        services.UserServiceProvider
	Credentials  services.CredentialServiceProvider
	Topics       services.TopicServiceProvider
	Follow       services.FollowServiceProvider
	Events       services.EventServiceProvider
	Hub          *websocket.Hub
	Issuer       *auth.Issuer
	LoginLimiter *IPRateLimiter
	CORSOrigins  []string
	SecureCookie bool
	TrustProxy   bool // Take the client address from proxy headers
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	if deps.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request handled")
	}))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Credentials, deps.Issuer.TTL(), deps.SecureCookie)
	topicHandler := handlers.NewTopicHandler(deps.Topics)
	followHandler := handlers.NewFollowHandler(deps.Follow)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)

	requireAuth := deps.Issuer.Middleware()

	r.Get("/healthz", handlers.Health)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket connection endpoint
		r.Get("/ws", wsHandler.Serve)
		r.Get("/healthz", handlers.Health)
		r.Get("/events", eventHandler.GetRecent)

		r.Route("/users", func(r chi.Router) {
			login := http.HandlerFunc(userHandler.Login)
			if deps.LoginLimiter != nil {
				r.Method(http.MethodPost, "/login", deps.LoginLimiter.Handler(login))
			} else {
				r.Method(http.MethodPost, "/login", login)
			}

			r.Get("/", userHandler.List)
			r.Post("/", userHandler.Create)

			// Edge mutations act on the token's identity.
			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Put("/following/{id}", followHandler.Follow)
				r.Delete("/following/{id}", followHandler.Unfollow)
				r.Put("/followingTopics/{id}", followHandler.FollowTopic)
				r.Delete("/followingTopics/{id}", followHandler.UnfollowTopic)
			})

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", userHandler.Get)
				r.Get("/following", followHandler.ListFollowing)
				r.Get("/followers", followHandler.ListFollowers)
				r.Get("/followingTopics", followHandler.ListFollowingTopics)

				r.With(requireAuth).Patch("/", userHandler.Update)
				r.With(requireAuth).Delete("/", userHandler.Delete)
			})
		})

		r.Route("/topics", func(r chi.Router) {
			r.Get("/", topicHandler.List)
			r.With(requireAuth).Post("/", topicHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", topicHandler.Get)
				r.With(requireAuth).Patch("/", topicHandler.Update)
				r.Get("/followers", followHandler.ListTopicFollowers)
			})
		})
	})

	return r
}
