// Package handlers exposes the services over HTTP.
package handlers

import (
	"encoding/json"
	"net/http"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"myfeedsave/media"
	"myfeedsave/middleware"
	"myfeedsave/services"
)

// API holds everything the handlers need
type API struct {
	Accounts  *services.Accounts
	Friends   *services.Friends
	Posts     *services.Posts
	Messages  *services.Messages
	Pictures  *media.Store
	PostMedia *media.Store
	Tokens    middleware.TokenVerifier
	Metrics   *middleware.Metrics
	Log       logrus.FieldLogger
}

// Router wires every route. Everything under /api except signup and login
// requires a bearer token.
func (api *API) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(middleware.Logging(api.Log))
	r.Use(api.Metrics.Middleware)

	r.Handle("/metrics", api.Metrics.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/healthz", api.Health).Methods(http.MethodGet)

	// Static files
	r.PathPrefix("/uploads/posts/").Handler(staticMedia("/uploads/posts/", api.PostMedia.Root()))
	r.PathPrefix("/uploads/").Handler(staticMedia("/uploads/", api.Pictures.Root()))

	// Public routes
	r.HandleFunc("/api/auth/signup", api.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", api.Login).Methods(http.MethodPost)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.Auth(api.Tokens, api.Log))

	protected.HandleFunc("/auth/profile", api.GetProfile).Methods(http.MethodGet)
	protected.HandleFunc("/auth/profile", api.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/auth/profile", api.DeleteProfile).Methods(http.MethodDelete)

	protected.HandleFunc("/friends", api.GetFriends).Methods(http.MethodGet)
	protected.HandleFunc("/friends/requests", api.GetFriendRequests).Methods(http.MethodGet)
	protected.HandleFunc("/friends/search", api.SearchUsers).Methods(http.MethodGet)
	protected.HandleFunc("/friends/request/{receiverId}", api.SendFriendRequest).Methods(http.MethodPost)
	protected.HandleFunc("/friends/accept/{senderId}", api.AcceptFriendRequest).Methods(http.MethodPut)
	protected.HandleFunc("/friends/reject/{senderId}", api.RejectFriendRequest).Methods(http.MethodDelete)

	protected.HandleFunc("/posts", api.CreatePost).Methods(http.MethodPost)
	protected.HandleFunc("/posts", api.GetPosts).Methods(http.MethodGet)
	protected.HandleFunc("/posts/{postId}", api.UpdatePost).Methods(http.MethodPut)
	protected.HandleFunc("/posts/{postId}", api.DeletePost).Methods(http.MethodDelete)

	protected.HandleFunc("/messages/send", api.SendMessage).Methods(http.MethodPost)
	protected.HandleFunc("/messages/conversation/{otherUserId}", api.GetConversation).Methods(http.MethodGet)
	protected.HandleFunc("/messages/conversations", api.GetConversations).Methods(http.MethodGet)

	cors := gorillahandlers.CORS(
		gorillahandlers.AllowedOrigins([]string{"*"}),
		gorillahandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorillahandlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
	)
	recovery := gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(api.Log),
		gorillahandlers.PrintRecoveryStack(true),
	)
	return recovery(cors(r))
}

// Health reports that the process is serving
func (api *API) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

// statusOf maps a service error kind to its HTTP status
func statusOf(kind services.Kind) int {
	switch kind {
	case services.Unauthorized:
		return http.StatusUnauthorized
	case services.NotFound:
		return http.StatusNotFound
	case services.Forbidden:
		return http.StatusForbidden
	case services.ServerError:
		return http.StatusInternalServerError
	default:
		return http.StatusBadRequest
	}
}

// writeError answers with the status and message carried by err. Server
// errors are logged with their cause and answered generically.
func (api *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := services.KindOf(err)
	status := statusOf(kind)

	if status == http.StatusInternalServerError {
		api.Log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("Request failed")
	}
	writeMessage(w, status, services.MessageOf(err))
}

// accountID returns the authenticated caller. The auth middleware
// guarantees it on protected routes.
func accountID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.AccountIDFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "No token provided")
	}
	return id, ok
}
