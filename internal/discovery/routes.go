package discovery

import (
	"github.com/gorilla/mux"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
)

func RegisterRoutes(router *mux.Router, handler *Handler, hub *Hub, authMiddleware *auth.Middleware, presence *PresenceTracker) {
	api := router.PathPrefix("/api/v1/discovery").Subrouter()
	api.Use(authMiddleware.Authenticate)
	if presence != nil {
		api.Use(presence.Middleware)
	}

	// Discovery
	api.HandleFunc("", handler.Discover).Methods("GET")

	// Swipes & skips
	api.HandleFunc("/swipe", handler.Swipe).Methods("POST")
	api.HandleFunc("/skip", handler.TempSkip).Methods("POST")

	// Boost
	api.HandleFunc("/boost", handler.Boost).Methods("POST")

	// Matches
	api.HandleFunc("/matches", handler.GetMatches).Methods("GET")
	api.HandleFunc("/matches/{id}/unmatch", handler.Unmatch).Methods("POST")

	// Match event feed
	ws := router.PathPrefix("/ws").Subrouter()
	ws.Use(authMiddleware.Authenticate)
	ws.HandleFunc("", hub.ServeWS).Methods("GET")
}
