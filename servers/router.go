/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter mounts every api route, the player routes are left out when players is nil
func NewRouter(roomsServer *RoomsServer, authServer *AuthServer, playerServer *PlayerServer, metaServer *MetaServer) *mux.Router {
	router := mux.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.HandleFunc("/rooms/create", roomsServer.CreateRoom).Methods(http.MethodPost)
	apiRouter.HandleFunc("/rooms/join", roomsServer.JoinRoom).Methods(http.MethodGet)
	apiRouter.HandleFunc("/rooms", roomsServer.GetRooms).Methods(http.MethodGet)
	apiRouter.HandleFunc("/session", authServer.CreateSession).Methods(http.MethodPost)
	apiRouter.HandleFunc("/meta/subscribe", metaServer.Subscribe).Methods(http.MethodGet)
	if playerServer != nil {
		apiRouter.HandleFunc("/players/stats", playerServer.Get).Methods(http.MethodGet)
		apiRouter.HandleFunc("/players/leaderboard", playerServer.Leaderboard).Methods(http.MethodGet)
	}
	return router
}
