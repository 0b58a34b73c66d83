/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	"net/http"

	"drawguess/database"

	"github.com/jmoiron/sqlx"
)

const LeaderboardSize = 50

type PlayerServer struct {
	db *sqlx.DB
}

func NewPlayerServer(db *sqlx.DB) *PlayerServer {
	return &PlayerServer{db: db}
}

func (server *PlayerServer) Get(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	name := r.URL.Query().Get("name")
	if name == "" {
		WriteError(w, http.StatusBadRequest, "A name must be provided")
		return
	}

	var player database.Player
	err := database.GetPlayer(server.db, &player, name)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if player.Username == "" {
		WriteError(w, http.StatusNotFound, "No stats exist for "+name)
		return
	}

	w.Header().Set("Cache-Control", "max-age=60")
	WriteJson(w, http.StatusOK, player)
}

func (server *PlayerServer) Leaderboard(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	sort := r.URL.Query().Get("sort")

	players, err := database.GetLeaderboard(server.db, LeaderboardSize, sort)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	w.Header().Set("Cache-Control", "max-age=60")
	WriteJson(w, http.StatusOK, players)
}
