/*
 * Copyright (c) Joseph Prichard 2024
 */

package database

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// create the schema on the database if it does not already exist
func CreateSchema(db *sqlx.DB) {
	query := `
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			username TEXT NOT NULL UNIQUE,
			points INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			words_guessed INTEGER NOT NULL DEFAULT 0,
			drawings_guessed INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS keywords (
			word TEXT PRIMARY KEY
		);

		CREATE INDEX IF NOT EXISTS idx_players_points ON players (points);
		CREATE INDEX IF NOT EXISTS idx_players_words_guessed ON players (words_guessed);
		CREATE INDEX IF NOT EXISTS idx_players_drawings_guessed ON players (drawings_guessed);`

	_ = db.MustExec(query)
}

func InsertPlayer(db *sqlx.DB, player Player) error {
	query := `
		INSERT INTO players (id, username, points, games_played, words_guessed, drawings_guessed)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := db.Exec(query, player.ID, player.Username, player.Points, player.GamesPlayed, player.WordsGuessed, player.DrawingsGuessed)
	if err != nil {
		log.Error().Err(err).Str("username", player.Username).Msg("Failed to insert player stats")
		return errors.New("Failed to insert player stats")
	}
	return nil
}

func GetPlayer(db *sqlx.DB, player *Player, username string) error {
	err := db.Get(player, "SELECT * FROM players WHERE username = $1 LIMIT 1", username)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		log.Error().Err(err).Str("username", username).Msg("Failed to get player stats")
		return errors.New("Failed to get player stats")
	}
	return nil
}

var SortColMap = map[string]string{
	"points":   "points",
	"games":    "games_played",
	"words":    "words_guessed",
	"drawings": "drawings_guessed",
}

func GetLeaderboard(db *sqlx.DB, limit uint32, sort string) ([]Player, error) {
	if sort == "" {
		sort = "points"
	}
	col, exists := SortColMap[sort]
	if !exists {
		return nil, errors.New("Unknown sort type, must be points, games, words, or drawings")
	}

	query := fmt.Sprintf("SELECT * FROM players ORDER BY %s DESC, username ASC LIMIT $1", col)

	players := make([]Player, 0)
	err := db.Select(&players, query, limit)
	if err != nil {
		log.Error().Err(err).Msg("Failed to get leaderboard")
		return nil, errors.New("Failed to get leaderboard")
	}
	return players, nil
}

// IncrementStats adds the delta to a player's stats, creating the row on first use
func IncrementStats(db *sqlx.DB, delta StatsDelta) error {
	query := `
		INSERT INTO players (id, username, points, games_played, words_guessed, drawings_guessed)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (username) DO UPDATE
		SET points = players.points + excluded.points,
			games_played = players.games_played + excluded.games_played,
			words_guessed = players.words_guessed + excluded.words_guessed,
			drawings_guessed = players.drawings_guessed + excluded.drawings_guessed`

	_, err := db.Exec(query, uuid.New().String(), delta.Username,
		delta.Points, delta.GamesPlayed, delta.WordsGuessed, delta.DrawingsGuessed)
	if err != nil {
		log.Error().Err(err).Str("username", delta.Username).Msg("Failed to update player stats")
		return errors.New("Failed to update player stats")
	}
	return nil
}

// InsertKeywords adds words to the corpus in a single transaction, skipping words already present
func InsertKeywords(db *sqlx.DB, words []string) error {
	tx, err := db.Beginx()
	if err != nil {
		log.Error().Err(err).Msg("Failed to begin keyword transaction")
		return errors.New("Failed to insert keywords")
	}
	defer tx.Rollback()

	query := `INSERT INTO keywords (word) VALUES ($1) ON CONFLICT (word) DO NOTHING`
	for _, word := range words {
		if _, err := tx.Exec(query, word); err != nil {
			log.Error().Err(err).Str("word", word).Msg("Failed to insert keyword")
			return errors.New("Failed to insert keywords")
		}
	}

	if err := tx.Commit(); err != nil {
		log.Error().Err(err).Msg("Failed to commit keywords")
		return errors.New("Failed to insert keywords")
	}
	return nil
}

func GetKeywords(db *sqlx.DB) ([]string, error) {
	words := make([]string, 0)
	err := db.Select(&words, "SELECT word FROM keywords ORDER BY word")
	if err != nil {
		log.Error().Err(err).Msg("Failed to get keywords")
		return nil, errors.New("Failed to get keywords")
	}
	return words, nil
}
