/*
 * Copyright (c) Joseph Prichard 2024
 */

package database

type Player struct {
	ID              string `db:"id" json:"id"`
	Username        string `db:"username" json:"username"`
	Points          uint32 `db:"points" json:"points"`
	GamesPlayed     uint32 `db:"games_played" json:"gamesPlayed"`
	WordsGuessed    uint32 `db:"words_guessed" json:"wordsGuessed"`
	DrawingsGuessed uint32 `db:"drawings_guessed" json:"drawingsGuessed"`
}

// increments applied to a player's lifetime stats
type StatsDelta struct {
	Username        string
	Points          uint32
	GamesPlayed     uint32
	WordsGuessed    uint32
	DrawingsGuessed uint32
}
