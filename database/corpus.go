/*
 * Copyright (c) Joseph Prichard 2024
 */

package database

import (
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

// LoadCorpus prefers the keywords table and seeds it from the embedded words when it is empty
func LoadCorpus(db *sqlx.DB, embedded []string) []string {
	keywords, err := GetKeywords(db)
	if err != nil {
		log.Warn().Err(err).Msg("Falling back to the embedded word list")
		return embedded
	}
	if len(keywords) > 0 {
		log.Info().Int("words", len(keywords)).Msg("Loaded word corpus from the keywords table")
		return keywords
	}
	if err := InsertKeywords(db, embedded); err != nil {
		log.Warn().Err(err).Msg("Failed to seed the keywords table")
	}
	return embedded
}
