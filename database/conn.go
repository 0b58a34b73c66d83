/*
 * Copyright (c) Joseph Prichard 2024
 */

package database

import (
	"github.com/jmoiron/sqlx"
)

// Open connects to the database and checks it is reachable, the caller decides what a failure means
func Open(driver string, url string) (*sqlx.DB, error) {
	db, err := sqlx.Connect(driver, url)
	if err != nil {
		return nil, err
	}
	// sqlite only allows a single writer at a time
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}
	return db, nil
}
