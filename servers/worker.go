/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	"context"

	"drawguess/database"
	"drawguess/game"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const WorkerQueueSize = 1024

// ScoreWorker persists room events on its own goroutine so a room never waits on the database.
// A single consumer keeps the increments for a player in the order the room produced them.
type ScoreWorker struct {
	db   *sqlx.DB
	jobs chan database.StatsDelta
	done chan struct{}
}

func NewScoreWorker(db *sqlx.DB) *ScoreWorker {
	return &ScoreWorker{
		db:   db,
		jobs: make(chan database.StatsDelta, WorkerQueueSize),
		done: make(chan struct{}),
	}
}

func (worker *ScoreWorker) DoJoin(p game.Participant) {
	worker.enqueue(database.StatsDelta{Username: p.Name, GamesPlayed: 1})
}

func (worker *ScoreWorker) DoScore(p game.Participant, award game.Award) {
	delta := database.StatsDelta{Username: p.Name, Points: uint32(award.Points)}
	switch award.Kind {
	case game.GuessAward:
		delta.WordsGuessed = 1
	case game.DrawAward:
		delta.DrawingsGuessed = 1
	}
	worker.enqueue(delta)
}

func (worker *ScoreWorker) enqueue(delta database.StatsDelta) {
	select {
	case worker.jobs <- delta:
	default:
		log.Warn().Str("username", delta.Username).Msg("Score worker queue is full, dropping stats update")
	}
}

// Run applies queued updates until ctx is done, then drains what is left in the queue
func (worker *ScoreWorker) Run(ctx context.Context) {
	defer close(worker.done)
	for {
		select {
		case delta := <-worker.jobs:
			worker.apply(delta)
		case <-ctx.Done():
			for {
				select {
				case delta := <-worker.jobs:
					worker.apply(delta)
				default:
					return
				}
			}
		}
	}
}

// Wait blocks until Run has returned
func (worker *ScoreWorker) Wait() {
	<-worker.done
}

func (worker *ScoreWorker) apply(delta database.StatsDelta) {
	// failures are logged by the query and never reach the room
	_ = database.IncrementStats(worker.db, delta)
}

// used when persistence is disabled
type NopWorker struct{}

func (worker NopWorker) DoJoin(_ game.Participant) {}

func (worker NopWorker) DoScore(_ game.Participant, _ game.Award) {}
