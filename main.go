/*
 * Copyright (c) Joseph Prichard 2024
 */

package main

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"drawguess/config"
	"drawguess/database"
	"drawguess/game"
	"drawguess/logging"
	"drawguess/servers"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog/log"
)

//go:embed words.txt
var words string

const ShutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	logging.Init(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	corpus := game.ParseWords(words)

	var worker game.RoomWorker = servers.NopWorker{}
	var playerServer *servers.PlayerServer
	if !cfg.PersistenceEnabled() {
		log.Warn().Msg("Persistence is switched off, player stats are disabled")
	} else if db, err := database.Open(cfg.DbDriver, cfg.DbUrl); err != nil {
		// stats are best effort, the games still run without them
		log.Warn().Err(err).Str("driver", cfg.DbDriver).Msg("Failed to connect to database, player stats are disabled")
	} else {
		defer db.Close()

		database.CreateSchema(db)
		corpus = database.LoadCorpus(db, corpus)

		scoreWorker := servers.NewScoreWorker(db)
		go scoreWorker.Run(ctx)
		defer scoreWorker.Wait()

		worker = scoreWorker
		playerServer = servers.NewPlayerServer(db)
	}

	roomStore := game.NewRoomStore(ctx, cfg.CleanupPeriod)
	authServer := servers.NewAuthServer(cfg.JwtSecretKey)
	metaServer := servers.NewMetaServer()
	roomsServer := servers.NewRoomsServer(roomStore, authServer, worker, metaServer, corpus, servers.RoomsConfig{
		TTL:            cfg.RoomTTL,
		EventRate:      cfg.EventRate,
		EventBurst:     cfg.EventBurst,
		StrokeRate:     cfg.StrokeRate,
		StrokeBurst:    cfg.StrokeBurst,
		DrawTimeSecs:   cfg.DrawTimeSecs,
		ChooseTimeSecs: cfg.ChooseTimeSecs,
	})

	router := servers.NewRouter(roomsServer, authServer, playerServer, metaServer)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Int("words", len(corpus)).Msg("Starting the server...")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down the server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown the server gracefully")
	}
	roomStore.StopAll()
}
