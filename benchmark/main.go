/*
 * Copyright (c) Joseph Prichard 2024
 */

package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"sync"
	"time"

	"drawguess/game"
	"drawguess/servers"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func createRoom(host string, playerLimit int) servers.RoomCodeResp {
	u := fmt.Sprintf("http://%s/api/rooms/create", host)

	roomSettings := game.RoomSettings{
		PlayerLimit:    playerLimit,
		DrawTimeSecs:   game.MinDrawTimeSecs,
		ChooseTimeSecs: game.MinChooseTimeSecs,
	}
	jsonBody, err := json.Marshal(roomSettings)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to marshal json")
	}
	resp, err := http.Post(u, "application/json", bytes.NewBuffer(jsonBody))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create room")
	}
	defer resp.Body.Close()

	var roomResp servers.RoomCodeResp
	if err = json.NewDecoder(resp.Body).Decode(&roomResp); err != nil {
		log.Fatal().Err(err).Int("status", resp.StatusCode).Msg("Failed to unmarshal json")
	}
	return roomResp
}

func runRoomClient(host string, playerCount int, duration time.Duration, roomsWg *sync.WaitGroup) {
	defer roomsWg.Done()
	if playerCount < game.MinParticipants {
		log.Fatal().Int("players", playerCount).Msg("Cannot start a room with less than 2 players")
	}

	roomResp := createRoom(host, playerCount)
	wss := joinPlayersToRoom(host, roomResp.Code, playerCount)

	// wait on all player clients to finish
	var playersWg sync.WaitGroup
	playersWg.Add(playerCount)
	for i := 0; i < playerCount; i++ {
		go runPlayerClient(wss[i], duration, &playersWg)
	}
	playersWg.Wait()
}

func joinPlayersToRoom(host string, code string, count int) []*websocket.Conn {
	// create connections and join a room for each player client
	wss := make([]*websocket.Conn, 0)
	for i := 0; i < count; i++ {
		params := url.Values{"code": {code}, "name": {fmt.Sprintf("Bot %d", i)}}
		u := fmt.Sprintf("ws://%s/api/rooms/join?%s", host, params.Encode())
		ws, _, err := websocket.DefaultDialer.Dial(u, nil)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to join room")
		}
		wss = append(wss, ws)
	}
	return wss
}

// every client reacts to what the room tells it: a drawer picks the first word and draws, a guesser guesses
func runPlayerClient(ws *websocket.Conn, duration time.Duration, wg *sync.WaitGroup) {
	defer wg.Done()
	defer ws.Close()

	var mu sync.Mutex
	drawing := false
	var options []string

	go func() {
		for {
			_, buf, err := ws.ReadMessage()
			if err != nil {
				log.Debug().Err(err).Msg("Server closed connection")
				return
			}
			var payload game.OutputPayload[json.RawMessage]
			if err = json.Unmarshal(buf, &payload); err != nil {
				continue
			}

			mu.Lock()
			switch payload.Code {
			case game.WordOptionsCode:
				var msg game.WordOptionsMsg
				if json.Unmarshal(payload.Msg, &msg) == nil {
					options = msg.Words
				}
			case game.StartDrawingCode:
				drawing = true
			case game.SettledCode:
				drawing = false
			}
			mu.Unlock()
		}
	}()

	deadline := time.After(duration)
	ticker := time.NewTicker(time.Second / 24)
	defer ticker.Stop()
	for {
		select {
		case <-deadline:
			return
		case <-ticker.C:
		}

		mu.Lock()
		word := ""
		if len(options) > 0 {
			word = options[0]
			options = nil
		}
		isDrawing := drawing
		mu.Unlock()

		var err error
		switch {
		case word != "":
			err = sendMessage(ws, game.SelectWordCode, game.SelectWordMsg{Word: word})
		case isDrawing:
			err = sendMessage(ws, game.StrokeCode, randomStroke())
		case rand.Intn(24) == 0:
			err = sendMessage(ws, game.GuessCode, game.TextMsg{Text: "apple"})
		}
		if err != nil {
			log.Warn().Err(err).Msg("Failed to send message")
			return
		}
	}
}

func randomStroke() game.Stroke {
	return game.Stroke{
		Prev:  game.Point{X: rand.Float64() * 800, Y: rand.Float64() * 600},
		Curr:  game.Point{X: rand.Float64() * 800, Y: rand.Float64() * 600},
		Color: "#000000",
		Width: 2,
	}
}

func sendMessage[T any](ws *websocket.Conn, code int, msg T) error {
	b, err := json.Marshal(game.InputPayload[T]{Code: code, Msg: msg})
	if err != nil {
		return err
	}
	return ws.WriteMessage(websocket.TextMessage, b)
}

func main() {
	host := flag.String("host", "localhost:8080", "address of the server")
	roomCount := flag.Int("rooms", 1, "number of rooms to create")
	playerCount := flag.Int("players", 8, "players joined to each room")
	duration := flag.Duration("duration", 30*time.Second, "how long each client plays")
	flag.Parse()

	var roomsWg sync.WaitGroup
	for i := 0; i < *roomCount; i++ {
		roomsWg.Add(1)
		go runRoomClient(*host, *playerCount, *duration, &roomsWg)
	}
	roomsWg.Wait()
	log.Info().Int("rooms", *roomCount).Int("players", *playerCount).Msg("Benchmark finished")
}
