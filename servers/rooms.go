/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	crand "crypto/rand"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"drawguess/game"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	RoomCodeLen   = 8
	RoomsPageSize = 20
	MaxFrameBytes = 4096
	WriteWait     = 10 * time.Second
)

type RoomsConfig struct {
	TTL            time.Duration // idle time before a room expires
	EventRate      float64       // inbound events per second allowed per connection
	EventBurst     int           // inbound events a connection may send at once
	StrokeRate     float64       // strokes per second allowed per connection, limited apart from other events
	StrokeBurst    int           // strokes a connection may send at once
	DrawTimeSecs   int           // draw time for rooms created without one
	ChooseTimeSecs int           // choose time for rooms created without one
}

type RoomsServer struct {
	upgrade       websocket.Upgrader
	rooms         game.Rooms
	authenticator Authenticator
	worker        game.RoomWorker
	presence      Presence
	wordBank      []string
	cfg           RoomsConfig
}

func NewRoomsServer(
	rooms game.Rooms, authenticator Authenticator, worker game.RoomWorker,
	presence Presence, wordBank []string, cfg RoomsConfig) *RoomsServer {

	return &RoomsServer{
		upgrade:       CreateUpgrade(),
		rooms:         rooms,
		authenticator: authenticator,
		worker:        worker,
		presence:      presence,
		wordBank:      wordBank,
		cfg:           cfg,
	}
}

func (server *RoomsServer) GetRooms(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	offsetStr := r.URL.Query().Get("offset")

	offset := 0
	if offsetStr != "" {
		parsedOffset, err := strconv.ParseInt(offsetStr, 10, 32)
		if err != nil || parsedOffset < 0 {
			WriteError(w, http.StatusBadRequest, "Offset parameter must be a non-negative 32-bit integer")
			return
		}
		offset = int(parsedOffset)
	}

	codes := server.rooms.Codes(offset, RoomsPageSize)
	WriteJson(w, http.StatusOK, codes)
}

func HexCode(len int) (string, error) {
	b := make([]byte, len/2)
	_, err := crand.Read(b)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

type RoomCodeResp struct {
	Code     string            `json:"code"`
	Settings game.RoomSettings `json:"settings"`
}

func (server *RoomsServer) CreateRoom(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	// generate a code, create a room, start it, then store it in the map
	code, err := HexCode(RoomCodeLen)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate a room code")
		WriteError(w, http.StatusInternalServerError, "Failed to generate a valid room code")
		return
	}

	var settings game.RoomSettings
	err = ReadJson(r, &settings)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	if settings.DrawTimeSecs == 0 {
		settings.DrawTimeSecs = server.cfg.DrawTimeSecs
	}
	if settings.ChooseTimeSecs == 0 {
		settings.ChooseTimeSecs = server.cfg.ChooseTimeSecs
	}
	game.SettingsWithDefaults(&settings)
	settings.SharedWordBank = server.wordBank

	err = game.IsSettingsValid(settings)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	bank := game.NewWordBank(settings.SharedWordBank, settings.CustomWordBank)
	room := game.NewGameRoom(code, settings, bank, server.worker, server.cfg.TTL)
	go room.Start()
	server.rooms.Set(code, room)

	log.Info().Str("room", code).Bool("public", settings.IsPublic).Int("words", bank.Len()).Msg("Started room")

	WriteJson(w, http.StatusOK, RoomCodeResp{Code: code, Settings: settings})
}

func (server *RoomsServer) JoinRoom(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	query := r.URL.Query()
	code := query.Get("code")

	room := server.rooms.Get(code)
	if room == nil {
		WriteError(w, http.StatusNotFound, "Cannot find room for provided code")
		return
	}

	participant := server.authenticator.GetParticipant(query.Get("token"), query.Get("name"))

	ws, err := server.upgrade.Upgrade(w, r, nil)
	if err != nil {
		// the upgrader has already answered the request
		log.Warn().Err(err).Str("room", code).Msg("Failed to upgrade to websocket")
		return
	}
	ws.SetReadLimit(MaxFrameBytes)

	// create a new subscription channel and join the room with it
	subscriber := game.NewSubscriber()
	server.presence.Connected()
	room.Join(game.SubscriberMsg{Subscriber: subscriber, Participant: participant})

	log.Info().Str("room", code).Str("participant", participant.ID.String()).
		Str("name", participant.Name).Msg("Socket joined room")

	limiter := server.newEventLimiter()
	go server.subscriberListener(ws, subscriber)
	go server.socketListener(ws, room, subscriber, limiter)
}

// EventLimiter keeps strokes sent at pointer rate from starving the rest of a connection's events
type EventLimiter struct {
	strokes *rate.Limiter
	events  *rate.Limiter
}

func (server *RoomsServer) newEventLimiter() EventLimiter {
	return EventLimiter{
		strokes: rate.NewLimiter(rate.Limit(server.cfg.StrokeRate), server.cfg.StrokeBurst),
		events:  rate.NewLimiter(rate.Limit(server.cfg.EventRate), server.cfg.EventBurst),
	}
}

// Allow charges the frame against the bucket for its code, malformed frames count as events
func (limiter EventLimiter) Allow(buf []byte) bool {
	var payload game.InputPayload[json.RawMessage]
	if err := json.Unmarshal(buf, &payload); err == nil && payload.Code == game.StrokeCode {
		return limiter.strokes.Allow()
	}
	return limiter.events.Allow()
}

// reads messages from socket and sends them to room
func (server *RoomsServer) socketListener(ws *websocket.Conn, room game.Room, subscriber game.Subscriber, limiter EventLimiter) {
	defer func() {
		// unsubscribes from the room when the websocket is closed
		room.Leave(subscriber)
		_ = ws.Close()
		server.presence.Disconnected()
		if panicInfo := recover(); panicInfo != nil {
			log.Error().Interface("panic", panicInfo).Msg("Recovered from panic in socket listener")
		}
	}()
	for {
		_, buf, err := ws.ReadMessage()
		if err != nil {
			log.Debug().Err(err).Msg("Client closed connection")
			return
		}
		if !limiter.Allow(buf) {
			log.Debug().Msg("Dropped event over the connection rate limit")
			continue
		}
		room.SendMessage(game.SentMsg{Message: buf, Sender: subscriber})
	}
}

// reads messages from a subscribed channel and sends them to socket
func (server *RoomsServer) subscriberListener(ws *websocket.Conn, subscriber game.Subscriber) {
	defer func() {
		// closes the websocket connection when the subscriber is informed no more messages will be sent
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(WriteWait))
		_ = ws.Close()
		if panicInfo := recover(); panicInfo != nil {
			log.Error().Interface("panic", panicInfo).Msg("Recovered from panic in subscriber listener")
		}
	}()
	for resp := range subscriber {
		// read values from channel and write back to socket
		_ = ws.SetWriteDeadline(time.Now().Add(WriteWait))
		err := ws.WriteMessage(websocket.TextMessage, resp)
		if err != nil {
			log.Debug().Err(err).Msg("Failed writing message to socket")
			return
		}
	}
}
