/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// outbound frames buffered per subscriber before it is considered too slow to keep
const SubscriberBuffer = 256

// a room interface that provides flow control for a client to subscribe to and send messages to
type Room interface {
	Start()
	Join(m SubscriberMsg)
	Leave(s Subscriber)
	SendMessage(m SentMsg)
	Stop(c int)
	IsExpired(now time.Time) bool
	IsPublic() bool
}

type Subscriber = chan []byte

type SentMsg struct {
	Message []byte
	Sender  Subscriber
}

type SubscriberMsg struct {
	Subscriber  Subscriber
	Participant Participant
}

func NewSubscriber() Subscriber {
	return make(Subscriber, SubscriberBuffer)
}

// an implementation of the session coordinator against the room interface flow control
type GameRoom struct {
	code        string
	join        chan SubscriberMsg
	leave       chan Subscriber
	sendMessage chan SentMsg
	timers      chan TimerFired
	stop        chan int
	done        chan struct{}
	engine      *Engine
	timer       *PhaseTimer
	subscribers map[Subscriber]uuid.UUID
	byID        map[uuid.UUID]Subscriber
	slow        []Subscriber
	expireTime  atomic.Int64
	ttl         time.Duration
	isPublic    bool
}

func NewGameRoom(code string, settings RoomSettings, source WordSource, worker RoomWorker, ttl time.Duration) *GameRoom {
	// create the room with all channels and state
	room := &GameRoom{
		code:        code,
		join:        make(chan SubscriberMsg),
		leave:       make(chan Subscriber),
		sendMessage: make(chan SentMsg),
		timers:      make(chan TimerFired),
		stop:        make(chan int),
		done:        make(chan struct{}),
		subscribers: make(map[Subscriber]uuid.UUID),
		byID:        make(map[uuid.UUID]Subscriber),
		ttl:         ttl,
		isPublic:    settings.IsPublic,
	}
	room.timer = NewPhaseTimer(room.onTimerFired)
	room.engine = NewEngine(NewSession(code, settings), room, room.timer, source, worker)
	room.postponeExpiration()
	return room
}

func (room *GameRoom) Start() {
	defer close(room.done)
	defer room.timer.Cancel()

	for {
		select {
		case subMsg := <-room.join:
			room.dispatch(func() { room.onSubscribe(subMsg) })
		case subscriber := <-room.leave:
			room.dispatch(func() { room.onUnsubscribe(subscriber) })
		case sentMsg := <-room.sendMessage:
			room.dispatch(func() { room.onMessage(sentMsg) })
		case event := <-room.timers:
			room.dispatch(func() { room.onTimer(event) })
		case termCode := <-room.stop:
			room.onTerminate(termCode)
			return
		}
	}
}

func (room *GameRoom) Join(m SubscriberMsg) {
	select {
	case room.join <- m:
	case <-room.done:
		close(m.Subscriber)
	}
}

func (room *GameRoom) Leave(s Subscriber) {
	select {
	case room.leave <- s:
	case <-room.done:
	}
}

func (room *GameRoom) SendMessage(m SentMsg) {
	select {
	case room.sendMessage <- m:
	case <-room.done:
	}
}

func (room *GameRoom) Stop(c int) {
	select {
	case room.stop <- c:
	case <-room.done:
	}
}

func (room *GameRoom) IsExpired(now time.Time) bool {
	return now.Unix() >= room.expireTime.Load()
}

func (room *GameRoom) IsPublic() bool {
	return room.isPublic
}

func (room *GameRoom) Code() string {
	return room.code
}

func (room *GameRoom) postponeExpiration() {
	room.expireTime.Store(time.Now().Add(room.ttl).Unix())
}

// called from the timer goroutine, hands the expiry to the room loop
func (room *GameRoom) onTimerFired(event TimerFired) {
	select {
	case room.timers <- event:
	case <-room.done:
	}
}

// dispatch runs one event handler and then evicts subscribers that could not keep up
func (room *GameRoom) dispatch(handle func()) {
	defer func() {
		if panicInfo := recover(); panicInfo != nil {
			log.Error().Str("room", room.code).Interface("panic", panicInfo).Msg("Recovered from panic in room")
		}
	}()
	handle()
	for len(room.slow) > 0 {
		subscriber := room.slow[0]
		room.slow = room.slow[1:]
		if _, ok := room.subscribers[subscriber]; ok {
			log.Warn().Str("room", room.code).Msg("Evicting subscriber that stopped reading")
			room.onUnsubscribe(subscriber)
		}
	}
}

func (room *GameRoom) onSubscribe(subMsg SubscriberMsg) {
	id := subMsg.Participant.ID
	if existing, ok := room.byID[id]; ok {
		log.Debug().Str("room", room.code).Str("participant", id.String()).Msg("Ignoring duplicate join")
		if existing != subMsg.Subscriber {
			close(subMsg.Subscriber)
		}
		return
	}

	// register before the join so the joiner receives its own replay snapshot
	room.subscribers[subMsg.Subscriber] = id
	room.byID[id] = subMsg.Subscriber

	err := room.engine.Join(subMsg.Participant)
	if err != nil {
		delete(room.subscribers, subMsg.Subscriber)
		delete(room.byID, id)
		log.Info().Err(err).Str("room", room.code).Str("participant", id.String()).Msg("Rejected join")
		// only the sender should receive the error response
		select {
		case subMsg.Subscriber <- CreateErrorResponse(err.Error()):
		default:
		}
		close(subMsg.Subscriber)
		return
	}

	room.postponeExpiration()
	log.Info().Str("room", room.code).Str("participant", id.String()).
		Str("name", subMsg.Participant.Name).Msg("Participant joined the room")
}

func (room *GameRoom) onUnsubscribe(subscriber Subscriber) {
	id, ok := room.subscribers[subscriber]
	if !ok {
		return
	}
	delete(room.subscribers, subscriber)
	delete(room.byID, id)
	close(subscriber)

	if err := room.engine.Leave(id); err != nil {
		room.logDropped(id, err)
	}
	log.Info().Str("room", room.code).Str("participant", id.String()).Msg("Participant left the room")
}

func (room *GameRoom) onMessage(sentMsg SentMsg) {
	id, ok := room.subscribers[sentMsg.Sender]
	if !ok {
		return
	}
	room.postponeExpiration()

	if err := room.HandleMessage(sentMsg.Message, id); err != nil {
		room.logDropped(id, err)
	}
}

func (room *GameRoom) onTimer(event TimerFired) {
	if err := room.engine.OnTimer(event); err != nil {
		log.Debug().Err(err).Str("room", room.code).Msg("Dropped timer event")
	}
}

func (room *GameRoom) onTerminate(code int) {
	resp, err := createResponse(code, EmptyMsg{})
	if err != nil {
		log.Error().Err(err).Str("room", room.code).Msg("Failed to serialize termination message")
	}
	// delete each subscriber from table and close channel
	for s := range room.subscribers {
		if resp != nil {
			select {
			case s <- resp:
			default:
			}
		}
		delete(room.subscribers, s)
		close(s)
	}
	room.byID = make(map[uuid.UUID]Subscriber)
	log.Info().Str("room", room.code).Int("code", code).Msg("Room terminated")
}

// dropLevel keeps frames a client may routinely get wrong out of the warn log
func dropLevel(err error) zerolog.Level {
	if errors.Is(err, ErrInvalidTransition) || errors.Is(err, ErrMalformedEvent) {
		return zerolog.DebugLevel
	}
	return zerolog.WarnLevel
}

func (room *GameRoom) logDropped(id uuid.UUID, err error) {
	log.WithLevel(dropLevel(err)).Err(err).Str("room", room.code).Str("participant", id.String()).Msg("Dropped event")
}

// HandleMessage decodes one inbound frame and applies it to the engine
func (room *GameRoom) HandleMessage(message []byte, id uuid.UUID) error {
	var payload InputPayload[json.RawMessage]
	if err := json.Unmarshal(message, &payload); err != nil {
		return ErrMalformedEvent
	}

	e := room.engine
	switch payload.Code {
	case StrokeCode:
		var stroke Stroke
		if err := decodeMsg(payload.Msg, &stroke); err != nil {
			return err
		}
		return e.SubmitStroke(id, stroke)
	case GuessCode:
		var msg TextMsg
		if err := decodeMsg(payload.Msg, &msg); err != nil {
			return err
		}
		return e.Guess(id, msg.Text)
	case RequestWordsCode:
		return e.RequestWordOptions(id)
	case SelectWordCode:
		var msg SelectWordMsg
		if err := decodeMsg(payload.Msg, &msg); err != nil {
			return err
		}
		return e.SelectWord(id, msg.Word)
	case SkipCode:
		return e.Skip(id)
	case TimeUpCode:
		return e.TimeUp(id)
	default:
		return fmt.Errorf("code %d: %w: %w", payload.Code, ErrUnknownCode, ErrMalformedEvent)
	}
}

func decodeMsg[T any](raw json.RawMessage, msg *T) error {
	if len(raw) == 0 {
		return ErrMalformedEvent
	}
	if err := json.Unmarshal(raw, msg); err != nil {
		return ErrMalformedEvent
	}
	return nil
}

func (room *GameRoom) Broadcast(code int, msg any) {
	resp, err := createResponse(code, msg)
	if err != nil {
		log.Error().Err(err).Str("room", room.code).Int("code", code).Msg("Failed to serialize broadcast")
		return
	}
	for s := range room.subscribers {
		room.deliver(s, resp)
	}
}

func (room *GameRoom) BroadcastExcept(except uuid.UUID, code int, msg any) {
	resp, err := createResponse(code, msg)
	if err != nil {
		log.Error().Err(err).Str("room", room.code).Int("code", code).Msg("Failed to serialize broadcast")
		return
	}
	for s, id := range room.subscribers {
		if id != except {
			room.deliver(s, resp)
		}
	}
}

func (room *GameRoom) Send(to uuid.UUID, code int, msg any) {
	s, ok := room.byID[to]
	if !ok {
		return
	}
	resp, err := createResponse(code, msg)
	if err != nil {
		log.Error().Err(err).Str("room", room.code).Int("code", code).Msg("Failed to serialize message")
		return
	}
	room.deliver(s, resp)
}

// deliver never blocks the room loop, a full buffer marks the subscriber for eviction
func (room *GameRoom) deliver(s Subscriber, resp []byte) {
	select {
	case s <- resp:
	default:
		room.slow = append(room.slow, s)
	}
}
