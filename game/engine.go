/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	GuessBonus  = 10
	DrawerBonus = 5
	GraceDelay  = 3 * time.Second
)

// outbound side of the transport, implemented by the room over its subscribers
type Notifier interface {
	Broadcast(code int, msg any)
	BroadcastExcept(except uuid.UUID, code int, msg any)
	Send(to uuid.UUID, code int, msg any)
}

type AwardKind int

const (
	GuessAward AwardKind = iota
	DrawAward
)

type Award struct {
	Kind   AwardKind
	Points int
}

// background worker for a room to be implemented by the caller, it must never block
type RoomWorker interface {
	DoJoin(p Participant)
	DoScore(p Participant, award Award)
}

// Engine is the only writer of a session. Every method is one atomic transition
// and must be called from a single goroutine at a time.
type Engine struct {
	session   *Session
	notifier  Notifier
	scheduler Scheduler
	selector  WordSelector
	worker    RoomWorker
	now       func() time.Time
}

func NewEngine(session *Session, notifier Notifier, scheduler Scheduler, source WordSource, worker RoomWorker) *Engine {
	return &Engine{
		session:   session,
		notifier:  notifier,
		scheduler: scheduler,
		selector:  NewWordSelector(source),
		worker:    worker,
		now:       time.Now,
	}
}

func (e *Engine) Session() *Session {
	return e.session
}

func (e *Engine) Join(p Participant) error {
	s := e.session

	if s.roster.Index(p.ID) >= 0 {
		return fmt.Errorf("participant %s already joined: %w", p.ID, ErrInvalidTransition)
	}
	if s.roster.Len() >= s.settings.PlayerLimit {
		return ErrRoomFull
	}

	change := s.roster.Join(p)
	if s.started {
		// a game is already running so the new participant joins as a guesser
		s.roster.At(change.Index).Role = RoleGuesser
	}
	joined := *s.roster.At(change.Index)
	e.worker.DoJoin(joined)

	e.broadcastRoster()
	e.notifier.Send(joined.ID, InitCode, InitMsg{Strokes: s.Strokes(), Guesses: s.Guesses()})

	if !s.started {
		if change.Quorum {
			e.startGame()
		} else {
			e.notifier.Send(joined.ID, WaitingCode, WaitingMsg{Message: "Waiting for other players..."})
		}
		return nil
	}

	e.notifier.Send(joined.ID, RoleCode, RoleMsg{Role: RoleGuesser})
	drawer := s.Drawer()
	e.notifier.Send(joined.ID, DrawerCode, DrawerMsg{ID: drawer.ID, Name: drawer.Name})
	e.notifier.Send(joined.ID, PhaseCode, e.phaseMsg(nil))
	if s.phase == Drawing {
		e.notifier.Send(joined.ID, GuessingCode, EmptyMsg{})
	}
	return nil
}

func (e *Engine) Leave(id uuid.UUID) error {
	s := e.session

	change := s.roster.Leave(id)
	if !change.Changed {
		return fmt.Errorf("participant %s is not in the roster: %w", id, ErrInvalidTransition)
	}

	if !change.Quorum {
		wasStarted := s.started
		s.reset()
		e.scheduler.Cancel()
		e.broadcastRoster()
		if wasStarted {
			log.Info().Err(ErrQuorumLost).Str("room", s.code).Msg("Session reset")
			e.notifier.Broadcast(ClearCode, EmptyMsg{})
			e.notifier.Broadcast(PhaseCode, e.phaseMsg(nil))
		}
		e.notifier.Broadcast(WaitingCode, WaitingMsg{Message: "Waiting for other players..."})
		return nil
	}

	if change.WasDrawer {
		e.settleDeparted(change.Index)
		return nil
	}

	// keep the index pointing at the same drawer when someone before it leaves
	if change.Index < s.drawerIndex {
		s.drawerIndex--
	}
	e.broadcastRoster()
	return nil
}

func (e *Engine) SubmitStroke(id uuid.UUID, stroke Stroke) error {
	s := e.session

	if s.phase != Drawing || !s.isDrawer(id) {
		return fmt.Errorf("stroke from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}
	if !isStrokeValid(stroke) {
		return fmt.Errorf("stroke from %s: %w", id, ErrMalformedEvent)
	}

	s.strokes = append(s.strokes, stroke)
	e.notifier.BroadcastExcept(id, StrokeCode, stroke)
	return nil
}

func (e *Engine) Guess(id uuid.UUID, text string) error {
	s := e.session

	if s.phase != Drawing {
		return fmt.Errorf("guess from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}
	p := s.roster.Get(id)
	if p == nil || s.isDrawer(id) {
		return fmt.Errorf("guess from %s who is not a guesser: %w", id, ErrInvalidTransition)
	}
	if strings.TrimSpace(text) == "" || len(text) > MaxGuessLen {
		return fmt.Errorf("guess from %s: %w", id, ErrMalformedEvent)
	}

	correct := !p.HasGuessedCorrectly && MatchesWord(text, s.activeWord)
	guess := Guess{Author: p.ID, AuthorName: p.Name, Text: text, Correct: correct}
	s.guesses = append(s.guesses, guess)
	e.notifier.Broadcast(GuessCode, guess)

	if !correct {
		return nil
	}

	p.Score += GuessBonus
	p.HasGuessedCorrectly = true
	s.anyCorrect = true
	e.worker.DoScore(*p, Award{Kind: GuessAward, Points: GuessBonus})
	e.broadcastRoster()

	// only the first correct guess of a round replaces the draw timer with the grace delay
	if !s.settling {
		s.settling = true
		e.schedule(GraceTimer, GraceDelay)
	}
	return nil
}

func (e *Engine) RequestWordOptions(id uuid.UUID) error {
	s := e.session

	if s.phase != ChoosingWord || !s.isDrawer(id) {
		return fmt.Errorf("word options request from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}

	err := e.issueWordOptions()
	if errors.Is(err, ErrEmptyCorpus) {
		log.Warn().Str("room", s.code).Msg("Word corpus is empty, settling the round without a word")
		e.settle(SettleNoWord)
		return nil
	}
	return err
}

func (e *Engine) SelectWord(id uuid.UUID, word string) error {
	s := e.session

	if s.phase != ChoosingWord || !s.isDrawer(id) {
		return fmt.Errorf("word selection from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}
	word = strings.TrimSpace(word)
	if word == "" || len(word) > MaxWordLen {
		return fmt.Errorf("word selection from %s: %w", id, ErrMalformedEvent)
	}

	e.beginDrawing(word)
	return nil
}

func (e *Engine) Skip(id uuid.UUID) error {
	s := e.session

	if (s.phase != ChoosingWord && s.phase != Drawing) || !s.isDrawer(id) {
		return fmt.Errorf("skip from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}

	e.settle(SettleSkipped)
	return nil
}

// TimeUp handles a drawer reporting that its local countdown ran out
func (e *Engine) TimeUp(id uuid.UUID) error {
	s := e.session

	if s.phase != Drawing || s.settling || !s.isDrawer(id) {
		return fmt.Errorf("time up from %s in phase %s: %w", id, s.phase, ErrInvalidTransition)
	}

	e.settle(SettleTimeout)
	return nil
}

// OnTimer handles an expiry from the timer service, stale expiries are ignored
func (e *Engine) OnTimer(event TimerFired) error {
	s := e.session

	if event.Generation != s.generation {
		log.Debug().Str("room", s.code).
			Stringer("timer", event.Kind).
			Uint64("generation", event.Generation).
			Uint64("current", s.generation).
			Msg("Ignoring stale timer")
		return nil
	}

	switch {
	case event.Kind == ChooseTimer && s.phase == ChoosingWord:
		if len(s.wordOptions) > 0 {
			e.beginDrawing(s.wordOptions[0])
		} else if word, err := e.selector.DrawOne(); err == nil {
			// no options went out, the corpus may have been filled since the turn began
			e.beginDrawing(word)
		} else {
			e.settle(SettleNoWord)
		}
	case event.Kind == DrawTimer && s.phase == Drawing && !s.settling:
		e.settle(SettleTimeout)
	case event.Kind == GraceTimer && s.phase == Drawing && s.settling:
		e.settle(SettleGuessed)
	default:
		return fmt.Errorf("%s timer in phase %s: %w", event.Kind, s.phase, ErrInvalidTransition)
	}
	return nil
}

func (e *Engine) startGame() {
	s := e.session
	s.started = true
	if s.drawerIndex >= s.roster.Len() {
		s.drawerIndex = 0
	}
	log.Info().Str("room", s.code).Int("participants", s.roster.Len()).Msg("Quorum reached, starting game")
	e.beginTurn()
}

// beginTurn hands the drawer role to the participant at drawerIndex and asks them to choose a word
func (e *Engine) beginTurn() {
	s := e.session

	s.phase = ChoosingWord
	s.activeWord = ""
	s.wordOptions = nil
	s.settling = false
	s.anyCorrect = false
	s.roster.AssignRoles(s.drawerIndex)
	s.clearHistory()
	deadline := e.schedule(ChooseTimer, s.settings.ChooseTime())

	drawer := s.Drawer()
	e.broadcastRoster()
	e.notifier.Broadcast(ClearCode, EmptyMsg{})
	e.notifier.Broadcast(DrawerCode, DrawerMsg{ID: drawer.ID, Name: drawer.Name})
	for _, p := range s.roster.participants {
		e.notifier.Send(p.ID, RoleCode, RoleMsg{Role: p.Role})
	}
	e.notifier.Broadcast(PhaseCode, e.phaseMsg(&deadline))

	// an empty corpus leaves the options unset and the choose timer settles the round
	if err := e.issueWordOptions(); err != nil {
		log.Warn().Err(err).Str("room", s.code).Msg("Failed to issue word options")
	}
}

func (e *Engine) issueWordOptions() error {
	s := e.session

	words, err := e.selector.DrawOptions(WordOptionCount)
	if err != nil {
		return err
	}
	s.wordOptions = words
	e.notifier.Send(s.Drawer().ID, WordOptionsCode, WordOptionsMsg{Words: words})
	return nil
}

func (e *Engine) beginDrawing(word string) {
	s := e.session

	s.activeWord = word
	s.wordOptions = nil
	s.clearHistory()
	s.phase = Drawing
	deadline := e.schedule(DrawTimer, s.settings.DrawTime())

	drawer := s.Drawer()
	e.notifier.Broadcast(ClearCode, EmptyMsg{})
	e.notifier.Broadcast(PhaseCode, e.phaseMsg(&deadline))
	e.notifier.Send(drawer.ID, StartDrawingCode, StartDrawingMsg{Word: word})
	e.notifier.BroadcastExcept(drawer.ID, GuessingCode, EmptyMsg{})
}

// settle ends the round, pays the drawer bonus once and rotates to the next drawer
func (e *Engine) settle(reason SettleReason) {
	s := e.session

	s.phase = RoundSettled
	s.advance()
	e.scheduler.Cancel()

	bonus := 0
	if s.anyCorrect {
		drawer := s.Drawer()
		drawer.Score += DrawerBonus
		bonus = DrawerBonus
		e.worker.DoScore(*drawer, Award{Kind: DrawAward, Points: DrawerBonus})
	}

	word := s.activeWord
	s.activeWord = ""
	s.settling = false
	log.Info().Str("room", s.code).Str("reason", string(reason)).Int("drawerBonus", bonus).Msg("Round settled")
	e.notifier.Broadcast(SettledCode, SettledMsg{Reason: reason, Word: word, DrawerBonus: bonus})

	s.drawerIndex = (s.drawerIndex + 1) % s.roster.Len()
	e.beginTurn()
}

// settleDeparted ends the round of a drawer that already left the roster without any grace delay
func (e *Engine) settleDeparted(removedIndex int) {
	s := e.session

	s.phase = RoundSettled
	s.advance()
	e.scheduler.Cancel()

	word := s.activeWord
	s.activeWord = ""
	s.settling = false
	s.anyCorrect = false
	log.Info().Str("room", s.code).Msg("Drawer left, rotating to the next drawer")
	e.notifier.Broadcast(SettledCode, SettledMsg{Reason: SettleDrawerLeft, Word: word})

	// the participant after the departed drawer now occupies its index
	s.drawerIndex = removedIndex % s.roster.Len()
	e.beginTurn()
}

// schedule replaces any pending timer with one bound to a fresh generation
func (e *Engine) schedule(kind TimerKind, d time.Duration) time.Time {
	generation := e.session.advance()
	e.scheduler.Schedule(kind, d, generation)
	return e.now().Add(d)
}

func (e *Engine) broadcastRoster() {
	e.notifier.Broadcast(RosterCode, e.session.Participants())
}

func (e *Engine) phaseMsg(deadline *time.Time) PhaseMsg {
	s := e.session
	msg := PhaseMsg{Phase: s.phase.String(), Deadline: deadline}
	if drawer := s.Drawer(); drawer != nil {
		id := drawer.ID
		msg.Drawer = &id
	}
	return msg
}

func isStrokeValid(stroke Stroke) bool {
	if stroke.Width < 0 || stroke.Width > MaxWidth || len(stroke.Color) > 32 {
		return false
	}
	for _, v := range []float64{stroke.Prev.X, stroke.Prev.Y, stroke.Curr.X, stroke.Curr.Y} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
