/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import "github.com/google/uuid"

type Phase int

const (
	WaitingForPlayers Phase = iota
	ChoosingWord
	Drawing
	RoundSettled
)

func (phase Phase) String() string {
	switch phase {
	case WaitingForPlayers:
		return "waiting"
	case ChoosingWord:
		return "choosing"
	case Drawing:
		return "drawing"
	case RoundSettled:
		return "settled"
	default:
		return "unknown"
	}
}

type SettleReason string

const (
	SettleGuessed    SettleReason = "guessed"
	SettleTimeout    SettleReason = "timeout"
	SettleSkipped    SettleReason = "skipped"
	SettleNoWord     SettleReason = "noWord"
	SettleDrawerLeft SettleReason = "drawerLeft"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// a line segment drawn on the canvas
type Stroke struct {
	Prev  Point   `json:"prev"`
	Curr  Point   `json:"curr"`
	Color string  `json:"color"`
	Width float64 `json:"width"`
}

type Guess struct {
	Author     uuid.UUID `json:"author"`
	AuthorName string    `json:"authorName"`
	Text       string    `json:"text"`
	Correct    bool      `json:"correct"`
}

// represents the entire state of a session at any given point in time
type Session struct {
	code        string       // code of the room that uniquely identifies it
	roster      Roster       // participants in the order they joined in
	drawerIndex int          // index of the drawer in the roster, meaningful only once started
	activeWord  string       // secret word, empty outside of the drawing phase
	wordOptions []string     // candidates last issued to the drawer
	phase       Phase        // the current phase of the turn
	strokes     []Stroke     // strokes since the canvas was last cleared
	guesses     []Guess      // guesses since the canvas was last cleared
	started     bool         // whether a turn has begun since quorum was reached
	settling    bool         // a correct guess was made and settlement is pending the grace delay
	anyCorrect  bool         // a guesser was correct this round, kept even if they leave before settlement
	generation  uint64       // advanced whenever pending timers must be invalidated
	settings    RoomSettings // settings for the room set when it was created
}

func NewSession(code string, settings RoomSettings) *Session {
	return &Session{
		code:     code,
		roster:   NewRoster(),
		phase:    WaitingForPlayers,
		strokes:  make([]Stroke, 0),
		guesses:  make([]Guess, 0),
		settings: settings,
	}
}

func (s *Session) Code() string {
	return s.code
}

func (s *Session) Phase() Phase {
	return s.phase
}

func (s *Session) ActiveWord() string {
	return s.activeWord
}

func (s *Session) Started() bool {
	return s.started
}

func (s *Session) Generation() uint64 {
	return s.generation
}

func (s *Session) Settings() RoomSettings {
	return s.settings
}

// DrawerIndex returns the drawer's roster index and false when no turn is running
func (s *Session) DrawerIndex() (int, bool) {
	return s.drawerIndex, s.started
}

func (s *Session) Drawer() *Participant {
	if !s.started {
		return nil
	}
	return s.roster.At(s.drawerIndex)
}

func (s *Session) isDrawer(id uuid.UUID) bool {
	drawer := s.Drawer()
	return drawer != nil && drawer.ID == id
}

func (s *Session) Participants() []Participant {
	return s.roster.Snapshot()
}

func (s *Session) Participant(id uuid.UUID) (Participant, bool) {
	p := s.roster.Get(id)
	if p == nil {
		return Participant{}, false
	}
	return *p, true
}

func (s *Session) Strokes() []Stroke {
	strokes := make([]Stroke, len(s.strokes))
	copy(strokes, s.strokes)
	return strokes
}

func (s *Session) Guesses() []Guess {
	guesses := make([]Guess, len(s.guesses))
	copy(guesses, s.guesses)
	return guesses
}

func (s *Session) clearHistory() {
	s.strokes = s.strokes[0:0]
	s.guesses = s.guesses[0:0]
}

// advance invalidates every timer scheduled so far
func (s *Session) advance() uint64 {
	s.generation++
	return s.generation
}

// reset returns the session to its pre-game state after quorum is lost
func (s *Session) reset() {
	s.advance()
	s.phase = WaitingForPlayers
	s.drawerIndex = 0
	s.activeWord = ""
	s.wordOptions = nil
	s.started = false
	s.settling = false
	s.anyCorrect = false
	s.roster.ClearRoles()
	s.clearHistory()
}
