/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Frame struct {
	To     uuid.UUID // nil for a broadcast
	Except uuid.UUID // set for a broadcast that skips the sender
	Code   int
	Msg    any
}

// records every outbound message in order instead of writing to sockets
type RecordingNotifier struct {
	frames []Frame
}

func (n *RecordingNotifier) Broadcast(code int, msg any) {
	n.frames = append(n.frames, Frame{Code: code, Msg: msg})
}

func (n *RecordingNotifier) BroadcastExcept(except uuid.UUID, code int, msg any) {
	n.frames = append(n.frames, Frame{Except: except, Code: code, Msg: msg})
}

func (n *RecordingNotifier) Send(to uuid.UUID, code int, msg any) {
	n.frames = append(n.frames, Frame{To: to, Code: code, Msg: msg})
}

// received returns the frames a participant would have observed with the given code
func (n *RecordingNotifier) received(id uuid.UUID, code int) []Frame {
	frames := make([]Frame, 0)
	for _, f := range n.frames {
		if f.Code != code {
			continue
		}
		if f.To == id || (f.To == uuid.Nil && f.Except != id) {
			frames = append(frames, f)
		}
	}
	return frames
}

func (n *RecordingNotifier) reset() {
	n.frames = nil
}

// a scheduler that only fires when the test says so
type ManualScheduler struct {
	pending  *TimerFired
	duration time.Duration
}

func (m *ManualScheduler) Schedule(kind TimerKind, d time.Duration, generation uint64) {
	m.pending = &TimerFired{Kind: kind, Generation: generation}
	m.duration = d
}

func (m *ManualScheduler) Cancel() {
	m.pending = nil
}

type StubWords []string

func (stub StubWords) RandomWords(n int) []string {
	words := make([]string, 0, n)
	for i := 0; i < n && len(stub) > 0; i++ {
		words = append(words, stub[i%len(stub)])
	}
	return words
}

type RecordingWorker struct {
	joins  []Participant
	awards map[uuid.UUID][]Award
}

func (w *RecordingWorker) DoJoin(p Participant) {
	w.joins = append(w.joins, p)
}

func (w *RecordingWorker) DoScore(p Participant, award Award) {
	if w.awards == nil {
		w.awards = make(map[uuid.UUID][]Award)
	}
	w.awards[p.ID] = append(w.awards[p.ID], award)
}

type EngineFixture struct {
	engine    *Engine
	notifier  *RecordingNotifier
	scheduler *ManualScheduler
	worker    *RecordingWorker
}

func newFixture(words WordSource) EngineFixture {
	var settings RoomSettings
	SettingsWithDefaults(&settings)

	f := EngineFixture{
		notifier:  &RecordingNotifier{},
		scheduler: &ManualScheduler{},
		worker:    &RecordingWorker{},
	}
	f.engine = NewEngine(NewSession("abc123", settings), f.notifier, f.scheduler, words, f.worker)
	return f
}

func (f EngineFixture) join(t *testing.T, names ...string) []Participant {
	t.Helper()
	participants := make([]Participant, 0, len(names))
	for _, name := range names {
		p := Participant{ID: uuid.New(), Name: name}
		require.NoError(t, f.engine.Join(p))
		participants = append(participants, p)
	}
	return participants
}

func (f EngineFixture) fire(t *testing.T) {
	t.Helper()
	require.NotNil(t, f.scheduler.pending, "expected a pending timer")
	event := *f.scheduler.pending
	f.scheduler.pending = nil
	require.NoError(t, f.engine.OnTimer(event))
}

func (f EngineFixture) score(t *testing.T, p Participant) int {
	t.Helper()
	current, ok := f.engine.Session().Participant(p.ID)
	require.True(t, ok)
	return current.Score
}

func (f EngineFixture) drawer(t *testing.T) Participant {
	t.Helper()
	drawer := f.engine.Session().Drawer()
	require.NotNil(t, drawer)
	return *drawer
}

func TestEngine_WaitsForQuorum(t *testing.T) {
	f := newFixture(StubWords{"cat", "dog"})
	ps := f.join(t, "A")

	assert.Equal(t, WaitingForPlayers, f.engine.Session().Phase())
	assert.False(t, f.engine.Session().Started())
	assert.Len(t, f.notifier.received(ps[0].ID, WaitingCode), 1)
	assert.Nil(t, f.scheduler.pending)
}

func TestEngine_QuorumStartsGameOnce(t *testing.T) {
	f := newFixture(StubWords{"cat", "dog"})
	ps := f.join(t, "A", "B")
	s := f.engine.Session()

	assert.Equal(t, ChoosingWord, s.Phase())
	assert.Equal(t, ps[0].ID, f.drawer(t).ID)
	require.NotNil(t, f.scheduler.pending)
	assert.Equal(t, ChooseTimer, f.scheduler.pending.Kind)

	options := f.notifier.received(ps[0].ID, WordOptionsCode)
	require.Len(t, options, 1)
	assert.Len(t, options[0].Msg.(WordOptionsMsg).Words, WordOptionCount)
	assert.Empty(t, f.notifier.received(ps[1].ID, WordOptionsCode))

	// a third join must not restart the turn
	generation := s.Generation()
	f.notifier.reset()
	late := f.join(t, "C")[0]

	assert.Equal(t, generation, s.Generation())
	assert.Equal(t, ChoosingWord, s.Phase())
	assert.Equal(t, ps[0].ID, f.drawer(t).ID)
	assert.Empty(t, f.notifier.received(ps[0].ID, WordOptionsCode))
	roles := f.notifier.received(late.ID, RoleCode)
	require.Len(t, roles, 1)
	assert.Equal(t, RoleGuesser, roles[0].Msg.(RoleMsg).Role)
}

func TestEngine_DuplicateJoinIsNoop(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	p := Participant{ID: uuid.New(), Name: "A"}

	require.NoError(t, f.engine.Join(p))
	f.notifier.reset()

	err := f.engine.Join(p)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Empty(t, f.notifier.frames)
	assert.Len(t, f.engine.Session().Participants(), 1)
	assert.Len(t, f.worker.joins, 1)
}

func TestEngine_RoomFull(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	f.engine.session.settings.PlayerLimit = 2
	f.join(t, "A", "B")

	err := f.engine.Join(Participant{ID: uuid.New(), Name: "C"})
	assert.ErrorIs(t, err, ErrRoomFull)
	assert.Len(t, f.engine.Session().Participants(), 2)
}

func TestEngine_CorrectGuessScenario(t *testing.T) {
	f := newFixture(StubWords{"cat", "dog"})
	ps := f.join(t, "A", "B")
	a, b := ps[0], ps[1]
	s := f.engine.Session()

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	assert.Equal(t, Drawing, s.Phase())
	assert.Equal(t, "cat", s.ActiveWord())
	assert.Equal(t, DrawTimer, f.scheduler.pending.Kind)
	assert.Len(t, f.notifier.received(a.ID, StartDrawingCode), 1)
	assert.Len(t, f.notifier.received(b.ID, GuessingCode), 1)
	assert.Empty(t, f.notifier.received(a.ID, GuessingCode))

	require.NoError(t, f.engine.Guess(b.ID, "dog"))
	assert.Equal(t, 0, f.score(t, b))
	guesses := f.notifier.received(a.ID, GuessCode)
	require.Len(t, guesses, 1)
	assert.Equal(t, Guess{Author: b.ID, AuthorName: "B", Text: "dog"}, guesses[0].Msg)

	require.NoError(t, f.engine.Guess(b.ID, "Cat "))
	assert.Equal(t, GuessBonus, f.score(t, b))
	assert.Equal(t, 0, f.score(t, a), "drawer bonus is paid at rotation")
	require.NotNil(t, f.scheduler.pending)
	assert.Equal(t, GraceTimer, f.scheduler.pending.Kind)
	assert.Equal(t, GraceDelay, f.scheduler.duration)
	assert.Len(t, s.Guesses(), 2)

	f.fire(t)

	assert.Equal(t, DrawerBonus, f.score(t, a))
	assert.Equal(t, GuessBonus, f.score(t, b))
	assert.Equal(t, b.ID, f.drawer(t).ID)
	assert.Equal(t, ChoosingWord, s.Phase())
	assert.Empty(t, s.ActiveWord())
	assert.Empty(t, s.Strokes())
	assert.Empty(t, s.Guesses())

	settled := f.notifier.received(a.ID, SettledCode)
	require.Len(t, settled, 1)
	assert.Equal(t, SettledMsg{Reason: SettleGuessed, Word: "cat", DrawerBonus: DrawerBonus}, settled[0].Msg)

	assert.Equal(t, []Award{{Kind: GuessAward, Points: GuessBonus}}, f.worker.awards[b.ID])
	assert.Equal(t, []Award{{Kind: DrawAward, Points: DrawerBonus}}, f.worker.awards[a.ID])
}

func TestEngine_GuessAnnouncedBeforeSettlement(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	require.NoError(t, f.engine.SelectWord(ps[0].ID, "cat"))
	f.notifier.reset()

	require.NoError(t, f.engine.Guess(ps[1].ID, "cat"))
	f.fire(t)

	guessAt, settledAt := -1, -1
	for i, frame := range f.notifier.frames {
		if frame.Code == GuessCode && guessAt < 0 {
			guessAt = i
		}
		if frame.Code == SettledCode && settledAt < 0 {
			settledAt = i
		}
	}
	require.GreaterOrEqual(t, guessAt, 0)
	require.GreaterOrEqual(t, settledAt, 0)
	assert.Less(t, guessAt, settledAt)
}

func TestEngine_CorrectGuessScoresOnce(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C")
	a, b, c := ps[0], ps[1], ps[2]

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	require.NoError(t, f.engine.Guess(b.ID, "cat"))
	graceGeneration := f.scheduler.pending.Generation

	// duplicates from the same guesser and a second guesser inside the grace window
	require.NoError(t, f.engine.Guess(b.ID, "CAT"))
	require.NoError(t, f.engine.Guess(b.ID, " cat"))
	require.NoError(t, f.engine.Guess(c.ID, "cat"))

	assert.Equal(t, GuessBonus, f.score(t, b))
	assert.Equal(t, GuessBonus, f.score(t, c))
	assert.Equal(t, graceGeneration, f.scheduler.pending.Generation, "grace delay is not restarted")

	f.fire(t)
	assert.Equal(t, DrawerBonus, f.score(t, a), "drawer bonus is applied once per round")
	assert.Len(t, f.worker.awards[b.ID], 1)
}

func TestEngine_DrawerCannotGuess(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	a := ps[0]
	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))

	err := f.engine.Guess(a.ID, "cat")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, 0, f.score(t, a))
	assert.Empty(t, f.engine.Session().Guesses())
	assert.Equal(t, DrawTimer, f.scheduler.pending.Kind)
}

func TestEngine_InvalidTransitions(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	a, b := ps[0], ps[1]

	assert.ErrorIs(t, f.engine.SelectWord(b.ID, "cat"), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Guess(b.ID, "cat"), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.SubmitStroke(a.ID, Stroke{Width: 2}), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.RequestWordOptions(b.ID), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.Skip(b.ID), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.TimeUp(a.ID), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.SelectWord(a.ID, "   "), ErrMalformedEvent)

	assert.Equal(t, ChoosingWord, f.engine.Session().Phase())
	assert.Equal(t, a.ID, f.drawer(t).ID)
}

func TestEngine_TimeoutWithoutGuesses(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	a, b := ps[0], ps[1]

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	require.Equal(t, DrawTimer, f.scheduler.pending.Kind)
	f.fire(t)

	assert.Equal(t, 0, f.score(t, a))
	assert.Equal(t, 0, f.score(t, b))
	assert.Equal(t, b.ID, f.drawer(t).ID)
	settled := f.notifier.received(b.ID, SettledCode)
	require.Len(t, settled, 1)
	assert.Equal(t, SettledMsg{Reason: SettleTimeout, Word: "cat"}, settled[0].Msg)
}

func TestEngine_ReportedTimeUp(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	require.NoError(t, f.engine.SelectWord(ps[0].ID, "cat"))

	assert.ErrorIs(t, f.engine.TimeUp(ps[1].ID), ErrInvalidTransition)
	require.NoError(t, f.engine.TimeUp(ps[0].ID))
	assert.Equal(t, ps[1].ID, f.drawer(t).ID)
}

func TestEngine_SkipDuringGraceAwardsDrawerOnce(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	a, b := ps[0], ps[1]

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	require.NoError(t, f.engine.Guess(b.ID, "cat"))
	stale := *f.scheduler.pending

	require.NoError(t, f.engine.Skip(a.ID))
	assert.Equal(t, DrawerBonus, f.score(t, a))
	assert.Equal(t, b.ID, f.drawer(t).ID)

	// the grace expiry of the settled round arrives late and must be ignored
	require.NoError(t, f.engine.OnTimer(stale))
	assert.Equal(t, DrawerBonus, f.score(t, a))
	assert.Equal(t, b.ID, f.drawer(t).ID)
	assert.Equal(t, ChoosingWord, f.engine.Session().Phase())
}

func TestEngine_DrawerBonusSurvivesGuesserLeaving(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C")
	a, b := ps[0], ps[1]

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	require.NoError(t, f.engine.Guess(b.ID, "cat"))
	require.NoError(t, f.engine.Leave(b.ID))

	// the grace delay still settles the round with the bonus for the drawer
	f.fire(t)
	assert.Equal(t, DrawerBonus, f.score(t, a))
	settled := f.notifier.received(a.ID, SettledCode)
	require.Len(t, settled, 1)
	assert.Equal(t, SettledMsg{Reason: SettleGuessed, Word: "cat", DrawerBonus: DrawerBonus}, settled[0].Msg)

	// the next round starts without a correct guess recorded
	require.NoError(t, f.engine.SelectWord(ps[2].ID, "cat"))
	f.fire(t)
	assert.Equal(t, 0, f.score(t, ps[2]))
}

func TestEngine_StaleDrawTimerIgnored(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")

	require.NoError(t, f.engine.SelectWord(ps[0].ID, "cat"))
	stale := *f.scheduler.pending
	require.NoError(t, f.engine.Skip(ps[0].ID))
	require.NoError(t, f.engine.SelectWord(ps[1].ID, "dog"))

	require.NoError(t, f.engine.OnTimer(stale))
	assert.Equal(t, Drawing, f.engine.Session().Phase())
	assert.Equal(t, "dog", f.engine.Session().ActiveWord())
	assert.Equal(t, ps[1].ID, f.drawer(t).ID)
}

func TestEngine_StrokeRelayAndReplay(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	a, b := ps[0], ps[1]
	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))

	stroke := Stroke{Prev: Point{X: 1, Y: 2}, Curr: Point{X: 3, Y: 4}, Color: "#000", Width: 5}
	require.NoError(t, f.engine.SubmitStroke(a.ID, stroke))
	assert.ErrorIs(t, f.engine.SubmitStroke(b.ID, stroke), ErrInvalidTransition)
	assert.ErrorIs(t, f.engine.SubmitStroke(a.ID, Stroke{Width: -1}), ErrMalformedEvent)

	assert.Empty(t, f.notifier.received(a.ID, StrokeCode), "strokes are not echoed to the drawer")
	relayed := f.notifier.received(b.ID, StrokeCode)
	require.Len(t, relayed, 1)
	assert.Equal(t, stroke, relayed[0].Msg)

	require.NoError(t, f.engine.Guess(b.ID, "dog"))
	f.notifier.reset()
	c := f.join(t, "C")[0]

	inits := f.notifier.received(c.ID, InitCode)
	require.Len(t, inits, 1)
	init := inits[0].Msg.(InitMsg)
	assert.Equal(t, []Stroke{stroke}, init.Strokes)
	assert.Equal(t, []Guess{{Author: b.ID, AuthorName: "B", Text: "dog"}}, init.Guesses)
	assert.Len(t, f.notifier.received(c.ID, GuessingCode), 1)
}

func TestEngine_DrawerDisconnectRotates(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C")
	a, b := ps[0], ps[1]

	require.NoError(t, f.engine.SelectWord(a.ID, "cat"))
	require.NoError(t, f.engine.Guess(b.ID, "cat"))
	f.notifier.reset()

	require.NoError(t, f.engine.Leave(a.ID))

	s := f.engine.Session()
	assert.Equal(t, ChoosingWord, s.Phase())
	assert.Equal(t, b.ID, f.drawer(t).ID)
	assert.Empty(t, s.ActiveWord())
	assert.Equal(t, ChooseTimer, f.scheduler.pending.Kind, "grace delay is skipped")
	assert.Len(t, f.notifier.received(b.ID, WordOptionsCode), 1)
	assert.Equal(t, GuessBonus, f.score(t, b))

	settled := f.notifier.received(b.ID, SettledCode)
	require.Len(t, settled, 1)
	assert.Equal(t, SettleDrawerLeft, settled[0].Msg.(SettledMsg).Reason)
}

func TestEngine_LastDrawerDisconnectWraps(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C")

	// rotate twice so that C draws
	require.NoError(t, f.engine.Skip(ps[0].ID))
	require.NoError(t, f.engine.Skip(ps[1].ID))
	require.Equal(t, ps[2].ID, f.drawer(t).ID)

	require.NoError(t, f.engine.Leave(ps[2].ID))
	assert.Equal(t, ps[0].ID, f.drawer(t).ID)
}

func TestEngine_GuesserLeavingKeepsDrawer(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C")
	require.NoError(t, f.engine.Skip(ps[0].ID))
	require.Equal(t, ps[1].ID, f.drawer(t).ID)

	require.NoError(t, f.engine.Leave(ps[0].ID))

	assert.Equal(t, ps[1].ID, f.drawer(t).ID)
	index, ok := f.engine.Session().DrawerIndex()
	assert.True(t, ok)
	assert.Equal(t, 0, index)
}

func TestEngine_QuorumLostResets(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B")
	require.NoError(t, f.engine.Skip(ps[0].ID))
	require.NoError(t, f.engine.SelectWord(ps[1].ID, "dog"))

	require.NoError(t, f.engine.Leave(ps[1].ID))

	s := f.engine.Session()
	index, ok := s.DrawerIndex()
	assert.False(t, ok)
	assert.Equal(t, 0, index)
	assert.Equal(t, WaitingForPlayers, s.Phase())
	assert.Empty(t, s.ActiveWord())
	assert.Empty(t, s.Strokes())
	assert.Nil(t, f.scheduler.pending)
	assert.Len(t, f.notifier.received(ps[0].ID, WaitingCode), 2)

	// quorum again restarts from the first participant
	f.join(t, "D")
	assert.Equal(t, ChoosingWord, s.Phase())
	assert.Equal(t, ps[0].ID, f.drawer(t).ID)
}

func TestEngine_EmptyCorpus(t *testing.T) {
	f := newFixture(StubWords{})
	ps := f.join(t, "A", "B")

	assert.Equal(t, ChoosingWord, f.engine.Session().Phase())
	assert.Empty(t, f.notifier.received(ps[0].ID, WordOptionsCode))

	// the choose timer settles a round that never got a word
	f.fire(t)
	assert.Equal(t, ps[1].ID, f.drawer(t).ID)
	settled := f.notifier.received(ps[0].ID, SettledCode)
	require.Len(t, settled, 1)
	assert.Equal(t, SettleNoWord, settled[0].Msg.(SettledMsg).Reason)

	// an explicit request against the empty corpus settles right away
	require.NoError(t, f.engine.RequestWordOptions(ps[1].ID))
	assert.Equal(t, ps[0].ID, f.drawer(t).ID)
}

func TestEngine_ChooseTimeoutSelectsFirstOption(t *testing.T) {
	f := newFixture(StubWords{"cat", "dog"})
	ps := f.join(t, "A", "B")

	f.fire(t)
	assert.Equal(t, Drawing, f.engine.Session().Phase())
	assert.Equal(t, "cat", f.engine.Session().ActiveWord())
	words := f.notifier.received(ps[0].ID, StartDrawingCode)
	require.Len(t, words, 1)
	assert.Equal(t, StartDrawingMsg{Word: "cat"}, words[0].Msg)
}

func TestEngine_ChooseTimeoutDrawsLateWord(t *testing.T) {
	words := &StubWords{}
	f := newFixture(words)
	ps := f.join(t, "A", "B")
	assert.Empty(t, f.notifier.received(ps[0].ID, WordOptionsCode))

	*words = StubWords{"owl"}
	f.fire(t)
	assert.Equal(t, Drawing, f.engine.Session().Phase())
	assert.Equal(t, "owl", f.engine.Session().ActiveWord())
	assert.Empty(t, f.notifier.received(ps[0].ID, SettledCode))
}

func TestEngine_RequestWordOptionsReissues(t *testing.T) {
	f := newFixture(StubWords{"cat", "dog"})
	ps := f.join(t, "A", "B")

	require.NoError(t, f.engine.RequestWordOptions(ps[0].ID))
	assert.Len(t, f.notifier.received(ps[0].ID, WordOptionsCode), 2)
	assert.Equal(t, ChoosingWord, f.engine.Session().Phase())
}

func TestEngine_SingleDrawerInvariant(t *testing.T) {
	f := newFixture(StubWords{"cat"})
	ps := f.join(t, "A", "B", "C", "D")

	for round := 0; round < 6; round++ {
		drawers := 0
		for _, p := range f.engine.Session().Participants() {
			if p.Role == RoleDrawer {
				drawers++
			}
		}
		require.Equal(t, 1, drawers)
		require.NoError(t, f.engine.Skip(f.drawer(t).ID))
	}
	assert.Equal(t, ps[2].ID, f.drawer(t).ID)
}
