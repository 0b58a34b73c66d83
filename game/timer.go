/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"sync"
	"time"
)

type TimerKind int

const (
	ChooseTimer TimerKind = iota
	DrawTimer
	GraceTimer
)

func (kind TimerKind) String() string {
	switch kind {
	case ChooseTimer:
		return "choose"
	case DrawTimer:
		return "draw"
	case GraceTimer:
		return "grace"
	default:
		return "unknown"
	}
}

// an expiry tagged with the session generation it was scheduled for
type TimerFired struct {
	Kind       TimerKind
	Generation uint64
}

// the engine's view of the timer service
type Scheduler interface {
	Schedule(kind TimerKind, d time.Duration, generation uint64)
	Cancel()
}

// PhaseTimer is a single shot countdown, scheduling a new one stops the previous one.
// A stopped timer can still race its own expiry, so receivers must compare the
// generation of a fired event against the session before acting on it.
type PhaseTimer struct {
	mu    sync.Mutex
	timer *time.Timer
	fire  func(TimerFired)
}

func NewPhaseTimer(fire func(TimerFired)) *PhaseTimer {
	return &PhaseTimer{fire: fire}
}

func (t *PhaseTimer) Schedule(kind TimerKind, d time.Duration, generation uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
	}
	event := TimerFired{Kind: kind, Generation: generation}
	t.timer = time.AfterFunc(d, func() {
		t.fire(event)
	})
}

func (t *PhaseTimer) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}
