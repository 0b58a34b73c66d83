/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import "github.com/google/uuid"

// the fewest participants needed for a round to run
const MinParticipants = 2

type Role string

const (
	RoleNone    Role = ""
	RoleGuesser Role = "guesser"
	RoleDrawer  Role = "drawer"
)

type Participant struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Score               int       `json:"score"`
	Role                Role      `json:"role"`
	HasGuessedCorrectly bool      `json:"isCorrect"`
}

// outcome of a single roster mutation
type RosterChange struct {
	Changed    bool // false for a duplicate join or a leave of an unknown id
	Index      int  // index the participant was added at or removed from
	WasDrawer  bool // the removed participant held the drawer role
	QuorumLost bool // the roster fell from quorum to below it
	Quorum     bool // the roster meets quorum after the change
}

type Roster struct {
	participants []Participant // stores all participants in the order they joined in
	departed     map[string]int
}

func NewRoster() Roster {
	return Roster{
		participants: make([]Participant, 0),
		departed:     make(map[string]int),
	}
}

func (roster *Roster) Len() int {
	return len(roster.participants)
}

func (roster *Roster) Index(id uuid.UUID) int {
	for i, p := range roster.participants {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// At returns a pointer into the roster, only valid until the next join or leave
func (roster *Roster) At(index int) *Participant {
	if index < 0 || index >= len(roster.participants) {
		return nil
	}
	return &roster.participants[index]
}

func (roster *Roster) Get(id uuid.UUID) *Participant {
	return roster.At(roster.Index(id))
}

func (roster *Roster) Join(p Participant) RosterChange {
	if index := roster.Index(p.ID); index >= 0 {
		return RosterChange{Index: index, Quorum: roster.Len() >= MinParticipants}
	}

	// a participant rejoining under the same name gets back the score it left with
	if score, ok := roster.departed[p.Name]; ok {
		if score > p.Score {
			p.Score = score
		}
		delete(roster.departed, p.Name)
	}
	p.Role = RoleNone
	p.HasGuessedCorrectly = false

	roster.participants = append(roster.participants, p)
	return RosterChange{
		Changed: true,
		Index:   roster.Len() - 1,
		Quorum:  roster.Len() >= MinParticipants,
	}
}

func (roster *Roster) Leave(id uuid.UUID) RosterChange {
	index := roster.Index(id)
	if index < 0 {
		return RosterChange{Index: -1, Quorum: roster.Len() >= MinParticipants}
	}
	hadQuorum := roster.Len() >= MinParticipants

	p := roster.participants[index]
	roster.departed[p.Name] = p.Score
	roster.participants = append(roster.participants[:index], roster.participants[index+1:]...)

	quorum := roster.Len() >= MinParticipants
	return RosterChange{
		Changed:    true,
		Index:      index,
		WasDrawer:  p.Role == RoleDrawer,
		QuorumLost: hadQuorum && !quorum,
		Quorum:     quorum,
	}
}

// AssignRoles makes the participant at drawerIndex the only drawer and resets correctness for the round
func (roster *Roster) AssignRoles(drawerIndex int) {
	for i := range roster.participants {
		p := &roster.participants[i]
		p.HasGuessedCorrectly = false
		if i == drawerIndex {
			p.Role = RoleDrawer
		} else {
			p.Role = RoleGuesser
		}
	}
}

func (roster *Roster) ClearRoles() {
	for i := range roster.participants {
		roster.participants[i].Role = RoleNone
		roster.participants[i].HasGuessedCorrectly = false
	}
}

// Snapshot copies the roster into the projection broadcast to clients
func (roster *Roster) Snapshot() []Participant {
	participants := make([]Participant, len(roster.participants))
	copy(participants, roster.participants)
	return participants
}
