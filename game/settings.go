/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPlayerLimit    = 8
	DefaultDrawTimeSecs   = 80
	DefaultChooseTimeSecs = 15
	MinPlayerLimit        = MinParticipants
	MaxPlayerLimit        = 12
	MinDrawTimeSecs       = 15
	MaxDrawTimeSecs       = 240
	MinChooseTimeSecs     = 5
	MaxChooseTimeSecs     = 60
	MaxCustomWords        = 200
)

type RoomSettings struct {
	PlayerLimit    int      `json:"playerLimit"`    // max participants that can join the room
	DrawTimeSecs   int      `json:"drawTimeSecs"`   // time given to draw and guess each round
	ChooseTimeSecs int      `json:"chooseTimeSecs"` // time given to the drawer to pick a word
	CustomWordBank []string `json:"customWordBank"` // custom words added in the bank by the creator
	IsPublic       bool     `json:"isPublic"`       // whether the room is listed
	SharedWordBank []string `json:"-"`              // reference to the shared word bank
}

func SettingsWithDefaults(settings *RoomSettings) {
	if settings.PlayerLimit == 0 {
		settings.PlayerLimit = DefaultPlayerLimit
	}
	if settings.DrawTimeSecs == 0 {
		settings.DrawTimeSecs = DefaultDrawTimeSecs
	}
	if settings.ChooseTimeSecs == 0 {
		settings.ChooseTimeSecs = DefaultChooseTimeSecs
	}
	if settings.CustomWordBank == nil {
		settings.CustomWordBank = make([]string, 0)
	}
}

func IsSettingsValid(settings RoomSettings) error {
	if settings.PlayerLimit < MinPlayerLimit || settings.PlayerLimit > MaxPlayerLimit {
		return fmt.Errorf("Player limit must be between %d and %d", MinPlayerLimit, MaxPlayerLimit)
	}
	if settings.DrawTimeSecs < MinDrawTimeSecs || settings.DrawTimeSecs > MaxDrawTimeSecs {
		return fmt.Errorf("Draw time must be between %d and %d seconds", MinDrawTimeSecs, MaxDrawTimeSecs)
	}
	if settings.ChooseTimeSecs < MinChooseTimeSecs || settings.ChooseTimeSecs > MaxChooseTimeSecs {
		return fmt.Errorf("Choose time must be between %d and %d seconds", MinChooseTimeSecs, MaxChooseTimeSecs)
	}
	if len(settings.CustomWordBank) > MaxCustomWords {
		return fmt.Errorf("Custom word bank cannot contain more than %d words", MaxCustomWords)
	}
	for _, word := range settings.CustomWordBank {
		if len(word) > MaxWordLen {
			return fmt.Errorf("Custom words must be at most %d characters", MaxWordLen)
		}
	}
	if len(settings.SharedWordBank) == 0 && len(ParseWords(strings.Join(settings.CustomWordBank, "\n"))) == 0 {
		return ErrEmptyCorpus
	}
	return nil
}

func (settings RoomSettings) DrawTime() time.Duration {
	return time.Duration(settings.DrawTimeSecs) * time.Second
}

func (settings RoomSettings) ChooseTime() time.Duration {
	return time.Duration(settings.ChooseTimeSecs) * time.Second
}
