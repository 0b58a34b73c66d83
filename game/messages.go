/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// inbound codes, StrokeCode and GuessCode are also used for the relayed output
const (
	StrokeCode       = 1
	GuessCode        = 2
	RequestWordsCode = 3
	SelectWordCode   = 4
	SkipCode         = 5
	TimeUpCode       = 6
)

// outbound codes
const (
	InitCode         = 10
	RosterCode       = 11
	PhaseCode        = 12
	RoleCode         = 13
	WordOptionsCode  = 14
	SettledCode      = 15
	ClearCode        = 16
	DrawerCode       = 17
	StartDrawingCode = 18
	GuessingCode     = 19
	WaitingCode      = 20
	ErrorCode        = 21
	TimeoutCode      = 22
)

const (
	MaxGuessLen = 100
	MaxWordLen  = 40
	MaxWidth    = 64
)

type InputPayload[T any] struct {
	Code int `json:"code"`
	Msg  T   `json:"msg"`
}

type OutputPayload[T any] struct {
	Code int `json:"code"`
	Msg  T   `json:"msg"`
}

type InitMsg struct {
	Strokes []Stroke `json:"strokes"`
	Guesses []Guess  `json:"guesses"`
}

type PhaseMsg struct {
	Phase    string     `json:"phase"`
	Drawer   *uuid.UUID `json:"drawer,omitempty"`
	Deadline *time.Time `json:"deadline,omitempty"`
}

type RoleMsg struct {
	Role Role `json:"role"`
}

type WordOptionsMsg struct {
	Words []string `json:"words"`
}

type SettledMsg struct {
	Reason      SettleReason `json:"reason"`
	Word        string       `json:"word"`
	DrawerBonus int          `json:"drawerBonus"`
}

type DrawerMsg struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
}

type StartDrawingMsg struct {
	Word string `json:"word"`
}

type TextMsg struct {
	Text string `json:"text"`
}

type SelectWordMsg struct {
	Word string `json:"word"`
}

type WaitingMsg struct {
	Message string `json:"message"`
}

type ErrorMsg struct {
	ErrorDesc string `json:"errorDesc"`
}

type EmptyMsg struct{}

func createResponse[T any](code int, msg T) ([]byte, error) {
	payload := OutputPayload[T]{Code: code, Msg: msg}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, ErrMarshal
	}
	return b, nil
}

// CreateErrorResponse builds the frame sent to a subscriber whose join was rejected
func CreateErrorResponse(errorDesc string) []byte {
	b, err := createResponse(ErrorCode, ErrorMsg{ErrorDesc: errorDesc})
	if err != nil {
		return []byte(`{"code":21,"msg":{"errorDesc":"Failed to marshal output data"}}`)
	}
	return b
}
