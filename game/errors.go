/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import "errors"

var (
	ErrInvalidTransition = errors.New("Event is not valid for the current phase or sender")
	ErrMalformedEvent    = errors.New("Event payload is malformed")
	ErrEmptyCorpus       = errors.New("No words are available to draw from")
	ErrQuorumLost        = errors.New("Not enough participants to continue the round")
	ErrRoomFull          = errors.New("Participant cannot join, room is at player limit")
	ErrUnknownCode       = errors.New("No matching message types for message")
	ErrMarshal           = errors.New("Failed to marshal output data")
)
