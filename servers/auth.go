/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"drawguess/game"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	MaxNameLen      = 24
	SessionLifetime = 24 * time.Hour
)

var ErrInvalidName = fmt.Errorf("Name must be between 1 and %d characters", MaxNameLen)

type Authenticator interface {
	GetSession(token string) (*JwtSession, error)
	GetParticipant(token string, name string) game.Participant
}

// identity carried across reconnects, the display name is what the room matches on
type JwtSession struct {
	Name string `json:"name"`
	jwt.RegisteredClaims
}

func NewSession(name string) JwtSession {
	expiry := time.Now().Add(SessionLifetime)
	claims := jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		ExpiresAt: jwt.NewNumericDate(expiry),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	return JwtSession{Name: name, RegisteredClaims: claims}
}

type AuthServer struct {
	jwtKey []byte
}

func NewAuthServer(jwtKey string) *AuthServer {
	return &AuthServer{jwtKey: []byte(jwtKey)}
}

func (server *AuthServer) keyFunc(_ *jwt.Token) (interface{}, error) {
	return server.jwtKey, nil
}

func (server *AuthServer) GenerateToken(session JwtSession) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, session)
	tokenString, err := token.SignedString(server.jwtKey)
	if err != nil {
		return "", fmt.Errorf("Failed to generate token for session %s: %w", session.ID, err)
	}
	return tokenString, nil
}

// gets the session from a token, returning an error if it cannot be parsed or a nil session if there is no token
func (server *AuthServer) GetSession(token string) (*JwtSession, error) {
	if token == "" {
		return nil, nil
	}
	var session JwtSession
	jwtToken, err := jwt.ParseWithClaims(token, &session, server.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		log.Debug().Err(err).Msg("Failed to parse jwt")
		return nil, err
	}
	if !jwtToken.Valid {
		return nil, errors.New("Token is not valid")
	}
	return &session, nil
}

// GetParticipant builds a connection scoped participant named by the token, the requested name, or a guest name
func (server *AuthServer) GetParticipant(token string, name string) game.Participant {
	p := game.Participant{ID: uuid.New(), Name: GuestName()}
	if session, err := server.GetSession(token); err == nil && session != nil {
		p.Name = session.Name
	} else if name, err := ValidateName(name); err == nil {
		p.Name = name
	}
	return p
}

type SessionReq struct {
	Name string `json:"name"`
}

type TokenResp struct {
	Token string `json:"token"`
	Name  string `json:"name"`
}

func (server *AuthServer) CreateSession(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	var req SessionReq
	if err := ReadJson(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	name, err := ValidateName(req.Name)
	if err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	session := NewSession(name)
	token, err := server.GenerateToken(session)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create session")
		WriteError(w, http.StatusInternalServerError, "Failed to create session")
		return
	}
	log.Info().Str("session", session.ID).Str("name", name).Msg("Created session")

	WriteJson(w, http.StatusOK, TokenResp{Token: token, Name: name})
}

func ValidateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > MaxNameLen {
		return "", ErrInvalidName
	}
	return name, nil
}

func GuestName() string {
	return fmt.Sprintf("Guest %d", 10+rand.Intn(89))
}
