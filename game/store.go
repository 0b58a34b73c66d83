/*
 * Copyright (c) Joseph Prichard 2024
 */

package game

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type Rooms interface {
	Get(code string) Room
	Set(code string, r Room)
	Codes(offset int, limit int) []string
}

// RoomStore isolates each session behind its own room, keyed by code
type RoomStore struct {
	m     map[string]Room // maps codes to rooms
	codes []string        // stores the codes of the public rooms, older rooms first
	mu    sync.Mutex      // used to synchronize both structures
}

// NewRoomStore starts a sweep every period that stops expired rooms until ctx is done
func NewRoomStore(ctx context.Context, period time.Duration) *RoomStore {
	store := &RoomStore{
		m:     make(map[string]Room),
		codes: make([]string, 0),
	}
	go store.startCleanup(ctx, period)
	return store
}

func (store *RoomStore) Get(code string) Room {
	store.mu.Lock()
	defer store.mu.Unlock()

	room, ok := store.m[code]
	if !ok || room.IsExpired(time.Now()) {
		return nil
	}
	return room
}

func (store *RoomStore) Set(code string, r Room) {
	store.mu.Lock()
	defer store.mu.Unlock()

	store.m[code] = r
	// only add codes for public rooms into the list of all codes
	if r.IsPublic() {
		store.codes = append(store.codes, code)
	}
}

func (store *RoomStore) Codes(offset int, limit int) []string {
	store.mu.Lock()
	defer store.mu.Unlock()

	codes := make([]string, 0)
	if offset < 0 {
		offset = 0
	}
	upperLimit := offset + limit
	if len(store.codes) < upperLimit {
		upperLimit = len(store.codes)
	}
	for i := offset; i < upperLimit; i++ {
		codes = append(codes, store.codes[i])
	}
	return codes
}

func (store *RoomStore) Len() int {
	store.mu.Lock()
	defer store.mu.Unlock()
	return len(store.m)
}

func (store *RoomStore) purgeExpired(now time.Time) {
	store.mu.Lock()
	expired := make([]Room, 0)
	expiredCodes := make(map[string]bool)
	for code, room := range store.m {
		if room.IsExpired(now) {
			log.Info().Str("room", code).Msg("Deleting expired room")
			delete(store.m, code)
			expiredCodes[code] = true
			expired = append(expired, room)
		}
	}
	// remove all expired codes from the slice
	codes := store.codes[:0]
	for _, code := range store.codes {
		if !expiredCodes[code] {
			codes = append(codes, code)
		}
	}
	store.codes = codes
	store.mu.Unlock()

	// terminate the rooms due to expiration with a timeout code outside of the lock
	for _, room := range expired {
		room.Stop(TimeoutCode)
	}
}

// StopAll terminates every room, used when the server shuts down
func (store *RoomStore) StopAll() {
	store.mu.Lock()
	rooms := make([]Room, 0, len(store.m))
	for code, room := range store.m {
		rooms = append(rooms, room)
		delete(store.m, code)
	}
	store.codes = store.codes[:0]
	store.mu.Unlock()

	for _, room := range rooms {
		room.Stop(TimeoutCode)
	}
}

func (store *RoomStore) startCleanup(ctx context.Context, period time.Duration) {
	// periodically cleanup expired rooms from the map
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			store.purgeExpired(now)
		case <-ctx.Done():
			return
		}
	}
}
