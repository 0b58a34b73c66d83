/*
 * Copyright (c) Joseph Prichard 2024
 */

package servers

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// counts the sockets connected to any room and streams the count to subscribers
type Presence interface {
	Connected()
	Disconnected()
}

type MetaResp struct {
	ClientCount int `json:"clientCount"`
}

type MetaServer struct {
	upgrade      websocket.Upgrader
	clientsCount int
	subscribers  map[chan int]struct{}
	mu           sync.Mutex // used to synchronize the count and the subscribers
}

func NewMetaServer() *MetaServer {
	return &MetaServer{
		upgrade:     CreateUpgrade(),
		subscribers: make(map[chan int]struct{}),
	}
}

func (server *MetaServer) Connected() {
	server.mu.Lock()
	defer server.mu.Unlock()

	server.clientsCount += 1
	server.broadcast()
}

func (server *MetaServer) Disconnected() {
	server.mu.Lock()
	defer server.mu.Unlock()

	server.clientsCount -= 1
	server.broadcast()
}

func (server *MetaServer) ClientCount() int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.clientsCount
}

func (server *MetaServer) addSubscriber(subscriber chan int) {
	server.mu.Lock()
	defer server.mu.Unlock()

	server.subscribers[subscriber] = struct{}{}
	subscriber <- server.clientsCount
}

func (server *MetaServer) removeSubscriber(subscriber chan int) {
	server.mu.Lock()
	defer server.mu.Unlock()

	if _, ok := server.subscribers[subscriber]; ok {
		delete(server.subscribers, subscriber)
		close(subscriber)
	}
}

// a subscriber only needs the latest count, so a stale value waiting in its buffer is replaced
func (server *MetaServer) broadcast() {
	for s := range server.subscribers {
		select {
		case <-s:
		default:
		}
		s <- server.clientsCount
	}
}

func (server *MetaServer) Subscribe(w http.ResponseWriter, r *http.Request) {
	EnableCors(w)

	ws, err := server.upgrade.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to upgrade meta subscriber to websocket")
		return
	}

	subscriber := make(chan int, 1)
	server.addSubscriber(subscriber)

	go server.subscriberListener(ws, subscriber)
	go server.socketListener(ws, subscriber)
}

func (server *MetaServer) socketListener(ws *websocket.Conn, subscriber chan int) {
	defer func() {
		// remove the subscriber when the connection ends
		server.removeSubscriber(subscriber)
		_ = ws.Close()
	}()
	// loop until the client sends no more messages
	for {
		if _, _, err := ws.ReadMessage(); err != nil {
			log.Debug().Err(err).Msg("Meta client closed connection")
			return
		}
	}
}

func (server *MetaServer) subscriberListener(ws *websocket.Conn, subscriber chan int) {
	defer func() {
		_ = ws.Close()
	}()
	for clientCount := range subscriber {
		b, err := json.Marshal(MetaResp{ClientCount: clientCount})
		if err != nil {
			log.Error().Err(err).Msg("Failed to serialize meta resp")
			return
		}
		if err = ws.WriteMessage(websocket.TextMessage, b); err != nil {
			log.Debug().Err(err).Msg("Failed writing meta message")
			return
		}
	}
}
