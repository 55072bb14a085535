// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/attitude_link/internal/link"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// WSMessage is what a UI client sends.
type WSMessage struct {
	Action  string  `json:"action"` // command, weight
	Command string  `json:"command,omitempty"`
	Body    string  `json:"body,omitempty"`
	Value   float64 `json:"value,omitempty"`
}

// WSResponse is what the hub sends back.
type WSResponse struct {
	Type    string       `json:"type"` // orientation, raw, ack, error
	Bodies  []BodyOutput `json:"bodies,omitempty"`
	Raw     *RawOutput   `json:"raw,omitempty"`
	Message string       `json:"message,omitempty"`
}

// clientBuffer holds a few raw samples next to the orientation batch of the
// same tick.
const clientBuffer = 8

// Hub streams orientations to every connected websocket and applies the
// commands and blend weights those clients send.
type Hub struct {
	tracker *Tracker

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

type wsClient struct {
	conn *websocket.Conn
	send chan WSResponse
	quit chan struct{} // closed when the writer stops
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan WSResponse, clientBuffer), quit: make(chan struct{})}
}

// deliver waits for room in the send queue. It gives up once the writer has
// stopped or done is closed.
func (c *wsClient) deliver(msg WSResponse, done <-chan struct{}) bool {
	select {
	case c.send <- msg:
		return true
	case <-c.quit:
		return false
	case <-done:
		return false
	}
}

func NewHub(t *Tracker) *Hub {
	return &Hub{tracker: t, clients: make(map[*wsClient]struct{})}
}

// Publish queues outs for every client; a client whose queue is full skips
// this batch.
func (h *Hub) Publish(outs []BodyOutput) {
	h.broadcast(WSResponse{Type: "orientation", Bodies: outs})
}

// PublishRaw queues raw the same way.
func (h *Hub) PublishRaw(raw RawOutput) {
	h.broadcast(WSResponse{Type: "raw", Raw: &raw})
}

func (h *Hub) broadcast(msg WSResponse) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// ServeWS upgrades the request and runs the client until it disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ws: upgrade error: %v", err)
		return
	}
	c := newWSClient(conn)

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	done := make(chan struct{})
	go h.writeLoop(c, done)

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		close(done)
		conn.Close()
	}()

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("ws: read error: %v", err)
			}
			return
		}
		if !c.deliver(h.handle(msg), done) {
			return
		}
	}
}

func (h *Hub) handle(msg WSMessage) WSResponse {
	switch msg.Action {
	case "command":
		cmd, err := link.ParseCommand(msg.Command)
		if err != nil {
			return WSResponse{Type: "error", Message: err.Error()}
		}
		h.tracker.Enqueue(cmd)
		return WSResponse{Type: "ack", Message: "queued " + cmd.String()}
	case "weight":
		if err := h.tracker.SetBlendWeight(msg.Body, msg.Value); err != nil {
			return WSResponse{Type: "error", Message: err.Error()}
		}
		return WSResponse{Type: "ack", Message: "weight set for " + msg.Body}
	}
	return WSResponse{Type: "error", Message: "unknown action " + msg.Action}
}

func (h *Hub) writeLoop(c *wsClient, done <-chan struct{}) {
	defer close(c.quit)
	for {
		select {
		case <-done:
			return
		case msg := <-c.send:
			if err := c.conn.WriteJSON(msg); err != nil {
				log.Printf("ws: write error: %v", err)
				c.conn.Close()
				return
			}
		}
	}
}
