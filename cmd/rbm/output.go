package main

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"github.com/gorgonia/rbm"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{} // use default options

type progressMsg struct {
	Name      string    `json:"name"`
	Iteration int       `json:"iteration"`
	Error     float32   `json:"error"`
	Drift     float32   `json:"drift"`
	Shape     []int     `json:"shape"`
	Weights   []float32 `json:"weights"`
}

// Streamer is a rbm.OutputEncoder that sends the training progress as JSON to every connected websocket client.
// Clients that are too slow miss updates; training is never blocked.
type Streamer struct {
	sync.Mutex
	clients map[chan []byte]struct{}
}

// NewStreamer creates a Streamer with no clients.
func NewStreamer() *Streamer {
	return &Streamer{clients: make(map[chan []byte]struct{})}
}

func (s *Streamer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Print("upgrade:", err)
		return
	}
	defer c.Close()

	ch := make(chan []byte, 16)
	s.Lock()
	s.clients[ch] = struct{}{}
	s.Unlock()
	defer func() {
		s.Lock()
		delete(s.clients, ch)
		s.Unlock()
	}()

	// the client never talks. Reading is how a closed connection is noticed
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case b := <-ch:
			if err = c.WriteMessage(websocket.TextMessage, b); err != nil {
				log.Println("write:", err)
				return
			}
		case <-done:
			return
		}
	}
}

// Encode the progress
func (s *Streamer) Encode(p rbm.Progress) error {
	msg := progressMsg{
		Name:      p.Name,
		Iteration: p.Iteration,
		Error:     p.Error,
		Drift:     p.Drift,
	}
	if p.Weights != nil {
		msg.Shape = p.Weights.Shape().Clone()
		msg.Weights = p.Weights.Data().([]float32)
	}
	b, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	s.Lock()
	for ch := range s.clients {
		select {
		case ch <- b:
		default:
		}
	}
	s.Unlock()
	return nil
}

// Flush ...
func (s *Streamer) Flush() error { return nil }

// multiEncoder sends the progress to all its encoders.
type multiEncoder []rbm.OutputEncoder

func (m multiEncoder) Encode(p rbm.Progress) error {
	for _, enc := range m {
		if err := enc.Encode(p); err != nil {
			return err
		}
	}
	return nil
}

func (m multiEncoder) Flush() error {
	for _, enc := range m {
		if err := enc.Flush(); err != nil {
			return err
		}
	}
	return nil
}
