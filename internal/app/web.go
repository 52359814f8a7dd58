// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/relabs-tech/dronetracker/internal/orientation"
	"github.com/relabs-tech/dronetracker/internal/projection"
	"github.com/relabs-tech/dronetracker/internal/tracker"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

const (
	writeWait = 2 * time.Second
	// clientBuffer frames may queue per client; slow clients miss frames.
	clientBuffer = 4
)

// wsClient is one connected overlay viewer.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

// overlayServer serves rendered frames over HTTP and websocket and applies
// layout changes reported by the browser.
type overlayServer struct {
	tracker *tracker.Tracker
	logger  golog.Logger
	// onFrame is called with every rendered frame, outside of any lock.
	onFrame func(tracker.Frame)

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

func newOverlayServer(tr *tracker.Tracker, logger golog.Logger, onFrame func(tracker.Frame)) *overlayServer {
	return &overlayServer{
		tracker: tr,
		logger:  logger,
		onFrame: onFrame,
		clients: map[*wsClient]struct{}{},
	}
}

// handler returns the routes; static files come from webDir when it is set.
func (s *overlayServer) handler(webDir string) http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/overlay", s.handleOverlay).Methods(http.MethodGet)
	r.HandleFunc("/api/transform", s.handleTransform).Methods(http.MethodGet)
	r.HandleFunc("/api/targets", s.handleTargets).Methods(http.MethodGet)
	r.HandleFunc("/ws/overlay", s.handleWS).Methods(http.MethodGet)
	if webDir != "" {
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(webDir)))
	}
	return r
}

// render draws a frame and fans it out. It is a no-op until the tracker has
// both a viewport and an orientation.
func (s *overlayServer) render() {
	frame, ok, err := s.tracker.Render()
	if err != nil {
		s.logger.Warnw("web: render error", "error", err)
		return
	}
	if !ok {
		return
	}
	if s.onFrame != nil {
		s.onFrame(frame)
	}
	s.broadcast(frame)
}

func (s *overlayServer) broadcast(frame tracker.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Warnw("web: frame marshal error", "error", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		select {
		case c.send <- payload:
		default:
			s.logger.Debug("web: client too slow, dropping frame")
		}
	}
}

func (s *overlayServer) handleOverlay(w http.ResponseWriter, r *http.Request) {
	frame, err := s.tracker.Latest()
	if err != nil {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, frame, s.logger)
}

func (s *overlayServer) handleTransform(w http.ResponseWriter, r *http.Request) {
	m, ok := s.tracker.Transform()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, struct {
		Matrix [16]float64 `json:"matrix"`
	}{Matrix: m}, s.logger)
}

func (s *overlayServer) handleTargets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.tracker.Targets(), s.logger)
}

func writeJSON(w http.ResponseWriter, v interface{}, logger golog.Logger) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnw("web: json encode error", "error", err)
	}
}

// handleWS pushes frames to the browser and reads its layout callbacks.
func (s *overlayServer) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warnw("web: websocket upgrade error", "error", err)
		return
	}
	c := &wsClient{conn: conn, send: make(chan []byte, clientBuffer)}

	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()
	s.logger.Infow("web: overlay client connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go s.writeLoop(c, done)

	// Send what we have so the client does not wait for the next sample.
	if frame, err := s.tracker.Latest(); err == nil {
		if payload, err := json.Marshal(frame); err == nil {
			select {
			case c.send <- payload:
			default:
			}
		}
	}

	s.readLoop(c)

	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	close(done)
	conn.Close()
	s.logger.Infow("web: overlay client disconnected", "remote", r.RemoteAddr)
}

func (s *overlayServer) writeLoop(c *wsClient, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case payload := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				s.logger.Debugw("web: websocket write error", "error", err)
				return
			}
		}
	}
}

func (s *overlayServer) readLoop(c *wsClient) {
	for {
		var msg clientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warnw("web: websocket error", "error", err)
			}
			return
		}
		if err := s.apply(msg); err != nil {
			s.sendError(c, err)
			continue
		}
		s.render()
	}
}

// apply handles one client message.
func (s *overlayServer) apply(msg clientMessage) error {
	switch msg.Action {
	case "viewport":
		rot := s.tracker.ScreenRotation()
		if msg.Rotation != nil {
			var err error
			if rot, err = orientation.ParseScreenRotation(*msg.Rotation); err != nil {
				return err
			}
		}
		vp := projection.Viewport{Width: msg.Width, Height: msg.Height}
		if err := s.tracker.SetLayout(vp, rot); err != nil {
			return errors.Wrapf(err, "viewport %s", vp)
		}
		s.logger.Infow("web: viewport changed", "viewport", vp.String(), "rotation", rot.String())
		return nil
	case "rotation":
		if msg.Rotation == nil {
			return errors.New("rotation message without rotation")
		}
		return s.applyRotation(*msg.Rotation)
	default:
		return fmt.Errorf("unknown action: %q", msg.Action)
	}
}

func (s *overlayServer) applyRotation(deg int) error {
	rot, err := orientation.ParseScreenRotation(deg)
	if err != nil {
		return err
	}
	s.tracker.SetScreenRotation(rot)
	return nil
}

func (s *overlayServer) sendError(c *wsClient, err error) {
	payload, merr := json.Marshal(serverError{Type: "error", Message: err.Error()})
	if merr != nil {
		return
	}
	select {
	case c.send <- payload:
	default:
	}
}

// closeClients drops every websocket connection; their handlers then clean up.
func (s *overlayServer) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.conn.Close()
	}
}
