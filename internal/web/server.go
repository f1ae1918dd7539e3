// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package web serves the latest fix, a live image of the panel and a
// websocket feed of acquisition events.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/relabs-tech/gps_matrix/internal/acquisition"
)

const writeWait = time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // panel is served on the local network only
	},
}

// FrameSource provides the current panel image.
type FrameSource interface {
	Frame() *image.Gray
}

// Status is the body of /api/fix.
type Status struct {
	acquisition.Event
	LocalTime      string  `json:"local_time"`
	UTCOffsetHours float64 `json:"utc_offset_hours"`
}

// Server keeps the last event and fans every new one out to websocket
// clients. It implements acquisition.Publisher.
type Server struct {
	log       *zap.Logger
	frames    FrameSource
	gatherer  prometheus.Gatherer
	utcOffset time.Duration

	mu      sync.RWMutex
	last    acquisition.Event
	haveFix bool
	clients map[*websocket.Conn]struct{}

	writeMu sync.Mutex // gorilla connections allow one writer at a time
}

// NewServer creates a server. frames and gatherer may be nil, which disables
// /api/frame.png and /metrics.
func NewServer(log *zap.Logger, frames FrameSource, gatherer prometheus.Gatherer, utcOffsetHours float64) *Server {
	return &Server{
		log:       log,
		frames:    frames,
		gatherer:  gatherer,
		utcOffset: time.Duration(utcOffsetHours * float64(time.Hour)),
		clients:   make(map[*websocket.Conn]struct{}),
	}
}

// Publish stores ev and pushes it to every connected client. Clients that
// cannot keep up are dropped.
func (s *Server) Publish(_ context.Context, ev acquisition.Event) error {
	s.mu.Lock()
	s.last = ev
	s.haveFix = true
	clients := make([]*websocket.Conn, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		if err := s.write(c, ev); err != nil {
			s.log.Debug("dropping websocket client", zap.String("remote", c.RemoteAddr().String()), zap.Error(err))
			s.drop(c)
		}
	}
	return nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/fix", s.handleFix)
	mux.HandleFunc("/ws", s.handleWS)
	if s.frames != nil {
		mux.HandleFunc("/api/frame.png", s.handleFrame)
	}
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

// ListenAndServe serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("web server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("web server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.closeClients()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("web server shutdown: %w", err)
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) status() (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.haveFix {
		return Status{}, false
	}
	return Status{
		Event:          s.last,
		LocalTime:      s.last.Time.Add(s.utcOffset).Format("15:04:05"),
		UTCOffsetHours: s.utcOffset.Hours(),
	}, true
}

func (s *Server) handleFix(w http.ResponseWriter, r *http.Request) {
	st, ok := s.status()
	if !ok {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(st); err != nil {
		s.log.Warn("json encode error", zap.Error(err))
	}
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, s.frames.Frame()); err != nil {
		s.log.Warn("png encode error", zap.Error(err))
	}
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade error", zap.Error(err))
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	st, ok := s.last, s.haveFix
	s.mu.Unlock()
	s.log.Debug("websocket client connected", zap.String("remote", conn.RemoteAddr().String()))

	if ok {
		if err := s.write(conn, st); err != nil {
			s.drop(conn)
			return
		}
	}

	// Clients only listen; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.log.Debug("websocket error", zap.Error(err))
			}
			s.drop(conn)
			return
		}
	}
}

func (s *Server) write(c *websocket.Conn, v any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	c.SetWriteDeadline(time.Now().Add(writeWait))
	return c.WriteJSON(v)
}

func (s *Server) drop(c *websocket.Conn) {
	s.mu.Lock()
	delete(s.clients, c)
	s.mu.Unlock()
	c.Close()
}

func (s *Server) closeClients() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.clients {
		c.Close()
		delete(s.clients, c)
	}
}

// Clients returns the number of connected websocket clients.
func (s *Server) Clients() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
