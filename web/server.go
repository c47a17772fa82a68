// Package web serves the HTTP API and a websocket stream of rendered
// frames.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	"lautenbacher.net/ledstrip/config"
	"lautenbacher.net/ledstrip/controller"
	"lautenbacher.net/ledstrip/effect"
	"lautenbacher.net/ledstrip/hass"
	"lautenbacher.net/ledstrip/led"
	"lautenbacher.net/ledstrip/util"
)

const (
	writeWait      = 2 * time.Second
	maxCommandSize = 4096
)

type Submitter interface {
	Submit(cmd controller.Command)
}

type StateSource interface {
	RenderState() controller.LightState
}

type Effects interface {
	Names() []effect.Name
	ColorNames() []effect.Name
}

type Server struct {
	codec      *hass.Codec
	queue      Submitter
	state      StateSource
	effects    Effects
	frames     *util.Latest[[]led.Led]
	configFile string
	origins    []string
	upgrader   websocket.Upgrader
}

func NewServer(codec *hass.Codec, queue Submitter, state StateSource, effects Effects, frames *util.Latest[[]led.Led], configFile string) *Server {
	s := &Server{
		codec:      codec,
		queue:      queue,
		state:      state,
		effects:    effects,
		frames:     frames,
		configFile: configFile,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

// WithAllowedOrigins allows browser pages from other origins to open the
// frame websocket.
func (s *Server) WithAllowedOrigins(origins ...string) *Server {
	s.origins = origins
	return s
}

// checkOrigin accepts clients without an Origin header, pages served
// from the same host and the configured origins.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range s.origins {
		if strings.EqualFold(strings.TrimSuffix(allowed, "/"), origin) {
			return true
		}
	}
	slog.Warn("Rejecting websocket from foreign origin", "origin", origin)
	return false
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/api/state", s.getState)
	r.Post("/api/state", s.postState)
	r.Get("/api/effects", s.getEffects)
	r.HandleFunc("/api/config", config.ConfigHandler(s.configFile))
	r.Get("/ws/frames", s.handleFramesWS)
	return r
}

// ListenAndServe serves until ctx is done and then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	server := &http.Server{
		Addr:        addr,
		Handler:     s.Router(),
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		slog.Info("Web server starting", "addr", addr)
		errChan <- server.ListenAndServe()
	}()

	select {
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		slog.Info("Shutting down web server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func (s *Server) getState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.state.RenderState())
}

// postState accepts a command in the Home Assistant JSON schema and
// queues it.
func (s *Server) postState(w http.ResponseWriter, r *http.Request) {
	defer r.Body.Close()
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandSize))
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	cmd, err := s.codec.ParseCommand(body)
	if err != nil {
		slog.Warn("Rejecting command", "error", err)
		http.Error(w, "Invalid command: "+err.Error(), http.StatusBadRequest)
		return
	}
	s.queue.Submit(cmd)
	w.WriteHeader(http.StatusAccepted)
}

type effectsResponse struct {
	Effects      []effect.Name `json:"effects"`
	ColorEffects []effect.Name `json:"color_effects"`
}

func (s *Server) getEffects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, effectsResponse{
		Effects:      s.effects.Names(),
		ColorEffects: s.effects.ColorNames(),
	})
}

// handleFramesWS streams every rendered frame as a binary message with
// three bytes (red, green, blue) per pixel. Frames are dropped for slow
// clients.
func (s *Server) handleFramesWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	slog.Debug("Frame client connected", "remote", r.RemoteAddr)
	var version uint64
	for {
		leds, v, err := s.frames.Wait(ctx, version)
		if err != nil {
			slog.Debug("Frame client gone", "remote", r.RemoteAddr)
			return
		}
		version = v
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.BinaryMessage, encodeFrame(leds)); err != nil {
			slog.Debug("Frame write failed", "error", err)
			return
		}
	}
}

func encodeFrame(leds []led.Led) []byte {
	buf := make([]byte, 0, 3*len(leds))
	for _, l := range leds {
		buf = append(buf, l.Red, l.Green, l.Blue)
	}
	return buf
}
