// Package server exposes the conversation index over HTTP and pushes change
// notifications to WebSocket clients. It owns wire serialization; the index
// hands it plain data.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"convwatch/internal/browse"
	"convwatch/internal/index"
	"convwatch/internal/logging"
	"convwatch/internal/store"
)

// Server serves the HTTP API and the WebSocket notification feed.
type Server struct {
	idx     *index.Index
	browser *browse.Browser
	store   *store.Store
	log     *logrus.Entry

	upgrader websocket.Upgrader

	mu         sync.Mutex
	httpServer *http.Server
	running    bool
}

// New wires a Server over its collaborators. The annotations store may be
// nil; name endpoints then report failure without taking anything else down.
func New(idx *index.Index, browser *browse.Browser, st *store.Store) *Server {
	return &Server{
		idx:     idx,
		browser: browser,
		store:   st,
		log:     logging.NewLogger("server"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			// Local tool; clients connect from the same host.
			CheckOrigin: func(*http.Request) bool { return true },
		},
	}
}

// Start begins serving on addr. Non-blocking; use Stop to shut down.
func (s *Server) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	s.httpServer = &http.Server{Addr: addr, Handler: s.routes()}
	s.running = true

	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.WithError(err).Error("http server stopped")
		}
	}()
	return nil
}

// routes builds the request mux.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/conversations", s.handleConversations)
	mux.HandleFunc("GET /api/sessions/{id}", s.handleSession)
	mux.HandleFunc("POST /api/sessions/{id}/name", s.handleSetName)
	mux.HandleFunc("GET /api/browse", s.handleBrowse)
	mux.HandleFunc("GET /ws", s.handleWS)
	return mux
}

// Stop shuts the HTTP server down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}
	s.running = false
	return s.httpServer.Shutdown(ctx)
}

// conversationView is a summary row decorated with its annotations.
type conversationView struct {
	index.ConversationSummary
	Name         string     `json:"name,omitempty"`
	LastViewedAt *time.Time `json:"lastViewedAt,omitempty"`
}

// decorate merges stored annotations into a snapshot.
func (s *Server) decorate(snapshot []index.ConversationSummary) []conversationView {
	views := make([]conversationView, 0, len(snapshot))

	var annotations map[string]store.Annotation
	if s.store != nil {
		var err error
		annotations, err = s.store.All()
		if err != nil {
			s.log.WithError(err).Warn("cannot load annotations")
		}
	}

	for _, summary := range snapshot {
		view := conversationView{ConversationSummary: summary}
		if a, ok := annotations[summary.SessionID]; ok {
			view.Name = a.Name
			if !a.LastViewedAt.IsZero() {
				viewed := a.LastViewedAt
				view.LastViewedAt = &viewed
			}
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) handleConversations(w http.ResponseWriter, r *http.Request) {
	snapshot, _ := s.idx.Refresh()
	s.pruneAnnotations(snapshot)
	writeJSON(w, map[string]any{"conversations": s.decorate(snapshot)})
}

// pruneAnnotations drops stored annotations for sessions the committed
// snapshot no longer contains. An empty snapshot is never pruned against:
// a transiently unreadable projects dir must not wipe every saved name.
func (s *Server) pruneAnnotations(snapshot []index.ConversationSummary) {
	if s.store == nil || len(snapshot) == 0 {
		return
	}
	keep := make(map[string]bool, len(snapshot))
	for _, summary := range snapshot {
		keep[summary.SessionID] = true
	}
	if err := s.store.Prune(keep); err != nil {
		s.log.WithError(err).Debug("cannot prune annotations")
	}
}

func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("id")
	project := r.URL.Query().Get("project")

	messages, model := s.idx.LoadSession(sessionID, project)
	if s.store != nil && len(messages) > 0 {
		if err := s.store.Touch(sessionID); err != nil {
			s.log.WithError(err).Debug("cannot record view")
		}
	}

	writeJSON(w, map[string]any{
		"messages": messages,
		"model":    model,
	})
}

func (s *Server) handleSetName(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		http.Error(w, "annotations unavailable", http.StatusServiceUnavailable)
		return
	}

	var body struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	if err := s.store.SetName(r.PathValue("id"), body.Name); err != nil {
		http.Error(w, "cannot save name", http.StatusInternalServerError)
		return
	}
	writeJSON(w, map[string]any{"ok": true})
}

func (s *Server) handleBrowse(w http.ResponseWriter, r *http.Request) {
	listing := s.browser.List(r.URL.Query().Get("path"))
	writeJSON(w, listing)
}

// handleWS upgrades to a WebSocket, subscribes to index changes, and streams
// decorated snapshots until the client goes away.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	id, updates, err := s.idx.Subscribe()
	if err != nil {
		s.log.WithError(err).Warn("cannot start watches for subscriber")
		conn.Close()
		return
	}
	s.log.WithField("subscriber", id).Debug("websocket client connected")

	// Reader: only to detect the client closing.
	go func() {
		defer s.idx.Unsubscribe(id)
		defer conn.Close()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// Writer: initial snapshot, then every changed refresh.
	go func() {
		defer conn.Close()
		if err := s.writeSnapshot(conn, s.idx.Snapshot()); err != nil {
			return
		}
		for snapshot := range updates {
			if err := s.writeSnapshot(conn, snapshot); err != nil {
				return
			}
		}
	}()
}

func (s *Server) writeSnapshot(conn *websocket.Conn, snapshot []index.ConversationSummary) error {
	return conn.WriteJSON(map[string]any{
		"type":          "conversations:changed",
		"conversations": s.decorate(snapshot),
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Connection-level failure; nothing left to report to the client.
		return
	}
}
