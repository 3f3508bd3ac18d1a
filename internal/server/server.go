// Package server is the serve mode: one editing session exposed over HTTP
// and WebSocket so several clients can drive it concurrently.
//
// The engine session itself is single-threaded, so every command from every
// client funnels through one exclusive lock. Commands stay atomic under
// concurrency because nothing else can observe the tree mid-command.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/lancetdoc/lancet/core/engine"
	"github.com/lancetdoc/lancet/internal/logging"
	"github.com/lancetdoc/lancet/internal/shell"
)

// Config holds serve mode configuration.
type Config struct {
	Port           int
	Version        string
	AllowedOrigins []string   // CORS and WebSocket origins (empty = allow all)
	Auth           AuthConfig // API key authentication
}

// Server drives one document session on behalf of remote clients.
type Server struct {
	cfg     Config
	session *engine.Session
	sh      *shell.Shell
	hub     *Hub

	// mu serializes command execution against the session. Every client
	// request takes it for the full duration of the command.
	mu sync.Mutex

	startTime time.Time
}

// New wires a server around an existing session. The caller keeps ownership
// of the session's journal and history store.
func New(cfg Config, session *engine.Session) *Server {
	return &Server{
		cfg:       cfg,
		session:   session,
		sh:        shell.New(session, strings.NewReader(""), io.Discard),
		hub:       NewHub(),
		startTime: time.Now(),
	}
}

// Execute runs one command line against the session under the exclusive
// lock, then fans any resulting document changes out to connected clients.
func (s *Server) Execute(line string) (output string, quit bool) {
	s.mu.Lock()
	before := s.session.EventCount()
	output, quit = s.sh.Execute(line)
	changes := s.session.EventsSince(before)
	s.mu.Unlock()

	for _, ev := range changes {
		s.hub.BroadcastEvent(ev)
	}
	return output, quit
}

// Start runs the hub and the HTTP listener. It blocks until the listener
// fails.
func (s *Server) Start() error {
	if err := ValidateAuthConfig(s.cfg.Auth); err != nil {
		return fmt.Errorf("invalid auth config: %w", err)
	}

	go s.hub.Run()

	logging.ServerStartup("editor", "http", s.cfg.Port,
		"websocket_protocol", "ws",
		"session_id", s.session.ID)
	if s.cfg.Auth.Enabled {
		logging.SecurityEvent("authentication_configured", "server",
			"enabled", true)
	} else {
		logging.SecurityEvent("authentication_configured", "server",
			"enabled", false,
			"note", "all requests allowed")
	}

	addr := fmt.Sprintf(":%d", s.cfg.Port)
	return http.ListenAndServe(addr, s.Handler())
}

// Handler builds the full route and middleware stack.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/map", s.handleMap)
	mux.HandleFunc("/command", s.handleCommand)
	mux.HandleFunc("/ws", s.handleWebSocket)

	var handler http.Handler = SecurityHeadersMiddleware(mux)
	handler = AuthMiddleware(s.cfg.Auth, handler)
	handler = CORSMiddleware(CORSConfig{AllowedOrigins: s.cfg.AllowedOrigins}, handler)
	return logging.CombinedMiddleware(handler)
}

// Response is the standard HTTP response wrapper.
type Response struct {
	Success bool          `json:"success"`
	Data    interface{}   `json:"data,omitempty"`
	Error   *ErrorDetail  `json:"error,omitempty"`
	Meta    *ResponseMeta `json:"meta,omitempty"`
}

// ErrorDetail carries a machine-readable code and a human-readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp string `json:"timestamp"`
}

// HealthInfo is the health check response.
type HealthInfo struct {
	Status     string `json:"status"`
	Version    string `json:"version"`
	Uptime     string `json:"uptime"`
	SessionID  string `json:"session_id"`
	Loaded     bool   `json:"loaded"`
	Path       string `json:"path,omitempty"`
	Paragraphs int    `json:"paragraphs"`
	Runs       int    `json:"runs"`
	Tables     int    `json:"tables"`
	Mutations  int    `json:"mutations"`
	Dirty      bool   `json:"dirty"`
	Clients    int    `json:"clients"`
}

// CommandRequest is the body of POST /command.
type CommandRequest struct {
	Command string `json:"command"`
}

// CommandResult is the response body of POST /command.
type CommandResult struct {
	Output string `json:"output"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		respondError(w, http.StatusNotFound, "NOT_FOUND", "Endpoint not found")
		return
	}

	respond(w, http.StatusOK, map[string]interface{}{
		"service": "lancet",
		"version": s.cfg.Version,
		"endpoints": []string{
			"GET /health",
			"GET /map",
			"POST /command",
			"WS /ws",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	s.mu.Lock()
	paragraphs, runs, tables := s.session.Stats()
	info := HealthInfo{
		Status:     "healthy",
		Version:    s.cfg.Version,
		Uptime:     time.Since(s.startTime).String(),
		SessionID:  s.session.ID,
		Loaded:     s.session.Loaded(),
		Path:       s.session.Path(),
		Paragraphs: paragraphs,
		Runs:       runs,
		Tables:     tables,
		Mutations:  s.session.Mutations(),
		Dirty:      s.session.Dirty(),
	}
	s.mu.Unlock()
	info.Clients = s.hub.ClientCount()

	respond(w, http.StatusOK, info)
}

// handleMap returns the structure map of the loaded document. The map is
// built under the session lock so it never reflects a half-applied command.
func (s *Server) handleMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only GET is allowed")
		return
	}

	s.mu.Lock()
	if !s.session.Loaded() {
		s.mu.Unlock()
		respondError(w, http.StatusConflict, "NO_DOCUMENT", "No document loaded.")
		return
	}
	docMap, err := s.session.Map()
	s.mu.Unlock()
	if err != nil {
		respondError(w, http.StatusInternalServerError, "MAP_FAILED", err.Error())
		return
	}

	respond(w, http.StatusOK, docMap)
}

// handleCommand runs one command line, exactly as the REPL would, and
// returns its printable output. Exit and quit are rejected here; they only
// make sense on a connection.
func (s *Server) handleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Only POST is allowed")
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Invalid JSON body: "+err.Error())
		return
	}
	if strings.TrimSpace(req.Command) == "" {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "Missing command")
		return
	}

	output, quit := s.Execute(req.Command)
	if quit {
		respondError(w, http.StatusBadRequest, "BAD_REQUEST", "exit and quit are connection commands")
		return
	}

	respond(w, http.StatusOK, CommandResult{Output: output})
}

func respond(w http.ResponseWriter, status int, data interface{}) {
	response := Response{
		Success: true,
		Data:    data,
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	response := Response{
		Success: false,
		Error: &ErrorDetail{
			Code:    code,
			Message: message,
		},
		Meta: &ResponseMeta{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}
