// internal/webhook/server.go
package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/user/metareply/internal/state"
	"github.com/user/metareply/internal/types"
)

// EventRouter consumes one verified delivery's worth of normalized events.
type EventRouter interface {
	HandleInboundEvents(events []types.Event)
}

// Server is the HTTP surface for Meta webhook deliveries: subscription
// verification, signed event ingestion, the stored-delivery feed, and the
// SSE stream.
type Server struct {
	appSecret   string
	verifyToken string
	router      EventRouter
	log         *state.EventLog
	broadcast   *state.Broadcaster
	startTime   time.Time
	mux         *http.ServeMux
}

// NewServer creates the webhook Server.
func NewServer(appSecret, verifyToken string, router EventRouter, log *state.EventLog, broadcast *state.Broadcaster) *Server {
	s := &Server{
		appSecret:   appSecret,
		verifyToken: verifyToken,
		router:      router,
		log:         log,
		broadcast:   broadcast,
		startTime:   time.Now(),
		mux:         http.NewServeMux(),
	}
	s.mux.HandleFunc("GET /ping", s.handlePing)
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /webhook", s.handleVerify)
	s.mux.HandleFunc("POST /webhook", s.handleWebhook)
	s.mux.HandleFunc("GET /webhook_events", s.handleStoredEvents)
	s.mux.HandleFunc("GET /events", s.handleSSE)
	return s
}

// ServeHTTP delegates to the internal mux, implementing http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"message": "Server is active"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":         "healthy",
		"timestamp":      time.Now().Format(time.RFC3339),
		"uptime_seconds": int(time.Since(s.startTime).Seconds()),
		"system_metrics": map[string]any{
			"goroutines":      runtime.NumGoroutine(),
			"heap_alloc_mb":   mem.HeapAlloc / (1 << 20),
			"sse_subscribers": s.broadcast.Subscribers(),
		},
	})
}

// handleVerify answers Meta's subscription handshake: echo hub.challenge
// when the verify token matches.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")

	if mode == "subscribe" && token == s.verifyToken {
		slog.Info("webhook verification successful")
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, challenge)
		return
	}

	slog.Error("webhook verification failed", "mode", mode)
	http.Error(w, `{"error":"verification failed"}`, http.StatusForbidden)
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, `{"error":"read body"}`, http.StatusBadRequest)
		return
	}

	if !s.verifySignature(r.Header.Get("X-Hub-Signature-256"), raw) {
		http.Error(w, `{"error":"invalid signature"}`, http.StatusForbidden)
		return
	}

	receivedAt := time.Now()
	events, err := ParseEvents(raw, receivedAt)
	if err != nil {
		slog.Error("webhook payload parse failed", "error", err)
		http.Error(w, `{"error":"invalid JSON payload"}`, http.StatusBadRequest)
		return
	}

	slog.Info("webhook delivery received", "events", len(events))
	s.router.HandleInboundEvents(events)

	// Feed the replay log and live stream after routing; collaborator
	// failures here never affect the response to Meta.
	delivery := state.StoredDelivery{
		Timestamp: receivedAt,
		Payload:   json.RawMessage(raw),
	}
	s.log.Append(delivery)
	s.broadcast.Publish(delivery)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"success":       true,
		"parsed_events": events,
	})
}

// verifySignature checks the sha256 HMAC of the raw body against the
// X-Hub-Signature-256 header using a constant-time compare.
func (s *Server) verifySignature(header string, body []byte) bool {
	if !strings.HasPrefix(header, "sha256=") {
		slog.Error("signature missing or not properly formatted")
		return false
	}

	mac := hmac.New(sha256.New, []byte(s.appSecret))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	if !hmac.Equal([]byte(strings.TrimPrefix(header, "sha256=")), []byte(expected)) {
		slog.Error("signature mismatch")
		return false
	}
	return true
}

func (s *Server) handleStoredEvents(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"events": s.log.Snapshot()})
}

// handleSSE streams deliveries to the client: stored history first, then
// live events, with periodic keepalives.
func (s *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, `{"error":"streaming unsupported"}`, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	for _, delivery := range s.log.Snapshot() {
		writeSSE(w, delivery)
	}
	flusher.Flush()

	ch, cancel := s.broadcast.Subscribe()
	defer cancel()

	keepalive := time.NewTicker(30 * time.Second)
	defer keepalive.Stop()

	for {
		select {
		case delivery, ok := <-ch:
			if !ok {
				return
			}
			writeSSE(w, delivery)
			flusher.Flush()
		case <-keepalive.C:
			io.WriteString(w, ": keepalive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			return
		}
	}
}

func writeSSE(w io.Writer, delivery state.StoredDelivery) {
	data, err := json.Marshal(delivery)
	if err != nil {
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
