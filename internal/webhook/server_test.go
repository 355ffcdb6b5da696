package webhook

import (
	"bufio"
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/user/metareply/internal/state"
	"github.com/user/metareply/internal/types"
)

const (
	testSecret = "app-secret"
	testToken  = "verify-token"
)

type recordingRouter struct {
	mu      sync.Mutex
	batches [][]types.Event
}

func (r *recordingRouter) HandleInboundEvents(events []types.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, events)
}

func newTestServer() (*Server, *recordingRouter, *state.EventLog, *state.Broadcaster) {
	router := &recordingRouter{}
	log := state.NewEventLog("", 10)
	broadcast := state.NewBroadcaster()
	return NewServer(testSecret, testToken, router, log, broadcast), router, log, broadcast
}

func sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func TestPing(t *testing.T) {
	s, _, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/ping", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Server is active") {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestHealth(t *testing.T) {
	s, _, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body["status"] != "healthy" {
		t.Errorf("status field = %v", body["status"])
	}
	if _, ok := body["system_metrics"]; !ok {
		t.Error("missing system_metrics")
	}
}

func TestVerifyHandshake(t *testing.T) {
	s, _, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET",
		"/webhook?hub.mode=subscribe&hub.verify_token="+testToken+"&hub.challenge=challenge-42", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if rec.Body.String() != "challenge-42" {
		t.Errorf("challenge echo = %q", rec.Body.String())
	}
}

func TestVerifyHandshakeRejectsBadToken(t *testing.T) {
	s, _, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET",
		"/webhook?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=x", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestVerifyHandshakeRejectsBadMode(t *testing.T) {
	s, _, _, _ := newTestServer()

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET",
		"/webhook?hub.mode=unsubscribe&hub.verify_token="+testToken+"&hub.challenge=x", nil))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookDelivery(t *testing.T) {
	s, router, log, _ := newTestServer()

	body := []byte(`{
		"entry": [{
			"id": "acct1",
			"messaging": [{
				"sender": {"id": "user1"},
				"recipient": {"id": "acct1"},
				"message": {"mid": "m1", "text": "hi"}
			}]
		}]
	}`)

	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp["success"] != true {
		t.Errorf("success = %v", resp["success"])
	}

	if len(router.batches) != 1 || len(router.batches[0]) != 1 {
		t.Fatalf("router batches = %v", router.batches)
	}
	if router.batches[0][0].DM.Text != "hi" {
		t.Errorf("routed event = %+v", router.batches[0][0])
	}

	if got := len(log.Snapshot()); got != 1 {
		t.Errorf("event log holds %d deliveries, want 1", got)
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	s, router, log, _ := newTestServer()

	body := []byte(`{"entry": []}`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", "sha256="+strings.Repeat("ab", 32))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(router.batches) != 0 {
		t.Error("unverified delivery reached the router")
	}
	if len(log.Snapshot()) != 0 {
		t.Error("unverified delivery stored")
	}
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	s, _, _, _ := newTestServer()

	req := httptest.NewRequest("POST", "/webhook", strings.NewReader(`{"entry": []}`))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestWebhookRejectsMalformedPayload(t *testing.T) {
	s, router, _, _ := newTestServer()

	body := []byte(`{"entry": [`)
	req := httptest.NewRequest("POST", "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Hub-Signature-256", sign(body))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if len(router.batches) != 0 {
		t.Error("malformed delivery reached the router")
	}
}

func TestStoredEventsFeed(t *testing.T) {
	s, _, log, _ := newTestServer()

	log.Append(state.StoredDelivery{Timestamp: time.Now(), Payload: json.RawMessage(`{"n":1}`)})

	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest("GET", "/webhook_events", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Events []state.StoredDelivery `json:"events"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if len(body.Events) != 1 {
		t.Errorf("events = %d, want 1", len(body.Events))
	}
}

func TestSSEStreamsStoredAndLive(t *testing.T) {
	s, _, log, broadcast := newTestServer()

	log.Append(state.StoredDelivery{Timestamp: time.Now(), Payload: json.RawMessage(`{"stored":true}`)})

	srv := httptest.NewServer(s)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/events")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	reader := bufio.NewReader(resp.Body)
	readData := func() string {
		t.Helper()
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				t.Fatalf("read SSE line: %v", err)
			}
			if strings.HasPrefix(line, "data: ") {
				return strings.TrimSpace(strings.TrimPrefix(line, "data: "))
			}
		}
	}

	first := readData()
	if !strings.Contains(first, `\"stored\":true`) && !strings.Contains(first, `"stored":true`) {
		t.Errorf("first event = %q, want stored replay", first)
	}

	// Wait for the handler to subscribe before publishing the live event.
	deadline := time.Now().Add(time.Second)
	for broadcast.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("SSE handler never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	broadcast.Publish(state.StoredDelivery{Timestamp: time.Now(), Payload: json.RawMessage(`{"live":true}`)})

	second := readData()
	if !strings.Contains(second, `\"live\":true`) && !strings.Contains(second, `"live":true`) {
		t.Errorf("second event = %q, want live delivery", second)
	}
}
