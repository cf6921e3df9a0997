package webhook

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"taskbot/internal/channel"
	"taskbot/internal/channel/viber"
	"taskbot/internal/channel/whatsapp"
)

type recordingSink struct {
	mu       sync.Mutex
	messages []*channel.InboundMessage
}

func (s *recordingSink) HandleMessage(_ context.Context, msg *channel.InboundMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingSink) HandleCallback(context.Context, *channel.CallbackEvent) {}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages)
}

func newTestServer(t *testing.T) (*Server, *recordingSink) {
	t.Helper()
	reg := channel.NewRegistry()
	if err := reg.Register(viber.NewAdapter(nil, "", "v-token", nil)); err != nil {
		t.Fatalf("Register(viber) error = %v", err)
	}
	if err := reg.Register(whatsapp.NewAdapter(nil, "", "wa-token", "555", nil)); err != nil {
		t.Fatalf("Register(whatsapp) error = %v", err)
	}
	sink := &recordingSink{}
	return NewServer("127.0.0.1:0", reg, sink, nil), sink
}

func TestLiveness(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("GET / error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("GET / = %d %q", resp.StatusCode, body)
	}
}

func TestViberHandshake(t *testing.T) {
	t.Parallel()

	srv, sink := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/viber", "application/json",
		strings.NewReader(`{"event":"webhook","timestamp":1}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("handshake status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), `"status":0`) {
		t.Fatalf("handshake body = %s", body)
	}
	if sink.count() != 0 {
		t.Fatalf("handshake reached sink")
	}
}

func TestViberMessageDispatch(t *testing.T) {
	t.Parallel()

	srv, sink := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/viber", "application/json",
		strings.NewReader(`{"event":"message","sender":{"id":"u1"},"message":{"type":"text","text":"/report"}}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sink.count() != 1 {
		t.Fatalf("sink messages = %d, want 1", sink.count())
	}
}

func TestViberMalformedStill200(t *testing.T) {
	t.Parallel()

	srv, sink := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/viber", "application/json", strings.NewReader(`{{broken`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if sink.count() != 0 {
		t.Fatalf("malformed payload reached sink")
	}
}

func TestWhatsAppChallengeEcho(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	srv.VerifyToken = "expected"
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=expected&hub.challenge=12345")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK || string(body) != "12345" {
		t.Fatalf("challenge = %d %q, want 200 12345", resp.StatusCode, body)
	}

	resp, err = http.Get(ts.URL + "/webhook/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345")
	if err != nil {
		t.Fatalf("GET error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("bad token status = %d, want 403", resp.StatusCode)
	}
}

func TestWhatsAppMessageDispatch(t *testing.T) {
	t.Parallel()

	srv, sink := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	envelope := `{"entry":[{"changes":[{"value":{"messages":[{"from":"491700000000","type":"text","text":{"body":"/start"}}]}}]}]}`
	resp, err := http.Post(ts.URL+"/webhook/whatsapp", "application/json", strings.NewReader(envelope))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if sink.count() != 1 {
		t.Fatalf("sink messages = %d, want 1", sink.count())
	}
}

func TestUnregisteredChannelStill200(t *testing.T) {
	t.Parallel()

	// Telegram is not registered in the test registry.
	srv, sink := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/webhook/telegram", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("POST error = %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if sink.count() != 0 {
		t.Fatalf("sink messages = %d, want 0", sink.count())
	}
}
