// Package webhook serves the per-channel inbound HTTP endpoints.
package webhook

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/tidwall/gjson"

	"taskbot/internal/channel"
)

const maxBodyBytes = 1 << 20

// Server routes webhook posts to the matching channel adapter and answers the
// platform handshakes (Viber webhook event, WhatsApp challenge echo).
type Server struct {
	addr     string
	registry *channel.Registry
	sink     channel.Sink
	logger   *slog.Logger

	// VerifyToken guards the WhatsApp subscription handshake when set.
	VerifyToken string
}

func NewServer(addr string, registry *channel.Registry, sink channel.Sink, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		addr:     addr,
		registry: registry,
		sink:     sink,
		logger:   logger,
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /", s.handleRoot)
	mux.HandleFunc("POST /webhook/telegram", s.handleChannelPost(channel.Telegram))
	mux.HandleFunc("POST /webhook/viber", s.handleViberPost)
	mux.HandleFunc("GET /webhook/whatsapp", s.handleWhatsAppVerify)
	mux.HandleFunc("POST /webhook/whatsapp", s.handleChannelPost(channel.WhatsApp))
	return mux
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("webhook_listen", "addr", s.addr)
		errCh <- srv.ListenAndServe()
	}()
	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.logger.Info("webhook_stop")
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	_, _ = io.WriteString(w, "taskbot ok\n")
}

func (s *Server) readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.logger.Warn("webhook_read_error", "path", r.URL.Path, "error", err.Error())
		http.Error(w, "bad request", http.StatusBadRequest)
		return nil, false
	}
	return body, true
}

// handleChannelPost accepts a raw update for the given channel. Processed
// bodies always get a 200 even when normalization drops them.
func (s *Server) handleChannelPost(id channel.ID) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, ok := s.readBody(w, r)
		if !ok {
			return
		}
		a, ok := s.registry.Get(id)
		if !ok {
			s.logger.Warn("webhook_no_adapter", "channel", string(id))
			w.WriteHeader(http.StatusOK)
			return
		}
		recv, ok := a.(channel.Receiver)
		if !ok {
			w.WriteHeader(http.StatusOK)
			return
		}
		recv.HandleUpdate(r.Context(), body, s.sink)
		w.WriteHeader(http.StatusOK)
	}
}

// handleViberPost answers the webhook registration handshake itself and
// forwards everything else to the adapter.
func (s *Server) handleViberPost(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}
	if gjson.GetBytes(body, "event").String() == "webhook" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":0,"status_message":"ok"}`)
		return
	}
	a, ok := s.registry.Get(channel.Viber)
	if !ok {
		w.WriteHeader(http.StatusOK)
		return
	}
	if recv, ok := a.(channel.Receiver); ok {
		recv.HandleUpdate(r.Context(), body, s.sink)
	}
	w.WriteHeader(http.StatusOK)
}

// handleWhatsAppVerify echoes the subscription challenge.
func (s *Server) handleWhatsAppVerify(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if q.Get("hub.mode") != "subscribe" {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	if s.VerifyToken != "" && q.Get("hub.verify_token") != s.VerifyToken {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}
	_, _ = io.WriteString(w, q.Get("hub.challenge"))
}
