package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/forgo/fete/api/internal/model"
)

// DefaultIdempotencyTTL is how long a completed response stays replayable
const DefaultIdempotencyTTL = 24 * time.Hour

// ErrIdempotencyInFlight is returned by Reserve while another request with
// the same key is still being processed
var ErrIdempotencyInFlight = errors.New("idempotent request in flight")

// StoredResponse is a replayable response
type StoredResponse struct {
	Status  int         `json:"status"`
	Headers http.Header `json:"headers"`
	Body    []byte      `json:"body"`
}

// IdempotencyStore persists responses keyed by request fingerprint
type IdempotencyStore interface {
	// Reserve claims key for a new request. It returns the stored response
	// if key already completed, ErrIdempotencyInFlight if key is claimed,
	// and (nil, nil) when the caller now owns key.
	Reserve(ctx context.Context, key string) (*StoredResponse, error)
	// Save records the response of the request owning key
	Save(ctx context.Context, key string, resp *StoredResponse) error
	// Release drops key so the request can be retried
	Release(ctx context.Context, key string) error
}

// MemoryIdempotencyStore keeps idempotency entries in process memory.
// Used when Redis is not configured.
type MemoryIdempotencyStore struct {
	mu       sync.Mutex
	entries  map[string]*idempotencyEntry
	ttl      time.Duration
	now      func() time.Time
	stopChan chan struct{}
}

type idempotencyEntry struct {
	resp      *StoredResponse
	expiresAt time.Time
}

// IdempotencyConfig holds configuration for the in-memory store
type IdempotencyConfig struct {
	TTL     time.Duration // How long to keep idempotency results (default 24h)
	Cleanup time.Duration // Cleanup interval (default 1h)
}

// NewMemoryIdempotencyStore creates an in-memory store and starts its cleanup loop
func NewMemoryIdempotencyStore(cfg IdempotencyConfig) *MemoryIdempotencyStore {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultIdempotencyTTL
	}
	if cfg.Cleanup <= 0 {
		cfg.Cleanup = time.Hour
	}

	store := &MemoryIdempotencyStore{
		entries:  make(map[string]*idempotencyEntry),
		ttl:      cfg.TTL,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	go store.cleanupLoop(cfg.Cleanup)

	return store
}

// Stop stops the cleanup goroutine
func (s *MemoryIdempotencyStore) Stop() {
	close(s.stopChan)
}

func (s *MemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopChan:
			return
		}
	}
}

func (s *MemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, entry := range s.entries {
		if entry.expiresAt.Before(now) {
			delete(s.entries, key)
		}
	}
}

// Reserve implements IdempotencyStore
func (s *MemoryIdempotencyStore) Reserve(ctx context.Context, key string) (*StoredResponse, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && entry.expiresAt.After(now) {
		if entry.resp == nil {
			return nil, ErrIdempotencyInFlight
		}
		return entry.resp, nil
	}

	// In-flight claims expire too, so a crashed request cannot wedge a key
	s.entries[key] = &idempotencyEntry{expiresAt: now.Add(s.ttl)}
	return nil, nil
}

// Save implements IdempotencyStore
func (s *MemoryIdempotencyStore) Save(ctx context.Context, key string, resp *StoredResponse) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[key] = &idempotencyEntry{resp: resp, expiresAt: s.now().Add(s.ttl)}
	return nil
}

// Release implements IdempotencyStore
func (s *MemoryIdempotencyStore) Release(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, key)
	return nil
}

// generateKey creates a unique key from user ID, idempotency key, and request fingerprint
func generateKey(userID, idempotencyKey, method, path string, body []byte) string {
	h := sha256.New()
	h.Write([]byte(userID))
	h.Write([]byte{0})
	h.Write([]byte(idempotencyKey))
	h.Write([]byte{0})
	h.Write([]byte(method))
	h.Write([]byte(path))
	h.Write([]byte{0})
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotencyResponseWriter captures the response for storing
type idempotencyResponseWriter struct {
	http.ResponseWriter
	status int
	body   bytes.Buffer
}

func (w *idempotencyResponseWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *idempotencyResponseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func replay(w http.ResponseWriter, resp *StoredResponse) {
	for k, v := range resp.Headers {
		for _, val := range v {
			w.Header().Add(k, val)
		}
	}
	w.Header().Set("X-Idempotency-Replayed", "true")
	w.WriteHeader(resp.Status)
	_, _ = w.Write(resp.Body)
}

// Idempotency returns middleware that replays the stored response of a POST
// carrying an Idempotency-Key already seen for the same caller and body.
// Server errors are not stored so the client can retry them.
func Idempotency(store IdempotencyStore) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				next.ServeHTTP(w, r)
				return
			}

			idempotencyKey := r.Header.Get("Idempotency-Key")
			if idempotencyKey == "" {
				next.ServeHTTP(w, r)
				return
			}

			userID := GetUserID(r.Context())
			if userID == "" {
				userID = clientHost(r)
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				model.NewBadRequestError("could not read request body").WriteJSON(w)
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			key := generateKey(userID, idempotencyKey, r.Method, r.URL.Path, body)
			ctx := r.Context()

			stored, err := store.Reserve(ctx, key)
			switch {
			case errors.Is(err, ErrIdempotencyInFlight):
				model.NewConflictError("a request with this idempotency key is in progress").WriteJSON(w)
				return
			case err != nil:
				// Store unavailable, serve without replay protection
				slog.Warn("idempotency store unavailable",
					slog.String("request_id", GetRequestID(ctx)),
					slog.String("error", err.Error()),
				)
				next.ServeHTTP(w, r)
				return
			case stored != nil:
				replay(w, stored)
				return
			}

			irw := &idempotencyResponseWriter{
				ResponseWriter: w,
				status:         http.StatusOK,
			}
			next.ServeHTTP(irw, r)

			if irw.status >= http.StatusInternalServerError {
				if err := store.Release(ctx, key); err != nil {
					slog.Warn("failed to release idempotency key", slog.String("error", err.Error()))
				}
				return
			}

			resp := &StoredResponse{
				Status:  irw.status,
				Headers: irw.Header().Clone(),
				Body:    irw.body.Bytes(),
			}
			if err := store.Save(ctx, key, resp); err != nil {
				slog.Warn("failed to store idempotent response", slog.String("error", err.Error()))
			}
		})
	}
}
