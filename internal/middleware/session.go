package middleware

import (
	"bufio"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	sessionCookieName = "SF_WIDGET_SESSION"
	sessionMaxAge     = 30 * 24 * time.Hour
)

// SessionData is the signed cookie payload. It scopes cart controllers to one
// shopper; nothing else is stored.
type SessionData struct {
	ID        string    `json:"id"`
	Locale    string    `json:"locale,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	mu    sync.Mutex
	dirty bool
}

// MarkDirty flags the session for writing before the response is sent.
func (s *SessionData) MarkDirty() {
	s.mu.Lock()
	s.dirty = true
	s.mu.Unlock()
}

func (s *SessionData) isDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Sessions issues and verifies session cookies.
type Sessions struct {
	key    []byte
	secure bool
}

// NewSessions builds the cookie codec. An empty key gets a process-ephemeral
// one, which is only acceptable in dev.
func NewSessions(key []byte, secure bool) *Sessions {
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			key = []byte("insecure-dev-key-set-STOREFRONT_SESSION_SIGNING_KEY")
		}
	}
	return &Sessions{key: key, secure: secure}
}

// Middleware loads or starts a session and stores it in the request context.
func (s *Sessions) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sd, ok := s.read(r)
		if !ok {
			sd = &SessionData{
				ID:        strings.ToLower(ulid.Make().String()),
				CreatedAt: time.Now().UTC(),
				dirty:     true,
			}
		}
		ctx := context.WithValue(r.Context(), ctxKeySession, sd)
		bw := &beforeWriteWriter{ResponseWriter: w, before: func(w http.ResponseWriter) {
			if sd.isDirty() {
				s.write(w, sd)
			}
		}}
		next.ServeHTTP(bw, r.WithContext(ctx))
		if !bw.wrote && sd.isDirty() {
			s.write(w, sd)
		}
	})
}

// SessionFrom returns the request session, or nil outside Sessions.Middleware.
func SessionFrom(ctx context.Context) *SessionData {
	sd, _ := ctx.Value(ctxKeySession).(*SessionData)
	return sd
}

func (s *Sessions) sign(payload []byte) []byte {
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return mac.Sum(nil)
}

func (s *Sessions) read(r *http.Request) (*SessionData, bool) {
	c, err := r.Cookie(sessionCookieName)
	if err != nil || c.Value == "" {
		return nil, false
	}
	payloadPart, sigPart, found := strings.Cut(c.Value, ".")
	if !found {
		return nil, false
	}
	payload, err := base64.RawURLEncoding.DecodeString(payloadPart)
	if err != nil {
		return nil, false
	}
	sig, err := base64.RawURLEncoding.DecodeString(sigPart)
	if err != nil {
		return nil, false
	}
	if !hmac.Equal(sig, s.sign(payload)) {
		return nil, false
	}
	var sd SessionData
	if err := json.Unmarshal(payload, &sd); err != nil || sd.ID == "" {
		return nil, false
	}
	return &sd, true
}

// Encode returns the signed cookie value for sd.
func (s *Sessions) Encode(sd *SessionData) string {
	b, _ := json.Marshal(sd)
	return base64.RawURLEncoding.EncodeToString(b) + "." + base64.RawURLEncoding.EncodeToString(s.sign(b))
}

func (s *Sessions) write(w http.ResponseWriter, sd *SessionData) {
	sd.mu.Lock()
	sd.dirty = false
	sd.mu.Unlock()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    s.Encode(sd),
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(sessionMaxAge),
	})
}

// beforeWriteWriter runs before once, ahead of the first header write.
type beforeWriteWriter struct {
	http.ResponseWriter
	before func(http.ResponseWriter)
	wrote  bool
}

func (w *beforeWriteWriter) fire() {
	if w.wrote {
		return
	}
	w.wrote = true
	if w.before != nil {
		w.before(w.ResponseWriter)
	}
}

func (w *beforeWriteWriter) WriteHeader(code int) {
	w.fire()
	w.ResponseWriter.WriteHeader(code)
}

func (w *beforeWriteWriter) Write(b []byte) (int, error) {
	w.fire()
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *beforeWriteWriter) Unwrap() http.ResponseWriter { return w.ResponseWriter }

// Hijack fires the cookie write, then hands the connection over.
func (w *beforeWriteWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("middleware: response writer does not support hijacking")
	}
	w.fire()
	return h.Hijack()
}
