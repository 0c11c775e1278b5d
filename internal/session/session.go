// Package session keeps server-side login sessions. The browser only holds a
// signed session id cookie.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	CookieName = "bizpilot.sid"
	DefaultTTL = 7 * 24 * time.Hour
)

var ErrNotFound = errors.New("session not found")

// Data is what a session remembers between requests.
type Data struct {
	UserID     int64  `json:"user_id,omitempty"`
	OAuthState string `json:"oauth_state,omitempty"`
}

type Store interface {
	Create(ctx context.Context, d Data) (string, error)
	Get(ctx context.Context, id string) (Data, error)
	Save(ctx context.Context, id string, d Data) error
	Delete(ctx context.Context, id string) error
	Close() error
}

func newID() string { return uuid.NewString() }

// Signer binds session ids to the server secret so cookies cannot be forged.
type Signer struct {
	secret []byte
}

func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

func (s *Signer) Sign(id string) string {
	return id + "." + s.mac(id)
}

// Verify returns the id carried by a signed cookie value.
func (s *Signer) Verify(value string) (string, bool) {
	i := strings.LastIndexByte(value, '.')
	if i <= 0 {
		return "", false
	}
	id, sig := value[:i], value[i+1:]
	if !hmac.Equal([]byte(sig), []byte(s.mac(id))) {
		return "", false
	}
	return id, true
}

func (s *Signer) mac(id string) string {
	h := hmac.New(sha256.New, s.secret)
	h.Write([]byte(id))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// MemoryStore is used when no Redis address is configured. Sessions do not
// survive a restart.
type MemoryStore struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoryEntry
}

type memoryEntry struct {
	data    Data
	expires time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, entries: map[string]memoryEntry{}}
}

func (m *MemoryStore) Create(_ context.Context, d Data) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sweepLocked()
	id := newID()
	m.entries[id] = memoryEntry{data: d, expires: m.now().Add(m.ttl)}
	return id, nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (Data, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	if !ok || !m.now().Before(e.expires) {
		delete(m.entries, id)
		return Data{}, ErrNotFound
	}
	return e.data, nil
}

func (m *MemoryStore) Save(_ context.Context, id string, d Data) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return ErrNotFound
	}
	m.entries[id] = memoryEntry{data: d, expires: m.now().Add(m.ttl)}
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *MemoryStore) Close() error { return nil }

func (m *MemoryStore) sweepLocked() {
	now := m.now()
	for id, e := range m.entries {
		if !now.Before(e.expires) {
			delete(m.entries, id)
		}
	}
}
