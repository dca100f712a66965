package fetch

import (
	"net/http"
	"sync"
	"time"

	"ScoutBot/internal/conf"
	zlog "ScoutBot/pkg/log"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	defaultSessionTTL  = 30 * time.Minute
	defaultMaxSessions = 256
)

// SessionManager keeps one HTTP client per origin so cookies and keep-alive
// connections stay with the origin they belong to. Idle sessions expire after the TTL.
type SessionManager struct {
	mu       sync.Mutex
	sessions *expirable.LRU[string, *http.Client]
	proxyURL string
	maxSize  int
	logger   *zlog.LogHelper
}

// NewSessionManager creates a session cache. The proxy URL is validated up front.
func NewSessionManager(c *conf.Fetch, logger log.Logger) (*SessionManager, error) {
	ttl, size, proxyURL := defaultSessionTTL, defaultMaxSessions, ""
	if c != nil {
		if d := c.SessionTTL.AsDuration(); d > 0 {
			ttl = d
		}
		if c.MaxSessions > 0 {
			size = int(c.MaxSessions)
		}
		proxyURL = c.Proxy
	}

	// fail fast on a malformed proxy instead of on the first fetch
	if _, err := newHTTPClient(proxyURL); err != nil {
		return nil, err
	}

	helper := zlog.NewLogHelper(logger)
	onEvict := func(origin string, client *http.Client) {
		client.CloseIdleConnections()
		helper.Debugw("msg", "fetch session expired", "origin", origin)
	}

	return &SessionManager{
		sessions: expirable.NewLRU[string, *http.Client](size, onEvict, ttl),
		proxyURL: proxyURL,
		maxSize:  size,
		logger:   helper,
	}, nil
}

// Client returns the session client for origin, creating it on first use.
func (m *SessionManager) Client(origin string) (*http.Client, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if client, ok := m.sessions.Get(origin); ok {
		return client, nil
	}

	client, err := newHTTPClient(m.proxyURL)
	if err != nil {
		return nil, err
	}
	m.sessions.Add(origin, client)
	m.logger.CacheStats("fetch_sessions", m.sessions.Len(), m.maxSize, "origin", origin)
	return client, nil
}

// Len returns the number of live sessions.
func (m *SessionManager) Len() int {
	return m.sessions.Len()
}

// Close drops every session and its idle connections.
func (m *SessionManager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions.Purge()
}
