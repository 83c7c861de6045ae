package storefront

import (
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"BookStore/internal/auth"
	"BookStore/internal/cart"
)

const SessionCookie = "bookstore_session"

type Session struct {
	ID string

	mu   sync.Mutex
	cart *cart.Cart
}

type SessionConfig struct {
	TTL          time.Duration
	MaxSessions  int
	SecureCookie bool
}

type Sessions struct {
	mu     sync.Mutex
	cache  *expirable.LRU[string, *Session]
	tokens *auth.TokenMaker
	cfg    SessionConfig
}

func NewSessions(tokens *auth.TokenMaker, cfg SessionConfig) *Sessions {
	if cfg.TTL <= 0 {
		cfg.TTL = 24 * time.Hour
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 10000
	}
	return &Sessions{
		cache:  expirable.NewLRU[string, *Session](cfg.MaxSessions, nil, cfg.TTL),
		tokens: tokens,
		cfg:    cfg,
	}
}

func (s *Sessions) Load(w http.ResponseWriter, r *http.Request) (*Session, error) {
	id := s.sessionID(r)

	s.mu.Lock()
	defer s.mu.Unlock()

	if id != "" {
		if sess, ok := s.cache.Get(id); ok {
			s.cache.Add(id, sess)
			return sess, nil
		}
	} else {
		id = uuid.NewString()
	}

	tok, err := s.tokens.NewSession(id, s.cfg.TTL)
	if err != nil {
		return nil, err
	}

	sess := &Session{ID: id, cart: cart.New()}
	s.cache.Add(id, sess)

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(s.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   s.cfg.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess, nil
}

func (s *Sessions) Len() int {
	return s.cache.Len()
}

func (s *Sessions) sessionID(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil || c.Value == "" {
		return ""
	}
	id, err := s.tokens.ParseSession(c.Value)
	if err != nil {
		return ""
	}
	return id
}
