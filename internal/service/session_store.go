package service

import (
	"errors"
	"sync"
	"time"

	"github.com/probelink/probelink/internal/domain"
	"github.com/probelink/probelink/internal/observability"
	"github.com/probelink/probelink/internal/security"
)

var (
	// ErrUnauthorized is returned when the caller token does not match an
	// active session.
	ErrUnauthorized = errors.New("unknown caller token")
	// ErrForbidden is returned on attempts to remotely revoke a trusted
	// session.
	ErrForbidden = errors.New("trusted sessions cannot be revoked remotely")
)

// SessionStoreConfig bounds the in-memory session collection.
type SessionStoreConfig struct {
	// Lifetime is how long a non-trusted session stays valid after
	// issuance or renewal.
	Lifetime time.Duration
	// DeviceLimit caps the number of concurrent non-trusted sessions.
	DeviceLimit int
	// TrustedDeviceEnabled turns the trusted-device promotion on. When
	// off, every session is a plain expiring one.
	TrustedDeviceEnabled bool
}

// LoginMetadata is the request context captured on a session at issuance.
type LoginMetadata struct {
	DeviceID      string
	UserAgent     string
	SourceAddress string
}

// SessionStore owns every active session and the single process-wide
// trusted-device record. All methods serialize on one mutex; a login runs
// issue, expire sweep and capacity prune under that one acquisition.
//
// Sessions are kept in insertion order, which makes eviction order among
// equal CreatedAt values deterministic for the life of the process.
type SessionStore struct {
	mu  sync.Mutex
	cfg SessionStoreConfig

	sessions           []*domain.Session
	trustedFingerprint string

	nowFn func() time.Time
}

func NewSessionStore(cfg SessionStoreConfig) *SessionStore {
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = time.Hour
	}
	if cfg.DeviceLimit <= 0 {
		cfg.DeviceLimit = 5
	}
	return &SessionStore{cfg: cfg, nowFn: time.Now}
}

// Login issues a new session. The first login after the trusted-device
// record is empty claims it; later logins are trusted iff their
// fingerprint matches. Never fails: the login guard has already vetted the
// caller.
func (s *SessionStore) Login(meta LoginMetadata) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	fp := security.Fingerprint(meta.DeviceID)

	trusted := false
	if s.cfg.TrustedDeviceEnabled {
		if s.trustedFingerprint == "" {
			s.trustedFingerprint = fp
			trusted = true
		} else {
			trusted = fp == s.trustedFingerprint
		}
	}

	sess := &domain.Session{
		Token:         security.NewSessionToken(),
		CreatedAt:     now,
		UserAgent:     meta.UserAgent,
		SourceAddress: meta.SourceAddress,
		Fingerprint:   fp,
		IsTrusted:     trusted,
	}
	s.sessions = append(s.sessions, sess)

	s.sweepLocked(now)
	s.pruneLocked()

	return sess.Token, trusted
}

// Validate sweeps expired sessions, then resolves the token. Returns nil
// for unknown or just-expired tokens.
func (s *SessionStore) Validate(token string) *domain.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.nowFn())
	if sess := s.findLocked(token); sess != nil {
		out := *sess
		return &out
	}
	return nil
}

// Renew restarts the lifetime of a non-trusted session. Trusted sessions
// never expire, so renewing one reports false rather than succeeding
// vacuously.
func (s *SessionStore) Renew(token string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.nowFn())
	sess := s.findLocked(token)
	if sess == nil || sess.IsTrusted {
		return false
	}
	sess.CreatedAt = s.nowFn()
	return true
}

// Views lists every active session for an authenticated caller. The
// second return is false when the caller token is unknown.
func (s *SessionStore) Views(callerToken string) ([]domain.SessionView, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	s.sweepLocked(now)
	if s.findLocked(callerToken) == nil {
		return nil, false
	}

	views := make([]domain.SessionView, 0, len(s.sessions))
	for _, sess := range s.sessions {
		v := domain.SessionView{
			Token:         sess.Token,
			CreatedAt:     sess.CreatedAt,
			UserAgent:     sess.UserAgent,
			SourceAddress: sess.SourceAddress,
			IsTrusted:     sess.IsTrusted,
			IsCurrent:     sess.Token == callerToken,
		}
		if !sess.IsTrusted {
			remain := s.cfg.Lifetime.Milliseconds() - now.Sub(sess.CreatedAt).Milliseconds()
			if remain < 0 {
				remain = 0
			}
			v.RemainMS = &remain
		}
		views = append(views, v)
	}
	return views, true
}

// RemainMS reports how long a session has left, with ok=false for unknown
// tokens. Trusted sessions return a nil pointer: they do not expire.
func (s *SessionStore) RemainMS(token string) (*int64, bool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	s.sweepLocked(now)
	sess := s.findLocked(token)
	if sess == nil {
		return nil, false, false
	}
	if sess.IsTrusted {
		return nil, true, true
	}
	remain := s.cfg.Lifetime.Milliseconds() - now.Sub(sess.CreatedAt).Milliseconds()
	if remain < 0 {
		remain = 0
	}
	return &remain, false, true
}

// LogoutSelf removes the caller's own session. A no-op for unknown tokens;
// trusted sessions may always log themselves out.
func (s *SessionStore) LogoutSelf(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.removeLocked(token, "self_logout")
}

// LogoutOther removes a different session on behalf of an authenticated
// caller. Trusted sessions cannot be revoked this way.
func (s *SessionStore) LogoutOther(callerToken, targetToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweepLocked(s.nowFn())
	if s.findLocked(callerToken) == nil {
		return ErrUnauthorized
	}
	target := s.findLocked(targetToken)
	if target == nil {
		return nil
	}
	if target.IsTrusted {
		return ErrForbidden
	}
	s.removeLocked(targetToken, "forced_logout")
	return nil
}

// Count reports active sessions, split by trust, for diagnostics.
func (s *SessionStore) Count() (trusted, normal int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sess := range s.sessions {
		if sess.IsTrusted {
			trusted++
		} else {
			normal++
		}
	}
	return trusted, normal
}

func (s *SessionStore) findLocked(token string) *domain.Session {
	if token == "" {
		return nil
	}
	for _, sess := range s.sessions {
		if sess.Token == token {
			return sess
		}
	}
	return nil
}

func (s *SessionStore) removeLocked(token, reason string) {
	for i, sess := range s.sessions {
		if sess.Token == token {
			s.sessions = append(s.sessions[:i], s.sessions[i+1:]...)
			observability.RecordSessionRemoved(reason)
			return
		}
	}
}

// sweepLocked drops every non-trusted session older than the lifetime.
func (s *SessionStore) sweepLocked(now time.Time) {
	kept := s.sessions[:0]
	for _, sess := range s.sessions {
		if !sess.IsTrusted && now.Sub(sess.CreatedAt) > s.cfg.Lifetime {
			observability.RecordSessionRemoved("expired")
			continue
		}
		kept = append(kept, sess)
	}
	s.sessions = kept
}

// pruneLocked evicts the oldest non-trusted sessions until the device
// limit holds. Trusted sessions neither count toward nor are touched by
// the limit.
func (s *SessionStore) pruneLocked() {
	for {
		normal := 0
		oldest := -1
		for i, sess := range s.sessions {
			if sess.IsTrusted {
				continue
			}
			normal++
			if oldest == -1 || sess.CreatedAt.Before(s.sessions[oldest].CreatedAt) {
				oldest = i
			}
		}
		if normal <= s.cfg.DeviceLimit || oldest == -1 {
			return
		}
		s.sessions = append(s.sessions[:oldest], s.sessions[oldest+1:]...)
		observability.RecordSessionRemoved("evicted")
	}
}
