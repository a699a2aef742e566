package service

import (
	"math"
	"sync"
	"time"
)

// LoginOutcome classifies one call to LoginGuard.Attempt.
type LoginOutcome string

const (
	LoginAccepted       LoginOutcome = "accepted"
	LoginInvalid        LoginOutcome = "invalid_credentials"
	LoginBlocked        LoginOutcome = "blocked"
	LoginBlockedJustNow LoginOutcome = "blocked_just_now"
)

// LoginGuardPolicy controls the brute-force throttle.
type LoginGuardPolicy struct {
	FailureThreshold int
	Cooldown         time.Duration
}

// LoginDecision is the result of an attempt. RemainSec is the cooldown
// left, rounded up, and only meaningful for the blocked outcomes.
type LoginDecision struct {
	Outcome   LoginOutcome
	RemainSec int
}

func (d LoginDecision) Accepted() bool { return d.Outcome == LoginAccepted }

// LoginGuard throttles credential checks process-wide. There is no
// per-user tracking: every failed attempt, whoever made it, advances the
// same counter, and a block rejects all attempts until the cooldown ends.
type LoginGuard struct {
	mu       sync.Mutex
	policy   LoginGuardPolicy
	username string
	password string

	failCount    int
	blockedUntil time.Time

	nowFn func() time.Time
}

func NewLoginGuard(username, password string, policy LoginGuardPolicy) *LoginGuard {
	if policy.FailureThreshold <= 0 {
		policy.FailureThreshold = 3
	}
	if policy.Cooldown <= 0 {
		policy.Cooldown = 30 * time.Second
	}
	return &LoginGuard{
		policy:   policy,
		username: username,
		password: password,
		nowFn:    time.Now,
	}
}

// Attempt checks the credentials against the configured pair. Reaching the
// failure threshold zeroes the counter and opens a cooldown window during
// which every attempt is rejected regardless of credentials.
func (g *LoginGuard) Attempt(username, password string) LoginDecision {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.nowFn()
	if now.Before(g.blockedUntil) {
		return LoginDecision{Outcome: LoginBlocked, RemainSec: remainSeconds(g.blockedUntil.Sub(now))}
	}

	if username != g.username || password != g.password {
		g.failCount++
		if g.failCount >= g.policy.FailureThreshold {
			g.failCount = 0
			g.blockedUntil = now.Add(g.policy.Cooldown)
			return LoginDecision{Outcome: LoginBlockedJustNow, RemainSec: remainSeconds(g.policy.Cooldown)}
		}
		return LoginDecision{Outcome: LoginInvalid}
	}

	g.failCount = 0
	return LoginDecision{Outcome: LoginAccepted}
}

func remainSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
