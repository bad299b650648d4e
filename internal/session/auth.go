package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// ErrInvalidCredentials is returned when sign-in is refused.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Identity is the result of a successful sign-in.
type Identity struct {
	UserID   string
	Username string
}

// Authenticator signs a user in. Pages depend only on this interface so a real
// authentication backend can replace the stub.
type Authenticator interface {
	Authenticate(ctx context.Context, username, password string) (Identity, error)
}

// StubAuthenticator accepts every non-empty username after a fixed delay and
// maps it to the configured demo user id.
type StubAuthenticator struct {
	UserID string
	Delay  time.Duration
}

func (a StubAuthenticator) Authenticate(ctx context.Context, username, password string) (Identity, error) {
	if a.Delay > 0 {
		timer := time.NewTimer(a.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return Identity{}, ctx.Err()
		case <-timer.C:
		}
	}

	username = strings.TrimSpace(username)
	if username == "" || a.UserID == "" {
		return Identity{}, ErrInvalidCredentials
	}
	return Identity{UserID: a.UserID, Username: username}, nil
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RegisterLimiter throttles registration attempts per client IP.
type RegisterLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	limit    rate.Limit
	burst    int
	idle     time.Duration
	now      func() time.Time
}

// NewRegisterLimiter allows maxReqs registrations per window and client IP.
func NewRegisterLimiter(window time.Duration, maxReqs int) *RegisterLimiter {
	if maxReqs <= 0 {
		maxReqs = 1
	}
	return &RegisterLimiter{
		visitors: make(map[string]*visitor),
		limit:    rate.Every(window / time.Duration(maxReqs)),
		burst:    maxReqs,
		idle:     window,
		now:      time.Now,
	}
}

// Allow reports whether ip may register now.
func (r *RegisterLimiter) Allow(ip string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	// Clean idle visitors
	for key, v := range r.visitors {
		if now.Sub(v.lastSeen) > r.idle {
			delete(r.visitors, key)
		}
	}

	v, ok := r.visitors[ip]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(r.limit, r.burst)}
		r.visitors[ip] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}
