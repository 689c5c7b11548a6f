// internal/discovery/presence.go
// Last-active bookkeeping. The engine only consumes the timestamp; this
// tracker keeps it fresh as a side effect of authenticated traffic. Redis
// throttles the write-through so a chatty client doesn't hammer the store.

package discovery

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/bhaskarphuyal82-star/nearmatch-sub000/internal/auth"
)

type PresenceTracker struct {
	redis    *redis.Client // optional; nil means write through every time
	repo     Repository
	throttle time.Duration
}

func NewPresenceTracker(redisClient *redis.Client, repo Repository, throttle time.Duration) *PresenceTracker {
	return &PresenceTracker{
		redis:    redisClient,
		repo:     repo,
		throttle: throttle,
	}
}

// Touch refreshes the user's last-active timestamp. With Redis available the
// store write happens at most once per throttle window per user.
func (p *PresenceTracker) Touch(ctx context.Context, userID int64) {
	now := time.Now()

	if p.redis != nil {
		key := fmt.Sprintf("presence:touch:%d", userID)
		ok, err := p.redis.SetNX(ctx, key, now.Unix(), p.throttle).Result()
		if err == nil && !ok {
			// Throttled: written recently enough
			return
		}
		if err != nil {
			log.Printf("presence: redis touch failed for user %d: %v", userID, err)
		}
	}

	if err := p.repo.TouchLastActive(ctx, userID, now); err != nil {
		// Presence is best-effort; discovery still works off the stale value
		log.Printf("presence: failed to touch last_active for user %d: %v", userID, err)
	}
}

// Middleware touches presence for every authenticated request passing through
func (p *PresenceTracker) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := auth.UserIDFromContext(r.Context()); ok {
			p.Touch(r.Context(), userID)
		}
		next.ServeHTTP(w, r)
	})
}
