package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionStore persists per-sender conversation state in Redis. Idle
// expiry is enforced at read time through the single Get accessor; the
// key TTL only acts as a garbage-collection backstop.
type SessionStore struct {
	redis       *redis.Client
	idleTimeout time.Duration
	now         func() time.Time
}

// NewSessionStore creates a session store with the given idle timeout.
func NewSessionStore(client *redis.Client, idleTimeout time.Duration) *SessionStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if idleTimeout <= 0 {
		idleTimeout = 30 * time.Minute
	}
	return &SessionStore{redis: client, idleTimeout: idleTimeout, now: time.Now}
}

// Get loads the sender's state. Returns nil when no session exists or
// the stored one sat idle past the timeout; a stale session is deleted
// on the spot and treated as absent.
func (s *SessionStore) Get(ctx context.Context, sender string) (*State, error) {
	data, err := s.redis.Get(ctx, sessionKey(sender)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("conversation: load session: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		// A corrupted record is unrecoverable; drop it.
		_ = s.Delete(ctx, sender)
		return nil, nil
	}

	if s.now().Sub(state.LastActive) > s.idleTimeout {
		if err := s.Delete(ctx, sender); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return &state, nil
}

// Put persists the state, stamping last activity. The write carries a
// TTL slightly past the idle timeout so abandoned sessions eventually
// vanish without a sweeper.
func (s *SessionStore) Put(ctx context.Context, sender string, state *State) error {
	state.LastActive = s.now()
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("conversation: marshal session: %w", err)
	}
	if err := s.redis.Set(ctx, sessionKey(sender), data, s.idleTimeout+time.Minute).Err(); err != nil {
		return fmt.Errorf("conversation: persist session: %w", err)
	}
	return nil
}

// Delete clears the sender's session.
func (s *SessionStore) Delete(ctx context.Context, sender string) error {
	if err := s.redis.Del(ctx, sessionKey(sender)).Err(); err != nil {
		return fmt.Errorf("conversation: delete session: %w", err)
	}
	return nil
}

func sessionKey(sender string) string {
	return fmt.Sprintf("session:%s", sender)
}
