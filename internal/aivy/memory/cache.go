package memory

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"aivy-conversation/internal/common/logger"
	"aivy-conversation/internal/common/metrics"
	"aivy-conversation/internal/models"
)

const sessionKeyPrefix = "aivy:session:"

// CachedStore keeps session rows in Redis in front of another Store.
// Writes that change a session drop its cache entry. Cache failures are
// logged and fall through to the underlying store.
type CachedStore struct {
	Store
	redis  redis.Cmdable
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedStore(inner Store, rdb redis.Cmdable, ttl time.Duration, log logger.Logger) *CachedStore {
	return &CachedStore{
		Store:  inner,
		redis:  rdb,
		ttl:    ttl,
		logger: logger.ForComponent(log, "session-cache"),
	}
}

func sessionCacheKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

func (c *CachedStore) GetSession(ctx context.Context, sessionID string) (*models.ConversationSession, error) {
	key := sessionCacheKey(sessionID)

	val, err := c.redis.Get(ctx, key).Result()
	switch {
	case err == nil:
		var sess models.ConversationSession
		if jsonErr := json.Unmarshal([]byte(val), &sess); jsonErr == nil {
			metrics.SessionCache.WithLabelValues("hit").Inc()
			sess.ConversationState = sess.ConversationState.Clone()
			return &sess, nil
		}
		metrics.SessionCache.WithLabelValues("corrupt").Inc()
	case errors.Is(err, redis.Nil):
		metrics.SessionCache.WithLabelValues("miss").Inc()
	default:
		metrics.SessionCache.WithLabelValues("error").Inc()
		c.logger.Warn("session cache read failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}

	sess, err := c.Store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	data, _ := json.Marshal(sess)
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("session cache write failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
	return sess, nil
}

func (c *CachedStore) UpdateSessionState(ctx context.Context, sessionID string, profile models.ExecutiveProfile, state models.ConversationState) error {
	if err := c.Store.UpdateSessionState(ctx, sessionID, profile, state); err != nil {
		return err
	}
	c.invalidate(ctx, sessionID)
	return nil
}

func (c *CachedStore) CreateLeadContact(ctx context.Context, sessionID string, contact models.LeadContact) (string, error) {
	id, err := c.Store.CreateLeadContact(ctx, sessionID, contact)
	if err != nil {
		return "", err
	}
	if sessionID != "" {
		c.invalidate(ctx, sessionID)
	}
	return id, nil
}

func (c *CachedStore) invalidate(ctx context.Context, sessionID string) {
	if err := c.redis.Del(ctx, sessionCacheKey(sessionID)).Err(); err != nil {
		c.logger.Warn("session cache invalidation failed", map[string]interface{}{
			"sessionId": sessionID,
			"error":     err.Error(),
		})
	}
}
