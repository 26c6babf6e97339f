// internal/session/store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
)

// Store persists sessions in Redis with an idle TTL. Every read or write
// refreshes the TTL so active conversations never expire mid-flight.
type Store struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
	now    func() time.Time
}

// NewStore creates a session store backed by the given Redis client.
func NewStore(client *redis.Client, ttl time.Duration, log logger.Logger) *Store {
	return &Store{
		client: client,
		ttl:    ttl,
		logger: log,
		now:    time.Now,
	}
}

func sessionKey(id string) string {
	return fmt.Sprintf("session:%s", id)
}

// Create starts a new session for the user and persists it.
func (s *Store) Create(ctx context.Context, userID, role string) (*Session, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:           uuid.New().String(),
		UserID:       userID,
		Role:         role,
		CreatedAt:    now,
		ExpiresAt:    now.Add(s.ttl),
		LastActivity: now,
	}

	if err := s.put(ctx, sess); err != nil {
		return nil, err
	}

	s.logger.Info("Session created", map[string]interface{}{
		"sessionId": sess.ID,
		"userId":    userID,
		"role":      role,
	})
	return sess, nil
}

// Get loads a session by ID. Missing or expired sessions return
// SESSION_NOT_FOUND.
func (s *Store) Get(ctx context.Context, id string) (*Session, error) {
	raw, err := s.client.Get(ctx, sessionKey(id)).Result()
	if err == redis.Nil {
		return nil, stderrors.NewSessionNotFoundError(id)
	}
	if err != nil {
		return nil, fmt.Errorf("session lookup failed: %w", err)
	}

	var sess Session
	if err := json.Unmarshal([]byte(raw), &sess); err != nil {
		return nil, fmt.Errorf("session decode failed: %w", err)
	}

	if sess.IsExpired(s.now().UTC()) {
		_ = s.client.Del(ctx, sessionKey(id)).Err()
		return nil, stderrors.NewSessionNotFoundError(id)
	}

	return &sess, nil
}

// Touch refreshes the session expiry and last-activity timestamp.
func (s *Store) Touch(ctx context.Context, sess *Session) error {
	now := s.now().UTC()
	sess.LastActivity = now
	sess.ExpiresAt = now.Add(s.ttl)
	return s.put(ctx, sess)
}

// SetAuthToken rotates the provider token carried by the session.
func (s *Store) SetAuthToken(ctx context.Context, sess *Session, token string) error {
	sess.AuthToken = token
	return s.Touch(ctx, sess)
}

// Delete removes a session.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, sessionKey(id)).Err()
}

func (s *Store) put(ctx context.Context, sess *Session) error {
	raw, err := json.Marshal(sess)
	if err != nil {
		return fmt.Errorf("session encode failed: %w", err)
	}
	if err := s.client.Set(ctx, sessionKey(sess.ID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("session write failed: %w", err)
	}
	return nil
}
