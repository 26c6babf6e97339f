package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	stderrors "portlink-orchestrator/internal/common/errors"
	"portlink-orchestrator/internal/common/logger"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, ttl, logger.NewTestLogger(t)), mr
}

func TestStore_CreateAndGet(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "carrier")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "user-1", sess.UserID)
	assert.Equal(t, "carrier", sess.Role)

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.Equal(t, sess.UserID, got.UserID)
	assert.Equal(t, sess.Role, got.Role)
}

func TestStore_GetMissing(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)

	_, err := store.Get(context.Background(), "nope")
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeSessionNotFound, stdErr.Code)
}

func TestStore_GetExpired(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "carrier")
	require.NoError(t, err)

	// Move the store clock past expiry; the key is still present in Redis.
	store.now = func() time.Time { return time.Now().Add(time.Hour) }

	_, err = store.Get(ctx, sess.ID)
	require.Error(t, err)
	var stdErr *stderrors.StandardError
	require.ErrorAs(t, err, &stdErr)
	assert.Equal(t, stderrors.ErrCodeSessionNotFound, stdErr.Code)
}

func TestStore_TouchExtendsExpiry(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "operator")
	require.NoError(t, err)
	firstExpiry := sess.ExpiresAt

	store.now = func() time.Time { return time.Now().Add(10 * time.Minute) }
	require.NoError(t, store.Touch(ctx, sess))

	assert.True(t, sess.ExpiresAt.After(firstExpiry))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.ExpiresAt.After(firstExpiry))
}

func TestStore_SetAuthToken(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "carrier")
	require.NoError(t, err)

	require.NoError(t, store.SetAuthToken(ctx, sess, "tok-abc"))

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok-abc", got.AuthToken)
}

func TestStore_Delete(t *testing.T) {
	store, _ := newTestStore(t, 30*time.Minute)
	ctx := context.Background()

	sess, err := store.Create(ctx, "user-1", "carrier")
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, sess.ID))

	_, err = store.Get(ctx, sess.ID)
	assert.Error(t, err)
}

func TestStore_RedisKeyHasTTL(t *testing.T) {
	store, mr := newTestStore(t, 30*time.Minute)

	sess, err := store.Create(context.Background(), "user-1", "carrier")
	require.NoError(t, err)

	ttl := mr.TTL("session:" + sess.ID)
	assert.Greater(t, ttl, time.Duration(0))
	assert.LessOrEqual(t, ttl, 30*time.Minute)
}

func TestStore_GetRedisError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	store := NewStore(client, time.Minute, logger.NewNoOpLogger())

	mock.ExpectGet("session:sess-1").SetErr(errors.New("connection refused"))

	_, err := store.Get(context.Background(), "sess-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "session lookup failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
