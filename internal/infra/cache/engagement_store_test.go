package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/lead-funnel/internal/entity"
)

func setupTestRedis(t *testing.T) (*EngagementStore, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewEngagementStore(rdb, time.Hour), mr
}

func TestEngagementStore_RecordAndGet(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, store.RecordClick(ctx, "a@x.io", "https://pay.example.com", at))
	require.NoError(t, store.RecordPaymentVisit(ctx, "a@x.io", entity.PaymentVisit{
		TrackingID: "trk-1",
		Timestamp:  at.Add(time.Minute),
		UserAgent:  "Mozilla/5.0",
		Referrer:   "https://mail.example.com",
	}))
	require.NoError(t, store.RecordAbandonment(ctx, "a@x.io", entity.PaymentAbandonment{Timestamp: at.Add(5 * time.Minute), TimeOnPageSeconds: 240}))

	e, err := store.Get(ctx, "a@x.io")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, "https://pay.example.com", e.LastClickedURL)
	assert.Equal(t, at, *e.ClickedAt)
	assert.Equal(t, "trk-1", e.TrackingID)
	assert.Equal(t, "Mozilla/5.0", e.UserAgent)
	assert.Equal(t, 240, e.TimeOnPageSeconds)
	assert.Equal(t, at.Add(5*time.Minute), *e.PaymentAbandonedAt)

	assert.True(t, mr.Exists(keyPrefix+"a@x.io"))
	assert.Equal(t, time.Hour, mr.TTL(keyPrefix+"a@x.io"))
}

func TestEngagementStore_Missing(t *testing.T) {
	store, _ := setupTestRedis(t)

	e, err := store.Get(context.Background(), "none@x.io")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEngagementStore_Expires(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.RecordClick(ctx, "a@x.io", "u", time.Now()))
	mr.FastForward(2 * time.Hour)

	e, err := store.Get(ctx, "a@x.io")
	require.NoError(t, err)
	assert.Nil(t, e)
}

func TestEngagementStore_ServerDown(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer rdb.Close()
	store := NewEngagementStore(rdb, time.Hour)
	mr.Close()

	err = store.RecordClick(context.Background(), "a@x.io", "u", time.Now())
	assert.Error(t, err)
}

func TestEngagementStore_SparseVisitKeepsEarlierFields(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 30, 0, 0, time.UTC)

	require.NoError(t, store.RecordPaymentVisit(ctx, "a@x.io", entity.PaymentVisit{
		TrackingID: "trk-1",
		Timestamp:  at,
		UserAgent:  "Mozilla/5.0",
		Referrer:   "https://mail.example.com",
	}))
	require.NoError(t, store.RecordPaymentVisit(ctx, "a@x.io", entity.PaymentVisit{Timestamp: at.Add(time.Hour)}))

	e, err := store.Get(ctx, "a@x.io")
	require.NoError(t, err)
	require.NotNil(t, e)
	assert.Equal(t, at.Add(time.Hour), *e.PaymentVisitedAt)
	assert.Equal(t, "trk-1", e.TrackingID)
	assert.Equal(t, "Mozilla/5.0", e.UserAgent)
	assert.Equal(t, "https://mail.example.com", e.Referrer)
}
