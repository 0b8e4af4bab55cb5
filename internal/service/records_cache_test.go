package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/skillarena/arena-api/internal/dto"
)

func newCacheFixture(t *testing.T, ttl time.Duration) (*RecordsCache, *miniredis.Miniredis) {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	return NewRecordsCache(client, ttl, testLogger()), mini
}

func sampleViews() []dto.ScoringRecordView {
	score := 7.5
	resultID := uint(3)
	return []dto.ScoringRecordView{
		{
			RecordID:     1,
			ContestantID: 4,
			Username:     "alice",
			ItemResults: []dto.ItemResultView{
				{ResultID: &resultID, ScoringItemID: 2, JudgeScore: &score, Description: "Seam", EvaluationType: "objective", MaxScore: 10},
			},
		},
	}
}

func TestRecordsCacheRoundTrip(t *testing.T) {
	cache, _ := newCacheFixture(t, time.Minute)
	ctx := context.Background()

	_, ok := cache.Get(ctx, 9)
	require.False(t, ok)

	views := sampleViews()
	cache.Set(ctx, 9, views)

	cached, ok := cache.Get(ctx, 9)
	require.True(t, ok)
	require.Equal(t, views, cached)

	// Keys are per module.
	_, ok = cache.Get(ctx, 10)
	require.False(t, ok)
}

func TestRecordsCacheInvalidate(t *testing.T) {
	cache, _ := newCacheFixture(t, time.Minute)
	ctx := context.Background()

	cache.Set(ctx, 9, sampleViews())
	cache.Invalidate(ctx, 9)

	_, ok := cache.Get(ctx, 9)
	require.False(t, ok)
}

func TestRecordsCacheEntryExpires(t *testing.T) {
	cache, mini := newCacheFixture(t, time.Second)
	ctx := context.Background()

	cache.Set(ctx, 9, sampleViews())
	mini.FastForward(2 * time.Second)

	_, ok := cache.Get(ctx, 9)
	require.False(t, ok)
}

func TestRecordsCacheCorruptPayloadIsAMiss(t *testing.T) {
	cache, mini := newCacheFixture(t, time.Minute)

	require.NoError(t, mini.Set(recordsCacheKey(9), "not json"))
	_, ok := cache.Get(context.Background(), 9)
	require.False(t, ok)
}

func TestRecordsCacheDisabledWithoutRedis(t *testing.T) {
	ctx := context.Background()
	disabled := NewRecordsCache(nil, time.Minute, testLogger())

	disabled.Set(ctx, 9, sampleViews())
	_, ok := disabled.Get(ctx, 9)
	require.False(t, ok)
	disabled.Invalidate(ctx, 9)

	// A nil cache pointer degrades the same way.
	var missing *RecordsCache
	missing.Set(ctx, 9, sampleViews())
	_, ok = missing.Get(ctx, 9)
	require.False(t, ok)
	missing.Invalidate(ctx, 9)
}

func TestScoreFeedPublishesToRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()

	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	feed := NewScoreFeed(client, "test:scores", nil, "", testLogger())

	sub := client.Subscribe(context.Background(), "test:scores")
	defer sub.Close()
	_, err = sub.Receive(context.Background())
	require.NoError(t, err)

	feed.Publish(context.Background(), ScoreEvent{Type: FeedScoreUpdated, ModuleID: 3, ContestantID: 8})

	select {
	case msg := <-sub.Channel():
		require.Contains(t, msg.Payload, `"type":"score.updated"`)
		require.Contains(t, msg.Payload, `"module_id":3`)
	case <-time.After(2 * time.Second):
		t.Fatal("no score event received")
	}
}

func TestScoreFeedNilSafe(t *testing.T) {
	ctx := context.Background()

	feed := NewScoreFeed(nil, "", nil, "", testLogger())
	feed.Publish(ctx, ScoreEvent{Type: FeedModuleEvaluated, ModuleID: 1})

	var missing *ScoreFeed
	missing.Publish(ctx, ScoreEvent{Type: FeedModuleEvaluated, ModuleID: 1})
}
