package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Score feed event types.
const (
	FeedModuleEvaluated     = "module.evaluated"
	FeedContestantEvaluated = "contestant.evaluated"
	FeedScoreUpdated        = "score.updated"
)

// ScoreEvent is the payload fanned out whenever scores change.
type ScoreEvent struct {
	Type         string    `json:"type"`
	ModuleID     uint      `json:"module_id"`
	ContestantID uint      `json:"contestant_id,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// ScoreFeed publishes score events for downstream consumers (live
// scoreboards, notification gateways). Both transports are optional; a feed
// with neither configured is a no-op. Publishing is fire-and-forget: a
// failed publish is logged, never surfaced to the scoring path.
type ScoreFeed struct {
	redis   *redis.Client
	channel string
	nats    *nats.Conn
	subject string
	logger  zerolog.Logger
}

// NewScoreFeed constructs the feed. Nil clients disable their transport.
func NewScoreFeed(redisClient *redis.Client, channel string, natsConn *nats.Conn, subject string, logger zerolog.Logger) *ScoreFeed {
	if channel == "" {
		channel = "arena:score-feed"
	}
	if subject == "" {
		subject = "arena.scores"
	}

	return &ScoreFeed{
		redis:   redisClient,
		channel: channel,
		nats:    natsConn,
		subject: subject,
		logger:  logger.With().Str("component", "score_feed").Logger(),
	}
}

// Publish fans the event out on every configured transport.
func (f *ScoreFeed) Publish(ctx context.Context, event ScoreEvent) {
	if f == nil {
		return
	}

	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Error().Err(err).Msg("failed to marshal score event")
		return
	}

	if f.redis != nil {
		if err := f.redis.Publish(ctx, f.channel, payload).Err(); err != nil {
			f.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish score event to redis")
		}
	}

	if f.nats != nil {
		if err := f.nats.Publish(f.subject, payload); err != nil {
			f.logger.Warn().Err(err).Str("type", event.Type).Msg("failed to publish score event to nats")
		}
	}
}
