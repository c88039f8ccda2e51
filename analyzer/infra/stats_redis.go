package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"perspective-gateway/analyzer/domain"
)

type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por submissão.
	// total é cumulativo e não expira.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackIDs bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		if p := strings.Trim(prefix, ":"); p != "" {
			s.prefix = p
		}
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackIDs(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackIDs = track }
}

// NewRedisStatsStore aceita *redis.Client, *redis.ClusterClient ou qualquer redis.Cmdable.
func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "analyzer:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys descreve as chaves tocadas por um evento, na ordem do pipeline.
// Separado de Record para ser testável sem servidor.
func (s *RedisStatsStore) Keys(ev domain.StatsEvent) (total, bucket, priority, id string) {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	total = s.prefix + ":total"
	if s.bucket == "minute" {
		bucket = fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	}
	priority = s.prefix + ":priority:" + ev.Priority.String()
	if s.trackIDs && strings.TrimSpace(ev.ID) != "" {
		id = s.prefix + ":id:" + strings.TrimSpace(ev.ID)
	}
	return total, bucket, priority, id
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	field := string(ev.Outcome)
	total, bucket, priority, id := s.Keys(ev)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, total, field, 1)
	if ev.Outcome == domain.OutcomeReleased && ev.Failed {
		pipe.HIncrBy(ctx, total, "failed", 1)
	}

	if bucket != "" {
		pipe.HIncrBy(ctx, bucket, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucket, s.ttl)
		}
	}

	pipe.HIncrBy(ctx, priority, field, 1)
	if ev.Outcome != domain.OutcomeCompleted {
		pipe.HSet(ctx, priority, "depth", ev.Depth)
	}

	if id != "" {
		pipe.HSet(ctx, id, field, ev.At.UnixMilli())
		if s.ttl > 0 {
			pipe.Expire(ctx, id, s.ttl)
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}
