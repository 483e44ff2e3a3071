package proctor

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pavelanni/interviewer/internal/model"
)

const (
	fieldTab    = "tab_switch_count"
	fieldMulti  = "multiple_faces"
	fieldFace   = "face_coverings"
	fieldEyes   = "eye_coverings"
	fieldNoFace = "no_face_count"
	fieldTotal  = "total_alerts"
)

// RedisCounters keeps counters in a Redis hash per session so several
// server instances can share them.
type RedisCounters struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisClient parses url and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisCounters stores counters in rdb. Keys expire ttl after the last
// write; ttl <= 0 disables expiry.
func NewRedisCounters(rdb *redis.Client, ttl time.Duration) *RedisCounters {
	return &RedisCounters{rdb: rdb, ttl: ttl}
}

func key(sessionID string) string {
	return "interview:" + sessionID + ":proctoring"
}

func (r *RedisCounters) Add(ctx context.Context, sessionID string, d model.ProctoringStats) error {
	k := key(sessionID)
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for field, n := range map[string]int{
			fieldTab: d.TabSwitchCount, fieldMulti: d.MultipleFaces, fieldFace: d.FaceCoverings,
			fieldEyes: d.EyeCoverings, fieldNoFace: d.NoFaceCount, fieldTotal: d.TotalAlerts,
		} {
			if n > 0 {
				pipe.HIncrBy(ctx, k, field, int64(n))
			}
		}
		if r.ttl > 0 {
			pipe.Expire(ctx, k, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("increment proctoring counters: %w", err)
	}
	return nil
}

func (r *RedisCounters) Snapshot(ctx context.Context, sessionID string) (model.ProctoringStats, error) {
	vals, err := r.rdb.HGetAll(ctx, key(sessionID)).Result()
	if err != nil {
		return model.ProctoringStats{}, fmt.Errorf("read proctoring counters: %w", err)
	}
	get := func(f string) int {
		n, _ := strconv.Atoi(vals[f])
		return n
	}
	return model.ProctoringStats{
		TabSwitchCount: get(fieldTab),
		MultipleFaces:  get(fieldMulti),
		FaceCoverings:  get(fieldFace),
		EyeCoverings:   get(fieldEyes),
		NoFaceCount:    get(fieldNoFace),
		TotalAlerts:    get(fieldTotal),
	}, nil
}

func (r *RedisCounters) Delete(ctx context.Context, sessionID string) error {
	if err := r.rdb.Del(ctx, key(sessionID)).Err(); err != nil {
		return fmt.Errorf("delete proctoring counters: %w", err)
	}
	return nil
}
