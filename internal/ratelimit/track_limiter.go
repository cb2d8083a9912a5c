package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/prepdeck/metering/internal/config"
	redis "github.com/redis/go-redis/v9"
)

const keyTrackIdentity = "usage:track:%s"

// TrackLimiter throttles the track endpoint per identity (account id or
// fingerprint). Quota enforcement itself lives in the policy engine; this
// only guards against request floods.
type TrackLimiter struct {
	enabled bool

	bucket *TokenBucket

	rate  float64
	burst int
}

func NewTrackLimiter(cfg config.Config) (*TrackLimiter, error) {
	limitCfg := cfg.RateLimit
	if !limitCfg.Enabled {
		return nil, nil
	}

	addr := strings.TrimSpace(limitCfg.RedisAddr)
	if addr == "" {
		return nil, errors.New("rate limit redis addr is required")
	}
	if limitCfg.TrackRate <= 0 || limitCfg.TrackBurst <= 0 {
		return nil, errors.New("track rate limit must be positive")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     strings.TrimSpace(limitCfg.RedisPassword),
		DB:           limitCfg.RedisDB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	})

	return &TrackLimiter{
		enabled: true,
		bucket:  NewTokenBucket(client),
		rate:    limitCfg.TrackRate,
		burst:   limitCfg.TrackBurst,
	}, nil
}

func (l *TrackLimiter) Enabled() bool {
	return l != nil && l.enabled
}

func (l *TrackLimiter) Allow(ctx context.Context, identity string) (bool, error) {
	if !l.Enabled() {
		return true, nil
	}
	return l.bucket.Allow(ctx, fmt.Sprintf(keyTrackIdentity, strings.TrimSpace(identity)), l.rate, l.burst)
}
