package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/recurra/internal/config"
)

const projectionKeyPrefix = "recurra:rl:projection"

var ErrInvalidTeam = errors.New("invalid_team")

// ProjectionLimiter throttles expensive range projections per team.
type ProjectionLimiter struct {
	bucket  *TokenBucket
	rate    float64
	burst   int
	enabled bool
}

func NewProjectionLimiter(client *redis.Client, cfg config.Config) *ProjectionLimiter {
	limiter := &ProjectionLimiter{
		bucket: NewTokenBucket(client),
		rate:   cfg.ProjectionRatePerSecond,
		burst:  cfg.ProjectionBurst,
	}
	limiter.enabled = limiter.bucket != nil && limiter.rate > 0 && limiter.burst > 0
	return limiter
}

func (l *ProjectionLimiter) Enabled() bool {
	return l != nil && l.enabled
}

// Allow consumes one token for teamID. A disabled limiter always allows.
func (l *ProjectionLimiter) Allow(ctx context.Context, teamID string) (*RateLimitResult, error) {
	teamID = strings.TrimSpace(teamID)
	if teamID == "" {
		return &RateLimitResult{Allowed: false}, ErrInvalidTeam
	}
	if !l.Enabled() {
		return &RateLimitResult{Allowed: true}, nil
	}
	return l.bucket.Allow(ctx, projectionKey(teamID), l.rate, l.burst)
}

func projectionKey(teamID string) string {
	return fmt.Sprintf("%s:%s", projectionKeyPrefix, teamID)
}
