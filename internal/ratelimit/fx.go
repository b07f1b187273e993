package ratelimit

import (
	"github.com/smallbiznis/shopfinder/internal/clock"
	"github.com/smallbiznis/shopfinder/internal/config"
	shopdomain "github.com/smallbiznis/shopfinder/internal/shop/domain"
	submissiondomain "github.com/smallbiznis/shopfinder/internal/submission/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type LimiterParams struct {
	fx.In

	Config      config.Config
	Shops       shopdomain.Service
	Submissions submissiondomain.Service
	Clock       clock.Clock
	Log         *zap.Logger
}

func provideSubmissionLimiter(p LimiterParams) *SubmissionLimiter {
	return NewSubmissionLimiter(LimitsFromConfig(p.Config), p.Shops, p.Submissions, p.Clock, p.Log)
}

var Module = fx.Module("ratelimit",
	fx.Provide(NewRedisClient),
	fx.Provide(NewSubmitLocker),
	fx.Provide(NewAttemptThrottle),
	fx.Provide(provideSubmissionLimiter),
)
