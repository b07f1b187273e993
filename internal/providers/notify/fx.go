package notify

import (
	"context"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/smallbiznis/shopfinder/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("providers.notify",
	fx.Provide(NewFromConfig),
)

// NewFromConfig returns the SNS provider when a topic is configured and a
// no-op provider otherwise.
func NewFromConfig(cfg config.Config, log *zap.Logger) (Provider, error) {
	if cfg.Notify.TopicARN == "" {
		log.Info("review notifications disabled")
		return NoOpProvider{}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Notify.AWSRegion != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Notify.AWSRegion))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	log.Info("review notifications enabled", zap.String("topic_arn", cfg.Notify.TopicARN))
	return NewSNS(awsCfg, cfg.Notify.TopicARN), nil
}
