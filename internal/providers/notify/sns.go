package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

// publisher is the subset of *sns.Client used here.
type publisher interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// SNSProvider publishes events as JSON to a single topic. Subscribers can
// filter on the "event" message attribute.
type SNSProvider struct {
	client   publisher
	topicARN string
}

func NewSNS(cfg aws.Config, topicARN string) *SNSProvider {
	return &SNSProvider{client: sns.NewFromConfig(cfg), topicARN: strings.TrimSpace(topicARN)}
}

func (p *SNSProvider) Notify(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(subjectFor(event)),
		Message:  aws.String(string(body)),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"event": {
				DataType:    aws.String("String"),
				StringValue: aws.String(string(event.Kind)),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", event.Kind, err)
	}
	return nil
}

// SNS subjects must be printable ASCII, at most 100 characters.
func subjectFor(event Event) string {
	var subject string
	switch event.Kind {
	case EventQueued:
		subject = "Shop submission awaiting review: " + event.BrandKey
	case EventChainBlocked:
		subject = "Chain submission blocked: " + event.BrandKey
	default:
		subject = "Shopfinder notification"
	}
	subject = strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e {
			return '?'
		}
		return r
	}, subject)
	if len(subject) > 100 {
		subject = subject[:100]
	}
	return subject
}
