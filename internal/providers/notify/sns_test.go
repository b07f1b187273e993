package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/smallbiznis/shopfinder/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fakePublisher struct {
	inputs []*sns.PublishInput
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.inputs = append(f.inputs, params)
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("m-1")}, nil
}

func TestSNSProviderPublishesEvent(t *testing.T) {
	pub := &fakePublisher{}
	p := &SNSProvider{client: pub, topicARN: "arn:aws:sns:us-east-1:123:review"}

	err := p.Notify(context.Background(), Event{
		Kind:         EventQueued,
		SubmissionID: "99",
		BrandKey:     "hoagie hut",
		Score:        65,
		Decision:     "review",
		Reasons:      []string{"known_brand_count_between_5_and_9"},
		OccurredAt:   time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, pub.inputs, 1)

	in := pub.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123:review", aws.ToString(in.TopicArn))
	assert.Equal(t, "Shop submission awaiting review: hoagie hut", aws.ToString(in.Subject))
	assert.Equal(t, "submission_queued", aws.ToString(in.MessageAttributes["event"].StringValue))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &decoded))
	assert.Equal(t, "99", decoded.SubmissionID)
	assert.Equal(t, 65, decoded.Score)
}

func TestSNSProviderWrapsError(t *testing.T) {
	p := &SNSProvider{client: &fakePublisher{err: errors.New("throttled")}, topicARN: "arn"}
	err := p.Notify(context.Background(), Event{Kind: EventChainBlocked})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain_blocked")
}

func TestSubjectIsBounded(t *testing.T) {
	subject := subjectFor(Event{Kind: EventChainBlocked, BrandKey: strings.Repeat("b", 200)})
	assert.Len(t, subject, 100)
}

func TestNewFromConfigWithoutTopic(t *testing.T) {
	p, err := NewFromConfig(config.Config{}, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.IsType(t, NoOpProvider{}, p)
	assert.NoError(t, p.Notify(context.Background(), Event{}))
}

func TestSubjectIsASCII(t *testing.T) {
	assert.Equal(t, "Chain submission blocked: ?? deli", subjectFor(Event{Kind: EventChainBlocked, BrandKey: "汉堡 deli"}))
}
