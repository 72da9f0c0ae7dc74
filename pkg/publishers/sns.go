package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

type snsClient interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// snsPublisher sends status events to a topic with a "<target>: <status>"
// subject for email and SMS subscribers.
type snsPublisher struct {
	id       string
	topicARN string
	fifo     bool
	client   snsClient
	log      Logger
}

// maxSubjectLen is the SNS subject limit.
const maxSubjectLen = 100

func newSNSPublisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.SNS == nil {
		return nil, fmt.Errorf("publisher %q missing sns configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.SNS.Region, cfg.SNS.AWSCredentials)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.SNS.Endpoint
	client := sns.NewFromConfig(awsCfg, func(o *sns.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return newSNSPublisherWithClient(cfg.ID, cfg.SNS.TopicARN, client, log), nil
}

func newSNSPublisherWithClient(id, topicARN string, client snsClient, log Logger) *snsPublisher {
	return &snsPublisher{
		id:       id,
		topicARN: topicARN,
		fifo:     strings.HasSuffix(topicARN, ".fifo"),
		client:   client,
		log:      ensureLogger(log),
	}
}

func (s *snsPublisher) ID() string   { return s.id }
func (s *snsPublisher) Type() string { return TypeSNS }

func (s *snsPublisher) Publish(ctx context.Context, evt Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	attrs := make(map[string]types.MessageAttributeValue)
	for k, v := range eventAttributes(evt) {
		attrs[k] = types.MessageAttributeValue{DataType: aws.String("String"), StringValue: aws.String(v)}
	}
	input := &sns.PublishInput{
		TopicArn:          aws.String(s.topicARN),
		Message:           aws.String(string(payload)),
		Subject:           aws.String(eventSubject(evt)),
		MessageAttributes: attrs,
	}
	if s.fifo {
		input.MessageGroupId = aws.String(evt.TargetID)
		input.MessageDeduplicationId = aws.String(dedupID(evt))
	}

	out, err := s.client.Publish(ctx, input)
	if err != nil {
		s.log.ErrorObj("sns publisher send failed", "publisher_sns_error", map[string]any{
			"publisher_id": s.id,
			"target_id":    evt.TargetID,
			"error":        err.Error(),
		})
		return fmt.Errorf("publish to sns: %w", err)
	}
	fields := map[string]any{
		"publisher_id": s.id,
		"target_id":    evt.TargetID,
	}
	if out != nil {
		fields["message_id"] = aws.ToString(out.MessageId)
	}
	s.log.DebugObj("sns publisher delivered event", "publisher_sns_delivery", fields)
	return nil
}

func eventSubject(evt Event) string {
	subject := evt.TargetID + ": " + evt.CurrentStatus
	if len(subject) > maxSubjectLen {
		subject = subject[:maxSubjectLen]
	}
	return subject
}
