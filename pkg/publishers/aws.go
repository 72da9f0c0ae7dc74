package publishers

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
)

// Message attributes attached to every AWS delivery so subscribers can
// filter without decoding the body.
const (
	attrTargetID      = "target_id"
	attrEventType     = "event_type"
	attrCurrentStatus = "current_status"
)

// loadAWSConfig resolves region and credentials, preferring static keys
// when both are configured.
func loadAWSConfig(ctx context.Context, region string, creds AWSCredentials) (aws.Config, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	opts := []func(*awscfg.LoadOptions) error{awscfg.WithRegion(region)}
	if creds.AccessKeyID != "" && creds.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		))
	}

	cfg, err := awscfg.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("load aws config: %w", err)
	}
	return cfg, nil
}

// eventAttributes lists the non-empty attribute values of evt.
func eventAttributes(evt Event) map[string]string {
	attrs := map[string]string{
		attrTargetID:      evt.TargetID,
		attrEventType:     evt.Type,
		attrCurrentStatus: evt.CurrentStatus,
	}
	for k, v := range attrs {
		if strings.TrimSpace(v) == "" {
			delete(attrs, k)
		}
	}
	return attrs
}

// dedupID identifies one transition of one target.
func dedupID(evt Event) string {
	return fmt.Sprintf("%s-%s-%d", evt.TargetID, evt.CurrentStatus, evt.EmittedAt.UnixNano())
}
