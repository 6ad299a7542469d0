package cloud

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
)

// SNSClient publishes operator notices to one topic.
type SNSClient struct {
	svc      *sns.Client
	topicArn string
}

func NewSNSClient(cfg aws.Config, topicArn string) *SNSClient {
	return &SNSClient{svc: sns.NewFromConfig(cfg), topicArn: topicArn}
}

// Publish returns the SNS message id.
func (c *SNSClient) Publish(ctx context.Context, subject, message string) (string, error) {
	out, err := c.svc.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(c.topicArn),
		Subject:  aws.String(subject),
		Message:  aws.String(message),
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish to SNS: %w", err)
	}
	return aws.ToString(out.MessageId), nil
}

// SendBackupNotice announces a completed export.
func (c *SNSClient) SendBackupNotice(ctx context.Context, key string, size int, url string) error {
	_, err := c.Publish(ctx, "Solar monitor: database backup stored", BackupNotice(key, size, url, time.Now()))
	return err
}

// BackupNotice formats the notification body.
func BackupNotice(key string, size int, url string, at time.Time) string {
	return fmt.Sprintf(
		"Database backup completed\n\n"+
			"Object: %s\n"+
			"Size: %d bytes\n"+
			"Time: %s\n\n"+
			"Download (valid %s): %s",
		key,
		size,
		at.UTC().Format(time.RFC3339),
		presignTTL,
		url,
	)
}
