package basket

import (
	"context"
	"encoding/json"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/sirupsen/logrus"

	"github.com/vibast-solutions/ms-go-donations/app/factory"
)

const (
	sendAttempts = 3
	retryDelay   = 5 * time.Second
)

type sqsAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Client ships canonical transaction records to the CRM ingest queue.
// Delivery is best effort: transient failures are retried a fixed number
// of times, then logged and swallowed. A missing queue URL disables the
// client entirely, which keeps local development usable without AWS.
type Client struct {
	api      sqsAPI
	queueURL string
	logger   logrus.FieldLogger

	sleep func(time.Duration)
}

type Config struct {
	QueueURL        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	client := &Client{
		queueURL: cfg.QueueURL,
		logger:   factory.NewModuleLogger("basket-client"),
		sleep:    time.Sleep,
	}
	if cfg.QueueURL == "" {
		return client, nil
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	client.api = sqs.NewFromConfig(awsCfg)

	return client, nil
}

// NewClientWithAPI wires a prebuilt queue API, used by tests and by the
// worker wiring when the AWS config is shared.
func NewClientWithAPI(api sqsAPI, queueURL string) *Client {
	return &Client{
		api:      api,
		queueURL: queueURL,
		logger:   factory.NewModuleLogger("basket-client"),
		sleep:    time.Sleep,
	}
}

// Send serializes the record with deterministic key ordering and submits
// it to the queue. Failure after the final attempt is logged, not
// returned: record delivery never fails a donation.
func (c *Client) Send(ctx context.Context, record interface{}) error {
	if c.api == nil || c.queueURL == "" {
		return nil
	}

	body, err := canonicalJSON(record)
	if err != nil {
		return err
	}

	var lastErr error
	for attempt := 1; attempt <= sendAttempts; attempt++ {
		_, lastErr = c.api.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(c.queueURL),
			MessageBody: aws.String(string(body)),
		})
		if lastErr == nil {
			return nil
		}
		if attempt < sendAttempts {
			c.sleep(retryDelay)
		}
	}

	c.logger.WithError(lastErr).WithField("attempts", sendAttempts).Error("basket_send_failed")
	return nil
}

// canonicalJSON re-encodes the record with its top-level keys sorted so
// queue consumers and tests see a stable byte layout.
func canonicalJSON(record interface{}) ([]byte, error) {
	raw, err := json.Marshal(record)
	if err != nil {
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]byte, 0, len(raw))
	out = append(out, '{')
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		out = append(out, name...)
		out = append(out, ':')
		out = append(out, fields[k]...)
	}
	out = append(out, '}')

	return out, nil
}
