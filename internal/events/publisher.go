package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"
	"github.com/streamcart/order-pipeline/internal/aws"
)

// Publisher writes events to the channel. The message group id carries the
// partition key, so all events for one order stay ordered; the fresh
// deduplication id per send keeps delivery at-least-once rather than
// content-deduplicated.
type Publisher struct {
	client aws.SQSAPI
	queues QueueMap
}

// NewPublisher returns a Publisher bound to the topic->queue mapping.
func NewPublisher(client aws.SQSAPI, queues QueueMap) *Publisher {
	return &Publisher{
		client: client,
		queues: queues,
	}
}

// Publish JSON-encodes payload and sends it to the topic's queue keyed by key.
func (p *Publisher) Publish(ctx context.Context, topic Topic, key string, payload any) error {
	queueURL, ok := p.queues[topic]
	if !ok || queueURL == "" {
		return fmt.Errorf("no queue configured for topic %q", topic)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:               &queueURL,
		MessageBody:            awsString(string(body)),
		MessageGroupId:         &key,
		MessageDeduplicationId: awsString(uuid.NewString()),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"topic": {DataType: awsString("String"), StringValue: awsString(string(topic))},
			"key":   {DataType: awsString("String"), StringValue: &key},
		},
	}

	if _, err := p.client.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

// awsString helper
func awsString(s string) *string { return &s }
