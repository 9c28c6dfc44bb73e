package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/streamcart/order-pipeline/internal/aws"
)

const (
	receiveWaitSeconds = 20
	receiveBatchSize   = 10
	receiveBackoff     = time.Second
)

// Handler processes one decoded delivery. A returned error is logged; the
// message is still committed, so a poison message never loops forever.
// Redelivery happens only when the process dies mid-handle.
type Handler func(ctx context.Context, msg Message) error

// Subscriber drives the consume loop for one topic's queue.
type Subscriber struct {
	client   aws.SQSAPI
	topic    Topic
	queueURL string
	handler  Handler
	logger   *slog.Logger
}

// NewSubscriber returns a Subscriber for the topic's queue.
func NewSubscriber(client aws.SQSAPI, topic Topic, queueURL string, handler Handler, logger *slog.Logger) *Subscriber {
	return &Subscriber{
		client:   client,
		topic:    topic,
		queueURL: queueURL,
		handler:  handler,
		logger:   logger,
	}
}

// Run long-polls the queue until ctx is cancelled. Each message is handled to
// completion, then deleted; the delete after handling is the channel's commit.
// Receive errors are logged and retried, never fatal. Run returns after the
// in-flight batch finishes, so shutdown drains cleanly.
func (s *Subscriber) Run(ctx context.Context) error {
	s.logger.Info("subscriber started", slog.String("topic", string(s.topic)))
	for {
		if ctx.Err() != nil {
			s.logger.Info("subscriber stopped", slog.String("topic", string(s.topic)))
			return nil
		}

		out, err := s.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              &s.queueURL,
			WaitTimeSeconds:       receiveWaitSeconds,
			MaxNumberOfMessages:   receiveBatchSize,
			MessageAttributeNames: []string{"topic", "key"},
		})
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				s.logger.Info("subscriber stopped", slog.String("topic", string(s.topic)))
				return nil
			}
			s.logger.Error("receive failed", slog.String("topic", string(s.topic)), slog.String("error", err.Error()))
			select {
			case <-ctx.Done():
			case <-time.After(receiveBackoff):
			}
			continue
		}

		for _, raw := range out.Messages {
			msg := Message{Topic: s.topic}
			if raw.Body != nil {
				msg.Body = []byte(*raw.Body)
			}
			if attr, ok := raw.MessageAttributes["key"]; ok && attr.StringValue != nil {
				msg.Key = *attr.StringValue
			}

			if err := s.safeHandle(ctx, msg); err != nil {
				s.logger.Error("message handling failed",
					slog.String("topic", string(s.topic)),
					slog.String("key", msg.Key),
					slog.String("error", err.Error()))
			}

			// commit: the message is handled, whether it succeeded or not
			if _, err := s.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
				QueueUrl:      &s.queueURL,
				ReceiptHandle: raw.ReceiptHandle,
			}); err != nil {
				s.logger.Error("delete failed, message will redeliver",
					slog.String("topic", string(s.topic)),
					slog.String("key", msg.Key),
					slog.String("error", err.Error()))
			}
		}
	}
}

// safeHandle isolates the handler so a panic in one message cannot take down
// the consume loop.
func (s *Subscriber) safeHandle(ctx context.Context, msg Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return s.handler(ctx, msg)
}
