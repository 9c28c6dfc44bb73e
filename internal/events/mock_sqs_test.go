package events

import (
	"context"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// mockSQS is a minimal in-memory queue for publisher/subscriber tests.
type mockSQS struct {
	mu      sync.Mutex
	sent    []sentMessage
	pending []sqstypes.Message
	sendErr error

	deletedCh chan string
}

type sentMessage struct {
	QueueURL string
	GroupID  string
	Body     string
}

func newMockSQS() *mockSQS {
	return &mockSQS{deletedCh: make(chan string, 16)}
}

func (m *mockSQS) enqueue(key, body string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	handle := fmt.Sprintf("rh-%d", len(m.pending))
	m.pending = append(m.pending, sqstypes.Message{
		Body:          &body,
		ReceiptHandle: &handle,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"key": {StringValue: &key},
		},
	})
}

func (m *mockSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sendErr != nil {
		return nil, m.sendErr
	}
	sm := sentMessage{}
	if params.QueueUrl != nil {
		sm.QueueURL = *params.QueueUrl
	}
	if params.MessageGroupId != nil {
		sm.GroupID = *params.MessageGroupId
	}
	if params.MessageBody != nil {
		sm.Body = *params.MessageBody
	}
	m.sent = append(m.sent, sm)
	return &sqs.SendMessageOutput{}, nil
}

// ReceiveMessage drains pending messages; once empty it blocks until the
// context is cancelled, like a long poll with nothing to deliver.
func (m *mockSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	m.mu.Lock()
	if len(m.pending) > 0 {
		n := len(m.pending)
		if params.MaxNumberOfMessages > 0 && n > int(params.MaxNumberOfMessages) {
			n = int(params.MaxNumberOfMessages)
		}
		batch := m.pending[:n]
		m.pending = m.pending[n:]
		m.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	m.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (m *mockSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if params.ReceiptHandle != nil {
		m.deletedCh <- *params.ReceiptHandle
	}
	return &sqs.DeleteMessageOutput{}, nil
}
