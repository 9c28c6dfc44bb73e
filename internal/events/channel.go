package events

// Topic names an event stream. Each topic is backed by its own FIFO queue;
// ordering holds per message group (the order id), delivery is at-least-once.
type Topic string

const (
	TopicOrderCreated   Topic = "order-created"
	TopicOrderProcessed Topic = "order-processed"
	TopicOrderFailed    Topic = "order-failed"
)

// QueueMap resolves topics to queue URLs.
type QueueMap map[Topic]string

// Message is a single decoded delivery handed to a subscriber's handler.
type Message struct {
	Topic Topic
	Key   string
	Body  []byte
}
