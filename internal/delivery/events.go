package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// TopicNotificationCreated carries one event per delivered notification
const TopicNotificationCreated = "notification.created"

// MessageWriter is the part of kafka.Writer the adapter uses
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter creates a writer for the notification topic
func NewKafkaWriter(brokers, topic string) *kafka.Writer {
	if topic == "" {
		topic = TopicNotificationCreated
	}
	var addrs []string
	for _, b := range strings.Split(brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			addrs = append(addrs, b)
		}
	}
	return &kafka.Writer{
		Addr:                   kafka.TCP(addrs...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
}

// NotificationEvent is the published record
type NotificationEvent struct {
	ID          string    `json:"id"`
	ActorID     string    `json:"actor_id"`
	RecipientID string    `json:"recipient_id"`
	CommunityID string    `json:"community_id"`
	SubjectKind string    `json:"subject_kind"`
	SubjectID   string    `json:"subject_id"`
	Verb        string    `json:"verb"`
	Header      string    `json:"header"`
	Body        string    `json:"body"`
	URL         string    `json:"url"`
	CreatedAt   time.Time `json:"created_at"`
}

// EventAdapter publishes notifications to Kafka for other services.
// Messages are keyed by recipient so one user's events stay ordered.
type EventAdapter struct {
	writer MessageWriter
}

// NewEventAdapter creates an event adapter
func NewEventAdapter(writer MessageWriter) *EventAdapter {
	return &EventAdapter{writer: writer}
}

func (a *EventAdapter) Name() string { return "events" }

func (a *EventAdapter) Deliver(ctx context.Context, job *Job) error {
	n := job.Notification
	value, err := json.Marshal(NotificationEvent{
		ID:          n.ID,
		ActorID:     n.ActorID,
		RecipientID: n.RecipientID,
		CommunityID: n.CommunityID,
		SubjectKind: n.SubjectKind,
		SubjectID:   n.SubjectID,
		Verb:        n.Verb,
		Header:      job.Message.Header,
		Body:        job.Message.Body,
		URL:         job.Message.URL,
		CreatedAt:   n.CreatedAt,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrPermanent, err)
	}
	return a.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.RecipientID),
		Value: value,
		Time:  time.Now(),
	})
}

// Close flushes and closes the writer
func (a *EventAdapter) Close() error {
	return a.writer.Close()
}
