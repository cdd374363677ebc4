// Package kafkarecorder publishes audit events to a Kafka topic.
package kafkarecorder

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audithook "github.com/xraph/escrow/audit_hook"
)

// DefaultTopic is the topic used when none is configured.
const DefaultTopic = "escrow.audit"

var _ audithook.Recorder = (*Recorder)(nil)

// Producer is the subset of *kgo.Client the recorder needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Recorder implements audithook.Recorder by producing one JSON record per
// event. Records are keyed by resource id so events for the same order or
// registry land on the same partition.
type Recorder struct {
	producer Producer
	topic    string
	client   *kgo.Client
}

// New wraps an existing producer.
func New(p Producer, topic string) *Recorder {
	if topic == "" {
		topic = DefaultTopic
	}
	return &Recorder{producer: p, topic: topic}
}

// Dial connects to the given seed brokers and returns a Recorder that owns
// the client.
func Dial(ctx context.Context, brokers []string, topic string, opts ...kgo.Opt) (*Recorder, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafkarecorder: no seed brokers")
	}
	client, err := kgo.NewClient(append([]kgo.Opt{kgo.SeedBrokers(brokers...)}, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("kafkarecorder: create client: %w", err)
	}
	if err := client.Ping(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("kafkarecorder: ping: %w", err)
	}
	r := New(client, topic)
	r.client = client
	return r, nil
}

// Record implements audithook.Recorder.
func (r *Recorder) Record(ctx context.Context, event *audithook.AuditEvent) error {
	rec, err := BuildRecord(r.topic, event)
	if err != nil {
		return err
	}
	if err := r.producer.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("kafkarecorder: produce %s: %w", event.Action, err)
	}
	return nil
}

// Close closes the client if the recorder created it.
func (r *Recorder) Close() {
	if r.client != nil {
		r.client.Close()
	}
}

// BuildRecord encodes event as a Kafka record on topic.
func BuildRecord(topic string, event *audithook.AuditEvent) (*kgo.Record, error) {
	value, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("kafkarecorder: encode event: %w", err)
	}

	key := event.ResourceID
	if key == "" {
		key = event.ID
	}

	return &kgo.Record{
		Topic:     topic,
		Key:       []byte(key),
		Value:     value,
		Timestamp: event.Timestamp,
		Headers: []kgo.RecordHeader{
			{Key: "action", Value: []byte(event.Action)},
			{Key: "severity", Value: []byte(event.Severity)},
			{Key: "outcome", Value: []byte(event.Outcome)},
		},
	}, nil
}
