package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/resto-ai/support-engine/internal/model"
)

const (
	// StreamName is the name of the support stream.
	StreamName = "SUPPORT"

	// SubjectPrefix is the prefix for all support subjects.
	SubjectPrefix = "support"
)

// StreamManager handles JetStream stream operations for the support
// domain: ticket records, ticket messages and the agent queue. Payloads
// are append-only; updates are new records, never edits.
type StreamManager struct {
	client *Client
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client}
}

// EnsureStream ensures the support stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      365 * 24 * time.Hour,
		MaxBytes:    10 * 1024 * 1024 * 1024, // 10GB
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Support tickets, ticket messages and agent queue",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// TicketSubject returns the subject for ticket records.
func TicketSubject(ticketID string) string {
	return fmt.Sprintf("%s.ticket.%s.meta", SubjectPrefix, ticketID)
}

// TicketMessageSubject returns the subject for a ticket message.
func TicketMessageSubject(ticketID string, author model.AuthorType) string {
	return fmt.Sprintf("%s.ticket.%s.msg.%s", SubjectPrefix, ticketID, author)
}

// TicketMessageFilter returns the filter subject for all messages on a
// ticket thread.
func TicketMessageFilter(ticketID string) string {
	return fmt.Sprintf("%s.ticket.%s.msg.>", SubjectPrefix, ticketID)
}

// AgentQueueSubject is the subject agent queue entries are published to.
func AgentQueueSubject() string {
	return fmt.Sprintf("%s.agentqueue", SubjectPrefix)
}

// NotificationSubject returns the subject for outbound notifications.
func NotificationSubject(kind string) string {
	return fmt.Sprintf("%s.notify.%s", SubjectPrefix, kind)
}

// Publish publishes a raw payload and returns its stream sequence.
func (m *StreamManager) Publish(ctx context.Context, subject string, data []byte) (uint64, error) {
	ack, err := m.client.JetStream().Publish(ctx, subject, data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return ack.Sequence, nil
}

// FetchAll reads up to limit payloads on a filter subject, oldest first.
// It returns the raw payloads with their stream sequences.
func (m *StreamManager) FetchAll(ctx context.Context, filterSubject string, afterSequence uint64, limit int) ([][]byte, []uint64, error) {
	js := m.client.JetStream()

	consumerConfig := jetstream.ConsumerConfig{
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
	}
	if afterSequence > 0 {
		consumerConfig.DeliverPolicy = jetstream.DeliverByStartSequencePolicy
		consumerConfig.OptStartSeq = afterSequence + 1
	}

	consumer, err := js.CreateConsumer(ctx, StreamName, consumerConfig)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(limit, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fetch: %w", err)
	}

	var payloads [][]byte
	var sequences []uint64
	for msg := range batch.Messages() {
		payloads = append(payloads, msg.Data())
		seq := uint64(0)
		if meta, err := msg.Metadata(); err == nil {
			seq = meta.Sequence.Stream
		}
		sequences = append(sequences, seq)
	}
	if batch.Error() != nil && batch.Error() != context.DeadlineExceeded {
		return nil, nil, fmt.Errorf("batch error: %w", batch.Error())
	}

	return payloads, sequences, nil
}

// FetchLast reads the most recent payload on a filter subject, or nil
// when nothing has been published.
func (m *StreamManager) FetchLast(ctx context.Context, filterSubject string) ([]byte, uint64, error) {
	js := m.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverLastPolicy,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create consumer: %w", err)
	}

	batch, err := consumer.Fetch(1, jetstream.FetchMaxWait(2*time.Second))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch: %w", err)
	}
	for msg := range batch.Messages() {
		seq := uint64(0)
		if meta, err := msg.Metadata(); err == nil {
			seq = meta.Sequence.Stream
		}
		return msg.Data(), seq, nil
	}
	return nil, 0, nil
}

// Subscribe delivers every new payload on a filter subject to the
// callback until the context is cancelled. Used for live agent replies.
func (m *StreamManager) Subscribe(ctx context.Context, filterSubject string, callback func(data []byte, sequence uint64)) error {
	js := m.client.JetStream()

	consumer, err := js.CreateConsumer(ctx, StreamName, jetstream.ConsumerConfig{
		FilterSubject: filterSubject,
		AckPolicy:     jetstream.AckNonePolicy,
		DeliverPolicy: jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer: %w", err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		seq := uint64(0)
		if meta, err := msg.Metadata(); err == nil {
			seq = meta.Sequence.Stream
		}
		callback(msg.Data(), seq)
	})
	if err != nil {
		return fmt.Errorf("failed to consume: %w", err)
	}

	go func() {
		<-ctx.Done()
		cc.Stop()
	}()
	return nil
}
