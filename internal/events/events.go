// Package events announces finished uploads to downstream consumers.
package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const (
	// EventUploadFinished is emitted once per upload run, success or failure
	EventUploadFinished = "upload.finished"
	webhookTimeout      = 10 * time.Second
)

// UploadEvent is the message published for a finished upload
type UploadEvent struct {
	Event           string    `json:"event"`
	RunID           string    `json:"run_id"`
	SourceURL       string    `json:"source_url"`
	Title           string    `json:"title,omitempty"`
	Status          string    `json:"status"`
	Reason          string    `json:"reason,omitempty"`
	SellerProductID *int64    `json:"seller_product_id,omitempty"`
	FinalPrice      int       `json:"final_price,omitempty"`
	ApprovalStatus  string    `json:"approval_status,omitempty"`
	ProductURL      string    `json:"product_url,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// Publisher delivers upload events. Publishing is best effort: callers log
// errors and never fail a run because of them.
type Publisher interface {
	Publish(ctx context.Context, event UploadEvent) error
	Close() error
}

// Nop discards every event
type Nop struct{}

func (Nop) Publish(context.Context, UploadEvent) error { return nil }
func (Nop) Close() error                               { return nil }

// KafkaPublisher writes events to a Kafka topic, keyed by source URL
type KafkaPublisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewKafkaPublisher creates a publisher for topic on brokers
func NewKafkaPublisher(brokers []string, topic string, logger *zap.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: 50 * time.Millisecond,
			WriteTimeout: 10 * time.Second,
		},
		logger: logger,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event UploadEvent) error {
	msg, err := Message(event)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn("Kafka: failed to publish upload event", zap.String("topic", p.writer.Topic), zap.Error(err))
		return fmt.Errorf("failed to publish upload event: %w", err)
	}
	p.logger.Debug("Kafka: upload event published", zap.String("run_id", event.RunID))
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Message encodes event as a Kafka message with id and timestamp headers
func Message(event UploadEvent) (kafka.Message, error) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal upload event: %w", err)
	}
	return kafka.Message{
		Key:   []byte(event.SourceURL),
		Value: body,
		Time:  event.OccurredAt,
		Headers: []kafka.Header{
			{Key: "message_id", Value: []byte(uuid.NewString())},
			{Key: "event", Value: []byte(event.Event)},
			{Key: "timestamp", Value: []byte(event.OccurredAt.Format(time.RFC3339))},
		},
	}, nil
}

// WebhookPublisher posts each event as JSON to a fixed URL
type WebhookPublisher struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

// NewWebhookPublisher creates a publisher posting to url
func NewWebhookPublisher(url string, logger *zap.Logger) *WebhookPublisher {
	return &WebhookPublisher{
		url:    url,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
	}
}

func (p *WebhookPublisher) Publish(ctx context.Context, event UploadEvent) error {
	if p.url == "" {
		return nil
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal upload event: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Warn("Webhook: upload notification request failed", zap.String("url", p.url), zap.Error(err))
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("Webhook: upload notification returned non-2xx",
			zap.String("url", p.url), zap.Int("status", resp.StatusCode))
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	p.logger.Info("Webhook: upload notification sent", zap.String("url", p.url), zap.Int("status", resp.StatusCode))
	return nil
}

func (p *WebhookPublisher) Close() error { return nil }

// Multi fans an event out to every publisher and returns the first error
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event UploadEvent) error {
	var first error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, p := range m {
		if err := p.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
