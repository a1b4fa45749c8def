package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// TaskDataField is the field name for serialized task data in stream messages.
	TaskDataField = "task"

	// EnqueuedAtField is the field name for enqueue timestamp.
	EnqueuedAtField = "enqueued_at"

	// Default max stream length to prevent unbounded growth.
	defaultMaxStreamLen = 10000
)

// CrawlTaskMessage is the wire format consumed by the legacy crawler
// workers.
type CrawlTaskMessage struct {
	TaskID      string   `json:"task_id"`
	ConfigID    int64    `json:"config_id"`
	TargetURLs  []string `json:"target_urls"`
	TriggerType string   `json:"trigger_type"`
	Timestamp   int64    `json:"timestamp"`
}

// Producer handles enqueueing crawl tasks to Redis Streams.
type Producer struct {
	client       *StreamsClient
	maxStreamLen int64
}

// ProducerConfig holds configuration for the Producer.
type ProducerConfig struct {
	MaxStreamLen int64 // Maximum stream length (0 = default)
}

// NewProducer creates a new crawl task producer.
func NewProducer(client *StreamsClient, cfg ProducerConfig) *Producer {
	maxLen := cfg.MaxStreamLen
	if maxLen <= 0 {
		maxLen = defaultMaxStreamLen
	}

	return &Producer{
		client:       client,
		maxStreamLen: maxLen,
	}
}

// UnavailableProducer stands in for a Producer when Redis could not be
// reached. Every enqueue fails with a clear message.
type UnavailableProducer struct{}

// Enqueue always fails.
func (UnavailableProducer) Enqueue(context.Context, *CrawlTaskMessage) (string, error) {
	return "", errors.New("legacy crawl transport unavailable: redis not connected")
}

// Enqueue publishes a crawl task for the legacy workers and returns the
// stream message ID.
func (p *Producer) Enqueue(ctx context.Context, task *CrawlTaskMessage) (string, error) {
	if task == nil {
		return "", errors.New("task cannot be nil")
	}

	taskData, marshalErr := json.Marshal(task)
	if marshalErr != nil {
		return "", fmt.Errorf("failed to serialize task: %w", marshalErr)
	}

	values := map[string]any{
		TaskDataField:   string(taskData),
		EnqueuedAtField: time.Now().UTC().Format(time.RFC3339),
	}

	stream := p.client.Stream()
	messageID, addErr := p.client.XAdd(ctx, stream, p.maxStreamLen, values)
	if addErr != nil {
		return "", fmt.Errorf("failed to enqueue task to stream %s: %w", stream, addErr)
	}

	return messageID, nil
}
