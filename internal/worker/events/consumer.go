// Package events applies template-update events from Kafka to the shard
// indexes of this worker. One Consumer is the only writer of the indexes it
// feeds; records are applied in arrival order, one at a time.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/twmb/franz-go/pkg/kgo"

	"scalematch/internal/domain"
	"scalematch/internal/shard"
	"scalematch/internal/worker/events/metrics"
	dErrors "scalematch/pkg/domain-errors"
	"scalematch/pkg/platform/sentinel"
)

const (
	// DefaultTopicPrefix is prepended to the shard id to name a shard's topic.
	DefaultTopicPrefix = "templates."
	DefaultPollBackoff = time.Second
)

// Source is a committed-offset record stream.
type Source interface {
	Poll(ctx context.Context) ([]*kgo.Record, error)
	Commit(ctx context.Context) error
}

// Consumer drains a Source into a shard registry.
type Consumer struct {
	source      Source
	registry    *shard.Registry
	shards      map[string]bool
	topicPrefix string
	pollBackoff time.Duration
	clock       clockwork.Clock
	logger      *slog.Logger
	metrics     *metrics.Metrics
}

// Option configures a Consumer.
type Option func(*Consumer)

func WithTopicPrefix(prefix string) Option {
	return func(c *Consumer) {
		c.topicPrefix = prefix
	}
}

// WithPollBackoff sets the pause after a failed poll.
func WithPollBackoff(d time.Duration) Option {
	return func(c *Consumer) {
		if d > 0 {
			c.pollBackoff = d
		}
	}
}

func WithClock(clock clockwork.Clock) Option {
	return func(c *Consumer) {
		c.clock = clock
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		c.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Consumer) {
		c.metrics = m
	}
}

// New creates a consumer that applies events for shardIDs only.
func New(source Source, registry *shard.Registry, shardIDs []string, opts ...Option) (*Consumer, error) {
	if source == nil {
		return nil, errors.New("event source is required")
	}
	if registry == nil {
		return nil, errors.New("shard registry is required")
	}
	c := &Consumer{
		source:      source,
		registry:    registry,
		shards:      make(map[string]bool, len(shardIDs)),
		topicPrefix: DefaultTopicPrefix,
		pollBackoff: DefaultPollBackoff,
		clock:       clockwork.NewRealClock(),
		logger:      slog.Default(),
	}
	for _, id := range shardIDs {
		c.shards[id] = true
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Topics returns the topic names for the consumer's shards.
func Topics(prefix string, shardIDs []string) []string {
	out := make([]string, len(shardIDs))
	for i, id := range shardIDs {
		out[i] = prefix + id
	}
	return out
}

// Run polls, applies and commits until ctx is done or the source closes.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.InfoContext(ctx, "template event consumer started", "shards", len(c.shards))
	for {
		records, err := c.source.Poll(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, sentinel.ErrClosed) {
				c.logger.InfoContext(ctx, "template event consumer stopped")
				return nil
			}
			c.metrics.IncrementPollErrors()
			c.logger.WarnContext(ctx, "template event poll failed", "error", err, "backoff", c.pollBackoff)
			if !c.pause(ctx) {
				c.logger.InfoContext(ctx, "template event consumer stopped")
				return nil
			}
			continue
		}
		if len(records) == 0 {
			continue
		}
		if err := c.ApplyBatch(ctx, records); err != nil {
			return err
		}
		if err := c.source.Commit(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.logger.WarnContext(ctx, "template event commit failed", "error", err)
		}
	}
}

func (c *Consumer) pause(ctx context.Context) bool {
	t := c.clock.NewTimer(c.pollBackoff)
	defer t.Stop()
	select {
	case <-t.Chan():
		return true
	case <-ctx.Done():
		return false
	}
}

// ApplyBatch applies records in order. Invalid events are logged and
// discarded; an index that can no longer accept writes stops the batch.
func (c *Consumer) ApplyBatch(ctx context.Context, records []*kgo.Record) error {
	for _, rec := range records {
		err := c.apply(rec)
		switch {
		case err == nil:
		case errors.Is(err, domain.ErrIndexUnavailable):
			return fmt.Errorf("apply %s[%d]@%d: %w", rec.Topic, rec.Partition, rec.Offset, err)
		default:
			shardID := strings.TrimPrefix(rec.Topic, c.topicPrefix)
			c.metrics.IncrementDiscarded(shardID)
			c.logger.WarnContext(ctx, "template event discarded",
				"topic", rec.Topic,
				"partition", rec.Partition,
				"offset", rec.Offset,
				"error", err,
			)
		}
	}
	return nil
}

func (c *Consumer) apply(rec *kgo.Record) error {
	shardID, ok := strings.CutPrefix(rec.Topic, c.topicPrefix)
	if !ok || !c.shards[shardID] {
		return fmt.Errorf("%w: topic %q is not a served shard", domain.ErrInvalidEvent, rec.Topic)
	}

	var ev domain.TemplateEvent
	if err := json.Unmarshal(rec.Value, &ev); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
	}
	if err := ev.Validate(); err != nil {
		return err
	}

	idx := c.registry.GetOrCreate(shardID)
	switch ev.Op {
	case domain.OpRemove:
		if err := idx.Remove(ev.Key()); err != nil {
			return err
		}
	case domain.OpUpsert:
		if err := idx.Upsert(ev.Fingerprint()); err != nil {
			if dErrors.HasCode(err, dErrors.CodeValidation) {
				return fmt.Errorf("%w: %v", domain.ErrInvalidEvent, err)
			}
			return err
		}
	}
	c.metrics.IncrementApplied(shardID, string(ev.Op))
	return nil
}
