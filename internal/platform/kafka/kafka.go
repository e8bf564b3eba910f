// Package kafka wraps franz-go for the three streams this system uses:
// match requests in, match results out, and per-shard template events in.
package kafka

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	"scalematch/pkg/platform/sentinel"
)

// Config is the broker connection shared by every client.
type Config struct {
	Brokers  []string
	ClientID string
}

func (c Config) baseOpts() []kgo.Opt {
	opts := []kgo.Opt{kgo.SeedBrokers(c.Brokers...)}
	if c.ClientID != "" {
		opts = append(opts, kgo.ClientID(c.ClientID))
	}
	return opts
}

// Consumer is a group consumer with manual offset commits. Offsets of
// polled records are committed only when Commit is called, so a crash
// between Poll and Commit replays the batch.
type Consumer struct {
	client  *kgo.Client
	grouped bool
}

// NewConsumer joins group and subscribes to topics.
func NewConsumer(cfg Config, group string, topics []string, opts ...kgo.Opt) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if group == "" || len(topics) == 0 {
		return nil, errors.New("consumer group and topics are required")
	}
	all := append(cfg.baseOpts(),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	cl, err := kgo.NewClient(append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	return &Consumer{client: cl, grouped: true}, nil
}

// NewReplayConsumer reads topics from the beginning without a consumer
// group, so every instance sees every partition. Used for compacted
// topics whose full contents are materialized locally; Commit is a no-op.
func NewReplayConsumer(cfg Config, topics []string, opts ...kgo.Opt) (*Consumer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if len(topics) == 0 {
		return nil, errors.New("topics are required")
	}
	all := append(cfg.baseOpts(),
		kgo.ConsumeTopics(topics...),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	cl, err := kgo.NewClient(append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka replay consumer: %w", err)
	}
	return &Consumer{client: cl}, nil
}

// Poll blocks until records are available or ctx is done. It returns
// sentinel.ErrClosed once the client has been closed.
func (c *Consumer) Poll(ctx context.Context) ([]*kgo.Record, error) {
	fetches := c.client.PollFetches(ctx)
	if fetches.IsClientClosed() {
		return nil, sentinel.ErrClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var errs []error
	fetches.EachError(func(topic string, partition int32, err error) {
		errs = append(errs, fmt.Errorf("fetch %s[%d]: %w", topic, partition, err))
	})
	records := fetches.Records()
	if len(records) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	return records, nil
}

// Commit commits the offsets of every record returned by Poll so far.
func (c *Consumer) Commit(ctx context.Context) error {
	if !c.grouped {
		return nil
	}
	if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
		return fmt.Errorf("commit offsets: %w", err)
	}
	return nil
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}

// Producer publishes keyed records to one topic.
type Producer struct {
	client *kgo.Client
	topic  string
}

// NewProducer creates a producer for topic. Writes require acks from all
// in-sync replicas and are idempotent.
func NewProducer(cfg Config, topic string, opts ...kgo.Opt) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}
	all := append(cfg.baseOpts(), kgo.DefaultProduceTopic(topic), kgo.RequiredAcks(kgo.AllISRAcks()))
	cl, err := kgo.NewClient(append(all, opts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return &Producer{client: cl, topic: topic}, nil
}

// Publish writes one record and waits for the broker acknowledgement.
func (p *Producer) Publish(ctx context.Context, key, value []byte) error {
	rec := &kgo.Record{Topic: p.topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, rec).FirstErr(); err != nil {
		return fmt.Errorf("publish to %s: %w", p.topic, err)
	}
	return nil
}

// Close flushes pending writes and closes the client.
func (p *Producer) Close() {
	p.client.Close()
}

// Admin checks and provisions topics.
type Admin struct {
	client *kgo.Client
	adm    *kadm.Client
}

// NewAdmin creates an admin client.
func NewAdmin(cfg Config) (*Admin, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	cl, err := kgo.NewClient(cfg.baseOpts()...)
	if err != nil {
		return nil, fmt.Errorf("create kafka admin: %w", err)
	}
	return &Admin{client: cl, adm: kadm.NewClient(cl)}, nil
}

// MissingTopics returns the topics in want that the cluster does not have.
func (a *Admin) MissingTopics(ctx context.Context, want ...string) ([]string, error) {
	details, err := a.adm.ListTopics(ctx, want...)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	var missing []string
	for _, t := range want {
		d, ok := details[t]
		if !ok || d.Err != nil {
			missing = append(missing, t)
		}
	}
	slices.Sort(missing)
	return missing, nil
}

// RequireTopics fails with a list of absent topics. Provisioning is owned by
// the platform, so the services only check.
func (a *Admin) RequireTopics(ctx context.Context, want ...string) error {
	missing, err := a.MissingTopics(ctx, want...)
	if err != nil {
		return err
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing kafka topics %s", sentinel.ErrNotFound, strings.Join(missing, ", "))
	}
	return nil
}

// CreateTopics creates topics that do not exist yet. Used by local
// environments and integration tests.
func (a *Admin) CreateTopics(ctx context.Context, partitions int32, replicas int16, topics ...string) error {
	resp, err := a.adm.CreateTopics(ctx, partitions, replicas, nil, topics...)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}

// Close closes the admin client.
func (a *Admin) Close() {
	a.client.Close()
}

// EnsureTopics creates whichever of topics are missing.
func (a *Admin) EnsureTopics(ctx context.Context, partitions int32, replicas int16, topics ...string) error {
	missing, err := a.MissingTopics(ctx, topics...)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	return a.CreateTopics(ctx, partitions, replicas, missing...)
}
