// Package config loads process configuration from the environment.
//
// Both binaries share Matching, Kafka and Logging; the master adds Breaker,
// Leader, Redis and the worker list, the worker adds its shard set.
package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	pstrings "scalematch/pkg/platform/strings"
)

// MatchingConfig holds ANN, scoring and decision parameters.
type MatchingConfig struct {
	Dimension       int           `env:"VECTOR_DIMENSION, default=512"`
	TopK            int           `env:"ANN_TOP_K, default=50"`
	ANNFloor        int           `env:"ANN_FLOOR, default=60"`
	QualityFloor    int           `env:"QUALITY_FLOOR, default=40"`
	MatchThreshold  int           `env:"MATCH_THRESHOLD, default=80"`
	AmbiguityMargin int           `env:"AMBIGUITY_MARGIN, default=5"`
	WeightANN       float64       `env:"WEIGHT_ANN, default=0.3"`
	WeightExact     float64       `env:"WEIGHT_EXACT, default=0.7"`
	ResponseCap     int           `env:"RESPONSE_CAP, default=10"`
	Deadline        time.Duration `env:"REQUEST_DEADLINE, default=2s"`
}

// BreakerConfig configures the per-worker circuit breakers.
type BreakerConfig struct {
	FailureThreshold int           `env:"BREAKER_FAILURE_THRESHOLD, default=5"`
	Window           time.Duration `env:"BREAKER_WINDOW, default=30s"`
	Cooldown         time.Duration `env:"BREAKER_COOLDOWN, default=10s"`
}

// LeaderConfig configures the master lease.
type LeaderConfig struct {
	LeaseName     string        `env:"LEADER_LEASE_NAME, default=scalematch-master"`
	Identity      string        `env:"LEADER_IDENTITY"`
	TTL           time.Duration `env:"LEADER_TTL, default=10s"`
	RenewInterval time.Duration `env:"LEADER_RENEW_INTERVAL, default=3s"`
	RetryInterval time.Duration `env:"LEADER_RETRY_INTERVAL, default=1s"`
	// Memory uses a process-local lease store; single-node runs only.
	Memory bool `env:"LEADER_MEMORY_STORE, default=false"`
}

// KafkaConfig names the brokers and topics.
type KafkaConfig struct {
	Brokers        []string `env:"KAFKA_BROKERS"`
	ClientID       string   `env:"KAFKA_CLIENT_ID, default=scalematch"`
	RequestTopic   string   `env:"KAFKA_REQUEST_TOPIC, default=match.requests"`
	ResultTopic    string   `env:"KAFKA_RESULT_TOPIC, default=match.results"`
	TemplatePrefix string   `env:"KAFKA_TEMPLATE_TOPIC_PREFIX, default=templates."`
	Group          string   `env:"KAFKA_GROUP"`
	EnsureTopics   bool     `env:"KAFKA_ENSURE_TOPICS, default=false"`
}

// RedisConfig configures the lease store connection.
type RedisConfig struct {
	URL          string        `env:"REDIS_URL"`
	PoolSize     int           `env:"REDIS_POOL_SIZE, default=10"`
	MinIdleConns int           `env:"REDIS_MIN_IDLE_CONNS, default=2"`
	DialTimeout  time.Duration `env:"REDIS_DIAL_TIMEOUT, default=5s"`
	ReadTimeout  time.Duration `env:"REDIS_READ_TIMEOUT, default=3s"`
	WriteTimeout time.Duration `env:"REDIS_WRITE_TIMEOUT, default=3s"`
}

// Master is the configuration of cmd/master.
type Master struct {
	Addr           string        `env:"MASTER_ADDR, default=:8080"`
	LogLevel       string        `env:"LOG_LEVEL, default=info"`
	Workers        string        `env:"WORKERS, required"`
	Concurrency    int           `env:"INTAKE_CONCURRENCY, default=16"`
	HealthInterval time.Duration `env:"WORKER_HEALTH_INTERVAL, default=5s"`

	Matching MatchingConfig
	Breaker  BreakerConfig
	Leader   LeaderConfig
	Kafka    KafkaConfig
	Redis    RedisConfig
}

// Worker is the configuration of cmd/worker.
type Worker struct {
	Addr        string   `env:"WORKER_ADDR, default=:8081"`
	LogLevel    string   `env:"LOG_LEVEL, default=info"`
	ShardIDs    []string `env:"WORKER_SHARDS, required"`
	SnapshotDir string   `env:"WORKER_SNAPSHOT_DIR"`

	Matching MatchingConfig
	Kafka    KafkaConfig
}

// LoadMaster reads the master configuration from the environment.
func LoadMaster(ctx context.Context) (*Master, error) {
	return loadMaster(ctx, envconfig.OsLookuper())
}

// LoadWorker reads the worker configuration from the environment.
func LoadWorker(ctx context.Context) (*Worker, error) {
	return loadWorker(ctx, envconfig.OsLookuper())
}

func loadMaster(ctx context.Context, l envconfig.Lookuper) (*Master, error) {
	var cfg Master
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load master config: %w", err)
	}
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	if cfg.Kafka.Group == "" {
		cfg.Kafka.Group = "scalematch-master"
	}
	if err := cfg.Matching.validate(); err != nil {
		return nil, err
	}
	if err := cfg.Leader.validate(); err != nil {
		return nil, err
	}
	if !cfg.Leader.Memory && cfg.Redis.URL == "" {
		return nil, errors.New("REDIS_URL is required unless LEADER_MEMORY_STORE is set")
	}
	if cfg.Breaker.FailureThreshold <= 0 {
		return nil, errors.New("BREAKER_FAILURE_THRESHOLD must be positive")
	}
	return &cfg, nil
}

func loadWorker(ctx context.Context, l envconfig.Lookuper) (*Worker, error) {
	var cfg Worker
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("load worker config: %w", err)
	}
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	cfg.ShardIDs = pstrings.DedupeAndTrim(cfg.ShardIDs)
	if len(cfg.ShardIDs) == 0 {
		return nil, errors.New("WORKER_SHARDS must name at least one shard")
	}
	if err := cfg.Matching.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (m MatchingConfig) validate() error {
	switch {
	case m.Dimension <= 0:
		return errors.New("VECTOR_DIMENSION must be positive")
	case m.TopK <= 0:
		return errors.New("ANN_TOP_K must be positive")
	case m.ANNFloor < 0 || m.ANNFloor > 100:
		return errors.New("ANN_FLOOR must be within 0..100")
	case m.QualityFloor < 0 || m.QualityFloor > 100:
		return errors.New("QUALITY_FLOOR must be within 0..100")
	case m.Deadline <= 0:
		return errors.New("REQUEST_DEADLINE must be positive")
	}
	return nil
}

func (l LeaderConfig) validate() error {
	if l.RenewInterval <= 0 || l.RetryInterval <= 0 {
		return errors.New("LEADER_RENEW_INTERVAL and LEADER_RETRY_INTERVAL must be positive")
	}
	if 2*l.RenewInterval >= l.TTL {
		return errors.New("LEADER_RENEW_INTERVAL must be shorter than half of LEADER_TTL")
	}
	return nil
}
