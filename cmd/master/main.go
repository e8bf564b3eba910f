package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"scalematch/internal/cluster"
	"scalematch/internal/decision"
	decisionmetrics "scalematch/internal/decision/metrics"
	"scalematch/internal/intake"
	intakemetrics "scalematch/internal/intake/metrics"
	"scalematch/internal/leader"
	leadermetrics "scalematch/internal/leader/metrics"
	"scalematch/internal/orchestrator"
	orchestratormetrics "scalematch/internal/orchestrator/metrics"
	"scalematch/internal/platform/config"
	"scalematch/internal/platform/httpserver"
	"scalematch/internal/platform/kafka"
	"scalematch/internal/platform/logger"
	"scalematch/internal/platform/metrics"
	platformredis "scalematch/internal/platform/redis"
	httptransport "scalematch/internal/transport/http"
	"scalematch/pkg/platform/circuit"
)

// main wires the master: worker registry and health polling, the
// scatter-gather orchestrator, leader election, and the queue intake that
// only the leader runs.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadMaster(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("master stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Master, log *slog.Logger) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.New(reg)

	members, err := cluster.ParseMembers(cfg.Workers)
	if err != nil {
		return err
	}
	workers, err := cluster.NewRegistry(members)
	if err != nil {
		return err
	}

	health := cluster.NewHealthMonitor(
		cluster.WithHealthInterval(cfg.HealthInterval),
		cluster.WithHealthLogger(log),
	)

	orch, err := orchestrator.New(workers,
		orchestrator.WithWorkerHealth(health),
		orchestrator.WithPolicy(policyFrom(cfg.Matching)),
		orchestrator.WithDeadline(cfg.Matching.Deadline),
		orchestrator.WithDimension(cfg.Matching.Dimension),
		orchestrator.WithBreakerOptions(
			circuit.WithFailureThreshold(cfg.Breaker.FailureThreshold),
			circuit.WithWindow(cfg.Breaker.Window),
			circuit.WithCooldown(cfg.Breaker.Cooldown),
		),
		orchestrator.WithLogger(log),
		orchestrator.WithMetrics(orchestratormetrics.New(reg)),
		orchestrator.WithDecisionMetrics(decisionmetrics.New(reg)),
	)
	if err != nil {
		return fmt.Errorf("create orchestrator: %w", err)
	}

	store, closeStore, err := leaseStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	kcfg := kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: cfg.Kafka.ClientID}
	if len(kcfg.Brokers) > 0 {
		if err := checkTopics(ctx, cfg, kcfg); err != nil {
			return err
		}
	} else {
		log.WarnContext(ctx, "KAFKA_BROKERS not set; queue intake disabled")
	}
	intakeMetrics := intakemetrics.New(reg)

	elector, err := leader.New(store, cfg.Leader.LeaseName,
		leader.WithIdentity(cfg.Leader.Identity),
		leader.WithTTL(cfg.Leader.TTL),
		leader.WithRenewInterval(cfg.Leader.RenewInterval),
		leader.WithRetryInterval(cfg.Leader.RetryInterval),
		leader.WithLogger(log),
		leader.WithMetrics(leadermetrics.New(reg)),
		leader.OnStartedLeading(func(leaderCtx context.Context) {
			if len(kcfg.Brokers) == 0 {
				return
			}
			if err := runIntake(leaderCtx, cfg, kcfg, orch, intakeMetrics, log); err != nil {
				cancel(fmt.Errorf("request intake: %w", err))
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("create elector: %w", err)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", metrics.Handler(reg))
	httptransport.NewAdminHandler(orch, elector, health, workers.Members(), log, httpMetrics).Register(router)
	srv := httpserver.New(cfg.Addr, router)

	log.InfoContext(ctx, "starting master",
		"addr", cfg.Addr,
		"shards", len(members),
		"identity", elector.Identity(),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		health.Run(gctx, workers.Checkers)
		return nil
	})
	g.Go(func() error {
		return elector.Run(gctx)
	})
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	if cause := context.Cause(ctx); cause != nil && !errors.Is(cause, context.Canceled) {
		return cause
	}
	return nil
}

func policyFrom(m config.MatchingConfig) decision.Policy {
	return decision.Policy{
		WeightANN:       m.WeightANN,
		WeightExact:     m.WeightExact,
		MatchThreshold:  m.MatchThreshold,
		AmbiguityMargin: m.AmbiguityMargin,
		ResponseCap:     m.ResponseCap,
	}
}

func leaseStore(ctx context.Context, cfg *config.Master) (leader.Store, func(), error) {
	if cfg.Leader.Memory {
		return leader.NewMemoryStore(nil), func() {}, nil
	}
	client, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, fmt.Errorf("connect lease store: %w", err)
	}
	store, err := leader.NewRedisStore(client.Client)
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}
	return store, func() { _ = client.Close() }, nil
}

func checkTopics(ctx context.Context, cfg *config.Master, kcfg kafka.Config) error {
	admin, err := kafka.NewAdmin(kcfg)
	if err != nil {
		return err
	}
	defer admin.Close()
	topics := []string{cfg.Kafka.RequestTopic, cfg.Kafka.ResultTopic}
	if cfg.Kafka.EnsureTopics {
		return admin.EnsureTopics(ctx, 1, 1, topics...)
	}
	return admin.RequireTopics(ctx, topics...)
}

// runIntake holds the request consumer group only while leading, so a
// standby never owns partitions it does not process.
func runIntake(ctx context.Context, cfg *config.Master, kcfg kafka.Config, orch *orchestrator.Orchestrator, m *intakemetrics.Metrics, log *slog.Logger) error {
	consumer, err := kafka.NewConsumer(kcfg, cfg.Kafka.Group, []string{cfg.Kafka.RequestTopic})
	if err != nil {
		return err
	}
	defer consumer.Close()
	producer, err := kafka.NewProducer(kcfg, cfg.Kafka.ResultTopic)
	if err != nil {
		return err
	}
	defer producer.Close()

	in, err := intake.New(consumer, producer, orch,
		intake.WithConcurrency(cfg.Concurrency),
		intake.WithLogger(log),
		intake.WithMetrics(m),
	)
	if err != nil {
		return err
	}
	return in.Run(ctx)
}
