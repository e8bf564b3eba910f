package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"scalematch/internal/decision"
	"scalematch/internal/matcher"
	matchermetrics "scalematch/internal/matcher/metrics"
	"scalematch/internal/platform/config"
	"scalematch/internal/platform/httpserver"
	"scalematch/internal/platform/kafka"
	"scalematch/internal/platform/logger"
	"scalematch/internal/platform/metrics"
	"scalematch/internal/shard"
	"scalematch/internal/worker"
	"scalematch/internal/worker/events"
	eventsmetrics "scalematch/internal/worker/events/metrics"
	"scalematch/internal/worker/handler"
)

// main wires a worker: shard indexes (optionally warm-started from
// snapshots), the template-event consumer that feeds them, and the match
// RPC server.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorker(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	if err := run(ctx, cfg, log); err != nil {
		log.Error("worker stopped with error", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Worker, log *slog.Logger) error {
	reg := metrics.NewRegistry()

	registry := shard.NewRegistry(
		shard.WithDimension(cfg.Matching.Dimension),
		shard.WithQualityFloor(cfg.Matching.QualityFloor),
	)
	defer registry.Close()

	if cfg.SnapshotDir != "" {
		loaded, err := registry.LoadSnapshots(cfg.SnapshotDir, cfg.ShardIDs)
		if err != nil {
			return err
		}
		log.InfoContext(ctx, "shard snapshots restored", "dir", cfg.SnapshotDir, "entries", loaded)
	}

	comparator := matcher.NewHammingComparator()
	defer comparator.Close()

	svc, err := worker.New(registry, comparator, cfg.ShardIDs,
		worker.WithLogger(log),
		worker.WithMatcherOptions(
			matcher.WithTopK(cfg.Matching.TopK),
			matcher.WithANNFloor(cfg.Matching.ANNFloor),
			matcher.WithPolicy(decision.Policy{
				WeightANN:       cfg.Matching.WeightANN,
				WeightExact:     cfg.Matching.WeightExact,
				MatchThreshold:  cfg.Matching.MatchThreshold,
				AmbiguityMargin: cfg.Matching.AmbiguityMargin,
				ResponseCap:     cfg.Matching.TopK,
			}),
			matcher.WithLogger(log),
			matcher.WithMetrics(matchermetrics.New(reg)),
		),
	)
	if err != nil {
		return fmt.Errorf("create worker service: %w", err)
	}

	router := chi.NewRouter()
	router.Handle("/metrics", metrics.Handler(reg))
	handler.New(svc, log, metrics.New(reg)).Register(router)
	srv := httpserver.New(cfg.Addr, router)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return httpserver.Run(gctx, srv, log)
	})

	if len(cfg.Kafka.Brokers) > 0 {
		topics := events.Topics(cfg.Kafka.TemplatePrefix, cfg.ShardIDs)
		source, err := kafka.NewReplayConsumer(kafka.Config{Brokers: cfg.Kafka.Brokers, ClientID: cfg.Kafka.ClientID}, topics)
		if err != nil {
			return err
		}
		defer source.Close()

		consumer, err := events.New(source, registry, cfg.ShardIDs,
			events.WithTopicPrefix(cfg.Kafka.TemplatePrefix),
			events.WithLogger(log),
			events.WithMetrics(eventsmetrics.New(reg)),
		)
		if err != nil {
			return err
		}
		g.Go(func() error {
			return consumer.Run(gctx)
		})
	} else {
		log.WarnContext(ctx, "KAFKA_BROKERS not set; template events disabled")
	}

	log.InfoContext(ctx, "starting worker", "addr", cfg.Addr, "shards", cfg.ShardIDs)
	err = g.Wait()

	if cfg.SnapshotDir != "" {
		if serr := registry.SaveSnapshots(cfg.SnapshotDir); serr != nil {
			log.Error("failed to save shard snapshots", "error", serr)
		} else {
			log.Info("shard snapshots saved", "dir", cfg.SnapshotDir)
		}
	}
	return err
}
