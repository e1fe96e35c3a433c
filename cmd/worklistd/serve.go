package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/caio-sobreiro/dicommwl/interfaces"
	"github.com/caio-sobreiro/dicommwl/reconcile"
	"github.com/caio-sobreiro/dicommwl/server"
	"github.com/caio-sobreiro/dicommwl/services"
	"github.com/caio-sobreiro/dicommwl/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the worklist SCP and the archive check",
	RunE:  runServe,
}

// newScheduler wires the archive check to source and, when configured, a Redis stream.
// The returned close func releases the Redis client.
func newScheduler(source interfaces.RecordSource) (*reconcile.Scheduler, func() error) {
	sink := reconcile.Sink(reconcile.LogSink{Logger: logger})
	closeSink := func() error { return nil }

	if cfg.Redis.Address != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		sink = reconcile.MultiSink{sink, reconcile.NewRedisSink(rdb, cfg.Redis.Stream, reconcile.WithMaxLen(cfg.Redis.MaxLen))}
		closeSink = rdb.Close
	}

	scheduler := reconcile.NewScheduler(reconcile.Config{
		Enabled:        cfg.PACS.Check,
		Interval:       cfg.PACS.Interval,
		Address:        cfg.PACS.Address(),
		CallingAETitle: cfg.PACS.LocalAETitle,
		CalledAETitle:  cfg.PACS.AETitle,
		MaxOperations:  cfg.PACS.MaxOperations,
	}, source, reconcile.WithSink(sink), reconcile.WithLogger(logger.With("component", "archive-check")))
	return scheduler, closeSink
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close()

	if cfg.Store.SeedSample {
		seeded, err := st.SeedSample(ctx)
		if err != nil {
			return err
		}
		if seeded {
			logger.Info("Seeded sample worklist record")
		}
	}

	registry := services.NewRegistry(logger)
	registry.RegisterHandler(types.CEchoRQ, services.NewEchoService(logger))
	registry.RegisterHandler(types.CFindRQ, services.NewWorklistService(st, logger))

	scheduler, closeSink := newScheduler(st)
	defer closeSink()

	schedulerDone := make(chan error, 1)
	go func() {
		schedulerDone <- scheduler.Run(ctx)
	}()

	err = server.ListenAndServe(ctx, cfg.Server.ListenAddress(), cfg.Server.AETitle, registry,
		server.WithLogger(logger),
		server.WithIdleTimeout(cfg.Server.IdleTimeout))
	stop()
	<-schedulerDone

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worklist server terminated unexpectedly", "error", err)
		return err
	}
	logger.Info("Worklist server stopped")
	return nil
}
