package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/openbookd/bookd/params"
	"github.com/openbookd/bookd/pkg/api"
	"github.com/openbookd/bookd/pkg/book"
	"github.com/openbookd/bookd/pkg/replication"
	"github.com/openbookd/bookd/pkg/storage"
	"github.com/openbookd/bookd/pkg/util"
)

func main() {
	// Load config from .env file and environment variables
	cfg := params.LoadFromEnv("") // "" means load from .env in current directory

	logger, err := util.NewLogger(cfg.Server.LogFile)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("logger_initialized", "log_file", cfg.Server.LogFile)

	// ---- Durable store ----
	store, err := storage.NewPebbleStore(cfg.Partition.DataDir)
	if err != nil {
		sugar.Fatalw("store_open_failed", "dir", cfg.Partition.DataDir, "err", err)
	}
	defer store.Close()

	// ---- Replication role ----
	// The platform's replicated-log layer would drive this; the static
	// source takes its starting role from config.
	role, err := replication.ParseRole(cfg.Partition.Role)
	if err != nil {
		sugar.Fatalw("bad_role_config", "role", cfg.Partition.Role, "err", err)
	}
	roleSource := replication.NewStaticSource(role)
	guarded := replication.NewGuard(roleSource, store)

	// ---- Partition + service ----
	partition := book.NewPartition(cfg.Partition.Pair, cfg.Partition.MaxOrders, guarded)
	svc := book.NewService(partition, sugar)

	count, err := svc.Count(context.Background())
	if err != nil {
		sugar.Fatalw("partition_recovery_failed", "err", err)
	}

	sugar.Infow("partition_activated",
		"pair", cfg.Partition.Pair,
		"max_orders", cfg.Partition.MaxOrders,
		"resting_orders", count,
		"role", role.String(),
		"data_dir", cfg.Partition.DataDir)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- API Server ----
	server := api.NewServer(svc, sugar)
	go func() {
		if err := server.Start(cfg.Server.APIAddr); err != nil {
			sugar.Fatalw("api_server_failed", "err", err)
		}
	}()

	<-ctx.Done()
	sugar.Infow("shutting_down", "pair", cfg.Partition.Pair)
}
