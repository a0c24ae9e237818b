package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"poolCore/internal/config"
	"poolCore/internal/replay"
	"poolCore/internal/storage"
	"poolCore/internal/storage/postgres"
)

func runReplay(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadReplay(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Input == "" {
		return fmt.Errorf("input path is required")
	}

	var feeToSetter common.Address
	if cfg.FeeToSetter != "" {
		if !common.IsHexAddress(cfg.FeeToSetter) {
			return fmt.Errorf("invalid fee-to-setter: %s", cfg.FeeToSetter)
		}
		feeToSetter = common.HexToAddress(cfg.FeeToSetter)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sink storage.Storage
	var checkpoints replay.Checkpointer
	if cfg.PGDSN != "" {
		store, err := postgres.NewStore(ctx, cfg.PGDSN)
		if err != nil {
			return fmt.Errorf("connect postgres: %w", err)
		}
		defer store.Close()
		sink = &postgres.Sink{Ctx: ctx, Store: store}
		if cfg.CheckpointEnabled {
			checkpoints = &postgres.Checkpoints{Ctx: ctx, Store: store, Name: "replay"}
		}
	} else {
		sink = storage.NewJsonlStorage(cfg.EventsOut, cfg.StatesOut)
	}

	runner, err := replay.NewRunner(replay.RunConfig{
		BatchSize:         cfg.BatchSize,
		CheckpointPath:    cfg.Checkpoint,
		CheckpointEnabled: cfg.CheckpointEnabled,
		Checkpoints:       checkpoints,
		FeeToSetter:       feeToSetter,
	}, sink, logger)
	if err != nil {
		return err
	}

	logger.Info("replay start",
		zap.String("in", cfg.Input),
		zap.String("out", cfg.EventsOut),
		zap.String("states_out", cfg.StatesOut),
		zap.Bool("postgres", cfg.PGDSN != ""),
		zap.Int("batch_size", cfg.BatchSize),
		zap.Bool("checkpoint_enabled", cfg.CheckpointEnabled),
		zap.String("checkpoint", cfg.Checkpoint),
	)

	return runner.Run(ctx, cfg.Input)
}
