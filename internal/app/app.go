// Package app wires configuration, logging, storage and the story generator
// into a runnable game.
package app

import (
	"context"
	"fmt"
	"os"

	"github.com/tatianab/transit-ace/internal/config"
	"github.com/tatianab/transit-ace/internal/engine"
	"github.com/tatianab/transit-ace/internal/game"
	"github.com/tatianab/transit-ace/internal/logger"
	"github.com/tatianab/transit-ace/internal/store"
	"github.com/tatianab/transit-ace/internal/store/sqlite"
	"github.com/tatianab/transit-ace/internal/store/yamlfile"
	"github.com/tatianab/transit-ace/internal/tui"
	"go.uber.org/zap"
)

// Run loads the configuration and runs the terminal UI until the player
// quits or ctx is cancelled.
func Run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.Logger())
	if err != nil {
		return err
	}
	defer log.Sync()

	st, err := OpenStore(cfg, log)
	if err != nil {
		return err
	}
	defer st.Close()

	gen, closeGen, err := NewGenerator(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeGen()

	log.Info("starting game",
		zap.String("store", cfg.StoreBackend),
		zap.String("dataDir", cfg.DataDir),
		zap.Bool("generation", gen != nil))

	return tui.Run(ctx, tui.Deps{
		Store:     st,
		Session:   game.NewSession(game.Ledger{}, game.Grader{}, log),
		Generator: gen,
		Logger:    log,
	})
}

// OpenStore opens the configured backend under cfg.DataDir.
func OpenStore(cfg *config.Config, log *zap.Logger) (store.Store, error) {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	switch cfg.StoreBackend {
	case config.StoreYAML:
		return yamlfile.Open(cfg.StorePath(), log)
	default:
		return sqlite.Open(cfg.StorePath(), log)
	}
}

// NewGenerator returns the LLM story generator, or nil when no API key is
// configured. The returned func releases the client.
func NewGenerator(ctx context.Context, cfg *config.Config, log *zap.Logger) (engine.Generator, func(), error) {
	if !cfg.GenerationEnabled() {
		log.Info("no API key configured, custom scenarios disabled", zap.String("provider", cfg.LLMProvider))
		return nil, func() {}, nil
	}
	eng, err := engine.NewEngine(ctx, cfg.Engine(), log)
	if err != nil {
		return nil, func() {}, fmt.Errorf("create story generator: %w", err)
	}
	return eng, eng.Close, nil
}
