package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/pipeless-ai/pipeless/dispatcher"
	"github.com/pipeless-ai/pipeless/eventexport"
	"github.com/pipeless-ai/pipeless/httpapi"
	"github.com/pipeless-ai/pipeless/internal/appconfig"
	"github.com/pipeless-ai/pipeless/internal/mediastub"
	"github.com/pipeless-ai/pipeless/internal/plog"
	"github.com/pipeless-ai/pipeless/kvstore"
	"github.com/pipeless-ai/pipeless/stages"
	"github.com/pipeless-ai/pipeless/streams"
)

// shutdownGracePeriod bounds how long the HTTP control surface waits for
// in-flight requests to finish on SIGINT/SIGTERM.
const shutdownGracePeriod = 5 * time.Second

func newStartCmd() *cobra.Command {
	var stagesDir string
	var persistentKV bool

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the Pipeless runtime: the Dispatcher and its HTTP control surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStart(stagesDir, persistentKV)
		},
	}

	cmd.Flags().StringVar(&stagesDir, "stages-dir", "", "directory containing stage subdirectories (default: $PIPELESS_STAGES_DIR or ./stages)")
	cmd.Flags().BoolVar(&persistentKV, "persistent-kv", false, "back the key-value store with Badger on disk instead of in-memory")

	return cmd
}

func runStart(stagesDirFlag string, persistentKV bool) error {
	cfg := appconfig.FromEnv()
	if stagesDirFlag != "" {
		cfg.StagesDir = stagesDirFlag
	}

	log := plog.New()
	log.Info().Str("stages_dir", cfg.StagesDir).Str("http_addr", cfg.HTTPAddr).Msg("starting pipeless")

	kv, err := buildKVStore(cfg, persistentKV, log)
	if err != nil {
		return fmt.Errorf("building key-value store: %w", err)
	}
	defer kv.Close()

	exporter, err := buildExporter(cfg, log)
	if err != nil {
		return fmt.Errorf("building event exporter: %w", err)
	}
	defer exporter.Close()

	stageMap, err := stages.LoadStages(cfg.StagesDir, kv, log)
	if err != nil {
		return fmt.Errorf("loading stages: %w", err)
	}
	registry := stages.NewRegistry(stageMap)
	executor := stages.NewExecutor(registry, log)

	table := streams.NewTable()
	inputFactory := mediastub.NewInputPipelineFactory(log)
	outputFactory := mediastub.NewOutputPipelineFactory(log)

	d := dispatcher.New(table, registry, executor, kv, exporter, inputFactory, outputFactory, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	d.Start(ctx)

	server := httpapi.New(table, d.Events(), log)
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.HTTPAddr).Msg("control surface listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func buildKVStore(cfg appconfig.Config, persistent bool, log zerolog.Logger) (kvstore.Store, error) {
	if !persistent {
		return kvstore.NewMemoryStore(), nil
	}
	return kvstore.OpenBadgerStore(cfg.KVStoreDir, log)
}

func buildExporter(cfg appconfig.Config, log zerolog.Logger) (eventexport.Exporter, error) {
	if err := cfg.ValidateRedis(); err != nil {
		return nil, err
	}
	if !cfg.RedisConfigured() {
		return eventexport.NoopExporter{}, nil
	}
	return eventexport.NewRedisExporter(cfg.RedisURL, cfg.RedisChannel)
}
