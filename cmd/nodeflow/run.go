package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/BaSui01/nodeflow/config"
	"github.com/BaSui01/nodeflow/examples/qa"
	"github.com/BaSui01/nodeflow/internal/metrics"
	"github.com/BaSui01/nodeflow/internal/server"
	"github.com/BaSui01/nodeflow/internal/telemetry"
	"github.com/BaSui01/nodeflow/nodes/snapshot"
	"github.com/BaSui01/nodeflow/types"
	"github.com/BaSui01/nodeflow/workflow"
)

// =============================================================================
// 🏃 run 命令
// =============================================================================

type runOptions struct {
	question string
	async    bool
	history  bool
}

func runCommand(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	configPath := fs.String("config", "", "Path to config file")
	opts := runOptions{}
	fs.StringVar(&opts.question, "question", "capital of France", "Question to answer")
	fs.BoolVar(&opts.async, "async", false, "Use the asynchronous flow")
	fs.BoolVar(&opts.history, "history", false, "Print the execution history")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()
	undo := zap.ReplaceGlobals(logger)
	defer undo()

	logger.Info("Starting NodeFlow",
		zap.String("version", Version),
		zap.String("build_time", BuildTime),
		zap.String("git_commit", GitCommit),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return run(ctx, cfg, opts, logger, out)
}

// run 组装可观测性组件与快照存储，然后执行一次问答流程
func run(ctx context.Context, cfg *config.Config, opts runOptions, logger *zap.Logger, out io.Writer) error {
	providers, err := telemetry.Init(ctx, cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("telemetry shutdown failed", zap.Error(err))
		}
	}()

	var emitters []workflow.Emitter
	if providers.Enabled() {
		instruments, err := telemetry.NewInstruments()
		if err != nil {
			return fmt.Errorf("create otel instruments: %w", err)
		}
		emitters = append(emitters, instruments.Emitter())
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(cfg.Metrics.Namespace, reg, logger)
	emitters = append(emitters, collector.Emitter())

	if cfg.Metrics.Enabled {
		srv := server.NewMetricsServer(cfg.Metrics, reg, logger)
		if err := srv.Start(); err != nil {
			return err
		}
		defer func() { _ = srv.Shutdown(context.Background()) }()
	}

	var store snapshot.Store
	if cfg.Snapshot.Enabled {
		store, err = snapshot.Open(ctx, cfg, collector.RecordStoreOperation, logger)
		if err != nil {
			return fmt.Errorf("open snapshot store: %w", err)
		}
		defer store.Close()
	}

	history := workflow.NewExecutionHistory()
	emitters = append(emitters, history.Emitter())

	if cfg.Engine.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Engine.RunTimeout)
		defer cancel()
	}
	ctx = workflow.WithEmitter(ctx, workflow.ComposeEmitters(emitters...))
	ctx = types.WithTraceID(ctx, fmt.Sprintf("cli-%d", time.Now().UnixNano()))

	shared := workflow.NewShared(map[string]any{qa.KeyQuestion: opts.question})
	action, err := runFlow(ctx, cfg, opts, store, shared, logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "answer: %v\n", workflow.ValueOr[any](shared, qa.KeyAnswer, ""))
	fmt.Fprintf(out, "action: %s\n", action)
	if id, ok := shared.Get(snapshot.IDKey); ok {
		fmt.Fprintf(out, "snapshot: %v\n", id)
	}
	if opts.history {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}
	return nil
}

// runFlow 构建问答流程；启用快照时在 done 之后接一个快照节点
func runFlow(
	ctx context.Context,
	cfg *config.Config,
	opts runOptions,
	store snapshot.Store,
	shared *workflow.Shared,
	logger *zap.Logger,
) (workflow.Action, error) {
	engineOpts := append(cfg.Engine.Options(), workflow.WithLogger(logger))

	var snap workflow.Vertex
	if store != nil {
		snap = snapshot.NewNode("snapshot", store, cfg.Snapshot.Keys, engineOpts...)
	}

	if opts.async {
		flow := qa.NewAsyncFlow([]qa.Searcher{qa.DefaultKnowledgeBase()}, qa.ExtractiveAnswerer{}, engineOpts...)
		if snap == nil {
			return flow.RunAsync(ctx, shared, nil)
		}
		flow.On(qa.ActionDone).Then(snap)
		return workflow.NewAsyncFlow("nodeflow-run", flow, engineOpts...).RunAsync(ctx, shared, nil)
	}

	flow := qa.NewFlow(qa.DefaultKnowledgeBase(), qa.ExtractiveAnswerer{}, engineOpts...)
	if snap == nil {
		return flow.Run(ctx, shared, nil)
	}
	flow.On(qa.ActionDone).Then(snap)
	return workflow.NewFlow("nodeflow-run", flow, engineOpts...).Run(ctx, shared, nil)
}
