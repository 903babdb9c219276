package wiring

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/config"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/messaging"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/observability"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/retrieval"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/sse"
	"github.com/felixgeelhaar/rfpflow/internal/infrastructure/webhook"
	"github.com/felixgeelhaar/rfpflow/pkg/application"
	"github.com/felixgeelhaar/rfpflow/pkg/casestudy"
	domainai "github.com/felixgeelhaar/rfpflow/pkg/domain/ai"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/analysis"
	"github.com/felixgeelhaar/rfpflow/pkg/domain/events"
	"github.com/felixgeelhaar/rfpflow/pkg/pipeline"
	"github.com/felixgeelhaar/rfpflow/pkg/storage"
)

// App is the fully wired pipeline for one workspace.
type App struct {
	Workspace    *Workspace
	Provider     domainai.Provider
	Catalog      *casestudy.Catalog
	Store        *storage.MemoryStateStore
	Janitor      *storage.Janitor
	Dispatcher   *events.EventDispatcher
	Metrics      *observability.Metrics
	Events       *sse.SSEHandler
	Notifier     *messaging.Registry
	Orchestrator *pipeline.Orchestrator
	Analysis     *application.AnalysisService
	Logger       *slog.Logger
}

// BuildApp wires the pipeline for root using the configured AI provider.
func BuildApp(root string, logger *slog.Logger) (*App, error) {
	return BuildAppWithProvider(root, logger, LoadAIProvider)
}

// BuildAppWithProvider allows callers to supply a custom AI provider resolver.
func BuildAppWithProvider(root string, logger *slog.Logger, resolver func(*config.Config) (domainai.Provider, error)) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ws, err := NewWorkspace(root)
	if err != nil {
		return nil, err
	}
	cfg := ws.Config

	provider, err := resolver(cfg)
	if err != nil {
		return nil, fmt.Errorf("AI provider: %w", err)
	}

	catalog, err := loadCatalog(ws)
	if err != nil {
		return nil, err
	}

	graph, err := pipeline.NewDefaultGraph(provider, catalog, PipelineSettings(cfg))
	if err != nil {
		return nil, err
	}

	notifier, err := messaging.NewRegistry(cfg.Notifications, logger)
	if err != nil {
		return nil, fmt.Errorf("notifications: %w", err)
	}

	store := storage.NewMemoryStateStore(cfg.Retention.Std())
	metrics := observability.NewMetrics()
	stream := sse.NewSSEHandler()

	dispatcher := events.NewEventDispatcher()
	dispatcher.ContinueOnError = true
	dispatcher.RegisterWildcard("journal", events.JournalHandler(ws.Journal))
	dispatcher.RegisterWildcard("logging", events.NewLoggingHandler(logger).Handle)
	metrics.Register(dispatcher)
	stream.Register(dispatcher)
	notifier.Register(dispatcher)

	opts := []pipeline.Option{
		pipeline.WithPublisher(dispatcher),
		pipeline.WithLogger(logger),
		pipeline.WithStageTimeout(cfg.StageTimeout.Std()),
		pipeline.WithDeliverableStore(deliverableStore(ws)),
	}
	if r := contextRetriever(ws); r != nil {
		opts = append(opts, pipeline.WithRetriever(r))
	}

	orch, err := pipeline.NewOrchestrator(graph, store, opts...)
	if err != nil {
		return nil, err
	}

	return &App{
		Workspace:    ws,
		Provider:     provider,
		Catalog:      catalog,
		Store:        store,
		Janitor:      storage.NewJanitor(store, storage.JanitorInterval(cfg.Retention.Std()), logger),
		Dispatcher:   dispatcher,
		Metrics:      metrics,
		Events:       stream,
		Notifier:     notifier,
		Orchestrator: orch,
		Analysis:     application.NewAnalysisService(orch, ws.Journal),
		Logger:       logger,
	}, nil
}

// MetricsServer exposes the metrics and the live event stream on addr.
func (a *App) MetricsServer(addr string) *observability.Server {
	srv := observability.NewServer(addr, a.Metrics, a.Logger)
	srv.Handle("GET /events", a.Events)
	return srv
}

// StartJanitor evicts expired runs in the background until ctx is canceled.
func (a *App) StartJanitor(ctx context.Context) {
	go a.Janitor.Run(ctx)
}

func loadCatalog(ws *Workspace) (*casestudy.Catalog, error) {
	if ws.Config.CaseStudies == "" {
		return casestudy.DefaultCatalog(), nil
	}
	catalog, err := casestudy.LoadCatalog(ws.rootPath(ws.Config.CaseStudies))
	if err != nil {
		return nil, fmt.Errorf("case study catalog: %w", err)
	}
	return catalog, nil
}

func deliverableStore(ws *Workspace) analysis.DeliverableStore {
	ins := ws.Config.Insights
	if ins.WebhookURL != "" {
		deadLetters := webhook.NewDeadLetterStore(ws.workspacePath(DeadLetterFile))
		return webhook.NewInsightClient(ins.WebhookURL, ins.WebhookSecret, webhook.WithDeadLetters(deadLetters))
	}
	dir := ins.Dir
	if dir == "" {
		dir = storage.InsightsDir
	}
	return storage.NewFileDeliverableStore(ws.workspacePath(dir))
}

func contextRetriever(ws *Workspace) analysis.ContextRetriever {
	r := ws.Config.Retrieval
	switch {
	case r.URL != "":
		return retrieval.NewHTTPRetriever(r.URL, nil)
	case r.Dir != "":
		return retrieval.NewDirRetriever(ws.rootPath(r.Dir))
	default:
		return nil
	}
}
