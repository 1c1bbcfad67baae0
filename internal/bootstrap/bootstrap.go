package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kirillkom/document-ledger/internal/config"
	"github.com/kirillkom/document-ledger/internal/core/ports"
	"github.com/kirillkom/document-ledger/internal/core/registry"
	"github.com/kirillkom/document-ledger/internal/core/usecase"
	"github.com/kirillkom/document-ledger/internal/infrastructure/bytecache"
	"github.com/kirillkom/document-ledger/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/document-ledger/internal/infrastructure/extractor"
	"github.com/kirillkom/document-ledger/internal/infrastructure/extractor/pdf"
	"github.com/kirillkom/document-ledger/internal/infrastructure/extractor/plaintext"
	"github.com/kirillkom/document-ledger/internal/infrastructure/extractor/spreadsheet"
	"github.com/kirillkom/document-ledger/internal/infrastructure/hashing"
	"github.com/kirillkom/document-ledger/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/document-ledger/internal/infrastructure/mappings"
	"github.com/kirillkom/document-ledger/internal/infrastructure/pdfpages"
	"github.com/kirillkom/document-ledger/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-ledger/internal/infrastructure/repository/filestore"
	"github.com/kirillkom/document-ledger/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-ledger/internal/infrastructure/resilience"
	"github.com/kirillkom/document-ledger/internal/infrastructure/storage/localfs"
	"github.com/kirillkom/document-ledger/internal/observability/metrics"

	httpadapter "github.com/kirillkom/document-ledger/internal/adapters/http"
)

type App struct {
	Config config.Config

	Registry    *registry.Registry
	Pipeline    *usecase.ProcessDocumentUseCase
	Services    httpadapter.Services
	HTTPMetrics *metrics.HTTPServerMetrics

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	persistence, db, err := newPersistence(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if db != nil {
		closers = append(closers, func() { _ = db.Close() })
	}

	httpMetrics := metrics.NewHTTPServerMetrics("api")
	pipelineMetrics := metrics.NewPipelineMetrics("api", httpMetrics.Registerer())
	collaboratorMetrics := metrics.NewCollaboratorMetrics("api", httpMetrics.Registerer())

	var events ports.EventPublisher
	if cfg.NATSEnabled {
		queue, err := NewEventQueue(cfg, collaboratorMetrics)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, queue.Close)
		events = queue
	}

	reg := registry.New(persistence, events)
	if err := reg.Load(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("load documents: %w", err)
	}

	cache := bytecache.New(cfg.ByteCacheTTL)
	janitorCtx, stopJanitor := context.WithCancel(context.WithoutCancel(ctx))
	go cache.RunJanitor(janitorCtx, cfg.ByteCacheTTL/4)
	closers = append(closers, stopJanitor)

	llm := ollama.NewWithOptions(cfg.OllamaURL, cfg.OllamaGenModel, ollama.Options{
		Timeout: cfg.OllamaTimeout,
		ResilienceExecutor: resilience.NewExecutor(
			resilience.ForCollaborator(cfg.ResilienceBreakerEnabled, cfg.ResilienceRetryAttempts),
			resilience.WithObserver(collaboratorMetrics),
		),
	})

	notice := usecase.NewSessionNotice(reg.Now)
	pipeline := usecase.NewProcessDocumentUseCase(
		reg,
		cache,
		extractor.NewRouter(spreadsheet.NewExtractor(), pdf.NewExtractor(), plaintext.NewExtractor()),
		ollama.NewClassifier(llm),
		usecase.PipelineOptions{
			MinContentLength: cfg.MinContentLength,
			ExcerptChars:     cfg.ClassifierExcerptChars,
			Timeout:          cfg.PipelineTimeout,
			ClassifyTimeout:  cfg.ClassifyTimeout,
			Observer:         pipelineMetrics,
			Notice:           notice,
		},
	)
	closers = append(closers, pipeline.Wait)

	ingest := usecase.NewIngestDocumentUseCase(
		reg,
		cache,
		hashing.Hasher{},
		pipeline,
		pipelineMetrics,
		int64(cfg.MaxUploadMB)<<20,
	)

	ledger, err := usecase.NewLedgerUseCase(
		reg,
		persistence,
		mappings.NewStore(cfg.LedgerMappingsPath),
		xlsx.NewExporter(cfg.LedgerCurrency),
		pipelineMetrics,
		cfg.LedgerDefaultAmount,
	)
	if err != nil {
		closeAll()
		return nil, err
	}
	if err := ledger.Load(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("load ledger: %w", err)
	}

	services := httpadapter.Services{
		Ingestor:  ingest,
		Reader:    reg,
		Reprocess: usecase.NewReprocessUseCase(reg, cache, pipeline, notice, cfg.BatchConcurrency),
		Ledger:    ledger,
		Bundler:   usecase.NewEvidenceBundleUseCase(reg),
		Splitter:  usecase.NewSplitDocumentUseCase(reg, cache, pdfpages.NewSplitter(), ingest),
		Advisor:   usecase.NewFixSuggestionUseCase(reg, ollama.NewFixSuggester(llm, cfg.ClassifierExcerptChars)),
		Notices:   notice,
	}

	slog.Info("bootstrap_complete",
		"persistence", cfg.PersistenceBackend,
		"nats_enabled", cfg.NATSEnabled,
		"documents", len(reg.List()),
		"ledger_entries", len(ledger.Entries()),
	)

	return &App{
		Config:      cfg,
		Registry:    reg,
		Pipeline:    pipeline,
		Services:    services,
		HTTPMetrics: httpMetrics,
		closeFn:     closeAll,
	}, nil
}

// NewEventQueue connects the status event queue with the collaborator
// resilience policy applied to publishes. observer may be nil.
func NewEventQueue(cfg config.Config, observer resilience.Observer) (*nats.Queue, error) {
	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: resilience.NewExecutor(
			resilience.ForCollaborator(cfg.ResilienceBreakerEnabled, cfg.ResilienceRetryAttempts),
			resilience.WithObserver(observer),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	return queue, nil
}

func newPersistence(ctx context.Context, cfg config.Config) (ports.PersistenceAdapter, *sql.DB, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.PersistenceBackend)) {
	case "postgres":
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		store := postgres.NewStore(db)
		if err := store.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, db, nil
	case "", "file":
		storage, err := localfs.New(cfg.StoragePath)
		if err != nil {
			return nil, nil, fmt.Errorf("init object storage: %w", err)
		}
		return filestore.New(storage), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown persistence backend %q", cfg.PersistenceBackend)
	}
}

// Handler builds the API router over the wired services.
func (a *App) Handler() http.Handler {
	return httpadapter.NewRouter(a.Config, a.Services, a.HTTPMetrics).Handler()
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
