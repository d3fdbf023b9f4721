package bootstrap

import (
	"context"
	"fmt"

	"github.com/dmitrovk/portal-reconciler/internal/config"
	"github.com/dmitrovk/portal-reconciler/internal/core/matching"
	"github.com/dmitrovk/portal-reconciler/internal/core/ports"
	"github.com/dmitrovk/portal-reconciler/internal/core/usecase"
	"github.com/dmitrovk/portal-reconciler/internal/infrastructure/queue/nats"
	"github.com/dmitrovk/portal-reconciler/internal/infrastructure/repository/postgres"
	"github.com/dmitrovk/portal-reconciler/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	Queue   *nats.Queue
	Records ports.RecordRepository

	SuggestUC ports.MatchSuggester
	BindUC    ports.MatchBinder
	ResolveUC ports.DuplicateResolver
	ScanUC    ports.RecordScanner

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	records := postgres.NewRecordRepository(db)
	invoices := postgres.NewInvoiceRepository(db)
	activity := postgres.NewActivityRepository(db)

	executor := resilience.New(resilience.DefaultPolicy())
	queue, err := nats.NewWithOptions(cfg.NATSURL, nats.Subjects{
		RecordSynced: cfg.NATSSyncSubject,
		Suggestions:  cfg.NATSSuggestSubject,
		Notify:       cfg.NATSNotifySubject,
	}, nats.Options{ResilienceExecutor: executor})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}
	notifier := nats.NewNotifier(queue)

	weights, err := cfg.RuleWeights()
	if err != nil {
		queue.Close()
		_ = db.Close()
		return nil, fmt.Errorf("load rule weights: %w", err)
	}
	matcher := matching.New(weights)

	return &App{
		Config:  cfg,
		Queue:   queue,
		Records: records,

		SuggestUC: usecase.NewSuggestUseCase(records, invoices, matcher, cfg.MatchLimit),
		BindUC:    usecase.NewBindUseCase(records, invoices, matcher, activity, notifier),
		ResolveUC: usecase.NewResolveDuplicateUseCase(invoices, activity, notifier),
		ScanUC:    usecase.NewScanUseCase(records, invoices, matcher, cfg.MatchLimit, cfg.ScanWorkers),

		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
