package container

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/dispatcher"
	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/application/workflow"
	"github.com/garyjia/expenseflow/internal/domain/event"
	"github.com/garyjia/expenseflow/internal/infrastructure/external/currency"
	infraLark "github.com/garyjia/expenseflow/internal/infrastructure/external/lark"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/expenseflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/expenseflow/internal/infrastructure/storage"
	"github.com/garyjia/expenseflow/internal/infrastructure/worker"
	"github.com/garyjia/expenseflow/pkg/database"
)

// expenseEvents are the event types every expense handler listens to
var expenseEvents = []event.Type{
	event.TypeExpenseSubmitted,
	event.TypeExpenseStepAdvanced,
	event.TypeExpenseApproved,
	event.TypeExpenseRejected,
}

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	Raw       *database.DB
	TxManager *sqlite.DB
}

// ExternalBundle holds clients for systems outside the process.
type ExternalBundle struct {
	// Lark is nil when no credentials are configured
	Lark     *infraLark.SDKClient
	Notifier port.Notifier
	Rates    port.RateProvider
}

// ProvideDatabase opens the database and applies the embedded migrations.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	raw, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
	}, logger)
	if err != nil {
		return nil, err
	}

	if err := database.NewMigrator(raw, logger).Run(); err != nil {
		raw.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		Raw:       raw,
		TxManager: sqlite.NewDB(raw.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories on top of the transaction manager.
func ProvideRepositories(db *sqlite.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if db == nil {
		return nil, fmt.Errorf("database is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		Companies:    repository.NewCompanyRepository(db, logger),
		Users:        repository.NewUserRepository(db, logger),
		Workflows:    repository.NewWorkflowRepository(db, logger),
		Rules:        repository.NewRuleRepository(db, logger),
		Expenses:     repository.NewExpenseRepository(db, logger),
		Transactions: repository.NewTransactionRepository(db, logger),
		Audit:        repository.NewAuditRepository(db, logger),
	}, nil
}

// ProvideExternal creates the notifier and the rate provider. Without Lark
// credentials notifications are only logged.
func ProvideExternal(larkCfg *LarkConfig, currencyCfg *CurrencyConfig, logger *zap.Logger) (*ExternalBundle, error) {
	if larkCfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if currencyCfg == nil {
		return nil, fmt.Errorf("currency config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	bundle := &ExternalBundle{}

	sdkCfg := infraLark.Config{AppID: larkCfg.AppID, AppSecret: larkCfg.AppSecret}
	if sdkCfg.Enabled() {
		bundle.Lark = infraLark.NewSDKClient(sdkCfg, logger)
		bundle.Notifier = infraLark.NewNotifier(bundle.Lark, logger)
	} else {
		logger.Warn("Lark credentials not configured, notifications will only be logged")
		bundle.Notifier = infraLark.NewLogNotifier(logger)
	}

	rates, err := currency.NewStaticProvider(currencyCfg.Base, currencyCfg.Rates, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to load currency rates: %w", err)
	}
	bundle.Rates = rates

	return bundle, nil
}

// ProvideStorage creates the archive file storage.
func ProvideStorage(cfg *StorageConfig, logger *zap.Logger) (port.FileStorage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("storage config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return storage.NewLocalFileStorage(cfg.ArchiveDir, logger)
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos     *RepositoryBundle
	TxManager port.TransactionManager
	External  *ExternalBundle
	Storage   port.FileStorage
	Report    ReportConfig
	Logger    *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.External == nil {
		return nil, fmt.Errorf("external clients are required")
	}
	if deps.Storage == nil {
		return nil, fmt.Errorf("storage is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	r := deps.Repos

	return &ServiceBundle{
		Admin:        service.NewAdminService(r.Companies, r.Users, r.Workflows, r.Rules, deps.TxManager, serviceLogger),
		Expense:      service.NewExpenseService(r.Expenses, r.Users, r.Companies, r.Workflows, deps.External.Rates, serviceLogger),
		Audit:        service.NewAuditService(r.Audit, serviceLogger),
		Notification: service.NewNotificationService(r.Expenses, r.Users, r.Workflows, deps.External.Notifier, serviceLogger),
		Report:       service.NewReportService(r.Expenses, r.Users, r.Companies, deps.Storage, deps.Report.SheetName, serviceLogger),
	}, nil
}

// ProvideDispatcher creates the event dispatcher.
func ProvideDispatcher(logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&zapLoggerAdapter{logger: logger}),
	), nil
}

// EngineDeps holds dependencies required for creating the approval engine.
type EngineDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Services   *ServiceBundle
	Logger     *zap.Logger
}

// ProvideApprovalEngine creates the approval engine and subscribes the audit
// and notification handlers to its events. Audit runs first.
func ProvideApprovalEngine(deps *EngineDeps) (workflow.ApprovalEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("engine dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	engine := workflow.NewEngine(
		workflow.Repositories{
			Expenses:     deps.Repos.Expenses,
			Users:        deps.Repos.Users,
			Workflows:    deps.Repos.Workflows,
			Rules:        deps.Repos.Rules,
			Transactions: deps.Repos.Transactions,
		},
		deps.TxManager,
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithLogger(&zapLoggerAdapter{logger: deps.Logger}),
	)

	deps.Dispatcher.SubscribeAll(expenseEvents, "audit_log", deps.Services.Audit.HandleEvent)
	deps.Dispatcher.SubscribeAll(expenseEvents, "notifier", deps.Services.Notification.HandleEvent)

	return engine, nil
}

// WorkerDeps holds dependencies required for creating workers.
type WorkerDeps struct {
	Services  *ServiceBundle
	WorkerCfg *WorkerConfig
	Logger    *zap.Logger
}

// ProvideWorkers creates the worker manager with every enabled worker
// registered but not started.
func ProvideWorkers(deps *WorkerDeps) (*worker.Manager, error) {
	if deps == nil {
		return nil, fmt.Errorf("worker dependencies are required")
	}
	if deps.Services == nil {
		return nil, fmt.Errorf("services are required")
	}
	if deps.WorkerCfg == nil {
		return nil, fmt.Errorf("worker config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	manager := worker.NewManager(deps.Logger)

	if deps.WorkerCfg.ReminderEnabled {
		manager.Register(worker.NewReminderWorker(worker.ReminderConfig{
			Interval:   deps.WorkerCfg.ReminderInterval,
			StaleAfter: deps.WorkerCfg.ReminderStaleAfter,
		}, deps.Services.Notification, deps.Logger))
	}

	return manager, nil
}
