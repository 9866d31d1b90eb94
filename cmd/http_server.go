package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	firestoresdk "cloud.google.com/go/firestore"
	"github.com/frahmantamala/equipment-tracker/api"
	"github.com/frahmantamala/equipment-tracker/internal"
	"github.com/frahmantamala/equipment-tracker/internal/auth"
	"github.com/frahmantamala/equipment-tracker/internal/core/events"
	"github.com/frahmantamala/equipment-tracker/internal/inventory"
	inventoryFirestore "github.com/frahmantamala/equipment-tracker/internal/inventory/firestore"
	"github.com/frahmantamala/equipment-tracker/internal/inventory/memory"
	inventoryPostgres "github.com/frahmantamala/equipment-tracker/internal/inventory/postgres"
	"github.com/frahmantamala/equipment-tracker/internal/report"
	reportPostgres "github.com/frahmantamala/equipment-tracker/internal/report/postgres"
	"github.com/frahmantamala/equipment-tracker/internal/transport/middleware"
	"github.com/frahmantamala/equipment-tracker/internal/transport/rest"
	"github.com/frahmantamala/equipment-tracker/internal/user"
	userPostgres "github.com/frahmantamala/equipment-tracker/internal/user/postgres"
	"github.com/frahmantamala/equipment-tracker/pkg/logger"

	"github.com/go-chi/chi"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

var httpServerCmd = &cobra.Command{
	Use:   "server",
	Short: "Start HTTP server",
	Long:  `Start the HTTP server to handle API requests`,
	Run: func(cmd *cobra.Command, args []string) {
		startHTTPServer()
	},
}

type Dependencies struct {
	Config        *internal.Config
	DB            *sqlx.DB
	Gorm          *gorm.DB
	Firestore     *firestoresdk.Client
	EventBus      *events.EventBus
	UserService   *user.Service
	Ledger        *inventory.Ledger
	ReportService *report.Service
	Checkers      map[string]rest.Checker
	Logger        *slog.Logger
}

// Close releases the database and Firestore clients.
func (d *Dependencies) Close() {
	if d.Firestore != nil {
		if err := d.Firestore.Close(); err != nil {
			d.Logger.Error("Firestore close error", "error", err)
		}
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			d.Logger.Error("Database close error", "error", err)
		}
	}
}

func startHTTPServer() {
	ctx := context.Background()
	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close()

	router, err := setupRoutes(ctx, deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up routes: %v\n", err)
		os.Exit(1)
	}

	addr := fmt.Sprintf(":%d", deps.Config.Server.Port)
	deps.Logger.Info("Starting HTTP server", "address", addr, "storage_backend", deps.Config.Storage.Backend)

	server := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: deps.Config.Server.ReadHeaderTimeout,
		ReadTimeout:       deps.Config.Server.ReadTimeout,
		WriteTimeout:      deps.Config.Server.WriteTimeout,
		IdleTimeout:       deps.Config.Server.IdleTimeout,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		serverErrChan <- server.ListenAndServe()
	}()

	select {
	case sig := <-sigChan:
		deps.Logger.Info("Received signal, shutting down...", "signal", sig)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			deps.Logger.Error("Server shutdown error", "error", err)
		}
		deps.EventBus.Wait()
	case err := <-serverErrChan:
		if err != nil && err != http.ErrServerClosed {
			deps.Logger.Error("Server failed to start", "error", err)
			deps.Close()
			os.Exit(1)
		}
	}

	deps.Logger.Info("Server stopped")
}

func setupRoutes(ctx context.Context, deps *Dependencies) (*chi.Mux, error) {
	cfg := deps.Config
	lg := deps.Logger

	tokens := auth.NewJWTTokenGenerator(
		cfg.Security.JWTAccessSecret,
		cfg.Security.JWTRefreshSecret,
		cfg.Security.AccessTokenDuration,
		cfg.Security.RefreshTokenDuration,
	)
	authService := auth.NewService(deps.UserService, tokens, lg)

	opts := rest.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		OpenAPISpec:    api.OpenAPISpec,
	}
	if cfg.Server.ValidateRequests {
		doc, err := middleware.LoadOpenAPI(ctx, api.OpenAPISpec)
		if err != nil {
			return nil, err
		}
		validator, err := middleware.OpenAPIValidator(doc, lg)
		if err != nil {
			return nil, err
		}
		opts.RequestValidator = validator
	}

	router := chi.NewRouter()
	rest.RegisterAllRoutes(router, rest.Handlers{
		Auth:      auth.NewHandler(authService),
		RBAC:      auth.NewRBACAuthorization(lg),
		User:      user.NewHandler(deps.UserService),
		Inventory: inventory.NewHandler(deps.Ledger),
		Report:    report.NewHandler(deps.ReportService),
		Health:    rest.NewHealthHandler(deps.Checkers),
	}, opts, lg)

	return router, nil
}

func initializeDependencies(ctx context.Context) (*Dependencies, error) {
	config, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	lg := logger.LoggerWrapper()

	db, err := initDB(config.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	gormDB, err := initGorm(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize gorm: %w", err)
	}

	deps := &Dependencies{
		Config:   config,
		DB:       db,
		Gorm:     gormDB,
		EventBus: events.NewEventBus(lg),
		Logger:   lg,
		Checkers: map[string]rest.Checker{"postgres": db.PingContext},
	}

	store, err := initInventoryStore(ctx, deps)
	if err != nil {
		deps.Close()
		return nil, err
	}

	inventory.NewEventHandler(lg).RegisterEventHandlers(deps.EventBus)

	deps.UserService = user.NewService(userPostgres.NewUserRepository(db), lg, config.Security.BCryptCost)
	deps.Ledger = inventory.NewLedger(store, deps.UserService, lg, inventory.WithPublisher(deps.EventBus))
	deps.ReportService = report.NewService(reportPostgres.NewReportRepository(gormDB), lg)

	return deps, nil
}

// initInventoryStore picks the ledger backend. A backend that fails to come
// up is an error; there is no fallback to another store.
func initInventoryStore(ctx context.Context, deps *Dependencies) (inventory.Store, error) {
	cfg := deps.Config
	switch cfg.Storage.Backend {
	case internal.StorageBackendFirestore:
		client, err := inventoryFirestore.NewClient(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize firestore: %w", err)
		}
		deps.Firestore = client
		repo := inventoryFirestore.NewInventoryRepository(client, cfg.Firebase.CollectionPrefix)
		if err := repo.Ping(ctx); err != nil {
			return nil, fmt.Errorf("firestore is unreachable: %w", err)
		}
		deps.Checkers["firestore"] = repo.Ping
		return repo, nil
	case internal.StorageBackendMemory:
		deps.Logger.Warn("inventory ledger is running on the in-memory store; data is lost on restart")
		return memory.NewStore(), nil
	default:
		return inventoryPostgres.NewInventoryRepository(deps.Gorm), nil
	}
}

func initDB(cfg internal.DatabaseConfig) (*sqlx.DB, error) {
	const driver = "pgx"

	dbConn, err := sqlx.Connect(driver, cfg.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open db connection: %w", err)
	}

	dbConn.SetMaxIdleConns(cfg.MaxIdleConns)
	dbConn.SetMaxOpenConns(cfg.MaxOpenConns)
	dbConn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	dbConn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	if err := dbConn.Ping(); err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return dbConn, nil
}

// initGorm shares the sqlx connection pool with gorm.
func initGorm(db *sqlx.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: db.DB}), &gorm.Config{
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
		TranslateError: true,
	})
}
