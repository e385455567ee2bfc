package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"

	zatcahttp "tabadul/ms_zatca_gateway/internal/adapters/http/zatca"
	auditpg "tabadul/ms_zatca_gateway/internal/adapters/audit/postgres"
	"tabadul/ms_zatca_gateway/internal/adapters/certificate/csr"
	"tabadul/ms_zatca_gateway/internal/adapters/invoice/ubl"
	"tabadul/ms_zatca_gateway/internal/adapters/invoice/zatca"
	appcert "tabadul/ms_zatca_gateway/internal/application/certificate"
	appinvoice "tabadul/ms_zatca_gateway/internal/application/invoice"
	"tabadul/ms_zatca_gateway/internal/core/audit"
	coreinvoice "tabadul/ms_zatca_gateway/internal/core/invoice"
	"tabadul/ms_zatca_gateway/internal/infrastructure/config"
	infrahttp "tabadul/ms_zatca_gateway/internal/infrastructure/http"
	"tabadul/ms_zatca_gateway/internal/infrastructure/http/middleware"
	"tabadul/ms_zatca_gateway/internal/infrastructure/http/server"
	"tabadul/ms_zatca_gateway/internal/infrastructure/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "service stopped: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Audit trail needs a database; the gateway keeps working without
	// one, it just stops recording authority traffic.
	var auditRepo audit.Repository
	if cfg.Database.Host != "" && cfg.Database.Database != "" {
		connString := fmt.Sprintf(
			"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s pool_max_conns=%d",
			cfg.Database.Host,
			cfg.Database.Port,
			cfg.Database.Database,
			cfg.Database.User,
			cfg.Database.Password,
			cfg.Database.SSLMode,
			cfg.Database.MaxOpenConns,
		)
		pool, err := pgxpool.New(ctx, connString)
		if err != nil {
			log.Warn("Failed to open database, audit trail will be disabled",
				"error", err,
				"host", cfg.Database.Host,
				"database", cfg.Database.Database,
			)
		} else if err := pool.Ping(ctx); err != nil {
			pool.Close()
			log.Warn("Failed to connect to database, audit trail will be disabled",
				"error", err,
				"host", cfg.Database.Host,
				"database", cfg.Database.Database,
			)
		} else {
			defer pool.Close()
			auditRepo = auditpg.NewRepository(pool, log)
			log.Info("Database connection established", "database", cfg.Database.Database)
		}
	} else {
		log.Info("Database not configured, audit trail will be disabled")
	}

	auditEnabled := cfg.Audit.Enabled && auditRepo != nil
	if cfg.Audit.Enabled && auditRepo == nil {
		log.Warn("Audit trail disabled: database connection required",
			"audit_enabled_config", cfg.Audit.Enabled,
		)
	}

	tracedClient := infrahttp.NewTracedClient(&infrahttp.TracedClientConfig{
		Timeout:         cfg.Zatca.APITimeout,
		AuditEnabled:    auditEnabled,
		LogRequestBody:  cfg.Audit.LogRequestBody,
		LogResponseBody: cfg.Audit.LogResponseBody,
		MaxBodySize:     cfg.Audit.MaxBodySize,
	}, log, auditRepo, "zatca")

	// Submission stays disabled until authority credentials are set;
	// generation and CSR endpoints work regardless.
	var reporter coreinvoice.Reporter
	if cfg.Zatca.ReportingConfigured() {
		authManager := zatca.NewAuthManager(
			cfg.Zatca.APIBase,
			cfg.Zatca.ClientID,
			cfg.Zatca.ClientSecret,
			cfg.Zatca.TokenTTL,
			tracedClient,
			log,
		)
		reporter = zatca.NewClient(
			cfg.Zatca.APIBase,
			cfg.Zatca.DeviceUUID,
			cfg.Zatca.ClearanceStatus,
			authManager,
			tracedClient,
			log,
		)
		log.Info("ZATCA reporting configured",
			"api_base", cfg.Zatca.APIBase,
			"device_uuid_set", cfg.Zatca.DeviceUUID != "",
			"token_ttl", cfg.Zatca.TokenTTL,
		)
	} else {
		log.Warn("ZATCA reporting not configured, report-invoice will fail",
			"api_base_set", cfg.Zatca.APIBase != "",
			"client_id_set", cfg.Zatca.ClientID != "",
		)
	}

	invoiceService := appinvoice.NewService(
		ubl.NewGenerator(log),
		ubl.NewFileStore(cfg.Zatca.InvoiceDir),
		reporter,
		log,
	)
	certService := appcert.NewService(csr.NewBuilder(), log)

	handler := zatcahttp.NewHandler(invoiceService, certService, log)

	var authenticator *middleware.JWTAuthenticator
	if cfg.Auth.Enabled {
		authenticator, err = middleware.NewJWTAuthenticator(cfg.Auth, log)
		if err != nil {
			return fmt.Errorf("create JWT authenticator: %w", err)
		}
		log.Info("JWT authentication enabled", "issuer", cfg.Auth.IssuerURI)
	}

	srv, err := server.New(server.Options{
		Addr:          cfg.HTTP.Address(),
		Logger:        log,
		Handler:       handler,
		Authenticator: authenticator,
	})
	if err != nil {
		return fmt.Errorf("create server: %w", err)
	}

	log.Info("Starting HTTP server", "port", cfg.HTTP.Port)
	return srv.Run(ctx)
}
