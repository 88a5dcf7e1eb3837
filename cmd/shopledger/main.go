package main

import (
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"ShopLedger/internal/auth"
	"ShopLedger/internal/inventory"
	"ShopLedger/pkg/kit"
)

type config struct {
	Port            string        `envconfig:"PORT" default:"8080"`
	LogLevel        string        `envconfig:"LOG_LEVEL" default:"info"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	JWTSecret     string `envconfig:"JWT_SECRET" required:"true"`
	OwnerID       string `envconfig:"OWNER_ID" default:"owner"`
	OwnerEmail    string `envconfig:"OWNER_EMAIL" default:"owner@shopledger.local"`
	OwnerPassword string `envconfig:"OWNER_PASSWORD" required:"true"`

	RefundWindowTicks uint64        `envconfig:"REFUND_WINDOW_TICKS" default:"100"`
	BlockInterval     time.Duration `envconfig:"BLOCK_INTERVAL" default:"12s"`

	// DATABASE_URL enables the Postgres event journal; the ledger itself
	// stays in memory.
	DatabaseURL string `envconfig:"DATABASE_URL"`

	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricsToken   string `envconfig:"METRICS_TOKEN"`

	CORSOrigins []string `envconfig:"CORS_ORIGINS"`

	PurchaseRateLimit  int           `envconfig:"PURCHASE_RATE_LIMIT" default:"30"`
	PurchaseRateWindow time.Duration `envconfig:"PURCHASE_RATE_WINDOW" default:"1m"`
}

func main() {
	service := "shopledger"

	var cfg config
	if err := envconfig.Process("", &cfg); err != nil {
		kit.NewLogger(service, "info").Fatal("config", zap.Error(err))
	}

	log := kit.NewLogger(service, cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	registry := prometheus.NewRegistry()

	emitters := inventory.MultiEmitter{
		&inventory.LogEmitter{Log: log},
		inventory.NewMetricsEmitter(registry),
	}

	var journal *inventory.Journal
	if cfg.DatabaseURL != "" {
		db, err := sql.Open("pgx", cfg.DatabaseURL)
		if err != nil {
			log.Fatal("open database", zap.Error(err))
		}
		journal = inventory.NewJournal(db, log)
		defer journal.Close()
		emitters = append(emitters, journal)
	}

	clock := inventory.NewIntervalClock(cfg.BlockInterval)
	ledger := inventory.New(inventory.Identity(cfg.OwnerID), cfg.RefundWindowTicks, clock, emitters)

	users := auth.NewUsers()
	if err := users.Register(cfg.OwnerEmail, cfg.OwnerPassword, auth.RoleOwner, cfg.OwnerID); err != nil {
		log.Fatal("seed owner account", zap.Error(err))
	}
	tokens := auth.NewTokenMaker(cfg.JWTSecret)

	authSrv := &auth.Server{Log: log, Users: users, JWT: tokens}
	srv := &inventory.Server{Ledger: ledger, Journal: journal, Log: log}

	h := inventory.NewHandler(srv, inventory.HTTPDeps{
		Log:            log,
		Service:        service,
		Registry:       registry,
		MetricsEnabled: cfg.MetricsEnabled,
		MetricsToken:   cfg.MetricsToken,
		Tokens:         tokens,
		Auth:           authSrv.Routes(),
		CORSOrigins:    cfg.CORSOrigins,
		BuyLimiter:     kit.NewIPRateLimiter(cfg.PurchaseRateLimit, cfg.PurchaseRateWindow),
	})

	if err := kit.RunHTTPServer(":"+cfg.Port, h, log, cfg.ShutdownTimeout); err != nil {
		log.Fatal("http server stopped", zap.Error(err))
	}
}
