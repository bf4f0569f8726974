package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/account"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/catalog"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/config"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/db"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/events"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/metrics"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/order"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/promotion"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/sequence"
	"github.com/andreasstove999/ecommerce-system/services/storefront-service-go/internal/storefront"
)

// app holds the wired dependencies shared by the CLI commands.
type app struct {
	cfg      config.Config
	logger   *logrus.Logger
	registry *prometheus.Registry
	metrics  *metrics.Metrics

	pool  *pgxpool.Pool
	sqlDB *sql.DB
	amqp  *amqp.Connection
	pub   *events.Publisher

	catalog    *catalog.PostgresRepository
	promotions *promotion.PostgresRepository
	store      *storefront.Service
	accounts   *account.Service
}

func loadConfig() (config.Config, *logrus.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, err
	}
	logger, err := cfg.NewLogger()
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, logger, nil
}

func newApp(ctx context.Context, cfg config.Config, logger *logrus.Logger, publish bool) (*app, error) {
	a := &app{cfg: cfg, logger: logger, registry: prometheus.NewRegistry()}
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	a.metrics = metrics.New(a.registry)

	var err error
	a.pool, err = db.NewPool(ctx, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	a.sqlDB, err = db.Open(ctx, cfg.DatabaseDSN)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("db open: %w", err)
	}

	var publisher storefront.Publisher = events.NopPublisher{}
	if publish && cfg.PublishEvents {
		a.amqp, err = events.Dial(cfg.RabbitMQURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.pub, err = events.NewPublisher(a.amqp, sequence.NewCounter(a.pool), events.PublisherOptions{})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("events publisher: %w", err)
		}
		publisher = a.pub
	}

	a.catalog = catalog.NewPostgresRepository(a.pool)
	a.promotions = promotion.NewPostgresRepository(a.pool)
	a.store = storefront.NewService(storefront.Deps{
		Catalog:    a.catalog,
		Promotions: a.promotions,
		Orders:     order.NewRepository(a.sqlDB),
		Publisher:  publisher,
		Metrics:    a.metrics,
		Logger:     logger,
	})
	a.accounts = account.NewService(account.NewRepository(a.sqlDB))
	return a, nil
}

func (a *app) Close() {
	if a.pub != nil {
		_ = a.pub.Close()
	}
	if a.amqp != nil {
		_ = a.amqp.Close()
	}
	if a.sqlDB != nil {
		_ = a.sqlDB.Close()
	}
	if a.pool != nil {
		a.pool.Close()
	}
}
