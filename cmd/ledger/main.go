package main

import (
	"log"
	"os"

	"github.com/labstack/echo/v4"

	"github.com/finvero/ledgercore/internal/pkg/circuitbreaker"
	"github.com/finvero/ledgercore/internal/pkg/config"
	"github.com/finvero/ledgercore/internal/pkg/database"
	"github.com/finvero/ledgercore/internal/pkg/health"
	"github.com/finvero/ledgercore/internal/pkg/ledgererr"
	"github.com/finvero/ledgercore/internal/pkg/logger"
	"github.com/finvero/ledgercore/internal/pkg/middleware"
	"github.com/finvero/ledgercore/internal/pkg/nsq"
	"github.com/finvero/ledgercore/internal/pkg/retry"
	"github.com/finvero/ledgercore/internal/pkg/server"
	"github.com/finvero/ledgercore/services/ledger/gateway"
	"github.com/finvero/ledgercore/services/ledger/handler"
	httpHandler "github.com/finvero/ledgercore/services/ledger/handler/http"
	nsqHandler "github.com/finvero/ledgercore/services/ledger/handler/nsq"
	"github.com/finvero/ledgercore/services/ledger/repository"
	"github.com/finvero/ledgercore/services/ledger/usecase"
)

func main() {
	appName := "ledger-service"
	configs := config.InitConfig(os.Getenv("CONFIG_PATH"))

	zapLogger, err := logger.NewZapLogger(configs.Logger)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Close()

	zapLogger.Info("Starting application",
		logger.String("app", appName),
		logger.String("version", configs.App.Version),
		logger.String("environment", configs.App.Environment))

	// Initialize PostgreSQL connection
	postgresClient, err := database.NewPostgresClient(configs.Database)
	if err != nil {
		zapLogger.Fatal("Failed to connect to PostgreSQL", logger.Err(err))
	}
	defer postgresClient.Close()

	// Initialize Redis client
	redisClient, err := database.NewRedisClient(configs.Redis)
	if err != nil {
		zapLogger.Fatal("Failed to connect to Redis", logger.Err(err))
	}
	defer redisClient.Close()

	// Initialize NSQ producer
	producer, err := nsq.NewProducer(configs.NSQ.Address)
	if err != nil {
		zapLogger.Fatal("Failed to connect to NSQ", logger.Err(err))
	}
	defer producer.Stop()

	// One breaker per dependency so an outage in one cannot trip the
	// others
	breakers := circuitbreaker.NewManager(zapLogger)
	breakerConfig := func(name string) circuitbreaker.Config {
		cfg := circuitbreaker.FromAppConfig(name,
			configs.CircuitBreaker.FailureThreshold,
			configs.CircuitBreaker.SuccessThreshold,
			configs.CircuitBreaker.MaxHalfOpenCalls,
			configs.CircuitBreaker.ResetTimeout)
		// Validation and business rejections are healthy answers and
		// must not trip a breaker
		cfg.IsFailure = ledgererr.IsInfrastructure
		return cfg
	}
	cacheConfig := breakerConfig("cache")
	// Same rule for Redis, plus the absent-key answer on a cold read
	cacheConfig.IsFailure = func(err error) bool {
		return !database.IsCacheMiss(err) && ledgererr.IsInfrastructure(err)
	}
	storeBreaker := breakers.GetOrCreate("store", breakerConfig("store"))
	cacheBreaker := breakers.GetOrCreate("cache", cacheConfig)
	queueBreaker := breakers.GetOrCreate("queue", breakerConfig("queue"))
	gatewayBreaker := breakers.GetOrCreate("payment-gateway", breakerConfig("payment-gateway"))

	// Retrier for serialization conflicts and deadlocks
	retryConfig := retry.DefaultConfig()
	retryConfig.MaxRetries = configs.Retry.MaxRetries
	retryConfig.BaseDelay = configs.Retry.BaseDelay
	retryConfig.MaxDelay = configs.Retry.MaxDelay
	retrier := retry.New(retryConfig, zapLogger)

	// Initialize repositories
	ledgerRepo := repository.NewLedgerRepository(configs, postgresClient.GetDB(), zapLogger)
	accountRepo := repository.NewAccountRepository(configs, postgresClient.GetDB(), zapLogger)
	accountCache := repository.NewAccountCache(configs, redisClient, cacheBreaker, zapLogger)

	// Initialize gateways
	queueGW := gateway.NewQueueGateway(producer, queueBreaker, zapLogger)
	paymentGW := gateway.NewPaymentGateway(configs.Gateway, gatewayBreaker, zapLogger)

	// Initialize usecases
	ledgerUC := usecase.NewLedgerUsecase(configs, ledgerRepo, accountRepo, accountCache, queueGW, storeBreaker, retrier, zapLogger)
	paymentUC := usecase.NewPaymentUsecase(configs, paymentGW, zapLogger)

	// Initialize HTTP handlers
	ledgerHandler := httpHandler.NewLedgerHandler(ledgerUC, zapLogger)
	accountHandler := httpHandler.NewAccountHandler(ledgerUC, zapLogger)
	paymentHandler := httpHandler.NewPaymentHandler(paymentUC, zapLogger)
	adminHandler := httpHandler.NewAdminHandler(breakers, zapLogger)

	h := handler.NewHandler(ledgerHandler, accountHandler, paymentHandler, adminHandler, configs)

	// Audit-trail consumers for finalized transaction events
	eventHandler := nsqHandler.NewEventHandler(configs, producer, zapLogger)
	if err := eventHandler.InitConsumers(); err != nil {
		zapLogger.Fatal("Failed to initialize NSQ consumers", logger.Err(err))
	}
	defer eventHandler.Stop()

	// Initialize Echo router
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.PanicRecoveryMiddleware(zapLogger))

	health.RegisterHealthEndpoints(e, appName, configs.App.Version)
	h.RegisterRoutes(e)

	zapLogger.Info("Starting server",
		logger.String("app", appName),
		logger.Int("port", configs.Server.Port))

	srv := server.NewGracefulServer(e, zapLogger, configs.Server.Port)
	if err := srv.Start(); err != nil {
		zapLogger.Fatal("Server terminated", logger.Err(err))
	}
}
