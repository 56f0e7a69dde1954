package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rental-ledger/config"
	"rental-ledger/database"
	"rental-ledger/httpServices/gemini"
	"rental-ledger/httpServices/storage"
	"rental-ledger/logger"
	"rental-ledger/mq"
	"rental-ledger/repositories"
	"rental-ledger/routes"
	"rental-ledger/services/ledger"
	"rental-ledger/services/lock"
	"rental-ledger/services/receipt"
	"rental-ledger/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/shopspring/decimal"
)

func main() {
	decimal.MarshalJSONWithoutQuotes = true

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: " + err.Error())
	}

	db, err := database.InitDB(cfg)
	if err != nil {
		logger.Fatal("Failed to connect to the database: " + err.Error())
	}
	defer database.Close()

	ctx := context.Background()

	// Exclusive sections: redis when configured, in-process otherwise
	var locker lock.Locker = lock.NewKeyedMutex()
	if cfg.RedisAddr != "" {
		client, err := lock.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Error("Redis unavailable, using in-process locks", err)
		} else {
			defer client.Close()
			locker = lock.NewRedisLocker(client, "rental-ledger:lock:", cfg.LockTTL)
			logger.Success("Using redis locks at " + cfg.RedisAddr)
		}
	}

	// Event publishing
	var publisher ledger.Publisher = mq.NoopPublisher{}
	if cfg.AMQPURL != "" {
		p, err := mq.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange)
		if err != nil {
			logger.Error("RabbitMQ unavailable, events disabled", err)
		} else {
			defer p.Close()
			publisher = p
			logger.Success("Publishing events to exchange " + cfg.AMQPExchange)
		}
	}

	// AI collaborator
	var ai *gemini.Client
	if cfg.GeminiAPIKey != "" {
		ai, err = gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			logger.Error("Gemini unavailable, AI features disabled", err)
			ai = nil
		}
	} else {
		logger.Warning("GEMINI_API_KEY not set, AI features disabled")
	}

	// Receipt archive
	var archive receipt.Archiver
	if cfg.ReceiptBucket != "" {
		s3Archive, err := storage.NewS3Archive(ctx, storage.Config{
			Bucket:    cfg.ReceiptBucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			logger.Error("Receipt archive unavailable", err)
		} else {
			archive = s3Archive
		}
	}

	bookingRepo := repositories.NewBookingRepository(db)
	transactionRepo := repositories.NewTransactionRepository(db)
	receiptRepo := repositories.NewReceiptRepository(db)

	var (
		drafter   ledger.ContractDrafter
		validator settlement.Validator
		composer  receipt.Composer
	)
	if ai != nil {
		drafter, validator, composer = ai, ai, ai
	}

	bookingLedger := ledger.New(bookingRepo, locker, drafter, publisher)
	settler := settlement.New(transactionRepo, validator, bookingLedger, publisher, settlement.Options{
		Delay:   cfg.SettlementDelay,
		Workers: cfg.SettlementWorkers,
	})
	receipts := receipt.New(receiptRepo, transactionRepo, composer, archive)

	settler.Start()
	if _, err := settler.Requeue(ctx); err != nil {
		logger.Error("Failed to requeue pending transactions", err)
	}

	asyncLogger := logger.NewAsyncLogger(db)
	go asyncLogger.ProcessLog()

	app := fiber.New(fiber.Config{
		ReadBufferSize:  32768, // 32KB read buffer
		WriteBufferSize: 32768, // 32KB write buffer
		ReadTimeout:     time.Second * 30,
		WriteTimeout:    time.Second * 30,
		BodyLimit:       4 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.FrontendURL,
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	routes.SetupRoutes(app, routes.Services{
		Bookings:     bookingLedger,
		Transactions: settler,
		Receipts:     receipts,
		RequestLog:   asyncLogger,
	})

	go func() {
		logger.Success("Server is running on " + cfg.Addr())
		if err := app.Listen(cfg.Addr()); err != nil {
			logger.Error("Server stopped", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Error("Server shutdown failed", err)
	}
	settler.Stop()
	bookingLedger.Wait()
	receipts.Wait()
	asyncLogger.Close()
	logger.Success("Shutdown complete")
}
