package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	"golang.org/x/sync/errgroup"

	"ocha/internal/config"
	"ocha/internal/database"
	"ocha/internal/events"
	"ocha/internal/idempotency"
	"ocha/internal/models"
	"ocha/internal/repositories"
	"ocha/internal/server"
	"ocha/internal/services"
	"ocha/internal/validation"
	"ocha/pkg/kafka"
	"ocha/pkg/rabbitmq"
)

// kafkaInbox is the number of events the producer buffers before Publish fails fast.
const kafkaInbox = 1024

func main() {
	// --- Configuration ---
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// --- Database ---
	db, err := database.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)

	hostname, _ := os.Hostname()
	instance := cfg.ServiceName + "@" + hostname

	// --- Events ---
	hub := events.NewHub(instance)
	g.Go(func() error { return hub.Run(gctx) })

	sink, closeEvents, err := setupEvents(gctx, g, cfg, hub, instance, hostname)
	if err != nil {
		log.Fatalf("Failed to initialize %s event transport: %v", cfg.EventsBroker, err)
	}
	defer closeEvents()

	// --- Initialize Repositories ---
	userRepo := repositories.NewGORMUserRepository(db)
	productRepo := repositories.NewGORMProductRepository(db)
	storeRepo := repositories.NewGORMStoreRepository(db)
	orderRepo := repositories.NewGORMOrderRepository(db)

	// --- Initialize Services ---
	validate := validation.New()
	transitions := models.ForwardTransitions
	if cfg.AllowStatusRollback {
		transitions = models.RollbackTransitions
	}

	authService := services.NewAuthService(userRepo, validate, cfg.JWTSecret, cfg.TokenTTL, cfg.AdminEmails)
	productService := services.NewProductService(productRepo, validate, sink)
	storeService := services.NewStoreService(storeRepo, validate).WithTimeZone(cfg.StoreTimeZone)
	orderService := services.NewOrderService(orderRepo, productRepo, storeRepo, sink, transitions)

	if cfg.RedisAddr != "" {
		rdb := idempotency.NewRedisClient(cfg.RedisAddr)
		defer rdb.Close()
		store := idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)
		if err := store.Ping(gctx); err != nil {
			log.Printf("Warning: Redis at %s is not answering, idempotency keys will be ignored until it does: %v", cfg.RedisAddr, err)
		}
		orderService.WithIdempotency(store)
	}

	// --- Initialize Fiber App ---
	app := server.New(server.Deps{
		DB:             db,
		Validator:      validate,
		AuthService:    authService,
		OrderService:   orderService,
		ProductService: productService,
		StoreService:   storeService,
		Hub:            hub,
		AppName:        cfg.ServiceName,
		Broker:         cfg.EventsBroker,
		CORSOrigins:    cfg.CORSOrigins,
		RequestLog:     true,
	})

	// --- Start HTTP Server ---
	g.Go(func() error {
		log.Printf("Starting server on port %s", cfg.AppPort)
		return app.Listen(cfg.AppPort)
	})

	// Wait for interrupt signal to gracefully shut down the server
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down server...")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
	log.Println("Server gracefully stopped")
}

// setupEvents picks the event sink. Events always reach local websocket
// clients through the hub; with a broker they are also published there and
// a relay feeds other instances' events back into the hub.
func setupEvents(ctx context.Context, g *errgroup.Group, cfg config.Config, hub *events.Hub, instance, hostname string) (events.Sink, func(), error) {
	switch cfg.EventsBroker {
	case config.BrokerRabbitMQ:
		mqClient, err := rabbitmq.NewClient(rabbitmq.Config{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
			Queue:    cfg.RabbitMQQueue,
		})
		if err != nil {
			return nil, nil, err
		}
		g.Go(func() error {
			log.Println("Starting RabbitMQ event relay...")
			if err := mqClient.Consume(ctx, events.Relay(hub)); err != nil {
				// The API keeps serving; only cross-instance pushes stop.
				log.Printf("RabbitMQ relay stopped: %v", err)
			}
			return nil
		})
		closeFn := func() {
			if err := mqClient.Close(); err != nil {
				log.Printf("Error closing RabbitMQ client: %v", err)
			}
		}
		return events.Multi{hub, events.NewBrokerSink(mqClient, instance)}, closeFn, nil

	case config.BrokerKafka:
		producer := kafka.NewProducer(cfg.KafkaBrokers, cfg.KafkaTopic, kafkaInbox)
		producer.Start(ctx)
		// Every instance needs every event, so each one reads in its own group.
		consumer := kafka.NewConsumer(cfg.KafkaBrokers, cfg.KafkaGroup+"-"+hostname, cfg.KafkaTopic)
		g.Go(func() error {
			log.Println("Starting Kafka event relay...")
			if err := consumer.Start(ctx, events.Relay(hub)); err != nil {
				log.Printf("Kafka relay stopped: %v", err)
			}
			return nil
		})
		return events.Multi{hub, events.NewBrokerSink(producer, instance)}, producer.WaitClosed, nil

	default:
		return hub, func() {}, nil
	}
}
