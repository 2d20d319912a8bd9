package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"cart-service/handlers"
	"cart-service/internal/auth"
	"cart-service/internal/cart"
	"cart-service/internal/consul"
	"cart-service/internal/products"
	"cart-service/internal/stores/kafka"
	"cart-service/internal/stores/postgres"
	"cart-service/pkg/logkey"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
)

const serviceName = "carts"

func main() {
	setupSlog()

	if err := startApp(); err != nil {
		slog.Error("service stopped", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	// .env is a local-dev convenience; in deployment the environment is
	// provided by the platform
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", slog.String(logkey.ERROR, err.Error()))
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "8084"
	}
	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("invalid APP_PORT %q: %w", port, err)
	}

	// Public key for verifying tokens issued by the user service
	keyFile := os.Getenv("AUTH_PUBLIC_KEY_FILE")
	if keyFile == "" {
		keyFile = "pubkey.pem"
	}
	pem, err := os.ReadFile(keyFile)
	if err != nil {
		return fmt.Errorf("reading auth public key: %w", err)
	}
	a, err := auth.NewKeys(pem)
	if err != nil {
		return fmt.Errorf("initializing auth keys: %w", err)
	}

	// Consul: discovery of the product and order services, plus our own
	// registration so the gateway can find us
	consulClient, err := consul.NewClient()
	if err != nil {
		return fmt.Errorf("connecting to consul: %w", err)
	}
	serviceAddress := os.Getenv("SERVICE_ADDRESS")
	if serviceAddress == "" {
		serviceAddress, err = os.Hostname()
		if err != nil {
			return fmt.Errorf("resolving hostname: %w", err)
		}
	}
	serviceID := fmt.Sprintf("%s-%s-%s", serviceName, serviceAddress, port)
	if err := consul.RegisterService(consulClient, serviceName, serviceID, serviceAddress, portNum); err != nil {
		slog.Warn("consul registration failed, continuing unregistered", slog.String(logkey.ERROR, err.Error()))
	}

	fetcher, err := products.NewConf(consulClient)
	if err != nil {
		return fmt.Errorf("initializing product client: %w", err)
	}

	cConf := cart.NewConf()

	// Snapshot persistence is optional; without a DSN the carts live purely
	// in memory for the session
	var snap handlers.Snapshots
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		db, err := sql.Open("pgx", dsn)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer db.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.PingContext(pingCtx); err != nil {
			return fmt.Errorf("pinging database: %w", err)
		}
		if err := postgres.Migrate(db); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
		pgConf, err := postgres.NewConf(db)
		if err != nil {
			return fmt.Errorf("initializing snapshot store: %w", err)
		}
		snap = &pgConf
		slog.Info("cart snapshot persistence enabled")
	}

	// Kafka is optional as well; without brokers events are simply not
	// published
	var kafkaConf *kafka.Conf
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		kafkaConf, err = kafka.NewConf(strings.Split(brokers, ","))
		if err != nil {
			return fmt.Errorf("initializing kafka producer: %w", err)
		}
		defer kafkaConf.Close()
		slog.Info("cart event publishing enabled")
	}

	api := handlers.API("/carts", a, consulClient, cConf, fetcher, kafkaConf, snap)

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      api,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("starting cart service", slog.String("Port", port))
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case sig := <-shutdown:
		slog.Info("shutdown initiated", slog.String("Signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			if closeErr := server.Close(); closeErr != nil {
				return fmt.Errorf("forcing server close: %w", closeErr)
			}
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

func setupSlog() {
	logHandler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
	})
	slog.SetDefault(slog.New(logHandler))
}
