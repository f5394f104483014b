package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/go-admin-auth/internal/application/magiclink"
	"github.com/go-admin-auth/internal/application/session"
	"github.com/go-admin-auth/internal/application/user"
	"github.com/go-admin-auth/internal/config"
	"github.com/go-admin-auth/internal/domain"
	"github.com/go-admin-auth/internal/infrastructure/dynamo"
	"github.com/go-admin-auth/internal/infrastructure/guardian"
	jwtinfra "github.com/go-admin-auth/internal/infrastructure/jwt"
	"github.com/go-admin-auth/internal/infrastructure/memory"
	"github.com/go-admin-auth/internal/infrastructure/postgres"
	"github.com/go-admin-auth/internal/infrastructure/redisstore"
	"github.com/go-admin-auth/internal/infrastructure/smtp"
	"github.com/go-admin-auth/internal/infrastructure/sns"
	"github.com/go-admin-auth/internal/infrastructure/telemetry"
	transporthttp "github.com/go-admin-auth/internal/transport/http"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const serviceName = "go-admin-auth"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	slog.SetDefault(newLogger(cfg))

	if err := run(cfg); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

func newLogger(cfg *config.Config) *slog.Logger {
	if cfg.IsProduction() {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, serviceName, cfg.OTLPEndpoint, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("flush traces", "err", err)
		}
	}()

	// DynamoDB is only dialled when a store needs it; tables are created if missing.
	var dynamoClient *dynamodb.Client
	if cfg.SessionStore == config.StoreDynamo || cfg.UserStore == config.StoreDynamo {
		if dynamoClient, err = dynamo.NewClient(ctx, cfg); err != nil {
			return err
		}
		dynamo.Bootstrap(ctx, dynamoClient, cfg.DynamoTables)
	}

	store, closeStore, err := openSessionStore(ctx, cfg, dynamoClient)
	if err != nil {
		return err
	}
	defer closeStore()

	userDeps := user.ServiceDeps{UserRepo: memory.NewUserStore()}
	if cfg.UserStore == config.StoreDynamo {
		userDeps.UserRepo = dynamo.NewUserRepo(dynamoClient, cfg.DynamoTables.Users)
	}
	users := user.NewService(userDeps)
	if err := seedUser(ctx, cfg, users); err != nil {
		return err
	}

	jwtProvider, err := jwtinfra.NewProvider(cfg)
	if err != nil {
		return fmt.Errorf("jwt provider: %w", err)
	}
	sessions := session.NewService(session.ServiceDeps{
		Store:       store,
		JWTProvider: jwtProvider,
		TTL:         cfg.SessionTTL,
	})

	g, err := newGuardian(ctx, cfg, users, store, sessions)
	if err != nil {
		return err
	}

	go session.NewSweeper(sessions, cfg.SessionSweepInterval, slog.Default()).Run(ctx)

	router := transporthttp.NewRouter(ctx, cfg, &transporthttp.Deps{
		Guardian: g,
		Sessions: sessions,
		Verifier: jwtProvider,
		Logger:   slog.Default(),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      otelhttp.NewHandler(router, "http.server"),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "port", cfg.AppPort, "env", cfg.AppEnv,
			"session_store", cfg.SessionStore, "user_store", cfg.UserStore, "remote_guardian", cfg.GuardianURL != "")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("forced shutdown: %w", err)
	}
	slog.Info("server stopped")
	return nil
}

// openSessionStore returns the store selected by SESSION_STORE and a func that
// releases its connections.
func openSessionStore(ctx context.Context, cfg *config.Config, dynamoClient *dynamodb.Client) (session.Persistence, func(), error) {
	switch cfg.SessionStore {
	case config.StoreDynamo:
		return dynamo.NewSessionRepo(dynamoClient, cfg.DynamoTables.Sessions), func() {}, nil
	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewSessionStore(client, cfg.RedisPrefix), func() { _ = client.Close() }, nil
	case config.StorePostgres:
		pool, err := postgres.Connect(ctx, cfg.PostgresURL)
		if err != nil {
			return nil, nil, err
		}
		return postgres.NewSessionStore(pool), pool.Close, nil
	default:
		slog.Warn("using in-memory session store; sessions are lost on restart")
		return memory.NewSessionStore(), func() {}, nil
	}
}

func seedUser(ctx context.Context, cfg *config.Config, users user.Service) error {
	if cfg.SeedUserEmail == "" {
		return nil
	}
	req := domain.CreateUserRequest{Email: cfg.SeedUserEmail}
	if cfg.SeedUserPhone != "" {
		req.Phone = &cfg.SeedUserPhone
	}
	u, err := users.EnsureSeed(ctx, req)
	if err != nil {
		return fmt.Errorf("seed user: %w", err)
	}
	slog.Info("seed user ready", "user_id", u.UserID, "email", u.Email)
	return nil
}

// newGuardian talks to the remote guardian when GUARDIAN_URL is set and runs
// the built-in one otherwise.
func newGuardian(ctx context.Context, cfg *config.Config, users user.Service, store session.Persistence, sessions session.Service) (magiclink.Guardian, error) {
	if cfg.GuardianURL != "" {
		return guardian.NewClient(cfg.GuardianURL, cfg.GuardianTimeout), nil
	}
	awsCfg, err := dynamo.LoadAWSConfig(ctx, cfg, cfg.SNSRegion)
	if err != nil {
		return nil, err
	}
	return magiclink.NewService(magiclink.ServiceDeps{
		Users:    users,
		Sessions: store,
		Issuer:   sessions,
		Mailer:   smtp.NewMailer(cfg),
		SMS:      sns.NewSender(awsCfg, cfg.AWSEndpointURL, cfg.SNSSenderID),
		TTL:      cfg.MagicLinkTTL,
		BaseURL:  cfg.MagicLinkBaseURL,
	}), nil
}
