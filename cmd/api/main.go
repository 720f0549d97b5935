package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	_ "github.com/redmonkez12/tasky/docs" // Swagger docs (generated)
	"github.com/redmonkez12/tasky/internal/auth"
	"github.com/redmonkez12/tasky/internal/config"
	"github.com/redmonkez12/tasky/internal/database"
	"github.com/redmonkez12/tasky/internal/email"
	httpServer "github.com/redmonkez12/tasky/internal/http"
	"github.com/redmonkez12/tasky/internal/logging"
	"github.com/redmonkez12/tasky/internal/ratelimit"
	"github.com/redmonkez12/tasky/internal/stats"
	"github.com/redmonkez12/tasky/internal/task"
	"github.com/redmonkez12/tasky/internal/user"
)

// @title           Tasky API
// @version         1.0
// @description     Personal task tracker with per-user tasks, rate-limited creation and token authentication.

// @contact.name   API Support
// @contact.email  support@example.com

// @license.name  MIT
// @license.url   https://opensource.org/licenses/MIT

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the access token.

func main() {
	if err := run(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := logging.NewLogger(cfg.Server.IsDevelopment())
	logger.Info("starting application",
		"env", cfg.Server.Env,
		"port", cfg.Server.Port,
		"token_strategy", cfg.Auth.TokenStrategy,
	)

	ctx := context.Background()

	db, err := database.Open(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(ctx, db.DB); err != nil {
			return err
		}
		logger.Info("database migrations applied")
	}

	redisClient, err := initRedis(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("failed to initialize Redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories
	userRepo := user.NewRepository(db)
	taskRepo := task.NewRepository(db)
	statsRepo := stats.NewRepository(db)
	resetRepo := auth.NewRepository(db)
	refreshRepo := auth.NewRedisRepository(redisClient)

	rateLimiter := ratelimit.NewLimiter(redisClient)

	tokenService, err := auth.NewTokenService(cfg.Auth)
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	emailService, err := email.NewService(cfg.Email, cfg.Auth.ResetTokenDuration, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize email service: %w", err)
	}

	// Services
	authService := auth.NewService(
		userRepo,
		refreshRepo,
		resetRepo,
		tokenService,
		emailService,
		logger,
		auth.Durations{
			AccessToken:  cfg.Auth.AccessTokenDuration,
			RefreshToken: cfg.Auth.RefreshTokenDuration,
			ResetToken:   cfg.Auth.ResetTokenDuration,
		},
	)
	taskService := task.NewService(taskRepo, rateLimiter, ratelimit.Policy{
		Limit:  cfg.RateLimit.TaskCreateLimit,
		Window: cfg.RateLimit.TaskCreateWindow,
	}, logger)
	statsService := stats.NewService(statsRepo, userRepo, redisClient, cfg.Stats.CacheTTL, logger)

	// HTTP
	handlers := httpServer.Handlers{
		Auth: auth.NewHandler(authService, user.NewService(userRepo), rateLimiter, logger, auth.HandlerOptions{
			SecureCookies:   !cfg.Server.IsDevelopment(),
			AccessDuration:  cfg.Auth.AccessTokenDuration,
			RefreshDuration: cfg.Auth.RefreshTokenDuration,
			IPPolicy:        ratelimit.Policy{Limit: cfg.RateLimit.AuthIPLimit, Window: cfg.RateLimit.AuthIPWindow},
			EmailCooldown:   cfg.RateLimit.EmailCooldown,
		}),
		Tasks: task.NewHandler(taskService),
		Stats: stats.NewHandler(statsService),
	}
	health := map[string]httpServer.Pinger{
		"postgres": httpServer.PingFunc(db.PingContext),
		"redis":    httpServer.PingFunc(func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }),
	}

	router := httpServer.NewRouter(cfg, handlers, auth.NewMiddleware(tokenService, logger), health, logger)

	server := httpServer.NewServer(cfg.Server, router, logger)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Run(ctx)
}

// initRedis connects and pings Redis
func initRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}

	return client, nil
}
