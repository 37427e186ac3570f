package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"chat-shell/internal/config"
	"chat-shell/internal/db"
	apihttp "chat-shell/internal/http"
	"chat-shell/internal/kv"
	"chat-shell/internal/llm"
	"chat-shell/internal/local"
	"chat-shell/internal/metrics"
	"chat-shell/internal/repository"
	"chat-shell/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

func main() {
	ctx := context.Background()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	lang := local.ParseLanguage(cfg.UILanguage)

	// Postgres es opcional: solo hace falta para el backend postgres o las cuentas locales persistentes.
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg)
		if err != nil {
			logger.Fatal("db connect", zap.Error(err))
		}
		defer pool.Close()
		if err := db.EnsureSchema(ctx, pool); err != nil {
			logger.Fatal("db schema", zap.Error(err))
		}
	}

	store, closeStore, err := kv.Open(ctx, cfg, pool, logger)
	if err != nil {
		logger.Fatal("open storage", zap.Error(err), zap.String("backend", cfg.StorageBackend))
	}
	defer func() {
		if err := closeStore(); err != nil {
			logger.Warn("close storage", zap.Error(err))
		}
	}()

	llmClient, err := llm.NewFromConfig(cfg, local.PlaceholderReply.Text(lang), logger)
	if err != nil {
		logger.Fatal("llm client", zap.Error(err))
	}

	m := metrics.New()
	chat := service.NewChatSession(service.ChatSessionDeps{
		Store:   store,
		LLM:     llmClient,
		Logger:  logger,
		Metrics: m,
	}, service.ChatSessionOptions{
		Language:     lang,
		ReplyTimeout: cfg.ReplyTimeout,
	})
	if err := chat.Init(ctx); err != nil {
		logger.Fatal("chat session init", zap.Error(err))
	}
	defer chat.Close()

	var (
		providers []service.AuthProvider
		jwtSvc    *service.JWTService
	)
	if cfg.AuthLocalEnabled {
		if cfg.JWTSecret == "" {
			logger.Fatal("AUTH_LOCAL_ENABLED requires JWT_SECRET")
		}
		jwtSvc = service.NewJWTService(cfg.JWTSecret, time.Duration(cfg.JWTAccessTTLMinutes)*time.Minute)
		userSvc := service.NewUserService(logger, userRepository(pool), loginLimiter(ctx, cfg, logger))
		providers = append(providers, service.NewLocalPasswordProvider(userSvc, jwtSvc, logger))
	}

	nav := &service.LocationTracker{}
	shell := service.NewAuthShell(service.AuthShellDeps{
		Store:     store,
		Navigator: nav,
		Providers: providers,
		Logger:    logger,
	}, service.AuthShellOptions{
		ClientID:     cfg.GitHubClientID,
		RedirectURI:  cfg.GitHubRedirectURI,
		AuthorizeURL: cfg.GitHubAuthorizeURL,
		Scope:        cfg.GitHubScope,
		ExchangeURL:  cfg.AuthExchangeURL,
		ProfileURL:   cfg.ProfileURL,
		ChatPage:     cfg.ChatPage,
		HomePage:     cfg.HomePage,
		Language:     lang,
		LoginWindow:  cfg.LoginWindow,
	})
	if err := shell.Init(ctx); err != nil {
		logger.Fatal("auth shell init", zap.Error(err))
	}

	var ping func(context.Context) error
	if pool != nil {
		ping = func(ctx context.Context) error { return db.Ping(ctx, pool) }
	}

	router := apihttp.NewRouter(logger, m,
		apihttp.NewChatHandler(logger, chat),
		apihttp.NewAuthHandler(logger, shell, nav, cfg.ChatPage),
		jwtSvc,
		ping,
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sigCtx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	wg := conc.NewWaitGroup()
	wg.Go(func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort), zap.String("storage", cfg.StorageBackend))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
			stop()
		}
	})
	wg.Go(func() {
		<-sigCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		logger.Info("shutting down")
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("server shutdown", zap.Error(err))
		}
	})
	wg.Wait()
}

func userRepository(pool *pgxpool.Pool) repository.UserRepository {
	if pool == nil {
		return repository.NewMemoryUserRepository()
	}
	return repository.NewPgUserRepository(pool)
}

// loginLimiter usa redis si está configurado y responde; si no, un limiter en memoria.
func loginLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) service.LoginRateLimiter {
	if cfg.RedisAddr == "" {
		return service.NewLoginRateLimiter(cfg.LoginWindow, cfg.LoginMaxAttempts)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(ctxPing).Err(); err != nil {
		logger.Warn("redis ping failed, using in-memory login limiter", zap.Error(err))
		_ = client.Close()
		return service.NewLoginRateLimiter(cfg.LoginWindow, cfg.LoginMaxAttempts)
	}
	return service.NewRedisLoginRateLimiter(client, cfg.KVPrefix, cfg.LoginWindow, cfg.LoginMaxAttempts)
}
