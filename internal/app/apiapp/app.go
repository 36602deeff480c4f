package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ivanchenka/lumo/internal/config"
	s3infra "github.com/ivanchenka/lumo/internal/infra/s3"
	pgrepo "github.com/ivanchenka/lumo/internal/repo/postgres"
	redrepo "github.com/ivanchenka/lumo/internal/repo/redis"
	authsvc "github.com/ivanchenka/lumo/internal/services/auth"
	convsvc "github.com/ivanchenka/lumo/internal/services/conversations"
	feedsvc "github.com/ivanchenka/lumo/internal/services/feed"
	mediasvc "github.com/ivanchenka/lumo/internal/services/media"
	messagesvc "github.com/ivanchenka/lumo/internal/services/messages"
	ratesvc "github.com/ivanchenka/lumo/internal/services/rate"
	swipesvc "github.com/ivanchenka/lumo/internal/services/swipes"
	"github.com/ivanchenka/lumo/internal/transport/ws"
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN, cfg.Postgres.MaxConns); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	redisClient := redrepo.NewClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	rateRepo := redrepo.NewRateRepo(redisClient)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		Region:    cfg.S3.Region,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}

	swipeRepo := pgrepo.NewSwipeRepo(pool)
	exclusionRepo := pgrepo.NewExclusionRepo(pool)
	feedRepo := pgrepo.NewFeedRepo(pool)
	conversationRepo := pgrepo.NewConversationRepo(pool)
	messageRepo := pgrepo.NewMessageRepo(pool)

	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	mediaStorage := mediasvc.NewS3Storage(s3Client, cfg.S3.Bucket)
	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Limits.SwipesPerMinute, cfg.Limits.SwipesPer10Seconds)

	swipeService := swipesvc.NewService(swipesvc.Dependencies{
		Pool:        pool,
		SwipeStore:  swipeRepo,
		Exclusions:  exclusionRepo,
		RateLimiter: rateLimiter,
	})
	feedService := feedsvc.NewService(feedsvc.Dependencies{
		Candidates: feedRepo,
		Presigner:  mediaStorage,
		Config: feedsvc.Config{
			DefaultLimit: cfg.Feed.DefaultLimit,
			AvatarTTL:    cfg.Media.SignedURLTTL,
		},
	})
	conversationsService := convsvc.NewService(convsvc.Dependencies{
		Store:     conversationRepo,
		Presigner: mediaStorage,
		Config: convsvc.Config{
			DefaultLimit: cfg.Feed.DefaultLimit,
			AvatarTTL:    cfg.Media.SignedURLTTL,
		},
	})
	messageService := messagesvc.NewService(messagesvc.Dependencies{
		Store:      messageRepo,
		Categories: swipeService,
	})

	hub := ws.NewHub(log)
	wsHandler := ws.NewHandler(hub, messageService, log)

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	RegisterRoutes(r, Dependencies{
		JWTManager:           jwtManager,
		FeedService:          feedService,
		SwipeService:         swipeService,
		ConversationsService: conversationsService,
		WSHandler:            wsHandler,
		Logger:               log,
		Config:               cfg,
	})

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}
