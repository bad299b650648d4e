package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/wzyjerry/data-agent-web/internal/backend"
	"github.com/wzyjerry/data-agent-web/internal/pkg/config"
	"github.com/wzyjerry/data-agent-web/internal/pkg/jwt"
	"github.com/wzyjerry/data-agent-web/internal/pkg/logger"
	"github.com/wzyjerry/data-agent-web/internal/pkg/redis"
	"github.com/wzyjerry/data-agent-web/internal/session"
	"github.com/wzyjerry/data-agent-web/internal/validation"
	"github.com/wzyjerry/data-agent-web/internal/web"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.Format); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting Data Agent Web Client")
	if cfg.JWT.SecretKey == config.DefaultJWTSecret {
		logger.Warn("Session tokens are signed with the default secret; set JWT_SECRET_KEY")
	}

	store, err := openStore(cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize session store",
			zap.String("store", cfg.Session.Store),
			zap.Error(err))
	}
	defer store.Close()
	defer redis.Close()

	client := backend.New(backend.Config{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.BackendTimeout(),
	}, logger.Get())

	h, err := web.NewHandler(web.Options{
		Backend: client,
		Store:   store,
		Signer:  jwt.NewSigner(cfg.JWT.SecretKey, time.Duration(cfg.JWT.ExpireHours)*time.Hour),
		Auth: session.StubAuthenticator{
			UserID: cfg.Demo.UserID,
			Delay:  cfg.LoginDelay(),
		},
		Limiter:      session.NewRegisterLimiter(5*time.Minute, 10),
		Upload:       validation.NewUploadRules(cfg.Upload.AllowedExtensions, cfg.MaxUploadBytes()),
		Logger:       logger.Get(),
		SecureCookie: cfg.WebService.SecureCookie,
	})
	if err != nil {
		zap.L().Fatal("Failed to create handler", zap.Error(err))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.GetWebServiceAddr(),
		Handler:           h.NewRouter(logger.GinMiddleware(logger.Get())),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Print startup info
	fmt.Println(strings.Repeat("=", 61))
	fmt.Println("🌐 Starting Data Agent Web Client")
	fmt.Println(strings.Repeat("=", 61))
	fmt.Printf("📊 Service: Data Analysis Agent\n")
	fmt.Printf("🌐 URL: http://%s\n", cfg.GetWebServiceAddr())
	fmt.Printf("🔗 Backend: %s\n", client.BaseURL())
	fmt.Printf("💾 Sessions: %s\n", cfg.Session.Store)
	fmt.Println(strings.Repeat("=", 61))

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zap.L().Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
}

// openStore builds the session store named by session.store.
func openStore(cfg *config.Config) (session.Store, error) {
	ttl := cfg.SessionTTL()
	switch cfg.Session.Store {
	case "", session.StoreMemory:
		return session.NewMemoryStore(ttl), nil
	case session.StoreRedis:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redis.Init(ctx, cfg); err != nil {
			return nil, err
		}
		return session.NewRedisStore(redis.GetClient(), ttl), nil
	case session.StoreSQLite:
		return session.OpenSQLiteStore(cfg.Session.SQLitePath, ttl)
	default:
		return nil, fmt.Errorf("unknown session store %q", cfg.Session.Store)
	}
}
