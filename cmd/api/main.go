package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "go.uber.org/automaxprocs"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"taskgraph/internal/core/auth"
	"taskgraph/internal/core/cache"
	"taskgraph/internal/core/config"
	"taskgraph/internal/core/database"
	"taskgraph/internal/core/logger"
	"taskgraph/internal/core/server"
	"taskgraph/internal/core/storage"
	"taskgraph/internal/domain"
	"taskgraph/internal/graph"
	"taskgraph/internal/repo"
	"taskgraph/internal/transport/http/router"
	"taskgraph/pkg/utils"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	db := mustOpenDB(cfg, log)
	log.Info("database connected", zap.String("driver", cfg.DB.Driver))

	if cfg.DB.AutoMigrate {
		if err := db.AutoMigrate(&domain.User{}, &domain.Task{}); err != nil {
			log.Fatal("automigrate failed", zap.Error(err))
		}
		log.Info("automigrate done")
	}

	jwter := &auth.JWTer{
		Secret: []byte(cfg.JWT.Secret),
		Issuer: cfg.JWT.Issuer,
		TTL:    time.Duration(cfg.JWT.AccessTokenTTLMin) * time.Minute,
	}

	users := repo.NewUserRepo(db)
	tasks := repo.NewTaskRepo(db)

	var store *storage.Client
	if cfg.S3.Endpoint != "" {
		s, err := storage.New(storage.Opts{
			Endpoint:  cfg.S3.Endpoint,
			Region:    cfg.S3.Region,
			Bucket:    cfg.S3.Bucket,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
		})
		if err != nil {
			log.Fatal("s3 client", zap.Error(err))
		}
		store = s
		log.Info("object storage ready", zap.String("bucket", cfg.S3.Bucket))
	}

	var c *cache.Cache
	if cfg.Redis.Addr != "" {
		c = cache.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		log.Info("redis cache ready", zap.String("addr", cfg.Redis.Addr))
	}

	if err := seedAdmin(cfg, users); err != nil {
		log.Fatal("seed admin", zap.Error(err))
	}

	resolver := graph.New(graph.Deps{
		Log:        log,
		Users:      users,
		Tasks:      tasks,
		JWT:        jwter,
		Storage:    store,
		Cache:      c,
		PresignTTL: time.Duration(cfg.S3.PresignExpirySec) * time.Second,
	})
	schema := graph.NewSchema(resolver)

	r := router.NewAPIEngine(log, schema, jwter)

	addr := server.Addr(cfg.App.HTTP.Host, cfg.App.HTTP.Port)
	srv := server.BuildServer(
		addr, r,
		time.Duration(cfg.App.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.WriteTimeoutSec)*time.Second,
		time.Duration(cfg.App.HTTP.IdleTimeoutSec)*time.Second,
	)

	host4human := cfg.App.HTTP.Host
	if host4human == "" || host4human == "0.0.0.0" {
		host4human = "127.0.0.1"
	}
	baseURL := "http://" + host4human + ":" + fmt.Sprint(cfg.App.HTTP.Port)
	log.Info("api starting",
		zap.String("addr", addr),
		zap.String("graphql", baseURL+"/graphql"),
		zap.String("health", baseURL+"/health"),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("api start FAILED", zap.Error(err))
		}
	}()
	log.Info("api started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Info("api stopped gracefully")
}

func mustOpenDB(cfg *config.Config, l *zap.Logger) *gorm.DB {
	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		l.Fatal("db open", zap.Error(err))
	}
	return db
}

// seedAdmin creates the bootstrap ADMIN account once; without it no caller
// could ever pass the admin-only checks to create users.
func seedAdmin(cfg *config.Config, users *repo.UserRepo) error {
	email := strings.TrimSpace(cfg.Seed.AdminEmail)
	if email == "" || cfg.Seed.AdminPassword == "" {
		return nil
	}
	ctx := context.Background()
	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	return users.Create(ctx, &domain.User{
		ID:           utils.NewID(),
		Email:        email,
		Name:         cfg.Seed.AdminName,
		PasswordHash: utils.HashPassword(cfg.Seed.AdminPassword),
		Role:         domain.RoleAdmin,
	})
}
