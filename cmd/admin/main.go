// Command admin manages the bootstrap ADMIN account from the shell: it
// creates one, or promotes an existing user, without going through the API's
// admin-only mutations.
package main

import (
	"context"
	"flag"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"taskgraph/internal/core/config"
	"taskgraph/internal/core/database"
	"taskgraph/internal/core/logger"
	"taskgraph/internal/domain"
	"taskgraph/internal/repo"
	"taskgraph/pkg/utils"
)

func main() {
	var (
		email    = flag.String("email", "", "admin email (required)")
		password = flag.String("password", "", "password for a newly created account")
		name     = flag.String("name", "", "display name for a newly created account")
	)
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load(os.Getenv("CONFIG_PATH"))
	log, cleanup := logger.New(cfg.Log.Level, cfg.Log.JSON)
	defer cleanup()

	addr := strings.TrimSpace(*email)
	if addr == "" {
		log.Fatal("missing -email")
	}

	db, err := database.NewGorm(database.Opts{
		Driver:             cfg.DB.Driver,
		DSN:                cfg.DB.DSN,
		MaxOpenConns:       cfg.DB.MaxOpenConns,
		MaxIdleConns:       cfg.DB.MaxIdleConns,
		ConnMaxLifetimeMin: cfg.DB.ConnMaxLifetimeMin,
		LogLevel:           cfg.DB.LogLevel,
	})
	if err != nil {
		log.Fatal("db open", zap.Error(err))
	}
	if err := db.AutoMigrate(&domain.User{}, &domain.Task{}); err != nil {
		log.Fatal("automigrate failed", zap.Error(err))
	}

	ctx := context.Background()
	users := repo.NewUserRepo(db)

	existing, err := users.FindByEmail(ctx, addr)
	if err != nil {
		log.Fatal("lookup failed", zap.Error(err))
	}

	if existing != nil {
		if existing.Role == domain.RoleAdmin {
			log.Info("already admin", zap.String("email", addr))
			return
		}
		if _, err := users.UpdateFields(ctx, existing.ID, map[string]any{"role": domain.RoleAdmin}); err != nil {
			log.Fatal("promote failed", zap.Error(err))
		}
		log.Info("user promoted to admin", zap.String("email", addr))
		return
	}

	if *password == "" {
		log.Fatal("missing -password for new account")
	}
	u := domain.User{
		ID:           utils.NewID(),
		Email:        addr,
		Name:         strings.TrimSpace(*name),
		PasswordHash: utils.HashPassword(*password),
		Role:         domain.RoleAdmin,
	}
	if err := users.Create(ctx, &u); err != nil {
		log.Fatal("create failed", zap.Error(err))
	}
	log.Info("admin created", zap.String("email", addr), zap.String("id", u.ID))
}
