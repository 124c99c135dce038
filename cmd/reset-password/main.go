// Command reset-password sets a user's password from the operator's shell
// and ends the user's open sessions.
package main

import (
	"context"
	"flag"
	"log"
	"strings"

	"go-pos-ws/internal/config"
	"go-pos-ws/internal/logger"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

func main() {
	email := flag.String("email", "admin@example.com", "email of the account to reset")
	password := flag.String("password", "", "new password (at least 6 characters)")
	flag.Parse()

	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, relying on system env")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer logg.Sync()

	if len(*password) < 6 {
		logg.Fatal("password must be at least 6 characters")
	}

	// 2. Setup Database
	db, err := database.Open(cfg.Database.DSN(), database.Pool{MaxOpenConns: 1},
		logger.NewGormLogger(logg, gormlogger.Error))
	if err != nil {
		logg.Fatal("database", zap.Error(err))
	}
	defer database.Close(db)

	ctx := context.Background()
	users := repository.NewUserRepo(db)

	// 3. Find user
	user, err := users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(*email)))
	if err != nil {
		logg.Fatal("user not found", zap.String("email", *email), zap.Error(err))
	}

	// 4. Hash and store the new password
	if err := user.SetPassword(*password); err != nil {
		logg.Fatal("hash password", zap.Error(err))
	}
	if err := users.UpdatePassword(ctx, user.ID, user.Password); err != nil {
		logg.Fatal("update password", zap.Error(err))
	}
	if err := users.UpdateTokenVersion(ctx, user.ID, uuid.NewString()); err != nil {
		logg.Fatal("end sessions", zap.Error(err))
	}

	logg.Info("password reset", zap.String("email", user.Email), zap.String("role", roleOf(user)))
}

func roleOf(u *model.User) string {
	if code := u.RoleCode(); code != "" {
		return code
	}
	return "none"
}
