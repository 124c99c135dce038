package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go-pos-ws/internal/cache"
	"go-pos-ws/internal/config"
	"go-pos-ws/internal/handler"
	"go-pos-ws/internal/logger"
	"go-pos-ws/internal/middleware"
	"go-pos-ws/internal/model"
	"go-pos-ws/internal/repository"
	"go-pos-ws/internal/service"
	"go-pos-ws/internal/tenant"
	"go-pos-ws/internal/ws"
	"go-pos-ws/pkg/database"
	"go-pos-ws/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load Env
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logg := logger.New(cfg.Log.Level, cfg.Log.Format)
	defer logg.Sync()

	// 2. Setup Database
	pool := database.Pool{
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}
	gormLog := logger.NewGormLogger(logg, logger.GormLevel(cfg.Log.Level))
	db, err := database.Open(cfg.Database.DSN(), pool, gormLog)
	if err != nil {
		logg.Fatal("database", zap.Error(err))
	}
	defer database.Close(db)

	if err := db.AutoMigrate(model.ControlModels()...); err != nil {
		logg.Fatal("migrate control schema", zap.Error(err))
	}
	if err := db.AutoMigrate(model.TenantModels()...); err != nil {
		logg.Fatal("migrate tenant schema", zap.Error(err))
	}

	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	tenantRepo := repository.NewTenantRepo(db)

	// 3. Seed default privileges, roles, and admin user
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := service.Seed(ctx, privilegeRepo, roleRepo, userRepo, service.SeedOptions{
		AdminEmail:    cfg.Auth.AdminEmail,
		AdminPassword: cfg.Auth.AdminPassword,
	}, logg); err != nil {
		logg.Fatal("seed", zap.Error(err))
	}

	// 4. Change feed and report cache
	hub := ws.NewHub(logg, 0)
	go hub.Run(ctx)

	reportCache := cache.New(cfg.Redis, logg)
	defer reportCache.Close()
	service.InvalidateReportsOnChange(hub, reportCache, logg)

	// 5. Dependency Injection (Wiring Layers)
	registry := tenant.NewRegistry(db, tenantRepo,
		func(dsn string) (*gorm.DB, error) { return database.Open(dsn, pool, gormLog) },
		database.Close,
		service.StackDeps{
			Feed:              hub,
			Cache:             reportCache,
			CacheTTL:          cfg.Report.CacheTTL,
			LowStockThreshold: cfg.Report.LowStockThreshold,
			Logger:            logg,
		}, logg)
	defer registry.Close()

	tokens := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	authService := service.NewAuthService(userRepo, roleRepo, tenantRepo, tokens, hub, service.AuthOptions{
		AllowSignup: cfg.Auth.AllowSignup,
		IdleTimeout: cfg.Auth.SessionIdleTimeout,
	})

	// 6. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: handler.ErrorHandler(logg),
	})

	app.Use(middleware.RequestLogger(logg))
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(cors.New(cors.Config{
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + middleware.HeaderRequestID,
		ExposeHeaders: middleware.HeaderRequestID,
	}))

	// 7. Routes
	handler.RegisterRoutes(app, handler.Deps{
		DB:          db,
		Auth:        authService,
		Users:       service.NewUserService(userRepo, privilegeRepo, roleRepo),
		Tenants:     service.NewTenantService(tenantRepo, userRepo, registry),
		Roles:       roleRepo,
		Privileges:  privilegeRepo,
		Stacks:      registry,
		Memberships: tenantRepo,
		Hub:         hub,
		Logger:      logg,
	})

	// 8. Graceful Shutdown
	go func() {
		logg.Info("listening", zap.String("port", cfg.App.Port), zap.String("env", cfg.App.Env))
		if err := app.Listen(":" + cfg.App.Port); err != nil {
			logg.Error("listen", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	logg.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		logg.Error("server forced to shutdown", zap.Error(err))
	}
	logg.Info("server exited")
}
