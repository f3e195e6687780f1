package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"goalquest-backend/config"
	"goalquest-backend/controllers"
	"goalquest-backend/logger"
	"goalquest-backend/models"
	"goalquest-backend/observability"
	"goalquest-backend/repository"
	"goalquest-backend/routes"
	"goalquest-backend/services"
	"goalquest-backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func main() {
	// .env необязателен
	_ = godotenv.Load()

	cfg, err := config.LoadConfig(envOr("CONFIG_PATH", "config.yaml"))
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitOTel(ctx, log, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: "goalquest-backend",
		Environment: cfg.Logging.Mode,
		Exporter:    cfg.Tracing.Exporter,
		Endpoint:    cfg.Tracing.Endpoint,
		SampleRatio: cfg.Tracing.SampleRatio,
	})

	// Инициализация базы данных
	db, err := models.InitDB(models.DBConfig{
		URL:        cfg.Database.URL,
		SQLitePath: cfg.Database.SQLitePath,
	})
	if err != nil {
		log.Fatal("Failed to connect to database", "error", err)
	}
	if err := models.AutoMigrate(db); err != nil {
		log.Fatal("Failed to migrate database", "error", err)
	}

	// Каталог достижений
	catalog, err := config.LoadCatalog(cfg.Gamification.CatalogPath)
	if err != nil {
		log.Fatal("Failed to load achievement catalog", "error", err)
	}
	if err := catalog.Validate(services.ValidateCriteria); err != nil {
		log.Fatal("Invalid achievement catalog", "error", err)
	}
	if err := repository.SeedCatalog(ctx, db, catalog, log); err != nil {
		log.Fatal("Failed to seed achievement catalog", "error", err)
	}

	var locker services.UserLocker
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to connect to redis", "error", err)
		}
		locker = services.NewRedisUserLocker(rdb, cfg.Gamification.LockTTL)
		log.Info("Per-user unlock lock: redis", "addr", cfg.Redis.Addr)
	}

	utils.SetJWTSecret(cfg.JWT.Secret)
	app := setupApp(db, cfg, log, locker)

	go func() {
		<-ctx.Done()
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Server shutdown failed", "error", err)
		}
	}()

	log.Info("Server starting", "port", cfg.Server.Port)
	if err := app.Listen(":" + cfg.Server.Port); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Server stopped", "error", err)
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := shutdownTracing(flushCtx); err != nil {
		log.Warn("otel shutdown failed", "error", err)
	}
}

// setupApp собирает сервисы, контроллеры и маршруты; locker nil означает локальную блокировку
func setupApp(db *gorm.DB, cfg *config.Config, log *logger.Logger, locker services.UserLocker) *fiber.App {
	g := cfg.Gamification
	opts := services.EngineOptions{
		Location:     g.Location(),
		Workers:      g.UnlockWorkers,
		LookbackDays: g.ActivityLookbackDays,
	}

	achievementRepo := repository.NewAchievementRepo(db, log)
	goalRepo := repository.NewGoalRepo(db, log)
	activityRepo := repository.NewActivityRepo(db, log)

	tracker := services.NewStreakTracker(opts.Location)
	achievementService := services.NewAchievementService(achievementRepo, locker, log, opts)
	levelService := services.NewLevelService(achievementRepo, achievementService, tracker, log, opts)
	goalService := services.NewGoalService(goalRepo, activityRepo, achievementService, log, opts)
	progressService := services.NewProgressService(goalRepo, activityRepo, achievementService, tracker, log, opts)
	analyticsService := services.NewAnalyticsService(goalRepo, log, opts, g.PredictionWindowDays)
	recommendationService := services.NewRecommendationService(achievementRepo, goalRepo, achievementService, tracker, log, opts)

	// Создание Fiber приложения
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
				"code":    code,
			})
		},
	})

	// Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Настройка маршрутов
	routes.SetupAchievementRoutes(app, controllers.NewAchievementController(achievementService, g.RecommendationLimit))
	routes.SetupLevelRoutes(app, controllers.NewLevelController(levelService))
	routes.SetupGoalRoutes(app, controllers.NewGoalController(goalService, opts.Location))
	routes.SetupProgressRoutes(app, controllers.NewProgressController(progressService, opts.Location))
	routes.SetupAnalyticsRoutes(app, controllers.NewAnalyticsController(analyticsService, recommendationService, opts.Location))
	routes.SetupDashboardRoutes(app, controllers.NewDashboardController(levelService, achievementService, recommendationService))

	// Общий health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"message":   "GoalQuest Backend is running",
			"timestamp": time.Now().Unix(),
		})
	})

	return app
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
