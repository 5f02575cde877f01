package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lipia/config"
	"lipia/controllers"
	"lipia/metrics"
	"lipia/routes"
	"lipia/services"
	"lipia/store"
	"lipia/utils"
	"lipia/views"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}
	log := utils.NewLogger(cfg.LogLevel, cfg.LogFormat)

	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	st, err := openStore(cfg, log)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}

	router, err := setupRouter(cfg, log, st)
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.WithField("port", cfg.Port).Infof("%s listening", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown failed")
	}
}

// openStore uses postgres when DATABASE_URL is set and process memory otherwise.
func openStore(cfg *config.Config, log *logrus.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Info("using in-memory session store")
		return store.NewMemoryStore(), nil
	}

	db, err := store.OpenPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	gormStore := store.NewGormStore(db)
	if err := gormStore.Migrate(); err != nil {
		return nil, err
	}
	log.Info("using postgres session store")
	return gormStore, nil
}

func setupRouter(cfg *config.Config, log *logrus.Logger, st store.Store) (*gin.Engine, error) {
	gateway := services.NewGatewayService(services.GatewayConfig{
		BaseURL:      cfg.APIURL,
		APIKey:       cfg.APIKey,
		APIKeyHeader: cfg.APIKeyHeader,
		Timeout:      cfg.APITimeout,
		Logger:       log,
	})
	accountService := services.NewAccountService(gateway, st, cfg.Plans, log)
	contentService := services.NewContentService(gateway, cfg.Plans, log)

	if cfg.SeedDemo {
		if err := accountService.SeedDemo(context.Background()); err != nil {
			return nil, err
		}
	}

	renderer, err := views.NewRenderer()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.HTMLRender = renderer
	router.Use(gin.Recovery(), utils.RequestLogger(log), metrics.Middleware(), utils.SessionMiddleware(cfg.SecretKey))

	view := controllers.View{AppName: cfg.AppName}
	watcher := utils.NewPaymentWatcher(cfg.PaymentPollInterval, cfg.PaymentPollAttempts, log)
	authMiddleware := utils.LoginRequired()

	routes.SetupStaticRoutes(router)
	routes.SetupAuthRoutes(router,
		controllers.NewAuthController(accountService, view, cfg.SecretKey, cfg.SessionTTL, log),
		utils.NewRateLimiter(cfg.LoginRate, cfg.LoginBurst))
	routes.SetupUserRoutes(router, controllers.NewUserController(accountService, view, log), authMiddleware)
	routes.SetupContentRoutes(router, controllers.NewContentController(accountService, contentService, view, log), authMiddleware)
	routes.SetupSubscriptionRoutes(router,
		controllers.NewSubscriptionController(accountService, watcher, view, log),
		authMiddleware, cfg.CORSOrigins)

	if cfg.AdminPassword != "" {
		adminMiddleware, err := utils.AdminMiddleware(cfg.AdminPassword)
		if err != nil {
			return nil, err
		}
		adminController := controllers.NewAdminController(services.NewAdminService(st, cfg.Plans, log), watcher)
		routes.SetupAdminRoutes(router, adminController, adminMiddleware)
	} else {
		log.Info("ADMIN_PASSWORD not set, admin routes disabled")
	}

	return router, nil
}
