package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joy095/academy/badwords"
	"github.com/joy095/academy/clients"
	"github.com/joy095/academy/config"
	redisconfig "github.com/joy095/academy/config/redis"
	"github.com/joy095/academy/controllers/admin_controller"
	"github.com/joy095/academy/controllers/booking_controller"
	"github.com/joy095/academy/controllers/booking_flow_controller"
	"github.com/joy095/academy/controllers/content_controller"
	"github.com/joy095/academy/controllers/user_controllers"
	"github.com/joy095/academy/logger"
	middleware "github.com/joy095/academy/middlewares"
	"github.com/joy095/academy/middlewares/auth"
	"github.com/joy095/academy/middlewares/cors"
	logger_middleware "github.com/joy095/academy/middlewares/logger"
	"github.com/joy095/academy/models/session_models"
	"github.com/joy095/academy/routes"
)

func init() {
	logger.InitLoggers()
	config.LoadEnv()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.ErrorLogger.Fatalf("Invalid configuration: %v", err)
	}
	gin.SetMode(cfg.GinMode)

	rdb, err := redisconfig.NewRedisClient(context.Background(), cfg.RedisURL)
	if err != nil {
		logger.ErrorLogger.Fatalf("Redis: %v", err)
	}
	defer redisconfig.CloseRedis(rdb)

	var store session_models.Store = session_models.NewMemoryStore()
	if rdb != nil {
		store = session_models.NewRedisStore(rdb)
	}
	sessions := session_models.NewManager(store, cfg.SessionTTL)

	api := clients.NewAPIClient(cfg.BackendBaseURL+cfg.APIPath, cfg.APITimeout, sessions)
	public := clients.NewPublicClient(cfg.BackendBaseURL, cfg.PublicAPIPath, cfg.PublicAPITimeout)
	backend := clients.NewBackend(api, public)
	checkout := clients.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.AcademyName, cfg.Currency)
	if !checkout.CanVerify() {
		logger.WarnLogger.Warn("RAZORPAY_KEY_SECRET not set, payment signatures are verified by the backend only")
	}

	filter := badwords.NewFilter()
	if err := filter.Load(cfg.BadWordsFile); err != nil {
		logger.WarnLogger.Warnf("Bad words list not loaded: %v", err)
	} else {
		logger.InfoLogger.Info("Bad words loaded successfully!")
	}

	flow := booking_flow_controller.NewBookingFlowService(backend, sessions, checkout)
	poller := booking_flow_controller.NewPoller(cfg.PollInterval, cfg.PollMaxAttempts)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger_middleware.GinLogger())
	r.Use(cors.CorsMiddleware(cfg.CorsAllowedOrigins))
	r.MaxMultipartMemory = 32 << 20 // 32 MB

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "ok from academy web"})
	})

	routes.Register(r, routes.Dependencies{
		Sessions: sessions,
		Cookie: auth.CookieOptions{
			Name:   cfg.SessionCookieName,
			MaxAge: cfg.SessionTTL,
			Secure: cfg.CookieSecure,
		},
		Limits:   middleware.NewRateLimiters(rdb),
		Users:    user_controllers.NewUserController(backend, sessions),
		Bookings: booking_controller.NewBookingController(flow, backend, poller, cfg.CorsAllowedOrigins),
		Content:  content_controller.NewContentController(backend, filter),
		Admin:    admin_controller.NewAdminController(backend, filter),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.InfoLogger.Infof("Academy web listening on :%s (backend %s)", cfg.Port, cfg.BackendBaseURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.ErrorLogger.Fatalf("Server failed to listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.InfoLogger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.ErrorLogger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.InfoLogger.Info("Server exited gracefully.")
}
