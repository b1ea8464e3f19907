package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "pixellar-backend/docs"
	"pixellar-backend/internal/common/config"
	"pixellar-backend/internal/common/logger"
	"pixellar-backend/internal/common/middleware"
	markethttp "pixellar-backend/internal/features/market/delivery/http"
	marketredis "pixellar-backend/internal/features/market/repository/redis"
	marketservice "pixellar-backend/internal/features/market/service"
	wallethttp "pixellar-backend/internal/features/wallet/delivery/http"
	walletredis "pixellar-backend/internal/features/wallet/repository/redis"
	walletservice "pixellar-backend/internal/features/wallet/service"
	"pixellar-backend/internal/platform/flowaccess"
	"pixellar-backend/internal/platform/pixellarapi"
	redisplatform "pixellar-backend/internal/platform/redis"
)

// @title           Pixellar Wallet API
// @version         1.0
// @description     Wallet session manager and marketplace backend for the Pixellar pixel-art marketplace.

// @license.name  Apache 2.0
// @license.url   http://www.apache.org/licenses/LICENSE-2.0.html

// @host      localhost:8080
// @BasePath  /api/v1

// @tag.name wallet
// @tag.description Wallet session, balance and simulated transaction ledger

// @tag.name artworks
// @tag.description Pixel-art drafts, publishing and unlock flow

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	logger.Init("pixellar-backend", cfg.Debug)

	rdb, err := redisplatform.Open(ctx, fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	logger.Info().Msg("Redis connection established")

	flowClient := flowaccess.NewClient(cfg.Flow.AccessNodeURL, cfg.Flow.APIToken)
	oracle := flowaccess.NewOracle(flowClient, cfg.Flow.DiscoveryURL)
	backendClient := pixellarapi.NewClient(cfg.Backend.APIBaseURL)

	sessionStore := walletredis.NewSessionStore(rdb.Client)
	artworkRepo := marketredis.NewArtworkRepository(rdb.Client)

	walletSvc := walletservice.NewWalletService(oracle, backendClient, sessionStore, walletservice.Options{
		ConnectTimeout:   cfg.ConnectTimeout(),
		FallbackAddress:  cfg.Wallet.FallbackAddress,
		FallbackLimit:    cfg.Wallet.FallbackLimit,
		KeepStaleSession: cfg.Wallet.KeepStaleSession,
		BalanceRefresh:   cfg.BalanceRefreshInterval(),
	})
	go walletSvc.Run(ctx)

	marketSvc := marketservice.NewMarketService(artworkRepo, walletSvc, backendClient)

	logger.Info().Msg("Services initialized")

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	router.Use(middleware.ErrorHandler())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Server.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Authorization", "Accept", "X-Request-ID"}
	router.Use(cors.New(corsConfig))

	v1 := router.Group("/api/v1")
	wallethttp.NewWalletHandler(walletSvc).RegisterRoutes(v1)
	markethttp.NewMarketHandler(marketSvc).RegisterRoutes(v1)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   "pixellar-backend",
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		checkCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := rdb.Ping(checkCtx).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "redis unavailable",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	logger.Info().Msg("Server exited")
}
