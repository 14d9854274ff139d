package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	apirest "github.com/ariselabs/arise-server/api/rest"
	"github.com/ariselabs/arise-server/api/sse"
	apiws "github.com/ariselabs/arise-server/api/ws"
	"github.com/ariselabs/arise-server/audit"
	"github.com/ariselabs/arise-server/cache"
	"github.com/ariselabs/arise-server/config"
	dbadapter "github.com/ariselabs/arise-server/db"
	"github.com/ariselabs/arise-server/game/quest"
	"github.com/ariselabs/arise-server/game/verification"
	mw "github.com/ariselabs/arise-server/middleware"
	"github.com/ariselabs/arise-server/model"
	"github.com/ariselabs/arise-server/notify"
	"github.com/ariselabs/arise-server/scheduler"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfgPath := "config/config.yaml"
	if len(os.Args) > 1 {
		cfgPath = os.Args[1]
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// ---- Logger ----
	var logger *zap.Logger
	var logErr error
	if cfg.Server.Debug {
		logger, logErr = zap.NewDevelopment()
	} else {
		logger, logErr = zap.NewProduction()
	}
	if logErr != nil {
		log.Fatalf("logger: %v", logErr)
	}
	defer logger.Sync()

	if cfg.Server.AdminKey == "" {
		logger.Warn("server.admin_key is not set; admin endpoints are disabled")
	}

	// ---- Database ----
	db, err := dbadapter.Open(cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	if err := model.AutoMigrate(db); err != nil {
		log.Fatalf("db migrate: %v", err)
	}
	if err := model.SeedDefaults(db); err != nil {
		logger.Warn("seed warning", zap.Error(err))
	}
	logger.Info("DB initialized")

	// ---- Audit ----
	auditSvc := audit.NewService(db, logger)
	defer auditSvc.Close()

	// ---- Cache / PubSub ----
	cacheConfig := cache.Config{
		RedisAddr:       cfg.Cache.RedisAddr,
		RedisPassword:   cfg.Cache.RedisPassword,
		RedisDB:         cfg.Cache.RedisDB,
		LocalGCInterval: cfg.Cache.LocalGCInterval,
		LocalPubSubBuf:  cfg.Cache.LocalPubSubBuf,
	}
	c, err := cache.New(cacheConfig)
	if err != nil {
		log.Fatalf("cache: %v", err)
	}
	pubsub, err := cache.NewPubSub(cacheConfig)
	if err != nil {
		log.Fatalf("pubsub: %v", err)
	}
	logger.Info("Cache initialized")

	// ---- Notification channel ----
	hub := notify.NewHub(logger)
	defer hub.CloseAll()
	notifier := notify.NewService(db, hub, cfg.Game.NotificationTTL, logger)

	// ---- Game services ----
	questSvc := quest.NewService(db, notifier, auditSvc, nil, logger)
	verifSvc := verification.NewService(db, questSvc, notifier, auditSvc,
		cfg.Game.AIVerifySuccessRate, nil, logger)

	// ---- REST handlers ----
	authH := apirest.NewAuthHandler(db, c, cfg.Security)
	hunterH := apirest.NewHunterHandler(db)
	questH := apirest.NewQuestHandler(questSvc, verifSvc, cfg.Game)
	shopH := apirest.NewShopHandler(db)
	collH := apirest.NewCollectionHandler(db)
	notifH := apirest.NewNotificationHandler(notifier)
	rankH := apirest.NewRankingHandler(db, c, logger)
	adminH := apirest.NewAdminHandler(db, questSvc, verifSvc, notifier, auditSvc, pubsub, logger)

	// ---- Scheduler ----
	sched := scheduler.New(logger)
	defer sched.Stop()

	sched.AddTicker("quest_expiry_sweep", time.Minute, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n := questSvc.ExpireOverdue(ctx); n > 0 {
			logger.Info("expired overdue quests", zap.Int("count", n))
		}
	})
	sched.AddTicker("notification_purge", cfg.Game.NotificationPurge, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if n, err := notifier.PurgeExpired(ctx); err != nil {
			logger.Error("notification purge failed", zap.Error(err))
		} else if n > 0 {
			logger.Info("purged expired notifications", zap.Int64("count", n))
		}
	})
	sched.AddTicker("leaderboard_rebuild", time.Duration(cfg.Game.LeaderboardRefreshS)*time.Second, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := rankH.Rebuild(ctx); err != nil {
			logger.Error("leaderboard rebuild failed", zap.Error(err))
		}
	})
	sched.AddDaily("daily_quest_reset", cfg.Game.DailyResetHour, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := questSvc.ResetDaily(ctx); err != nil {
			logger.Error("daily reset failed", zap.Error(err))
		}
	})

	// ---- Gin HTTP Server ----
	if !cfg.Server.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(mw.TraceID(), mw.Logger(logger), mw.Recovery(logger))
	r.Use(mw.RateLimit(rate.Limit(cfg.Security.RateLimitRPS), cfg.Security.RateLimitBurst))

	corsCfg := cors.DefaultConfig()
	if len(cfg.Security.AllowedOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.Security.AllowedOrigins
	} else {
		corsCfg.AllowAllOrigins = true
	}
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "X-Admin-Key")
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		authG := api.Group("/auth")
		authG.POST("/register", authH.Register)
		authG.POST("/login", authH.Login)
		authG.POST("/logout", mw.Auth(cfg.Security, c), authH.Logout)
		authG.POST("/refresh", mw.Auth(cfg.Security, c), authH.Refresh)

		hunterG := api.Group("/hunter")
		hunterG.Use(mw.Auth(cfg.Security, c))
		hunterG.GET("", hunterH.Profile)
		hunterG.POST("/stats", hunterH.AllocateStats)

		questG := api.Group("/quests")
		questG.Use(mw.Auth(cfg.Security, c))
		questG.POST("/custom", questH.CreateCustom)
		questG.GET("/:filter", questH.List)
		questG.POST("/:id/accept", questH.Accept)
		questG.POST("/:id/progress", questH.Progress)
		questG.POST("/:id/complete", questH.Complete)
		questG.POST("/:id/abandon", questH.Abandon)
		questG.POST("/:id/proof", questH.SubmitProof)

		shopG := api.Group("/shop")
		shopG.Use(mw.Auth(cfg.Security, c))
		shopG.GET("", shopH.List)
		shopG.POST("/buy", shopH.Buy)

		collG := api.Group("/collection")
		collG.Use(mw.Auth(cfg.Security, c))
		collG.GET("/items", collH.Inventory)
		collG.GET("/skills", collH.Skills)
		collG.GET("/titles", collH.Titles)
		collG.POST("/titles/:id/equip", collH.EquipTitle)
		collG.GET("/shadows", collH.Shadows)

		notifG := api.Group("/notifications")
		notifG.Use(mw.Auth(cfg.Security, c))
		notifG.GET("", notifH.Unread)
		notifG.POST("/:id/read", notifH.MarkRead)
		notifG.POST("/:id/displayed", notifH.MarkDisplayed)

		api.GET("/ranking", rankH.Top)

		adminG := api.Group("/admin")
		adminG.Use(apirest.AdminAuth(cfg.Server.AdminKey))
		adminG.GET("/metrics", adminH.Metrics)
		adminG.POST("/accounts/:id/ban", adminH.BanAccount)
		adminG.GET("/verifications", adminH.PendingVerifications)
		adminG.POST("/verifications/:id/review", adminH.ReviewVerification)
		adminG.POST("/quests", adminH.CreateQuest)
		adminG.POST("/announce", adminH.Announce)
		adminG.GET("/audit", adminH.AuditTrail)
	}

	// ---- WebSocket ----
	wsH := apiws.NewHandler(cfg, c, notifier, logger)
	r.GET("/ws", wsH.Handle)

	// ---- SSE ----
	sseH := sse.NewHandler(pubsub, c, cfg.Security, logger)
	r.GET("/sse", sseH.ServeSSE)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Server listening", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		log.Fatalf("server: %v", err)
	}
}
