// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"yourmind-go/internal/config"
	"yourmind-go/internal/handler"
	"yourmind-go/internal/middleware"
	"yourmind-go/internal/model"
	"yourmind-go/internal/repository"
	"yourmind-go/internal/service"
	"yourmind-go/pkg/credential"
	"yourmind-go/pkg/database"
	"yourmind-go/pkg/kafka"
	"yourmind-go/pkg/llm"
	"yourmind-go/pkg/log"
	"yourmind-go/pkg/maps"
	"yourmind-go/pkg/storage"
	"yourmind-go/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化数据库和 Redis
	database.InitDB(cfg.Database.Driver, cfg.Database.DSN,
		&model.UserProfile{}, &model.ChatSession{}, &model.ChatMessage{}, &model.RiskAlert{})
	database.InitRedis(cfg.Database.Redis.Addr, cfg.Database.Redis.Password, cfg.Database.Redis.DB)

	// 4. 初始化 Repository
	userRepository := repository.NewUserRepository(database.DB)
	sessionRepository := repository.NewSessionRepository(database.DB)
	riskAlertRepository := repository.NewRiskAlertRepository(database.DB)
	conversationRepository := repository.NewConversationRepository(database.RDB)
	stateRepository := repository.NewSessionStateRepository(database.RDB,
		time.Duration(cfg.Chat.TestRunTTLHours)*time.Hour,
		time.Duration(cfg.Chat.BusyTTLSeconds)*time.Second)
	blacklist := repository.NewTokenBlacklist(database.RDB)

	// 5. 初始化外部客户端
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.AccessTokenExpireHours, cfg.JWT.RefreshTokenExpireDays)
	encoder, err := credential.NewEncoder(cfg.Auth.PasswordScheme)
	if err != nil {
		log.Fatal("密码编码器初始化失败", err)
	}
	llmClient := llm.NewClient(cfg.LLM)
	mapsClient := maps.NewClient(cfg.Naver)

	rootCtx, cancelRoot := context.WithCancel(context.Background())
	defer cancelRoot()

	// 6. 风险告警：启用 Kafka 时异步投递，否则直接落库
	riskAlertService := service.NewRiskAlertService(riskAlertRepository)
	var alertPublisher service.RiskAlertPublisher
	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka)
		alertPublisher = producer
		go kafka.StartConsumer(rootCtx, cfg.Kafka, database.RDB, riskAlertService)
	} else {
		log.Info("Kafka 未启用，风险告警将直接写入数据库")
		alertPublisher = service.NewDirectPublisher(riskAlertService)
	}

	// 7. 报告导出
	var uploader service.ReportUploader
	if cfg.MinIO.Enabled {
		store, err := storage.NewReportStore(rootCtx, cfg.MinIO)
		if err != nil {
			log.Fatal("MinIO 初始化失败", err)
		}
		uploader = store
	} else {
		log.Info("MinIO 未启用，报告导出不可用")
	}

	// 8. 初始化 Service (依赖注入)
	userService := service.NewUserService(userRepository, blacklist, jwtManager, encoder)
	completionService := service.NewCompletionService(conversationRepository, llmClient, cfg.LLM)
	chatService := service.NewChatService(sessionRepository, stateRepository, completionService, alertPublisher)
	summaryService := service.NewSummaryService(sessionRepository, completionService, uploader)
	adminService := service.NewAdminService(riskAlertRepository, userRepository)
	locationService := service.NewLocationService(mapsClient)

	userHandler := handler.NewUserHandler(userService)
	chatHandler := handler.NewChatHandler(chatService, summaryService, userService, jwtManager)
	completionHandler := handler.NewCompletionHandler(completionService)
	locationHandler := handler.NewLocationHandler(locationService)
	authMiddleware := middleware.AuthMiddleware(jwtManager, userService)

	// 9. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(middleware.RequestLogger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.Server.CORSAllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": http.StatusOK, "message": "success", "data": gin.H{"status": "ok"}})
	})

	// 10. 注册路由
	apiV1 := r.Group("/api/v1")
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/refreshToken", handler.NewAuthHandler(userService).RefreshToken)
		}

		users := apiV1.Group("/users")
		{
			// 无需认证的路由
			users.POST("/register", userHandler.Register)
			users.POST("/login", userHandler.Login)

			authed := users.Group("/")
			authed.Use(authMiddleware)
			{
				authed.GET("/me", userHandler.GetProfile)
				authed.PUT("/me", userHandler.UpdateProfile)
				authed.DELETE("/me", userHandler.DeleteProfile)
				authed.POST("/logout", userHandler.Logout)
			}
		}

		chat := apiV1.Group("/chat")
		{
			chat.GET("/catalog", chatHandler.Catalog)
			// WebSocket 在路径中携带 token，不经过 AuthMiddleware
			chat.GET("/ws/:token", chatHandler.Handle)

			sessions := chat.Group("/")
			sessions.Use(authMiddleware)
			{
				sessions.POST("/turn", chatHandler.SendTurn)
				sessions.GET("/sessions", chatHandler.ListSessions)
				sessions.POST("/sessions", chatHandler.StartSession)
				sessions.GET("/sessions/:id/messages", chatHandler.GetMessages)
				sessions.PUT("/sessions/:id", chatHandler.RenameSession)
				sessions.DELETE("/sessions/:id", chatHandler.DeleteSession)
				sessions.POST("/sessions/:id/summary", chatHandler.Summary)
				sessions.POST("/sessions/:id/export", chatHandler.Export)
			}
		}

		completion := apiV1.Group("/completion")
		completion.Use(authMiddleware)
		{
			completion.POST("/start", completionHandler.Start)
			completion.POST("/send", completionHandler.Send)
			completion.GET("/history/:token", completionHandler.History)
			completion.DELETE("/clear/:token", completionHandler.Clear)
		}

		location := apiV1.Group("/location")
		{
			location.GET("/address", locationHandler.Address)
			location.GET("/search", locationHandler.Search)
			location.GET("/nearby-facilities", locationHandler.NearbyFacilities)
		}

		admin := apiV1.Group("/admin")
		// 管理员路由组，需要同时通过认证和管理员授权两个中间件
		admin.Use(authMiddleware, middleware.AdminAuthMiddleware())
		{
			admin.GET("/risk-alerts", handler.NewAdminHandler(adminService).ListRiskAlerts)
		}
	}

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// 停止 Kafka 消费者并关闭生产者
	cancelRoot()
	if producer != nil {
		if err := producer.Close(); err != nil {
			log.Errorf("Kafka 生产者关闭失败: %v", err)
		}
	}
	log.Info("服务已优雅关闭")
}
