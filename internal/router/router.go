package router

import (
	"fmt"
	"strings"

	"github.com/tipari/platform/internal/cache"
	"github.com/tipari/platform/internal/config"
	adminhandlers "github.com/tipari/platform/internal/http/handlers/admin"
	publichandlers "github.com/tipari/platform/internal/http/handlers/public"
	"github.com/tipari/platform/internal/logger"
	"github.com/tipari/platform/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按公开/管理端分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "tp"
	}
	redisClient := cache.Client()
	adminMutationRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_mutation", redisPrefix),
		WindowSeconds: cfg.Security.AdminRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.AdminRateLimit.MaxRequests,
	}
	adminRateLimit := RateLimitMiddleware(redisClient, adminMutationRule, KeyByActor)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口（只读）
		apiV1.GET("/tickets", publicHandler.GetAvailableTickets)
		apiV1.GET("/projects/:id", publicHandler.GetProject)

		// 管理端接口，操作者身份来自 X-Admin-ID
		admin := apiV1.Group("/admin")
		admin.Use(AdminActorMiddleware())
		{
			// 预约管理
			admin.POST("/reservations", adminRateLimit, adminHandler.CreateReservation)
			admin.POST("/reservations/:id/transition", adminRateLimit, adminHandler.TransitionReservation)
			admin.GET("/reservations", adminHandler.ListReservations)
			admin.GET("/reservations/:id", adminHandler.GetReservation)

			// 佣金管理
			admin.GET("/commissions", adminHandler.ListCommissions)
			admin.GET("/commissions/:id", adminHandler.GetCommission)
			admin.POST("/commissions/:id/confirm-investment", adminRateLimit, adminHandler.ConfirmInvestment)
			admin.POST("/commissions/:id/platform-paid", adminRateLimit, adminHandler.MarkCommissionPlatformPaid)
			admin.POST("/commissions/:id/broker-payable", adminRateLimit, adminHandler.MarkCommissionBrokerPayable)
			admin.POST("/commissions/:id/paid", adminRateLimit, adminHandler.MarkCommissionPaid)
			admin.POST("/commissions/:id/write-off", adminRateLimit, adminHandler.WriteOffCommission)
			admin.POST("/commissions/:id/split/calculate", adminRateLimit, adminHandler.CalculateCommissionSplit)
			admin.POST("/commissions/:id/split/lock", adminRateLimit, adminHandler.LockCommissionSplit)

			// 分成规则
			admin.GET("/split-rules", adminHandler.ListSplitRules)
			admin.POST("/split-rules", adminRateLimit, adminHandler.CreateSplitRule)
			admin.POST("/split-rules/:id/deactivate", adminRateLimit, adminHandler.DeactivateSplitRule)

			// 匹配结果
			admin.GET("/matches", adminHandler.ListMatches)
			admin.POST("/matching/investors/:id/recalculate", adminRateLimit, adminHandler.RecalculateInvestorMatches)
			admin.POST("/matching/tickets/:id/refresh", adminRateLimit, adminHandler.RefreshTicketMatches)

			// 基础数据维护
			admin.POST("/brokers", adminRateLimit, adminHandler.CreateBroker)
			admin.POST("/projects", adminRateLimit, adminHandler.CreateProject)
			admin.POST("/projects/:id/publish", adminRateLimit, adminHandler.PublishProject)
			admin.GET("/tickets", adminHandler.ListTickets)
			admin.POST("/tickets", adminRateLimit, adminHandler.CreateTicket)
			admin.PUT("/tickets/:id", adminRateLimit, adminHandler.UpdateTicket)
			admin.POST("/tickets/:id/status", adminRateLimit, adminHandler.ChangeTicketStatus)
			admin.GET("/investors", adminHandler.ListInvestors)
			admin.POST("/investors", adminRateLimit, adminHandler.CreateInvestor)
			admin.PUT("/investors/:id", adminRateLimit, adminHandler.UpdateInvestor)

			// 审计与事故
			admin.GET("/audit-events", adminHandler.ListAuditEvents)
			admin.GET("/incidents", adminHandler.ListIncidents)
			admin.POST("/incidents/:id/resolve", adminRateLimit, adminHandler.ResolveIncident)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
