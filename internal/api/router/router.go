package router

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"dance-house/config"
	"dance-house/internal/api/handler"
	"dance-house/internal/api/middleware"
	"dance-house/internal/model"
	"dance-house/pkg/jwt"
	"dance-house/pkg/redis"
)

// maxBodyBytes 请求体上限（JSON 接口与 PayOS 回调）
const maxBodyBytes = 1 << 20

// Setup 初始化并返回 Gin 路由引擎
// rdb 为 nil 时 Token 黑名单与限流均降级放行
func Setup(cfg *config.Config, h *handler.Handler, jwtMgr *jwt.Manager, rdb *redis.Client, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	handler.RegisterValidators()

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders(strings.HasPrefix(cfg.Server.BaseURL, "https://")))
	r.Use(middleware.CORS(
		// 支付回调为服务端请求，不开放跨域
		middleware.CORSPolicy{PathPrefix: "/api/v1/webhooks"},
		middleware.CORSPolicy{
			PathPrefix:   "/api/v1/public",
			AllowOrigins: cfg.Server.CORS.PublicOrigins,
			AllowMethods: []string{"GET", "POST"},
		},
		middleware.CORSPolicy{
			PathPrefix:       "/api/v1",
			AllowOrigins:     cfg.Server.CORS.AllowOrigins,
			AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
			AllowCredentials: true,
		},
	))
	r.Use(middleware.BodyLimit(maxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	var blacklist middleware.TokenChecker
	var limiter middleware.RateLimiter
	if rdb != nil {
		blacklist = rdb
		limiter = rdb
	}
	admin := middleware.RoleAuth(model.RoleAdmin)

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// 公开下单（无需认证）
		public := v1.Group("/public")
		public.Use(middleware.RateLimit(limiter, "public", 30, time.Minute, logger))
		{
			public.GET("/packages", h.Package.List)
			public.GET("/classes", h.Class.List)
			public.POST("/checkout", h.Checkout.Create)
			public.GET("/checkout/:order_code", h.Checkout.Status)
		}

		// 支付网关回调（签名校验在 Service 层）
		webhooks := v1.Group("/webhooks")
		webhooks.Use(middleware.RateLimit(limiter, "webhook", 120, time.Minute, logger))
		{
			webhooks.POST("/payos", h.Webhook.PayOS)
		}

		// 认证模块（无需认证）
		v1.POST("/auth/login", middleware.RateLimit(limiter, "login", 10, time.Minute, logger), h.Auth.Login)

		// 需要认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(jwtMgr, blacklist))
		{
			authorized.POST("/auth/logout", h.Auth.Logout)
			authorized.GET("/auth/me", h.Auth.Me)

			// 学员模块
			students := authorized.Group("/students")
			{
				students.GET("", h.Student.List)
				students.GET("/:id", h.Student.Get)
				students.GET("/:id/attendance", h.Attendance.ListByStudent)
				students.POST("", h.Student.Create)
				students.PUT("/:id", h.Student.Update)
				students.DELETE("/:id", admin, h.Student.Delete)
			}

			// 套餐模块
			packages := authorized.Group("/packages")
			{
				packages.GET("", h.Package.List)
				packages.GET("/:id", h.Package.Get)
				packages.POST("", admin, h.Package.Create)
				packages.PUT("/:id", admin, h.Package.Update)
				packages.DELETE("/:id", admin, h.Package.Delete)
			}

			// 课程模块
			classes := authorized.Group("/classes")
			{
				classes.GET("", h.Class.List)
				classes.GET("/:id", h.Class.Get)
				classes.POST("", admin, h.Class.Create)
				classes.PUT("/:id", admin, h.Class.Update)
				classes.DELETE("/:id", admin, h.Class.Delete)
			}

			// 会员卡模块
			memberships := authorized.Group("/memberships")
			{
				memberships.GET("", h.Membership.List)
				memberships.GET("/:id", h.Membership.Get)
				memberships.POST("", admin, h.Membership.Create)
				memberships.PUT("/:id", admin, h.Membership.Update)
				memberships.POST("/:id/deduct", h.Membership.Deduct)
				memberships.POST("/:id/credit", admin, h.Membership.Credit)
			}

			// 交易模块
			transactions := authorized.Group("/transactions")
			{
				transactions.GET("", h.Transaction.List)
				transactions.GET("/:id", h.Transaction.Get)
				transactions.POST("/:id/approve", h.Transaction.Approve)
				transactions.POST("/:id/cancel", h.Transaction.Cancel)
			}

			// 签到模块
			attendance := authorized.Group("/attendance")
			{
				attendance.POST("/check-in", h.Attendance.CheckIn)
				attendance.GET("", h.Attendance.List)
				attendance.GET("/roster", h.Attendance.Roster)
				attendance.POST("/:id/cancel", h.Attendance.Cancel)
			}

			// 报表模块：续费提醒对前台开放，收入仅管理员
			reports := authorized.Group("/reports")
			{
				reports.GET("/expiring-memberships", h.Report.ListExpiring)
				reports.GET("/revenue", admin, h.Report.MonthlyRevenue)
			}

			// 导出模块
			export := authorized.Group("/export", admin)
			{
				export.GET("/transactions", h.Export.ExportTransactions)
				export.GET("/attendance", h.Export.ExportAttendance)
				export.GET("/revenue", h.Export.ExportRevenue)
			}
		}
	}

	return r
}
