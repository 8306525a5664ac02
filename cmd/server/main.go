package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"dance-house/config"
	"dance-house/internal/api/handler"
	"dance-house/internal/api/router"
	"dance-house/internal/repository"
	"dance-house/internal/service"
	"dance-house/pkg/database"
	"dance-house/pkg/jwt"
	applogger "dance-house/pkg/logger"
	"dance-house/pkg/mailer"
	"dance-house/pkg/payos"
	"dance-house/pkg/redis"
)

func main() {
	configPath := flag.String("config", "", "配置文件路径（缺省时查找 ./config/config.yaml）")
	flag.Parse()

	// 0. 本地开发读取 .env，文件不存在时忽略
	_ = godotenv.Load()

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("studio_timezone", cfg.Studio.Timezone),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 连接 Redis（可选：连接失败时降级运行，不中断启动）
	var blacklist service.TokenBlacklist
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
		rdb = nil
	} else {
		blacklist = rdb
	}

	// 5. 外部协作方：JWT、邮件、PayOS
	deps := service.Deps{
		JWT:       jwt.NewManager(&cfg.Auth),
		Blacklist: blacklist,
		Mailer:    mailer.NewSender(&cfg.Mail, logger),
	}
	if cfg.PayOS.ChecksumKey != "" {
		deps.PayOS = payos.NewVerifier(cfg.PayOS.ChecksumKey)
	} else {
		logger.Warn("未配置 PayOS checksum_key，回调接口将拒绝请求")
	}

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)
	h := handler.NewHandler(svc)

	// 7. 初始化路由
	engine := router.Setup(cfg, h, deps.JWT, rdb, logger)

	// 8. 会员卡到期落库（可选，读取时的有效状态始终以日期与课时为准）
	var expiryJob *service.ExpiryJob
	if cfg.Feature.ExpirySweepEnabled {
		expiryJob, err = service.NewExpiryJob(svc.Membership, cfg.Feature.ExpirySweepSpec, cfg.Studio.Location(), logger)
		if err != nil {
			logger.Fatal("初始化到期任务失败", zap.Error(err))
		}
		expiryJob.Start()
	}

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if expiryJob != nil {
		expiryJob.Stop()
	}

	// 关闭数据库连接
	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	// 关闭 Redis 连接
	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
