package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"dance-house/config"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	"dance-house/pkg/database"
	applogger "dance-house/pkg/logger"
)

// create-admin 创建后台操作员账号
//
//	go run ./cmd/create-admin -username owner -name "Studio Owner" -password '...' -role admin
func main() {
	var (
		configPath = flag.String("config", "", "配置文件路径")
		username   = flag.String("username", "", "登录用户名")
		fullName   = flag.String("name", "", "显示名称")
		password   = flag.String("password", "", "登录密码（至少 8 位）")
		role       = flag.String("role", model.RoleStaff, "角色：admin 或 staff")
	)
	flag.Parse()

	_ = godotenv.Load()

	if err := validateArgs(*username, *password, *role); err != nil {
		fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
		flag.Usage()
		os.Exit(2)
	}
	if *fullName == "" {
		*fullName = *username
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	defer sqlDB.Close()
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	repo := repository.NewRepository(db)

	// 1. 用户名唯一
	if _, err := repo.AdminUser.GetByUsername(ctx, *username); err == nil {
		logger.Fatal("用户名已存在", zap.String("username", *username))
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Fatal("查询操作员失败", zap.Error(err))
	}

	// 2. 哈希密码
	hash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		logger.Fatal("密码哈希失败", zap.Error(err))
	}

	// 3. 落库
	user := &model.AdminUser{
		Username:     *username,
		FullName:     *fullName,
		PasswordHash: string(hash),
		Role:         *role,
	}
	if err := repo.AdminUser.Create(ctx, user); err != nil {
		logger.Fatal("创建操作员失败", zap.Error(err))
	}

	logger.Info("操作员已创建",
		zap.String("admin_user_id", user.AdminUserID),
		zap.String("username", user.Username),
		zap.String("role", user.Role),
	)
}

func validateArgs(username, password, role string) error {
	if strings.TrimSpace(username) == "" {
		return errors.New("username 不能为空")
	}
	if len(password) < 8 {
		return errors.New("password 长度不能少于 8 位")
	}
	if role != model.RoleAdmin && role != model.RoleStaff {
		return fmt.Errorf("role 只能为 %s 或 %s", model.RoleAdmin, model.RoleStaff)
	}
	return nil
}
