package service

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// expirySweepTimeout 单次清扫的超时时间
const expirySweepTimeout = 2 * time.Minute

// ExpiryJob 定时将已过期或课时用尽的会员卡落库为 Expired
// 读取时的有效状态计算仍是权威判断，清扫只让列表筛选与报表更准确
type ExpiryJob struct {
	memberships MembershipService
	cron        *cron.Cron
	logger      *zap.Logger
}

// NewExpiryJob 创建清扫任务；schedule 为标准 5 段 cron 表达式
func NewExpiryJob(memberships MembershipService, schedule string, loc *time.Location, logger *zap.Logger) (*ExpiryJob, error) {
	j := &ExpiryJob{
		memberships: memberships,
		cron:        cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		logger:      logger,
	}
	if _, err := j.cron.AddFunc(schedule, j.RunOnce); err != nil {
		return nil, err
	}
	return j, nil
}

// Start 启动调度（非阻塞）
func (j *ExpiryJob) Start() {
	j.cron.Start()
	j.logger.Info("会员卡过期清扫任务已启动")
}

// Stop 停止调度并等待正在执行的清扫结束
func (j *ExpiryJob) Stop() {
	<-j.cron.Stop().Done()
}

// RunOnce 执行一次清扫
func (j *ExpiryJob) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), expirySweepTimeout)
	defer cancel()

	n, err := j.memberships.ExpireLapsed(ctx)
	if err != nil {
		j.logger.Error("会员卡过期清扫失败", zap.Error(err))
		return
	}
	j.logger.Info("会员卡过期清扫完成", zap.Int64("expired", n))
}
