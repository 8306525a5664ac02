package mailer

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"dance-house/config"
)

// Message 一封待发送的邮件
type Message struct {
	ToName    string
	ToAddress string
	Subject   string
	PlainText string
	HTML      string
}

// Sender 邮件发送接口
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NewSender 根据配置创建发送器
// 未配置 SendGrid API Key 时退化为只记录日志的发送器
func NewSender(cfg *config.MailConfig, logger *zap.Logger) Sender {
	if cfg.SendGridAPIKey == "" {
		logger.Warn("未配置 mail.sendgrid_api_key，邮件仅记录日志")
		return &logSender{logger: logger}
	}
	return &sendGridSender{
		client: sendgrid.NewSendClient(cfg.SendGridAPIKey),
		from:   mail.NewEmail(cfg.FromName, cfg.FromAddress),
		logger: logger,
	}
}

// ── SendGrid 实现 ──

type sendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
	logger *zap.Logger
}

func (s *sendGridSender) Send(ctx context.Context, msg Message) error {
	if msg.ToAddress == "" {
		return fmt.Errorf("收件人地址为空")
	}
	to := mail.NewEmail(msg.ToName, msg.ToAddress)
	m := mail.NewSingleEmail(s.from, msg.Subject, to, msg.PlainText, msg.HTML)

	resp, err := s.client.SendWithContext(ctx, m)
	if err != nil {
		return fmt.Errorf("SendGrid 发送失败: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("SendGrid 返回异常状态 %d: %s", resp.StatusCode, resp.Body)
	}

	s.logger.Info("邮件已发送", zap.String("to", msg.ToAddress), zap.String("subject", msg.Subject))
	return nil
}

// ── 日志实现 ──

type logSender struct {
	logger *zap.Logger
}

func (s *logSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("模拟发送邮件",
		zap.String("to", msg.ToAddress),
		zap.String("subject", msg.Subject),
	)
	return nil
}
