package service

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"dance-house/config"
	"dance-house/pkg/mailer"
)

// EnrollmentNotice 报名成功通知内容
type EnrollmentNotice struct {
	ToName        string
	ToAddress     string
	OrderCode     string
	Amount        decimal.Decimal
	PackageName   string
	TotalSessions int
	StartDate     time.Time
	EndDate       time.Time
}

// NotificationService 客户通知
type NotificationService interface {
	SendEnrollmentConfirmation(ctx context.Context, n EnrollmentNotice) error
}

type notificationService struct {
	sender mailer.Sender
	studio *config.StudioConfig
	logger *zap.Logger
}

// NewNotificationService 创建 NotificationService 实例
func NewNotificationService(sender mailer.Sender, studio *config.StudioConfig, logger *zap.Logger) NotificationService {
	return &notificationService{sender: sender, studio: studio, logger: logger}
}

var enrollmentHTML = template.Must(template.New("enrollment").Parse(`<p>Xin chào {{.Name}},</p>
<p>{{.Studio}} đã xác nhận thanh toán cho đơn hàng <strong>#{{.OrderCode}}</strong> ({{.Amount}} VND).</p>
<ul>
<li>Gói: {{.Package}}</li>
<li>Số buổi: {{.Sessions}}</li>
<li>Hiệu lực: {{.Start}} – {{.End}}</li>
</ul>
<p>Hẹn gặp bạn tại lớp!</p>`))

func (s *notificationService) SendEnrollmentConfirmation(ctx context.Context, n EnrollmentNotice) error {
	if s.sender == nil {
		return nil
	}

	loc := s.studio.Location()
	view := struct {
		Name, Studio, OrderCode, Amount, Package, Start, End string
		Sessions                                             int
	}{
		Name:      n.ToName,
		Studio:    s.studio.Name,
		OrderCode: n.OrderCode,
		Amount:    n.Amount.StringFixedBank(0),
		Package:   n.PackageName,
		Sessions:  n.TotalSessions,
		Start:     n.StartDate.In(loc).Format("02/01/2006"),
		End:       n.EndDate.In(loc).Format("02/01/2006"),
	}

	var html bytes.Buffer
	if err := enrollmentHTML.Execute(&html, view); err != nil {
		return fmt.Errorf("渲染邮件模板失败: %w", err)
	}

	plain := fmt.Sprintf("Xin chào %s, %s đã xác nhận thanh toán đơn hàng #%s. Gói: %s, %d buổi, hiệu lực %s - %s.",
		view.Name, view.Studio, view.OrderCode, view.Package, view.Sessions, view.Start, view.End)

	return s.sender.Send(ctx, mailer.Message{
		ToName:    n.ToName,
		ToAddress: n.ToAddress,
		Subject:   fmt.Sprintf("[%s] Xác nhận đăng ký #%s", s.studio.Name, n.OrderCode),
		PlainText: plain,
		HTML:      html.String(),
	})
}
