package handler

import "dance-house/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth        *AuthHandler
	Student     *StudentHandler
	Package     *PackageHandler
	Class       *ClassHandler
	Membership  *MembershipHandler
	Transaction *TransactionHandler
	Checkout    *CheckoutHandler
	Webhook     *WebhookHandler
	Attendance  *AttendanceHandler
	Export      *ExportHandler
	Report      *ReportHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:        NewAuthHandler(svc.Auth),
		Student:     NewStudentHandler(svc.Student),
		Package:     NewPackageHandler(svc.Package),
		Class:       NewClassHandler(svc.Class),
		Membership:  NewMembershipHandler(svc.Membership),
		Transaction: NewTransactionHandler(svc.Transaction, svc.Enrollment),
		Checkout:    NewCheckoutHandler(svc.Transaction),
		Webhook:     NewWebhookHandler(svc.Enrollment),
		Attendance:  NewAttendanceHandler(svc.Attendance),
		Export:      NewExportHandler(svc.Export),
		Report:      NewReportHandler(svc.Report),
	}
}
