package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 导出模块业务错误 ──

var (
	ErrExportInvalidRange = errors.New("导出区间无效：结束日期不能早于开始日期")
	ErrExportRangeTooLong = errors.New("导出区间不能超过 366 天")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

const maxExportDays = 366

// ExportService 导出业务接口
//
// 导出以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
type ExportService interface {
	// ExportTransactions 导出区间内创建的交易（含首尾日期）
	ExportTransactions(ctx context.Context, req *dto.ExportRangeRequest) (*bytes.Buffer, string, error)
	// ExportAttendance 导出区间内的签到记录（含首尾日期）
	ExportAttendance(ctx context.Context, req *dto.ExportRangeRequest) (*bytes.Buffer, string, error)
	// ExportRevenue 导出最近 N 个自然月的收入汇总
	ExportRevenue(ctx context.Context, req *dto.RevenueRequest) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

// ═══════════════════════════════════════════════════════════
// ExportTransactions 导出交易流水
// ═══════════════════════════════════════════════════════════
//
// 列：订单号 | 创建时间 | 客户 | 手机号 | 套餐 | 金额 | 渠道 | 状态 | 处理时间 | 处理人
// 末行合计 completed 交易金额

func (s *exportService) ExportTransactions(ctx context.Context, req *dto.ExportRangeRequest) (*bytes.Buffer, string, error) {
	from, to, err := s.parseRange(req, s.loc)
	if err != nil {
		return nil, "", err
	}

	list, err := s.repo.Transaction.ListForExport(ctx, from, to, req.Status)
	if err != nil {
		s.logger.Error("查询导出交易失败", zap.Error(err))
		return nil, "", pkgerrors.Store("transaction.list_for_export", err)
	}

	headers := []string{"Mã đơn", "Thời gian tạo", "Khách hàng", "Số điện thoại", "Gói", "Số tiền", "Kênh", "Trạng thái", "Thời gian xử lý", "Người xử lý"}
	rows := make([][]interface{}, 0, len(list)+1)
	total := 0.0
	for i := range list {
		t := &list[i]
		processedAt, processedBy := "", ""
		if t.ProcessedAt != nil {
			processedAt = t.ProcessedAt.In(s.loc).Format("2006-01-02 15:04")
		}
		if t.ProcessedBy != nil {
			processedBy = *t.ProcessedBy
		}
		amount, _ := t.Amount.Float64()
		if t.Status == model.TransactionStatusCompleted {
			total += amount
		}
		rows = append(rows, []interface{}{
			t.OrderCode,
			t.CreatedAt.In(s.loc).Format("2006-01-02 15:04"),
			t.CustomerName,
			t.CustomerPhone,
			t.MetadataPackageName(),
			amount,
			t.PaymentGateway,
			t.Status,
			processedAt,
			processedBy,
		})
	}
	rows = append(rows, []interface{}{"Tổng (completed)", "", "", "", "", total})

	buf, err := s.writeSheet("Giao dịch", headers, rows)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("transactions_%s_%s.xlsx", req.From, req.To)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportAttendance 导出签到明细
// ═══════════════════════════════════════════════════════════
//
// 列：日期 | 课程 | 学员 | 手机号 | 签到时间 | 状态

func (s *exportService) ExportAttendance(ctx context.Context, req *dto.ExportRangeRequest) (*bytes.Buffer, string, error) {
	// DATE 列按 UTC 零点编码
	from, to, err := s.parseRange(req, time.UTC)
	if err != nil {
		return nil, "", err
	}

	list, err := s.repo.Attendance.ListForExport(ctx, from, to)
	if err != nil {
		s.logger.Error("查询导出签到失败", zap.Error(err))
		return nil, "", pkgerrors.Store("attendance.list_for_export", err)
	}

	headers := []string{"Ngày", "Lớp", "Học viên", "Số điện thoại", "Giờ check-in", "Trạng thái"}
	rows := make([][]interface{}, 0, len(list))
	for i := range list {
		a := &list[i]
		className, studentName, phone := "", "", ""
		if a.Class != nil {
			className = a.Class.Name
		}
		if a.Student != nil {
			studentName = a.Student.FullName
			phone = a.Student.Phone
		}
		rows = append(rows, []interface{}{
			a.Date.Format(dto.DateLayout),
			className,
			studentName,
			phone,
			a.CheckInTime.In(s.loc).Format("15:04"),
			a.Status,
		})
	}

	buf, err := s.writeSheet("Điểm danh", headers, rows)
	if err != nil {
		return nil, "", err
	}
	filename := fmt.Sprintf("attendance_%s_%s.xlsx", req.From, req.To)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportRevenue 导出月度收入
// ═══════════════════════════════════════════════════════════
//
// 列：月份 | 收入 | 交易笔数，末行合计

func (s *exportService) ExportRevenue(ctx context.Context, req *dto.RevenueRequest) (*bytes.Buffer, string, error) {
	items, err := monthlyRevenueSeries(ctx, s.repo, s.loc, s.now(), req.Months)
	if err != nil {
		s.logger.Error("查询导出月度收入失败", zap.Error(err))
		return nil, "", pkgerrors.Store("transaction.monthly_revenue", err)
	}

	headers := []string{"Tháng", "Doanh thu", "Số giao dịch"}
	rows := make([][]interface{}, 0, len(items)+1)
	total := decimal.Zero
	var count int64
	for _, it := range items {
		amount, _ := it.TotalRevenue.Float64()
		rows = append(rows, []interface{}{fmt.Sprintf("%04d-%02d", it.Year, it.Month), amount, it.TransactionCount})
		total = total.Add(it.TotalRevenue)
		count += it.TransactionCount
	}
	sum, _ := total.Float64()
	rows = append(rows, []interface{}{"Tổng", sum, count})

	buf, err := s.writeSheet("Doanh thu", headers, rows)
	if err != nil {
		return nil, "", err
	}
	first, last := items[0], items[len(items)-1]
	filename := fmt.Sprintf("revenue_%04d-%02d_%04d-%02d.xlsx", first.Year, first.Month, last.Year, last.Month)
	return buf, filename, nil
}

// ── 辅助函数 ──

// parseRange 解析 [from, to] 闭区间，返回 [from, to+1d) 半开区间
func (s *exportService) parseRange(req *dto.ExportRangeRequest, loc *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(dto.DateLayout, req.From, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	to, err := time.ParseInLocation(dto.DateLayout, req.To, loc)
	if err != nil {
		return time.Time{}, time.Time{}, ErrInvalidDate
	}
	if to.Before(from) {
		return time.Time{}, time.Time{}, ErrExportInvalidRange
	}
	end := to.AddDate(0, 0, 1)
	if end.Sub(from) > maxExportDays*24*time.Hour {
		return time.Time{}, time.Time{}, ErrExportRangeTooLong
	}
	return from, end, nil
}

func (s *exportService) writeSheet(sheetName string, headers []string, rows [][]interface{}) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	idx, err := f.NewSheet(sheetName)
	if err != nil {
		s.logger.Error("创建 Sheet 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 1), h)
		col := colName(i)
		f.SetColWidth(sheetName, col, col, 18)
	}
	f.SetCellStyle(sheetName, "A1", cell(colName(len(headers)-1), 1), headerStyle)

	for r, row := range rows {
		for c, v := range row {
			f.SetCellValue(sheetName, cell(colName(c), r+2), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, ErrExportGenerateFail
	}
	return buf, nil
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
