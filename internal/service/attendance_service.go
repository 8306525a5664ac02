package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/config"
	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 签到模块业务错误 ──

var (
	ErrDuplicateAttendance  = errors.New("该学员今天已签到此课程")
	ErrAttendanceNotFound   = errors.New("签到记录不存在")
	ErrAttendanceNotPresent = errors.New("签到记录已取消")
	ErrMembershipInactive   = errors.New("会员卡未激活或已过期")
	ErrMembershipNotOwned   = errors.New("会员卡不属于该学员")
	ErrNoUsableMembership   = errors.New("学员没有可用的会员卡")
)

// AttendanceService 签到业务接口
type AttendanceService interface {
	// CheckIn 记录签到并扣减一节课时，两步在同一数据库事务中完成
	CheckIn(ctx context.Context, req *dto.CheckInRequest, callerID string) (*dto.CheckInResponse, error)
	// CancelCheckIn 撤销签到并返还一节课时
	CancelCheckIn(ctx context.Context, attendanceID, callerID string) error
	ListByClassAndDate(ctx context.Context, req *dto.AttendanceListRequest) ([]dto.AttendanceResponse, error)
	ListByStudent(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.AttendanceResponse, int64, error)
	// Roster 某课程某天的点名表：持有可用会员卡的学员及其签到状态
	Roster(ctx context.Context, req *dto.AttendanceListRequest) (*dto.RosterResponse, error)
}

type attendanceService struct {
	repo        *repository.Repository
	memberships *membershipService
	loc         *time.Location
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService 创建 AttendanceService 实例
func NewAttendanceService(repo *repository.Repository, cfg *config.Config, logger *zap.Logger) AttendanceService {
	loc := cfg.Studio.Location()
	memberships := newMembershipService(repo, newPackageResolver(repo, &cfg.Enrollment, logger), loc, logger)
	return newAttendanceService(repo, memberships, loc, logger)
}

func newAttendanceService(repo *repository.Repository, memberships *membershipService, loc *time.Location, logger *zap.Logger) *attendanceService {
	return &attendanceService{repo: repo, memberships: memberships, loc: loc, logger: logger, now: time.Now}
}

// ────────────────────── CheckIn ──────────────────────

func (s *attendanceService) CheckIn(ctx context.Context, req *dto.CheckInRequest, callerID string) (*dto.CheckInResponse, error) {
	now := s.now()

	// 1. 课程存在且开放
	if _, err := s.activeClass(ctx, req.ClassID); err != nil {
		return nil, err
	}

	// 2. 学员存在
	if _, err := s.repo.Student.GetByID(ctx, req.StudentID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("id", req.StudentID), zap.Error(err))
		return nil, pkgerrors.Store("student.get", err)
	}

	// 3. 选择会员卡
	membership, err := s.pickMembership(ctx, req.StudentID, req.MembershipID, now)
	if err != nil {
		return nil, err
	}

	// 4. 插入签到 + 扣课，同一事务；扣课失败则签到一并回滚
	record := &model.Attendance{
		StudentID:    req.StudentID,
		ClassID:      req.ClassID,
		MembershipID: &membership.MembershipID,
		Date:         calendarDate(now, s.loc),
		Status:       model.AttendanceStatusPresent,
		CheckInTime:  now,
	}
	record.CreatedBy = &callerID
	record.UpdatedBy = &callerID

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		inserted, err := txRepo.Attendance.CreateIfAbsent(ctx, record)
		if err != nil {
			return pkgerrors.Store("attendance.create", err)
		}
		if !inserted {
			return ErrDuplicateAttendance
		}
		return s.memberships.bind(txRepo).deduct(ctx, membership.MembershipID)
	})
	if err != nil {
		if !errors.Is(err, ErrDuplicateAttendance) && !errors.Is(err, ErrInsufficientSessions) {
			s.logger.Error("签到失败",
				zap.String("student_id", req.StudentID),
				zap.Int64("class_id", req.ClassID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	remaining := membership.RemainingSessions - 1
	if updated, err := s.repo.Membership.GetByID(ctx, membership.MembershipID); err == nil {
		remaining = updated.RemainingSessions
	}

	s.logger.Info("学员签到",
		zap.String("attendance_id", record.AttendanceID),
		zap.String("student_id", req.StudentID),
		zap.Int64("class_id", req.ClassID),
		zap.String("membership_id", membership.MembershipID),
		zap.Int("remaining_sessions", remaining),
	)

	return &dto.CheckInResponse{
		AttendanceID:      record.AttendanceID,
		StudentID:         record.StudentID,
		ClassID:           record.ClassID,
		MembershipID:      membership.MembershipID,
		Date:              record.Date.Format(dto.DateLayout),
		RemainingSessions: remaining,
	}, nil
}

// pickMembership 指定会员卡时校验归属与可用性；未指定时选最早到期的可用会员卡
func (s *attendanceService) pickMembership(ctx context.Context, studentID, membershipID string, now time.Time) (*model.Membership, error) {
	if membershipID == "" {
		m, err := s.repo.Membership.FindUsableForStudent(ctx, studentID, now)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoUsableMembership
			}
			s.logger.Error("查询可用会员卡失败", zap.String("student_id", studentID), zap.Error(err))
			return nil, pkgerrors.Store("membership.find_usable", err)
		}
		return m, nil
	}

	m, err := s.memberships.get(ctx, membershipID)
	if err != nil {
		return nil, err
	}
	if m.StudentID != studentID {
		return nil, ErrMembershipNotOwned
	}
	if m.Status != model.MembershipStatusActive || m.Lapsed(now) {
		return nil, ErrMembershipInactive
	}
	if m.RemainingSessions <= 0 {
		return nil, ErrInsufficientSessions
	}
	return m, nil
}

// ────────────────────── CancelCheckIn ──────────────────────

func (s *attendanceService) CancelCheckIn(ctx context.Context, attendanceID, callerID string) error {
	record, err := s.repo.Attendance.GetByID(ctx, attendanceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAttendanceNotFound
		}
		s.logger.Error("查询签到记录失败", zap.String("id", attendanceID), zap.Error(err))
		return pkgerrors.Store("attendance.get", err)
	}

	err = runInTx(ctx, s.repo, s.logger, func(txRepo *repository.Repository) error {
		if err := txRepo.Attendance.Cancel(ctx, attendanceID, callerID); err != nil {
			if errors.Is(err, pkgerrors.ErrConditionNotMet) {
				return ErrAttendanceNotPresent
			}
			return pkgerrors.Store("attendance.cancel", err)
		}
		if record.MembershipID == nil {
			return nil
		}
		return s.memberships.bind(txRepo).credit(ctx, *record.MembershipID)
	})
	if err != nil {
		return err
	}

	s.logger.Info("撤销签到",
		zap.String("attendance_id", attendanceID),
		zap.String("student_id", record.StudentID),
		zap.String("operator", callerID),
	)
	return nil
}

// ────────────────────── 查询 ──────────────────────

func (s *attendanceService) ListByClassAndDate(ctx context.Context, req *dto.AttendanceListRequest) ([]dto.AttendanceResponse, error) {
	date, err := s.requestDate(req.Date)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.Attendance.ListByClassAndDate(ctx, req.ClassID, date)
	if err != nil {
		s.logger.Error("查询签到列表失败", zap.Int64("class_id", req.ClassID), zap.Error(err))
		return nil, pkgerrors.Store("attendance.list", err)
	}

	result := make([]dto.AttendanceResponse, 0, len(list))
	for i := range list {
		result = append(result, s.toAttendanceResponse(&list[i]))
	}
	return result, nil
}

func (s *attendanceService) ListByStudent(ctx context.Context, studentID string, req *dto.PaginationRequest) ([]dto.AttendanceResponse, int64, error) {
	list, total, err := s.repo.Attendance.ListByStudent(ctx, studentID, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询学员签到记录失败", zap.String("student_id", studentID), zap.Error(err))
		return nil, 0, pkgerrors.Store("attendance.list_by_student", err)
	}

	result := make([]dto.AttendanceResponse, 0, len(list))
	for i := range list {
		result = append(result, s.toAttendanceResponse(&list[i]))
	}
	return result, total, nil
}

func (s *attendanceService) Roster(ctx context.Context, req *dto.AttendanceListRequest) (*dto.RosterResponse, error) {
	class, err := s.activeClass(ctx, req.ClassID)
	if err != nil && !errors.Is(err, ErrClassInactive) {
		return nil, err
	}
	date, err := s.requestDate(req.Date)
	if err != nil {
		return nil, err
	}

	usable, err := s.repo.Membership.ListUsable(ctx, s.now())
	if err != nil {
		s.logger.Error("查询可用会员卡失败", zap.Error(err))
		return nil, pkgerrors.Store("membership.list_usable", err)
	}
	records, err := s.repo.Attendance.ListByClassAndDate(ctx, req.ClassID, date)
	if err != nil {
		s.logger.Error("查询签到列表失败", zap.Int64("class_id", req.ClassID), zap.Error(err))
		return nil, pkgerrors.Store("attendance.list", err)
	}

	present := make(map[string]*model.Attendance, len(records))
	for i := range records {
		if records[i].Status == model.AttendanceStatusPresent {
			present[records[i].StudentID] = &records[i]
		}
	}

	// 每个学员取最早到期的一张会员卡（ListUsable 已按 end_date 升序）
	entries := make([]dto.RosterEntry, 0, len(usable))
	seen := make(map[string]bool, len(usable))
	for i := range usable {
		m := &usable[i]
		if seen[m.StudentID] || m.Student == nil || m.Student.Status != model.StudentStatusActive {
			continue
		}
		seen[m.StudentID] = true
		entry := dto.RosterEntry{
			StudentID:         m.StudentID,
			FullName:          m.Student.FullName,
			Phone:             m.Student.Phone,
			MembershipID:      m.MembershipID,
			PackageName:       m.PackageName,
			RemainingSessions: m.RemainingSessions,
			EndDate:           m.EndDate.In(s.loc).Format(dto.DateLayout),
		}
		if a, ok := present[m.StudentID]; ok {
			entry.Attended = true
			entry.AttendanceID = &a.AttendanceID
		}
		entries = append(entries, entry)
	}

	// 已签到但会员卡已用完的学员也要出现在点名表中
	for i := range records {
		a := &records[i]
		if a.Status != model.AttendanceStatusPresent || seen[a.StudentID] {
			continue
		}
		seen[a.StudentID] = true
		entry := dto.RosterEntry{
			StudentID:    a.StudentID,
			Attended:     true,
			AttendanceID: &a.AttendanceID,
		}
		if a.MembershipID != nil {
			entry.MembershipID = *a.MembershipID
		}
		if a.Student != nil {
			entry.FullName = a.Student.FullName
			entry.Phone = a.Student.Phone
		}
		entries = append(entries, entry)
	}

	return &dto.RosterResponse{
		Class:   toClassResponse(class),
		Date:    date.Format(dto.DateLayout),
		Entries: entries,
	}, nil
}

// ── 内部辅助方法 ──

// activeClass 返回课程；课程已停开时同时返回课程与 ErrClassInactive
func (s *attendanceService) activeClass(ctx context.Context, classID int64) (*model.DanceClass, error) {
	class, err := s.repo.DanceClass.GetByID(ctx, classID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("class_id", classID), zap.Error(err))
		return nil, pkgerrors.Store("class.get", err)
	}
	if !class.IsActive {
		return class, ErrClassInactive
	}
	return class, nil
}

// requestDate 请求中的日期（缺省为工作室当天），编码为 DATE 列使用的 UTC 零点
func (s *attendanceService) requestDate(date string) (time.Time, error) {
	if date == "" {
		return calendarDate(s.now(), s.loc), nil
	}
	t, err := time.Parse(dto.DateLayout, date)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return t, nil
}

func (s *attendanceService) toAttendanceResponse(a *model.Attendance) dto.AttendanceResponse {
	resp := dto.AttendanceResponse{
		ID:           a.AttendanceID,
		StudentID:    a.StudentID,
		ClassID:      a.ClassID,
		MembershipID: a.MembershipID,
		Date:         a.Date.Format(dto.DateLayout),
		Status:       a.Status,
		CheckInTime:  a.CheckInTime.In(s.loc).Format(dto.TimeLayout),
	}
	if a.Student != nil {
		resp.StudentName = a.Student.FullName
	}
	if a.Class != nil {
		resp.ClassName = a.Class.Name
	}
	return resp
}
