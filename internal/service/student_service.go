package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 学员模块业务错误 ──

var (
	ErrStudentNotFound       = errors.New("学员不存在")
	ErrPhoneRequired         = errors.New("手机号不能为空")
	ErrNameRequired          = errors.New("姓名不能为空")
	ErrStudentPhoneExists    = errors.New("该手机号已登记")
	ErrStudentHasMemberships = errors.New("学员名下仍有会员卡，不能删除")
)

// StudentService 学员业务接口
type StudentService interface {
	// ResolveOrCreate 按手机号查找学员，不存在则创建；返回学员 ID 以及是否新建
	ResolveOrCreate(ctx context.Context, phone, name string, email *string) (string, bool, error)
	Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StudentDetailResponse, error)
	List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type studentService struct {
	repo   *repository.Repository
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) StudentService {
	return newStudentService(repo, loc, logger)
}

func newStudentService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) *studentService {
	return &studentService{repo: repo, loc: loc, logger: logger, now: time.Now}
}

func (s *studentService) bind(repo *repository.Repository) *studentService {
	c := *s
	c.repo = repo
	return &c
}

// ────────────────────── ResolveOrCreate ──────────────────────

func (s *studentService) ResolveOrCreate(ctx context.Context, phone, name string, email *string) (string, bool, error) {
	phone = NormalizePhone(phone)
	name = strings.TrimSpace(name)
	if phone == "" {
		return "", false, ErrPhoneRequired
	}
	if name == "" {
		return "", false, ErrNameRequired
	}

	// 1. 按手机号精确查找
	existing, err := s.repo.Student.GetByPhone(ctx, phone)
	if err == nil {
		return existing.StudentID, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("按手机号查询学员失败", zap.String("phone", phone), zap.Error(err))
		return "", false, pkgerrors.Store("student.get_by_phone", err)
	}

	// 2. 不存在则插入；并发插入由唯一索引裁决，落败方读取胜出方的记录
	student := &model.Student{
		FullName: name,
		Phone:    phone,
		Email:    normalizeEmail(email),
		Status:   model.StudentStatusActive,
		JoinDate: s.now(),
	}
	created, err := s.repo.Student.CreateIfPhoneAbsent(ctx, student)
	if err != nil {
		s.logger.Error("创建学员失败", zap.String("phone", phone), zap.Error(err))
		return "", false, pkgerrors.Store("student.create", err)
	}
	if created {
		s.logger.Info("新建学员", zap.String("student_id", student.StudentID), zap.String("phone", phone))
		return student.StudentID, true, nil
	}

	winner, err := s.repo.Student.GetByPhone(ctx, phone)
	if err != nil {
		s.logger.Error("并发建档后回读学员失败", zap.String("phone", phone), zap.Error(err))
		return "", false, pkgerrors.Store("student.get_by_phone", err)
	}
	return winner.StudentID, false, nil
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	phone := NormalizePhone(req.Phone)
	if phone == "" {
		return nil, ErrPhoneRequired
	}
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, ErrNameRequired
	}

	birthdate, err := parseOptionalDate(req.Birthdate)
	if err != nil {
		return nil, err
	}

	status := req.Status
	if status == "" {
		status = model.StudentStatusActive
	}

	student := &model.Student{
		FullName:         name,
		Phone:            phone,
		Email:            normalizeEmail(req.Email),
		Status:           status,
		JoinDate:         s.now(),
		Birthdate:        birthdate,
		Gender:           req.Gender,
		Level:            req.Level,
		ParentName:       req.ParentName,
		EmergencyContact: req.EmergencyContact,
		MedicalNote:      req.MedicalNote,
	}
	student.CreatedBy = &callerID
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		if errors.Is(err, pkgerrors.ErrDuplicateKey) {
			return nil, ErrStudentPhoneExists
		}
		s.logger.Error("创建学员失败", zap.Error(err))
		return nil, pkgerrors.Store("student.create", err)
	}

	return toStudentResponse(student, s.loc), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentDetailResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("student.get", err)
	}

	now := s.now()
	memberships := make([]dto.MembershipResponse, 0, len(student.Memberships))
	for i := range student.Memberships {
		memberships = append(memberships, toMembershipResponse(&student.Memberships[i], now, s.loc))
	}

	return &dto.StudentDetailResponse{
		StudentResponse: *toStudentResponse(student, s.loc),
		Memberships:     memberships,
	}, nil
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	filters := &repository.ListFilters{
		Status:  req.Status,
		Keyword: strings.TrimSpace(req.Keyword),
	}
	students, total, err := s.repo.Student.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学员失败", zap.Error(err))
		return nil, 0, pkgerrors.Store("student.list", err)
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *toStudentResponse(&students[i], s.loc))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *studentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("student.get", err)
	}

	if req.FullName != nil {
		name := strings.TrimSpace(*req.FullName)
		if name == "" {
			return nil, ErrNameRequired
		}
		student.FullName = name
	}
	if req.Phone != nil {
		phone := NormalizePhone(*req.Phone)
		if phone == "" {
			return nil, ErrPhoneRequired
		}
		student.Phone = phone
	}
	if req.Email != nil {
		student.Email = normalizeEmail(req.Email)
	}
	if req.Status != nil {
		student.Status = *req.Status
	}
	if req.Birthdate != nil {
		birthdate, err := parseOptionalDate(req.Birthdate)
		if err != nil {
			return nil, err
		}
		student.Birthdate = birthdate
	}
	if req.Gender != nil {
		student.Gender = req.Gender
	}
	if req.Level != nil {
		student.Level = req.Level
	}
	if req.ParentName != nil {
		student.ParentName = req.ParentName
	}
	if req.EmergencyContact != nil {
		student.EmergencyContact = req.EmergencyContact
	}
	if req.MedicalNote != nil {
		student.MedicalNote = req.MedicalNote
	}

	student.Version = req.Version
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Update(ctx, student); err != nil {
		switch {
		case errors.Is(err, pkgerrors.ErrDuplicateKey):
			return nil, ErrStudentPhoneExists
		case errors.Is(err, pkgerrors.ErrOptimisticLock):
			return nil, err
		}
		s.logger.Error("更新学员失败", zap.String("id", id), zap.Error(err))
		return nil, pkgerrors.Store("student.update", err)
	}

	return toStudentResponse(student, s.loc), nil
}

// ────────────────────── Delete ──────────────────────

func (s *studentService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学员失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Store("student.get", err)
	}

	// 会员卡未设外键，由此处保证学员不会在被引用时删除
	n, err := s.repo.Membership.CountByStudent(ctx, id)
	if err != nil {
		s.logger.Error("统计学员会员卡失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Store("membership.count", err)
	}
	if n > 0 {
		return ErrStudentHasMemberships
	}

	if err := s.repo.Student.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除学员失败", zap.String("id", id), zap.Error(err))
		return pkgerrors.Store("student.delete", err)
	}
	return nil
}

// ── 内部辅助方法 ──

func normalizeEmail(email *string) *string {
	if email == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*email))
	if e == "" {
		return nil
	}
	return &e
}

var ErrInvalidDate = errors.New("日期格式错误，应为 YYYY-MM-DD")

func parseOptionalDate(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := time.Parse(dto.DateLayout, *s)
	if err != nil {
		return nil, ErrInvalidDate
	}
	return &t, nil
}

func toStudentResponse(st *model.Student, loc *time.Location) *dto.StudentResponse {
	resp := &dto.StudentResponse{
		ID:               st.StudentID,
		FullName:         st.FullName,
		Phone:            st.Phone,
		Email:            st.Email,
		Status:           st.Status,
		JoinDate:         st.JoinDate.In(loc).Format(dto.DateLayout),
		Gender:           st.Gender,
		Level:            st.Level,
		ParentName:       st.ParentName,
		EmergencyContact: st.EmergencyContact,
		MedicalNote:      st.MedicalNote,
		Version:          st.Version,
		CreatedAt:        formatTime(st.CreatedAt),
	}
	if st.Birthdate != nil {
		resp.Birthdate = strPtr(st.Birthdate.Format(dto.DateLayout))
	}
	return resp
}
