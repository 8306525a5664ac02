package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"dance-house/internal/dto"
	"dance-house/internal/model"
	"dance-house/internal/repository"
	pkgerrors "dance-house/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrClassNotFound    = errors.New("课程不存在")
	ErrClassInactive    = errors.New("课程已停开")
	ErrInvalidClassTime = errors.New("结束时间必须晚于开始时间")
)

const defaultClassCapacity = 20

// ClassService 舞蹈课程业务接口
type ClassService interface {
	Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error)
	GetByID(ctx context.Context, id int64) (*dto.ClassResponse, error)
	List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, error)
	Update(ctx context.Context, id int64, req *dto.UpdateClassRequest, callerID string) (*dto.ClassResponse, error)
	Delete(ctx context.Context, id int64, callerID string) error
}

type classService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewClassService 创建 ClassService 实例
func NewClassService(repo *repository.Repository, logger *zap.Logger) ClassService {
	return &classService{repo: repo, logger: logger}
}

func (s *classService) Create(ctx context.Context, req *dto.CreateClassRequest, callerID string) (*dto.ClassResponse, error) {
	// "HH:MM" 定长，可直接按字符串比较
	if req.EndTime <= req.StartTime {
		return nil, ErrInvalidClassTime
	}

	class := &model.DanceClass{
		Name:       strings.TrimSpace(req.Name),
		Instructor: req.Instructor,
		Level:      req.Level,
		DayOfWeek:  *req.DayOfWeek,
		StartTime:  req.StartTime,
		EndTime:    req.EndTime,
		Capacity:   req.Capacity,
		IsActive:   true,
	}
	if class.Capacity == 0 {
		class.Capacity = defaultClassCapacity
	}
	class.CreatedBy = &callerID
	class.UpdatedBy = &callerID

	if err := s.repo.DanceClass.Create(ctx, class); err != nil {
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, pkgerrors.Store("class.create", err)
	}

	resp := toClassResponse(class)
	return &resp, nil
}

func (s *classService) GetByID(ctx context.Context, id int64) (*dto.ClassResponse, error) {
	class, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := toClassResponse(class)
	return &resp, nil
}

func (s *classService) List(ctx context.Context, req *dto.ClassListRequest) ([]dto.ClassResponse, error) {
	classes, err := s.repo.DanceClass.List(ctx, !req.IncludeInactive)
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, pkgerrors.Store("class.list", err)
	}

	result := make([]dto.ClassResponse, 0, len(classes))
	for i := range classes {
		result = append(result, toClassResponse(&classes[i]))
	}
	return result, nil
}

func (s *classService) Update(ctx context.Context, id int64, req *dto.UpdateClassRequest, callerID string) (*dto.ClassResponse, error) {
	class, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		class.Name = strings.TrimSpace(*req.Name)
	}
	if req.Instructor != nil {
		class.Instructor = req.Instructor
	}
	if req.Level != nil {
		class.Level = req.Level
	}
	if req.DayOfWeek != nil {
		class.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		class.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		class.EndTime = *req.EndTime
	}
	if req.Capacity != nil {
		class.Capacity = *req.Capacity
	}
	if req.IsActive != nil {
		class.IsActive = *req.IsActive
	}
	if class.EndTime <= class.StartTime {
		return nil, ErrInvalidClassTime
	}
	class.UpdatedBy = &callerID

	if err := s.repo.DanceClass.Update(ctx, class); err != nil {
		s.logger.Error("更新课程失败", zap.Int64("id", id), zap.Error(err))
		return nil, pkgerrors.Store("class.update", err)
	}

	resp := toClassResponse(class)
	return &resp, nil
}

func (s *classService) Delete(ctx context.Context, id int64, callerID string) error {
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DanceClass.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除课程失败", zap.Int64("id", id), zap.Error(err))
		return pkgerrors.Store("class.delete", err)
	}
	return nil
}

func (s *classService) get(ctx context.Context, id int64) (*model.DanceClass, error) {
	class, err := s.repo.DanceClass.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrClassNotFound
		}
		s.logger.Error("查询课程失败", zap.Int64("id", id), zap.Error(err))
		return nil, pkgerrors.Store("class.get", err)
	}
	return class, nil
}

func toClassResponse(c *model.DanceClass) dto.ClassResponse {
	return dto.ClassResponse{
		ID:         c.ClassID,
		Name:       c.Name,
		Instructor: c.Instructor,
		Level:      c.Level,
		DayOfWeek:  c.DayOfWeek,
		StartTime:  c.StartTime,
		EndTime:    c.EndTime,
		Capacity:   c.Capacity,
		IsActive:   c.IsActive,
	}
}
