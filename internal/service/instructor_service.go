package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ── 教师模块业务错误 ──

var (
	ErrInstructorNotFound       = fmt.Errorf("%w: 教师不存在", pkgerrors.ErrNotFound)
	ErrEmployeeNumberExists     = fmt.Errorf("%w: 工号已存在", pkgerrors.ErrConflict)
	ErrInstructorHasCourses     = fmt.Errorf("%w: 教师仍有授课课程，无法删除", pkgerrors.ErrConflict)
	ErrInstructorProfileMissing = fmt.Errorf("%w: 当前用户没有教师档案", pkgerrors.ErrNotFound)
)

// InstructorService 教师档案业务接口
type InstructorService interface {
	Create(ctx context.Context, caller authz.Subject, req *dto.CreateInstructorRequest) (*dto.InstructorResponse, error)
	Get(ctx context.Context, caller authz.Subject, id string) (*dto.InstructorResponse, error)
	GetMine(ctx context.Context, caller authz.Subject) (*dto.InstructorResponse, error)
	List(ctx context.Context, caller authz.Subject, req *dto.InstructorListRequest) ([]dto.InstructorResponse, int64, error)
	Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateInstructorRequest) (*dto.InstructorResponse, error)
	Delete(ctx context.Context, caller authz.Subject, id string) error
}

type instructorService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewInstructorService 创建 InstructorService 实例
func NewInstructorService(repo *repository.Repository, logger *zap.Logger) InstructorService {
	return &instructorService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *instructorService) Create(ctx context.Context, caller authz.Subject, req *dto.CreateInstructorRequest) (*dto.InstructorResponse, error) {
	if _, err := authorize(caller, authz.ActionCreate, authz.Target{Resource: authz.ResourceInstructor, OwnerID: req.UserID}); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}
	if user.Role != authz.RoleInstructor {
		return nil, ErrRoleMismatch
	}

	if _, err := s.repo.Instructor.GetByUserID(ctx, req.UserID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	number := strings.TrimSpace(req.EmployeeNumber)
	if _, err := s.repo.Instructor.GetByNumber(ctx, number); err == nil {
		return nil, ErrEmployeeNumberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hireDate := today()
	if req.HireDate != nil {
		if hireDate, err = parseDate(*req.HireDate); err != nil {
			return nil, err
		}
	}

	instructor := &model.Instructor{
		UserID:         req.UserID,
		EmployeeNumber: number,
		FullName:       strings.TrimSpace(req.FullName),
		Department:     strings.TrimSpace(req.Department),
		HireDate:       hireDate,
		OfficeLocation: req.OfficeLocation,
		IsActive:       user.IsActive,
	}
	instructor.CreatedBy = &caller.UserID

	if err := s.repo.Instructor.Create(ctx, instructor); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			if _, lookupErr := s.repo.Instructor.GetByUserID(ctx, req.UserID); lookupErr == nil {
				return nil, ErrProfileExists
			}
			return nil, ErrEmployeeNumberExists
		}
		s.logger.Error("创建教师档案失败", zap.Error(err))
		return nil, err
	}
	instructor.User = user

	resp := toInstructorResponse(instructor)
	return &resp, nil
}

// ────────────────────── Get ──────────────────────

func (s *instructorService) Get(ctx context.Context, caller authz.Subject, id string) (*dto.InstructorResponse, error) {
	instructor, err := s.repo.Instructor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceInstructor, OwnerID: instructor.UserID}); err != nil {
		return nil, err
	}

	resp := toInstructorResponse(instructor)
	return &resp, nil
}

func (s *instructorService) GetMine(ctx context.Context, caller authz.Subject) (*dto.InstructorResponse, error) {
	instructor, err := s.repo.Instructor.GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorProfileMissing
		}
		s.logger.Error("查询教师失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceInstructor, OwnerID: instructor.UserID}); err != nil {
		return nil, err
	}

	resp := toInstructorResponse(instructor)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *instructorService) List(ctx context.Context, caller authz.Subject, req *dto.InstructorListRequest) ([]dto.InstructorResponse, int64, error) {
	if _, err := authorize(caller, authz.ActionList, authz.Target{Resource: authz.ResourceInstructor}); err != nil {
		return nil, 0, err
	}

	filters := &repository.InstructorListFilters{
		Department: strings.TrimSpace(req.Department),
		Keyword:    strings.TrimSpace(req.Keyword),
	}
	instructors, total, err := s.repo.Instructor.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教师失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.InstructorResponse, 0, len(instructors))
	for i := range instructors {
		result = append(result, toInstructorResponse(&instructors[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *instructorService) Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateInstructorRequest) (*dto.InstructorResponse, error) {
	instructor, err := s.repo.Instructor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInstructorNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceInstructor, OwnerID: instructor.UserID}); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		instructor.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.Department != nil {
		instructor.Department = strings.TrimSpace(*req.Department)
	}
	if req.OfficeLocation != nil {
		instructor.OfficeLocation = req.OfficeLocation
	}
	instructor.UpdatedBy = &caller.UserID

	if err := s.repo.Instructor.Update(ctx, instructor); err != nil {
		s.logger.Error("更新教师档案失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toInstructorResponse(instructor)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *instructorService) Delete(ctx context.Context, caller authz.Subject, id string) error {
	instructor, err := s.repo.Instructor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInstructorNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if _, err := authorize(caller, authz.ActionDelete, authz.Target{Resource: authz.ResourceInstructor, OwnerID: instructor.UserID}); err != nil {
		return err
	}

	courses, err := s.repo.Course.CountByInstructor(ctx, id)
	if err != nil {
		s.logger.Error("统计授课课程失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if courses > 0 {
		return ErrInstructorHasCourses
	}

	if err := s.repo.Instructor.Delete(ctx, id, caller.UserID); err != nil {
		s.logger.Error("删除教师档案失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
