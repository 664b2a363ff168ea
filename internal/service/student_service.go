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

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound             = fmt.Errorf("%w: 学生不存在", pkgerrors.ErrNotFound)
	ErrStudentNumberExists         = fmt.Errorf("%w: 学号已存在", pkgerrors.ErrConflict)
	ErrProfileExists               = fmt.Errorf("%w: 该用户已有档案", pkgerrors.ErrConflict)
	ErrRoleMismatch                = fmt.Errorf("%w: 用户角色与档案类型不符", pkgerrors.ErrValidation)
	ErrStudentHasActiveEnrollments = fmt.Errorf("%w: 学生仍有在读课程，无法删除", pkgerrors.ErrConflict)
)

// StudentService 学生档案业务接口
type StudentService interface {
	Create(ctx context.Context, caller authz.Subject, req *dto.CreateStudentRequest) (*dto.StudentResponse, error)
	Get(ctx context.Context, caller authz.Subject, id string) (*dto.StudentResponse, error)
	// GetMine 调用者本人的学生档案
	GetMine(ctx context.Context, caller authz.Subject) (*dto.StudentResponse, error)
	List(ctx context.Context, caller authz.Subject, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error)
	Delete(ctx context.Context, caller authz.Subject, id string) error
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, caller authz.Subject, req *dto.CreateStudentRequest) (*dto.StudentResponse, error) {
	if _, err := authorize(caller, authz.ActionCreate, authz.Target{Resource: authz.ResourceStudent, OwnerID: req.UserID}); err != nil {
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
	if user.Role != authz.RoleStudent {
		return nil, ErrRoleMismatch
	}

	if _, err := s.repo.Student.GetByUserID(ctx, req.UserID); err == nil {
		return nil, ErrProfileExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	number := strings.TrimSpace(req.StudentNumber)
	if _, err := s.repo.Student.GetByNumber(ctx, number); err == nil {
		return nil, ErrStudentNumberExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	dob, err := parseOptionalDate(req.DateOfBirth)
	if err != nil {
		return nil, err
	}
	enrollmentDate := today()
	if req.EnrollmentDate != nil {
		if enrollmentDate, err = parseDate(*req.EnrollmentDate); err != nil {
			return nil, err
		}
	}

	student := &model.Student{
		UserID:           req.UserID,
		StudentNumber:    number,
		FullName:         strings.TrimSpace(req.FullName),
		DateOfBirth:      dob,
		Gender:           req.Gender,
		Phone:            req.Phone,
		Address:          req.Address,
		EmergencyContact: req.EmergencyContact,
		EnrollmentDate:   enrollmentDate,
		IsActive:         user.IsActive,
	}
	student.CreatedBy = &caller.UserID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, s.duplicateCause(ctx, req.UserID)
		}
		s.logger.Error("创建学生档案失败", zap.Error(err))
		return nil, err
	}
	student.User = user

	resp := toStudentResponse(student)
	return &resp, nil
}

// duplicateCause 唯一索引冲突时区分是用户已有档案还是学号重复
func (s *studentService) duplicateCause(ctx context.Context, userID string) error {
	if _, err := s.repo.Student.GetByUserID(ctx, userID); err == nil {
		return ErrProfileExists
	}
	return ErrStudentNumberExists
}

// ────────────────────── Get ──────────────────────

func (s *studentService) Get(ctx context.Context, caller authz.Subject, id string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceStudent, OwnerID: student.UserID}); err != nil {
		return nil, err
	}

	resp := toStudentResponse(student)
	return &resp, nil
}

func (s *studentService) GetMine(ctx context.Context, caller authz.Subject) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByUserID(ctx, caller.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceStudent, OwnerID: student.UserID}); err != nil {
		return nil, err
	}

	resp := toStudentResponse(student)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context, caller authz.Subject, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	if _, err := authorize(caller, authz.ActionList, authz.Target{Resource: authz.ResourceStudent}); err != nil {
		return nil, 0, err
	}

	filters := &repository.StudentListFilters{
		Keyword:  strings.TrimSpace(req.Keyword),
		IsActive: req.IsActive,
	}
	students, total, err := s.repo.Student.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, toStudentResponse(&students[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *studentService) Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateStudentRequest) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceStudent, OwnerID: student.UserID}); err != nil {
		return nil, err
	}

	if req.FullName != nil {
		student.FullName = strings.TrimSpace(*req.FullName)
	}
	if req.DateOfBirth != nil {
		dob, err := parseOptionalDate(req.DateOfBirth)
		if err != nil {
			return nil, err
		}
		student.DateOfBirth = dob
	}
	if req.Gender != nil {
		student.Gender = req.Gender
	}
	if req.Phone != nil {
		student.Phone = req.Phone
	}
	if req.Address != nil {
		student.Address = req.Address
	}
	if req.EmergencyContact != nil {
		student.EmergencyContact = req.EmergencyContact
	}
	student.UpdatedBy = &caller.UserID

	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("更新学生档案失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toStudentResponse(student)
	return &resp, nil
}

// ────────────────────── Delete ──────────────────────

func (s *studentService) Delete(ctx context.Context, caller authz.Subject, id string) error {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if _, err := authorize(caller, authz.ActionDelete, authz.Target{Resource: authz.ResourceStudent, OwnerID: student.UserID}); err != nil {
		return err
	}

	active, err := s.repo.Enrollment.CountActiveByStudent(ctx, id)
	if err != nil {
		s.logger.Error("统计在读课程失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if active > 0 {
		return ErrStudentHasActiveEnrollments
	}

	if err := s.repo.Student.Delete(ctx, id, caller.UserID); err != nil {
		s.logger.Error("删除学生档案失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
