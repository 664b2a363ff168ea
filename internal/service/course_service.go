package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ── 课程模块业务错误 ──

var (
	ErrCourseNotFound              = fmt.Errorf("%w: 课程不存在", pkgerrors.ErrNotFound)
	ErrCourseCodeExists            = fmt.Errorf("%w: 课程代码已存在", pkgerrors.ErrConflict)
	ErrInvalidInstructor           = fmt.Errorf("%w: 授课教师不存在或已停用", pkgerrors.ErrValidation)
	ErrCapacityBelowEnrolled       = fmt.Errorf("%w: 容量不能低于当前在读人数", pkgerrors.ErrConflict)
	ErrCourseHasActiveEnrollments  = fmt.Errorf("%w: 课程仍有在读学生，如需删除请使用 force=true", pkgerrors.ErrConflict)
	ErrInstructorReassignForbidden = fmt.Errorf("%w: 仅管理员可更换授课教师", pkgerrors.ErrForbidden)
)

// CourseService 课程业务接口
type CourseService interface {
	Create(ctx context.Context, caller authz.Subject, req *dto.CreateCourseRequest) (*dto.CourseResponse, error)
	Get(ctx context.Context, caller authz.Subject, id string) (*dto.CourseResponse, error)
	List(ctx context.Context, caller authz.Subject, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error)
	Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error)
	// Delete 有在读学生时需 force=true，此时在同一事务内将其全部置为 dropped
	Delete(ctx context.Context, caller authz.Subject, id string, force bool) error
}

type courseService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewCourseService 创建 CourseService 实例
func NewCourseService(repo *repository.Repository, logger *zap.Logger) CourseService {
	return &courseService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// activeInstructor 校验 instructor_id 指向在职教师
func activeInstructor(ctx context.Context, repo *repository.Repository, id string) (*model.Instructor, error) {
	instructor, err := repo.Instructor.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInstructor
		}
		return nil, err
	}
	if !instructor.IsActive {
		return nil, ErrInvalidInstructor
	}
	return instructor, nil
}

func sameInstructor(current *string, requested string) bool {
	if current == nil {
		return requested == ""
	}
	return *current == requested
}

// ────────────────────── Create ──────────────────────

func (s *courseService) Create(ctx context.Context, caller authz.Subject, req *dto.CreateCourseRequest) (*dto.CourseResponse, error) {
	if _, err := authorize(caller, authz.ActionCreate, authz.Target{Resource: authz.ResourceCourse}); err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	if _, err := s.repo.Course.GetByCode(ctx, code); err == nil {
		return nil, ErrCourseCodeExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, err
	}

	var instructor *model.Instructor
	if req.InstructorID != nil && *req.InstructorID != "" {
		var err error
		if instructor, err = activeInstructor(ctx, s.repo, *req.InstructorID); err != nil {
			return nil, err
		}
	}

	status := req.Status
	if status == "" {
		status = model.CourseStatusActive
	}

	course := &model.Course{
		Code:        code,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Credits:     req.Credits,
		Capacity:    req.Capacity,
		Status:      status,
	}
	if instructor != nil {
		course.InstructorID = &instructor.InstructorID
	}
	course.CreatedBy = &caller.UserID

	if err := s.repo.Course.Create(ctx, course); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrCourseCodeExists
		}
		s.logger.Error("创建课程失败", zap.Error(err))
		return nil, err
	}
	course.Instructor = instructor

	resp := toCourseResponse(course, 0)
	return &resp, nil
}

// ────────────────────── Get ──────────────────────

func (s *courseService) Get(ctx context.Context, caller authz.Subject, id string) (*dto.CourseResponse, error) {
	course, err := s.repo.Course.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceCourse, InstructorID: course.InstructorUserID()}); err != nil {
		return nil, err
	}

	enrolled, err := s.repo.Enrollment.CountActiveByCourse(ctx, id)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toCourseResponse(course, enrolled)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *courseService) List(ctx context.Context, caller authz.Subject, req *dto.CourseListRequest) ([]dto.CourseResponse, int64, error) {
	if _, err := authorize(caller, authz.ActionList, authz.Target{Resource: authz.ResourceCourse}); err != nil {
		return nil, 0, err
	}

	filters := &repository.CourseListFilters{
		Status:       req.Status,
		InstructorID: req.InstructorID,
		Keyword:      strings.TrimSpace(req.Keyword),
	}
	courses, total, err := s.repo.Course.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出课程失败", zap.Error(err))
		return nil, 0, err
	}

	ids := make([]string, 0, len(courses))
	for _, c := range courses {
		ids = append(ids, c.CourseID)
	}
	counts, err := s.repo.Enrollment.CountActiveByCourses(ctx, ids)
	if err != nil {
		s.logger.Error("统计选课人数失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseResponse, 0, len(courses))
	for i := range courses {
		result = append(result, toCourseResponse(&courses[i], counts[courses[i].CourseID]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *courseService) Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateCourseRequest) (*dto.CourseResponse, error) {
	var result *dto.CourseResponse

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		course, err := tx.Course.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}

		if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceCourse, InstructorID: course.InstructorUserID()}); err != nil {
			return err
		}

		// 更换授课教师，空字符串表示取消指派
		if req.InstructorID != nil && !sameInstructor(course.InstructorID, *req.InstructorID) {
			if caller.Role != authz.RoleAdmin {
				return ErrInstructorReassignForbidden
			}
			if *req.InstructorID == "" {
				course.InstructorID = nil
				course.Instructor = nil
			} else {
				instructor, err := activeInstructor(ctx, tx, *req.InstructorID)
				if err != nil {
					return err
				}
				course.InstructorID = &instructor.InstructorID
				course.Instructor = instructor
			}
		}

		enrolled, err := tx.Enrollment.CountActiveByCourse(ctx, id)
		if err != nil {
			return err
		}
		if req.Capacity != nil {
			if int64(*req.Capacity) < enrolled {
				return ErrCapacityBelowEnrolled
			}
			course.Capacity = *req.Capacity
		}

		if req.Title != nil {
			course.Title = strings.TrimSpace(*req.Title)
		}
		if req.Description != nil {
			course.Description = req.Description
		}
		if req.Credits != nil {
			course.Credits = *req.Credits
		}
		if req.Status != nil {
			course.Status = *req.Status
		}
		course.UpdatedBy = &caller.UserID

		if err := tx.Course.Update(ctx, course); err != nil {
			return err
		}

		resp := toCourseResponse(course, enrolled)
		result = &resp
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("更新课程失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

// ────────────────────── Delete ──────────────────────

func (s *courseService) Delete(ctx context.Context, caller authz.Subject, id string, force bool) error {
	if _, err := authorize(caller, authz.ActionDelete, authz.Target{Resource: authz.ResourceCourse}); err != nil {
		return err
	}

	var dropped int64
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if _, err := tx.Course.GetByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}

		enrolled, err := tx.Enrollment.CountActiveByCourse(ctx, id)
		if err != nil {
			return err
		}
		if enrolled > 0 {
			if !force {
				return ErrCourseHasActiveEnrollments
			}
			if dropped, err = tx.Enrollment.DropActiveByCourse(ctx, id, caller.UserID, s.now()); err != nil {
				return err
			}
		}

		return tx.Course.Delete(ctx, id, caller.UserID)
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("删除课程失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("课程已删除", zap.String("course_id", id), zap.Bool("force", force), zap.Int64("dropped", dropped))
	return nil
}
