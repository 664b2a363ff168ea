package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	"github.com/izeinnn/University-management-system/internal/repository"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ── 选课模块业务错误 ──

var (
	ErrEnrollmentNotFound = fmt.Errorf("%w: 选课记录不存在", pkgerrors.ErrNotFound)
	ErrAlreadyEnrolled    = fmt.Errorf("%w: 已选修该课程", pkgerrors.ErrConflict)
	ErrCourseFull         = fmt.Errorf("%w: 课程人数已满", pkgerrors.ErrConflict)
	ErrCourseNotOpen      = fmt.Errorf("%w: 课程当前不接受选课", pkgerrors.ErrConflict)
	ErrStudentInactive    = fmt.Errorf("%w: 学生档案已停用", pkgerrors.ErrConflict)
	ErrInvalidTransition  = fmt.Errorf("%w: 不允许的选课状态变更", pkgerrors.ErrValidation)
	ErrGradeRequired      = fmt.Errorf("%w: 结课时必须给出成绩", pkgerrors.ErrValidation)
	ErrGradeNotAllowed    = fmt.Errorf("%w: 仅在结课时可以登记成绩", pkgerrors.ErrValidation)
	ErrStudentIDRequired  = fmt.Errorf("%w: student_id 不能为空", pkgerrors.ErrValidation)
)

// EnrollmentService 选课业务接口
type EnrollmentService interface {
	// Enroll 选课：锁定课程行后在同一事务内完成重复与容量校验并写入
	Enroll(ctx context.Context, caller authz.Subject, req *dto.CreateEnrollmentRequest) (*dto.EnrollmentResponse, error)
	Get(ctx context.Context, caller authz.Subject, id string) (*dto.EnrollmentResponse, error)
	// List 按调用者可见范围过滤后查询
	List(ctx context.Context, caller authz.Subject, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, int64, error)
	// UpdateStatus active → dropped / active → completed(+grade)
	UpdateStatus(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateEnrollmentRequest) (*dto.EnrollmentResponse, error)
	Delete(ctx context.Context, caller authz.Subject, id string) error
}

type enrollmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
	now    func() time.Time
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ════════════════════════════════════════════════════════════
// Enroll
// ════════════════════════════════════════════════════════════
//
// 事务内步骤：
//   1. SELECT ... FOR UPDATE 锁定课程行，串行化同一课程的并发选课
//   2. 权限判定（学生本人 / 授课教师 / 管理员）
//   3. 学生与课程状态校验
//   4. 未退课记录存在 → ErrAlreadyEnrolled（含 completed）
//   5. 在读人数 >= 容量 → ErrCourseFull
//   6. 写入；部分唯一索引冲突同样视为 ErrAlreadyEnrolled

func (s *enrollmentService) Enroll(ctx context.Context, caller authz.Subject, req *dto.CreateEnrollmentRequest) (*dto.EnrollmentResponse, error) {
	student, err := s.resolveStudent(ctx, caller, req.StudentID)
	if err != nil {
		return nil, err
	}

	var result *dto.EnrollmentResponse
	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		course, err := tx.Course.GetByIDForUpdate(ctx, req.CourseID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return err
		}

		tgt := authz.Target{
			Resource:     authz.ResourceEnrollment,
			OwnerID:      student.UserID,
			InstructorID: course.InstructorUserID(),
		}
		if _, err := authorize(caller, authz.ActionCreate, tgt); err != nil {
			return err
		}

		if !student.IsActive {
			return ErrStudentInactive
		}
		if course.Status != model.CourseStatusActive {
			return ErrCourseNotOpen
		}

		if _, err := tx.Enrollment.FindOpen(ctx, student.StudentID, course.CourseID); err == nil {
			return ErrAlreadyEnrolled
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		enrolled, err := tx.Enrollment.CountActiveByCourse(ctx, course.CourseID)
		if err != nil {
			return err
		}
		if enrolled >= int64(course.Capacity) {
			return ErrCourseFull
		}

		enrollment := &model.Enrollment{
			StudentID:  student.StudentID,
			CourseID:   course.CourseID,
			Status:     model.EnrollmentStatusActive,
			EnrolledAt: s.now(),
		}
		enrollment.Version = 1
		enrollment.CreatedBy = &caller.UserID

		if err := tx.Enrollment.Create(ctx, enrollment); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyEnrolled
			}
			return err
		}

		enrollment.Student = student
		enrollment.Course = course
		resp := toEnrollmentResponse(enrollment)
		result = &resp
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("选课失败",
				zap.String("student_id", student.StudentID),
				zap.String("course_id", req.CourseID),
				zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("选课成功",
		zap.String("enrollment_id", result.ID),
		zap.String("student_id", student.StudentID),
		zap.String("course_id", req.CourseID))
	return result, nil
}

// resolveStudent 未指定 student_id 时，学生调用者默认使用本人档案
func (s *enrollmentService) resolveStudent(ctx context.Context, caller authz.Subject, studentID string) (*model.Student, error) {
	var (
		student *model.Student
		err     error
	)
	switch {
	case studentID != "":
		student, err = s.repo.Student.GetByID(ctx, studentID)
	case caller.Role == authz.RoleStudent:
		student, err = s.repo.Student.GetByUserID(ctx, caller.UserID)
	default:
		return nil, ErrStudentIDRequired
	}
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}
	return student, nil
}

// ────────────────────── Get ──────────────────────

func (s *enrollmentService) Get(ctx context.Context, caller authz.Subject, id string) (*dto.EnrollmentResponse, error) {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if _, err := authorize(caller, authz.ActionRead, enrollmentTarget(enrollment)); err != nil {
		return nil, err
	}

	resp := toEnrollmentResponse(enrollment)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *enrollmentService) List(ctx context.Context, caller authz.Subject, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, int64, error) {
	decision, err := authorize(caller, authz.ActionList, authz.Target{Resource: authz.ResourceEnrollment})
	if err != nil {
		return nil, 0, err
	}

	filters := &repository.EnrollmentListFilters{
		StudentID: req.StudentID,
		CourseID:  req.CourseID,
		Status:    req.Status,
	}

	// 可见范围在查询前收敛
	switch decision.Scope {
	case authz.ScopeAll:
	case authz.ScopeOwn:
		student, err := s.repo.Student.GetByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []dto.EnrollmentResponse{}, 0, nil
			}
			s.logger.Error("查询学生失败", zap.Error(err))
			return nil, 0, err
		}
		if req.StudentID != "" && req.StudentID != student.StudentID {
			return []dto.EnrollmentResponse{}, 0, nil
		}
		filters.StudentID = student.StudentID
	case authz.ScopeOwnedCourses:
		instructor, err := s.repo.Instructor.GetByUserID(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return []dto.EnrollmentResponse{}, 0, nil
			}
			s.logger.Error("查询教师失败", zap.Error(err))
			return nil, 0, err
		}
		filters.InstructorID = instructor.InstructorID
	default:
		return nil, 0, ErrNoPermission
	}

	enrollments, total, err := s.repo.Enrollment.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出选课记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		result = append(result, toEnrollmentResponse(&enrollments[i]))
	}
	return result, total, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *enrollmentService) UpdateStatus(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateEnrollmentRequest) (*dto.EnrollmentResponse, error) {
	var result *dto.EnrollmentResponse

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		enrollment, err := tx.Enrollment.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEnrollmentNotFound
			}
			return err
		}

		// 结课与登记成绩使用 grade 权限，退课使用 update 权限
		act := authz.ActionUpdate
		if req.Status == model.EnrollmentStatusCompleted || req.Grade != nil {
			act = authz.ActionGrade
		}
		if _, err := authorize(caller, act, enrollmentTarget(enrollment)); err != nil {
			return err
		}

		if err := applyTransition(enrollment, req, s.now()); err != nil {
			return err
		}
		enrollment.UpdatedBy = &caller.UserID

		if err := tx.Enrollment.Update(ctx, enrollment); err != nil {
			return err
		}

		resp := toEnrollmentResponse(enrollment)
		result = &resp
		return nil
	})
	if err != nil {
		if !isBusinessError(err) {
			s.logger.Error("更新选课状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}
	return result, nil
}

// applyTransition 仅允许 active → dropped、active → completed
func applyTransition(e *model.Enrollment, req *dto.UpdateEnrollmentRequest, now time.Time) error {
	if req.Grade != nil && req.Status != model.EnrollmentStatusCompleted {
		return ErrGradeNotAllowed
	}
	if e.Status != model.EnrollmentStatusActive {
		return ErrInvalidTransition
	}

	switch req.Status {
	case model.EnrollmentStatusDropped:
		e.Status = model.EnrollmentStatusDropped
		e.DroppedAt = &now
	case model.EnrollmentStatusCompleted:
		if req.Grade == nil || *req.Grade == "" {
			return ErrGradeRequired
		}
		grade := *req.Grade
		e.Status = model.EnrollmentStatusCompleted
		e.Grade = &grade
		e.CompletedAt = &now
	default:
		return ErrInvalidTransition
	}
	return nil
}

// ────────────────────── Delete ──────────────────────

func (s *enrollmentService) Delete(ctx context.Context, caller authz.Subject, id string) error {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrEnrollmentNotFound
		}
		s.logger.Error("查询选课记录失败", zap.String("id", id), zap.Error(err))
		return err
	}

	if _, err := authorize(caller, authz.ActionDelete, enrollmentTarget(enrollment)); err != nil {
		return err
	}

	if err := s.repo.Enrollment.Delete(ctx, id, caller.UserID); err != nil {
		s.logger.Error("删除选课记录失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}
