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
	"github.com/izeinnn/University-management-system/internal/repository"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

// ── 用户模块业务错误 ──

var (
	ErrUserSelfRoleChange = fmt.Errorf("%w: 不能修改自己的角色", pkgerrors.ErrForbidden)
	ErrUserSelfDeactivate = fmt.Errorf("%w: 不能停用自己的账号", pkgerrors.ErrForbidden)
	ErrRoleHasProfile     = fmt.Errorf("%w: 用户已关联其他角色的档案，无法变更角色", pkgerrors.ErrConflict)
)

// UserService 用户业务接口
type UserService interface {
	GetByID(ctx context.Context, caller authz.Subject, id string) (*dto.UserResponse, error)
	List(ctx context.Context, caller authz.Subject, req *dto.UserListRequest) ([]dto.UserResponse, int64, error)
	Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error)
	AssignRole(ctx context.Context, caller authz.Subject, id string, req *dto.AssignRoleRequest) (*dto.UserResponse, error)
	// UpdateStatus 启停账号，同一事务内同步学生/教师档案状态
	UpdateStatus(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateUserStatusRequest) (*dto.UserResponse, error)
}

type userService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewUserService 创建 UserService 实例
func NewUserService(repo *repository.Repository, logger *zap.Logger) UserService {
	return &userService{repo: repo, logger: logger}
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, caller authz.Subject, id string) (*dto.UserResponse, error) {
	if _, err := authorize(caller, authz.ActionRead, authz.Target{Resource: authz.ResourceAccount, OwnerID: id}); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, caller authz.Subject, req *dto.UserListRequest) ([]dto.UserResponse, int64, error) {
	if _, err := authorize(caller, authz.ActionList, authz.Target{Resource: authz.ResourceAccount}); err != nil {
		return nil, 0, err
	}

	filters := &repository.UserListFilters{
		Role:     req.Role,
		IsActive: req.IsActive,
		Keyword:  strings.TrimSpace(req.Keyword),
	}
	users, total, err := s.repo.User.List(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出用户失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		result = append(result, toUserResponse(&users[i]))
	}
	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *userService) Update(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateUserRequest) (*dto.UserResponse, error) {
	if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceAccount, OwnerID: id}); err != nil {
		return nil, err
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if req.Phone != nil {
		user.Phone = req.Phone
	}
	user.UpdatedBy = &caller.UserID

	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("更新用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── AssignRole ──────────────────────

func (s *userService) AssignRole(ctx context.Context, caller authz.Subject, id string, req *dto.AssignRoleRequest) (*dto.UserResponse, error) {
	// 不带 OwnerID：本人规则不适用，只有管理员能通过
	if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceAccount}); err != nil {
		return nil, err
	}
	if caller.UserID == id {
		return nil, ErrUserSelfRoleChange
	}

	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	if user.Role == req.Role {
		resp := toUserResponse(user)
		return &resp, nil
	}

	// 档案与角色必须一致
	if user.Role == authz.RoleStudent {
		if _, err := s.repo.Student.GetByUserID(ctx, id); err == nil {
			return nil, ErrRoleHasProfile
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}
	if user.Role == authz.RoleInstructor {
		if _, err := s.repo.Instructor.GetByUserID(ctx, id); err == nil {
			return nil, ErrRoleHasProfile
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	user.Role = req.Role
	user.UpdatedBy = &caller.UserID
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.logger.Error("分配角色失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("用户角色已变更", zap.String("user_id", id), zap.String("role", req.Role), zap.String("operator", caller.UserID))

	resp := toUserResponse(user)
	return &resp, nil
}

// ────────────────────── UpdateStatus ──────────────────────

func (s *userService) UpdateStatus(ctx context.Context, caller authz.Subject, id string, req *dto.UpdateUserStatusRequest) (*dto.UserResponse, error) {
	if _, err := authorize(caller, authz.ActionUpdate, authz.Target{Resource: authz.ResourceAccount}); err != nil {
		return nil, err
	}
	active := *req.IsActive
	if caller.UserID == id && !active {
		return nil, ErrUserSelfDeactivate
	}

	var result *dto.UserResponse
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		user, err := tx.User.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		user.IsActive = active
		user.UpdatedBy = &caller.UserID
		if err := tx.User.Update(ctx, user); err != nil {
			return err
		}
		if err := tx.Student.SetActiveByUser(ctx, id, active); err != nil {
			return err
		}
		if err := tx.Instructor.SetActiveByUser(ctx, id, active); err != nil {
			return err
		}

		resp := toUserResponse(user)
		result = &resp
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			s.logger.Error("更新账号状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("账号状态已变更", zap.String("user_id", id), zap.Bool("is_active", active), zap.String("operator", caller.UserID))
	return result, nil
}
