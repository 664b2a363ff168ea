package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNoDatabase 未绑定数据库且未设置事务执行器
var ErrNoDatabase = errors.New("repository: 未绑定数据库")

// TxFunc 事务执行器，fn 收到的 Repository 上的所有操作属于同一事务
type TxFunc func(ctx context.Context, fn func(txRepo *Repository) error) error

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db     *gorm.DB
	txFunc TxFunc

	User       UserRepository
	Student    StudentRepository
	Instructor InstructorRepository
	Course     CourseRepository
	Enrollment EnrollmentRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:         db,
		User:       NewUserRepo(db),
		Student:    NewStudentRepo(db),
		Instructor: NewInstructorRepo(db),
		Course:     NewCourseRepo(db),
		Enrollment: NewEnrollmentRepo(db),
	}
}

// BeginTx 开启事务，调用方负责 Commit / Rollback
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	tx := r.db.WithContext(ctx).Begin()
	return tx, tx.Error
}

// WithTx 返回绑定到指定事务的 Repository 副本
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{
		db:         tx,
		User:       NewUserRepo(tx),
		Student:    NewStudentRepo(tx),
		Instructor: NewInstructorRepo(tx),
		Course:     NewCourseRepo(tx),
		Enrollment: NewEnrollmentRepo(tx),
	}
}

// SetTxFunc 替换事务执行器，子 Repository 不基于 gorm 时由其提供隔离语义
func (r *Repository) SetTxFunc(f TxFunc) {
	r.txFunc = f
}

// Transaction 在单个事务内执行 fn，fn 返回错误时整体回滚
// 行锁与唯一索引的并发语义见 integration_test.go
func (r *Repository) Transaction(ctx context.Context, fn func(txRepo *Repository) error) error {
	if r.txFunc != nil {
		return r.txFunc(ctx, fn)
	}
	if r.db == nil {
		return ErrNoDatabase
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}
