// Package errors 定义跨模块的错误分类。
// 各业务模块的哨兵错误通过 fmt.Errorf("%w: ...", Kind) 归入其中一类，
// Handler 层据此映射 HTTP 状态码。
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthenticated 缺少、无效或过期的身份凭证
	ErrUnauthenticated = errors.New("未认证")
	// ErrForbidden 身份有效但操作被拒绝
	ErrForbidden = errors.New("无权操作")
	// ErrValidation 输入格式错误或违反约束
	ErrValidation = errors.New("参数校验失败")
	// ErrNotFound 引用的实体不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrConflict 与现有数据冲突（重复、容量已满等）
	ErrConflict = errors.New("数据冲突")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = fmt.Errorf("%w: 数据已被其他操作修改，请刷新后重试", ErrConflict)
