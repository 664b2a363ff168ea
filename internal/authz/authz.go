// Package authz 纯函数式权限判定：不做任何 I/O，
// 调用方负责查出归属关系（OwnerID / InstructorID）后传入。
package authz

// 角色
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

// Resource 受保护的实体类型
type Resource string

const (
	ResourceAccount    Resource = "account"
	ResourceStudent    Resource = "student"
	ResourceInstructor Resource = "instructor"
	ResourceCourse     Resource = "course"
	ResourceEnrollment Resource = "enrollment"
)

// Action 对实体执行的操作
type Action string

const (
	ActionRegister Action = "register"
	ActionLogin    Action = "login"
	ActionRead     Action = "read"
	ActionList     Action = "list"
	ActionCreate   Action = "create"
	ActionUpdate   Action = "update"
	ActionGrade    Action = "grade"
	ActionDelete   Action = "delete"
)

// Scope 列表类操作的可见范围
type Scope int

const (
	ScopeNone         Scope = iota
	ScopeAll                // 不限
	ScopeOwn                // 仅本人记录
	ScopeOwnedCourses       // 仅本人授课课程下的记录
)

func (s Scope) String() string {
	switch s {
	case ScopeAll:
		return "all"
	case ScopeOwn:
		return "own"
	case ScopeOwnedCourses:
		return "owned_courses"
	default:
		return "none"
	}
}

// Subject 发起请求的身份，匿名请求 Role 为空
type Subject struct {
	UserID string
	Role   string
}

// Target 被操作对象及其归属
//   - OwnerID: 拥有该对象的 user_id（账号本身、档案所属用户、选课记录所属学生的用户）
//   - InstructorID: 相关课程授课教师的 user_id（课程、选课记录）
type Target struct {
	Resource     Resource
	OwnerID      string
	InstructorID string
}

// Decision 判定结果，Rule 为命中的规则名，便于日志排查
type Decision struct {
	Allowed bool
	Scope   Scope
	Rule    string
}

func allow(scope Scope, rule string) Decision {
	return Decision{Allowed: true, Scope: scope, Rule: rule}
}

var deny = Decision{Scope: ScopeNone, Rule: "deny"}

// Evaluate 按 admin → 角色规则 → 本人规则 → 拒绝 的顺序判定，首个命中即返回
func Evaluate(sub Subject, act Action, tgt Target) Decision {
	if act == ActionRegister || act == ActionLogin {
		if tgt.Resource == ResourceAccount {
			return allow(ScopeAll, "public")
		}
		return deny
	}
	if sub.Role == "" || sub.UserID == "" {
		return deny
	}

	if sub.Role == RoleAdmin {
		return allow(ScopeAll, "admin")
	}

	var d Decision
	switch sub.Role {
	case RoleInstructor:
		d = instructorRules(sub, act, tgt)
	case RoleStudent:
		d = studentRules(sub, act, tgt)
	default:
		return deny
	}
	if d.Allowed {
		return d
	}

	if tgt.Resource == ResourceAccount && isOwner(sub, tgt) && (act == ActionRead || act == ActionUpdate) {
		return allow(ScopeOwn, "owner.account")
	}
	return deny
}

// Allowed Evaluate 的简写
func Allowed(sub Subject, act Action, tgt Target) bool {
	return Evaluate(sub, act, tgt).Allowed
}

func isOwner(sub Subject, tgt Target) bool {
	return tgt.OwnerID != "" && tgt.OwnerID == sub.UserID
}

func teaches(sub Subject, tgt Target) bool {
	return tgt.InstructorID != "" && tgt.InstructorID == sub.UserID
}

// ── 教师 ──

func instructorRules(sub Subject, act Action, tgt Target) Decision {
	switch tgt.Resource {
	case ResourceStudent, ResourceCourse:
		if act == ActionRead || act == ActionList {
			return allow(ScopeAll, "instructor.catalog")
		}
		if tgt.Resource == ResourceCourse && act == ActionUpdate && teaches(sub, tgt) {
			return allow(ScopeOwnedCourses, "instructor.own-course")
		}
	case ResourceInstructor:
		if act == ActionRead || act == ActionList {
			return allow(ScopeAll, "instructor.catalog")
		}
		if act == ActionUpdate && isOwner(sub, tgt) {
			return allow(ScopeOwn, "instructor.own-profile")
		}
	case ResourceEnrollment:
		switch act {
		case ActionList:
			return allow(ScopeOwnedCourses, "instructor.course-enrollments")
		case ActionRead, ActionCreate, ActionUpdate, ActionGrade:
			if teaches(sub, tgt) {
				return allow(ScopeOwnedCourses, "instructor.course-enrollments")
			}
		}
	}
	return deny
}

// ── 学生 ──

func studentRules(sub Subject, act Action, tgt Target) Decision {
	switch tgt.Resource {
	case ResourceCourse:
		if act == ActionRead || act == ActionList {
			return allow(ScopeAll, "student.catalog")
		}
	case ResourceStudent:
		if (act == ActionRead || act == ActionCreate || act == ActionUpdate) && isOwner(sub, tgt) {
			return allow(ScopeOwn, "student.own-profile")
		}
	case ResourceEnrollment:
		switch act {
		case ActionList:
			return allow(ScopeOwn, "student.own-enrollments")
		case ActionRead, ActionCreate, ActionUpdate:
			if isOwner(sub, tgt) {
				return allow(ScopeOwn, "student.own-enrollments")
			}
		}
	}
	return deny
}
