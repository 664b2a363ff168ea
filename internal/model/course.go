package model

// 课程状态
const (
	CourseStatusActive    = "active"
	CourseStatusInactive  = "inactive"
	CourseStatusCompleted = "completed"
)

// Course 课程 — 对应 courses
// 仅 active 状态接受选课；Capacity 不得低于当前在读人数
type Course struct {
	CourseID     string  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"course_id"`
	Code         string  `gorm:"type:varchar(20);not null"                      json:"code"`
	Title        string  `gorm:"type:varchar(200);not null"                     json:"title"`
	Description  *string `gorm:"type:text"                                      json:"description,omitempty"`
	Credits      int     `gorm:"not null"                                       json:"credits"`
	Capacity     int     `gorm:"not null"                                       json:"capacity"`
	InstructorID *string `gorm:"type:uuid"                                      json:"instructor_id,omitempty"`
	Status       string  `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	SoftDeleteModel

	// 关联
	Instructor *Instructor `gorm:"foreignKey:InstructorID;references:InstructorID" json:"instructor,omitempty"`
}

// TableName 指定表名
func (Course) TableName() string { return "courses" }

// InstructorUserID 授课教师的 user_id，用于授权判定
// 未指派、未预加载或教师已停用时为空，停用教师不再持有课程相关权限
func (c *Course) InstructorUserID() string {
	if c.Instructor == nil || !c.Instructor.IsActive {
		return ""
	}
	return c.Instructor.UserID
}
