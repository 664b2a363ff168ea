package service

import (
	"errors"
	"testing"

	"github.com/izeinnn/University-management-system/internal/dto"
	"github.com/izeinnn/University-management-system/internal/model"
	pkgerrors "github.com/izeinnn/University-management-system/pkg/errors"
)

func TestCourseCreate(t *testing.T) {
	env := newTestEnv(t)
	john, profile := env.addInstructor("EMP001")
	alice, _ := env.addStudent("STU001")

	req := &dto.CreateCourseRequest{
		Code:         "CS101",
		Title:        "Introduction to Computer Science",
		Credits:      3,
		Capacity:     30,
		InstructorID: &profile.InstructorID,
	}

	if _, err := env.svc.Course.Create(env.ctx, john, req); !errors.Is(err, ErrNoPermission) {
		t.Errorf("教师不能创建课程，实际: %v", err)
	}
	if _, err := env.svc.Course.Create(env.ctx, alice, req); !errors.Is(err, ErrNoPermission) {
		t.Errorf("学生不能创建课程，实际: %v", err)
	}

	resp, err := env.svc.Course.Create(env.ctx, env.admin, req)
	if err != nil {
		t.Fatalf("管理员创建课程应成功: %v", err)
	}
	if resp.Status != model.CourseStatusActive {
		t.Errorf("默认状态应为 active，实际=%s", resp.Status)
	}
	if resp.Instructor == nil || resp.Instructor.ID != profile.InstructorID {
		t.Error("响应应带出授课教师")
	}
	if resp.EnrolledCount != 0 {
		t.Errorf("新课程在读人数应为 0，实际=%d", resp.EnrolledCount)
	}

	if _, err := env.svc.Course.Create(env.ctx, env.admin, req); !errors.Is(err, ErrCourseCodeExists) {
		t.Errorf("期望 ErrCourseCodeExists，实际: %v", err)
	}
}

func TestCourseCreate_InvalidInstructor(t *testing.T) {
	env := newTestEnv(t)
	_, profile := env.addInstructor("EMP001")
	profile.IsActive = false
	_ = env.repo.Instructor.Update(env.ctx, profile)

	tests := []struct {
		name string
		id   string
	}{
		{"不存在", "missing"},
		{"已停用", profile.InstructorID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := tt.id
			_, err := env.svc.Course.Create(env.ctx, env.admin, &dto.CreateCourseRequest{
				Code: "MATH201", Title: "Calculus II", Credits: 4, Capacity: 25, InstructorID: &id,
			})
			if !errors.Is(err, ErrInvalidInstructor) {
				t.Errorf("期望 ErrInvalidInstructor，实际: %v", err)
			}
			if !errors.Is(err, pkgerrors.ErrValidation) {
				t.Error("无效教师应归类为 Validation")
			}
		})
	}
}

func TestCourseGetAndList_EnrolledCount(t *testing.T) {
	env := newTestEnv(t)
	course := env.addCourse("CS101", 30, nil)
	env.addCourse("CS201", 30, nil)
	alice, _ := env.addStudent("STU001")
	bob, _ := env.addStudent("STU002")

	if _, err := env.svc.Enrollment.Enroll(env.ctx, alice, &dto.CreateEnrollmentRequest{CourseID: course.CourseID}); err != nil {
		t.Fatalf("选课失败: %v", err)
	}
	if _, err := env.svc.Enrollment.Enroll(env.ctx, bob, &dto.CreateEnrollmentRequest{CourseID: course.CourseID}); err != nil {
		t.Fatalf("选课失败: %v", err)
	}

	got, err := env.svc.Course.Get(env.ctx, alice, course.CourseID)
	if err != nil {
		t.Fatalf("学生应能查看课程: %v", err)
	}
	if got.EnrolledCount != 2 {
		t.Errorf("期望在读人数 2，实际=%d", got.EnrolledCount)
	}

	list, total, err := env.svc.Course.List(env.ctx, alice, &dto.CourseListRequest{})
	if err != nil {
		t.Fatalf("列出课程失败: %v", err)
	}
	if total != 2 {
		t.Fatalf("期望 2 门课程，实际=%d", total)
	}
	counts := map[string]int64{}
	for _, c := range list {
		counts[c.Code] = c.EnrolledCount
	}
	if counts["CS101"] != 2 || counts["CS201"] != 0 {
		t.Errorf("列表在读人数不正确: %v", counts)
	}

	if _, err := env.svc.Course.Get(env.ctx, alice, "missing"); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("期望 ErrCourseNotFound，实际: %v", err)
	}
}

func TestCourseUpdate_Permissions(t *testing.T) {
	env := newTestEnv(t)
	john, johnProfile := env.addInstructor("EMP001")
	jane, janeProfile := env.addInstructor("EMP002")
	course := env.addCourse("CS101", 30, johnProfile)

	resp, err := env.svc.Course.Update(env.ctx, john, course.CourseID, &dto.UpdateCourseRequest{Title: strPtr("Intro to CS")})
	if err != nil {
		t.Fatalf("授课教师应能更新课程: %v", err)
	}
	if resp.Title != "Intro to CS" {
		t.Errorf("标题未更新: %s", resp.Title)
	}

	if _, err := env.svc.Course.Update(env.ctx, jane, course.CourseID, &dto.UpdateCourseRequest{Title: strPtr("X")}); !errors.Is(err, ErrNoPermission) {
		t.Errorf("非授课教师更新应返回 ErrNoPermission，实际: %v", err)
	}

	if _, err := env.svc.Course.Update(env.ctx, john, course.CourseID, &dto.UpdateCourseRequest{InstructorID: &janeProfile.InstructorID}); !errors.Is(err, ErrInstructorReassignForbidden) {
		t.Errorf("教师不能更换授课教师，实际: %v", err)
	}

	resp, err = env.svc.Course.Update(env.ctx, env.admin, course.CourseID, &dto.UpdateCourseRequest{InstructorID: &janeProfile.InstructorID})
	if err != nil {
		t.Fatalf("管理员更换授课教师应成功: %v", err)
	}
	if resp.Instructor == nil || resp.Instructor.ID != janeProfile.InstructorID {
		t.Error("授课教师应已更换")
	}

	// 更换后原教师失去权限，新教师获得权限
	if _, err := env.svc.Course.Update(env.ctx, john, course.CourseID, &dto.UpdateCourseRequest{Credits: intPtr(4)}); !errors.Is(err, ErrNoPermission) {
		t.Errorf("原教师应失去权限，实际: %v", err)
	}
	if _, err := env.svc.Course.Update(env.ctx, jane, course.CourseID, &dto.UpdateCourseRequest{Credits: intPtr(4)}); err != nil {
		t.Errorf("新教师应获得权限: %v", err)
	}
}

func TestCourseUpdate_UnassignInstructor(t *testing.T) {
	env := newTestEnv(t)
	john, johnProfile := env.addInstructor("EMP001")
	course := env.addCourse("CS101", 30, johnProfile)
	empty := ""

	if _, err := env.svc.Course.Update(env.ctx, john, course.CourseID, &dto.UpdateCourseRequest{InstructorID: &empty}); !errors.Is(err, ErrInstructorReassignForbidden) {
		t.Errorf("教师不能取消自己的指派，实际: %v", err)
	}

	resp, err := env.svc.Course.Update(env.ctx, env.admin, course.CourseID, &dto.UpdateCourseRequest{InstructorID: &empty})
	if err != nil {
		t.Fatalf("管理员取消指派应成功: %v", err)
	}
	if resp.Instructor != nil {
		t.Errorf("取消指派后不应返回授课教师: %+v", resp.Instructor)
	}

	got, err := env.svc.Course.Get(env.ctx, env.admin, course.CourseID)
	if err != nil {
		t.Fatalf("查询课程失败: %v", err)
	}
	if got.Instructor != nil {
		t.Error("取消指派应已落库")
	}
	if _, err := env.svc.Course.Update(env.ctx, john, course.CourseID, &dto.UpdateCourseRequest{Credits: intPtr(4)}); !errors.Is(err, ErrNoPermission) {
		t.Errorf("取消指派后原教师应失去权限，实际: %v", err)
	}

	// 未指派时再次取消为空操作
	if _, err := env.svc.Course.Update(env.ctx, env.admin, course.CourseID, &dto.UpdateCourseRequest{InstructorID: &empty}); err != nil {
		t.Errorf("重复取消指派应成功: %v", err)
	}
}

func TestCourseUpdate_CapacityBelowEnrolled(t *testing.T) {
	env := newTestEnv(t)
	course := env.addCourse("CS101", 3, nil)
	for _, n := range []string{"STU001", "STU002"} {
		sub, _ := env.addStudent(n)
		if _, err := env.svc.Enrollment.Enroll(env.ctx, sub, &dto.CreateEnrollmentRequest{CourseID: course.CourseID}); err != nil {
			t.Fatalf("选课失败: %v", err)
		}
	}

	if _, err := env.svc.Course.Update(env.ctx, env.admin, course.CourseID, &dto.UpdateCourseRequest{Capacity: intPtr(1)}); !errors.Is(err, ErrCapacityBelowEnrolled) {
		t.Errorf("期望 ErrCapacityBelowEnrolled，实际: %v", err)
	}
	resp, err := env.svc.Course.Update(env.ctx, env.admin, course.CourseID, &dto.UpdateCourseRequest{Capacity: intPtr(2)})
	if err != nil {
		t.Fatalf("容量等于在读人数应允许: %v", err)
	}
	if resp.Capacity != 2 || resp.EnrolledCount != 2 {
		t.Errorf("容量更新结果不正确: %+v", resp)
	}
}

func TestCourseDelete_Force(t *testing.T) {
	env := newTestEnv(t)
	course := env.addCourse("CS101", 5, nil)
	alice, _ := env.addStudent("STU001")
	enrolled, err := env.svc.Enrollment.Enroll(env.ctx, alice, &dto.CreateEnrollmentRequest{CourseID: course.CourseID})
	if err != nil {
		t.Fatalf("选课失败: %v", err)
	}

	if err := env.svc.Course.Delete(env.ctx, env.admin, course.CourseID, false); !errors.Is(err, ErrCourseHasActiveEnrollments) {
		t.Errorf("期望 ErrCourseHasActiveEnrollments，实际: %v", err)
	}
	if err := env.svc.Course.Delete(env.ctx, env.admin, course.CourseID, true); err != nil {
		t.Fatalf("force 删除应成功: %v", err)
	}

	if _, err := env.svc.Course.Get(env.ctx, env.admin, course.CourseID); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("删除后应查不到课程，实际: %v", err)
	}
	e, err := env.repo.Enrollment.GetByID(env.ctx, enrolled.ID)
	if err != nil {
		t.Fatalf("选课记录应保留: %v", err)
	}
	if e.Status != model.EnrollmentStatusDropped || e.DroppedAt == nil {
		t.Errorf("在读记录应被置为 dropped，实际 status=%s", e.Status)
	}
	if err := env.svc.Course.Delete(env.ctx, env.admin, course.CourseID, true); !errors.Is(err, ErrCourseNotFound) {
		t.Errorf("重复删除应返回 ErrCourseNotFound，实际: %v", err)
	}
}
