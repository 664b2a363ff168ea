package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/izeinnn/University-management-system/internal/authz"
	"github.com/izeinnn/University-management-system/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
//   - 名单包含 active 与 completed 记录，不含 dropped
type ExportService interface {
	// ExportRoster 导出课程选课名单（管理员或授课教师）
	ExportRoster(ctx context.Context, caller authz.Subject, courseID string) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

var statusNames = map[string]string{
	"active":    "在读",
	"completed": "已结课",
	"dropped":   "已退课",
}

// ═══════════════════════════════════════════════════════════
// ExportRoster 导出课程名单为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - 第 1 行：课程代码 + 名称（合并单元格）
//   - 第 2 行：容量 / 在读人数
//   - 第 3 行：表头 序号 | 学号 | 姓名 | 状态 | 成绩 | 选课时间
//   - 第 4 行起：名单，按学号排序

func (s *exportService) ExportRoster(ctx context.Context, caller authz.Subject, courseID string) (*bytes.Buffer, string, error) {
	// 1. 查询课程
	course, err := s.repo.Course.GetByID(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrCourseNotFound
		}
		s.logger.Error("查询课程失败", zap.Error(err))
		return nil, "", err
	}

	// 2. 名单视同读取该课程下的全部选课记录，学生无法通过
	tgt := authz.Target{Resource: authz.ResourceEnrollment, InstructorID: course.InstructorUserID()}
	if _, err := authorize(caller, authz.ActionRead, tgt); err != nil {
		return nil, "", err
	}

	// 3. 查询名单
	enrollments, err := s.repo.Enrollment.ListRoster(ctx, courseID)
	if err != nil {
		s.logger.Error("查询课程名单失败", zap.Error(err))
		return nil, "", err
	}
	active := 0
	for _, e := range enrollments {
		if e.Status == "active" {
			active++
		}
	}

	// 4. 生成 Excel
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "选课名单"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	// 删除默认 Sheet1
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 16)
	f.SetColWidth(sheetName, "C", "C", 20)
	f.SetColWidth(sheetName, "D", "E", 10)
	f.SetColWidth(sheetName, "F", "F", 22)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s", course.Code, course.Title))
	f.MergeCell(sheetName, "A1", "F1")
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	f.SetCellValue(sheetName, "A2", fmt.Sprintf("容量 %d / 在读 %d", course.Capacity, active))
	f.MergeCell(sheetName, "A2", "F2")

	// 表头
	headers := []string{"序号", "学号", "姓名", "状态", "成绩", "选课时间"}
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 3), h)
	}
	f.SetCellStyle(sheetName, "A3", "F3", headerStyle)

	// 数据行
	row := 4
	for i, e := range enrollments {
		number, name := "-", "-"
		if e.Student != nil {
			number, name = e.Student.StudentNumber, e.Student.FullName
		}
		grade := "-"
		if e.Grade != nil {
			grade = *e.Grade
		}
		status := statusNames[e.Status]
		if status == "" {
			status = e.Status
		}

		f.SetCellValue(sheetName, cell("A", row), i+1)
		f.SetCellValue(sheetName, cell("B", row), number)
		f.SetCellValue(sheetName, cell("C", row), name)
		f.SetCellValue(sheetName, cell("D", row), status)
		f.SetCellValue(sheetName, cell("E", row), grade)
		f.SetCellValue(sheetName, cell("F", row), e.EnrolledAt.UTC().Format("2006-01-02 15:04"))
		row++
	}

	// 写入 buffer
	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("选课名单_%s.xlsx", course.Code)
	return buf, filename, nil
}

// colName 0-based 列号转 Excel 列名
func colName(i int) string {
	name, _ := excelize.ColumnNumberToName(i + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
