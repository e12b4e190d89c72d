package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"crewcheck/backend/internal/dto"
)

// ── 导出模块业务错误 ──

var (
	ErrExportEmptyRoster  = errors.New("核验名单为空")
	ErrExportGenerateFail = errors.New("生成 Excel 文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 导出当前核验会话的工时表（.xlsx），内容即主管当前看到的花名册
//   - 导出以 bytes.Buffer 返回，由 Handler 层设置 HTTP 响应头后写入 Response
type ExportService interface {
	// ExportTimesheet 导出班组工时表
	ExportTimesheet(ctx context.Context, v *dto.CrewVerificationResponse) (*bytes.Buffer, string, error)
}

type exportService struct {
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(logger *zap.Logger) ExportService {
	return &exportService{logger: logger}
}

var sourceNames = map[string]string{
	"assigned": "项目分配",
	"attended": "现场考勤",
	"added":    "手动添加",
}

// ═══════════════════════════════════════════════════════════
// ExportTimesheet — 导出班组工时表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "工时表"
//   - 标题行：项目名称 + 日期 + 班次时间
//   - 列：姓名 | 来源 | 上班 | 下班 | 休息(分钟) | 工时 | 已确认 | 状态
//   - 末行：已确认成员工时合计

func (s *exportService) ExportTimesheet(_ context.Context, v *dto.CrewVerificationResponse) (*bytes.Buffer, string, error) {
	if v == nil || len(v.Members) == 0 {
		return nil, "", ErrExportEmptyRoster
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "工时表"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"姓名", "来源", "上班", "下班", "休息(分钟)", "工时", "已确认", "状态"}
	widths := []float64{16, 12, 10, 10, 12, 10, 10, 12}
	for i, w := range widths {
		col := colName(i)
		f.SetColWidth(sheetName, col, col, w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	editedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#FFF2CC"}, Pattern: 1},
	})
	hoursFmt := "0.00"
	hoursStyle, _ := f.NewStyle(&excelize.Style{CustomNumFmt: &hoursFmt})

	// 标题行
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %s 班组工时（%s-%s）", v.JobName, v.ShiftDate, v.ShiftStart, v.ShiftEnd))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	row := 2
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), row), h)
	}
	f.SetCellStyle(sheetName, cell("A", row), cell(colName(len(headers)-1), row), headerStyle)

	// 数据行
	var total float64
	for _, m := range v.Members {
		row++
		f.SetCellValue(sheetName, cell("A", row), m.DisplayName)
		f.SetCellValue(sheetName, cell("B", row), sourceName(m.Source))
		f.SetCellValue(sheetName, cell("C", row), m.ClockIn)
		f.SetCellValue(sheetName, cell("D", row), m.ClockOut)
		f.SetCellValue(sheetName, cell("E", row), m.BreakMinutes)
		f.SetCellValue(sheetName, cell("F", row), m.Hours)
		f.SetCellStyle(sheetName, cell("F", row), cell("F", row), hoursStyle)
		f.SetCellValue(sheetName, cell("G", row), yesNo(m.Confirmed))
		f.SetCellValue(sheetName, cell("H", row), memberStatus(&m))

		if m.Edited && m.Confirmed {
			f.SetCellStyle(sheetName, cell("C", row), cell("D", row), editedStyle)
		}
		if m.Confirmed {
			total += m.Hours
		}
	}

	// 合计
	row++
	f.SetCellValue(sheetName, cell("A", row), "已确认合计")
	f.SetCellValue(sheetName, cell("F", row), total)
	f.SetCellStyle(sheetName, cell("F", row), cell("F", row), hoursStyle)

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.String("session_id", v.SessionID), zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("工时表_%s_%s.xlsx", v.JobName, v.ShiftDate)
	return buf, filename, nil
}

// ── 辅助函数 ──

func sourceName(source string) string {
	if name, ok := sourceNames[source]; ok {
		return name
	}
	return source
}

func memberStatus(m *dto.CrewMemberResponse) string {
	switch {
	case m.IsNewEntry:
		return "新增"
	case m.Edited:
		return "已修改"
	default:
		return "无变化"
	}
}

func yesNo(b bool) string {
	if b {
		return "是"
	}
	return "否"
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
