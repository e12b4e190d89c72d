package crew

import (
	"time"

	"crewcheck/backend/pkg/clock"
)

// Source 成员来源
type Source string

const (
	SourceAssigned Source = "assigned" // 分配到项目
	SourceAttended Source = "attended" // 未分配但有重叠考勤
	SourceAdded    Source = "added"    // 主管手动添加
)

// Field 可编辑的时间字段
type Field string

const (
	FieldClockIn  Field = "clock_in"
	FieldClockOut Field = "clock_out"
)

// Identity 目录中的人员
type Identity struct {
	UserID      string
	DisplayName string
	AvatarURL   string
}

// AttendanceRecord 一条考勤记录（基线）
type AttendanceRecord struct {
	TimeEntryID  string
	UserID       string
	DisplayName  string
	ClockIn      time.Time
	ClockOut     *time.Time // nil 表示仍在岗
	TotalHours   float64
	BreakMinutes int
	Status       string
}

// ShiftContext 班次窗口：由带班人自己的上下班时间决定
type ShiftContext struct {
	JobID    string
	LeaderID string
	Start    time.Time
	End      time.Time
}

func (s ShiftContext) validate() error {
	if s.JobID == "" || s.LeaderID == "" || s.Start.IsZero() || s.End.IsZero() || s.End.Before(s.Start) {
		return ErrInvalidShift
	}
	return nil
}

// CrewMember 花名册中的一名成员
type CrewMember struct {
	UserID      string
	DisplayName string
	AvatarURL   string
	Source      Source

	// 基线（已有考勤记录时）
	TimeEntryID      string
	OriginalClockIn  *time.Time
	OriginalClockOut *time.Time
	HasTimeEntry     bool
	IsNewEntry       bool

	// 主管可编辑
	EditedClockIn  string
	EditedClockOut string
	BreakMinutes   int
	Confirmed      bool

	// Edited 只由 recomputeEdited 写入
	Edited bool
	// Touched 一旦修改过时间字段即为 true，不会回退
	Touched bool

	baselineIn  string
	baselineOut string
}

// Hours 按当前编辑值计算工时
func (m *CrewMember) Hours() float64 {
	return clock.ComputeHours(m.EditedClockIn, m.EditedClockOut, m.BreakMinutes)
}

// Qualifies 提交时是否需要生成更正申请
func (m *CrewMember) Qualifies() bool {
	if !m.Confirmed {
		return false
	}
	return m.IsNewEntry || (m.Edited && m.HasTimeEntry)
}

func (m *CrewMember) recomputeEdited() {
	if !m.HasTimeEntry {
		m.Edited = true
		return
	}
	m.Edited = m.EditedClockIn != m.baselineIn || m.EditedClockOut != m.baselineOut
}

// newMemberFromRecord 以考勤记录为基线构建成员
// 仍在岗（无下班时间）的记录，下班时间默认取班次结束，并以此作为比较基线
func newMemberFromRecord(rec AttendanceRecord, source Source, shift ShiftContext, loc *time.Location) *CrewMember {
	in := clock.Format(rec.ClockIn, loc)
	out := clock.Format(shift.End, loc)
	if rec.ClockOut != nil {
		out = clock.Format(*rec.ClockOut, loc)
	}

	clockIn := rec.ClockIn
	m := &CrewMember{
		UserID:           rec.UserID,
		DisplayName:      rec.DisplayName,
		Source:           source,
		TimeEntryID:      rec.TimeEntryID,
		OriginalClockIn:  &clockIn,
		OriginalClockOut: copyTime(rec.ClockOut),
		HasTimeEntry:     true,
		IsNewEntry:       false,
		EditedClockIn:    in,
		EditedClockOut:   out,
		BreakMinutes:     rec.BreakMinutes,
		Confirmed:        true,
		baselineIn:       in,
		baselineOut:      out,
	}
	m.recomputeEdited()
	return m
}

// newMemberWithoutEntry 没有考勤记录的成员，时间默认取班次窗口
func newMemberWithoutEntry(id Identity, source Source, confirmed bool, shift ShiftContext, loc *time.Location) *CrewMember {
	m := &CrewMember{
		UserID:         id.UserID,
		DisplayName:    id.DisplayName,
		AvatarURL:      id.AvatarURL,
		Source:         source,
		HasTimeEntry:   false,
		IsNewEntry:     true,
		EditedClockIn:  clock.Format(shift.Start, loc),
		EditedClockOut: clock.Format(shift.End, loc),
		Confirmed:      confirmed,
	}
	m.recomputeEdited()
	return m
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
