package dto

import "time"

// ── 班组核验模块 DTO ──

// OpenCrewVerificationRequest 打开核验会话请求
type OpenCrewVerificationRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

// UpdateCrewMemberRequest 修改成员时间；未提供的字段不修改
type UpdateCrewMemberRequest struct {
	ClockIn      *string `json:"clock_in"      binding:"omitempty,max=5"`
	ClockOut     *string `json:"clock_out"     binding:"omitempty,max=5"`
	BreakMinutes *int    `json:"break_minutes"`
}

// AddCrewMembersRequest 手动添加成员请求
type AddCrewMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,max=100"`
}

// CorrectionListRequest 更正申请列表查询参数
type CorrectionListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

// CrewMemberResponse 花名册中的成员
type CrewMemberResponse struct {
	UserID           string  `json:"user_id"`
	DisplayName      string  `json:"display_name"`
	AvatarURL        string  `json:"avatar_url,omitempty"`
	Source           string  `json:"source"` // assigned | attended | added
	TimeEntryID      string  `json:"time_entry_id,omitempty"`
	HasTimeEntry     bool    `json:"has_time_entry"`
	IsNewEntry       bool    `json:"is_new_entry"`
	OriginalClockIn  string  `json:"original_clock_in,omitempty"`
	OriginalClockOut string  `json:"original_clock_out,omitempty"`
	ClockIn          string  `json:"clock_in"`
	ClockOut         string  `json:"clock_out"`
	BreakMinutes     int     `json:"break_minutes"`
	Hours            float64 `json:"hours"`
	Confirmed        bool    `json:"confirmed"`
	Edited           bool    `json:"edited"`
	Touched          bool    `json:"touched"` // 改过时间后又改回原值时仍为 true
}

// CrewVerificationResponse 核验会话（含完整花名册）
type CrewVerificationResponse struct {
	SessionID      string               `json:"session_id"`
	JobID          string               `json:"job_id"`
	JobName        string               `json:"job_name"`
	LeaderID       string               `json:"leader_id"`
	ShiftDate      string               `json:"shift_date"` // YYYY-MM-DD
	ShiftStart     string               `json:"shift_start"`
	ShiftEnd       string               `json:"shift_end"`
	Revision       int                  `json:"revision"`
	ExpiresAt      time.Time            `json:"expires_at"`
	ConfirmedHours float64              `json:"confirmed_hours"`
	PendingCount   int                  `json:"pending_count"` // 提交时会生成更正申请的人数
	Members        []CrewMemberResponse `json:"members"`
}

// ToggleConfirmedResponse 切换确认状态响应
type ToggleConfirmedResponse struct {
	UserID    string `json:"user_id"`
	Confirmed bool   `json:"confirmed"`
	Revision  int    `json:"revision"`
}

// AddCrewMembersResponse 手动添加成员响应
type AddCrewMembersResponse struct {
	Added        int                       `json:"added"`
	Verification *CrewVerificationResponse `json:"verification"`
}

// SubmitFailureResponse 单个成员提交失败
type SubmitFailureResponse struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

// SubmitCrewVerificationResponse 提交结果
type SubmitCrewVerificationResponse struct {
	Outcome   string                  `json:"outcome"` // completed | submitted | partial | failed
	Message   string                  `json:"message"`
	Requested int                     `json:"requested"`
	Succeeded int                     `json:"succeeded"`
	Skipped   int                     `json:"skipped"`
	Failed    []SubmitFailureResponse `json:"failed"`
}

// CorrectionResponse 考勤更正申请
type CorrectionResponse struct {
	ID                string `json:"id"`
	UserID            string `json:"user_id"`
	JobID             string `json:"job_id"`
	TimeEntryID       string `json:"time_entry_id,omitempty"`
	Kind              string `json:"kind"`
	Status            string `json:"status"`
	ShiftDate         string `json:"shift_date"`
	RequestedClockIn  string `json:"requested_clock_in"`
	RequestedClockOut string `json:"requested_clock_out"`
	BreakMinutes      int    `json:"break_minutes"`
	Reason            string `json:"reason"`
	RequestedBy       string `json:"requested_by"`
	CreatedAt         string `json:"created_at"`
}
