// Package crew 实现班次结束时的班组核验：
// 汇总"分配到项目的人员 / 与班次重叠的考勤记录 / 主管手动添加的人员"三路来源，
// 去重成一份花名册，跟踪主管对上下班时间的修改，并把需要更正的成员逐个提交为考勤更正申请。
//
// 花名册只属于打开它的会话，不做并发保护；并发访问由上层会话负责串行化。
package crew

import "errors"

// ── 班组核验业务错误 ──

var (
	ErrInvalidShift   = errors.New("班次信息不完整")
	ErrMissingLeader  = errors.New("缺少提交人身份")
	ErrMemberNotFound = errors.New("成员不在核验名单中")
	ErrUnknownField   = errors.New("未知的时间字段")
	ErrInvalidBreak   = errors.New("休息时长无效")
	ErrUnknownMember  = errors.New("目录中不存在该成员")
)

// maxBreakMinutes 休息时长上限（一天）
const maxBreakMinutes = 24 * 60
