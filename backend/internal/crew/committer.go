package crew

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"crewcheck/backend/pkg/clock"
)

// CorrectionKind 更正申请类型
type CorrectionKind string

const (
	CorrectionNewEntry   CorrectionKind = "new_entry"
	CorrectionAmendEntry CorrectionKind = "amend_entry"
)

// CorrectionRequest 一名成员的考勤更正申请
type CorrectionRequest struct {
	TargetUserID      string
	JobID             string
	TimeEntryID       string // 新增记录时为空
	ShiftDate         time.Time
	RequestedClockIn  time.Time
	RequestedClockOut time.Time
	BreakMinutes      int
	Reason            string
	Kind              CorrectionKind
	RequestedBy       string
}

// MemberFailure 单个成员提交失败
type MemberFailure struct {
	UserID      string
	DisplayName string
	Err         error
}

// Outcome 提交结果分类
type Outcome string

const (
	OutcomeCompleted Outcome = "completed" // 无需更正，核验完成
	OutcomeSubmitted Outcome = "submitted" // 全部提交成功
	OutcomePartial   Outcome = "partial"   // 部分失败
	OutcomeFailed    Outcome = "failed"    // 全部失败
)

// SubmitResult 提交汇总
type SubmitResult struct {
	Requested int
	Succeeded int
	Skipped   int
	Failed    []MemberFailure
}

// Outcome 按计数推导结果
func (r *SubmitResult) Outcome() Outcome {
	switch {
	case r.Requested == 0:
		return OutcomeCompleted
	case len(r.Failed) == 0:
		return OutcomeSubmitted
	case r.Succeeded == 0:
		return OutcomeFailed
	default:
		return OutcomePartial
	}
}

// Committer 把核验后的花名册逐个提交为更正申请
type Committer struct {
	submitter CorrectionSubmitter
	notifier  Notifier
	loc       *time.Location
	logger    *zap.Logger
}

// NewCommitter 创建 Committer；notifier 可为 nil
func NewCommitter(submitter CorrectionSubmitter, notifier Notifier, loc *time.Location, logger *zap.Logger) *Committer {
	if loc == nil {
		loc = time.Local
	}
	return &Committer{submitter: submitter, notifier: notifier, loc: loc, logger: logger}
}

// Submit 按花名册顺序串行提交
//
// 未确认、或有基线且未修改的成员跳过；单个成员失败记录后继续。
// 循环开始后不响应 ctx 取消，保证整份名单都被处理。
func (c *Committer) Submit(ctx context.Context, roster *Roster, leaderID string, shiftDate time.Time) (*SubmitResult, error) {
	if leaderID == "" {
		return nil, ErrMissingLeader
	}

	ctx = context.WithoutCancel(ctx)
	jobID := roster.Shift().JobID
	result := &SubmitResult{}

	for _, m := range roster.Members() {
		if !m.Qualifies() {
			result.Skipped++
			continue
		}
		result.Requested++

		req, err := c.buildRequest(&m, jobID, leaderID, shiftDate)
		if err == nil {
			err = c.submitter.SubmitCorrectionRequest(ctx, req)
		}
		if err != nil {
			c.logger.Warn("提交考勤更正申请失败",
				zap.String("job_id", jobID),
				zap.String("user_id", m.UserID),
				zap.Error(err),
			)
			result.Failed = append(result.Failed, MemberFailure{
				UserID:      m.UserID,
				DisplayName: m.DisplayName,
				Err:         err,
			})
			if c.notifier != nil {
				c.notifier.NotifyFailure(ctx, leaderID, m.DisplayName)
			}
			continue
		}

		result.Succeeded++
		c.logger.Info("已提交考勤更正申请",
			zap.String("job_id", jobID),
			zap.String("user_id", m.UserID),
			zap.String("kind", string(req.Kind)),
		)
	}

	if c.notifier != nil {
		c.notifier.NotifyCompletion(ctx, leaderID, result.Succeeded)
	}

	return result, nil
}

func (c *Committer) buildRequest(m *CrewMember, jobID, leaderID string, shiftDate time.Time) (*CorrectionRequest, error) {
	in, err := clock.On(shiftDate, m.EditedClockIn, c.loc)
	if err != nil {
		return nil, fmt.Errorf("上班时间无效: %w", err)
	}
	out, err := clock.On(shiftDate, m.EditedClockOut, c.loc)
	if err != nil {
		return nil, fmt.Errorf("下班时间无效: %w", err)
	}

	req := &CorrectionRequest{
		TargetUserID:      m.UserID,
		JobID:             jobID,
		ShiftDate:         shiftDate,
		RequestedClockIn:  in,
		RequestedClockOut: out,
		BreakMinutes:      m.BreakMinutes,
		RequestedBy:       leaderID,
	}

	if m.IsNewEntry {
		req.Kind = CorrectionNewEntry
		req.Reason = fmt.Sprintf("主管核验时补录，%s-%s", m.EditedClockIn, m.EditedClockOut)
		return req, nil
	}

	req.Kind = CorrectionAmendEntry
	req.TimeEntryID = m.TimeEntryID
	req.Reason = fmt.Sprintf("主管核验时修改，原记录 %s-%s，修改为 %s-%s",
		c.formatOriginal(m.OriginalClockIn), c.formatOriginal(m.OriginalClockOut),
		m.EditedClockIn, m.EditedClockOut)
	return req, nil
}

func (c *Committer) formatOriginal(t *time.Time) string {
	if t == nil {
		return "未打卡"
	}
	return clock.Format(*t, c.loc)
}
