package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"crewcheck/backend/internal/crew"
	"crewcheck/backend/internal/model"
	"crewcheck/backend/internal/repository"
	pkgerrors "crewcheck/backend/pkg/errors"
	"crewcheck/backend/pkg/redis"
)

// 本文件把 crew 包的数据端口接到 repository / redis 上

// ────────────────────── RosterSource ──────────────────────

type repoRosterSource struct {
	repo *repository.Repository
}

func (s *repoRosterSource) FetchAssignedRoster(ctx context.Context, jobID, excludeUserID string) ([]crew.Identity, error) {
	assignments, err := s.repo.JobAssignment.ListMembers(ctx, jobID, excludeUserID)
	if err != nil {
		return nil, err
	}

	ids := make([]crew.Identity, 0, len(assignments))
	for _, a := range assignments {
		id := crew.Identity{UserID: a.UserID}
		if a.User != nil {
			id.DisplayName = a.User.Name
			id.AvatarURL = a.User.AvatarURL
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FetchAttendanceOverlapping 重叠条件在 SQL 中过滤，Aggregator 仍会按仍在岗记录的取值再判断一次
func (s *repoRosterSource) FetchAttendanceOverlapping(ctx context.Context, jobID, excludeUserID string, windowStart, windowEnd time.Time) ([]crew.AttendanceRecord, error) {
	entries, err := s.repo.TimeEntry.ListOverlapping(ctx, jobID, excludeUserID, windowStart, windowEnd)
	if err != nil {
		return nil, err
	}

	records := make([]crew.AttendanceRecord, 0, len(entries))
	for _, e := range entries {
		rec := crew.AttendanceRecord{
			TimeEntryID:  e.TimeEntryID,
			UserID:       e.UserID,
			ClockIn:      e.ClockIn,
			ClockOut:     e.ClockOut,
			TotalHours:   e.TotalHours,
			BreakMinutes: e.BreakMinutes,
			Status:       e.Status,
		}
		if e.User != nil {
			rec.DisplayName = e.User.Name
		}
		records = append(records, rec)
	}
	return records, nil
}

// ────────────────────── Directory ──────────────────────

type repoDirectory struct {
	repo *repository.Repository
}

func (d *repoDirectory) LookupDirectoryEntry(ctx context.Context, userID string) (*crew.Identity, error) {
	user, err := d.repo.User.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, crew.ErrUnknownMember
		}
		return nil, err
	}
	return &crew.Identity{
		UserID:      user.UserID,
		DisplayName: user.Name,
		AvatarURL:   user.AvatarURL,
	}, nil
}

// ────────────────────── MetadataSource ──────────────────────

// cachedMetadataSource 头像读取：先查 Redis，未命中再批量查库并回填
// Redis 未配置或故障时直接查库
type cachedMetadataSource struct {
	cache  *redis.Client
	users  repository.UserRepository
	ttl    time.Duration
	logger *zap.Logger
}

func (m *cachedMetadataSource) FetchDisplayMetadata(ctx context.Context, userIDs []string) (map[string]string, error) {
	hits, missing, err := m.cache.GetAvatars(ctx, userIDs)
	if err != nil {
		if !errors.Is(err, pkgerrors.ErrCacheUnavailable) {
			m.logger.Warn("读取头像缓存失败，回源数据库", zap.Error(err))
		}
		hits, missing = map[string]string{}, userIDs
	}
	if len(missing) == 0 {
		return hits, nil
	}

	users, err := m.users.ListByIDs(ctx, missing)
	if err != nil {
		if len(hits) > 0 {
			m.logger.Warn("查询成员头像失败，仅使用缓存结果", zap.Error(err))
			return hits, nil
		}
		return nil, fmt.Errorf("查询成员头像失败: %w", err)
	}

	fresh := make(map[string]string, len(missing))
	for _, id := range missing {
		fresh[id] = ""
	}
	for _, u := range users {
		fresh[u.UserID] = u.AvatarURL
		hits[u.UserID] = u.AvatarURL
	}

	if err := m.cache.SetAvatars(ctx, fresh, m.ttl); err != nil && !errors.Is(err, pkgerrors.ErrCacheUnavailable) {
		m.logger.Warn("写入头像缓存失败", zap.Error(err))
	}
	return hits, nil
}

// ────────────────────── CorrectionSubmitter ──────────────────────

type repoCorrectionSubmitter struct {
	repo *repository.Repository
}

func (s *repoCorrectionSubmitter) SubmitCorrectionRequest(ctx context.Context, req *crew.CorrectionRequest) error {
	row := &model.TimeCorrectionRequest{
		UserID:            req.TargetUserID,
		JobID:             req.JobID,
		ShiftDate:         req.ShiftDate,
		RequestedClockIn:  req.RequestedClockIn,
		RequestedClockOut: req.RequestedClockOut,
		BreakMinutes:      req.BreakMinutes,
		Reason:            req.Reason,
		Kind:              string(req.Kind),
		Status:            model.CorrectionStatusPending,
		RequestedBy:       req.RequestedBy,
	}
	if req.TimeEntryID != "" {
		entryID := req.TimeEntryID
		row.TimeEntryID = &entryID
	}
	requestedBy := req.RequestedBy
	row.CreatedBy = &requestedBy
	row.UpdatedBy = &requestedBy

	return s.repo.TimeCorrection.Create(ctx, row)
}

// ────────────────────── Notifier ──────────────────────

// notificationNotifier 把核验结果写成站内通知；写入失败只记日志
type notificationNotifier struct {
	repo   *repository.Repository
	logger *zap.Logger
}

func (n *notificationNotifier) NotifyCompletion(ctx context.Context, leaderID string, count int) {
	content := "核验完成，无需更正考勤"
	if count > 0 {
		content = fmt.Sprintf("已提交 %d 条考勤更正申请，等待审批", count)
	}
	n.create(ctx, &model.Notification{
		UserID:  leaderID,
		Type:    model.NotificationCrewVerified,
		Title:   "班组核验完成",
		Content: content,
	})
}

func (n *notificationNotifier) NotifyFailure(ctx context.Context, leaderID string, memberName string) {
	n.create(ctx, &model.Notification{
		UserID:  leaderID,
		Type:    model.NotificationCorrectionFailed,
		Title:   "考勤更正申请提交失败",
		Content: fmt.Sprintf("%s 的考勤更正申请提交失败，请稍后重新核验", memberName),
	})
}

func (n *notificationNotifier) create(ctx context.Context, notif *model.Notification) {
	if err := n.repo.Notification.Create(ctx, notif); err != nil {
		n.logger.Warn("写入通知失败",
			zap.String("user_id", notif.UserID),
			zap.String("type", notif.Type),
			zap.Error(err),
		)
	}
}
