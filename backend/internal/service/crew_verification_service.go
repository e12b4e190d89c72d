package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"crewcheck/backend/config"
	"crewcheck/backend/internal/crew"
	"crewcheck/backend/internal/dto"
	"crewcheck/backend/internal/model"
	"crewcheck/backend/internal/repository"
	"crewcheck/backend/pkg/clock"
	"crewcheck/backend/pkg/redis"
)

// ── 班组核验模块业务错误 ──

var (
	ErrJobNotFound         = errors.New("项目不存在")
	ErrLeaderShiftNotFound = errors.New("未找到带班人在该项目的考勤记录")
	ErrSessionNotFound     = errors.New("核验会话不存在或已过期")
	ErrSessionForbidden    = errors.New("无权操作他人的核验会话")
	ErrMemberNotFound      = errors.New("成员不在核验名单中")
	ErrInvalidClock        = errors.New("时间格式无效，应为 HH:MM")
	ErrInvalidBreak        = errors.New("休息时长应在 0-1440 分钟之间")
)

// CrewVerificationService 班组核验业务接口
//
// 设计说明：
//   - 一次核验对应一个内存会话，只属于打开它的带班人
//   - 班次窗口取带班人在该项目最近一条考勤记录
//   - 会话空闲超过 crew.session_ttl 后失效；提交或关闭后立即丢弃
//   - 提交只生成更正申请，不直接修改考勤记录
type CrewVerificationService interface {
	Open(ctx context.Context, req *dto.OpenCrewVerificationRequest, callerID string) (*dto.CrewVerificationResponse, error)
	Get(ctx context.Context, sessionID, callerID string) (*dto.CrewVerificationResponse, error)
	UpdateMember(ctx context.Context, sessionID, userID string, req *dto.UpdateCrewMemberRequest, callerID string) (*dto.CrewVerificationResponse, error)
	ToggleConfirmed(ctx context.Context, sessionID, userID, callerID string) (*dto.ToggleConfirmedResponse, error)
	AddMembers(ctx context.Context, sessionID string, req *dto.AddCrewMembersRequest, callerID string) (*dto.AddCrewMembersResponse, error)
	Submit(ctx context.Context, sessionID, callerID string) (*dto.SubmitCrewVerificationResponse, error)
	Close(ctx context.Context, sessionID, callerID string) error
	ListCorrections(ctx context.Context, jobID string, req *dto.CorrectionListRequest) ([]dto.CorrectionResponse, error)
}

// crewSession 一次核验会话；roster 只在持有 mu 时访问
type crewSession struct {
	mu        sync.Mutex
	id        string
	job       *model.Job
	leaderID  string
	shiftDate time.Time
	roster    *crew.Roster
	revision  int
	expiresAt time.Time
	closed    bool
}

type crewVerificationService struct {
	repo       *repository.Repository
	aggregator *crew.Aggregator
	committer  *crew.Committer
	loc        *time.Location
	ttl        time.Duration
	now        func() time.Time
	logger     *zap.Logger

	mu       sync.Mutex
	sessions map[string]*crewSession
}

// NewCrewVerificationService 创建 CrewVerificationService 实例
// cache 可为 nil，此时头像直接查库
func NewCrewVerificationService(cfg *config.Config, repo *repository.Repository, cache *redis.Client, logger *zap.Logger) CrewVerificationService {
	loc, err := cfg.Crew.Location()
	if err != nil {
		logger.Warn("班组核验时区无效，使用本地时区", zap.String("timezone", cfg.Crew.Timezone), zap.Error(err))
		loc = time.Local
	}

	s := &crewVerificationService{
		repo:     repo,
		loc:      loc,
		ttl:      cfg.Crew.SessionTTL,
		now:      time.Now,
		logger:   logger,
		sessions: make(map[string]*crewSession),
	}

	metadata := &cachedMetadataSource{cache: cache, users: repo.User, ttl: cfg.Redis.AvatarTTL, logger: logger}
	s.aggregator = crew.NewAggregator(&repoRosterSource{repo: repo}, metadata, &repoDirectory{repo: repo}, loc, logger).
		WithNow(func() time.Time { return s.now() })
	s.committer = crew.NewCommitter(
		&repoCorrectionSubmitter{repo: repo},
		&notificationNotifier{repo: repo, logger: logger},
		loc, logger,
	)
	return s
}

// ────────────────────── Open ──────────────────────

func (s *crewVerificationService) Open(ctx context.Context, req *dto.OpenCrewVerificationRequest, callerID string) (*dto.CrewVerificationResponse, error) {
	job, err := s.repo.Job.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询项目失败", zap.String("job_id", req.JobID), zap.Error(err))
		return nil, err
	}

	entry, err := s.repo.TimeEntry.GetLatestForUser(ctx, job.JobID, callerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeaderShiftNotFound
		}
		s.logger.Error("查询带班人考勤失败",
			zap.String("job_id", job.JobID), zap.String("leader_id", callerID), zap.Error(err))
		return nil, err
	}

	now := s.now()
	shift := crew.ShiftContext{
		JobID:    job.JobID,
		LeaderID: callerID,
		Start:    entry.ClockIn,
		End:      s.shiftEnd(entry, now),
	}

	roster, err := s.aggregator.Build(ctx, shift)
	if err != nil {
		if errors.Is(err, crew.ErrInvalidShift) {
			return nil, ErrLeaderShiftNotFound
		}
		return nil, err
	}

	start := shift.Start.In(s.loc)
	sess := &crewSession{
		id:        uuid.NewString(),
		job:       job,
		leaderID:  callerID,
		shiftDate: time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, s.loc),
		roster:    roster,
		expiresAt: now.Add(s.ttl),
	}
	roster.OnChange(func(c crew.Change) {
		sess.revision++
		s.logger.Debug("核验花名册变更",
			zap.String("session_id", sess.id),
			zap.String("kind", string(c.Kind)),
			zap.Strings("user_ids", c.UserIDs),
			zap.Int("revision", sess.revision),
		)
	})

	s.mu.Lock()
	s.purgeExpiredLocked(now)
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.logger.Info("打开班组核验",
		zap.String("session_id", sess.id),
		zap.String("job_id", job.JobID),
		zap.String("leader_id", callerID),
		zap.Int("members", roster.Len()),
	)

	return s.toVerificationResponse(sess), nil
}

// shiftEnd 带班人已下班取下班时间；仍在岗取当前时间，但不跨过上班当日
func (s *crewVerificationService) shiftEnd(entry *model.TimeEntry, now time.Time) time.Time {
	if entry.ClockOut != nil {
		return *entry.ClockOut
	}
	if clock.SameDay(entry.ClockIn, now, s.loc) {
		return now
	}
	in := entry.ClockIn.In(s.loc)
	return time.Date(in.Year(), in.Month(), in.Day(), 23, 59, 0, 0, s.loc)
}

// ────────────────────── Get ──────────────────────

func (s *crewVerificationService) Get(_ context.Context, sessionID, callerID string) (*dto.CrewVerificationResponse, error) {
	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	return s.toVerificationResponse(sess), nil
}

// ────────────────────── UpdateMember ──────────────────────

// UpdateMember 全部字段校验通过后才写入，避免部分生效
func (s *crewVerificationService) UpdateMember(_ context.Context, sessionID, userID string, req *dto.UpdateCrewMemberRequest, callerID string) (*dto.CrewVerificationResponse, error) {
	if req.ClockIn != nil {
		if _, err := clock.Normalize(*req.ClockIn); err != nil {
			return nil, ErrInvalidClock
		}
	}
	if req.ClockOut != nil {
		if _, err := clock.Normalize(*req.ClockOut); err != nil {
			return nil, ErrInvalidClock
		}
	}
	if req.BreakMinutes != nil && (*req.BreakMinutes < 0 || *req.BreakMinutes > 24*60) {
		return nil, ErrInvalidBreak
	}

	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	if !sess.roster.Contains(userID) {
		return nil, ErrMemberNotFound
	}

	// 一次请求只让 revision 前进一次
	err = sess.roster.ApplyEdit(userID, crew.MemberEdit{
		ClockIn:      req.ClockIn,
		ClockOut:     req.ClockOut,
		BreakMinutes: req.BreakMinutes,
	})
	if err != nil {
		return nil, s.mapRosterError(err)
	}

	return s.toVerificationResponse(sess), nil
}

// ────────────────────── ToggleConfirmed ──────────────────────

func (s *crewVerificationService) ToggleConfirmed(_ context.Context, sessionID, userID, callerID string) (*dto.ToggleConfirmedResponse, error) {
	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	confirmed, err := sess.roster.ToggleConfirmed(userID)
	if err != nil {
		return nil, s.mapRosterError(err)
	}

	return &dto.ToggleConfirmedResponse{
		UserID:    userID,
		Confirmed: confirmed,
		Revision:  sess.revision,
	}, nil
}

// ────────────────────── AddMembers ──────────────────────

func (s *crewVerificationService) AddMembers(ctx context.Context, sessionID string, req *dto.AddCrewMembersRequest, callerID string) (*dto.AddCrewMembersResponse, error) {
	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	added, err := s.aggregator.AddMembers(ctx, sess.roster, req.UserIDs)
	if err != nil {
		return nil, err
	}

	return &dto.AddCrewMembersResponse{
		Added:        added,
		Verification: s.toVerificationResponse(sess),
	}, nil
}

// ────────────────────── Submit ──────────────────────

// Submit 提交后会话即丢弃，无论结果如何
func (s *crewVerificationService) Submit(ctx context.Context, sessionID, callerID string) (*dto.SubmitCrewVerificationResponse, error) {
	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return nil, err
	}
	defer sess.mu.Unlock()

	result, err := s.committer.Submit(ctx, sess.roster, sess.leaderID, sess.shiftDate)
	if err != nil {
		s.logger.Error("提交班组核验失败", zap.String("session_id", sess.id), zap.Error(err))
		return nil, err
	}

	s.discardLocked(sess)

	s.logger.Info("班组核验已提交",
		zap.String("session_id", sess.id),
		zap.String("job_id", sess.job.JobID),
		zap.String("outcome", string(result.Outcome())),
		zap.Int("requested", result.Requested),
		zap.Int("succeeded", result.Succeeded),
		zap.Int("failed", len(result.Failed)),
	)

	return toSubmitResponse(result), nil
}

// ────────────────────── Close ──────────────────────

func (s *crewVerificationService) Close(_ context.Context, sessionID, callerID string) error {
	sess, err := s.acquire(sessionID, callerID)
	if err != nil {
		return err
	}
	defer sess.mu.Unlock()

	s.discardLocked(sess)
	s.logger.Info("跳过班组核验", zap.String("session_id", sess.id))
	return nil
}

// ────────────────────── ListCorrections ──────────────────────

func (s *crewVerificationService) ListCorrections(ctx context.Context, jobID string, req *dto.CorrectionListRequest) ([]dto.CorrectionResponse, error) {
	if _, err := s.repo.Job.GetByID(ctx, jobID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error("查询项目失败", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	rows, err := s.repo.TimeCorrection.ListByJob(ctx, jobID, req.Status)
	if err != nil {
		s.logger.Error("列出考勤更正申请失败", zap.String("job_id", jobID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.CorrectionResponse, 0, len(rows))
	for i := range rows {
		result = append(result, s.toCorrectionResponse(&rows[i]))
	}
	return result, nil
}

// ────────────────────── 会话管理 ──────────────────────

// acquire 查找会话并加锁，成功时调用方负责 sess.mu.Unlock()
// 每次成功访问都会顺延过期时间
func (s *crewVerificationService) acquire(sessionID, callerID string) (*crewSession, error) {
	now := s.now()

	// expiresAt 只在 s.mu 下读写
	s.mu.Lock()
	sess, ok := s.sessions[sessionID]
	if ok && now.After(sess.expiresAt) {
		delete(s.sessions, sessionID)
		ok = false
	}
	if ok && sess.leaderID == callerID {
		sess.expiresAt = now.Add(s.ttl)
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrSessionNotFound
	}
	if sess.leaderID != callerID {
		return nil, ErrSessionForbidden
	}

	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// discardLocked 调用方需持有 sess.mu
func (s *crewVerificationService) discardLocked(sess *crewSession) {
	sess.closed = true
	s.mu.Lock()
	delete(s.sessions, sess.id)
	s.mu.Unlock()
}

// purgeExpiredLocked 调用方需持有 s.mu
func (s *crewVerificationService) purgeExpiredLocked(now time.Time) {
	for id, sess := range s.sessions {
		if now.After(sess.expiresAt) {
			delete(s.sessions, id)
		}
	}
}

func (s *crewVerificationService) expiryOf(sess *crewSession) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sess.expiresAt
}

func (s *crewVerificationService) mapRosterError(err error) error {
	switch {
	case errors.Is(err, crew.ErrMemberNotFound):
		return ErrMemberNotFound
	case errors.Is(err, clock.ErrInvalidClock):
		return ErrInvalidClock
	case errors.Is(err, crew.ErrInvalidBreak):
		return ErrInvalidBreak
	default:
		return err
	}
}

// ────────────────────── 转换 ──────────────────────

func (s *crewVerificationService) toVerificationResponse(sess *crewSession) *dto.CrewVerificationResponse {
	shift := sess.roster.Shift()
	members := sess.roster.Members()

	resp := &dto.CrewVerificationResponse{
		SessionID:  sess.id,
		JobID:      sess.job.JobID,
		JobName:    sess.job.Name,
		LeaderID:   sess.leaderID,
		ShiftDate:  sess.shiftDate.Format("2006-01-02"),
		ShiftStart: clock.Format(shift.Start, s.loc),
		ShiftEnd:   clock.Format(shift.End, s.loc),
		Revision:   sess.revision,
		ExpiresAt:  s.expiryOf(sess),
		Members:    make([]dto.CrewMemberResponse, 0, len(members)),
	}

	for i := range members {
		m := &members[i]
		mr := dto.CrewMemberResponse{
			UserID:       m.UserID,
			DisplayName:  m.DisplayName,
			AvatarURL:    m.AvatarURL,
			Source:       string(m.Source),
			TimeEntryID:  m.TimeEntryID,
			HasTimeEntry: m.HasTimeEntry,
			IsNewEntry:   m.IsNewEntry,
			ClockIn:      m.EditedClockIn,
			ClockOut:     m.EditedClockOut,
			BreakMinutes: m.BreakMinutes,
			Hours:        m.Hours(),
			Confirmed:    m.Confirmed,
			Edited:       m.Edited,
			Touched:      m.Touched,
		}
		if m.OriginalClockIn != nil {
			mr.OriginalClockIn = clock.Format(*m.OriginalClockIn, s.loc)
		}
		if m.OriginalClockOut != nil {
			mr.OriginalClockOut = clock.Format(*m.OriginalClockOut, s.loc)
		}
		if m.Confirmed {
			resp.ConfirmedHours += mr.Hours
		}
		if m.Qualifies() {
			resp.PendingCount++
		}
		resp.Members = append(resp.Members, mr)
	}

	return resp
}

func toSubmitResponse(r *crew.SubmitResult) *dto.SubmitCrewVerificationResponse {
	resp := &dto.SubmitCrewVerificationResponse{
		Outcome:   string(r.Outcome()),
		Requested: r.Requested,
		Succeeded: r.Succeeded,
		Skipped:   r.Skipped,
		Failed:    make([]dto.SubmitFailureResponse, 0, len(r.Failed)),
	}
	for _, f := range r.Failed {
		resp.Failed = append(resp.Failed, dto.SubmitFailureResponse{
			UserID:      f.UserID,
			DisplayName: f.DisplayName,
			Error:       f.Err.Error(),
		})
	}

	switch r.Outcome() {
	case crew.OutcomeCompleted:
		resp.Message = "核验完成，无需更正考勤"
	case crew.OutcomeSubmitted:
		resp.Message = fmt.Sprintf("已提交 %d 条考勤更正申请", r.Succeeded)
	case crew.OutcomePartial:
		resp.Message = fmt.Sprintf("已提交 %d 条考勤更正申请，%d 条失败", r.Succeeded, len(r.Failed))
	case crew.OutcomeFailed:
		resp.Message = "考勤更正申请提交失败，请稍后重试"
	}
	return resp
}

func (s *crewVerificationService) toCorrectionResponse(c *model.TimeCorrectionRequest) dto.CorrectionResponse {
	resp := dto.CorrectionResponse{
		ID:                c.CorrectionID,
		UserID:            c.UserID,
		JobID:             c.JobID,
		Kind:              c.Kind,
		Status:            c.Status,
		ShiftDate:         c.ShiftDate.Format("2006-01-02"),
		RequestedClockIn:  clock.Format(c.RequestedClockIn, s.loc),
		RequestedClockOut: clock.Format(c.RequestedClockOut, s.loc),
		BreakMinutes:      c.BreakMinutes,
		Reason:            c.Reason,
		RequestedBy:       c.RequestedBy,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
	}
	if c.TimeEntryID != nil {
		resp.TimeEntryID = *c.TimeEntryID
	}
	return resp
}
