package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"crewcheck/backend/internal/model"
	"crewcheck/backend/internal/repository"
)

var errMockDB = errors.New("mock db error")

// ── Mock UserRepository ──

type mockUserRepo struct {
	users       map[string]*model.User
	listErr     error
	listByCalls [][]string
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) ListByIDs(_ context.Context, ids []string) ([]model.User, error) {
	m.listByCalls = append(m.listByCalls, append([]string(nil), ids...))
	if m.listErr != nil {
		return nil, m.listErr
	}
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

// ── Mock JobRepository ──

type mockJobRepo struct {
	jobs map[string]*model.Job
}

func newMockJobRepo() *mockJobRepo {
	return &mockJobRepo{jobs: make(map[string]*model.Job)}
}

func (m *mockJobRepo) GetByID(_ context.Context, id string) (*model.Job, error) {
	if j, ok := m.jobs[id]; ok {
		return j, nil
	}
	return nil, gorm.ErrRecordNotFound
}

// ── Mock JobAssignmentRepository ──

type mockJobAssignmentRepo struct {
	users       *mockUserRepo
	assignments []model.JobAssignment
	err         error
}

func newMockJobAssignmentRepo(users *mockUserRepo) *mockJobAssignmentRepo {
	return &mockJobAssignmentRepo{users: users}
}

func (m *mockJobAssignmentRepo) assign(jobID string, userIDs ...string) {
	for _, uid := range userIDs {
		m.assignments = append(m.assignments, model.JobAssignment{
			AssignmentID: fmt.Sprintf("asg-%s-%s", jobID, uid),
			JobID:        jobID,
			UserID:       uid,
			Role:         "crew",
		})
	}
}

func (m *mockJobAssignmentRepo) ListMembers(_ context.Context, jobID, excludeUserID string) ([]model.JobAssignment, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.JobAssignment
	for _, a := range m.assignments {
		if a.JobID != jobID || a.UserID == excludeUserID {
			continue
		}
		a.User = m.users.users[a.UserID]
		result = append(result, a)
	}
	return result, nil
}

// ── Mock TimeEntryRepository ──

type mockTimeEntryRepo struct {
	users   *mockUserRepo
	entries []model.TimeEntry
	err     error
}

func newMockTimeEntryRepo(users *mockUserRepo) *mockTimeEntryRepo {
	return &mockTimeEntryRepo{users: users}
}

func (m *mockTimeEntryRepo) add(id, jobID, userID string, in time.Time, out *time.Time) {
	e := model.TimeEntry{
		TimeEntryID: id,
		JobID:       jobID,
		UserID:      userID,
		ClockIn:     in,
		ClockOut:    out,
		Status:      model.TimeEntryOpen,
	}
	if out != nil {
		e.Status = model.TimeEntryClosed
		e.TotalHours = out.Sub(in).Hours()
	}
	m.entries = append(m.entries, e)
}

func (m *mockTimeEntryRepo) ListOverlapping(_ context.Context, jobID, excludeUserID string, windowStart, windowEnd time.Time) ([]model.TimeEntry, error) {
	if m.err != nil {
		return nil, m.err
	}
	var result []model.TimeEntry
	for _, e := range m.entries {
		if e.JobID != jobID || e.UserID == excludeUserID || e.ClockIn.After(windowEnd) {
			continue
		}
		if e.ClockOut != nil && e.ClockOut.Before(windowStart) {
			continue
		}
		e.User = m.users.users[e.UserID]
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ClockIn.Before(result[j].ClockIn) })
	return result, nil
}

func (m *mockTimeEntryRepo) GetLatestForUser(_ context.Context, jobID, userID string) (*model.TimeEntry, error) {
	var latest *model.TimeEntry
	for i := range m.entries {
		e := &m.entries[i]
		if e.JobID != jobID || e.UserID != userID {
			continue
		}
		if latest == nil || e.ClockIn.After(latest.ClockIn) {
			latest = e
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return latest, nil
}

// ── Mock TimeCorrectionRepository ──

type mockTimeCorrectionRepo struct {
	rows    []*model.TimeCorrectionRequest
	failFor map[string]bool // 按 user_id 注入失败
}

func newMockTimeCorrectionRepo() *mockTimeCorrectionRepo {
	return &mockTimeCorrectionRepo{failFor: make(map[string]bool)}
}

func (m *mockTimeCorrectionRepo) Create(_ context.Context, req *model.TimeCorrectionRequest) error {
	if m.failFor[req.UserID] {
		return errMockDB
	}
	if req.CorrectionID == "" {
		req.CorrectionID = fmt.Sprintf("corr-%d", len(m.rows)+1)
	}
	if req.Status == "" {
		req.Status = model.CorrectionStatusPending
	}
	m.rows = append(m.rows, req)
	return nil
}

func (m *mockTimeCorrectionRepo) ListByJob(_ context.Context, jobID, status string) ([]model.TimeCorrectionRequest, error) {
	var result []model.TimeCorrectionRequest
	for _, r := range m.rows {
		if r.JobID != jobID {
			continue
		}
		if status != "" && r.Status != status {
			continue
		}
		result = append(result, *r)
	}
	return result, nil
}

// ── Mock NotificationRepository ──

type mockNotificationRepo struct {
	notifications []*model.Notification
	err           error
}

func newMockNotificationRepo() *mockNotificationRepo {
	return &mockNotificationRepo{}
}

func (m *mockNotificationRepo) Create(_ context.Context, n *model.Notification) error {
	if m.err != nil {
		return m.err
	}
	m.notifications = append(m.notifications, n)
	return nil
}

// ── 聚合 ──

type mockRepos struct {
	user         *mockUserRepo
	job          *mockJobRepo
	assignment   *mockJobAssignmentRepo
	timeEntry    *mockTimeEntryRepo
	correction   *mockTimeCorrectionRepo
	notification *mockNotificationRepo
}

func newMockRepos() (*repository.Repository, *mockRepos) {
	users := newMockUserRepo()
	m := &mockRepos{
		user:         users,
		job:          newMockJobRepo(),
		assignment:   newMockJobAssignmentRepo(users),
		timeEntry:    newMockTimeEntryRepo(users),
		correction:   newMockTimeCorrectionRepo(),
		notification: newMockNotificationRepo(),
	}
	repo := &repository.Repository{
		User:           m.user,
		Job:            m.job,
		JobAssignment:  m.assignment,
		TimeEntry:      m.timeEntry,
		TimeCorrection: m.correction,
		Notification:   m.notification,
	}
	return repo, m
}
