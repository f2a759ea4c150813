package service

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/opticorai/taskeval/internal/application/port"
	"github.com/opticorai/taskeval/internal/domain/entity"
	"github.com/opticorai/taskeval/internal/domain/event"
)

// Mock repositories

type mockTaskRepo struct {
	tasks        map[int64]*entity.Task
	updated      []*entity.Task
	statusWrites map[int64]string
	fileWrites   map[int64]string

	listFunc     func(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error)
	progressFunc func(ctx context.Context, employeeID int64, from, to time.Time) ([]*entity.Task, error)
	updateFunc   func(ctx context.Context, task *entity.Task) error
}

func newMockTaskRepo(tasks ...*entity.Task) *mockTaskRepo {
	m := &mockTaskRepo{tasks: map[int64]*entity.Task{}, statusWrites: map[int64]string{}, fileWrites: map[int64]string{}}
	for _, t := range tasks {
		m.tasks[t.ID] = t
	}
	return m
}

func (m *mockTaskRepo) Create(ctx context.Context, task *entity.Task) error {
	task.ID = int64(len(m.tasks) + 1)
	m.tasks[task.ID] = task
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id int64) (*entity.Task, error) {
	t, ok := m.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (m *mockTaskRepo) List(ctx context.Context, filter entity.TaskFilter) ([]*entity.Task, error) {
	if m.listFunc != nil {
		return m.listFunc(ctx, filter)
	}
	return []*entity.Task{}, nil
}

func (m *mockTaskRepo) ListEvaluatedForProgress(ctx context.Context, employeeID int64, from, to time.Time) ([]*entity.Task, error) {
	if m.progressFunc != nil {
		return m.progressFunc(ctx, employeeID, from, to)
	}
	return []*entity.Task{}, nil
}

func (m *mockTaskRepo) Update(ctx context.Context, task *entity.Task) error {
	if m.updateFunc != nil {
		return m.updateFunc(ctx, task)
	}
	cp := *task
	m.tasks[task.ID] = &cp
	m.updated = append(m.updated, &cp)
	return nil
}

func (m *mockTaskRepo) UpdateStatus(ctx context.Context, id int64, status string) error {
	m.statusWrites[id] = status
	return nil
}

func (m *mockTaskRepo) UpdateFileUpload(ctx context.Context, id int64, path string) error {
	t, ok := m.tasks[id]
	if !ok {
		return entity.ErrTaskNotFound
	}
	t.FileUpload = path
	m.fileWrites[id] = path
	return nil
}

type mockUserRepo struct {
	users map[int64]*entity.User
}

func newMockUserRepo(users ...*entity.User) *mockUserRepo {
	m := &mockUserRepo{users: map[int64]*entity.User{}}
	for _, u := range users {
		m.users[u.ID] = u
	}
	return m
}

func (m *mockUserRepo) Create(ctx context.Context, user *entity.User) error {
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	return u, nil
}

func (m *mockUserRepo) ListSupervisedBy(ctx context.Context, managerID int64) ([]*entity.User, error) {
	var out []*entity.User
	for id := int64(1); id <= int64(len(m.users))+10; id++ {
		if u, ok := m.users[id]; ok && u.UnderSupervisionID != nil && *u.UnderSupervisionID == managerID {
			out = append(out, u)
		}
	}
	return out, nil
}

type mockQualityRepo struct {
	qualities map[int64]*entity.QualityType
	upserted  []string
}

func (m *mockQualityRepo) GetByID(ctx context.Context, id int64) (*entity.QualityType, error) {
	q, ok := m.qualities[id]
	if !ok {
		return nil, nil
	}
	return q, nil
}

func (m *mockQualityRepo) List(ctx context.Context) ([]*entity.QualityType, error) {
	return nil, nil
}

func (m *mockQualityRepo) UpsertByName(ctx context.Context, q *entity.QualityType) error {
	m.upserted = append(m.upserted, q.Name)
	return nil
}

type mockPriorityRepo struct {
	priorities map[int64]*entity.PriorityType
	upserted   []string
	upsertFunc func(ctx context.Context, p *entity.PriorityType) error
}

func (m *mockPriorityRepo) GetByID(ctx context.Context, id int64) (*entity.PriorityType, error) {
	p, ok := m.priorities[id]
	if !ok {
		return nil, nil
	}
	return p, nil
}

func (m *mockPriorityRepo) List(ctx context.Context) ([]*entity.PriorityType, error) {
	return nil, nil
}

func (m *mockPriorityRepo) UpsertByName(ctx context.Context, p *entity.PriorityType) error {
	if m.upsertFunc != nil {
		return m.upsertFunc(ctx, p)
	}
	m.upserted = append(m.upserted, p.Name)
	return nil
}

type mockSettingsRepo struct {
	stored *entity.EvaluationSettings
	saves  int
}

func (m *mockSettingsRepo) Get(ctx context.Context) (*entity.EvaluationSettings, error) {
	if m.stored == nil {
		return nil, nil
	}
	cp := *m.stored
	return &cp, nil
}

func (m *mockSettingsRepo) Save(ctx context.Context, settings *entity.EvaluationSettings) error {
	cp := *settings
	m.stored = &cp
	m.saves++
	return nil
}

type mockKPIRepo struct {
	kpis    map[int64]*entity.KPI
	created []*entity.KPI
	updated []*entity.KPI
}

func newMockKPIRepo(kpis ...*entity.KPI) *mockKPIRepo {
	m := &mockKPIRepo{kpis: map[int64]*entity.KPI{}}
	for _, k := range kpis {
		m.kpis[k.ID] = k
	}
	return m
}

func (m *mockKPIRepo) Create(ctx context.Context, kpi *entity.KPI) error {
	kpi.ID = int64(len(m.kpis) + 100)
	m.kpis[kpi.ID] = kpi
	m.created = append(m.created, kpi)
	return nil
}

func (m *mockKPIRepo) GetByID(ctx context.Context, id int64) (*entity.KPI, error) {
	k, ok := m.kpis[id]
	if !ok {
		return nil, nil
	}
	cp := *k
	return &cp, nil
}

func (m *mockKPIRepo) Update(ctx context.Context, kpi *entity.KPI) error {
	m.kpis[kpi.ID] = kpi
	m.updated = append(m.updated, kpi)
	return nil
}

func (m *mockKPIRepo) ListActiveByManager(ctx context.Context, managerID int64) ([]entity.KPI, error) {
	var out []entity.KPI
	for id := int64(1); id <= 1000; id++ {
		if k, ok := m.kpis[id]; ok && k.IsActive && k.CreatedByID == managerID {
			out = append(out, *k)
		}
	}
	return out, nil
}

func (m *mockKPIRepo) SumActiveWeight(ctx context.Context, managerID, excludeID int64) (float64, error) {
	var total float64
	for id, k := range m.kpis {
		if id != excludeID && k.IsActive && k.CreatedByID == managerID {
			total += k.Weight
		}
	}
	return total, nil
}

type mockProgressRepo struct {
	cached   map[int64]*entity.EmployeeProgress
	upserted []*entity.EmployeeProgress
}

func (m *mockProgressRepo) Get(ctx context.Context, employeeID, managerID int64, period entity.Period) (*entity.EmployeeProgress, error) {
	if p, ok := m.cached[employeeID]; ok {
		return p, nil
	}
	return nil, nil
}

func (m *mockProgressRepo) Upsert(ctx context.Context, p *entity.EmployeeProgress) error {
	m.upserted = append(m.upserted, p)
	return nil
}

func (m *mockProgressRepo) ListByManager(ctx context.Context, managerID int64, period entity.Period) ([]*entity.EmployeeProgress, error) {
	return m.upserted, nil
}

type mockNotificationRepo struct {
	created    []*entity.Notification
	createFunc func(ctx context.Context, n *entity.Notification) error
}

func (m *mockNotificationRepo) Create(ctx context.Context, n *entity.Notification) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, n)
	}
	n.ID = int64(len(m.created) + 1)
	m.created = append(m.created, n)
	return nil
}

func (m *mockNotificationRepo) ListByRecipient(ctx context.Context, recipientID int64, limit int) ([]*entity.Notification, error) {
	return m.created, nil
}

func (m *mockNotificationRepo) MarkRead(ctx context.Context, id, recipientID int64) error {
	for _, n := range m.created {
		if n.ID == id && n.RecipientID == recipientID {
			n.Read = true
			return nil
		}
	}
	return entity.ErrNotificationNotFound
}

type mockReminderRepo struct {
	due     []*entity.TaskReminder
	created []*entity.TaskReminder
	sent    map[int64]time.Time
}

func (m *mockReminderRepo) Create(ctx context.Context, r *entity.TaskReminder) error {
	r.ID = int64(len(m.created) + 1)
	m.created = append(m.created, r)
	return nil
}

func (m *mockReminderRepo) ListDue(ctx context.Context, day time.Time) ([]*entity.TaskReminder, error) {
	return m.due, nil
}

func (m *mockReminderRepo) MarkSent(ctx context.Context, id int64, sentAt time.Time) error {
	if m.sent == nil {
		m.sent = map[int64]time.Time{}
	}
	m.sent[id] = sentAt
	return nil
}

type mockTxManager struct {
	withTransactionFunc func(ctx context.Context, fn func(ctx context.Context) error) error
}

func (m *mockTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if m.withTransactionFunc != nil {
		return m.withTransactionFunc(ctx, fn)
	}
	return fn(ctx)
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// recordingLogger keeps messages for assertions
type recordingLogger struct {
	mu     sync.Mutex
	infos  []string
	errors []string
}

func (r *recordingLogger) Info(msg string, keysAndValues ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, msg)
}

func (r *recordingLogger) Error(msg string, keysAndValues ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, msg)
}

func (r *recordingLogger) hasInfo(msg string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.infos {
		if m == msg {
			return true
		}
	}
	return false
}

// fakeClock is fixed at a business-local instant
type fakeClock struct {
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock {
	return &fakeClock{now: now}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Today() time.Time {
	y, m, d := c.now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (c *fakeClock) Location() *time.Location { return c.now.Location() }

type mockPublisher struct {
	events       []*event.Event
	dispatchFunc func(ctx context.Context, evt *event.Event) error
}

func (m *mockPublisher) Dispatch(ctx context.Context, evt *event.Event) error {
	m.events = append(m.events, evt)
	if m.dispatchFunc != nil {
		return m.dispatchFunc(ctx, evt)
	}
	return nil
}

func (m *mockPublisher) types() []event.Type {
	out := make([]event.Type, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Type)
	}
	return out
}

type sentMail struct {
	to, subject, body string
}

type mockMailer struct {
	sent []sentMail
	err  error
}

func (m *mockMailer) Send(ctx context.Context, to, subject, body string) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return nil
}

type mockMessenger struct {
	sent map[string]string
	err  error
}

func (m *mockMessenger) SendText(ctx context.Context, openID, text string) error {
	if m.err != nil {
		return m.err
	}
	if m.sent == nil {
		m.sent = map[string]string{}
	}
	m.sent[openID] = text
	return nil
}

type mockMetrics struct {
	evaluations   map[string]int
	progress      []float64
	notifications map[string]int
	statusUpdates int
}

func newMockMetrics() *mockMetrics {
	return &mockMetrics{evaluations: map[string]int{}, notifications: map[string]int{}}
}

func (m *mockMetrics) ObserveEvaluation(kind string, finalScore float64) { m.evaluations[kind]++ }
func (m *mockMetrics) ObserveProgress(score float64)                     { m.progress = append(m.progress, score) }
func (m *mockMetrics) SetStatusUpdates(n int)                            { m.statusUpdates = n }

func (m *mockMetrics) ObserveNotification(channel string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.notifications[channel+":"+result]++
}

// mockNotifier records Notify calls
type mockNotifier struct {
	calls      []notifyCall
	notifyFunc func(ctx context.Context, recipientID int64, senderID *int64, message, link string) error
}

type notifyCall struct {
	recipientID int64
	senderID    *int64
	message     string
	link        string
}

func (m *mockNotifier) Notify(ctx context.Context, recipientID int64, senderID *int64, message, link string) (*entity.Notification, error) {
	if m.notifyFunc != nil {
		if err := m.notifyFunc(ctx, recipientID, senderID, message, link); err != nil {
			return nil, err
		}
	}
	m.calls = append(m.calls, notifyCall{recipientID: recipientID, senderID: senderID, message: message, link: link})
	return &entity.Notification{ID: int64(len(m.calls)), RecipientID: recipientID, Message: message, Link: link}, nil
}

func (m *mockNotifier) ListForUser(ctx context.Context, userID int64, limit int) ([]*entity.Notification, error) {
	return nil, nil
}

func (m *mockNotifier) MarkRead(ctx context.Context, userID, id int64) error {
	return nil
}

type mockStorage struct {
	files   map[string][]byte
	deleted []string
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	return m.files[path], nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) Delete(ctx context.Context, path string) error {
	m.deleted = append(m.deleted, path)
	delete(m.files, path)
	return nil
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/uploads/" + relativePath
}

type mockInspector struct {
	pages int
	err   error
}

func (m *mockInspector) PageCount(content []byte) (int, error) {
	return m.pages, m.err
}

type mockReportWriter struct {
	format  string
	written *port.ProgressReport
}

func (m *mockReportWriter) Format() string      { return m.format }
func (m *mockReportWriter) ContentType() string { return "application/test" }

func (m *mockReportWriter) Write(w io.Writer, report *port.ProgressReport) error {
	m.written = report
	_, err := io.WriteString(w, "report")
	return err
}

// Fixtures

func int64Ptr(v int64) *int64       { return &v }
func float64Ptr(v float64) *float64 { return &v }

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

const (
	managerID  int64 = 1
	employeeID int64 = 2
	outsiderID int64 = 3
	adminID    int64 = 4
)

func testUsers() *mockUserRepo {
	return newMockUserRepo(
		&entity.User{ID: managerID, Username: "mgr", FirstName: "Maya", LastName: "Lee", Email: "maya@example.com", UserType: entity.RoleManager, IsActive: true},
		&entity.User{ID: employeeID, Username: "emp", FirstName: "Sam", LastName: "Ortiz", Email: "sam@example.com", UserType: entity.RoleEmployee, UnderSupervisionID: int64Ptr(managerID), LarkOpenID: "ou_sam", IsActive: true},
		&entity.User{ID: outsiderID, Username: "other", UserType: entity.RoleManager, IsActive: true},
		&entity.User{ID: adminID, Username: "admin", UserType: entity.RoleAdmin, IsActive: true},
	)
}

func testQualities() *mockQualityRepo {
	return &mockQualityRepo{qualities: map[int64]*entity.QualityType{
		1: {ID: 1, Name: "Good", Percentage: 80},
		2: {ID: 2, Name: "Exceptional", Percentage: 100},
	}}
}

func testPriorities() *mockPriorityRepo {
	return &mockPriorityRepo{priorities: map[int64]*entity.PriorityType{
		1: {ID: 1, Name: "Low", Multiplier: 1.0},
		3: {ID: 3, Name: "High", Multiplier: 1.2},
	}}
}
