package service

import (
	"context"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// fakeStore backs every repository mock with maps keyed by ID
type fakeStore struct {
	mu        sync.Mutex
	nextID    int64
	companies map[int64]*entity.Company
	users     map[int64]*entity.User
	workflows map[int64]*entity.WorkflowDefinition
	rules     map[int64]*entity.ConditionalRule
	expenses  map[int64]*entity.Expense
	audit     []*entity.AuditEntry
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextID:    100,
		companies: make(map[int64]*entity.Company),
		users:     make(map[int64]*entity.User),
		workflows: make(map[int64]*entity.WorkflowDefinition),
		rules:     make(map[int64]*entity.ConditionalRule),
		expenses:  make(map[int64]*entity.Expense),
	}
}

func (s *fakeStore) id() int64 {
	s.nextID++
	return s.nextID
}

type mockCompanyRepo struct{ s *fakeStore }

func (m *mockCompanyRepo) Create(ctx context.Context, c *entity.Company) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if c.ID == 0 {
		c.ID = m.s.id()
	}
	cp := *c
	m.s.companies[c.ID] = &cp
	return nil
}

func (m *mockCompanyRepo) GetByID(ctx context.Context, id int64) (*entity.Company, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	c, ok := m.s.companies[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *mockCompanyRepo) List(ctx context.Context) ([]*entity.Company, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*entity.Company, 0, len(m.s.companies))
	for _, c := range m.s.companies {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type mockUserRepo struct{ s *fakeStore }

func (m *mockUserRepo) Create(ctx context.Context, u *entity.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.s.id()
	}
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(ctx context.Context, id int64) (*entity.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	u, ok := m.s.users[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUserRepo) Update(ctx context.Context, u *entity.User) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.users[u.ID]; !ok {
		return port.ErrNotFound
	}
	cp := *u
	m.s.users[u.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, u := range m.s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockUserRepo) ListByCompany(ctx context.Context, companyID int64) ([]*entity.User, error) {
	return m.filter(func(u *entity.User) bool { return u.CompanyID == companyID }), nil
}

func (m *mockUserRepo) ListReports(ctx context.Context, managerID int64) ([]*entity.User, error) {
	return m.filter(func(u *entity.User) bool { return u.ManagerID != nil && *u.ManagerID == managerID }), nil
}

func (m *mockUserRepo) filter(keep func(*entity.User) bool) []*entity.User {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*entity.User, 0)
	for _, u := range m.s.users {
		if keep(u) {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type mockWorkflowRepo struct{ s *fakeStore }

func (m *mockWorkflowRepo) Create(ctx context.Context, wf *entity.WorkflowDefinition) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if wf.ID == 0 {
		wf.ID = m.s.id()
	}
	cp := *wf
	cp.Steps = append([]entity.WorkflowStep(nil), wf.Steps...)
	m.s.workflows[wf.ID] = &cp
	return nil
}

func (m *mockWorkflowRepo) GetByID(ctx context.Context, id int64) (*entity.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	wf, ok := m.s.workflows[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *wf
	return &cp, nil
}

func (m *mockWorkflowRepo) GetActive(ctx context.Context, companyID int64) (*entity.WorkflowDefinition, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	for _, wf := range m.s.workflows {
		if wf.CompanyID == companyID && wf.IsActive {
			cp := *wf
			return &cp, nil
		}
	}
	return nil, port.ErrNotFound
}

func (m *mockWorkflowRepo) Activate(ctx context.Context, companyID, id int64) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if _, ok := m.s.workflows[id]; !ok {
		return port.ErrNotFound
	}
	for _, wf := range m.s.workflows {
		if wf.CompanyID == companyID {
			wf.IsActive = wf.ID == id
		}
	}
	return nil
}

type mockRuleRepo struct{ s *fakeStore }

func (m *mockRuleRepo) Create(ctx context.Context, r *entity.ConditionalRule) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if r.ID == 0 {
		r.ID = m.s.id()
	}
	cp := *r
	m.s.rules[r.ID] = &cp
	return nil
}

func (m *mockRuleRepo) GetByID(ctx context.Context, id int64) (*entity.ConditionalRule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.rules[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *mockRuleRepo) ListByCompany(ctx context.Context, companyID int64, activeOnly bool) ([]*entity.ConditionalRule, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*entity.ConditionalRule, 0)
	for _, r := range m.s.rules {
		if r.CompanyID == companyID && (!activeOnly || r.IsActive) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockRuleRepo) SetActive(ctx context.Context, id int64, active bool) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	r, ok := m.s.rules[id]
	if !ok {
		return port.ErrNotFound
	}
	r.IsActive = active
	return nil
}

type mockExpenseRepo struct {
	s          *fakeStore
	createFunc func(ctx context.Context, e *entity.Expense) error
}

func (m *mockExpenseRepo) Create(ctx context.Context, e *entity.Expense) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, e)
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	if e.ID == 0 {
		e.ID = m.s.id()
	}
	cp := *e
	m.s.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) GetByID(ctx context.Context, id int64) (*entity.Expense, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	e, ok := m.s.expenses[id]
	if !ok {
		return nil, port.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *mockExpenseRepo) Update(ctx context.Context, e *entity.Expense) error {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	cp := *e
	m.s.expenses[e.ID] = &cp
	return nil
}

func (m *mockExpenseRepo) List(ctx context.Context, f port.ExpenseFilter) ([]*entity.Expense, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	submitters := make(map[int64]bool, len(f.SubmitterIDs))
	for _, id := range f.SubmitterIDs {
		submitters[id] = true
	}

	out := make([]*entity.Expense, 0)
	for _, e := range m.s.expenses {
		if f.CompanyID != 0 && e.CompanyID != f.CompanyID {
			continue
		}
		if len(submitters) > 0 && !submitters[e.SubmitterID] {
			continue
		}
		if f.Status != "" && e.Status != f.Status {
			continue
		}
		if !f.UpdatedBefore.IsZero() && !e.UpdatedAt.Before(f.UpdatedBefore) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

type mockAuditRepo struct {
	s          *fakeStore
	createFunc func(ctx context.Context, entry *entity.AuditEntry) error
}

func (m *mockAuditRepo) Create(ctx context.Context, entry *entity.AuditEntry) error {
	if m.createFunc != nil {
		return m.createFunc(ctx, entry)
	}
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	entry.ID = m.s.id()
	m.s.audit = append(m.s.audit, entry)
	return nil
}

func (m *mockAuditRepo) ListByExpense(ctx context.Context, expenseID int64) ([]*entity.AuditEntry, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	out := make([]*entity.AuditEntry, 0)
	for _, e := range m.s.audit {
		if e.ExpenseID == expenseID {
			out = append(out, e)
		}
	}
	return out, nil
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

type mockRateProvider struct {
	rateFunc func(ctx context.Context, from, to string) (decimal.Decimal, error)
}

func (m *mockRateProvider) Rate(ctx context.Context, from, to string) (decimal.Decimal, error) {
	if m.rateFunc != nil {
		return m.rateFunc(ctx, from, to)
	}
	return decimal.NewFromInt(1), nil
}

type mockNotifier struct {
	mu         sync.Mutex
	sent       []port.Notification
	notifyFunc func(ctx context.Context, n port.Notification) error
}

func (m *mockNotifier) Notify(ctx context.Context, n port.Notification) error {
	if m.notifyFunc != nil {
		if err := m.notifyFunc(ctx, n); err != nil {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) recipients() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, len(m.sent))
	for i, n := range m.sent {
		ids[i] = n.Recipient.ID
	}
	return ids
}

type mockStorage struct {
	files    map[string][]byte
	saveFunc func(ctx context.Context, path string, content []byte) error
}

func (m *mockStorage) Save(ctx context.Context, path string, content []byte) error {
	if m.saveFunc != nil {
		return m.saveFunc(ctx, path, content)
	}
	if m.files == nil {
		m.files = make(map[string][]byte)
	}
	m.files[path] = content
	return nil
}

func (m *mockStorage) Read(ctx context.Context, path string) ([]byte, error) {
	content, ok := m.files[path]
	if !ok {
		return nil, port.ErrNotFound
	}
	return content, nil
}

func (m *mockStorage) Exists(ctx context.Context, path string) bool {
	_, ok := m.files[path]
	return ok
}

func (m *mockStorage) GetFullPath(relativePath string) string {
	return "/archive/" + relativePath
}

type mockLogger struct{}

func (m *mockLogger) Info(msg string, keysAndValues ...interface{})  {}
func (m *mockLogger) Error(msg string, keysAndValues ...interface{}) {}

// seedTeam stores company 1 (USD) with admin 1, manager 2 and employee 3
// reporting to the manager, plus an active [Manager, Admin] workflow 10
func seedTeam(s *fakeStore) {
	manager := int64(2)
	managerRole := entity.RoleManager
	adminRole := entity.RoleAdmin

	s.companies[1] = &entity.Company{ID: 1, Name: "Acme", DefaultCurrency: "USD"}
	s.users[1] = &entity.User{ID: 1, CompanyID: 1, FullName: "Ada Admin", Email: "ada@acme.test", Role: entity.RoleAdmin}
	s.users[2] = &entity.User{ID: 2, CompanyID: 1, FullName: "Max Manager", Email: "max@acme.test", Role: entity.RoleManager}
	s.users[3] = &entity.User{
		ID:                3,
		CompanyID:         1,
		FullName:          "Eve Employee",
		Email:             "eve@acme.test",
		Role:              entity.RoleEmployee,
		ManagerID:         &manager,
		IsManagerApprover: true,
	}
	s.workflows[10] = &entity.WorkflowDefinition{
		ID:        10,
		CompanyID: 1,
		Name:      "standard",
		IsActive:  true,
		Steps: []entity.WorkflowStep{
			{Sequence: 1, ApproverRole: &managerRole},
			{Sequence: 2, ApproverRole: &adminRole},
		},
	}
}
