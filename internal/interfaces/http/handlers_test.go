package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/application/workflow"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	domainwf "github.com/garyjia/expenseflow/internal/domain/workflow"
)

type testDeps struct {
	admin   *mockAdmin
	expense *mockExpense
	audit   *mockAudit
	report  *mockReport
	engine  *mockEngine
	logger  *mockLogger
	health  HealthChecker
}

func newTestDeps() *testDeps {
	return &testDeps{
		admin:   &mockAdmin{},
		expense: &mockExpense{},
		audit:   &mockAudit{},
		report:  &mockReport{},
		engine:  &mockEngine{},
		logger:  &mockLogger{},
	}
}

func (d *testDeps) router() *gin.Engine {
	srv := NewServer(ServerConfig{Mode: gin.TestMode}, Dependencies{
		Admin:   d.admin,
		Expense: d.expense,
		Audit:   d.audit,
		Report:  d.report,
		Engine:  d.engine,
		Health:  d.health,
	}, d.logger)
	return srv.Router()
}

func do(t *testing.T, r *gin.Engine, method, path string, body interface{}) (*httptest.ResponseRecorder, Response) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, isString := body.(string); isString {
			buf.WriteString(raw)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var resp Response
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	}
	return w, resp
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", entity.ErrValidation), http.StatusBadRequest},
		{domainwf.ErrInvalidDecision, http.StatusBadRequest},
		{domainwf.ErrNotAuthorized, http.StatusForbidden},
		{fmt.Errorf("expense 9: %w", port.ErrNotFound), http.StatusNotFound},
		{domainwf.ErrDuplicateDecision, http.StatusConflict},
		{domainwf.ErrTerminalState, http.StatusConflict},
		{domainwf.ErrInvalidState, http.StatusConflict},
		{port.ErrAlreadyExists, http.StatusConflict},
		{domainwf.ErrStepNotFound, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}

func TestHealthCheck(t *testing.T) {
	d := newTestDeps()
	w, resp := do(t, d.router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, resp.Success)

	d.health = func(ctx context.Context) (bool, interface{}) { return false, map[string]string{"database": "down"} }
	w, resp = do(t, d.router(), http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.False(t, resp.Success)
}

func TestCreateCompany(t *testing.T) {
	tests := []struct {
		name       string
		body       interface{}
		serviceErr error
		wantStatus int
	}{
		{"created", CreateCompanyRequest{Name: "Acme", DefaultCurrency: "USD"}, nil, http.StatusCreated},
		{"missing fields", map[string]string{"name": "Acme"}, nil, http.StatusBadRequest},
		{"malformed json", "{", nil, http.StatusBadRequest},
		{"service validation", CreateCompanyRequest{Name: "Acme", DefaultCurrency: "EURO"}, entity.ErrValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			d.admin.createCompanyFunc = func(ctx context.Context, company *entity.Company) error {
				company.ID = 5
				return tt.serviceErr
			}

			w, resp := do(t, d.router(), http.MethodPost, "/api/v1/companies", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantStatus == http.StatusCreated, resp.Success)
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	d := newTestDeps()
	d.admin.createUserFunc = func(ctx context.Context, user *entity.User) error {
		return fmt.Errorf("create user: %w", port.ErrAlreadyExists)
	}

	w, resp := do(t, d.router(), http.MethodPost, "/api/v1/users", CreateUserRequest{
		CompanyID: 1, FullName: "Bob", Email: "bob@acme.test", Role: entity.RoleEmployee,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, resp.Error, "already exists")
}

func TestCreateWorkflow_UsesPathCompany(t *testing.T) {
	d := newTestDeps()
	var got *entity.WorkflowDefinition
	d.admin.createWorkflowFunc = func(ctx context.Context, wf *entity.WorkflowDefinition) error {
		got = wf
		return nil
	}

	manager := entity.RoleManager
	approver := int64(4)
	w, _ := do(t, d.router(), http.MethodPost, "/api/v1/companies/3/workflows", CreateWorkflowRequest{
		Name: "standard",
		Steps: []WorkflowStepRequest{
			{Sequence: 1, ApproverRole: &manager},
			{Sequence: 2, ApproverSpecificID: &approver},
		},
	})

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(3), got.CompanyID)
	require.Len(t, got.Steps, 2)
	assert.Equal(t, entity.RoleManager, *got.Steps[0].ApproverRole)
	assert.Equal(t, int64(4), *got.Steps[1].ApproverSpecificID)

	w, _ = do(t, d.router(), http.MethodPost, "/api/v1/companies/3/workflows", map[string]interface{}{"name": "empty", "steps": []interface{}{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateRule_DefaultsActive(t *testing.T) {
	d := newTestDeps()
	var got *entity.ConditionalRule
	d.admin.createRuleFunc = func(ctx context.Context, rule *entity.ConditionalRule) error {
		got = rule
		return nil
	}

	w, _ := do(t, d.router(), http.MethodPost, "/api/v1/companies/1/rules",
		`{"type":"Threshold","threshold_amount":"5000","target_workflow_step":1}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, got)
	assert.True(t, got.IsActive)
	assert.Equal(t, "5000", got.ThresholdAmount.String())
	assert.Equal(t, 1, *got.TargetWorkflowStep)
}

func TestSetRuleActive(t *testing.T) {
	d := newTestDeps()

	w, _ := do(t, d.router(), http.MethodPut, "/api/v1/rules/7/active", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, resp := do(t, d.router(), http.MethodPut, "/api/v1/rules/7/active", `{"active":false}`)
	require.Equal(t, http.StatusOK, w.Code)
	data := resp.Data.(map[string]interface{})
	assert.Equal(t, false, data["is_active"])
}

func TestCreateExpense(t *testing.T) {
	d := newTestDeps()
	var got service.DraftRequest
	d.expense.createDraftFunc = func(ctx context.Context, req service.DraftRequest) (*entity.Expense, error) {
		got = req
		return &entity.Expense{ID: 11, Status: entity.ExpenseStatusDraft}, nil
	}

	w, _ := do(t, d.router(), http.MethodPost, "/api/v1/expenses",
		`{"submitter_id":3,"description":"taxi","amount":"42.50","currency":"EUR","expense_date":"2026-03-14"}`)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, int64(3), got.SubmitterID)
	assert.Equal(t, "42.5", got.Amount.String())
	assert.True(t, got.ExpenseDate.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)))

	w, resp := do(t, d.router(), http.MethodPost, "/api/v1/expenses",
		`{"submitter_id":3,"amount":"1","currency":"EUR","expense_date":"14/03/2026"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, resp.Error, "expense_date")
}

func TestSubmitExpense(t *testing.T) {
	d := newTestDeps()
	d.engine.submitFunc = func(ctx context.Context, expenseID, actorID int64) (*entity.Expense, error) {
		if actorID != 3 {
			return nil, domainwf.ErrNotAuthorized
		}
		return &entity.Expense{ID: expenseID, Status: entity.ExpenseStatusPending}, nil
	}

	w, _ := do(t, d.router(), http.MethodPost, "/api/v1/expenses/9/submit", SubmitExpenseRequest{ActorID: 3})
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(t, d.router(), http.MethodPost, "/api/v1/expenses/9/submit", SubmitExpenseRequest{ActorID: 4})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRecordDecision_ErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{"recorded", nil, http.StatusOK, ""},
		{"duplicate", domainwf.ErrDuplicateDecision, http.StatusConflict, "step already decided"},
		{"terminal", domainwf.ErrTerminalState, http.StatusConflict, "terminal"},
		{"bad decision", domainwf.ErrInvalidDecision, http.StatusBadRequest, "invalid decision"},
		{"missing expense", fmt.Errorf("expense 9: %w", port.ErrNotFound), http.StatusNotFound, "not found"},
		{"internal", errors.New("database is locked"), http.StatusInternalServerError, "internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			var got workflow.DecisionRequest
			d.engine.decisionFunc = func(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error) {
				got = req
				if tt.err != nil {
					return nil, tt.err
				}
				return &workflow.DecisionResult{Terminal: true}, nil
			}

			w, resp := do(t, d.router(), http.MethodPost, "/api/v1/expenses/9/decisions", DecisionBody{
				ApproverID: 2, Decision: entity.DecisionApproved, Comments: "ok",
			})

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, int64(9), got.ExpenseID)
			assert.Equal(t, int64(2), got.ApproverID)
			if tt.wantError != "" {
				assert.Contains(t, resp.Error, tt.wantError)
			}
			if tt.wantStatus == http.StatusInternalServerError {
				assert.NotContains(t, resp.Error, "locked")
				assert.NotEmpty(t, d.logger.errors)
			}
		})
	}
}

func TestAdminOverride_UsesOverridePath(t *testing.T) {
	d := newTestDeps()
	overridden := false
	d.engine.overrideFunc = func(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error) {
		overridden = true
		return &workflow.DecisionResult{}, nil
	}
	d.engine.decisionFunc = func(ctx context.Context, req workflow.DecisionRequest) (*workflow.DecisionResult, error) {
		t.Fatal("override must not go through RecordDecision")
		return nil, nil
	}

	w, _ := do(t, d.router(), http.MethodPost, "/api/v1/expenses/9/override", DecisionBody{ApproverID: 1, Decision: entity.DecisionRejected})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, overridden)
}

func TestGetHistory_UnknownExpense(t *testing.T) {
	d := newTestDeps()
	d.expense.getExpenseFunc = func(ctx context.Context, id int64) (*entity.Expense, error) {
		return nil, port.ErrNotFound
	}

	w, _ := do(t, d.router(), http.MethodGet, "/api/v1/expenses/404/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestReadEndpoints(t *testing.T) {
	d := newTestDeps()
	r := d.router()

	for _, path := range []string{
		"/api/v1/companies/1",
		"/api/v1/companies/1/users",
		"/api/v1/companies/1/workflows/active",
		"/api/v1/companies/1/rules",
		"/api/v1/users/2",
		"/api/v1/expenses/9",
		"/api/v1/expenses/9/status",
		"/api/v1/expenses/9/history",
		"/api/v1/managers/2/dashboard",
		"/api/v1/approvers/2/pending",
	} {
		t.Run(path, func(t *testing.T) {
			w, resp := do(t, r, http.MethodGet, path, nil)
			assert.Equal(t, http.StatusOK, w.Code)
			assert.True(t, resp.Success)
		})
	}
}

func TestInvalidPathID(t *testing.T) {
	d := newTestDeps()
	for _, path := range []string{"/api/v1/expenses/abc", "/api/v1/expenses/0/status", "/api/v1/companies/-1/users"} {
		w, _ := do(t, d.router(), http.MethodGet, path, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
}

func TestExportLedger(t *testing.T) {
	d := newTestDeps()
	d.report.ledgerFunc = func(ctx context.Context, companyID int64) ([]byte, error) {
		return []byte("xlsx-bytes"), nil
	}

	w, _ := do(t, d.router(), http.MethodGet, "/api/v1/companies/1/report.xlsx", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, xlsxContentType, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "ledger_company_1.xlsx")
	assert.Equal(t, "xlsx-bytes", w.Body.String())

	d.report.ledgerFunc = func(ctx context.Context, companyID int64) ([]byte, error) {
		return nil, port.ErrNotFound
	}
	w, _ = do(t, d.router(), http.MethodGet, "/api/v1/companies/2/report.xlsx", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestArchiveLedger(t *testing.T) {
	d := newTestDeps()

	w, resp := do(t, d.router(), http.MethodPost, "/api/v1/companies/1/report/archive", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "/archive/ledger.xlsx", resp.Data.(map[string]interface{})["path"])
}

func TestRecovery(t *testing.T) {
	d := newTestDeps()
	d.engine.getStatusFunc = func(ctx context.Context, expenseID int64) (*workflow.StatusView, error) {
		panic("boom")
	}

	w, resp := do(t, d.router(), http.MethodGet, "/api/v1/expenses/1/status", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "internal error", resp.Error)
}

func TestUpdateUser(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		serviceErr error
		wantStatus int
	}{
		{"reassign manager", `{"actor_id":1,"manager_id":7,"role":"Manager"}`, nil, http.StatusOK},
		{"missing actor", `{"manager_id":7}`, nil, http.StatusBadRequest},
		{"actor is not an admin", `{"actor_id":2,"role":"Admin"}`, domainwf.ErrNotAuthorized, http.StatusForbidden},
		{"cycle in manager chain", `{"actor_id":1,"manager_id":3}`, entity.ErrValidation, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newTestDeps()
			var got service.UserUpdate
			var gotID int64
			d.admin.updateUserFunc = func(ctx context.Context, id int64, update service.UserUpdate) (*entity.User, error) {
				gotID, got = id, update
				if tt.serviceErr != nil {
					return nil, tt.serviceErr
				}
				return &entity.User{ID: id, ManagerID: update.ManagerID}, nil
			}

			w, _ := do(t, d.router(), http.MethodPut, "/api/v1/users/9", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.name == "reassign manager" {
				assert.Equal(t, int64(9), gotID)
				assert.Equal(t, int64(1), got.ActorID)
				require.NotNil(t, got.ManagerID)
				assert.Equal(t, int64(7), *got.ManagerID)
				require.NotNil(t, got.Role)
				assert.Equal(t, entity.RoleManager, *got.Role)
				assert.Nil(t, got.FullName)
			}
		})
	}
}
