package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/application/workflow"
	"github.com/garyjia/expenseflow/internal/domain/entity"
)

// xlsxContentType is the MIME type of the ledger export
const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// HealthChecker reports whether the process dependencies are usable
type HealthChecker func(ctx context.Context) (healthy bool, detail interface{})

// Dependencies are the application components the handlers call
type Dependencies struct {
	Admin   service.AdminService
	Expense service.ExpenseService
	Audit   service.AuditService
	Report  service.ReportService
	Engine  workflow.ApprovalEngine
	Health  HealthChecker
}

// Handlers contains all HTTP request handlers
type Handlers struct {
	deps   Dependencies
	logger Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(deps Dependencies, logger Logger) *Handlers {
	return &Handlers{deps: deps, logger: logger}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp string      `json:"timestamp"`
	Detail    interface{} `json:"detail,omitempty"`
}

// HealthCheck handles GET /health
func (h *Handlers) HealthCheck(c *gin.Context) {
	resp := HealthResponse{Status: "healthy", Timestamp: time.Now().UTC().Format(time.RFC3339)}
	if h.deps.Health == nil {
		ok(c, http.StatusOK, resp)
		return
	}

	healthy, detail := h.deps.Health(c.Request.Context())
	resp.Detail = detail
	if !healthy {
		resp.Status = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, Response{Success: false, Data: resp, Error: "unhealthy"})
		return
	}
	ok(c, http.StatusOK, resp)
}

// CreateCompany handles POST /api/v1/companies
func (h *Handlers) CreateCompany(c *gin.Context) {
	var req CreateCompanyRequest
	if !h.bind(c, &req) {
		return
	}
	company := &entity.Company{Name: req.Name, DefaultCurrency: req.DefaultCurrency}
	if err := h.deps.Admin.CreateCompany(c.Request.Context(), company); err != nil {
		h.respondError(c, "create company", err)
		return
	}
	ok(c, http.StatusCreated, company)
}

// GetCompany handles GET /api/v1/companies/:id
func (h *Handlers) GetCompany(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	company, err := h.deps.Admin.GetCompany(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get company", err)
		return
	}
	ok(c, http.StatusOK, company)
}

// CreateUser handles POST /api/v1/users
func (h *Handlers) CreateUser(c *gin.Context) {
	var req CreateUserRequest
	if !h.bind(c, &req) {
		return
	}
	user := req.toEntity()
	if err := h.deps.Admin.CreateUser(c.Request.Context(), user); err != nil {
		h.respondError(c, "create user", err)
		return
	}
	ok(c, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/users/:id
func (h *Handlers) GetUser(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	user, err := h.deps.Admin.GetUser(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get user", err)
		return
	}
	ok(c, http.StatusOK, user)
}

// UpdateUser handles PUT /api/v1/users/:id
func (h *Handlers) UpdateUser(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var req UpdateUserRequest
	if !h.bind(c, &req) {
		return
	}
	user, err := h.deps.Admin.UpdateUser(c.Request.Context(), id, req.toUpdate())
	if err != nil {
		h.respondError(c, "update user", err)
		return
	}
	ok(c, http.StatusOK, user)
}

// ListUsers handles GET /api/v1/companies/:id/users
func (h *Handlers) ListUsers(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	users, err := h.deps.Admin.ListUsers(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, "list users", err)
		return
	}
	ok(c, http.StatusOK, users)
}

// CreateWorkflow handles POST /api/v1/companies/:id/workflows
func (h *Handlers) CreateWorkflow(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var req CreateWorkflowRequest
	if !h.bind(c, &req) {
		return
	}
	wf := req.toEntity(companyID)
	if err := h.deps.Admin.CreateWorkflow(c.Request.Context(), wf); err != nil {
		h.respondError(c, "create workflow", err)
		return
	}
	ok(c, http.StatusCreated, wf)
}

// GetActiveWorkflow handles GET /api/v1/companies/:id/workflows/active
func (h *Handlers) GetActiveWorkflow(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	wf, err := h.deps.Admin.GetActiveWorkflow(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, "get active workflow", err)
		return
	}
	ok(c, http.StatusOK, wf)
}

// CreateRule handles POST /api/v1/companies/:id/rules
func (h *Handlers) CreateRule(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var req CreateRuleRequest
	if !h.bind(c, &req) {
		return
	}
	rule := req.toEntity(companyID)
	if err := h.deps.Admin.CreateRule(c.Request.Context(), rule); err != nil {
		h.respondError(c, "create rule", err)
		return
	}
	ok(c, http.StatusCreated, rule)
}

// ListRules handles GET /api/v1/companies/:id/rules
func (h *Handlers) ListRules(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	rules, err := h.deps.Admin.ListRules(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, "list rules", err)
		return
	}
	ok(c, http.StatusOK, rules)
}

// SetRuleActive handles PUT /api/v1/rules/:id/active
func (h *Handlers) SetRuleActive(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var req SetRuleActiveRequest
	if !h.bind(c, &req) {
		return
	}
	rule, err := h.deps.Admin.SetRuleActive(c.Request.Context(), id, *req.Active)
	if err != nil {
		h.respondError(c, "set rule active", err)
		return
	}
	ok(c, http.StatusOK, rule)
}

// bind decodes the JSON body and answers 400 on failure
func (h *Handlers) bind(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		fail(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// pathID parses a positive integer path parameter and answers 400 on failure
func (h *Handlers) pathID(c *gin.Context, name string) (int64, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		fail(c, http.StatusBadRequest, fmt.Sprintf("invalid %s: %q", name, raw))
		return 0, false
	}
	return id, true
}
