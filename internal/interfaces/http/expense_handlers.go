package http

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
)

// CreateExpense handles POST /api/v1/expenses
func (h *Handlers) CreateExpense(c *gin.Context) {
	var req CreateExpenseRequest
	if !h.bind(c, &req) {
		return
	}
	draft, err := req.toDraft()
	if err != nil {
		h.respondError(c, "create expense", err)
		return
	}
	expense, err := h.deps.Expense.CreateDraft(c.Request.Context(), draft)
	if err != nil {
		h.respondError(c, "create expense", err)
		return
	}
	ok(c, http.StatusCreated, expense)
}

// GetExpense handles GET /api/v1/expenses/:id
func (h *Handlers) GetExpense(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	expense, err := h.deps.Expense.GetExpense(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get expense", err)
		return
	}
	ok(c, http.StatusOK, expense)
}

// SubmitExpense handles POST /api/v1/expenses/:id/submit
func (h *Handlers) SubmitExpense(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var req SubmitExpenseRequest
	if !h.bind(c, &req) {
		return
	}
	expense, err := h.deps.Engine.Submit(c.Request.Context(), id, req.ActorID)
	if err != nil {
		h.respondError(c, "submit expense", err)
		return
	}
	ok(c, http.StatusOK, expense)
}

// RecordDecision handles POST /api/v1/expenses/:id/decisions
func (h *Handlers) RecordDecision(c *gin.Context) {
	h.decide(c, false)
}

// AdminOverride handles POST /api/v1/expenses/:id/override
func (h *Handlers) AdminOverride(c *gin.Context) {
	h.decide(c, true)
}

func (h *Handlers) decide(c *gin.Context, override bool) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	var body DecisionBody
	if !h.bind(c, &body) {
		return
	}

	req := body.toRequest(id)
	decide, op := h.deps.Engine.RecordDecision, "record decision"
	if override {
		decide, op = h.deps.Engine.AdminOverride, "admin override"
	}

	result, err := decide(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, op, err)
		return
	}
	ok(c, http.StatusOK, result)
}

// GetStatus handles GET /api/v1/expenses/:id/status
func (h *Handlers) GetStatus(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	view, err := h.deps.Engine.GetStatus(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get status", err)
		return
	}
	ok(c, http.StatusOK, view)
}

// GetHistory handles GET /api/v1/expenses/:id/history
func (h *Handlers) GetHistory(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	if _, err := h.deps.Expense.GetExpense(c.Request.Context(), id); err != nil {
		h.respondError(c, "get history", err)
		return
	}
	entries, err := h.deps.Audit.History(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "get history", err)
		return
	}
	ok(c, http.StatusOK, entries)
}

// ManagerDashboard handles GET /api/v1/managers/:id/dashboard
func (h *Handlers) ManagerDashboard(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	dashboard, err := h.deps.Expense.ManagerDashboard(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "manager dashboard", err)
		return
	}
	ok(c, http.StatusOK, dashboard)
}

// PendingFor handles GET /api/v1/approvers/:id/pending
func (h *Handlers) PendingFor(c *gin.Context) {
	id, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	pending, err := h.deps.Expense.PendingFor(c.Request.Context(), id)
	if err != nil {
		h.respondError(c, "pending approvals", err)
		return
	}
	ok(c, http.StatusOK, pending)
}

// ExportLedger handles GET /api/v1/companies/:id/report.xlsx
func (h *Handlers) ExportLedger(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	data, err := h.deps.Report.Ledger(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, "export ledger", err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger_company_%d.xlsx"`, companyID))
	c.Data(http.StatusOK, xlsxContentType, data)
}

// ArchiveLedger handles POST /api/v1/companies/:id/report/archive
func (h *Handlers) ArchiveLedger(c *gin.Context) {
	companyID, valid := h.pathID(c, "id")
	if !valid {
		return
	}
	path, err := h.deps.Report.Archive(c.Request.Context(), companyID)
	if err != nil {
		h.respondError(c, "archive ledger", err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"path": path})
}
