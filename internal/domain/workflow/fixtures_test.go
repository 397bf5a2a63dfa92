package workflow

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/expenseflow/internal/domain/entity"
)

const testCompanyID int64 = 1

func rolePtr(r entity.Role) *entity.Role { return &r }
func int64Ptr(v int64) *int64            { return &v }
func intPtr(v int) *int                  { return &v }

// team returns admin(1), manager(2), other manager(3) and an employee(4)
// who reports to user 2 and is flagged as manager-approver
func team() (admin, manager, otherManager, employee *entity.User) {
	admin = &entity.User{ID: 1, CompanyID: testCompanyID, FullName: "Ada Admin", Role: entity.RoleAdmin}
	manager = &entity.User{ID: 2, CompanyID: testCompanyID, FullName: "Max Manager", Role: entity.RoleManager}
	otherManager = &entity.User{ID: 3, CompanyID: testCompanyID, FullName: "Mia Manager", Role: entity.RoleManager}
	employee = &entity.User{
		ID:                4,
		CompanyID:         testCompanyID,
		FullName:          "Eve Employee",
		Role:              entity.RoleEmployee,
		ManagerID:         int64Ptr(2),
		IsManagerApprover: true,
	}
	return
}

// managerAdminAdmin is the three step [Manager, Admin, Admin] workflow
func managerAdminAdmin() *entity.WorkflowDefinition {
	return &entity.WorkflowDefinition{
		ID:        10,
		CompanyID: testCompanyID,
		Name:      "standard",
		IsActive:  true,
		Steps: []entity.WorkflowStep{
			{ID: 101, WorkflowID: 10, Sequence: 1, ApproverRole: rolePtr(entity.RoleManager)},
			{ID: 102, WorkflowID: 10, Sequence: 2, ApproverRole: rolePtr(entity.RoleAdmin)},
			{ID: 103, WorkflowID: 10, Sequence: 3, ApproverRole: rolePtr(entity.RoleAdmin)},
		},
	}
}

func draftExpense(amount string) *entity.Expense {
	amt := decimal.RequireFromString(amount)
	return &entity.Expense{
		ID:                500,
		CompanyID:         testCompanyID,
		SubmitterID:       4,
		Description:       "client dinner",
		Category:          "Meals",
		ExpenseDate:       time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		SubmittedAmount:   amt,
		SubmittedCurrency: "USD",
		ConvertedAmount:   amt,
		ConversionRate:    decimal.NewFromInt(1),
		Status:            entity.ExpenseStatusDraft,
	}
}
