package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/expenseflow/internal/application/service"
	"github.com/garyjia/expenseflow/internal/config"
	"github.com/garyjia/expenseflow/internal/container"
	"github.com/garyjia/expenseflow/internal/domain/entity"
	"github.com/garyjia/expenseflow/pkg/utils"
)

// seed creates a demo company with one admin, one manager, one employee
// reporting to the manager, the [Manager, Admin, Admin] workflow and two rules.
func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML configuration file")
	companyName := flag.String("company", "Acme Corp", "name of the demo company")
	currency := flag.String("currency", "USD", "default currency of the demo company")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	// Seeding never needs the reminder loop
	cfg.Reminder.Enabled = false

	logger, err := utils.NewLogger(utils.LoggerConfig{Level: cfg.Logger.Level, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
	if err != nil {
		logger.Fatal("Failed to build container", zap.Error(err))
	}
	ctx := context.Background()
	if err := c.Start(ctx); err != nil {
		logger.Fatal("Failed to start container", zap.Error(err))
	}
	defer c.Close()

	companyID, err := seed(ctx, c.Services().Admin, *companyName, *currency)
	if err != nil {
		logger.Error("Seeding failed", zap.Error(err))
		return
	}
	logger.Info("Seed data created", zap.Int64("company_id", companyID))
}

func seed(ctx context.Context, admin service.AdminService, name, currency string) (int64, error) {
	company := &entity.Company{Name: name, DefaultCurrency: currency}
	if err := admin.CreateCompany(ctx, company); err != nil {
		return 0, fmt.Errorf("create company: %w", err)
	}

	boss := &entity.User{CompanyID: company.ID, FullName: "Alice Admin", Email: "alice@example.com", Role: entity.RoleAdmin}
	if err := admin.CreateUser(ctx, boss); err != nil {
		return 0, fmt.Errorf("create admin: %w", err)
	}
	manager := &entity.User{CompanyID: company.ID, FullName: "Mark Manager", Email: "mark@example.com", Role: entity.RoleManager}
	if err := admin.CreateUser(ctx, manager); err != nil {
		return 0, fmt.Errorf("create manager: %w", err)
	}
	employee := &entity.User{
		CompanyID:         company.ID,
		FullName:          "Erin Employee",
		Email:             "erin@example.com",
		Role:              entity.RoleEmployee,
		ManagerID:         &manager.ID,
		IsManagerApprover: true,
	}
	if err := admin.CreateUser(ctx, employee); err != nil {
		return 0, fmt.Errorf("create employee: %w", err)
	}

	managerRole, adminRole := entity.RoleManager, entity.RoleAdmin
	wf := &entity.WorkflowDefinition{
		CompanyID: company.ID,
		Name:      "standard",
		Steps: []entity.WorkflowStep{
			{Sequence: 1, ApproverRole: &managerRole},
			{Sequence: 2, ApproverRole: &adminRole},
			{Sequence: 3, ApproverRole: &adminRole},
		},
	}
	if err := admin.CreateWorkflow(ctx, wf); err != nil {
		return 0, fmt.Errorf("create workflow: %w", err)
	}

	pct := 60
	threshold := decimal.NewFromInt(5000)
	firstStep := 1
	rules := []*entity.ConditionalRule{
		{CompanyID: company.ID, Name: "majority approval", Type: entity.RuleTypePercentage, PercentageRequired: &pct, IsActive: true},
		{CompanyID: company.ID, Name: "large spend fast track", Type: entity.RuleTypeThreshold, ThresholdAmount: &threshold, TargetWorkflowStep: &firstStep, IsActive: false},
	}
	for _, r := range rules {
		if err := admin.CreateRule(ctx, r); err != nil {
			return 0, fmt.Errorf("create rule %q: %w", r.Name, err)
		}
	}
	return company.ID, nil
}
