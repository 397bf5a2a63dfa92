package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/garyjia/expenseflow/internal/application/port"
	"github.com/garyjia/expenseflow/internal/domain/entity"
)

var ledgerHeader = []interface{}{
	"Expense ID", "Submitter", "Date", "Category", "Description",
	"Amount", "Currency", "Rate", "Converted", "Status", "Step", "Submitted At", "Completed At",
}

// ReportService exports expense ledgers as spreadsheets
type ReportService interface {
	// Ledger builds an xlsx workbook with one row per company expense
	Ledger(ctx context.Context, companyID int64) ([]byte, error)

	// Archive writes the ledger to file storage and returns its path
	Archive(ctx context.Context, companyID int64) (string, error)
}

type reportServiceImpl struct {
	expenses  port.ExpenseRepository
	users     port.UserRepository
	companies port.CompanyRepository
	storage   port.FileStorage
	sheetName string
	logger    Logger
	now       func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	expenses port.ExpenseRepository,
	users port.UserRepository,
	companies port.CompanyRepository,
	storage port.FileStorage,
	sheetName string,
	logger Logger,
) ReportService {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	return &reportServiceImpl{
		expenses:  expenses,
		users:     users,
		companies: companies,
		storage:   storage,
		sheetName: sheetName,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *reportServiceImpl) Ledger(ctx context.Context, companyID int64) ([]byte, error) {
	company, err := s.companies.GetByID(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("get company %d: %w", companyID, err)
	}
	expenses, err := s.expenses.List(ctx, port.ExpenseFilter{CompanyID: companyID})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	roster, err := s.users.ListByCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	names := make(map[int64]string, len(roster))
	for _, u := range roster {
		names[u.ID] = u.FullName
	}

	file := excelize.NewFile()
	defer file.Close()

	if err := file.SetSheetName(file.GetSheetName(0), s.sheetName); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := file.SetSheetRow(s.sheetName, "A1", &ledgerHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, e := range expenses {
		cell, err := cellName(1, i+2)
		if err != nil {
			return nil, err
		}
		row := ledgerRow(e, names[e.SubmitterID])
		if err := file.SetSheetRow(s.sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row for expense %d: %w", e.ID, err)
		}
	}

	totalLabel, err := cellName(8, len(expenses)+3)
	if err != nil {
		return nil, err
	}
	totalCell, err := cellName(9, len(expenses)+3)
	if err != nil {
		return nil, err
	}
	if err := file.SetCellValue(s.sheetName, totalLabel, "Total "+company.DefaultCurrency); err != nil {
		return nil, fmt.Errorf("failed to write total label: %w", err)
	}
	if len(expenses) > 0 {
		lastRow, err := cellName(9, len(expenses)+1)
		if err != nil {
			return nil, err
		}
		if err := file.SetCellFormula(s.sheetName, totalCell, fmt.Sprintf("SUM(I2:%s)", lastRow)); err != nil {
			return nil, fmt.Errorf("failed to write total: %w", err)
		}
	}

	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render workbook: %w", err)
	}

	s.logger.Info("Ledger generated", "company_id", companyID, "rows", len(expenses))
	return buf.Bytes(), nil
}

// cellName converts 1-based column and row numbers to an A1 reference
func cellName(col, row int) (string, error) {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return "", fmt.Errorf("failed to address cell (%d, %d): %w", col, row, err)
	}
	return name, nil
}

func (s *reportServiceImpl) Archive(ctx context.Context, companyID int64) (string, error) {
	content, err := s.Ledger(ctx, companyID)
	if err != nil {
		return "", err
	}

	path := fmt.Sprintf("company_%d/ledger_%s.xlsx", companyID, s.now().Format("20060102_150405"))
	if err := s.storage.Save(ctx, path, content); err != nil {
		s.logger.Error("Failed to archive ledger", "error", err, "company_id", companyID)
		return "", fmt.Errorf("save ledger: %w", err)
	}

	s.logger.Info("Ledger archived", "company_id", companyID, "path", path)
	return s.storage.GetFullPath(path), nil
}

func ledgerRow(e *entity.Expense, submitter string) []interface{} {
	return []interface{}{
		e.ID,
		submitter,
		e.ExpenseDate.Format("2006-01-02"),
		e.Category,
		e.Description,
		e.SubmittedAmount.InexactFloat64(),
		e.SubmittedCurrency,
		e.ConversionRate.String(),
		e.ConvertedAmount.InexactFloat64(),
		e.Status.String(),
		e.CurrentApprovalStep,
		formatTime(e.SubmittedAt),
		formatTime(e.CompletedAt),
	}
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
